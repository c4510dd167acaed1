package topology

import (
	"context"
	"strconv"
	"strings"

	"github.com/vk/keygridgo/internal/corpus"
	"github.com/vk/keygridgo/internal/ctxlog"
	"github.com/vk/keygridgo/internal/devicetree"
)

// Wiring-scheme content signatures, checked in priority order. Explicit
// row/column GPIO properties always mean a standard matrix; a charlieplex
// compatibility marker or a bare pin list means charlieplexing; a direct
// compatibility marker or a dedicated input-pin list means direct wiring.
const (
	rowPinsProperty    = "row-gpios"
	colPinsProperty    = "col-gpios"
	sharedPinsProperty = "gpios"
	directPinsProperty = "input-gpios"
	interruptProperty  = "interrupt-gpios"
	diodeProperty      = "diode-direction"

	charlieplexMarker = "charlieplex"
	directMarker      = "kscan-gpio-direct"
)

// extractPins recovers each shield's wiring mode, pin lists, and diode
// polarity. Each file contributes to the shield its name attributes it to, or
// to all shields when it matches none. Later files extend earlier pin lists
// rather than replacing them. The returned direction is the global default:
// the first explicit diode-direction declaration in corpus order, or
// column-to-row when nothing declares one.
func extractPins(ctx context.Context, c *corpus.Corpus, shields []*Shield) DiodeDirection {
	logger := ctxlog.FromContext(ctx)

	global := DiodeColToRow
	globalDeclared := false

	for _, id := range c.IDs() {
		text := c.Text(id)
		owners := shieldsForFile(id, shields)

		declared, hasDiode := diodeDirection(text)
		if hasDiode && !globalDeclared {
			global = declared
			globalDeclared = true
		}

		rows := collectPins(text, rowPinsProperty)
		cols := collectPins(text, colPinsProperty)

		switch {
		case len(rows) > 0 || len(cols) > 0:
			for _, s := range owners {
				appendPins(s.Pins.Row, rows)
				appendPins(s.Pins.Col, cols)
				s.Wiring = WiringMatrix
				if hasDiode {
					s.Diode = declared
				}
			}
			logger.Debug("Standard matrix wiring recovered.", "file", id, "rows", len(rows), "cols", len(cols))

		case devicetree.CompatibleIndex(text, charlieplexMarker) >= 0 || hasPins(text, sharedPinsProperty):
			gpios := collectPins(text, sharedPinsProperty)
			if len(gpios) == 0 {
				break
			}
			interrupt := firstPin(text, interruptProperty)
			for _, s := range owners {
				appendPins(s.Pins.GPIOs, gpios)
				if interrupt != "" && s.Pins.Interrupt == "" {
					s.Pins.Interrupt = interrupt
				}
				s.Wiring = WiringCharlieplex
			}
			logger.Debug("Charlieplex wiring recovered.", "file", id, "gpios", len(gpios), "interrupt", interrupt != "")

		case devicetree.CompatibleIndex(text, directMarker) >= 0 || hasPins(text, directPinsProperty):
			direct := collectPins(text, directPinsProperty)
			if len(direct) == 0 {
				break
			}
			for _, s := range owners {
				appendPins(s.Pins.Direct, direct)
				s.Wiring = WiringDirect
			}
			logger.Debug("Direct wiring recovered.", "file", id, "pins", len(direct))
		}
	}

	// The wiring scheme fixes the electrical topology regardless of any
	// declared polarity: charlieplexing always scans column-to-row, direct
	// wiring always sinks row-to-column through the shared ground rail.
	for _, s := range shields {
		switch s.Wiring {
		case WiringCharlieplex:
			s.Diode = DiodeColToRow
		case WiringDirect:
			s.Diode = DiodeRowToCol
		}
	}

	return global
}

// diodeDirection reads an explicit diode-direction string property.
func diodeDirection(text string) (DiodeDirection, bool) {
	value, ok := devicetree.StringProperty(text, diodeProperty)
	if !ok {
		return DiodeColToRow, false
	}
	switch DiodeDirection(value) {
	case DiodeColToRow:
		return DiodeColToRow, true
	case DiodeRowToCol:
		return DiodeRowToCol, true
	}
	return DiodeColToRow, false
}

// hasPins reports whether the named pin-list property is present in text.
func hasPins(text, property string) bool {
	_, _, ok := devicetree.Property(text, property, 0)
	return ok
}

// collectPins gathers the ordered pin identifiers from every occurrence of the
// named property in text.
func collectPins(text, property string) []string {
	var pins []string
	for from := 0; from < len(text); {
		value, end, ok := devicetree.Property(text, property, from)
		if !ok {
			break
		}
		pins = append(pins, parsePinList(value)...)
		from = end
	}
	return pins
}

// firstPin returns the first pin identifier of the named property, or "".
func firstPin(text, property string) string {
	value, _, ok := devicetree.Property(text, property, 0)
	if !ok {
		return ""
	}
	if pins := parsePinList(value); len(pins) > 0 {
		return pins[0]
	}
	return ""
}

// parsePinList scans a bracketed pin-list value. A pin is a node-reference
// token paired with its immediately following numeric line token; any trailing
// flag tokens (active level, pull configuration) are discarded.
func parsePinList(value string) []string {
	tokens := devicetree.AngleValues(value)
	var pins []string
	for i := 0; i < len(tokens); i++ {
		if !strings.HasPrefix(tokens[i], "&") {
			continue
		}
		node := strings.TrimPrefix(tokens[i], "&")
		if node == "" || i+1 >= len(tokens) {
			continue
		}
		line, ok := devicetree.ParseInt(tokens[i+1])
		if !ok {
			continue
		}
		pins = append(pins, pinID(node, line))
		i++
	}
	return pins
}

// pinID renders the opaque pin identifier: referenced node plus numeric line.
func pinID(node string, line int) string {
	return node + " " + strconv.Itoa(line)
}

// appendPins extends a pin bucket with new entries, continuing the ordinal
// sequence in encounter order.
func appendPins(dst map[int]string, pins []string) {
	for _, pin := range pins {
		dst[len(dst)] = pin
	}
}
