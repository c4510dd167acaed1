package topology

import (
	"context"
	"strings"

	"github.com/vk/keygridgo/internal/corpus"
	"github.com/vk/keygridgo/internal/ctxlog"
	"github.com/vk/keygridgo/internal/devicetree"
)

// physicalLayoutMarker is the property-name suffix of the chosen-node
// reference that designates the active physical layout, and also the
// compatibility marker of physical-layout node definitions.
const physicalLayoutMarker = "physical-layout"

// keyAttrArity is the fixed field count of one key attribute record: width,
// height, x, y, rotation, rotation-origin x, rotation-origin y.
const keyAttrArity = 7

// extractLayout recovers ordered key geometry from the corpus in two phases,
// first match wins, files processed in corpus order:
//
//  1. Find a chosen reference "<...physical-layout> = &LABEL;", locate the node
//     definition carrying that label in any file, and parse the nearest
//     "keys = < ... >;" block after it.
//  2. Fall back to any node whose compatible string names it a physical-layout
//     node, again parsing the nearest following keys block.
//
// Extraction halts at the first file that yields at least one key. An empty
// result is a fatal condition handled by the caller.
func extractLayout(ctx context.Context, c *corpus.Corpus) []PhysicalKey {
	logger := ctxlog.FromContext(ctx)

	// Phase 1: follow the chosen physical-layout reference.
	for _, id := range c.IDs() {
		label, ok := devicetree.ReferenceProperty(c.Text(id), physicalLayoutMarker)
		if !ok {
			continue
		}
		logger.Debug("Active physical layout designated by reference.", "file", id, "label", label)
		for _, defID := range c.IDs() {
			body, _, ok := devicetree.NodeByLabel(c.Text(defID), label)
			if !ok {
				continue
			}
			if keys := parseKeysBlock(body); len(keys) > 0 {
				logger.Debug("Physical layout extracted.", "file", defID, "keys", len(keys))
				return keys
			}
		}
	}

	// Phase 2: any node declaring itself a physical layout.
	for _, id := range c.IDs() {
		text := c.Text(id)
		at := devicetree.CompatibleIndex(text, physicalLayoutMarker)
		if at < 0 {
			continue
		}
		if keys := parseKeysBlock(text[at:]); len(keys) > 0 {
			logger.Debug("Physical layout extracted via compatible fallback.", "file", id, "keys", len(keys))
			return keys
		}
	}

	return nil
}

// parseKeysBlock finds the nearest "keys = < ... >;" property in text and
// parses its attribute records. Records are delimited by node-reference
// tokens (the attribute macro); each must carry exactly seven integer cells.
// Malformed or partial records are skipped silently.
func parseKeysBlock(text string) []PhysicalKey {
	value, _, ok := devicetree.Property(text, "keys", 0)
	if !ok {
		return nil
	}

	tokens := devicetree.AngleValues(value)
	var keys []PhysicalKey
	var cells []int
	inRecord := false

	flush := func() {
		if inRecord {
			if key, ok := keyFromCells(cells); ok {
				keys = append(keys, key)
			}
		}
		cells = cells[:0]
	}

	for _, token := range tokens {
		if strings.HasPrefix(token, "&") {
			flush()
			inRecord = true
			continue
		}
		if !inRecord {
			continue
		}
		if n, ok := devicetree.ParseInt(token); ok {
			cells = append(cells, n)
		}
	}
	flush()

	return keys
}

// keyFromCells converts one fixed-arity record from centiunits to real units.
func keyFromCells(cells []int) (PhysicalKey, bool) {
	if len(cells) != keyAttrArity {
		return PhysicalKey{}, false
	}
	return PhysicalKey{
		Width:     float64(cells[0]) / 100,
		Height:    float64(cells[1]) / 100,
		X:         float64(cells[2]) / 100,
		Y:         float64(cells[3]) / 100,
		Rotation:  float64(cells[4]) / 100,
		RotationX: float64(cells[5]) / 100,
		RotationY: float64(cells[6]) / 100,
	}, true
}
