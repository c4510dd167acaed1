// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Topology structure, the immutable aggregate produced
// by one pass of the extraction pipeline over a corpus.
//
// Why have a Topology?
//
// A keyboard's definition is scattered across files that each describe one
// facet: geometry here, the scan matrix there, per-shield pin wiring somewhere
// else. Diagnosis needs all facets joined on a single canonical key identity.
// The Topology is that join: physical keys indexed by their extraction order,
// a positionally aligned matrix map, and per-shield wiring records. It is
// built once per corpus load and never mutated; reloading a corpus replaces
// the whole aggregate.
package topology

import (
	"encoding/json"
	"errors"
)

// Fatal construction failures. Everything else degrades gracefully.
var (
	// ErrNoInputFiles is returned when the corpus contains no recognized files.
	ErrNoInputFiles = errors.New("no recognized input files in corpus")
	// ErrNoKeys is returned when physical-layout extraction yields zero keys.
	ErrNoKeys = errors.New("no physical keys recovered from corpus")
)

// DiodeDirection is the electrical polarity of the per-key diodes.
type DiodeDirection string

const (
	// DiodeColToRow means current flows from column lines into row lines.
	DiodeColToRow DiodeDirection = "col2row"
	// DiodeRowToCol means current flows from row lines into column lines.
	DiodeRowToCol DiodeDirection = "row2col"
)

// WiringMode classifies how a shield's switches reach its controller.
type WiringMode string

const (
	// WiringUnknown marks a shield with no recovered pin topology.
	WiringUnknown WiringMode = ""
	// WiringMatrix is a standard row/column diode matrix.
	WiringMatrix WiringMode = "matrix"
	// WiringCharlieplex multiplexes every pin between a row-driving role and a
	// column-sensing role.
	WiringCharlieplex WiringMode = "charlieplex"
	// WiringDirect gives every key its own input pin on a shared ground rail.
	WiringDirect WiringMode = "direct"
)

// PhysicalKey is one key's geometry in real units. Source values are in
// centiunits and centidegrees; they are divided by 100 at extraction time.
// A key's identity is its position in the extracted sequence.
type PhysicalKey struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     float64 `json:"w"`
	Height    float64 `json:"h"`
	Rotation  float64 `json:"r"`
	RotationX float64 `json:"rx"`
	RotationY float64 `json:"ry"`
}

// MatrixEntry maps one physical key to its logical scan coordinates.
type MatrixEntry struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// PinAssignment holds the ordered pin lists recovered for one shield. Each pin
// is an opaque identifier string: the referenced controller node plus the
// numeric line, e.g. "gpio0 13". Map keys are ordinal positions in encounter
// order.
type PinAssignment struct {
	Row       map[int]string
	Col       map[int]string
	GPIOs     map[int]string
	Direct    map[int]string
	Interrupt string
}

// newPinAssignment seeds an empty bucket for a discovered shield.
func newPinAssignment() PinAssignment {
	return PinAssignment{
		Row:    map[int]string{},
		Col:    map[int]string{},
		GPIOs:  map[int]string{},
		Direct: map[int]string{},
	}
}

// Empty reports whether no pin list of any kind was recovered.
func (p PinAssignment) Empty() bool {
	return len(p.Row) == 0 && len(p.Col) == 0 && len(p.GPIOs) == 0 && len(p.Direct) == 0
}

// Shield is one named hardware variant: one physical unit occupying a disjoint
// coordinate range of the shared global matrix.
type Shield struct {
	Name      string
	ColOffset int
	RowOffset int
	Wiring    WiringMode
	Diode     DiodeDirection
	Pins      PinAssignment
}

// Topology is the assembled, immutable result of extraction.
type Topology struct {
	// Keys holds physical key geometry; the slice index is the canonical key ID.
	Keys []PhysicalKey
	// Matrix is index-aligned with Keys. A nil entry means the key has no
	// recovered scan coordinates and must be skipped, never treated as {0,0}.
	Matrix []*MatrixEntry
	// Shields in discovery order.
	Shields []*Shield
	// Diode is the global default diode direction.
	Diode DiodeDirection
}

// Shield returns the shield with the given name, or nil.
func (t *Topology) Shield(name string) *Shield {
	for _, s := range t.Shields {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// ValidShields returns, in discovery order, the shields with at least one
// non-empty pin list. Shields with no recovered pin topology are excluded from
// diagnosis entirely.
func (t *Topology) ValidShields() []*Shield {
	var valid []*Shield
	for _, s := range t.Shields {
		if !s.Pins.Empty() {
			valid = append(valid, s)
		}
	}
	return valid
}

// pinMapJSON is the per-shield interchange shape.
type pinMapJSON struct {
	Row       map[int]string `json:"row"`
	Col       map[int]string `json:"col"`
	GPIOs     map[int]string `json:"gpios"`
	Direct    map[int]string `json:"direct"`
	Interrupt *string        `json:"interrupt"`
	ColOffset int            `json:"colOffset"`
	RowOffset int            `json:"rowOffset"`
}

// MarshalJSON renders the topology in its interchange shape:
//
//	{physicalKeys, matrixMap, pinMap, diodeDirection}
//
// Absent matrix entries marshal as null; a shield with no interrupt pin
// marshals interrupt as null.
func (t *Topology) MarshalJSON() ([]byte, error) {
	pinMap := make(map[string]pinMapJSON, len(t.Shields))
	for _, s := range t.Shields {
		entry := pinMapJSON{
			Row:       s.Pins.Row,
			Col:       s.Pins.Col,
			GPIOs:     s.Pins.GPIOs,
			Direct:    s.Pins.Direct,
			ColOffset: s.ColOffset,
			RowOffset: s.RowOffset,
		}
		if s.Pins.Interrupt != "" {
			irq := s.Pins.Interrupt
			entry.Interrupt = &irq
		}
		pinMap[s.Name] = entry
	}

	return json.Marshal(struct {
		PhysicalKeys []PhysicalKey         `json:"physicalKeys"`
		MatrixMap    []*MatrixEntry        `json:"matrixMap"`
		PinMap       map[string]pinMapJSON `json:"pinMap"`
		Diode        DiodeDirection        `json:"diodeDirection"`
	}{
		PhysicalKeys: t.Keys,
		MatrixMap:    t.Matrix,
		PinMap:       pinMap,
		Diode:        t.Diode,
	})
}
