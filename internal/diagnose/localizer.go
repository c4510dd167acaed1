// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file implements the failure localizer: given an assembled topology and
// a set of physically non-responsive keys, it applies matrix-wiring theory to
// attribute the failures to the most probable faulty pin, diode, or solder
// joint.
//
// Why thresholds?
//
// A shared electrical line is only blamed when a clear majority of its keys
// fail (strictly more than 0.6), tolerating a minority of coincidental
// independent single-key faults. Whole-side attributions (shared ground,
// interrupt line) demand near-total failure (strictly more than 0.8, with a
// minimum population for the interrupt case) before they override more
// specific line-level explanations.
package diagnose

import (
	"sort"

	"github.com/vk/keygridgo/internal/topology"
)

const (
	lineThreshold      = 0.6
	wholeSideThreshold = 0.8
	interruptMinKeys   = 5
	directGndMinKeys   = 2
)

// keyLoc is one key resolved onto its owning shield's local coordinates.
type keyLoc struct {
	index    int
	row, col int
	failing  bool
}

// Localize computes the ordered failure report list for the given failing key
// set. It holds no state between calls: repeated invocations with the same
// topology and failing set produce identical, order-stable results, and the
// caller may mutate the failing set freely between calls.
func Localize(topo *topology.Topology, failing map[int]bool) []Report {
	if topo == nil || len(topo.Keys) == 0 {
		return nil
	}

	valid := topo.ValidShields()
	if len(valid) == 0 {
		return nil
	}

	groups := groupKeysByShield(topo, valid, failing)

	var reports []Report
	covered := map[int]bool{}

	// Reports are grouped by shield in shield-discovery order; within a
	// shield: interrupt first, then the wiring-mode pass, then leftover
	// singles.
	for _, s := range valid {
		keys := groups[s]
		if len(keys) == 0 {
			continue
		}

		failCount := 0
		for _, k := range keys {
			if k.failing {
				failCount++
			}
		}

		if s.Pins.Interrupt != "" && len(keys) > interruptMinKeys &&
			ratio(failCount, len(keys)) > wholeSideThreshold {
			reports = append(reports, Report{
				Type:       TypeInterrupt,
				Shield:     s.Name,
				Pin:        s.Pins.Interrupt,
				KeyIndices: indicesOf(keys),
			})
			coverFailing(keys, covered)
		}

		switch s.Wiring {
		case topology.WiringCharlieplex:
			reports = append(reports, charlieReports(s, keys, covered)...)
		case topology.WiringDirect:
			reports = append(reports, directReports(s, keys, failCount, covered)...)
		default:
			reports = append(reports, matrixReports(s, keys, covered)...)
		}

		for _, k := range keys {
			if !k.failing || covered[k.index] {
				continue
			}
			covered[k.index] = true
			entry := topo.Matrix[k.index]
			row, col := entry.Row, entry.Col
			reports = append(reports, Report{
				Type:       TypeSingle,
				Shield:     s.Name,
				Row:        &row,
				Col:        &col,
				KeyIndices: []int{k.index},
			})
		}
	}

	return reports
}

// groupKeysByShield resolves every mapped key onto its owning valid shield and
// local physical coordinates. Among shields whose offsets both fit under the
// key's logical coordinates, the one with the largest offset sum owns the key;
// this resolves overlapping offset ranges when several shields start near
// coordinate zero. Keys without a matrix entry are skipped.
func groupKeysByShield(topo *topology.Topology, valid []*topology.Shield, failing map[int]bool) map[*topology.Shield][]keyLoc {
	groups := make(map[*topology.Shield][]keyLoc, len(valid))
	for i := range topo.Keys {
		if i >= len(topo.Matrix) {
			break
		}
		entry := topo.Matrix[i]
		if entry == nil {
			continue
		}

		var owner *topology.Shield
		for _, s := range valid {
			if s.RowOffset > entry.Row || s.ColOffset > entry.Col {
				continue
			}
			if owner == nil || s.RowOffset+s.ColOffset > owner.RowOffset+owner.ColOffset {
				owner = s
			}
		}
		if owner == nil {
			continue
		}

		groups[owner] = append(groups[owner], keyLoc{
			index:   i,
			row:     entry.Row - owner.RowOffset,
			col:     entry.Col - owner.ColOffset,
			failing: failing[i],
		})
	}
	return groups
}

// charlieReports evaluates every ordinal pin of a charlieplex shield in its
// row-driving and column-sensing roles independently.
func charlieReports(s *topology.Shield, keys []keyLoc, covered map[int]bool) []Report {
	rowTotal, rowFail := map[int]int{}, map[int]int{}
	colTotal, colFail := map[int]int{}, map[int]int{}
	for _, k := range keys {
		rowTotal[k.row]++
		colTotal[k.col]++
		if k.failing {
			rowFail[k.row]++
			colFail[k.col]++
		}
	}

	var reports []Report
	for _, ordinal := range sortedOrdinals(rowTotal, colTotal) {
		rowFlagged := rowTotal[ordinal] > 0 && ratio(rowFail[ordinal], rowTotal[ordinal]) > lineThreshold
		colFlagged := colTotal[ordinal] > 0 && ratio(colFail[ordinal], colTotal[ordinal]) > lineThreshold
		if !rowFlagged && !colFlagged {
			continue
		}

		role := RoleBoth
		switch {
		case rowFlagged && !colFlagged:
			role = RoleIn
		case colFlagged && !rowFlagged:
			role = RoleOut
		}

		var indices []int
		for _, k := range keys {
			if !k.failing {
				continue
			}
			if (rowFlagged && k.row == ordinal) || (colFlagged && k.col == ordinal) {
				indices = append(indices, k.index)
				covered[k.index] = true
			}
		}

		reports = append(reports, Report{
			Type:       TypeCharlie,
			Shield:     s.Name,
			Pin:        s.Pins.GPIOs[ordinal],
			Role:       role,
			KeyIndices: indices,
		})
	}
	return reports
}

// directReports handles direct-wired shields. Near-total failure of more than
// two keys points at the shared ground rail; anything less yields one report
// per failing key, naming its uniquely owned pin.
func directReports(s *topology.Shield, keys []keyLoc, failCount int, covered map[int]bool) []Report {
	if len(keys) > directGndMinKeys && ratio(failCount, len(keys)) > wholeSideThreshold {
		coverFailing(keys, covered)
		return []Report{{
			Type:       TypeDirectGnd,
			Shield:     s.Name,
			KeyIndices: indicesOf(keys),
		}}
	}

	var reports []Report
	for _, k := range keys {
		if !k.failing {
			continue
		}
		covered[k.index] = true
		reports = append(reports, Report{
			Type:       TypeDirect,
			Shield:     s.Name,
			Pin:        s.Pins.Direct[k.col],
			KeyIndices: []int{k.index},
		})
	}
	return reports
}

// matrixReports evaluates each physical row and, independently, each physical
// column of a standard-matrix shield. A key can legitimately appear in both a
// row and a column report.
func matrixReports(s *topology.Shield, keys []keyLoc, covered map[int]bool) []Report {
	rowTotal, rowFail := map[int]int{}, map[int]int{}
	colTotal, colFail := map[int]int{}, map[int]int{}
	for _, k := range keys {
		rowTotal[k.row]++
		colTotal[k.col]++
		if k.failing {
			rowFail[k.row]++
			colFail[k.col]++
		}
	}

	var reports []Report
	for _, row := range sortedKeys(rowTotal) {
		if ratio(rowFail[row], rowTotal[row]) <= lineThreshold {
			continue
		}
		var indices []int
		for _, k := range keys {
			if k.failing && k.row == row {
				indices = append(indices, k.index)
				covered[k.index] = true
			}
		}
		reports = append(reports, Report{
			Type:       TypeRow,
			Shield:     s.Name,
			Pin:        s.Pins.Row[row],
			KeyIndices: indices,
		})
	}
	for _, col := range sortedKeys(colTotal) {
		if ratio(colFail[col], colTotal[col]) <= lineThreshold {
			continue
		}
		var indices []int
		for _, k := range keys {
			if k.failing && k.col == col {
				indices = append(indices, k.index)
				covered[k.index] = true
			}
		}
		reports = append(reports, Report{
			Type:       TypeCol,
			Shield:     s.Name,
			Pin:        s.Pins.Col[col],
			KeyIndices: indices,
		})
	}
	return reports
}

func ratio(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total)
}

func indicesOf(keys []keyLoc) []int {
	indices := make([]int, len(keys))
	for i, k := range keys {
		indices[i] = k.index
	}
	return indices
}

func coverFailing(keys []keyLoc, covered map[int]bool) {
	for _, k := range keys {
		if k.failing {
			covered[k.index] = true
		}
	}
}

func sortedKeys(m map[int]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func sortedOrdinals(a, b map[int]int) []int {
	seen := map[int]bool{}
	var ordinals []int
	for k := range a {
		if !seen[k] {
			seen[k] = true
			ordinals = append(ordinals, k)
		}
	}
	for k := range b {
		if !seen[k] {
			seen[k] = true
			ordinals = append(ordinals, k)
		}
	}
	sort.Ints(ordinals)
	return ordinals
}
