package topology

import (
	"context"
	"regexp"

	"github.com/vk/keygridgo/internal/corpus"
	"github.com/vk/keygridgo/internal/ctxlog"
	"github.com/vk/keygridgo/internal/devicetree"
)

// rcPair matches one row/column pair macro inside a matrix transform map.
var rcPair = regexp.MustCompile(`RC\(\s*(\d+)\s*,\s*(\d+)\s*\)`)

// extractMatrix recovers the logical-to-physical matrix map and per-shield
// coordinate offsets.
//
// Every "map = < ... >;" block in the corpus is parsed into an ordered
// {row, col} list; the longest list wins, on the heuristic that the most
// complete map supersedes partial or stale ones (ties keep the earliest file
// in corpus order). Independently, each file's "row-offset" and "col-offset"
// declarations are recorded on the shield the file is attributed to; files
// attributed to no shield apply to all of them.
func extractMatrix(ctx context.Context, c *corpus.Corpus, shields []*Shield) []*MatrixEntry {
	logger := ctxlog.FromContext(ctx)

	var best []*MatrixEntry
	for _, id := range c.IDs() {
		text := c.Text(id)

		for from := 0; from < len(text); {
			value, end, ok := devicetree.Property(text, "map", from)
			if !ok {
				break
			}
			entries := parseTransformMap(value)
			if len(entries) > len(best) {
				best = entries
				logger.Debug("Matrix transform candidate adopted.", "file", id, "entries", len(entries))
			}
			from = end
		}

		applyOffsets(text, shieldsForFile(id, shields))
	}

	return best
}

// parseTransformMap extracts the ordered row/column pairs from one map value.
func parseTransformMap(value string) []*MatrixEntry {
	matches := rcPair.FindAllStringSubmatch(value, -1)
	if len(matches) == 0 {
		return nil
	}
	entries := make([]*MatrixEntry, 0, len(matches))
	for _, m := range matches {
		row, okRow := devicetree.ParseInt(m[1])
		col, okCol := devicetree.ParseInt(m[2])
		if !okRow || !okCol {
			continue
		}
		entries = append(entries, &MatrixEntry{Row: row, Col: col})
	}
	return entries
}

// applyOffsets records any integer offset declarations found in text onto the
// given shields. Offsets partition the shared global matrix between shields
// occupying disjoint coordinate ranges.
func applyOffsets(text string, owners []*Shield) {
	if value, _, ok := devicetree.Property(text, "col-offset", 0); ok {
		if tokens := devicetree.AngleValues(value); len(tokens) > 0 {
			if n, ok := devicetree.ParseInt(tokens[0]); ok {
				for _, s := range owners {
					s.ColOffset = n
				}
			}
		}
	}
	if value, _, ok := devicetree.Property(text, "row-offset", 0); ok {
		if tokens := devicetree.AngleValues(value); len(tokens) > 0 {
			if n, ok := devicetree.ParseInt(tokens[0]); ok {
				for _, s := range owners {
					s.RowOffset = n
				}
			}
		}
	}
}
