package topology

import (
	"context"

	"github.com/vk/keygridgo/internal/corpus"
	"github.com/vk/keygridgo/internal/ctxlog"
)

// Build runs the full extraction pipeline over a corpus and assembles the
// immutable topology: resolve shields, recover key geometry, recover the
// matrix transform and per-shield offsets, recover per-shield pin wiring.
//
// Extraction is best-effort per file and per pattern. Exactly two conditions
// are fatal: an empty corpus (ErrNoInputFiles) and zero recovered physical
// keys (ErrNoKeys). Everything else degrades: keys without a matrix entry stay
// sparse, shields without pin topology are simply never diagnosed.
func Build(ctx context.Context, c *corpus.Corpus) (*Topology, error) {
	logger := ctxlog.FromContext(ctx)

	if c == nil || c.Len() == 0 {
		return nil, ErrNoInputFiles
	}

	shields := resolveShields(ctx, c)

	keys := extractLayout(ctx, c)
	if len(keys) == 0 {
		return nil, ErrNoKeys
	}

	entries := extractMatrix(ctx, c, shields)
	diode := extractPins(ctx, c, shields)

	// Matrix is index-aligned with keys. A declared transform normally carries
	// one pair per key; anything shorter leaves the tail sparse, anything
	// longer is truncated to the key count.
	matrix := make([]*MatrixEntry, len(keys))
	for i := range matrix {
		if i < len(entries) {
			matrix[i] = entries[i]
		}
	}

	topo := &Topology{
		Keys:    keys,
		Matrix:  matrix,
		Shields: shields,
		Diode:   diode,
	}

	logger.Info("Topology assembled.",
		"keys", len(keys),
		"matrix_entries", len(entries),
		"shields", len(shields),
		"diode_direction", string(diode),
	)
	return topo, nil
}
