// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Corpus, the root container for all hardware-description
// and build-configuration text the extraction pipeline operates on.
//
// Why have a Corpus?
//
// A keyboard configuration is split across many small files: shared .dtsi
// fragments, per-shield .overlay files, a .keymap, and a build matrix. The
// extractors never care where a file came from (local checkout, remote
// repository), only that the full set is available as normalized text in a
// fixed order. The Corpus consolidates the file set into that single, ordered,
// comment-free view, so every extraction pass is a deterministic function of
// its contents.
package corpus

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/vk/keygridgo/internal/ctxlog"
	"github.com/vk/keygridgo/internal/fsutil"
)

// RecognizedExtensions lists the hardware-description and build-configuration
// file extensions the pipeline accepts. Everything else is ignored at load time.
var RecognizedExtensions = []string{
	".keymap", ".overlay", ".dtsi", ".dts", ".conf", ".yaml", ".yml",
}

// Recognized reports whether the given file name carries one of the accepted
// extensions.
func Recognized(name string) bool {
	for _, ext := range RecognizedExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// Corpus is an immutable, ordered set of normalized configuration files.
type Corpus struct {
	ids  []string
	text map[string]string
}

// New builds a Corpus from a mapping of file identifier to raw text. Each
// file's text is normalized (comments stripped) on the way in, and the
// identifiers are ordered lexicographically.
func New(files map[string]string) *Corpus {
	c := &Corpus{
		ids:  make([]string, 0, len(files)),
		text: make(map[string]string, len(files)),
	}
	for id, raw := range files {
		c.ids = append(c.ids, id)
		c.text[id] = Normalize(raw)
	}
	sort.Strings(c.ids)
	return c
}

// LoadDir walks root for recognized files and materializes them into a Corpus.
func LoadDir(ctx context.Context, root string) (*Corpus, error) {
	logger := ctxlog.FromContext(ctx)

	paths, err := fsutil.FindFilesByExtensions(root, RecognizedExtensions...)
	if err != nil {
		return nil, fmt.Errorf("failed to scan corpus directory %s: %w", root, err)
	}

	files := make(map[string]string, len(paths))
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read corpus file %s: %w", path, err)
		}
		files[path] = string(raw)
	}
	logger.Debug("Corpus loaded from directory.", "root", root, "files", len(paths))

	return New(files), nil
}

// IDs returns the file identifiers in their fixed processing order.
func (c *Corpus) IDs() []string {
	return c.ids
}

// Text returns the normalized text for a file identifier, or the empty string
// when the identifier is unknown.
func (c *Corpus) Text(id string) string {
	return c.text[id]
}

// Len returns the number of files in the corpus.
func (c *Corpus) Len() int {
	return len(c.ids)
}
