// Package reference resolves raw pin identifiers to human-readable silkscreen
// labels. It is a presentation aid only: the localizer never needs it, and a
// miss degrades to the raw identifier.
package reference

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed nice_nano.yaml
var defaultLabels []byte

// Entry is one pin's presentation data.
type Entry struct {
	// Label is the silkscreen marking, e.g. "D7".
	Label string `yaml:"label"`
	// Diodes names the diode designators associated with the pin's line.
	Diodes []string `yaml:"diodes,omitempty"`
}

// DB maps lookup keys to entries. Keys are "<shield>_<pinIdentifier>"; legacy
// databases used two-sided "left_"/"right_" prefixes instead of shield names.
type DB struct {
	entries map[string]Entry
}

// Load reads a label database from a YAML file.
func Load(path string) (*DB, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read label database %s: %w", path, err)
	}
	return parse(raw)
}

// Default returns the embedded database for the most common controller.
func Default() *DB {
	db, err := parse(defaultLabels)
	if err != nil {
		// The embedded table is validated by tests; a parse failure here is a
		// broken build, not a runtime condition.
		panic(fmt.Errorf("embedded label database is invalid: %w", err))
	}
	return db
}

func parse(raw []byte) (*DB, error) {
	entries := map[string]Entry{}
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse label database: %w", err)
	}
	return &DB{entries: entries}, nil
}

// Lookup resolves a pin on a shield to its presentation entry. It tries the
// shield-qualified key first, then the legacy two-sided prefixes, then the raw
// pin identifier; a full miss yields the raw identifier as the label.
func (db *DB) Lookup(shield, pin string) Entry {
	for _, key := range []string{
		shield + "_" + pin,
		"left_" + pin,
		"right_" + pin,
		pin,
	} {
		if entry, ok := db.entries[key]; ok {
			return entry
		}
	}
	return Entry{Label: pin}
}
