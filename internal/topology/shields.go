package topology

import (
	"context"
	"strings"

	"github.com/vk/keygridgo/internal/corpus"
	"github.com/vk/keygridgo/internal/ctxlog"
)

// settingsResetShield is the reserved pseudo-shield used by factory-reset
// build entries. It names no hardware and is never diagnosed.
const settingsResetShield = "settings_reset"

// resolveShields scans build-configuration text for `shield:` declarations and
// returns the discovered shields in declaration order, deduplicated, each
// seeded with an empty pin bucket. The value after the colon may be a single
// token, a quoted token, or a bracketed comma-separated list; each entry's
// first whitespace-delimited token is the shield's base name (trailing tokens
// name add-on modules, not the shield itself).
func resolveShields(ctx context.Context, c *corpus.Corpus) []*Shield {
	logger := ctxlog.FromContext(ctx)

	var shields []*Shield
	seen := map[string]bool{}

	add := func(entry string) {
		name := baseShieldName(entry)
		if name == "" || name == settingsResetShield || seen[name] {
			return
		}
		seen[name] = true
		shields = append(shields, &Shield{
			Name:  name,
			Diode: DiodeColToRow,
			Pins:  newPinAssignment(),
		})
	}

	for _, id := range c.IDs() {
		text := c.Text(id)
		for _, line := range strings.Split(text, "\n") {
			idx := strings.Index(line, "shield:")
			if idx < 0 {
				continue
			}
			value := strings.TrimSpace(line[idx+len("shield:"):])
			if value == "" {
				continue
			}
			if strings.HasPrefix(value, "[") {
				value = strings.TrimPrefix(value, "[")
				value = strings.TrimSuffix(strings.TrimSpace(value), "]")
				for _, entry := range strings.Split(value, ",") {
					add(entry)
				}
			} else {
				add(value)
			}
		}
	}

	logger.Debug("Shields resolved from build configuration.", "count", len(shields))
	return shields
}

// baseShieldName strips quotes and brackets from a declaration entry and
// returns its first whitespace-delimited token.
func baseShieldName(entry string) string {
	entry = strings.TrimSpace(entry)
	entry = strings.Trim(entry, `"'[]`)
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return ""
	}
	if i := strings.IndexAny(entry, " \t"); i >= 0 {
		entry = entry[:i]
	}
	return strings.Trim(entry, `"'`)
}

// shieldsForFile attributes a file to its owning shields by name substring
// match against the file identifier. When several shield names match, the
// longest name wins (a shield name fully contained in another would otherwise
// claim the other's files). A file matching no known shield is shared
// configuration and applies to all shields.
func shieldsForFile(fileID string, shields []*Shield) []*Shield {
	var best *Shield
	for _, s := range shields {
		if !strings.Contains(fileID, s.Name) {
			continue
		}
		if best == nil || len(s.Name) > len(best.Name) {
			best = s
		}
	}
	if best != nil {
		return []*Shield{best}
	}
	return shields
}
