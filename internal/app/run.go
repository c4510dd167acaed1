package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vk/keygridgo/internal/ctxlog"
	"github.com/vk/keygridgo/internal/diagnose"
	"github.com/vk/keygridgo/internal/topology"
)

// Run executes the main application logic based on the provided configuration:
// serve the diagnosis API when a port is configured, otherwise run one
// diagnosis against the configured failing keys and print the result.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.ServePort > 0 {
		return a.serve(ctx)
	}

	failing := make(map[int]bool, len(a.config.FailingKeys))
	for _, k := range a.config.FailingKeys {
		failing[k] = true
	}

	reports := diagnose.Localize(a.topo, failing)
	a.logger.Info("Diagnosis complete.", "failing_keys", len(failing), "reports", len(reports))

	if a.config.JSONOutput {
		return a.writeJSON(reports)
	}
	return a.writeSummary(reports)
}

// writeJSON emits the interchange shapes: the topology plus the report list.
func (a *App) writeJSON(reports []diagnose.Report) error {
	enc := json.NewEncoder(a.outW)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Topology *topology.Topology `json:"topology"`
		Reports  []diagnose.Report  `json:"reports"`
	}{a.topo, reports})
}

// writeSummary emits the human-readable rendition, with silkscreen labels
// applied where the reference database knows the pin.
func (a *App) writeSummary(reports []diagnose.Report) error {
	shieldNames := make([]string, len(a.topo.Shields))
	for i, s := range a.topo.Shields {
		shieldNames[i] = s.Name
	}
	fmt.Fprintf(a.outW, "Topology: %d keys, %d shields (%s), diode direction %s\n",
		len(a.topo.Keys), len(a.topo.Shields), strings.Join(shieldNames, ", "), a.topo.Diode)

	if len(reports) == 0 {
		fmt.Fprintln(a.outW, "No failures to localize.")
		return nil
	}

	fmt.Fprintf(a.outW, "Suspected faults (%d):\n", len(reports))
	for _, r := range reports {
		fmt.Fprintf(a.outW, "  %s\n", a.describe(r))
	}
	return nil
}

// describe renders one report as a single line.
func (a *App) describe(r diagnose.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", r.Type, r.Shield)

	if r.Pin != "" {
		entry := a.labels.Lookup(r.Shield, r.Pin)
		if entry.Label != r.Pin {
			fmt.Fprintf(&b, ": pin %s (%s)", r.Pin, entry.Label)
		} else {
			fmt.Fprintf(&b, ": pin %s", r.Pin)
		}
		if len(entry.Diodes) > 0 {
			fmt.Fprintf(&b, ", diodes %s", strings.Join(entry.Diodes, "/"))
		}
	}
	if r.Role != "" {
		fmt.Fprintf(&b, ", role %s", r.Role)
	}
	if r.Type == diagnose.TypeSingle && r.Row != nil && r.Col != nil {
		fmt.Fprintf(&b, ": key at row %d, col %d", *r.Row, *r.Col)
	}

	fmt.Fprintf(&b, ", keys %s", joinInts(r.KeyIndices))
	return b.String()
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ", ")
}
