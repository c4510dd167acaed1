package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vk/keygridgo/internal/diagnose"
)

// serve runs the diagnosis HTTP API until the context is canceled. This is
// the seam an external rendering UI consumes; each diagnosis request is
// recomputed fresh against the immutable topology, so concurrent requests
// with different failing sets never observe each other's state.
func (a *App) serve(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.healthHandler)
	mux.HandleFunc("/topology", a.topologyHandler)
	mux.HandleFunc("/diagnose", a.diagnoseHandler)

	addr := fmt.Sprintf(":%d", a.config.ServePort)
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("API server shutdown failed", "error", err)
		}
	}()

	a.logger.Info("🩺 Diagnosis API server starting", "address", fmt.Sprintf("http://localhost%s", addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("API server failed: %w", err)
	}
	return nil
}

// healthHandler reports liveness.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// topologyHandler serves the topology interchange shape.
func (a *App) topologyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(a.topo); err != nil {
		a.logger.Error("Failed to encode topology response", "error", err)
	}
}

// diagnoseRequest is the body of a diagnosis call.
type diagnoseRequest struct {
	Keys []int `json:"keys"`
}

// diagnoseHandler localizes the posted failing key set and returns the
// ordered report list.
func (a *App) diagnoseHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req diagnoseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	failing := make(map[int]bool, len(req.Keys))
	for _, k := range req.Keys {
		failing[k] = true
	}

	reports := diagnose.Localize(a.topo, failing)
	a.logger.Debug("Diagnosis request served.", "failing_keys", len(req.Keys), "reports", len(reports))

	// Reports marshal as an empty array, not null, for the benefit of UIs.
	if reports == nil {
		reports = []diagnose.Report{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(reports); err != nil {
		a.logger.Error("Failed to encode diagnosis response", "error", err)
	}
}
