package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/keygridgo/internal/corpus"
	"github.com/vk/keygridgo/internal/ctxlog"
	"github.com/vk/keygridgo/internal/fetch"
	"github.com/vk/keygridgo/internal/reference"
	"github.com/vk/keygridgo/internal/session"
	"github.com/vk/keygridgo/internal/topology"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
	topo   *topology.Topology
	labels *reference.DB
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with the corpus loaded and the topology built.
// Reports and structured output go to outW; logs go to errW. A corpus that
// cannot be materialized, or a topology that cannot be built, is a fatal
// startup error and panics; the entrypoint recovers it into a clean exit.
func NewApp(outW, errW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, errW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	if cfg.SessionPath != "" {
		s, err := session.Load(ctx, cfg.SessionPath)
		if err != nil {
			panic(fmt.Errorf("failed to load session: %w", err))
		}
		mergeSession(cfg, s)
		logger.Debug("Session merged into configuration.", "path", cfg.SessionPath)
	}

	c, err := materializeCorpus(ctx, cfg)
	if err != nil {
		panic(fmt.Errorf("failed to materialize corpus: %w", err))
	}
	logger.Debug("Corpus materialized.", "files", c.Len())

	topo, err := topology.Build(ctx, c)
	if err != nil {
		panic(fmt.Errorf("failed to build topology: %w", err))
	}

	labels := reference.Default()
	if cfg.LabelsPath != "" {
		db, err := reference.Load(cfg.LabelsPath)
		if err != nil {
			// The label database is presentation-only; a broken one degrades
			// to the embedded default rather than failing the run.
			logger.Warn("Label database unusable, falling back to defaults.", "path", cfg.LabelsPath, "error", err)
		} else {
			labels = db
		}
	}

	return &App{
		outW:   outW,
		logger: logger,
		config: cfg,
		topo:   topo,
		labels: labels,
	}
}

// Topology returns the built topology. This is primarily for testing.
func (a *App) Topology() *topology.Topology {
	return a.topo
}

// mergeSession fills configuration gaps from a session document. Explicit
// flag values always win over session values.
func mergeSession(cfg *Config, s *session.Session) {
	if cfg.CorpusPath == "" {
		cfg.CorpusPath = s.CorpusPath
	}
	if cfg.Repo == "" {
		cfg.Repo = s.Repo
	}
	if cfg.LabelsPath == "" {
		cfg.LabelsPath = s.LabelsPath
	}
	if len(cfg.FailingKeys) == 0 {
		cfg.FailingKeys = s.FailingKeys
	}
}

// materializeCorpus produces the fully materialized file set the pipeline
// consumes: a remote snapshot when a repo is configured, the local directory
// otherwise.
func materializeCorpus(ctx context.Context, cfg *Config) (*corpus.Corpus, error) {
	if cfg.Repo != "" {
		files, err := fetch.NewClient().FetchGitHub(ctx, cfg.Repo)
		if err != nil {
			return nil, err
		}
		return corpus.New(files), nil
	}
	if cfg.CorpusPath == "" {
		return nil, fmt.Errorf("no corpus source configured")
	}
	return corpus.LoadDir(ctx, cfg.CorpusPath)
}
