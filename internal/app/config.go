package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	CorpusPath  string // local checkout of the keyboard configuration
	Repo        string // remote repository spec, owner/name[@ref]
	SessionPath string // probe-session .hcl file
	LabelsPath  string // silkscreen label database, .yaml

	FailingKeys []int
	JSONOutput  bool
	ServePort   int

	LogFormat string
	LogLevel  string
}

// NewConfig validates a Config. A run needs at least one corpus source; the
// session file may supply one, so its presence alone is enough here.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.CorpusPath == "" && cfg.Repo == "" && cfg.SessionPath == "" {
		return nil, errors.New("a corpus source is required: corpus path, remote repo, or session file")
	}

	return &cfg, nil
}
