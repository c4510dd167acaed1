package cli

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/vk/keygridgo/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("keygridgo", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
KeygridGo - A keyboard-firmware topology extractor and matrix fault localizer.

Usage:
  keygridgo [options] [CORPUS_PATH]

Arguments:
  CORPUS_PATH
    Path to a directory containing the keyboard configuration files.

Options:
`)
		flagSet.PrintDefaults()
	}

	corpusFlag := flagSet.String("corpus", "", "Path to the keyboard configuration directory.")
	cFlag := flagSet.String("c", "", "Path to the keyboard configuration directory (shorthand).")
	repoFlag := flagSet.String("repo", "", "Remote repository spec, owner/name[@ref], fetched instead of a local corpus.")
	sessionFlag := flagSet.String("session", "", "Path to a probe-session .hcl file.")
	sFlag := flagSet.String("s", "", "Path to a probe-session .hcl file (shorthand).")
	keysFlag := flagSet.String("keys", "", "Comma-separated indices of non-responsive keys, e.g. '3,7,12'.")
	labelsFlag := flagSet.String("labels", "", "Path to a silkscreen label database (.yaml).")
	jsonFlag := flagSet.Bool("json", false, "Emit the topology and reports as JSON instead of a summary.")
	servePortFlag := flagSet.Int("serve-port", 0, "Port for the diagnosis HTTP API. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	corpusPath := ""
	if *corpusFlag != "" {
		corpusPath = *corpusFlag
	} else if *cFlag != "" {
		corpusPath = *cFlag
	} else if flagSet.NArg() > 0 {
		corpusPath = flagSet.Arg(0)
	}

	sessionPath := *sessionFlag
	if sessionPath == "" {
		sessionPath = *sFlag
	}

	if corpusPath == "" && *repoFlag == "" && sessionPath == "" {
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	failingKeys, err := parseKeyList(*keysFlag)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	config, err := app.NewConfig(app.Config{
		CorpusPath:  corpusPath,
		Repo:        *repoFlag,
		SessionPath: sessionPath,
		LabelsPath:  *labelsFlag,
		FailingKeys: failingKeys,
		JSONOutput:  *jsonFlag,
		ServePort:   *servePortFlag,
		LogFormat:   logFormat,
		LogLevel:    logLevel,
	})

	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	return config, false, nil
}

// parseKeyList parses the --keys value into key indices.
func parseKeyList(value string) ([]int, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	var keys []int
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid key index %q: must be an integer", part)
		}
		if n < 0 {
			return nil, fmt.Errorf("invalid key index %d: must not be negative", n)
		}
		keys = append(keys, n)
	}
	return keys, nil
}
