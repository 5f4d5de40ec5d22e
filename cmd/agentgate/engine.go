package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/boshu2/agentgate/internal/classify"
	"github.com/boshu2/agentgate/internal/config"
	"github.com/boshu2/agentgate/internal/decisionlog"
	"github.com/boshu2/agentgate/internal/dispatch"
	"github.com/boshu2/agentgate/internal/formatter"
	"github.com/boshu2/agentgate/internal/logging"
	"github.com/boshu2/agentgate/internal/project"
	"github.com/boshu2/agentgate/internal/rules"
	"github.com/boshu2/agentgate/internal/types"
)

// engine bundles the configuration, logger, and dispatch pipeline shared by
// the commands.
type engine struct {
	cfg        *config.Config
	logger     *zap.Logger
	classifier *classify.KeywordClassifier
	validator  *dispatch.Validator
	guard      *dispatch.Guard
	closeLog   func()
}

// loadConfig resolves configuration from every layer and validates it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagOverrides())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newEngine loads configuration, opens the process log, and builds the
// validator over the configured rule table. Call close when done.
func newEngine() (*engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return buildEngine(cfg)
}

// newHookEngine builds the engine for the hook. Configuration problems are
// reported to w and replaced with defaults, so only a rule table that
// cannot be loaded stops enforcement.
func newHookEngine(w io.Writer) (*engine, error) {
	cfg, problems := config.LoadLenient(flagOverrides())
	for _, p := range problems {
		fmt.Fprintf(w, "agentgate: config: %v\n", p)
	}
	return buildEngine(cfg)
}

func buildEngine(cfg *config.Config) (*engine, error) {
	logger, closeLog, err := logging.New(logging.Config{
		Dir:    filepath.Dir(cfg.LogPath(logging.FileName)),
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Stderr: cfg.Verbose,
	})
	if err != nil {
		return nil, err
	}

	table, err := rules.LoadOrDefault(cfg.RulesPath())
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("load rules: %w", err)
	}

	classifier := classify.New(table,
		classify.WithLogger(logger),
		classify.WithThresholds(cfg.Classifier.EnforceThresholds))
	validator := dispatch.New(table,
		dispatch.WithLogger(logger),
		dispatch.WithClassifier(classifier),
		dispatch.WithProjectKinds(kindSource(cfg)))

	return &engine{
		cfg:        cfg,
		logger:     logger,
		classifier: classifier,
		validator:  validator,
		guard:      dispatch.NewGuard(validator, logger),
		closeLog:   closeLog,
	}, nil
}

func (e *engine) close() {
	e.closeLog()
}

// format returns the configured output format. Config validation already
// rejected unknown values.
func (e *engine) format() formatter.Format {
	f, err := formatter.ParseFormat(e.cfg.Output)
	if err != nil {
		return formatter.FormatTable
	}
	return f
}

// store opens a decision log in the configured log directory.
func (e *engine) store(name string) *decisionlog.Store {
	return decisionlog.NewStore(e.cfg.LogPath(name), decisionlog.WithLogger(e.logger))
}

// kindSource pins the configured project kind, or detects it once from the
// project root.
func kindSource(cfg *config.Config) dispatch.KindSource {
	if cfg.Dispatch.ProjectKind != "" {
		if k, err := types.ParseProjectKind(cfg.Dispatch.ProjectKind); err == nil {
			return project.Fixed(k)
		}
	}
	return project.NewDetector(cfg.ProjectDir)
}

// readTaskText returns the task text from args, or from stdin when the only
// argument is "-" or there are none.
func readTaskText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read task text: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("no task text given (pass it as arguments or on stdin)")
	}
	return text, nil
}
