// Package config provides configuration management for agentgate.
// Configuration is loaded from (highest to lowest priority):
// 1. Command-line flags
// 2. Environment variables (AGENTGATE_*, plus the legacy HOOK_MODE)
// 3. Project config (.agentgate/config.yaml in the project root)
// 4. Legacy hook config (.claude/hook-config.json, dispatch mode only)
// 5. Home config (~/.agentgate/config.yaml)
// 6. Defaults
//
// The project root is --project-dir, else CLAUDE_PROJECT_DIR, else the
// nearest ancestor holding .claude/ or .agentgate/, else the working
// directory.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/boshu2/agentgate/internal/dispatch"
	"github.com/boshu2/agentgate/internal/project"
	"github.com/boshu2/agentgate/internal/types"
)

// Config holds all agentgate configuration.
type Config struct {
	// Output controls the default output format (table, json, yaml).
	Output string `yaml:"output" json:"output"`

	// Verbose enables verbose output.
	Verbose bool `yaml:"verbose" json:"verbose"`

	// LogDir holds decision logs and the process log. Relative paths are
	// resolved against the project root.
	LogDir string `yaml:"log_dir" json:"log_dir"`

	// ProjectDir is the project root. It only comes from flags or the
	// environment.
	ProjectDir string `yaml:"-" json:"project_dir"`

	Dispatch   DispatchConfig   `yaml:"dispatch" json:"dispatch"`
	Classifier ClassifierConfig `yaml:"classifier" json:"classifier"`
	Readiness  ReadinessConfig  `yaml:"readiness" json:"readiness"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
	Analytics  AnalyticsConfig  `yaml:"analytics" json:"analytics"`
}

// DispatchConfig controls the dispatch check.
type DispatchConfig struct {
	// Mode is strict (block mismatches) or warning (log and allow).
	Mode string `yaml:"mode" json:"mode"`

	// ProjectKind pins the project kind instead of detecting it.
	ProjectKind string `yaml:"project_kind" json:"project_kind"`

	// RulesFile replaces the built-in rule table.
	RulesFile string `yaml:"rules_file" json:"rules_file"`
}

// ClassifierConfig tunes the keyword classifier.
type ClassifierConfig struct {
	// EnforceThresholds makes each rule's weight_threshold a minimum score.
	EnforceThresholds bool `yaml:"enforce_thresholds" json:"enforce_thresholds"`
}

// ReadinessConfig controls the reference-document check.
type ReadinessConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// LoggingConfig controls the process log.
type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level" json:"level"`

	// Format is json or console.
	Format string `yaml:"format" json:"format"`
}

// AnalyticsConfig controls analytics defaults.
type AnalyticsConfig struct {
	// Limit is how many recent corrections pattern analysis reads.
	Limit int `yaml:"limit" json:"limit"`
}

// Default config values (used in resolution and validation).
const (
	defaultOutput         = "table"
	defaultLogDir         = ".claude/hook-logs"
	defaultMode           = string(dispatch.ModeStrict)
	defaultLogLevel       = "info"
	defaultLogFormat      = "json"
	defaultAnalyticsLimit = 100
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Output:   defaultOutput,
		LogDir:   defaultLogDir,
		Dispatch: DispatchConfig{Mode: defaultMode},
		Logging: LoggingConfig{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		Analytics: AnalyticsConfig{Limit: defaultAnalyticsLimit},
	}
}

// Load loads configuration with proper precedence.
// Priority: flags > env > project > legacy > home > defaults
func Load(flagOverrides *Config) (*Config, error) {
	cfg, errs := load(flagOverrides, false)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return cfg, nil
}

// LoadLenient loads like Load but skips layers that cannot be read or
// parsed, then resets invalid fields to their defaults. It returns every
// problem it worked around. The hook uses it so a bad setting never turns
// enforcement off.
func LoadLenient(flagOverrides *Config) (*Config, []error) {
	cfg, errs := load(flagOverrides, true)
	return cfg, append(errs, cfg.Repair()...)
}

func load(flagOverrides *Config, lenient bool) (*Config, []error) {
	cfg := Default()

	var flagDir string
	if flagOverrides != nil {
		flagDir = flagOverrides.ProjectDir
	}
	cfg.ProjectDir = projectRoot(flagDir)

	var errs []error
	for _, read := range []func() (*Config, error){
		func() (*Config, error) { return loadFromPath(homeConfigPath()) },
		func() (*Config, error) { return loadLegacyPath(legacyConfigPath(cfg.ProjectDir)) },
		func() (*Config, error) { return loadFromPath(projectConfigPath(cfg.ProjectDir)) },
	} {
		layer, err := read()
		if err != nil {
			if !lenient {
				return nil, []error{err}
			}
			errs = append(errs, err)
			continue
		}
		if layer != nil {
			cfg = merge(cfg, layer)
		}
	}

	cfg = applyEnv(cfg)

	if flagOverrides != nil {
		cfg = merge(cfg, flagOverrides)
	}

	return cfg, errs
}

// fieldCheck validates one enumerated field and knows its default.
type fieldCheck struct {
	name  string
	check func(*Config) error
	reset func(*Config)
}

var fieldChecks = []fieldCheck{
	{
		name:  "output",
		check: func(c *Config) error { return oneOf(c.Output, "table", "json", "yaml") },
		reset: func(c *Config) { c.Output = defaultOutput },
	},
	{
		name: "dispatch.mode",
		check: func(c *Config) error {
			_, err := dispatch.ParseMode(c.Dispatch.Mode)
			return err
		},
		reset: func(c *Config) { c.Dispatch.Mode = defaultMode },
	},
	{
		name: "dispatch.project_kind",
		check: func(c *Config) error {
			if c.Dispatch.ProjectKind == "" {
				return nil
			}
			_, err := types.ParseProjectKind(c.Dispatch.ProjectKind)
			return err
		},
		reset: func(c *Config) { c.Dispatch.ProjectKind = "" },
	},
	{
		name: "logging.level",
		check: func(c *Config) error {
			_, err := zapcore.ParseLevel(c.Logging.Level)
			return err
		},
		reset: func(c *Config) { c.Logging.Level = defaultLogLevel },
	},
	{
		name:  "logging.format",
		check: func(c *Config) error { return oneOf(c.Logging.Format, "json", "console") },
		reset: func(c *Config) { c.Logging.Format = defaultLogFormat },
	},
	{
		name: "analytics.limit",
		check: func(c *Config) error {
			if c.Analytics.Limit < 0 {
				return errors.New("must not be negative")
			}
			return nil
		},
		reset: func(c *Config) { c.Analytics.Limit = defaultAnalyticsLimit },
	},
}

func oneOf(v string, allowed ...string) error {
	if slices.Contains(allowed, v) {
		return nil
	}
	return fmt.Errorf("unknown format %q", v)
}

// Validate checks enumerated fields.
func (c *Config) Validate() error {
	var errs []error
	for _, f := range fieldChecks {
		if err := f.check(c); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.name, err))
		}
	}
	return errors.Join(errs...)
}

// Repair resets every invalid field to its default and reports each reset.
func (c *Config) Repair() []error {
	var errs []error
	for _, f := range fieldChecks {
		if err := f.check(c); err != nil {
			f.reset(c)
			errs = append(errs, fmt.Errorf("%s: %w; using the default", f.name, err))
		}
	}
	return errs
}

// Mode returns the parsed dispatch mode, strict when invalid.
func (c *Config) Mode() dispatch.Mode {
	m, err := dispatch.ParseMode(c.Dispatch.Mode)
	if err != nil {
		return dispatch.ModeStrict
	}
	return m
}

// LogPath returns the path of a file in the log directory.
func (c *Config) LogPath(name string) string {
	dir := c.LogDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(c.ProjectDir, dir)
	}
	return filepath.Join(dir, name)
}

// RulesPath returns the configured rule file resolved against the project
// root, or "" for the built-in table.
func (c *Config) RulesPath() string {
	p := c.Dispatch.RulesFile
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.ProjectDir, p)
}

func projectRoot(flagDir string) string {
	if d := strings.TrimSpace(flagDir); d != "" {
		return d
	}
	return project.RootFromEnv()
}

// homeConfigPath returns the home config path.
func homeConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".agentgate", "config.yaml")
}

// projectConfigPath returns the project config path. AGENTGATE_CONFIG
// (set by --config) replaces it.
func projectConfigPath(root string) string {
	if override := strings.TrimSpace(os.Getenv("AGENTGATE_CONFIG")); override != "" {
		return override
	}
	if root == "" {
		return ""
	}
	return filepath.Join(root, ".agentgate", "config.yaml")
}

// legacyConfigPath returns the hook config file older installs used to set
// the dispatch mode.
func legacyConfigPath(root string) string {
	if root == "" {
		return ""
	}
	return filepath.Join(root, ".claude", "hook-config.json")
}

type legacyHookConfig struct {
	AgentDispatchCheck struct {
		Mode string `json:"mode"`
	} `json:"agent_dispatch_check"`
}

// loadLegacyPath reads agent_dispatch_check.mode from a legacy hook config.
// A missing file or an unrecognised mode leaves the layer empty.
func loadLegacyPath(path string) (*Config, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var legacy legacyHookConfig
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	mode := strings.TrimSpace(legacy.AgentDispatchCheck.Mode)
	if mode == "" {
		return nil, nil
	}
	if _, err := dispatch.ParseMode(mode); err != nil {
		return nil, nil
	}
	return &Config{Dispatch: DispatchConfig{Mode: mode}}, nil
}

// loadFromPath loads config from a YAML file. A missing file is not an error.
func loadFromPath(path string) (*Config, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return &cfg, nil
}

// envConfig reads the environment into a Config layer.
func envConfig() *Config {
	var c Config
	c.Output, _ = getEnvString("AGENTGATE_OUTPUT")
	c.Verbose, _ = getEnvBool("AGENTGATE_VERBOSE")
	c.LogDir, _ = getEnvString("AGENTGATE_LOG_DIR")
	c.Dispatch.Mode, _ = getEnvString("HOOK_MODE")
	if v, ok := getEnvString("AGENTGATE_MODE"); ok {
		c.Dispatch.Mode = v
	}
	c.Dispatch.ProjectKind, _ = getEnvString("AGENTGATE_PROJECT_KIND")
	c.Dispatch.RulesFile, _ = getEnvString("AGENTGATE_RULES_FILE")
	c.Classifier.EnforceThresholds, _ = getEnvBool("AGENTGATE_ENFORCE_THRESHOLDS")
	c.Readiness.Enabled, _ = getEnvBool("AGENTGATE_READINESS")
	c.Logging.Level, _ = getEnvString("AGENTGATE_LOG_LEVEL")
	c.Logging.Format, _ = getEnvString("AGENTGATE_LOG_FORMAT")
	c.Analytics.Limit, _ = getEnvInt("AGENTGATE_ANALYTICS_LIMIT")
	return &c
}

// applyEnv applies environment variable overrides.
func applyEnv(cfg *Config) *Config {
	return merge(cfg, envConfig())
}

// mergeStr overwrites dst with src when src is non-empty.
func mergeStr(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

// mergeInt overwrites dst with src when src is non-zero.
func mergeInt(dst *int, src int) {
	if src != 0 {
		*dst = src
	}
}

// mergeBool turns dst on when src is on. Every boolean defaults to off, so
// a higher layer can enable a setting but not disable it.
func mergeBool(dst *bool, src bool) {
	if src {
		*dst = true
	}
}

// merge merges src into dst, with src values taking precedence.
func merge(dst, src *Config) *Config {
	mergeStr(&dst.Output, src.Output)
	mergeBool(&dst.Verbose, src.Verbose)
	mergeStr(&dst.LogDir, src.LogDir)
	mergeStr(&dst.ProjectDir, src.ProjectDir)

	mergeStr(&dst.Dispatch.Mode, src.Dispatch.Mode)
	mergeStr(&dst.Dispatch.ProjectKind, src.Dispatch.ProjectKind)
	mergeStr(&dst.Dispatch.RulesFile, src.Dispatch.RulesFile)
	mergeBool(&dst.Classifier.EnforceThresholds, src.Classifier.EnforceThresholds)
	mergeBool(&dst.Readiness.Enabled, src.Readiness.Enabled)
	mergeStr(&dst.Logging.Level, src.Logging.Level)
	mergeStr(&dst.Logging.Format, src.Logging.Format)
	mergeInt(&dst.Analytics.Limit, src.Analytics.Limit)

	return dst
}

// Source represents where a config value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceHome    Source = "~/.agentgate/config.yaml"
	SourceLegacy  Source = ".claude/hook-config.json"
	SourceProject Source = ".agentgate/config.yaml"
	SourceEnv     Source = "environment"
	SourceFlag    Source = "flag"
)

// getEnvString returns the value and whether the env var was set.
func getEnvString(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

// getEnvBool returns the boolean value and whether it was truthy.
func getEnvBool(key string) (bool, bool) {
	v := os.Getenv(key)
	if v == "true" || v == "1" {
		return true, true
	}
	return false, false
}

// getEnvInt returns the integer value and whether it parsed.
func getEnvInt(key string) (int, bool) {
	v, ok := getEnvString(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

type resolved struct {
	Value  interface{} `json:"value" yaml:"value"`
	Source Source      `json:"source" yaml:"source"`
}

// layers holds one config per precedence level. Missing layers are empty.
type layers struct {
	home, legacy, project, env, flag Config
}

// resolveField walks the layers from lowest to highest priority and keeps
// the last one where set reports a value.
func resolveField[T any](l layers, def T, get func(Config) T, set func(T) bool) resolved {
	result := resolved{Value: def, Source: SourceDefault}
	for _, layer := range []struct {
		cfg Config
		src Source
	}{
		{l.home, SourceHome},
		{l.legacy, SourceLegacy},
		{l.project, SourceProject},
		{l.env, SourceEnv},
		{l.flag, SourceFlag},
	} {
		if v := get(layer.cfg); set(v) {
			result = resolved{Value: v, Source: layer.src}
		}
	}
	return result
}

func nonEmpty(s string) bool { return s != "" }
func nonZero(n int) bool     { return n != 0 }
func isTrue(b bool) bool     { return b }

// ResolvedConfig shows config values with their sources.
type ResolvedConfig struct {
	Output            resolved `json:"output" yaml:"output"`
	Verbose           resolved `json:"verbose" yaml:"verbose"`
	LogDir            resolved `json:"log_dir" yaml:"log_dir"`
	DispatchMode      resolved `json:"dispatch_mode" yaml:"dispatch_mode"`
	ProjectKind       resolved `json:"project_kind" yaml:"project_kind"`
	RulesFile         resolved `json:"rules_file" yaml:"rules_file"`
	EnforceThresholds resolved `json:"enforce_thresholds" yaml:"enforce_thresholds"`
	Readiness         resolved `json:"readiness" yaml:"readiness"`
	LogLevel          resolved `json:"log_level" yaml:"log_level"`
	LogFormat         resolved `json:"log_format" yaml:"log_format"`
	AnalyticsLimit    resolved `json:"analytics_limit" yaml:"analytics_limit"`
}

// Resolve returns configuration with source tracking.
// Uses precedence chain: flags > env > project > legacy > home > defaults.
func Resolve(flags *Config) *ResolvedConfig {
	var l layers
	if flags != nil {
		l.flag = *flags
	}
	if home, _ := loadFromPath(homeConfigPath()); home != nil {
		l.home = *home
	}
	root := projectRoot(l.flag.ProjectDir)
	if legacy, _ := loadLegacyPath(legacyConfigPath(root)); legacy != nil {
		l.legacy = *legacy
	}
	if proj, _ := loadFromPath(projectConfigPath(root)); proj != nil {
		l.project = *proj
	}
	l.env = *envConfig()

	return &ResolvedConfig{
		Output:            resolveField(l, defaultOutput, func(c Config) string { return c.Output }, nonEmpty),
		Verbose:           resolveField(l, false, func(c Config) bool { return c.Verbose }, isTrue),
		LogDir:            resolveField(l, defaultLogDir, func(c Config) string { return c.LogDir }, nonEmpty),
		DispatchMode:      resolveField(l, defaultMode, func(c Config) string { return c.Dispatch.Mode }, nonEmpty),
		ProjectKind:       resolveField(l, "", func(c Config) string { return c.Dispatch.ProjectKind }, nonEmpty),
		RulesFile:         resolveField(l, "", func(c Config) string { return c.Dispatch.RulesFile }, nonEmpty),
		EnforceThresholds: resolveField(l, false, func(c Config) bool { return c.Classifier.EnforceThresholds }, isTrue),
		Readiness:         resolveField(l, false, func(c Config) bool { return c.Readiness.Enabled }, isTrue),
		LogLevel:          resolveField(l, defaultLogLevel, func(c Config) string { return c.Logging.Level }, nonEmpty),
		LogFormat:         resolveField(l, defaultLogFormat, func(c Config) string { return c.Logging.Format }, nonEmpty),
		AnalyticsLimit:    resolveField(l, defaultAnalyticsLimit, func(c Config) int { return c.Analytics.Limit }, nonZero),
	}
}
