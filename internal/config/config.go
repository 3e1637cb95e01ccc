package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the nicehist daemon and client configuration.
type Config struct {
	Daemon    DaemonConfig    `yaml:"daemon"`
	Client    ClientConfig    `yaml:"client"`
	Ranking   RankingConfig   `yaml:"ranking"`
	Frecency  FrecencyConfig  `yaml:"frecency"`
	Ingestion IngestionConfig `yaml:"ingestion"`
}

// DaemonConfig holds daemon-related settings.
type DaemonConfig struct {
	SocketPath string `yaml:"socket_path"` // Unix socket path (overrides default)
	LogLevel   string `yaml:"log_level"`   // debug, info, warn, error
	LogFile    string `yaml:"log_file"`    // Log file path (overrides default)
}

// ClientConfig holds client-related settings.
type ClientConfig struct {
	ConnectTimeoutMs int `yaml:"connect_timeout_ms"` // Socket connection timeout
	RequestTimeoutMs int `yaml:"request_timeout_ms"` // Read/write timeout per request
}

// RankingConfig mirrors rpc.RankingWeights, the six-signal composite
// weights consulted by the prediction ranker (component D).
type RankingConfig struct {
	Frequency       float64 `yaml:"frequency"`
	Recency         float64 `yaml:"recency"`
	DirExact        float64 `yaml:"dir_exact"`
	DirHierarchy    float64 `yaml:"dir_hierarchy"`
	FailurePenalty  float64 `yaml:"failure_penalty"`
	FrecentBoostMax float64 `yaml:"frecent_boost_max"`
	Ngram           float64 `yaml:"ngram"`
}

// FrecencyConfig holds frecency-engine tunables (component E).
type FrecencyConfig struct {
	AgingThreshold float64 `yaml:"aging_threshold"` // SUM(rank) trigger per path_type
	AgingFactor    float64 `yaml:"aging_factor"`    // multiplier applied on aging
	PruneBelow     float64 `yaml:"prune_below"`     // rows below this rank are deleted on aging
}

// IngestionConfig holds ingestion-pipeline tunables (component C).
type IngestionConfig struct {
	ContextCacheTTLMs int `yaml:"context_cache_ttl_ms"` // TTL for the VCS/project-type collector
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Daemon: DaemonConfig{
			SocketPath: "",
			LogLevel:   "info",
			LogFile:    "",
		},
		Client: ClientConfig{
			ConnectTimeoutMs: 200,
			RequestTimeoutMs: 2000,
		},
		Ranking: RankingConfig{
			Frequency:       0.35,
			Recency:         0.30,
			DirExact:        0.35,
			DirHierarchy:    0.15,
			FailurePenalty:  0.50,
			FrecentBoostMax: 0.10,
			Ngram:           0.40,
		},
		Frecency: FrecencyConfig{
			AgingThreshold: 2000,
			AgingFactor:    0.9,
			PruneBelow:     1.0,
		},
		Ingestion: IngestionConfig{
			ContextCacheTTLMs: 5000,
		},
	}
}

// Load loads configuration from the default path.
func Load() (*Config, error) {
	paths := DefaultPaths()
	return LoadFromFile(paths.ConfigFile())
}

// LoadFromFile loads configuration from the specified file.
// If the file doesn't exist, returns default configuration.
// Environment variable overrides are applied after file loading.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Save saves the configuration to the default path.
func (c *Config) Save() error {
	paths := DefaultPaths()
	return c.SaveToFile(paths.ConfigFile())
}

// SaveToFile saves the configuration to the specified file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Get retrieves a configuration value by dot-separated key, e.g.
// "daemon.log_level" or "ranking.frequency".
func (c *Config) Get(key string) (string, error) {
	section, field, err := splitKey(key)
	if err != nil {
		return "", err
	}

	switch section {
	case "daemon":
		return c.getDaemonField(field)
	case "client":
		return c.getClientField(field)
	case "ranking":
		return c.getRankingField(field)
	case "frecency":
		return c.getFrecencyField(field)
	case "ingestion":
		return c.getIngestionField(field)
	default:
		return "", fmt.Errorf("unknown section: %s", section)
	}
}

// Set sets a configuration value by dot-separated key.
func (c *Config) Set(key, value string) error {
	section, field, err := splitKey(key)
	if err != nil {
		return err
	}

	switch section {
	case "daemon":
		return c.setDaemonField(field, value)
	case "client":
		return c.setClientField(field, value)
	case "ranking":
		return c.setRankingField(field, value)
	case "frecency":
		return c.setFrecencyField(field, value)
	case "ingestion":
		return c.setIngestionField(field, value)
	default:
		return fmt.Errorf("unknown section: %s", section)
	}
}

func splitKey(key string) (section, field string, err error) {
	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return "", "", errors.New("key must be in format 'section.key'")
	}
	return parts[0], parts[1], nil
}

func (c *Config) getDaemonField(field string) (string, error) {
	switch field {
	case "socket_path":
		return c.Daemon.SocketPath, nil
	case "log_level":
		return c.Daemon.LogLevel, nil
	case "log_file":
		return c.Daemon.LogFile, nil
	default:
		return "", fmt.Errorf("unknown field: daemon.%s", field)
	}
}

func (c *Config) setDaemonField(field, value string) error {
	switch field {
	case "socket_path":
		c.Daemon.SocketPath = value
	case "log_level":
		if !isValidLogLevel(value) {
			return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", value)
		}
		c.Daemon.LogLevel = value
	case "log_file":
		c.Daemon.LogFile = value
	default:
		return fmt.Errorf("unknown field: daemon.%s", field)
	}
	return nil
}

func (c *Config) getClientField(field string) (string, error) {
	switch field {
	case "connect_timeout_ms":
		return strconv.Itoa(c.Client.ConnectTimeoutMs), nil
	case "request_timeout_ms":
		return strconv.Itoa(c.Client.RequestTimeoutMs), nil
	default:
		return "", fmt.Errorf("unknown field: client.%s", field)
	}
}

func (c *Config) setClientField(field, value string) error {
	v, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for client.%s: %w", field, err)
	}
	if v < 0 {
		return fmt.Errorf("invalid client.%s: must be non-negative", field)
	}
	switch field {
	case "connect_timeout_ms":
		c.Client.ConnectTimeoutMs = v
	case "request_timeout_ms":
		c.Client.RequestTimeoutMs = v
	default:
		return fmt.Errorf("unknown field: client.%s", field)
	}
	return nil
}

func (c *Config) getRankingField(field string) (string, error) {
	v, ok := c.rankingFieldPtr(field)
	if !ok {
		return "", fmt.Errorf("unknown field: ranking.%s", field)
	}
	return strconv.FormatFloat(*v, 'f', -1, 64), nil
}

func (c *Config) setRankingField(field, value string) error {
	ptr, ok := c.rankingFieldPtr(field)
	if !ok {
		return fmt.Errorf("unknown field: ranking.%s", field)
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value for ranking.%s: %w", field, err)
	}
	*ptr = f
	return nil
}

func (c *Config) rankingFieldPtr(field string) (*float64, bool) {
	switch field {
	case "frequency":
		return &c.Ranking.Frequency, true
	case "recency":
		return &c.Ranking.Recency, true
	case "dir_exact":
		return &c.Ranking.DirExact, true
	case "dir_hierarchy":
		return &c.Ranking.DirHierarchy, true
	case "failure_penalty":
		return &c.Ranking.FailurePenalty, true
	case "frecent_boost_max":
		return &c.Ranking.FrecentBoostMax, true
	case "ngram":
		return &c.Ranking.Ngram, true
	default:
		return nil, false
	}
}

func (c *Config) getFrecencyField(field string) (string, error) {
	switch field {
	case "aging_threshold":
		return strconv.FormatFloat(c.Frecency.AgingThreshold, 'f', -1, 64), nil
	case "aging_factor":
		return strconv.FormatFloat(c.Frecency.AgingFactor, 'f', -1, 64), nil
	case "prune_below":
		return strconv.FormatFloat(c.Frecency.PruneBelow, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("unknown field: frecency.%s", field)
	}
}

func (c *Config) setFrecencyField(field, value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value for frecency.%s: %w", field, err)
	}
	switch field {
	case "aging_threshold":
		c.Frecency.AgingThreshold = f
	case "aging_factor":
		c.Frecency.AgingFactor = f
	case "prune_below":
		c.Frecency.PruneBelow = f
	default:
		return fmt.Errorf("unknown field: frecency.%s", field)
	}
	return nil
}

func (c *Config) getIngestionField(field string) (string, error) {
	switch field {
	case "context_cache_ttl_ms":
		return strconv.Itoa(c.Ingestion.ContextCacheTTLMs), nil
	default:
		return "", fmt.Errorf("unknown field: ingestion.%s", field)
	}
}

func (c *Config) setIngestionField(field, value string) error {
	v, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for ingestion.%s: %w", field, err)
	}
	switch field {
	case "context_cache_ttl_ms":
		c.Ingestion.ContextCacheTTLMs = v
	default:
		return fmt.Errorf("unknown field: ingestion.%s", field)
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !isValidLogLevel(c.Daemon.LogLevel) {
		return fmt.Errorf("daemon.log_level must be debug, info, warn, or error (got: %s)", c.Daemon.LogLevel)
	}
	if c.Client.ConnectTimeoutMs < 0 {
		return errors.New("client.connect_timeout_ms must be >= 0")
	}
	if c.Client.RequestTimeoutMs < 0 {
		return errors.New("client.request_timeout_ms must be >= 0")
	}

	c.ValidateAndFix()

	return nil
}

// ValidateAndFix clamps out-of-range ranking weights and frecency tunables
// to sane defaults. Validation never prevents startup; each fix is logged
// at warn level.
func (c *Config) ValidateAndFix() {
	defaults := DefaultConfig()

	weights := []struct {
		name string
		val  *float64
	}{
		{"frequency", &c.Ranking.Frequency},
		{"recency", &c.Ranking.Recency},
		{"dir_exact", &c.Ranking.DirExact},
		{"dir_hierarchy", &c.Ranking.DirHierarchy},
		{"failure_penalty", &c.Ranking.FailurePenalty},
		{"frecent_boost_max", &c.Ranking.FrecentBoostMax},
		{"ngram", &c.Ranking.Ngram},
	}
	for _, w := range weights {
		if *w.val < 0 {
			slog.Warn("config: ranking weight clamped to 0", "field", w.name, "value", *w.val)
			*w.val = 0
		}
	}

	if c.Frecency.AgingThreshold <= 0 {
		slog.Warn("config: frecency.aging_threshold invalid, using default",
			"value", c.Frecency.AgingThreshold, "default", defaults.Frecency.AgingThreshold)
		c.Frecency.AgingThreshold = defaults.Frecency.AgingThreshold
	}
	if c.Frecency.AgingFactor <= 0 || c.Frecency.AgingFactor >= 1 {
		slog.Warn("config: frecency.aging_factor invalid, using default",
			"value", c.Frecency.AgingFactor, "default", defaults.Frecency.AgingFactor)
		c.Frecency.AgingFactor = defaults.Frecency.AgingFactor
	}
	if c.Ingestion.ContextCacheTTLMs < 0 {
		slog.Warn("config: ingestion.context_cache_ttl_ms invalid, using default",
			"value", c.Ingestion.ContextCacheTTLMs, "default", defaults.Ingestion.ContextCacheTTLMs)
		c.Ingestion.ContextCacheTTLMs = defaults.Ingestion.ContextCacheTTLMs
	}
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// ApplyEnvOverrides applies environment variable overrides to the config.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("NICEHIST_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil && b {
			c.Daemon.LogLevel = "debug"
		}
	}
	if v := os.Getenv("NICEHIST_LOG_LEVEL"); v != "" {
		if isValidLogLevel(v) {
			c.Daemon.LogLevel = v
		}
	}
	if v := os.Getenv("NICEHIST_SOCKET_PATH"); v != "" {
		c.Daemon.SocketPath = v
	}
}

// ListKeys returns the user-facing configuration keys understood by Get/Set.
func ListKeys() []string {
	return []string{
		"daemon.log_level",
		"daemon.socket_path",
		"client.connect_timeout_ms",
		"client.request_timeout_ms",
		"ranking.frequency",
		"ranking.recency",
		"ranking.dir_exact",
		"ranking.dir_hierarchy",
		"ranking.failure_penalty",
		"ranking.frecent_boost_max",
		"ranking.ngram",
		"frecency.aging_threshold",
		"frecency.aging_factor",
		"frecency.prune_below",
		"ingestion.context_cache_ttl_ms",
	}
}
