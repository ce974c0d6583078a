package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	// DefaultNamespace is the CloudWatch namespace used when none is configured.
	DefaultNamespace = "Prometheus"
	// EnvSourceURL provides source.url when the config file leaves it empty.
	EnvSourceURL = "PROMETHEUS_FEDERATE_URL"
	// EnvNamespace provides cloudwatch.namespace when the config file leaves it empty.
	EnvNamespace = "CLOUDWATCH_NAMESPACE"

	defaultLogLevel      = "info"
	defaultLogFormat     = "line"
	defaultSourceTimeout = 10 * time.Second
	defaultSourceMaxSize = int64(64 << 20)
)

// ErrRequired marks a required setting that is absent.
var ErrRequired = errors.New("required setting is missing")

// Duration wraps time.Duration for TOML parsing.
// Params: text duration string (e.g. "5s", "1m").
// Returns: parse error on invalid duration.
type Duration struct {
	time.Duration
}

// UnmarshalText parses TOML duration values.
// Params: text is raw duration bytes from TOML.
// Returns: error when value is not a valid Go duration.
func (d *Duration) UnmarshalText(text []byte) error {
	value := strings.TrimSpace(string(text))
	if value == "" {
		d.Duration = 0
		return nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value, err)
	}

	d.Duration = parsed
	return nil
}

// Config represents the root agent configuration.
// Params: TOML document sections.
// Returns: validated runtime configuration.
type Config struct {
	Source     SourceConfig     `toml:"source"`
	CloudWatch CloudWatchConfig `toml:"cloudwatch"`
	Log        LogConfig        `toml:"log"`
}

// SourceConfig describes the exposition snapshot endpoint.
// Params: federate URL, request timeout and body size cap.
// Returns: source settings.
type SourceConfig struct {
	URL      string   `toml:"url"`
	Timeout  Duration `toml:"timeout"`
	MaxBytes int64    `toml:"max_bytes"`
}

// CloudWatchConfig describes the ingestion target.
// Params: namespace, optional region/endpoint/static credentials, dry-run switch.
// Returns: CloudWatch client settings.
type CloudWatchConfig struct {
	Namespace       string `toml:"namespace"`
	Region          string `toml:"region"`
	Endpoint        string `toml:"endpoint"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
	SessionToken    string `toml:"session_token"`
	DryRun          bool   `toml:"dry_run"`
}

// LogConfig contains console/file logging configuration.
// Params: console and file sink options.
// Returns: logger sink settings.
type LogConfig struct {
	Console LogSinkConfig `toml:"console"`
	File    LogSinkConfig `toml:"file"`
}

// LogSinkConfig defines one logging sink.
// Params: sink options from TOML.
// Returns: sink setup.
type LogSinkConfig struct {
	Enabled bool   `toml:"enabled"`
	Level   string `toml:"level"`
	Format  string `toml:"format"`
	Path    string `toml:"path"`
}

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process environment.
// Variables already set in the environment win.
// Params: path to dotenv file; empty path is a no-op.
// Returns: true when the file was loaded; a missing file is not an error.
func LoadEnvFile(path string) (bool, error) {
	if strings.TrimSpace(path) == "" {
		return false, nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("load env file %q: %w", path, err)
	}
	return true, nil
}

// Load reads, expands, validates, and returns config from path.
// Params: path to TOML config file or directory with *.toml files; empty path uses environment only.
// Returns: validated config pointer or error.
func Load(path string) (*Config, error) {
	var raw []byte
	if strings.TrimSpace(path) != "" {
		var err error
		raw, err = readConfigSource(path)
		if err != nil {
			return nil, err
		}
	}

	expanded := os.ExpandEnv(string(raw))

	var cfg Config
	if err := toml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("decode TOML %q: %w", path, err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// readConfigSource reads one TOML file or concatenates *.toml files from directory.
// Params: path to config file or directory.
// Returns: raw TOML bytes or error.
func readConfigSource(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config %q: %w", path, err)
	}

	if !info.IsDir() {
		raw, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil, fmt.Errorf("read config %q: %w", path, readErr)
		}
		return raw, nil
	}

	return readConfigDir(path)
}

// readConfigDir concatenates config snippets from one directory.
// Params: path to directory that contains *.toml files.
// Returns: concatenated TOML content or error.
func readConfigDir(path string) ([]byte, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read config dir %q: %w", path, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".toml") {
			files = append(files, entry.Name())
		}
	}

	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("read config dir %q: no *.toml files", path)
	}

	var builder strings.Builder
	for _, name := range files {
		filePath := filepath.Join(path, name)
		raw, readErr := os.ReadFile(filePath)
		if readErr != nil {
			return nil, fmt.Errorf("read config %q: %w", filePath, readErr)
		}
		builder.Write(raw)
		if len(raw) == 0 || raw[len(raw)-1] != '\n' {
			builder.WriteByte('\n')
		}
		builder.WriteByte('\n')
	}

	return []byte(builder.String()), nil
}

// applyDefaults fills env fallbacks and defaults for optional configuration fields.
// Params: receiver config pointer.
// Returns: none.
func (c *Config) applyDefaults() {
	c.Log.Console.Level = lowerOrDefault(c.Log.Console.Level, defaultLogLevel)
	c.Log.Console.Format = lowerOrDefault(c.Log.Console.Format, defaultLogFormat)
	c.Log.File.Level = lowerOrDefault(c.Log.File.Level, defaultLogLevel)
	c.Log.File.Format = lowerOrDefault(c.Log.File.Format, "json")

	if !c.Log.Console.Enabled && !c.Log.File.Enabled {
		c.Log.Console.Enabled = true
	}

	c.Source.URL = valueOrEnv(c.Source.URL, EnvSourceURL)
	if c.Source.Timeout.Duration <= 0 {
		c.Source.Timeout.Duration = defaultSourceTimeout
	}
	if c.Source.MaxBytes <= 0 {
		c.Source.MaxBytes = defaultSourceMaxSize
	}

	c.CloudWatch.Namespace = valueOrEnv(c.CloudWatch.Namespace, EnvNamespace)
	if c.CloudWatch.Namespace == "" {
		c.CloudWatch.Namespace = DefaultNamespace
	}
	c.CloudWatch.Region = strings.TrimSpace(c.CloudWatch.Region)
	c.CloudWatch.Endpoint = strings.TrimSpace(c.CloudWatch.Endpoint)
}

// validate checks config consistency and required fields.
// Params: receiver config pointer.
// Returns: validation error for invalid or incomplete config.
func (c *Config) validate() error {
	if c.Source.URL == "" {
		return fmt.Errorf("source.url (or %s): %w", EnvSourceURL, ErrRequired)
	}
	if err := validateHTTPURL("source.url", c.Source.URL); err != nil {
		return err
	}
	if c.CloudWatch.Endpoint != "" {
		if err := validateHTTPURL("cloudwatch.endpoint", c.CloudWatch.Endpoint); err != nil {
			return err
		}
	}

	hasKey := strings.TrimSpace(c.CloudWatch.AccessKeyID) != ""
	hasSecret := strings.TrimSpace(c.CloudWatch.SecretAccessKey) != ""
	if hasKey != hasSecret {
		return fmt.Errorf("cloudwatch.access_key_id and cloudwatch.secret_access_key must be set together")
	}

	if err := validateSink("log.console", c.Log.Console, false); err != nil {
		return err
	}
	if err := validateSink("log.file", c.Log.File, true); err != nil {
		return err
	}

	return nil
}

// validateHTTPURL validates an absolute http(s) URL.
// Params: path is config key for errors; raw URL value.
// Returns: validation error or nil.
func validateHTTPURL(path string, raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must use http or https scheme, got %q", path, parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include host", path)
	}
	return nil
}

// validateSink validates one logging sink configuration.
// Params: name is sink path for errors; sink is sink config; requirePath means path required when enabled.
// Returns: validation error or nil.
func validateSink(name string, sink LogSinkConfig, requirePath bool) error {
	if sink.Enabled && requirePath && strings.TrimSpace(sink.Path) == "" {
		return fmt.Errorf("%s.path is required when sink is enabled", name)
	}

	if err := validateLogLevel(sink.Level); err != nil {
		return fmt.Errorf("%s.level: %w", name, err)
	}
	if err := validateLogFormat(sink.Format); err != nil {
		return fmt.Errorf("%s.format: %w", name, err)
	}

	return nil
}

// validateLogLevel validates known log levels.
// Params: level is lower-case level name.
// Returns: error when level is unsupported.
func validateLogLevel(level string) error {
	switch strings.TrimSpace(strings.ToLower(level)) {
	case "info", "warn", "error", "debug":
		return nil
	default:
		return fmt.Errorf("unsupported value %q", level)
	}
}

// validateLogFormat validates supported sink formats.
// Params: format is lower-case format name.
// Returns: error when format is unsupported.
func validateLogFormat(format string) error {
	switch strings.TrimSpace(strings.ToLower(format)) {
	case "line", "json":
		return nil
	default:
		return fmt.Errorf("unsupported value %q", format)
	}
}

// lowerOrDefault returns a trimmed lower-case value or default fallback.
// Params: value to normalize; fallback value when empty.
// Returns: normalized value.
func lowerOrDefault(value, fallback string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return fallback
	}
	return normalized
}

// valueOrEnv returns the trimmed value or the trimmed environment variable when value is empty.
func valueOrEnv(value string, key string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	return strings.TrimSpace(os.Getenv(key))
}
