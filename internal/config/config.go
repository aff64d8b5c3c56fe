package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultServerURL           = "http://localhost:5000"
	defaultPollIntervalSeconds = 2
	defaultDownloadDir         = "downloads"
	defaultTimeoutSeconds      = 10
)

// Validation carries the fixed per-submission options forwarded to the
// server with every upload.
type Validation struct {
	TimeoutSeconds  int  `yaml:"timeout_seconds"`
	CheckSMTP       bool `yaml:"check_smtp"`
	SeparateInvalid bool `yaml:"separate_invalid"`
	MaxEmails       int  `yaml:"max_emails"`
}

// Config describes runtime configuration for the client.
type Config struct {
	ServerURL           string     `yaml:"server_url"`
	PollIntervalSeconds int        `yaml:"poll_interval_seconds"`
	AllowedExtensions   []string   `yaml:"allowed_extensions"`
	DownloadDir         string     `yaml:"download_dir"`
	Validation          Validation `yaml:"validation"`
}

// Default returns the configuration matching the upstream server defaults.
func Default() Config {
	return Config{
		ServerURL:           defaultServerURL,
		PollIntervalSeconds: defaultPollIntervalSeconds,
		AllowedExtensions:   []string{".xlsx", ".xls", ".csv"},
		DownloadDir:         defaultDownloadDir,
		Validation: Validation{
			TimeoutSeconds: defaultTimeoutSeconds,
			CheckSMTP:      true,
		},
	}
}

// Load reads YAML config from the provided path. If the file does not exist
// or is empty, defaults are returned with no error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, errors.New("empty config path")
	}
	fileData, err := os.ReadFile(path) //nolint:gosec // config path is controlled by the user
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if len(fileData) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(fileData, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	// basic normalization
	if cfg.ServerURL == "" {
		cfg.ServerURL = defaultServerURL
	}
	if cfg.DownloadDir == "" {
		cfg.DownloadDir = defaultDownloadDir
	}
	if cfg.PollIntervalSeconds < 1 {
		return cfg, fmt.Errorf("invalid poll_interval_seconds: %d (must be >= 1)", cfg.PollIntervalSeconds)
	}
	if cfg.Validation.TimeoutSeconds < 1 {
		return cfg, fmt.Errorf("invalid validation.timeout_seconds: %d (must be >= 1)", cfg.Validation.TimeoutSeconds)
	}
	if cfg.Validation.MaxEmails < 0 {
		return cfg, fmt.Errorf("invalid validation.max_emails: %d (must be >= 0)", cfg.Validation.MaxEmails)
	}
	cfg.AllowedExtensions = normalizeExtensions(cfg.AllowedExtensions)
	return cfg, nil
}

func normalizeExtensions(in []string) []string {
	if len(in) == 0 {
		return []string{".xlsx", ".xls", ".csv"}
	}
	seen := make(map[string]struct{}, len(in))
	normalized := make([]string, 0, len(in))
	for _, ext := range in {
		e := strings.ToLower(strings.TrimSpace(ext))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		normalized = append(normalized, e)
	}
	return normalized
}
