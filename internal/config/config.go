package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	API struct {
		BaseURL string `yaml:"base_url"`
		// Chat turns wait on the backend's analysis, so the request
		// timeout is generous by default.
		TimeoutSeconds int `yaml:"timeout_seconds"`
	} `yaml:"api"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
	DataDir string `yaml:"data_dir"`
}

func Default() Config {
	cfg := Config{}
	cfg.API.BaseURL = "http://localhost:8000/api"
	cfg.API.TimeoutSeconds = 120
	cfg.Logging.Level = "info"
	cfg.DataDir = ""
	return cfg
}

// Load builds the effective config: defaults, then the YAML file (the given
// path, or the default location when blank), then environment overrides.
// A missing file is not an error. Flags are applied by the caller on top.
func Load(path string) (Config, error) {
	cfg := Default()

	// A .env alongside the working directory is honored for local dev.
	_ = godotenv.Load()

	if path == "" {
		path = defaultPath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return cfg, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	if v := os.Getenv("SHOPANALYST_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("SHOPANALYST_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("SHOPANALYST_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".shopanalyst")
	}
	return cfg, nil
}

// EnsureDataDir creates the data directory if needed.
func (c Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0o755)
}

// StorePath is the local key-value database location.
func (c Config) StorePath() string {
	return filepath.Join(c.DataDir, "state.db")
}

// LogPath is where interactive runs write their log.
func (c Config) LogPath() string {
	return filepath.Join(c.DataDir, "shopanalyst.log")
}

func (c Config) APITimeout() time.Duration {
	if c.API.TimeoutSeconds <= 0 {
		return 120 * time.Second
	}
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

func defaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "shopanalyst", "config.yaml")
}
