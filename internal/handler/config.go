package handler

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"quotestash/internal/config"
)

// FileConfig is the non-secret runtime configuration shipped inside
// the deployment package as runtime.yaml. The API key is deliberately
// absent: it only ever travels as the FINNHUB_API_KEY env var injected
// at publish time.
type FileConfig struct {
	Symbols   []string `yaml:"symbols"`
	Bucket    string   `yaml:"bucket"`
	KeyPrefix string   `yaml:"key_prefix,omitempty"`
	Endpoint  string   `yaml:"endpoint,omitempty"`
	Region    string   `yaml:"region,omitempty"`
	Source    string   `yaml:"source,omitempty"`
}

// Config is the resolved runtime configuration of one invocation.
type Config struct {
	APIKey    string
	Symbols   []string
	Bucket    string
	KeyPrefix string
	Endpoint  string
	Region    string
	Source    string
}

// LoadConfig resolves the runtime configuration: packaged runtime.yaml
// first, env vars on top, API key strictly from env. Missing API key
// or an empty symbol list is fatal for the invocation.
func LoadConfig() (Config, error) {
	var fc FileConfig
	path := os.Getenv("RUNTIME_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("LAMBDA_TASK_ROOT"), "runtime.yaml")
	}
	if b, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	cfg := Config{
		APIKey:    os.Getenv("FINNHUB_API_KEY"),
		Symbols:   fc.Symbols,
		Bucket:    fc.Bucket,
		KeyPrefix: fc.KeyPrefix,
		Endpoint:  fc.Endpoint,
		Region:    fc.Region,
		Source:    fc.Source,
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		cfg.Symbols = config.SplitCSV(v)
	}
	if v := os.Getenv("S3_BUCKET"); v != "" {
		cfg.Bucket = v
	}
	if v := os.Getenv("S3_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if cfg.Source == "" {
		cfg.Source = "finnhub"
	}

	if cfg.APIKey == "" {
		return Config{}, fmt.Errorf("%w: FINNHUB_API_KEY", config.ErrMissingKey)
	}
	if cfg.Bucket == "" {
		return Config{}, fmt.Errorf("%w: S3_BUCKET", config.ErrMissingKey)
	}
	if len(cfg.Symbols) == 0 {
		return Config{}, fmt.Errorf("%w: SYMBOLS", config.ErrMissingKey)
	}
	return cfg, nil
}
