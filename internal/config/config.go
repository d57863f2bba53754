// Package config loads qfa settings from a YAML file and QFA_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when --config is not given.
const DefaultPath = "qfa.yaml"

// Config holds all qfa configuration.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Cache      CacheConfig      `yaml:"cache"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Translate  TranslateConfig  `yaml:"translate"`
	Engine     EngineConfig     `yaml:"engine"`
	Sources    SourcesConfig    `yaml:"sources"`
	Output     OutputConfig     `yaml:"output"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

type CacheConfig struct {
	Dir string `yaml:"dir"` // directory holding schemas.db
	WAL bool   `yaml:"wal"`
}

// ClassifierConfig selects and configures the classification backend.
type ClassifierConfig struct {
	Provider           string        `yaml:"provider"` // zeroshot, gemini, openai
	Model              string        `yaml:"model"`
	ModelPath          string        `yaml:"model_path"`
	VocabPath          string        `yaml:"vocab_path"`
	LibPath            string        `yaml:"lib_path"`
	EntailmentIndex    int           `yaml:"entailment_index"`
	HypothesisTemplate string        `yaml:"hypothesis_template"`
	BaseURL            string        `yaml:"base_url"`
	APIKeyEnv          string        `yaml:"api_key_env"` // name of the variable holding the key
	Timeout            time.Duration `yaml:"timeout"`
}

// APIKey reads the key from the variable named by APIKeyEnv.
func (c ClassifierConfig) APIKey() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}

type TranslateConfig struct {
	Enabled  bool          `yaml:"enabled"` // translate labels at load time
	Text     bool          `yaml:"text"`    // also translate the feedback text; implies label translation
	Endpoint string        `yaml:"endpoint"`
	KeyEnv   string        `yaml:"key_env"`
	Region   string        `yaml:"region"`
	To       string        `yaml:"to"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Key reads the translator key from the variable named by KeyEnv.
func (c TranslateConfig) Key() string {
	if c.KeyEnv == "" {
		return ""
	}
	return os.Getenv(c.KeyEnv)
}

type EngineConfig struct {
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Workers        int           `yaml:"workers"` // concurrent classifications in batch mode
}

type SourceConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

type SourcesConfig struct {
	Kobo    SourceConfig `yaml:"kobo"`
	EspoCRM SourceConfig `yaml:"espocrm"`
}

// For returns the settings of an origin system.
func (s SourcesConfig) For(system string) SourceConfig {
	switch system {
	case "kobo":
		return s.Kobo
	case "espocrm":
		return s.EspoCRM
	}
	return SourceConfig{}
}

type OutputConfig struct {
	Verbosity  string `yaml:"verbosity"` // minimal, standard, full
	Pretty     bool   `yaml:"pretty"`
	Path       string `yaml:"path"`     // NDJSON file; empty writes to stdout
	MaxSize    int64  `yaml:"max_size"` // rotation threshold in bytes, 0 disables
	WebhookURL string `yaml:"webhook_url"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Log:   LogConfig{Level: "info", Format: "text"},
		Cache: CacheConfig{Dir: ".qfa", WAL: true},
		Classifier: ClassifierConfig{
			Provider:  "zeroshot",
			ModelPath: "models/nli.onnx",
			VocabPath: "models/vocab.txt",
			Timeout:   30 * time.Second,
		},
		Translate: TranslateConfig{To: "en", KeyEnv: "QFA_TRANSLATOR_KEY", Timeout: 10 * time.Second},
		Engine:    EngineConfig{RequestTimeout: 2 * time.Minute, Workers: 4},
		Sources: SourcesConfig{
			Kobo:    SourceConfig{Timeout: 30 * time.Second},
			EspoCRM: SourceConfig{Timeout: 30 * time.Second},
		},
		Output: OutputConfig{Verbosity: "standard"},
	}
}

// Load reads path over the defaults and applies environment overrides. A
// missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Log.Level = getenv("QFA_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getenv("QFA_LOG_FORMAT", cfg.Log.Format)
	cfg.Cache.Dir = getenv("QFA_CACHE_DIR", cfg.Cache.Dir)

	c := &cfg.Classifier
	c.Provider = getenv("QFA_CLASSIFIER", c.Provider)
	c.Model = getenv("QFA_MODEL", c.Model)
	c.ModelPath = getenv("QFA_MODEL_PATH", c.ModelPath)
	c.VocabPath = getenv("QFA_VOCAB_PATH", c.VocabPath)
	c.LibPath = getenv("QFA_ONNX_LIB", c.LibPath)
	c.EntailmentIndex = getenvInt("QFA_ENTAILMENT_INDEX", c.EntailmentIndex)
	c.BaseURL = getenv("QFA_CLASSIFIER_BASE_URL", c.BaseURL)

	cfg.Translate.Enabled = getenvBool("QFA_TRANSLATE", cfg.Translate.Enabled)
	cfg.Translate.Text = getenvBool("QFA_TRANSLATE_TEXT", cfg.Translate.Text)
	cfg.Translate.Region = getenv("QFA_TRANSLATOR_REGION", cfg.Translate.Region)

	cfg.Engine.RequestTimeout = getenvDuration("QFA_REQUEST_TIMEOUT", cfg.Engine.RequestTimeout)
	cfg.Engine.Workers = getenvInt("QFA_WORKERS", cfg.Engine.Workers)
	cfg.Sources.Kobo.Endpoint = getenv("QFA_KOBO_ENDPOINT", cfg.Sources.Kobo.Endpoint)
	cfg.Output.Verbosity = getenv("QFA_VERBOSITY", cfg.Output.Verbosity)
}

// applyDefaults fills provider-dependent settings left empty.
func applyDefaults(cfg *Config) {
	c := &cfg.Classifier
	c.Provider = strings.ToLower(c.Provider)
	if c.APIKeyEnv == "" {
		switch c.Provider {
		case "gemini":
			c.APIKeyEnv = "GEMINI_API_KEY"
		case "openai":
			c.APIKeyEnv = "OPENAI_API_KEY"
		}
	}
}

// Validate checks the configuration for settings that cannot work.
func (c Config) Validate() error {
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Log.Format)
	}
	switch c.Output.Verbosity {
	case "minimal", "standard", "full":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidVerbosity, c.Output.Verbosity)
	}
	switch c.Classifier.Provider {
	case "zeroshot":
		if c.Classifier.ModelPath == "" || c.Classifier.VocabPath == "" {
			return ErrModelPathRequired
		}
	case "gemini", "openai":
		if c.Classifier.APIKey() == "" {
			return fmt.Errorf("%w: set %s", ErrAPIKeyRequired, c.Classifier.APIKeyEnv)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.Classifier.Provider)
	}
	if c.Engine.Workers <= 0 {
		return ErrInvalidWorkers
	}
	for _, d := range []time.Duration{c.Engine.RequestTimeout, c.Classifier.Timeout, c.Translate.Timeout, c.Sources.Kobo.Timeout, c.Sources.EspoCRM.Timeout} {
		if d < 0 {
			return ErrInvalidTimeout
		}
	}
	if (c.Translate.Enabled || c.Translate.Text) && c.Translate.Key() == "" {
		return fmt.Errorf("%w: set %s", ErrTranslateKey, c.Translate.KeyEnv)
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
