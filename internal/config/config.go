// Package config loads the service configuration from a YAML file plus
// environment overrides (.env supported via godotenv). Validation runs
// through go-playground/validator so a bad config fails at startup, not
// mid-run.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	AI     AIConfig     `yaml:"ai" validate:"required"`
	Server ServerConfig `yaml:"server"`
	Paths  PathsConfig  `yaml:"paths"`
	Limits Limits       `yaml:"limits" validate:"required"`
}

// AIConfig points at the text-generation backend.
type AIConfig struct {
	APIKey      string  `yaml:"api_key" validate:"required,min=20"`
	BaseURL     string  `yaml:"base_url" validate:"required,url"`
	Model       string  `yaml:"model" validate:"required"`
	Temperature float64 `yaml:"temperature" validate:"min=0,max=2"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// PathsConfig locates on-disk state.
type PathsConfig struct {
	Database  string `yaml:"database"`
	Artifacts string `yaml:"artifacts"`
}

// Load reads the config file, applies environment overrides and validates.
func Load() (*Config, error) {
	_ = godotenv.Load()

	configPath := getConfigPath()
	cfg := defaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
		// Config file is optional; env vars can carry everything needed.
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func defaultConfig() *Config {
	dataDir := dataHome()
	return &Config{
		AI: AIConfig{
			BaseURL:     "https://api.anthropic.com/v1",
			Model:       "claude-3-5-sonnet-20241022",
			Temperature: 0.8,
		},
		Server: ServerConfig{Addr: ":8080"},
		Paths: PathsConfig{
			Database:  filepath.Join(dataDir, "narrative.db"),
			Artifacts: filepath.Join(dataDir, "artifacts"),
		},
		Limits: DefaultLimits(),
	}
}

func applyEnv(cfg *Config) {
	if key := os.Getenv("NARRATIVE_API_KEY"); key != "" {
		cfg.AI.APIKey = key
	} else if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		cfg.AI.APIKey = key
	} else if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.AI.APIKey = key
	}
	if url := os.Getenv("NARRATIVE_BASE_URL"); url != "" {
		cfg.AI.BaseURL = url
	}
	if model := os.Getenv("NARRATIVE_MODEL"); model != "" {
		cfg.AI.Model = model
	}
	if addr := os.Getenv("NARRATIVE_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
}

func getConfigPath() string {
	if path := os.Getenv("NARRATIVE_CONFIG"); path != "" {
		return path
	}
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "narrative", "config.yaml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "narrative", "config.yaml")
}

func dataHome() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "narrative")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "narrative")
}

func (c *Config) validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			messages := make([]string, 0, len(errs))
			for _, e := range errs {
				messages = append(messages, fmt.Sprintf("%s failed %s", e.Namespace(), e.Tag()))
			}
			return fmt.Errorf("config validation: %v", messages)
		}
		return err
	}
	return nil
}
