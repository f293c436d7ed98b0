// Package config loads the assistant configuration from a YAML file and the
// environment. The resulting Config is passed explicitly to every component.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/KakuleMalambo/voice-assistant/pkg/lookup"
)

// Defaults.
const (
	DefaultPort           = "8080"
	DefaultRoomsPath      = "data/rooms.json"
	DefaultWeatherURL     = "https://wttr.in"
	DefaultSearchURL      = "https://api.search.brave.com/res/v1/web/search"
	DefaultSearchCount    = lookup.MaxSearchResults
	DefaultSearchLanguage = "en"
	DefaultRealtimeModel  = "gpt-4o-realtime-preview-2024-12-17"
	DefaultVoice          = "shimmer"
)

// Config holds all configuration for the assistant.
type Config struct {
	LogLevel string         `yaml:"log_level"`
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Weather  WeatherConfig  `yaml:"weather"`
	Search   SearchConfig   `yaml:"search"`
	Realtime RealtimeConfig `yaml:"realtime"`
}

// ServerConfig configures the HTTP/WebSocket front door.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// StoreConfig configures the room temperature document.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// WeatherConfig configures the weather lookup.
type WeatherConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// SearchConfig configures the web search lookup.
// An empty APIKey is allowed; searches then fail fast. Count is at most
// lookup.MaxSearchResults.
type SearchConfig struct {
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key"`
	Count    int           `yaml:"count"`
	Language string        `yaml:"language"`
	Timeout  time.Duration `yaml:"timeout"`
}

// RealtimeConfig configures the realtime model session.
type RealtimeConfig struct {
	APIKey       string `yaml:"api_key"`
	Model        string `yaml:"model"`
	Voice        string `yaml:"voice"`
	Instructions string `yaml:"instructions"`
	Greeting     string `yaml:"greeting"`
}

// Default returns a Config with every default applied.
func Default() Config {
	return Config{
		LogLevel: "info",
		Server:   ServerConfig{Port: DefaultPort},
		Store:    StoreConfig{Path: DefaultRoomsPath},
		Weather: WeatherConfig{
			BaseURL: DefaultWeatherURL,
			Timeout: 10 * time.Second,
		},
		Search: SearchConfig{
			BaseURL:  DefaultSearchURL,
			Count:    DefaultSearchCount,
			Language: DefaultSearchLanguage,
			Timeout:  10 * time.Second,
		},
		Realtime: RealtimeConfig{
			Model: DefaultRealtimeModel,
			Voice: DefaultVoice,
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables that are set.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("ROOMS_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("BRAVE_API_KEY"); v != "" {
		c.Search.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Realtime.APIKey = v
	}
	if v := os.Getenv("OPENAI_REALTIME_MODEL"); v != "" {
		c.Realtime.Model = v
	}
	if v := os.Getenv("SEARCH_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Search.Count = n
		}
	}
}

// Validate checks the configuration for required fields.
// Missing API keys are not an error here: search degrades at call time and
// the realtime key is only checked when a session is started.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if c.Store.Path == "" {
		errs = append(errs, errors.New("store.path is required"))
	}
	if c.Weather.BaseURL == "" {
		errs = append(errs, errors.New("weather.base_url is required"))
	}
	if c.Search.BaseURL == "" {
		errs = append(errs, errors.New("search.base_url is required"))
	}
	if c.Search.Count < 1 || c.Search.Count > lookup.MaxSearchResults {
		errs = append(errs, fmt.Errorf("search.count must be between 1 and %d, got %d",
			lookup.MaxSearchResults, c.Search.Count))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
