// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/findorigin/ai"
	"github.com/poiesic/findorigin/core"
	"github.com/poiesic/findorigin/search/providers"
)

const (
	DefaultWebhookURL    = "https://findorigin.vercel.app/api/telegram"
	DefaultBindAddr      = ":8080"
	DefaultSearchTimeout = 20 * time.Second
	MinSearchTimeout     = 15 * time.Second
	MaxSearchTimeout     = 30 * time.Second
	DefaultPoolSize      = 8
	DefaultTopN          = 3
	DefaultRunTimeout    = 2 * time.Minute
	DefaultLedgerTTL     = 24 * time.Hour
	DefaultLogLevel      = "info"
)

// Config is the complete service configuration.
type Config struct {
	Search   SearchConfig
	AI       AIConfig
	Telegram TelegramConfig
	Server   ServerConfig
	Pipeline PipelineConfig
	Ledger   LedgerConfig
	LogLevel string
}

// SearchConfig holds provider credentials and the per-request timeout.
type SearchConfig struct {
	Google  GoogleConfig
	Yandex  YandexConfig
	Bing    BingConfig
	SerpAPI SerpAPIConfig
	Timeout time.Duration
}

type GoogleConfig struct {
	APIKey         string
	SearchEngineID string
}

// Eligible reports whether both the key and the engine id are set.
func (c GoogleConfig) Eligible() bool {
	return c.APIKey != "" && c.SearchEngineID != ""
}

type YandexConfig struct {
	APIKey   string
	FolderID string
}

func (c YandexConfig) Eligible() bool { return c.APIKey != "" }

type BingConfig struct {
	APIKey string
}

func (c BingConfig) Eligible() bool { return c.APIKey != "" }

type SerpAPIConfig struct {
	APIKey string
}

func (c SerpAPIConfig) Eligible() bool { return c.APIKey != "" }

// AIConfig configures the reasoning service.
type AIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// Configured reports whether an API key is present.
func (c AIConfig) Configured() bool { return strings.TrimSpace(c.APIKey) != "" }

// TelegramConfig configures the bot transport.
type TelegramConfig struct {
	Token         string
	APIURL        string
	WebhookSecret string
	WebhookURL    string
}

// Configured reports whether a bot token is present.
func (c TelegramConfig) Configured() bool { return c.Token != "" }

type ServerConfig struct {
	BindAddr string
}

type PipelineConfig struct {
	PoolSize   int
	TopN       int
	RunTimeout time.Duration
}

// LedgerConfig configures the webhook replay guard. An empty Path keeps the
// ledger in memory.
type LedgerConfig struct {
	Path string
	TTL  time.Duration
}

// EligibleProviders returns the names of providers with complete credentials,
// in fallback order.
func (c *Config) EligibleProviders() []string {
	var names []string
	if c.Search.Google.Eligible() {
		names = append(names, "google")
	}
	if c.Search.Yandex.Eligible() {
		names = append(names, "yandex")
	}
	if c.Search.Bing.Eligible() {
		names = append(names, "bing")
	}
	if c.Search.SerpAPI.Eligible() {
		names = append(names, "serpapi")
	}
	return names
}

// Credentials converts the search section into provider credentials.
func (c *Config) Credentials() providers.Credentials {
	return providers.Credentials{
		Google: providers.GoogleCredentials{
			APIKey:         c.Search.Google.APIKey,
			SearchEngineID: c.Search.Google.SearchEngineID,
		},
		Yandex: providers.YandexCredentials{
			APIKey:   c.Search.Yandex.APIKey,
			FolderID: c.Search.Yandex.FolderID,
		},
		Bing:    providers.BingCredentials{APIKey: c.Search.Bing.APIKey},
		SerpAPI: providers.SerpAPICredentials{APIKey: c.Search.SerpAPI.APIKey},
	}
}

// AIServiceConfig builds the reasoning-service configuration.
func (c *Config) AIServiceConfig() *ai.Config {
	opts := []ai.ConfigOption{
		ai.WithAPIKey(c.AI.APIKey),
		ai.WithTemperature(c.AI.Temperature),
	}
	if c.AI.BaseURL != "" {
		opts = append(opts, ai.WithHost(c.AI.BaseURL))
	}
	if c.AI.Model != "" {
		opts = append(opts, ai.WithModel(c.AI.Model))
	}
	if c.AI.Timeout > 0 {
		opts = append(opts, ai.WithTimeout(c.AI.Timeout))
	}
	return ai.NewConfig(opts...)
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	return ParseLogLevel(c.LogLevel)
}

// ParseLogLevel maps debug, info, warn or error onto a slog.Level.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: log level %q", ErrInvalidConfig, s)
	}
	return level, nil
}

// ClampSearchTimeout forces d into [MinSearchTimeout, MaxSearchTimeout].
// Non-positive values yield DefaultSearchTimeout.
func ClampSearchTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultSearchTimeout
	}
	return min(MaxSearchTimeout, max(MinSearchTimeout, d))
}

// Validate checks that the configuration is usable. Missing credentials are
// not errors; the affected features report themselves unavailable instead.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.BindAddr == "" {
		errs = append(errs, errors.New("bind address is required"))
	}
	if c.Pipeline.PoolSize <= 0 {
		errs = append(errs, errors.New("pool size must be positive"))
	}
	if c.Pipeline.TopN <= 0 {
		errs = append(errs, errors.New("top n must be positive"))
	}
	if c.Pipeline.RunTimeout <= 0 {
		errs = append(errs, errors.New("run timeout must be positive"))
	}
	if c.Ledger.TTL <= 0 {
		errs = append(errs, errors.New("ledger ttl must be positive"))
	}
	if c.Telegram.WebhookURL != "" {
		if err := core.ValidateURL(c.Telegram.WebhookURL); err != nil {
			errs = append(errs, fmt.Errorf("webhook url: %w", err))
		}
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if err := c.AIServiceConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
