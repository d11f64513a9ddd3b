package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// bindings maps viper keys to the environment variables that set them.
var bindings = map[string]string{
	"search.google.api_key":          "GOOGLE_API_KEY",
	"search.google.search_engine_id": "GOOGLE_SEARCH_ENGINE_ID",
	"search.yandex.api_key":          "YANDEX_API_KEY",
	"search.yandex.folder_id":        "YANDEX_FOLDER_ID",
	"search.bing.api_key":            "BING_API_KEY",
	"search.serpapi.api_key":         "SERPAPI_KEY",
	"search.timeout":                 "SEARCH_TIMEOUT",
	"ai.api_key":                     "OPENAI_API_KEY",
	"ai.base_url":                    "OPENAI_BASE_URL",
	"ai.model":                       "OPENAI_MODEL",
	"ai.temperature":                 "OPENAI_TEMPERATURE",
	"ai.timeout":                     "OPENAI_TIMEOUT",
	"telegram.token":                 "TELEGRAM_BOT_TOKEN",
	"telegram.api_url":               "TELEGRAM_API_URL",
	"telegram.webhook_secret":        "TELEGRAM_WEBHOOK_SECRET",
	"telegram.webhook_url":           "WEBHOOK_URL",
	"server.bind_addr":               "BIND_ADDR",
	"pipeline.pool_size":             "POOL_SIZE",
	"pipeline.top_n":                 "TOP_N",
	"pipeline.run_timeout":           "RUN_TIMEOUT",
	"ledger.path":                    "LEDGER_PATH",
	"ledger.ttl":                     "LEDGER_TTL",
	"log_level":                      "LOG_LEVEL",
}

type loadOptions struct {
	envFiles   []string
	configFile string
}

// LoadOption customizes Load.
type LoadOption func(*loadOptions)

// WithEnvFiles sets the .env files to read. Missing files are skipped.
// Default is ".env" in the working directory.
func WithEnvFiles(paths ...string) LoadOption {
	return func(o *loadOptions) {
		o.envFiles = paths
	}
}

// WithConfigFile reads a YAML file under the environment. The file must exist.
func WithConfigFile(path string) LoadOption {
	return func(o *loadOptions) {
		o.configFile = path
	}
}

// Load builds a Config from .env files, the environment and an optional YAML
// file, then validates it.
func Load(opts ...LoadOption) (*Config, error) {
	o := &loadOptions{envFiles: []string{".env"}}
	for _, opt := range opts {
		opt(o)
	}

	if err := loadEnvFiles(o.envFiles); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if o.configFile != "" {
		v.SetConfigFile(o.configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg, err := fromViper(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadEnvFiles loads each existing file. Variables already present in the
// environment are not overridden.
func loadEnvFiles(paths []string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("search.timeout", DefaultSearchTimeout.String())
	v.SetDefault("ai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.temperature", 0.3)
	v.SetDefault("ai.timeout", "30s")
	v.SetDefault("telegram.api_url", "https://api.telegram.org/bot")
	v.SetDefault("telegram.webhook_url", DefaultWebhookURL)
	v.SetDefault("server.bind_addr", DefaultBindAddr)
	v.SetDefault("pipeline.pool_size", DefaultPoolSize)
	v.SetDefault("pipeline.top_n", DefaultTopN)
	v.SetDefault("pipeline.run_timeout", DefaultRunTimeout.String())
	v.SetDefault("ledger.ttl", DefaultLedgerTTL.String())
	v.SetDefault("log_level", DefaultLogLevel)
}

func fromViper(v *viper.Viper) (*Config, error) {
	var errs []error
	duration := func(key string) time.Duration {
		d, err := parseDuration(v.GetString(key))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", bindings[key], err))
		}
		return d
	}
	integer := func(key string) int {
		n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", bindings[key], err))
		}
		return n
	}
	temperature, err := strconv.ParseFloat(strings.TrimSpace(v.GetString("ai.temperature")), 64)
	if err != nil {
		errs = append(errs, fmt.Errorf("OPENAI_TEMPERATURE: %w", err))
	}

	cfg := &Config{
		Search: SearchConfig{
			Google: GoogleConfig{
				APIKey:         trimmed(v, "search.google.api_key"),
				SearchEngineID: trimmed(v, "search.google.search_engine_id"),
			},
			Yandex: YandexConfig{
				APIKey:   trimmed(v, "search.yandex.api_key"),
				FolderID: trimmed(v, "search.yandex.folder_id"),
			},
			Bing:    BingConfig{APIKey: trimmed(v, "search.bing.api_key")},
			SerpAPI: SerpAPIConfig{APIKey: trimmed(v, "search.serpapi.api_key")},
			Timeout: ClampSearchTimeout(duration("search.timeout")),
		},
		AI: AIConfig{
			APIKey:      trimmed(v, "ai.api_key"),
			BaseURL:     trimmed(v, "ai.base_url"),
			Model:       trimmed(v, "ai.model"),
			Temperature: temperature,
			Timeout:     duration("ai.timeout"),
		},
		Telegram: TelegramConfig{
			Token:         trimmed(v, "telegram.token"),
			APIURL:        trimmed(v, "telegram.api_url"),
			WebhookSecret: trimmed(v, "telegram.webhook_secret"),
			WebhookURL:    trimmed(v, "telegram.webhook_url"),
		},
		Server: ServerConfig{BindAddr: trimmed(v, "server.bind_addr")},
		Pipeline: PipelineConfig{
			PoolSize:   integer("pipeline.pool_size"),
			TopN:       integer("pipeline.top_n"),
			RunTimeout: duration("pipeline.run_timeout"),
		},
		Ledger: LedgerConfig{
			Path: trimmed(v, "ledger.path"),
			TTL:  duration("ledger.ttl"),
		},
		LogLevel: trimmed(v, "log_level"),
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return cfg, nil
}

func trimmed(v *viper.Viper, key string) string {
	return strings.TrimSpace(v.GetString(key))
}

// parseDuration accepts a Go duration string or a whole number of seconds.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}
