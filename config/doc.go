// Package config loads service configuration from .env files, the process
// environment and an optional YAML file.
//
// Environment variables keep the deployment names (GOOGLE_API_KEY,
// OPENAI_API_KEY, TELEGRAM_BOT_TOKEN and so on) and take precedence over the
// YAML file, whose keys mirror the dotted viper keys (search.google.api_key).
// Durations accept Go duration strings ("20s") or whole seconds ("20").
package config
