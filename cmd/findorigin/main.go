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

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/findorigin"
	"github.com/poiesic/findorigin/config"
	"github.com/poiesic/findorigin/core"
	"github.com/poiesic/findorigin/pipeline"
	"github.com/poiesic/findorigin/telegram"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "findorigin",
		Usage: "Find the probable original sources of a text",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringSliceFlag{
				Name:  "env-file",
				Usage: "Load environment variables from `FILE`; missing files are skipped",
				Value: cli.NewStringSlice(".env"),
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Read settings from a YAML `FILE`",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the webhook and analysis HTTP server",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address; overrides BIND_ADDR",
					},
				},
			},
			{
				Name:      "analyze",
				Usage:     "Rank the probable sources of a text and print them",
				ArgsUsage: "[text]",
				Action:    analyzeCommand,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "prefer",
						Usage: "Source types to move to the front (official, news, research, blog, other)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the full report as JSON",
					},
				},
			},
			{
				Name:   "providers",
				Usage:  "Show which search providers and services are configured",
				Action: providersCommand,
			},
			{
				Name:  "webhook",
				Usage: "Manage the Telegram webhook registration",
				Subcommands: []*cli.Command{
					{
						Name:   "set",
						Usage:  "Register the webhook URL",
						Action: webhookSetCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "url",
								Usage: "Webhook URL; defaults to WEBHOOK_URL",
							},
							&cli.StringFlag{
								Name:  "secret",
								Usage: "Secret token; defaults to TELEGRAM_WEBHOOK_SECRET",
							},
						},
					},
					{
						Name:   "info",
						Usage:  "Show the bot and its webhook registration",
						Action: webhookInfoCommand,
					},
					{
						Name:   "delete",
						Usage:  "Remove the webhook registration",
						Action: webhookDeleteCommand,
						Flags: []cli.Flag{
							&cli.BoolFlag{
								Name:  "drop-pending",
								Usage: "Drop updates waiting for delivery",
							},
						},
					},
				},
			},
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	opts := []config.LoadOption{config.WithEnvFiles(c.StringSlice("env-file")...)}
	if path := c.String("config"); path != "" {
		opts = append(opts, config.WithConfigFile(path))
	}
	return config.Load(opts...)
}

func serveCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if addr := c.String("addr"); addr != "" {
		cfg.Server.BindAddr = addr
	}

	svc, err := findorigin.NewService(cfg)
	if err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer svc.Close()

	if svc.Bot() == nil {
		slog.Warn("TELEGRAM_BOT_TOKEN is not set; webhook routes are disabled")
	}
	if !svc.Aggregator().Configured() {
		slog.Warn("no search provider is configured")
	}

	srv, err := svc.NewServer()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGTERM, syscall.SIGINT)
	defer stop()
	return srv.ListenAndServe(ctx, cfg.Server.BindAddr)
}

func analyzeCommand(c *cli.Context) error {
	text := strings.Join(c.Args().Slice(), " ")
	if text == "" || text == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		text = string(data)
	}

	preferred, err := core.ParseSourceTypes(c.StringSlice("prefer"))
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	svc, err := findorigin.NewService(cfg)
	if err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(c.Context, cfg.Pipeline.RunTimeout)
	defer cancel()

	report, err := svc.Rank(ctx, text, preferred...)
	if errors.Is(err, pipeline.ErrEmptyText) {
		fmt.Fprintln(c.App.Writer, pipeline.MessageEmptyText)
		return nil
	}
	if err != nil {
		return err
	}

	if c.Bool("json") {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	fmt.Fprintln(c.App.Writer, pipeline.FormatReport(report))
	return nil
}

func providersCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	w := c.App.Writer
	rows := []struct {
		name string
		ok   bool
		need string
	}{
		{"google", cfg.Search.Google.Eligible(), "GOOGLE_API_KEY, GOOGLE_SEARCH_ENGINE_ID"},
		{"yandex", cfg.Search.Yandex.Eligible(), "YANDEX_API_KEY"},
		{"bing", cfg.Search.Bing.Eligible(), "BING_API_KEY"},
		{"serpapi", cfg.Search.SerpAPI.Eligible(), "SERPAPI_KEY"},
		{"openai", cfg.AI.Configured(), "OPENAI_API_KEY"},
		{"telegram", cfg.Telegram.Configured(), "TELEGRAM_BOT_TOKEN"},
	}
	for _, r := range rows {
		status := "configured"
		if !r.ok {
			status = "missing " + r.need
		}
		fmt.Fprintf(w, "%-9s %s\n", r.name, status)
	}
	fmt.Fprintf(w, "search timeout: %s\n", cfg.Search.Timeout)
	return nil
}

func botFromConfig(c *cli.Context) (*telegram.Client, *config.Config, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	opts := []telegram.Option{telegram.WithLogger(slog.Default())}
	if cfg.Telegram.APIURL != "" {
		opts = append(opts, telegram.WithAPIURL(cfg.Telegram.APIURL))
	}
	bot, err := telegram.NewClient(cfg.Telegram.Token, opts...)
	if err != nil {
		return nil, nil, err
	}
	return bot, cfg, nil
}

func webhookSetCommand(c *cli.Context) error {
	bot, cfg, err := botFromConfig(c)
	if err != nil {
		return err
	}

	url := c.String("url")
	if url == "" {
		url = cfg.Telegram.WebhookURL
	}
	if err := core.ValidateURL(url); err != nil {
		return err
	}
	secret := c.String("secret")
	if secret == "" {
		secret = cfg.Telegram.WebhookSecret
	}

	if err := bot.SetWebhook(c.Context, url, secret); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "webhook set: %s\n", url)
	return nil
}

func webhookInfoCommand(c *cli.Context) error {
	bot, _, err := botFromConfig(c)
	if err != nil {
		return err
	}

	me, err := bot.GetMe(c.Context)
	if err != nil {
		return err
	}
	info, err := bot.GetWebhookInfo(c.Context)
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintf(w, "bot:     @%s (id %d)\n", me.Username, me.ID)
	url := info.URL
	if url == "" {
		url = "(not set)"
	}
	fmt.Fprintf(w, "webhook: %s\n", url)
	fmt.Fprintf(w, "pending: %d\n", info.PendingUpdateCount)
	if info.LastErrorMessage != "" {
		fmt.Fprintf(w, "last error: %s\n", info.LastErrorMessage)
	}
	return nil
}

func webhookDeleteCommand(c *cli.Context) error {
	bot, _, err := botFromConfig(c)
	if err != nil {
		return err
	}
	if err := bot.DeleteWebhook(c.Context, c.Bool("drop-pending")); err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	fmt.Fprintln(c.App.Writer, "webhook deleted")
	return nil
}

// setupLogger configures the global slog logger based on the log-level flag.
func setupLogger(c *cli.Context) error {
	level, err := config.ParseLogLevel(strings.ToLower(c.String("log-level")))
	if err != nil {
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", c.String("log-level"))
	}

	errWriter := c.App.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(errWriter, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
