package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// DefaultAPIURL is the Bot API prefix; the token is appended directly.
	DefaultAPIURL = "https://api.telegram.org/bot"

	// DefaultTimeout bounds a single Bot API call.
	DefaultTimeout = 15 * time.Second

	// MaxMessageLength is the longest text sendMessage accepts, in characters.
	MaxMessageLength = 4096
)

// Client is a minimal Bot API client.
type Client struct {
	token         string
	apiURL        string
	http          *http.Client
	timeout       time.Duration
	retryAttempts int
	retryDelay    time.Duration
	logger        *slog.Logger
}

// Option configures a Client.
type Option func(*Client) error

// WithAPIURL overrides DefaultAPIURL, e.g. for a local Bot API server.
func WithAPIURL(apiURL string) Option {
	return func(c *Client) error {
		if apiURL == "" {
			return fmt.Errorf("telegram: empty api url")
		}
		c.apiURL = apiURL
		return nil
	}
}

// WithHTTPClient sets the HTTP client used for calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			hc = http.DefaultClient
		}
		c.http = hc
		return nil
	}
}

// WithTimeout sets the per-call timeout.
// Default is DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("telegram: timeout must be positive, got %s", d)
		}
		c.timeout = d
		return nil
	}
}

// WithRetry sets how often webhook registration is attempted and the delay
// before the first retry. Default is 3 attempts starting at 500ms.
func WithRetry(attempts int, baseDelay time.Duration) Option {
	return func(c *Client) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		c.retryAttempts = attempts
		c.retryDelay = baseDelay
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger.With("component", "telegram")
		return nil
	}
}

// NewClient creates a Bot API client for token.
func NewClient(token string, opts ...Option) (*Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingToken
	}

	c := &Client{
		token:         token,
		apiURL:        DefaultAPIURL,
		http:          http.DefaultClient,
		timeout:       DefaultTimeout,
		retryAttempts: 3,
		retryDelay:    500 * time.Millisecond,
		logger:        slog.Default().With("component", "telegram"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// SendMessage sends text to chatID.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, opts *SendOptions) (*Message, error) {
	req := sendMessageRequest{ChatID: chatID, Text: text}
	if opts != nil {
		req.ParseMode = opts.ParseMode
		req.ReplyToMessageID = opts.ReplyToMessageID
	}

	var msg Message
	if err := c.call(ctx, "sendMessage", req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Notify sends text to the chat whose ID is sessionID. Text longer than
// MaxMessageLength is truncated.
func (c *Client) Notify(ctx context.Context, sessionID, text string) error {
	chatID, err := strconv.ParseInt(sessionID, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidSession, sessionID)
	}
	_, err = c.SendMessage(ctx, chatID, truncate(text, MaxMessageLength), nil)
	return err
}

// SetWebhook registers url as the update endpoint. Telegram echoes secret in
// the X-Telegram-Bot-Api-Secret-Token header of every delivery. Transient
// failures are retried with exponential backoff.
func (c *Client) SetWebhook(ctx context.Context, url, secret string) error {
	req := setWebhookRequest{URL: url, SecretToken: secret}
	err := retryWithBackoff(ctx, c.logger, func() error {
		return c.call(ctx, "setWebhook", req, nil)
	}, c.retryAttempts, c.retryDelay)
	if err != nil {
		return err
	}
	c.logger.Info("webhook registered", "url", url)
	return nil
}

// DeleteWebhook removes the webhook registration.
func (c *Client) DeleteWebhook(ctx context.Context, dropPending bool) error {
	return c.call(ctx, "deleteWebhook", deleteWebhookRequest{DropPendingUpdates: dropPending}, nil)
}

// GetMe returns the bot's own user.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var u User
	if err := c.call(ctx, "getMe", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetWebhookInfo returns the current webhook registration.
func (c *Client) GetWebhookInfo(ctx context.Context) (*WebhookInfo, error) {
	var info WebhookInfo
	if err := c.call(ctx, "getWebhookInfo", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// call invokes method. A nil payload is sent as GET. The token is never logged.
func (c *Client) call(ctx context.Context, method string, payload, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.apiURL + c.token + "/" + method
	httpMethod := http.MethodGet
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("telegram %s: encode request: %w", method, err)
		}
		httpMethod = http.MethodPost
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, httpMethod, endpoint, body)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		err = redact(err, c.token)
		c.logger.Warn("bot api call failed", "method", method, "elapsed", time.Since(start), "err", err)
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	var decoded apiResponse
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&decoded)

	if resp.StatusCode < 200 || resp.StatusCode > 299 || (decodeErr == nil && !decoded.OK) {
		apiErr := &APIError{
			Method:      method,
			StatusCode:  resp.StatusCode,
			ErrorCode:   decoded.ErrorCode,
			Description: decoded.Description,
		}
		if decoded.Parameters != nil {
			apiErr.RetryAfter = decoded.Parameters.RetryAfter
		}
		c.logger.Warn("bot api returned error", "method", method, "status", resp.StatusCode, "description", decoded.Description)
		return apiErr
	}
	if decodeErr != nil {
		return fmt.Errorf("telegram %s: decode response: %w", method, decodeErr)
	}

	c.logger.Debug("bot api call", "method", method, "elapsed", time.Since(start))
	if out == nil || len(decoded.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(decoded.Result, out); err != nil {
		return fmt.Errorf("telegram %s: decode result: %w", method, err)
	}
	return nil
}

// redact strips the bot token from transport errors, which embed the URL.
func redact(err error, token string) error {
	msg := err.Error()
	if !strings.Contains(msg, token) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(msg, token, "<token>"), err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}
