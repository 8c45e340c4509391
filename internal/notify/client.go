package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xefootball/backend/internal/config"
)

// Client is a minimal chat-transport (bot API) client. All sends are
// best-effort: delivery failures are logged and must never roll back a
// state change that already committed.
type Client struct {
	baseURL          string
	botToken         string
	rdb              *redis.Client
	httpClient       *http.Client
	rateLimitSeconds int
}

// Default package-level client (set from main on startup)
var Default *Client

// SetDefault sets the package Default client.
func SetDefault(c *Client) {
	Default = c
}

// NewClient constructs a chat-transport client. Returns nil if not configured.
func NewClient(cfg *config.Config, rdb *redis.Client) *Client {
	if cfg == nil || cfg.ChatAPIBaseURL == "" || cfg.ChatBotToken == "" {
		return nil
	}

	return &Client{
		baseURL:          strings.TrimRight(cfg.ChatAPIBaseURL, "/"),
		botToken:         cfg.ChatBotToken,
		rdb:              rdb,
		httpClient:       &http.Client{Timeout: 15 * time.Second},
		rateLimitSeconds: cfg.NotifyRateLimit,
	}
}

type apiResponse struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
}

// call posts a JSON payload to a bot API method and decodes the result.
func (c *Client) call(ctx context.Context, method string, payload map[string]interface{}, out interface{}) error {
	if c == nil {
		return errors.New("chat transport not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.botToken, method)

	// Retry once on transient failure
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(time.Duration(100+attempt*200) * time.Millisecond)
			continue
		}

		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("chat API %s returned %d", method, resp.StatusCode)
			continue
		}

		var api apiResponse
		if err := json.Unmarshal(raw, &api); err != nil {
			return fmt.Errorf("chat API %s: invalid response: %w", method, err)
		}
		if !api.OK {
			return fmt.Errorf("chat API %s rejected request: %s", method, string(raw))
		}
		if out != nil && len(api.Result) > 0 {
			if err := json.Unmarshal(api.Result, out); err != nil {
				return fmt.Errorf("chat API %s: decode result: %w", method, err)
			}
		}
		return nil
	}
	return lastErr
}

// rateLimit applies a per-chat send rate limit via Redis. Redis errors
// are ignored; the limit is advisory.
func (c *Client) rateLimit(ctx context.Context, chatID int64) bool {
	if c.rdb == nil || c.rateLimitSeconds <= 0 {
		return true
	}
	key := fmt.Sprintf("notify_rate:%d", chatID)
	ok, err := c.rdb.SetNX(ctx, key, "1", time.Duration(c.rateLimitSeconds)*time.Second).Result()
	if err != nil {
		return true
	}
	return ok
}

// SendMessage sends a text message to a user chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	if c == nil {
		return errors.New("chat transport not configured")
	}
	if !c.rateLimit(ctx, chatID) {
		return fmt.Errorf("rate limited: chat %d", chatID)
	}
	return c.call(ctx, "sendMessage", map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	}, nil)
}

// SendChannelMessage posts to a channel and returns the message id,
// used as the retraction reference for lobby posts.
func (c *Client) SendChannelMessage(ctx context.Context, channelID int64, text string) (int64, error) {
	if c == nil {
		return 0, errors.New("chat transport not configured")
	}
	var result struct {
		MessageID int64 `json:"message_id"`
	}
	err := c.call(ctx, "sendMessage", map[string]interface{}{
		"chat_id": channelID,
		"text":    text,
	}, &result)
	if err != nil {
		return 0, err
	}
	return result.MessageID, nil
}

// DeleteChannelMessage retracts a previously posted channel message.
func (c *Client) DeleteChannelMessage(ctx context.Context, channelID, messageID int64) error {
	if c == nil {
		return errors.New("chat transport not configured")
	}
	return c.call(ctx, "deleteMessage", map[string]interface{}{
		"chat_id":    channelID,
		"message_id": messageID,
	}, nil)
}

// SendPhoto forwards a photo by its transport file reference, e.g.
// match evidence surfaced to an admin for review.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, fileRef, caption string) error {
	if c == nil {
		return errors.New("chat transport not configured")
	}
	return c.call(ctx, "sendPhoto", map[string]interface{}{
		"chat_id": chatID,
		"photo":   fileRef,
		"caption": caption,
	}, nil)
}

// Package-level helpers using the Default client. Each is a no-op with
// a log line when the transport is not configured, so callers never
// branch on configuration.

func SendMessage(ctx context.Context, chatID int64, text string) {
	if Default == nil {
		log.Printf("[NOTIFY] transport not configured, dropping message to %d", chatID)
		return
	}
	if err := Default.SendMessage(ctx, chatID, text); err != nil {
		log.Printf("[NOTIFY] Failed to send to %d: %v", chatID, err)
	}
}

func SendPhoto(ctx context.Context, chatID int64, fileRef, caption string) {
	if Default == nil {
		return
	}
	if err := Default.SendPhoto(ctx, chatID, fileRef, caption); err != nil {
		log.Printf("[NOTIFY] Failed to send photo to %d: %v", chatID, err)
	}
}
