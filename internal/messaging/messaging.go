// Package messaging delivers notifications through the Telegram Bot API
package messaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pricewatch/internal/config"
	"pricewatch/internal/logger"

	json "github.com/goccy/go-json"
)

const (
	DefaultAPIBaseURL = "https://api.telegram.org"
	DefaultTimeout    = 25 * time.Second
)

// ErrMissingToken is returned when the client has no bot token
var ErrMissingToken = errors.New("telegram bot token not configured")

// APIError is a failed Bot API call, either a non-2xx status or "ok": false.
type APIError struct {
	Method      string
	StatusCode  int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s failed (status %d): %s", e.Method, e.StatusCode, e.Description)
}

// Chat is the conversation a message belongs to.
type Chat struct {
	ID int64 `json:"id"`
}

// User is the sender of a message or callback.
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

// Message is the subset of a Telegram message the bot reads.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text,omitempty"`
}

// CallbackQuery is a press on an inline keyboard button.
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    User     `json:"from"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data,omitempty"`
}

// Update is one entry returned by getUpdates.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

// InlineKeyboardButton is a button carrying callback data.
type InlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

// InlineKeyboardMarkup is attached to a message as reply_markup.
type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

// TelegramClient calls the Bot API with JSON bodies.
type TelegramClient struct {
	APIBaseURL string
	Token      config.Secret
	HTTPClient *http.Client
}

// NewTelegramClient creates a client with a bounded HTTP timeout.
func NewTelegramClient(token config.Secret, apiBaseURL string, timeout time.Duration) *TelegramClient {
	if apiBaseURL == "" {
		apiBaseURL = DefaultAPIBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &TelegramClient{
		APIBaseURL: strings.TrimRight(apiBaseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Send delivers text to chatID. Delivery problems are logged and reported
// as false so that one recipient never stops the others.
func (c *TelegramClient) Send(ctx context.Context, chatID, text string) bool {
	if c.Token.Unmask() == "" {
		logger.Warn("Telegram token missing, message not sent", "chat_id", chatID)
		return false
	}
	if _, err := c.SendMessage(ctx, chatID, text, nil); err != nil {
		logger.Error("Failed to deliver Telegram message", err, "chat_id", chatID)
		return false
	}
	logger.Debug("Telegram message delivered", "chat_id", chatID, "chars", len(text))
	return true
}

// SendMessage posts text to chatID, optionally with an inline keyboard.
func (c *TelegramClient) SendMessage(ctx context.Context, chatID, text string, keyboard *InlineKeyboardMarkup) (*Message, error) {
	payload := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	if keyboard != nil {
		payload["reply_markup"] = keyboard
	}

	var msg Message
	if err := c.call(ctx, c.HTTPClient, "sendMessage", payload, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// EditMessageText replaces the text of a message the bot sent earlier.
func (c *TelegramClient) EditMessageText(ctx context.Context, chatID string, messageID int64, text string) error {
	return c.call(ctx, c.HTTPClient, "editMessageText", map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
	}, nil)
}

// AnswerCallbackQuery acknowledges a button press.
func (c *TelegramClient) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	payload := map[string]any{"callback_query_id": callbackID}
	if text != "" {
		payload["text"] = text
	}
	return c.call(ctx, c.HTTPClient, "answerCallbackQuery", payload, nil)
}

// GetUpdates long-polls for updates with an id of at least offset. The
// request may stay open for pollTimeout seconds on top of the client timeout.
func (c *TelegramClient) GetUpdates(ctx context.Context, offset int64, pollTimeout int) ([]Update, error) {
	client := &http.Client{
		Transport: c.HTTPClient.Transport,
		Timeout:   c.HTTPClient.Timeout + time.Duration(pollTimeout)*time.Second,
	}

	var updates []Update
	err := c.call(ctx, client, "getUpdates", map[string]any{
		"offset":          offset,
		"timeout":         pollTimeout,
		"allowed_updates": []string{"message", "callback_query"},
	}, &updates)
	if err != nil {
		return nil, err
	}
	return updates, nil
}

func (c *TelegramClient) call(ctx context.Context, client *http.Client, method string, payload, result any) error {
	if c.Token.Unmask() == "" {
		return ErrMissingToken
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", method, err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", c.APIBaseURL, c.Token.Unmask(), method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create %s request", method)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		// url.Error embeds the endpoint, which carries the token
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("telegram %s request failed: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", method, err)
	}

	var parsed apiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &APIError{Method: method, StatusCode: resp.StatusCode, Description: strings.TrimSpace(string(raw))}
		}
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !parsed.OK {
		return &APIError{Method: method, StatusCode: resp.StatusCode, Description: parsed.Description}
	}

	if result != nil && len(parsed.Result) > 0 {
		if err := json.Unmarshal(parsed.Result, result); err != nil {
			return fmt.Errorf("failed to decode %s result: %w", method, err)
		}
	}
	return nil
}
