package messaging

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"pricewatch/internal/config"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	Path string
	Body map[string]any
}

// fakeBotAPI answers every method with the handler registered for it.
type fakeBotAPI struct {
	mu       sync.Mutex
	calls    []recordedCall
	handlers map[string]http.HandlerFunc
}

func newFakeBotAPI(t *testing.T) (*fakeBotAPI, *httptest.Server) {
	t.Helper()
	f := &fakeBotAPI{handlers: map[string]http.HandlerFunc{}}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(data, &body)

		f.mu.Lock()
		f.calls = append(f.calls, recordedCall{Path: r.URL.Path, Body: body})
		f.mu.Unlock()

		method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		if h, ok := f.handlers[method]; ok {
			h(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"ok": true, "result": true}`))
	}))
	t.Cleanup(server.Close)
	return f, server
}

func (f *fakeBotAPI) Calls() []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedCall(nil), f.calls...)
}

func TestSend_Success(t *testing.T) {
	api, server := newFakeBotAPI(t)
	api.handlers["sendMessage"] = func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok": true, "result": {"message_id": 7, "chat": {"id": 42}, "text": "ciao"}}`))
	}

	c := NewTelegramClient(config.Secret("123:abc"), server.URL, time.Second)
	ok := c.Send(context.Background(), "42", "💡 ciao")
	require.True(t, ok)

	calls := api.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/bot123:abc/sendMessage", calls[0].Path)
	assert.Equal(t, "42", calls[0].Body["chat_id"])
	assert.Equal(t, "💡 ciao", calls[0].Body["text"])
	assert.NotContains(t, calls[0].Body, "reply_markup")
}

func TestSend_FailuresReturnFalse(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		api, server := newFakeBotAPI(t)
		c := NewTelegramClient("", server.URL, time.Second)

		assert.False(t, c.Send(context.Background(), "42", "x"))
		assert.Empty(t, api.Calls())
	})

	t.Run("non-2xx status", func(t *testing.T) {
		api, server := newFakeBotAPI(t)
		api.handlers["sendMessage"] = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"ok": false, "error_code": 403, "description": "Forbidden: bot was blocked by the user"}`))
		}
		c := NewTelegramClient("t", server.URL, time.Second)

		assert.False(t, c.Send(context.Background(), "42", "x"))
	})

	t.Run("ok false", func(t *testing.T) {
		api, server := newFakeBotAPI(t)
		api.handlers["sendMessage"] = func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"ok": false, "description": "Bad Request: chat not found"}`))
		}
		c := NewTelegramClient("t", server.URL, time.Second)

		assert.False(t, c.Send(context.Background(), "42", "x"))
	})

	t.Run("unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		base := server.URL
		server.Close()
		c := NewTelegramClient("t", base, time.Second)

		assert.False(t, c.Send(context.Background(), "42", "x"))
	})
}

func TestSendMessage_APIErrorDetails(t *testing.T) {
	api, server := newFakeBotAPI(t)
	api.handlers["sendMessage"] = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok": false, "description": "Bad Request: chat not found"}`))
	}
	c := NewTelegramClient("t", server.URL, time.Second)

	_, err := c.SendMessage(context.Background(), "1", "x", nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "sendMessage", apiErr.Method)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Bad Request: chat not found", apiErr.Description)
}

func TestTransportErrorDoesNotLeakToken(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	base := server.URL
	server.Close()

	c := NewTelegramClient("123:secret-token", base, time.Second)
	_, err := c.SendMessage(context.Background(), "1", "x", nil)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-token")
}

func TestSendMessage_WithKeyboard(t *testing.T) {
	api, server := newFakeBotAPI(t)
	api.handlers["sendMessage"] = func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok": true, "result": {"message_id": 9, "chat": {"id": 5}}}`))
	}
	c := NewTelegramClient("t", server.URL, time.Second)

	msg, err := c.SendMessage(context.Background(), "5", "Scegli", &InlineKeyboardMarkup{
		InlineKeyboard: [][]InlineKeyboardButton{{{Text: "Luce", CallbackData: "luce"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(9), msg.MessageID)

	markup := api.Calls()[0].Body["reply_markup"].(map[string]any)
	rows := markup["inline_keyboard"].([]any)
	button := rows[0].([]any)[0].(map[string]any)
	assert.Equal(t, "luce", button["callback_data"])
}

func TestEditAndAnswer(t *testing.T) {
	api, server := newFakeBotAPI(t)
	c := NewTelegramClient("t", server.URL, time.Second)

	require.NoError(t, c.EditMessageText(context.Background(), "5", 9, "nuovo testo"))
	require.NoError(t, c.AnswerCallbackQuery(context.Background(), "cb-1", ""))

	calls := api.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "/bott/editMessageText", calls[0].Path)
	assert.Equal(t, float64(9), calls[0].Body["message_id"])
	assert.Equal(t, "cb-1", calls[1].Body["callback_query_id"])
	assert.NotContains(t, calls[1].Body, "text")
}

func TestGetUpdates(t *testing.T) {
	api, server := newFakeBotAPI(t)
	api.handlers["getUpdates"] = func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok": true, "result": [
			{"update_id": 10, "message": {"message_id": 1, "chat": {"id": 42}, "text": "/start"}},
			{"update_id": 11, "callback_query": {"id": "q", "from": {"id": 42}, "data": "gas", "message": {"message_id": 2, "chat": {"id": 42}}}}
		]}`))
	}
	c := NewTelegramClient("t", server.URL, time.Second)

	updates, err := c.GetUpdates(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, updates, 2)

	assert.Equal(t, int64(10), updates[0].UpdateID)
	assert.Equal(t, "/start", updates[0].Message.Text)
	assert.Equal(t, int64(42), updates[0].Message.Chat.ID)
	assert.Equal(t, "gas", updates[1].CallbackQuery.Data)
	assert.Equal(t, int64(2), updates[1].CallbackQuery.Message.MessageID)

	body := api.Calls()[0].Body
	assert.Equal(t, float64(10), body["offset"])
	assert.Equal(t, float64(0), body["timeout"])
}
