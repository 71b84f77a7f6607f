package vk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vkwoot/internal/ports"
	"vkwoot/pkg/errors"
	"vkwoot/platform/config"
	"vkwoot/platform/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.TestConfig())
}

func testVKConfig() config.VKConfig {
	return config.VKConfig{
		CallbackID:   "cb1",
		GroupID:      111,
		AccessToken:  "token",
		Secret:       "s1",
		Confirmation: "abc123",
		APIVersion:   "5.199",
		APIBaseURL:   "https://api.vk.example",
	}
}

func newTestAdapter(cfg config.VKConfig) *Adapter {
	return NewAdapter(cfg, NewClient(cfg, testLogger()), testLogger())
}

type handlerSpy struct {
	calls []ports.UnifiedMessage
	err   error
}

func (s *handlerSpy) handle(ctx context.Context, msg ports.UnifiedMessage) error {
	s.calls = append(s.calls, msg)
	return s.err
}

func TestHandleCallbackConfirmation(t *testing.T) {
	adapter := newTestAdapter(testVKConfig())

	// No secret in the handshake; only the group id is checked.
	body := []byte(`{"type":"confirmation","group_id":111}`)
	response, err := adapter.HandleCallback(context.Background(), body)
	require.NoError(t, err)
	assert.Equal(t, "abc123", response)

	// A mismatched secret does not break the handshake either.
	body = []byte(`{"type":"confirmation","group_id":111,"secret":"wrong"}`)
	response, err = adapter.HandleCallback(context.Background(), body)
	require.NoError(t, err)
	assert.Equal(t, "abc123", response)
}

func TestHandleCallbackConfirmationWrongGroup(t *testing.T) {
	adapter := newTestAdapter(testVKConfig())

	body := []byte(`{"type":"confirmation","group_id":222}`)
	_, err := adapter.HandleCallback(context.Background(), body)
	assert.ErrorIs(t, err, errors.ErrVKInvalidGroup)
}

func TestHandleCallbackRejectsWrongSecret(t *testing.T) {
	adapter := newTestAdapter(testVKConfig())
	spy := &handlerSpy{}
	adapter.OnMessage(spy.handle)

	body := []byte(`{"type":"message_new","group_id":111,"secret":"wrong","object":{"message":{"from_id":42,"peer_id":42,"text":"hi"}}}`)
	_, err := adapter.HandleCallback(context.Background(), body)

	assert.ErrorIs(t, err, errors.ErrVKInvalidSecret)
	assert.Empty(t, spy.calls, "handler must not run before the secret is verified")
}

func TestHandleCallbackRejectsWrongGroup(t *testing.T) {
	adapter := newTestAdapter(testVKConfig())

	body := []byte(`{"type":"message_new","group_id":222,"secret":"s1"}`)
	_, err := adapter.HandleCallback(context.Background(), body)
	assert.ErrorIs(t, err, errors.ErrVKInvalidGroup)
}

func TestHandleCallbackMessageNew(t *testing.T) {
	adapter := newTestAdapter(testVKConfig())
	spy := &handlerSpy{}
	adapter.OnMessage(spy.handle)

	body := []byte(`{"type":"message_new","group_id":111,"secret":"s1","object":{"message":{"from_id":42,"peer_id":42,"text":" hi "}}}`)
	response, err := adapter.HandleCallback(context.Background(), body)
	require.NoError(t, err)
	assert.Equal(t, "ok", response)

	require.Len(t, spy.calls, 1)
	msg := spy.calls[0]
	assert.Equal(t, "vk", msg.Channel)
	assert.Equal(t, "42", msg.SenderID)
	assert.Equal(t, "42", msg.RecipientID)
	assert.Equal(t, "text", msg.Content.Type)
	assert.Equal(t, "hi", msg.Content.Text)
	assert.JSONEq(t, string(body), string(msg.Raw))
}

func TestHandleCallbackSenderFallsBackToPeer(t *testing.T) {
	adapter := newTestAdapter(testVKConfig())
	spy := &handlerSpy{}
	adapter.OnMessage(spy.handle)

	body := []byte(`{"type":"message_new","group_id":111,"secret":"s1","object":{"message":{"peer_id":42,"text":"hi"}}}`)
	_, err := adapter.HandleCallback(context.Background(), body)
	require.NoError(t, err)

	require.Len(t, spy.calls, 1)
	assert.Equal(t, "42", spy.calls[0].SenderID)
}

func TestHandleCallbackDropsMessageWithoutPeer(t *testing.T) {
	adapter := newTestAdapter(testVKConfig())
	spy := &handlerSpy{}
	adapter.OnMessage(spy.handle)

	body := []byte(`{"type":"message_new","group_id":111,"secret":"s1","object":{"message":{"from_id":42,"text":"hi"}}}`)
	response, err := adapter.HandleCallback(context.Background(), body)
	require.NoError(t, err)

	assert.Equal(t, "ok", response)
	assert.Empty(t, spy.calls)
}

func TestHandleCallbackAcksDespiteHandlerFailure(t *testing.T) {
	adapter := newTestAdapter(testVKConfig())
	spy := &handlerSpy{err: assert.AnError}
	adapter.OnMessage(spy.handle)

	body := []byte(`{"type":"message_new","group_id":111,"secret":"s1","object":{"message":{"from_id":42,"peer_id":42,"text":"hi"}}}`)
	response, err := adapter.HandleCallback(context.Background(), body)

	require.NoError(t, err)
	assert.Equal(t, "ok", response)
	assert.Len(t, spy.calls, 1)
}

func TestHandleCallbackIgnoresUnknownEvents(t *testing.T) {
	adapter := newTestAdapter(testVKConfig())
	spy := &handlerSpy{}
	adapter.OnMessage(spy.handle)

	body := []byte(`{"type":"message_typing_state","group_id":111,"secret":"s1"}`)
	response, err := adapter.HandleCallback(context.Background(), body)

	require.NoError(t, err)
	assert.Equal(t, "ok", response)
	assert.Empty(t, spy.calls)
}

func TestHandleCallbackRejectsMalformedPayload(t *testing.T) {
	adapter := newTestAdapter(testVKConfig())

	_, err := adapter.HandleCallback(context.Background(), []byte(`not json`))
	require.Error(t, err)
}

func TestSendTextSkipsEmpty(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer server.Close()

	cfg := testVKConfig()
	cfg.APIBaseURL = server.URL
	adapter := newTestAdapter(cfg)

	require.NoError(t, adapter.SendText("42", ""))
	assert.Zero(t, requests)
}

func TestSendTextDeliversViaMessagesSend(t *testing.T) {
	var gotPath string
	var gotQuery url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"response": 555})
	}))
	defer server.Close()

	cfg := testVKConfig()
	cfg.APIBaseURL = server.URL
	adapter := newTestAdapter(cfg)

	require.NoError(t, adapter.SendText("42", "hello"))

	assert.Equal(t, "/method/messages.send", gotPath)
	assert.Equal(t, "42", gotQuery.Get("peer_id"))
	assert.Equal(t, "hello", gotQuery.Get("message"))
	assert.Equal(t, "111", gotQuery.Get("group_id"))
	assert.NotEmpty(t, gotQuery.Get("random_id"))
	assert.Equal(t, "token", gotQuery.Get("access_token"))
	assert.Equal(t, "5.199", gotQuery.Get("v"))
}

func TestSendTextPropagatesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"error_code":901,"error_msg":"Can't send messages for users without permission"}}`))
	}))
	defer server.Close()

	cfg := testVKConfig()
	cfg.APIBaseURL = server.URL
	adapter := newTestAdapter(cfg)

	err := adapter.SendText("42", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "901")
}
