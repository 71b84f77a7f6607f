package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vkwoot/pkg/errors"
	"vkwoot/platform/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.TestConfig())
}

type stubCallback struct {
	response string
	err      error
	bodies   []string
}

func (s *stubCallback) HandleCallback(ctx context.Context, body []byte) (string, error) {
	s.bodies = append(s.bodies, string(body))
	return s.response, s.err
}

func vkTestRouter(callback CallbackProcessor) http.Handler {
	h := NewVKHandler(testLogger(), callback, "cb1")
	r := chi.NewRouter()
	r.Post("/vk/callback/{callbackID}", h.HandleCallback)
	return r
}

func postVK(t *testing.T, router http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestVKHandlerReturnsPlainTextAck(t *testing.T) {
	callback := &stubCallback{response: "ok"}
	rec := postVK(t, vkTestRouter(callback), "/vk/callback/cb1", `{"type":"message_new"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")

	require.Len(t, callback.bodies, 1)
	assert.Equal(t, `{"type":"message_new"}`, callback.bodies[0])
}

func TestVKHandlerReturnsConfirmationString(t *testing.T) {
	callback := &stubCallback{response: "abc123"}
	rec := postVK(t, vkTestRouter(callback), "/vk/callback/cb1", `{"type":"confirmation"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc123", rec.Body.String())
}

func TestVKHandlerUnknownCallbackID(t *testing.T) {
	callback := &stubCallback{response: "ok"}
	rec := postVK(t, vkTestRouter(callback), "/vk/callback/other", `{}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, callback.bodies)
}

func TestVKHandlerAuthFailure(t *testing.T) {
	callback := &stubCallback{err: errors.ErrVKInvalidSecret}
	rec := postVK(t, vkTestRouter(callback), "/vk/callback/cb1", `{"type":"message_new"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "error", rec.Body.String())
}

func TestVKHandlerProcessingFailure(t *testing.T) {
	callback := &stubCallback{err: assert.AnError}
	rec := postVK(t, vkTestRouter(callback), "/vk/callback/cb1", `{"type":"message_new"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error", rec.Body.String())
}
