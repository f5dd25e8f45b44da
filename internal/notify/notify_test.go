package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubNotifier struct {
	name  string
	err   error
	calls int
}

func (s *stubNotifier) Name() string { return s.name }

func (s *stubNotifier) Notify(context.Context, Message) error {
	s.calls++
	return s.err
}

func TestChainFallback(t *testing.T) {
	primary := &stubNotifier{name: "sms", err: errors.New("carrier down")}
	fallback := &stubNotifier{name: "email"}

	chain := NewChain(zap.NewNop(), primary, fallback)
	err := chain.Notify(context.Background(), Message{ProjectID: "PROJ-1", Subject: "approval needed"})

	require.NoError(t, err, "one delivered channel makes the chain succeed")
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestChainStopsAfterFirstSuccess(t *testing.T) {
	primary := &stubNotifier{name: "webhook"}
	fallback := &stubNotifier{name: "log"}

	chain := NewChain(zap.NewNop(), primary, fallback)
	require.NoError(t, chain.Notify(context.Background(), Message{ProjectID: "PROJ-1"}))

	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 0, fallback.calls, "fallback is only attempted when the primary fails")
}

func TestChainAllFailed(t *testing.T) {
	a := &stubNotifier{name: "a", err: errors.New("boom")}
	b := &stubNotifier{name: "b", err: errors.New("bang")}

	chain := NewChain(zap.NewNop(), a, b)
	err := chain.Notify(context.Background(), Message{ProjectID: "PROJ-1"})

	require.ErrorIs(t, err, ErrAllChannelsFailed)
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, err.Error(), "bang")
}

func TestChainDropsNilChannels(t *testing.T) {
	chain := NewChain(zap.NewNop(), nil, nil)
	assert.NoError(t, chain.Notify(context.Background(), Message{}))
}

func TestLogNotifierNeverFails(t *testing.T) {
	n := NewLogNotifier(nil)
	assert.NoError(t, n.Notify(context.Background(), Message{ProjectID: "PROJ-1"}))
}

func TestWebhookNotifier(t *testing.T) {
	var got Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n, err := NewWebhookNotifier(WebhookConfig{URL: srv.URL})
	require.NoError(t, err)

	msg := Message{ProjectID: "PROJ-42", Subject: "handoff", Body: "details"}
	require.NoError(t, n.Notify(context.Background(), msg))
	assert.Equal(t, msg, got)
}

func TestWebhookNotifierErrors(t *testing.T) {
	_, err := NewWebhookNotifier(WebhookConfig{})
	assert.ErrorIs(t, err, ErrWebhookURLRequired)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n, err := NewWebhookNotifier(WebhookConfig{URL: srv.URL})
	require.NoError(t, err)

	err = n.Notify(context.Background(), Message{})
	assert.ErrorContains(t, err, "status 502")
}
