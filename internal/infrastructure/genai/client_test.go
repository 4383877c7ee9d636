package genai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/atlas/internal/application/drafting"
	"github.com/rezkam/atlas/internal/infrastructure/genai"
)

func modelReply(t *testing.T, w http.ResponseWriter, text string) {
	t.Helper()
	resp := map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": text}}}},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(resp))
}

func newClient(srv *httptest.Server, attempts int) *genai.Client {
	return genai.NewClient(genai.Config{
		APIKey:      "test-key",
		BaseURL:     srv.URL,
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		Timeout:     time.Second,
		HTTPClient:  srv.Client(),
	})
}

func TestClient_Decompose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.5-flash-lite:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.False(t, r.URL.Query().Has("key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body, "system_instruction")

		modelReply(t, w, `{"intents": [{"text": "Add login page"}, {"text": "Store sessions"}]}`)
	}))
	defer srv.Close()

	intents, err := newClient(srv, 3).Decompose(context.Background(), "login with sessions")
	require.NoError(t, err)
	assert.Equal(t, []string{"Add login page", "Store sessions"}, intents)
}

func TestClient_Draft(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		modelReply(t, w, `{"tasks": [{"subject": "Build login page", "priority": "High", "weight": 5, "confidence": 0.9, "reasoning": "core"}]}`)
	}))
	defer srv.Close()

	got, err := newClient(srv, 3).Draft(context.Background(), drafting.DraftRequest{
		ProjectName: "Apollo", Intents: []string{"Add login page"},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, drafting.Proposal{
		Subject: "Build login page", Priority: "High", Weight: 5, Confidence: 0.9, Reasoning: "core",
	}, got[0])
}

func TestClient_RetriesOnlyRateLimits(t *testing.T) {
	t.Run("rate limited until success", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			modelReply(t, w, `{"intents": [{"text": "Ship it"}]}`)
		}))
		defer srv.Close()

		intents, err := newClient(srv, 3).Decompose(context.Background(), "ship it")
		require.NoError(t, err)
		assert.Equal(t, []string{"Ship it"}, intents)
		assert.EqualValues(t, 3, calls.Load())
	})

	t.Run("rate limited past the limit", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		_, err := newClient(srv, 2).Decompose(context.Background(), "ship it")
		require.Error(t, err)
		assert.True(t, genai.IsKind(err, genai.KindRateLimited))
		assert.EqualValues(t, 2, calls.Load())
	})

	t.Run("upstream failure is not retried", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := newClient(srv, 3).Decompose(context.Background(), "ship it")
		assert.True(t, genai.IsKind(err, genai.KindUpstream))
		assert.EqualValues(t, 1, calls.Load())
	})

	t.Run("malformed output is not retried", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			modelReply(t, w, "not json")
		}))
		defer srv.Close()

		_, err := newClient(srv, 3).Decompose(context.Background(), "ship it")
		assert.True(t, genai.IsKind(err, genai.KindMalformed))
		assert.EqualValues(t, 1, calls.Load())
	})
}

func TestClient_TransportErrorOmitsAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client := genai.NewClient(genai.Config{
		APIKey: "secret-key", BaseURL: srv.URL, MaxAttempts: 1, Timeout: time.Second,
	})
	_, err := client.Decompose(context.Background(), "unreachable")
	require.Error(t, err)
	assert.True(t, genai.IsKind(err, genai.KindUpstream))
	assert.NotContains(t, err.Error(), "secret-key")
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	client := genai.NewClient(genai.Config{
		BaseURL: srv.URL, MaxAttempts: 3, Timeout: 20 * time.Millisecond, HTTPClient: srv.Client(),
	})
	_, err := client.Decompose(context.Background(), "slow")
	assert.True(t, genai.IsKind(err, genai.KindTimeout))
}

func TestHeuristic(t *testing.T) {
	var g genai.Heuristic
	intents, err := g.Decompose(context.Background(), "build the login page and store sessions. add audit logging; ok")
	require.NoError(t, err)
	assert.Equal(t, []string{"Build the login page", "Store sessions", "Add audit logging"}, intents)

	drafts, err := g.Draft(context.Background(), drafting.DraftRequest{Intents: intents})
	require.NoError(t, err)
	require.Len(t, drafts, 3)
	for _, d := range drafts {
		assert.Empty(t, drafting.Check(d))
	}
}
