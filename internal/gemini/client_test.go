// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/megabot/internal/provider"
)

const testKey = "AIzaSyTest-key_0123456789"

// sseBody renders fragments as Gemini SSE events.
func sseBody(fragments ...string) string {
	var sb strings.Builder
	for _, f := range fragments {
		chunk := map[string]any{
			"candidates": []any{
				map[string]any{
					"content": map[string]any{
						"role":  "model",
						"parts": []any{map[string]any{"text": f}},
					},
				},
			},
		}
		data, _ := json.Marshal(chunk)
		fmt.Fprintf(&sb, "data: %s\r\n\r\n", data)
	}
	return sb.String()
}

func drain(t *testing.T, s provider.Stream) ([]string, error) {
	t.Helper()
	var got []string
	for {
		f, err := s.Recv()
		if err == io.EOF {
			return got, nil
		}
		if err != nil {
			return got, err
		}
		got = append(got, f)
	}
}

// =============================================================================
// STREAMING TESTS
// =============================================================================

func TestSendAndStream_Fragments(t *testing.T) {
	var gotReq generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-test:streamGenerateContent", r.URL.Path)
		assert.Equal(t, "sse", r.URL.Query().Get("alt"))
		assert.Equal(t, testKey, r.Header.Get("x-goog-api-key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, sseBody("Hi", " there"))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithModel("gemini-test"))
	sess, err := client.NewSession(testKey, "be helpful")
	require.NoError(t, err)

	stream, err := sess.SendAndStream(context.Background(), "Hello")
	require.NoError(t, err)

	got, err := drain(t, stream)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hi", " there"}, got)

	require.NotNil(t, gotReq.SystemInstruction)
	assert.Equal(t, "be helpful", gotReq.SystemInstruction.Text())
	require.Len(t, gotReq.Contents, 1)
	assert.Equal(t, RoleUser, gotReq.Contents[0].Role)
	assert.Equal(t, "Hello", gotReq.Contents[0].Text())
}

func TestSession_HistoryCarriesCompletedTurns(t *testing.T) {
	var turns []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		json.NewDecoder(r.Body).Decode(&req)
		turns = append(turns, len(req.Contents))
		io.WriteString(w, sseBody("answer"))
	}))
	defer server.Close()

	sess, err := NewClient(WithBaseURL(server.URL)).NewSession(testKey, "")
	require.NoError(t, err)

	for _, q := range []string{"first", "second"} {
		stream, err := sess.SendAndStream(context.Background(), q)
		require.NoError(t, err)
		_, err = drain(t, stream)
		require.NoError(t, err)
	}

	assert.Equal(t, []int{1, 3}, turns)
	history := sess.(*Session).History()
	require.Len(t, history, 4)
	assert.Equal(t, RoleModel, history[1].Role)
	assert.Equal(t, "answer", history[1].Text())
}

func TestSession_FailedTurnNotRecorded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, sseBody("partial"))
		io.WriteString(w, `data: {"error":{"code":500,"message":"backend exploded","status":"INTERNAL"}}`+"\n\n")
	}))
	defer server.Close()

	sess, _ := NewClient(WithBaseURL(server.URL)).NewSession(testKey, "")
	stream, err := sess.SendAndStream(context.Background(), "q")
	require.NoError(t, err)

	got, err := drain(t, stream)
	assert.Equal(t, []string{"partial"}, got)
	var perr *provider.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "INTERNAL", perr.Code)
	assert.Empty(t, sess.(*Session).History())
}

func TestSession_RejectsConcurrentSend(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, sseBody("a"))
		w.(http.Flusher).Flush()
		<-release
	}))
	defer server.Close()
	defer close(release)

	sess, _ := NewClient(WithBaseURL(server.URL)).NewSession(testKey, "")
	stream, err := sess.SendAndStream(context.Background(), "one")
	require.NoError(t, err)

	_, err = sess.SendAndStream(context.Background(), "two")
	assert.ErrorIs(t, err, ErrSendInProgress)

	stream.Close()
	// Closing the stream frees the session; the handler is still blocked so
	// use a cancelled context to avoid waiting on it.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = sess.SendAndStream(ctx, "three")
	assert.NotErrorIs(t, err, ErrSendInProgress)
}

func TestStream_ContextCauseWins(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, sseBody("slow"))
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancelCause(context.Background())
	sess, _ := NewClient(WithBaseURL(server.URL)).NewSession(testKey, "")
	stream, err := sess.SendAndStream(ctx, "q")
	require.NoError(t, err)

	f, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "slow", f)

	cancel(provider.ErrStreamStalled)
	_, err = stream.Recv()
	assert.ErrorIs(t, err, provider.ErrStreamStalled)
}

func TestStream_BlockedPrompt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `data: {"promptFeedback":{"blockReason":"SAFETY"}}`+"\n\n")
	}))
	defer server.Close()

	sess, _ := NewClient(WithBaseURL(server.URL)).NewSession(testKey, "")
	stream, err := sess.SendAndStream(context.Background(), "q")
	require.NoError(t, err)

	_, err = stream.Recv()
	var perr *provider.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "SAFETY", perr.Code)
}

// =============================================================================
// ERROR MAPPING TESTS
// =============================================================================

func TestSendAndStream_ErrorResponses(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		invalidKey bool
		sentinel   error
	}{
		{
			name:   "api key invalid reason",
			status: http.StatusBadRequest,
			body: `{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT",
				"details":[{"@type":"type.googleapis.com/google.rpc.ErrorInfo","reason":"API_KEY_INVALID"}]}}`,
			invalidKey: true,
			sentinel:   provider.ErrInvalidAPIKey,
		},
		{
			name:       "unauthorized",
			status:     http.StatusUnauthorized,
			body:       `{"error":{"code":401,"message":"Request had invalid authentication credentials.","status":"UNAUTHENTICATED"}}`,
			invalidKey: true,
			sentinel:   provider.ErrInvalidAPIKey,
		},
		{
			name:     "quota",
			status:   http.StatusTooManyRequests,
			body:     `{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`,
			sentinel: provider.ErrRateLimited,
		},
		{
			name:   "bad model",
			status: http.StatusNotFound,
			body:   `{"error":{"code":404,"message":"models/nope is not found","status":"NOT_FOUND"}}`,
		},
		{
			name:   "unparseable",
			status: http.StatusBadGateway,
			body:   `<html>bad gateway</html>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			sess, err := NewClient(WithBaseURL(server.URL)).NewSession(testKey, "")
			require.NoError(t, err)

			_, err = sess.SendAndStream(context.Background(), "q")
			require.Error(t, err)

			var perr *provider.ProviderError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.status, perr.Status)
			assert.Equal(t, tt.invalidKey, provider.IsInvalidAPIKey(err))
			if tt.sentinel != nil {
				assert.ErrorIs(t, err, tt.sentinel)
			}
		})
	}
}

func TestSendAndStream_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	sess, _ := NewClient(WithBaseURL(url)).NewSession(testKey, "")
	_, err := sess.SendAndStream(context.Background(), "q")
	assert.ErrorIs(t, err, provider.ErrTransport)
	assert.False(t, provider.IsInvalidAPIKey(err))
}

// =============================================================================
// SESSION CREATION TESTS
// =============================================================================

func TestNewSession_RejectsMalformedKeys(t *testing.T) {
	client := NewClient()
	for _, key := range []string{"", "has space", "tab\tkey", "line\n"} {
		_, err := client.NewSession(key, "")
		if !errors.Is(err, provider.ErrInvalidAPIKey) {
			t.Errorf("NewSession(%q) error = %v, want ErrInvalidAPIKey", key, err)
		}
		if !provider.IsInvalidAPIKey(err) {
			t.Errorf("NewSession(%q) error not classified as invalid key", key)
		}
	}
}

func TestRequestsPerMinute_WaitHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, sseBody("ok"))
	}))
	defer server.Close()

	sess, _ := NewClient(WithBaseURL(server.URL), WithRequestsPerMinute(1)).NewSession(testKey, "")

	stream, err := sess.SendAndStream(context.Background(), "first")
	require.NoError(t, err)
	_, err = drain(t, stream)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = sess.SendAndStream(ctx, "second")
	require.Error(t, err, "second request inside the same minute should wait and time out")
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "********6789", MaskKey(testKey))
	assert.Equal(t, "***", MaskKey("abc"))
	assert.NotEqual(t, KeyFingerprint("a"), KeyFingerprint("b"))
	assert.Equal(t, "none", KeyFingerprint(""))
}

func TestSSEReader_MultiLineAndTrailingEvent(t *testing.T) {
	r := NewSSEReader(strings.NewReader(": comment\nevent: x\ndata: one\ndata: two\n\ndata: last"))

	data, err := r.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo", string(data))

	data, err = r.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "last", string(data))

	_, err = r.ReadEvent()
	assert.Equal(t, io.EOF, err)
}
