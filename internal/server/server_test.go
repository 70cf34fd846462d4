// Copyright 2025 Tom Barlow
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

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/postgen/internal/feedback"
	"github.com/tombee/postgen/internal/generator"
	"github.com/tombee/postgen/internal/log"
)

type fakeGenerator struct {
	mu     sync.Mutex
	calls  []string
	result generator.Result
}

func (g *fakeGenerator) Generate(_ context.Context, description string) generator.Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, description)
	return g.result
}

type fakeRelay struct {
	spanID, feedback string
	err              error
}

func (r *fakeRelay) Deliver(_ context.Context, spanID, fb string) error {
	r.spanID, r.feedback = spanID, fb
	return r.err
}

func newTestServer(gen Generator, relay FeedbackSender, cfg Config) *Server {
	cfg.Logger = log.Discard()
	return New(gen, relay, cfg)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGenerate_Success(t *testing.T) {
	gen := &fakeGenerator{result: generator.Result{Text: "Great mug! #mugs", SpanID: "abc123abc123abcd"}}
	s := newTestServer(gen, &fakeRelay{}, Config{})

	rec := do(t, s.Handler(), http.MethodPost, "/api/posts", `{"description":"Blue ceramic mug, 12oz, dishwasher safe."}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"post":"Great mug! #mugs","span_id":"abc123abc123abcd"}`, rec.Body.String())
	assert.Equal(t, []string{"Blue ceramic mug, 12oz, dishwasher safe."}, gen.calls)
	assert.NotEmpty(t, rec.Header().Get(log.RequestIDHeader))
}

func TestGenerate_Failure(t *testing.T) {
	genErr := &generator.Error{Cause: errors.New("invalid api key")}
	gen := &fakeGenerator{result: generator.Result{Text: genErr.Error(), Err: genErr}}
	s := newTestServer(gen, &fakeRelay{}, Config{})

	rec := do(t, s.Handler(), http.MethodPost, "/api/posts", `{"description":"mug"}`)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	var resp generateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Error generating post: invalid api key", resp.Post)
	assert.Equal(t, resp.Post, resp.Error)
	assert.Empty(t, resp.SpanID)
}

func TestGenerate_BadBody(t *testing.T) {
	gen := &fakeGenerator{}
	s := newTestServer(gen, &fakeRelay{}, Config{})

	for _, body := range []string{`not json`, `{"desc":"x"}`} {
		rec := do(t, s.Handler(), http.MethodPost, "/api/posts", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Empty(t, gen.calls)
}

func TestGenerate_RateLimited(t *testing.T) {
	gen := &fakeGenerator{result: generator.Result{Text: "ok", SpanID: "abc123abc123abcd"}}
	s := newTestServer(gen, &fakeRelay{}, Config{RateLimit: 0.001, RateBurst: 2})

	codes := make([]int, 3)
	for i := range codes {
		codes[i] = do(t, s.Handler(), http.MethodPost, "/api/posts", `{"description":"mug"}`).Code
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Len(t, gen.calls, 2)

	// Feedback is not rate limited.
	rec := do(t, s.Handler(), http.MethodPost, "/api/feedback", `{"span_id":"abc123abc123abcd","feedback":"like"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFeedback(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		relayErr     error
		wantRecorded bool
		wantMessage  string
		wantError    string
	}{
		{
			name:         "like recorded",
			body:         `{"span_id":"abc123abc123abcd","feedback":"like"}`,
			wantRecorded: true,
			wantMessage:  "Thanks for the positive feedback! 👍 (Recorded in Phoenix)",
		},
		{
			name:         "dislike recorded",
			body:         `{"span_id":"abc123abc123abcd","feedback":"dislike"}`,
			wantRecorded: true,
			wantMessage:  "Thanks for the feedback! We'll try to improve. 👎 (Recorded in Phoenix)",
		},
		{
			name:        "missing span id",
			body:        `{"span_id":"","feedback":"like"}`,
			relayErr:    &feedback.DeliveryError{Reason: feedback.ReasonMissingSpanID},
			wantMessage: "Thanks for the positive feedback! 👍",
			wantError:   "missing_span_id",
		},
		{
			name:        "phoenix rejected",
			body:        `{"span_id":"abc123abc123abcd","feedback":"dislike"}`,
			relayErr:    &feedback.DeliveryError{Reason: feedback.ReasonStatus, StatusCode: 404},
			wantMessage: "Thanks for the feedback! We'll try to improve. 👎",
			wantError:   "status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			relay := &fakeRelay{err: tt.relayErr}
			s := newTestServer(&fakeGenerator{}, relay, Config{})

			rec := do(t, s.Handler(), http.MethodPost, "/api/feedback", tt.body)
			require.Equal(t, http.StatusOK, rec.Code)

			var resp feedbackResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantRecorded, resp.Recorded)
			assert.Equal(t, tt.wantMessage, resp.Message)
			assert.Equal(t, tt.wantError, resp.Error)
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("postgen_generations_total 1\n"))
	})
	s := newTestServer(&fakeGenerator{}, &fakeRelay{}, Config{MetricsHandler: metrics})

	rec := do(t, s.Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(t, s.Handler(), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "postgen_generations_total")

	noMetrics := newTestServer(&fakeGenerator{}, &fakeRelay{}, Config{})
	assert.Equal(t, http.StatusNotFound, do(t, noMetrics.Handler(), http.MethodGet, "/metrics", "").Code)
}

func TestServe_GracefulShutdown(t *testing.T) {
	s := newTestServer(&fakeGenerator{}, &fakeRelay{}, Config{ShutdownTimeout: time.Second})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
