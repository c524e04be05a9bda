package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pilot-net/outage-counter/internal/command"
	"github.com/pilot-net/outage-counter/internal/config"
	"github.com/pilot-net/outage-counter/internal/metrics"
	"github.com/pilot-net/outage-counter/internal/testutil"
	"github.com/pilot-net/outage-counter/internal/tracker"
	"github.com/pilot-net/outage-counter/pkg/types"
)

func newTestServer(t *testing.T, rl config.RateLimitConfig, days ...time.Time) (*Server, *testutil.MemoryStore) {
	t.Helper()
	logger := testutil.NewTestLogger()
	st := testutil.NewMemoryStore(days...)
	tr := tracker.New(st, logger, tracker.WithClock(testutil.FixedClock(testutil.Today)))
	collector := metrics.NewCollector(st, "memory", logger)
	return NewServer(command.NewDispatcher(tr, logger), tr, collector, rl, logger), st
}

func postCommand(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/commands", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeReply(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp types.CommandResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.Reply
}

func TestHandleCommand(t *testing.T) {
	s, _ := newTestServer(t, config.RateLimitConfig{}, testutil.DaysAgo(testutil.Today, 30, 20, 15)...)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantReply  string
	}{
		{
			name:       "high score",
			body:       `{"text": "what is the high score", "user": "sam"}`,
			wantStatus: http.StatusOK,
			wantReply:  "The longest streak of days without an outage is 15 days.",
		},
		{
			name:       "average",
			body:       `{"text": "What is the average outage?", "user": "sam"}`,
			wantStatus: http.StatusOK,
			wantReply:  "The average number of days without an outage is 7.5 days.",
		},
		{
			name:       "bad date is a reply",
			body:       `{"text": "remove outage date 2016-13-45"}`,
			wantStatus: http.StatusOK,
			wantReply:  `Sorry, "2016-13-45" is not a valid date. Use YYYY-MM-DD, like 2016-2-23.`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postCommand(t, s, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status: got %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if got := decodeReply(t, rec); got != tt.wantReply {
				t.Errorf("reply: got %q, want %q", got, tt.wantReply)
			}
		})
	}
}

func TestHandleCommand_Unknown(t *testing.T) {
	s, _ := newTestServer(t, config.RateLimitConfig{})

	rec := postCommand(t, s, `{"text": "order pizza"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", rec.Code)
	}
	if reply := decodeReply(t, rec); !strings.Contains(reply, "show all outage dates") {
		t.Errorf("expected help in reply, got %q", reply)
	}
}

func TestHandleCommand_BadRequest(t *testing.T) {
	s, _ := newTestServer(t, config.RateLimitConfig{})

	for _, body := range []string{``, `not json`, `{"text": "   "}`} {
		if rec := postCommand(t, s, body); rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: got %d, want 400", body, rec.Code)
		}
	}
}

func TestHandleCommand_StoreUnavailable(t *testing.T) {
	s, st := newTestServer(t, config.RateLimitConfig{})
	st.FailWith(errors.New("connection refused"))

	rec := postCommand(t, s, `{"text": "the site went down"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", rec.Code)
	}
}

func TestHandleCommand_RateLimited(t *testing.T) {
	s, _ := newTestServer(t, config.RateLimitConfig{CommandsPerMinute: 1, Burst: 2})

	body := `{"text": "when was the last outage", "user": "alex"}`
	for i := 0; i < 2; i++ {
		if rec := postCommand(t, s, body); rec.Code != http.StatusOK {
			t.Fatalf("request %d: got %d", i, rec.Code)
		}
	}
	if rec := postCommand(t, s, body); rec.Code != http.StatusTooManyRequests {
		t.Errorf("got %d, want 429", rec.Code)
	}

	// Other users have their own bucket
	other := `{"text": "when was the last outage", "user": "jordan"}`
	if rec := postCommand(t, s, other); rec.Code != http.StatusOK {
		t.Errorf("other user: got %d", rec.Code)
	}
}

func TestHandleOutages(t *testing.T) {
	s, _ := newTestServer(t, config.RateLimitConfig{}, testutil.DaysAgo(testutil.Today, 10, 30, 20)...)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/outages", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}

	var summary types.OutageSummary
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if summary.OutageCount != 3 || summary.LongestStreak != 10 || summary.AverageStreak != 10 {
		t.Errorf("got %+v", summary)
	}
	if summary.LastOutage == nil || *summary.LastOutage != "2026-10-09" {
		t.Errorf("last outage: got %v", summary.LastOutage)
	}
}

func TestHandleHealth(t *testing.T) {
	s, st := newTestServer(t, config.RateLimitConfig{})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}

	var health types.BotHealth
	if err := json.NewDecoder(rec.Body).Decode(&health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if health.Store.Status != types.HealthHealthy || health.Store.Backend != "memory" {
		t.Errorf("store: got %+v", health.Store)
	}

	// A server whose store is down reports 503
	s, st = newTestServer(t, config.RateLimitConfig{})
	st.FailWith(errors.New("connection refused"))
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status with store down: got %d, want 503", rec.Code)
	}
}

func TestRequestID(t *testing.T) {
	s, _ := newTestServer(t, config.RateLimitConfig{})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/outages", nil))
	if rec.Header().Get(requestIDHeader) == "" {
		t.Error("expected a generated request ID")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/outages", nil)
	req.Header.Set(requestIDHeader, "chat-123")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHeader); got != "chat-123" {
		t.Errorf("got %q, want caller's ID", got)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t, config.RateLimitConfig{})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/commands", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("got %d, want 405", rec.Code)
	}
}
