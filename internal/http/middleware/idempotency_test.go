package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type lookupCall struct {
	user, scope, key string
}

// fakeLookup records calls and answers from stored, keyed by user|scope|key.
type fakeLookup struct {
	calls  []lookupCall
	stored map[string]Replay
	err    error
}

func (f *fakeLookup) fn(_ context.Context, user, scope, key string, now time.Time) (*Replay, error) {
	f.calls = append(f.calls, lookupCall{user, scope, key})
	if now.Location() != time.UTC {
		return nil, errors.New("lookup time must be UTC")
	}
	if f.err != nil {
		return nil, f.err
	}
	if r, ok := f.stored[user+"|"+scope+"|"+key]; ok {
		return &r, nil
	}
	return nil, nil
}

type seen struct {
	key    string
	hasKey bool
	scope  string
	replay Replay
	isRep  bool
	bypass bool
}

func idemRouter(opts IdempotencyOptions, lookup IdempotencyLookup, user string, out *seen) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if user != "" {
			c.Set(UserIDKey, user)
		}
		c.Next()
	})
	r.Use(IdempotencyValidator(opts, lookup))
	r.POST("/api/v1/talks/:id/conduct-reports", func(c *gin.Context) {
		out.key, out.hasKey = GetIdempotencyKey(c)
		out.scope = GetIdempotencyScope(c)
		out.replay, out.isRep = ReplayOf(c)
		out.bypass = IsRateBypass(c)
		c.Status(http.StatusCreated)
	})
	return r
}

func postKey(r http.Handler, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const reportsPath = "/api/v1/talks/42/conduct-reports"

func TestIdempotencyValidator_NoHeaderIsNoop(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := &fakeLookup{}
	var s seen
	w := postKey(idemRouter(IdempotencyOptions{}, f.fn, "u1", &s), reportsPath, "")

	if w.Code != http.StatusCreated || s.hasKey || s.scope != "" || s.isRep || len(f.calls) != 0 {
		t.Fatalf("unexpected: code=%d seen=%+v calls=%v", w.Code, s, f.calls)
	}
}

func TestIdempotencyValidator_RejectsMalformedKeys(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name string
		opts IdempotencyOptions
		key  string
	}{
		{"too long for custom max", IdempotencyOptions{MaxLen: 5}, "abcdef"},
		{"too long for default max", IdempotencyOptions{}, strings.Repeat("k", defaultIdemMaxLen+1)},
		{"outside default charset", IdempotencyOptions{}, "has space"},
		{"outside custom pattern", IdempotencyOptions{Pattern: regexp.MustCompile(`^[0-9]+$`)}, "abc"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var s seen
			w := postKey(idemRouter(tc.opts, nil, "u1", &s), reportsPath, tc.key)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", w.Code)
			}
			var body map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("body: %v", err)
			}
			if body["code"] != "bad_idempotency_key" {
				t.Fatalf("unexpected body: %v", body)
			}
		})
	}
}

func TestIdempotencyValidator_FirstAttemptStashesKeyAndScope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := &fakeLookup{}
	var s seen
	w := postKey(idemRouter(IdempotencyOptions{}, f.fn, "u1", &s), reportsPath, "report-1")

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d", w.Code)
	}
	wantScope := "/api/v1/talks/:id/conduct-reports#42"
	if s.key != "report-1" || !s.hasKey || s.scope != wantScope || s.isRep || s.bypass {
		t.Fatalf("unexpected: %+v", s)
	}
	if len(f.calls) != 1 || f.calls[0] != (lookupCall{"u1", wantScope, "report-1"}) {
		t.Fatalf("lookup calls: %+v", f.calls)
	}
}

func TestIdempotencyValidator_ReplayIsStashedAndBypassesRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	scope := "/api/v1/talks/:id/conduct-reports#42"
	f := &fakeLookup{stored: map[string]Replay{"u1|" + scope + "|report-1": {ResourceID: "7", Status: http.StatusCreated}}}

	var s seen
	postKey(idemRouter(IdempotencyOptions{}, f.fn, "u1", &s), reportsPath, "report-1")
	if !s.isRep || s.replay.ResourceID != "7" || s.replay.Status != http.StatusCreated || !s.bypass {
		t.Fatalf("replay not stashed: %+v", s)
	}

	// Same key, other talk: a different operation.
	s = seen{}
	postKey(idemRouter(IdempotencyOptions{}, f.fn, "u1", &s), "/api/v1/talks/43/conduct-reports", "report-1")
	if s.isRep {
		t.Fatalf("key leaked across talks: %+v", s)
	}

	// Same key, other voter.
	s = seen{}
	postKey(idemRouter(IdempotencyOptions{}, f.fn, "u2", &s), reportsPath, "report-1")
	if s.isRep {
		t.Fatalf("key leaked across voters: %+v", s)
	}
}

func TestIdempotencyValidator_CustomScope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := &fakeLookup{}
	var s seen
	opts := IdempotencyOptions{Scope: func(*gin.Context) string { return "global" }}
	postKey(idemRouter(opts, f.fn, "u1", &s), reportsPath, "k")
	if s.scope != "global" || f.calls[0].scope != "global" {
		t.Fatalf("custom scope ignored: %+v %+v", s, f.calls)
	}
}

func TestIdempotencyValidator_AnonymousSkipsLookup(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := &fakeLookup{}
	var s seen
	postKey(idemRouter(IdempotencyOptions{}, f.fn, "", &s), reportsPath, "k")
	if len(f.calls) != 0 || !s.hasKey {
		t.Fatalf("anonymous: calls=%v seen=%+v", f.calls, s)
	}
}

func TestIdempotencyValidator_LookupErrorIsLoggedAndIgnored(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf)

	f := &fakeLookup{err: errors.New("db down")}
	var s seen
	w := postKey(idemRouter(IdempotencyOptions{}, f.fn, "u1", &s), reportsPath, "k")
	if w.Code != http.StatusCreated || s.isRep {
		t.Fatalf("lookup failure must not block: code=%d seen=%+v", w.Code, s)
	}
	if !strings.Contains(buf.String(), "idempotency lookup failed") || !strings.Contains(buf.String(), "db down") {
		t.Fatalf("lookup failure not logged: %s", buf.String())
	}
}

func TestReplayOf_IgnoresForeignValues(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Set(ctxKeyIdemReplay, true)
	if _, found := ReplayOf(c); found {
		t.Fatal("non-Replay value must not count as a replay")
	}
	c.Set(UserIDKey, 42)
	if got := userIDFromCtx(c); got != "" {
		t.Fatalf("non-string user id: %q", got)
	}
}
