package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf)
	return &buf
}

func requestIDRouter(seen *string) *gin.Engine {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/rid", func(c *gin.Context) {
		*seen = RequestIDFrom(c)
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"generated when absent", "", false},
		{"propagated", "Z-REQ-123", true},
		{"control characters replaced", "abc\r\nlevel=error", false},
		{"spaces replaced", "a b", false},
		{"oversized replaced", strings.Repeat("r", maxRequestIDLen+1), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var seen string
			req := httptest.NewRequest(http.MethodGet, "/rid", nil)
			if tc.incoming != "" {
				req.Header.Set(requestIDHeader, tc.incoming)
			}
			w := httptest.NewRecorder()
			requestIDRouter(&seen).ServeHTTP(w, req)

			got := w.Header().Get(requestIDHeader)
			if got == "" || got != seen {
				t.Fatalf("header %q, context %q", got, seen)
			}
			if tc.keep != (got == tc.incoming) {
				t.Fatalf("incoming %q -> %q (keep=%v)", tc.incoming, got, tc.keep)
			}
		})
	}
}

func TestRequestIDFrom_FallsBackToResponseHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if got := RequestIDFrom(c); got != "" {
		t.Fatalf("expected empty id, got %q", got)
	}
	c.Writer.Header().Set(requestIDHeader, "rid-hdr")
	if got := RequestIDFrom(c); got != "rid-hdr" {
		t.Fatalf("got %q", got)
	}
}

func TestRecovery_PanicsToEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), RedactingLogger(RedactOptions{}), Recovery())
	r.POST("/vote/cast/:public_id", func(c *gin.Context) { panic("kaboom") })

	req := httptest.NewRequest(http.MethodPost, "/vote/cast/x", nil)
	req.Header.Set(requestIDHeader, "rid-panic")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("body: %v", err)
	}
	if body["code"] != "internal_error" || body["request_id"] != "rid-panic" {
		t.Fatalf("unexpected body: %v", body)
	}

	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, `"panic recovered"`) {
			if !strings.Contains(line, `"path":"/vote/cast/:public_id"`) || !strings.Contains(line, `"stack"`) {
				t.Fatalf("panic line lacks route or stack: %s", line)
			}
			return
		}
	}
	t.Fatalf("panic not logged:\n%s", buf.String())
}

func TestRecovery_PanicAfterWrite_KeepsBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_ = captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/late", func(c *gin.Context) {
		c.String(http.StatusOK, "partial")
		panic("late")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/late", nil))
	if w.Body.String() != "partial" {
		t.Fatalf("envelope must not be appended, body %q", w.Body.String())
	}
}

func TestLoggerFrom(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("fallback", func(t *testing.T) {
		buf := captureLogger(t)
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		LoggerFrom(c).Info().Msg("plain")
		if !strings.Contains(buf.String(), `"message":"plain"`) || strings.Contains(buf.String(), "request_id") {
			t.Fatalf("fallback output: %s", buf.String())
		}
	})

	t.Run("scoped logger reaches services", func(t *testing.T) {
		buf := captureLogger(t)
		r := gin.New()
		r.Use(RequestID(), RedactingLogger(RedactOptions{}))
		r.GET("/svc", func(c *gin.Context) {
			zerolog.Ctx(c.Request.Context()).Info().Msg("from service")
			c.Status(http.StatusOK)
		})
		req := httptest.NewRequest(http.MethodGet, "/svc", nil)
		req.Header.Set(requestIDHeader, "rid-ctx")
		r.ServeHTTP(httptest.NewRecorder(), req)

		for _, line := range strings.Split(buf.String(), "\n") {
			if strings.Contains(line, `"from service"`) {
				if !strings.Contains(line, `"request_id":"rid-ctx"`) {
					t.Fatalf("service log lacks request id: %s", line)
				}
				return
			}
		}
		t.Fatalf("service line missing:\n%s", buf.String())
	})
}

func Test_truncate(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"abcdefgh", 5, "abcde…"},
		{"abc", 0, "abc"},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.max); got != tc.want {
			t.Errorf("truncate(%q, %d) = %q; want %q", tc.in, tc.max, got, tc.want)
		}
	}
}
