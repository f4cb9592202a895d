package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-cfp-voting/internal/http/middleware"
	"github.com/tbourn/go-cfp-voting/internal/services"
)

func envelopeRouter(t *testing.T) (*gin.Engine, *bytes.Buffer) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf)

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.RedactingLogger(middleware.RedactOptions{}))
	return r, &buf
}

func callEnvelope(t *testing.T, r http.Handler, path string) (int, ErrorResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("X-Request-ID", "rid-env")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var er ErrorResponse
	if w.Code >= 400 {
		if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
			t.Fatalf("json: %v", err)
		}
	}
	return w.Code, er
}

func Test_fail_ServerErrorsAreLogged(t *testing.T) {
	r, buf := envelopeRouter(t)
	r.GET("/boom", func(c *gin.Context) { fail(c, http.StatusInternalServerError, ErrCodeInternal, "kaboom") })
	r.GET("/closed", func(c *gin.Context) { Fail(c, http.StatusForbidden, ErrCodeVotingClosed, "voting is not open") })

	code, er := callEnvelope(t, r, "/boom")
	if code != http.StatusInternalServerError || er.RequestID != "rid-env" || er.Code != ErrCodeInternal || er.Message != "kaboom" {
		t.Fatalf("unexpected 500: %d %+v", code, er)
	}
	if !strings.Contains(buf.String(), `"message":"api error"`) {
		t.Fatalf("5xx not logged: %s", buf.String())
	}

	buf.Reset()
	code, er = callEnvelope(t, r, "/closed")
	if code != http.StatusForbidden || er.Code != ErrCodeVotingClosed || er.RequestID != "rid-env" {
		t.Fatalf("unexpected 403: %d %+v", code, er)
	}
	if strings.Contains(buf.String(), "api error") {
		t.Fatalf("4xx must not be logged as api error: %s", buf.String())
	}
}

func Test_failFields_And_ok(t *testing.T) {
	r, _ := envelopeRouter(t)
	r.GET("/invalid", func(c *gin.Context) {
		failFields(c, http.StatusBadRequest, ErrCodeValidation, "bad id", map[string]string{"id": "must be positive"})
	})
	r.GET("/created", func(c *gin.Context) { ok(c, http.StatusCreated, ClearSkippedResponse{Reclaimed: 3}) })

	code, er := callEnvelope(t, r, "/invalid")
	if code != http.StatusBadRequest || er.Fields["id"] != "must be positive" {
		t.Fatalf("unexpected validation body: %d %+v", code, er)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/created", nil))
	if w.Code != http.StatusCreated || strings.TrimSpace(w.Body.String()) != `{"reclaimed":3}` {
		t.Fatalf("unexpected ok: %d %s", w.Code, w.Body.String())
	}
}

func Test_failService_Mapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		err    error
		status int
		code   string
		field  string
	}{
		{"invalid action", services.ErrInvalidAction, http.StatusBadRequest, ErrCodeValidation, "action"},
		{"missing value", services.ErrMissingVoteValue, http.StatusBadRequest, ErrCodeValidation, "value"},
		{"report too long", services.ErrReportTooLong, http.StatusBadRequest, ErrCodeValidation, "text"},
		{"wrapped empty report", fmt.Errorf("report: %w", services.ErrEmptyReport), http.StatusBadRequest, ErrCodeValidation, "text"},
		{"report", services.ErrReportNotFound, http.StatusNotFound, ErrCodeNotFound, ""},
		{"closed", services.ErrVotingClosed, http.StatusForbidden, ErrCodeVotingClosed, ""},
		{"wrapped closed", fmt.Errorf("select: %w", services.ErrVotingClosed), http.StatusForbidden, ErrCodeVotingClosed, ""},
		{"category", services.ErrCategoryNotFound, http.StatusNotFound, ErrCodeNotFound, ""},
		{"vote", services.ErrVoteNotFound, http.StatusNotFound, ErrCodeNotFound, ""},
		{"talk", services.ErrTalkNotFound, http.StatusNotFound, ErrCodeNotFound, ""},
		{"conflict", services.ErrSelectionConflict, http.StatusConflict, ErrCodePickAgain, ""},
		{"no contact", services.ErrNoConductContact, http.StatusServiceUnavailable, ErrCodeNoConductContact, ""},
		{"unknown", errors.New("db is on fire"), http.StatusInternalServerError, ErrCodeInternal, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/x", func(c *gin.Context) { failService(c, tc.err) })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
			if w.Code != tc.status {
				t.Fatalf("status=%d want %d", w.Code, tc.status)
			}
			var er ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
				t.Fatalf("json: %v", err)
			}
			if er.Code != tc.code {
				t.Fatalf("code=%q want %q", er.Code, tc.code)
			}
			if tc.field != "" && er.Fields[tc.field] == "" {
				t.Fatalf("expected field %q in %+v", tc.field, er.Fields)
			}
			if tc.status == http.StatusInternalServerError && strings.Contains(er.Message, "fire") {
				t.Fatalf("internal error text leaked: %q", er.Message)
			}
		})
	}
}
