package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

func TestRequestIDKeepsWellFormedInboundID(t *testing.T) {
	h := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	cases := []struct {
		name    string
		inbound string
		keep    bool
	}{
		{"mercado pago id", "bb5e9c3a-1f7e-4b9d-9c55-6f1d1b8e0a11", true},
		{"dotted token", "req.2026:abc_1", true},
		{"header injection", "abc\r\nSet-Cookie: x=1", false},
		{"spaces", "two words", false},
		{"too long", strings.Repeat("a", maxRequestIDLen+1), false},
		{"missing", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/webhook/mp", nil)
			req.Header.Set(requestIDHeader, tc.inbound)
			resp := httptest.NewRecorder()
			h.ServeHTTP(resp, req)

			got := resp.Header().Get(requestIDHeader)
			if tc.keep {
				if got != tc.inbound {
					t.Fatalf("expected %q to be kept, got %q", tc.inbound, got)
				}
				return
			}
			if _, err := uuid.Parse(got); err != nil {
				t.Fatalf("expected a generated uuid, got %q", got)
			}
		})
	}
}

func TestRecovererWritesInternalError(t *testing.T) {
	var logs bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &logs})
	h := Recoverer(logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("nil cart")
	}))

	req := httptest.NewRequest(http.MethodPost, "/itemCarrinho", nil)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	if !strings.Contains(logs.String(), "http.panic_recovered") || !strings.Contains(logs.String(), "/itemCarrinho") {
		t.Fatalf("expected panic log with path, got %s", logs.String())
	}
}

func TestRecovererReraisesAbortHandler(t *testing.T) {
	h := Recoverer(logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Fatalf("expected ErrAbortHandler to propagate, got %v", rec)
		}
	}()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}
