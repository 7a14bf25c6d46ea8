package routes

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	pkgauth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type stubSessions struct{}

func (stubSessions) HasSession(context.Context, string) (bool, error) { return true, nil }

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func testConfig() *config.Config {
	return &config.Config{
		App:  config.AppConfig{Env: "test", Port: "0"},
		JWT:  config.JWTConfig{Secret: "router-secret", Issuer: "storefront", ExpirationMinutes: 30},
		CORS: config.CORSConfig{AllowedOrigins: []string{"*"}, MaxAgeSeconds: 60},
	}
}

func newTestRouter(t *testing.T, infra Infra) (http.Handler, *config.Config) {
	t.Helper()
	cfg := testConfig()
	logg := logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard})
	if infra.Sessions == nil {
		infra.Sessions = stubSessions{}
	}
	return NewRouter(cfg, logg, infra, Services{}), cfg
}

func token(t *testing.T, cfg *config.Config, admin bool) string {
	t.Helper()
	tok, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID:   uuid.New(),
		Email:    "joao@example.com",
		Name:     "Joao",
		IsAdmin:  admin,
		AccessID: uuid.NewString(),
	})
	require.NoError(t, err)
	return tok
}

func do(h http.Handler, method, path, bearer, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func TestHealthLive(t *testing.T) {
	h, _ := newTestRouter(t, Infra{})
	resp := do(h, http.MethodGet, "/health/live", "", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.NotEmpty(t, resp.Header().Get("X-Request-Id"))
}

func TestHealthReadyReportsFailingDependency(t *testing.T) {
	h, _ := newTestRouter(t, Infra{Ready: map[string]controllers.Pinger{
		"db":    stubPinger{},
		"redis": stubPinger{err: errors.New("connection refused")},
	}})
	resp := do(h, http.MethodGet, "/health/ready", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Contains(t, resp.Body.String(), "redis")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h, _ := newTestRouter(t, Infra{})
	cases := []struct{ method, path string }{
		{http.MethodGet, "/retrieve"},
		{http.MethodPost, "/itemCarrinho"},
		{http.MethodPost, "/pagamento"},
		{http.MethodGet, "/checkout/" + uuid.NewString()},
		{http.MethodGet, "/api/dashboard/" + uuid.NewString()},
		{http.MethodPost, "/categoria"},
	}
	for _, tc := range cases {
		resp := do(h, tc.method, tc.path, "", "")
		assert.Equal(t, http.StatusUnauthorized, resp.Code, "%s %s", tc.method, tc.path)
	}
}

func TestAdminRoutesRejectRegularUsers(t *testing.T) {
	h, cfg := newTestRouter(t, Infra{})

	resp := do(h, http.MethodPost, "/categoria", token(t, cfg, false), `{"nome":"Livros"}`)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = do(h, http.MethodDelete, "/formaPagamento/"+uuid.NewString(), token(t, cfg, false), "")
	assert.Equal(t, http.StatusForbidden, resp.Code)

	// admins pass the guard and reach the (unwired) handler
	resp = do(h, http.MethodPost, "/categoria", token(t, cfg, true), `{"nome":"Livros"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}

func TestPublicRoutesSkipAuth(t *testing.T) {
	h, _ := newTestRouter(t, Infra{})
	for _, path := range []string{"/produto", "/categoria", "/formaPagamento", "/metodos-mp"} {
		resp := do(h, http.MethodGet, path, "", "")
		assert.NotEqual(t, http.StatusUnauthorized, resp.Code, path)
		assert.NotEqual(t, http.StatusNotFound, resp.Code, path)
	}
}

func TestWebhooksArePublic(t *testing.T) {
	h, _ := newTestRouter(t, Infra{})
	for _, path := range []string{"/webhook/mp?type=payment&data.id=1", "/webhook/square"} {
		resp := do(h, http.MethodPost, path, "", `{}`)
		assert.NotEqual(t, http.StatusUnauthorized, resp.Code, path)
		assert.NotEqual(t, http.StatusNotFound, resp.Code, path)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "storefront_router_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	h, _ := newTestRouter(t, Infra{Gatherer: reg})
	resp := do(h, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "storefront_router_test_total 1")
}

func TestMetricsAbsentWithoutGatherer(t *testing.T) {
	h, _ := newTestRouter(t, Infra{})
	resp := do(h, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
