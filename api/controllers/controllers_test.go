package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	pkgauth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/mercadopago"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

func newRequest(method, target, body string, actor *pkgauth.Actor, params map[string]string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	ctx := req.Context()
	if actor != nil {
		ctx = middleware.WithActor(ctx, *actor)
	}
	if len(params) > 0 {
		rc := chi.NewRouteContext()
		for k, v := range params {
			rc.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rc)
	}
	return req.WithContext(ctx)
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error.Code
}

type stubCart struct {
	added      *cart.AddItemRequest
	listedUser uuid.UUID
	removeErr  error
}

func (s *stubCart) AddItem(_ context.Context, actor pkgauth.Actor, req cart.AddItemRequest) (*models.CartItem, error) {
	s.added = &req
	return &models.CartItem{ID: uuid.New(), UserID: actor.UserID, ProductID: req.ProductID, Quantity: req.Quantity}, nil
}

func (s *stubCart) RemoveItem(context.Context, pkgauth.Actor, uuid.UUID) error {
	return s.removeErr
}

func (s *stubCart) UpdateItem(context.Context, pkgauth.Actor, uuid.UUID, cart.UpdateItemRequest) (*models.CartItem, error) {
	return nil, errors.New("unused")
}

func (s *stubCart) ListItems(_ context.Context, _ pkgauth.Actor, userID uuid.UUID) ([]models.CartItem, error) {
	s.listedUser = userID
	return []models.CartItem{}, nil
}

func TestCartAdd(t *testing.T) {
	actor := pkgauth.Actor{UserID: uuid.New()}
	productID := uuid.New()

	t.Run("anonymous", func(t *testing.T) {
		rec := httptest.NewRecorder()
		CartAdd(&stubCart{}, testLogger()).ServeHTTP(rec, newRequest(http.MethodPost, "/itemCarrinho", `{}`, nil, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 got %d", rec.Code)
		}
	})

	t.Run("invalid quantity", func(t *testing.T) {
		rec := httptest.NewRecorder()
		body := `{"produto_id":"` + productID.String() + `","qtd":0}`
		CartAdd(&stubCart{}, testLogger()).ServeHTTP(rec, newRequest(http.MethodPost, "/itemCarrinho", body, &actor, nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 got %d", rec.Code)
		}
	})

	t.Run("created", func(t *testing.T) {
		stub := &stubCart{}
		rec := httptest.NewRecorder()
		body := `{"produto_id":"` + productID.String() + `","qtd":3}`
		CartAdd(stub, testLogger()).ServeHTTP(rec, newRequest(http.MethodPost, "/itemCarrinho", body, &actor, nil))
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
		}
		if stub.added == nil || stub.added.Quantity != 3 || stub.added.ProductID != productID {
			t.Fatalf("unexpected request forwarded: %+v", stub.added)
		}
	})
}

func TestCartListDefaultsToCaller(t *testing.T) {
	actor := pkgauth.Actor{UserID: uuid.New()}
	stub := &stubCart{}
	rec := httptest.NewRecorder()
	CartList(stub, testLogger()).ServeHTTP(rec, newRequest(http.MethodGet, "/itemCarrinho", "", &actor, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if stub.listedUser != actor.UserID {
		t.Fatalf("expected caller's cart, got %s", stub.listedUser)
	}
}

func TestCartRemoveMapsNotFound(t *testing.T) {
	actor := pkgauth.Actor{UserID: uuid.New()}
	stub := &stubCart{removeErr: pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")}
	rec := httptest.NewRecorder()
	req := newRequest(http.MethodDelete, "/itemCarrinho/x", "", &actor, map[string]string{"id": uuid.NewString()})
	CartRemove(stub, testLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != string(pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND got %s", code)
	}
}

type stubPayments struct {
	createKey string
	created   *payments.CreatePaymentRequest
	webhook   *payments.WebhookInput
	err       error
}

func (s *stubPayments) CreatePayment(_ context.Context, _ pkgauth.Actor, req payments.CreatePaymentRequest, key string) (*payments.CreatePaymentResult, error) {
	s.created = &req
	s.createKey = key
	if s.err != nil {
		return nil, s.err
	}
	return &payments.CreatePaymentResult{}, nil
}

func (s *stubPayments) HandleWebhook(_ context.Context, in payments.WebhookInput) (*payments.ReconcileResult, error) {
	s.webhook = &in
	if s.err != nil {
		return nil, s.err
	}
	return &payments.ReconcileResult{Outcome: "ignored"}, nil
}

func (s *stubPayments) Reconcile(context.Context, enums.PaymentGateway, string, string) (*payments.ReconcileResult, error) {
	return nil, errors.New("unused")
}

func (s *stubPayments) SyncPending(context.Context, time.Time, int) (payments.SyncSummary, error) {
	return payments.SyncSummary{}, nil
}

func (s *stubPayments) ListGatewayMethods(context.Context) ([]mercadopago.PaymentMethod, error) {
	return []mercadopago.PaymentMethod{{ID: "pix", Name: "Pix"}}, nil
}

func TestPaymentCreateForwardsIdempotencyKey(t *testing.T) {
	actor := pkgauth.Actor{UserID: uuid.New()}
	stub := &stubPayments{}
	body := `{"produtos":[{"produto_id":"` + uuid.NewString() + `","qtd":2}],"metodo":"pix"}`
	req := newRequest(http.MethodPost, "/pagamento", body, &actor, nil)
	req.Header.Set(middleware.IdempotencyHeader, "order-42")

	rec := httptest.NewRecorder()
	PaymentCreate(stub, testLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.createKey != "order-42" {
		t.Fatalf("expected key forwarded, got %q", stub.createKey)
	}
	if stub.created.Method != enums.PaymentMethodType("pix") {
		t.Fatalf("unexpected method %q", stub.created.Method)
	}
}

func TestPaymentCreateGatewayFailure(t *testing.T) {
	actor := pkgauth.Actor{UserID: uuid.New()}
	stub := &stubPayments{err: pkgerrors.New(pkgerrors.CodeUpstream, "gateway rejected the charge")}
	body := `{"produtos":[{"produto_id":"` + uuid.NewString() + `","qtd":1}],"metodo":"pix"}`
	rec := httptest.NewRecorder()
	PaymentCreate(stub, testLogger()).ServeHTTP(rec, newRequest(http.MethodPost, "/pagamento", body, &actor, nil))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 got %d", rec.Code)
	}
}

func TestMercadoPagoWebhookReadsQueryFallback(t *testing.T) {
	stub := &stubPayments{}
	rec := httptest.NewRecorder()
	req := newRequest(http.MethodPost, "/webhook/mp?data.id=123&type=payment", `not json`, nil, nil)
	MercadoPagoWebhook(stub, testLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if stub.webhook.QueryID != "123" || stub.webhook.QueryType != "payment" {
		t.Fatalf("unexpected input %+v", stub.webhook)
	}
	if stub.webhook.Gateway != enums.PaymentGatewayMercadoPago {
		t.Fatalf("unexpected gateway %s", stub.webhook.Gateway)
	}

	legacy := &stubPayments{}
	rec = httptest.NewRecorder()
	req = newRequest(http.MethodPost, "/webhook/mp?id=456&topic=payment", ``, nil, nil)
	MercadoPagoWebhook(legacy, testLogger()).ServeHTTP(rec, req)
	if legacy.webhook.QueryID != "456" || legacy.webhook.QueryType != "payment" {
		t.Fatalf("unexpected legacy input %+v", legacy.webhook)
	}
}

func TestSquareWebhookPassesSignature(t *testing.T) {
	stub := &stubPayments{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid square signature")}
	req := newRequest(http.MethodPost, "/webhook/square", `{"event_id":"e1"}`, nil, nil)
	req.Header.Set("X-Square-HmacSha256-Signature", "sig")
	rec := httptest.NewRecorder()
	SquareWebhook(stub, testLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
	if stub.webhook.Signature != "sig" || string(stub.webhook.Body) != `{"event_id":"e1"}` {
		t.Fatalf("unexpected input %+v", stub.webhook)
	}
}

func TestGatewayMethods(t *testing.T) {
	rec := httptest.NewRecorder()
	GatewayMethods(&stubPayments{}, testLogger()).ServeHTTP(rec, newRequest(http.MethodGet, "/metodos-mp", "", nil, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"pix"`) {
		t.Fatalf("expected methods in body, got %s", rec.Body.String())
	}
}

type stubCheckout struct {
	getErr error
}

func (s *stubCheckout) Create(context.Context, pkgauth.Actor, checkout.CreateRequest) (*models.Checkout, error) {
	return &models.Checkout{ID: uuid.New()}, nil
}

func (s *stubCheckout) Get(_ context.Context, _ pkgauth.Actor, id uuid.UUID) (*models.Checkout, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return &models.Checkout{ID: id}, nil
}

func (s *stubCheckout) Delete(context.Context, pkgauth.Actor, uuid.UUID) error { return nil }

func TestCheckoutGetForbidden(t *testing.T) {
	actor := pkgauth.Actor{UserID: uuid.New()}
	stub := &stubCheckout{getErr: pkgerrors.New(pkgerrors.CodeForbidden, "checkout belongs to another user")}
	rec := httptest.NewRecorder()
	CheckoutGet(stub, testLogger()).ServeHTTP(rec, newRequest(http.MethodGet, "/checkout/x", "", &actor, map[string]string{"id": uuid.NewString()}))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}
}

func TestCheckoutGetInvalidID(t *testing.T) {
	actor := pkgauth.Actor{UserID: uuid.New()}
	rec := httptest.NewRecorder()
	CheckoutGet(&stubCheckout{}, testLogger()).ServeHTTP(rec, newRequest(http.MethodGet, "/checkout/x", "", &actor, map[string]string{"id": "nope"}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

type pingFunc func(context.Context) error

func (p pingFunc) Ping(ctx context.Context) error { return p(ctx) }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}

	rec := httptest.NewRecorder()
	HealthReady(cfg, testLogger(), map[string]Pinger{
		"db": pingFunc(func(context.Context) error { return nil }),
	}).ServeHTTP(rec, newRequest(http.MethodGet, "/health/ready", "", nil, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	HealthReady(cfg, testLogger(), map[string]Pinger{
		"db":    pingFunc(func(context.Context) error { return nil }),
		"redis": pingFunc(func(context.Context) error { return errors.New("connection refused") }),
	}).ServeHTTP(rec, newRequest(http.MethodGet, "/health/ready", "", nil, nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "redis") {
		t.Fatalf("expected failing dependency named, got %s", rec.Body.String())
	}
}
