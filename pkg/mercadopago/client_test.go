package mercadopago

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func TestCreatePaymentSendsRequest(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/payments" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer TEST-token" {
			t.Fatalf("missing bearer token")
		}
		if r.Header.Get("X-Idempotency-Key") != "idem-1" {
			t.Fatalf("missing idempotency key")
		}
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &gotBody); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":123456,"status":"pending","payment_method_id":"pix","external_reference":"ref-1",
			"point_of_interaction":{"transaction_data":{"qr_code":"000201","qr_code_base64":"aGk="}}}`)
	}))
	defer srv.Close()

	client, err := NewClient("TEST-token", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	payment, err := client.CreatePayment(context.Background(), CreatePaymentRequest{
		TransactionAmount: decimal.RequireFromString("28.00"),
		Description:       "Pagamento ordem abc",
		PaymentMethodID:   "pix",
		ExternalReference: "ref-1",
		NotificationURL:   "https://shop.example.com/webhook/mp",
		Payer:             Payer{Email: "buyer@example.com", FirstName: "Ana"},
	}, "idem-1")
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if payment.IDString() != "123456" || payment.Status != "pending" {
		t.Fatalf("unexpected payment %+v", payment)
	}
	if payment.PointOfInteraction.TransactionData.QRCode != "000201" {
		t.Fatalf("expected qr code to be decoded")
	}
	if gotBody["transaction_amount"] != 28.0 {
		t.Fatalf("unexpected amount %v", gotBody["transaction_amount"])
	}
	if gotBody["external_reference"] != "ref-1" {
		t.Fatalf("unexpected external reference %v", gotBody["external_reference"])
	}
}

func TestGetPaymentErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/payments/404":
			w.WriteHeader(http.StatusNotFound)
		case "/v1/payments/500":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"message":"boom"}`)
		default:
			_, _ = io.WriteString(w, `{"id":7,"status":"approved","external_reference":"x"}`)
		}
	}))
	defer srv.Close()

	client, _ := NewClient("tok", WithBaseURL(srv.URL))
	ctx := context.Background()

	if _, err := client.GetPayment(ctx, "404"); pkgerrors.CodeOf(err) != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := client.GetPayment(ctx, "500"); pkgerrors.CodeOf(err) != pkgerrors.CodeUpstream {
		t.Fatalf("expected upstream, got %v", err)
	}
	if _, err := client.GetPayment(ctx, "abc"); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation, got %v", err)
	}
	payment, err := client.GetPayment(ctx, "7")
	if err != nil || payment.Status != "approved" {
		t.Fatalf("unexpected result %+v %v", payment, err)
	}
}

func TestListPaymentMethods(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":"pix","name":"PIX","payment_type_id":"bank_transfer","status":"active"}]`)
	}))
	defer srv.Close()

	client, _ := NewClient("tok", WithBaseURL(srv.URL))
	methods, err := client.ListPaymentMethods(context.Background())
	if err != nil {
		t.Fatalf("list methods: %v", err)
	}
	if len(methods) != 1 || methods[0].PaymentTypeID != "bank_transfer" {
		t.Fatalf("unexpected methods %+v", methods)
	}
}

func TestNewClientRequiresToken(t *testing.T) {
	if _, err := NewClient("  "); err == nil {
		t.Fatal("expected missing token error")
	}
}
