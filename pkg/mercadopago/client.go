package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const (
	defaultBaseURL        = "https://api.mercadopago.com"
	defaultTimeout        = 10 * time.Second
	responseBodyReadLimit = 1024
)

var errAccessTokenRequired = errors.New("mercado pago access token is required")

// Client calls the Mercado Pago payments REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds a client authenticated with the given access token.
func NewClient(accessToken string, opts ...Option) (*Client, error) {
	token := strings.TrimSpace(accessToken)
	if token == "" {
		return nil, errAccessTokenRequired
	}
	c := &Client{
		token:      token,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// NewClientFromConfig applies the configured base URL and timeout.
func NewClientFromConfig(cfg config.MercadoPagoConfig, opts ...Option) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	base := []Option{
		WithBaseURL(cfg.BaseURL),
		WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	return NewClient(cfg.AccessToken, append(base, opts...)...)
}

type Identification struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

type PayerAddress struct {
	ZipCode      string `json:"zip_code,omitempty"`
	StreetName   string `json:"street_name,omitempty"`
	StreetNumber string `json:"street_number,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty"`
	City         string `json:"city,omitempty"`
	FederalUnit  string `json:"federal_unit,omitempty"`
}

type Payer struct {
	Email          string          `json:"email"`
	FirstName      string          `json:"first_name,omitempty"`
	LastName       string          `json:"last_name,omitempty"`
	Identification *Identification `json:"identification,omitempty"`
	Address        *PayerAddress   `json:"address,omitempty"`
}

// CreatePaymentRequest is the body of POST /v1/payments.
type CreatePaymentRequest struct {
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	Description       string          `json:"description"`
	PaymentMethodID   string          `json:"payment_method_id"`
	ExternalReference string          `json:"external_reference"`
	NotificationURL   string          `json:"notification_url,omitempty"`
	Token             string          `json:"token,omitempty"`
	Installments      int             `json:"installments,omitempty"`
	IssuerID          string          `json:"issuer_id,omitempty"`
	Payer             Payer           `json:"payer"`
}

// MarshalJSON sends the amount as a JSON number with two decimals.
func (r CreatePaymentRequest) MarshalJSON() ([]byte, error) {
	type alias CreatePaymentRequest
	return json.Marshal(struct {
		alias
		TransactionAmount json.Number `json:"transaction_amount"`
	}{alias: alias(r), TransactionAmount: json.Number(r.TransactionAmount.StringFixed(2))})
}

// Payment is the subset of the payment resource the service reads.
type Payment struct {
	ID                 int64              `json:"id"`
	Status             string             `json:"status"`
	StatusDetail       string             `json:"status_detail"`
	PaymentMethodID    string             `json:"payment_method_id"`
	ExternalReference  string             `json:"external_reference"`
	TransactionAmount  decimal.Decimal    `json:"transaction_amount"`
	DateApproved       *time.Time         `json:"date_approved"`
	PointOfInteraction PointOfInteraction `json:"point_of_interaction"`
	TransactionDetails TransactionDetails `json:"transaction_details"`
}

// PointOfInteraction carries the pix QR data.
type PointOfInteraction struct {
	TransactionData struct {
		QRCode       string `json:"qr_code"`
		QRCodeBase64 string `json:"qr_code_base64"`
		TicketURL    string `json:"ticket_url"`
	} `json:"transaction_data"`
}

// TransactionDetails carries the boleto URL.
type TransactionDetails struct {
	ExternalResourceURL string `json:"external_resource_url"`
}

// IDString returns the payment id in decimal form.
func (p Payment) IDString() string {
	return strconv.FormatInt(p.ID, 10)
}

// PaymentMethod is one entry of GET /v1/payment_methods.
type PaymentMethod struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	PaymentTypeID string `json:"payment_type_id"`
	Status        string `json:"status"`
	Thumbnail     string `json:"thumbnail,omitempty"`
}

// CreatePayment posts a new payment. idempotencyKey is forwarded as
// X-Idempotency-Key so retried requests do not double charge.
func (c *Client) CreatePayment(ctx context.Context, req CreatePaymentRequest, idempotencyKey string) (*Payment, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "mercado pago client not configured")
	}
	if !req.TransactionAmount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction amount must be positive")
	}
	if strings.TrimSpace(req.PaymentMethodID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method is required")
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal payment request")
	}

	headers := http.Header{}
	if key := strings.TrimSpace(idempotencyKey); key != "" {
		headers.Set("X-Idempotency-Key", key)
	}

	var payment Payment
	if err := c.do(ctx, http.MethodPost, "/v1/payments", bytes.NewReader(payload), headers, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetPayment fetches a payment by gateway id.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "mercado pago client not configured")
	}
	id := strings.TrimSpace(paymentID)
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id must be numeric")
	}
	var payment Payment
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+id, nil, nil, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListPaymentMethods returns the methods enabled for the account.
func (c *Client) ListPaymentMethods(ctx context.Context) ([]PaymentMethod, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "mercado pago client not configured")
	}
	var methods []PaymentMethod
	if err := c.do(ctx, http.MethodGet, "/v1/payment_methods", nil, nil, &methods); err != nil {
		return nil, err
	}
	return methods, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, headers http.Header, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, method, c.buildURL(path), body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build mercado pago request")
	}
	for k, vals := range headers {
		for _, v := range vals {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "execute mercado pago request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return pkgerrors.New(pkgerrors.CodeNotFound, "mercado pago resource not found")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(
			pkgerrors.CodeUpstream,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			"mercado pago request failed",
		)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "decode mercado pago response")
	}
	return nil
}

func (c *Client) buildURL(path string) string {
	return strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}
