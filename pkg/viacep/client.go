package viacep

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	defaultBaseURL        = "https://viacep.com.br"
	defaultTimeout        = 10 * time.Second
	responseBodyReadLimit = 512
	cacheScope            = "viacep"
)

var nonDigitRe = regexp.MustCompile(`\D`)

// Address is the normalized postal lookup result.
type Address struct {
	PostalCode   string `json:"cep"`
	Street       string `json:"logradouro"`
	Complement   string `json:"complemento"`
	Neighborhood string `json:"bairro"`
	City         string `json:"localidade"`
	State        string `json:"uf"`
}

// Cache stores lookups. *redis.Client satisfies it.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	CacheKey(scope, id string) string
}

// Client resolves Brazilian postal codes through the ViaCEP REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cache      Cache
	cacheTTL   time.Duration
	logg       *logger.Logger
}

// Option configures optional client behavior.
type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithCache enables result caching. A zero ttl disables it.
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		c.logg = logg
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// NormalizeCEP strips formatting and returns the 8 digit postal code.
func NormalizeCEP(raw string) (string, error) {
	digits := nonDigitRe.ReplaceAllString(raw, "")
	if len(digits) != 8 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "cep must have 8 digits")
	}
	return digits, nil
}

// Lookup resolves cep. Unknown postal codes return NotFound; transport and
// decoding failures return Upstream.
func (c *Client) Lookup(ctx context.Context, cep string) (*Address, error) {
	digits, err := NormalizeCEP(cep)
	if err != nil {
		return nil, err
	}

	if addr, ok := c.fromCache(ctx, digits); ok {
		return addr, nil
	}

	url := fmt.Sprintf("%s/ws/%s/json/", strings.TrimRight(c.baseURL, "/"), digits)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build viacep request")
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "execute viacep request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusBadRequest {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cep rejected by postal lookup")
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "viacep request failed")
	}

	var apiResp struct {
		Address
		Erro any `json:"erro"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "decode viacep response")
	}
	// viacep answers 200 with {"erro": true} (or "true") for unknown codes
	if apiResp.Erro != nil && fmt.Sprint(apiResp.Erro) == "true" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cep not found")
	}

	addr := apiResp.Address
	c.toCache(ctx, digits, &addr)
	return &addr, nil
}

func (c *Client) fromCache(ctx context.Context, cep string) (*Address, bool) {
	if c.cache == nil || c.cacheTTL <= 0 {
		return nil, false
	}
	var addr Address
	found, err := c.cache.GetJSON(ctx, c.cache.CacheKey(cacheScope, cep), &addr)
	if err != nil {
		c.warn(ctx, "viacep cache read failed", err)
		return nil, false
	}
	if !found {
		return nil, false
	}
	return &addr, true
}

func (c *Client) toCache(ctx context.Context, cep string, addr *Address) {
	if c.cache == nil || c.cacheTTL <= 0 {
		return
	}
	if err := c.cache.SetJSON(ctx, c.cache.CacheKey(cacheScope, cep), addr, c.cacheTTL); err != nil {
		c.warn(ctx, "viacep cache write failed", err)
	}
}

func (c *Client) warn(ctx context.Context, msg string, err error) {
	if c.logg == nil {
		return
	}
	c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), msg)
}
