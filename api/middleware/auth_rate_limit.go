package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// RateLimitStore increments a counter that expires after ttl.
type RateLimitStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Identities an auth policy can count attempts for.
const (
	LimitByIP    = "ip"
	LimitByEmail = "email"
	LimitByCPF   = "cpf"
)

const maxAuthBody = 64 << 10

// AuthRateLimitPolicy caps attempts per identity inside windows aligned to
// the clock: with a 1m window every attempt between 10:04:00 and 10:04:59
// shares one counter. Blocked callers get Retry-After set to the time left
// until the next window opens.
type AuthRateLimitPolicy struct {
	name   string
	window time.Duration
	limits map[string]int
	now    func() time.Time
}

// NewAuthRateLimitPolicy builds a policy. Limits <= 0 disable that identity.
func NewAuthRateLimitPolicy(name string, window time.Duration, limits map[string]int) AuthRateLimitPolicy {
	active := make(map[string]int, len(limits))
	for scope, limit := range limits {
		if limit > 0 {
			active[scope] = limit
		}
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{name: name, window: window, limits: active, now: time.Now}
}

// WithClock returns a copy of the policy that reads time from now.
func (p AuthRateLimitPolicy) WithClock(now func() time.Time) AuthRateLimitPolicy {
	if now != nil {
		p.now = now
	}
	return p
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && len(p.limits) > 0
}

func (p AuthRateLimitPolicy) readsBody() bool {
	return p.limits[LimitByEmail] > 0 || p.limits[LimitByCPF] > 0
}

func (p AuthRateLimitPolicy) key(scope, identity string, windowStart time.Time) string {
	return fmt.Sprintf("rl:%s:%s:%s:%d", p.name, scope, identity, windowStart.Unix())
}

type authIdentity struct {
	scope string
	value string
}

// AuthRateLimit throttles login and signup per client IP and per account
// identity found in the JSON body (email, cpf). Emails and CPFs are hashed
// before they reach redis or the logs.
func AuthRateLimit(policy AuthRateLimitPolicy, store RateLimitStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var identities []authIdentity
			if ip := clientIP(r); ip != "" {
				identities = append(identities, authIdentity{scope: LimitByIP, value: ip})
			}
			if policy.readsBody() {
				body, err := io.ReadAll(io.LimitReader(r.Body, maxAuthBody+1))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
					return
				}
				if len(body) > maxAuthBody {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "request body too large"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				identities = append(identities, bodyIdentities(body)...)
			}

			now := policy.now()
			windowStart := now.Truncate(policy.window)
			for _, id := range identities {
				limit, ok := policy.limits[id.scope]
				if !ok {
					continue
				}
				count, err := store.IncrWithTTL(ctx, policy.key(id.scope, id.value, windowStart), policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if count > int64(limit) {
					retryAfter := windowStart.Add(policy.window).Sub(now)
					rejectAttempt(ctx, logg, w, policy, id, count, limit, retryAfter)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rejectAttempt(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy AuthRateLimitPolicy, id authIdentity, count int64, limit int, retryAfter time.Duration) {
	seconds := int(math.Ceil(retryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	if logg != nil {
		ctx = logg.WithFields(ctx, map[string]any{
			"policy":              policy.name,
			"scope":               id.scope,
			"identity":            id.value,
			"attempts":            count,
			"limit":               limit,
			"retry_after_seconds": seconds,
		})
		logg.Warn(ctx, "auth.rate_limited")
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later").
		WithDetails(map[string]any{"retry_after_seconds": seconds}))
}

// bodyIdentities pulls the account identifiers login and signup bodies carry.
func bodyIdentities(body []byte) []authIdentity {
	var payload struct {
		Email string `json:"email"`
		CPF   string `json:"cpf"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}
	var out []authIdentity
	if email := strings.ToLower(strings.TrimSpace(payload.Email)); email != "" {
		out = append(out, authIdentity{scope: LimitByEmail, value: hashIdentity(email)})
	}
	if cpf := cpfDigits(payload.CPF); cpf != "" {
		out = append(out, authIdentity{scope: LimitByCPF, value: hashIdentity(cpf)})
	}
	return out
}

func cpfDigits(raw string) string {
	var b strings.Builder
	for _, c := range raw {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}

func hashIdentity(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:16])
}

// clientIP prefers the first valid address in X-Forwarded-For, then
// X-Real-IP, then the socket peer.
func clientIP(r *http.Request) string {
	for _, part := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
			return ip.String()
		}
	}
	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
		return ip.String()
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
