package payments

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/square"
)

const squareWebhookScope = "square-webhook"

// WebhookInput is one notification as received over HTTP.
type WebhookInput struct {
	Gateway   enums.PaymentGateway
	Body      []byte
	QueryID   string
	QueryType string
	Signature string
}

type mercadoPagoNotification struct {
	ID     json.RawMessage `json:"id"`
	Type   string          `json:"type"`
	Topic  string          `json:"topic"`
	Action string          `json:"action"`
	Data   struct {
		ID json.RawMessage `json:"id"`
	} `json:"data"`
}

type squareNotification struct {
	EventID string `json:"event_id"`
	Type    string `json:"type"`
	Data    struct {
		Type   string `json:"type"`
		ID     string `json:"id"`
		Object struct {
			Payment *struct {
				ID string `json:"id"`
			} `json:"payment"`
		} `json:"object"`
	} `json:"data"`
}

// HandleWebhook extracts the gateway payment id from a notification and
// reconciles it. Notifications without a usable id succeed without effect.
func (s *service) HandleWebhook(ctx context.Context, in WebhookInput) (*ReconcileResult, error) {
	switch in.Gateway {
	case enums.PaymentGatewayMercadoPago:
		id, ok := mercadoPagoPaymentID(in)
		if !ok {
			return s.ignored(ctx, in.Gateway, SourceWebhook, "notification has no payment id"), nil
		}
		return s.Reconcile(ctx, in.Gateway, id, SourceWebhook)
	case enums.PaymentGatewaySquare:
		return s.handleSquare(ctx, in)
	default:
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unsupported gateway %q", in.Gateway)
	}
}

func (s *service) handleSquare(ctx context.Context, in WebhookInput) (*ReconcileResult, error) {
	if err := square.VerifyWebhookSignature(ctx, s.squareKey, s.squareURL, in.Signature, in.Body); err != nil {
		s.metrics.IncReconcile(in.Gateway.String(), SourceWebhook, metrics.WebhookFailed)
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid square signature")
	}

	var event squareNotification
	if err := json.Unmarshal(in.Body, &event); err != nil {
		return s.ignored(ctx, in.Gateway, SourceWebhook, "unparseable notification"), nil
	}
	id := strings.TrimSpace(event.Data.ID)
	if event.Data.Object.Payment != nil && strings.TrimSpace(event.Data.Object.Payment.ID) != "" {
		id = strings.TrimSpace(event.Data.Object.Payment.ID)
	}
	if id == "" || (event.Data.Type != "" && !strings.EqualFold(event.Data.Type, "payment")) {
		return s.ignored(ctx, in.Gateway, SourceWebhook, "notification has no payment id"), nil
	}

	eventID := strings.TrimSpace(event.EventID)
	if s.guard != nil && eventID != "" {
		seen, err := s.guard.CheckAndMark(ctx, squareWebhookScope, eventID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check webhook idempotency")
		}
		if seen {
			s.metrics.IncReconcile(in.Gateway.String(), SourceWebhook, metrics.WebhookUnchanged)
			return &ReconcileResult{Outcome: metrics.WebhookUnchanged}, nil
		}
	}

	result, err := s.Reconcile(ctx, in.Gateway, id, SourceWebhook)
	if err != nil && s.guard != nil && eventID != "" {
		if releaseErr := s.guard.Release(ctx, squareWebhookScope, eventID); releaseErr != nil {
			s.logg.Error(ctx, "payment.webhook_guard_release_failed", releaseErr)
		}
	}
	return result, err
}

func mercadoPagoPaymentID(in WebhookInput) (string, bool) {
	var note mercadoPagoNotification
	if len(in.Body) > 0 {
		if err := json.Unmarshal(in.Body, &note); err != nil {
			note = mercadoPagoNotification{}
		}
	}
	kind := firstNonEmpty(note.Type, note.Topic, in.QueryType)
	if kind != "" && !strings.EqualFold(kind, "payment") {
		return "", false
	}
	id := firstNonEmpty(rawID(note.Data.ID), rawID(note.ID), in.QueryID)
	return id, id != ""
}

// rawID accepts ids sent either as JSON strings or numbers.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return strings.TrimSpace(asString)
	}
	var asNumber json.Number
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return asNumber.String()
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
