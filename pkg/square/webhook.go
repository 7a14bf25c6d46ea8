package square

import (
	"context"
	"errors"
	"strings"

	sq "github.com/square/square-go-sdk"
	sqwebhooks "github.com/square/square-go-sdk/webhooks/client"
)

// SignatureHeader carries base64(HMAC-SHA256(key, notification url + body)).
const SignatureHeader = "X-Square-Hmacsha256-Signature"

var errEmptyWebhookBody = errors.New("square webhook body is empty")

// VerifyWebhookSignature checks a notification signature through the SDK
// verifier. The SDK accepts empty bodies unconditionally, so they are
// rejected here.
func VerifyWebhookSignature(ctx context.Context, signatureKey, notificationURL, signature string, body []byte) error {
	if len(body) == 0 {
		return errEmptyWebhookBody
	}
	return sqwebhooks.NewClient().VerifySignature(ctx, &sq.VerifySignatureRequest{
		RequestBody:     string(body),
		SignatureHeader: strings.TrimSpace(signature),
		SignatureKey:    signatureKey,
		NotificationURL: notificationURL,
	})
}
