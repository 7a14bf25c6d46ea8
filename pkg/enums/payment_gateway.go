package enums

import (
	"fmt"
	"strings"
)

// PaymentGateway names the external processor that owns a payment.
type PaymentGateway string

const (
	PaymentGatewayMercadoPago PaymentGateway = "mercadopago"
	PaymentGatewaySquare      PaymentGateway = "square"
)

var validPaymentGateways = []PaymentGateway{
	PaymentGatewayMercadoPago,
	PaymentGatewaySquare,
}

// String implements fmt.Stringer.
func (g PaymentGateway) String() string {
	return string(g)
}

// IsValid reports whether the gateway is supported.
func (g PaymentGateway) IsValid() bool {
	for _, candidate := range validPaymentGateways {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParsePaymentGateway converts raw input (case-insensitive) into a PaymentGateway.
func ParsePaymentGateway(value string) (PaymentGateway, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validPaymentGateways {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment gateway %q", value)
}
