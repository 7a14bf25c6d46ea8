package enums

import "fmt"

// PaymentMethodType is the method requested at checkout.
type PaymentMethodType string

const (
	PaymentMethodTypePix        PaymentMethodType = "pix"
	PaymentMethodTypeCreditCard PaymentMethodType = "credit_card"
	PaymentMethodTypeDebitCard  PaymentMethodType = "debit_card"
	PaymentMethodTypeBoleto     PaymentMethodType = "bolbradesco"
	PaymentMethodTypeCard       PaymentMethodType = "card"
)

var validPaymentMethodTypes = []PaymentMethodType{
	PaymentMethodTypePix,
	PaymentMethodTypeCreditCard,
	PaymentMethodTypeDebitCard,
	PaymentMethodTypeBoleto,
	PaymentMethodTypeCard,
}

// String implements fmt.Stringer.
func (p PaymentMethodType) String() string {
	return string(p)
}

// IsValid reports whether the value is known.
func (p PaymentMethodType) IsValid() bool {
	for _, candidate := range validPaymentMethodTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// RequiresCardToken reports whether the gateway needs a tokenised card.
func (p PaymentMethodType) RequiresCardToken() bool {
	switch p {
	case PaymentMethodTypeCreditCard, PaymentMethodTypeDebitCard, PaymentMethodTypeCard:
		return true
	default:
		return false
	}
}

// RequiresCardBrand reports whether the gateway expects the card brand as
// the method id. Square infers the brand from the nonce.
func (p PaymentMethodType) RequiresCardBrand() bool {
	return p == PaymentMethodTypeCreditCard || p == PaymentMethodTypeDebitCard
}

// Gateway returns the gateway that processes this method.
func (p PaymentMethodType) Gateway() PaymentGateway {
	if p == PaymentMethodTypeCard {
		return PaymentGatewaySquare
	}
	return PaymentGatewayMercadoPago
}

// ParsePaymentMethodType converts raw input into a PaymentMethodType.
func ParsePaymentMethodType(value string) (PaymentMethodType, error) {
	for _, candidate := range validPaymentMethodTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method type %q", value)
}
