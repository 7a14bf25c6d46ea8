package enums

import "strings"

// PaymentStatus mirrors whatever status string the gateway reports. Only the
// initial local value is owned by this service; everything else is copied
// verbatim from the gateway.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"

	// Mercado Pago vocabulary.
	PaymentStatusApproved    PaymentStatus = "approved"
	PaymentStatusAuthorized  PaymentStatus = "authorized"
	PaymentStatusInProcess   PaymentStatus = "in_process"
	PaymentStatusInMediation PaymentStatus = "in_mediation"
	PaymentStatusRejected    PaymentStatus = "rejected"
	PaymentStatusCancelled   PaymentStatus = "cancelled"
	PaymentStatusRefunded    PaymentStatus = "refunded"
	PaymentStatusChargeback  PaymentStatus = "charged_back"

	// Square vocabulary.
	PaymentStatusSquarePending   PaymentStatus = "PENDING"
	PaymentStatusSquareApproved  PaymentStatus = "APPROVED"
	PaymentStatusSquareCompleted PaymentStatus = "COMPLETED"
	PaymentStatusSquareCanceled  PaymentStatus = "CANCELED"
	PaymentStatusSquareFailed    PaymentStatus = "FAILED"
)

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsPending reports whether the payment has not been reconciled yet.
func (p PaymentStatus) IsPending() bool {
	return strings.EqualFold(string(p), string(PaymentStatusPending))
}

// UnsettledPaymentStatuses lists the statuses a gateway may still move
// forward on its own.
func UnsettledPaymentStatuses() []PaymentStatus {
	return []PaymentStatus{
		PaymentStatusPending,
		PaymentStatusAuthorized,
		PaymentStatusInProcess,
		PaymentStatusInMediation,
		PaymentStatusSquarePending,
		PaymentStatusSquareApproved,
	}
}

// IsApprovedFor reports whether the status is the gateway's approval value.
func (p PaymentStatus) IsApprovedFor(gateway PaymentGateway) bool {
	switch gateway {
	case PaymentGatewaySquare:
		return p == PaymentStatusSquareCompleted
	default:
		return p == PaymentStatusApproved
	}
}
