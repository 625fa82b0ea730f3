package billing

import "errors"

// Sentinel errors returned (wrapped) by the billing service. Handlers map them
// with errors.Is.
var (
	ErrInvoiceNotFound = errors.New("invoice not found")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrTenantNotFound  = errors.New("tenant not found")
	ErrRoomNotFound    = errors.New("room not found")
	ErrItemNotFound    = errors.New("item not found")

	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrAmountExceedsBalance = errors.New("payment amount exceeds remaining balance")
	ErrPaymentVerified      = errors.New("verified payments cannot be modified")
	ErrInvoiceCancelled     = errors.New("invoice is cancelled")
	ErrInvoiceHasPayments   = errors.New("invoice has recorded payments")
	ErrTotalBelowPaid       = errors.New("invoice total cannot be less than the amount already paid")
	ErrNegativeTotal        = errors.New("discount exceeds rent and charges")
	ErrDuplicateInvoice     = errors.New("invoice already exists for this billing period")
	ErrInvalidPeriod        = errors.New("invalid billing period")
)

var notFound = []error{
	ErrInvoiceNotFound,
	ErrPaymentNotFound,
	ErrTenantNotFound,
	ErrRoomNotFound,
	ErrItemNotFound,
}

// NotFoundCause returns the not-found sentinel wrapped by err, or nil.
func NotFoundCause(err error) error {
	for _, target := range notFound {
		if errors.Is(err, target) {
			return target
		}
	}
	return nil
}
