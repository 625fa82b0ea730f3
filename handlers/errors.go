package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/satheeshds/roomrent/billing"
	"github.com/satheeshds/roomrent/db"
)

// Business rule violations reported as 400.
var badRequestErrors = []error{
	errRoomFull,
	errRoomUnavailable,
	errTenantMovedOut,
	errDefaultLanguage,
	errSystemSetting,
	errWrongPassword,
	errLastAdmin,
	billing.ErrInvalidAmount,
	billing.ErrAmountExceedsBalance,
	billing.ErrPaymentVerified,
	billing.ErrInvoiceCancelled,
	billing.ErrInvoiceHasPayments,
	billing.ErrTotalBelowPaid,
	billing.ErrNegativeTotal,
	billing.ErrInvalidPeriod,
}

// writeServiceError maps billing and database errors onto HTTP statuses.
// what names the resource in not-found and conflict messages.
func writeServiceError(w http.ResponseWriter, r *http.Request, what string, err error) {
	if target := billing.NotFoundCause(err); target != nil {
		writeError(w, http.StatusNotFound, target.Error(), err.Error())
		return
	}
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, what+" not found")
		return
	}
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			writeError(w, http.StatusBadRequest, target.Error(), err.Error())
			return
		}
	}
	switch {
	case errors.Is(err, billing.ErrDuplicateInvoice), db.IsUniqueViolation(err):
		writeError(w, http.StatusConflict, what+" already exists", err.Error())
	case db.IsForeignKeyViolation(err):
		writeError(w, http.StatusConflict, what+" is still referenced by other records", db.ConstraintName(err))
	case db.IsCheckViolation(err):
		writeError(w, http.StatusBadRequest, "value rejected by constraint", db.ConstraintName(err))
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
