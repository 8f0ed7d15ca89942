package adaptor

import (
	"errors"
	"net/http"

	"cinema-core/internal/apperr"
	"cinema-core/pkg/utils"

	"go.uber.org/zap"
)

// statusFor maps an error kind to its HTTP status. The stale and forged
// checks come first: both wrap ErrStaleOrForgedUpdate and must stay apart.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrForgedVersion):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrStaleVersion):
		return http.StatusPreconditionFailed
	case errors.Is(err, apperr.ErrValidation),
		errors.Is(err, apperr.ErrImmutableField):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrOrphanReference):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrNotFound),
		errors.Is(err, apperr.ErrActivationTargetNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrDuplicateLogin),
		errors.Is(err, apperr.ErrResourceInUse),
		errors.Is(err, apperr.ErrVariantMismatch):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError answers with the status for err. Server faults are
// logged at Error and hidden from the client; the rest are logged at Warn.
func writeServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error("Failed to "+operation,
			zap.Error(err),
			zap.String("operation", operation),
			zap.String("kind", apperr.Kind(err)),
		)
		utils.ResponseInternalError(w, "Internal server error")
		return
	}

	log.Warn(operation+" rejected",
		zap.Error(err),
		zap.String("operation", operation),
		zap.String("kind", apperr.Kind(err)),
	)
	utils.ResponseError(w, status, apperr.Kind(err), err.Error())
}
