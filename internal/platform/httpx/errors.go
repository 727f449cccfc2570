package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/quinisports/quinisports/internal/shared"
)

// Messages shown to end users.
const (
	MessageUnknown   = "Hubo un error interno en el servidor"
	MessageDuplicate = "Hubo un error, el email ya se encuentra registrado en el sistema"
)

// RespondError maps domain errors to the envelope. Errors that match no
// sentinel are logged and answered with a generic message.
func RespondError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var verr *shared.ValidationError
	var cerr *shared.ConflictError
	switch {
	case errors.As(err, &verr):
		Fail(w, http.StatusBadRequest, CodeValidation, verr.Message, verr.Fields)
	case errors.Is(err, shared.ErrNoChanges):
		Fail(w, http.StatusBadRequest, CodeValidation, shared.ErrNoChanges.Error(), nil)
	case errors.Is(err, shared.ErrValidation):
		Fail(w, http.StatusBadRequest, CodeValidation, err.Error(), nil)
	case errors.As(err, &cerr):
		Fail(w, http.StatusConflict, CodeConflict, conflictMessage(cerr.Field), nil)
	case errors.Is(err, shared.ErrConflict):
		Fail(w, http.StatusConflict, CodeConflict, conflictMessage(""), nil)
	case errors.Is(err, shared.ErrNotFound):
		Fail(w, http.StatusNotFound, CodeNotFound, "not found", nil)
	case errors.Is(err, shared.ErrUnauthenticated), errors.Is(err, shared.ErrInvalidCredentials), errors.Is(err, shared.ErrUnknownUser):
		Fail(w, http.StatusUnauthorized, CodeUnauthenticated, err.Error(), nil)
	case errors.Is(err, shared.ErrForbidden), errors.Is(err, shared.ErrCSRFTokenMissing), errors.Is(err, shared.ErrCSRFTokenMismatch):
		Fail(w, http.StatusForbidden, CodeForbidden, shared.ErrForbidden.Error(), nil)
	case errors.Is(err, shared.ErrMaintenance):
		Fail(w, http.StatusServiceUnavailable, CodeMaintenanceClosed, err.Error(), nil)
	default:
		if logger != nil {
			logger.Error("request failed",
				slog.String("path", r.URL.Path),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.Any("error", err))
		}
		Fail(w, http.StatusInternalServerError, CodeUnknown, MessageUnknown, nil)
	}
}

func conflictMessage(field string) string {
	if field == "" || field == "email" {
		return MessageDuplicate
	}
	return "Hubo un error, el valor de " + field + " ya se encuentra registrado en el sistema"
}
