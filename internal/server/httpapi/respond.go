package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/examvault/internal/common"
	"github.com/dmitrijs2005/examvault/internal/logging"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps the service error taxonomy onto HTTP.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrAccessDenied):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrCancelled), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error": "..."}. Validation reasons are shown
// to the client; storage and unknown errors are logged and rendered as a
// generic message so no paths or driver detail leak.
func writeError(ctx context.Context, w http.ResponseWriter, log logging.Logger, err error) {
	status := statusFor(err)

	var msg string
	var ve *common.ValidationError
	switch {
	case errors.As(err, &ve):
		msg = ve.Reason
	case status == http.StatusUnauthorized:
		msg = "Invalid password"
	case status == http.StatusNotFound:
		msg = "File not found"
	case status == http.StatusRequestTimeout:
		msg = "Request cancelled"
	default:
		log.Error(ctx, "request failed", "err", err)
		msg = "internal error"
	}

	writeJSON(w, status, errorResponse{Error: msg})
}
