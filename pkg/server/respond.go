package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/hashgraph-online/device-anchor-go/pkg/shared"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func statusFor(code shared.ErrorCode) int {
	switch code {
	case shared.ErrorCodeValidation:
		return http.StatusBadRequest
	case shared.ErrorCodeAuthentication:
		return http.StatusUnauthorized
	case shared.ErrorCodeConflict:
		return http.StatusConflict
	case shared.ErrorCodeNotFound:
		return http.StatusNotFound
	case shared.ErrorCodeTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps typed errors to a status. Internal details of server-side
// failures are logged, not returned.
func writeError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	code := shared.CodeOf(err)
	status := statusFor(code)

	message := err.Error()
	var typed *shared.Error
	if errors.As(err, &typed) && status >= http.StatusInternalServerError {
		message = typed.Message
	}

	event := logger.Warn()
	switch {
	case code == shared.ErrorCodeFatalOperator:
		event = logger.WithLevel(zerolog.FatalLevel)
	case status >= http.StatusInternalServerError:
		event = logger.Error()
	}
	event.Err(err).Str("code", string(code)).Int("status", status).Msg("request failed")

	if code == shared.ErrorCodeInternal {
		message = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: message, Code: string(code)})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	decoder := json.NewDecoder(body)
	if err := decoder.Decode(target); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return shared.NewValidationError(fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		}
		if errors.Is(err, io.EOF) {
			return shared.NewValidationError("request body is required")
		}
		return shared.NewValidationError(fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}
