package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/logging"
	"trade-journal/internal/summarizer"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Data    interface{}  `json:"data,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func ok(w http.ResponseWriter, message string, data interface{}) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

func created(w http.ResponseWriter, message string, data interface{}) {
	writeJSON(w, http.StatusCreated, Envelope{Success: true, Message: message, Data: data})
}

// statusOf maps the error taxonomy onto HTTP status codes.
func statusOf(err error) int {
	switch {
	case apperrors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest
	case apperrors.Is(err, apperrors.ErrUnauthorized), apperrors.Is(err, apperrors.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case apperrors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case apperrors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict
	case apperrors.Is(err, apperrors.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case apperrors.Is(err, apperrors.ErrRateLimited):
		return http.StatusTooManyRequests
	case apperrors.Is(err, apperrors.ErrTimeout):
		return http.StatusGatewayTimeout
	case apperrors.Is(err, apperrors.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

var sentinels = []error{
	apperrors.ErrValidation,
	apperrors.ErrNotFound,
	apperrors.ErrInsufficientData,
	apperrors.ErrTimeout,
	apperrors.ErrServiceUnavailable,
	apperrors.ErrUnauthorized,
	apperrors.ErrInvalidCredentials,
	apperrors.ErrConflict,
	apperrors.ErrRateLimited,
	apperrors.ErrCircuitOpen,
}

// publicMessage picks the text shown to API clients. Internal failures get
// fallback instead of their error chain.
func publicMessage(err error, status int, fallback string) string {
	var dataErr *apperrors.DataError
	var providerErr *apperrors.ProviderError

	switch {
	case status == http.StatusInternalServerError:
		return fallback
	case apperrors.Is(err, apperrors.ErrValidation):
		return "Validation failed"
	case errors.Is(err, summarizer.ErrNotConfigured):
		return "AI analysis is not configured. Add GEMINI_API_KEY (or OPENAI_API_KEY) to your environment."
	case apperrors.As(err, &providerErr):
		switch status {
		case http.StatusTooManyRequests:
			return "AI provider quota exceeded. Please try again later."
		case http.StatusGatewayTimeout:
			return "AI analysis timed out. Please try again."
		default:
			return "AI analysis failed: no model produced a response"
		}
	case apperrors.As(err, &dataErr):
		if apperrors.Is(err, apperrors.ErrCircuitOpen) {
			return "Market data is temporarily unavailable. Please try again shortly."
		}
		return dataErr.Message
	}

	// Wrap and Wrapf produce "context: sentinel"; show the context.
	msg := err.Error()
	for _, s := range sentinels {
		if trimmed := strings.TrimSuffix(msg, ": "+s.Error()); trimmed != msg {
			return trimmed
		}
	}
	return msg
}

func fieldErrors(err error) []FieldError {
	var list apperrors.ValidationErrors
	if apperrors.As(err, &list) {
		out := make([]FieldError, 0, len(list))
		for _, v := range list {
			out = append(out, FieldError{Field: v.Field, Message: v.Message})
		}
		return out
	}
	var single *apperrors.ValidationError
	if apperrors.As(err, &single) {
		return []FieldError{{Field: single.Field, Message: single.Message}}
	}
	return nil
}

// writeError renders err with its mapped status. fallback is the message for
// unexpected failures.
func writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := statusOf(err)
	logger := logging.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Int("status", status).Msg(fallback)
	} else {
		logger.Debug().Err(err).Int("status", status).Msg("Request rejected")
	}

	writeJSON(w, status, Envelope{
		Success: false,
		Message: publicMessage(err, status, fallback),
		Errors:  fieldErrors(err),
	})
}

// decodeJSON reads the request body into dst. Malformed bodies are
// validation errors.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		if apperrors.Is(err, apperrors.ErrValidation) {
			return err
		}
		return apperrors.NewValidationError("body", nil, "Request body must be valid JSON")
	}
	return nil
}
