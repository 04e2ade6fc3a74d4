// Package handlers implements the HTTP surface. Every response uses the
// success envelope: {"success":true,"data":...} or
// {"success":false,"error":{"code","message",...}}.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/veritaslearn/contributor-engine/pkg/apperrors"
)

// ApiResponse is the success envelope.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Cached  bool   `json:"cached,omitempty"`
	Model   string `json:"model,omitempty"`
}

// ErrorBody is the structured error payload inside the failure envelope.
type ErrorBody struct {
	Code      string     `json:"code"`
	Message   string     `json:"message"`
	Limit     int        `json:"limit,omitempty"`
	Remaining *int       `json:"remaining,omitempty"`
	ResetAt   *time.Time `json:"resetAt,omitempty"`
}

type errorEnvelope struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

// WriteJSON writes any payload with the given status.
func WriteJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteData writes a success envelope around data.
func WriteData(w http.ResponseWriter, statusCode int, data any) {
	WriteJSON(w, statusCode, ApiResponse{Success: true, Data: data})
}

// ErrorResponse writes a failure envelope.
func ErrorResponse(w http.ResponseWriter, statusCode int, code, message string) {
	WriteJSON(w, statusCode, errorEnvelope{Error: ErrorBody{Code: code, Message: message}})
}

// RateLimitedResponse writes the 429 envelope with quota details.
func RateLimitedResponse(w http.ResponseWriter, rle *apperrors.RateLimitError) {
	zero := 0
	resetAt := rle.ResetAt
	WriteJSON(w, http.StatusTooManyRequests, errorEnvelope{Error: ErrorBody{
		Code:      "RATE_LIMIT_EXCEEDED",
		Message:   "daily limit reached for " + rle.Feature,
		Limit:     rle.Limit,
		Remaining: &zero,
		ResetAt:   &resetAt,
	}})
}

// HandleServiceError maps a service error onto the wire taxonomy. Unknown
// errors become an opaque 500; their detail goes to the log only.
func HandleServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	if rle, ok := apperrors.IsRateLimit(err); ok {
		RateLimitedResponse(w, rle)
		return
	}
	if ve, ok := apperrors.IsValidation(err); ok {
		ErrorResponse(w, http.StatusBadRequest, "VALIDATION_ERROR", ve.Error())
		return
	}

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		ErrorResponse(w, http.StatusNotFound, "NOT_FOUND", "contribution not found")
	case errors.Is(err, apperrors.ErrForbidden):
		ErrorResponse(w, http.StatusForbidden, "FORBIDDEN", "not permitted")
	case errors.Is(err, apperrors.ErrInvalidReviewAction):
		ErrorResponse(w, http.StatusBadRequest, "INVALID_REVIEW_ACTION", err.Error())
	case errors.Is(err, apperrors.ErrInvalidAnnotationRange):
		ErrorResponse(w, http.StatusBadRequest, "INVALID_ANNOTATION_RANGE", err.Error())
	case errors.Is(err, apperrors.ErrEmptySuggestions):
		ErrorResponse(w, http.StatusBadRequest, "EMPTY_SUGGESTIONS", err.Error())
	case errors.Is(err, apperrors.ErrProviderNotConfigured):
		ErrorResponse(w, http.StatusServiceUnavailable, "PROVIDER_NOT_CONFIGURED", "AI provider not configured")
	case errors.Is(err, apperrors.ErrSourceDiscoveryUnavailable):
		ErrorResponse(w, http.StatusServiceUnavailable, "SOURCE_DISCOVERY_UNAVAILABLE", "source discovery is temporarily unavailable")
	default:
		logger.Error("unhandled service error", zap.Error(err))
		ErrorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
	}
}

// DecodeBody decodes a JSON request body into dst. Returns false after
// writing the 400 response when the body is malformed.
func DecodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON")
		return false
	}
	return true
}
