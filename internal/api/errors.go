package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// ErrorCode is a machine-readable error identifier.
type ErrorCode string

const (
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Code      ErrorCode `json:"code"`
	RequestID string    `json:"request_id,omitempty"`
}

func writeErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, code ErrorCode, message string) {
	resp := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    code,
	}
	if reqID := middleware.GetReqID(r.Context()); reqID != "" {
		resp.RequestID = reqID
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

func UnauthorizedError(w http.ResponseWriter, r *http.Request, message string) {
	writeErrorResponse(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

func ForbiddenError(w http.ResponseWriter, r *http.Request, message string) {
	writeErrorResponse(w, r, http.StatusForbidden, ErrCodeForbidden, message)
}

func NotFoundError(w http.ResponseWriter, r *http.Request, message string) {
	writeErrorResponse(w, r, http.StatusNotFound, ErrCodeNotFound, message)
}

func InternalError(w http.ResponseWriter, r *http.Request, message string) {
	writeErrorResponse(w, r, http.StatusInternalServerError, ErrCodeInternal, message)
}
