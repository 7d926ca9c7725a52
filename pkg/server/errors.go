package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"mercator-hq/concierge/pkg/sessions"
)

// Error types returned in ErrorResponse.
const (
	ErrorTypeInvalidRequest = "invalid_request_error"
	ErrorTypeNotFound       = "not_found"
	ErrorTypeTooLarge       = "request_too_large"
	ErrorTypeServer         = "server_error"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains detailed error information.
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param,omitempty"`
}

// RequestError represents a request parsing or validation error.
type RequestError struct {
	Status  int
	Type    string
	Message string
	Param   string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return e.Message
}

func badRequest(param, format string, args ...any) *RequestError {
	return &RequestError{
		Status:  http.StatusBadRequest,
		Type:    ErrorTypeInvalidRequest,
		Message: fmt.Sprintf(format, args...),
		Param:   param,
	}
}

// statusFor maps an error to an HTTP status and response body.
func statusFor(err error) (int, *ErrorResponse) {
	var reqErr *RequestError
	switch {
	case errors.As(err, &reqErr):
		return reqErr.Status, &ErrorResponse{Error: ErrorDetail{
			Message: reqErr.Message,
			Type:    reqErr.Type,
			Param:   reqErr.Param,
		}}
	case errors.Is(err, sessions.ErrNotFound):
		return http.StatusNotFound, &ErrorResponse{Error: ErrorDetail{
			Message: err.Error(),
			Type:    ErrorTypeNotFound,
		}}
	case errors.Is(err, sessions.ErrReviewerRequired):
		return http.StatusBadRequest, &ErrorResponse{Error: ErrorDetail{
			Message: err.Error(),
			Type:    ErrorTypeInvalidRequest,
			Param:   "reviewer",
		}}
	default:
		return http.StatusInternalServerError, &ErrorResponse{Error: ErrorDetail{
			Message: "An internal error occurred. Please try again later.",
			Type:    ErrorTypeServer,
		}}
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed",
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, status, body)
}

// decodeJSON reads a size-limited JSON body into v.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if s.cfg.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &RequestError{
				Status:  http.StatusRequestEntityTooLarge,
				Type:    ErrorTypeTooLarge,
				Message: fmt.Sprintf("request body exceeds maximum size of %d bytes", tooLarge.Limit),
				Param:   "body",
			}
		}
		return badRequest("body", "invalid JSON: %v", err)
	}
	return nil
}
