// Package response provides common HTTP response helpers.
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	apierrors "github.com/shopmesh/order/pkg/errors"
)

// Envelope is the uniform response body shared by every endpoint.
type Envelope struct {
	Success       bool                `json:"success"`
	Message       string              `json:"message,omitempty"`
	Data          interface{}         `json:"data,omitempty"`
	Errors        map[string][]string `json:"errors,omitempty"`
	Service       string              `json:"service,omitempty"`
	CorrelationID string              `json:"correlation_id"`
}

// WriteSuccess writes a success envelope with the request's correlation id.
func WriteSuccess(w http.ResponseWriter, r *http.Request, status int, message string, data interface{}) {
	writeJSON(w, status, &Envelope{
		Success:       true,
		Message:       message,
		Data:          data,
		CorrelationID: CorrelationIDFromRequest(r),
	})
}

// WriteError writes a structured error response based on common error type.
func WriteError(w http.ResponseWriter, r *http.Request, err *apierrors.Error) {
	if w == nil || err == nil {
		return
	}
	writeJSON(w, err.HTTPStatus(), &Envelope{
		Success:       false,
		Message:       err.Message,
		Errors:        err.Errors,
		Service:       err.Service,
		CorrelationID: CorrelationIDFromRequest(r),
	})
}

// WriteStatusError writes an error envelope with an explicit HTTP status.
func WriteStatusError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, &Envelope{
		Success:       false,
		Message:       message,
		CorrelationID: CorrelationIDFromRequest(r),
	})
}

// WriteErrorCode writes an error response using error code and message.
func WriteErrorCode(w http.ResponseWriter, r *http.Request, code apierrors.Code, message string) {
	WriteError(w, r, apierrors.New(code, message))
}

// AsError coerces any error into the coded form, degrading to INTERNAL.
func AsError(err error) *apierrors.Error {
	var apiErr *apierrors.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return apierrors.New(apierrors.CodeInternal, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
