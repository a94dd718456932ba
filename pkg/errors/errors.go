// Package errors 定义统一错误码
package errors

import (
	"fmt"
	"net/http"
)

// Code 错误码
type Code string

// 错误码定义
const (
	CodeOK      Code = "OK"
	CodeUnknown Code = "UNKNOWN"

	// 请求 (1xxx)
	CodeValidationFailed Code = "VALIDATION_FAILED"
	CodeTokenRequired    Code = "TOKEN_REQUIRED"
	CodeNotFound         Code = "NOT_FOUND"
	CodeOrderNotFound    Code = "ORDER_NOT_FOUND"

	// 业务 (2xxx)
	CodeInsufficientStock Code = "INSUFFICIENT_STOCK"

	// 依赖 (3xxx)
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
	CodeTimeout            Code = "TIMEOUT"

	// 系统 (9xxx)
	CodeInternal Code = "INTERNAL"
)

// Error 业务错误
type Error struct {
	Code          Code                `json:"code"`
	Message       string              `json:"message"`
	Service       string              `json:"service,omitempty"`
	Errors        map[string][]string `json:"errors,omitempty"`
	Retryable     bool                `json:"retryable"`
	CorrelationID string              `json:"correlation_id,omitempty"`
}

func (e *Error) Error() string {
	if e.Service != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Service, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// New 创建错误
func New(code Code, message string) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Retryable: isRetryable(code),
	}
}

// Newf 创建格式化错误
func Newf(code Code, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// NewService creates a dependency failure carrying the failing service name.
func NewService(service, message string) *Error {
	e := New(CodeServiceUnavailable, message)
	e.Service = service
	return e
}

// NewValidation creates a validation failure with a field-keyed error map.
func NewValidation(fieldErrors map[string][]string) *Error {
	e := New(CodeValidationFailed, "Validation failed")
	e.Errors = fieldErrors
	return e
}

// WithCorrelationID 添加关联 ID
func (e *Error) WithCorrelationID(correlationID string) *Error {
	e.CorrelationID = correlationID
	return e
}

// HTTPStatus 返回对应的 HTTP 状态码
func (e *Error) HTTPStatus() int {
	return httpStatus(e.Code)
}

// isRetryable 判断是否可重试
func isRetryable(code Code) bool {
	switch code {
	case CodeServiceUnavailable, CodeTimeout:
		return true
	default:
		return false
	}
}

// httpStatus 错误码对应的 HTTP 状态码
func httpStatus(code Code) int {
	switch code {
	case CodeOK:
		return http.StatusOK
	case CodeInsufficientStock:
		return http.StatusBadRequest
	case CodeTokenRequired:
		return http.StatusUnauthorized
	case CodeNotFound, CodeOrderNotFound:
		return http.StatusNotFound
	case CodeValidationFailed:
		return http.StatusUnprocessableEntity
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeInternal, CodeUnknown:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// 预定义错误
var (
	ErrTokenRequired = New(CodeTokenRequired, "Authorization token required")
	ErrOrderNotFound = New(CodeOrderNotFound, "Order not found")
)
