package utils

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorKind classifies why a ledger operation was rejected.
type ErrorKind string

const (
	KindNotFound   ErrorKind = "NotFound"
	KindValidation ErrorKind = "Validation"
	KindConflict   ErrorKind = "Conflict"
	KindInvariant  ErrorKind = "Invariant"
	KindInfra      ErrorKind = "Infra"
	KindForbidden  ErrorKind = "Forbidden"
	KindUnscoped   ErrorKind = "Unscoped"
)

// LedgerError is returned by every ledger service. Code is stable and
// lets callers tell "payment exceeds balance" apart from "invoice not found".
type LedgerError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Field   string
	Err     error
}

func (e *LedgerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LedgerError) Unwrap() error { return e.Err }

func NotFound(code, msg string) error {
	return &LedgerError{Kind: KindNotFound, Code: code, Message: msg}
}

func Validation(code, field, msg string) error {
	return &LedgerError{Kind: KindValidation, Code: code, Field: field, Message: msg}
}

func Conflict(code, msg string, cause error) error {
	return &LedgerError{Kind: KindConflict, Code: code, Message: msg, Err: cause}
}

func Invariant(code, msg string, cause error) error {
	return &LedgerError{Kind: KindInvariant, Code: code, Message: msg, Err: cause}
}

func Infra(msg string, cause error) error {
	return &LedgerError{Kind: KindInfra, Code: "storage_unavailable", Message: msg, Err: cause}
}

func Forbidden(code, msg string) error {
	return &LedgerError{Kind: KindForbidden, Code: code, Message: msg}
}

func Unscoped(msg string) error {
	return &LedgerError{Kind: KindUnscoped, Code: "missing_tenant", Message: msg}
}

// KindOf returns the kind of err, or KindInfra for anything unclassified.
func KindOf(err error) ErrorKind {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindInfra
}

// CodeOf returns the stable code of err, or "" when err is not a LedgerError.
func CodeOf(err error) string {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

// IsKind reports whether err is a LedgerError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var le *LedgerError
	return errors.As(err, &le) && le.Kind == kind
}

// ErrorResponse defines the structure of error responses
type ErrorResponse struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Code    string `json:"code,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Field   string `json:"field,omitempty"`
}

// HandleErrors is a middleware to catch panics and return structured errors
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				Logger := GetLogger()
				Logger.Error("Unhandled panic", zap.Any("error", err))

				c.JSON(http.StatusInternalServerError, ErrorResponse{
					Message: "Internal Server Error",
					Details: "An unexpected error occurred. Please try again later.",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// StatusFor maps an error kind onto an HTTP status.
func StatusFor(kind ErrorKind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict, KindInvariant:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindUnscoped:
		return http.StatusUnauthorized
	default:
		return http.StatusServiceUnavailable
	}
}

// LedgerErrorJSON writes a ledger error with its kind and code.
func LedgerErrorJSON(c *gin.Context, err error) {
	var le *LedgerError
	if !errors.As(err, &le) {
		GetLogger().Error("unclassified ledger error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Internal Server Error", Kind: string(KindInfra)})
		return
	}
	status := StatusFor(le.Kind)
	if status >= http.StatusInternalServerError {
		GetLogger().Error(le.Message, zap.String("code", le.Code), zap.Error(le.Err))
	} else {
		GetLogger().Debug(le.Message, zap.String("code", le.Code), zap.String("kind", string(le.Kind)))
	}
	resp := ErrorResponse{Message: le.Message, Code: le.Code, Kind: string(le.Kind), Field: le.Field}
	if le.Err != nil && status < http.StatusInternalServerError {
		resp.Details = le.Err.Error()
	}
	c.JSON(status, resp)
}
