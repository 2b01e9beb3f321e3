package errors

import (
	"fmt"
	"net/http"
)

type HTTPError interface {
	error
	StatusCode() int
}

type apiError struct {
	msg  string
	code int
}

func (e *apiError) Error() string   { return e.msg }
func (e *apiError) StatusCode() int { return e.code }

var (
	ErrInvalidParam   = &apiError{msg: "invalid parameter", code: http.StatusBadRequest}
	ErrNotFound       = &apiError{msg: "not found", code: http.StatusNotFound}
	ErrUnknownCache   = &apiError{msg: "unknown collection", code: http.StatusNotFound}
	ErrRequestTimeout = &apiError{msg: "request timed out", code: http.StatusGatewayTimeout}
	ErrInternal       = &apiError{msg: "internal error", code: http.StatusInternalServerError}
)

// UpstreamError is a non-success status or transport failure from a source.
// Status is zero for transport failures.
type UpstreamError struct {
	Source string
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: upstream returned status %d", e.Source, e.Status)
	}
	return fmt.Sprintf("%s: upstream request failed: %v", e.Source, e.Err)
}

func (e *UpstreamError) Unwrap() error   { return e.Err }
func (e *UpstreamError) StatusCode() int { return http.StatusBadGateway }

// DecodeError is a malformed JSON document or hex field.
type DecodeError struct {
	Field string
	Value string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("decode %s %q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("decode %s: %v", e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error   { return e.Err }
func (e *DecodeError) StatusCode() int { return http.StatusBadGateway }

// RpcError is a well-formed JSON-RPC error envelope.
type RpcError struct {
	Code    int
	Message string
}

func (e *RpcError) Error() string {
	return fmt.Sprintf("RPC error: %s (%d)", e.Message, e.Code)
}

func (e *RpcError) StatusCode() int { return http.StatusBadGateway }
