// Package gwerrs defines the stable, distinguishable error taxonomy shared
// by every layer of the gateway client. Callers match on Kind, never on the
// error text, so that the wire-level details of what went wrong can change
// without breaking switch statements in consuming code.
package gwerrs

import (
	"errors"
	"fmt"
)

// Kind identifies a stable error category. All concrete error types in this
// package implement Kinded, so a caller can do:
//
//	var ke gwerrs.Kinded
//	if errors.As(err, &ke) { switch ke.Kind() { ... } }
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidTokenClass
	KindInvalidGatewayPublicKey
	KindBase64
	KindInvalidPadding
	KindPayloadTooLarge
	KindCrypto
	KindProtocol
	KindTicketExhausted
	KindHTTP
	KindGateway
)

func (k Kind) String() string {
	switch k {
	case KindInvalidTokenClass:
		return "invalid_token_class"
	case KindInvalidGatewayPublicKey:
		return "invalid_gateway_public_key"
	case KindBase64:
		return "base64"
	case KindInvalidPadding:
		return "invalid_padding"
	case KindPayloadTooLarge:
		return "payload_too_large"
	case KindCrypto:
		return "crypto"
	case KindProtocol:
		return "protocol"
	case KindTicketExhausted:
		return "ticket_exhausted"
	case KindHTTP:
		return "http"
	case KindGateway:
		return "gateway"
	default:
		return "unknown"
	}
}

// Kinded is implemented by every error type in this package.
type Kinded interface {
	error
	Kind() Kind
}

// simpleError is a sentinel-style error carrying a fixed kind and a free-form
// reason string. It never leaks which specific internal check produced it
// beyond the short reason, per the propagation policy in the spec.
type simpleError struct {
	kind   Kind
	reason string
}

func (e *simpleError) Error() string {
	if e.reason == "" {
		return e.kind.String()
	}
	return fmt.Sprintf("%s: %s", e.kind.String(), e.reason)
}

func (e *simpleError) Kind() Kind { return e.kind }

func newSimple(k Kind, reason string) *simpleError {
	return &simpleError{kind: k, reason: reason}
}

// InvalidTokenClass reports that a size-class string did not match any
// known variant.
func InvalidTokenClass(reason string) error { return newSimple(KindInvalidTokenClass, reason) }

// InvalidGatewayPublicKey reports a malformed gateway public key.
func InvalidGatewayPublicKey(reason string) error {
	return newSimple(KindInvalidGatewayPublicKey, reason)
}

// Base64 reports a base64 decode failure.
func Base64(reason string) error { return newSimple(KindBase64, reason) }

// InvalidPadding reports a padding-frame validation failure.
func InvalidPadding(reason string) error { return newSimple(KindInvalidPadding, reason) }

// Crypto reports an authenticated-encryption or key-agreement failure. Per
// the propagation policy, the reason is short and never discloses which of
// the several possible checks (tag, AAD, echoed ephemeral, version, class)
// actually failed.
func Crypto(reason string) error { return newSimple(KindCrypto, reason) }

// Protocol reports a malformed plaintext payload (bad JSON, wrong shape).
func Protocol(reason string) error { return newSimple(KindProtocol, reason) }

// TicketExhausted reports that no ticket could be produced for a class.
func TicketExhausted(reason string) error { return newSimple(KindTicketExhausted, reason) }

// PayloadTooLargeError reports that a plaintext exceeded a padding target.
type PayloadTooLargeError struct {
	Actual int
	Limit  int
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("payload_too_large: actual=%d limit=%d", e.Actual, e.Limit)
}

func (e *PayloadTooLargeError) Kind() Kind { return KindPayloadTooLarge }

// NewPayloadTooLarge constructs a PayloadTooLargeError.
func NewPayloadTooLarge(actual, limit int) error {
	return &PayloadTooLargeError{Actual: actual, Limit: limit}
}

// HTTPError reports a non-2xx HTTP response that did not decrypt into a
// recognized structured gateway error.
type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http: unexpected status %d", e.StatusCode)
}

func (e *HTTPError) Kind() Kind { return KindHTTP }

// NewHTTPError constructs an HTTPError.
func NewHTTPError(statusCode int) error { return &HTTPError{StatusCode: statusCode} }

// GatewayError reports a structured {kind:"err"} payload returned by the
// gateway itself.
type GatewayError struct {
	Code    string
	Message string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway error %s: %s", e.Code, e.Message)
}

func (e *GatewayError) Kind() Kind { return KindGateway }

// NewGatewayError constructs a GatewayError.
func NewGatewayError(code, message string) error {
	return &GatewayError{Code: code, Message: message}
}

// Is reports whether err (or anything it wraps) carries the given Kind.
// This lets callers write `if gwerrs.Is(err, gwerrs.KindCrypto) { ... }`
// without caring about the concrete error type.
func Is(err error, k Kind) bool {
	var ke Kinded
	if errors.As(err, &ke) {
		return ke.Kind() == k
	}
	return false
}
