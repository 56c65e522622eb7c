package econerr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a command failure. Every error that crosses the API
// boundary carries exactly one Kind; Internal is the only catch-all.
type Kind string

const (
	Validation   Kind = "validation"
	Authz        Kind = "authz"
	NotFound     Kind = "not_found"
	Conflict     Kind = "conflict"
	Insufficient Kind = "insufficient"
	Cooldown     Kind = "cooldown"
	Policy       Kind = "policy"
	Expired      Kind = "expired"
	Internal     Kind = "internal"
)

// Stable error codes shared across packages. Codes local to a single
// operation are declared at the call site.
const (
	CodeInvalidInput        = "INVALID_INPUT"
	CodeJailed              = "JAILED"
	CodeOnCooldown          = "ON_COOLDOWN"
	CodeStreamLive          = "STREAM_LIVE_CHANNEL_POINTS_REQUIRED"
	CodeInsufficientWealth  = "INSUFFICIENT_WEALTH"
	CodeInsufficientTokens  = "INSUFFICIENT_TOKENS"
	CodeInsufficientBonds   = "INSUFFICIENT_BONDS"
	CodeInventoryFull       = "INVENTORY_FULL"
	CodeEscrowFull          = "ESCROW_FULL"
	CodeBothFull            = "INVENTORY_AND_ESCROW_FULL"
	CodeBusinessCap         = "BUSINESS_OWNERSHIP_EXCEEDED"
	CodeUserNotFound        = "USER_NOT_FOUND"
	CodeUserBanned          = "USER_BANNED"
	CodeUserMerged          = "USER_MERGED"
	CodeDuplicateEvent      = "DUPLICATE_EVENT"
	CodeContention          = "CONTENTION"
	CodeInternal            = "INTERNAL_ERROR"
)

// Error is the single domain error type. Message is safe to show to the
// caller; Err holds the internal cause and never crosses the API.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s [%s]: %s: %v", e.Kind, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a domain error of the given kind.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Newf builds a domain error with a formatted user-facing message.
func Newf(kind Kind, code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap marks err as the internal cause of a failure. The wrapped cause is
// logged server-side; the caller only ever sees the message.
func Wrap(err error, message string) *Error {
	return &Error{Kind: Internal, Code: CodeInternal, Message: message, Err: err}
}

// KindOf extracts the Kind from any error. Non-domain errors (including
// context cancellations and driver errors) report Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// CodeOf extracts the stable code, or CodeInternal for non-domain errors.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// MessageOf returns the user-safe message for any error.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "an internal error occurred"
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps an error kind to its transport status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case Validation:
		return http.StatusBadRequest
	case Authz:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case Insufficient:
		return http.StatusBadRequest
	case Cooldown:
		return http.StatusTooManyRequests
	case Policy:
		return http.StatusUnprocessableEntity
	case Expired:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}
