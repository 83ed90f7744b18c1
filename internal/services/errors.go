package services

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies failures for callers that branch on the category of an
// error rather than its text.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindAuth       ErrorKind = "auth"
	KindQuota      ErrorKind = "quota"
	KindNetwork    ErrorKind = "network"
	KindUpstream   ErrorKind = "upstream"
	KindStorage    ErrorKind = "storage"
)

// Sentinel markers matched by Error.Is so errors.Is(err, ErrQuota) works across
// wrapping layers.
var (
	ErrValidation = errors.New("validation error")
	ErrAuth       = errors.New("auth error")
	ErrQuota      = errors.New("quota exceeded")
	ErrNetwork    = errors.New("network error")
	ErrUpstream   = errors.New("upstream error")
	ErrStorage    = errors.New("storage error")
)

var kindMarkers = map[ErrorKind]error{
	KindValidation: ErrValidation,
	KindAuth:       ErrAuth,
	KindQuota:      ErrQuota,
	KindNetwork:    ErrNetwork,
	KindUpstream:   ErrUpstream,
	KindStorage:    ErrStorage,
}

// Canonical messages shared by the YouTube client and the IPC layer.
const (
	MessageNoAPIKey = "YouTube API key not configured. Please add your API key in settings."
	MessageNetwork  = "Network error. Please check your internet connection."
)

// Error is the structured failure carried across the daemon and over IPC.
// Code is the upstream HTTP status when one exists, 0 for transport failures,
// and a synthetic 4xx for local validation and auth checks.
type Error struct {
	Kind    ErrorKind
	Code    int
	Message string
	Op      string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind) + " error"
	}
	b.WriteString(msg)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target is the sentinel marker for e's kind.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	marker, ok := kindMarkers[e.Kind]
	return ok && marker == target
}

// ErrorKind satisfies the classifier interface used by logging and IPC.
func (e *Error) ErrorKind() string {
	if e == nil {
		return ""
	}
	return string(e.Kind)
}

func (e *Error) IsQuotaError() bool   { return e != nil && e.Kind == KindQuota }
func (e *Error) IsAuthError() bool    { return e != nil && e.Kind == KindAuth }
func (e *Error) IsNetworkError() bool { return e != nil && e.Kind == KindNetwork }

// New builds a kind-tagged error with the given status code and message.
func New(kind ErrorKind, code int, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: strings.TrimSpace(message)}
}

// Wrap tags err with kind and the operation that produced it. If err already
// carries a structured Error the original classification is kept.
func Wrap(kind ErrorKind, op, message string, err error) error {
	if existing, ok := As(err); ok && existing.Kind != "" {
		return err
	}
	return &Error{Kind: kind, Op: strings.TrimSpace(op), Message: strings.TrimSpace(message), Err: err}
}

// Validation returns a 400-coded validation error.
func Validation(message string) *Error {
	return New(KindValidation, 400, message)
}

// Validationf formats a validation error message.
func Validationf(format string, args ...any) *Error {
	return Validation(fmt.Sprintf(format, args...))
}

// Storage wraps a persistence failure.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindStorage, Op: op, Message: "storage failure", Err: err}
}

// As extracts the structured error from err's chain.
func As(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var target *Error
	if errors.As(err, &target) && target != nil {
		return target, true
	}
	return nil, false
}

// KindOf returns the error kind, or KindUpstream for unstructured errors.
func KindOf(err error) ErrorKind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindUpstream
}

// UserMessage maps an error to the advice shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	e, ok := As(err)
	if !ok {
		return "Something went wrong. Please try again."
	}
	switch e.Kind {
	case KindQuota:
		return "YouTube API quota exceeded. Wait until the quota resets or switch to another API key."
	case KindAuth:
		if e.Message != "" {
			return e.Message + " Check your API key configuration."
		}
		return "Invalid API key. Check your API key configuration."
	case KindNetwork:
		return MessageNetwork
	case KindValidation:
		return e.Message
	default:
		return "Something went wrong. Please try again."
	}
}
