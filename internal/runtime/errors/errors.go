package errors

import (
	sterrors "errors"
	"fmt"
	"strings"
)

var (
	ErrHandlerNotFound     = sterrors.New("mediator: handler not found")
	ErrAmbiguousHandler    = sterrors.New("mediator: ambiguous handler registration")
	ErrResultType          = sterrors.New("mediator: unexpected result type")
	ErrInvalidRequest      = sterrors.New("mediator: invalid request")
	ErrHandlerRequired     = sterrors.New("mediator: handler is required")
	ErrRequestTypeRequired = sterrors.New("mediator: request type is required")
	ErrAbstractRequestType = sterrors.New("mediator: request type must be concrete")
	ErrKindMismatch        = sterrors.New("mediator: handler registered under the wrong kind")
	ErrConfigRequired      = sterrors.New("mediator: configuration is required")
	ErrLoggerRequired      = sterrors.New("mediator: logger is required")
	ErrPublisherRequired   = sterrors.New("mediator: publisher is required")
	ErrTopicRequired       = sterrors.New("mediator: topic is required")
	ErrHandlerPanicked     = sterrors.New("mediator: handler panicked")
)

// Category tells a missing-wiring failure apart from a duplicate-wiring one.
type Category string

const (
	CategoryNotFound       Category = "not_found"
	CategoryAmbiguous      Category = "ambiguous"
	CategoryResultType     Category = "result_type"
	CategoryInvalidRequest Category = "invalid_request"
)

// MediatorError is the single error kind raised by the mediator itself.
// Errors returned by handlers are never converted into a MediatorError.
type MediatorError struct {
	Category Category
	// Kind is the request kind ("command", "query" or "event").
	Kind string
	// RequestType is the Go type of the offending request, e.g. "orders.CreateOrderCommand".
	RequestType string
	// Candidates lists the handler names that matched an ambiguous request type.
	Candidates []string
	// Detail carries extra context, such as the expected and actual result types.
	Detail string
}

func (e *MediatorError) Error() string {
	var b strings.Builder
	b.WriteString("mediator: ")
	switch e.Category {
	case CategoryNotFound:
		fmt.Fprintf(&b, "no %s handler registered for %s", e.Kind, e.RequestType)
	case CategoryAmbiguous:
		fmt.Fprintf(&b, "%d %s handlers registered for %s, exactly one is required", len(e.Candidates), e.Kind, e.RequestType)
		if len(e.Candidates) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(e.Candidates, ", "))
		}
	case CategoryResultType:
		fmt.Fprintf(&b, "%s %s produced an unexpected result type", e.Kind, e.RequestType)
	case CategoryInvalidRequest:
		fmt.Fprintf(&b, "invalid %s request %s", e.Kind, e.RequestType)
	default:
		fmt.Fprintf(&b, "%s failure for %s %s", e.Category, e.Kind, e.RequestType)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

// Unwrap exposes the category sentinel so errors.Is(err, ErrHandlerNotFound) works.
func (e *MediatorError) Unwrap() error {
	switch e.Category {
	case CategoryNotFound:
		return ErrHandlerNotFound
	case CategoryAmbiguous:
		return ErrAmbiguousHandler
	case CategoryResultType:
		return ErrResultType
	case CategoryInvalidRequest:
		return ErrInvalidRequest
	default:
		return nil
	}
}

// NotFound builds the error raised when no handler matches a request type.
func NotFound(kind, requestType string) *MediatorError {
	return &MediatorError{Category: CategoryNotFound, Kind: kind, RequestType: requestType}
}

// Ambiguous builds the error raised when several handlers match a single-handler request type.
func Ambiguous(kind, requestType string, candidates []string) *MediatorError {
	return &MediatorError{Category: CategoryAmbiguous, Kind: kind, RequestType: requestType, Candidates: candidates}
}

// ResultTypeMismatch builds the error raised by typed dispatch helpers.
func ResultTypeMismatch(kind, requestType, want string, got any) *MediatorError {
	return &MediatorError{
		Category:    CategoryResultType,
		Kind:        kind,
		RequestType: requestType,
		Detail:      fmt.Sprintf("want %s, got %T", want, got),
	}
}

// InvalidRequest builds the error raised for nil or otherwise unusable requests.
func InvalidRequest(kind, requestType, detail string) *MediatorError {
	return &MediatorError{Category: CategoryInvalidRequest, Kind: kind, RequestType: requestType, Detail: detail}
}

// AsMediatorError extracts a MediatorError from err.
func AsMediatorError(err error) (*MediatorError, bool) {
	var me *MediatorError
	if sterrors.As(err, &me) {
		return me, true
	}
	return nil, false
}

func IsHandlerNotFound(err error) bool { return sterrors.Is(err, ErrHandlerNotFound) }

func IsAmbiguousHandler(err error) bool { return sterrors.Is(err, ErrAmbiguousHandler) }

// ConfigValidationError wraps the joined problems reported by Config.Validate.
type ConfigValidationError struct {
	Err error
}

func (e ConfigValidationError) Error() string {
	return "mediator: invalid configuration: " + e.Err.Error()
}

func (e ConfigValidationError) Unwrap() error {
	return e.Err
}

// NewConfigValidationError returns nil when err is nil.
func NewConfigValidationError(err error) error {
	if err == nil {
		return nil
	}
	return ConfigValidationError{Err: err}
}
