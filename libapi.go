package mediator

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	runtimepkg "github.com/drblury/mediator/internal/runtime"
	configpkg "github.com/drblury/mediator/internal/runtime/config"
	errspkg "github.com/drblury/mediator/internal/runtime/errors"
	handlerpkg "github.com/drblury/mediator/internal/runtime/handlers"
	idspkg "github.com/drblury/mediator/internal/runtime/ids"
	jsoncodec "github.com/drblury/mediator/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/mediator/internal/runtime/logging"
	metadatapkg "github.com/drblury/mediator/internal/runtime/metadata"
	resolverpkg "github.com/drblury/mediator/internal/runtime/resolver"
)

type (
	Config       = configpkg.Config
	Mediator     = runtimepkg.Mediator
	Dependencies = runtimepkg.Dependencies

	// Requests
	Kind    = handlerpkg.Kind
	Command = handlerpkg.Command
	Query   = handlerpkg.Query
	Event   = handlerpkg.Event

	// Handlers
	CommandHandler[C Command, R any]             = handlerpkg.CommandHandler[C, R]
	SimpleCommandHandler[C Command]              = handlerpkg.SimpleCommandHandler[C]
	EmittingCommandHandler[C Command, R any]     = handlerpkg.EmittingCommandHandler[C, R]
	QueryHandler[Q Query, R any]                 = handlerpkg.QueryHandler[Q, R]
	EventHandler[E Event]                        = handlerpkg.EventHandler[E]
	CommandHandlerFunc[C Command, R any]         = handlerpkg.CommandHandlerFunc[C, R]
	SimpleCommandHandlerFunc[C Command]          = handlerpkg.SimpleCommandHandlerFunc[C]
	EmittingCommandHandlerFunc[C Command, R any] = handlerpkg.EmittingCommandHandlerFunc[C, R]
	QueryHandlerFunc[Q Query, R any]             = handlerpkg.QueryHandlerFunc[Q, R]
	EventHandlerFunc[E Event]                    = handlerpkg.EventHandlerFunc[E]
	Descriptor                                   = handlerpkg.Descriptor
	HandlerSet                                   = handlerpkg.Set

	// Dispatchers
	CommandDispatcher = runtimepkg.CommandDispatcher
	QueryDispatcher   = runtimepkg.QueryDispatcher
	EventEmitter      = runtimepkg.EventEmitter

	// Middleware
	Dispatch               = runtimepkg.Dispatch
	HandlerFunc            = runtimepkg.HandlerFunc
	HandlerMiddleware      = runtimepkg.HandlerMiddleware
	MiddlewareBuilder      = runtimepkg.MiddlewareBuilder
	MiddlewareRegistration = runtimepkg.MiddlewareRegistration
	PanicError             = runtimepkg.PanicError

	// Dispatch lifecycle hooks
	DispatchContext = runtimepkg.DispatchContext
	DispatchHooks   = runtimepkg.DispatchHooks

	// Stats
	HandlerInfo     = runtimepkg.HandlerInfo
	HandlerStats    = runtimepkg.HandlerStats
	ResolutionStats = runtimepkg.ResolutionStats
	CacheStats      = resolverpkg.CacheStats
	StatsSnapshot   = runtimepkg.StatsSnapshot

	// Error classification
	ErrorClassifier = runtimepkg.ErrorClassifier
	ErrorCategory   = runtimepkg.ErrorCategory

	// Forwarding
	EventForwarder[E Event] = runtimepkg.EventForwarder[E]
	ForwarderOptions        = runtimepkg.ForwarderOptions

	Metadata = metadatapkg.Metadata

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger

	MediatorError         = errspkg.MediatorError
	MediatorErrorCategory = errspkg.Category
	ConfigValidationError = errspkg.ConfigValidationError
)

var (
	NewMediator    = runtimepkg.NewMediator
	TryNewMediator = runtimepkg.TryNewMediator
	ValidateConfig = configpkg.ValidateConfig

	DefaultMiddlewares      = runtimepkg.DefaultMiddlewares
	CorrelationIDMiddleware = runtimepkg.CorrelationIDMiddleware
	LogDispatchMiddleware   = runtimepkg.LogDispatchMiddleware
	TracerMiddleware        = runtimepkg.TracerMiddleware
	MetricsMiddleware       = runtimepkg.MetricsMiddleware
	RecovererMiddleware     = runtimepkg.RecovererMiddleware

	// Dispatch lifecycle hooks
	HooksMiddleware = runtimepkg.HooksMiddleware
	LoggingHooks    = runtimepkg.LoggingHooks
	MetricsHooks    = runtimepkg.MetricsHooks
	AlertingHooks   = runtimepkg.AlertingHooks

	NewEventMessage = runtimepkg.NewEventMessage

	Marshal   = jsoncodec.Marshal
	Unmarshal = jsoncodec.Unmarshal
	Encode    = jsoncodec.Encode

	ErrHandlerNotFound     = errspkg.ErrHandlerNotFound
	ErrAmbiguousHandler    = errspkg.ErrAmbiguousHandler
	ErrResultType          = errspkg.ErrResultType
	ErrInvalidRequest      = errspkg.ErrInvalidRequest
	ErrHandlerRequired     = errspkg.ErrHandlerRequired
	ErrRequestTypeRequired = errspkg.ErrRequestTypeRequired
	ErrAbstractRequestType = errspkg.ErrAbstractRequestType
	ErrKindMismatch        = errspkg.ErrKindMismatch
	ErrConfigRequired      = errspkg.ErrConfigRequired
	ErrLoggerRequired      = errspkg.ErrLoggerRequired
	ErrPublisherRequired   = errspkg.ErrPublisherRequired
	ErrTopicRequired       = errspkg.ErrTopicRequired
	ErrHandlerPanicked     = errspkg.ErrHandlerPanicked

	AsMediatorError    = errspkg.AsMediatorError
	IsHandlerNotFound  = errspkg.IsHandlerNotFound
	IsAmbiguousHandler = errspkg.IsAmbiguousHandler

	NewSlogServiceLogger      = loggingpkg.NewSlogServiceLogger
	NewWatermillServiceLogger = loggingpkg.NewWatermillServiceLogger
	NewWatermillAdapter       = loggingpkg.NewWatermillAdapter
	NopLogger                 = loggingpkg.NopLogger

	NewMetadata         = metadatapkg.New
	ContextWithMetadata = metadatapkg.NewContext
	MetadataFromContext = metadatapkg.FromContext
	CorrelationID       = metadatapkg.CorrelationID
	MetadataFromMessage = metadatapkg.FromWatermill

	NewDispatchID = idspkg.NewDispatchID
	DispatchTime  = idspkg.Time
)

const (
	KindCommand = handlerpkg.KindCommand
	KindQuery   = handlerpkg.KindQuery
	KindEvent   = handlerpkg.KindEvent
)

// Metadata keys set by the mediator and the event forwarder.
const (
	MetadataKeyCorrelationID = metadatapkg.KeyCorrelationID
	MetadataKeyDispatchID    = metadatapkg.KeyDispatchID
	MetadataKeyEventSchema   = metadatapkg.KeyEventSchema
	MetadataKeyEventName     = metadatapkg.KeyEventName
)

// Error category constants for ErrorClassifier.
const (
	ErrorCategoryNone       = runtimepkg.ErrorCategoryNone
	ErrorCategoryNotFound   = runtimepkg.ErrorCategoryNotFound
	ErrorCategoryAmbiguous  = runtimepkg.ErrorCategoryAmbiguous
	ErrorCategoryResultType = runtimepkg.ErrorCategoryResultType
	ErrorCategoryCanceled   = runtimepkg.ErrorCategoryCanceled
	ErrorCategoryHandler    = runtimepkg.ErrorCategoryHandler
)

// MediatorError categories.
const (
	CategoryNotFound       = errspkg.CategoryNotFound
	CategoryAmbiguous      = errspkg.CategoryAmbiguous
	CategoryResultType     = errspkg.CategoryResultType
	CategoryInvalidRequest = errspkg.CategoryInvalidRequest
)

func ForCommand[C Command, R any](h CommandHandler[C, R]) Descriptor {
	return handlerpkg.ForCommand(h)
}

func ForSimpleCommand[C Command](h SimpleCommandHandler[C]) Descriptor {
	return handlerpkg.ForSimpleCommand(h)
}

func ForEmittingCommand[C Command, R any](h EmittingCommandHandler[C, R]) Descriptor {
	return handlerpkg.ForEmittingCommand(h)
}

func ForQuery[Q Query, R any](h QueryHandler[Q, R]) Descriptor {
	return handlerpkg.ForQuery(h)
}

func ForEvent[E Event](h EventHandler[E]) Descriptor {
	return handlerpkg.ForEvent(h)
}

// DispatchCommand dispatches cmd and asserts its result to R.
func DispatchCommand[R any](ctx context.Context, d CommandDispatcher, cmd Command) (R, error) {
	return runtimepkg.DispatchCommand[R](ctx, d, cmd)
}

// DispatchQuery dispatches query and asserts its result to R.
func DispatchQuery[R any](ctx context.Context, d QueryDispatcher, query Query) (R, error) {
	return runtimepkg.DispatchQuery[R](ctx, d, query)
}

// NewEventForwarder returns an event subscriber republishing events of type E
// on publisher.
func NewEventForwarder[E Event](publisher message.Publisher, opts ForwarderOptions) (*EventForwarder[E], error) {
	return runtimepkg.NewEventForwarder[E](publisher, opts)
}
