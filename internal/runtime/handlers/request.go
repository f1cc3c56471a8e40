package handlers

// Kind distinguishes the three request variants.
type Kind string

const (
	KindCommand Kind = "command"
	KindQuery   Kind = "query"
	KindEvent   Kind = "event"
)

func (k Kind) String() string { return string(k) }

// Command is a request that changes state and is handled by exactly one handler.
// CommandName labels the command in logs and metrics; it plays no part in matching.
type Command interface {
	CommandName() string
}

// Query is a request that reads state and is handled by exactly one handler.
type Query interface {
	QueryName() string
}

// Event is a fact that already happened. It is delivered to every subscriber.
type Event interface {
	EventName() string
}

// RequestName returns the label a request declares for itself.
func RequestName(kind Kind, request any) string {
	switch kind {
	case KindCommand:
		if c, ok := request.(Command); ok {
			return c.CommandName()
		}
	case KindQuery:
		if q, ok := request.(Query); ok {
			return q.QueryName()
		}
	case KindEvent:
		if e, ok := request.(Event); ok {
			return e.EventName()
		}
	}
	return ""
}
