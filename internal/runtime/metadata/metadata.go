package metadata

import "context"

// Reserved keys set by the mediator.
const (
	KeyCorrelationID = "correlation_id"
	KeyDispatchID    = "dispatch_id"
	KeyEventSchema   = "event_message_schema"
	KeyEventName     = "event_name"
)

// Metadata carries string headers alongside a dispatch. It travels in the
// context so nested dispatches inherit it.
type Metadata map[string]string

func (m Metadata) cloneWithExtra(extra int) Metadata {
	cloned := make(Metadata, len(m)+extra)
	for k, v := range m {
		cloned[k] = v
	}
	return cloned
}

// Clone returns a shallow copy of the metadata map.
func (m Metadata) Clone() Metadata {
	return m.cloneWithExtra(0)
}

// With returns a clone containing the provided key/value pair.
func (m Metadata) With(key, value string) Metadata {
	cloned := m.cloneWithExtra(1)
	cloned[key] = value
	return cloned
}

// Merge returns a clone with entries from other layered on top.
func (m Metadata) Merge(other Metadata) Metadata {
	cloned := m.cloneWithExtra(len(other))
	for k, v := range other {
		cloned[k] = v
	}
	return cloned
}

// Get returns the value for key, or "" when m is nil or the key is absent.
func (m Metadata) Get(key string) string {
	if m == nil {
		return ""
	}
	return m[key]
}

// New constructs a Metadata map from alternating key/value pairs.
func New(pairs ...string) Metadata {
	md := make(Metadata, len(pairs)/2)
	for i := 0; i < len(pairs)-1; i += 2 {
		md[pairs[i]] = pairs[i+1]
	}
	return md
}

type contextKey struct{}

// NewContext returns a child context carrying md. The map is cloned so later
// writes by the caller do not leak into the dispatch.
func NewContext(ctx context.Context, md Metadata) context.Context {
	return context.WithValue(ctx, contextKey{}, md.Clone())
}

// FromContext returns a clone of the metadata stored in ctx, or an empty map.
func FromContext(ctx context.Context) Metadata {
	if ctx == nil {
		return Metadata{}
	}
	md, ok := ctx.Value(contextKey{}).(Metadata)
	if !ok {
		return Metadata{}
	}
	return md.Clone()
}

// CorrelationID returns the correlation id stored in ctx, if any.
func CorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	md, _ := ctx.Value(contextKey{}).(Metadata)
	return md.Get(KeyCorrelationID)
}
