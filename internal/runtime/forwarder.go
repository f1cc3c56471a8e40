package runtime

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	configpkg "github.com/drblury/mediator/internal/runtime/config"
	errspkg "github.com/drblury/mediator/internal/runtime/errors"
	"github.com/drblury/mediator/internal/runtime/handlers"
	idspkg "github.com/drblury/mediator/internal/runtime/ids"
	"github.com/drblury/mediator/internal/runtime/jsoncodec"
	metadatapkg "github.com/drblury/mediator/internal/runtime/metadata"
)

var protoJSONMarshalOptions = protojson.MarshalOptions{
	EmitUnpopulated: true,
}

// ForwarderOptions configures an EventForwarder.
type ForwarderOptions struct {
	// Topic publishes every event to a fixed topic. When empty the topic is
	// TopicPrefix followed by the event's EventName.
	Topic       string
	TopicPrefix string
	// Metadata is added to every forwarded message.
	Metadata metadatapkg.Metadata
}

// WithConfig fills an unset TopicPrefix from conf.
func (o ForwarderOptions) WithConfig(conf *configpkg.Config) ForwarderOptions {
	if o.TopicPrefix == "" && conf != nil {
		o.TopicPrefix = conf.ForwardTopicPrefix
	}
	return o
}

// EventForwarder is an event subscriber that republishes events on a
// Watermill publisher. Dispatch itself stays synchronous and in-process; the
// forwarder is just one more subscriber.
type EventForwarder[E handlers.Event] struct {
	publisher message.Publisher
	opts      ForwarderOptions
}

// NewEventForwarder returns a forwarder for events of type E.
func NewEventForwarder[E handlers.Event](publisher message.Publisher, opts ForwarderOptions) (*EventForwarder[E], error) {
	if publisher == nil {
		return nil, errspkg.ErrPublisherRequired
	}
	return &EventForwarder[E]{publisher: publisher, opts: opts}, nil
}

// Handle publishes event. Publisher errors are returned to the mediator like
// any other subscriber error.
func (f *EventForwarder[E]) Handle(ctx context.Context, event E) error {
	topic := f.topic(event)
	if topic == "" {
		return errspkg.ErrTopicRequired
	}

	msg, err := NewEventMessage(ctx, event, f.opts.Metadata)
	if err != nil {
		return err
	}
	if err := f.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("forward %s to %s: %w", event.EventName(), topic, err)
	}
	return nil
}

func (f *EventForwarder[E]) topic(event E) string {
	if f.opts.Topic != "" {
		return f.opts.Topic
	}
	name := event.EventName()
	if name == "" {
		return ""
	}
	return f.opts.TopicPrefix + name
}

// NewEventMessage converts event into a Watermill message. Protobuf events are
// encoded with protojson, everything else as JSON. The dispatch metadata in
// ctx, such as the correlation ID, is copied onto the message.
func NewEventMessage(ctx context.Context, event handlers.Event, extra metadatapkg.Metadata) (*message.Message, error) {
	if event == nil {
		return nil, errspkg.InvalidRequest(handlers.KindEvent.String(), handlers.TypeName(nil), "event is nil")
	}

	var (
		payload []byte
		err     error
	)
	if pm, ok := event.(proto.Message); ok {
		payload, err = protoJSONMarshalOptions.Marshal(pm)
	} else {
		payload, err = jsoncodec.Marshal(event)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	md := metadatapkg.FromContext(ctx).Merge(extra)
	md[metadatapkg.KeyEventSchema] = handlers.SchemaName(event)
	md[metadatapkg.KeyEventName] = event.EventName()

	msg := message.NewMessage(idspkg.NewDispatchID(), payload)
	msg.Metadata = metadatapkg.ToWatermill(md)
	if ctx != nil {
		msg.SetContext(ctx)
	}
	return msg, nil
}
