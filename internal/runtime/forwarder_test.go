package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/wrapperspb"

	configpkg "github.com/drblury/mediator/internal/runtime/config"
	errspkg "github.com/drblury/mediator/internal/runtime/errors"
	"github.com/drblury/mediator/internal/runtime/handlers"
	"github.com/drblury/mediator/internal/runtime/jsoncodec"
	metadatapkg "github.com/drblury/mediator/internal/runtime/metadata"
)

type noteAdded struct {
	*wrapperspb.StringValue
}

func (noteAdded) EventName() string { return "note_added" }

type failingPublisher struct{ err error }

func (p failingPublisher) Publish(string, ...*message.Message) error { return p.err }
func (p failingPublisher) Close() error                              { return nil }

func receive(t *testing.T, messages <-chan *message.Message) *message.Message {
	t.Helper()
	select {
	case msg := <-messages:
		msg.Ack()
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for forwarded message")
		return nil
	}
}

func TestEventForwarderPublishesJSONEvents(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 4}, watermill.NopLogger{})
	defer pubSub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	messages, err := pubSub.Subscribe(ctx, "orders.order_placed")
	require.NoError(t, err)

	conf := configpkg.Config{ForwardTopicPrefix: "orders."}
	forwarder, err := NewEventForwarder[orderPlacedEvent](pubSub, ForwarderOptions{
		Metadata: metadatapkg.New("source", "test"),
	}.WithConfig(&conf))
	require.NoError(t, err)

	calls := &callLog{}
	var set handlers.Set
	set.Add(orderPlacedSubscriber(calls, "local", nil), handlers.ForEvent[orderPlacedEvent](forwarder))
	m := newTestMediator(t, conf, set, Dependencies{})

	dispatchCtx := metadatapkg.NewContext(context.Background(), metadatapkg.New(metadatapkg.KeyCorrelationID, "corr-7"))
	require.NoError(t, m.Events().Emit(dispatchCtx, orderPlacedEvent{ID: 42}))

	msg := receive(t, messages)
	assert.Equal(t, []string{"local"}, calls.snapshot())
	assert.NotEmpty(t, msg.UUID)
	assert.Equal(t, "corr-7", msg.Metadata.Get(metadatapkg.KeyCorrelationID))
	assert.Equal(t, "runtime.orderPlacedEvent", msg.Metadata.Get(metadatapkg.KeyEventSchema))
	assert.Equal(t, "order_placed", msg.Metadata.Get(metadatapkg.KeyEventName))
	assert.Equal(t, "test", msg.Metadata.Get("source"))

	var payload orderPlacedEvent
	require.NoError(t, jsoncodec.Unmarshal(msg.Payload, &payload))
	assert.Equal(t, OrderID(42), payload.ID)
}

func TestEventForwarderUsesProtoJSONForProtoEvents(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 1}, watermill.NopLogger{})
	defer pubSub.Close()
	messages, err := pubSub.Subscribe(context.Background(), "notes")
	require.NoError(t, err)

	forwarder, err := NewEventForwarder[noteAdded](pubSub, ForwarderOptions{Topic: "notes"})
	require.NoError(t, err)
	require.NoError(t, forwarder.Handle(context.Background(), noteAdded{wrapperspb.String("hello")}))

	msg := receive(t, messages)
	assert.JSONEq(t, `"hello"`, string(msg.Payload))
	assert.Equal(t, "google.protobuf.StringValue", msg.Metadata.Get(metadatapkg.KeyEventSchema))
}

func TestEventForwarderErrors(t *testing.T) {
	_, err := NewEventForwarder[orderPlacedEvent](nil, ForwarderOptions{})
	assert.ErrorIs(t, err, errspkg.ErrPublisherRequired)

	unavailable := errors.New("broker unavailable")
	forwarder, err := NewEventForwarder[orderPlacedEvent](failingPublisher{err: unavailable}, ForwarderOptions{TopicPrefix: "orders."})
	require.NoError(t, err)

	var set handlers.Set
	set.Add(handlers.ForEvent[orderPlacedEvent](forwarder))
	m := newTestMediator(t, configpkg.Config{}, set, Dependencies{})

	err = m.MediateEvent(context.Background(), orderPlacedEvent{})
	require.ErrorIs(t, err, unavailable)
	assert.Contains(t, err.Error(), "orders.order_placed")

	_, err = NewEventMessage(context.Background(), nil, nil)
	assert.ErrorIs(t, err, errspkg.ErrInvalidRequest)
}

func TestForwarderOptionsWithConfig(t *testing.T) {
	conf := &configpkg.Config{ForwardTopicPrefix: "events."}

	assert.Equal(t, "events.", ForwarderOptions{}.WithConfig(conf).TopicPrefix)
	assert.Equal(t, "own.", ForwarderOptions{TopicPrefix: "own."}.WithConfig(conf).TopicPrefix)
	assert.Empty(t, ForwarderOptions{}.WithConfig(nil).TopicPrefix)
}
