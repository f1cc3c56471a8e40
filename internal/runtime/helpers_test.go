package runtime

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	configpkg "github.com/drblury/mediator/internal/runtime/config"
	"github.com/drblury/mediator/internal/runtime/handlers"
	loggingpkg "github.com/drblury/mediator/internal/runtime/logging"
)

type OrderID int

type createOrderCommand struct{ SKU string }

func (createOrderCommand) CommandName() string { return "create_order" }

type cancelOrderCommand struct{ ID OrderID }

func (cancelOrderCommand) CommandName() string { return "cancel_order" }

type getOrderQuery struct{ ID OrderID }

func (getOrderQuery) QueryName() string { return "get_order" }

type orderPlacedEvent struct{ ID OrderID }

func (orderPlacedEvent) EventName() string { return "order_placed" }

type orderShippedEvent struct{ ID OrderID }

func (orderShippedEvent) EventName() string { return "order_shipped" }

// callLog records handler invocations in order.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	clone := make([]string, len(l.calls))
	copy(clone, l.calls)
	return clone
}

func createOrderHandler(log *callLog, id OrderID) handlers.Descriptor {
	return handlers.ForCommand(handlers.CommandHandlerFunc[createOrderCommand, OrderID](
		func(_ context.Context, cmd createOrderCommand) (OrderID, error) {
			if log != nil {
				log.add("create:" + cmd.SKU)
			}
			return id, nil
		}))
}

func cancelOrderHandler(log *callLog, err error) handlers.Descriptor {
	return handlers.ForSimpleCommand(handlers.SimpleCommandHandlerFunc[cancelOrderCommand](
		func(_ context.Context, cmd cancelOrderCommand) error {
			log.add("cancel")
			return err
		}))
}

func getOrderHandler(status string) handlers.Descriptor {
	return handlers.ForQuery(handlers.QueryHandlerFunc[getOrderQuery, string](
		func(context.Context, getOrderQuery) (string, error) {
			return status, nil
		}))
}

func orderPlacedSubscriber(log *callLog, name string, err error) handlers.Descriptor {
	return handlers.ForEvent(handlers.EventHandlerFunc[orderPlacedEvent](
		func(context.Context, orderPlacedEvent) error {
			log.add(name)
			return err
		})).Named(name)
}

type logEntry struct {
	level  string
	msg    string
	err    error
	fields loggingpkg.LogFields
}

// recordingLogger captures log calls for assertions.
type recordingLogger struct {
	mu      *sync.Mutex
	entries *[]logEntry
	fields  loggingpkg.LogFields
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{mu: &sync.Mutex{}, entries: &[]logEntry{}}
}

func (l *recordingLogger) With(fields loggingpkg.LogFields) loggingpkg.ServiceLogger {
	merged := loggingpkg.LogFields{}
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &recordingLogger{mu: l.mu, entries: l.entries, fields: merged}
}

func (l *recordingLogger) record(level, msg string, err error, fields loggingpkg.LogFields) {
	merged := loggingpkg.LogFields{}
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.entries = append(*l.entries, logEntry{level: level, msg: msg, err: err, fields: merged})
}

func (l *recordingLogger) Debug(msg string, fields loggingpkg.LogFields) {
	l.record("debug", msg, nil, fields)
}

func (l *recordingLogger) Info(msg string, fields loggingpkg.LogFields) {
	l.record("info", msg, nil, fields)
}

func (l *recordingLogger) Error(msg string, err error, fields loggingpkg.LogFields) {
	l.record("error", msg, err, fields)
}

func (l *recordingLogger) Trace(msg string, fields loggingpkg.LogFields) {
	l.record("trace", msg, nil, fields)
}

func (l *recordingLogger) byMessage(msg string) []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []logEntry
	for _, e := range *l.entries {
		if e.msg == msg {
			out = append(out, e)
		}
	}
	return out
}

func newTestMediator(t *testing.T, conf configpkg.Config, set handlers.Set, deps Dependencies) *Mediator {
	t.Helper()
	m, err := TryNewMediator(&conf, loggingpkg.NopLogger(), set, deps)
	require.NoError(t, err)
	return m
}
