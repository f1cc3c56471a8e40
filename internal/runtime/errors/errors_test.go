package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"ErrHandlerNotFound", ErrHandlerNotFound, "mediator: handler not found"},
		{"ErrAmbiguousHandler", ErrAmbiguousHandler, "mediator: ambiguous handler registration"},
		{"ErrResultType", ErrResultType, "mediator: unexpected result type"},
		{"ErrHandlerRequired", ErrHandlerRequired, "mediator: handler is required"},
		{"ErrConfigRequired", ErrConfigRequired, "mediator: configuration is required"},
		{"ErrLoggerRequired", ErrLoggerRequired, "mediator: logger is required"},
		{"ErrPublisherRequired", ErrPublisherRequired, "mediator: publisher is required"},
		{"ErrTopicRequired", ErrTopicRequired, "mediator: topic is required"},
		{"ErrHandlerPanicked", ErrHandlerPanicked, "mediator: handler panicked"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestMediatorErrorCategories(t *testing.T) {
	notFound := NotFound("command", "orders.CreateOrderCommand")
	if !errors.Is(notFound, ErrHandlerNotFound) {
		t.Fatal("not found error should match ErrHandlerNotFound")
	}
	if errors.Is(notFound, ErrAmbiguousHandler) {
		t.Fatal("not found error must not match ErrAmbiguousHandler")
	}
	if !strings.Contains(notFound.Error(), "CreateOrderCommand") {
		t.Fatalf("expected request type in message, got %q", notFound.Error())
	}

	ambiguous := Ambiguous("query", "orders.GetOrder", []string{"*orders.a", "*orders.b"})
	if !IsAmbiguousHandler(ambiguous) || IsHandlerNotFound(ambiguous) {
		t.Fatal("ambiguous error matched the wrong sentinel")
	}
	want := "mediator: 2 query handlers registered for orders.GetOrder, exactly one is required (*orders.a, *orders.b)"
	if got := ambiguous.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}

	mismatch := ResultTypeMismatch("command", "orders.Create", "int", "text")
	if !errors.Is(mismatch, ErrResultType) {
		t.Fatal("result mismatch should match ErrResultType")
	}
	if !strings.Contains(mismatch.Error(), "want int, got string") {
		t.Fatalf("unexpected mismatch message %q", mismatch.Error())
	}
}

func TestAsMediatorErrorThroughWrapping(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), NotFound("event", "orders.Placed"))

	me, ok := AsMediatorError(wrapped)
	if !ok {
		t.Fatal("expected MediatorError to be found")
	}
	if me.Category != CategoryNotFound || me.Kind != "event" {
		t.Fatalf("unexpected error fields %#v", me)
	}

	if _, ok := AsMediatorError(errors.New("plain")); ok {
		t.Fatal("plain errors are not mediator errors")
	}
}

func TestConfigValidationError(t *testing.T) {
	inner := errors.New("invalid namespace")
	err := ConfigValidationError{Err: inner}

	want := "mediator: invalid configuration: invalid namespace"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if unwrapped := err.Unwrap(); unwrapped != inner {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, inner)
	}
}

func TestNewConfigValidationError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if err := NewConfigValidationError(nil); err != nil {
			t.Errorf("NewConfigValidationError(nil) = %v, want nil", err)
		}
	})

	t.Run("errors.Is works with wrapped error", func(t *testing.T) {
		inner := errors.New("specific error")
		err := NewConfigValidationError(inner)

		var cfgErr ConfigValidationError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("expected ConfigValidationError, got %T", err)
		}
		if !errors.Is(err, inner) {
			t.Error("errors.Is should match wrapped error")
		}
	})
}
