package mediator

import (
	"context"
	"errors"
	"testing"
)

type greetCommand struct{ Name string }

func (greetCommand) CommandName() string { return "greet" }

type greetedEvent struct{ Name string }

func (greetedEvent) EventName() string { return "greeted" }

type countQuery struct{}

func (countQuery) QueryName() string { return "count" }

func newExportedMediator(t *testing.T, conf *Config) (*Mediator, *[]string) {
	t.Helper()

	var seen []string
	var set HandlerSet
	set.Add(
		ForEmittingCommand(EmittingCommandHandlerFunc[greetCommand, string](
			func(_ context.Context, cmd greetCommand) (string, []Event, error) {
				return "hello " + cmd.Name, []Event{greetedEvent(cmd)}, nil
			})),
		ForEvent(EventHandlerFunc[greetedEvent](func(_ context.Context, evt greetedEvent) error {
			seen = append(seen, evt.Name)
			return nil
		})),
	)

	m, err := TryNewMediator(conf, NopLogger(), set, Dependencies{})
	if err != nil {
		t.Fatalf("unexpected error creating mediator: %v", err)
	}
	return m, &seen
}

func TestTypedDispatchExports(t *testing.T) {
	m, seen := newExportedMediator(t, &Config{Name: "exports"})

	got, err := DispatchCommand[string](context.Background(), m.Commands(), greetCommand{Name: "ada"})
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if got != "hello ada" {
		t.Fatalf("expected greeting, got %q", got)
	}
	if len(*seen) != 1 || (*seen)[0] != "ada" {
		t.Fatalf("expected follow-up event to be delivered once, got %v", *seen)
	}

	if _, err := DispatchCommand[int](context.Background(), m.Commands(), greetCommand{Name: "ada"}); !errors.Is(err, ErrResultType) {
		t.Fatalf("expected result type error, got %v", err)
	}
}

func TestNotFoundAndAmbiguousExports(t *testing.T) {
	m, _ := newExportedMediator(t, &Config{})

	_, err := DispatchQuery[int](context.Background(), m.Queries(), countQuery{})
	if !IsHandlerNotFound(err) || IsAmbiguousHandler(err) {
		t.Fatalf("expected not found error, got %v", err)
	}
	me, ok := AsMediatorError(err)
	if !ok || me.Category != CategoryNotFound || me.Kind != string(KindQuery) {
		t.Fatalf("unexpected mediator error %#v", me)
	}

	var set HandlerSet
	for range 2 {
		set.Add(ForQuery(QueryHandlerFunc[countQuery, int](func(context.Context, countQuery) (int, error) {
			return 1, nil
		})))
	}
	dup := NewMediator(&Config{}, NopLogger(), set, Dependencies{})
	if _, err := dup.Queries().Dispatch(context.Background(), countQuery{}); !errors.Is(err, ErrAmbiguousHandler) {
		t.Fatalf("expected ambiguous error, got %v", err)
	}
	if err := dup.Verify(); !IsAmbiguousHandler(err) {
		t.Fatalf("expected Verify to report ambiguity, got %v", err)
	}
}

func TestConfigValidationExport(t *testing.T) {
	_, err := TryNewMediator(&Config{MetricsNamespace: "bad namespace"}, NopLogger(), HandlerSet{}, Dependencies{})
	var cfgErr ConfigValidationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected configuration error, got %v", err)
	}

	if _, err := TryNewMediator(nil, NopLogger(), HandlerSet{}, Dependencies{}); !errors.Is(err, ErrConfigRequired) {
		t.Fatalf("expected config required error, got %v", err)
	}
}

func TestEncodingExportAliases(t *testing.T) {
	payload := map[string]string{"hello": "world"}
	if _, err := Marshal(payload); err != nil {
		t.Fatalf("marshal alias failed: %v", err)
	}
	if err := Unmarshal([]byte(`{"hello":"world"}`), &payload); err != nil {
		t.Fatalf("unmarshal alias failed: %v", err)
	}
}

func TestMetadataExport(t *testing.T) {
	md := NewMetadata(MetadataKeyCorrelationID, "abc")
	ctx := ContextWithMetadata(context.Background(), md)
	if got := CorrelationID(ctx); got != "abc" {
		t.Fatalf("expected correlation id abc, got %q", got)
	}
	if MetadataFromContext(ctx)[MetadataKeyCorrelationID] != "abc" {
		t.Fatal("expected metadata to round-trip through the context")
	}
}

func TestErrorCategoryConstants(t *testing.T) {
	if ErrorCategoryNone != "none" {
		t.Fatalf("expected ErrorCategoryNone to be 'none', got %q", ErrorCategoryNone)
	}
	if ErrorCategoryNotFound != "not_found" {
		t.Fatalf("expected ErrorCategoryNotFound to be 'not_found', got %q", ErrorCategoryNotFound)
	}
	if ErrorCategoryAmbiguous != "ambiguous" {
		t.Fatalf("expected ErrorCategoryAmbiguous to be 'ambiguous', got %q", ErrorCategoryAmbiguous)
	}
}
