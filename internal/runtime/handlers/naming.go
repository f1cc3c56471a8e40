package handlers

import (
	"fmt"
	"reflect"

	"google.golang.org/protobuf/proto"
)

// TypeName renders a request type the way error messages report it,
// e.g. "orders.CreateOrderCommand" or "*orders.CreateOrderCommand".
func TypeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

// SchemaName identifies the payload schema of a request. Protobuf messages use
// their fully qualified message name, everything else its Go type.
func SchemaName(v any) string {
	if msg, ok := v.(proto.Message); ok && msg != nil {
		return string(msg.ProtoReflect().Descriptor().FullName())
	}
	return fmt.Sprintf("%T", v)
}
