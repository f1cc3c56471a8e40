package registry

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	name string
	typ  reflect.Type
}

func (e entry) RequestType() reflect.Type { return e.typ }

type createOrder struct{}
type cancelOrder struct{}

type named interface{ Name() string }

func (createOrder) Name() string { return "create" }

var (
	createType    = reflect.TypeFor[createOrder]()
	createPtrType = reflect.TypeFor[*createOrder]()
	cancelType    = reflect.TypeFor[cancelOrder]()
)

func names(entries []entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.name)
	}
	return out
}

func TestMatchPreservesRegistrationOrder(t *testing.T) {
	r := New([]entry{
		{"a", createType},
		{"b", cancelType},
		{"c", createType},
	})

	assert.Equal(t, []string{"a", "c"}, names(r.Match(createType)))
	assert.Equal(t, []string{"b"}, names(r.Match(cancelType)))
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, 2, r.Count(createType))
}

func TestMatchRequiresIdenticalType(t *testing.T) {
	r := New([]entry{
		{"value", createType},
		{"iface", reflect.TypeFor[named]()},
	})

	assert.Equal(t, []string{"value"}, names(r.Match(createType)))
	assert.Empty(t, r.Match(createPtrType), "pointer type must not match value registration")
	assert.Empty(t, r.Match(cancelType))
	assert.Empty(t, r.Match(nil))
}

func TestBuildingTwiceYieldsSameMatches(t *testing.T) {
	input := []entry{{"a", createType}, {"b", cancelType}, {"c", createType}}

	first := New(input)
	second := New(input)

	for _, typ := range []reflect.Type{createType, cancelType, createPtrType} {
		assert.Equal(t, first.Match(typ), second.Match(typ), typ.String())
	}
	assert.Equal(t, first.Types(), second.Types())
}

func TestMatchReturnsCopy(t *testing.T) {
	r := New([]entry{{"a", createType}})

	got := r.Match(createType)
	require.Len(t, got, 1)
	got[0].name = "mutated"

	assert.Equal(t, []string{"a"}, names(r.Match(createType)))
}

func TestTypesSortedAndSkipsNil(t *testing.T) {
	r := New([]entry{{"c", createType}, {"nil", nil}, {"x", cancelType}, {"p", createPtrType}})

	var got []string
	for _, typ := range r.Types() {
		got = append(got, typ.String())
	}
	assert.Equal(t, []string{"*registry.createOrder", "registry.cancelOrder", "registry.createOrder"}, got)
	assert.Equal(t, 3, r.Len())
}

func TestNilRegistry(t *testing.T) {
	var r *Registry[entry]
	assert.Nil(t, r.Match(createType))
	assert.Zero(t, r.Len())
	assert.Zero(t, r.Count(createType))
	assert.Nil(t, r.Types())
}
