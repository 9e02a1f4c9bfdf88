package machine

import (
	"strconv"
	"testing"

	"github.com/mna/panda/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableSetGetDelete(t *testing.T) {
	vm := New(config.Default())
	var tbl Table

	foo := vm.InternString("foo")
	bar := vm.InternString("bar")

	assert.True(t, tbl.Set(foo, Number(1)))
	assert.False(t, tbl.Set(foo, Number(2)), "re-setting an existing key reports false")

	v, ok := tbl.Get(foo)
	require.True(t, ok)
	assert.Equal(t, Number(2), v)

	_, ok = tbl.Get(bar)
	assert.False(t, ok)

	assert.True(t, tbl.Delete(foo))
	_, ok = tbl.Get(foo)
	assert.False(t, ok, "deleted key must not be found")
}

func TestTableDeleteLeavesTombstoneProbeChainIntact(t *testing.T) {
	vm := New(config.Default())
	var tbl Table

	// Force everything into the same small table so collisions are likely,
	// then delete the first inserted key and confirm the second is still
	// reachable through its probe chain (the point of a tombstone).
	keys := make([]*ObjString, 0, 4)
	for _, s := range []string{"a", "b", "c", "d"} {
		keys = append(keys, vm.InternString(s))
	}
	for i, k := range keys {
		tbl.Set(k, Number(float64(i)))
	}

	assert.True(t, tbl.Delete(keys[0]))
	for i, k := range keys[1:] {
		v, ok := tbl.Get(k)
		require.True(t, ok, "key %q should still be reachable after deleting an earlier one", k.Chars)
		assert.Equal(t, Number(float64(i+1)), v)
	}

	_, ok := tbl.Get(keys[0])
	assert.False(t, ok, "deleted key must not be found")
}

func TestTableFindStringDoesNotAllocate(t *testing.T) {
	vm := New(config.Default())
	s := vm.InternString("shared")

	var tbl Table
	tbl.Set(s, True)

	found := tbl.FindString("shared", fnv1a("shared"))
	assert.Same(t, s, found)
}

func TestTableAddAllCopiesLiveEntriesOnly(t *testing.T) {
	vm := New(config.Default())
	var from, to Table

	a, b := vm.InternString("a"), vm.InternString("b")
	from.Set(a, Number(1))
	from.Set(b, Number(2))
	from.Delete(a)

	to.AddAll(&from)

	_, ok := to.Get(a)
	assert.False(t, ok)
	v, ok := to.Get(b)
	require.True(t, ok)
	assert.Equal(t, Number(2), v)
}

func TestTableGrowsUnderLoad(t *testing.T) {
	vm := New(config.Default())
	var tbl Table

	for i := 0; i < 100; i++ {
		k := vm.InternString("key" + strconv.Itoa(i))
		tbl.Set(k, Number(float64(i)))
	}
	assert.Equal(t, 100, tbl.Count())
}
