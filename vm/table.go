package vm

import (
	"math"

	"github.com/dolthub/swiss"
)

// Table is Lua's hybrid array/hash associative structure. Positive
// integer keys starting at 1 with no gaps live in the array part; every
// other key (including sparse integers) lives in the hash part, backed
// by a SwissTable map for amortized O(1) probing.
type Table struct {
	gcColor

	array []Value // array[i] holds key i+1
	hash  *swiss.Map[Value, Value]

	Metatable *Table
}

// NewTable allocates an empty Table and registers it with the collector.
func NewTable(gc *Collector) *Table {
	t := &Table{hash: swiss.NewMap[Value, Value](0)}
	gc.register(t)
	return t
}

// arrayIndex reports whether k is a positive integer Value that can
// address the array part, and its 0-based array index.
func arrayIndex(k Value) (int, bool) {
	if !k.IsNumber() {
		return 0, false
	}
	n := k.AsNumber()
	if n != math.Trunc(n) || n < 1 {
		return 0, false
	}
	i := int(n)
	if float64(i) != n {
		return 0, false
	}
	return i - 1, true
}

// Get implements GETTABLE's raw lookup (no metamethod dispatch; that is
// the interpreter's job).
func (t *Table) Get(k Value) Value {
	if i, ok := arrayIndex(k); ok && i < len(t.array) {
		return t.array[i]
	}
	if v, ok := t.hash.Get(k); ok {
		return v
	}
	return Nil
}

// Set implements SETTABLE's raw store. Setting a key to nil removes it.
// Writing one past the end of the array part migrates the value into the
// array and then absorbs any now-contiguous successors sitting in the
// hash part, matching Lua's array/hash placement rule.
func (t *Table) Set(gc *Collector, k, v Value) {
	if i, ok := arrayIndex(k); ok {
		switch {
		case i < len(t.array):
			t.array[i] = v
		case i == len(t.array):
			if v.IsNil() {
				return
			}
			t.array = append(t.array, v)
			t.absorbFromHash()
		default:
			if v.IsNil() {
				t.hash.Delete(k)
			} else {
				t.hash.Put(k, v)
			}
		}
		gc.barrier(t, v)
		return
	}
	if v.IsNil() {
		t.hash.Delete(k)
		return
	}
	t.hash.Put(k, v)
	gc.barrier(t, k)
	gc.barrier(t, v)
}

func (t *Table) absorbFromHash() {
	for {
		next := Number(float64(len(t.array) + 1))
		v, ok := t.hash.Get(next)
		if !ok {
			return
		}
		t.hash.Delete(next)
		t.array = append(t.array, v)
	}
}

// Len implements the `#` length operator: some border n where t[n] is
// non-nil and t[n+1] is nil.
func (t *Table) Len() int {
	n := len(t.array)
	for n > 0 && t.array[n-1].IsNil() {
		n--
	}
	if n == len(t.array) {
		// array part is full; the border may continue into the hash part
		for {
			if _, ok := t.hash.Get(Number(float64(n + 1))); !ok {
				break
			}
			n++
		}
	}
	return n
}

// Next supports generic `for`/`pairs` iteration by returning the key/value
// pair following k in an implementation-defined but stable order, or
// (Nil, Nil, false) when k was the last key. k == Nil starts iteration.
func (t *Table) Next(k Value) (Value, Value, bool) {
	if k.IsNil() {
		for i, v := range t.array {
			if !v.IsNil() {
				return Number(float64(i + 1)), v, true
			}
		}
		return t.firstHashEntry()
	}

	if i, ok := arrayIndex(k); ok && i < len(t.array) {
		for j := i + 1; j < len(t.array); j++ {
			if !t.array[j].IsNil() {
				return Number(float64(j + 1)), t.array[j], true
			}
		}
		return t.firstHashEntry()
	}

	return t.nextHashEntry(k)
}

func (t *Table) firstHashEntry() (Value, Value, bool) {
	var rk, rv Value
	found := false
	t.hash.Iter(func(k, v Value) bool {
		rk, rv = k, v
		found = true
		return true
	})
	return rk, rv, found
}

// nextHashEntry walks the hash part once to find the key following
// after, which is O(n) but matches SwissTable's lack of stable cursor
// iteration; acceptable for the interpreter's use (generic for loops
// don't typically hold a live "next" iterator across mutation).
func (t *Table) nextHashEntry(after Value) (Value, Value, bool) {
	var keys []Value
	var vals []Value
	t.hash.Iter(func(k, v Value) bool {
		keys = append(keys, k)
		vals = append(vals, v)
		return false
	})
	for i, k := range keys {
		if RawEqual(k, after) {
			if i+1 < len(keys) {
				return keys[i+1], vals[i+1], true
			}
			return Nil, Nil, false
		}
	}
	return Nil, Nil, false
}

// traceRefs visits every Value reachable from t (array slots, hash keys
// and values, and the metatable) for the collector's propagate phase.
func (t *Table) traceRefs(markObj func(gcObj), mark func(Value)) {
	for _, v := range t.array {
		mark(v)
	}
	t.hash.Iter(func(k, v Value) bool {
		mark(k)
		mark(v)
		return false
	})
	if t.Metatable != nil {
		mark(TableValue(t.Metatable))
	}
}
