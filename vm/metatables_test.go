package vm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/glua-lang/glua/compiler"
	"github.com/glua-lang/glua/parser"
	"github.com/glua-lang/glua/source"
	"github.com/glua-lang/glua/vm"
)

// compileAndRun compiles src against an existing State (so globals set up
// by the caller stay visible) and returns every returned value.
func compileAndRun(t *testing.T, state *vm.State, src string) []vm.Value {
	t.Helper()
	file := source.NewFile("test.lua", src)
	block, err := parser.Parse(file)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	proto, err := compiler.Compile(block, file.Filename, compiler.DefaultOptions())
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	closure := state.Load(proto)
	results, err := state.Call(vm.ClosureValue(closure), nil)
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	return results
}

// globalFunc installs a fixed-arity host function under name, adapting
// between the GoFunction stack convention and a plain Go slice.
func globalFunc(state *vm.State, name string, arity int, fn func(args []vm.Value) []vm.Value) {
	g := &vm.GoFunction{Name: name, Fn: func(s *vm.State) int {
		base := s.Top() - arity
		args := make([]vm.Value, arity)
		for i := 0; i < arity; i++ {
			args[i] = s.Get(base + i)
		}
		results := fn(args)
		for i, r := range results {
			s.Set(base+i, r)
		}
		return len(results)
	}}
	state.Globals.Set(state.GC, state.Intern(name), vm.GoFuncValue(g))
}

func TestMetatableArithmetic(t *testing.T) {
	state := vm.NewState()
	compileAndRun(t, state, `
mt = {}
mt.__add = function(a, b) return a.v + b.v end
t1 = {v = 3}
t2 = {v = 4}
`)
	mt := state.Globals.Get(state.Intern("mt")).AsTable()
	t1 := state.Globals.Get(state.Intern("t1")).AsTable()
	t2 := state.Globals.Get(state.Intern("t2")).AsTable()
	t1.Metatable = mt
	t2.Metatable = mt

	results := compileAndRun(t, state, `return t1 + t2`)
	assert.Equal(t, float64(7), results[0].AsNumber())
}

func TestMetatableEqLtLe(t *testing.T) {
	state := vm.NewState()
	compileAndRun(t, state, `
mt = {}
mt.__eq = function(a, b) return a.v == b.v end
mt.__lt = function(a, b) return a.v < b.v end
mt.__le = function(a, b) return a.v <= b.v end
a = {v = 1}
b = {v = 1}
c = {v = 2}
`)
	mt := state.Globals.Get(state.Intern("mt")).AsTable()
	for _, name := range []string{"a", "b", "c"} {
		state.Globals.Get(state.Intern(name)).AsTable().Metatable = mt
	}

	t.Run("__eq", func(t *testing.T) {
		v := compileAndRun(t, state, `return a == b`)
		assert.True(t, v[0].AsBool())
	})
	t.Run("__lt", func(t *testing.T) {
		v := compileAndRun(t, state, `return a < c`)
		assert.True(t, v[0].AsBool())
	})
	t.Run("__le", func(t *testing.T) {
		v := compileAndRun(t, state, `return a <= b, c <= a`)
		assert.True(t, v[0].AsBool())
		assert.False(t, v[1].AsBool())
	})
}

func TestMetatableCallAndLen(t *testing.T) {
	state := vm.NewState()
	compileAndRun(t, state, `
mt = {}
mt.__call = function(self, x) return self.v + x end
mt.__len = function(self) return 42 end
callable = {v = 100}
`)
	mt := state.Globals.Get(state.Intern("mt")).AsTable()
	state.Globals.Get(state.Intern("callable")).AsTable().Metatable = mt

	t.Run("__call", func(t *testing.T) {
		v := compileAndRun(t, state, `return callable(5)`)
		assert.Equal(t, float64(105), v[0].AsNumber())
	})
	t.Run("__len", func(t *testing.T) {
		v := compileAndRun(t, state, `return #callable`)
		assert.Equal(t, float64(42), v[0].AsNumber())
	})
}

func TestMetatableIndexAndNewindex(t *testing.T) {
	state := vm.NewState()
	compileAndRun(t, state, `
fallback = {greeting = "hi"}
mt = {}
mt.__index = fallback
obj = {}
`)
	mt := state.Globals.Get(state.Intern("mt")).AsTable()
	state.Globals.Get(state.Intern("obj")).AsTable().Metatable = mt

	t.Run("__index table form", func(t *testing.T) {
		v := compileAndRun(t, state, `return obj.greeting`)
		assert.Equal(t, "hi", v[0].String())
	})

	t.Run("__index function form", func(t *testing.T) {
		state2 := vm.NewState()
		compileAndRun(t, state2, `
mt = {}
mt.__index = function(t, k) return k.."!" end
obj = {}
`)
		mt2 := state2.Globals.Get(state2.Intern("mt")).AsTable()
		state2.Globals.Get(state2.Intern("obj")).AsTable().Metatable = mt2
		v := compileAndRun(t, state2, `return obj.missing`)
		assert.Equal(t, "missing!", v[0].String())
	})

	t.Run("__newindex function form", func(t *testing.T) {
		state3 := vm.NewState()
		compileAndRun(t, state3, `
log = nil
mt = {}
mt.__newindex = function(t, k, v) log = k.."="..v end
obj = {}
`)
		mt3 := state3.Globals.Get(state3.Intern("mt")).AsTable()
		state3.Globals.Get(state3.Intern("obj")).AsTable().Metatable = mt3
		compileAndRun(t, state3, `obj.x = "val"`)
		logged := state3.Globals.Get(state3.Intern("log"))
		assert.Equal(t, "x=val", logged.String())
		// obj itself must remain untouched: __newindex intercepted the write.
		v := compileAndRun(t, state3, `return obj.x`)
		assert.True(t, v[0].IsNil())
	})
}

func TestUserDataMetatableIndexAndCall(t *testing.T) {
	state := vm.NewState()
	u := vm.NewUserData(state.GC, 7)
	mt := vm.NewTable(state.GC)
	mt.Set(state.GC, state.Intern("__index"), vm.GoFuncValue(&vm.GoFunction{
		Name: "index",
		Fn: func(s *vm.State) int {
			base := s.Top() - 2
			ud := s.Get(base).AsUserData()
			s.Set(base, vm.Number(float64(ud.Data.(int))))
			return 1
		},
	}))
	u.Metatable = mt
	state.Globals.Set(state.GC, state.Intern("ud"), vm.UserDataValue(u))

	v := compileAndRun(t, state, `return ud.anything`)
	assert.Equal(t, float64(7), v[0].AsNumber())
}

func TestPCallCatchesRuntimeError(t *testing.T) {
	state := vm.NewState()
	compileAndRun(t, state, `function boom() local t = nil; return t.x end`)
	boom := state.Globals.Get(state.Intern("boom"))

	ok, results, errValue := state.PCall(boom, nil)
	assert.False(t, ok)
	assert.Nil(t, results)
	assert.True(t, errValue.IsString())
	assert.Contains(t, errValue.String(), "attempt to index a nil value")
}

func TestPCallSucceedsAndReturnsValues(t *testing.T) {
	state := vm.NewState()
	compileAndRun(t, state, `function add(a, b) return a + b end`)
	add := state.Globals.Get(state.Intern("add"))

	ok, results, errValue := state.PCall(add, []vm.Value{vm.Number(3), vm.Number(4)})
	assert.True(t, ok)
	assert.True(t, errValue.IsNil())
	assert.Equal(t, float64(7), results[0].AsNumber())
}

func TestPCallLeavesUpvaluesConsistentAfterError(t *testing.T) {
	// A closure that captures x lives across a failed protected call;
	// confirms closeUpvalsFrom runs on the panic-unwind path too (the
	// upvalue must still report the correct, live value afterward).
	state := vm.NewState()
	compileAndRun(t, state, `
function mk()
  local x = 9
  local function get() return x end
  local function fail() local t = nil; return t.missing end
  return get, fail
end
get, fail = mk()
`)
	get := state.Globals.Get(state.Intern("get"))
	fail := state.Globals.Get(state.Intern("fail"))

	ok, _, _ := state.PCall(fail, nil)
	assert.False(t, ok)

	results, err := state.Call(get, nil)
	assert.NoError(t, err)
	assert.Equal(t, float64(9), results[0].AsNumber())
}

func TestMethodCallSelf(t *testing.T) {
	v := run(t, `
local obj = {x = 10}
obj.getX = function(self) return self.x end
return obj:getX()`)
	assert.Equal(t, float64(10), v.AsNumber())
}

func TestVarargFunction(t *testing.T) {
	t.Run("adjusted assignment", func(t *testing.T) {
		v := run(t, `local function f(...) local a, b = ...; return a + b end
return f(3, 4)`)
		assert.Equal(t, float64(7), v.AsNumber())
	})

	t.Run("table constructor expansion", func(t *testing.T) {
		v := run(t, `local function f(...) local t = {...}; return t[1] + t[2] + t[3] end
return f(10, 20, 30)`)
		assert.Equal(t, float64(60), v.AsNumber())
	})

	t.Run("fixed params consume leading args", func(t *testing.T) {
		v := run(t, `local function f(first, ...) local rest = {...}; return first, rest[1] end
local a, b = f(1, 2, 3)
return a + b`)
		assert.Equal(t, float64(3), v.AsNumber())
	})
}

func TestGenericForOverTable(t *testing.T) {
	state := vm.NewState()
	globalFunc(state, "next", 2, func(args []vm.Value) []vm.Value {
		table := args[0].AsTable()
		k, v, ok := table.Next(args[1])
		if !ok {
			return []vm.Value{vm.Nil}
		}
		return []vm.Value{k, v}
	})

	results := compileAndRun(t, state, `
local t = {10, 20, 30}
local sum = 0
for k, v in next, t, nil do
  sum = sum + v
end
return sum`)
	assert.Equal(t, float64(60), results[0].AsNumber())
}

func TestTailCallDispatch(t *testing.T) {
	src := `local function double(x) return x * 2 end
return double(21)`
	file := source.NewFile("test.lua", src)
	block, err := parser.Parse(file)
	assert.NoError(t, err)
	proto, err := compiler.Compile(block, file.Filename, compiler.DefaultOptions())
	assert.NoError(t, err)

	patched := false
	for i, ins := range proto.Code {
		if ins.OpCode() == vm.OpCall {
			proto.Code[i] = vm.NewABC(vm.OpTailCall, ins.A(), ins.B(), ins.C())
			patched = true
			break
		}
	}
	assert.True(t, patched, "expected a CALL instruction to rewrite into TAILCALL")

	state := vm.NewState()
	closure := state.Load(proto)
	results, err := state.Call(vm.ClosureValue(closure), nil)
	assert.NoError(t, err)
	assert.Equal(t, float64(42), results[0].AsNumber())
}
