package vm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/glua-lang/glua/compiler"
	"github.com/glua-lang/glua/parser"
	"github.com/glua-lang/glua/source"
	"github.com/glua-lang/glua/vm"
)

// run compiles and executes src with folding/peephole both enabled,
// returning the top-of-stack value.
func run(t *testing.T, src string) vm.Value {
	t.Helper()
	return runWithOptions(t, src, compiler.DefaultOptions())
}

func runWithOptions(t *testing.T, src string, opts compiler.Options) vm.Value {
	t.Helper()
	file := source.NewFile("test.lua", src)
	block, err := parser.Parse(file)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	proto, err := compiler.Compile(block, file.Filename, opts)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	state := vm.NewState()
	closure := state.Load(proto)
	results, err := state.Call(vm.ClosureValue(closure), nil)
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if len(results) == 0 {
		return vm.Nil
	}
	return results[0]
}

func TestEndToEndScenarios(t *testing.T) {
	t.Run("arithmetic precedence", func(t *testing.T) {
		v := run(t, `return 1 + 2 * 3`)
		assert.Equal(t, float64(7), v.AsNumber())
	})

	t.Run("table array indexing", func(t *testing.T) {
		v := run(t, `local t = {10, 20, 30}; return t[1] + t[2] + t[3]`)
		assert.Equal(t, float64(60), v.AsNumber())
	})

	t.Run("function call", func(t *testing.T) {
		v := run(t, `local function f(x) return x * x end; return f(5)`)
		assert.Equal(t, float64(25), v.AsNumber())
	})

	t.Run("closure capture counting", func(t *testing.T) {
		v := run(t, `local function mk() local x = 0; return function() x = x + 1; return x end end
local c = mk(); c(); c(); return c()`)
		assert.Equal(t, float64(3), v.AsNumber())
	})

	t.Run("shared upvalue", func(t *testing.T) {
		v := run(t, `local function mk()
  local x = 10
  local function get() return x end
  local function set(v) x = v end
  return get, set
end
local g, s = mk()
s(42)
return g()`)
		assert.Equal(t, float64(42), v.AsNumber())
	})

	t.Run("recursion fib(10)", func(t *testing.T) {
		v := run(t, `local function fib(n) if n < 2 then return n else return fib(n-1) + fib(n-2) end end
return fib(10)`)
		assert.Equal(t, float64(55), v.AsNumber())
	})

	t.Run("table mixed keys", func(t *testing.T) {
		v := run(t, `local t = {}; t[1] = "a"; t["x"] = "b"; t[2] = "c"; return t[1]..t[2]..t.x`)
		assert.True(t, v.IsString())
		assert.Equal(t, "acb", v.String())
	})

	t.Run("right-assoc concat single instruction", func(t *testing.T) {
		file := source.NewFile("test.lua", `return "a".. "b".. "c"`)
		block, err := parser.Parse(file)
		assert.NoError(t, err)
		proto, err := compiler.Compile(block, file.Filename, compiler.DefaultOptions())
		assert.NoError(t, err)

		concatCount := 0
		for _, ins := range proto.Code {
			if ins.OpCode() == vm.OpConcat {
				concatCount++
			}
		}
		assert.Equal(t, 1, concatCount, "expected exactly one CONCAT instruction")

		state := vm.NewState()
		closure := state.Load(proto)
		results, err := state.Call(vm.ClosureValue(closure), nil)
		assert.NoError(t, err)
		assert.Equal(t, "abc", results[0].String())
	})
}

func TestBoundaryBehaviors(t *testing.T) {
	t.Run("division by zero is inf", func(t *testing.T) {
		v := run(t, `return 1 / 0`)
		assert.Equal(t, "inf", v.String())
	})

	t.Run("zero over zero is nan", func(t *testing.T) {
		v := run(t, `return 0 / 0`)
		assert.Equal(t, "nan", v.String())
	})

	t.Run("nan is never equal to itself", func(t *testing.T) {
		v := run(t, `local n = 0/0; if n == n then return true else return false end`)
		assert.False(t, v.AsBool())
	})

	t.Run("empty return yields no results", func(t *testing.T) {
		file := source.NewFile("test.lua", `local function f() return end; f()`)
		block, err := parser.Parse(file)
		assert.NoError(t, err)
		proto, err := compiler.Compile(block, file.Filename, compiler.DefaultOptions())
		assert.NoError(t, err)
		state := vm.NewState()
		closure := state.Load(proto)
		results, err := state.Call(vm.ClosureValue(closure), nil)
		assert.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("numeric for with step zero never executes body", func(t *testing.T) {
		v := run(t, `local count = 0
for i = 1, 10, 0 do count = count + 1 end
return count`)
		assert.Equal(t, float64(0), v.AsNumber())
	})
}

func TestFoldingInvariance(t *testing.T) {
	src := `local t = {}
t[1] = 1 + 2 * 3
t[2] = "a".. "b"
t[3] = 10 / 4
return t[1], t[2], t[3]`

	folded := runAll(t, src, compiler.Options{Fold: true, Peephole: true})
	unfolded := runAll(t, src, compiler.Options{Fold: false, Peephole: false})

	assert.Equal(t, len(folded), len(unfolded))
	for i := range folded {
		assert.Equal(t, folded[i].String(), unfolded[i].String())
	}
}

func runAll(t *testing.T, src string, opts compiler.Options) []vm.Value {
	t.Helper()
	file := source.NewFile("test.lua", src)
	block, err := parser.Parse(file)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	proto, err := compiler.Compile(block, file.Filename, opts)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	state := vm.NewState()
	closure := state.Load(proto)
	results, err := state.Call(vm.ClosureValue(closure), nil)
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	return results
}

func TestStringInterningIdentity(t *testing.T) {
	v := run(t, `local a = "hello"
local b = "hel".. "lo"
if a == b then return true else return false end`)
	assert.True(t, v.AsBool())
}

func TestTableSetThenGet(t *testing.T) {
	gc := vm.NewCollector(func() []vm.Value { return nil })
	table := vm.NewTable(gc)
	table.Set(gc, vm.Number(1), vm.Number(99))
	assert.Equal(t, float64(99), table.Get(vm.Number(1)).AsNumber())

	t.Run("length reports a border", func(t *testing.T) {
		assert.Equal(t, 1, table.Len())
	})
}

func TestClosureSurvivesSiblingScopeExit(t *testing.T) {
	v := run(t, `local function mk()
  local x = 5
  local function get() return x end
  do
    local y = 1
  end
  return get()
end
return mk()`)
	assert.Equal(t, float64(5), v.AsNumber())
}

func TestFullGCLeavesReachableObjectsBlack(t *testing.T) {
	file := source.NewFile("test.lua", `local t = {}
for i = 1, 100 do t[i] = {i} end
return t`)
	block, err := parser.Parse(file)
	assert.NoError(t, err)
	proto, err := compiler.Compile(block, file.Filename, compiler.DefaultOptions())
	assert.NoError(t, err)

	state := vm.NewState()
	closure := state.Load(proto)
	results, err := state.Call(vm.ClosureValue(closure), nil)
	assert.NoError(t, err)

	state.GC.FullCollect()

	top := results[0].AsTable()
	assert.Equal(t, 100, top.Len())
	assert.Equal(t, float64(1), top.Get(vm.Number(1)).AsTable().Get(vm.Number(1)).AsNumber())
}
