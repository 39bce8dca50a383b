package compiler

import (
	"testing"

	"github.com/glua-lang/glua/parser"
	"github.com/glua-lang/glua/source"
	"github.com/glua-lang/glua/vm"
)

func mustCompile(t *testing.T, src string, opts Options) *vm.Proto {
	t.Helper()
	file := source.NewFile("test.lua", src)
	block, err := parser.Parse(file)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	proto, err := Compile(block, file.Filename, opts)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	return proto
}

// TestMaxStackCoversEveryWrittenRegister checks that max_stack_size(P)
// >= max(A field over every register-writing instruction) + 1.
func TestMaxStackCoversEveryWrittenRegister(t *testing.T) {
	proto := mustCompile(t, `local a, b, c = 1, 2, 3
return a + b + c`, DefaultOptions())

	maxA := -1
	for _, ins := range proto.Code {
		switch ins.OpCode() {
		case vm.OpMove, vm.OpLoadK, vm.OpLoadBool, vm.OpLoadNil, vm.OpAdd, vm.OpSub,
			vm.OpMul, vm.OpDiv, vm.OpMod, vm.OpPow, vm.OpGetTable, vm.OpNewTable,
			vm.OpGetUpval, vm.OpGetGlobal, vm.OpUnm, vm.OpNot, vm.OpLen, vm.OpConcat,
			vm.OpSelf, vm.OpCall, vm.OpClosure, vm.OpVararg:
			if ins.A() > maxA {
				maxA = ins.A()
			}
		}
	}
	if proto.MaxStack < maxA+1 {
		t.Fatalf("MaxStack=%d does not cover highest written register %d", proto.MaxStack, maxA)
	}
}

// TestBytecodeIndicesInBounds checks that every LOADK/CLOSURE index is in
// range and every jump lands in [0, len(code)).
func TestBytecodeIndicesInBounds(t *testing.T) {
	proto := mustCompile(t, `local function f(x)
  if x > 0 then
    return x
  else
    return -x
  end
end
return f(5), f(-5)`, DefaultOptions())

	checkProto(t, proto)
}

func checkProto(t *testing.T, p *vm.Proto) {
	t.Helper()
	for pc, ins := range p.Code {
		switch ins.OpCode() {
		case vm.OpLoadK, vm.OpGetGlobal, vm.OpSetGlobal:
			if ins.Bx() >= len(p.Constants) {
				t.Fatalf("pc %d: Bx %d out of range for %d constants", pc, ins.Bx(), len(p.Constants))
			}
		case vm.OpClosure:
			if ins.Bx() >= len(p.Protos) {
				t.Fatalf("pc %d: Bx %d out of range for %d protos", pc, ins.Bx(), len(p.Protos))
			}
		case vm.OpJmp, vm.OpForPrep, vm.OpForLoop:
			target := pc + 1 + ins.SBx()
			if target < 0 || target > len(p.Code) {
				t.Fatalf("pc %d: jump target %d out of bounds [0,%d]", pc, target, len(p.Code))
			}
		}
	}
	for _, nested := range p.Protos {
		checkProto(t, nested)
	}
}

func TestConstantPoolDedup(t *testing.T) {
	proto := mustCompile(t, `local a = "dup"
local b = "dup"
return a, b`, DefaultOptions())

	count := 0
	for _, k := range proto.Constants {
		if k.IsString() && k.AsString().Value == "dup" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected the string constant 'dup' to be deduplicated, found %d copies", count)
	}
}

func TestFoldingInvarianceBytecodeShape(t *testing.T) {
	src := `return 1 + 2 * 3`
	folded := mustCompile(t, src, Options{Fold: true, Peephole: true})
	unfolded := mustCompile(t, src, Options{Fold: false, Peephole: false})

	hasArith := func(p *vm.Proto) bool {
		for _, ins := range p.Code {
			if ins.OpCode() == vm.OpAdd || ins.OpCode() == vm.OpMul {
				return true
			}
		}
		return false
	}
	if hasArith(folded) {
		t.Fatalf("expected constant folding to eliminate arithmetic opcodes")
	}
	if !hasArith(unfolded) {
		t.Fatalf("expected arithmetic opcodes to survive with folding disabled")
	}
}

func TestPeepholeCollapsesJumpChains(t *testing.T) {
	proto := mustCompile(t, `local x = 1
while x < 10 do
  if x == 5 then
    break
  end
  x = x + 1
end
return x`, DefaultOptions())

	checkProto(t, proto)
	for pc, ins := range proto.Code {
		if ins.OpCode() != vm.OpJmp {
			continue
		}
		target := pc + 1 + ins.SBx()
		if target < len(proto.Code) && proto.Code[target].OpCode() == vm.OpJmp {
			t.Fatalf("pc %d: JMP targets another JMP at pc %d", pc, target)
		}
	}
}
