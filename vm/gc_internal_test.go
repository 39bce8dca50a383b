package vm

import "testing"

func TestUpvalueDoubleCloseIsNoOp(t *testing.T) {
	gc := NewCollector(func() []Value { return nil })
	stack := []Value{Number(7)}
	uv := newOpenUpvalue(&stack, 0)

	uv.close(gc)
	if uv.Get().AsNumber() != 7 {
		t.Fatalf("expected closed upvalue to retain 7, got %v", uv.Get())
	}

	stack[0] = Number(999) // closed upvalue must no longer alias the stack
	uv.close(gc)           // second close must be a no-op
	if uv.Get().AsNumber() != 7 {
		t.Fatalf("double-close mutated the closed value: got %v", uv.Get())
	}
}

func TestBarrierOnlyMarksFromBlack(t *testing.T) {
	gc := NewCollector(func() []Value { return nil })
	t1 := NewTable(gc)
	t2 := NewTable(gc)

	t1.color().mark = white
	gc.barrier(t1, TableValue(t2))
	if t2.color().mark != white {
		t.Fatalf("barrier must not mark through a non-black owner")
	}

	t1.color().mark = black
	gc.barrier(t1, TableValue(t2))
	if t2.color().mark != gray {
		t.Fatalf("barrier must mark a white referent gray when the owner is black")
	}
}
