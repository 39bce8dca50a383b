// Package compiler lowers an ast.Block into a vm.Proto: register
// allocation, scope/upvalue resolution, constant folding, and Proto
// emission.
package compiler

import "fmt"

// registers is the per-function register allocator,
// grounded on original_source's RegisterAllocator: a monotonically
// increasing "next free" register with LIFO release of temporaries, plus
// a high-water mark that becomes the Proto's MaxStack.
type registers struct {
	next     int
	maxStack int
}

// Reserve allocates n consecutive fresh registers and returns the first.
func (r *registers) Reserve(n int) (int, error) {
	first := r.next
	r.next += n
	if r.next > maxRegisters {
		return 0, fmt.Errorf("function uses more than %d registers", maxRegisters)
	}
	r.maxStack = highWater(r.maxStack, r.next)
	return first, nil
}

// Alloc reserves a single fresh register.
func (r *registers) Alloc() (int, error) { return r.Reserve(1) }

// FreeTo releases every register at or above mark, restoring next to
// mark. Temporaries are always released in LIFO order relative to when
// they were reserved, so this is always safe as long as mark was
// obtained from Mark() before the registers being freed were allocated.
func (r *registers) FreeTo(mark int) {
	if mark < r.next {
		r.next = mark
	}
}

// Mark returns the current allocation pointer, to be passed to FreeTo
// once temporaries allocated after this point are no longer needed.
func (r *registers) Mark() int { return r.next }

const maxRegisters = 255 // fits an 8-bit A field
const maxLocals = 200    // Lua 5.1.5's own limit
const maxUpvalues = 255
const maxConstants = 1<<18 - 1
