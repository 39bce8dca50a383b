package vm

// Upvalue is a shared, mutable cell. While open, it aliases a slot on a
// State's value stack so writes through the stack and writes through the
// upvalue observe each other; CLOSE copies the live value into the cell
// and severs that alias.
type Upvalue struct {
	gcColor

	stack *[]Value // non-nil while open
	slot  int      // absolute stack index while open

	closed Value // valid once the upvalue is closed

	isOpen bool
	next   *Upvalue // open-upvalue list link, ordered by descending slot
}

func newOpenUpvalue(stack *[]Value, slot int) *Upvalue {
	return &Upvalue{stack: stack, slot: slot, isOpen: true}
}

// Get reads the upvalue's current value, whether open or closed.
func (u *Upvalue) Get() Value {
	if u.isOpen {
		return (*u.stack)[u.slot]
	}
	return u.closed
}

// Set writes through the upvalue.
func (u *Upvalue) Set(gc *Collector, v Value) {
	if u.isOpen {
		(*u.stack)[u.slot] = v
		return
	}
	gc.barrier(u, v)
	u.closed = v
}

// close severs the stack alias, copying the live value into the cell.
// Safe to call redundantly.
func (u *Upvalue) close(gc *Collector) {
	if !u.isOpen {
		return
	}
	v := (*u.stack)[u.slot]
	gc.barrier(u, v)
	u.closed = v
	u.isOpen = false
	u.stack = nil
}

// Closure pairs a Proto with the upvalues it closed over at CLOSURE time.
type Closure struct {
	gcColor

	Proto    *Proto
	Upvalues []*Upvalue
}

func (c *Closure) traceRefs(markObj func(gcObj), mark func(Value)) {
	if c.Proto != nil {
		markObj(c.Proto)
	}
	for _, uv := range c.Upvalues {
		markObj(uv)
	}
}

// GoFunction wraps a host-implemented callable.
type GoFunction struct {
	gcColor

	Name string
	Fn   func(s *State) int
}
