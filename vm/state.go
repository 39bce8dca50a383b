package vm

import "fmt"

// RuntimeError is the distinguished error variant raised by the
// dispatch loop. The ambient-stack design carries this
// as a regular Go return value rather than a panic tunneled through host
// code, except internally where panic/recover implements the unwind to
// the nearest protected call.
type RuntimeError struct {
	Value     Value
	Traceback []string
}

func (e *RuntimeError) Error() string {
	if e.Value.IsString() {
		return e.Value.AsString().Value
	}
	return fmt.Sprintf("non-string error: %s", e.Value.String())
}

// State is one Lua interpreter instance: its value stack, call-frame
// stack, globals/registry tables, open-upvalue list, string pool and GC.
// States share nothing with each other.
type State struct {
	stack  []Value
	frames []*Frame

	Globals  *Table
	Registry *Table

	openUpvals *Upvalue // head of the open-upvalue list, ordered by descending slot

	Strings *StringPool
	GC      *Collector

	protected int // nesting depth of active Call invocations; the unwind path does not consult it
}

// NewState constructs a fresh interpreter State with empty globals and
// registry tables.
func NewState() *State {
	s := &State{}
	s.GC = NewCollector(s.roots)
	s.Strings = NewStringPool(s.GC)
	s.Globals = NewTable(s.GC)
	s.Registry = NewTable(s.GC)
	return s
}

// roots supplies the collector's root set: the value stack,
// every active frame's closure, globals, registry, and the open-upvalue
// list.
func (s *State) roots() []Value {
	roots := make([]Value, 0, len(s.stack)+4)
	roots = append(roots, s.stack...)
	roots = append(roots, TableValue(s.Globals), TableValue(s.Registry))
	for _, f := range s.frames {
		if f.Closure != nil {
			roots = append(roots, ClosureValue(f.Closure))
		}
		roots = append(roots, f.Varargs...)
	}
	for u := s.openUpvals; u != nil; u = u.next {
		roots = append(roots, u.Get())
	}
	return roots
}

// Intern is a convenience wrapper returning an interned string Value.
func (s *State) Intern(str string) Value {
	return StringValue(s.Strings.Intern(str))
}

// ensureSize grows the stack so that index idx is valid, filling any new
// slots with nil.
func (s *State) ensureSize(idx int) {
	for idx >= len(s.stack) {
		s.stack = append(s.stack, Nil)
	}
}

func (s *State) Get(idx int) Value {
	if idx < 0 || idx >= len(s.stack) {
		return Nil
	}
	return s.stack[idx]
}

func (s *State) Set(idx int, v Value) {
	s.ensureSize(idx)
	s.stack[idx] = v
}

func (s *State) Push(v Value) {
	s.stack = append(s.stack, v)
}

func (s *State) Top() int { return len(s.stack) }

func (s *State) SetTop(n int) {
	for len(s.stack) < n {
		s.stack = append(s.stack, Nil)
	}
	s.stack = s.stack[:n]
}

// Load registers a freshly-compiled Proto tree (and its nested Protos)
// with the collector and wraps the top Proto in a Closure with no
// upvalues, ready to be called as a chunk's entry point.
func (s *State) Load(p *Proto) *Closure {
	s.registerProtoTree(p)
	c := &Closure{Proto: p}
	s.GC.register(c)
	return c
}

func (s *State) registerProtoTree(p *Proto) {
	for i, k := range p.Constants {
		if k.IsString() {
			p.Constants[i] = StringValue(s.Strings.Intern(k.AsString().Value))
		}
	}
	s.GC.register(p)
	for _, nested := range p.Protos {
		s.registerProtoTree(nested)
	}
}

// RaiseError raises v as a Lua error, unwinding to the nearest protected
// call via panic/recover.
func (s *State) RaiseError(v Value) {
	panic(&RuntimeError{Value: v})
}

// RaiseErrorf raises a formatted string error.
func (s *State) RaiseErrorf(format string, args ...interface{}) {
	s.RaiseError(s.Intern(fmt.Sprintf(format, args...)))
}

// Call invokes a callable Value with the given arguments and returns its
// results. A RuntimeError raised while a Lua closure runs comes back as
// the error value; one raised outside any Lua closure (calling a
// non-callable value, or a host function raising directly) propagates as
// a panic.
func (s *State) Call(fn Value, args []Value) ([]Value, error) {
	s.protected++
	defer func() { s.protected-- }()
	return s.call(fn, args, -1)
}

// PCall invokes fn and converts any RuntimeError into (false, errValue)
// instead of propagating it, implementing Lua's pcall semantics.
func (s *State) PCall(fn Value, args []Value) (ok bool, results []Value, errValue Value) {
	savedTop := len(s.stack)
	savedFrames := len(s.frames)

	defer func() {
		if r := recover(); r != nil {
			rerr, isRuntime := r.(*RuntimeError)
			if !isRuntime {
				panic(r)
			}
			s.closeUpvalsFrom(savedTop)
			s.stack = s.stack[:savedTop]
			s.frames = s.frames[:savedFrames]
			ok = false
			errValue = rerr.Value
		}
	}()

	res, err := s.call(fn, args, -1)
	if err != nil {
		rerr := err.(*RuntimeError)
		return false, nil, rerr.Value
	}
	return true, res, Nil
}
