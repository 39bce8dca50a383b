package vm

import "math"

// call dispatches to a Lua closure or a host GoFunction, wrapping the
// Lua-closure path in a panic/recover so a RuntimeError raised at any
// depth surfaces here as a Go error value.
func (s *State) call(fn Value, args []Value, expectedResults int) (results []Value, err error) {
	switch {
	case fn.IsFunction() && fn.AsClosure() != nil:
		defer func() {
			if r := recover(); r != nil {
				rerr, ok := r.(*RuntimeError)
				if !ok {
					panic(r)
				}
				err = rerr
			}
		}()
		results = s.execClosure(fn.AsClosure(), args, expectedResults)
		return results, nil
	case fn.IsFunction() && fn.AsGoFunc() != nil:
		return s.callGoFunc(fn.AsGoFunc(), args), nil
	default:
		if mm := s.metamethod(fn, "__call"); !mm.IsNil() {
			return s.call(mm, append([]Value{fn}, args...), expectedResults)
		}
		s.RaiseErrorf("attempt to call a %s value", fn.TypeName())
		return nil, nil
	}
}

func (s *State) callGoFunc(g *GoFunction, args []Value) []Value {
	base := len(s.stack)
	s.stack = append(s.stack, args...)
	f := &Frame{Base: base, ExpectedResults: -1}
	s.frames = append(s.frames, f)
	n := g.Fn(s)
	results := append([]Value(nil), s.stack[base:base+n]...)
	s.frames = s.frames[:len(s.frames)-1]
	s.stack = s.stack[:base]
	return results
}

// execClosure pushes a new frame for c, runs the dispatch loop to
// completion, and returns its results.
func (s *State) execClosure(c *Closure, args []Value, expectedResults int) []Value {
	base := len(s.stack)
	p := c.Proto

	for i := 0; i < p.NumParams; i++ {
		if i < len(args) {
			s.stack = append(s.stack, args[i])
		} else {
			s.stack = append(s.stack, Nil)
		}
	}
	for len(s.stack) < base+p.MaxStack {
		s.stack = append(s.stack, Nil)
	}

	var varargs []Value
	if p.IsVararg && len(args) > p.NumParams {
		varargs = append([]Value(nil), args[p.NumParams:]...)
	}

	f := &Frame{Closure: c, Base: base, ExpectedResults: expectedResults, Varargs: varargs}
	s.frames = append(s.frames, f)

	// Deferred so a RuntimeError panic unwinding through this frame still
	// closes its open upvalues and pops its frame/stack slice, the same
	// as a normal return.
	defer func() {
		s.closeUpvalsFrom(base)
		s.frames = s.frames[:len(s.frames)-1]
		s.stack = s.stack[:base]
	}()

	return s.runFrame(f)
}

// runFrame is the dispatch loop: fetch, increment pc,
// decode, execute.
func (s *State) runFrame(f *Frame) []Value {
	p := f.Closure.Proto
	base := f.Base
	reg := func(i int) Value { return s.stack[base+i] }
	setReg := func(i int, v Value) { s.stack[base+i] = v }
	rk := func(field int) Value {
		if IsK(field) {
			return p.Constants[KIndex(field)]
		}
		return reg(field)
	}

	for {
		if f.PC >= len(p.Code) {
			return nil
		}
		ins := p.Code[f.PC]
		f.PC++
		op := ins.OpCode()

		switch op {
		case OpMove:
			setReg(ins.A(), reg(ins.B()))

		case OpLoadK:
			setReg(ins.A(), p.Constants[ins.Bx()])

		case OpLoadBool:
			setReg(ins.A(), Bool(ins.B() != 0))
			if ins.C() != 0 {
				f.PC++
			}

		case OpLoadNil:
			for r := ins.A(); r <= ins.B(); r++ {
				setReg(r, Nil)
			}

		case OpGetUpval:
			setReg(ins.A(), f.Closure.Upvalues[ins.B()].Get())

		case OpSetUpval:
			f.Closure.Upvalues[ins.B()].Set(s.GC, reg(ins.A()))

		case OpGetGlobal:
			key := p.Constants[ins.Bx()]
			setReg(ins.A(), s.Globals.Get(key))

		case OpSetGlobal:
			key := p.Constants[ins.Bx()]
			s.Globals.Set(s.GC, key, reg(ins.A()))

		case OpGetTable:
			setReg(ins.A(), s.index(reg(ins.B()), rk(ins.C())))

		case OpSetTable:
			s.newindex(reg(ins.A()), rk(ins.B()), rk(ins.C()))

		case OpNewTable:
			setReg(ins.A(), TableValue(NewTable(s.GC)))

		case OpSelf:
			obj := reg(ins.B())
			setReg(ins.A()+1, obj)
			setReg(ins.A(), s.index(obj, rk(ins.C())))

		case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpPow:
			setReg(ins.A(), s.arith(op, rk(ins.B()), rk(ins.C())))

		case OpUnm:
			setReg(ins.A(), s.arith(OpSub, Number(0), reg(ins.B())))

		case OpNot:
			setReg(ins.A(), Bool(!reg(ins.B()).Truthy()))

		case OpLen:
			setReg(ins.A(), s.length(reg(ins.B())))

		case OpConcat:
			setReg(ins.A(), s.concat(base, ins.B(), ins.C()))

		case OpJmp:
			f.PC += ins.SBx()

		case OpEq:
			if s.equals(rk(ins.B()), rk(ins.C())) != (ins.A() != 0) {
				f.PC++
			}

		case OpLt:
			if s.less(rk(ins.B()), rk(ins.C())) != (ins.A() != 0) {
				f.PC++
			}

		case OpLe:
			if s.lessEqual(rk(ins.B()), rk(ins.C())) != (ins.A() != 0) {
				f.PC++
			}

		case OpTest:
			if reg(ins.A()).Truthy() != (ins.C() != 0) {
				f.PC++
			}

		case OpTestSet:
			b := reg(ins.B())
			if b.Truthy() == (ins.C() != 0) {
				setReg(ins.A(), b)
			} else {
				f.PC++
			}

		case OpCall:
			s.execCall(f, base, ins)

		case OpTailCall:
			results := s.doCall(f, base, ins.A(), ins.B(), -1)
			s.closeUpvalsFrom(base)
			return results

		case OpReturn:
			a, b := ins.A(), ins.B()
			var results []Value
			if b == 0 {
				results = append([]Value(nil), s.stack[base+a:]...)
			} else {
				results = append([]Value(nil), s.stack[base+a:base+a+b-1]...)
			}
			return results

		case OpForPrep:
			a := ins.A()
			setReg(a, Number(reg(a).AsNumber()-reg(a+2).AsNumber()))
			f.PC += ins.SBx()

		case OpForLoop:
			a := ins.A()
			step := reg(a + 2).AsNumber()
			next := reg(a).AsNumber() + step
			limit := reg(a + 1).AsNumber()
			cont := (step > 0 && next <= limit) || (step < 0 && next >= limit)
			if cont {
				setReg(a, Number(next))
				setReg(a+3, Number(next))
				f.PC += ins.SBx()
			}

		case OpTForLoop:
			a, c := ins.A(), ins.C()
			results, _ := s.call(reg(a), []Value{reg(a + 1), reg(a + 2)}, c)
			for i := 0; i < c; i++ {
				if i < len(results) {
					setReg(a+3+i, results[i])
				} else {
					setReg(a+3+i, Nil)
				}
			}
			if reg(a + 3).IsNil() {
				f.PC++
			} else {
				setReg(a+2, reg(a+3))
			}

		case OpSetList:
			a, b, c := ins.A(), ins.B(), ins.C()
			t := reg(a).AsTable()
			const fieldsPerFlush = 50
			if b == 0 {
				b = len(s.stack) - (base + a) - 1
			}
			for i := 1; i <= b; i++ {
				t.Set(s.GC, Number(float64((c-1)*fieldsPerFlush+i)), reg(a+i))
			}

		case OpClose:
			s.closeUpvalsFrom(base + ins.A())

		case OpClosure:
			nested := p.Protos[ins.Bx()]
			setReg(ins.A(), ClosureValue(s.makeClosure(f, nested)))
			// The compiler emits one MOVE/GETUPVAL pseudo-instruction per
			// upvalue descriptor right after CLOSURE; makeClosure already
			// consumed that binding information from nested.Upvalues, so
			// skip them here rather than letting the loop fetch and
			// execute them as real instructions.
			f.PC += len(nested.Upvalues)

		case OpVararg:
			a, b := ins.A(), ins.B()
			n := len(f.Varargs)
			if b != 0 {
				n = b - 1
			}
			for i := 0; i < n; i++ {
				if i < len(f.Varargs) {
					setReg(a+i, f.Varargs[i])
				} else {
					setReg(a+i, Nil)
				}
			}
		}
	}
}

// execCall handles CALL by delegating to doCall and writing results back
// into the caller's registers. CALL never ends the frame.
func (s *State) execCall(f *Frame, base int, ins Instruction) {
	results := s.doCall(f, base, ins.A(), ins.B(), ins.C()-1)
	a := ins.A()
	c := ins.C()
	if c == 0 {
		s.stack = s.stack[:base+a]
		s.stack = append(s.stack, results...)
	} else {
		for i := 0; i < c-1; i++ {
			if i < len(results) {
				s.stack[base+a+i] = results[i]
			} else {
				s.stack[base+a+i] = Nil
			}
		}
	}
}

// doCall implements CALL/TAILCALL's argument gathering: the
// callable is R(A), arguments are R(A+1..A+B-1), with B=0 meaning "up to
// stack top".
func (s *State) doCall(f *Frame, base, a, b, expected int) []Value {
	fn := s.stack[base+a]
	var args []Value
	if b == 0 {
		args = append([]Value(nil), s.stack[base+a+1:]...)
	} else {
		args = append([]Value(nil), s.stack[base+a+1:base+a+b]...)
	}
	results, err := s.call(fn, args, expected)
	if err != nil {
		panic(err)
	}
	return results
}

// makeClosure implements CLOSURE's binding protocol: for
// each upvalue descriptor of the nested Proto, it either finds/creates an
// open upvalue aliasing the enclosing frame's stack slot, or shares the
// enclosing closure's own upvalue.
func (s *State) makeClosure(f *Frame, nested *Proto) *Closure {
	c := &Closure{Proto: nested}
	s.GC.register(c)
	c.Upvalues = make([]*Upvalue, len(nested.Upvalues))
	for i, desc := range nested.Upvalues {
		if desc.FromLocal {
			c.Upvalues[i] = s.findOrCreateUpvalue(f.Base + desc.Index)
		} else {
			c.Upvalues[i] = f.Closure.Upvalues[desc.Index]
		}
	}
	return c
}

func (s *State) findOrCreateUpvalue(slot int) *Upvalue {
	var prev *Upvalue
	cur := s.openUpvals
	for cur != nil && cur.slot > slot {
		prev = cur
		cur = cur.next
	}
	if cur != nil && cur.slot == slot {
		return cur
	}
	uv := newOpenUpvalue(&s.stack, slot)
	s.GC.register(uv)
	uv.next = cur
	if prev == nil {
		s.openUpvals = uv
	} else {
		prev.next = uv
	}
	return uv
}

// closeUpvalsFrom implements CLOSE: every open upvalue at
// slot >= from is closed and unlinked.
func (s *State) closeUpvalsFrom(from int) {
	for s.openUpvals != nil && s.openUpvals.slot >= from {
		s.openUpvals.close(s.GC)
		s.openUpvals = s.openUpvals.next
	}
}

func (s *State) metamethod(v Value, name string) Value {
	var mt *Table
	switch {
	case v.IsTable():
		mt = v.AsTable().Metatable
	case v.IsUserData():
		mt = v.AsUserData().Metatable
	}
	if mt == nil {
		return Nil
	}
	return mt.Get(s.Intern(name))
}

func (s *State) index(obj, key Value) Value {
	if t := obj.AsTable(); t != nil {
		v := t.Get(key)
		if !v.IsNil() || t.Metatable == nil {
			return v
		}
		idx := t.Metatable.Get(s.Intern("__index"))
		if idx.IsNil() {
			return Nil
		}
		if idx.IsTable() {
			return s.index(idx, key)
		}
		results, err := s.call(idx, []Value{obj, key}, 1)
		if err != nil {
			panic(err)
		}
		if len(results) > 0 {
			return results[0]
		}
		return Nil
	}
	if obj.IsString() {
		// strings have no user-facing fields without a string library
		// metatable installed; returning nil matches raw indexing here.
		return Nil
	}
	if u := obj.AsUserData(); u != nil {
		if u.Metatable == nil {
			s.RaiseErrorf("attempt to index a userdata value")
			return Nil
		}
		idx := u.Metatable.Get(s.Intern("__index"))
		if idx.IsNil() {
			return Nil
		}
		if idx.IsTable() {
			return s.index(idx, key)
		}
		results, err := s.call(idx, []Value{obj, key}, 1)
		if err != nil {
			panic(err)
		}
		if len(results) > 0 {
			return results[0]
		}
		return Nil
	}
	s.RaiseErrorf("attempt to index a %s value", obj.TypeName())
	return Nil
}

func (s *State) newindex(obj, key, val Value) {
	t := obj.AsTable()
	if t == nil {
		if u := obj.AsUserData(); u != nil {
			if u.Metatable == nil {
				s.RaiseErrorf("attempt to index a userdata value")
				return
			}
			ni := u.Metatable.Get(s.Intern("__newindex"))
			if ni.IsNil() {
				s.RaiseErrorf("attempt to index a userdata value")
				return
			}
			if ni.IsTable() {
				s.newindex(ni, key, val)
				return
			}
			if _, err := s.call(ni, []Value{obj, key, val}, 0); err != nil {
				panic(err)
			}
			return
		}
		s.RaiseErrorf("attempt to index a %s value", obj.TypeName())
		return
	}
	if !t.Get(key).IsNil() || t.Metatable == nil {
		t.Set(s.GC, key, val)
		return
	}
	ni := t.Metatable.Get(s.Intern("__newindex"))
	if ni.IsNil() {
		t.Set(s.GC, key, val)
		return
	}
	if ni.IsTable() {
		s.newindex(ni, key, val)
		return
	}
	if _, err := s.call(ni, []Value{obj, key, val}, 0); err != nil {
		panic(err)
	}
}

func (s *State) length(v Value) Value {
	if v.IsString() {
		return Number(float64(len(v.AsString().Value)))
	}
	if t := v.AsTable(); t != nil {
		if t.Metatable != nil {
			if mm := t.Metatable.Get(s.Intern("__len")); !mm.IsNil() {
				results, err := s.call(mm, []Value{v}, 1)
				if err != nil {
					panic(err)
				}
				if len(results) > 0 {
					return results[0]
				}
			}
		}
		return Number(float64(t.Len()))
	}
	s.RaiseErrorf("attempt to get length of a %s value", v.TypeName())
	return Nil
}

func (s *State) concat(base, b, c int) Value {
	var sb []byte
	for i := b; i <= c; i++ {
		v := s.stack[base+i]
		switch {
		case v.IsString():
			sb = append(sb, v.AsString().Value...)
		case v.IsNumber():
			sb = append(sb, v.String()...)
		default:
			s.RaiseErrorf("attempt to concatenate a %s value", v.TypeName())
		}
	}
	return s.Intern(string(sb))
}

var arithMeta = map[OpCode]string{
	OpAdd: "__add", OpSub: "__sub", OpMul: "__mul",
	OpDiv: "__div", OpMod: "__mod", OpPow: "__pow",
}

func (s *State) arith(op OpCode, a, b Value) Value {
	if a.IsNumber() && b.IsNumber() {
		x, y := a.AsNumber(), b.AsNumber()
		switch op {
		case OpAdd:
			return Number(x + y)
		case OpSub:
			return Number(x - y)
		case OpMul:
			return Number(x * y)
		case OpDiv:
			return Number(x / y)
		case OpMod:
			return Number(x - math.Floor(x/y)*y)
		case OpPow:
			return Number(math.Pow(x, y))
		}
	}
	name := arithMeta[op]
	if mm := s.metamethod(a, name); !mm.IsNil() {
		return s.call1(mm, a, b)
	}
	if mm := s.metamethod(b, name); !mm.IsNil() {
		return s.call1(mm, a, b)
	}
	bad := a
	if a.IsNumber() {
		bad = b
	}
	s.RaiseErrorf("attempt to perform arithmetic on a %s value", bad.TypeName())
	return Nil
}

func (s *State) call1(fn, a, b Value) Value {
	results, err := s.call(fn, []Value{a, b}, 1)
	if err != nil {
		panic(err)
	}
	if len(results) > 0 {
		return results[0]
	}
	return Nil
}

func (s *State) equals(a, b Value) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	if RawEqual(a, b) {
		return true
	}
	if a.IsTable() {
		mm := s.metamethod(a, "__eq")
		if mm.IsNil() {
			mm = s.metamethod(b, "__eq")
		}
		if !mm.IsNil() {
			return s.call1(mm, a, b).Truthy()
		}
	}
	return false
}

func (s *State) less(a, b Value) bool {
	if a.IsNumber() && b.IsNumber() {
		return a.AsNumber() < b.AsNumber()
	}
	if a.IsString() && b.IsString() {
		return a.AsString().Value < b.AsString().Value
	}
	if mm := s.metamethod(a, "__lt"); !mm.IsNil() {
		return s.call1(mm, a, b).Truthy()
	}
	if mm := s.metamethod(b, "__lt"); !mm.IsNil() {
		return s.call1(mm, a, b).Truthy()
	}
	s.RaiseErrorf("attempt to compare two %s values", a.TypeName())
	return false
}

func (s *State) lessEqual(a, b Value) bool {
	if a.IsNumber() && b.IsNumber() {
		return a.AsNumber() <= b.AsNumber()
	}
	if a.IsString() && b.IsString() {
		return a.AsString().Value <= b.AsString().Value
	}
	if mm := s.metamethod(a, "__le"); !mm.IsNil() {
		return s.call1(mm, a, b).Truthy()
	}
	if mm := s.metamethod(b, "__le"); !mm.IsNil() {
		return s.call1(mm, a, b).Truthy()
	}
	return !s.less(b, a)
}
