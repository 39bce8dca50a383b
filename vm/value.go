// Package vm implements the register-based Lua 5.1.5 bytecode interpreter:
// Value representation, Proto/Instruction codec, Table, Closure/Upvalue,
// the tri-color garbage collector, and the dispatch loop.
package vm

import (
	"fmt"
	"math"
)

// Kind tags a Value's dynamic type.
type Kind byte

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindString
	KindTable
	KindFunction
	KindUserdata
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindTable:
		return "table"
	case KindFunction:
		return "function"
	case KindUserdata:
		return "userdata"
	}
	return "unknown"
}

// Value is Lua's tagged-union runtime value. Nil, booleans and numbers are
// stored inline; strings, tables, functions and userdata carry a heap
// pointer (gcObj) so the GC can trace and collect them.
type Value struct {
	kind Kind
	num  float64
	obj  gcObj
}

// gcObj is implemented by every heap-allocated, GC-traced value kind.
type gcObj interface {
	color() *gcColor
}

// Nil is the nil Value.
var Nil = Value{kind: KindNil}

// Bool wraps a boolean as a Value.
func Bool(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.num = 1
	}
	return v
}

// Number wraps a float64 as a Value.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// Kind returns the Value's dynamic type tag.
func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNil() bool      { return v.kind == KindNil }
func (v Value) IsBool() bool     { return v.kind == KindBool }
func (v Value) IsNumber() bool   { return v.kind == KindNumber }
func (v Value) IsString() bool   { return v.kind == KindString }
func (v Value) IsTable() bool    { return v.kind == KindTable }
func (v Value) IsFunction() bool { return v.kind == KindFunction }
func (v Value) IsUserData() bool { return v.kind == KindUserdata }

func (v Value) AsBool() bool      { return v.num != 0 }
func (v Value) AsNumber() float64 { return v.num }

func (v Value) AsString() *String {
	if s, ok := v.obj.(*String); ok {
		return s
	}
	return nil
}

func (v Value) AsTable() *Table {
	if t, ok := v.obj.(*Table); ok {
		return t
	}
	return nil
}

func (v Value) AsClosure() *Closure {
	if c, ok := v.obj.(*Closure); ok {
		return c
	}
	return nil
}

func (v Value) AsGoFunc() *GoFunction {
	if g, ok := v.obj.(*GoFunction); ok {
		return g
	}
	return nil
}

func (v Value) AsUserData() *UserData {
	if u, ok := v.obj.(*UserData); ok {
		return u
	}
	return nil
}

// StringValue wraps an interned *String as a Value.
func StringValue(s *String) Value { return Value{kind: KindString, obj: s} }

// TableValue wraps a *Table as a Value.
func TableValue(t *Table) Value { return Value{kind: KindTable, obj: t} }

// ClosureValue wraps a *Closure as a Value.
func ClosureValue(c *Closure) Value { return Value{kind: KindFunction, obj: c} }

// GoFuncValue wraps a host function as a Value.
func GoFuncValue(g *GoFunction) Value { return Value{kind: KindFunction, obj: g} }

// UserDataValue wraps a *UserData as a Value.
func UserDataValue(u *UserData) Value { return Value{kind: KindUserdata, obj: u} }

// Truthy implements Lua's truthiness rule: everything except nil and
// false is true.
func (v Value) Truthy() bool {
	if v.kind == KindNil {
		return false
	}
	if v.kind == KindBool {
		return v.num != 0
	}
	return true
}

// RawEqual implements primitive equality (no metamethods): numbers compare
// by value, strings by content (interning already guarantees identity, so
// this degenerates to a pointer compare), everything else by identity.
func RawEqual(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNil:
		return true
	case KindBool, KindNumber:
		return a.num == b.num
	case KindString:
		return a.obj.(*String) == b.obj.(*String)
	default:
		return a.obj == b.obj
	}
}

// TypeName mirrors Lua's type() builtin.
func (v Value) TypeName() string { return v.kind.String() }

func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case KindNumber:
		return formatNumber(v.num)
	case KindString:
		return v.AsString().Value
	case KindTable:
		return fmt.Sprintf("table: %p", v.obj)
	case KindFunction:
		return fmt.Sprintf("function: %p", v.obj)
	default:
		return fmt.Sprintf("userdata: %p", v.obj)
	}
}

func formatNumber(n float64) string {
	if n != n {
		return "nan"
	}
	if math.IsInf(n, 1) {
		return "inf"
	}
	if math.IsInf(n, -1) {
		return "-inf"
	}
	if n == float64(int64(n)) && n < 1e15 && n > -1e15 {
		return fmt.Sprintf("%d", int64(n))
	}
	return fmt.Sprintf("%.14g", n)
}
