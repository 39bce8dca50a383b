package compiler

import "github.com/glua-lang/glua/vm"

// varKind tags how a name resolved.
type varKind int

const (
	varLocal varKind = iota
	varUpvalue
	varGlobal
)

type resolved struct {
	kind varKind
	slot int // register for varLocal, upvalue index for varUpvalue
}

// resolve looks up name starting in the current function, climbing the
// enclosing-compiler chain for upvalues, and falling back to a global.
func (c *compiler) resolve(name string) resolved {
	if reg, ok := c.findLocal(name); ok {
		return resolved{kind: varLocal, slot: reg}
	}
	if idx, ok := c.resolveUpvalue(name); ok {
		return resolved{kind: varUpvalue, slot: idx}
	}
	return resolved{kind: varGlobal}
}

func (c *compiler) findLocal(name string) (int, bool) {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].name == name {
			return c.locals[i].register, true
		}
	}
	return 0, false
}

// resolveUpvalue implements recursively resolve in
// the enclosing compiler; if it is a local there, mark it captured and
// add a {from_local, index} descriptor; if it is an upvalue there, add a
// {from_upvalue, index} descriptor. Dedupes against already-added
// upvalue descriptors of the same name.
func (c *compiler) resolveUpvalue(name string) (int, bool) {
	if c.parent == nil {
		return 0, false
	}

	for i, n := range c.upvalNames {
		if n == name {
			return i, true
		}
	}

	if reg, ok := c.parent.findLocal(name); ok {
		c.markCaptured(c.parent, reg)
		return c.addUpvalue(name, true, reg), true
	}

	if idx, ok := c.parent.resolveUpvalue(name); ok {
		return c.addUpvalue(name, false, idx), true
	}

	return 0, false
}

func (c *compiler) markCaptured(owner *compiler, reg int) {
	for i := range owner.locals {
		if owner.locals[i].register == reg {
			owner.locals[i].captured = true
			return
		}
	}
}

func (c *compiler) addUpvalue(name string, fromLocal bool, index int) int {
	if len(c.upvalues) >= maxUpvalues {
		c.fail(0, "too many upvalues")
	}
	c.upvalues = append(c.upvalues, vm.UpvalDesc{FromLocal: fromLocal, Index: index})
	c.upvalNames = append(c.upvalNames, name)
	return len(c.upvalues) - 1
}
