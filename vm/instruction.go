package vm

// Instruction is a single 32-bit Lua 5.1.5 bytecode word, bit-exact with
// the reference layout: opcode in bits 0-5, A in bits 6-13,
// then either (C bits 14-22, B bits 23-31) or a combined Bx/sBx in bits
// 14-31.
type Instruction uint32

func encodeABC(op OpCode, a, b, c int) Instruction {
	return Instruction(uint32(op) |
		uint32(a)<<SizeOp |
		uint32(c)<<(SizeOp+SizeA) |
		uint32(b)<<(SizeOp+SizeA+SizeC))
}

func encodeABx(op OpCode, a, bx int) Instruction {
	return Instruction(uint32(op) |
		uint32(a)<<SizeOp |
		uint32(bx)<<(SizeOp+SizeA))
}

func encodeAsBx(op OpCode, a, sbx int) Instruction {
	return encodeABx(op, a, sbx+BxBias)
}

// NewABC builds an iABC-format instruction.
func NewABC(op OpCode, a, b, c int) Instruction { return encodeABC(op, a, b, c) }

// NewABx builds an iABx-format instruction.
func NewABx(op OpCode, a, bx int) Instruction { return encodeABx(op, a, bx) }

// NewAsBx builds an iAsBx-format instruction with a signed Bx.
func NewAsBx(op OpCode, a, sbx int) Instruction { return encodeAsBx(op, a, sbx) }

func (i Instruction) OpCode() OpCode { return OpCode(i & (1<<SizeOp - 1)) }

func (i Instruction) A() int {
	return int((i >> SizeOp) & (1<<SizeA - 1))
}

func (i Instruction) B() int {
	return int((i >> (SizeOp + SizeA + SizeC)) & (1<<SizeB - 1))
}

func (i Instruction) C() int {
	return int((i >> (SizeOp + SizeA)) & (1<<SizeC - 1))
}

func (i Instruction) Bx() int {
	return int((i >> (SizeOp + SizeA)) & (1<<SizeBx - 1))
}

func (i Instruction) SBx() int {
	return i.Bx() - BxBias
}

// IsK reports whether a 9-bit RK field refers to the constant pool.
func IsK(rk int) bool { return rk&RKBit != 0 }

// KIndex extracts the constant-pool index from an RK field known to be a
// constant (IsK(rk) == true).
func KIndex(rk int) int { return rk &^ RKBit }

// RKConst encodes a constant-pool index as an RK field.
func RKConst(k int) int { return k | RKBit }
