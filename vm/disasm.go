package vm

import "fmt"

// Disassemble prints p and every Proto it nests, in the same shape as the
// teacher's backend.Disassemble: a header naming the function, its
// instruction stream, its constant pool, and its upvalue descriptors.
func Disassemble(p *Proto) {
	disassembleOne(p, "main")
	for i, nested := range p.Protos {
		fmt.Println()
		disassembleOne(nested, fmt.Sprintf("#%d", i))
	}
}

func disassembleOne(p *Proto, label string) {
	fmt.Printf("%s <function at %p> (%d instructions, %d params%s)\n",
		label, p, len(p.Code), p.NumParams, varargSuffix(p.IsVararg))

	fmt.Printf("  instructions for %p\n", p)
	for i, ins := range p.Code {
		fmt.Println(disassembleInstruction(i, ins))
	}

	fmt.Printf("  constants (%d) for %p\n", len(p.Constants), p)
	for i, k := range p.Constants {
		fmt.Printf("   #%d %s\n", i, k.String())
	}

	fmt.Printf("  upvalues (%d) for %p\n", len(p.Upvalues), p)
	for i, u := range p.Upvalues {
		fmt.Printf("   #%d fromLocal=%t index=%d\n", i, u.FromLocal, u.Index)
	}
}

func varargSuffix(isVararg bool) string {
	if isVararg {
		return ", vararg"
	}
	return ""
}

// disassembleInstruction renders one instruction the way luac -l does:
// offset, opcode mnemonic, then its fields formatted per the opcode's
// Format.
func disassembleInstruction(pc int, ins Instruction) string {
	op := ins.OpCode()
	switch opFormats[op] {
	case FormatABC:
		return fmt.Sprintf("   %4d %-9s %d %d %d", pc, op, ins.A(), ins.B(), ins.C())
	case FormatABx:
		return fmt.Sprintf("   %4d %-9s %d %d", pc, op, ins.A(), ins.Bx())
	case FormatAsBx:
		return fmt.Sprintf("   %4d %-9s %d %d", pc, op, ins.A(), ins.SBx())
	}
	return fmt.Sprintf("   %4d %-9s ?", pc, op)
}
