package compiler

import "github.com/glua-lang/glua/vm"

// collapseJumps implements the peephole pass gated by Options.Peephole:
// a JMP that targets another JMP is
// rewritten to jump straight to that second jump's own target, and a JMP
// whose offset is zero (jumps to the very next instruction, a byproduct of
// comparison/and-or codegen when a branch is empty) is replaced with a
// no-op MOVE 0,0,0 so instruction indices — and therefore every other
// jump's offset — never shift.
func collapseJumps(code []vm.Instruction) {
	target := func(pc int) (int, bool) {
		if code[pc].OpCode() != vm.OpJmp {
			return 0, false
		}
		return pc + 1 + code[pc].SBx(), true
	}

	for pc := range code {
		if code[pc].OpCode() != vm.OpJmp {
			continue
		}

		dest, _ := target(pc)
		seen := map[int]bool{pc: true}
		for dest >= 0 && dest < len(code) && !seen[dest] {
			next, ok := target(dest)
			if !ok {
				break
			}
			seen[dest] = true
			dest = next
		}

		sbx := dest - (pc + 1)
		code[pc] = vm.NewAsBx(vm.OpJmp, code[pc].A(), sbx)

		if sbx == 0 {
			code[pc] = vm.NewABC(vm.OpMove, 0, 0, 0)
		}
	}
}
