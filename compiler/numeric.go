package compiler

import "golang.org/x/exp/constraints"

// highWater returns the larger of a running high-water mark and a
// candidate value, used by the register allocator to track MaxStack.
func highWater[T constraints.Integer](mark, candidate T) T {
	if candidate > mark {
		return candidate
	}
	return mark
}

// fitsSigned reports whether v fits in a signed field of bits width, used
// by patchJump to reject a jump offset that cannot be encoded in sBx
// (compilation then fails; there is no split-jump fallback).
func fitsSigned[T constraints.Integer](v T, bits uint) bool {
	var half T = 1 << (bits - 1)
	return v >= -half && v < half
}
