package matcher

import "github.com/arnoldjb/runpre/internal/target"

// jumplen maps the first byte of an x86/x86-64 jump or call instruction to
// the number of operand bytes that follow the opcode — the bytes whose
// mismatch is licensed because they encode a branch target that may
// legitimately differ between the pre-image and the running image.
//
// Zero means "not a jump opcode we special-case".
var jumplen [256]int

func init() {
	jumplen[0xE8] = 4 // call rel32
	jumplen[0xE9] = 4 // jmp rel32
	jumplen[0xEB] = 1 // jmp rel8
	jumplen[0xC2] = 2 // ret imm16
	for op := byte(0x70); op <= 0x7F; op++ {
		jumplen[op] = 1 // Jcc rel8
	}
}

// nops lists known x86 no-op padding sequences, shortest first, matching
// the "ideal" multi-byte NOPs used by the Linux kernel and most
// compilers/linkers to pad functions to an alignment boundary.
var nops = [][]byte{
	{0x90},
	{0x66, 0x90},
	{0x0F, 0x1F, 0x00},
	{0x0F, 0x1F, 0x40, 0x00},
	{0x0F, 0x1F, 0x44, 0x00, 0x00},
	{0x66, 0x0F, 0x1F, 0x44, 0x00, 0x00},
	{0x0F, 0x1F, 0x80, 0x00, 0x00, 0x00, 0x00},
	{0x0F, 0x1F, 0x84, 0x00, 0x00, 0x00, 0x00, 0x00},
	{0x66, 0x0F, 0x1F, 0x84, 0x00, 0x00, 0x00, 0x00, 0x00},
}

// matchNop probes for a known no-op sequence starting at base+*o, trying
// the longest sequence first. On a match it advances *o by the sequence
// length minus one and decrements *otherO by one, so that the caller's
// unconditional per-iteration increment of both cursors lands them past
// the no-op on one side and in step on the other. Each probed byte is
// validated with as.Mapped before being read; an unmapped byte silently
// fails that candidate sequence rather than aborting the whole probe.
func matchNop(as target.AddressSpace, base int64, o, otherO *int) bool {
	for i := len(nops) - 1; i >= 0; i-- {
		seq := nops[i]
		ok := true
		for j, want := range seq {
			addr := base + int64(*o) + int64(j)
			if !as.Mapped(addr) || as.ReadByte(addr) != want {
				ok = false
				break
			}
		}
		if ok {
			*o += len(seq) - 1
			*otherO--
			return true
		}
	}
	return false
}
