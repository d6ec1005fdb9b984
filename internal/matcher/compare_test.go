package matcher

import (
	"testing"

	"github.com/arnoldjb/runpre/internal/target"
)

func newTestMatcher(pre, run *target.FakeAddressSpace, relocs []*Reloc) *Matcher {
	return New(run, pre, &target.FakeModules{}, relocs, nil)
}

func TestRunPreCmp_IdenticalBytes(t *testing.T) {
	pre := target.NewFakeAddressSpace()
	run := target.NewFakeAddressSpace()
	data := []byte{0x55, 0x48, 0x89, 0xE5, 0xC3}
	pre.Map(0x1000, data)
	run.Map(0x2000, data)

	m := newTestMatcher(pre, run, nil)
	if got := m.runPreCmp(0x2000, 0x1000, int64(len(data)), false); got != matchOK {
		t.Fatalf("identical bytes: got %d, want matchOK", got)
	}
}

func TestRunPreCmp_SizeZeroIsMismatch(t *testing.T) {
	pre := target.NewFakeAddressSpace()
	run := target.NewFakeAddressSpace()
	m := newTestMatcher(pre, run, nil)
	if got := m.runPreCmp(0x2000, 0x1000, 0, false); got != mismatch {
		t.Fatalf("size zero: got %d, want mismatch", got)
	}
}

func TestRunPreCmp_JumpOperandTolerance(t *testing.T) {
	pre := target.NewFakeAddressSpace()
	run := target.NewFakeAddressSpace()
	// jmp +0 vs jmp +0x1234: same opcode, different rel32 operand.
	pre.Map(0x1000, []byte{0xE9, 0x00, 0x00, 0x00, 0x00})
	run.Map(0x2000, []byte{0xE9, 0x34, 0x12, 0x00, 0x00})

	m := newTestMatcher(pre, run, nil)
	if got := m.runPreCmp(0x2000, 0x1000, 5, false); got != matchOK {
		t.Fatalf("jump operand tolerance: got %d, want matchOK", got)
	}
}

func TestRunPreCmp_NopPaddingInsertedInRun(t *testing.T) {
	pre := target.NewFakeAddressSpace()
	run := target.NewFakeAddressSpace()
	pre.Map(0x1000, []byte{0x90, 0xC3})
	// run has a 2-byte nop where pre only has a 1-byte nop.
	run.Map(0x2000, []byte{0x66, 0x90, 0xC3})

	m := newTestMatcher(pre, run, nil)
	if got := m.runPreCmp(0x2000, 0x1000, 2, false); got != matchOK {
		t.Fatalf("nop padding: got %d, want matchOK", got)
	}
}

func TestRunPreCmp_EpilogueTailToleratesTrailingJunk(t *testing.T) {
	// The per-byte rule (spec §4.2 step 5) gives 0x5B a ten-byte window
	// and 0xC3 only a one-byte window, so the tail-tolerance fires for
	// "pop %ebx; ...; ret; <mismatching byte>" (0x5B before 0xC3, within
	// ten bytes, with the mismatch on the byte right after the 0xC3) —
	// not the reverse order.
	pre := target.NewFakeAddressSpace()
	run := target.NewFakeAddressSpace()
	pre.Map(0x1000, []byte{0x01, 0x5B, 0x02, 0xC3, 0x00, 0x00})
	run.Map(0x2000, []byte{0x01, 0x5B, 0x02, 0xC3, 0xFF, 0xFF})

	m := newTestMatcher(pre, run, nil)
	if got := m.runPreCmp(0x2000, 0x1000, 6, false); got != matchOK {
		t.Fatalf("epilogue tail: got %d, want matchOK", got)
	}
}

func TestRunPreCmp_NopPaddingInsertedInPre(t *testing.T) {
	// The symmetric case of TestRunPreCmp_NopPaddingInsertedInRun: the pre
	// image carries a 2-byte nop where the running image only has a 1-byte
	// nop. match_nop must probe the pre image for this, not the run image.
	pre := target.NewFakeAddressSpace()
	run := target.NewFakeAddressSpace()
	pre.Map(0x1000, []byte{0x66, 0x90, 0xC3})
	run.Map(0x2000, []byte{0x90, 0xC3})

	m := newTestMatcher(pre, run, nil)
	if got := m.runPreCmp(0x2000, 0x1000, 3, false); got != matchOK {
		t.Fatalf("nop padding in pre: got %d, want matchOK", got)
	}
}

func TestRunPreCmp_UnmappedRunByteIsMismatch(t *testing.T) {
	pre := target.NewFakeAddressSpace()
	run := target.NewFakeAddressSpace()
	pre.Map(0x1000, []byte{0x01, 0x02})
	run.Map(0x2000, []byte{0x01}) // second byte unmapped

	m := newTestMatcher(pre, run, nil)
	if got := m.runPreCmp(0x2000, 0x1000, 2, false); got != mismatch {
		t.Fatalf("unmapped byte: got %d, want mismatch", got)
	}
}

func TestRunPreCmp_TrueContentDifferenceIsMismatch(t *testing.T) {
	pre := target.NewFakeAddressSpace()
	run := target.NewFakeAddressSpace()
	pre.Map(0x1000, []byte{0x01, 0x02, 0x03})
	run.Map(0x2000, []byte{0x01, 0x99, 0x03})

	m := newTestMatcher(pre, run, nil)
	if got := m.runPreCmp(0x2000, 0x1000, 3, false); got != mismatch {
		t.Fatalf("true content difference: got %d, want mismatch", got)
	}
}

func TestRunPreCmp_RelocationRoundTrip(t *testing.T) {
	pre := target.NewFakeAddressSpace()
	run := target.NewFakeAddressSpace()
	// pre: a placeholder 4-byte immediate at offset 1.
	pre.Map(0x1000, []byte{0x01, 0x00, 0x00, 0x00, 0x00, 0x02})
	// run: the immediate has been relocated to 0x3000 (absolute, addend 0).
	run.Map(0x2000, []byte{0x01, 0x00, 0x30, 0x00, 0x00, 0x02})

	sym := &Binding{Name: "target_symbol", Status: NoVal}
	reloc := &Reloc{PreAddr: 0x1001, Symbol: sym, Addend: 0}
	m := newTestMatcher(pre, run, []*Reloc{reloc})

	if got := m.runPreCmp(0x2000, 0x1000, 6, false); got != matchOK {
		t.Fatalf("relocation round trip: got %d, want matchOK", got)
	}
	if sym.Status != Temp || sym.Value != 0x3000 {
		t.Fatalf("symbol binding: got %v/%#x, want TEMP/0x3000", sym.Status, sym.Value)
	}
}

func TestRunPreCmp_PlaceholderRelocationIsMismatch(t *testing.T) {
	pre := target.NewFakeAddressSpace()
	run := target.NewFakeAddressSpace()
	pre.Map(0x1000, []byte{0x01, 0x00, 0x00, 0x00, 0x00})
	run.Map(0x2000, []byte{0x01, 0x77, 0x77, 0x77, 0x77})

	sym := &Binding{Name: "sym", Status: NoVal}
	reloc := &Reloc{PreAddr: 0x1001, Symbol: sym}
	m := newTestMatcher(pre, run, []*Reloc{reloc})

	if got := m.runPreCmp(0x2000, 0x1000, 5, false); got != mismatch {
		t.Fatalf("placeholder reloc: got %d, want mismatch", got)
	}
}

func TestRunPreCmp_InconsistentRelocationIsMismatch(t *testing.T) {
	pre := target.NewFakeAddressSpace()
	run := target.NewFakeAddressSpace()
	pre.Map(0x1000, []byte{0x00, 0x00, 0x00, 0x00})
	run.Map(0x2000, []byte{0x00, 0x30, 0x00, 0x00})

	sym := &Binding{Name: "sym", Status: Val, Value: 0x9999} // already committed, incompatible
	reloc := &Reloc{PreAddr: 0x1000, Symbol: sym}
	m := newTestMatcher(pre, run, []*Reloc{reloc})

	if got := m.runPreCmp(0x2000, 0x1000, 4, false); got != mismatch {
		t.Fatalf("inconsistent reloc: got %d, want mismatch", got)
	}
	if sym.Status != Val || sym.Value != 0x9999 {
		t.Fatalf("committed binding must not change: got %v/%#x", sym.Status, sym.Value)
	}
}

func TestRunPreCmp_RodataStringRelocationSkipsValueCheck(t *testing.T) {
	pre := target.NewFakeAddressSpace()
	run := target.NewFakeAddressSpace()
	pre.Map(0x1000, []byte{0x00, 0x00, 0x00, 0x00})
	run.Map(0x2000, []byte{0xAA, 0xBB, 0xCC, 0xDD}) // arbitrary bytes, not even a valid address

	sym := &Binding{Name: ".rodata.str1.1", Status: NoVal}
	reloc := &Reloc{PreAddr: 0x1000, Symbol: sym}
	m := newTestMatcher(pre, run, []*Reloc{reloc})

	if got := m.runPreCmp(0x2000, 0x1000, 4, false); got != matchOK {
		t.Fatalf("rodata.str relocation: got %d, want matchOK", got)
	}
	if sym.Status != NoVal {
		t.Fatalf("rodata.str relocation must not bind a value: got %v", sym.Status)
	}
}
