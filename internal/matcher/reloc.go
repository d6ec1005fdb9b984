package matcher

import (
	"sort"
	"strings"
)

// placeholderReloc is the sentinel value ksplice-style loaders leave in an
// unrelocated running image; seeing it means the candidate being probed is
// not actually the relocated code we're looking for.
const placeholderReloc = 0x77777777

// RelocTable indexes relocation entries by the pre-image address range
// they cover, for fast lookup from the byte comparator's inner loop.
type RelocTable struct {
	entries []*Reloc
}

// NewRelocTable builds a table from an unordered list of entries.
func NewRelocTable(entries []*Reloc) *RelocTable {
	sorted := append([]*Reloc(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PreAddr < sorted[j].PreAddr })
	return &RelocTable{entries: sorted}
}

// find returns the relocation covering pre-image address addr, if any.
func (t *RelocTable) find(addr int64) *Reloc {
	if t == nil {
		return nil
	}
	// Binary search for the last entry with PreAddr <= addr, then check
	// it actually covers addr (entries don't overlap in practice, but a
	// linear fallback keeps this correct even if they did).
	i := sort.Search(len(t.entries), func(i int) bool { return t.entries[i].PreAddr > addr })
	for j := i - 1; j >= 0 && addr-t.entries[j].PreAddr < 4; j-- {
		if t.entries[j].covers(addr) {
			return t.entries[j]
		}
	}
	return nil
}

// relocVerdict is the outcome of handling a relocation at the current
// cursor position.
type relocVerdict int

const (
	relocConsume relocVerdict = iota // constraint satisfied or learned; keep comparing
	relocAbort                       // contradiction or placeholder; candidate fails
)

// handleReloc interprets the relocation covering pre_addr+pre_o against the
// 32-bit immediate actually present in the running image, either learning
// the referenced symbol's value (first sighting) or checking it against a
// previously learned/committed value. It advances *preO and *runO past the
// 4-byte immediate on success, mirroring the caller's own per-byte advance.
func (m *Matcher) handleReloc(preAddr int64, preO *int, runAddr int64, runO *int, r *Reloc, rerun bool) relocVerdict {
	offset := int(preAddr + int64(*preO) - r.PreAddr)
	immAddr := runAddr + int64(*runO) - int64(offset)
	for i := int64(0); i < 4; i++ {
		if !m.run.Mapped(immAddr + i) {
			return relocAbort
		}
	}
	runReloc := int64(m.run.ReadInt32(immAddr))

	if m.log != nil && m.debug >= 3 && !rerun {
		m.log.Debugf("run-pre: reloc at run=%#x pre_o=%#x: %s=%#x (addend=%#x *run=%#x)",
			runAddr, *preO, r.Symbol.Name, r.Symbol.Value, r.Addend, runReloc)
	}

	if !strings.HasPrefix(r.Symbol.Name, ".rodata.str") {
		if runReloc == placeholderReloc {
			return relocAbort
		}

		expected := runReloc - r.Addend
		if r.pcRelative() {
			expected += runAddr + int64(*runO) - int64(offset)
		}

		switch r.Symbol.Status {
		case NoVal:
			r.Symbol.Value = expected
			r.Symbol.Status = Temp
			m.temp = append(m.temp, r.Symbol)
		case Temp, Val:
			if r.Symbol.Value != expected {
				if !rerun && m.log != nil && m.debug >= 1 {
					m.log.Debugf("run-pre: reloc mismatch: expected %s=%#x", r.Symbol.Name, expected)
				}
				return relocAbort
			}
		}
	}

	*preO += 4 - offset - 1
	*runO += 4 - offset - 1
	return relocConsume
}
