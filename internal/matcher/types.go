// Package matcher locates, inside a running program image, the addresses
// at which sections compiled from a known "pre" image now reside.
package matcher

// Status is the tri-state lifecycle of a symbol binding.
type Status int

const (
	// NoVal means the symbol's value is unknown.
	NoVal Status = iota
	// Temp means the value was assigned tentatively during the current
	// section's match attempt and has not yet been committed.
	Temp
	// Val means the value is committed and immutable for the run.
	Val
)

func (s Status) String() string {
	switch s {
	case NoVal:
		return "NOVAL"
	case Temp:
		return "TEMP"
	case Val:
		return "VAL"
	default:
		return "UNKNOWN"
	}
}

// Binding is a named symbol's value and lifecycle status. Once Status is
// Val the value never changes again for the lifetime of the Matcher.
type Binding struct {
	Name   string
	Value  int64
	Status Status
}

// RelocFlag holds bit flags for a relocation entry.
type RelocFlag int

const (
	// PCRelative marks a relocation whose expected value is relative to
	// the run-time address of the relocated operand itself.
	PCRelative RelocFlag = 1 << iota
)

// Reloc is a single relocation entry covering a 4-byte immediate operand
// somewhere inside a section's pre-image.
type Reloc struct {
	// PreAddr is the pre-image address where the covered immediate starts.
	PreAddr int64
	// Symbol is the binding this relocation's value constrains or learns.
	Symbol *Binding
	// Addend is subtracted from the running image's immediate when
	// deriving the symbol's value, for absolute and PC-relative entries.
	Addend int64
	Flags  RelocFlag
}

func (r *Reloc) pcRelative() bool { return r.Flags&PCRelative != 0 }

// covers reports whether addr falls inside this relocation's 4-byte
// immediate operand.
func (r *Reloc) covers(addr int64) bool {
	return addr >= r.PreAddr && addr < r.PreAddr+4
}

// SafetyRecord claims that run-time bytes [RunAddr, RunAddr+Size) belong to
// a section that the matcher has confirmed. Care is always false when
// appended here; later phases of the patching toolchain may set it.
type SafetyRecord struct {
	RunAddr int64
	Size    int64
	Care    bool
}

// Section describes one named chunk of the pre-image to be located in the
// running program.
type Section struct {
	// Name identifies the section for logging and in MatchedSections. It
	// is also the symbol table entry recorded on a match when Symbol is
	// empty.
	Name string
	// Symbol is the name used to look up and narrow this section's
	// candidate set against already-bound symbols (see computeAddress).
	// Defaults to Name when empty.
	Symbol string
	// PreAddr is the address of the authoritative pre-image bytes.
	PreAddr int64
	// Size in bytes. Zero means the section is trivially matched.
	Size int64
	// SymAddrs seeds the candidate set with run-time address hints
	// gathered by the object-file loader.
	SymAddrs []int64
}

func (s *Section) symbolName() string {
	if s.Symbol != "" {
		return s.Symbol
	}
	return s.Name
}

// Glob is an unordered set of candidate run-time addresses for one
// section, built without duplicates.
type Glob struct {
	addrs []int64
}

// NewGlob builds a Glob seeded with the given candidate addresses,
// discarding duplicates.
func NewGlob(addrs ...int64) *Glob {
	g := &Glob{}
	for _, a := range addrs {
		g.add(a)
	}
	return g
}

func (g *Glob) add(addr int64) {
	for _, a := range g.addrs {
		if a == addr {
			return
		}
	}
	g.addrs = append(g.addrs, addr)
}

// Singular reports whether the candidate set has exactly one element.
func (g *Glob) Singular() bool { return len(g.addrs) == 1 }

// Empty reports whether the candidate set has no elements.
func (g *Glob) Empty() bool { return len(g.addrs) == 0 }

// Addrs returns the candidate addresses in insertion order.
func (g *Glob) Addrs() []int64 { return g.addrs }

// contains reports whether addr is already a candidate.
func (g *Glob) contains(addr int64) bool {
	for _, a := range g.addrs {
		if a == addr {
			return true
		}
	}
	return false
}

// narrowTo replaces the candidate set with the single value if it was
// already a candidate, or adds it as an additional candidate otherwise —
// a symbol already bound elsewhere is always a legitimate candidate even
// when the loader's hints didn't happen to include it.
func (g *Glob) narrowTo(val int64) {
	if g.contains(val) {
		g.addrs = []int64{val}
		return
	}
	g.add(val)
}

// Stage controls search aggressiveness. See searchForMatch and spec §4.5.
type Stage int

const (
	// StageUnique only commits sections with exactly one candidate.
	StageUnique Stage = 1
	// StageAmbiguous tries every candidate of a multi-candidate section.
	StageAmbiguous Stage = 2
	// StageBrute additionally brute-force scans every loaded module.
	StageBrute Stage = 3
)
