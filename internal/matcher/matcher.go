package matcher

import (
	"github.com/arnoldjb/runpre/internal/logx"
	"github.com/arnoldjb/runpre/internal/target"
)

// Matcher owns the provisional state of one match attempt: symbol
// bindings, the relocation table, and the safety records accumulated so
// far. Unlike the C original, none of this is package-level global state —
// a Matcher is created per patch load and its bindings/safety records are
// read by the caller (the downstream patcher) after Run; Run does not clear
// them when it fails.
type Matcher struct {
	run     target.AddressSpace
	pre     target.AddressSpace
	modules target.ModuleLister
	yield   target.Yielder
	log     *logx.Logger
	debug   int

	restartLimit int
	maxStage     int
	selfPrefix   string
	helperSuffix string

	nameval map[string]*Binding
	relocs  *RelocTable
	safety  []SafetyRecord

	// temp tracks bindings created as Temp during the current section
	// attempt, so commit/rollback doesn't need to sweep the whole table.
	temp []*Binding

	// matched records, by Section.Name, the run address every section
	// matched at — including sections matched from a singular candidate
	// set, which tryAddr deliberately does not add to nameval. Callers
	// that need "did this section match, and where" must use this rather
	// than Bindings(), which only reflects committed symbol values.
	matched map[string]int64
}

// Option configures a Matcher at construction time.
type Option func(*Matcher)

// WithDebug sets the verbosity threshold (spec §6): >=1 prints per-section
// mismatch summaries, >=3 prints relocation detail and search progress.
func WithDebug(level int) Option {
	return func(m *Matcher) { m.debug = level }
}

// WithRestartLimit bounds how many times the driver starts another pass
// after a pass that matched at least one new section; going past it fails
// the match with a RestartLimitError. Default 20 (spec §6).
func WithRestartLimit(n int) Option {
	return func(m *Matcher) { m.restartLimit = n }
}

// WithMaxStage bounds how far the driver escalates its search stage.
// Default 3 (spec §6).
func WithMaxStage(n int) Option {
	return func(m *Matcher) { m.maxStage = n }
}

// WithSelfExclusion configures the name-prefix and suffix convention used
// to exclude the matcher's own modules from brute search (spec §4.4).
func WithSelfExclusion(prefix, helperSuffix string) Option {
	return func(m *Matcher) { m.selfPrefix = prefix; m.helperSuffix = helperSuffix }
}

// WithLogger attaches a diagnostic sink.
func WithLogger(l *logx.Logger) Option {
	return func(m *Matcher) { m.log = l }
}

// WithYield attaches the cooperative scheduling checkpoint called between
// candidate tries.
func WithYield(y target.Yielder) Option {
	return func(m *Matcher) { m.yield = y }
}

// New builds a Matcher over a running program's address space and module
// list, with bytes of the known pre-image available through pre, and an
// initial relocation table. All symbol bindings start at NoVal unless
// initial supplies otherwise. Every relocation's symbol is registered in
// the symbol table too, so values learned from relocations can narrow
// other sections' candidate sets.
func New(run, pre target.AddressSpace, modules target.ModuleLister, relocs []*Reloc, initial []*Binding, opts ...Option) *Matcher {
	m := &Matcher{
		run:          run,
		pre:          pre,
		modules:      modules,
		relocs:       NewRelocTable(relocs),
		nameval:      make(map[string]*Binding),
		restartLimit: 20,
		maxStage:     3,
		helperSuffix: "_helper",
	}
	for _, b := range initial {
		m.nameval[b.Name] = b
	}
	for _, r := range relocs {
		if r.Symbol == nil {
			continue
		}
		if _, ok := m.nameval[r.Symbol.Name]; !ok {
			m.nameval[r.Symbol.Name] = r.Symbol
		}
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Matcher) readPre(addr int64) byte {
	return m.pre.ReadByte(addr)
}

// findBinding returns the binding for name, creating a fresh NoVal binding
// if create is true and none exists yet.
func (m *Matcher) findBinding(name string, create bool) *Binding {
	if b, ok := m.nameval[name]; ok {
		return b
	}
	if !create {
		return nil
	}
	b := &Binding{Name: name, Status: NoVal}
	m.nameval[name] = b
	return b
}

// Bindings returns a snapshot of all committed (Val) symbol bindings.
func (m *Matcher) Bindings() map[string]int64 {
	out := make(map[string]int64)
	for name, b := range m.nameval {
		if b.Status == Val {
			out[name] = b.Value
		}
	}
	return out
}

// SafetyRecords returns the safety records accumulated by a completed run.
func (m *Matcher) SafetyRecords() []SafetyRecord {
	return append([]SafetyRecord(nil), m.safety...)
}

// MatchedSections returns the run address each successfully matched
// section was found at, keyed by Section.Name. Unlike Bindings, this
// includes sections matched from a singular candidate set.
func (m *Matcher) MatchedSections() map[string]int64 {
	out := make(map[string]int64, len(m.matched))
	for name, addr := range m.matched {
		out[name] = addr
	}
	return out
}

// commit promotes every Temp binding created during the current section
// attempt to Val. This is the sole commit point for provisional state
// (spec §4.6); once Val a binding's value is immutable for the run.
func (m *Matcher) commit() {
	for _, b := range m.temp {
		if b.Status == Temp {
			b.Status = Val
		}
	}
	m.temp = m.temp[:0]
}

// rollback reverts every Temp binding created during the failed current
// section attempt back to NoVal, and removes any safety records appended
// during that same attempt (spec §9 leaves this open for safety records;
// this implementation removes them so a failed candidate never leaves
// partial state behind — see DESIGN.md).
func (m *Matcher) rollback(safetyMark int) {
	for _, b := range m.temp {
		if b.Status == Temp {
			b.Status = NoVal
			b.Value = 0
		}
	}
	m.temp = m.temp[:0]
	m.safety = m.safety[:safetyMark]
}
