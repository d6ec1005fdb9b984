package matcher

import "strings"

// computeAddress narrows g against any already-bound symbol sharing the
// section's symbol name (spec §4.4): a committed or tentative binding is
// always a legitimate candidate, even when the loader's own hints didn't
// happen to include it.
func (m *Matcher) computeAddress(symbolName string, g *Glob) {
	b := m.findBinding(symbolName, false)
	if b == nil || b.Status == NoVal {
		return
	}
	g.narrowTo(b.Value)
}

// tryAddr attempts to match section s at run-time address runAddr. On
// success it commits any Temp bindings created while checking relocations,
// appends a safety record, and — when createNameval is true, i.e. this
// candidate was chosen from a non-singular set — binds the section's own
// symbol name to runAddr for future candidate narrowing.
func (m *Matcher) tryAddr(s *Section, runAddr int64, createNameval bool) bool {
	safetyMark := len(m.safety)

	if m.runPreCmp(runAddr, s.PreAddr, s.Size, false) != matchOK {
		m.rollback(safetyMark)
		if m.debug >= 1 && m.log != nil {
			m.log.Debugf("run-pre: sect %s does not match (run=%#x pre=%#x size=%d)", s.Name, runAddr, s.PreAddr, s.Size)
			m.runPreCmp(runAddr, s.PreAddr, s.Size, true)
		}
		return false
	}

	m.commit()
	if m.debug >= 3 && m.log != nil {
		m.log.Debugf("run-pre: found sect %s=%#x", s.Name, runAddr)
	}

	m.safety = append(m.safety, SafetyRecord{RunAddr: runAddr, Size: s.Size, Care: false})

	if m.matched == nil {
		m.matched = make(map[string]int64)
	}
	m.matched[s.Name] = runAddr

	if createNameval {
		nv := m.findBinding(s.symbolName(), true)
		nv.Value = runAddr
		nv.Status = Val
	}
	return true
}

// selfExcluded reports whether a module belongs to this matching run's own
// toolchain and must be skipped during brute search.
func (m *Matcher) selfExcluded(name string) bool {
	if m.selfPrefix != "" && strings.HasPrefix(name, m.selfPrefix) {
		return true
	}
	if m.helperSuffix != "" && strings.HasSuffix(name, m.helperSuffix) {
		return true
	}
	return false
}

// bruteSearchAllMods scans every loaded module's code and init regions
// byte-by-byte for section s, invoking runPreCmp at every offset. The
// first zero return wins and is committed through tryAddr exactly like a
// hinted candidate. Diagnostics are silenced for the duration, matching
// spec §4.4 (brute search is the most expensive and most error-prone
// stage; per-offset mismatch logging would be pure noise).
func (m *Matcher) bruteSearchAllMods(s *Section) bool {
	savedDebug := m.debug
	m.debug = 0
	defer func() { m.debug = savedDebug }()

	if m.modules == nil {
		return false
	}
	for _, mod := range m.modules.Modules() {
		if m.yield != nil {
			m.yield.Yield()
		}
		if m.selfExcluded(mod.Name) {
			continue
		}
		if m.bruteSearchRegion(s, mod.CodeBase, mod.CodeSize) {
			return true
		}
		if m.bruteSearchRegion(s, mod.InitBase, mod.InitSize) {
			return true
		}
	}
	return false
}

func (m *Matcher) bruteSearchRegion(s *Section, base, size int64) bool {
	for addr := base; addr < base+size; addr++ {
		if m.tryAddr(s, addr, true) {
			return true
		}
	}
	return false
}
