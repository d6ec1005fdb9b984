package matcher

import "fmt"

// UnmatchedSectionsError is returned when the fixed point converges with
// sections still unfinished.
type UnmatchedSectionsError struct {
	Remaining []string
}

func (e *UnmatchedSectionsError) Error() string {
	return fmt.Sprintf("run-pre: could not match some sections: %v", e.Remaining)
}

// RestartLimitError is returned when the driver exceeds its restart bound
// without either converging or exhausting its search stages.
type RestartLimitError struct {
	Limit int
}

func (e *RestartLimitError) Error() string {
	return fmt.Sprintf("run-pre: restart limit exceeded (%d passes)", e.Limit)
}

// searchOutcome is the result of one attempt to match a single section at
// the current stage.
type searchOutcome int

const (
	outcomeDeferred searchOutcome = iota
	outcomeMatched
)

// searchForMatch implements spec §4.5's search_for_match: build the
// candidate set, and depending on stage either require it to be singular,
// try every candidate, or fall through to brute search.
func (m *Matcher) searchForMatch(s *Section, stage Stage) searchOutcome {
	g := NewGlob(s.SymAddrs...)
	m.computeAddress(s.symbolName(), g)

	if stage <= StageUnique && !g.Singular() {
		return outcomeDeferred
	}

	if m.debug >= 3 && m.log != nil {
		m.log.Debugf("run-pre: starting sect search for %s", s.Name)
	}

	createNameval := !g.Singular()
	for _, addr := range g.Addrs() {
		if m.yield != nil {
			m.yield.Yield()
		}
		if m.tryAddr(s, addr, createNameval) {
			return outcomeMatched
		}
	}

	if stage <= StageAmbiguous {
		return outcomeDeferred
	}

	if m.bruteSearchAllMods(s) {
		return outcomeMatched
	}
	return outcomeDeferred
}

// Run matches every section against the running image, escalating search
// aggressiveness across stages and propagating newly learned symbol values
// between passes, until every section matches or the policy gives up
// (spec §4.5). On success, Bindings and SafetyRecords hold the result.
// Each failed section attempt is rolled back; when Run itself fails, the
// bindings committed and the safety records appended by sections that did
// match stay in the Matcher.
func (m *Matcher) Run(sections []*Section) error {
	finished := make([]bool, len(sections))
	for i, s := range sections {
		if s.Size == 0 {
			finished[i] = true
		}
	}

	stage := StageUnique
	restarts := 0
	oldFinished := 0

	for {
		for i, s := range sections {
			if finished[i] {
				continue
			}
			if m.searchForMatch(s, stage) == outcomeMatched {
				finished[i] = true
			}
		}

		numFinished := 0
		var remaining []string
		for i, s := range sections {
			if finished[i] {
				numFinished++
			} else {
				remaining = append(remaining, s.Name)
			}
		}
		if numFinished == len(sections) {
			return nil
		}

		if numFinished == oldFinished {
			if int(stage) < m.maxStage {
				stage++
				continue
			}
			return &UnmatchedSectionsError{Remaining: remaining}
		}
		oldFinished = numFinished

		if restarts >= m.restartLimit {
			return &RestartLimitError{Limit: m.restartLimit}
		}
		restarts++
	}
}
