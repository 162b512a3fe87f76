package pushdown

import (
	"fmt"
	"strings"
)

// Engine selects the saturation procedure used to answer a query.
type Engine uint8

const (
	// PreStarEngine saturates the final automaton backwards.
	PreStarEngine Engine = iota
	// PostStarEngine saturates the initial automaton forwards.
	PostStarEngine
	// PostStarNoEpsEngine is PostStarEngine without ε-edges in the
	// saturated automaton.
	PostStarNoEpsEngine
	// DualEngine runs both directions in lock-step. Unweighted only.
	DualEngine
)

var engineNames = []string{"pre", "post", "post-no-eps", "dual"}

func (e Engine) String() string {
	if int(e) < len(engineNames) {
		return engineNames[e]
	}
	return fmt.Sprintf("Engine(%d)", e)
}

// Engines lists every engine.
func Engines() []Engine {
	return []Engine{PreStarEngine, PostStarEngine, PostStarNoEpsEngine, DualEngine}
}

// ParseEngine parses the String form of an engine.
func ParseEngine(s string) (Engine, error) {
	for i, name := range engineNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Engine(i), nil
		}
	}
	return 0, fmt.Errorf("unknown engine %q (want one of %s)", s, strings.Join(engineNames, ", "))
}

// Solve answers the reachability question of p with the given engine.
func Solve[L comparable, W comparable](p *Product[L, W], engine Engine, tt TraceType) (bool, error) {
	switch engine {
	case PreStarEngine:
		return PreStarAccepts(p, tt)
	case PostStarEngine:
		return PostStarAccepts(p, tt)
	case PostStarNoEpsEngine:
		return PostStarAcceptsNoEps(p, tt)
	case DualEngine:
		if tt.Weighted() && p.sr.Extremum() != NoExtremum {
			return false, ErrWeightedDual
		}
		return DualSearchAccepts(p)
	}
	return false, fmt.Errorf("unknown engine %d", engine)
}

// trivially answers unweighted queries whose initial and final languages
// already intersect.
func trivially[L comparable, W comparable](p *Product[L, W], weighted bool) bool {
	if weighted || !p.InitializeProduct() {
		return false
	}
	p.solveTrivially()
	p.logger().Debug("solved without saturation", "accepted", true)
	return true
}

// PreStarAccepts saturates the final automaton with pre* and reports
// whether it meets the initial automaton.
func PreStarAccepts[L comparable, W comparable](p *Product[L, W], tt TraceType) (bool, error) {
	weighted, err := weightedQuery(p.sr, tt)
	if err != nil {
		return false, err
	}
	if trivially(p, weighted) {
		return true, nil
	}
	if err := p.solvePreStar(weighted); err != nil {
		return false, fmt.Errorf("pre* accepts: %w", err)
	}
	p.logger().Debug("solved", "engine", p.mode.String(), "trace", tt.String(), "accepted", p.accepted)
	return p.accepted, nil
}

// PostStarAccepts saturates the initial automaton with post* and reports
// whether it meets the final automaton.
func PostStarAccepts[L comparable, W comparable](p *Product[L, W], tt TraceType) (bool, error) {
	return postStarAccepts(p, tt, true)
}

// PostStarAcceptsNoEps is PostStarAccepts without ε-edges in the saturated
// automaton. Both give the same answer.
func PostStarAcceptsNoEps[L comparable, W comparable](p *Product[L, W], tt TraceType) (bool, error) {
	return postStarAccepts(p, tt, false)
}

func postStarAccepts[L comparable, W comparable](p *Product[L, W], tt TraceType, withEps bool) (bool, error) {
	weighted, err := weightedQuery(p.sr, tt)
	if err != nil {
		return false, err
	}
	if trivially(p, weighted) {
		return true, nil
	}
	if err := p.solvePostStar(weighted, withEps); err != nil {
		return false, fmt.Errorf("post* accepts: %w", err)
	}
	p.logger().Debug("solved", "engine", p.mode.String(), "trace", tt.String(), "accepted", p.accepted)
	return p.accepted, nil
}

// DualSearchAccepts answers an unweighted query by running pre* and post*
// together and stopping at the first configuration both reach.
func DualSearchAccepts[L comparable, W comparable](p *Product[L, W]) (bool, error) {
	if trivially(p, false) {
		return true, nil
	}
	if err := p.solveDual(); err != nil {
		return false, fmt.Errorf("dual search: %w", err)
	}
	p.logger().Debug("solved", "engine", p.mode.String(), "accepted", p.accepted)
	return p.accepted, nil
}

// PreStarFixedPoint saturates aut in place so that it accepts pre* of its
// language under the rules of pda.
func PreStarFixedPoint[L comparable, W comparable](pda *PDA[L, W], aut *PAutomaton[W], tt TraceType) error {
	weighted, err := weightedQuery(aut.sr, tt)
	if err != nil {
		return err
	}
	if aut.pdaStates != pda.StateCount() {
		return fmt.Errorf("pre* fixed point: %w", ErrStateMismatch)
	}
	ps := newPreStar(aut, newRuleIndex(pda.store), pda.LabelCount(), weighted, nil)
	return ps.saturate()
}

// PostStarFixedPoint returns a normalised copy of aut saturated so that it
// accepts post* of the language of aut under the rules of pda.
func PostStarFixedPoint[L comparable, W comparable](pda *PDA[L, W], aut *PAutomaton[W], tt TraceType) (*PAutomaton[W], error) {
	weighted, err := weightedQuery(aut.sr, tt)
	if err != nil {
		return nil, err
	}
	if aut.pdaStates != pda.StateCount() {
		return nil, fmt.Errorf("post* fixed point: %w", ErrStateMismatch)
	}
	out, err := aut.Normalize()
	if err != nil {
		return nil, fmt.Errorf("post* fixed point: %w", err)
	}
	ps := newPostStar(out, newRuleIndex(pda.store), pda.LabelCount(), weighted, true, nil)
	if err := ps.saturate(); err != nil {
		return nil, err
	}
	return out, nil
}
