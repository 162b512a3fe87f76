package pushdown

import (
	"fmt"
	"log/slog"
	"reflect"
)

type solveMode uint8

const (
	unsolved solveMode = iota
	solvedTrivially
	solvedPreStar
	solvedPostStar
	solvedPostStarNoEps
	solvedDual
)

func (m solveMode) String() string {
	return [...]string{"unsolved", "initial", "pre*", "post*", "post*-no-eps", "dual"}[m]
}

// Product combines a PDA with an initial and a final P-automaton into one
// reachability question: can a configuration accepted by the initial
// automaton reach one accepted by the final automaton?
//
// A Product owns its automata. Solving it saturates a copy of one of them;
// the saturated automaton and its derivations stay available for path
// search and trace reconstruction until the next solve.
type Product[L comparable, W comparable] struct {
	pda     *PDA[L, W]
	sr      Semiring[W]
	cfg     *Config
	initial *PAutomaton[W]
	final   *PAutomaton[W]
	rules   *ruleIndex[W]

	trivial    *bool
	mode       solveMode
	weighted   bool
	accepted   bool
	saturated  *PAutomaton[W]
	static     *PAutomaton[W]
	dualSearch *dualState[W]
}

// NewProduct validates the automata against the PDA and normalises them so
// that no edge enters a control state. A nil cfg selects DefaultConfig.
func NewProduct[L comparable, W comparable](pda *PDA[L, W], initial, final *PAutomaton[W], cfg *Config) (*Product[L, W], error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if !sameSemiring(initial.sr, final.sr) {
		return nil, fmt.Errorf("new product: %w", ErrSemiringMismatch)
	}
	for _, side := range []struct {
		name string
		a    *PAutomaton[W]
	}{{"initial", initial}, {"final", final}} {
		name, a := side.name, side.a
		if a.pdaStates != pda.StateCount() {
			return nil, fmt.Errorf("new product: %s automaton has %d control states, PDA has %d: %w",
				name, a.pdaStates, pda.StateCount(), ErrStateMismatch)
		}
		for _, e := range a.edges {
			if e.label != Epsilon && int(e.label) >= pda.LabelCount() {
				return nil, fmt.Errorf("new product: %s automaton edge label %d: %w", name, e.label, ErrUnknownLabel)
			}
		}
	}
	ni, err := initial.Normalize()
	if err != nil {
		return nil, fmt.Errorf("new product: initial automaton: %w", err)
	}
	nf, err := final.Normalize()
	if err != nil {
		return nil, fmt.Errorf("new product: final automaton: %w", err)
	}
	return &Product[L, W]{pda: pda, sr: initial.sr, cfg: cfg, initial: ni, final: nf}, nil
}

// sameSemiring reports whether a and b are the same semiring. Values of
// types that cannot be compared match on type and direction alone.
func sameSemiring[W any](a, b Semiring[W]) bool {
	if reflect.TypeOf(a) != reflect.TypeOf(b) || a.Extremum() != b.Extremum() {
		return false
	}
	if !reflect.ValueOf(a).Comparable() {
		return true
	}
	return a == b
}

// PDA returns the pushdown system of the product.
func (p *Product[L, W]) PDA() *PDA[L, W] { return p.pda }

// Initial returns the normalised initial automaton.
func (p *Product[L, W]) Initial() *PAutomaton[W] { return p.initial }

// Final returns the normalised final automaton.
func (p *Product[L, W]) Final() *PAutomaton[W] { return p.final }

// Automaton returns the saturated automaton of the last solve, or nil.
// After a dual search it is the post* side.
func (p *Product[L, W]) Automaton() *PAutomaton[W] { return p.saturated }

// Accepted reports the answer of the last solve.
func (p *Product[L, W]) Accepted() bool { return p.accepted }

func (p *Product[L, W]) index() *ruleIndex[W] {
	if p.rules == nil {
		p.rules = newRuleIndex(p.pda.store)
	}
	return p.rules
}

func (p *Product[L, W]) logger() *slog.Logger { return p.cfg.logger() }

// InitializeProduct reports whether the initial and final languages already
// intersect, in which case no saturation is needed.
func (p *Product[L, W]) InitializeProduct() bool {
	if p.trivial == nil {
		g := buildProductGraph(p.initial, p.final)
		ok := g.anyAccepting()
		p.trivial = &ok
	}
	return *p.trivial
}

// solveTrivially answers from the initial automaton alone.
func (p *Product[L, W]) solveTrivially() {
	p.reset(solvedTrivially, false)
	p.saturated = p.initial.Clone()
	p.static = p.final
	p.accepted = true
}

func (p *Product[L, W]) reset(mode solveMode, weighted bool) {
	p.mode = mode
	p.weighted = weighted
	p.accepted = false
	p.saturated, p.static, p.dualSearch = nil, nil, nil
}

func (p *Product[L, W]) solvePreStar(weighted bool) error {
	p.reset(solvedPreStar, weighted)
	s := p.final.Clone()
	ps := newPreStar(s, p.index(), p.pda.LabelCount(), weighted, p.cfg)
	if err := ps.saturate(); err != nil {
		p.mode = unsolved
		return err
	}
	p.saturated, p.static = s, p.initial
	p.accepted = buildProductGraph(p.saturated, p.static).anyAccepting()
	return nil
}

func (p *Product[L, W]) solvePostStar(weighted, withEps bool) error {
	mode := solvedPostStar
	if !withEps {
		mode = solvedPostStarNoEps
	}
	p.reset(mode, weighted)
	s := p.initial.Clone()
	ps := newPostStar(s, p.index(), p.pda.LabelCount(), weighted, withEps, p.cfg)
	if err := ps.saturate(); err != nil {
		p.mode = unsolved
		return err
	}
	p.saturated, p.static = s, p.final
	p.accepted = buildProductGraph(p.saturated, p.static).anyAccepting()
	return nil
}

func (p *Product[L, W]) solveDual() error {
	p.reset(solvedDual, false)
	d := newDualState(p.final.Clone(), p.initial.Clone(), p.index(), p.pda.LabelCount(), p.cfg)
	found, err := d.run()
	if err != nil {
		p.mode = unsolved
		return err
	}
	p.dualSearch = d
	p.saturated = d.post.aut
	p.accepted = found
	return nil
}

// ProductAutomaton materialises the reachable part of the product of the
// saturated and the static automaton. Product state (c, c) is control state
// c; other product states are extra states.
func (p *Product[L, W]) ProductAutomaton() (*PAutomaton[W], error) {
	switch p.mode {
	case unsolved:
		return nil, ErrNotSolved
	case solvedDual:
		return p.dualSearch.tracker.automaton(p.sr), nil
	}
	return buildProductGraph(p.saturated, p.static).automaton(p.sr), nil
}
