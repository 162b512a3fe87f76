package pushdown

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// recordKind says how a derivation record was produced.
type recordKind uint8

const (
	fromInput   recordKind = iota // edge of the constraint automaton
	byPop                         // pre*: pop seed; post*: ε-edge from a pop
	bySwap                        // swap or noop
	byPush                        // pre*: both halves; post*: the lower half
	pushHead                      // post*: upper half into a fresh state
	epsClosure                    // post*: ε-edge followed by an edge
	acceptByEps                   // post* without ε-edges: empty stack acceptance
)

func (k recordKind) String() string {
	return [...]string{"input", "pop", "swap", "push", "push-head", "eps-closure", "accept"}[k]
}

// record is one immutable entry of the derivation arena. Records reference
// their antecedents by id, so derivations share substructure.
type record[W any] struct {
	from, to int
	label    uint32
	kind     recordKind
	rule     Rule[W]
	ante     [2]int32
	weight   W
	height   int32
}

const noRecord int32 = -1

type edgeKey struct {
	from, to int
	label    uint32
}

type edge[W any] struct {
	from, to int
	label    uint32
	weight   W
	record   int32
}

// Edge is an exported view of an automaton edge.
type Edge[W any] struct {
	From   int
	To     int
	Label  uint32
	Weight W
}

// PAutomaton is a finite automaton over stack symbols. States 0..N-1 are the
// PDA's control states; further states are extra states. An edge's label is
// a symbol id or Epsilon.
//
// A stack is accepted from state s when a path from s reads it top-first and
// ends in an accepting state. The empty stack is accepted from s when s is
// accepting or reaches an accepting state through ε-edges.
type PAutomaton[W comparable] struct {
	sr        Semiring[W]
	pdaStates int
	accepting []bool

	edges   []edge[W]
	index   map[edgeKey]int32
	out     [][]int32
	byLabel map[stateLabel][]int32

	records []record[W]
	// accept holds derived empty-stack acceptance per control state.
	accept map[int]int32
}

// NewPAutomaton creates an automaton with pdaStates control states, none of
// them accepting unless listed.
func NewPAutomaton[W comparable](sr Semiring[W], pdaStates int, accepting ...int) *PAutomaton[W] {
	a := &PAutomaton[W]{
		sr:        sr,
		pdaStates: pdaStates,
		accepting: make([]bool, pdaStates),
		out:       make([][]int32, pdaStates),
		index:     make(map[edgeKey]int32),
		byLabel:   make(map[stateLabel][]int32),
		accept:    make(map[int]int32),
	}
	for _, s := range accepting {
		a.SetAccepting(s, true)
	}
	return a
}

// Semiring returns the weight arithmetic of the automaton.
func (a *PAutomaton[W]) Semiring() Semiring[W] { return a.sr }

// PDAStates returns the number of control states.
func (a *PAutomaton[W]) PDAStates() int { return a.pdaStates }

// StateCount returns the number of states.
func (a *PAutomaton[W]) StateCount() int { return len(a.accepting) }

// IsControl reports whether s is a control state.
func (a *PAutomaton[W]) IsControl(s int) bool { return s >= 0 && s < a.pdaStates }

// AddState appends an extra state and returns its id.
func (a *PAutomaton[W]) AddState(accepting bool) int {
	a.accepting = append(a.accepting, accepting)
	a.out = append(a.out, nil)
	return len(a.accepting) - 1
}

// SetAccepting marks or unmarks s as accepting.
func (a *PAutomaton[W]) SetAccepting(s int, accepting bool) {
	a.mustState(s)
	a.accepting[s] = accepting
}

// Accepting reports whether s is accepting, including empty-stack
// acceptance derived by saturation.
func (a *PAutomaton[W]) Accepting(s int) bool {
	a.mustState(s)
	if a.accepting[s] {
		return true
	}
	_, ok := a.accept[s]
	return ok
}

// AcceptingStates returns the accepting states in id order.
func (a *PAutomaton[W]) AcceptingStates() []int {
	var out []int
	for s := range a.accepting {
		if a.Accepting(s) {
			out = append(out, s)
		}
	}
	return out
}

// acceptance returns the weight of accepting in s and the derived
// acceptance record used, or noRecord for plain accepting states.
func (a *PAutomaton[W]) acceptance(s int) (W, int32, bool) {
	rec, derived := a.accept[s]
	if a.accepting[s] {
		if derived && a.sr.Better(a.records[rec].weight, a.sr.Zero()) {
			return a.records[rec].weight, rec, true
		}
		return a.sr.Zero(), noRecord, true
	}
	if derived {
		return a.records[rec].weight, rec, true
	}
	var zero W
	return zero, noRecord, false
}

func (a *PAutomaton[W]) mustState(s int) {
	if s < 0 || s >= len(a.accepting) {
		panic(fmt.Sprintf("pushdown: automaton state %d out of range [0..%d)", s, len(a.accepting)))
	}
}

// AddEdge inserts an input edge or improves the weight of an existing one.
// It reports whether the automaton changed.
func (a *PAutomaton[W]) AddEdge(from, to int, label uint32, weight W) bool {
	_, changed := a.improve(record[W]{
		from: from, to: to, label: label,
		kind: fromInput, ante: [2]int32{noRecord, noRecord},
		weight: weight,
	})
	return changed
}

// Edge returns the weight of (from, label, to).
func (a *PAutomaton[W]) Edge(from int, label uint32, to int) (W, bool) {
	id, ok := a.index[edgeKey{from, to, label}]
	if !ok {
		var zero W
		return zero, false
	}
	return a.edges[id].weight, true
}

// Edges returns the outgoing edges of from in insertion order.
func (a *PAutomaton[W]) Edges(from int) []Edge[W] {
	a.mustState(from)
	out := make([]Edge[W], 0, len(a.out[from]))
	for _, id := range a.out[from] {
		out = append(out, a.edges[id].export())
	}
	return out
}

// EdgesLabeled returns the edges of from reading label.
func (a *PAutomaton[W]) EdgesLabeled(from int, label uint32) []Edge[W] {
	ids := a.byLabel[stateLabel{from, label}]
	out := make([]Edge[W], 0, len(ids))
	for _, id := range ids {
		out = append(out, a.edges[id].export())
	}
	return out
}

// EdgeCount returns the number of edges.
func (a *PAutomaton[W]) EdgeCount() int { return len(a.edges) }

func (e edge[W]) export() Edge[W] {
	return Edge[W]{From: e.from, To: e.to, Label: e.label, Weight: e.weight}
}

// improve adds the edge of rec, or replaces the current derivation of an
// existing edge when rec is strictly better. It returns the edge id and
// whether the automaton changed.
func (a *PAutomaton[W]) improve(rec record[W]) (int32, bool) {
	a.mustState(rec.from)
	a.mustState(rec.to)
	key := edgeKey{rec.from, rec.to, rec.label}
	id, ok := a.index[key]
	if ok {
		if !a.sr.Better(rec.weight, a.edges[id].weight) {
			return id, false
		}
		a.edges[id].weight = rec.weight
		a.edges[id].record = a.push(rec)
		return id, true
	}
	id = int32(len(a.edges))
	a.edges = append(a.edges, edge[W]{from: rec.from, to: rec.to, label: rec.label, weight: rec.weight, record: a.push(rec)})
	a.index[key] = id
	a.out[rec.from] = append(a.out[rec.from], id)
	k := stateLabel{rec.from, rec.label}
	a.byLabel[k] = append(a.byLabel[k], id)
	return id, true
}

// improveAccept records derived empty-stack acceptance of s.
func (a *PAutomaton[W]) improveAccept(s int, rec record[W]) (int32, bool) {
	if cur, ok := a.accept[s]; ok && !a.sr.Better(rec.weight, a.records[cur].weight) {
		return cur, false
	}
	id := a.push(rec)
	a.accept[s] = id
	return id, true
}

func (a *PAutomaton[W]) push(rec record[W]) int32 {
	a.records = append(a.records, rec)
	return int32(len(a.records) - 1)
}

// Accepts reports whether stack (bottom-first, top last) is accepted from
// state.
func (a *PAutomaton[W]) Accepts(state int, stack []uint32) bool {
	a.mustState(state)
	current := a.epsClosure(map[int]bool{state: true})
	for i := len(stack) - 1; i >= 0; i-- {
		next := make(map[int]bool)
		for s := range current {
			for _, id := range a.byLabel[stateLabel{s, stack[i]}] {
				next[a.edges[id].to] = true
			}
		}
		if len(next) == 0 {
			return false
		}
		current = a.epsClosure(next)
	}
	for s := range current {
		if a.Accepting(s) {
			return true
		}
	}
	return false
}

func (a *PAutomaton[W]) epsClosure(set map[int]bool) map[int]bool {
	stack := make([]int, 0, len(set))
	for s := range set {
		stack = append(stack, s)
	}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, id := range a.byLabel[stateLabel{s, Epsilon}] {
			if to := a.edges[id].to; !set[to] {
				set[to] = true
				stack = append(stack, to)
			}
		}
	}
	return set
}

// hasEpsilon reports whether any edge is an ε-edge.
func (a *PAutomaton[W]) hasEpsilon() bool {
	for _, e := range a.edges {
		if e.label == Epsilon {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the automaton. Derivation records are not
// copied; every edge of the clone is an input edge. Derived empty-stack
// acceptance is kept as an input acceptance with the same weight.
func (a *PAutomaton[W]) Clone() *PAutomaton[W] {
	c := NewPAutomaton(a.sr, a.pdaStates)
	copy(c.accepting, a.accepting)
	for s := a.pdaStates; s < len(a.accepting); s++ {
		c.AddState(a.accepting[s])
	}
	for _, e := range a.edges {
		c.AddEdge(e.from, e.to, e.label, e.weight)
	}
	for s, rec := range a.accept {
		c.accept[s] = c.push(record[W]{
			from: s, to: s, label: Epsilon, kind: fromInput,
			ante: [2]int32{noRecord, noRecord}, weight: a.records[rec].weight,
		})
	}
	return c
}

// Normalize returns a copy of the automaton in which no edge enters a
// control state. Every control state with incoming edges gets an extra
// shadow state with the same outgoing edges and acceptance, and incoming
// edges are redirected to the shadow. The language accepted from every
// state is unchanged.
//
// Automata with ε-edges are rejected.
func (a *PAutomaton[W]) Normalize() (*PAutomaton[W], error) {
	if a.hasEpsilon() {
		return nil, ErrEpsilonInput
	}
	c := NewPAutomaton(a.sr, a.pdaStates)
	copy(c.accepting, a.accepting[:a.pdaStates])
	for s := a.pdaStates; s < len(a.accepting); s++ {
		c.AddState(a.accepting[s])
	}
	shadow := make(map[int]int)
	for _, e := range a.edges {
		if a.IsControl(e.to) {
			if _, ok := shadow[e.to]; !ok {
				shadow[e.to] = c.AddState(a.accepting[e.to])
			}
		}
	}
	target := func(s int) int {
		if sh, ok := shadow[s]; ok {
			return sh
		}
		return s
	}
	for _, e := range a.edges {
		c.AddEdge(e.from, target(e.to), e.label, e.weight)
		if sh, ok := shadow[e.from]; ok {
			c.AddEdge(sh, target(e.to), e.label, e.weight)
		}
	}
	return c, nil
}

// WriteDOT writes the automaton in Graphviz format. labelName and stateName
// render symbol and state ids; either may be nil.
func (a *PAutomaton[W]) WriteDOT(w io.Writer, labelName func(uint32) string, stateName func(int) string) error {
	if labelName == nil {
		labelName = func(l uint32) string { return fmt.Sprint(l) }
	}
	if stateName == nil {
		stateName = func(s int) string { return fmt.Sprint(s) }
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "digraph P_automaton {")
	for s := range a.accepting {
		name := fmt.Sprint(s)
		if a.IsControl(s) {
			name = stateName(s)
		}
		shape := "circle"
		if a.Accepting(s) {
			shape = "doublecircle"
		}
		fmt.Fprintf(bw, "  %d [label=%q, shape=%s];\n", s, name, shape)
	}
	for _, e := range a.edges {
		label := "ε"
		if e.label != Epsilon {
			label = labelName(e.label)
		}
		if a.sr.Extremum() != NoExtremum {
			label += " " + FormatWeight(a.sr, e.weight)
		}
		fmt.Fprintf(bw, "  %d -> %d [label=%q];\n", e.from, e.to, strings.TrimSpace(label))
	}
	fmt.Fprintln(bw, "}")
	return bw.Flush()
}
