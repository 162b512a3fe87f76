package pushdown

import (
	"os"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

// shouldRunHeavy returns true when heavy/long-running tests should run even
// if the Go test suite is invoked in short mode. Set PDAAAL_FORCE_HEAVY=1
// (or "true") to override short-mode skips.
func shouldRunHeavy() bool {
	v := os.Getenv("PDAAAL_FORCE_HEAVY")
	return v == "1" || v == "true" || v == "TRUE" || v == "True"
}

type testRule[W any] struct {
	from, pre, to string
	op            Op
	label         string
	weight        W
}

// newTestPDA builds a PDA with named states and string labels.
func newTestPDA[W comparable](t testing.TB, states, labels []string, rules ...testRule[W]) *PDA[string, W] {
	t.Helper()
	pda := NewPDA[string, W](NewNamedStates(states...), labels...)
	for _, r := range rules {
		require.NoError(t, pda.AddRule(r.from, r.pre, r.to, r.op, r.label, r.weight))
	}
	return pda
}

func mustState[L comparable, W comparable](t testing.TB, pda *PDA[L, W], name string) int {
	t.Helper()
	id, ok := pda.ExistsState(name)
	require.True(t, ok, "state %q", name)
	return id
}

func mustLabel[L comparable, W comparable](t testing.TB, pda *PDA[L, W], label L) uint32 {
	t.Helper()
	id, ok := pda.ExistsLabel(label)
	require.True(t, ok, "label %v", label)
	return id
}

// stackAutomaton accepts exactly the given stack, listed top-first, from
// the named control state.
func stackAutomaton[W comparable](t testing.TB, sr Semiring[W], pda *PDA[string, W], state string, topFirst ...string) *PAutomaton[W] {
	t.Helper()
	a := NewPAutomaton(sr, pda.StateCount())
	cur := mustState(t, pda, state)
	if len(topFirst) == 0 {
		a.SetAccepting(cur, true)
		return a
	}
	for i, l := range topFirst {
		next := a.AddState(i == len(topFirst)-1)
		a.AddEdge(cur, next, mustLabel(t, pda, l), sr.Zero())
		cur = next
	}
	return a
}

// anyStackAutomaton accepts every stack from the named state. With
// nonEmpty set the empty stack is excluded.
func anyStackAutomaton[W comparable](t testing.TB, sr Semiring[W], pda *PDA[string, W], state string, nonEmpty bool) *PAutomaton[W] {
	t.Helper()
	a := NewPAutomaton(sr, pda.StateCount())
	c := mustState(t, pda, state)
	a.SetAccepting(c, !nonEmpty)
	s := a.AddState(true)
	for l := 0; l < pda.LabelCount(); l++ {
		a.AddEdge(c, s, uint32(l), sr.Zero())
		a.AddEdge(s, s, uint32(l), sr.Zero())
	}
	return a
}

// requireValidTrace checks that consecutive steps differ by exactly one
// rule of the PDA and that the trace starts in the initial and ends in the
// final language.
func requireValidTrace[L comparable, W comparable](t testing.TB, p *Product[L, W], trace []TraceStep[W]) {
	t.Helper()
	require.NotEmpty(t, trace)
	require.Nil(t, trace[0].Rule, "first step has no rule")
	first, last := trace[0], trace[len(trace)-1]
	require.True(t, p.Initial().Accepts(first.State, first.Stack), "first configuration not initial: %v", first)
	require.True(t, p.Final().Accepts(last.State, last.Stack), "last configuration not final: %v", last)
	for i := 1; i < len(trace); i++ {
		prev, cur := trace[i-1], trace[i]
		require.NotNil(t, cur.Rule, "step %d", i)
		r := *cur.Rule
		require.Equal(t, prev.State, r.From, "step %d source state", i)
		require.Equal(t, cur.State, r.To, "step %d target state", i)
		next, ok := r.Apply(prev.Stack)
		require.True(t, ok, "step %d rule %v does not apply to %v", i, r, prev.Stack)
		require.Equal(t, next, cur.Stack, "step %d stack", i)
		require.True(t, slices.Contains(p.PDA().Rules().Rules(r.From, r.Pre), r), "step %d rule %v not in PDA", i, r)
	}
}

// traceWeight sums the rule weights of a trace.
func traceWeight[W comparable](sr Semiring[W], trace []TraceStep[W]) W {
	w := sr.Zero()
	for _, s := range trace[1:] {
		w = sr.Combine(w, s.Rule.Weight)
	}
	return w
}
