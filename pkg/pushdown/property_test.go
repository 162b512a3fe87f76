package pushdown

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// randomInstance is a small random reachability question with rule weights
// drawn from a fixed range.
type randomInstance struct {
	pda     *PDA[string, int64]
	initial func(testing.TB) *PAutomaton[int64]
	final   func(testing.TB) *PAutomaton[int64]
}

func newRandomInstance(t testing.TB, rng *rand.Rand, minWeight, maxWeight int) randomInstance {
	t.Helper()
	states := make([]string, 2+rng.IntN(3))
	for i := range states {
		states[i] = fmt.Sprintf("s%d", i)
	}
	labels := []string{"A", "B", "C"}[:2+rng.IntN(2)]
	pda := NewPDA[string, int64](NewNamedStates(states...), labels...)
	ops := []Op{Pop, Swap, Push, Noop}
	for n := 3 + rng.IntN(8); n > 0; n-- {
		from := states[rng.IntN(len(states))]
		to := states[rng.IntN(len(states))]
		op := ops[rng.IntN(len(ops))]
		require.NoError(t, pda.AddRule(from, labels[rng.IntN(len(labels))], to, op,
			labels[rng.IntN(len(labels))], int64(minWeight+rng.IntN(maxWeight-minWeight+1))))
	}

	sr := MinWeight[int64]{}
	start := states[rng.IntN(len(states))]
	stack := make([]string, 1+rng.IntN(2))
	for i := range stack {
		stack[i] = labels[rng.IntN(len(labels))]
	}
	target := states[rng.IntN(len(states))]
	nonEmpty := rng.IntN(3) == 0
	emptyOnly := rng.IntN(2) == 0
	return randomInstance{
		pda:     pda,
		initial: func(t testing.TB) *PAutomaton[int64] { return stackAutomaton[int64](t, sr, pda, start, stack...) },
		final: func(t testing.TB) *PAutomaton[int64] {
			if emptyOnly {
				return stackAutomaton[int64](t, sr, pda, target)
			}
			return anyStackAutomaton[int64](t, sr, pda, target, nonEmpty)
		},
	}
}

func (ri randomInstance) product(t testing.TB) *Product[string, int64] {
	t.Helper()
	p, err := NewProduct(ri.pda, ri.initial(t), ri.final(t), nil)
	require.NoError(t, err)
	return p
}

func TestEnginesAgreeOnRandomInstances(t *testing.T) {
	runs := 300
	if testing.Short() && !shouldRunHeavy() {
		runs = 40
	}
	rng := rand.New(rand.NewPCG(7, 11))
	sr := MinWeight[int64]{}
	accepted := 0
	for i := 0; i < runs; i++ {
		ri := newRandomInstance(t, rng, 0, 3)
		t.Run(fmt.Sprintf("instance%d", i), func(t *testing.T) {
			var answers []bool
			for _, engine := range Engines() {
				p := ri.product(t)
				ok, err := Solve(p, engine, Any)
				require.NoError(t, err, engine.String())
				answers = append(answers, ok)
				if !ok {
					_, _, err := GetTrace(p, Any)
					require.ErrorIs(t, err, ErrNoTrace, engine.String())
					continue
				}
				trace, _, err := GetTrace(p, Any)
				require.NoError(t, err, engine.String())
				requireValidTrace(t, p, trace)
			}
			for j := 1; j < len(answers); j++ {
				require.Equal(t, answers[0], answers[j], "engine %s disagrees", Engines()[j])
			}
			if !answers[0] {
				return
			}
			accepted++

			var weights []int64
			for _, engine := range []Engine{PreStarEngine, PostStarEngine, PostStarNoEpsEngine} {
				p := ri.product(t)
				ok, err := Solve(p, engine, Shortest)
				require.NoError(t, err)
				require.True(t, ok, engine.String())
				trace, w, err := GetTrace(p, Shortest)
				require.NoError(t, err, engine.String())
				require.False(t, sr.IsBottom(w), engine.String())
				requireValidTrace(t, p, trace)
				assert.Equal(t, w, traceWeight[int64](sr, trace), "%s trace weight", engine)
				weights = append(weights, w)
			}
			assert.Equal(t, weights[0], weights[1], "pre* and post*")
			assert.Equal(t, weights[0], weights[2], "pre* and post* without ε-edges")
		})
	}
	t.Logf("%d of %d instances accepted", accepted, runs)
}

func TestFixedPointSearchMatchesDijkstra(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	for i := 0; i < 60; i++ {
		ri := newRandomInstance(t, rng, 0, 3)
		p := ri.product(t)
		ok, err := PostStarAccepts(p, Shortest)
		require.NoError(t, err)
		if !ok {
			continue
		}
		_, w, err := p.FindPath(Shortest)
		require.NoError(t, err)

		q := ri.product(t)
		_, err = PostStarAccepts(q, ShortestFixedPoint)
		require.NoError(t, err)
		_, wfp, err := q.FindPath(ShortestFixedPoint)
		require.NoError(t, err)
		assert.Equal(t, w, wfp, "instance %d", i)
	}
}

func TestEnginesAgreeOnNegativeWeights(t *testing.T) {
	runs := 200
	if testing.Short() && !shouldRunHeavy() {
		runs = 40
	}
	rng := rand.New(rand.NewPCG(13, 17))
	sr := MinWeight[int64]{}
	unbounded := 0
	for i := 0; i < runs; i++ {
		ri := newRandomInstance(t, rng, -2, 2)
		t.Run(fmt.Sprintf("instance%d", i), func(t *testing.T) {
			type outcome struct {
				ok bool
				w  int64
			}
			var outcomes []outcome
			engines := []Engine{PreStarEngine, PostStarEngine, PostStarNoEpsEngine}
			for _, engine := range engines {
				p := ri.product(t)
				ok, err := Solve(p, engine, ShortestFixedPoint)
				require.NoError(t, err, engine.String())
				if !ok {
					outcomes = append(outcomes, outcome{})
					continue
				}
				_, w, err := p.FindPath(ShortestFixedPoint)
				require.NoError(t, err, engine.String())
				trace, tw, err := GetTrace(p, ShortestFixedPoint)
				require.NoError(t, err, engine.String())
				assert.Equal(t, w, tw, "%s trace and path weight", engine)
				if sr.IsBottom(w) {
					assert.Empty(t, trace, engine.String())
				} else {
					requireValidTrace(t, p, trace)
					assert.Equal(t, w, traceWeight[int64](sr, trace), "%s trace weight", engine)
				}
				outcomes = append(outcomes, outcome{ok: true, w: w})
			}
			for j := 1; j < len(outcomes); j++ {
				assert.Equal(t, outcomes[0], outcomes[j], "%s and %s", engines[0], engines[j])
			}
			if outcomes[0].ok && sr.IsBottom(outcomes[0].w) {
				unbounded++
			}
		})
	}
	t.Logf("%d of %d instances unbounded", unbounded, runs)
}
