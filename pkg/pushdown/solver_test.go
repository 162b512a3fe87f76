package pushdown

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var unit = struct{}{}

// popPDA is the one-rule system <p, X> -> <p, pop>.
func popPDA[W comparable](t testing.TB, w W) *PDA[string, W] {
	return newTestPDA(t, []string{"p"}, []string{"X"},
		testRule[W]{"p", "X", "p", Pop, "", w})
}

func TestPostStarPop(t *testing.T) {
	pda := popPDA(t, unit)
	sr := Unweighted{}
	initial := stackAutomaton[struct{}](t, sr, pda, "p", "X", "X")
	final := stackAutomaton[struct{}](t, sr, pda, "p", "X")
	p, err := NewProduct(pda, initial, final, nil)
	require.NoError(t, err)

	ok, err := PostStarAccepts(p, None)
	require.NoError(t, err)
	require.True(t, ok)

	trace, _, err := GetTrace(p, Any)
	require.NoError(t, err)
	require.Len(t, trace, 2)
	assert.Len(t, trace[0].Stack, 2)
	assert.Len(t, trace[1].Stack, 1)
	requireValidTrace(t, p, trace)
}

func TestPostStarEmptyFinalStack(t *testing.T) {
	for _, engine := range []Engine{PostStarEngine, PostStarNoEpsEngine, PreStarEngine, DualEngine} {
		t.Run(engine.String(), func(t *testing.T) {
			pda := popPDA(t, unit)
			sr := Unweighted{}
			initial := stackAutomaton[struct{}](t, sr, pda, "p", "X")
			final := stackAutomaton[struct{}](t, sr, pda, "p")
			p, err := NewProduct(pda, initial, final, nil)
			require.NoError(t, err)

			ok, err := Solve(p, engine, None)
			require.NoError(t, err)
			require.True(t, ok)

			trace, _, err := GetTrace(p, Any)
			require.NoError(t, err)
			require.Len(t, trace, 2)
			assert.Len(t, trace[0].Stack, 1)
			assert.Empty(t, trace[1].Stack)
			requireValidTrace(t, p, trace)
		})
	}
}

func TestPostStarWeightedSwapAndPush(t *testing.T) {
	pda := newTestPDA(t, []string{"Zero", "One", "Two"}, []string{"A", "B"},
		testRule[int64]{"Zero", "A", "Two", Swap, "B", 2},
		testRule[int64]{"One", "B", "Two", Push, "B", 1},
	)
	sr := MinWeight[int64]{}
	// < [Zero, One], ([A]?[B])* >
	initial := NewPAutomaton[int64](sr, pda.StateCount())
	a, b := mustLabel(t, pda, "A"), mustLabel(t, pda, "B")
	loop := initial.AddState(true)
	mid := initial.AddState(false)
	for _, name := range []string{"Zero", "One"} {
		c := mustState(t, pda, name)
		initial.SetAccepting(c, true)
		initial.AddEdge(c, loop, b, 0)
		initial.AddEdge(c, mid, a, 0)
	}
	initial.AddEdge(mid, loop, b, 0)
	initial.AddEdge(loop, loop, b, 0)
	initial.AddEdge(loop, mid, a, 0)
	final := stackAutomaton[int64](t, sr, pda, "Two", "B", "B", "B")

	p, err := NewProduct(pda, initial, final, nil)
	require.NoError(t, err)
	ok, err := PostStarAccepts(p, Shortest)
	require.NoError(t, err)
	require.True(t, ok)

	trace, w, err := GetTrace(p, Shortest)
	require.NoError(t, err)
	assert.Equal(t, int64(1), w)
	require.Len(t, trace, 2)
	requireValidTrace(t, p, trace)
	assert.Equal(t, mustState(t, pda, "One"), trace[0].State)
}

func TestPreStarNegativeWeightLoopPath(t *testing.T) {
	for _, nonEmpty := range []bool{false, true} {
		pda := popPDA(t, int32(-1))
		sr := MinWeight[int32]{}
		initial := anyStackAutomaton[int32](t, sr, pda, "p", nonEmpty)
		final := stackAutomaton[int32](t, sr, pda, "p")
		p, err := NewProduct(pda, initial, final, nil)
		require.NoError(t, err)

		ok, err := PreStarAccepts(p, Shortest)
		require.NoError(t, err)
		require.True(t, ok)

		_, w, err := p.FindPath(ShortestFixedPoint)
		require.NoError(t, err)
		assert.Equal(t, sr.Bottom(), w)

		trace, tw, err := GetTrace(p, ShortestFixedPoint)
		require.NoError(t, err)
		assert.Equal(t, w, tw)
		assert.Empty(t, trace)
	}
}

func TestPreStarNegativeWeightLoopNotAccepting(t *testing.T) {
	pda := newTestPDA(t, []string{"p", "q"}, []string{"X", "Y"},
		testRule[int32]{"p", "X", "p", Pop, "", -1},
		testRule[int32]{"q", "Y", "p", Swap, "X", 1},
	)
	sr := MinWeight[int32]{}
	// < [q], [Y] .+ >
	initial := NewPAutomaton[int32](sr, pda.StateCount())
	s1 := initial.AddState(false)
	s2 := initial.AddState(true)
	initial.AddEdge(mustState(t, pda, "q"), s1, mustLabel(t, pda, "Y"), 0)
	for l := uint32(0); l < 2; l++ {
		initial.AddEdge(s1, s2, l, 0)
		initial.AddEdge(s2, s2, l, 0)
	}
	final := stackAutomaton[int32](t, sr, pda, "p")
	p, err := NewProduct(pda, initial, final, nil)
	require.NoError(t, err)

	_, err = PreStarAccepts(p, Shortest)
	require.NoError(t, err)
	_, w, err := p.FindPath(ShortestFixedPoint)
	require.NoError(t, err)
	assert.True(t, sr.IsBottom(w))
	_, tw, err := GetTrace(p, ShortestFixedPoint)
	require.NoError(t, err)
	assert.Equal(t, w, tw)
}

// finitePathPDA has negative weights but no cycle: a [X] reaches c [] with
// best weight -9 in five steps.
func finitePathPDA(t testing.TB) *PDA[string, int32] {
	return newTestPDA(t, []string{"a", "b", "c"}, []string{"X", "Y"},
		testRule[int32]{"a", "X", "b", Push, "X", -1},
		testRule[int32]{"a", "X", "b", Push, "Y", -4},
		testRule[int32]{"b", "X", "c", Push, "X", -1},
		testRule[int32]{"b", "Y", "c", Push, "Y", -1},
		testRule[int32]{"c", "X", "c", Pop, "", -2},
		testRule[int32]{"c", "Y", "c", Pop, "", -1},
	)
}

func TestNegativeWeightFinitePath(t *testing.T) {
	for _, engine := range []Engine{PreStarEngine, PostStarEngine, PostStarNoEpsEngine} {
		for _, tt := range []TraceType{Shortest, ShortestFixedPoint} {
			t.Run(engine.String()+"/"+tt.String(), func(t *testing.T) {
				pda := finitePathPDA(t)
				sr := MinWeight[int32]{}
				initial := stackAutomaton[int32](t, sr, pda, "a", "X")
				final := stackAutomaton[int32](t, sr, pda, "c")
				p, err := NewProduct(pda, initial, final, nil)
				require.NoError(t, err)

				ok, err := Solve(p, engine, tt)
				require.NoError(t, err)
				require.True(t, ok)

				_, w, err := p.FindPath(tt)
				require.NoError(t, err)
				assert.Equal(t, int32(-9), w)

				trace, tw, err := GetTrace(p, tt)
				require.NoError(t, err)
				assert.Equal(t, w, tw)
				require.Len(t, trace, 6)
				requireValidTrace(t, p, trace)
				assert.Equal(t, w, traceWeight[int32](sr, trace))
			})
		}
	}
}

func ringPDA[W comparable](t testing.TB, popWeight W, zero W) *PDA[string, W] {
	return paddedRingPDA(t, 0, popWeight, zero)
}

// paddedRingPDA is ringPDA with extra unused control states and labels.
func paddedRingPDA[W comparable](t testing.TB, extra int, popWeight W, zero W) *PDA[string, W] {
	states := []string{"p"}
	labels := []string{"X1", "X2", "X3", "X4", "X5", "Xn"}
	for i := range extra {
		states = append(states, fmt.Sprintf("s%d", i))
		labels = append(labels, fmt.Sprintf("L%d", i))
	}
	return newTestPDA(t, states, labels,
		testRule[W]{"p", "X1", "p", Pop, "", popWeight},
		testRule[W]{"p", "X1", "p", Push, "X2", zero},
		testRule[W]{"p", "X2", "p", Swap, "X3", zero},
		testRule[W]{"p", "X3", "p", Swap, "X4", zero},
		testRule[W]{"p", "X4", "p", Swap, "X5", zero},
		testRule[W]{"p", "X5", "p", Swap, "Xn", zero},
		testRule[W]{"p", "Xn", "p", Swap, "X1", zero},
	)
}

func checkPaddedRing[W Signed](t *testing.T) {
	sr := MinWeight[W]{}
	for _, extra := range []int{1, 5, 10} {
		pda := paddedRingPDA[W](t, extra, -1, 0)
		for _, engine := range []Engine{PreStarEngine, PostStarEngine, PostStarNoEpsEngine} {
			p, err := NewProduct(pda, stackAutomaton[W](t, sr, pda, "p", "X1"), stackAutomaton[W](t, sr, pda, "p"), nil)
			require.NoError(t, err)
			ok, err := Solve(p, engine, ShortestFixedPoint)
			require.NoError(t, err)
			require.True(t, ok)

			_, w, err := p.FindPath(ShortestFixedPoint)
			require.NoError(t, err)
			assert.True(t, sr.IsBottom(w), "%d extra states, %s: weight %v", extra, engine, w)
		}

		a := stackAutomaton[W](t, sr, pda, "p")
		require.NoError(t, PreStarFixedPoint(pda, a, ShortestFixedPoint))
		w, ok := a.Edge(mustState(t, pda, "p"), mustLabel(t, pda, "X1"), mustState(t, pda, "p"))
		require.True(t, ok)
		assert.True(t, sr.IsBottom(w), "%d extra states: p --X1--> p is %v", extra, w)
	}
}

func TestNegativeRingWithUnusedStates(t *testing.T) {
	t.Run("int32", checkPaddedRing[int32])
	t.Run("int64", checkPaddedRing[int64])
}

func TestNegativeRingSwap(t *testing.T) {
	pda := ringPDA[int32](t, -1, 0)
	sr := MinWeight[int32]{}
	p, err := NewProduct(pda, stackAutomaton[int32](t, sr, pda, "p", "X1"), stackAutomaton[int32](t, sr, pda, "p"), nil)
	require.NoError(t, err)

	ok, err := PreStarAccepts(p, Shortest)
	require.NoError(t, err)
	require.True(t, ok)

	_, w, err := p.FindPath(ShortestFixedPoint)
	require.NoError(t, err)
	assert.Equal(t, sr.Bottom(), w)
	_, tw, err := GetTrace(p, ShortestFixedPoint)
	require.NoError(t, err)
	assert.Equal(t, w, tw)
}

func TestNegativeRingPush(t *testing.T) {
	pda := newTestPDA(t, []string{"p", "q"}, []string{"X1", "X2", "X3", "Xn"},
		testRule[int32]{"p", "X1", "p", Pop, "", -1},
		testRule[int32]{"p", "X1", "q", Swap, "X2", 0},
		testRule[int32]{"p", "X2", "q", Swap, "X3", 0},
		testRule[int32]{"p", "X3", "q", Swap, "Xn", 0},
		testRule[int32]{"p", "Xn", "q", Swap, "X1", 0},
		testRule[int32]{"q", "X1", "p", Push, "X1", 0},
		testRule[int32]{"q", "X2", "p", Push, "X2", 0},
		testRule[int32]{"q", "X3", "p", Push, "X3", 0},
		testRule[int32]{"q", "Xn", "p", Push, "Xn", 0},
	)
	sr := MinWeight[int32]{}
	p, err := NewProduct(pda, stackAutomaton[int32](t, sr, pda, "p", "X1"), stackAutomaton[int32](t, sr, pda, "p", "X1"), nil)
	require.NoError(t, err)

	ok, err := PreStarAccepts(p, Shortest)
	require.NoError(t, err)
	require.True(t, ok)

	_, w, err := p.FindPath(ShortestFixedPoint)
	require.NoError(t, err)
	assert.Equal(t, sr.Bottom(), w)
	_, tw, err := GetTrace(p, ShortestFixedPoint)
	require.NoError(t, err)
	assert.Equal(t, w, tw)
}

func TestLongestRing(t *testing.T) {
	pda := ringPDA[uint32](t, 1, 0)
	sr := MaxWeight[uint32]{}
	p, err := NewProduct(pda, stackAutomaton[uint32](t, sr, pda, "p", "X1"), stackAutomaton[uint32](t, sr, pda, "p"), nil)
	require.NoError(t, err)

	ok, err := PreStarAccepts(p, Longest)
	require.NoError(t, err)
	require.True(t, ok)

	_, w, err := p.FindPath(Longest)
	require.NoError(t, err)
	assert.Equal(t, sr.Bottom(), w)
	trace, tw, err := GetTrace(p, Longest)
	require.NoError(t, err)
	assert.Equal(t, w, tw)
	assert.Empty(t, trace)
}

func TestTraceTypeMismatch(t *testing.T) {
	pda := popPDA(t, int32(1))
	sr := MinWeight[int32]{}
	p, err := NewProduct(pda, stackAutomaton[int32](t, sr, pda, "p", "X"), stackAutomaton[int32](t, sr, pda, "p"), nil)
	require.NoError(t, err)

	_, err = PreStarAccepts(p, Longest)
	require.ErrorIs(t, err, ErrTraceTypeMismatch)
	_, err = Solve(p, DualEngine, Shortest)
	require.ErrorIs(t, err, ErrWeightedDual)

	_, _, err = p.FindPath(Shortest)
	require.ErrorIs(t, err, ErrNotSolved)

	ok, err := PostStarAccepts(p, None)
	require.NoError(t, err)
	require.True(t, ok)
	_, _, err = p.FindPath(Shortest)
	require.ErrorIs(t, err, ErrNotSolved, "unweighted solve cannot answer weighted path queries")
}

func TestNotAccepted(t *testing.T) {
	pda := newTestPDA(t, []string{"p", "q"}, []string{"X", "Y"},
		testRule[struct{}]{"p", "X", "p", Swap, "Y", unit},
	)
	sr := Unweighted{}
	for _, engine := range Engines() {
		t.Run(engine.String(), func(t *testing.T) {
			p, err := NewProduct(pda, stackAutomaton[struct{}](t, sr, pda, "p", "X"), stackAutomaton[struct{}](t, sr, pda, "q", "Y"), nil)
			require.NoError(t, err)
			ok, err := Solve(p, engine, None)
			require.NoError(t, err)
			assert.False(t, ok)
			_, _, err = GetTrace(p, Any)
			assert.True(t, errors.Is(err, ErrNoTrace))
		})
	}
}

func TestInitializeProductShortcut(t *testing.T) {
	pda := popPDA(t, unit)
	sr := Unweighted{}
	p, err := NewProduct(pda, stackAutomaton[struct{}](t, sr, pda, "p", "X"), anyStackAutomaton[struct{}](t, sr, pda, "p", false), nil)
	require.NoError(t, err)
	require.True(t, p.InitializeProduct())

	ok, err := PreStarAccepts(p, None)
	require.NoError(t, err)
	require.True(t, ok)
	trace, _, err := GetTrace(p, Any)
	require.NoError(t, err)
	require.Len(t, trace, 1)
	assert.Equal(t, []uint32{0}, trace[0].Stack)
}

func TestIterationLimit(t *testing.T) {
	pda := finitePathPDA(t)
	sr := MinWeight[int32]{}
	cfg := DefaultConfig()
	cfg.MaxIterations = 1
	p, err := NewProduct(pda, stackAutomaton[int32](t, sr, pda, "a", "X"), stackAutomaton[int32](t, sr, pda, "c"), cfg)
	require.NoError(t, err)
	_, err = PostStarAccepts(p, Shortest)
	require.ErrorIs(t, err, ErrIterationLimit)
	_, _, err = p.FindPath(Shortest)
	require.ErrorIs(t, err, ErrNotSolved)
}

// scaledMin is a semiring whose dynamic type cannot be compared with ==.
type scaledMin struct {
	MinWeight[int32]
	scale []int32
}

func TestNewProductAcceptsIncomparableSemiring(t *testing.T) {
	pda := popPDA(t, int32(-1))
	sr := scaledMin{scale: []int32{1}}
	initial := stackAutomaton[int32](t, sr, pda, "p", "X")
	final := stackAutomaton[int32](t, scaledMin{scale: []int32{1}}, pda, "p")

	var p *Product[string, int32]
	require.NotPanics(t, func() {
		var err error
		p, err = NewProduct(pda, initial, final, nil)
		require.NoError(t, err)
	})
	ok, err := Solve(p, PostStarEngine, Shortest)
	require.NoError(t, err)
	require.True(t, ok)
	_, w, err := p.FindPath(Shortest)
	require.NoError(t, err)
	assert.Equal(t, int32(-1), w)

	_, err = NewProduct(pda, initial, stackAutomaton[int32](t, MinWeight[int32]{}, pda, "p"), nil)
	require.ErrorIs(t, err, ErrSemiringMismatch)
}

func TestNewProductValidation(t *testing.T) {
	pda := popPDA(t, int32(0))
	sr := MinWeight[int32]{}
	good := stackAutomaton[int32](t, sr, pda, "p", "X")

	_, err := NewProduct(pda, NewPAutomaton[int32](sr, 3), good, nil)
	require.ErrorIs(t, err, ErrStateMismatch)

	_, err = NewProduct(pda, good, NewPAutomaton[int32](MaxWeight[int32]{}, 1), nil)
	require.ErrorIs(t, err, ErrSemiringMismatch)

	bad := NewPAutomaton[int32](sr, 1)
	bad.AddEdge(0, bad.AddState(true), 7, 0)
	_, err = NewProduct(pda, bad, good, nil)
	require.ErrorIs(t, err, ErrUnknownLabel)

	eps := NewPAutomaton[int32](sr, 1)
	eps.AddEdge(0, eps.AddState(true), Epsilon, 0)
	_, err = NewProduct(pda, eps, good, nil)
	require.ErrorIs(t, err, ErrEpsilonInput)
}

func TestLIFOWorklist(t *testing.T) {
	pda := finitePathPDA(t)
	sr := MinWeight[int32]{}
	cfg := &Config{Worklist: LIFO}
	p, err := NewProduct(pda, stackAutomaton[int32](t, sr, pda, "a", "X"), stackAutomaton[int32](t, sr, pda, "c"), cfg)
	require.NoError(t, err)
	ok, err := PreStarAccepts(p, Shortest)
	require.NoError(t, err)
	require.True(t, ok)
	_, w, err := p.FindPath(Shortest)
	require.NoError(t, err)
	assert.Equal(t, int32(-9), w)
}

func TestParseEngine(t *testing.T) {
	for _, e := range Engines() {
		got, err := ParseEngine(e.String())
		require.NoError(t, err)
		assert.Equal(t, e, got)
	}
	_, err := ParseEngine("sideways")
	assert.Error(t, err)
}

func TestProductAutomaton(t *testing.T) {
	pda := popPDA(t, unit)
	sr := Unweighted{}
	p, err := NewProduct(pda, stackAutomaton[struct{}](t, sr, pda, "p", "X", "X"), stackAutomaton[struct{}](t, sr, pda, "p"), nil)
	require.NoError(t, err)
	_, err = p.ProductAutomaton()
	require.ErrorIs(t, err, ErrNotSolved)

	for _, engine := range Engines() {
		ok, err := Solve(p, engine, None)
		require.NoError(t, err)
		require.True(t, ok)
		prod, err := p.ProductAutomaton()
		require.NoError(t, err)
		assert.NotEmpty(t, prod.AcceptingStates(), engine.String())
	}
}
