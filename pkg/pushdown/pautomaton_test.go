package pushdown

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPAutomatonAddEdgeKeepsBetterWeight(t *testing.T) {
	a := NewPAutomaton[int32](MinWeight[int32]{}, 1)
	s := a.AddState(true)
	assert.True(t, a.AddEdge(0, s, 0, 5))
	assert.False(t, a.AddEdge(0, s, 0, 7))
	assert.True(t, a.AddEdge(0, s, 0, 2))
	w, ok := a.Edge(0, 0, s)
	require.True(t, ok)
	assert.Equal(t, int32(2), w)
	assert.Equal(t, 1, a.EdgeCount())

	_, ok = a.Edge(s, 0, 0)
	assert.False(t, ok)
	assert.Panics(t, func() { a.AddEdge(0, 9, 0, 1) })
}

func TestPAutomatonAccepts(t *testing.T) {
	// 0 --1--> 2 --0--> 3(acc), 2 --ε--> 3
	a := NewPAutomaton[struct{}](Unweighted{}, 2)
	s2 := a.AddState(false)
	s3 := a.AddState(true)
	a.AddEdge(0, s2, 1, unit)
	a.AddEdge(s2, s3, 0, unit)
	a.AddEdge(s2, s3, Epsilon, unit)

	assert.True(t, a.Accepts(0, []uint32{0, 1}), "top 1 then 0")
	assert.True(t, a.Accepts(0, []uint32{1}), "ε after the top")
	assert.False(t, a.Accepts(0, []uint32{1, 0}))
	assert.False(t, a.Accepts(0, nil))
	assert.False(t, a.Accepts(1, []uint32{1}))
	assert.Equal(t, []int{s3}, a.AcceptingStates())
}

func TestPAutomatonNormalize(t *testing.T) {
	// Control state 1 has an incoming edge and is accepting.
	a := NewPAutomaton[int32](MinWeight[int32]{}, 2, 1)
	a.AddEdge(0, 1, 0, 3)
	a.AddEdge(1, 1, 1, 4)

	n, err := a.Normalize()
	require.NoError(t, err)
	for s := 0; s < n.StateCount(); s++ {
		for _, e := range n.Edges(s) {
			assert.False(t, n.IsControl(e.To), "edge %v enters a control state", e)
		}
	}
	stacks := [][]uint32{nil, {0}, {1, 0}, {1, 1, 0}, {1}, {0, 0}}
	for _, s := range []int{0, 1} {
		for _, stack := range stacks {
			assert.Equal(t, a.Accepts(s, stack), n.Accepts(s, stack), "state %d stack %v", s, stack)
		}
	}
	assert.Equal(t, 3, n.StateCount())

	a.AddEdge(0, 1, Epsilon, 0)
	_, err = a.Normalize()
	assert.ErrorIs(t, err, ErrEpsilonInput)
}

func TestPAutomatonCloneIsIndependent(t *testing.T) {
	a := NewPAutomaton[int32](MinWeight[int32]{}, 1)
	s := a.AddState(true)
	a.AddEdge(0, s, 0, 1)

	c := a.Clone()
	c.AddEdge(0, s, 1, 1)
	c.SetAccepting(0, true)
	assert.Equal(t, 1, a.EdgeCount())
	assert.False(t, a.Accepting(0))
	assert.Equal(t, 2, c.EdgeCount())
}

func TestPAutomatonCloneKeepsDerivedAcceptanceWeight(t *testing.T) {
	sr := MinWeight[int32]{}
	a := NewPAutomaton[int32](sr, 2)
	a.improveAccept(0, record[int32]{from: 0, to: 1, label: Epsilon, kind: acceptByEps, ante: [2]int32{noRecord, noRecord}, weight: -3})
	a.improveAccept(1, record[int32]{from: 1, to: 1, label: Epsilon, kind: acceptByEps, ante: [2]int32{noRecord, noRecord}, weight: 2})

	c := a.Clone()
	for s, want := range []int32{-3, 2} {
		w, rec, ok := c.acceptance(s)
		require.True(t, ok)
		assert.Equal(t, want, w, "state %d", s)
		assert.NotEqual(t, noRecord, rec)
		assert.Equal(t, fromInput, c.records[rec].kind)
	}
	assert.Equal(t, []int{0, 1}, c.AcceptingStates())

	// A better derivation still replaces the copied one.
	_, changed := c.improveAccept(1, record[int32]{from: 1, to: 1, label: Epsilon, kind: acceptByEps, ante: [2]int32{noRecord, noRecord}, weight: 1})
	assert.True(t, changed)
	w, _, _ := a.acceptance(1)
	assert.Equal(t, int32(2), w)
}

func TestPAutomatonWriteDOT(t *testing.T) {
	pda := newTestPDA[int32](t, []string{"p"}, []string{"A"})
	a := stackAutomaton[int32](t, MinWeight[int32]{}, pda, "p", "A")
	var buf bytes.Buffer
	require.NoError(t, a.WriteDOT(&buf, func(l uint32) string { return fmt.Sprint(pda.Symbol(l)) }, pda.StateName))

	want := "digraph P_automaton {\n" +
		"  0 [label=\"p\", shape=circle];\n" +
		"  1 [label=\"1\", shape=doublecircle];\n" +
		"  0 -> 1 [label=\"A 0\"];\n" +
		"}\n"
	assert.Equal(t, want, buf.String())
}
