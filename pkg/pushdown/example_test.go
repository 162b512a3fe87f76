package pushdown_test

import (
	"fmt"

	"github.com/gitrdm/gopdaaal/pkg/pushdown"
)

// A shortest witness from ⟨a, [X]⟩ to ⟨c, []⟩ where every rule has a
// negative weight.
func Example() {
	pda := pushdown.NewPDA[string, int32](pushdown.NewNamedStates("a", "b", "c"), "X", "Y")
	for _, r := range []struct {
		from, pre, to string
		op            pushdown.Op
		label         string
		w             int32
	}{
		{"a", "X", "b", pushdown.Push, "X", -1},
		{"a", "X", "b", pushdown.Push, "Y", -4},
		{"b", "X", "c", pushdown.Push, "X", -1},
		{"b", "Y", "c", pushdown.Push, "Y", -1},
		{"c", "X", "c", pushdown.Pop, "", -2},
		{"c", "Y", "c", pushdown.Pop, "", -1},
	} {
		if err := pda.AddRule(r.from, r.pre, r.to, r.op, r.label, r.w); err != nil {
			panic(err)
		}
	}

	sr := pushdown.MinWeight[int32]{}
	initial := pushdown.NewPAutomaton[int32](sr, pda.StateCount())
	x, _ := pda.ExistsLabel("X")
	initial.AddEdge(0, initial.AddState(true), x, 0)
	final := pushdown.NewPAutomaton[int32](sr, pda.StateCount(), 2)

	p, err := pushdown.NewProduct(pda, initial, final, nil)
	if err != nil {
		panic(err)
	}
	ok, err := pushdown.Solve(p, pushdown.PostStarEngine, pushdown.Shortest)
	if err != nil || !ok {
		panic(fmt.Sprint("not reachable: ", err))
	}
	trace, w, err := p.Trace(pushdown.Shortest)
	if err != nil {
		panic(err)
	}
	for _, step := range trace {
		fmt.Println(pda.StateName(step.State), pda.FormatStack(step.Stack))
	}
	fmt.Println("weight", pushdown.FormatWeight[int32](sr, w))
	// Output:
	// a [X]
	// b [Y, X]
	// c [Y, Y, X]
	// c [Y, X]
	// c [X]
	// c []
	// weight -9
}

func ExampleParseEngine() {
	for _, name := range []string{"pre", "post-no-eps", "DUAL"} {
		e, err := pushdown.ParseEngine(name)
		fmt.Println(e, err)
	}
	// Output:
	// pre <nil>
	// post-no-eps <nil>
	// dual <nil>
}
