package pdadoc

import (
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/gitrdm/gopdaaal/pkg/pushdown"
)

const (
	bottomWeight = "bottom"
	// epsilonKey is the edge key of ε-edges.
	epsilonKey = "ε"
)

// DecodeAutomaton reads a P-automaton document over the states and labels
// of pda. A missing or null edge weight reads as zero and "bottom" as
// sr.Bottom().
func DecodeAutomaton[W comparable](r io.Reader, f Format, pda *pushdown.PDA[string, W], sr pushdown.NumericSemiring[W]) (*pushdown.PAutomaton[W], error) {
	root, err := readNode(r, f)
	if err != nil {
		return nil, err
	}
	body := lookup(root, "P-automaton")
	if err := expect(body, yaml.MappingNode, `"P-automaton"`); err != nil {
		return nil, err
	}
	d := &automatonDecoder[W]{pda: pda, sr: sr, a: pushdown.NewPAutomaton[W](sr, pda.StateCount())}
	states := lookup(body, "states")
	if states == nil || isNull(states) {
		return d.a, nil
	}
	switch states.Kind {
	case yaml.MappingNode:
		d.names = make(map[string]int)
		for k := range pairs(states) {
			d.named(k.Value)
		}
		for k, v := range pairs(states) {
			if err := d.state(d.names[k.Value], k.Value, v); err != nil {
				return nil, err
			}
		}
	case yaml.SequenceNode:
		d.grow(len(states.Content) - 1)
		for i, v := range states.Content {
			if err := d.state(i, strconv.Itoa(i), v); err != nil {
				return nil, err
			}
		}
	default:
		return nil, invalid(states, `"states" must be a mapping or a list`)
	}
	return d.a, nil
}

type automatonDecoder[W comparable] struct {
	pda *pushdown.PDA[string, W]
	sr  pushdown.NumericSemiring[W]
	a   *pushdown.PAutomaton[W]
	// names maps state keys to ids; nil for indexed documents.
	names map[string]int
}

// grow adds states until id exists.
func (d *automatonDecoder[W]) grow(id int) {
	for d.a.StateCount() <= id {
		d.a.AddState(false)
	}
}

// named resolves a state name: a control state of the PDA, or an extra
// state allocated on first use.
func (d *automatonDecoder[W]) named(name string) int {
	if id, ok := d.names[name]; ok {
		return id
	}
	id, ok := d.pda.ExistsState(name)
	if !ok {
		id = d.a.AddState(false)
	}
	d.names[name] = id
	return id
}

// target resolves the "to" of an edge.
func (d *automatonDecoder[W]) target(n *yaml.Node) (int, error) {
	if n.Kind != yaml.ScalarNode || isNull(n) {
		return 0, invalid(n, `edge "to" must be a state`)
	}
	if d.names != nil {
		return d.named(n.Value), nil
	}
	id, err := int64Of(n)
	if err != nil {
		return 0, err
	}
	if id < 0 || id > 1<<24 {
		return 0, invalid(n, "state index %d out of range", id)
	}
	d.grow(int(id))
	return int(id), nil
}

func (d *automatonDecoder[W]) state(id int, name string, n *yaml.Node) error {
	if isNull(n) {
		return nil
	}
	if err := expect(n, yaml.MappingNode, fmt.Sprintf("automaton state %q", name)); err != nil {
		return err
	}
	for k, v := range pairs(n) {
		switch k.Value {
		case "accepting":
			b, err := boolOf(v)
			if err != nil {
				return err
			}
			d.a.SetAccepting(id, b)
		case "initial":
			// Marks control states; the PDA already says which they are.
			if _, err := boolOf(v); err != nil {
				return err
			}
		case "edges":
			if isNull(v) {
				continue
			}
			if err := expect(v, yaml.SequenceNode, fmt.Sprintf("edges of %q", name)); err != nil {
				return err
			}
			for _, e := range v.Content {
				if err := d.edge(id, name, e); err != nil {
					return err
				}
			}
		default:
			return invalid(k, "unknown key %q in automaton state %q", k.Value, name)
		}
	}
	return nil
}

// edge reads {"to": state, label: weight, ...}. Every label key adds one
// edge to the same target.
func (d *automatonDecoder[W]) edge(from int, name string, n *yaml.Node) error {
	if err := expect(n, yaml.MappingNode, fmt.Sprintf("edge of %q", name)); err != nil {
		return err
	}
	toNode := lookup(n, "to")
	if toNode == nil {
		return invalid(n, `edge of %q needs "to"`, name)
	}
	to, err := d.target(toNode)
	if err != nil {
		return err
	}
	labels := 0
	for k, v := range pairs(n) {
		if k.Value == "to" {
			continue
		}
		label := pushdown.Epsilon
		if k.Value != epsilonKey {
			id, ok := d.pda.ExistsLabel(k.Value)
			if !ok {
				return invalid(k, "unknown label %q", k.Value)
			}
			label = id
		}
		weight, err := d.weight(v)
		if err != nil {
			return err
		}
		d.a.AddEdge(from, to, label, weight)
		labels++
	}
	if labels == 0 {
		return invalid(n, "edge of %q has no label", name)
	}
	return nil
}

func (d *automatonDecoder[W]) weight(n *yaml.Node) (W, error) {
	switch {
	case isNull(n):
		return d.sr.Zero(), nil
	case n.Kind == yaml.ScalarNode && n.Value == bottomWeight && !isInt(n):
		return d.sr.Bottom(), nil
	}
	v, err := int64Of(n)
	if err != nil {
		var zero W
		return zero, err
	}
	return d.sr.FromInt64(v), nil
}

// EncodeAutomaton writes a as a document. Automata over a PDA with named
// states are written as a mapping keyed by state name, where extra states
// get fresh names; otherwise states are written as a list. Every state is
// written, so decoding yields the same state ids.
func EncodeAutomaton[W comparable](w io.Writer, f Format, pda *pushdown.PDA[string, W], a *pushdown.PAutomaton[W], sr pushdown.NumericSemiring[W]) error {
	_, indexed := pda.Naming().(*pushdown.IndexedStates)
	names := stateKeys(pda, a)
	ref := func(s int) *yaml.Node {
		if indexed {
			return integer(int64(s))
		}
		return str(names[s])
	}
	weighted := sr.Extremum() != pushdown.NoExtremum

	states := mapping()
	if indexed {
		states = sequence()
	}
	for s := 0; s < a.StateCount(); s++ {
		edges := sequence()
		for _, e := range a.Edges(s) {
			label := epsilonKey
			if e.Label != pushdown.Epsilon {
				label = pda.Symbol(e.Label)
			}
			weight := null()
			if weighted {
				weight = weightNode(sr, e.Weight)
			}
			edge := mapping(str("to"), ref(e.To), str(label), weight)
			edge.Style = yaml.FlowStyle
			edges.Content = append(edges.Content, edge)
		}
		body := mapping(str("edges"), edges, str("accepting"), boolean(a.Accepting(s)))
		if indexed {
			states.Content = append(states.Content, body)
		} else {
			states.Content = append(states.Content, str(names[s]), body)
		}
	}
	root := mapping(str("P-automaton"), mapping(str("states"), states))
	return writeNode(w, root, f)
}

// stateKeys names every automaton state: control states by their PDA name
// and extra states by their id, prefixed with "_" until the name is unused.
func stateKeys[W comparable](pda *pushdown.PDA[string, W], a *pushdown.PAutomaton[W]) []string {
	names := make([]string, a.StateCount())
	used := make(map[string]bool, len(names))
	for s := 0; s < a.PDAStates(); s++ {
		names[s] = pda.StateName(s)
		used[names[s]] = true
	}
	for s := a.PDAStates(); s < len(names); s++ {
		name := strconv.Itoa(s)
		for used[name] {
			name = "_" + name
		}
		names[s] = name
		used[name] = true
	}
	return names
}

func weightNode[W any](sr pushdown.NumericSemiring[W], w W) *yaml.Node {
	if sr.IsBottom(w) {
		return str(bottomWeight)
	}
	return integer(sr.ToInt64(w))
}
