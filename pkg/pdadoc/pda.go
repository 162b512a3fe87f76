package pdadoc

import (
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/gitrdm/gopdaaal/pkg/pushdown"
)

// wildcard is the label key of rules that apply to every label.
const wildcard = "*"

var opKeys = map[string]pushdown.Op{
	"pop":  pushdown.Pop,
	"swap": pushdown.Swap,
	"push": pushdown.Push,
	"noop": pushdown.Noop,
}

// DecodePDA reads a PDA document. Rule weights are read through sr and
// ignored when sr is unweighted.
func DecodePDA[W comparable](r io.Reader, f Format, sr pushdown.NumericSemiring[W]) (*pushdown.PDA[string, W], error) {
	root, err := readNode(r, f)
	if err != nil {
		return nil, err
	}
	body := lookup(root, "pda")
	if err := expect(body, yaml.MappingNode, `"pda"`); err != nil {
		return nil, err
	}
	var labels []string
	if ln := lookup(body, "labels"); ln != nil {
		if err := expect(ln, yaml.SequenceNode, `"labels"`); err != nil {
			return nil, err
		}
		for _, l := range ln.Content {
			labels = append(labels, l.Value)
		}
	}
	states := lookup(body, "states")
	if states == nil {
		return nil, invalid(body, `missing "states"`)
	}

	d := &pdaDecoder[W]{sr: sr}
	switch states.Kind {
	case yaml.MappingNode:
		d.pda = pushdown.NewPDA[string, W](pushdown.NewNamedStates(), labels...)
		for k := range pairs(states) {
			if _, err := d.pda.InsertState(k.Value); err != nil {
				return nil, err
			}
		}
		for k, v := range pairs(states) {
			if err := d.state(k.Value, v); err != nil {
				return nil, err
			}
		}
	case yaml.SequenceNode:
		d.pda = pushdown.NewPDA[string, W](pushdown.NewIndexedStates(len(states.Content)), labels...)
		for i, v := range states.Content {
			if err := d.state(strconv.Itoa(i), v); err != nil {
				return nil, err
			}
		}
	default:
		return nil, invalid(states, `"states" must be a mapping or a list`)
	}
	return d.pda, nil
}

// HasWeights reports whether any rule of a PDA document carries a weight.
func HasWeights(r io.Reader, f Format) (bool, error) {
	root, err := readNode(r, f)
	if err != nil {
		return false, err
	}
	body := lookup(root, "pda")
	if err := expect(body, yaml.MappingNode, `"pda"`); err != nil {
		return false, err
	}
	states := lookup(body, "states")
	if states == nil {
		return false, invalid(body, `missing "states"`)
	}
	var bodies []*yaml.Node
	switch states.Kind {
	case yaml.MappingNode:
		for _, v := range pairs(states) {
			bodies = append(bodies, v)
		}
	case yaml.SequenceNode:
		bodies = states.Content
	default:
		return false, invalid(states, `"states" must be a mapping or a list`)
	}
	for _, b := range bodies {
		if b.Kind != yaml.MappingNode {
			continue
		}
		for _, v := range pairs(b) {
			rules := []*yaml.Node{v}
			if v.Kind == yaml.SequenceNode {
				rules = v.Content
			}
			for _, rn := range rules {
				if lookup(rn, "weight") != nil {
					return true, nil
				}
			}
		}
	}
	return false, nil
}

type pdaDecoder[W comparable] struct {
	pda *pushdown.PDA[string, W]
	sr  pushdown.NumericSemiring[W]
}

func (d *pdaDecoder[W]) state(from string, n *yaml.Node) error {
	if isNull(n) {
		return nil
	}
	if err := expect(n, yaml.MappingNode, fmt.Sprintf("state %q", from)); err != nil {
		return err
	}
	for k, v := range pairs(n) {
		rules := []*yaml.Node{v}
		if v.Kind == yaml.SequenceNode {
			rules = v.Content
		}
		for _, rn := range rules {
			if err := d.rule(from, k.Value, rn); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *pdaDecoder[W]) rule(from, pre string, n *yaml.Node) error {
	if err := expect(n, yaml.MappingNode, fmt.Sprintf("rule of %q on %q", from, pre)); err != nil {
		return err
	}
	var (
		to      *yaml.Node
		op      pushdown.Op
		opLabel string
		haveOp  bool
		weight  = d.sr.Zero()
	)
	for k, v := range pairs(n) {
		if o, ok := opKeys[k.Value]; ok {
			if haveOp {
				return invalid(k, "rule of %q on %q has more than one operation", from, pre)
			}
			op, opLabel, haveOp = o, v.Value, true
			continue
		}
		switch k.Value {
		case "to":
			to = v
		case "weight":
			w, err := int64Of(v)
			if err != nil {
				return err
			}
			weight = d.sr.FromInt64(w)
		default:
			return invalid(k, "unknown rule key %q", k.Value)
		}
	}
	if to == nil || !haveOp {
		return invalid(n, `rule of %q on %q needs "to" and one of pop, swap, push or noop`, from, pre)
	}
	if _, err := d.pda.InsertState(to.Value); err != nil {
		return err
	}
	if pre != wildcard {
		d.pda.InsertLabel(pre)
	}
	if op == pushdown.Swap || op == pushdown.Push {
		d.pda.InsertLabel(opLabel)
	}
	if pre == wildcard {
		return d.pda.AddWildcardRule(from, to.Value, op, opLabel, weight)
	}
	return d.pda.AddRule(from, pre, to.Value, op, opLabel, weight)
}

// EncodePDA writes pda as a document. Wildcard rules are written out per
// label. Weights are written unless sr is unweighted.
func EncodePDA[W comparable](w io.Writer, f Format, pda *pushdown.PDA[string, W], sr pushdown.NumericSemiring[W]) error {
	_, indexed := pda.Naming().(*pushdown.IndexedStates)
	labels := tuple()
	for _, l := range pda.Labels() {
		labels.Content = append(labels.Content, str(l))
	}
	stateRef := func(s int) *yaml.Node {
		if indexed {
			return integer(int64(s))
		}
		return str(pda.StateName(s))
	}

	states := mapping()
	if indexed {
		states = sequence()
	}
	for from := 0; from < pda.StateCount(); from++ {
		body := mapping()
		for pre := range pda.LabelCount() {
			rules := pda.Rules().Rules(from, uint32(pre))
			if len(rules) == 0 {
				continue
			}
			var nodes []*yaml.Node
			for _, r := range rules {
				rn := mapping(str("to"), stateRef(r.To))
				opLabel := ""
				if r.Op == pushdown.Swap || r.Op == pushdown.Push {
					opLabel = pda.Symbol(r.OpLabel)
				}
				rn.Content = append(rn.Content, str(r.Op.String()), str(opLabel))
				if sr.Extremum() != pushdown.NoExtremum {
					rn.Content = append(rn.Content, str("weight"), integer(sr.ToInt64(r.Weight)))
				}
				nodes = append(nodes, rn)
			}
			value := nodes[0]
			if len(nodes) > 1 {
				value = sequence(nodes...)
			}
			body.Content = append(body.Content, str(pda.Symbol(uint32(pre))), value)
		}
		if indexed {
			states.Content = append(states.Content, body)
		} else {
			states.Content = append(states.Content, str(pda.StateName(from)), body)
		}
	}
	root := mapping(str("pda"), mapping(str("labels"), labels, str("states"), states))
	return writeNode(w, root, f)
}
