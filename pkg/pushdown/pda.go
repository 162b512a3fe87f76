package pushdown

import (
	"fmt"
	"iter"
	"strings"
)

// PDA is a pushdown system over typed stack symbols L with rule weights W.
//
// Symbols are interned to dense uint32 ids and control states are named
// through a StateNaming; the saturation engine only sees the underlying
// RuleStore.
type PDA[L comparable, W comparable] struct {
	labels *Interner[L]
	states StateNaming
	store  *RuleStore[W]
}

// NewPDA creates a PDA with the given state naming and initial alphabet.
// A nil naming selects NamedStates.
func NewPDA[L comparable, W comparable](states StateNaming, labels ...L) *PDA[L, W] {
	if states == nil {
		states = NewNamedStates()
	}
	in := NewInterner(labels...)
	return &PDA[L, W]{
		labels: in,
		states: states,
		store:  NewRuleStore[W](states.Size(), in.Size()),
	}
}

// Rules returns the integer-level rule store.
func (p *PDA[L, W]) Rules() *RuleStore[W] { return p.store }

// InsertLabel returns the id of label, adding it to the alphabet if new.
func (p *PDA[L, W]) InsertLabel(label L) uint32 {
	id := p.labels.Insert(label)
	p.store.setLabelCount(p.labels.Size())
	return id
}

// ExistsLabel reports the id of label.
func (p *PDA[L, W]) ExistsLabel(label L) (uint32, bool) { return p.labels.Exists(label) }

// Symbol returns the label of id.
func (p *PDA[L, W]) Symbol(id uint32) L { return p.labels.Lookup(id) }

// Labels returns the alphabet in id order.
func (p *PDA[L, W]) Labels() []L { return p.labels.Values() }

// LabelCount returns the alphabet size.
func (p *PDA[L, W]) LabelCount() int { return p.labels.Size() }

// InsertState returns the id of the named state, creating it if needed.
func (p *PDA[L, W]) InsertState(name string) (int, error) {
	id, err := p.states.Insert(name)
	if err != nil {
		return 0, err
	}
	p.store.ensureStates(p.states.Size())
	return id, nil
}

// ExistsState reports the id of the named state.
func (p *PDA[L, W]) ExistsState(name string) (int, bool) { return p.states.Exists(name) }

// StateName returns the name of state id.
func (p *PDA[L, W]) StateName(id int) string { return p.states.Name(id) }

// StateCount returns the number of control states.
func (p *PDA[L, W]) StateCount() int { return p.store.StateCount() }

// Naming returns the state naming of the PDA.
func (p *PDA[L, W]) Naming() StateNaming { return p.states }

func (p *PDA[L, W]) stateID(name string) (int, error) {
	id, ok := p.states.Exists(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownState, name)
	}
	return id, nil
}

func (p *PDA[L, W]) labelID(label L) (uint32, error) {
	id, ok := p.labels.Exists(label)
	if !ok {
		return 0, fmt.Errorf("%w: %v", ErrUnknownLabel, label)
	}
	return id, nil
}

func (p *PDA[L, W]) opLabelID(op Op, label L) (uint32, error) {
	if op == Pop || op == Noop {
		return Epsilon, nil
	}
	return p.labelID(label)
}

// AddRule adds (from, pre) → (to, op opLabel). opLabel is ignored for Pop
// and Noop. All states and labels must already exist.
func (p *PDA[L, W]) AddRule(from string, pre L, to string, op Op, opLabel L, weight W) error {
	f, t, lid, err := p.resolve(from, to, op, opLabel)
	if err != nil {
		return err
	}
	pid, err := p.labelID(pre)
	if err != nil {
		return err
	}
	return p.store.AddRule(f, pid, t, op, lid, weight)
}

// AddWildcardRule adds the rule for every symbol of the alphabet as pre
// label. The expansion is lazy and also covers symbols inserted later.
func (p *PDA[L, W]) AddWildcardRule(from, to string, op Op, opLabel L, weight W) error {
	f, t, lid, err := p.resolve(from, to, op, opLabel)
	if err != nil {
		return err
	}
	return p.store.AddWildcardRule(f, t, op, lid, weight)
}

// AddRules adds one rule per op label in opLabels for every pre label in
// pre. When negatedOps is set, opLabels lists the op labels to exclude.
// Op labels are expanded eagerly against the current alphabet; pre labels
// stay compact.
func (p *PDA[L, W]) AddRules(from, to string, op Op, negatedOps bool, opLabels []L, negatedPre bool, pre []L, weight W) error {
	f, err := p.stateID(from)
	if err != nil {
		return err
	}
	t, err := p.stateID(to)
	if err != nil {
		return err
	}
	preIDs, err := p.encode(pre)
	if err != nil {
		return err
	}
	preSet := LabelsOf(preIDs...)
	if negatedPre {
		preSet = LabelsExcept(preIDs...)
	}
	if op == Pop || op == Noop {
		return p.store.AddRules(f, t, op, Epsilon, preSet, weight)
	}
	opIDs, err := p.encode(opLabels)
	if err != nil {
		return err
	}
	opSet := LabelsOf(opIDs...)
	if negatedOps {
		opSet = LabelsExcept(opIDs...)
	}
	for lid := range opSet.Expand(p.LabelCount()) {
		if err := p.store.AddRules(f, t, op, lid, preSet, weight); err != nil {
			return err
		}
	}
	return nil
}

func (p *PDA[L, W]) encode(labels []L) ([]uint32, error) {
	ids := make([]uint32, len(labels))
	for i, l := range labels {
		id, err := p.labelID(l)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

func (p *PDA[L, W]) resolve(from, to string, op Op, opLabel L) (int, int, uint32, error) {
	f, err := p.stateID(from)
	if err != nil {
		return 0, 0, 0, err
	}
	t, err := p.stateID(to)
	if err != nil {
		return 0, 0, 0, err
	}
	lid, err := p.opLabelID(op, opLabel)
	if err != nil {
		return 0, 0, 0, err
	}
	return f, t, lid, nil
}

// AllRules yields every expanded rule.
func (p *PDA[L, W]) AllRules() iter.Seq[Rule[W]] { return p.store.AllRules() }

// FormatRule renders r with state names and symbols.
func (p *PDA[L, W]) FormatRule(r Rule[W]) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<%s, %v> -> <%s", p.StateName(r.From), p.Symbol(r.Pre), p.StateName(r.To))
	switch r.Op {
	case Swap:
		fmt.Fprintf(&sb, ", %v", p.Symbol(r.OpLabel))
	case Noop:
		fmt.Fprintf(&sb, ", %v", p.Symbol(r.Pre))
	case Push:
		fmt.Fprintf(&sb, ", %v %v", p.Symbol(r.OpLabel), p.Symbol(r.Pre))
	}
	sb.WriteString(">")
	return sb.String()
}

// FormatStack renders a bottom-first stack top-first, the way
// configurations are usually written.
func (p *PDA[L, W]) FormatStack(stack []uint32) string {
	parts := make([]string, len(stack))
	for i := range stack {
		parts[i] = fmt.Sprint(p.Symbol(stack[len(stack)-1-i]))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
