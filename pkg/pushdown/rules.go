package pushdown

import (
	"fmt"
	"iter"
)

// Op is the stack operation of a rule.
type Op uint8

const (
	// Pop removes the top of stack.
	Pop Op = iota
	// Swap replaces the top of stack with the rule's OpLabel.
	Swap
	// Push puts the rule's OpLabel on top of the current top.
	Push
	// Noop leaves the top of stack unchanged. It behaves as Swap(Pre) but
	// carries no OpLabel.
	Noop
)

func (o Op) String() string {
	switch o {
	case Pop:
		return "pop"
	case Swap:
		return "swap"
	case Push:
		return "push"
	case Noop:
		return "noop"
	}
	return fmt.Sprintf("Op(%d)", o)
}

// Rule is a fully expanded pushdown rule (From, Pre) → (To, Op).
type Rule[W any] struct {
	From    int
	Pre     uint32
	To      int
	Op      Op
	OpLabel uint32
	Weight  W
}

// Top returns the top of stack after applying the rule, or false for Pop.
func (r Rule[W]) Top() (uint32, bool) {
	switch r.Op {
	case Swap, Push:
		return r.OpLabel, true
	case Noop:
		return r.Pre, true
	}
	return 0, false
}

// Apply rewrites stack (bottom-first, top last) with the rule. It reports
// false when the top of stack does not match Pre.
func (r Rule[W]) Apply(stack []uint32) ([]uint32, bool) {
	if len(stack) == 0 || stack[len(stack)-1] != r.Pre {
		return nil, false
	}
	out := make([]uint32, 0, len(stack)+1)
	out = append(out, stack[:len(stack)-1]...)
	switch r.Op {
	case Swap:
		out = append(out, r.OpLabel)
	case Noop:
		out = append(out, r.Pre)
	case Push:
		out = append(out, r.Pre, r.OpLabel)
	}
	return out, true
}

func (r Rule[W]) String() string {
	switch r.Op {
	case Pop, Noop:
		return fmt.Sprintf("<%d, %d> -> <%d, %s> [%v]", r.From, r.Pre, r.To, r.Op, r.Weight)
	}
	return fmt.Sprintf("<%d, %d> -> <%d, %s %d> [%v]", r.From, r.Pre, r.To, r.Op, r.OpLabel, r.Weight)
}

// ruleBody is one stored rule together with the set of pre labels it
// applies to.
type ruleBody[W comparable] struct {
	to      int
	op      Op
	opLabel uint32
	weight  W
	pre     LabelSet
}

func (b ruleBody[W]) sameEffect(o ruleBody[W]) bool {
	return b.to == o.to && b.op == o.op && b.opLabel == o.opLabel && b.weight == o.weight
}

// RuleStore is the integer-level transition relation of a pushdown system.
//
// Rules are stored per source state. Rules with the same effect and
// explicit pre labels share one entry; wildcard and complement pre-label
// sets are kept compact and expanded lazily.
type RuleStore[W comparable] struct {
	states [][]ruleBody[W]
	labels int
}

// NewRuleStore creates a store with the given number of states and labels.
func NewRuleStore[W comparable](states, labels int) *RuleStore[W] {
	return &RuleStore[W]{states: make([][]ruleBody[W], states), labels: labels}
}

// StateCount returns the number of control states.
func (s *RuleStore[W]) StateCount() int { return len(s.states) }

// LabelCount returns the alphabet size.
func (s *RuleStore[W]) LabelCount() int { return s.labels }

// AddState appends a control state and returns its id.
func (s *RuleStore[W]) AddState() int {
	s.states = append(s.states, nil)
	return len(s.states) - 1
}

func (s *RuleStore[W]) ensureStates(n int) {
	for len(s.states) < n {
		s.states = append(s.states, nil)
	}
}

func (s *RuleStore[W]) setLabelCount(n int) {
	if n > s.labels {
		s.labels = n
	}
}

func (s *RuleStore[W]) checkState(id int) error {
	if id < 0 || id >= len(s.states) {
		return fmt.Errorf("%w: state %d (have %d)", ErrUnknownState, id, len(s.states))
	}
	return nil
}

func (s *RuleStore[W]) checkLabel(id uint32) error {
	if id == Epsilon || int(id) >= s.labels {
		return fmt.Errorf("%w: label %d (have %d)", ErrUnknownLabel, id, s.labels)
	}
	return nil
}

func (s *RuleStore[W]) checkRule(from, to int, op Op, opLabel uint32) error {
	if err := s.checkState(from); err != nil {
		return err
	}
	if err := s.checkState(to); err != nil {
		return err
	}
	if op == Swap || op == Push {
		return s.checkLabel(opLabel)
	}
	return nil
}

// AddRule adds (from, pre) → (to, op opLabel) with the given weight.
// opLabel is ignored for Pop and Noop.
func (s *RuleStore[W]) AddRule(from int, pre uint32, to int, op Op, opLabel uint32, weight W) error {
	if err := s.checkRule(from, to, op, opLabel); err != nil {
		return err
	}
	if err := s.checkLabel(pre); err != nil {
		return err
	}
	s.add(from, ruleBody[W]{to: to, op: op, opLabel: normalizeOpLabel(op, opLabel), weight: weight, pre: LabelsOf(pre)})
	return nil
}

// AddWildcardRule adds the rule for every symbol as pre label, including
// symbols inserted after this call.
func (s *RuleStore[W]) AddWildcardRule(from, to int, op Op, opLabel uint32, weight W) error {
	return s.AddRules(from, to, op, opLabel, AllLabels(), weight)
}

// AddRules adds the rule for every pre label in pre.
func (s *RuleStore[W]) AddRules(from, to int, op Op, opLabel uint32, pre LabelSet, weight W) error {
	if err := s.checkRule(from, to, op, opLabel); err != nil {
		return err
	}
	if pre.kind != allLabels {
		for _, id := range pre.ids {
			if err := s.checkLabel(id); err != nil {
				return err
			}
		}
	}
	s.add(from, ruleBody[W]{to: to, op: op, opLabel: normalizeOpLabel(op, opLabel), weight: weight, pre: pre})
	return nil
}

func normalizeOpLabel(op Op, label uint32) uint32 {
	if op == Pop || op == Noop {
		return Epsilon
	}
	return label
}

func (s *RuleStore[W]) add(from int, body ruleBody[W]) {
	bodies := s.states[from]
	if body.pre.kind == explicitLabels {
		for i := range bodies {
			if bodies[i].pre.kind == explicitLabels && bodies[i].sameEffect(body) {
				bodies[i].pre = bodies[i].pre.union(body.pre)
				return
			}
		}
	}
	s.states[from] = append(bodies, body)
}

// AllRules yields every rule with pre-label sets expanded against the
// alphabet size at the time of the call. The sequence can be iterated
// any number of times.
func (s *RuleStore[W]) AllRules() iter.Seq[Rule[W]] {
	return func(yield func(Rule[W]) bool) {
		labels := s.labels
		for from, bodies := range s.states {
			for _, b := range bodies {
				for pre := range b.pre.Expand(labels) {
					if !yield(b.rule(from, pre)) {
						return
					}
				}
			}
		}
	}
}

// Rules returns the rules of (from, pre).
func (s *RuleStore[W]) Rules(from int, pre uint32) []Rule[W] {
	if from < 0 || from >= len(s.states) {
		return nil
	}
	var out []Rule[W]
	for _, b := range s.states[from] {
		if int(pre) < s.labels && b.pre.Contains(pre) {
			out = append(out, b.rule(from, pre))
		}
	}
	return out
}

// RuleCount returns the number of expanded rules.
func (s *RuleStore[W]) RuleCount() int {
	n := 0
	for _, bodies := range s.states {
		for _, b := range bodies {
			n += b.pre.Count(s.labels)
		}
	}
	return n
}

func (b ruleBody[W]) rule(from int, pre uint32) Rule[W] {
	return Rule[W]{From: from, Pre: pre, To: b.to, Op: b.op, OpLabel: b.opLabel, Weight: b.weight}
}

type stateLabel struct {
	state int
	label uint32
}

// ruleIndex is the expanded, read-only view of a RuleStore used during one
// saturation.
type ruleIndex[W comparable] struct {
	rules []Rule[W]
	// byPre[(from, pre)]: rules applicable to a top of stack.
	byPre map[stateLabel][]int32
	// swapInto[(to, top)]: Swap and Noop rules whose result top is top.
	swapInto map[stateLabel][]int32
	// pushInto[(to, top)]: Push rules pushing top.
	pushInto map[stateLabel][]int32
	pops     []int32
	// pushTargets lists the distinct (to, pushed label) pairs in order.
	pushTargets []stateLabel
}

func newRuleIndex[W comparable](s *RuleStore[W]) *ruleIndex[W] {
	idx := &ruleIndex[W]{
		byPre:    make(map[stateLabel][]int32),
		swapInto: make(map[stateLabel][]int32),
		pushInto: make(map[stateLabel][]int32),
	}
	seen := make(map[stateLabel]bool)
	for r := range s.AllRules() {
		id := int32(len(idx.rules))
		idx.rules = append(idx.rules, r)
		key := stateLabel{r.From, r.Pre}
		idx.byPre[key] = append(idx.byPre[key], id)
		switch r.Op {
		case Pop:
			idx.pops = append(idx.pops, id)
		case Swap, Noop:
			top, _ := r.Top()
			k := stateLabel{r.To, top}
			idx.swapInto[k] = append(idx.swapInto[k], id)
		case Push:
			k := stateLabel{r.To, r.OpLabel}
			idx.pushInto[k] = append(idx.pushInto[k], id)
			if !seen[k] {
				seen[k] = true
				idx.pushTargets = append(idx.pushTargets, k)
			}
		}
	}
	return idx
}
