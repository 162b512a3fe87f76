package pushdown

import "slices"

// TraceStep is one configuration of a witness trace.
type TraceStep[W any] struct {
	State int
	// Stack is bottom-first, top last.
	Stack []uint32
	// Rule is the rule applied to reach this step; nil on the first step.
	Rule *Rule[W]
}

// GetTrace reconstructs a witness trace for the last solve of p: a
// sequence of configurations from one accepted by the initial automaton to
// one accepted by the final automaton, each step applying one rule.
//
// The returned weight is the FindPath weight for tt. When it is Bottom no
// finite witness is optimal and the trace is empty.
func GetTrace[L comparable, W comparable](p *Product[L, W], tt TraceType) ([]TraceStep[W], W, error) {
	path, w, err := p.FindPath(tt)
	if err != nil {
		return nil, w, err
	}
	if p.sr.IsBottom(w) && p.sr.Extremum() != NoExtremum && tt.Weighted() {
		return nil, w, nil
	}
	var records []record[W]
	if p.saturated != nil {
		records = p.saturated.records
	}
	switch p.mode {
	case solvedPreStar:
		return forwardTrace(records, path.State, path.records), w, nil
	case solvedDual:
		head := backwardTrace(records, path.State, path.records, noRecord)
		tail := forwardTrace(p.dualSearch.pre.aut.records, path.State, path.preRecords)
		return append(head, tail[1:]...), w, nil
	}
	return backwardTrace(records, path.State, path.records, path.accept), w, nil
}

// Trace is GetTrace for p.
func (p *Product[L, W]) Trace(tt TraceType) ([]TraceStep[W], W, error) {
	return GetTrace(p, tt)
}

func stackOf[W any](records []record[W], path []int32) []uint32 {
	stack := make([]uint32, 0, len(path))
	for i := len(path) - 1; i >= 0; i-- {
		if l := records[path[i]].label; l != Epsilon {
			stack = append(stack, l)
		}
	}
	return stack
}

// prepend returns head followed by rest in a fresh slice.
func prepend(rest []int32, head ...int32) []int32 {
	out := make([]int32, 0, len(head)+len(rest))
	out = append(out, head...)
	return append(out, rest...)
}

// forwardTrace replays a pre* derivation from the configuration read by
// path. Every derived edge of pre* leaves a control state, so the replay
// ends when the top edge is an input edge.
func forwardTrace[W any](records []record[W], state int, path []int32) []TraceStep[W] {
	steps := []TraceStep[W]{{State: state, Stack: stackOf(records, path)}}
	for len(path) > 0 {
		r := &records[path[0]]
		switch r.kind {
		case fromInput:
			return steps
		case byPop:
			path = path[1:]
		case bySwap:
			path = prepend(path[1:], r.ante[0])
		case byPush:
			path = prepend(path[1:], r.ante[0], r.ante[1])
		default:
			panic("pushdown: unexpected " + r.kind.String() + " record in pre* derivation")
		}
		rule := r.rule
		state = rule.To
		steps = append(steps, TraceStep[W]{State: state, Stack: stackOf(records, path), Rule: &rule})
	}
	return steps
}

// backwardTrace unwinds a post* derivation from the configuration read by
// path (and accepted through accept, if set) back to an initial
// configuration.
func backwardTrace[W any](records []record[W], state int, path []int32, accept int32) []TraceStep[W] {
	if accept != noRecord && len(path) == 0 {
		path = []int32{accept}
	}
	steps := []TraceStep[W]{{State: state, Stack: stackOf(records, path)}}
	for len(path) > 0 {
		r := &records[path[0]]
		var rule Rule[W]
		switch r.kind {
		case fromInput:
			slices.Reverse(steps)
			return steps
		case epsClosure:
			path = prepend(path[1:], r.ante[0], r.ante[1])
			continue
		case acceptByEps:
			path = prepend(path[1:], r.ante[0])
			continue
		case byPop, bySwap:
			rule = r.rule
			path = prepend(path[1:], r.ante[0])
		case pushHead:
			if len(path) < 2 {
				panic("pushdown: push head without continuation in post* derivation")
			}
			lower := &records[path[1]]
			rule = lower.rule
			path = prepend(path[2:], lower.ante[0])
		default:
			panic("pushdown: unexpected " + r.kind.String() + " record at the top of a post* derivation")
		}
		steps[len(steps)-1].Rule = &rule
		state = rule.From
		steps = append(steps, TraceStep[W]{State: state, Stack: stackOf(records, path)})
	}
	slices.Reverse(steps)
	return steps
}
