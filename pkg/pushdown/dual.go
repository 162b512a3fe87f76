package pushdown

import "slices"

// contactTracker maintains the reachable part of the product of two
// automata that are still growing: a, saturated backwards from the final
// configurations, and b, saturated forwards from the initial ones. A node
// that accepts on both sides is a configuration reachable from the initial
// set that can reach the final set.
type contactTracker[W comparable] struct {
	a, b    *PAutomaton[W]
	nodes   []productNode
	index   map[productNode]int32
	parents []contactArc
	byA     map[int][]int32
	byB     map[int][]int32
	pending []int32
	contact int32
}

// contactArc is how a node was first reached. aEdge is -1 for ε-moves of b.
type contactArc struct {
	from  int32
	aEdge int32
	bEdge int32
}

func newContactTracker[W comparable](a, b *PAutomaton[W]) *contactTracker[W] {
	ct := &contactTracker[W]{
		a: a, b: b,
		index:   make(map[productNode]int32),
		byA:     make(map[int][]int32),
		byB:     make(map[int][]int32),
		contact: -1,
	}
	for c := 0; c < a.pdaStates; c++ {
		ct.visit(productNode{c, c}, contactArc{from: -1, aEdge: -1, bEdge: -1})
	}
	ct.drain()
	return ct
}

// found reports whether a contact node has been reached.
func (ct *contactTracker[W]) found() bool { return ct.contact >= 0 }

func (ct *contactTracker[W]) visit(n productNode, via contactArc) {
	if _, ok := ct.index[n]; ok {
		return
	}
	id := int32(len(ct.nodes))
	ct.nodes = append(ct.nodes, n)
	ct.index[n] = id
	ct.parents = append(ct.parents, via)
	ct.byA[n.s] = append(ct.byA[n.s], id)
	ct.byB[n.t] = append(ct.byB[n.t], id)
	if ct.contact < 0 && ct.a.Accepting(n.s) && ct.b.Accepting(n.t) {
		ct.contact = id
	}
	ct.pending = append(ct.pending, id)
}

// drain explores the successors of newly visited nodes.
func (ct *contactTracker[W]) drain() {
	for len(ct.pending) > 0 {
		id := ct.pending[len(ct.pending)-1]
		ct.pending = ct.pending[:len(ct.pending)-1]
		n := ct.nodes[id]
		for _, bid := range ct.b.out[n.t] {
			be := ct.b.edges[bid]
			if be.label == Epsilon {
				ct.visit(productNode{n.s, be.to}, contactArc{from: id, aEdge: -1, bEdge: bid})
				continue
			}
			for _, aid := range ct.a.byLabel[stateLabel{n.s, be.label}] {
				ct.visit(productNode{ct.a.edges[aid].to, be.to}, contactArc{from: id, aEdge: aid, bEdge: bid})
			}
		}
	}
}

// onA extends the product with a new edge of a.
func (ct *contactTracker[W]) onA(aid int32) {
	e := ct.a.edges[aid]
	for _, id := range ct.byA[e.from] {
		n := ct.nodes[id]
		for _, bid := range ct.b.byLabel[stateLabel{n.t, e.label}] {
			ct.visit(productNode{e.to, ct.b.edges[bid].to}, contactArc{from: id, aEdge: aid, bEdge: bid})
		}
	}
	ct.drain()
}

// onB extends the product with a new edge of b.
func (ct *contactTracker[W]) onB(bid int32) {
	e := ct.b.edges[bid]
	for _, id := range ct.byB[e.from] {
		n := ct.nodes[id]
		if e.label == Epsilon {
			ct.visit(productNode{n.s, e.to}, contactArc{from: id, aEdge: -1, bEdge: bid})
			continue
		}
		for _, aid := range ct.a.byLabel[stateLabel{n.s, e.label}] {
			ct.visit(productNode{ct.a.edges[aid].to, e.to}, contactArc{from: id, aEdge: aid, bEdge: bid})
		}
	}
	ct.drain()
}

// witness returns the path to the contact node.
func (ct *contactTracker[W]) witness() Path {
	var arcs []contactArc
	id := ct.contact
	for ct.parents[id].from >= 0 {
		arcs = append(arcs, ct.parents[id])
		id = ct.parents[id].from
	}
	slices.Reverse(arcs)
	p := Path{State: ct.nodes[id].s, accept: noRecord}
	for _, arc := range arcs {
		be := ct.b.edges[arc.bEdge]
		p.records = append(p.records, be.record)
		if arc.aEdge < 0 {
			continue
		}
		p.preRecords = append(p.preRecords, ct.a.edges[arc.aEdge].record)
		p.Stack = append(p.Stack, be.label)
	}
	slices.Reverse(p.Stack)
	return p
}

func (ct *contactTracker[W]) automaton(sr Semiring[W]) *PAutomaton[W] {
	out := NewPAutomaton(sr, ct.a.pdaStates)
	ids := make([]int, len(ct.nodes))
	for i, n := range ct.nodes {
		acc := ct.a.Accepting(n.s) && ct.b.Accepting(n.t)
		if i < ct.a.pdaStates {
			ids[i] = i
			out.SetAccepting(i, acc)
			continue
		}
		ids[i] = out.AddState(acc)
	}
	for i, arc := range ct.parents {
		if arc.from < 0 {
			continue
		}
		label := Epsilon
		if arc.aEdge >= 0 {
			label = ct.a.edges[arc.aEdge].label
		}
		out.AddEdge(ids[arc.from], ids[i], label, sr.Zero())
	}
	return out
}

// dualState runs pre* from the final automaton and post* from the initial
// automaton in lock-step until their languages meet.
type dualState[W comparable] struct {
	pre     *preStar[W]
	post    *postStar[W]
	tracker *contactTracker[W]
}

func newDualState[W comparable](final, initial *PAutomaton[W], rules *ruleIndex[W], labels int, cfg *Config) *dualState[W] {
	d := &dualState[W]{
		pre:  newPreStar(final, rules, labels, false, cfg),
		post: newPostStar(initial, rules, labels, false, true, cfg),
	}
	d.tracker = newContactTracker(final, initial)
	d.pre.onEdge = d.tracker.onA
	d.post.onEdge = d.tracker.onB
	return d
}

// run reports whether the two sides make contact. It stops as soon as they
// do, or when either side reaches its fixed point without contact.
func (d *dualState[W]) run() (bool, error) {
	if d.tracker.found() {
		return true, nil
	}
	d.pre.initialize()
	d.post.initialize()
	d.pre.enter(phaseSaturate)
	d.post.enter(phaseSaturate)
	for !d.tracker.found() {
		more, err := d.pre.next()
		if err != nil {
			return false, err
		}
		if !more {
			break
		}
		if d.tracker.found() {
			break
		}
		more, err = d.post.next()
		if err != nil {
			return false, err
		}
		if !more {
			break
		}
	}
	return d.tracker.found(), nil
}

func (d *dualState[W]) path() (Path, W, error) {
	var zero W
	if !d.tracker.found() {
		return Path{}, zero, ErrNoTrace
	}
	return d.tracker.witness(), d.pre.sr.Zero(), nil
}
