package pushdown

import (
	"fmt"
	"slices"

	"github.com/emirpasic/gods/queues/priorityqueue"
)

// Path is a witness found in a solved product: an accepted configuration
// together with the derivation records of the saturated edges that read
// its stack.
type Path struct {
	// State is the control state of the configuration.
	State int
	// Stack is bottom-first, top last.
	Stack []uint32

	records []int32 // saturated side, top-first, ε-records included
	accept  int32   // derived acceptance record, or noRecord
	// pre* side records of a dual search witness.
	preRecords []int32
}

type productNode struct{ s, t int }

type productArc[W any] struct {
	to     int32
	weight W
	label  uint32 // Epsilon for moves of the saturated side alone
	edge   int32  // edge id in the saturated automaton
}

type productAccept[W any] struct {
	ok     bool
	weight W
	record int32
}

// productGraph is the reachable part of the product of a saturated
// automaton S with a static automaton T, rooted at (c, c) for every control
// state c. ε-edges of S move the S side only.
type productGraph[W comparable] struct {
	s, t   *PAutomaton[W]
	sr     Semiring[W]
	nodes  []productNode
	index  map[productNode]int32
	arcs   [][]productArc[W]
	accept []productAccept[W]
}

func buildProductGraph[W comparable](s, t *PAutomaton[W]) *productGraph[W] {
	g := &productGraph[W]{s: s, t: t, sr: s.sr, index: make(map[productNode]int32)}
	for c := 0; c < s.pdaStates; c++ {
		g.node(productNode{c, c})
	}
	for i := 0; i < len(g.nodes); i++ {
		n := g.nodes[i]
		for _, id := range s.out[n.s] {
			e := s.edges[id]
			if e.label == Epsilon {
				to := g.node(productNode{e.to, n.t})
				g.arcs[i] = append(g.arcs[i], productArc[W]{to: to, weight: e.weight, label: Epsilon, edge: id})
				continue
			}
			for _, tid := range t.byLabel[stateLabel{n.t, e.label}] {
				te := t.edges[tid]
				to := g.node(productNode{e.to, te.to})
				g.arcs[i] = append(g.arcs[i], productArc[W]{to: to, weight: g.sr.Combine(e.weight, te.weight), label: e.label, edge: id})
			}
		}
	}
	return g
}

func (g *productGraph[W]) node(n productNode) int32 {
	if id, ok := g.index[n]; ok {
		return id
	}
	id := int32(len(g.nodes))
	g.nodes = append(g.nodes, n)
	g.index[n] = id
	g.arcs = append(g.arcs, nil)
	acc := productAccept[W]{record: noRecord}
	if g.t.Accepting(n.t) {
		acc.weight, acc.record, acc.ok = g.s.acceptance(n.s)
	}
	g.accept = append(g.accept, acc)
	return id
}

func (g *productGraph[W]) anyAccepting() bool {
	for _, a := range g.accept {
		if a.ok {
			return true
		}
	}
	return false
}

// monotone reports whether no arc or acceptance weight improves on zero,
// which makes Dijkstra's algorithm exact.
func (g *productGraph[W]) monotone() bool {
	zero := g.sr.Zero()
	for i := range g.nodes {
		for _, a := range g.arcs[i] {
			if g.sr.Better(a.weight, zero) || g.sr.IsBottom(a.weight) {
				return false
			}
		}
		if g.accept[i].ok && g.sr.Better(g.accept[i].weight, zero) {
			return false
		}
	}
	return true
}

type searchResult[W any] struct {
	found  bool
	node   int32
	weight W
	// parent[n] is the arc index into arcs[parentNode[n]] used to reach n.
	parentNode []int32
	parentArc  []int32
}

func (g *productGraph[W]) newResult() *searchResult[W] {
	r := &searchResult[W]{
		node:       -1,
		parentNode: make([]int32, len(g.nodes)),
		parentArc:  make([]int32, len(g.nodes)),
	}
	for i := range r.parentNode {
		r.parentNode[i] = -1
	}
	return r
}

func (g *productGraph[W]) starts() int { return g.s.pdaStates }

// bfs finds an accepting node with the fewest arcs.
func (g *productGraph[W]) bfs() *searchResult[W] {
	res := g.newResult()
	seen := make([]bool, len(g.nodes))
	queue := make([]int32, 0, len(g.nodes))
	for c := 0; c < g.starts(); c++ {
		seen[c] = true
		queue = append(queue, int32(c))
	}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		if g.accept[u].ok {
			res.found, res.node, res.weight = true, u, g.sr.Zero()
			return res
		}
		for ai, a := range g.arcs[u] {
			if !seen[a.to] {
				seen[a.to] = true
				res.parentNode[a.to], res.parentArc[a.to] = u, int32(ai)
				queue = append(queue, a.to)
			}
		}
	}
	return res
}

type queued[W any] struct {
	node int32
	dist W
}

// dijkstra computes best distances when no weight improves on zero.
func (g *productGraph[W]) dijkstra() *searchResult[W] {
	res := g.newResult()
	dist := make([]W, len(g.nodes))
	reached := make([]bool, len(g.nodes))
	done := make([]bool, len(g.nodes))
	pq := priorityqueue.NewWith(func(a, b interface{}) int {
		da, db := a.(queued[W]).dist, b.(queued[W]).dist
		switch {
		case g.sr.Better(da, db):
			return -1
		case g.sr.Better(db, da):
			return 1
		}
		return 0
	})
	for c := 0; c < g.starts(); c++ {
		dist[c], reached[c] = g.sr.Zero(), true
		pq.Enqueue(queued[W]{int32(c), dist[c]})
	}
	for !pq.Empty() {
		v, _ := pq.Dequeue()
		u := v.(queued[W]).node
		if done[u] {
			continue
		}
		done[u] = true
		for ai, a := range g.arcs[u] {
			nd := g.sr.Combine(dist[u], a.weight)
			if !reached[a.to] || g.sr.Better(nd, dist[a.to]) {
				dist[a.to], reached[a.to] = nd, true
				res.parentNode[a.to], res.parentArc[a.to] = u, int32(ai)
				pq.Enqueue(queued[W]{a.to, nd})
			}
		}
	}
	g.pickBest(res, dist, reached)
	return res
}

// bellmanFord computes best distances with arbitrary weights. Nodes on or
// behind a strictly improving cycle get Bottom.
func (g *productGraph[W]) bellmanFord() *searchResult[W] {
	res := g.newResult()
	n := len(g.nodes)
	dist := make([]W, n)
	reached := make([]bool, n)
	for c := 0; c < g.starts(); c++ {
		dist[c], reached[c] = g.sr.Zero(), true
	}
	relax := func(u int32, ai int, a productArc[W]) bool {
		nd := g.sr.Combine(dist[u], a.weight)
		if reached[a.to] && !g.sr.Better(nd, dist[a.to]) {
			return false
		}
		dist[a.to], reached[a.to] = nd, true
		res.parentNode[a.to], res.parentArc[a.to] = u, int32(ai)
		return true
	}
	for round := 0; round < n; round++ {
		changed := false
		for u := range g.nodes {
			if !reached[u] {
				continue
			}
			for ai, a := range g.arcs[u] {
				if relax(int32(u), ai, a) {
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}
	var unbounded []int32
	for u := range g.nodes {
		if !reached[u] {
			continue
		}
		for _, a := range g.arcs[u] {
			if g.sr.Better(g.sr.Combine(dist[u], a.weight), dist[a.to]) {
				unbounded = append(unbounded, a.to)
			}
		}
	}
	bottom := make([]bool, n)
	for len(unbounded) > 0 {
		u := unbounded[len(unbounded)-1]
		unbounded = unbounded[:len(unbounded)-1]
		if bottom[u] {
			continue
		}
		bottom[u] = true
		dist[u] = g.sr.Bottom()
		for _, a := range g.arcs[u] {
			if !bottom[a.to] {
				reached[a.to] = true
				unbounded = append(unbounded, a.to)
			}
		}
	}
	g.pickBest(res, dist, reached)
	return res
}

func (g *productGraph[W]) pickBest(res *searchResult[W], dist []W, reached []bool) {
	for u := range g.nodes {
		if !reached[u] || !g.accept[u].ok {
			continue
		}
		w := g.sr.Combine(dist[u], g.accept[u].weight)
		if !res.found || g.sr.Better(w, res.weight) {
			res.found, res.node, res.weight = true, int32(u), w
		}
	}
}

// path follows parent pointers back from the result node.
func (g *productGraph[W]) path(res *searchResult[W]) Path {
	var arcs []productArc[W]
	u := res.node
	for res.parentNode[u] != -1 {
		pu := res.parentNode[u]
		arcs = append(arcs, g.arcs[pu][res.parentArc[u]])
		u = pu
		if len(arcs) > len(g.nodes) {
			panic("pushdown: cyclic parent chain in product path")
		}
	}
	slices.Reverse(arcs)
	p := Path{State: g.nodes[u].s, accept: g.accept[res.node].record}
	for _, a := range arcs {
		p.records = append(p.records, g.s.edges[a.edge].record)
		if a.label != Epsilon {
			p.Stack = append(p.Stack, a.label)
		}
	}
	slices.Reverse(p.Stack)
	return p
}

// automaton materialises the graph. Root (c, c) becomes control state c.
func (g *productGraph[W]) automaton(sr Semiring[W]) *PAutomaton[W] {
	out := NewPAutomaton(sr, g.starts())
	ids := make([]int, len(g.nodes))
	for i := range g.nodes {
		if i < g.starts() {
			ids[i] = i
			out.SetAccepting(i, g.accept[i].ok)
			continue
		}
		ids[i] = out.AddState(g.accept[i].ok)
	}
	for u := range g.nodes {
		for _, a := range g.arcs[u] {
			out.AddEdge(ids[u], ids[a.to], a.label, a.weight)
		}
	}
	return out
}

// FindPath searches the solved product for an accepted configuration.
//
// Unweighted trace types use breadth-first search. Weighted ones use
// Dijkstra's algorithm when no weight improves on zero, and Bellman-Ford
// otherwise or when a fixed-point trace type is requested; the returned
// weight is Bottom when the best configuration lies behind a strictly
// improving cycle, and the path is then empty.
func (p *Product[L, W]) FindPath(tt TraceType) (Path, W, error) {
	var zero W
	weighted, err := weightedQuery(p.sr, tt)
	if err != nil {
		return Path{}, zero, err
	}
	switch {
	case p.mode == unsolved:
		return Path{}, zero, ErrNotSolved
	case weighted && p.mode == solvedDual:
		return Path{}, zero, ErrWeightedDual
	case weighted && !p.weighted:
		return Path{}, zero, fmt.Errorf("%w: last solve ignored weights", ErrNotSolved)
	case p.mode == solvedDual:
		return p.dualSearch.path()
	}
	g := buildProductGraph(p.saturated, p.static)
	var res *searchResult[W]
	switch {
	case !weighted:
		res = g.bfs()
	case !tt.FixedPoint() && g.monotone():
		res = g.dijkstra()
	default:
		res = g.bellmanFord()
	}
	if !res.found {
		return Path{}, zero, ErrNoTrace
	}
	if weighted && p.sr.IsBottom(res.weight) {
		return Path{accept: noRecord}, res.weight, nil
	}
	return g.path(res), res.weight, nil
}
