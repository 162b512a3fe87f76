package pushdown

// postStar grows an automaton into one accepting post*(L).
//
// Every distinct push target (p', γ') gets one fresh state q. A push rule
// (p, γ) → (p', γ' γ) applied to p --γ--> q0 adds p' --γ'--> q with zero
// weight and q --γ--> q0 carrying the rule weight. Pop rules relate p' to
// q0 by ε. Every ε-relation is closed with the edges leaving its target,
// so rules always see ordinary labelled edges.
//
// With ε-edges the relation is stored in the automaton and the path search
// follows it. Without them the relation lives in a side table and
// empty-stack acceptance is recorded on the control state directly.
type postStar[W comparable] struct {
	*saturation[W]
	withEps bool
	fresh   map[stateLabel]int

	// epsInto[q] lists the ε-relations ending in q: edge ids with ε-edges,
	// side table ids without.
	epsInto map[int][]int32
	epsSeen map[int32]bool

	eps      []epsRelation[W]
	epsIndex map[[2]int]int32
}

type epsRelation[W any] struct {
	from, to int
	weight   W
	record   int32
}

func newPostStar[W comparable](aut *PAutomaton[W], rules *ruleIndex[W], labels int, weighted, withEps bool, cfg *Config) *postStar[W] {
	name := "post*"
	if !withEps {
		name = "post*-no-eps"
	}
	ps := &postStar[W]{
		saturation: newSaturation(name, aut, rules, weighted, cfg),
		withEps:    withEps,
		fresh:      make(map[stateLabel]int, len(rules.pushTargets)),
		epsInto:    make(map[int][]int32),
		epsSeen:    make(map[int32]bool),
		epsIndex:   make(map[[2]int]int32),
	}
	for _, t := range rules.pushTargets {
		ps.fresh[t] = aut.AddState(false)
	}
	ps.setLimit(aut.StateCount(), labels)
	ps.step = ps.process
	return ps
}

func (ps *postStar[W]) initialize() {
	ps.enter(phaseInitialize)
	for id := range ps.aut.edges {
		ps.work.push(int32(id))
	}
}

func (ps *postStar[W]) saturate() error {
	ps.initialize()
	return ps.run()
}

func (ps *postStar[W]) process(item int32) {
	if item < 0 {
		ps.processRelation(^item)
		return
	}
	e := ps.aut.edges[item]
	if e.label == Epsilon {
		if !ps.epsSeen[item] {
			ps.epsSeen[item] = true
			ps.epsInto[e.to] = append(ps.epsInto[e.to], item)
		}
		ps.close(e.from, e.to, e.weight, e.record)
		return
	}
	if ps.aut.IsControl(e.from) {
		for _, ri := range ps.rules.byPre[stateLabel{e.from, e.label}] {
			ps.apply(ps.rules.rules[ri], item)
		}
	}
	for _, eid := range ps.epsInto[e.from] {
		from, w, rec := ps.relation(eid)
		ps.emit(from, e.label, e.to, epsClosure, Rule[W]{}, [2]int32{rec, e.record}, ps.combine(w, e.weight))
	}
}

// apply fires rule r on edge id.
func (ps *postStar[W]) apply(r Rule[W], id int32) {
	e := ps.aut.edges[id]
	ante := [2]int32{e.record, noRecord}
	w := ps.combine(r.Weight, e.weight)
	switch r.Op {
	case Pop:
		if ps.withEps {
			ps.emit(r.To, Epsilon, e.to, byPop, r, ante, w)
		} else {
			ps.relate(r.To, e.to, r, ante, w)
		}
	case Swap, Noop:
		top, _ := r.Top()
		ps.emit(r.To, top, e.to, bySwap, r, ante, w)
	case Push:
		mid := ps.fresh[stateLabel{r.To, r.OpLabel}]
		ps.emit(r.To, r.OpLabel, mid, pushHead, r, [2]int32{noRecord, noRecord}, ps.sr.Zero())
		ps.emit(mid, r.Pre, e.to, byPush, r, ante, w)
	}
}

// close adds the shortcut edges of the ε-relation from → to.
func (ps *postStar[W]) close(from, to int, w W, rec int32) {
	for _, id := range ps.aut.out[to] {
		t := ps.aut.edges[id]
		if t.label == Epsilon {
			continue
		}
		ps.emit(from, t.label, t.to, epsClosure, Rule[W]{}, [2]int32{rec, t.record}, ps.combine(w, t.weight))
	}
}

// relation returns source, weight and record of ε-relation id.
func (ps *postStar[W]) relation(id int32) (int, W, int32) {
	if ps.withEps {
		e := ps.aut.edges[id]
		return e.from, e.weight, e.record
	}
	rel := ps.eps[id]
	return rel.from, rel.weight, rel.record
}

// relate records the ε-relation from → to in the side table.
func (ps *postStar[W]) relate(from, to int, r Rule[W], ante [2]int32, w W) {
	h := ps.height(ante)
	key := [2]int{from, to}
	id, ok := ps.epsIndex[key]
	if ps.weighted {
		var cur *W
		if ok {
			cur = &ps.eps[id].weight
		}
		if ps.unbounded(from, Epsilon, to, ante, h, w, cur) {
			w = ps.sr.Bottom()
		}
	}
	if ok && (!ps.weighted || !ps.sr.Better(w, ps.eps[id].weight)) {
		return
	}
	rec := ps.aut.push(record[W]{from: from, to: to, label: Epsilon, kind: byPop, rule: r, ante: ante, weight: w, height: h})
	if ok {
		ps.eps[id].weight = w
		ps.eps[id].record = rec
	} else {
		id = int32(len(ps.eps))
		ps.eps = append(ps.eps, epsRelation[W]{from: from, to: to, weight: w, record: rec})
		ps.epsIndex[key] = id
		ps.epsInto[to] = append(ps.epsInto[to], id)
	}
	ps.work.push(^id)
}

func (ps *postStar[W]) processRelation(id int32) {
	rel := ps.eps[id]
	ps.close(rel.from, rel.to, rel.weight, rel.record)
	if !ps.aut.accepting[rel.to] {
		return
	}
	ante := [2]int32{rel.record, noRecord}
	h := ps.height(ante)
	w := rel.weight
	if ps.weighted && h > ps.limit {
		w = ps.sr.Bottom()
	}
	if _, ok := ps.aut.accept[rel.from]; ok && !ps.weighted {
		return
	}
	ps.aut.improveAccept(rel.from, record[W]{
		from: rel.from, to: rel.to, label: Epsilon,
		kind: acceptByEps, ante: ante, weight: w, height: h,
	})
}
