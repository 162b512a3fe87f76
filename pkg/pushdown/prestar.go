package pushdown

// preStar grows an automaton into one accepting pre*(L) for the language L
// it accepts initially.
//
// A push rule (p, γ) → (p', γ1 γ) fires in two steps. The edge
// p' --γ1--> q' registers a derived rule (q', γ) → (p, γ); every edge
// q' --γ--> q then yields p --γ--> q, combined with the current weight of
// p' --γ1--> q'.
type preStar[W comparable] struct {
	*saturation[W]
	derived map[stateLabel][]int32
	seen    map[derivedKey]bool
}

type derivedKey struct {
	rule int32
	mid  int
}

func newPreStar[W comparable](aut *PAutomaton[W], rules *ruleIndex[W], labels int, weighted bool, cfg *Config) *preStar[W] {
	ps := &preStar[W]{
		saturation: newSaturation("pre*", aut, rules, weighted, cfg),
		derived:    make(map[stateLabel][]int32),
		seen:       make(map[derivedKey]bool),
	}
	ps.setLimit(aut.StateCount(), labels)
	ps.step = ps.process
	return ps
}

// initialize queues the existing edges and seeds one edge per pop rule.
func (ps *preStar[W]) initialize() {
	ps.enter(phaseInitialize)
	for id := range ps.aut.edges {
		ps.work.push(int32(id))
	}
	none := [2]int32{noRecord, noRecord}
	for _, ri := range ps.rules.pops {
		r := ps.rules.rules[ri]
		ps.emit(r.From, r.Pre, r.To, byPop, r, none, r.Weight)
	}
}

func (ps *preStar[W]) process(id int32) {
	e := ps.aut.edges[id]
	if e.label == Epsilon {
		return
	}
	rec := e.record
	key := stateLabel{e.from, e.label}

	for _, ri := range ps.rules.swapInto[key] {
		r := ps.rules.rules[ri]
		ps.emit(r.From, r.Pre, e.to, bySwap, r, [2]int32{rec, noRecord}, ps.combine(r.Weight, e.weight))
	}

	for _, ri := range ps.rules.pushInto[key] {
		r := ps.rules.rules[ri]
		mid := e.to
		dk := derivedKey{ri, mid}
		if !ps.seen[dk] {
			ps.seen[dk] = true
			k := stateLabel{mid, r.Pre}
			ps.derived[k] = append(ps.derived[k], ri)
		}
		for _, id2 := range ps.aut.byLabel[stateLabel{mid, r.Pre}] {
			e2 := ps.aut.edges[id2]
			ps.emit(r.From, r.Pre, e2.to, byPush, r, [2]int32{rec, e2.record}, ps.combine(r.Weight, e.weight, e2.weight))
		}
	}

	for _, ri := range ps.derived[key] {
		r := ps.rules.rules[ri]
		firstID, ok := ps.aut.index[edgeKey{r.To, e.from, r.OpLabel}]
		if !ok {
			continue
		}
		first := ps.aut.edges[firstID]
		ps.emit(r.From, r.Pre, e.to, byPush, r, [2]int32{first.record, rec}, ps.combine(r.Weight, first.weight, e.weight))
	}
}

// saturate runs pre* to its fixed point.
func (ps *preStar[W]) saturate() error {
	ps.initialize()
	return ps.run()
}
