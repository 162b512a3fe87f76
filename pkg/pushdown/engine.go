package pushdown

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/emirpasic/gods/queues/linkedlistqueue"
	"github.com/emirpasic/gods/stacks/arraystack"
)

// WorklistOrder selects the order in which changed edges are processed.
// The fixed point does not depend on it, only the amount of work done.
type WorklistOrder uint8

const (
	// FIFO processes edges in the order they changed.
	FIFO WorklistOrder = iota
	// LIFO processes the most recently changed edge first.
	LIFO
)

func (o WorklistOrder) String() string {
	if o == LIFO {
		return "lifo"
	}
	return "fifo"
}

// Config holds saturation settings.
type Config struct {
	// Worklist selects the processing order.
	Worklist WorklistOrder
	// MaxIterations bounds the number of worklist items processed by one
	// saturation. Zero means unbounded; exceeding it fails with
	// ErrIterationLimit.
	MaxIterations int
	// Logger receives phase transitions at Debug and edge events at
	// LevelTrace. Nil selects slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns the default saturation settings.
func DefaultConfig() *Config {
	return &Config{Worklist: FIFO}
}

func (c *Config) logger() *slog.Logger {
	if c == nil || c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// worklist abstracts the gods queue and stack.
type worklist interface {
	push(int32)
	pop() (int32, bool)
	size() int
}

type fifoWorklist struct{ q *linkedlistqueue.Queue }

func (w fifoWorklist) push(v int32) { w.q.Enqueue(v) }
func (w fifoWorklist) size() int    { return w.q.Size() }

func (w fifoWorklist) pop() (int32, bool) {
	v, ok := w.q.Dequeue()
	if !ok {
		return 0, false
	}
	return v.(int32), true
}

type lifoWorklist struct{ s *arraystack.Stack }

func (w lifoWorklist) push(v int32) { w.s.Push(v) }
func (w lifoWorklist) size() int    { return w.s.Size() }

func (w lifoWorklist) pop() (int32, bool) {
	v, ok := w.s.Pop()
	if !ok {
		return 0, false
	}
	return v.(int32), true
}

func newWorklist(order WorklistOrder) worklist {
	if order == LIFO {
		return lifoWorklist{arraystack.New()}
	}
	return fifoWorklist{linkedlistqueue.New()}
}

// phase of a saturation run.
type phase uint8

const (
	phaseInitialize phase = iota
	phaseSaturate
	phaseDone
)

func (p phase) String() string {
	return [...]string{"initialize", "saturate", "done"}[p]
}

// saturation is the state shared by the pre* and post* procedures: the
// automaton being grown, the expanded rules, and the worklist.
//
// Worklist items are edge ids. The post* variant without ε-edges also
// queues ε-relations, encoded as ^id.
type saturation[W comparable] struct {
	name     string
	aut      *PAutomaton[W]
	sr       Semiring[W]
	rules    *ruleIndex[W]
	weighted bool
	// limit is the derivation height beyond which a record must lie on a
	// strictly improving cycle.
	limit int32

	work       worklist
	iterations int
	maxIter    int
	phase      phase
	log        *slog.Logger

	// onEdge is called for every edge that did not exist before.
	onEdge func(id int32)
	// step processes one worklist item.
	step func(item int32)
}

func newSaturation[W comparable](name string, aut *PAutomaton[W], rules *ruleIndex[W], weighted bool, cfg *Config) *saturation[W] {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &saturation[W]{
		name:     name,
		aut:      aut,
		sr:       aut.sr,
		rules:    rules,
		weighted: weighted,
		work:     newWorklist(cfg.Worklist),
		maxIter:  cfg.MaxIterations,
		log:      cfg.logger(),
	}
}

// setLimit fixes the bottom-detection height once the number of states is
// known. Every record on a derivation chain longer than the number of
// possible edges repeats some edge, and a repeated edge with a strictly
// better weight means the repeating context improves without bound.
func (s *saturation[W]) setLimit(states, labels int) {
	n := int64(states)*int64(states)*int64(labels+1) + int64(states)
	if n > 1<<30 {
		n = 1 << 30
	}
	s.limit = int32(n)
}

func (s *saturation[W]) enter(p phase) {
	s.phase = p
	s.log.Debug("saturation phase", "engine", s.name, "phase", p.String(),
		"edges", s.aut.EdgeCount(), "iterations", s.iterations)
}

func (s *saturation[W]) height(ante [2]int32) int32 {
	var h int32
	for _, r := range ante {
		if r != noRecord && s.aut.records[r].height > h {
			h = s.aut.records[r].height
		}
	}
	return h + 1
}

// reuses reports whether a record of the edge (from, label, to) is among
// the antecedents reachable from ante.
func (s *saturation[W]) reuses(from int, label uint32, to int, ante [2]int32) bool {
	seen := make(map[int32]bool)
	stack := make([]int32, 0, 16)
	for _, r := range ante {
		if r != noRecord {
			stack = append(stack, r)
		}
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		seen[id] = true
		rec := &s.aut.records[id]
		if rec.from == from && rec.to == to && rec.label == label && rec.kind != acceptByEps {
			return true
		}
		for _, a := range rec.ante {
			if a != noRecord && !seen[a] {
				stack = append(stack, a)
			}
		}
	}
	return false
}

// unbounded reports whether w, a strictly better weight than cur for the
// edge (from, label, to), lies on an improving cycle. A derivation that uses
// an earlier record of the edge it improves can be replayed on the improved
// edge, and Combine only adds, so every replay improves it again. The height
// limit catches cycles the check misses.
func (s *saturation[W]) unbounded(from int, label uint32, to int, ante [2]int32, h int32, w W, cur *W) bool {
	if s.sr.IsBottom(w) {
		return false
	}
	if h > s.limit {
		return true
	}
	return cur != nil && s.sr.Better(w, *cur) && s.reuses(from, label, to, ante)
}

// emit derives the edge (from, label, to). The weight is turned into Bottom
// when the derivation improves the edge through itself.
func (s *saturation[W]) emit(from int, label uint32, to int, kind recordKind, r Rule[W], ante [2]int32, w W) (int32, bool) {
	existing, exists := s.aut.index[edgeKey{from, to, label}]
	if !s.weighted && exists {
		return existing, false
	}
	h := s.height(ante)
	if s.weighted {
		var cur *W
		if exists {
			cur = &s.aut.edges[existing].weight
		}
		if s.unbounded(from, label, to, ante, h, w, cur) {
			w = s.sr.Bottom()
		}
	}
	before := len(s.aut.edges)
	id, changed := s.aut.improve(record[W]{from: from, to: to, label: label, kind: kind, rule: r, ante: ante, weight: w, height: h})
	if !changed {
		return id, false
	}
	if traceEnabled() {
		s.log.Log(context.Background(), LevelTrace, "edge", "engine", s.name, "kind", kind.String(),
			"from", from, "label", labelString(label), "to", to, "weight", fmt.Sprint(w), "height", h)
	}
	s.work.push(id)
	if len(s.aut.edges) > before && s.onEdge != nil {
		s.onEdge(id)
	}
	return id, true
}

// current returns the live record of edge id.
func (s *saturation[W]) current(id int32) *record[W] {
	return &s.aut.records[s.aut.edges[id].record]
}

func (s *saturation[W]) combine(ws ...W) W {
	acc := s.sr.Zero()
	for _, w := range ws {
		acc = s.sr.Combine(acc, w)
	}
	return acc
}

// next processes one worklist item. It reports false when the worklist is
// empty.
func (s *saturation[W]) next() (bool, error) {
	item, ok := s.work.pop()
	if !ok {
		if s.phase != phaseDone {
			s.enter(phaseDone)
		}
		return false, nil
	}
	s.iterations++
	if s.maxIter > 0 && s.iterations > s.maxIter {
		return false, fmt.Errorf("%s: %w after %d items", s.name, ErrIterationLimit, s.maxIter)
	}
	s.step(item)
	return true, nil
}

// run saturates to the fixed point.
func (s *saturation[W]) run() error {
	s.enter(phaseSaturate)
	for {
		more, err := s.next()
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

func labelString(l uint32) string {
	if l == Epsilon {
		return "ε"
	}
	return fmt.Sprint(l)
}
