package pushdown

import (
	"fmt"
	"iter"
	"math"
	"slices"
	"strings"
)

// Epsilon is the reserved label of ε-edges. It is never a valid symbol id.
const Epsilon uint32 = math.MaxUint32

type labelSetKind uint8

const (
	explicitLabels labelSetKind = iota
	complementLabels
	allLabels
)

// LabelSet is a compact set of stack symbols: an explicit set, the
// complement of an explicit set, or every symbol of the alphabet.
//
// Complement and All sets are expanded lazily against the alphabet size at
// enumeration time, so symbols inserted later are covered as well.
type LabelSet struct {
	kind labelSetKind
	ids  []uint32 // sorted, unique
}

// LabelsOf returns the explicit set of ids.
func LabelsOf(ids ...uint32) LabelSet {
	return LabelSet{kind: explicitLabels, ids: normalizeIDs(ids)}
}

// LabelsExcept returns every symbol except ids.
func LabelsExcept(ids ...uint32) LabelSet {
	if len(ids) == 0 {
		return AllLabels()
	}
	return LabelSet{kind: complementLabels, ids: normalizeIDs(ids)}
}

// AllLabels returns the wildcard set.
func AllLabels() LabelSet { return LabelSet{kind: allLabels} }

func normalizeIDs(ids []uint32) []uint32 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

// Wildcard reports whether the set contains every symbol.
func (s LabelSet) Wildcard() bool { return s.kind == allLabels }

// Negated reports whether the set is a complement.
func (s LabelSet) Negated() bool { return s.kind == complementLabels }

// IDs returns the explicit ids of the set (the excluded ids of a complement).
func (s LabelSet) IDs() []uint32 { return slices.Clone(s.ids) }

// Contains reports whether id is in the set.
func (s LabelSet) Contains(id uint32) bool {
	if id == Epsilon {
		return false
	}
	_, found := slices.BinarySearch(s.ids, id)
	switch s.kind {
	case explicitLabels:
		return found
	case complementLabels:
		return !found
	}
	return true
}

// Expand yields the ids of the set for an alphabet of the given size.
func (s LabelSet) Expand(alphabet int) iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		if s.kind == explicitLabels {
			for _, id := range s.ids {
				if int(id) >= alphabet {
					return
				}
				if !yield(id) {
					return
				}
			}
			return
		}
		for id := uint32(0); int(id) < alphabet; id++ {
			if s.Contains(id) && !yield(id) {
				return
			}
		}
	}
}

// Count returns the number of ids in the set for the given alphabet size.
func (s LabelSet) Count(alphabet int) int {
	n := 0
	for range s.Expand(alphabet) {
		n++
	}
	return n
}

// union merges two explicit sets.
func (s LabelSet) union(o LabelSet) LabelSet {
	return LabelsOf(append(slices.Clone(s.ids), o.ids...)...)
}

func (s LabelSet) String() string {
	parts := make([]string, len(s.ids))
	for i, id := range s.ids {
		parts[i] = fmt.Sprint(id)
	}
	switch s.kind {
	case complementLabels:
		return "^{" + strings.Join(parts, ",") + "}"
	case allLabels:
		return "*"
	}
	return "{" + strings.Join(parts, ",") + "}"
}
