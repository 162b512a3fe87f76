package pushdown

import (
	"fmt"
	"strings"
	"unsafe"
)

// Integer is the set of numeric weight types.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Signed is the set of signed numeric weight types.
type Signed interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

// Extremum is the optimisation direction of a semiring.
type Extremum uint8

const (
	// NoExtremum marks the unweighted semiring.
	NoExtremum Extremum = iota
	// Minimize selects shortest paths.
	Minimize
	// Maximize selects longest paths.
	Maximize
)

// Semiring is the weight arithmetic used by saturation and path search.
//
// Combine sums weights along a path and must be associative. Better is a
// strict improvement test. Bottom marks a weight that can be improved
// without bound; it is better than every finite weight and absorbing under
// Combine.
type Semiring[W any] interface {
	Zero() W
	Combine(a, b W) W
	Better(a, b W) bool
	Bottom() W
	IsBottom(w W) bool
	Extremum() Extremum
}

// NumericSemiring is a Semiring whose weights convert to and from int64.
// The document codec uses it to read and write weights.
type NumericSemiring[W any] interface {
	Semiring[W]
	FromInt64(v int64) W
	ToInt64(w W) int64
}

// Unweighted is the trivial semiring: every operation is a no-op and no
// weight is ever better than another, so the first derivation wins.
type Unweighted struct{}

func (Unweighted) Zero() struct{} { return struct{}{} }
func (Unweighted) Combine(_, _ struct{}) struct{} { return struct{}{} }
func (Unweighted) Better(_, _ struct{}) bool { return false }
func (Unweighted) Bottom() struct{} { return struct{}{} }
func (Unweighted) IsBottom(struct{}) bool { return false }
func (Unweighted) Extremum() Extremum { return NoExtremum }
func (Unweighted) FromInt64(int64) struct{} { return struct{}{} }
func (Unweighted) ToInt64(struct{}) int64 { return 0 }

// MinWeight is the shortest-path semiring over signed integers. Bottom is
// the lowest representable value.
//
// Combine saturates: a sum that overflows downwards is Bottom, one that
// overflows upwards is clamped to the highest value.
type MinWeight[W Signed] struct{}

func (MinWeight[W]) Zero() W { return 0 }

func (m MinWeight[W]) Combine(a, b W) W {
	bottom := m.Bottom()
	if a == bottom || b == bottom {
		return bottom
	}
	s := a + b
	switch {
	case b < 0 && s > a:
		return bottom
	case b > 0 && s < a:
		return ^bottom
	}
	return s
}

func (MinWeight[W]) Better(a, b W) bool { return a < b }
func (MinWeight[W]) Bottom() W { return lowestSigned[W]() }
func (m MinWeight[W]) IsBottom(w W) bool { return w == m.Bottom() }
func (MinWeight[W]) Extremum() Extremum { return Minimize }
func (MinWeight[W]) FromInt64(v int64) W { return W(v) }
func (MinWeight[W]) ToInt64(w W) int64 { return int64(w) }

// MaxWeight is the longest-path semiring over any integer type. Bottom is
// the highest representable value. Combine saturates like MinWeight's, in
// the opposite direction.
type MaxWeight[W Integer] struct{}

func (MaxWeight[W]) Zero() W { return 0 }

func (m MaxWeight[W]) Combine(a, b W) W {
	bottom := m.Bottom()
	if a == bottom || b == bottom {
		return bottom
	}
	s := a + b
	switch {
	case b > 0 && s < a:
		return bottom
	case b < 0 && s > a:
		// Only signed types get here; ^highest is the lowest value.
		return ^bottom
	}
	return s
}

func (MaxWeight[W]) Better(a, b W) bool { return a > b }
func (MaxWeight[W]) Bottom() W { return highest[W]() }
func (m MaxWeight[W]) IsBottom(w W) bool { return w == m.Bottom() }
func (MaxWeight[W]) Extremum() Extremum { return Maximize }
func (MaxWeight[W]) FromInt64(v int64) W { return W(v) }
func (MaxWeight[W]) ToInt64(w W) int64 { return int64(w) }

func lowestSigned[W Signed]() W {
	var zero W
	bits := unsafe.Sizeof(zero) * 8
	return W(1) << (bits - 1)
}

func highest[W Integer]() W {
	var zero W
	all := ^zero
	if all > zero {
		return all // unsigned
	}
	bits := unsafe.Sizeof(zero) * 8
	return ^(W(1) << (bits - 1))
}

// FormatWeight renders w, using "bottom" for the Bottom sentinel.
func FormatWeight[W any](sr Semiring[W], w W) string {
	if sr.Extremum() == NoExtremum {
		return "-"
	}
	if sr.IsBottom(w) {
		return "bottom"
	}
	return fmt.Sprint(w)
}

// TraceType selects how weights are treated by a query.
type TraceType uint8

const (
	// None ignores weights and only answers accept/reject.
	None TraceType = iota
	// Any ignores weights and produces some witness trace.
	Any
	// Shortest computes a minimum-weight witness.
	Shortest
	// Longest computes a maximum-weight witness.
	Longest
	// ShortestFixedPoint is Shortest with the fixed-point path search
	// forced, for weights that may be negative.
	ShortestFixedPoint
	// LongestFixedPoint is Longest with the fixed-point path search forced.
	LongestFixedPoint
)

var traceTypeNames = []string{"none", "any", "shortest", "longest", "shortest-fixed-point", "longest-fixed-point"}

func (t TraceType) String() string {
	if int(t) < len(traceTypeNames) {
		return traceTypeNames[t]
	}
	return fmt.Sprintf("TraceType(%d)", t)
}

// Weighted reports whether the trace type tracks weights.
func (t TraceType) Weighted() bool { return t >= Shortest }

// FixedPoint reports whether the fixed-point path search is forced.
func (t TraceType) FixedPoint() bool { return t == ShortestFixedPoint || t == LongestFixedPoint }

// Extremum returns the optimisation direction the trace type asks for.
func (t TraceType) Extremum() Extremum {
	switch t {
	case Shortest, ShortestFixedPoint:
		return Minimize
	case Longest, LongestFixedPoint:
		return Maximize
	}
	return NoExtremum
}

// ParseTraceType parses the String form of a trace type. The short forms
// "shortest-fp" and "longest-fp" are accepted too.
func ParseTraceType(s string) (TraceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "shortest-fp":
		return ShortestFixedPoint, nil
	case "longest-fp":
		return LongestFixedPoint, nil
	}
	for i, name := range traceTypeNames {
		if strings.EqualFold(s, name) {
			return TraceType(i), nil
		}
	}
	return None, fmt.Errorf("unknown trace type %q", s)
}

// weightedQuery reports whether a query with tt over sr must track weights.
func weightedQuery[W any](sr Semiring[W], tt TraceType) (bool, error) {
	if !tt.Weighted() || sr.Extremum() == NoExtremum {
		return false, nil
	}
	if tt.Extremum() != sr.Extremum() {
		return false, fmt.Errorf("%w: %s over a %s semiring", ErrTraceTypeMismatch, tt, extremumName(sr.Extremum()))
	}
	return true, nil
}

func extremumName(e Extremum) string {
	switch e {
	case Minimize:
		return "minimizing"
	case Maximize:
		return "maximizing"
	}
	return "unweighted"
}
