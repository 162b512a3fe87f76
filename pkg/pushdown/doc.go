// Package pushdown provides saturation-based reachability for weighted
// pushdown systems.
//
// # Model
//
// A pushdown system (PDA) is a finite set of control states together with
// stack-rewriting rules of the form (p, γ) → (p', op) where op pops the top
// of stack, swaps it for another symbol, or pushes a symbol on top of it.
// Regular sets of configurations are represented by P-automata: finite
// automata over stack symbols whose first N states double as the PDA's
// control states.
//
// # Saturation
//
// The engine implements the classical fixed-point procedures:
//   - pre*:  backward reachability, grows the final automaton
//   - post*: forward reachability, grows the initial automaton (with or
//     without ε-edges in the result)
//   - dual:  both directions in lock-step with early termination on contact
//
// Weights are handled by a pluggable Semiring. Derivations whose weight can
// be improved without bound (negative cycles for shortest paths, positive
// cycles for longest paths) are reported with the semiring's Bottom value.
//
// # Usage
//
//	pda := pushdown.NewPDA[string, int32](pushdown.NewNamedStates(), "X")
//	p, _ := pda.InsertState("p")
//	_ = pda.AddRule("p", "X", "p", pushdown.Pop, "", -1)
//
//	initial := pushdown.NewPAutomaton[int32](pushdown.MinWeight[int32]{}, pda.StateCount())
//	...
//	product, _ := pushdown.NewProduct(pda, initial, final, nil)
//	ok, _ := pushdown.PreStarAccepts(product, pushdown.ShortestFixedPoint)
//	trace, weight, _ := pushdown.GetTrace(product, pushdown.ShortestFixedPoint)
//
// # Thread Safety
//
// Construction and saturation are single-threaded. A solved Product that is
// no longer mutated may be queried (FindPath, GetTrace) from several
// goroutines at once.
package pushdown

// Version is the current version of the pushdown library.
const Version = "0.1.0"

// VersionInfo provides detailed version information.
type VersionInfo struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
}

// GetVersionInfo returns detailed version information.
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:   Version,
		GoVersion: "1.25+",
	}
}
