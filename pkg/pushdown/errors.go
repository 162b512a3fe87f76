package pushdown

import "errors"

// Construction errors. They are returned before any saturation starts.
var (
	// ErrUnknownLabel is returned when a rule or edge references a stack
	// symbol that was never inserted.
	ErrUnknownLabel = errors.New("pushdown: unknown label")

	// ErrUnknownState is returned when a rule or edge references a control
	// state that was never inserted.
	ErrUnknownState = errors.New("pushdown: unknown state")

	// ErrStateMismatch is returned when an automaton does not cover exactly
	// the PDA's control states.
	ErrStateMismatch = errors.New("pushdown: automaton states do not match the PDA")

	// ErrSemiringMismatch is returned when the two automata of a product
	// optimise in different directions.
	ErrSemiringMismatch = errors.New("pushdown: automata use different semirings")

	// ErrEpsilonInput is returned when an input automaton contains ε-edges.
	ErrEpsilonInput = errors.New("pushdown: input automaton contains epsilon edges")
)

// Query errors.
var (
	// ErrTraceTypeMismatch is returned when a weighted trace type asks for
	// the opposite extremum of the automata's semiring.
	ErrTraceTypeMismatch = errors.New("pushdown: trace type does not match semiring")

	// ErrNotSolved is returned by trace queries on a product that has not
	// been saturated yet.
	ErrNotSolved = errors.New("pushdown: product has not been solved")

	// ErrNoTrace is returned when no accepting configuration is reachable.
	ErrNoTrace = errors.New("pushdown: no accepting configuration is reachable")

	// ErrIterationLimit is returned when Config.MaxIterations is exceeded.
	ErrIterationLimit = errors.New("pushdown: saturation iteration limit exceeded")

	// ErrWeightedDual is returned when the dual search is asked for weights.
	ErrWeightedDual = errors.New("pushdown: dual search supports only unweighted queries")
)
