package pdadoc

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/gitrdm/gopdaaal/pkg/pushdown"
)

// Result is the answer to one reachability query.
type Result struct {
	RunID     string `yaml:"run_id,omitempty"`
	Engine    string `yaml:"engine"`
	TraceType string `yaml:"trace_type"`
	Accepted  bool   `yaml:"accepted"`
	// Weight is the witness weight, "bottom" when it improves without
	// bound, and empty for unweighted queries.
	Weight string `yaml:"weight,omitempty"`
	Trace  []Step `yaml:"trace,omitempty"`
}

// Step is one configuration of a witness trace.
type Step struct {
	State string `yaml:"state"`
	// Stack is written top-first.
	Stack []string `yaml:"stack,flow"`
	// Rule is the rule that led to this configuration.
	Rule string `yaml:"rule,omitempty"`
}

// NewResult renders a solver answer with the names of pda.
func NewResult[W comparable](pda *pushdown.PDA[string, W], engine pushdown.Engine, tt pushdown.TraceType, accepted bool, sr pushdown.Semiring[W], weight W, trace []pushdown.TraceStep[W]) Result {
	res := Result{Engine: engine.String(), TraceType: tt.String(), Accepted: accepted}
	if tt.Weighted() && sr.Extremum() != pushdown.NoExtremum && accepted {
		res.Weight = pushdown.FormatWeight(sr, weight)
	}
	for _, s := range trace {
		step := Step{State: pda.StateName(s.State), Stack: make([]string, 0, len(s.Stack))}
		for i := len(s.Stack) - 1; i >= 0; i-- {
			step.Stack = append(step.Stack, pda.Symbol(s.Stack[i]))
		}
		if s.Rule != nil {
			step.Rule = pda.FormatRule(*s.Rule)
		}
		res.Trace = append(res.Trace, step)
	}
	return res
}

// EncodeResult writes r as a document.
func EncodeResult(w io.Writer, f Format, r Result) error {
	var n yaml.Node
	if err := n.Encode(r); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return writeNode(w, &n, f)
}

// DecodeResult reads a result document.
func DecodeResult(r io.Reader, f Format) (Result, error) {
	var res Result
	n, err := readNode(r, f)
	if err != nil {
		return res, err
	}
	if err := n.Decode(&res); err != nil {
		return res, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return res, nil
}
