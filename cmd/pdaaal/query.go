package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gitrdm/gopdaaal/internal/parallel"
	"github.com/gitrdm/gopdaaal/pkg/pdadoc"
	"github.com/gitrdm/gopdaaal/pkg/pushdown"
)

// inputs are the decoded documents of a query. They are read-only once
// loaded and shared by every engine.
type inputs[W comparable] struct {
	sr      pushdown.NumericSemiring[W]
	pda     *pushdown.PDA[string, W]
	initial *pushdown.PAutomaton[W]
	final   *pushdown.PAutomaton[W]
}

// answer is the outcome of one engine.
type answer[W comparable] struct {
	result  pdadoc.Result
	product *pushdown.Product[string, W]
	elapsed time.Duration
}

func decodeFile[T any](path string, decode func(*os.File, pdadoc.Format) (T, error)) (T, error) {
	f, err := os.Open(path)
	if err != nil {
		var zero T
		return zero, err
	}
	defer f.Close()
	v, err := decode(f, pdadoc.FormatForPath(path))
	if err != nil {
		return v, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

func loadInputs[W comparable](o options, sr pushdown.NumericSemiring[W]) (*inputs[W], error) {
	in := &inputs[W]{sr: sr}
	var err error
	in.pda, err = decodeFile(o.PDA, func(f *os.File, format pdadoc.Format) (*pushdown.PDA[string, W], error) {
		return pdadoc.DecodePDA[W](f, format, sr)
	})
	if err != nil {
		return nil, err
	}
	automaton := func(f *os.File, format pdadoc.Format) (*pushdown.PAutomaton[W], error) {
		return pdadoc.DecodeAutomaton[W](f, format, in.pda, sr)
	}
	if in.initial, err = decodeFile(o.Initial, automaton); err != nil {
		return nil, err
	}
	if in.final, err = decodeFile(o.Final, automaton); err != nil {
		return nil, err
	}
	return in, nil
}

// solveOne answers q on a fresh product with the given engine.
func solveOne[W comparable](ctx context.Context, q *query, in *inputs[W], engine pushdown.Engine) (answer[W], error) {
	var ans answer[W]
	if err := ctx.Err(); err != nil {
		return ans, err
	}
	log := q.log.With("engine", engine.String())
	cfg := *q.cfg
	cfg.Logger = log

	start := time.Now()
	p, err := pushdown.NewProduct(in.pda, in.initial, in.final, &cfg)
	if err != nil {
		return ans, err
	}
	accepted, err := pushdown.Solve(p, engine, q.trace)
	if err != nil {
		return ans, fmt.Errorf("%s: %w", engine, err)
	}
	var (
		trace  []pushdown.TraceStep[W]
		weight W
	)
	if accepted && q.trace != pushdown.None {
		trace, weight, err = pushdown.GetTrace(p, q.trace)
		if err != nil {
			return ans, fmt.Errorf("%s: trace: %w", engine, err)
		}
	}
	ans.elapsed = time.Since(start)
	ans.product = p
	ans.result = pdadoc.NewResult[W](in.pda, engine, q.trace, accepted, in.sr, weight, trace)
	ans.result.RunID = q.runID
	log.Debug("solved", "accepted", accepted, "steps", len(trace), "elapsed", ans.elapsed)
	return ans, nil
}

// solveAll runs every engine on its own product, concurrently.
func solveAll[W comparable](ctx context.Context, q *query, in *inputs[W], engines []pushdown.Engine) ([]answer[W], error) {
	wp := parallel.NewWorkerPool(len(engines))
	defer wp.Shutdown()
	jobs := make([]parallel.Job[answer[W]], len(engines))
	for i, engine := range engines {
		jobs[i] = func(ctx context.Context) (answer[W], error) {
			return solveOne(ctx, q, in, engine)
		}
	}
	return parallel.Run(ctx, wp, jobs...)
}

// checkEngines returns the engines check compares. The dual search is skipped
// for weighted queries.
func checkEngines[W any](sr pushdown.Semiring[W], tt pushdown.TraceType) []pushdown.Engine {
	var out []pushdown.Engine
	for _, e := range pushdown.Engines() {
		if e == pushdown.DualEngine && tt.Weighted() && sr.Extremum() != pushdown.NoExtremum {
			continue
		}
		out = append(out, e)
	}
	return out
}

// disagreement returns an error when the answers differ in acceptance or
// witness weight.
func disagreement[W comparable](answers []answer[W]) error {
	if len(answers) == 0 {
		return nil
	}
	first := answers[0].result
	for _, a := range answers[1:] {
		r := a.result
		if r.Accepted != first.Accepted {
			return fmt.Errorf("engines disagree: %s accepted=%t, %s accepted=%t",
				first.Engine, first.Accepted, r.Engine, r.Accepted)
		}
		if r.Weight != first.Weight {
			return fmt.Errorf("engines disagree: %s weight %s, %s weight %s",
				first.Engine, first.Weight, r.Engine, r.Weight)
		}
	}
	return nil
}
