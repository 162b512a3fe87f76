package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gitrdm/gopdaaal/pkg/pdadoc"
	"github.com/gitrdm/gopdaaal/pkg/pushdown"
)

// prepare merges and validates the options of a query command.
func prepare(cmd *cobra.Command, args []string) (*query, error) {
	opts, err := loadOptions(cmd, args)
	if err != nil {
		return nil, err
	}
	weighted, err := opts.resolveWeight()
	if err != nil {
		return nil, err
	}
	q, err := opts.validate()
	if err != nil {
		return nil, err
	}
	if q.log, err = newLogger(cmd, opts); err != nil {
		return nil, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	q.runID = id.String()
	q.log = q.log.With("run", q.runID)
	q.log.Info("query", "pda", opts.PDA, "engine", q.engine.String(), "trace", q.trace.String(), "weight", opts.Weight)
	if weighted && opts.Weight == "none" {
		q.log.Warn("rule weights are ignored with --weight none", "pda", opts.PDA)
	}
	return q, nil
}

func SolveHandler(cmd *cobra.Command, args []string) error {
	q, err := prepare(cmd, args)
	if err != nil {
		return err
	}
	switch q.opts.Weight {
	case "min":
		return runSolve[int64](cmd, q, pushdown.MinWeight[int64]{})
	case "max":
		return runSolve[int64](cmd, q, pushdown.MaxWeight[int64]{})
	}
	return runSolve[struct{}](cmd, q, pushdown.Unweighted{})
}

func runSolve[W comparable](cmd *cobra.Command, q *query, sr pushdown.NumericSemiring[W]) error {
	in, err := loadInputs[W](q.opts, sr)
	if err != nil {
		return err
	}
	answers, err := solveAll(cmd.Context(), q, in, []pushdown.Engine{q.engine})
	if err != nil {
		return err
	}
	ans := answers[0]
	if q.opts.DOT != "" {
		if err := writeDOT(q.opts.DOT, in.pda, ans.product.Automaton()); err != nil {
			return err
		}
	}
	return writeResult(cmd.OutOrStdout(), q.output, ans.result, ans.elapsed.Round(time.Microsecond).String())
}

func writeDOT[W comparable](path string, pda *pushdown.PDA[string, W], a *pushdown.PAutomaton[W]) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := a.WriteDOT(f, pda.Symbol, pda.StateName); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func CheckHandler(cmd *cobra.Command, args []string) error {
	q, err := prepare(cmd, args)
	if err != nil {
		return err
	}
	switch q.opts.Weight {
	case "min":
		return runCheck[int64](cmd, q, pushdown.MinWeight[int64]{})
	case "max":
		return runCheck[int64](cmd, q, pushdown.MaxWeight[int64]{})
	}
	return runCheck[struct{}](cmd, q, pushdown.Unweighted{})
}

func runCheck[W comparable](cmd *cobra.Command, q *query, sr pushdown.NumericSemiring[W]) error {
	in, err := loadInputs[W](q.opts, sr)
	if err != nil {
		return err
	}
	answers, err := solveAll(cmd.Context(), q, in, checkEngines[W](sr, q.trace))
	if err != nil {
		return err
	}
	results := make([]pdadoc.Result, len(answers))
	elapsed := make([]string, len(answers))
	for i, a := range answers {
		results[i] = a.result
		elapsed[i] = a.elapsed.Round(time.Microsecond).String()
	}
	renderAnswers(cmd.OutOrStdout(), results, elapsed)
	return disagreement(answers)
}

func ConvertHandler(cmd *cobra.Command, args []string) error {
	pdaPath, _ := cmd.Flags().GetString("pda")
	to, _ := cmd.Flags().GetString("to")
	weight, _ := cmd.Flags().GetString("weight")

	in, out := args[0], args[1]
	format := pdadoc.FormatForPath(out)
	if to != "" {
		f, err := pdadoc.ParseFormat(to)
		if err != nil {
			return err
		}
		format = f
	}

	var w io.Writer = cmd.OutOrStdout()
	if out != "-" {
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	switch weight {
	case "none":
		return convert[struct{}](w, format, in, pdaPath, pushdown.Unweighted{})
	case "min":
		return convert[int64](w, format, in, pdaPath, pushdown.MinWeight[int64]{})
	case "max":
		return convert[int64](w, format, in, pdaPath, pushdown.MaxWeight[int64]{})
	}
	return fmt.Errorf("unknown weight %q (want none, min or max)", weight)
}

// convert rewrites a PDA document, or an automaton document when pdaPath
// names the PDA it refers to.
func convert[W comparable](w io.Writer, format pdadoc.Format, in, pdaPath string, sr pushdown.NumericSemiring[W]) error {
	decodePDA := func(f *os.File, format pdadoc.Format) (*pushdown.PDA[string, W], error) {
		return pdadoc.DecodePDA[W](f, format, sr)
	}
	if pdaPath == "" {
		pda, err := decodeFile(in, decodePDA)
		if err != nil {
			return err
		}
		return pdadoc.EncodePDA[W](w, format, pda, sr)
	}
	pda, err := decodeFile(pdaPath, decodePDA)
	if err != nil {
		return err
	}
	a, err := decodeFile(in, func(f *os.File, format pdadoc.Format) (*pushdown.PAutomaton[W], error) {
		return pdadoc.DecodeAutomaton[W](f, format, pda, sr)
	})
	if err != nil {
		return err
	}
	return pdadoc.EncodeAutomaton[W](w, format, pda, a, sr)
}

func versionHandler(cmd *cobra.Command, _ []string) {
	info := pushdown.GetVersionInfo()
	fmt.Fprintf(cmd.OutOrStdout(), "pdaaal version %s (go %s)\n", info.Version, info.GoVersion)
}

var errArgs = errors.New("expected PDA, initial and final documents")

func queryArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 3 {
		return fmt.Errorf("%w, got %d arguments", errArgs, len(args))
	}
	return nil
}

func NewCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pdaaal",
		Short: "Weighted pushdown reachability",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Disable usage printing on errors
			cmd.SilenceUsage = true
		},
	}
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level: trace, debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: text or json")

	cobra.EnableCommandSorting = false

	solveCmd := &cobra.Command{
		Use:   "solve [PDA INITIAL FINAL]",
		Short: "Decide whether a final configuration is reachable and print a witness",
		Long: "Decide whether some configuration accepted by the final automaton is reachable\n" +
			"from one accepted by the initial automaton. Documents are read as JSON, YAML or\n" +
			"CBOR depending on their extension. Paths may also come from --config.",
		Args: queryArgs,
		RunE: SolveHandler,
	}
	addQueryFlags(solveCmd)

	checkCmd := &cobra.Command{
		Use:   "check [PDA INITIAL FINAL]",
		Short: "Solve with every engine concurrently and compare the answers",
		Args:  queryArgs,
		RunE:  CheckHandler,
	}
	addQueryFlags(checkCmd)

	convertCmd := &cobra.Command{
		Use:   "convert INPUT OUTPUT",
		Short: "Convert a PDA or P-automaton document between JSON, YAML and CBOR",
		Long: "Convert a PDA document, or a P-automaton document when --pda names the PDA it\n" +
			"refers to. OUTPUT may be - for standard output.",
		Args: cobra.ExactArgs(2),
		RunE: ConvertHandler,
	}
	convertCmd.Flags().String("pda", "", "PDA document the input automaton refers to")
	convertCmd.Flags().String("to", "", "Output format (default from the OUTPUT extension)")
	convertCmd.Flags().StringP("weight", "w", "min", "Weight semiring used to read weights: none, min or max")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run:   versionHandler,
	}

	rootCmd.AddCommand(solveCmd, checkCmd, convertCmd, versionCmd)
	return rootCmd
}
