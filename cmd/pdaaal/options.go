package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gitrdm/gopdaaal/internal/logutil"
	"github.com/gitrdm/gopdaaal/pkg/pdadoc"
	"github.com/gitrdm/gopdaaal/pkg/pushdown"
)

// options is the merged configuration of a query. Defaults are overridden
// by the --config file, then by flags that were set explicitly, then by
// positional arguments.
type options struct {
	PDA           string `mapstructure:"pda"`
	Initial       string `mapstructure:"initial"`
	Final         string `mapstructure:"final"`
	Engine        string `mapstructure:"engine"`
	Trace         string `mapstructure:"trace"`
	Weight        string `mapstructure:"weight"`
	Worklist      string `mapstructure:"worklist"`
	MaxIterations int    `mapstructure:"max_iterations"`
	Output        string `mapstructure:"output"`
	DOT           string `mapstructure:"dot"`
	LogLevel      string `mapstructure:"log_level"`
	LogFormat     string `mapstructure:"log_format"`
}

func defaultOptions() options {
	return options{
		Engine:    "post",
		Weight:    "auto",
		Worklist:  "fifo",
		Output:    "table",
		LogLevel:  "warn",
		LogFormat: "text",
	}
}

// optionFlags are the flags that map onto options keys.
var optionFlags = []string{
	"engine", "trace", "weight", "worklist", "max-iterations",
	"output", "dot", "log-level", "log-format",
}

func addQueryFlags(cmd *cobra.Command) {
	d := defaultOptions()
	cmd.Flags().StringP("config", "c", "", "YAML file with default options")
	cmd.Flags().StringP("engine", "e", d.Engine, "Saturation engine: pre, post, post-no-eps or dual")
	cmd.Flags().StringP("trace", "t", "", "Trace type: none, any, shortest, longest, shortest-fp or longest-fp")
	cmd.Flags().StringP("weight", "w", d.Weight, "Weight semiring: auto, none, min or max (auto is min when the PDA has weights)")
	cmd.Flags().String("worklist", d.Worklist, "Worklist order: fifo or lifo")
	cmd.Flags().Int("max-iterations", 0, "Abort saturation after this many steps (0 is unbounded)")
	cmd.Flags().StringP("output", "o", d.Output, "Output: table, json, yaml or cbor")
	cmd.Flags().String("dot", "", "Write the saturated automaton in Graphviz format to this file")
}

func decodeOptions(raw map[string]any, opts *options) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           opts,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

// loadOptions merges defaults, the config file, flags and args.
func loadOptions(cmd *cobra.Command, args []string) (options, error) {
	opts := defaultOptions()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return opts, err
		}
		raw := map[string]any{}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return opts, fmt.Errorf("config %s: %w", path, err)
		}
		if err := decodeOptions(raw, &opts); err != nil {
			return opts, fmt.Errorf("config %s: %w", path, err)
		}
	}

	raw := map[string]any{}
	for _, name := range optionFlags {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			f = cmd.Root().PersistentFlags().Lookup(name)
		}
		if f != nil && f.Changed {
			raw[strings.ReplaceAll(name, "-", "_")] = f.Value.String()
		}
	}
	for i, key := range []string{"pda", "initial", "final"} {
		if i < len(args) {
			raw[key] = args[i]
		}
	}
	if err := decodeOptions(raw, &opts); err != nil {
		return opts, err
	}
	return opts, nil
}

// resolveWeight replaces the "auto" weight with min when the PDA document
// carries weights and with none otherwise. It also reports whether weights
// were present.
func (o *options) resolveWeight() (bool, error) {
	if o.PDA == "" || (o.Weight != "auto" && o.Weight != "none") {
		return false, nil
	}
	weighted, err := decodeFile(o.PDA, func(f *os.File, format pdadoc.Format) (bool, error) {
		return pdadoc.HasWeights(f, format)
	})
	if err != nil {
		return false, err
	}
	if o.Weight == "auto" {
		o.Weight = "none"
		if weighted {
			o.Weight = "min"
		}
	}
	return weighted, nil
}

// query is a validated set of options.
type query struct {
	opts   options
	engine pushdown.Engine
	trace  pushdown.TraceType
	output string
	cfg    *pushdown.Config
	log    *slog.Logger
	runID  string
}

var errMissingInput = errors.New("a PDA, an initial and a final automaton are required")

func (o options) validate() (*query, error) {
	if o.PDA == "" || o.Initial == "" || o.Final == "" {
		return nil, errMissingInput
	}
	engine, err := pushdown.ParseEngine(o.Engine)
	if err != nil {
		return nil, err
	}
	trace := o.Trace
	if trace == "" {
		trace = defaultTrace(o.Weight)
	}
	tt, err := pushdown.ParseTraceType(trace)
	if err != nil {
		return nil, err
	}
	switch o.Weight {
	case "none", "min", "max":
	default:
		return nil, fmt.Errorf("unknown weight %q (want auto, none, min or max)", o.Weight)
	}
	cfg := pushdown.DefaultConfig()
	switch strings.ToLower(o.Worklist) {
	case "fifo":
	case "lifo":
		cfg.Worklist = pushdown.LIFO
	default:
		return nil, fmt.Errorf("unknown worklist order %q", o.Worklist)
	}
	if o.MaxIterations < 0 {
		return nil, fmt.Errorf("max iterations must not be negative, got %d", o.MaxIterations)
	}
	cfg.MaxIterations = o.MaxIterations
	output := strings.ToLower(o.Output)
	if output != "table" {
		if _, err := pdadoc.ParseFormat(output); err != nil {
			return nil, err
		}
	}
	return &query{opts: o, engine: engine, trace: tt, output: output, cfg: cfg}, nil
}

func defaultTrace(weight string) string {
	switch weight {
	case "min":
		return "shortest"
	case "max":
		return "longest"
	}
	return "any"
}

// newLogger builds the logger for one command from the merged options.
func newLogger(cmd *cobra.Command, o options) (*slog.Logger, error) {
	level, err := logutil.ParseLevel(o.LogLevel)
	if err != nil {
		return nil, err
	}
	level = logutil.EnvLevel(level)
	switch o.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("unknown log format %q (want text or json)", o.LogFormat)
	}
	return logutil.NewLogger(cmd.ErrOrStderr(), level, o.LogFormat == "json"), nil
}
