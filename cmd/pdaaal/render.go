package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/gitrdm/gopdaaal/pkg/pdadoc"
)

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	return table
}

func weightCell(r pdadoc.Result) string {
	if r.Weight == "" {
		return "-"
	}
	return r.Weight
}

// renderAnswers writes one row per result.
func renderAnswers(w io.Writer, results []pdadoc.Result, elapsed []string) {
	table := newTable(w, "ENGINE", "TRACE", "ACCEPTED", "WEIGHT", "STEPS", "TIME")
	for i, r := range results {
		table.Append([]string{
			r.Engine, r.TraceType, strconv.FormatBool(r.Accepted),
			weightCell(r), strconv.Itoa(len(r.Trace)), elapsed[i],
		})
	}
	table.Render()
}

// renderTrace writes the witness trace of r, one configuration per row.
func renderTrace(w io.Writer, r pdadoc.Result) {
	if len(r.Trace) == 0 {
		return
	}
	fmt.Fprintln(w)
	table := newTable(w, "STEP", "STATE", "STACK", "RULE")
	for i, s := range r.Trace {
		table.Append([]string{
			strconv.Itoa(i), s.State, "[" + strings.Join(s.Stack, " ") + "]", s.Rule,
		})
	}
	table.Render()
}

// writeResult renders r in the requested output.
func writeResult(w io.Writer, output string, r pdadoc.Result, elapsed string) error {
	if output == "table" {
		renderAnswers(w, []pdadoc.Result{r}, []string{elapsed})
		renderTrace(w, r)
		return nil
	}
	f, err := pdadoc.ParseFormat(output)
	if err != nil {
		return err
	}
	return pdadoc.EncodeResult(w, f, r)
}
