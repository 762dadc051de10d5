package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dataelevate/internal/core"
)

func newInspectCmd(a *app) *cobra.Command {
	var (
		clean    cleaningFlags
		asJSON   bool
		rows     int
		chartFor string
	)
	cmd := &cobra.Command{
		Use:   "inspect FILE...",
		Short: "Report shape, preview, column statistics and missing values",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := readFiles(args)
			if err != nil {
				return err
			}
			opts := clean.options()
			if chartFor != "" {
				kind, err := core.ParseChartKind(chartFor)
				if err != nil {
					return err
				}
				opts.Chart = &core.ChartSpec{Kind: kind}
			}
			if rows > 0 {
				a.cfg.Pipeline.PreviewRows = rows
			}

			batch := a.pipeline(nil).Run(cmd.Context(), files, opts)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(batch); err != nil {
					return err
				}
			} else if err := writeReport(out, batch); err != nil {
				return err
			}
			return batchError(batch)
		},
	}
	clean.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	cmd.Flags().IntVar(&rows, "rows", 0, "Preview rows (default from PIPELINE_PREVIEW_ROWS)")
	cmd.Flags().StringVar(&chartFor, "chart", "", "Also check that a chart of this kind can be drawn")
	return cmd
}

// writeReport prints one block per file.
func writeReport(w io.Writer, batch *core.BatchResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i := range batch.Files {
		res := &batch.Files[i]
		if res.Err != nil {
			fmt.Fprintf(tw, "%s: %s: %s\n", res.File, res.Status, core.FormatUserError(res.Err))
		} else {
			fmt.Fprintf(tw, "%s: %s\n", res.File, res.Status)
		}
		for _, n := range res.Notices {
			fmt.Fprintf(tw, "  [%s] %s\n", n.Level, n.Message)
		}

		in := res.Result
		if in == nil {
			fmt.Fprintln(tw)
			continue
		}
		fmt.Fprintf(tw, "  %d rows, %d columns, %d missing values\n", in.Rows, in.Columns, in.TotalMissing())
		if in.TotalMissing() > 0 {
			missing := in.MissingCounts()
			parts := make([]string, 0, len(missing))
			for _, col := range in.ColumnNames {
				if n := missing[col]; n > 0 {
					parts = append(parts, fmt.Sprintf("%s=%d", col, n))
				}
			}
			fmt.Fprintf(tw, "  missing: %s\n", strings.Join(parts, ", "))
		}
		fmt.Fprintln(tw)

		fmt.Fprintln(tw, "  "+strings.Join(in.ColumnNames, "\t"))
		for _, row := range in.Preview {
			fmt.Fprintln(tw, "  "+strings.Join(row, "\t"))
		}
		fmt.Fprintln(tw)

		fmt.Fprintln(tw, "  column\tkind\tcount\tmissing\tunique\ttop\tmean\tstd\tmin\t50%\tmax")
		for _, cs := range in.Stats {
			fields := []string{cs.Column, string(cs.Kind), strconv.Itoa(cs.Count), strconv.Itoa(cs.Missing), strconv.Itoa(cs.Unique), cs.Top}
			if n := cs.Numeric; n != nil {
				fields = append(fields, num(n.Mean), num(n.Std), num(n.Min), num(n.Q50), num(n.Max))
			} else {
				fields = append(fields, "", "", "", "", "")
			}
			fmt.Fprintln(tw, "  "+strings.Join(fields, "\t"))
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func num(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'g', 6, 64)
}
