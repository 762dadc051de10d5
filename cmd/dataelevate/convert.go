package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dataelevate/internal/core"
	"github.com/JonMunkholm/dataelevate/internal/logging"
)

func newConvertCmd(a *app) *cobra.Command {
	var (
		clean  cleaningFlags
		to     string
		outDir string
		embed  string
	)
	cmd := &cobra.Command{
		Use:   "convert FILE...",
		Short: "Clean files and export them as CSV or Excel",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := core.ParseExportFormat(to)
			if err != nil {
				return err
			}
			files, err := readFiles(args)
			if err != nil {
				return err
			}

			opts := clean.options()
			opts.Export = format
			if embed != "" {
				kind, err := core.ParseChartKind(embed)
				if err != nil {
					return err
				}
				opts.Chart = &core.ChartSpec{Kind: kind}
				opts.EmbedChart = format == core.ExportXLSX
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}

			batch := a.pipeline(nil).Run(cmd.Context(), files, opts)
			paths, err := planOutputs(batch, args, outDir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i := range batch.Files {
				res := &batch.Files[i]
				if res.Export == nil {
					fmt.Fprintf(out, "%s: %s: %s\n", res.File, res.Status, core.FormatUserError(res.Err))
					continue
				}
				path := paths[i]
				if err := os.WriteFile(path, res.Export.Data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
				logging.FromContext(cmd.Context()).Debug("export written",
					"file", res.File, "path", path, "bytes", len(res.Export.Data))
				fmt.Fprintf(out, "%s -> %s (%d rows", res.File, path, res.Result.Rows)
				if res.DuplicatesRemoved > 0 {
					fmt.Fprintf(out, ", %d duplicates removed", res.DuplicatesRemoved)
				}
				if res.Fill != nil && res.Fill.Total() > 0 {
					fmt.Fprintf(out, ", %d values filled", res.Fill.Total())
				}
				fmt.Fprintln(out, ")")
			}
			return batchError(batch)
		},
	}
	clean.register(cmd)
	cmd.Flags().StringVar(&to, "to", "csv", "Output format: csv or xlsx")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Output directory")
	cmd.Flags().StringVar(&embed, "embed-chart", "", "Embed a chart of this kind in Excel output")
	return cmd
}

// planOutputs returns the destination of every exported file, indexed like
// batch.Files. Nothing is written when a destination is one of the inputs
// or is shared by two exports.
func planOutputs(batch *core.BatchResult, inputs []string, outDir string) ([]string, error) {
	in := make(map[string]string, len(inputs))
	for _, p := range inputs {
		in[absPath(p)] = p
	}

	paths := make([]string, len(batch.Files))
	taken := make(map[string]string, len(batch.Files))
	for i := range batch.Files {
		res := &batch.Files[i]
		if res.Export == nil {
			continue
		}
		path := filepath.Join(outDir, res.Export.FileName)
		abs := absPath(path)
		if src, ok := in[abs]; ok {
			return nil, fmt.Errorf("refusing to overwrite input %s, choose another --out directory", src)
		}
		if prev, ok := taken[abs]; ok {
			return nil, fmt.Errorf("%s and %s would both be written to %s, convert them separately", prev, inputs[i], path)
		}
		taken[abs] = inputs[i]
		paths[i] = path
	}
	return paths, nil
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
