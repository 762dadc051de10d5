package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dataelevate/internal/core"
)

func newChartCmd(a *app) *cobra.Command {
	var (
		clean   cleaningFlags
		kind    string
		x, y    string
		format  string
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "chart FILE",
		Short: "Draw a bar, line, area or scatter chart of the numeric columns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chartKind, err := core.ParseChartKind(kind)
			if err != nil {
				return err
			}
			renderFormat, err := core.ParseRenderFormat(format)
			if err != nil {
				return err
			}
			files, err := readFiles(args)
			if err != nil {
				return err
			}

			res := a.pipeline(nil).ProcessFile(cmd.Context(), files[0], clean.options())
			if res.Err != nil {
				return res.Err
			}
			c, err := core.BuildChart(res.Table, core.ChartSpec{Kind: chartKind, X: x, Y: y})
			if err != nil {
				return err
			}

			if outPath == "" {
				outPath = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + "." + string(renderFormat)
			}
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			err = core.RenderChart(f, c, core.RenderOptions{
				Width:  a.cfg.Chart.Width,
				Height: a.cfg.Chart.Height,
				Format: renderFormat,
			})
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s -> %s\n", res.File, c.Title, outPath)
			return nil
		},
	}
	clean.register(cmd)
	cmd.Flags().StringVar(&kind, "kind", "bar", "Chart kind: bar, line, area or scatter")
	cmd.Flags().StringVar(&x, "x", "", "Scatter X column (default: first numeric column)")
	cmd.Flags().StringVar(&y, "y", "", "Scatter Y column (default: second numeric column)")
	cmd.Flags().StringVar(&format, "format", "svg", "Image format: svg or png")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Output file (default: FILE stem plus format extension)")
	return cmd
}
