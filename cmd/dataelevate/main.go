// Command dataelevate loads CSV and Excel files, reports on them, cleans
// them, draws charts and exports the result, from the command line or
// through a web UI (dataelevate serve).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dataelevate/internal/config"
	"github.com/JonMunkholm/dataelevate/internal/core"
	"github.com/JonMunkholm/dataelevate/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// app carries state shared by the subcommands, filled in before any of
// them run.
type app struct {
	configPath string
	logLevel   string

	cfg      *config.Config
	closeLog func()
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "dataelevate",
		Short: "Inspect, clean, chart and convert tabular data files",
		Long: `dataelevate reads .csv and .xlsx files, reports their shape and column
statistics, removes duplicate rows, fills missing numbers with column means,
draws charts and exports the result as CSV or Excel.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.closeLog != nil {
				a.closeLog()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file (overrides environment variables)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(
		newServeCmd(a),
		newInspectCmd(a),
		newConvertCmd(a),
		newChartCmd(a),
	)
	return root
}

// setup loads .env and configuration and installs the logger. CLI logs go
// to stderr so that stdout stays parseable. The command's context carries
// the logger, tagged with the subcommand name.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	// Overload lets .env values win over the inherited environment.
	_ = godotenv.Overload()

	cfg, err := config.LoadFile(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	a.cfg = cfg

	a.closeLog = logging.Setup(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		SeqURL: cfg.Logging.SeqURL,
		Output: cmd.ErrOrStderr(),
	})
	cmd.SetContext(logging.NewContext(cmd.Context(), slog.Default().With("command", cmd.Name())))
	return nil
}

// pipeline builds a pipeline from the loaded configuration.
func (a *app) pipeline(metrics *core.Metrics) *core.Pipeline {
	return core.NewPipeline(core.PipelineConfig{
		PreviewRows:      a.cfg.Pipeline.PreviewRows,
		EmptyNumericFill: core.EmptyColumnPolicy(a.cfg.Pipeline.EmptyNumericFill),
		MaxFileSize:      a.cfg.Upload.MaxFileSize,
	}, metrics)
}

// cleaningFlags are the options shared by the batch commands.
type cleaningFlags struct {
	dedupe  bool
	fill    bool
	columns []string
}

func (f *cleaningFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.dedupe, "dedupe", false, "Remove duplicate rows")
	cmd.Flags().BoolVar(&f.fill, "fill-missing", false, "Fill missing numeric values with the column mean")
	cmd.Flags().StringSliceVar(&f.columns, "columns", nil, "Keep only these columns, in this order")
}

func (f *cleaningFlags) options() core.Options {
	return core.Options{
		RemoveDuplicates: f.dedupe,
		FillMissing:      f.fill,
		Columns:          f.columns,
	}
}

// readFiles reads every path; a path that cannot be read aborts the command.
func readFiles(paths []string) ([]core.UploadedFile, error) {
	files := make([]core.UploadedFile, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		files = append(files, core.NewUploadedFile(filepath.Base(p), data))
	}
	return files, nil
}

// batchError summarizes files that did not complete.
func batchError(batch *core.BatchResult) error {
	if failed := len(batch.Files) - batch.Succeeded(); failed > 0 {
		return fmt.Errorf("%d of %d files were not processed", failed, len(batch.Files))
	}
	return nil
}
