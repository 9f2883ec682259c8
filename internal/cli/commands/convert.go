// Package commands implements the iamconv subcommands.
package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/iamconv/internal/cli/config"
	"github.com/leapstack-labs/iamconv/internal/convert"
	"github.com/leapstack-labs/iamconv/internal/index"
	"github.com/leapstack-labs/iamconv/internal/sink"
	"github.com/leapstack-labs/iamconv/internal/state"
)

// NewConvertCommand creates the convert command.
func NewConvertCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "convert [dataset...]",
		Short: "Convert the indexed datasets to the IAMC format",
		Long: `Convert every dataset in the index file into one IAMC long-format
table and write it to the configured sink. Positional arguments narrow
the run to entries matched by name or path.

Entries run concurrently (see --jobs). With --keep-going a failing
entry is recorded and the remaining entries still convert; without it
the first failure aborts the run.`,
		Example: `  # Convert to stdout
  iamconv convert -i index.yaml

  # Convert to a CSV file, years pivoted into columns
  iamconv convert -i index.yaml -o result.csv --wide

  # Convert only the generation dataset
  iamconv convert -i index.yaml generation`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, args)
		},
	}
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.GetConfig(ctx)
	logger := config.GetLogger(ctx)

	if cfg.Index == "" {
		return fmt.Errorf("no index file specified (use --index or set index in iamconv.yaml)")
	}

	entries, err := index.Load(cfg.Index)
	if err != nil {
		return err
	}

	conv, err := convert.New(convert.Config{
		Entries:   entries,
		Indices:   cfg.Indices,
		BasePath:  cfg.BasePath,
		Jobs:      cfg.Jobs,
		KeepGoing: cfg.KeepGoing,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	if len(args) > 0 {
		if err := conv.Select(args); err != nil {
			return err
		}
	}
	if len(conv.Entries()) == 0 {
		return convert.ErrNoEntries
	}

	store, run, err := openRun(cfg, logger)
	if err != nil {
		return err
	}
	if store != nil {
		defer func() { _ = store.Close() }()
	}

	result, err := conv.Run(ctx)
	if err != nil {
		recordRun(store, run, nil, state.RunStatusFailed, 0, err.Error(), logger)
		return err
	}

	if err := writeSink(cmd, cfg, result); err != nil {
		recordRun(store, run, result, state.RunStatusFailed, result.Table.Len(), err.Error(), logger)
		return err
	}

	status := state.RunStatusCompleted
	errMsg := ""
	failed := result.Failed()
	if len(failed) > 0 {
		status = state.RunStatusFailed
		errMsg = fmt.Sprintf("%d of %d entries failed", len(failed), len(result.Entries))
	}
	recordRun(store, run, result, status, result.Table.Len(), errMsg, logger)

	printSummary(summaryWriter(cmd, cfg), result)

	if len(failed) > 0 {
		errs := make([]error, 0, len(failed)+1)
		errs = append(errs, fmt.Errorf("%s", errMsg))
		for _, er := range failed {
			errs = append(errs, fmt.Errorf("%s: %w", er.Path, er.Err))
		}
		return errors.Join(errs...)
	}
	return nil
}

// openRun opens the run-history store and records the run start. An
// empty state path disables history.
func openRun(cfg *config.Config, logger *slog.Logger) (*state.SQLiteStore, *state.Run, error) {
	if cfg.StatePath == "" {
		return nil, nil, nil
	}

	if dir := filepath.Dir(cfg.StatePath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store := state.NewSQLiteStore(logger)
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, nil, err
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	run, err := store.CreateRun(cfg.Index, cfg.Sink.Path)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return store, run, nil
}

// recordRun persists the run outcome. History failures only warn; the
// conversion result has already been produced.
func recordRun(store *state.SQLiteStore, run *state.Run, result *convert.Result, status state.RunStatus, rows int, errMsg string, logger *slog.Logger) {
	if store == nil || run == nil {
		return
	}

	if result != nil {
		entryResults := make([]state.EntryResult, 0, len(result.Entries))
		for _, er := range result.Entries {
			sr := state.EntryResult{
				Name:       er.Name,
				Path:       er.Path,
				RowCount:   er.Rows,
				DurationMS: er.Duration.Milliseconds(),
			}
			if er.Err != nil {
				sr.Error = er.Err.Error()
			}
			entryResults = append(entryResults, sr)
		}
		if err := store.SaveEntryResults(run.ID, entryResults); err != nil {
			logger.Warn("failed to save entry results", "error", err)
		}

		if len(result.Warnings) > 0 {
			msgs := make([]string, len(result.Warnings))
			for i, w := range result.Warnings {
				msgs[i] = w.Error()
			}
			if err := store.SaveWarnings(run.ID, msgs); err != nil {
				logger.Warn("failed to save warnings", "error", err)
			}
		}
	}

	if err := store.CompleteRun(run.ID, status, rows, errMsg); err != nil {
		logger.Warn("failed to complete run record", "error", err)
	}
}

// writeSink sends the table to the configured sink. The CSV sink with
// no path writes to stdout.
func writeSink(cmd *cobra.Command, cfg *config.Config, result *convert.Result) error {
	ctx := cmd.Context()
	logger := config.GetLogger(ctx)

	s, err := sink.New(*cfg.Sink, logger)
	if err != nil {
		return err
	}
	if err := s.Open(ctx, *cfg.Sink); err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	if err := s.Write(ctx, result.Table); err != nil {
		return err
	}
	return nil
}

// summaryWriter picks where the run summary goes: stderr when the CSV
// sink occupies stdout, stdout otherwise.
func summaryWriter(cmd *cobra.Command, cfg *config.Config) io.Writer {
	if cfg.Sink.Type == "csv" && (cfg.Sink.Path == "" || cfg.Sink.Path == "-") {
		return cmd.ErrOrStderr()
	}
	return cmd.OutOrStdout()
}

func printSummary(w io.Writer, result *convert.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Entry", "Path", "Rows", "Duration", "Status"})

	var total time.Duration
	for _, er := range result.Entries {
		status := "ok"
		if er.Err != nil {
			status = er.Err.Error()
		}
		name := er.Name
		if name == "" {
			name = "-"
		}
		t.AppendRow(table.Row{name, er.Path, er.Rows, er.Duration.Round(time.Millisecond), status})
		total += er.Duration
	}
	t.AppendFooter(table.Row{"total", "", result.Table.Len(), total.Round(time.Millisecond), ""})
	t.Render()

	if n := len(result.Warnings); n > 0 {
		fmt.Fprintf(w, "%d duplicate IAMC key(s) dropped; first occurrence kept\n", n)
	}
}
