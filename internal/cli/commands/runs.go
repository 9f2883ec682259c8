package commands

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/iamconv/internal/cli/config"
	"github.com/leapstack-labs/iamconv/internal/state"
)

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "Show recent conversion runs",
		Long: `Show the recorded conversion runs from the state database, newest
first. With a run ID, show that run's per-entry results and warnings.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runShowRun(cmd, args[0])
			}
			return runListRuns(cmd, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	return cmd
}

func openStore(cmd *cobra.Command) (*state.SQLiteStore, error) {
	cfg := config.GetConfig(cmd.Context())
	if cfg.StatePath == "" {
		return nil, fmt.Errorf("no state database configured (set state_path or --state)")
	}

	store := state.NewSQLiteStore(config.GetLogger(cmd.Context()))
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func runListRuns(cmd *cobra.Command, limit int) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.ListRuns(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Index", "Status", "Started", "Duration", "Rows"})

	for _, run := range runs {
		duration := "-"
		if run.CompletedAt != nil {
			duration = run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
		}
		t.AppendRow(table.Row{
			shortID(run.ID),
			run.IndexPath,
			string(run.Status),
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			duration,
			run.RowCount,
		})
	}
	t.Render()
	return nil
}

func runShowRun(cmd *cobra.Command, id string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	run, err := resolveRun(store, id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s\n", run.ID)
	fmt.Fprintf(out, "  Index:   %s\n", run.IndexPath)
	fmt.Fprintf(out, "  Status:  %s\n", run.Status)
	fmt.Fprintf(out, "  Started: %s\n", run.StartedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(out, "  Rows:    %d\n", run.RowCount)
	if run.Error != "" {
		fmt.Fprintf(out, "  Error:   %s\n", run.Error)
	}

	results, err := store.GetEntryResults(run.ID)
	if err != nil {
		return err
	}
	if len(results) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(out)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Entry", "Path", "Rows", "Duration", "Status"})
		for _, r := range results {
			status := "ok"
			if r.Error != "" {
				status = r.Error
			}
			name := r.Name
			if name == "" {
				name = "-"
			}
			t.AppendRow(table.Row{name, r.Path, r.RowCount,
				(time.Duration(r.DurationMS) * time.Millisecond).String(), status})
		}
		t.Render()
	}

	warnings, err := store.GetWarnings(run.ID)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
	return nil
}

// resolveRun accepts a full run ID or an unambiguous prefix.
func resolveRun(store *state.SQLiteStore, id string) (*state.Run, error) {
	if run, err := store.GetRun(id); err == nil {
		return run, nil
	}

	runs, err := store.ListRuns(1000)
	if err != nil {
		return nil, err
	}
	var match *state.Run
	for _, run := range runs {
		if len(id) > 0 && len(run.ID) >= len(id) && run.ID[:len(id)] == id {
			if match != nil {
				return nil, fmt.Errorf("ambiguous run ID prefix: %s", id)
			}
			match = run
		}
	}
	if match == nil {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
