package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/iamconv/internal/cli/config"
	"github.com/leapstack-labs/iamconv/internal/index"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the index entries and their variable templates",
		Long: `List every entry in the index file with its dataset path, index
columns, and IAMC variable template. Entries without an iamc key are
shown as skipped; they never reach the output.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd)
		},
	}
}

func runList(cmd *cobra.Command) error {
	cfg := config.GetConfig(cmd.Context())
	if cfg.Index == "" {
		return fmt.Errorf("no index file specified (use --index or set index in iamconv.yaml)")
	}

	entries, err := index.Load(cfg.Index)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Name", "Path", "Index Columns", "Variable"})

	convertible := 0
	for i := range entries {
		e := &entries[i]
		variable := e.IAMC
		if !e.HasIAMC() {
			variable = "(skipped)"
		} else {
			convertible++
		}
		name := e.Name
		if name == "" {
			name = "-"
		}
		t.AppendRow(table.Row{name, e.Path, strings.Join(e.CanonicalIdxCols(), ", "), variable})
	}
	t.Render()

	fmt.Fprintf(cmd.OutOrStdout(), "%d entries, %d convertible\n", len(entries), convertible)
	return nil
}
