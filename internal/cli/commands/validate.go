package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/iamconv/internal/cli/config"
	"github.com/leapstack-labs/iamconv/internal/convert"
	"github.com/leapstack-labs/iamconv/internal/index"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the index file and lookup configuration",
		Long: `Parse the index file and the indices configuration without reading
any dataset. Reports alias collisions, malformed aggregation rules,
unparseable variable templates, and placeholders that cannot resolve
from the entry's columns or a configured default.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd)
		},
	}
}

func runValidate(cmd *cobra.Command) error {
	cfg := config.GetConfig(cmd.Context())
	if cfg.Index == "" {
		return fmt.Errorf("no index file specified (use --index or set index in iamconv.yaml)")
	}

	entries, err := index.Load(cfg.Index)
	if err != nil {
		return err
	}

	// New checks lookups and every template without touching datasets.
	conv, err := convert.New(convert.Config{
		Entries:  entries,
		Indices:  cfg.Indices,
		BasePath: cfg.BasePath,
		Logger:   config.GetLogger(cmd.Context()),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: OK (%d entries, %d convertible)\n",
		cfg.Index, len(entries), len(conv.Entries()))
	return nil
}
