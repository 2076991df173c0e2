// Package cli implements the marlowe command line interface.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marloweapp/marlowe/internal/config"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	Database string
	Verbose  bool
	Format   string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the marlowe CLI. Loaded
// configuration supplies the flag defaults, so MARLOWE_* environment
// variables take effect unless a flag overrides them; a nil cfg uses the
// built-in defaults.
func NewRootCommand(cfg *config.Config) *cobra.Command {
	if cfg == nil {
		cfg = config.Default()
	}
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "marlowe",
		Short: "Marlowe - local-first CRM data layer",
		Long: "Marlowe keeps a CRM as an append-only event log, materializes it\n" +
			"into a document by deterministic replay, and syncs appointments\n" +
			"with an external calendar.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", cfg.DBPath, "path to SQLite database")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewExportCommand(opts, cfg))
	cmd.AddCommand(NewImportCommand(opts, cfg))
	cmd.AddCommand(NewSyncCommand(opts, cfg))
	cmd.AddCommand(NewLogCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
