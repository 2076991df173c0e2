package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marloweapp/marlowe/internal/engine"
	"github.com/marloweapp/marlowe/internal/store"
)

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Materialize and print the document",
		Long: `Replay the full event log and print the materialized document as JSON,
with the entity count and fingerprint on stderr.

Examples:
  marlowe show --db ./marlowe.db
  marlowe show > document.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(rootOpts, cmd)
		},
	}
	return cmd
}

func runShow(opts *RootOptions, cmd *cobra.Command) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	events, err := st.LoadAll(context.Background())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load events", err)
	}

	doc, stats := engine.Replay(events, nil)
	data, err := doc.MarshalIndented()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to marshal document", err)
	}
	fingerprint, err := doc.Fingerprint()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to fingerprint document", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(data))

	errW := cmd.ErrOrStderr()
	fmt.Fprintf(errW, "%d entities from %d events (%d skipped)\n",
		doc.EntityCount(), len(events), stats.Skipped)
	fmt.Fprintf(errW, "fingerprint: %s\n", fingerprint)
	return nil
}
