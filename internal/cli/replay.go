package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/marloweapp/marlowe/internal/engine"
	"github.com/marloweapp/marlowe/internal/store"
)

// ReplayResult reports one replay verification run.
type ReplayResult struct {
	Events        int    `json:"events"`
	Applied       int    `json:"applied"`
	Skipped       int    `json:"skipped"`
	Entities      int    `json:"entities"`
	Fingerprint   string `json:"fingerprint"`
	Deterministic bool   `json:"deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the event log and verify determinism",
		Long: `Replay the full event log from an empty document, twice, and verify
both passes materialize an identical document.

Exit codes:
  0 - replay is deterministic
  1 - the two passes diverged, or events were skipped
  2 - command error (database not found, etc.)

Examples:
  marlowe replay --db ./marlowe.db
  marlowe replay --db ./marlowe.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(rootOpts, cmd)
		},
	}
	return cmd
}

func runReplay(opts *RootOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	events, err := st.LoadAll(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load events", err)
	}

	first, stats := engine.Replay(events, nil)
	second, _ := engine.Replay(events, nil)

	firstPrint, err := first.Fingerprint()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to fingerprint document", err)
	}
	secondPrint, err := second.Fingerprint()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to fingerprint document", err)
	}

	result := ReplayResult{
		Events:        len(events),
		Applied:       stats.Applied,
		Skipped:       stats.Skipped,
		Entities:      first.EntityCount(),
		Fingerprint:   firstPrint,
		Deterministic: firstPrint == secondPrint,
	}

	if err := writeResult(cmd.OutOrStdout(), opts.Format, result, func(w io.Writer) {
		fmt.Fprintf(w, "Replayed %d events: %d applied, %d skipped, %d entities\n",
			result.Events, result.Applied, result.Skipped, result.Entities)
		fmt.Fprintf(w, "Fingerprint: %s\n", result.Fingerprint)
		if result.Deterministic {
			fmt.Fprintln(w, "Replay is deterministic.")
		} else {
			fmt.Fprintln(w, "REPLAY DIVERGED between passes.")
		}
	}); err != nil {
		return err
	}

	if !result.Deterministic {
		return NewExitError(ExitFailure, "replay is not deterministic")
	}
	if result.Skipped > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d events skipped during replay", result.Skipped))
	}
	return nil
}
