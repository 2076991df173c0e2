package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/marloweapp/marlowe/internal/event"
	"github.com/marloweapp/marlowe/internal/store"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	Limit int
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "List recent events from the log",
		Long: `List the most recent events, newest first.

Examples:
  marlowe log --db ./marlowe.db
  marlowe log -n 50 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "number of events to show")

	return cmd
}

func runLog(opts *LogOptions, cmd *cobra.Command) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	events, err := st.ListRecent(context.Background(), opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list events", err)
	}

	return writeResult(cmd.OutOrStdout(), opts.Format, events, func(w io.Writer) {
		if len(events) == 0 {
			fmt.Fprintln(w, "No events in log.")
			return
		}
		for _, ev := range events {
			printEvent(w, ev)
		}
	})
}

func printEvent(w io.Writer, ev event.Event) {
	target := ev.EntityID
	if target == "" {
		if id, ok := ev.Payload["id"].(string); ok {
			target = id
		}
	}
	fmt.Fprintf(w, "%s  %-32s %-20s device=%s id=%s\n",
		ev.Timestamp, ev.Type, target, ev.DeviceID, ev.ID)
}
