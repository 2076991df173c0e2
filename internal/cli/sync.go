package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marloweapp/marlowe/internal/config"
	"github.com/marloweapp/marlowe/internal/engine"
	"github.com/marloweapp/marlowe/internal/store"
	"github.com/marloweapp/marlowe/internal/sync"
)

// SyncOptions holds flags for the sync commands.
type SyncOptions struct {
	*RootOptions
	CalendarID  string
	CalendarDir string
	DeviceID    string
}

// SyncResult reports one reconciliation pass.
type SyncResult struct {
	Links   int `json:"links"`
	Pushed  int `json:"pushed"`
	Pulled  int `json:"pulled"`
	Noops   int `json:"noops"`
	Deleted int `json:"deleted"`
	Errors  int `json:"errors"`
}

// NewSyncCommand creates the sync command group. Config supplies the
// calendar, directory, device, and schedule defaults.
func NewSyncCommand(rootOpts *RootOptions, cfg *config.Config) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile appointments with the external calendar",
	}

	deviceDefault := cfg.DeviceID
	if deviceDefault == "" {
		deviceDefault = "cli"
	}
	cmd.PersistentFlags().StringVar(&opts.CalendarID, "calendar", cfg.CalendarID, "external calendar id")
	cmd.PersistentFlags().StringVar(&opts.CalendarDir, "calendar-dir", cfg.CalendarDir, "directory holding .ics calendar files")
	cmd.PersistentFlags().StringVar(&opts.DeviceID, "device", deviceDefault, "device id for pulled events")

	run := &cobra.Command{
		Use:   "run",
		Short: "Run one reconciliation pass over all links",
		Long: `Run one reconciliation pass: for every sync link, derive push, pull,
or no-op from the link's timestamps, apply it, and advance the cursors.
Per-link provider errors are counted, not fatal.

Examples:
  marlowe sync run --db ./marlowe.db --calendar personal
  marlowe sync run --calendar-dir ~/calendars --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(opts, cmd)
		},
	}
	cmd.AddCommand(run)

	link := &cobra.Command{
		Use:   "link <appointment-id> [external-event-id]",
		Short: "Link an appointment to an external calendar event",
		Long: `Create a sync link for an appointment. With no external event id, a
new external event is created from the appointment.`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			externalID := ""
			if len(args) == 2 {
				externalID = args[1]
			}
			return runSyncLink(opts, cmd, args[0], externalID)
		},
	}
	cmd.AddCommand(link)

	var schedule string
	watch := &cobra.Command{
		Use:   "watch",
		Short: "Run reconciliation passes on a schedule until interrupted",
		Long: `Start the sync scheduler and keep reconciling until SIGINT/SIGTERM.
Overlapping passes are dropped, not queued.

Examples:
  marlowe sync watch --every "@every 5m"
  marlowe sync watch --calendar work`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSyncWatch(opts, cmd, schedule)
		},
	}
	watch.Flags().StringVar(&schedule, "every", cfg.SyncSchedule, "cron spec for reconciliation passes")
	cmd.AddCommand(watch)

	return cmd
}

func runSyncWatch(opts *SyncOptions, cmd *cobra.Command, schedule string) error {
	ctx := context.Background()

	r, eng, st, err := buildReconciler(ctx, opts)
	if err != nil {
		return err
	}
	defer st.Close()
	defer eng.Close()

	sched, err := sync.NewScheduler(r, schedule, nil)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build schedule", err)
	}
	sched.Start()
	defer sched.Stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Reconciling %q on %q; Ctrl-C to stop.\n", opts.CalendarID, schedule)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	return nil
}

// buildReconciler opens the store, rebuilds the document, and wires the
// reconciler over the ics provider.
func buildReconciler(ctx context.Context, opts *SyncOptions) (*sync.Reconciler, *engine.Engine, *store.Store, error) {
	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	eng := engine.New(st, nil)
	if _, err := eng.Rebuild(ctx); err != nil {
		eng.Close()
		st.Close()
		return nil, nil, nil, WrapExitError(ExitCommandError, "failed to rebuild document", err)
	}

	r := sync.New(sync.Config{
		Store:      st,
		Engine:     eng,
		Provider:   sync.NewICSProvider(opts.CalendarDir),
		CalendarID: opts.CalendarID,
		DeviceID:   opts.DeviceID,
	})
	return r, eng, st, nil
}

func runSync(opts *SyncOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	r, eng, st, err := buildReconciler(ctx, opts)
	if err != nil {
		return err
	}
	defer st.Close()
	defer eng.Close()

	summary, err := r.Run(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "reconciliation failed", err)
	}
	eng.Flush()

	result := SyncResult{
		Links:   summary.Links,
		Pushed:  summary.Pushed,
		Pulled:  summary.Pulled,
		Noops:   summary.Noops,
		Deleted: summary.Deleted,
		Errors:  summary.Errors,
	}
	return writeResult(cmd.OutOrStdout(), opts.Format, result, func(w io.Writer) {
		fmt.Fprintf(w, "Reconciled %d links: %d pushed, %d pulled, %d no-ops, %d deleted, %d errors\n",
			result.Links, result.Pushed, result.Pulled, result.Noops, result.Deleted, result.Errors)
	})
}

func runSyncLink(opts *SyncOptions, cmd *cobra.Command, appointmentID, externalEventID string) error {
	ctx := context.Background()

	r, eng, st, err := buildReconciler(ctx, opts)
	if err != nil {
		return err
	}
	defer st.Close()
	defer eng.Close()

	link, err := r.Link(ctx, appointmentID, externalEventID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to link appointment", err)
	}

	return writeResult(cmd.OutOrStdout(), opts.Format, link, func(w io.Writer) {
		fmt.Fprintf(w, "Linked appointment %s to external event %s (link %s)\n",
			link.AppointmentID, link.ExternalEventID, link.ID)
	})
}
