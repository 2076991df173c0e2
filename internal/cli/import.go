package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/marloweapp/marlowe/internal/backup"
	"github.com/marloweapp/marlowe/internal/config"
	"github.com/marloweapp/marlowe/internal/engine"
	"github.com/marloweapp/marlowe/internal/store"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	In     string
	Mode   string
	Secret string
}

// ImportResult reports a completed import and the replay that followed.
type ImportResult struct {
	Mode        string `json:"mode"`
	Events      int    `json:"events"`
	Added       int    `json:"added"`
	Collisions  int    `json:"collisions"`
	Applied     int    `json:"applied"`
	Skipped     int    `json:"skipped"`
	Fingerprint string `json:"fingerprint"`
}

// NewImportCommand creates the import command. Config supplies the secret
// default.
func NewImportCommand(rootOpts *RootOptions, cfg *config.Config) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import an encrypted backup into the event log",
		Long: `Decrypt a backup file and install its events.

Replace mode discards the local log and installs the backup's events.
Merge mode unions the two logs; on an event id collision the local event
wins. Both modes finish with a full replay, never by patching state.

Exit codes:
  0 - import succeeded
  1 - replay after import skipped events
  2 - command error (bad envelope, wrong secret, database not found)

Examples:
  marlowe import --db ./marlowe.db --in backup.mbk --mode merge
  marlowe import --in backup.mbk --mode replace`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, cfg, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.In, "in", "", "backup file to read (required)")
	_ = cmd.MarkFlagRequired("in")
	cmd.Flags().StringVar(&opts.Mode, "mode", "merge", "import mode (replace|merge)")
	cmd.Flags().StringVar(&opts.Secret, "secret", "", "backup secret (defaults to MARLOWE_DEVICE_SECRET)")

	return cmd
}

func runImport(opts *ImportOptions, cfg *config.Config, cmd *cobra.Command) error {
	ctx := context.Background()

	mode, err := backup.ParseMode(opts.Mode)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid mode", err)
	}
	secret, err := resolveSecret(opts.Secret, cfg)
	if err != nil {
		return err
	}

	blob, err := os.ReadFile(opts.In)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read backup file", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	codec := backup.NewCodec(st, "", secret, nil)
	res, err := codec.Import(ctx, blob, mode)
	if err != nil {
		var verr *backup.VersionError
		var derr *backup.DecryptionError
		switch {
		case errors.As(err, &verr):
			return WrapExitError(ExitCommandError, "unsupported backup version", err)
		case errors.As(err, &derr):
			return WrapExitError(ExitCommandError, "failed to decrypt backup (wrong secret?)", err)
		default:
			return WrapExitError(ExitCommandError, "failed to import backup", err)
		}
	}

	// Imports always end with a full replay of the merged log.
	events, err := st.LoadAll(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load merged log", err)
	}
	doc, stats := engine.Replay(events, nil)
	fingerprint, err := doc.Fingerprint()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to fingerprint document", err)
	}

	result := ImportResult{
		Mode:        string(res.Mode),
		Events:      res.Events,
		Added:       res.Added,
		Collisions:  res.Collisions,
		Applied:     stats.Applied,
		Skipped:     stats.Skipped,
		Fingerprint: fingerprint,
	}
	if err := writeResult(cmd.OutOrStdout(), opts.Format, result, func(w io.Writer) {
		fmt.Fprintf(w, "Imported %d events in %s mode: %d added, %d collisions\n",
			result.Events, result.Mode, result.Added, result.Collisions)
		fmt.Fprintf(w, "Replayed: %d applied, %d skipped\n", result.Applied, result.Skipped)
		fmt.Fprintf(w, "Fingerprint: %s\n", result.Fingerprint)
	}); err != nil {
		return err
	}

	if stats.Skipped > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d events skipped during replay", stats.Skipped))
	}
	return nil
}
