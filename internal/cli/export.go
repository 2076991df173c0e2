package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/marloweapp/marlowe/internal/backup"
	"github.com/marloweapp/marlowe/internal/config"
	"github.com/marloweapp/marlowe/internal/store"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Out      string
	DeviceID string
	Secret   string
}

// ExportResult reports a completed export.
type ExportResult struct {
	Out    string `json:"out"`
	Events int    `json:"events"`
	Bytes  int    `json:"bytes"`
}

// NewExportCommand creates the export command. Config supplies the device
// id and secret defaults.
func NewExportCommand(rootOpts *RootOptions, cfg *config.Config) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the event log as an encrypted backup",
		Long: `Serialize the full event log to canonical JSON, encrypt it with the
device secret, and write the backup envelope to a file.

The secret is read from --secret or the MARLOWE_DEVICE_SECRET environment
variable; it is never stored in the backup.

Examples:
  marlowe export --db ./marlowe.db --out backup.mbk
  MARLOWE_DEVICE_SECRET=... marlowe export --out backup.mbk`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cfg, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Out, "out", "", "backup file to write (required)")
	_ = cmd.MarkFlagRequired("out")
	cmd.Flags().StringVar(&opts.DeviceID, "device", cfg.DeviceID, "device id recorded in the envelope")
	// The secret is deliberately not a flag default: it would show up in
	// --help output.
	cmd.Flags().StringVar(&opts.Secret, "secret", "", "backup secret (defaults to MARLOWE_DEVICE_SECRET)")

	return cmd
}

func runExport(opts *ExportOptions, cfg *config.Config, cmd *cobra.Command) error {
	ctx := context.Background()

	secret, err := resolveSecret(opts.Secret, cfg)
	if err != nil {
		return err
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	count, err := st.CountEvents(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to count events", err)
	}

	codec := backup.NewCodec(st, opts.DeviceID, secret, nil)
	blob, err := codec.Export(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to export backup", err)
	}

	if err := os.WriteFile(opts.Out, blob, 0o600); err != nil {
		return WrapExitError(ExitCommandError, "failed to write backup file", err)
	}

	result := ExportResult{Out: opts.Out, Events: count, Bytes: len(blob)}
	return writeResult(cmd.OutOrStdout(), opts.Format, result, func(w io.Writer) {
		fmt.Fprintf(w, "Exported %d events (%d bytes) to %s\n", result.Events, result.Bytes, result.Out)
	})
}

// resolveSecret takes the flag value or falls back to the loaded
// configuration (which already carries MARLOWE_DEVICE_SECRET).
func resolveSecret(flag string, cfg *config.Config) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if cfg.DeviceSecret != "" {
		return cfg.DeviceSecret, nil
	}
	return "", NewExitError(ExitCommandError, "no backup secret: pass --secret or set MARLOWE_DEVICE_SECRET")
}
