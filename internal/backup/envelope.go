// Package backup exports and imports the full event log as a single
// encrypted blob. The envelope carries everything needed to decrypt with
// nothing but the device secret, so a backup restores onto a fresh
// install.
package backup

import (
	"encoding/json"
	"fmt"
)

// FormatVersion is the only envelope version this build reads and writes.
const FormatVersion = 1

// Envelope is the outer, unencrypted frame of a backup blob. The
// ciphertext holds the canonical-JSON event log.
type Envelope struct {
	FormatVersion int    `json:"format_version"`
	ExportedAt    string `json:"exported_at"`
	DeviceID      string `json:"device_id"`
	Salt          []byte `json:"salt"`
	Nonce         []byte `json:"nonce"`
	Ciphertext    []byte `json:"ciphertext"`
}

// VersionError reports an envelope whose format version this build does
// not understand. The envelope is otherwise intact; a newer build may be
// able to read it.
type VersionError struct {
	Got int
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("unsupported backup format version %d (this build reads version %d)", e.Got, FormatVersion)
}

// DecryptionError reports a backup that could not be decrypted: wrong
// secret, truncated blob, or tampered ciphertext. The causes are
// indistinguishable by construction.
type DecryptionError struct {
	Err error
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("decrypt backup: %v", e.Err)
}

func (e *DecryptionError) Unwrap() error { return e.Err }

// parseEnvelope decodes and version-checks the outer frame.
func parseEnvelope(blob []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return Envelope{}, fmt.Errorf("parse backup envelope: %w", err)
	}
	if env.FormatVersion != FormatVersion {
		return Envelope{}, &VersionError{Got: env.FormatVersion}
	}
	return env, nil
}
