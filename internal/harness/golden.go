package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"
)

// RunWithGolden executes a scenario and compares the materialized
// document against testdata/{scenario.Name}.golden.
//
// To regenerate golden files:
//
//	go test ./internal/harness -update
//
// Scenarios run on a fixed clock, so the document bytes are stable across
// runs and machines.
func RunWithGolden(t *testing.T, s *Scenario) error {
	t.Helper()

	result, err := Run(s)
	if err != nil {
		return err
	}

	data, err := result.Document.MarshalIndented()
	if err != nil {
		return err
	}

	g := goldie.New(t)
	g.Assert(t, s.Name, data)
	return nil
}
