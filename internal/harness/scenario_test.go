package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScenario(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: minimal
batches:
  - events:
      - type: contact.created
        payload: {id: c1, firstName: Ada}
`))
	require.NoError(t, err)
	assert.Equal(t, "minimal", s.Name)
	require.Len(t, s.Batches, 1)
	require.Len(t, s.Batches[0].Events, 1)
	assert.Equal(t, "contact.created", s.Batches[0].Events[0].Type)
	assert.Equal(t, "c1", s.Batches[0].Events[0].Payload["id"])
}

func TestParseScenarioRejectsUnknownField(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo
bathces:
  - events:
      - type: contact.created
`))
	require.Error(t, err)
}

func TestParseScenarioMissingName(t *testing.T) {
	_, err := ParseScenario([]byte(`
batches:
  - events:
      - type: contact.created
`))
	require.ErrorContains(t, err, "missing name")
}

func TestParseScenarioNoBatches(t *testing.T) {
	_, err := ParseScenario([]byte(`name: empty`))
	require.ErrorContains(t, err, "no batches")
}

func TestParseScenarioEventWithoutType(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: no-type
batches:
  - events:
      - payload: {id: c1}
`))
	require.ErrorContains(t, err, "has no type")
}

func TestLoadScenarioFiles(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		s, err := LoadScenario(path)
		require.NoError(t, err, path)
		assert.NotEmpty(t, s.Name, path)
	}
}
