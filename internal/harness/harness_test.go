package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/materialscodegraph/materialscodegraph/internal/asset"
)

const calculatorDefinition = `name: materials calculator
methods:
  phonon:
    input_template: "task = phonon"
  elastic:
    input_template: "task = elastic"
execution:
  mode: local
  local:
    executable: calc
parsers:
  summary:
    type: json
output_files:
  - pattern: "*.json"
    parser: summary
results:
  format:
    band_gap:
      unit: eV
`

func happyScenario() *Scenario {
	return &Scenario{
		Name:       "calculator-inline",
		Definition: calculatorDefinition,
		Params:     map[string]any{"temperature": 300},
		Tool: ToolScript{
			Files: map[string]string{"results.json": `{"band_gap": 1.12}`},
		},
		Expect: ExpectClause{
			Method: "phonon",
			Results: map[string]any{
				"band_gap":    1.12,
				"temperature": 300,
			},
			EdgeRels: []string{"PRODUCES", "LOGS"},
		},
	}
}

func TestRunHappyPath(t *testing.T) {
	result, err := Run(happyScenario())
	require.NoError(t, err)

	assert.True(t, result.Pass, "failures: %v", result.Errors)
	assert.Equal(t, "R0000001", result.Run.ID)
	assert.Equal(t, asset.StatusDone, result.Run.Status)
	assert.Equal(t, "phonon", result.Method)
	assert.Equal(t, "eV", result.Results.Units["band_gap"])
}

func TestRunWithSeededInput(t *testing.T) {
	s := happyScenario()
	s.Inputs = []InputAsset{{
		Kind: "System",
		Payload: map[string]any{
			"atoms":   []any{map[string]any{"el": "Si", "pos": []any{0, 0, 0}}},
			"lattice": []any{[]any{5.43, 0, 0}, []any{0, 5.43, 0}, []any{0, 0, 5.43}},
			"pbc":     []any{true, true, true},
		},
	}}
	s.Expect.EdgeRels = []string{"USES", "PRODUCES", "LOGS"}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "failures: %v", result.Errors)
}

func TestRunRejectsMalformedInput(t *testing.T) {
	s := happyScenario()
	s.Inputs = []InputAsset{{
		Kind: "System",
		Payload: map[string]any{
			"atoms": []any{map[string]any{"el": "Si", "pos": []any{0, 0, 0}}},
		},
	}}

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lattice")
}

func TestRunDetectsMismatch(t *testing.T) {
	s := happyScenario()
	s.Expect.Results["band_gap"] = 9.99

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "band_gap")
}

func TestRunExpectedFailure(t *testing.T) {
	s := happyScenario()
	s.Tool = ToolScript{ExitCode: 3}
	s.Expect = ExpectClause{ErrorCode: "EXEC_FAILED"}

	result, err := Run(s)
	require.NoError(t, err)

	assert.True(t, result.Pass, "failures: %v", result.Errors)
	require.Error(t, result.Err)
	assert.Equal(t, asset.StatusError, result.Run.Status)
}

func TestRunUnexpectedSuccess(t *testing.T) {
	s := happyScenario()
	s.Expect = ExpectClause{ErrorCode: "EXEC_FAILED"}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
}

func TestLoadScenario(t *testing.T) {
	doc := `name: from-yaml
definition: |
  name: calc
  methods:
    run:
      input_template: "go"
  execution:
    mode: local
    local:
      executable: calc
  parsers:
    out:
      type: json
  output_files:
    - pattern: "*.json"
      parser: out
params:
  steps: 100
tool:
  files:
    out.json: '{"ok": true}'
expect:
  results:
    ok: true
`
	s, err := LoadScenario([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "from-yaml", s.Name)
	assert.Equal(t, 100, s.Params["steps"])

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "failures: %v", result.Errors)
}

func TestLoadScenarioRejectsBadInputKind(t *testing.T) {
	_, err := LoadScenario([]byte(`name: bad
definition: "name: x"
inputs:
  - kind: Blob
    payload: {}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown kind")
}

func TestLoadScenarioRequiresName(t *testing.T) {
	_, err := LoadScenario([]byte(`definition: "name: x"`))
	require.Error(t, err)
}
