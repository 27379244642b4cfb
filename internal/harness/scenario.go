package harness

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/materialscodegraph/materialscodegraph/internal/asset"
)

// Scenario defines a conformance test for the execution engine.
// A scenario carries everything one run needs: the job definition,
// the parameters, the inputs, and a scripted tool whose output files
// stand in for a real subprocess. Expectations validate the outcome
// and the appended lineage.
type Scenario struct {
	// Name uniquely identifies this scenario. It doubles as the golden
	// file name for RunWithGolden.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Definition is the inline job definition document (YAML).
	Definition string `yaml:"definition"`

	// Job names the definition to execute. Defaults to the definition's
	// declared name when empty.
	Job string `yaml:"job,omitempty"`

	// Params are the caller parameters for the run.
	Params map[string]any `yaml:"params,omitempty"`

	// Inputs are assets seeded into the ledger before the run.
	Inputs []InputAsset `yaml:"inputs,omitempty"`

	// Tool scripts what the fake tool leaves behind.
	Tool ToolScript `yaml:"tool,omitempty"`

	// Expect validates the outcome.
	Expect ExpectClause `yaml:"expect,omitempty"`
}

// InputAsset is one seeded input, content-addressed on load.
type InputAsset struct {
	Kind    string            `yaml:"kind"`
	Payload map[string]any    `yaml:"payload"`
	Units   map[string]string `yaml:"units,omitempty"`
}

// ToolScript describes the fake tool: the files it writes into the
// scratch directory and its exit code.
type ToolScript struct {
	Files    map[string]string `yaml:"files,omitempty"`
	ExitCode int               `yaml:"exit_code,omitempty"`
}

// ExpectClause specifies the expected outcome. Results is a subset
// match: only the listed fields are validated. An ErrorCode expectation
// flips the scenario to a failure test; the run must fail with that
// code and the other clauses are ignored.
type ExpectClause struct {
	Status    string         `yaml:"status,omitempty"`
	Method    string         `yaml:"method,omitempty"`
	Results   map[string]any `yaml:"results,omitempty"`
	EdgeRels  []string       `yaml:"edge_rels,omitempty"`
	ErrorCode string         `yaml:"error_code,omitempty"`
}

// LoadScenario parses a scenario document.
func LoadScenario(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("parse scenario: missing name")
	}
	if s.Definition == "" {
		return nil, fmt.Errorf("parse scenario %s: missing definition", s.Name)
	}
	for i, in := range s.Inputs {
		if !asset.ValidKinds[asset.Kind(in.Kind)] {
			return nil, fmt.Errorf("parse scenario %s: inputs[%d]: unknown kind %q", s.Name, i, in.Kind)
		}
	}
	return &s, nil
}

// LoadScenarioFile reads and parses a scenario from disk.
func LoadScenarioFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	return LoadScenario(data)
}
