package engine

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/materialscodegraph/materialscodegraph/internal/registry"
)

func TestRenderSubstitution(t *testing.T) {
	ctx := map[string]any{
		"T":    300,
		"mesh": "8 8 8",
	}
	cases := []struct {
		name     string
		template string
		want     string
	}{
		{"bare placeholder", "temp $T", "temp 300"},
		{"braced placeholder", "temp ${T}K", "temp 300K"},
		{"two placeholders", "$T on $mesh", "300 on 8 8 8"},
		{"unknown stays verbatim", "val ${unknown_key}", "val ${unknown_key}"},
		{"unknown bare stays verbatim", "val $missing", "val $missing"},
		{"dollar escape", "cost $$5 at $T", "cost $5 at 300"},
		{"lone dollar untouched", "a $ b", "a $ b"},
		{"adjacent text", "x${T}y", "x300y"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, RenderTemplate(tc.template, ctx))
		})
	}
}

func TestRenderArrayIndexing(t *testing.T) {
	ctx := map[string]any{
		"supercell": []any{4, 5, 6},
		"scalar":    7,
	}
	cases := []struct {
		name     string
		template string
		want     string
	}{
		{"first element", "nx = ${supercell[0]}", "nx = 4"},
		{"last element", "nz = ${supercell[2]}", "nz = 6"},
		{"out of range verbatim", "bad = ${supercell[9]}", "bad = ${supercell[9]}"},
		{"non-list verbatim", "bad = ${scalar[0]}", "bad = ${scalar[0]}"},
		{"unknown verbatim", "bad = ${nothing[0]}", "bad = ${nothing[0]}"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, RenderTemplate(tc.template, ctx))
		})
	}
}

func TestRenderIntegralFloatsPrintAsIntegers(t *testing.T) {
	// JSON-decoded params arrive as float64.
	ctx := map[string]any{"steps": 1000.0, "dt": 0.5}
	assert.Equal(t, "run 1000 0.5", RenderTemplate("run $steps $dt", ctx))
}

// TestRenderGolden renders a realistic simulator input deterministically
// and compares against the golden file. Regenerate with:
//
//	go test ./internal/engine -run TestRenderGolden -update
func TestRenderGolden(t *testing.T) {
	def := &registry.Definition{
		Name: "Molecular Simulator",
		Aliases: []registry.Alias{
			{Canonical: "T", Names: []string{"temperature"}},
		},
		Builders: []registry.ContextBuilder{
			{
				Name:      "mesh_string",
				Kind:      registry.BuilderTransform,
				Source:    "mesh",
				Transform: registry.Transform{Kind: registry.TransformListToString, Separator: " "},
			},
			{
				Name:    "prod_steps",
				Kind:    registry.BuilderComputed,
				Formula: registry.Formula{Kind: registry.FormulaScaledSteps, ValueKey: "prod_ps", Scale: 1000, TimestepKey: "timestep_fs"},
			},
		},
	}
	method := registry.Method{
		Name:     "md",
		Defaults: map[string]any{"ensemble": "nvt"},
	}
	params := map[string]any{
		"temperature": 300,
		"mesh":        []any{8, 8, 8},
		"prod_ps":     100.0,
		"timestep_fs": 1.0,
		"supercell":   []any{4, 4, 4},
	}

	ctx := BuildContext(def, method, nil, params, testClock, zap.NewNop())

	template := `# generated $timestamp
units metal
ensemble $ensemble
temperature $T
seed $seed
mesh ${mesh_string}
replicate ${supercell[0]} ${supercell[1]} ${supercell[2]}
run ${prod_steps}
unknown ${not_a_key}
`
	rendered := RenderTemplate(template, ctx)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "rendered_input", []byte(rendered))
}
