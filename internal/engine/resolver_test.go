package engine

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/materialscodegraph/materialscodegraph/internal/registry"
)

func testDefinition() *registry.Definition {
	return &registry.Definition{
		Name: "Materials Calculator",
		Methods: []registry.Method{
			{Name: "phonon"},
			{Name: "elastic"},
			{Name: "md"},
		},
		Resolution: []registry.ResolutionRule{
			{
				Name:        "needs_supercell",
				Method:      "phonon",
				RequiresAny: []string{"supercell", "mesh"},
			},
			{
				Name:     "stress_like",
				Method:   "elastic",
				Patterns: []registry.ParamPattern{{Param: "mode", Regexp: regexp.MustCompile(`^(stress|strain)$`)}},
			},
			{
				Name:        "full_md",
				Method:      "md",
				RequiresAll: []string{"timestep_fs", "prod_ps"},
			},
		},
		Understands: []registry.Phrase{
			{Phrase: "vibrations", Keywords: []string{"vibration", "dispersion"}, Method: "phonon"},
			{Phrase: "dynamics", Keywords: []string{"trajectory"}, Method: "md"},
		},
	}
}

func TestResolveExplicitMethodWins(t *testing.T) {
	def := testDefinition()

	// supercell would fire the phonon rule, but explicit method wins.
	method, err := ResolveMethod(def, map[string]any{
		"method":    "elastic",
		"supercell": []any{2, 2, 2},
	}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "elastic", method)
}

func TestResolveInvalidExplicitMethodFallsThrough(t *testing.T) {
	def := testDefinition()

	method, err := ResolveMethod(def, map[string]any{
		"method": "nonexistent",
		"mesh":   []any{8, 8, 8},
	}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "phonon", method)
}

func TestResolveRules(t *testing.T) {
	def := testDefinition()
	cases := []struct {
		name   string
		params map[string]any
		want   string
	}{
		{"requires_any first key", map[string]any{"supercell": []any{2, 2, 2}}, "phonon"},
		{"requires_any second key", map[string]any{"mesh": []any{8, 8, 8}}, "phonon"},
		{"pattern match", map[string]any{"mode": "stress"}, "elastic"},
		{"pattern non-match skips rule", map[string]any{"mode": "relax"}, "phonon"}, // falls to first method
		{"requires_all satisfied", map[string]any{"timestep_fs": 1.0, "prod_ps": 100}, "md"},
		{"requires_all partial falls through", map[string]any{"timestep_fs": 1.0}, "phonon"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			method, err := ResolveMethod(def, tc.params, zap.NewNop())
			require.NoError(t, err)
			assert.Equal(t, tc.want, method)
		})
	}
}

func TestResolveRequiresAllDecidesMixedRule(t *testing.T) {
	def := &registry.Definition{
		Name:    "Mixed",
		Methods: []registry.Method{{Name: "fallback"}, {Name: "md"}},
		Resolution: []registry.ResolutionRule{
			{
				Name:        "md_run",
				Method:      "md",
				RequiresAll: []string{"timestep_fs", "prod_ps"},
				Patterns:    []registry.ParamPattern{{Param: "mode", Regexp: regexp.MustCompile(`^dynamics$`)}},
			},
		},
	}

	// requires_all decides the rule on its own: with prod_ps missing
	// the rule fails even though the pattern would match.
	method, err := ResolveMethod(def, map[string]any{
		"timestep_fs": 1.0,
		"mode":        "dynamics",
	}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "fallback", method)

	method, err = ResolveMethod(def, map[string]any{
		"timestep_fs": 1.0,
		"prod_ps":     100,
	}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "md", method)
}

func TestResolveRuleOrderIsDeclarationOrder(t *testing.T) {
	def := testDefinition()

	// Params satisfy both the phonon rule and the md rule; the phonon
	// rule is declared first so it wins.
	method, err := ResolveMethod(def, map[string]any{
		"supercell":   []any{2, 2, 2},
		"timestep_fs": 1.0,
		"prod_ps":     100,
	}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "phonon", method)
}

func TestResolveKeywordTable(t *testing.T) {
	def := testDefinition()

	method, err := ResolveMethod(def, map[string]any{
		"task": "compute the phonon Dispersion relation",
	}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "phonon", method)
}

func TestResolveKeywordMatchesAnyValueSubstring(t *testing.T) {
	def := testDefinition()

	method, err := ResolveMethod(def, map[string]any{
		"output": "dump TRAJECTORY every 100 steps",
	}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "md", method)
}

func TestResolveFallsBackToFirstDeclaredMethod(t *testing.T) {
	def := testDefinition()

	method, err := ResolveMethod(def, map[string]any{"unrelated": 1}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "phonon", method)
}

func TestResolveZeroMethodsFails(t *testing.T) {
	def := &registry.Definition{Name: "Empty"}

	_, err := ResolveMethod(def, map[string]any{}, zap.NewNop())
	require.Error(t, err)
	var re *RunError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrCodeNoMethods, re.Code)
}
