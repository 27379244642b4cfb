package engine

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/materialscodegraph/materialscodegraph/internal/asset"
	"github.com/materialscodegraph/materialscodegraph/internal/registry"
)

// RenderSeed is the fixed pseudo-random seed exposed to templates.
// Fixed so that re-rendering the same inputs yields identical text.
const RenderSeed = 12345

// BuildContext constructs the layered key/value environment used to
// render templates. Layering order, earlier layers win (a key set by an
// earlier layer is never overwritten):
//
//	a. fixed values: render timestamp and the fixed seed
//	b. caller params verbatim, then method parameter defaults
//	c. parameter-alias resolution: canonical name copied from the first
//	   present alias when the canonical key is absent
//	d. context builders in declaration order, each deriving one new key
//
// System-kind input assets contribute their payload fields under keys
// not already taken, so templates can reference structure data directly.
func BuildContext(def *registry.Definition, method registry.Method, inputs []asset.Asset, params map[string]any, clock Clock, logger *zap.Logger) map[string]any {
	ctx := map[string]any{
		"timestamp": asset.Timestamp(clock.Now()),
		"seed":      RenderSeed,
	}

	for k, v := range params {
		if _, ok := ctx[k]; !ok {
			ctx[k] = v
		}
	}
	for k, v := range method.Defaults {
		if _, ok := ctx[k]; !ok {
			ctx[k] = v
		}
	}

	for _, alias := range def.Aliases {
		if _, ok := ctx[alias.Canonical]; ok {
			continue
		}
		for _, name := range alias.Names {
			if v, ok := params[name]; ok {
				ctx[alias.Canonical] = v
				break
			}
		}
	}

	for _, in := range inputs {
		if in.Kind != asset.KindSystem {
			continue
		}
		for k, v := range in.Payload {
			if _, ok := ctx[k]; !ok {
				ctx[k] = v
			}
		}
	}

	for _, b := range def.Builders {
		if _, ok := ctx[b.Name]; ok {
			continue
		}
		value, ok := buildValue(b, ctx)
		if !ok {
			logger.Debug("context builder produced no value",
				zap.String("job", def.Name),
				zap.String("builder", b.Name))
			continue
		}
		ctx[b.Name] = value
	}

	return ctx
}

// buildValue evaluates one context builder against the context so far.
// Missing inputs fall back to the builder's declared default; a builder
// with no default and no computable value contributes nothing.
func buildValue(b registry.ContextBuilder, ctx map[string]any) (any, bool) {
	switch b.Kind {
	case registry.BuilderTransform:
		if source, ok := ctx[b.Source]; ok {
			return applyTransform(b.Transform, source), true
		}
	case registry.BuilderComputed:
		if v, ok := computeFormula(b.Formula, ctx); ok {
			return v, true
		}
	}
	if b.HasDefault {
		return b.Default, true
	}
	return nil, false
}

// applyTransform applies a parameter transform to a context value.
func applyTransform(tr registry.Transform, value any) any {
	switch tr.Kind {
	case registry.TransformListToString:
		list, ok := value.([]any)
		if !ok {
			return fmt.Sprintf("%v", value)
		}
		parts := make([]string, len(list))
		for i, v := range list {
			parts[i] = fmt.Sprintf("%v", v)
		}
		return strings.Join(parts, tr.Separator)

	case registry.TransformUnitConversion:
		if f, ok := toFloat(value); ok {
			return f * tr.Factor
		}
		return value

	case registry.TransformSteps:
		if f, ok := toFloat(value); ok {
			return int(f * tr.Multiplier / tr.Timestep)
		}
		return value
	}
	return value
}

// computeFormula evaluates a computed-value formula against the context.
func computeFormula(f registry.Formula, ctx map[string]any) (any, bool) {
	switch f.Kind {
	case registry.FormulaScaledSteps:
		value, ok1 := toFloat(ctx[f.ValueKey])
		timestep, ok2 := toFloat(ctx[f.TimestepKey])
		if !ok1 || !ok2 || timestep == 0 {
			return nil, false
		}
		return int(value * f.Scale / timestep), true

	case registry.FormulaComponent:
		source, ok := ctx[f.SourceKey]
		if !ok {
			return nil, false
		}
		list, isList := source.([]any)
		if !isList {
			// A scalar stands in for all components.
			return source, true
		}
		if f.Index < 0 || f.Index >= len(list) {
			return nil, false
		}
		return list[f.Index], true
	}
	return nil, false
}

// toFloat converts the numeric types a decoded document or JSON payload
// can carry.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return float64(n), true
	default:
		return 0, false
	}
}
