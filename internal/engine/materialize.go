package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/materialscodegraph/materialscodegraph/internal/asset"
	"github.com/materialscodegraph/materialscodegraph/internal/registry"
)

// Materialized is the durable outcome of one run: the assets to persist
// and the lineage edges linking them, in append order.
type Materialized struct {
	Results asset.Asset
	Extra   []asset.Asset // rule-driven auxiliary assets
	Log     asset.Asset
	Edges   []asset.Edge
}

// Materialize wraps parsed results into assets and lineage edges.
//
// The Results payload merges the parsed fields with the method name,
// the runner name, and the caller's parameters minus the reserved
// "method" and "execution_mode" keys; caller parameters win on
// conflict. Units attach only for fields present in the parsed results.
//
// Edge order is fixed and consumers rely on it: every input asset to
// the run first (USES for System inputs, CONFIGURES otherwise), then
// run PRODUCES Results, then run LOGS the log artifact. All edges of
// one run share a single timestamp.
func Materialize(def *registry.Definition, method string, run asset.Run, inputs []asset.Asset, parsed map[string]any, params map[string]any, now time.Time) Materialized {
	payload := map[string]any{
		"method": method,
		"runner": def.Name,
	}
	for k, v := range parsed {
		payload[k] = v
	}
	for k, v := range params {
		if k == "method" || k == "execution_mode" {
			continue
		}
		payload[k] = v
	}

	units := map[string]string{}
	for field := range parsed {
		if unit, ok := def.Units[field]; ok {
			units[field] = unit
		}
	}

	results := asset.Asset{
		Kind:    asset.KindResults,
		ID:      asset.MustID(asset.KindResults, payload),
		Payload: payload,
	}
	if len(units) > 0 {
		results.Units = units
	}

	var extra []asset.Asset
	for _, rule := range def.ResultRules {
		if a, ok := applyResultRule(rule, parsed, params); ok {
			extra = append(extra, a)
		}
	}

	log := logArtifact(def, method, params, parsed, now)

	ts := asset.Timestamp(now)
	edges := make([]asset.Edge, 0, len(inputs)+2)
	for _, in := range inputs {
		rel := asset.RelConfigures
		if in.Kind == asset.KindSystem {
			rel = asset.RelUses
		}
		edges = append(edges, asset.Edge{From: in.ID, To: run.ID, Rel: rel, T: ts})
	}
	edges = append(edges, asset.Edge{From: run.ID, To: results.ID, Rel: asset.RelProduces, T: ts})
	edges = append(edges, asset.Edge{From: run.ID, To: log.ID, Rel: asset.RelLogs, T: ts})

	return Materialized{Results: results, Extra: extra, Log: log, Edges: edges}
}

// applyResultRule emits one auxiliary asset when every required field is
// present in the parsed results and the payload is non-empty. Payload
// fields source from parsed results first, then caller params.
func applyResultRule(rule registry.ResultAssetRule, parsed, params map[string]any) (asset.Asset, bool) {
	for _, field := range rule.RequiresData {
		if _, ok := parsed[field]; !ok {
			return asset.Asset{}, false
		}
	}

	payload := map[string]any{}
	for _, f := range rule.Payload {
		if v, ok := parsed[f.Source]; ok {
			payload[f.Key] = v
		} else if v, ok := params[f.Source]; ok {
			payload[f.Key] = v
		}
	}
	if len(payload) == 0 {
		return asset.Asset{}, false
	}

	return asset.Asset{
		Kind:    rule.Kind,
		ID:      asset.MustID(rule.Kind, payload),
		Payload: payload,
	}, true
}

// logArtifact builds the run's log Artifact. With a declared
// log_template the content renders through safe substitution; otherwise
// a readable default lists parameters and results in sorted key order.
func logArtifact(def *registry.Definition, method string, params, parsed map[string]any, now time.Time) asset.Asset {
	ts := asset.Timestamp(now)

	var content string
	if def.LogTemplate != "" {
		content = RenderTemplate(def.LogTemplate, map[string]any{
			"config_name": def.Name,
			"method":      method,
			"timestamp":   ts,
			"params":      params,
			"results":     parsed,
		})
	} else {
		var sb strings.Builder
		fmt.Fprintf(&sb, "Run completed: %s - %s\n", def.Name, method)
		fmt.Fprintf(&sb, "Timestamp: %s\n\n", ts)
		sb.WriteString("Parameters:\n")
		writeSorted(&sb, params)
		sb.WriteString("\nResults:\n")
		writeSorted(&sb, parsed)
		content = sb.String()
	}

	payload := map[string]any{
		"name":      "run_log",
		"content":   content,
		"timestamp": ts,
	}
	return asset.Asset{
		Kind:    asset.KindArtifact,
		ID:      asset.MustID(asset.KindArtifact, payload),
		Payload: payload,
	}
}

func writeSorted(sb *strings.Builder, m map[string]any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(sb, "  %s: %v\n", k, m[k])
	}
}
