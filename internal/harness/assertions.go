package harness

import (
	"encoding/json"
	"errors"
	"reflect"

	"github.com/materialscodegraph/materialscodegraph/internal/engine"
)

// evaluate checks every expect clause against the result. Failures
// accumulate; a scenario reports all mismatches at once.
func evaluate(expect ExpectClause, r *Result) {
	if expect.ErrorCode != "" {
		if r.Err == nil {
			r.AddError("expected failure %s, run succeeded", expect.ErrorCode)
			return
		}
		var re *engine.RunError
		if !errors.As(r.Err, &re) {
			r.AddError("expected failure %s, got untyped error: %v", expect.ErrorCode, r.Err)
			return
		}
		if string(re.Code) != expect.ErrorCode {
			r.AddError("expected failure %s, got %s: %v", expect.ErrorCode, re.Code, re)
		}
		return
	}

	if r.Err != nil {
		r.AddError("run failed: %v", r.Err)
		return
	}

	status := expect.Status
	if status == "" {
		status = "done"
	}
	if string(r.Run.Status) != status {
		r.AddError("status: want %s, got %s", status, r.Run.Status)
	}

	if expect.Method != "" && r.Method != expect.Method {
		r.AddError("method: want %s, got %s", expect.Method, r.Method)
	}

	// Subset match: only the listed result fields are validated.
	for key, want := range expect.Results {
		got, ok := r.Results.Payload[key]
		if !ok {
			r.AddError("results: missing field %q", key)
			continue
		}
		if !reflect.DeepEqual(normalize(want), normalize(got)) {
			r.AddError("results: field %q: want %v, got %v", key, want, got)
		}
	}

	if len(expect.EdgeRels) > 0 {
		rels := make([]string, len(r.Edges))
		for i, e := range r.Edges {
			rels[i] = string(e.Rel)
		}
		if !reflect.DeepEqual(expect.EdgeRels, rels) {
			r.AddError("edges: want rels %v, got %v", expect.EdgeRels, rels)
		}
	}
}

// normalize round-trips a value through JSON so YAML-decoded scenario
// values (int, map[string]any with ints) compare equal to the engine's
// JSON-shaped values (float64).
func normalize(v any) any {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}
