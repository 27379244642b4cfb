package asset

import "testing"

func validSystemPayload() map[string]any {
	return map[string]any{
		"atoms": []any{
			map[string]any{"el": "Si", "pos": []any{0.0, 0.0, 0.0}},
			map[string]any{"el": "Si", "pos": []any{0.25, 0.25, 0.25}},
		},
		"lattice": []any{
			[]any{5.43, 0.0, 0.0},
			[]any{0.0, 5.43, 0.0},
			[]any{0.0, 0.0, 5.43},
		},
		"pbc": []any{true, true, true},
	}
}

func TestValidate_System(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(map[string]any)
		wantErr bool
	}{
		{"valid", func(p map[string]any) {}, false},
		{"missing atoms", func(p map[string]any) { delete(p, "atoms") }, true},
		{"atom missing el", func(p map[string]any) {
			p["atoms"] = []any{map[string]any{"pos": []any{0.0, 0.0, 0.0}}}
		}, true},
		{"atom pos wrong arity", func(p map[string]any) {
			p["atoms"] = []any{map[string]any{"el": "Si", "pos": []any{0.0, 0.0}}}
		}, true},
		{"lattice not 3x3", func(p map[string]any) {
			p["lattice"] = []any{[]any{1.0, 0.0, 0.0}}
		}, true},
		{"pbc not boolean", func(p map[string]any) {
			p["pbc"] = []any{true, true, "yes"}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := validSystemPayload()
			tt.mutate(payload)
			err := Validate(Asset{Kind: KindSystem, ID: "Sx", Payload: payload})
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_Method(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		wantErr bool
	}{
		{"valid", map[string]any{"family": "MD", "code": "lammps"}, false},
		{"valid with device", map[string]any{"family": "DFT", "code": "qe", "device": "GPU"}, false},
		{"missing family", map[string]any{"code": "lammps"}, true},
		{"missing code", map[string]any{"family": "MD"}, true},
		{"unknown family", map[string]any{"family": "FEM", "code": "x"}, true},
		{"unknown device", map[string]any{"family": "MD", "code": "lammps", "device": "FPGA"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(Asset{Kind: KindMethod, ID: "Mx", Payload: tt.payload})
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_FreeFormKinds(t *testing.T) {
	// Params, Results, and Artifact payloads are open bags.
	weird := map[string]any{"anything": []any{1, "two", map[string]any{"three": true}}}
	for _, kind := range []Kind{KindParams, KindResults, KindArtifact} {
		if err := Validate(Asset{Kind: kind, ID: "x", Payload: weird}); err != nil {
			t.Errorf("kind %s: unexpected error %v", kind, err)
		}
	}
}

func TestValidate_UnknownKind(t *testing.T) {
	if err := Validate(Asset{Kind: "Mystery", ID: "x"}); err == nil {
		t.Error("expected error for unknown kind")
	}
}
