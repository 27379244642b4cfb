package asset

import "fmt"

// Method payload vocabularies.
var (
	validFamilies = map[string]bool{"DFT": true, "MD": true, "LD": true, "ML": true, "QM": true}
	validDevices  = map[string]bool{"CPU": true, "GPU": true, "TPU": true}
)

// Validate checks an asset's payload against its kind's schema.
// Params, Results, and Artifact payloads are intentionally free-form.
func Validate(a Asset) error {
	switch a.Kind {
	case KindSystem:
		return validateSystem(a.Payload)
	case KindMethod:
		return validateMethod(a.Payload)
	case KindParams, KindResults, KindArtifact:
		return nil
	default:
		return fmt.Errorf("unknown asset kind %q", a.Kind)
	}
}

// validateSystem checks the System payload schema: atoms (list of
// {el, pos[3]}), lattice (3x3), pbc (3 bools).
func validateSystem(payload map[string]any) error {
	atoms, ok := payload["atoms"].([]any)
	if !ok {
		return fmt.Errorf("system payload: missing or non-list %q", "atoms")
	}
	for i, raw := range atoms {
		atom, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("system payload: atoms[%d] is not an object", i)
		}
		if _, ok := atom["el"]; !ok {
			return fmt.Errorf("system payload: atoms[%d] missing %q", i, "el")
		}
		pos, ok := atom["pos"].([]any)
		if !ok || len(pos) != 3 {
			return fmt.Errorf("system payload: atoms[%d] needs a 3-component %q", i, "pos")
		}
	}

	lattice, ok := payload["lattice"].([]any)
	if !ok || len(lattice) != 3 {
		return fmt.Errorf("system payload: %q must be a 3x3 matrix", "lattice")
	}
	for i, raw := range lattice {
		vec, ok := raw.([]any)
		if !ok || len(vec) != 3 {
			return fmt.Errorf("system payload: lattice[%d] must have 3 components", i)
		}
	}

	pbc, ok := payload["pbc"].([]any)
	if !ok || len(pbc) != 3 {
		return fmt.Errorf("system payload: %q must have 3 entries", "pbc")
	}
	for i, raw := range pbc {
		if _, ok := raw.(bool); !ok {
			return fmt.Errorf("system payload: pbc[%d] must be a boolean", i)
		}
	}
	return nil
}

// validateMethod checks the Method payload schema: family and code
// required, device optional, both drawn from closed vocabularies.
func validateMethod(payload map[string]any) error {
	family, ok := payload["family"].(string)
	if !ok {
		return fmt.Errorf("method payload: missing %q", "family")
	}
	if !validFamilies[family] {
		return fmt.Errorf("method payload: unknown family %q", family)
	}
	if _, ok := payload["code"]; !ok {
		return fmt.Errorf("method payload: missing %q", "code")
	}
	if raw, ok := payload["device"]; ok {
		device, _ := raw.(string)
		if !validDevices[device] {
			return fmt.Errorf("method payload: unknown device %q", device)
		}
	}
	return nil
}
