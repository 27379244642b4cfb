package asset

// UnitMap maps physical quantities to their canonical units.
var UnitMap = map[string]string{
	"length":               "angstrom",
	"energy":               "eV",
	"force":                "eV/angstrom",
	"stress":               "GPa",
	"temperature":          "K",
	"time":                 "fs",
	"thermal_conductivity": "W/(m*K)",
	"frequency":            "THz",
	"lifetime":             "ps",
}

// unitSuffixes maps parameter-name suffixes to unit strings, checked in
// a fixed order so longer suffixes win over their prefixes.
var unitSuffixes = []struct {
	suffix string
	unit   string
}{
	{"_W_per_mK", "W/(m*K)"},
	{"_GPa", "GPa"},
	{"_THz", "THz"},
	{"_eV", "eV"},
	{"_fs", "fs"},
	{"_ps", "ps"},
	{"_ns", "ns"},
	{"_K", "K"},
	{"_A", "angstrom"},
}

// WithUnit wraps a value with a unit annotation.
func WithUnit(value any, unit string) map[string]any {
	return map[string]any{"value": value, "unit": unit}
}

// UnitValue unwraps a unit-annotated value; plain values pass through.
func UnitValue(v any) any {
	if m, ok := v.(map[string]any); ok {
		if inner, ok := m["value"]; ok {
			return inner
		}
	}
	return v
}

// UnitOf returns the unit of an annotated value, or "" if unannotated.
func UnitOf(v any) string {
	if m, ok := v.(map[string]any); ok {
		if unit, ok := m["unit"].(string); ok {
			return unit
		}
	}
	return ""
}

// StandardizeUnits annotates parameters whose names carry a recognized
// unit suffix (temperature_K, timestep_fs, ...). Other entries pass
// through untouched.
func StandardizeUnits(params map[string]any) map[string]any {
	result := make(map[string]any, len(params))
	for key, value := range params {
		result[key] = value
		for _, s := range unitSuffixes {
			if len(key) > len(s.suffix) && key[len(key)-len(s.suffix):] == s.suffix {
				result[key] = WithUnit(value, s.unit)
				break
			}
		}
	}
	return result
}
