package asset

import (
	"reflect"
	"testing"
)

func TestStandardizeUnits(t *testing.T) {
	params := map[string]any{
		"temperature_K": 300,
		"timestep_fs":   0.5,
		"equil_ps":      10,
		"kappa_W_per_mK": 1.4,
		"label":          "silicon",
	}

	got := StandardizeUnits(params)

	want := map[string]any{
		"temperature_K":  WithUnit(300, "K"),
		"timestep_fs":    WithUnit(0.5, "fs"),
		"equil_ps":       WithUnit(10, "ps"),
		"kappa_W_per_mK": WithUnit(1.4, "W/(m*K)"),
		"label":          "silicon",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("StandardizeUnits() = %v, want %v", got, want)
	}
}

func TestUnitValue_Unwraps(t *testing.T) {
	if got := UnitValue(WithUnit(300, "K")); got != 300 {
		t.Errorf("UnitValue() = %v, want 300", got)
	}
	if got := UnitValue(42); got != 42 {
		t.Errorf("plain value modified: %v", got)
	}
}

func TestUnitOf(t *testing.T) {
	if got := UnitOf(WithUnit(300, "K")); got != "K" {
		t.Errorf("UnitOf() = %q, want K", got)
	}
	if got := UnitOf("bare"); got != "" {
		t.Errorf("UnitOf(bare) = %q, want empty", got)
	}
}
