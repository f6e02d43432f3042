package conv

import "testing"

func TestToFloat64(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
		ok   bool
	}{
		{"float64", 85.5, 85.5, true},
		{"int", 90, 90.0, true},
		{"int64", int64(70), 70.0, true},
		{"float32", float32(2.5), 2.5, true},
		{"nil", nil, 0, false},
		{"string", "85", 0, false},
		{"bool", true, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToFloat64(tt.in)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ToFloat64(%v) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestMapToFloat64(t *testing.T) {
	in := map[string]any{
		"variety_score": 85.0,
		"region_score":  90,
		"note":          "high",
	}
	got := MapToFloat64(in)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got["variety_score"] != 85.0 || got["region_score"] != 90.0 {
		t.Errorf("unexpected values: %v", got)
	}
	if _, ok := got["note"]; ok {
		t.Error("non-numeric value should be dropped")
	}
	if MapToFloat64(nil) != nil {
		t.Error("nil map should convert to nil")
	}
}
