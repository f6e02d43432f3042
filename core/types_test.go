package core

import (
	"strings"
	"testing"
)

func validFeatures() map[string]float64 {
	return map[string]float64{
		"variety_score": 85,
		"region_score":  90,
		"climate_score": 78.5,
		"season_score":  100,
		"quality_score": 82,
		"intent_score":  75,
	}
}

func TestNewFeatureVector(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(map[string]float64)
		wantCode string
	}{
		{
			name:   "valid features",
			mutate: func(m map[string]float64) {},
		},
		{
			name:   "boundary values accepted",
			mutate: func(m map[string]float64) { m["variety_score"] = 0; m["season_score"] = 100 },
		},
		{
			name:     "missing single key",
			mutate:   func(m map[string]float64) { delete(m, "quality_score") },
			wantCode: ErrorCodeMissingFeature,
		},
		{
			name: "missing multiple keys",
			mutate: func(m map[string]float64) {
				delete(m, "region_score")
				delete(m, "intent_score")
			},
			wantCode: ErrorCodeMissingFeature,
		},
		{
			name:     "value above range",
			mutate:   func(m map[string]float64) { m["climate_score"] = 150 },
			wantCode: ErrorCodeOutOfRange,
		},
		{
			name:     "negative value",
			mutate:   func(m map[string]float64) { m["region_score"] = -1 },
			wantCode: ErrorCodeOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validFeatures()
			tt.mutate(m)
			v, err := NewFeatureVector(m)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("NewFeatureVector() error = %v", err)
				}
				for i, col := range FeatureColumns {
					if got := v.Values()[i]; got != m[col] {
						t.Errorf("value[%s] = %v, want %v", col, got, m[col])
					}
				}
				return
			}
			de := GetDomainError(err)
			if de == nil {
				t.Fatalf("expected DomainError, got %v", err)
			}
			if de.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", de.Code, tt.wantCode)
			}
		})
	}
}

func TestMissingFeatureErrorNamesKeys(t *testing.T) {
	m := validFeatures()
	delete(m, "quality_score")
	_, err := NewFeatureVector(m)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "quality_score") {
		t.Errorf("error %q does not name the missing key", err.Error())
	}
}

func TestGradeOf(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{100, "A"},
		{81, "A"},
		{80, "A"},
		{79.99, "B"},
		{60, "B"},
		{59.99, "C"},
		{40, "C"},
		{39.99, "D"},
		{0, "D"},
	}
	for _, tt := range tests {
		if got := GradeOf(tt.score); got != tt.want {
			t.Errorf("GradeOf(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestGradeOfTotalOverRange(t *testing.T) {
	// 等级函数必须对 [0, 100] 全域恰好返回一个等级
	for s := 0.0; s <= 100.0; s += 0.25 {
		switch GradeOf(s) {
		case "A", "B", "C", "D":
		default:
			t.Fatalf("GradeOf(%v) returned no grade", s)
		}
	}
}

func TestRecommendationOf(t *testing.T) {
	tests := []struct {
		p    float64
		want string
	}{
		{0.81, RecommendStrong},
		{0.7, RecommendStrong},
		{0.69, RecommendNormal},
		{0.5, RecommendNormal},
		{0.49, RecommendFallback},
		{0.3, RecommendFallback},
		{0.29, RecommendNone},
		{0, RecommendNone},
	}
	for _, tt := range tests {
		if got := RecommendationOf(tt.p); got != tt.want {
			t.Errorf("RecommendationOf(%v) = %q, want %q", tt.p, got, tt.want)
		}
	}
}

func TestColumnsEqual(t *testing.T) {
	if !ColumnsEqual(FeatureColumns) {
		t.Error("canonical order should match itself")
	}
	reordered := []string{
		"region_score", "variety_score", "climate_score",
		"season_score", "quality_score", "intent_score",
	}
	if ColumnsEqual(reordered) {
		t.Error("reordered columns must not match")
	}
	if ColumnsEqual(FeatureColumns[:5]) {
		t.Error("short column list must not match")
	}
}

func TestRounding(t *testing.T) {
	tests := []struct {
		v     float64
		want2 float64
		want4 float64
	}{
		{0.81234, 0.81, 0.8123},
		{0.81235, 0.81, 0.8124},
		{0.005, 0.01, 0.005},
		{81.0, 81.0, 81.0},
		{0, 0, 0},
	}
	for _, tt := range tests {
		if got := Round2(tt.v); got != tt.want2 {
			t.Errorf("Round2(%v) = %v, want %v", tt.v, got, tt.want2)
		}
		if got := Round4(tt.v); got != tt.want4 {
			t.Errorf("Round4(%v) = %v, want %v", tt.v, got, tt.want4)
		}
	}
}
