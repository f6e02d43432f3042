package dsl

import (
	"testing"

	"github.com/utesolo/matchkit/core"
)

func sampleResult() (*core.ScoreResult, map[string]float64) {
	r := &core.ScoreResult{
		Probability:    0.81,
		Score:          81.0,
		Grade:          "A",
		Recommendation: core.RecommendStrong,
		HeuristicScore: 75.75,
	}
	f := map[string]float64{
		"variety_score": 90,
		"region_score":  80,
		"climate_score": 70,
		"season_score":  60,
		"quality_score": 85,
		"intent_score":  50,
	}
	return r, f
}

func TestFilterMatch(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"score threshold pass", `result.score >= 60.0`, true},
		{"score threshold fail", `result.score >= 90.0`, false},
		{"grade equality", `result.grade == "A"`, true},
		{"grade in list", `result.grade in ["A", "B"]`, true},
		{"feature access", `features.variety_score > 80.0`, true},
		{"combined", `result.grade == "A" && features.intent_score >= 50.0`, true},
		{"combined fail", `result.grade == "A" && features.intent_score > 50.0`, false},
		{"probability", `result.probability > 0.7`, true},
		{"heuristic", `result.heuristic_score < 80.0`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Compile(tt.expr)
			if err != nil {
				t.Fatalf("Compile(%q): %v", tt.expr, err)
			}
			r, feats := sampleResult()
			got, err := f.Match(r, feats)
			if err != nil {
				t.Fatalf("Match(%q): %v", tt.expr, err)
			}
			if got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEmptyExpressionMatchesAll(t *testing.T) {
	f, err := Compile("")
	if err != nil {
		t.Fatalf("Compile empty: %v", err)
	}
	if f != nil {
		t.Fatalf("Compile empty should return nil filter, got %v", f)
	}
	r, feats := sampleResult()
	ok, err := f.Match(r, feats)
	if err != nil || !ok {
		t.Errorf("nil filter Match = (%v, %v), want (true, nil)", ok, err)
	}
}

func TestCompileError(t *testing.T) {
	if _, err := Compile(`result.score >=`); err == nil {
		t.Error("expected compile error for malformed expression")
	}
}

func TestNonBooleanExpression(t *testing.T) {
	f, err := Compile(`result.score`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	r, feats := sampleResult()
	if _, err := f.Match(r, feats); err == nil {
		t.Error("expected error for non-boolean expression result")
	}
}

func TestFilterReuse(t *testing.T) {
	f, err := Compile(`result.score >= 60.0`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	r, feats := sampleResult()
	for i := 0; i < 3; i++ {
		ok, err := f.Match(r, feats)
		if err != nil || !ok {
			t.Fatalf("reuse %d: (%v, %v)", i, ok, err)
		}
	}
	r.Score = 10
	ok, err := f.Match(r, feats)
	if err != nil || ok {
		t.Errorf("low score should not match, got (%v, %v)", ok, err)
	}
}
