package feature

import (
	"math"
	"testing"

	"github.com/utesolo/matchkit/core"
)

func sample(t *testing.T, vals [6]float64, label int) core.LabeledSample {
	t.Helper()
	m := make(map[string]float64, core.NumFeatures)
	for i, col := range core.FeatureColumns {
		m[col] = vals[i]
	}
	v, err := core.NewFeatureVector(m)
	if err != nil {
		t.Fatalf("NewFeatureVector() error = %v", err)
	}
	return core.LabeledSample{Features: v, Label: label}
}

func TestFitTransform(t *testing.T) {
	samples := []core.LabeledSample{
		sample(t, [6]float64{10, 20, 30, 40, 50, 60}, 1),
		sample(t, [6]float64{30, 40, 50, 60, 70, 80}, 0),
	}
	s := Fit(samples)

	// 每列均值应为两值的中点
	wantMean := []float64{20, 30, 40, 50, 60, 70}
	for i, m := range s.Mean {
		if math.Abs(m-wantMean[i]) > 1e-9 {
			t.Errorf("mean[%d] = %v, want %v", i, m, wantMean[i])
		}
	}

	// 变换后训练点应对称分布在 0 附近
	z := s.Transform(samples[0].Features.Values())
	for i, v := range z {
		if math.Abs(v+1) > 1e-9 {
			t.Errorf("z[%d] = %v, want -1", i, v)
		}
	}
}

func TestTransformZeroVariance(t *testing.T) {
	// 单一样本下所有列 std=0，变换必须返回 0 而不是崩溃
	samples := []core.LabeledSample{
		sample(t, [6]float64{50, 50, 50, 50, 50, 50}, 1),
	}
	s := Fit(samples)
	z := s.Transform(samples[0].Features.Values())
	for i, v := range z {
		if v != 0 {
			t.Errorf("z[%d] = %v, want 0 for zero-variance feature", i, v)
		}
	}
}

func TestTransformDoesNotRefit(t *testing.T) {
	samples := []core.LabeledSample{
		sample(t, [6]float64{0, 0, 0, 0, 0, 0}, 0),
		sample(t, [6]float64{100, 100, 100, 100, 100, 100}, 1),
	}
	s := Fit(samples)
	before := append([]float64(nil), s.Mean...)

	s.Transform([]float64{1, 2, 3, 4, 5, 6})
	s.TransformMatrix([][]float64{{9, 9, 9, 9, 9, 9}})

	for i := range before {
		if s.Mean[i] != before[i] {
			t.Fatal("Transform must not mutate fitted statistics")
		}
	}
}

func TestMatrix(t *testing.T) {
	samples := []core.LabeledSample{
		sample(t, [6]float64{1, 2, 3, 4, 5, 6}, 1),
		sample(t, [6]float64{6, 5, 4, 3, 2, 1}, 0),
	}
	X, y := Matrix(samples)
	if len(X) != 2 || len(y) != 2 {
		t.Fatalf("Matrix() sizes = %d,%d", len(X), len(y))
	}
	if X[0][0] != 1 || X[1][0] != 6 {
		t.Errorf("unexpected matrix values: %v", X)
	}
	if y[0] != 1 || y[1] != 0 {
		t.Errorf("unexpected labels: %v", y)
	}
}
