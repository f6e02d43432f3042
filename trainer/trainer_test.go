package trainer

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utesolo/matchkit/core"
	"github.com/utesolo/matchkit/model"
)

// syntheticSamples 生成 nPos 正 / nNeg 负样本：正样本整体得分更高但有噪声。
func syntheticSamples(t *testing.T, nPos, nNeg int, seed int64) []core.LabeledSample {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	var samples []core.LabeledSample
	add := func(label int, base float64) {
		m := make(map[string]float64, core.NumFeatures)
		for _, col := range core.FeatureColumns {
			v := base + rng.Float64()*30
			if v > 100 {
				v = 100
			}
			if v < 0 {
				v = 0
			}
			m[col] = v
		}
		vec, err := core.NewFeatureVector(m)
		require.NoError(t, err)
		samples = append(samples, core.LabeledSample{Features: vec, Label: label})
	}
	for i := 0; i < nPos; i++ {
		add(1, 60)
	}
	for i := 0; i < nNeg; i++ {
		add(0, 10)
	}
	return samples
}

func TestStratifiedSplitPreservesRatio(t *testing.T) {
	samples := syntheticSamples(t, 40, 60, 1)
	train, test := StratifiedSplit(samples, 0.2, 42)

	assert.Len(t, train, 80)
	assert.Len(t, test, 20)

	countPos := func(s []core.LabeledSample) int {
		n := 0
		for _, x := range s {
			n += x.Label
		}
		return n
	}
	// 40% 正样本比例在两个切分中都保留
	assert.Equal(t, 32, countPos(train))
	assert.Equal(t, 8, countPos(test))
}

func TestStratifiedSplitDeterministic(t *testing.T) {
	samples := syntheticSamples(t, 30, 30, 2)
	train1, test1 := StratifiedSplit(samples, 0.25, 7)
	train2, test2 := StratifiedSplit(samples, 0.25, 7)
	require.Equal(t, train1, train2)
	require.Equal(t, test1, test2)
}

func TestStratifiedFolds(t *testing.T) {
	samples := syntheticSamples(t, 25, 25, 3)
	folds := StratifiedFolds(samples, 5, 42)
	require.Len(t, folds, 5)

	seen := make(map[int]bool)
	for _, fold := range folds {
		assert.Len(t, fold, 10)
		pos := 0
		for _, idx := range fold {
			require.False(t, seen[idx], "index %d assigned twice", idx)
			seen[idx] = true
			pos += samples[idx].Label
		}
		assert.Equal(t, 5, pos, "each fold keeps the class ratio")
	}
	assert.Len(t, seen, len(samples))
}

func TestClassWeights(t *testing.T) {
	y := []int{1, 0, 0, 0} // 25% 正样本
	w := ClassWeights(y)
	// w_c = n / (2 * n_c)
	assert.InDelta(t, 2.0, w[0], 1e-9)
	assert.InDelta(t, 4.0/6.0, w[1], 1e-9)
	// 加权后两类总权重相等
	assert.InDelta(t, w[0], w[1]+w[2]+w[3], 1e-9)
}

func TestEvaluateKnownConfusion(t *testing.T) {
	yTrue := []int{1, 1, 1, 1, 0, 0, 0, 0, 0, 0}
	yPred := []int{1, 1, 1, 0, 0, 0, 0, 0, 1, 1}
	m := Evaluate(yTrue, yPred, nil)

	assert.Equal(t, 3, m.Confusion[1][1]) // TP
	assert.Equal(t, 1, m.Confusion[1][0]) // FN
	assert.Equal(t, 2, m.Confusion[0][1]) // FP
	assert.Equal(t, 4, m.Confusion[0][0]) // TN
	assert.InDelta(t, 0.7, m.Accuracy, 1e-9)
	assert.InDelta(t, 0.6, m.Precision, 1e-9)
	assert.InDelta(t, 0.75, m.Recall, 1e-9)
	assert.InDelta(t, 2*0.6*0.75/(0.6+0.75), m.F1, 1e-9)
	assert.Zero(t, m.AUC)
}

func TestROCAUCPerfectSeparation(t *testing.T) {
	yTrue := []int{0, 0, 1, 1}
	m := Evaluate(yTrue, []int{0, 0, 1, 1}, []float64{0.1, 0.2, 0.8, 0.9})
	assert.InDelta(t, 1.0, m.AUC, 1e-9)

	inverted := Evaluate(yTrue, []int{1, 1, 0, 0}, []float64{0.9, 0.8, 0.2, 0.1})
	assert.InDelta(t, 0.0, inverted.AUC, 1e-9)
}

func TestTrainAndSelectEndToEnd(t *testing.T) {
	samples := syntheticSamples(t, 40, 60, 4)
	artifact, report, err := TrainAndSelect(context.Background(), samples, Options{
		Seed:   42,
		KFolds: 3,
		Candidates: []Candidate{
			{Name: model.NameLogisticRegression, New: func() core.Classifier {
				return model.NewLogisticRegression(model.LRConfig{Epochs: 100})
			}},
			{Name: model.NameRandomForest, New: func() core.Classifier {
				return model.NewRandomForest(model.ForestConfig{NumTrees: 20, Seed: 42})
			}},
		},
		Logger: slog.Default(),
	})
	require.NoError(t, err)
	require.NotNil(t, artifact)
	require.NotNil(t, report)

	assert.Equal(t, 80, report.TrainSize)
	assert.Equal(t, 20, report.TestSize)
	require.Len(t, report.Results, 2)

	// 胜者按测试集 F1 最高，元信息列顺序与规范一致
	best := report.Results[0]
	for _, r := range report.Results[1:] {
		if r.FailReason == "" && r.Metrics.F1 > best.Metrics.F1 {
			best = r
		}
	}
	assert.Equal(t, best.Name, report.Selected)
	assert.Equal(t, report.Selected, artifact.Meta.ModelName)
	assert.True(t, core.ColumnsEqual(artifact.Meta.FeatureColumns))
	require.NotNil(t, artifact.Scaler)
	require.NotNil(t, artifact.Model)

	// 可分数据上的胜者应有不错的指标
	assert.Greater(t, best.Metrics.F1, 0.8)
	assert.Greater(t, best.Metrics.CVMean, 0.7)
}

func TestTrainAndSelectSmallDatasetCVFinite(t *testing.T) {
	// 每类样本数少于默认折数：轮转分配会留下空折，
	// 交叉验证仍须给出有限指标，工件元信息仍须能落盘
	samples := syntheticSamples(t, 4, 4, 3)

	artifact, report, err := TrainAndSelect(context.Background(), samples, Options{
		Candidates: []Candidate{
			{Name: model.NameLogisticRegression, New: func() core.Classifier {
				return model.NewLogisticRegression(model.LRConfig{Epochs: 100})
			}},
		},
		Logger: slog.Default(),
	})
	require.NoError(t, err)
	require.NotNil(t, artifact)

	for _, r := range report.Results {
		if r.FailReason != "" {
			continue
		}
		assert.False(t, math.IsNaN(r.Metrics.CVMean), "%s CVMean", r.Name)
		assert.False(t, math.IsNaN(r.Metrics.CVStd), "%s CVStd", r.Name)
	}
	assert.False(t, math.IsNaN(artifact.Meta.Metrics.CVMean))
	assert.False(t, math.IsNaN(artifact.Meta.Metrics.CVStd))

	_, err = json.Marshal(artifact.Meta)
	require.NoError(t, err)
}

type failingClassifier struct{}

func (f *failingClassifier) Name() string { return "failing" }
func (f *failingClassifier) Fit([][]float64, []int, []float64) error {
	return assert.AnError
}
func (f *failingClassifier) PredictProba([]float64) (float64, error) { return 0, assert.AnError }

func TestTrainAndSelectRecordsFailures(t *testing.T) {
	samples := syntheticSamples(t, 30, 30, 5)
	artifact, report, err := TrainAndSelect(context.Background(), samples, Options{
		Seed:   42,
		KFolds: 2,
		Candidates: []Candidate{
			{Name: "failing", New: func() core.Classifier { return &failingClassifier{} }},
			{Name: model.NameLogisticRegression, New: func() core.Classifier {
				return model.NewLogisticRegression(model.LRConfig{Epochs: 50})
			}},
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, report.Results[0].FailReason)
	assert.Equal(t, model.NameLogisticRegression, report.Selected)
	assert.Equal(t, model.NameLogisticRegression, artifact.Meta.ModelName)
}

func TestTrainAndSelectAllFailed(t *testing.T) {
	samples := syntheticSamples(t, 20, 20, 6)
	_, report, err := TrainAndSelect(context.Background(), samples, Options{
		Seed:   42,
		KFolds: 2,
		Candidates: []Candidate{
			{Name: "failing", New: func() core.Classifier { return &failingClassifier{} }},
		},
	})
	require.Error(t, err)
	de := core.GetDomainError(err)
	require.NotNil(t, de)
	assert.Equal(t, core.ErrorCodeInternalError, de.Code)
	require.NotNil(t, report)
}

func TestSelectionTieBreakByDeclarationOrder(t *testing.T) {
	// 两个候选返回完全相同的固定概率 → F1/AUC 并列，先声明者胜
	fixed := func(p float64) func() core.Classifier {
		return func() core.Classifier { return &fixedClassifier{p: p} }
	}
	samples := syntheticSamples(t, 20, 20, 8)
	_, report, err := TrainAndSelect(context.Background(), samples, Options{
		Seed:   42,
		KFolds: 2,
		Candidates: []Candidate{
			{Name: "first", New: fixed(0.8)},
			{Name: "second", New: fixed(0.8)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "first", report.Selected)
}

type fixedClassifier struct{ p float64 }

func (f *fixedClassifier) Name() string                            { return "fixed" }
func (f *fixedClassifier) Fit([][]float64, []int, []float64) error { return nil }
func (f *fixedClassifier) PredictProba([]float64) (float64, error) { return f.p, nil }

func TestSortedImportance(t *testing.T) {
	ranked := SortedImportance([]float64{0.1, 0.4, 0.2, 0.05, 0.15, 0.1})
	require.Len(t, ranked, 6)
	assert.Equal(t, "region_score", ranked[0].Feature)
	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].Importance, ranked[i].Importance)
	}
}

func TestGridSearchDeterministic(t *testing.T) {
	samples := syntheticSamples(t, 20, 20, 9)
	train, _ := StratifiedSplit(samples, 0.2, 42)
	X := make([][]float64, len(train))
	y := make([]int, len(train))
	for i, s := range train {
		X[i] = s.Features.Values()
		y[i] = s.Label
	}
	w := ClassWeights(y)
	folds := StratifiedFolds(train, 2, 42)
	grid := GridOptions{
		NumTrees:        []int{5, 10},
		MaxDepths:       []int{3},
		MinSamplesSplit: []int{2},
		MinSamplesLeaf:  []int{1},
	}
	cfg1, f1a := gridSearchForest(X, y, w, folds, 42, grid)
	cfg2, f1b := gridSearchForest(X, y, w, folds, 42, grid)
	assert.Equal(t, cfg1, cfg2)
	assert.Equal(t, f1a, f1b)
	assert.GreaterOrEqual(t, f1a, 0.0)
}
