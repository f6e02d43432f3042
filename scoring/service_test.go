package scoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utesolo/matchkit/core"
)

// fixedModel 返回固定概率，用于校验打分链路的派生逻辑。
type fixedModel struct{ p float64 }

func (m *fixedModel) Name() string { return "fixed" }
func (m *fixedModel) Fit(_ [][]float64, _ []int, _ []float64) error {
	return nil
}
func (m *fixedModel) PredictProba(_ []float64) (float64, error) {
	return m.p, nil
}

// identityScaler 原样返回输入。
type identityScaler struct{}

func (identityScaler) Transform(x []float64) []float64 { return x }

func fixedArtifact(p float64, importance []float64) *core.TrainedArtifact {
	return &core.TrainedArtifact{
		ID:     "test_artifact",
		Model:  &fixedModel{p: p},
		Scaler: identityScaler{},
		Meta: core.ArtifactMeta{
			ModelName:      "fixed",
			FeatureColumns: core.FeatureColumns,
			CreatedAt:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			Metrics:        core.EvalMetrics{F1: 0.88},
		},
		Importance: importance,
	}
}

func fullFeatures() map[string]float64 {
	return map[string]float64{
		"variety_score": 90,
		"region_score":  80,
		"climate_score": 70,
		"season_score":  60,
		"quality_score": 85,
		"intent_score":  50,
	}
}

func TestScoreNotInitialized(t *testing.T) {
	svc := NewService(nil)

	_, err := svc.Score(context.Background(), fullFeatures())
	require.Error(t, err)
	assert.True(t, core.IsNotInitialized(err))

	_, err = svc.ScoreBatch(context.Background(), []map[string]float64{fullFeatures()})
	assert.True(t, core.IsNotInitialized(err))

	_, err = svc.Info()
	assert.True(t, core.IsNotInitialized(err))
}

func TestScoreDerivedFields(t *testing.T) {
	svc := NewService(nil)
	svc.SetArtifact(fixedArtifact(0.81, []float64{0.3, 0.2, 0.15, 0.15, 0.1, 0.1}))

	r, err := svc.Score(context.Background(), fullFeatures())
	require.NoError(t, err)

	assert.InDelta(t, 0.81, r.Probability, 1e-12)
	assert.InDelta(t, 81.00, r.Score, 1e-12)
	assert.Equal(t, "A", r.Grade)
	assert.Equal(t, core.RecommendStrong, r.Recommendation)
	// 0.25*90 + 0.20*80 + 0.15*70 + 0.15*60 + 0.15*85 + 0.10*50 = 75.75
	assert.InDelta(t, 75.75, r.HeuristicScore, 1e-12)

	require.Len(t, r.Features, core.NumFeatures)
	assert.InDelta(t, 90.0, r.Features["variety_score"].Value, 1e-12)
	assert.InDelta(t, 0.3, r.Features["variety_score"].Importance, 1e-12)
}

func TestScoreGradeBands(t *testing.T) {
	tests := []struct {
		p     float64
		grade string
		rec   string
	}{
		{0.95, "A", core.RecommendStrong},
		{0.65, "B", core.RecommendNormal},
		{0.45, "C", core.RecommendFallback},
		{0.20, "D", core.RecommendNone},
	}
	for _, tt := range tests {
		svc := NewService(nil)
		svc.SetArtifact(fixedArtifact(tt.p, nil))
		r, err := svc.Score(context.Background(), fullFeatures())
		require.NoError(t, err)
		assert.Equal(t, tt.grade, r.Grade, "p=%v", tt.p)
		assert.Equal(t, tt.rec, r.Recommendation, "p=%v", tt.p)
		assert.Nil(t, r.Features)
	}
}

func TestScoreValidation(t *testing.T) {
	svc := NewService(nil)
	svc.SetArtifact(fixedArtifact(0.5, nil))
	ctx := context.Background()

	_, err := svc.Score(ctx, nil)
	de := core.GetDomainError(err)
	require.NotNil(t, de)
	assert.Equal(t, core.ErrorCodeInvalidInput, de.Code)

	incomplete := fullFeatures()
	delete(incomplete, "quality_score")
	_, err = svc.Score(ctx, incomplete)
	de = core.GetDomainError(err)
	require.NotNil(t, de)
	assert.Equal(t, core.ErrorCodeMissingFeature, de.Code)
	assert.Contains(t, de.Message, "quality_score")

	outOfRange := fullFeatures()
	outOfRange["intent_score"] = 150
	_, err = svc.Score(ctx, outOfRange)
	de = core.GetDomainError(err)
	require.NotNil(t, de)
	assert.Equal(t, core.ErrorCodeOutOfRange, de.Code)
}

func TestScoreIdempotent(t *testing.T) {
	svc := NewService(nil)
	svc.SetArtifact(fixedArtifact(0.63, []float64{0.2, 0.2, 0.2, 0.2, 0.1, 0.1}))

	first, err := svc.Score(context.Background(), fullFeatures())
	require.NoError(t, err)
	second, err := svc.Score(context.Background(), fullFeatures())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestScoreVectorMatchesScore(t *testing.T) {
	svc := NewService(nil)

	fv, err := core.NewFeatureVector(fullFeatures())
	require.NoError(t, err)

	_, err = svc.ScoreVector(context.Background(), fv)
	assert.True(t, core.IsNotInitialized(err))

	svc.SetArtifact(fixedArtifact(0.81, []float64{0.3, 0.2, 0.15, 0.15, 0.1, 0.1}))
	viaMap, err := svc.Score(context.Background(), fullFeatures())
	require.NoError(t, err)
	viaVector, err := svc.ScoreVector(context.Background(), fv)
	require.NoError(t, err)
	assert.Equal(t, viaMap, viaVector)
}

func TestScoreBatchOrderPreserved(t *testing.T) {
	svc := NewService(nil)
	svc.SetArtifact(fixedArtifact(0.72, nil))

	batch := make([]map[string]float64, 10)
	for i := range batch {
		f := fullFeatures()
		f["variety_score"] = float64(i * 10)
		batch[i] = f
	}
	results, err := svc.ScoreBatch(context.Background(), batch)
	require.NoError(t, err)
	require.Len(t, results, len(batch))
	for i, r := range results {
		// 合成分随 variety_score 单调递增，可用于确认顺序未被并发打乱
		assert.InDelta(t, float64(i*10)*0.25, r.HeuristicScore-(0.20*80+0.15*70+0.15*60+0.15*85+0.10*50), 1e-9, "index %d", i)
	}
}

func TestScoreBatchAllOrNothing(t *testing.T) {
	svc := NewService(nil)
	svc.SetArtifact(fixedArtifact(0.72, nil))

	bad := fullFeatures()
	delete(bad, "season_score")
	batch := []map[string]float64{fullFeatures(), fullFeatures(), bad}

	_, err := svc.ScoreBatch(context.Background(), batch)
	de := core.GetDomainError(err)
	require.NotNil(t, de)
	assert.Equal(t, core.ErrorCodeMissingFeature, de.Code)
	assert.Contains(t, de.Message, "item 2")

	_, err = svc.ScoreBatch(context.Background(), nil)
	de = core.GetDomainError(err)
	require.NotNil(t, de)
	assert.Equal(t, core.ErrorCodeInvalidInput, de.Code)
}

func TestReloadFailureKeepsCurrentArtifact(t *testing.T) {
	svc := NewService(nil)
	svc.SetArtifact(fixedArtifact(0.81, nil))

	err := svc.Reload("/nonexistent/model.json", "/nonexistent/scaler.json", "/nonexistent/meta.json")
	require.Error(t, err)
	assert.True(t, core.IsNotFound(err))

	// 旧工件仍在服务
	r, err := svc.Score(context.Background(), fullFeatures())
	require.NoError(t, err)
	assert.InDelta(t, 81.00, r.Score, 1e-12)
}

func TestInfo(t *testing.T) {
	svc := NewService(nil)
	svc.SetArtifact(fixedArtifact(0.5, []float64{0.3, 0.2, 0.15, 0.15, 0.1, 0.1}))

	info, err := svc.Info()
	require.NoError(t, err)
	assert.Equal(t, "test_artifact", info.ArtifactID)
	assert.Equal(t, "fixed", info.ModelName)
	assert.Equal(t, core.FeatureColumns, info.FeatureColumns)
	assert.InDelta(t, 0.88, info.Metrics.F1, 1e-12)
	assert.InDelta(t, 0.3, info.Importance["variety_score"], 1e-12)
}
