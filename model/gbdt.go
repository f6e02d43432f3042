package model

import (
	"math"
	"math/rand"
)

// GradientBoosting 实现梯度提升树（GBDT）分类器。
//
// 训练原理：
// 1. 初始预测为基准对数几率 F0 = log(p0 / (1 - p0))
// 2. 每轮对当前负梯度（残差 y - p）拟合一棵浅回归树
// 3. 叶值取 Newton 步长 sum(r) / sum(p(1-p))，按学习率累加进 F
//
// 预测为 sigmoid(F0 + lr * sum(tree_k(x)))。
type GradientBoosting struct {
	Trees       []*cartNode `json:"trees"`
	Init        float64     `json:"init"` // 基准对数几率
	Importances []float64   `json:"importances,omitempty"`

	NumTrees        int     `json:"num_trees"`
	LearningRate    float64 `json:"learning_rate"`
	MaxDepth        int     `json:"max_depth"`
	MinSamplesSplit int     `json:"min_samples_split"`
	MinSamplesLeaf  int     `json:"min_samples_leaf"`
	Seed            int64   `json:"seed"`
}

// GBDTConfig 是梯度提升的训练超参数。
type GBDTConfig struct {
	NumTrees        int
	LearningRate    float64
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	Seed            int64
}

// NewGradientBoosting 创建 GBDT 分类器，零值超参数取默认。
func NewGradientBoosting(cfg GBDTConfig) *GradientBoosting {
	if cfg.NumTrees <= 0 {
		cfg.NumTrees = 100
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = 0.1
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 3
	}
	if cfg.MinSamplesSplit <= 0 {
		cfg.MinSamplesSplit = 2
	}
	if cfg.MinSamplesLeaf <= 0 {
		cfg.MinSamplesLeaf = 1
	}
	return &GradientBoosting{
		NumTrees:        cfg.NumTrees,
		LearningRate:    cfg.LearningRate,
		MaxDepth:        cfg.MaxDepth,
		MinSamplesSplit: cfg.MinSamplesSplit,
		MinSamplesLeaf:  cfg.MinSamplesLeaf,
		Seed:            cfg.Seed,
	}
}

func (m *GradientBoosting) Name() string { return NameGradientBoosting }

// Fit 逐轮拟合残差。
func (m *GradientBoosting) Fit(X [][]float64, y []int, weights []float64) error {
	if err := checkFit(m.Name(), X, y, weights); err != nil {
		return err
	}
	n := len(X)

	var sumW, sumWY float64
	for i, w := range weights {
		sumW += w
		sumWY += w * float64(y[i])
	}
	p0 := sumWY / sumW
	// 极端基准率压回内部，避免无穷初值
	if p0 < 1e-6 {
		p0 = 1e-6
	}
	if p0 > 1-1e-6 {
		p0 = 1 - 1e-6
	}
	m.Init = math.Log(p0 / (1 - p0))

	rng := rand.New(rand.NewSource(m.Seed))
	cfg := cartConfig{
		maxDepth:        m.MaxDepth,
		minSamplesSplit: m.MinSamplesSplit,
		minSamplesLeaf:  m.MinSamplesLeaf,
	}

	F := make([]float64, n)
	for i := range F {
		F[i] = m.Init
	}
	residual := make([]float64, n)
	hess := make([]float64, n)
	allIdx := make([]int, n)
	for i := range allIdx {
		allIdx[i] = i
	}

	imp := make([]float64, len(X[0]))
	m.Trees = make([]*cartNode, 0, m.NumTrees)
	for t := 0; t < m.NumTrees; t++ {
		for i := range X {
			p := sigmoid(F[i])
			residual[i] = float64(y[i]) - p
			hess[i] = p * (1 - p)
		}
		tree := growCART(X, residual, weights, hess, allIdx, 0, cfg, rng, imp)
		m.Trees = append(m.Trees, tree)
		for i, row := range X {
			F[i] += m.LearningRate * tree.predict(row)
		}
	}
	m.Importances = normalizeImportance(imp)
	return nil
}

// PredictProba 累加各树输出后过 sigmoid。
func (m *GradientBoosting) PredictProba(x []float64) (float64, error) {
	if len(m.Trees) == 0 {
		return 0, errNotFitted(m.Name())
	}
	f := m.Init
	for _, tree := range m.Trees {
		f += m.LearningRate * tree.predict(x)
	}
	return sigmoid(f), nil
}

// FeatureImportance 返回归一化的不纯度下降重要性。
func (m *GradientBoosting) FeatureImportance() []float64 {
	return m.Importances
}
