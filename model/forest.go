package model

import (
	"math"
	"math/rand"
)

// RandomForest 实现随机森林分类器：自助采样 + 列抽样的 CART 树集成。
//
// 工程特征：
//   - 实时性：好（本地推理，树深受限）
//   - 可解释性：中等（原生特征重要性）
//   - 对类别不平衡：配合逆频率样本权重
//
// 固定随机种子下训练完全可复现：同一份数据两次训练产出相同的树。
type RandomForest struct {
	Trees       []*cartNode `json:"trees"`
	Importances []float64   `json:"importances,omitempty"`

	NumTrees        int   `json:"num_trees"`
	MaxDepth        int   `json:"max_depth"`
	MinSamplesSplit int   `json:"min_samples_split"`
	MinSamplesLeaf  int   `json:"min_samples_leaf"`
	Seed            int64 `json:"seed"`
}

// ForestConfig 是随机森林的训练超参数（网格搜索的调优对象）。
type ForestConfig struct {
	NumTrees        int
	MaxDepth        int // 0 表示不限深
	MinSamplesSplit int
	MinSamplesLeaf  int
	Seed            int64
}

// NewRandomForest 创建随机森林，零值超参数取默认。
func NewRandomForest(cfg ForestConfig) *RandomForest {
	if cfg.NumTrees <= 0 {
		cfg.NumTrees = 100
	}
	if cfg.MinSamplesSplit <= 0 {
		cfg.MinSamplesSplit = 5
	}
	if cfg.MinSamplesLeaf <= 0 {
		cfg.MinSamplesLeaf = 2
	}
	return &RandomForest{
		NumTrees:        cfg.NumTrees,
		MaxDepth:        cfg.MaxDepth,
		MinSamplesSplit: cfg.MinSamplesSplit,
		MinSamplesLeaf:  cfg.MinSamplesLeaf,
		Seed:            cfg.Seed,
	}
}

func (m *RandomForest) Name() string { return NameRandomForest }

// Fit 训练集成：每棵树在自助样本上生长，每次分裂只看 sqrt(维度) 个特征。
func (m *RandomForest) Fit(X [][]float64, y []int, weights []float64) error {
	if err := checkFit(m.Name(), X, y, weights); err != nil {
		return err
	}
	n := len(X)
	targets := make([]float64, n)
	for i, label := range y {
		targets[i] = float64(label)
	}

	rng := rand.New(rand.NewSource(m.Seed))
	maxFeatures := int(math.Sqrt(float64(len(X[0]))))
	if maxFeatures < 1 {
		maxFeatures = 1
	}
	cfg := cartConfig{
		maxDepth:        m.MaxDepth,
		minSamplesSplit: m.MinSamplesSplit,
		minSamplesLeaf:  m.MinSamplesLeaf,
		maxFeatures:     maxFeatures,
	}

	imp := make([]float64, len(X[0]))
	m.Trees = make([]*cartNode, 0, m.NumTrees)
	for t := 0; t < m.NumTrees; t++ {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = rng.Intn(n)
		}
		m.Trees = append(m.Trees, growCART(X, targets, weights, nil, idx, 0, cfg, rng, imp))
	}
	m.Importances = normalizeImportance(imp)
	return nil
}

// PredictProba 取所有树叶值（加权正类比例）的均值。
func (m *RandomForest) PredictProba(x []float64) (float64, error) {
	if len(m.Trees) == 0 {
		return 0, errNotFitted(m.Name())
	}
	var sum float64
	for _, tree := range m.Trees {
		sum += tree.predict(x)
	}
	return clampProb(sum / float64(len(m.Trees))), nil
}

// FeatureImportance 返回归一化的不纯度下降重要性。
func (m *RandomForest) FeatureImportance() []float64 {
	return m.Importances
}
