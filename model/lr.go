package model

import (
	"math"
)

// LogisticRegression 实现逻辑回归 (Logistic Regression) 分类器。
// 点击/确认类二分类最基础也最经典的算法。
//
// 预测原理：
// 1. 线性加权求和: z = Bias + sum(Weight_i * Feature_i)
// 2. Sigmoid 变换: P = 1 / (1 + exp(-z))
//
// 训练用全量梯度下降拟合对数损失，类别不平衡通过每样本权重
// （逆频率类权重）修正，带 L2 正则。权重初始化为 0，训练完全确定。
type LogisticRegression struct {
	Bias    float64   `json:"bias"`
	Weights []float64 `json:"weights"` // 按规范列顺序

	LearningRate float64 `json:"learning_rate"`
	Epochs       int     `json:"epochs"`
	L2           float64 `json:"l2"`
}

// LRConfig 是逻辑回归的训练超参数。
type LRConfig struct {
	LearningRate float64
	Epochs       int
	L2           float64
}

// NewLogisticRegression 创建逻辑回归分类器，零值超参数取默认。
func NewLogisticRegression(cfg LRConfig) *LogisticRegression {
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = 0.1
	}
	if cfg.Epochs <= 0 {
		cfg.Epochs = 300
	}
	if cfg.L2 < 0 {
		cfg.L2 = 0
	}
	return &LogisticRegression{
		LearningRate: cfg.LearningRate,
		Epochs:       cfg.Epochs,
		L2:           cfg.L2,
	}
}

func (m *LogisticRegression) Name() string { return NameLogisticRegression }

// Fit 全量梯度下降拟合加权对数损失。
func (m *LogisticRegression) Fit(X [][]float64, y []int, weights []float64) error {
	if err := checkFit(m.Name(), X, y, weights); err != nil {
		return err
	}
	dim := len(X[0])
	m.Weights = make([]float64, dim)
	m.Bias = 0

	var totalWeight float64
	for _, w := range weights {
		totalWeight += w
	}
	if totalWeight <= 0 {
		totalWeight = float64(len(X))
	}

	grad := make([]float64, dim)
	for epoch := 0; epoch < m.Epochs; epoch++ {
		for j := range grad {
			grad[j] = 0
		}
		var gradBias float64

		for i, row := range X {
			z := m.Bias
			for j, v := range row {
				z += m.Weights[j] * v
			}
			// 加权残差: w_i * (p_i - y_i)
			diff := weights[i] * (sigmoid(z) - float64(y[i]))
			gradBias += diff
			for j, v := range row {
				grad[j] += diff * v
			}
		}

		m.Bias -= m.LearningRate * gradBias / totalWeight
		for j := range m.Weights {
			g := grad[j]/totalWeight + m.L2*m.Weights[j]
			m.Weights[j] -= m.LearningRate * g
		}
	}
	return nil
}

// PredictProba 返回正类概率。
func (m *LogisticRegression) PredictProba(x []float64) (float64, error) {
	if err := checkPredict(m.Name(), x, len(m.Weights)); err != nil {
		return 0, err
	}
	z := m.Bias
	for j, v := range x {
		z += m.Weights[j] * v
	}
	return sigmoid(z), nil
}

// FeatureImportance 线性模型的重要性取系数绝对值。
func (m *LogisticRegression) FeatureImportance() []float64 {
	out := make([]float64, len(m.Weights))
	for i, w := range m.Weights {
		out[i] = math.Abs(w)
	}
	return out
}
