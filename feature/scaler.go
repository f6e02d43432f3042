// Package feature 提供特征缩放：训练期拟合统计量，推理期只做变换。
package feature

import (
	"math"

	"github.com/utesolo/matchkit/core"
)

// StandardScaler 是 Z-score 标准化器（Standardization）。
// 公式: z = (x - μ) / σ
// 特点: 均值变为 0，标准差变为 1
//
// 不变式：每次训练运行只在训练切分上 fit 一次（在验证/测试数据上拟合
// 会造成前视泄漏），推理期只调用 Transform，绝不重新拟合。
// 字段可导出以便与模型工件一起 JSON 持久化。
type StandardScaler struct {
	Mean []float64 `json:"mean"` // 按规范列顺序的特征均值
	Std  []float64 `json:"std"`  // 按规范列顺序的特征标准差
}

// Fit 在训练样本上计算每列的均值与标准差。
func Fit(samples []core.LabeledSample) *StandardScaler {
	n := len(samples)
	s := &StandardScaler{
		Mean: make([]float64, core.NumFeatures),
		Std:  make([]float64, core.NumFeatures),
	}
	if n == 0 {
		return s
	}

	for _, sample := range samples {
		for i, v := range sample.Features.Values() {
			s.Mean[i] += v
		}
	}
	for i := range s.Mean {
		s.Mean[i] /= float64(n)
	}

	for _, sample := range samples {
		for i, v := range sample.Features.Values() {
			d := v - s.Mean[i]
			s.Std[i] += d * d
		}
	}
	for i := range s.Std {
		s.Std[i] = math.Sqrt(s.Std[i] / float64(n))
	}
	return s
}

// Transform 按存储的统计量变换一条按规范顺序排列的特征向量。
// 零方差特征（std=0）退化为返回 0（居中输出），避免除零。
func (s *StandardScaler) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		if i >= len(s.Mean) {
			out[i] = v
			continue
		}
		if s.Std[i] > 0 {
			out[i] = (v - s.Mean[i]) / s.Std[i]
		} else {
			out[i] = 0
		}
	}
	return out
}

// TransformMatrix 变换整个特征矩阵（训练/测试切分都通过同一个 scaler）。
func (s *StandardScaler) TransformMatrix(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = s.Transform(row)
	}
	return out
}

// Matrix 把样本集展开为按规范列顺序的特征矩阵与标签向量。
func Matrix(samples []core.LabeledSample) (X [][]float64, y []int) {
	X = make([][]float64, len(samples))
	y = make([]int, len(samples))
	for i, s := range samples {
		X[i] = s.Features.Values()
		y[i] = s.Label
	}
	return X, y
}
