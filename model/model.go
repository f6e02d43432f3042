// Package model 实现候选分类器族：逻辑回归、随机森林、梯度提升树、MLP。
// 所有实现都满足 core.Classifier 契约，训练器与打分服务只面向接口编程。
package model

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/utesolo/matchkit/core"
)

// 候选分类器名称。选型报告与持久化元信息都使用这些名称。
const (
	NameLogisticRegression = "logistic_regression"
	NameRandomForest       = "random_forest"
	NameGradientBoosting   = "gradient_boosting"
	NameMLP                = "mlp"
)

// Encode 把已拟合的分类器序列化为 JSON blob（与教师权重文件同一格式族）。
func Encode(c core.Classifier) ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode model %s: %w", c.Name(), err)
	}
	return data, nil
}

// Decode 按模型名称反序列化分类器。未知名称是致命加载错误。
func Decode(name string, data []byte) (core.Classifier, error) {
	var c core.Classifier
	switch name {
	case NameLogisticRegression:
		c = &LogisticRegression{}
	case NameRandomForest:
		c = &RandomForest{}
	case NameGradientBoosting:
		c = &GradientBoosting{}
	case NameMLP:
		c = &MLP{}
	default:
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeNotFound,
			fmt.Sprintf("unknown model name: %s", name))
	}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", name, err)
	}
	return c, nil
}

// sigmoid Sigmoid 激活函数。
func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// clampProb 把概率压回 [0, 1]（树均值等数值路径的防护）。
func clampProb(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// checkFit 校验训练输入形状一致且非空。
func checkFit(name string, X [][]float64, y []int, weights []float64) error {
	if len(X) == 0 {
		return fmt.Errorf("%s: empty training set", name)
	}
	if len(y) != len(X) || len(weights) != len(X) {
		return fmt.Errorf("%s: shape mismatch: %d samples, %d labels, %d weights",
			name, len(X), len(y), len(weights))
	}
	return nil
}

// errNotFitted 未经 Fit 的模型被调用推理。
func errNotFitted(name string) error {
	return fmt.Errorf("%s: model not fitted", name)
}

// checkPredict 校验推理输入维度。
func checkPredict(name string, x []float64, dim int) error {
	if len(x) != dim {
		return fmt.Errorf("%s: expected %d features, got %d", name, dim, len(x))
	}
	return nil
}
