package core

import (
	"context"
	"time"
)

// Classifier 是候选分类器的统一能力契约。
//
// 设计原则：
//   - 定义在领域层（core），由 model 包实现
//   - 训练器与打分服务只面向此接口编程，不关心具体算法族
//   - Fit 输入已缩放的特征矩阵与每样本权重（类别不平衡用逆频率权重修正）
//
// 实现：
//   - model.LogisticRegression
//   - model.RandomForest
//   - model.GradientBoosting
//   - model.MLP
type Classifier interface {
	// Name 返回分类器名称（用于日志/元信息/选型报告）
	Name() string

	// Fit 在缩放后的训练矩阵上拟合模型。
	// X 的列顺序必须是 FeatureColumns 顺序；weights 与样本一一对应。
	Fit(X [][]float64, y []int, weights []float64) error

	// PredictProba 返回单个样本的正类概率，范围 [0, 1]。
	PredictProba(x []float64) (float64, error)
}

// FeatureImportancer 是可选能力：给出按列顺序排列的全局特征重要性。
// 树模型返回原生重要性，线性模型返回系数绝对值，其余模型不实现此接口。
type FeatureImportancer interface {
	FeatureImportance() []float64
}

// Scaler 是特征缩放的领域接口，feature 包实现。
// 训练期 fit 一次，推理期只做变换，绝不重新拟合。
type Scaler interface {
	// Transform 按训练期统计量变换一条按规范顺序排列的特征向量。
	Transform(x []float64) []float64
}

// ArtifactMeta 是持久化工件的元信息记录。
type ArtifactMeta struct {
	ModelName      string      `json:"model_name"`
	FeatureColumns []string    `json:"feature_columns"`
	CreatedAt      time.Time   `json:"created_at"`
	Metrics        EvalMetrics `json:"metrics"`
}

// EvalMetrics 是单个候选模型在留出测试集上的评估指标。
type EvalMetrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	// AUC 仅在模型能输出概率时有效。
	AUC float64 `json:"auc"`
	// Confusion 是混淆矩阵 [实际][预测]，0=负类 1=正类。
	Confusion [2][2]int `json:"confusion_matrix"`
	// CVMean/CVStd 是训练集上 k 折交叉验证准确率的均值与标准差。
	CVMean float64 `json:"cv_mean"`
	CVStd  float64 `json:"cv_std"`
}

// TrainedArtifact 是一次训练运行产出的完整工件：
// 模型、与它同一次运行中拟合的缩放器、元信息、全局特征重要性。
//
// 不变式：Scaler 与 Model 必须出自同一次训练（混用不同批次是未定义行为），
// 因此两者始终作为同一个带 ID 的整体保存与加载，创建后只读。
type TrainedArtifact struct {
	ID         string
	Model      Classifier
	Scaler     Scaler
	Meta       ArtifactMeta
	Importance []float64 // 按列顺序；模型不支持时为 nil
}

// ArtifactStore 是模型工件存储的领域接口。
//
// 实现：
//   - store.FileStore（文件系统，三件套原子落盘）
//   - store.MemoryStore（内存，测试用）
type ArtifactStore interface {
	// Save 持久化工件（模型、缩放器、元信息三件套不可部分写入），返回工件 ID。
	Save(ctx context.Context, a *TrainedArtifact) (string, error)

	// Load 按 ID 加载工件。元信息中的特征列顺序与规范顺序不一致时返回致命错误，
	// 绝不静默重排。
	Load(ctx context.Context, id string) (*TrainedArtifact, error)
}
