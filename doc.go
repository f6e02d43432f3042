// Package matchkit 是种植计划与商品匹配度打分工具包（Match Kit）。
//
// 设计要点：
// - 双阶段架构：离线训练（dataset → trainer → store）与在线打分（store → scoring）
//   共享同一套 core 领域类型，特征列顺序全链路唯一
// - 多候选选型：四种候选分类器同场竞争，按留出测试集 F1 选出最优者
// - 工件整体性：模型与缩放器出自同一次训练，作为带元信息的三件套原子保存/加载
// - 校验前置：缺失特征、越界取值在打分边界一次性报出，绝不静默补零
package matchkit

import "github.com/utesolo/matchkit/core"

// 轻量 facade：便于用户直接 import matchkit 使用核心抽象。
type FeatureVector = core.FeatureVector
type LabeledSample = core.LabeledSample
type ScoreResult = core.ScoreResult
type Classifier = core.Classifier
type TrainedArtifact = core.TrainedArtifact

const NumFeatures = core.NumFeatures
