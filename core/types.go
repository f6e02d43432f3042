package core

import (
	"math"
	"sort"
	"strings"
)

// FeatureColumns 是特征列的规范顺序。
// 训练、持久化、在线打分都必须使用同一份顺序，顺序不一致视为致命错误。
var FeatureColumns = []string{
	"variety_score", // 品种一致性
	"region_score",  // 区域适配
	"climate_score", // 气候匹配
	"season_score",  // 季节匹配
	"quality_score", // 种子质量
	"intent_score",  // 供需意图
}

// NumFeatures 是特征维度数。
const NumFeatures = 6

// 特征取值范围，所有得分都是 0-100 的百分制。
const (
	FeatureMin = 0.0
	FeatureMax = 100.0
)

// FeatureVector 是一条已校验的 6 维特征向量，值按 FeatureColumns 顺序排列。
// 构造成功后不可变；缺失的 key 是硬校验错误，绝不静默补 0
// （补 0 会让"真实低分"与"漏传字段"无法区分）。
type FeatureVector struct {
	values [NumFeatures]float64
}

// NewFeatureVector 从特征映射构建 FeatureVector。
// 校验顺序：先检查 6 个必需 key 是否齐全（错误信息列出所有缺失 key），
// 再检查每个值是否落在 [0, 100] 区间（边界值 0 和 100 合法）。
func NewFeatureVector(features map[string]float64) (FeatureVector, error) {
	var v FeatureVector

	var missing []string
	for _, col := range FeatureColumns {
		if _, ok := features[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return v, NewMissingFeatureError(missing)
	}

	for i, col := range FeatureColumns {
		val := features[col]
		if math.IsNaN(val) || val < FeatureMin || val > FeatureMax {
			return v, NewOutOfRangeError()
		}
		v.values[i] = val
	}
	return v, nil
}

// Values 返回按规范顺序排列的特征值副本。
func (v FeatureVector) Values() []float64 {
	out := make([]float64, NumFeatures)
	copy(out, v.values[:])
	return out
}

// Get 按列名取值，未知列名返回 0。
func (v FeatureVector) Get(name string) float64 {
	for i, col := range FeatureColumns {
		if col == name {
			return v.values[i]
		}
	}
	return 0
}

// Map 返回列名到值的映射副本。
func (v FeatureVector) Map() map[string]float64 {
	m := make(map[string]float64, NumFeatures)
	for i, col := range FeatureColumns {
		m[col] = v.values[i]
	}
	return m
}

// LabeledSample 是一条带标签的训练样本（仅训练期使用）。
// Label=1 表示用户确认/购买了该匹配。
type LabeledSample struct {
	Features FeatureVector
	Label    int
}

// FeatureContribution 是单个特征的展示用贡献度：原始值 × 模型全局重要性。
// 仅用于解释展示，不参与任何决策。
type FeatureContribution struct {
	Value      float64 `json:"value"`
	Importance float64 `json:"importance"`
}

// ScoreResult 是一次打分的输出，临时对象，不持久化。
type ScoreResult struct {
	// Probability 是模型输出的正类概率，范围 [0, 1]。
	Probability float64 `json:"probability"`
	// Score = Probability*100，保留两位小数。
	Score float64 `json:"score"`
	// Grade 是按 Score 划分的等级（A/B/C/D）。
	Grade string `json:"grade"`
	// Recommendation 是按概率分档生成的建议文案。
	Recommendation string `json:"recommendation"`
	// HeuristicScore 是固定权重的线性合成分，与模型得分是两套口径，
	// 只作为独立字段展示，绝不混入 Grade 的计算。
	HeuristicScore float64 `json:"heuristic_score"`
	// Features 是各特征的展示用贡献度（模型支持重要性时才有）。
	Features map[string]FeatureContribution `json:"features,omitempty"`
}

// GradeOf 按得分（0-100）计算等级。对 [0, 100] 全域有定义且互不重叠：
// score>=80 → A，60<=score<80 → B，40<=score<60 → C，score<40 → D。
func GradeOf(score float64) string {
	switch {
	case score >= 80:
		return "A"
	case score >= 60:
		return "B"
	case score >= 40:
		return "C"
	default:
		return "D"
	}
}

// 建议文案。注意这里按概率分档，与 Grade 的得分分档是两套独立阈值。
const (
	RecommendStrong   = "strongly recommended"
	RecommendNormal   = "recommended"
	RecommendFallback = "optional fallback"
	RecommendNone     = "not recommended"
)

// RecommendationOf 按正类概率生成建议文案：
// p>=0.7 强烈推荐，0.5<=p<0.7 建议选用，0.3<=p<0.5 可作备选，p<0.3 不推荐。
func RecommendationOf(p float64) string {
	switch {
	case p >= 0.7:
		return RecommendStrong
	case p >= 0.5:
		return RecommendNormal
	case p >= 0.3:
		return RecommendFallback
	default:
		return RecommendNone
	}
}

// Round2 保留两位小数（四舍五入）。
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round4 保留四位小数（四舍五入），用于概率输出。
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// ColumnsEqual 检查一组列名是否与规范顺序完全一致（含顺序）。
func ColumnsEqual(cols []string) bool {
	if len(cols) != len(FeatureColumns) {
		return false
	}
	for i, c := range cols {
		if c != FeatureColumns[i] {
			return false
		}
	}
	return true
}

// JoinColumns 把列名拼成展示字符串，用于日志和错误信息。
func JoinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}
