package scoring

import (
	"github.com/utesolo/matchkit/core"
)

// heuristicWeights 是规则口径的固定合成权重，按规范列顺序排列。
// 品种匹配权重最高，购买意向最低。权重和为 1。
var heuristicWeights = [core.NumFeatures]float64{
	0.25, // variety_score
	0.20, // region_score
	0.15, // climate_score
	0.15, // season_score
	0.15, // quality_score
	0.10, // intent_score
}

// HeuristicScore 计算固定权重的线性合成分（0-100，保留两位小数）。
// 它与模型概率得分是两套独立口径：模型不可用时仍可作为参考展示，
// 但等级与建议永远只由模型得分决定。
func HeuristicScore(fv core.FeatureVector) float64 {
	vals := fv.Values()
	var sum float64
	for i, w := range heuristicWeights {
		sum += w * vals[i]
	}
	return core.Round2(sum)
}
