package model

import (
	"math/rand"
	"sort"
)

// cartNode 是 CART 树节点。字段导出以便与模型一起 JSON 持久化。
// 二分类树的目标是 0/1 标签（叶值=加权正类比例），
// 梯度提升的回归树目标是残差（叶值=Newton 步长）。
type cartNode struct {
	Feature   int       `json:"f"`
	Threshold float64   `json:"t"`
	Left      *cartNode `json:"l,omitempty"`
	Right     *cartNode `json:"r,omitempty"`
	Leaf      bool      `json:"leaf,omitempty"`
	Value     float64   `json:"v"`
}

// predict 沿树下行到叶子。
func (n *cartNode) predict(x []float64) float64 {
	for !n.Leaf {
		if x[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Value
}

type cartConfig struct {
	maxDepth        int // <=0 表示不限
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int // <=0 表示全部特征
}

// growCART 在 idx 指定的样本子集上递归生长一棵树。
//
// 分裂准则是加权方差（对 0/1 目标等价于 Gini 的一半，最小化目标相同），
// 分类与回归共用一套扫描逻辑。
//   - targets: 分类时为 0/1 标签，梯度提升时为负梯度（残差）
//   - hess: 可选二阶项；非 nil 时叶值取 Newton 步 sum(w*t)/sum(w*h)，
//     nil 时叶值取加权均值
//   - importance: 非 nil 时按特征累计加权不纯度下降
func growCART(X [][]float64, targets, w, hess []float64, idx []int, depth int,
	cfg cartConfig, rng *rand.Rand, importance []float64) *cartNode {

	sumW, sumWT := subsetSums(targets, w, idx)
	if sumW <= 0 {
		return &cartNode{Leaf: true, Value: 0}
	}

	leaf := func() *cartNode {
		return &cartNode{Leaf: true, Value: leafValue(targets, w, hess, idx, sumW, sumWT)}
	}

	if len(idx) < cfg.minSamplesSplit || (cfg.maxDepth > 0 && depth >= cfg.maxDepth) {
		return leaf()
	}
	parentImp := impurity(targets, w, idx, sumW, sumWT)
	if parentImp <= 1e-12 {
		return leaf()
	}

	numFeatures := len(X[0])
	candidates := featureCandidates(numFeatures, cfg.maxFeatures, rng)

	best := splitResult{gain: 0, feature: -1}
	for _, f := range candidates {
		if s := bestSplitOnFeature(X, targets, w, idx, f, cfg.minSamplesLeaf, parentImp, sumW, sumWT); s.gain > best.gain {
			best = s
		}
	}
	if best.feature < 0 {
		return leaf()
	}

	if importance != nil {
		importance[best.feature] += best.gain
	}

	leftIdx := make([]int, 0, len(idx))
	rightIdx := make([]int, 0, len(idx))
	for _, i := range idx {
		if X[i][best.feature] <= best.threshold {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}

	return &cartNode{
		Feature:   best.feature,
		Threshold: best.threshold,
		Left:      growCART(X, targets, w, hess, leftIdx, depth+1, cfg, rng, importance),
		Right:     growCART(X, targets, w, hess, rightIdx, depth+1, cfg, rng, importance),
	}
}

type splitResult struct {
	feature   int
	threshold float64
	gain      float64
}

// bestSplitOnFeature 对单个特征按值排序后做一次前缀和扫描，
// 在相邻不同取值的中点处评估加权方差增益。
func bestSplitOnFeature(X [][]float64, targets, w []float64, idx []int, f int,
	minLeaf int, parentImp, sumW, sumWT float64) splitResult {

	ordered := make([]int, len(idx))
	copy(ordered, idx)
	sort.Slice(ordered, func(a, b int) bool { return X[ordered[a]][f] < X[ordered[b]][f] })

	var sumWT2 float64
	for _, i := range idx {
		sumWT2 += w[i] * targets[i] * targets[i]
	}

	best := splitResult{feature: -1}
	var lw, lwt, lwt2 float64
	for pos := 0; pos < len(ordered)-1; pos++ {
		i := ordered[pos]
		lw += w[i]
		lwt += w[i] * targets[i]
		lwt2 += w[i] * targets[i] * targets[i]

		next := ordered[pos+1]
		if X[i][f] == X[next][f] {
			continue
		}
		if pos+1 < minLeaf || len(ordered)-pos-1 < minLeaf {
			continue
		}
		rw := sumW - lw
		if lw <= 0 || rw <= 0 {
			continue
		}

		// 加权方差: E[t^2] - E[t]^2
		leftImp := lwt2/lw - (lwt/lw)*(lwt/lw)
		rwt := sumWT - lwt
		rightImp := (sumWT2-lwt2)/rw - (rwt/rw)*(rwt/rw)

		gain := parentImp*sumW - leftImp*lw - rightImp*rw
		if gain > best.gain {
			best = splitResult{
				feature:   f,
				threshold: (X[i][f] + X[next][f]) / 2,
				gain:      gain,
			}
		}
	}
	return best
}

func subsetSums(targets, w []float64, idx []int) (sumW, sumWT float64) {
	for _, i := range idx {
		sumW += w[i]
		sumWT += w[i] * targets[i]
	}
	return sumW, sumWT
}

func impurity(targets, w []float64, idx []int, sumW, sumWT float64) float64 {
	var sumWT2 float64
	for _, i := range idx {
		sumWT2 += w[i] * targets[i] * targets[i]
	}
	mean := sumWT / sumW
	return sumWT2/sumW - mean*mean
}

func leafValue(targets, w, hess []float64, idx []int, sumW, sumWT float64) float64 {
	if hess == nil {
		return sumWT / sumW
	}
	var sumWH float64
	for _, i := range idx {
		sumWH += w[i] * hess[i]
	}
	return sumWT / (sumWH + 1e-12)
}

// featureCandidates 返回本次分裂可用的特征子集（随机森林的列抽样）。
func featureCandidates(numFeatures, maxFeatures int, rng *rand.Rand) []int {
	if maxFeatures <= 0 || maxFeatures >= numFeatures || rng == nil {
		all := make([]int, numFeatures)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return rng.Perm(numFeatures)[:maxFeatures]
}

// normalizeImportance 把累计增益归一化为和为 1 的重要性向量。
func normalizeImportance(imp []float64) []float64 {
	var total float64
	for _, v := range imp {
		total += v
	}
	if total <= 0 {
		return imp
	}
	out := make([]float64, len(imp))
	for i, v := range imp {
		out[i] = v / total
	}
	return out
}
