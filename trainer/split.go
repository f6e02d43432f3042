package trainer

import (
	"math/rand"

	"github.com/utesolo/matchkit/core"
)

// StratifiedSplit 把样本确定性地切分为训练/测试两份：
// 固定种子、固定比例，每个类别内部洗牌后按比例划入测试集，
// 源数据中的类别不平衡会在两份切分中同比例保留。
func StratifiedSplit(samples []core.LabeledSample, testFrac float64, seed int64) (train, test []core.LabeledSample) {
	rng := rand.New(rand.NewSource(seed))
	for _, classIdx := range byClass(samples) {
		rng.Shuffle(len(classIdx), func(a, b int) { classIdx[a], classIdx[b] = classIdx[b], classIdx[a] })
		nTest := int(float64(len(classIdx))*testFrac + 0.5)
		// 两个类都非空时，测试集至少留一条、训练集至少留一条
		if nTest == 0 && len(classIdx) > 1 && testFrac > 0 {
			nTest = 1
		}
		if nTest >= len(classIdx) {
			nTest = len(classIdx) - 1
		}
		for i, idx := range classIdx {
			if i < nTest {
				test = append(test, samples[idx])
			} else {
				train = append(train, samples[idx])
			}
		}
	}
	return train, test
}

// StratifiedFolds 把样本确定性地分成 k 个分层折，用于交叉验证。
// 每折内的类别比例与整体一致（轮转分配）。
func StratifiedFolds(samples []core.LabeledSample, k int, seed int64) [][]int {
	if k < 2 {
		k = 2
	}
	if k > len(samples) {
		k = len(samples)
	}
	rng := rand.New(rand.NewSource(seed))
	folds := make([][]int, k)
	for _, classIdx := range byClass(samples) {
		rng.Shuffle(len(classIdx), func(a, b int) { classIdx[a], classIdx[b] = classIdx[b], classIdx[a] })
		for i, idx := range classIdx {
			folds[i%k] = append(folds[i%k], idx)
		}
	}
	return folds
}

// byClass 返回负类/正类的样本下标（遍历顺序固定，保证可复现）。
func byClass(samples []core.LabeledSample) [2][]int {
	var classes [2][]int
	for i, s := range samples {
		if s.Label == 1 {
			classes[1] = append(classes[1], i)
		} else {
			classes[0] = append(classes[0], i)
		}
	}
	return classes
}

// ClassWeights 计算逆频率类权重并展开为每样本权重，
// 等价于 class_weight="balanced"：w_c = n / (2 * n_c)。
func ClassWeights(y []int) []float64 {
	var counts [2]float64
	for _, label := range y {
		counts[label]++
	}
	n := float64(len(y))
	weights := make([]float64, len(y))
	for i, label := range y {
		if counts[label] > 0 {
			weights[i] = n / (2 * counts[label])
		} else {
			weights[i] = 1
		}
	}
	return weights
}
