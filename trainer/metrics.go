package trainer

import (
	"sort"

	"github.com/utesolo/matchkit/core"
)

// Evaluate 在留出集上计算评估指标。
// yProb 为 nil 时 AUC 记 0（模型不输出概率）。
func Evaluate(yTrue, yPred []int, yProb []float64) core.EvalMetrics {
	var m core.EvalMetrics
	for i, actual := range yTrue {
		m.Confusion[actual][yPred[i]]++
	}
	tn := float64(m.Confusion[0][0])
	fp := float64(m.Confusion[0][1])
	fn := float64(m.Confusion[1][0])
	tp := float64(m.Confusion[1][1])

	total := tn + fp + fn + tp
	if total > 0 {
		m.Accuracy = (tp + tn) / total
	}
	if tp+fp > 0 {
		m.Precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		m.Recall = tp / (tp + fn)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	if yProb != nil {
		m.AUC = rocAUC(yTrue, yProb)
	}
	return m
}

// rocAUC 用秩统计量（Mann-Whitney U）计算 ROC AUC，并列概率取平均秩。
// 只有单一类别时返回 0。
func rocAUC(yTrue []int, yProb []float64) float64 {
	n := len(yTrue)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return yProb[order[a]] < yProb[order[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j < n && yProb[order[j]] == yProb[order[i]] {
			j++
		}
		avg := float64(i+j+1) / 2 // 平均秩（秩从 1 开始）
		for k := i; k < j; k++ {
			ranks[order[k]] = avg
		}
		i = j
	}

	var nPos, nNeg, rankSum float64
	for i, label := range yTrue {
		if label == 1 {
			nPos++
			rankSum += ranks[i]
		} else {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		return 0
	}
	return (rankSum - nPos*(nPos+1)/2) / (nPos * nNeg)
}

// predictLabels 按 0.5 概率阈值把概率转为预测标签。
func predictLabels(probs []float64) []int {
	out := make([]int, len(probs))
	for i, p := range probs {
		if p >= 0.5 {
			out[i] = 1
		}
	}
	return out
}
