package model

import (
	"math"
	"math/rand"
)

// MLP 是小型前馈神经网络分类器（多层感知机）。
//
// 结构：输入层（特征维度）→ 若干 ReLU 隐层 → 单个 sigmoid 输出。
// 训练用小批量 SGD + 反向传播，固定种子下初始化与洗牌都可复现。
// 黑盒模型，不提供特征重要性。
type MLP struct {
	// HiddenLayers 是各隐层的神经元数量，例如 [64, 32]
	HiddenLayers []int `json:"hidden_layers"`

	// Weights 是每层的权重矩阵
	// weights[layer][neuron][input] = weight
	Weights [][][]float64 `json:"weights"`

	// Biases 是每层的偏置
	// biases[layer][neuron] = bias
	Biases [][]float64 `json:"biases"`

	InputDim     int     `json:"input_dim"`
	LearningRate float64 `json:"learning_rate"`
	Epochs       int     `json:"epochs"`
	BatchSize    int     `json:"batch_size"`
	Seed         int64   `json:"seed"`
}

// MLPConfig 是 MLP 的训练超参数。
type MLPConfig struct {
	HiddenLayers []int
	LearningRate float64
	Epochs       int
	BatchSize    int
	Seed         int64
}

// NewMLP 创建 MLP 分类器，零值超参数取默认（隐层 64-32）。
func NewMLP(cfg MLPConfig) *MLP {
	if len(cfg.HiddenLayers) == 0 {
		cfg.HiddenLayers = []int{64, 32}
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = 0.01
	}
	if cfg.Epochs <= 0 {
		cfg.Epochs = 200
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	return &MLP{
		HiddenLayers: cfg.HiddenLayers,
		LearningRate: cfg.LearningRate,
		Epochs:       cfg.Epochs,
		BatchSize:    cfg.BatchSize,
		Seed:         cfg.Seed,
	}
}

func (m *MLP) Name() string { return NameMLP }

// layerSizes 返回含输出层的各层神经元数。
func (m *MLP) layerSizes() []int {
	return append(append([]int{}, m.HiddenLayers...), 1)
}

// initParams Xavier 初始化权重。
func (m *MLP) initParams(inputDim int, rng *rand.Rand) {
	m.InputDim = inputDim
	sizes := m.layerSizes()
	m.Weights = make([][][]float64, len(sizes))
	m.Biases = make([][]float64, len(sizes))

	prev := inputDim
	for l, size := range sizes {
		m.Weights[l] = make([][]float64, size)
		m.Biases[l] = make([]float64, size)
		scale := math.Sqrt(2.0 / float64(prev+size))
		for j := 0; j < size; j++ {
			m.Weights[l][j] = make([]float64, prev)
			for k := 0; k < prev; k++ {
				m.Weights[l][j][k] = rng.NormFloat64() * scale
			}
		}
		prev = size
	}
}

// forward 前向传播，返回每层激活值（含输入层，便于反向传播）。
func (m *MLP) forward(x []float64) [][]float64 {
	sizes := m.layerSizes()
	acts := make([][]float64, len(sizes)+1)
	acts[0] = x

	current := x
	for l, size := range sizes {
		next := make([]float64, size)
		for j := 0; j < size; j++ {
			sum := m.Biases[l][j]
			for k, v := range current {
				sum += m.Weights[l][j][k] * v
			}
			if l < len(sizes)-1 {
				next[j] = relu(sum)
			} else {
				next[j] = sigmoid(sum)
			}
		}
		acts[l+1] = next
		current = next
	}
	return acts
}

// Fit 小批量 SGD + 反向传播拟合加权对数损失。
func (m *MLP) Fit(X [][]float64, y []int, weights []float64) error {
	if err := checkFit(m.Name(), X, y, weights); err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(m.Seed))
	m.initParams(len(X[0]), rng)

	n := len(X)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	for epoch := 0; epoch < m.Epochs; epoch++ {
		rng.Shuffle(n, func(a, b int) { order[a], order[b] = order[b], order[a] })
		for start := 0; start < n; start += m.BatchSize {
			end := start + m.BatchSize
			if end > n {
				end = n
			}
			m.updateBatch(X, y, weights, order[start:end])
		}
	}
	return nil
}

// updateBatch 对一个小批量累积梯度并更新参数。
func (m *MLP) updateBatch(X [][]float64, y []int, weights []float64, batch []int) {
	sizes := m.layerSizes()

	gradW := make([][][]float64, len(sizes))
	gradB := make([][]float64, len(sizes))
	for l := range sizes {
		gradW[l] = make([][]float64, sizes[l])
		gradB[l] = make([]float64, sizes[l])
		for j := range gradW[l] {
			gradW[l][j] = make([]float64, len(m.Weights[l][j]))
		}
	}

	var batchWeight float64
	for _, i := range batch {
		batchWeight += weights[i]
	}
	if batchWeight <= 0 {
		batchWeight = float64(len(batch))
	}

	for _, i := range batch {
		acts := m.forward(X[i])

		// 输出层 delta：sigmoid + 对数损失的组合梯度是 (p - y)
		out := len(sizes) - 1
		delta := []float64{weights[i] * (acts[len(acts)-1][0] - float64(y[i]))}

		for l := out; l >= 0; l-- {
			prevAct := acts[l]
			for j := range delta {
				gradB[l][j] += delta[j]
				for k, a := range prevAct {
					gradW[l][j][k] += delta[j] * a
				}
			}
			if l == 0 {
				break
			}
			// 反传到上一层，ReLU 的导数按激活值是否为正
			prevDelta := make([]float64, sizes[l-1])
			for k := range prevDelta {
				var sum float64
				for j := range delta {
					sum += delta[j] * m.Weights[l][j][k]
				}
				if acts[l][k] > 0 {
					prevDelta[k] = sum
				}
			}
			delta = prevDelta
		}
	}

	step := m.LearningRate / batchWeight
	for l := range sizes {
		for j := range m.Weights[l] {
			m.Biases[l][j] -= step * gradB[l][j]
			for k := range m.Weights[l][j] {
				m.Weights[l][j][k] -= step * gradW[l][j][k]
			}
		}
	}
}

// PredictProba 返回正类概率。
func (m *MLP) PredictProba(x []float64) (float64, error) {
	if len(m.Weights) == 0 {
		return 0, errNotFitted(m.Name())
	}
	if err := checkPredict(m.Name(), x, m.InputDim); err != nil {
		return 0, err
	}
	acts := m.forward(x)
	return acts[len(acts)-1][0], nil
}

// relu ReLU 激活函数。
func relu(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}
