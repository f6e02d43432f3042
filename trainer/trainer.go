// Package trainer 实现离线训练：切分、多候选训练对比、k 折交叉验证、选型。
package trainer

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/utesolo/matchkit/core"
	"github.com/utesolo/matchkit/feature"
	"github.com/utesolo/matchkit/model"
)

// Candidate 是参与对比的候选分类器。New 每次返回全新实例，
// 保证交叉验证的每一折都从零拟合。
type Candidate struct {
	Name string
	New  func() core.Classifier
}

// Options 是一次训练运行的配置，零值字段取默认。
type Options struct {
	TestFraction float64 // 留出测试集比例，默认 0.2
	Seed         int64   // 随机种子，默认 42
	KFolds       int     // 交叉验证折数，默认 5
	Tune         bool    // 是否对随机森林做网格搜索调优
	Grid         GridOptions
	Candidates   []Candidate // 为空时使用默认四候选
	Logger       *slog.Logger
}

// DefaultCandidates 返回默认候选集，声明顺序即并列时的决胜顺序。
func DefaultCandidates(seed int64) []Candidate {
	return []Candidate{
		{Name: model.NameLogisticRegression, New: func() core.Classifier {
			return model.NewLogisticRegression(model.LRConfig{})
		}},
		{Name: model.NameRandomForest, New: func() core.Classifier {
			return model.NewRandomForest(model.ForestConfig{Seed: seed})
		}},
		{Name: model.NameGradientBoosting, New: func() core.Classifier {
			return model.NewGradientBoosting(model.GBDTConfig{Seed: seed})
		}},
		{Name: model.NameMLP, New: func() core.Classifier {
			return model.NewMLP(model.MLPConfig{Seed: seed})
		}},
	}
}

// CandidateResult 是单个候选的对比结果。
type CandidateResult struct {
	Name    string           `json:"name"`
	Metrics core.EvalMetrics `json:"metrics"`
	// FailReason 非空表示该候选拟合失败，已被排除出选型。
	FailReason string `json:"fail_reason,omitempty"`
}

// Report 是整次训练的对比报告（只用于观测，不参与后续逻辑）。
type Report struct {
	TrainSize   int               `json:"train_size"`
	TestSize    int               `json:"test_size"`
	Results     []CandidateResult `json:"results"`
	Selected    string            `json:"selected"`
	TunedForest *model.ForestConfig `json:"tuned_forest,omitempty"`
}

// TrainAndSelect 在清洗后的样本上训练全部候选并选出最优者。
//
// 流程：
//  1. 确定性分层切分训练/测试集（类别比例两边一致）
//  2. 仅在训练切分上拟合缩放器，两个切分都经它变换
//  3. 逆频率类权重修正类别不平衡（不做重采样）
//  4. 并发训练各候选，留出集评估 + 训练集 k 折交叉验证
//  5. 按测试集 F1 选优，并列先比 AUC、再按声明顺序
//
// 单个候选拟合失败只记入报告并排除；全部失败才算整次训练失败。
func TrainAndSelect(ctx context.Context, samples []core.LabeledSample, opts Options) (*core.TrainedArtifact, *Report, error) {
	if opts.TestFraction <= 0 || opts.TestFraction >= 1 {
		opts.TestFraction = 0.2
	}
	if opts.Seed == 0 {
		opts.Seed = 42
	}
	if opts.KFolds <= 1 {
		opts.KFolds = 5
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	candidates := opts.Candidates
	if len(candidates) == 0 {
		candidates = DefaultCandidates(opts.Seed)
	}
	log := opts.Logger

	trainSet, testSet := StratifiedSplit(samples, opts.TestFraction, opts.Seed)
	if len(trainSet) == 0 || len(testSet) == 0 {
		return nil, nil, core.NewDomainError(core.ModuleTrainer, core.ErrorCodeNoTrainingData,
			fmt.Sprintf("not enough samples to split: train=%d test=%d", len(trainSet), len(testSet)))
	}
	log.Info("training split", "train", len(trainSet), "test", len(testSet))

	// 缩放器只在训练切分上拟合一次
	scaler := feature.Fit(trainSet)
	Xtrain, ytrain := feature.Matrix(trainSet)
	Xtest, ytest := feature.Matrix(testSet)
	Xtrain = scaler.TransformMatrix(Xtrain)
	Xtest = scaler.TransformMatrix(Xtest)

	weights := ClassWeights(ytrain)
	folds := StratifiedFolds(trainSet, opts.KFolds, opts.Seed)

	report := &Report{TrainSize: len(trainSet), TestSize: len(testSet)}

	if opts.Tune {
		tuned, cvF1 := gridSearchForest(Xtrain, ytrain, weights, folds, opts.Seed, opts.Grid)
		log.Info("grid search finished", "params", fmt.Sprintf("%+v", tuned), "cv_f1", cvF1)
		report.TunedForest = &tuned
		for i := range candidates {
			if candidates[i].Name == model.NameRandomForest {
				cfg := tuned
				candidates[i].New = func() core.Classifier { return model.NewRandomForest(cfg) }
			}
		}
	}

	type fitted struct {
		clf     core.Classifier
		metrics core.EvalMetrics
	}
	fittedByName := make(map[string]fitted, len(candidates))
	results := make([]CandidateResult, len(candidates))

	var mu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)
	for i, cand := range candidates {
		i, cand := i, cand
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			res := CandidateResult{Name: cand.Name}

			clf := cand.New()
			if err := clf.Fit(Xtrain, ytrain, weights); err != nil {
				log.Warn("candidate failed to fit", "model", cand.Name, "err", err)
				res.FailReason = err.Error()
				mu.Lock()
				results[i] = res
				mu.Unlock()
				return nil
			}

			probs, err := predictAll(clf, Xtest)
			if err != nil {
				log.Warn("candidate failed to predict", "model", cand.Name, "err", err)
				res.FailReason = err.Error()
				mu.Lock()
				results[i] = res
				mu.Unlock()
				return nil
			}
			res.Metrics = Evaluate(ytest, predictLabels(probs), probs)

			cvMean, cvStd := crossValidate(cand.New, Xtrain, ytrain, weights, folds)
			res.Metrics.CVMean = cvMean
			res.Metrics.CVStd = cvStd

			log.Info("candidate evaluated", "model", cand.Name,
				"accuracy", res.Metrics.Accuracy, "precision", res.Metrics.Precision,
				"recall", res.Metrics.Recall, "f1", res.Metrics.F1, "auc", res.Metrics.AUC,
				"cv_mean", cvMean, "cv_std", cvStd)

			mu.Lock()
			results[i] = res
			fittedByName[cand.Name] = fitted{clf: clf, metrics: res.Metrics}
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}
	report.Results = results

	// 选型：F1 最高者胜，并列比 AUC，再并列按声明顺序（遍历顺序即声明顺序，
	// 严格大于才替换，天然保序）
	bestIdx := -1
	for i, res := range results {
		if res.FailReason != "" {
			continue
		}
		if bestIdx < 0 ||
			res.Metrics.F1 > results[bestIdx].Metrics.F1 ||
			(res.Metrics.F1 == results[bestIdx].Metrics.F1 && res.Metrics.AUC > results[bestIdx].Metrics.AUC) {
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return nil, report, core.NewDomainError(core.ModuleTrainer, core.ErrorCodeInternalError,
			"all candidate models failed to fit")
	}

	winner := fittedByName[results[bestIdx].Name]
	report.Selected = results[bestIdx].Name
	log.Info("best model selected", "model", report.Selected, "f1", results[bestIdx].Metrics.F1)

	artifact := &core.TrainedArtifact{
		Model:  winner.clf,
		Scaler: scaler,
		Meta: core.ArtifactMeta{
			ModelName:      results[bestIdx].Name,
			FeatureColumns: append([]string{}, core.FeatureColumns...),
			CreatedAt:      time.Now().UTC(),
			Metrics:        winner.metrics,
		},
	}
	if imp, ok := winner.clf.(core.FeatureImportancer); ok {
		artifact.Importance = imp.FeatureImportance()
	}
	return artifact, report, nil
}

// predictAll 逐样本推理，任一失败视为该候选整体失败。
func predictAll(clf core.Classifier, X [][]float64) ([]float64, error) {
	probs := make([]float64, len(X))
	for i, row := range X {
		p, err := clf.PredictProba(row)
		if err != nil {
			return nil, err
		}
		probs[i] = p
	}
	return probs, nil
}

// crossValidate 在训练切分上做 k 折交叉验证，返回准确率均值与标准差。
// 每折用 New 构造全新实例从零拟合；拟合失败的折按准确率 0 计。
// 类别样本数少于折数时轮转分配会留下空折，空折直接跳过，不参与均值。
func crossValidate(newClf func() core.Classifier, X [][]float64, y []int, w []float64, folds [][]int) (mean, std float64) {
	accs := make([]float64, 0, len(folds))
	for f := range folds {
		holdout := folds[f]
		if len(holdout) == 0 {
			continue
		}
		var trainIdx []int
		for g, fold := range folds {
			if g != f {
				trainIdx = append(trainIdx, fold...)
			}
		}

		fx, fy, fw := gather(X, y, w, trainIdx)
		clf := newClf()
		if err := clf.Fit(fx, fy, fw); err != nil {
			accs = append(accs, 0)
			continue
		}

		var correct int
		for _, i := range holdout {
			p, err := clf.PredictProba(X[i])
			if err != nil {
				continue
			}
			pred := 0
			if p >= 0.5 {
				pred = 1
			}
			if pred == y[i] {
				correct++
			}
		}
		accs = append(accs, float64(correct)/float64(len(holdout)))
	}
	if len(accs) == 0 {
		return 0, 0
	}

	for _, a := range accs {
		mean += a
	}
	mean /= float64(len(accs))
	for _, a := range accs {
		std += (a - mean) * (a - mean)
	}
	std = math.Sqrt(std / float64(len(accs)))
	return mean, std
}

func gather(X [][]float64, y []int, w []float64, idx []int) ([][]float64, []int, []float64) {
	gx := make([][]float64, len(idx))
	gy := make([]int, len(idx))
	gw := make([]float64, len(idx))
	for j, i := range idx {
		gx[j] = X[i]
		gy[j] = y[i]
		gw[j] = w[i]
	}
	return gx, gy, gw
}

// GridOptions 是随机森林网格搜索的参数网格，零值取默认网格。
type GridOptions struct {
	NumTrees        []int
	MaxDepths       []int // 0 表示不限深
	MinSamplesSplit []int
	MinSamplesLeaf  []int
}

func (g GridOptions) withDefaults() GridOptions {
	if len(g.NumTrees) == 0 {
		g.NumTrees = []int{50, 100, 200}
	}
	if len(g.MaxDepths) == 0 {
		g.MaxDepths = []int{5, 10, 20, 0}
	}
	if len(g.MinSamplesSplit) == 0 {
		g.MinSamplesSplit = []int{2, 5, 10}
	}
	if len(g.MinSamplesLeaf) == 0 {
		g.MinSamplesLeaf = []int{1, 2, 4}
	}
	return g
}

// gridSearchForest 对随机森林做网格搜索，以 k 折交叉验证 F1 为评分。
// 网格按声明顺序遍历，评分并列保留先出现的组合（确定性）。
func gridSearchForest(X [][]float64, y []int, w []float64, folds [][]int, seed int64, grid GridOptions) (model.ForestConfig, float64) {
	grid = grid.withDefaults()

	best := model.ForestConfig{Seed: seed}
	bestF1 := -1.0
	for _, trees := range grid.NumTrees {
		for _, depth := range grid.MaxDepths {
			for _, minSplit := range grid.MinSamplesSplit {
				for _, minLeaf := range grid.MinSamplesLeaf {
					cfg := model.ForestConfig{
						NumTrees:        trees,
						MaxDepth:        depth,
						MinSamplesSplit: minSplit,
						MinSamplesLeaf:  minLeaf,
						Seed:            seed,
					}
					f1 := crossValidateF1(func() core.Classifier { return model.NewRandomForest(cfg) }, X, y, w, folds)
					if f1 > bestF1 {
						bestF1 = f1
						best = cfg
					}
				}
			}
		}
	}
	return best, bestF1
}

// crossValidateF1 返回 k 折交叉验证的平均 F1。
func crossValidateF1(newClf func() core.Classifier, X [][]float64, y []int, w []float64, folds [][]int) float64 {
	var sum float64
	var n int
	for f := range folds {
		holdout := folds[f]
		if len(holdout) == 0 {
			continue
		}
		var trainIdx []int
		for g, fold := range folds {
			if g != f {
				trainIdx = append(trainIdx, fold...)
			}
		}
		fx, fy, fw := gather(X, y, w, trainIdx)
		clf := newClf()
		if err := clf.Fit(fx, fy, fw); err != nil {
			n++
			continue
		}
		hx, hy, _ := gather(X, y, w, holdout)
		probs, err := predictAll(clf, hx)
		if err != nil {
			n++
			continue
		}
		sum += Evaluate(hy, predictLabels(probs), probs).F1
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// SortedImportance 把重要性向量配上列名并按重要性降序排列，用于报告输出。
func SortedImportance(imp []float64) []struct {
	Feature    string
	Importance float64
} {
	out := make([]struct {
		Feature    string
		Importance float64
	}, 0, len(imp))
	for i, v := range imp {
		if i >= len(core.FeatureColumns) {
			break
		}
		out = append(out, struct {
			Feature    string
			Importance float64
		}{core.FeatureColumns[i], v})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Importance > out[b].Importance })
	return out
}
