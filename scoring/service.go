// Package scoring 实现在线打分服务：加载训练工件，对种植计划↔商品的
// 六维特征向量输出概率、得分、等级与推荐建议。
//
// 设计原则：
//   - 工件（模型+缩放器+元信息）整体原子热替换，打分路径永远看到一致的快照
//   - 校验类错误在此边界处返回给调用方，绝不跨层传播
//   - 批量打分要么全部通过校验，要么整批拒绝
package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/utesolo/matchkit/core"
	"github.com/utesolo/matchkit/store"
)

// Service 是在线打分服务。并发安全：工件通过原子指针整体替换，
// 每次打分只读取一次快照，热加载不会让同一批请求看到两个模型。
type Service struct {
	current atomic.Pointer[core.TrainedArtifact]
	logger  *slog.Logger
}

// NewService 创建未加载模型的打分服务。加载前所有打分调用返回 NOT_INITIALIZED。
func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// SetArtifact 原子替换当前工件。
func (s *Service) SetArtifact(a *core.TrainedArtifact) {
	s.current.Store(a)
	if a != nil {
		s.logger.Info("scoring artifact swapped",
			"artifact_id", a.ID,
			"model", a.Meta.ModelName,
			"created_at", a.Meta.CreatedAt.Format(time.RFC3339))
	}
}

// Artifact 返回当前工件快照，未加载时为 nil。
func (s *Service) Artifact() *core.TrainedArtifact {
	return s.current.Load()
}

// Ready 报告服务是否已加载模型。
func (s *Service) Ready() bool {
	return s.current.Load() != nil
}

// Reload 从显式路径加载三件套并热替换当前工件。
// 加载或校验失败时当前工件保持不变，服务继续用旧模型打分。
func (s *Service) Reload(modelPath, scalerPath, metaPath string) error {
	a, err := store.LoadPaths(modelPath, scalerPath, metaPath)
	if err != nil {
		s.logger.Error("artifact reload failed, keeping current model", "err", err)
		return err
	}
	s.SetArtifact(a)
	return nil
}

// Score 对单个特征 map 打分。
//
// 校验顺序固定：未初始化 → 空输入 → 缺失特征（一次性列出全部缺失 key）→ 越界。
// 打分是纯函数：同一工件对同一输入永远返回相同结果。
func (s *Service) Score(_ context.Context, features map[string]float64) (*core.ScoreResult, error) {
	a := s.current.Load()
	if a == nil {
		return nil, core.ErrNotInitialized
	}
	fv, err := validate(features)
	if err != nil {
		return nil, err
	}
	return scoreVector(a, fv)
}

// ScoreVector 对已构造好的特征向量打分，跳过 map 校验。
// 调用方在别处（比如构造缓存键时）已经做过 NewFeatureVector 校验时使用，
// 避免同一请求校验两遍。
func (s *Service) ScoreVector(_ context.Context, fv core.FeatureVector) (*core.ScoreResult, error) {
	a := s.current.Load()
	if a == nil {
		return nil, core.ErrNotInitialized
	}
	return scoreVector(a, fv)
}

// ScoreBatch 对一批特征 map 打分，结果顺序与输入一致。
//
// 整批先校验后打分：任何一条不合法则整批拒绝，错误消息带上条目下标；
// 通过校验后各条目并发打分，全批共享同一个工件快照。
func (s *Service) ScoreBatch(ctx context.Context, batch []map[string]float64) ([]*core.ScoreResult, error) {
	a := s.current.Load()
	if a == nil {
		return nil, core.ErrNotInitialized
	}
	if len(batch) == 0 {
		return nil, core.NewDomainError(core.ModuleScoring, core.ErrorCodeInvalidInput,
			"batch is empty")
	}

	vecs := make([]core.FeatureVector, len(batch))
	for i, features := range batch {
		fv, err := validate(features)
		if err != nil {
			if de := core.GetDomainError(err); de != nil {
				return nil, core.NewDomainError(de.Module, de.Code,
					fmt.Sprintf("item %d: %s", i, de.Message))
			}
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		vecs[i] = fv
	}

	results := make([]*core.ScoreResult, len(batch))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, fv := range vecs {
		i, fv := i, fv
		g.Go(func() error {
			r, err := scoreVector(a, fv)
			if err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ModelInfo 是模型信息查询的输出。
type ModelInfo struct {
	ArtifactID     string             `json:"artifact_id"`
	ModelName      string             `json:"model_name"`
	FeatureColumns []string           `json:"feature_columns"`
	CreatedAt      time.Time          `json:"created_at"`
	Metrics        core.EvalMetrics   `json:"metrics"`
	Importance     map[string]float64 `json:"feature_importance,omitempty"`
}

// Info 返回当前已加载模型的信息，未加载时返回 NOT_INITIALIZED。
func (s *Service) Info() (*ModelInfo, error) {
	a := s.current.Load()
	if a == nil {
		return nil, core.ErrNotInitialized
	}
	info := &ModelInfo{
		ArtifactID:     a.ID,
		ModelName:      a.Meta.ModelName,
		FeatureColumns: a.Meta.FeatureColumns,
		CreatedAt:      a.Meta.CreatedAt,
		Metrics:        a.Meta.Metrics,
	}
	if len(a.Importance) > 0 {
		info.Importance = make(map[string]float64, len(a.Importance))
		for i, v := range a.Importance {
			if i >= len(core.FeatureColumns) {
				break
			}
			info.Importance[core.FeatureColumns[i]] = v
		}
	}
	return info, nil
}

// validate 校验特征 map 并构造规范顺序的特征向量。
func validate(features map[string]float64) (core.FeatureVector, error) {
	if len(features) == 0 {
		return core.FeatureVector{}, core.NewDomainError(core.ModuleScoring, core.ErrorCodeInvalidInput,
			"features payload is empty")
	}
	return core.NewFeatureVector(features)
}

// scoreVector 执行缩放 → 概率 → 得分 → 等级 → 建议的完整打分链路。
func scoreVector(a *core.TrainedArtifact, fv core.FeatureVector) (*core.ScoreResult, error) {
	p, err := a.Model.PredictProba(a.Scaler.Transform(fv.Values()))
	if err != nil {
		return nil, core.NewDomainError(core.ModuleScoring, core.ErrorCodeInternalError,
			fmt.Sprintf("predict failed: %v", err))
	}

	score := core.Round2(p * 100)
	result := &core.ScoreResult{
		// 概率保留四位小数，得分保留两位
		Probability:    core.Round4(p),
		Score:          score,
		Grade:          core.GradeOf(score),
		Recommendation: core.RecommendationOf(p),
		HeuristicScore: HeuristicScore(fv),
	}
	if len(a.Importance) > 0 {
		result.Features = make(map[string]core.FeatureContribution, core.NumFeatures)
		for i, name := range core.FeatureColumns {
			if i >= len(a.Importance) {
				break
			}
			result.Features[name] = core.FeatureContribution{
				Value:      fv.Values()[i],
				Importance: a.Importance[i],
			}
		}
	}
	return result, nil
}
