package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/utesolo/matchkit/core"
	"github.com/utesolo/matchkit/pkg/conv"
	"github.com/utesolo/matchkit/pkg/dsl"
	"github.com/utesolo/matchkit/scoring"
	"github.com/utesolo/matchkit/store"
)

// Handler 是打分服务的 HTTP 层：解析请求、翻译领域错误，业务逻辑全部在 scoring 包。
type Handler struct {
	svc     *scoring.Service
	cache   *store.ScoreCache // 可选，nil 表示禁用
	logger  *slog.Logger
	metrics *Metrics
}

func NewHandler(svc *scoring.Service, cache *store.ScoreCache, logger *slog.Logger, metrics *Metrics) *Handler {
	return &Handler{svc: svc, cache: cache, logger: logger, metrics: metrics}
}

// Register 挂载全部路由。
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/match/predict", h.handlePredict)
	r.Post("/api/match/predict/batch", h.handlePredictBatch)
	r.Get("/api/match/model-info", h.handleModelInfo)
	r.Get("/health", h.handleHealth)
	r.Post("/admin/reload", h.handleReload)
}

type predictRequest struct {
	Features map[string]any `json:"features"`
}

type batchRequest struct {
	Items []map[string]any `json:"items"`
	// Filter 是可选的 CEL 过滤表达式，只返回匹配的条目
	Filter string `json:"filter,omitempty"`
}

type batchItem struct {
	Index  int               `json:"index"`
	Result *core.ScoreResult `json:"result"`
}

type reloadRequest struct {
	ModelPath  string `json:"model_path"`
	ScalerPath string `json:"scaler_path"`
	MetaPath   string `json:"meta_path"`
}

func (h *Handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "predict", core.NewDomainError(core.ModuleScoring, core.ErrorCodeInvalidInput,
			"invalid JSON body"))
		return
	}

	features := conv.MapToFloat64(req.Features)
	result, err := h.scoreCached(r.Context(), features)
	if err != nil {
		h.writeError(w, "predict", err)
		return
	}
	h.metrics.ScoreDuration.Observe(time.Since(start).Seconds())
	h.writeJSON(w, "predict", http.StatusOK, result)
}

func (h *Handler) handlePredictBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "predict_batch", core.NewDomainError(core.ModuleScoring, core.ErrorCodeInvalidInput,
			"invalid JSON body"))
		return
	}

	filter, err := dsl.Compile(req.Filter)
	if err != nil {
		h.writeError(w, "predict_batch", core.NewDomainError(core.ModuleScoring, core.ErrorCodeInvalidInput,
			fmt.Sprintf("invalid filter expression: %v", err)))
		return
	}

	batch := make([]map[string]float64, len(req.Items))
	for i, item := range req.Items {
		batch[i] = conv.MapToFloat64(item)
	}

	results, err := h.svc.ScoreBatch(r.Context(), batch)
	if err != nil {
		h.writeError(w, "predict_batch", err)
		return
	}

	// 过滤只影响返回的条目集合，Index 保留原始下标
	items := make([]batchItem, 0, len(results))
	for i, res := range results {
		ok, err := filter.Match(res, batch[i])
		if err != nil {
			h.writeError(w, "predict_batch", core.NewDomainError(core.ModuleScoring, core.ErrorCodeInvalidInput,
				fmt.Sprintf("filter evaluation failed: %v", err)))
			return
		}
		if ok {
			items = append(items, batchItem{Index: i, Result: res})
		}
	}
	h.writeJSON(w, "predict_batch", http.StatusOK, map[string]any{
		"total":   len(results),
		"matched": len(items),
		"items":   items,
	})
}

func (h *Handler) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.Info()
	if err != nil {
		h.writeError(w, "model_info", err)
		return
	}
	h.writeJSON(w, "model_info", http.StatusOK, info)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if !h.svc.Ready() {
		// 进程存活但模型未加载：健康检查降级而不是失败
		status = "degraded"
	}
	h.writeJSON(w, "health", code, map[string]any{
		"status":       status,
		"model_loaded": h.svc.Ready(),
	})
}

func (h *Handler) handleReload(w http.ResponseWriter, r *http.Request) {
	var req reloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "reload", core.NewDomainError(core.ModuleScoring, core.ErrorCodeInvalidInput,
			"invalid JSON body"))
		return
	}
	if req.ModelPath == "" || req.ScalerPath == "" || req.MetaPath == "" {
		h.writeError(w, "reload", core.NewDomainError(core.ModuleScoring, core.ErrorCodeInvalidInput,
			"model_path, scaler_path and meta_path are required"))
		return
	}
	if err := h.svc.Reload(req.ModelPath, req.ScalerPath, req.MetaPath); err != nil {
		h.writeError(w, "reload", err)
		return
	}
	h.metrics.Reloads.Inc()
	info, _ := h.svc.Info()
	h.writeJSON(w, "reload", http.StatusOK, info)
}

// scoreCached 在打分链路前后套一层可选的 Redis 结果缓存。
// 校验只做一次：这里构造出的特征向量直接进打分链路，不再重复校验。
func (h *Handler) scoreCached(ctx context.Context, features map[string]float64) (*core.ScoreResult, error) {
	a := h.svc.Artifact()
	if h.cache == nil || a == nil || len(features) == 0 {
		return h.svc.Score(ctx, features)
	}
	fv, err := core.NewFeatureVector(features)
	if err != nil {
		return nil, err
	}

	key := h.cache.Key(a.ID, fv)
	if cached, err := h.cache.Get(ctx, key); err == nil && cached != nil {
		h.metrics.CacheHits.Inc()
		return cached, nil
	}
	h.metrics.CacheMisses.Inc()

	result, err := h.svc.ScoreVector(ctx, fv)
	if err != nil {
		return nil, err
	}
	if err := h.cache.Set(ctx, key, result); err != nil {
		h.logger.Warn("score cache write failed", "err", err)
	}
	return result, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, endpoint string, code int, v any) {
	h.metrics.Requests.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("write response failed", "endpoint", endpoint, "err", err)
	}
}

// writeError 把领域错误翻译成 HTTP 状态码与统一的 JSON 错误信封。
// 内部错误对外只暴露通用消息，细节进日志。
func (h *Handler) writeError(w http.ResponseWriter, endpoint string, err error) {
	status := http.StatusInternalServerError
	code := core.ErrorCodeInternalError
	message := "internal error"

	if de := core.GetDomainError(err); de != nil {
		code = de.Code
		switch {
		case core.IsNotInitialized(err):
			status = http.StatusServiceUnavailable
			message = de.Message
		case core.IsValidationError(err):
			status = http.StatusBadRequest
			message = de.Message
		case core.IsNotFound(err):
			status = http.StatusNotFound
			message = de.Message
		}
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "endpoint", endpoint, "err", err)
	}

	h.metrics.Requests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": message,
		"code":  code,
	})
}
