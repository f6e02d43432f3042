// Package store 实现模型工件的持久化：文件系统、内存（测试）、Redis 结果缓存。
// 接口定义在 core 包（core.ArtifactStore），此包只包含实现。
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utesolo/matchkit/core"
	"github.com/utesolo/matchkit/feature"
	"github.com/utesolo/matchkit/model"
)

// 三件套文件名。模型、缩放器、元信息是三个独立可加载的 blob，
// 但保存时作为一个整体原子落盘。
const (
	ModelFile  = "model.json"
	ScalerFile = "scaler.json"
	MetaFile   = "meta.json"

	importanceFile = "feature_importance.csv"
	metricsFile    = "training_metrics.txt"
)

// metaRecord 是 meta.json 的落盘结构：元信息加上可选的全局重要性。
type metaRecord struct {
	core.ArtifactMeta
	Importance []float64 `json:"importance,omitempty"`
}

// FileStore 是文件系统实现的 ArtifactStore。
// 每个工件占一个以 ID 命名的子目录，保存先写入临时目录再整体 rename，
// 中断的保存不会在磁盘上留下看似可用实则错配的三件套。
type FileStore struct {
	root string
}

// NewFileStore 创建以 root 为根目录的文件工件存储。
func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) Name() string { return "file" }

// Save 持久化工件三件套与审计用的可读附件，返回工件 ID。
func (s *FileStore) Save(_ context.Context, a *core.TrainedArtifact) (string, error) {
	if a == nil || a.Model == nil || a.Scaler == nil {
		return "", fmt.Errorf("save artifact: incomplete artifact")
	}
	id := a.ID
	if id == "" {
		id = fmt.Sprintf("%s_%s_%s",
			a.Meta.ModelName,
			a.Meta.CreatedAt.UTC().Format("20060102_150405"),
			uuid.NewString()[:8])
	}

	staging, err := os.MkdirTemp(s.root, ".staging-")
	if err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	modelBlob, err := model.Encode(a.Model)
	if err != nil {
		return "", err
	}
	scalerBlob, err := json.Marshal(a.Scaler)
	if err != nil {
		return "", fmt.Errorf("encode scaler: %w", err)
	}
	metaBlob, err := json.MarshalIndent(metaRecord{ArtifactMeta: a.Meta, Importance: a.Importance}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode meta: %w", err)
	}

	files := map[string][]byte{
		ModelFile:   modelBlob,
		ScalerFile:  scalerBlob,
		MetaFile:    metaBlob,
		metricsFile: metricsText(a.Meta),
	}
	if len(a.Importance) > 0 {
		files[importanceFile] = importanceCSV(a.Importance)
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(staging, name), data, 0o644); err != nil {
			return "", fmt.Errorf("write %s: %w", name, err)
		}
	}

	final := filepath.Join(s.root, id)
	if err := os.Rename(staging, final); err != nil {
		return "", fmt.Errorf("commit artifact %s: %w", id, err)
	}
	return id, nil
}

// Load 按 ID 加载工件三件套并校验特征列顺序。
func (s *FileStore) Load(_ context.Context, id string) (*core.TrainedArtifact, error) {
	dir := filepath.Join(s.root, id)
	return loadTriple(
		filepath.Join(dir, ModelFile),
		filepath.Join(dir, ScalerFile),
		filepath.Join(dir, MetaFile),
		id,
	)
}

// LoadPaths 按显式路径加载三件套（模型热加载接口使用），
// 校验逻辑与 Load 一致：元信息列顺序不符是致命错误。
func LoadPaths(modelPath, scalerPath, metaPath string) (*core.TrainedArtifact, error) {
	return loadTriple(modelPath, scalerPath, metaPath, "")
}

func loadTriple(modelPath, scalerPath, metaPath, id string) (*core.TrainedArtifact, error) {
	metaBlob, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, notFoundOrWrap("meta", metaPath, err)
	}
	var meta metaRecord
	if err := json.Unmarshal(metaBlob, &meta); err != nil {
		return nil, fmt.Errorf("decode meta %s: %w", metaPath, err)
	}
	if !core.ColumnsEqual(meta.FeatureColumns) {
		return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeInternalError,
			fmt.Sprintf("artifact feature columns [%s] do not match expected order [%s]",
				core.JoinColumns(meta.FeatureColumns), core.JoinColumns(core.FeatureColumns)))
	}

	scalerBlob, err := os.ReadFile(scalerPath)
	if err != nil {
		return nil, notFoundOrWrap("scaler", scalerPath, err)
	}
	var scaler feature.StandardScaler
	if err := json.Unmarshal(scalerBlob, &scaler); err != nil {
		return nil, fmt.Errorf("decode scaler %s: %w", scalerPath, err)
	}

	modelBlob, err := os.ReadFile(modelPath)
	if err != nil {
		return nil, notFoundOrWrap("model", modelPath, err)
	}
	clf, err := model.Decode(meta.ModelName, modelBlob)
	if err != nil {
		return nil, err
	}

	if id == "" {
		// 显式路径加载时用工件目录名作 ID：三件套固定叫 model/scaler/meta.json，
		// 文件名区分不了工件，目录名可以。目录不可用时退回元信息。
		id = filepath.Base(filepath.Dir(metaPath))
		if id == "." || id == string(filepath.Separator) {
			id = fmt.Sprintf("%s_%s", meta.ModelName, meta.CreatedAt.UTC().Format("20060102_150405"))
		}
	}
	return &core.TrainedArtifact{
		ID:         id,
		Model:      clf,
		Scaler:     &scaler,
		Meta:       meta.ArtifactMeta,
		Importance: meta.Importance,
	}, nil
}

func notFoundOrWrap(kind, path string, err error) error {
	if os.IsNotExist(err) {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeNotFound,
			fmt.Sprintf("%s file not found: %s", kind, path))
	}
	return fmt.Errorf("read %s %s: %w", kind, path, err)
}

// importanceCSV 生成审计用的特征重要性附件。
func importanceCSV(imp []float64) []byte {
	var b strings.Builder
	b.WriteString("feature,importance\n")
	for i, v := range imp {
		if i >= len(core.FeatureColumns) {
			break
		}
		fmt.Fprintf(&b, "%s,%.6f\n", core.FeatureColumns[i], v)
	}
	return []byte(b.String())
}

// metricsText 生成审计用的训练指标附件。
func metricsText(meta core.ArtifactMeta) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "Training completed: %s\n", meta.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Model: %s\n\n", meta.ModelName)
	m := meta.Metrics
	fmt.Fprintf(&b, "accuracy: %.4f\n", m.Accuracy)
	fmt.Fprintf(&b, "precision: %.4f\n", m.Precision)
	fmt.Fprintf(&b, "recall: %.4f\n", m.Recall)
	fmt.Fprintf(&b, "f1: %.4f\n", m.F1)
	fmt.Fprintf(&b, "auc: %.4f\n", m.AUC)
	fmt.Fprintf(&b, "cv_mean: %.4f\n", m.CVMean)
	fmt.Fprintf(&b, "cv_std: %.4f\n", m.CVStd)
	return []byte(b.String())
}
