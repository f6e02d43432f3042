package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/utesolo/matchkit/core"
)

// MemoryStore 是内存实现的 ArtifactStore，用于测试/开发/原型。
// 进程重启后数据丢失。
type MemoryStore struct {
	mu        sync.RWMutex
	artifacts map[string]*core.TrainedArtifact
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		artifacts: make(map[string]*core.TrainedArtifact),
	}
}

func (m *MemoryStore) Name() string { return "memory" }

func (m *MemoryStore) Save(_ context.Context, a *core.TrainedArtifact) (string, error) {
	if a == nil || a.Model == nil || a.Scaler == nil {
		return "", fmt.Errorf("save artifact: incomplete artifact")
	}
	id := a.ID
	if id == "" {
		id = uuid.NewString()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *a
	stored.ID = id
	m.artifacts[id] = &stored
	return id, nil
}

func (m *MemoryStore) Load(_ context.Context, id string) (*core.TrainedArtifact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.artifacts[id]
	if !ok {
		return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeNotFound,
			fmt.Sprintf("artifact not found: %s", id))
	}
	if !core.ColumnsEqual(a.Meta.FeatureColumns) {
		return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeInternalError,
			"artifact feature columns do not match expected order")
	}
	return a, nil
}
