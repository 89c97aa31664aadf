package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/aretw0/arbor/pkg/domain"
)

// Loader implements ports.ModelLoader using an in-memory map.
type Loader struct {
	models map[string][]byte
}

// NewLoader creates a new MemoryLoader with the provided raw models (JSON strings).
func NewLoader(data map[string]string) *Loader {
	models := make(map[string][]byte, len(data))
	for k, v := range data {
		models[k] = []byte(v)
	}
	return &Loader{
		models: models,
	}
}

// GetModel retrieves the raw definition of a model by ID.
func (l *Loader) GetModel(ctx context.Context, id string) ([]byte, error) {
	content, ok := l.models[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrModelNotFound, id)
	}
	out := make([]byte, len(content))
	copy(out, content)
	return out, nil
}

// ListModels returns all available model IDs.
func (l *Loader) ListModels(ctx context.Context) ([]string, error) {
	keys := make([]string, 0, len(l.models))
	for k := range l.models {
		keys = append(keys, k)
	}
	sort.Strings(keys) // Deterministic order
	return keys, nil
}
