package loam

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/loam"
)

// Loader adapts the Loam library to the arbor ModelLoader interface.
type Loader struct {
	Repo *loam.TypedRepository[ModelMetadata]
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[ModelMetadata]) *Loader {
	return &Loader{
		Repo: repo,
	}
}

// Open initializes a read-only, strict Loam repository at path and wraps it.
func Open(path string) (*Loader, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve library path: %w", err)
	}

	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open loam repository: %w", err)
	}

	return New(loam.NewTypedRepository[ModelMetadata](repo)), nil
}

// GetModel retrieves a model document and returns it in the JSON wire shape.
// The markdown body, if any, becomes the model description.
func (l *Loader) GetModel(ctx context.Context, id string) ([]byte, error) {
	doc, err := l.Repo.Get(ctx, id)
	if err != nil {
		// Loam does not expose a typed not-found error; confirm via the listing.
		if ids, listErr := l.ListModels(ctx); listErr == nil && !contains(ids, id) {
			return nil, fmt.Errorf("%w: %s", domain.ErrModelNotFound, id)
		}
		return nil, fmt.Errorf("loam get failed for %s: %w", id, err)
	}

	meta := doc.Data
	modelID := meta.ID
	if modelID == "" {
		modelID = doc.ID
	}

	data := map[string]any{
		"id":    trimExtension(modelID),
		"nodes": nonNilSlice(meta.Nodes),
		"edges": nonNilSlice(meta.Edges),
	}
	if meta.Name != "" {
		data["name"] = meta.Name
	}
	if len(meta.Variables) > 0 {
		data["variables"] = meta.Variables
	}
	if doc.Content != "" {
		data["description"] = doc.Content
	}

	bytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal model data: %w", err)
	}
	return bytes, nil
}

// ListModels returns all model ids in the repository, sorted.
func (l *Loader) ListModels(ctx context.Context) ([]string, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	ids := make([]string, 0, len(docs))

	for _, doc := range docs {
		// Use the ID from metadata if available, otherwise filename ID
		rawID := doc.Data.ID
		if rawID == "" {
			rawID = doc.ID
		}
		id := trimExtension(rawID)

		if existingPath, ok := seen[id]; ok {
			return nil, fmt.Errorf("collision detected: ID '%s' is defined in both '%s' and '%s'", id, existingPath, doc.ID)
		}
		seen[id] = doc.ID
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func nonNilSlice(s []map[string]any) []map[string]any {
	if s == nil {
		return []map[string]any{}
	}
	return s
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext == "" {
		return id
	}
	return id[:len(id)-len(ext)]
}
