package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"gopkg.in/yaml.v3"
)

var extensions = []string{".json", ".yaml", ".yml"}

// Loader implements ports.ModelLoader over a directory of model files.
// Each model lives in <id>.json, <id>.yaml or <id>.yml.
// YAML models are converted to JSON so callers always receive the wire shape.
type Loader struct {
	BasePath string
}

// NewLoader creates a new Loader rooted at basePath.
// If basePath is empty, it defaults to "models".
func NewLoader(basePath string) *Loader {
	if basePath == "" {
		basePath = "models"
	}
	return &Loader{BasePath: basePath}
}

// GetModel reads the model file for id.
func (l *Loader) GetModel(ctx context.Context, id string) ([]byte, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return nil, fmt.Errorf("%w: invalid id %q", domain.ErrModelNotFound, id)
	}

	for _, ext := range extensions {
		path := filepath.Join(l.BasePath, id+ext)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read model file: %w", err)
		}
		if ext == ".json" {
			return data, nil
		}
		return yamlToJSON(data)
	}

	return nil, fmt.Errorf("%w: %s", domain.ErrModelNotFound, id)
}

// ListModels returns the ids of all model files, sorted.
func (l *Loader) ListModels(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(l.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read model directory: %w", err)
	}

	seen := make(map[string]bool)
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if !isModelExt(ext) {
			continue
		}
		id := strings.TrimSuffix(name, filepath.Ext(name))
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func isModelExt(ext string) bool {
	for _, e := range extensions {
		if e == ext {
			return true
		}
	}
	return false
}

func yamlToJSON(data []byte) ([]byte, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse yaml model: %w", err)
	}
	out, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to convert yaml model: %w", err)
	}
	return out, nil
}
