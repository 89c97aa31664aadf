package ports

import "context"

// ModelLoader defines how the engine retrieves model definitions.
// This allows the storage layer (Files, Loam, Memory) to be decoupled.
type ModelLoader interface {
	// GetModel retrieves the raw definition of a model by ID in the editor
	// JSON wire shape. Returns domain.ErrModelNotFound for unknown ids.
	GetModel(ctx context.Context, id string) ([]byte, error)

	// ListModels returns the ids of all available models in a stable order.
	ListModels(ctx context.Context) ([]string, error)
}
