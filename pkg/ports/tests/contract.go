package tests

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// ModelLoaderContractTest is a reusable test suite that verifies if an adapter
// complies with ports.ModelLoader. setupData lists the ids the loader was seeded
// with and the node ids each model must contain.
func ModelLoaderContractTest(t *testing.T, loader ports.ModelLoader, setupData map[string][]string) {
	t.Helper()
	ctx := context.Background()

	t.Run("GetModel_Success", func(t *testing.T) {
		for id, nodeIDs := range setupData {
			raw, err := loader.GetModel(ctx, id)
			if err != nil {
				t.Fatalf("unexpected error getting model %s: %v", id, err)
			}

			var wire struct {
				Nodes []struct {
					ID string `json:"id"`
				} `json:"nodes"`
			}
			if err := json.Unmarshal(raw, &wire); err != nil {
				t.Fatalf("model %s is not valid JSON: %v", id, err)
			}

			got := make(map[string]bool)
			for _, n := range wire.Nodes {
				got[n.ID] = true
			}
			for _, nodeID := range nodeIDs {
				if !got[nodeID] {
					t.Errorf("model %s missing node %s", id, nodeID)
				}
			}
		}
	})

	t.Run("GetModel_NotFound", func(t *testing.T) {
		_, err := loader.GetModel(ctx, "non-existent-model")
		if err == nil {
			t.Fatal("expected error for non-existent model, got nil")
		}
		if !errors.Is(err, domain.ErrModelNotFound) {
			t.Errorf("expected ErrModelNotFound, got %v", err)
		}
	})

	t.Run("ListModels", func(t *testing.T) {
		ids, err := loader.ListModels(ctx)
		if err != nil {
			t.Fatalf("unexpected error listing models: %v", err)
		}

		if len(ids) != len(setupData) {
			t.Errorf("expected %d models, got %d", len(setupData), len(ids))
		}

		lookup := make(map[string]bool)
		for _, id := range ids {
			lookup[id] = true
		}
		for id := range setupData {
			if !lookup[id] {
				t.Errorf("model %s missing from list", id)
			}
		}
	})
}
