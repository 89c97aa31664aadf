package ports

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// Analyzer is the primary interface used by driving adapters (HTTP, MCP, CLI).
type Analyzer interface {
	// Rollback evaluates the model root: Markov roots are simulated, tree
	// roots are rolled back.
	Rollback(ctx context.Context, g *domain.Graph, vars domain.Variables) (domain.Outcome, error)

	// SensitivityOneWay perturbs every variable by the default ±20%.
	SensitivityOneWay(ctx context.Context, g *domain.Graph, vars domain.Variables) (domain.TornadoResult, error)

	// Sensitivity runs a one-way analysis with explicit bounds.
	Sensitivity(ctx context.Context, g *domain.Graph, vars domain.Variables, params []domain.SensitivityParam) (domain.TornadoResult, error)
}
