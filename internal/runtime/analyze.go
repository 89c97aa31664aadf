package runtime

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// Analyze resolves edges, finds the root and evaluates it: Markov roots run
// the cohort simulation, every other root is rolled back.
func (e *Engine) Analyze(ctx context.Context, g *domain.Graph, vars domain.Variables) (domain.Outcome, error) {
	root, err := e.FindRoot(g)
	if err != nil {
		return domain.Outcome{}, err
	}
	resolved := ResolveTargets(g)

	kind := domain.AnalysisRollback
	if root.Kind() == domain.KindMarkov {
		kind = domain.AnalysisMarkov
	}

	var out domain.Outcome
	err = e.observe(ctx, kind, root.ID, func() error {
		var evalErr error
		out, evalErr = e.evaluate(ctx, resolved, root.ID, vars)
		return evalErr
	})
	if err != nil {
		return domain.Outcome{}, err
	}
	e.logger.Debug("analysis complete", "root", root.ID, "kind", kind,
		"cost", out.Cost, "effectiveness", out.Effectiveness, "strategy", out.Strategy)
	return out, nil
}

// AnalyzeTrace is Analyze for a Markov root that also returns the cohort of
// every cycle.
func (e *Engine) AnalyzeTrace(ctx context.Context, g *domain.Graph, vars domain.Variables) (domain.Outcome, *MarkovTrace, error) {
	root, err := e.FindRoot(g)
	if err != nil {
		return domain.Outcome{}, nil, err
	}
	resolved := ResolveTargets(g)

	var (
		out   domain.Outcome
		trace *MarkovTrace
	)
	err = e.observe(ctx, domain.AnalysisMarkov, root.ID, func() error {
		var evalErr error
		out, trace, evalErr = e.TraceMarkov(ctx, resolved, root.ID, vars)
		return evalErr
	})
	if err != nil {
		return domain.Outcome{}, nil, err
	}
	return out, trace, nil
}

// SensitivityOneWay perturbs every variable with DefaultParams.
func (e *Engine) SensitivityOneWay(ctx context.Context, g *domain.Graph, vars domain.Variables) (domain.TornadoResult, error) {
	return e.AnalyzeSensitivity(ctx, g, vars, DefaultParams(vars))
}

// AnalyzeSensitivity resolves edges, finds the root and runs Sensitivity with
// caller-supplied bounds.
func (e *Engine) AnalyzeSensitivity(ctx context.Context, g *domain.Graph, vars domain.Variables, params []domain.SensitivityParam) (domain.TornadoResult, error) {
	root, err := e.FindRoot(g)
	if err != nil {
		return domain.TornadoResult{}, err
	}
	resolved := ResolveTargets(g)

	var res domain.TornadoResult
	err = e.observe(ctx, domain.AnalysisSensitivity, root.ID, func() error {
		var evalErr error
		res, evalErr = e.Sensitivity(ctx, resolved, root.ID, vars, params)
		return evalErr
	})
	return res, err
}

// evaluate dispatches on the node kind.
func (e *Engine) evaluate(ctx context.Context, g *domain.Graph, nodeID string, vars domain.Variables) (domain.Outcome, error) {
	if node, ok := g.Node(nodeID); ok && node.Kind() == domain.KindMarkov {
		return e.SimulateMarkov(ctx, g, nodeID, vars)
	}
	return e.Rollback(ctx, g, nodeID, vars)
}
