package runtime

import (
	"context"
	"sort"

	"github.com/aretw0/arbor/pkg/domain"
	"golang.org/x/sync/errgroup"
)

// Default perturbation factors applied to every variable by DefaultParams.
const (
	DefaultLowFactor  = 0.8
	DefaultHighFactor = 1.2
)

// DefaultParams perturbs every variable to ±20% of its base value.
// Parameters are ordered by variable name so ties in the tornado keep a
// stable order across calls.
func DefaultParams(vars domain.Variables) []domain.SensitivityParam {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	params := make([]domain.SensitivityParam, 0, len(names))
	for _, name := range names {
		v := vars[name]
		params = append(params, domain.SensitivityParam{
			VariableName: name,
			Low:          v * DefaultLowFactor,
			High:         v * DefaultHighFactor,
		})
	}
	return params
}

// Sensitivity runs a one-way analysis of rootID over params.
// g must already have its branch targets resolved. By default every
// evaluation uses tree rollback, even for a Markov root.
func (e *Engine) Sensitivity(ctx context.Context, g *domain.Graph, rootID string, base domain.Variables, params []domain.SensitivityParam) (domain.TornadoResult, error) {
	evaluate := e.Rollback
	if e.unifiedSensitivity {
		evaluate = e.evaluate
	} else if node, ok := g.Node(rootID); ok && node.Kind() == domain.KindMarkov {
		e.logger.Warn("sensitivity on a markov root uses tree rollback", "root", rootID)
	}

	baseOut, err := evaluate(ctx, g, rootID, base)
	if err != nil {
		return domain.TornadoResult{}, err
	}

	bars := make([]domain.TornadoBar, len(params))
	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(e.parallelism)
	for i, param := range params {
		grp.Go(func() error {
			low := base.Clone()
			low[param.VariableName] = param.Low
			lowOut, err := evaluate(gctx, g, rootID, low)
			if err != nil {
				return err
			}

			high := base.Clone()
			high[param.VariableName] = param.High
			highOut, err := evaluate(gctx, g, rootID, high)
			if err != nil {
				return err
			}

			bars[i] = domain.TornadoBar{
				VariableName: param.VariableName,
				LowImpact:    lowOut.Effectiveness,
				HighImpact:   highOut.Effectiveness,
			}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return domain.TornadoResult{}, err
	}

	sort.SliceStable(bars, func(a, b int) bool {
		return bars[a].Swing() > bars[b].Swing()
	})

	e.logger.Debug("sensitivity complete", "root", rootID, "params", len(params), "base", baseOut.Effectiveness)
	return domain.TornadoResult{BaseOutcome: baseOut.Effectiveness, Bars: bars}, nil
}
