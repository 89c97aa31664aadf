package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
)

// Rollback computes the expected outcome of nodeID by backward induction.
// g must already have its branch targets resolved (see ResolveTargets).
// Markov nodes reached from the tree evaluate to a zero outcome.
func (e *Engine) Rollback(ctx context.Context, g *domain.Graph, nodeID string, vars domain.Variables) (domain.Outcome, error) {
	ev := &evaluator{
		engine: e,
		ctx:    ctx,
		index:  g.Index(),
		vars:   vars,
		onPath: make(map[string]bool),
	}
	return ev.eval(nodeID, 1)
}

type evaluator struct {
	engine *Engine
	ctx    context.Context
	index  map[string]*domain.Node
	vars   domain.Variables
	onPath map[string]bool
}

func (ev *evaluator) eval(nodeID string, depth int) (domain.Outcome, error) {
	node, ok := ev.index[nodeID]
	if !ok {
		return domain.Outcome{}, &domain.NodeError{NodeID: nodeID, Err: domain.ErrNodeNotFound}
	}
	if depth > ev.engine.maxDepth {
		return domain.Outcome{}, &domain.NodeError{
			NodeID: nodeID,
			Err:    fmt.Errorf("%w (limit %d)", domain.ErrDepthExceeded, ev.engine.maxDepth),
		}
	}
	if ev.onPath[nodeID] {
		return domain.Outcome{}, &domain.NodeError{NodeID: nodeID, Err: domain.ErrCycleDetected}
	}
	if err := ev.ctx.Err(); err != nil {
		return domain.Outcome{}, err
	}

	ev.onPath[nodeID] = true
	defer delete(ev.onPath, nodeID)

	var (
		out domain.Outcome
		err error
	)
	switch p := node.Data.(type) {
	case *domain.Terminal:
		out = ev.terminal(p)
	case *domain.Chance:
		out, err = ev.chance(p, depth)
	case *domain.Decision:
		out, err = ev.decision(p, depth)
	case *domain.Markov:
		// Markov roots are dispatched to the simulator by the caller.
	}
	if err != nil {
		return domain.Outcome{}, err
	}

	if hook := ev.engine.hooks.OnNodeEvaluated; hook != nil {
		hook(ev.ctx, &domain.NodeEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventNodeEvaluated},
			NodeID:    node.ID,
			NodeType:  node.Kind(),
			Depth:     depth,
		})
	}
	return out, nil
}

// terminal uses the first branch only; a terminal models a single outcome.
func (ev *evaluator) terminal(p *domain.Terminal) domain.Outcome {
	if len(p.Branches) == 0 {
		return domain.Outcome{}
	}
	b := p.Branches[0]
	return domain.Outcome{
		Cost:          b.Cost.Resolve(ev.vars),
		Effectiveness: b.Effectiveness.Resolve(ev.vars),
	}
}

// chance returns the probability-weighted average over linked branches,
// normalised by the total weight so probabilities need not sum to 1.
func (ev *evaluator) chance(p *domain.Chance, depth int) (domain.Outcome, error) {
	var totalCost, totalEff, totalProb float64
	for _, b := range p.Branches {
		if b.TargetNodeID == "" {
			continue
		}
		prob := b.Probability.Resolve(ev.vars)
		child, err := ev.eval(b.TargetNodeID, depth+1)
		if err != nil {
			return domain.Outcome{}, err
		}
		totalCost += prob * child.Cost
		totalEff += prob * child.Effectiveness
		totalProb += prob
	}
	if totalProb > 0 {
		return domain.Outcome{Cost: totalCost / totalProb, Effectiveness: totalEff / totalProb}, nil
	}
	return domain.Outcome{}, nil
}

// decision keeps the branch with strictly greatest effectiveness; ties go to
// the earlier branch.
func (ev *evaluator) decision(p *domain.Decision, depth int) (domain.Outcome, error) {
	var (
		best  domain.Outcome
		found bool
	)
	for _, b := range p.Branches {
		var child domain.Outcome
		if b.TargetNodeID != "" {
			var err error
			child, err = ev.eval(b.TargetNodeID, depth+1)
			if err != nil {
				return domain.Outcome{}, err
			}
		} else {
			child = domain.Outcome{
				Cost:          b.Cost.Resolve(ev.vars),
				Effectiveness: b.Effectiveness.Resolve(ev.vars),
			}
		}
		if !found || child.Effectiveness > best.Effectiveness {
			best = domain.Outcome{Cost: child.Cost, Effectiveness: child.Effectiveness, Strategy: b.Name}
			found = true
		}
	}
	return best, nil
}
