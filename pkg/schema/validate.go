package schema

import (
	"fmt"
	"math"
	"sort"

	"github.com/aretw0/arbor/pkg/domain"
)

type collector struct {
	errs []error
}

func (c *collector) add(key, reason string, value any) {
	c.errs = append(c.errs, &ValidationError{Key: key, Reason: reason, Value: value})
}

func (c *collector) err() error {
	if len(c.errs) == 0 {
		return nil
	}
	return &AggregateError{Errors: c.errs}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Validate checks g and vars and returns an *AggregateError listing every
// problem found, or nil. References to variables absent from vars are not
// reported: they resolve to 0 by definition.
func Validate(g *domain.Graph, vars domain.Variables) error {
	c := &collector{}
	if g == nil {
		c.add("model", "is empty", nil)
		return c.err()
	}

	for _, name := range sortedKeys(vars) {
		if v := vars[name]; !finite(v) {
			c.add(fmt.Sprintf("variables[%s]", name), "must be finite", v)
		}
	}

	seen := make(map[string]bool, len(g.Nodes))
	for i := range g.Nodes {
		n := &g.Nodes[i]
		key := fmt.Sprintf("nodes[%s]", n.ID)
		if n.ID == "" {
			key = fmt.Sprintf("nodes[#%d]", i)
			c.add(key+".id", "is required", nil)
		} else if seen[n.ID] {
			c.add(key+".id", "is duplicated", n.ID)
		}
		seen[n.ID] = true

		switch p := n.Data.(type) {
		case *domain.Decision:
			validateBranches(c, key, p.Branches, false)
		case *domain.Chance:
			validateBranches(c, key, p.Branches, true)
		case *domain.Terminal:
			if len(p.Branches) == 0 {
				c.add(key+".branches", "terminal has no outcome", nil)
			}
			validateBranches(c, key, p.Branches, false)
		case *domain.Markov:
			validateMarkov(c, key, p)
		case nil:
			c.add(key+".data", "is required", nil)
		}
	}

	index := g.Index()
	for i, e := range g.Edges {
		key := fmt.Sprintf("edges[%s]", e.ID)
		if e.ID == "" {
			key = fmt.Sprintf("edges[#%d]", i)
		}
		src, ok := index[e.Source]
		if !ok {
			c.add(key+".source", "references an unknown node", e.Source)
		}
		if _, ok := index[e.Target]; !ok {
			c.add(key+".target", "references an unknown node", e.Target)
		}
		if ok && !hasBranch(src, e.SourceHandle) {
			c.add(key+".sourceHandle", "references an unknown branch", e.SourceHandle)
		}
	}

	return c.err()
}

func validateBranches(c *collector, nodeKey string, branches []domain.Branch, chance bool) {
	ids := make(map[string]bool, len(branches))
	for i, b := range branches {
		key := fmt.Sprintf("%s.branches[%s]", nodeKey, b.ID)
		if b.ID == "" {
			key = fmt.Sprintf("%s.branches[#%d]", nodeKey, i)
			c.add(key+".id", "is required", nil)
		} else if ids[b.ID] {
			c.add(key+".id", "is duplicated", b.ID)
		}
		ids[b.ID] = true

		if chance && !b.Probability.IsRef() {
			if p := b.Probability.Value(); !finite(p) || p < 0 {
				c.add(key+".probability", "must be a finite non-negative number", p)
			}
		}
		checkFinite(c, key+".cost", b.Cost)
		checkFinite(c, key+".effectiveness", b.Effectiveness)
	}
}

func validateMarkov(c *collector, key string, m *domain.Markov) {
	if m.TimeHorizon <= 0 {
		c.add(key+".timeHorizon", "must be positive", m.TimeHorizon)
	}
	if !finite(m.CycleLength) || m.CycleLength <= 0 {
		c.add(key+".cycleLength", "must be positive", m.CycleLength)
	}
	if len(m.States) == 0 {
		c.add(key+".states", "markov node has no states", nil)
	}

	states := make(map[string]bool, len(m.States))
	for i, s := range m.States {
		skey := fmt.Sprintf("%s.states[%s]", key, s.Name)
		if s.Name == "" {
			skey = fmt.Sprintf("%s.states[#%d]", key, i)
			c.add(skey+".name", "is required", nil)
		} else if states[s.Name] {
			c.add(skey+".name", "is duplicated", s.Name)
		}
		states[s.Name] = true
		checkFinite(c, skey+".cost", s.Cost)
		checkFinite(c, skey+".utility", s.Utility)
	}

	for _, from := range sortedKeys(m.Transitions) {
		row := m.Transitions[from]
		if !states[from] {
			c.add(fmt.Sprintf("%s.transitionMatrix[%s]", key, from), "references an unknown state", from)
			continue
		}
		for _, to := range sortedKeys(row) {
			v := row[to]
			tkey := fmt.Sprintf("%s.transitionMatrix[%s][%s]", key, from, to)
			if !states[to] {
				c.add(tkey, "references an unknown state", to)
				continue
			}
			if !v.IsRef() && (!finite(v.Value()) || v.Value() < 0) {
				c.add(tkey, "must be a finite non-negative number", v.Value())
			}
		}
	}

	for _, name := range sortedKeys(m.InitialDistribution) {
		v := m.InitialDistribution[name]
		ikey := fmt.Sprintf("%s.initialDistribution[%s]", key, name)
		if !states[name] {
			c.add(ikey, "references an unknown state", name)
			continue
		}
		if !v.IsRef() && (!finite(v.Value()) || v.Value() < 0) {
			c.add(ikey, "must be a finite non-negative number", v.Value())
		}
	}
}

func checkFinite(c *collector, key string, s domain.Scalar) {
	if !s.IsRef() && !finite(s.Value()) {
		c.add(key, "must be finite", s.Value())
	}
}

func hasBranch(n *domain.Node, id string) bool {
	for _, b := range n.Branches() {
		if b.ID == id {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
