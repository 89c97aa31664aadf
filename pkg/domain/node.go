package domain

import "encoding/json"

// NodeKind is the variant tag of a node.
type NodeKind string

const (
	// KindDecision selects the branch with the greatest effectiveness.
	KindDecision NodeKind = "decision"
	// KindChance averages its branches weighted by probability.
	KindChance NodeKind = "chance"
	// KindTerminal yields the outcome of its first branch.
	KindTerminal NodeKind = "terminal"
	// KindMarkov runs a cohort simulation over its states.
	KindMarkov NodeKind = "markov"
)

// Position is the editor canvas location. It is carried through untouched.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Branch is an outgoing option of a Decision, Chance or Terminal node.
type Branch struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Probability   Scalar `json:"probability"`
	Cost          Scalar `json:"cost"`
	Effectiveness Scalar `json:"effectiveness"`

	// TargetNodeID is derived from the edge list by edge resolution.
	// Authored values are never trusted.
	TargetNodeID string `json:"target_node_id,omitempty"`
}

// Payload is the variant-specific content of a node.
// The set of implementations is closed: Decision, Chance, Terminal and Markov.
type Payload interface {
	Kind() NodeKind
	payload()
}

// Decision picks the best branch.
type Decision struct {
	Branches []Branch
}

// Chance weights branches by probability.
type Chance struct {
	Branches []Branch
}

// Terminal models a single outcome; only its first branch is used.
type Terminal struct {
	Branches []Branch
}

func (*Decision) Kind() NodeKind { return KindDecision }
func (*Chance) Kind() NodeKind   { return KindChance }
func (*Terminal) Kind() NodeKind { return KindTerminal }
func (*Markov) Kind() NodeKind   { return KindMarkov }

func (*Decision) payload() {}
func (*Chance) payload()   {}
func (*Terminal) payload() {}
func (*Markov) payload()   {}

// Node represents a logical unit in the decision graph.
type Node struct {
	ID       string
	Label    string
	Position Position
	Data     Payload
}

// Kind returns the node variant, or "" when the node has no payload.
func (n *Node) Kind() NodeKind {
	if n.Data == nil {
		return ""
	}
	return n.Data.Kind()
}

// Branches returns the branch list of tree nodes and nil for Markov nodes.
func (n *Node) Branches() []Branch {
	switch p := n.Data.(type) {
	case *Decision:
		return p.Branches
	case *Chance:
		return p.Branches
	case *Terminal:
		return p.Branches
	default:
		return nil
	}
}

// Clone returns a deep copy of the node. Markov payloads are shared since
// they are never mutated during analysis.
func (n Node) Clone() Node {
	out := n
	switch p := n.Data.(type) {
	case *Decision:
		out.Data = &Decision{Branches: cloneBranches(p.Branches)}
	case *Chance:
		out.Data = &Chance{Branches: cloneBranches(p.Branches)}
	case *Terminal:
		out.Data = &Terminal{Branches: cloneBranches(p.Branches)}
	}
	return out
}

func cloneBranches(in []Branch) []Branch {
	if in == nil {
		return nil
	}
	out := make([]Branch, len(in))
	copy(out, in)
	return out
}

// MarshalJSON writes the editor wire shape:
// {id, type:"custom", position, data:{nodeType, label, ...}}.
func (n Node) MarshalJSON() ([]byte, error) {
	data := map[string]any{
		"label":    n.Label,
		"nodeType": n.Kind(),
	}
	switch p := n.Data.(type) {
	case *Decision, *Chance, *Terminal:
		branches := n.Branches()
		if branches == nil {
			branches = []Branch{}
		}
		data["branches"] = branches
	case *Markov:
		data["states"] = p.States
		data["transitionMatrix"] = p.Transitions
		data["timeHorizon"] = p.TimeHorizon
		data["cycleLength"] = p.CycleLength
		data["initialDistribution"] = p.InitialDistribution
		data["halfCycleCorrection"] = p.HalfCycleCorrection
	}
	return json.Marshal(struct {
		ID       string         `json:"id"`
		Type     string         `json:"type"`
		Position Position       `json:"position"`
		Data     map[string]any `json:"data"`
	}{
		ID:       n.ID,
		Type:     "custom",
		Position: n.Position,
		Data:     data,
	})
}
