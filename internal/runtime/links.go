package runtime

import (
	"fmt"

	"github.com/aretw0/arbor/pkg/domain"
)

// BranchKey identifies one branch of one node.
type BranchKey struct {
	NodeID   string
	BranchID string
}

// Links is the adjacency derived from the edge list: (node, branch) -> target node.
type Links map[BranchKey]string

// BuildLinks maps every edge onto the branch named by its sourceHandle.
// Edges whose source node or branch does not exist are ignored. When several
// edges leave the same branch, the last one in edge order wins.
func BuildLinks(g *domain.Graph) Links {
	index := g.Index()
	links := make(Links, len(g.Edges))
	for _, edge := range g.Edges {
		src, ok := index[edge.Source]
		if !ok {
			continue
		}
		for _, b := range src.Branches() {
			if b.ID == edge.SourceHandle {
				links[BranchKey{NodeID: src.ID, BranchID: b.ID}] = edge.Target
				break
			}
		}
	}
	return links
}

// Target returns the node linked from the given branch.
func (l Links) Target(nodeID, branchID string) (string, bool) {
	t, ok := l[BranchKey{NodeID: nodeID, BranchID: branchID}]
	return t, ok
}

// ResolveTargets returns a private copy of g whose branch TargetNodeID fields
// reflect the edge list. Stale targets are cleared. g itself is not modified,
// and resolving an already-resolved graph yields the same assignments.
func ResolveTargets(g *domain.Graph) *domain.Graph {
	links := BuildLinks(g)
	out := g.Clone()
	for i := range out.Nodes {
		node := &out.Nodes[i]
		branches := node.Branches()
		for j := range branches {
			branches[j].TargetNodeID = links[BranchKey{NodeID: node.ID, BranchID: branches[j].ID}]
		}
	}
	return out
}

// FindRoots lists, in node order, every node that is not the target of any edge.
func FindRoots(g *domain.Graph) []string {
	targets := make(map[string]struct{}, len(g.Edges))
	for _, edge := range g.Edges {
		targets[edge.Target] = struct{}{}
	}
	var roots []string
	for _, n := range g.Nodes {
		if _, ok := targets[n.ID]; !ok {
			roots = append(roots, n.ID)
		}
	}
	return roots
}

// FindRoot selects the analysis root. With several candidates the first in
// node order is used, unless strict root mode is enabled.
func (e *Engine) FindRoot(g *domain.Graph) (*domain.Node, error) {
	roots := FindRoots(g)
	if len(roots) == 0 {
		return nil, domain.ErrRootNotFound
	}
	if len(roots) > 1 {
		if e.strictRoot {
			return nil, fmt.Errorf("%w: candidates %v", domain.ErrAmbiguousRoot, roots)
		}
		e.logger.Warn("multiple root candidates, using the first in node order",
			"root", roots[0], "candidates", roots)
	}
	node, _ := g.Node(roots[0])
	return node, nil
}
