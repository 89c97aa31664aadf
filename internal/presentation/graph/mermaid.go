package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/arbor/internal/runtime"
	"github.com/aretw0/arbor/pkg/domain"
)

// GraphOverlay contains analysis results to visualize on the graph.
type GraphOverlay struct {
	Root   string
	Chosen []string // node ids on the optimal strategy
}

// StrategyOverlay marks the root and everything reachable through the root
// decision branch named strategy. An empty strategy only marks the root.
func StrategyOverlay(g *domain.Graph, rootID, strategy string) *GraphOverlay {
	overlay := &GraphOverlay{Root: rootID}
	if strategy == "" {
		return overlay
	}
	resolved := runtime.ResolveTargets(g)
	root, ok := resolved.Node(rootID)
	if !ok {
		return overlay
	}
	for _, b := range root.Branches() {
		if b.Name != strategy {
			continue
		}
		if b.TargetNodeID == "" {
			overlay.Chosen = append(overlay.Chosen, stubID(rootID, b.ID))
		} else {
			overlay.Chosen = reachable(resolved, b.TargetNodeID)
		}
		break
	}
	return overlay
}

func reachable(g *domain.Graph, start string) []string {
	seen := map[string]bool{}
	var order []string
	var walk func(id string)
	walk = func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		order = append(order, id)
		n, ok := g.Node(id)
		if !ok {
			return
		}
		for _, b := range n.Branches() {
			if b.TargetNodeID != "" {
				walk(b.TargetNodeID)
			}
		}
	}
	walk(start)
	return order
}

// GenerateMermaid produces a Mermaid flowchart of a decision model.
// It applies semantic styling:
// - Decision: [Rectangle]
// - Chance: ((Circle))
// - Terminal: >Flag]
// - Markov: [[Subroutine]]
// Unlinked decision branches are drawn as their own leaf.
func GenerateMermaid(g *domain.Graph, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")
	if g == nil {
		return sb.String()
	}
	resolved := runtime.ResolveTargets(g)

	for _, node := range resolved.Nodes {
		safeID := sanitizeMermaidID(node.ID)
		label := escape(node.Label)
		if label == "" {
			label = escape(node.ID)
		}

		switch p := node.Data.(type) {
		case *domain.Decision:
			fmt.Fprintf(&sb, "    %s[\"%s\"]\n", safeID, label)
		case *domain.Chance:
			fmt.Fprintf(&sb, "    %s((\"%s\"))\n", safeID, label)
		case *domain.Terminal:
			if len(p.Branches) > 0 {
				b := p.Branches[0]
				label = fmt.Sprintf("%s<br/>C=%s E=%s", label, b.Cost, b.Effectiveness)
			}
			fmt.Fprintf(&sb, "    %s>\"%s\"]\n", safeID, label)
		case *domain.Markov:
			fmt.Fprintf(&sb, "    %s[[\"%s<br/>%d states, %d cycles\"]]\n", safeID, label, len(p.States), p.TimeHorizon)
		default:
			fmt.Fprintf(&sb, "    %s[\"%s\"]\n", safeID, label)
		}

		_, isChance := node.Data.(*domain.Chance)
		_, isDecision := node.Data.(*domain.Decision)
		for _, b := range node.Branches() {
			edge := escape(b.Name)
			if isChance {
				edge = fmt.Sprintf("%s (p=%s)", edge, b.Probability)
			}
			switch {
			case b.TargetNodeID != "":
				fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", safeID, edge, sanitizeMermaidID(b.TargetNodeID))
			case isDecision:
				leaf := stubID(node.ID, b.ID)
				fmt.Fprintf(&sb, "    %s>\"C=%s E=%s\"]\n", leaf, b.Cost, b.Effectiveness)
				fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", safeID, edge, leaf)
			}
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds.
		sb.WriteString("    classDef root fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString("    classDef chosen fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")

		if overlay.Root != "" {
			fmt.Fprintf(&sb, "    class %s root;\n", sanitizeMermaidID(overlay.Root))
		}
		seen := make(map[string]bool)
		for _, id := range overlay.Chosen {
			safeID := sanitizeMermaidID(id)
			if !seen[safeID] && safeID != "" {
				seen[safeID] = true
				fmt.Fprintf(&sb, "    class %s chosen;\n", safeID)
			}
		}
	}

	return sb.String()
}

func stubID(nodeID, branchID string) string {
	return sanitizeMermaidID(nodeID) + "__" + sanitizeMermaidID(branchID)
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
