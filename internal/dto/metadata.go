package dto

// Model is the editor wire shape of a decision model.
// It uses "mapstructure" tags so the same struct decodes JSON, YAML and
// loam frontmatter documents.
type Model struct {
	ID        string             `json:"id,omitempty" mapstructure:"id"`
	Name      string             `json:"name,omitempty" mapstructure:"name"`
	Nodes     []Node             `json:"nodes" mapstructure:"nodes"`
	Edges     []Edge             `json:"edges" mapstructure:"edges"`
	Variables map[string]float64 `json:"variables,omitempty" mapstructure:"variables"`
}

// Node is one canvas node. Data holds the variant payload keyed by "nodeType".
type Node struct {
	ID       string         `json:"id" mapstructure:"id"`
	Type     string         `json:"type" mapstructure:"type"`
	Position Position       `json:"position" mapstructure:"position"`
	Data     map[string]any `json:"data" mapstructure:"data"`
}

type Position struct {
	X float64 `json:"x" mapstructure:"x"`
	Y float64 `json:"y" mapstructure:"y"`
}

type Edge struct {
	ID           string `json:"id,omitempty" mapstructure:"id"`
	Source       string `json:"source" mapstructure:"source"`
	Target       string `json:"target" mapstructure:"target"`
	SourceHandle string `json:"sourceHandle,omitempty" mapstructure:"sourceHandle"`
	TargetHandle string `json:"targetHandle,omitempty" mapstructure:"targetHandle"`
}
