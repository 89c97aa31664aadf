package loam

// ModelMetadata represents a decision model stored as a Loam document.
// It uses "mapstructure" tags to match Frontmatter/YAML keys.
// Nodes and edges stay untyped so numeric fidelity from the strict serializer
// survives until the compiler decodes them.
type ModelMetadata struct {
	ID        string           `json:"id" mapstructure:"id"`
	Name      string           `json:"name,omitempty" mapstructure:"name"`
	Nodes     []map[string]any `json:"nodes" mapstructure:"nodes"`
	Edges     []map[string]any `json:"edges" mapstructure:"edges"`
	Variables map[string]any   `json:"variables,omitempty" mapstructure:"variables"`
}
