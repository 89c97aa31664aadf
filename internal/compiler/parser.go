package compiler

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/aretw0/arbor/internal/dto"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// ErrUnknownNodeType is returned when a node's data carries no recognised nodeType.
var ErrUnknownNodeType = errors.New("unknown node type")

// Document is a compiled model together with any variables stored alongside it.
type Document struct {
	ID        string
	Name      string
	Graph     *domain.Graph
	Variables domain.Variables
}

// Parser is responsible for converting raw model bytes into a domain.Graph.
type Parser struct{}

// NewParser creates a new parser instance.
func NewParser() *Parser {
	return &Parser{}
}

// Parse decodes a JSON model in the editor wire shape.
func (p *Parser) Parse(data []byte) (*Document, error) {
	var model dto.Model
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("failed to parse model: %w", err)
	}
	return p.Compile(model)
}

// ParseYAML decodes a YAML model. Keys follow the JSON wire shape.
func (p *Parser) ParseYAML(data []byte) (*Document, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse model yaml: %w", err)
	}
	return p.ParseMap(raw)
}

// ParseMap decodes an already-unmarshalled model (YAML, frontmatter, MCP arguments).
func (p *Parser) ParseMap(raw map[string]any) (*Document, error) {
	var model dto.Model
	if err := decode(raw, &model); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	return p.Compile(model)
}

// Compile converts the wire model into a typed graph.
// Authored target_node_id values are dropped: targets come from edges only.
func (p *Parser) Compile(model dto.Model) (*Document, error) {
	g := &domain.Graph{
		Nodes: make([]domain.Node, 0, len(model.Nodes)),
		Edges: make([]domain.Edge, 0, len(model.Edges)),
	}

	for _, n := range model.Nodes {
		node, err := compileNode(n)
		if err != nil {
			return nil, err
		}
		g.Nodes = append(g.Nodes, node)
	}

	for _, e := range model.Edges {
		g.Edges = append(g.Edges, domain.Edge{
			ID:           e.ID,
			Source:       e.Source,
			Target:       e.Target,
			SourceHandle: e.SourceHandle,
			TargetHandle: e.TargetHandle,
		})
	}

	var vars domain.Variables
	if len(model.Variables) > 0 {
		vars = make(domain.Variables, len(model.Variables))
		for k, v := range model.Variables {
			vars[k] = v
		}
	}

	return &Document{
		ID:        model.ID,
		Name:      model.Name,
		Graph:     g,
		Variables: vars,
	}, nil
}

type branchData struct {
	ID            string        `mapstructure:"id"`
	Name          string        `mapstructure:"name"`
	Probability   domain.Scalar `mapstructure:"probability"`
	Cost          domain.Scalar `mapstructure:"cost"`
	Effectiveness domain.Scalar `mapstructure:"effectiveness"`
}

type stateData struct {
	Name    string        `mapstructure:"name"`
	Cost    domain.Scalar `mapstructure:"cost"`
	Utility domain.Scalar `mapstructure:"utility"`
}

type nodeData struct {
	Label    string       `mapstructure:"label"`
	NodeType string       `mapstructure:"nodeType"`
	Branches []branchData `mapstructure:"branches"`

	States              []stateData                         `mapstructure:"states"`
	TransitionMatrix    map[string]map[string]domain.Scalar `mapstructure:"transitionMatrix"`
	TimeHorizon         *int                                `mapstructure:"timeHorizon"`
	CycleLength         *float64                            `mapstructure:"cycleLength"`
	InitialDistribution map[string]domain.Scalar            `mapstructure:"initialDistribution"`
	HalfCycleCorrection *bool                               `mapstructure:"halfCycleCorrection"`
}

func compileNode(n dto.Node) (domain.Node, error) {
	var data nodeData
	if err := decode(n.Data, &data); err != nil {
		return domain.Node{}, &domain.NodeError{NodeID: n.ID, Err: fmt.Errorf("invalid node data: %w", err)}
	}

	node := domain.Node{
		ID:       n.ID,
		Label:    data.Label,
		Position: domain.Position{X: n.Position.X, Y: n.Position.Y},
	}

	switch domain.NodeKind(data.NodeType) {
	case domain.KindDecision:
		node.Data = &domain.Decision{Branches: compileBranches(data.Branches)}
	case domain.KindChance:
		node.Data = &domain.Chance{Branches: compileBranches(data.Branches)}
	case domain.KindTerminal:
		node.Data = &domain.Terminal{Branches: compileBranches(data.Branches)}
	case domain.KindMarkov:
		node.Data = compileMarkov(data)
	default:
		return domain.Node{}, &domain.NodeError{NodeID: n.ID, Err: fmt.Errorf("%w: %q", ErrUnknownNodeType, data.NodeType)}
	}
	return node, nil
}

func compileBranches(in []branchData) []domain.Branch {
	out := make([]domain.Branch, 0, len(in))
	for _, b := range in {
		out = append(out, domain.Branch{
			ID:            b.ID,
			Name:          b.Name,
			Probability:   b.Probability,
			Cost:          b.Cost,
			Effectiveness: b.Effectiveness,
		})
	}
	return out
}

func compileMarkov(data nodeData) *domain.Markov {
	m := &domain.Markov{
		States:              make([]domain.MarkovState, 0, len(data.States)),
		Transitions:         domain.TransitionMatrix(data.TransitionMatrix),
		TimeHorizon:         domain.DefaultTimeHorizon,
		CycleLength:         domain.DefaultCycleLength,
		InitialDistribution: data.InitialDistribution,
		HalfCycleCorrection: domain.DefaultHalfCycleCorrection,
	}
	for _, s := range data.States {
		m.States = append(m.States, domain.MarkovState{Name: s.Name, Cost: s.Cost, Utility: s.Utility})
	}
	// Zero counts as unset.
	if data.TimeHorizon != nil && *data.TimeHorizon != 0 {
		m.TimeHorizon = *data.TimeHorizon
	}
	if data.CycleLength != nil && *data.CycleLength != 0 {
		m.CycleLength = *data.CycleLength
	}
	if data.HalfCycleCorrection != nil {
		m.HalfCycleCorrection = *data.HalfCycleCorrection
	}
	if m.Transitions == nil {
		m.Transitions = domain.TransitionMatrix{}
	}
	if m.InitialDistribution == nil {
		m.InitialDistribution = map[string]domain.Scalar{}
	}
	return m
}

var scalarType = reflect.TypeOf(domain.Scalar{})

// scalarHook turns wire numbers and strings into domain.Scalar values.
func scalarHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != scalarType || from == scalarType {
		return data, nil
	}
	return domain.ParseScalar(data)
}

func decode(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.DecodeHookFuncType(scalarHook),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
