package mcp

import (
	"context"
	"testing"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/dsl"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const treatModel = `{"nodes":[
  {"id":"d","data":{"nodeType":"decision","branches":[
    {"id":"a","name":"Treat","cost":100,"effectiveness":"eff"},
    {"id":"b","name":"Wait","cost":0,"effectiveness":0.5}
  ]}}
],"edges":[],"variables":{"eff":0.8}}`

func library(t *testing.T) *Server {
	t.Helper()
	b := dsl.New()
	b.Terminal("t").Outcome(4, "q")
	loader, err := b.BuildLoader("single")
	require.NoError(t, err)
	return NewServer(arbor.New(), WithLoader(loader))
}

func TestRollbackTool_InlineModel(t *testing.T) {
	s := NewServer(arbor.New())
	ctx := context.Background()

	out, err := s.handleRollback(ctx, mcp.CallToolRequest{}, map[string]interface{}{"model": treatModel})
	require.NoError(t, err)
	assert.Equal(t, domain.Outcome{Cost: 100, Effectiveness: 0.8, Strategy: "Treat"}, out)

	out, err = s.handleRollback(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"model":     treatModel,
		"variables": `{"eff":0.1}`,
	})
	require.NoError(t, err)
	assert.Equal(t, "Wait", out.Strategy)
}

func TestRollbackTool_Errors(t *testing.T) {
	s := NewServer(arbor.New())
	ctx := context.Background()

	_, err := s.handleRollback(ctx, mcp.CallToolRequest{}, map[string]interface{}{})
	assert.ErrorContains(t, err, "model is required")

	// model_id is ignored without a library.
	_, err = s.handleRollback(ctx, mcp.CallToolRequest{}, map[string]interface{}{"model_id": "single"})
	assert.ErrorContains(t, err, "model is required")

	_, err = s.handleRollback(ctx, mcp.CallToolRequest{}, map[string]interface{}{"model": "{"})
	assert.ErrorIs(t, err, domain.ErrInvalidModel)

	_, err = s.handleRollback(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"model":     treatModel,
		"variables": "[1]",
	})
	assert.ErrorContains(t, err, "invalid variables")
}

func TestSensitivityTool(t *testing.T) {
	s := NewServer(arbor.New())

	res, err := s.handleSensitivity(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{"model": treatModel})
	require.NoError(t, err)
	assert.Equal(t, 0.8, res.BaseOutcome)
	require.Len(t, res.Bars, 1)
	assert.Equal(t, "eff", res.Bars[0].VariableName)
	assert.InDelta(t, 0.64, res.Bars[0].LowImpact, 1e-9)
	assert.InDelta(t, 0.96, res.Bars[0].HighImpact, 1e-9)
}

func TestLibraryTools(t *testing.T) {
	s := library(t)
	ctx := context.Background()

	list, err := s.handleListModels(ctx, mcp.CallToolRequest{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"single"}, list.Models)

	out, err := s.handleRollback(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"model_id":  "single",
		"variables": `{"q":0.7}`,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.Outcome{Cost: 4, Effectiveness: 0.7}, out)

	_, err = s.handleRollback(ctx, mcp.CallToolRequest{}, map[string]interface{}{"model_id": "missing"})
	assert.ErrorIs(t, err, domain.ErrModelNotFound)
}

func TestEngineErrorsAreWrapped(t *testing.T) {
	s := NewServer(arbor.New(arbor.WithStrictRoot(true)))
	model := `{"nodes":[
	  {"id":"a","data":{"nodeType":"terminal","branches":[{"id":"x"}]}},
	  {"id":"b","data":{"nodeType":"terminal","branches":[{"id":"y"}]}}
	],"edges":[]}`

	_, err := s.handleRollback(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{"model": model})
	assert.ErrorIs(t, err, domain.ErrAmbiguousRoot)
	assert.ErrorContains(t, err, "rollback failed")
}
