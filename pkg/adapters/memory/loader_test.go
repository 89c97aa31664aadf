package memory_test

import (
	"testing"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/ports/tests"
)

func TestMemoryLoader_Contract(t *testing.T) {
	loader := memory.NewLoader(map[string]string{
		"tree":   `{"nodes":[{"id":"root","data":{"nodeType":"decision"}}],"edges":[]}`,
		"markov": `{"nodes":[{"id":"m","data":{"nodeType":"markov"}}],"edges":[]}`,
	})

	tests.ModelLoaderContractTest(t, loader, map[string][]string{
		"tree":   {"root"},
		"markov": {"m"},
	})
}
