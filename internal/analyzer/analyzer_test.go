package analyzer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-cognition/devin-workshop/pkg/types"
)

// writeTree materializes a map of path -> source under a temp dir.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for path, src := range files {
		full := filepath.Join(root, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(src), 0o644))
	}
	return root
}

// findCandidate returns the candidate with the given name, or nil.
func findCandidate(candidates []types.Candidate, name string) *types.Candidate {
	for i := range candidates {
		if candidates[i].Name == name {
			return &candidates[i]
		}
	}
	return nil
}

func TestAnalyzeFlagsUnreferencedLegacyFunction(t *testing.T) {
	root := writeTree(t, map[string]string{
		"app/main.go": `package app

func Run() {
	helper()
}

func helper() {}

// legacyExport is deprecated and no longer used.
func legacyExport() {}
`,
	})

	candidates, err := Analyze(root, Options{MinConfidence: -1})
	require.NoError(t, err)

	legacy := findCandidate(candidates, "legacyExport")
	require.NotNil(t, legacy)
	// keyword in name (old? no) — doc keyword 0.4, zero refs 0.3, unexported 0.2
	assert.InDelta(t, 0.9, legacy.Confidence, 0.001)
	assert.Equal(t, 0, legacy.References)
	assert.Equal(t, types.KindFunction, legacy.Kind)
	assert.Equal(t, "app/main.go", legacy.FilePath)

	helper := findCandidate(candidates, "helper")
	require.NotNil(t, helper)
	// referenced once, in its own file: 0.2 + unexported 0.2
	assert.InDelta(t, 0.4, helper.Confidence, 0.001)
}

func TestAnalyzeCountsCrossFileReferences(t *testing.T) {
	root := writeTree(t, map[string]string{
		"pkg/util.go": `package pkg

func Shared() {}
`,
		"pkg/caller.go": `package pkg

func Use() {
	Shared()
}
`,
	})

	candidates, err := Analyze(root, Options{MinConfidence: -1})
	require.NoError(t, err)

	shared := findCandidate(candidates, "Shared")
	require.NotNil(t, shared)
	assert.Equal(t, 1, shared.References)
	assert.True(t, shared.Exported)
	assert.Zero(t, shared.Confidence)
}

func TestAnalyzeSkipsEntryPoints(t *testing.T) {
	root := writeTree(t, map[string]string{
		"cmd/main.go": `package main

func main() {}

func init() {}
`,
	})

	candidates, err := Analyze(root, Options{MinConfidence: -1})
	require.NoError(t, err)

	for _, name := range []string{"main", "init"} {
		c := findCandidate(candidates, name)
		require.NotNil(t, c, name)
		assert.Zero(t, c.Confidence, name)
	}
}

func TestAnalyzeMethodsCarryReceiverName(t *testing.T) {
	root := writeTree(t, map[string]string{
		"store/store.go": `package store

type Store struct{}

// oldFlush is obsolete.
func (s *Store) oldFlush() {}
`,
	})

	candidates, err := Analyze(root, Options{})
	require.NoError(t, err)

	c := findCandidate(candidates, "Store.oldFlush")
	require.NotNil(t, c)
	assert.Equal(t, types.KindMethod, c.Kind)
	// keyword "old" in name 0.3, keyword in doc 0.4, no refs 0.3 => capped 1.0
	assert.InDelta(t, 1.0, c.Confidence, 0.001)
}

func TestAnalyzeSkipsGeneratedAndTestFiles(t *testing.T) {
	root := writeTree(t, map[string]string{
		"gen/gen.go": `// Code generated by protoc. DO NOT EDIT.
package gen

func unusedGenerated() {}
`,
		"gen/real_test.go": `package gen

func TestSomething(t *testing.T) {}
`,
		"vendor/dep/dep.go": `package dep

func unusedVendored() {}
`,
	})

	candidates, err := Analyze(root, Options{MinConfidence: -1})
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestAnalyzeSortsByConfidence(t *testing.T) {
	root := writeTree(t, map[string]string{
		"app/app.go": `package app

// oldPath is deprecated.
func oldPath() {}

func quietHelper() {}
`,
	})

	candidates, err := Analyze(root, Options{})
	require.NoError(t, err)
	require.NotEmpty(t, candidates)
	for i := 1; i < len(candidates); i++ {
		assert.GreaterOrEqual(t, candidates[i-1].Confidence, candidates[i].Confidence)
	}
	assert.Equal(t, "oldPath", candidates[0].Name)
}
