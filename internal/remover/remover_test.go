package remover

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSource = `package app

import "fmt"

// Run is the entry point.
func Run() {
	fmt.Println("running")
}

// legacyExport is deprecated.
func legacyExport() {
	fmt.Println("legacy")
}

func keepMe() {
	fmt.Println("kept")
}

// oldHelper is no longer used.
func oldHelper() {}
`

func writeSample(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "app"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(root, "app", "main.go"), []byte(sampleSource), 0o644))
	return root
}

func TestBuildLocatesDeclarationsWithDocComments(t *testing.T) {
	root := writeSample(t)

	plan, err := Build(root, []Target{
		{FilePath: "app/main.go", Name: "legacyExport"},
		{FilePath: "app/main.go", Name: "oldHelper"},
		{FilePath: "app/main.go", Name: "missing"},
	}, Options{})
	require.NoError(t, err)

	require.Len(t, plan.Deletions, 2)
	require.Len(t, plan.NotFound, 1)
	assert.Equal(t, "missing", plan.NotFound[0].Name)

	var legacy *Deletion
	for i := range plan.Deletions {
		if plan.Deletions[i].Name == "legacyExport" {
			legacy = &plan.Deletions[i]
		}
	}
	require.NotNil(t, legacy)
	// Range starts at the doc comment line.
	assert.Equal(t, 10, legacy.StartLine)
	assert.Equal(t, 13, legacy.EndLine)
}

func TestApplyRemovesFunctionsAndKeepsRest(t *testing.T) {
	root := writeSample(t)

	plan, err := Build(root, []Target{
		{FilePath: "app/main.go", Name: "legacyExport"},
		{FilePath: "app/main.go", Name: "oldHelper"},
	}, Options{})
	require.NoError(t, err)

	removed, err := Apply(root, plan, Options{})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"app/main.go": 2}, removed)

	out, err := os.ReadFile(filepath.Join(root, "app", "main.go"))
	require.NoError(t, err)
	content := string(out)
	assert.NotContains(t, content, "legacyExport")
	assert.NotContains(t, content, "oldHelper")
	assert.Contains(t, content, "func Run()")
	assert.Contains(t, content, "func keepMe()")
	assert.NotContains(t, content, "\n\n\n") // no stacked blank lines left behind
}

func TestBuildHonorsMaxChanges(t *testing.T) {
	root := writeSample(t)

	plan, err := Build(root, []Target{
		{FilePath: "app/main.go", Name: "legacyExport"},
		{FilePath: "app/main.go", Name: "oldHelper"},
	}, Options{MaxChanges: 1})
	require.NoError(t, err)
	assert.Len(t, plan.Deletions, 1)
}

func TestApplyRemovesMethodsByQualifiedName(t *testing.T) {
	root := t.TempDir()
	source := strings.Join([]string{
		"package store",
		"",
		"type Store struct{}",
		"",
		"// oldFlush is obsolete.",
		"func (s *Store) oldFlush() {}",
		"",
		"func (s *Store) Save() {}",
		"",
	}, "\n")
	require.NoError(t, os.WriteFile(filepath.Join(root, "store.go"), []byte(source), 0o644))

	plan, err := Build(root, []Target{{FilePath: "store.go", Name: "Store.oldFlush"}}, Options{})
	require.NoError(t, err)
	require.Len(t, plan.Deletions, 1)

	_, err = Apply(root, plan, Options{})
	require.NoError(t, err)

	out, err := os.ReadFile(filepath.Join(root, "store.go"))
	require.NoError(t, err)
	assert.NotContains(t, string(out), "oldFlush")
	assert.Contains(t, string(out), "Save")
}
