// Package analyzer finds dead-code candidates in Go source trees.
//
// Analysis runs in two passes: the first collects every function and method
// declaration, the second counts identifier references to each collected
// name across the tree. A weighted confidence score combines naming and
// documentation signals with the reference counts.
package analyzer

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/joao-cognition/devin-workshop/pkg/types"
)

// deadCodeKeywords are the phrases in a name or doc comment that suggest
// the author already considers the code dead.
var deadCodeKeywords = []string{
	"deprecated", "legacy", "old", "unused", "obsolete",
	"todo: remove", "fixme: remove", "to be removed",
	"no longer used", "not used", "dead code",
}

// wellKnownNames are functions the runtime, the test framework, or common
// interfaces call implicitly. They never score as dead code.
var wellKnownNames = map[string]bool{
	"main": true, "init": true,
	"String": true, "Error": true, "GoString": true,
	"MarshalJSON": true, "UnmarshalJSON": true,
	"MarshalText": true, "UnmarshalText": true,
	"MarshalYAML": true, "UnmarshalYAML": true,
	"ServeHTTP": true, "Close": true,
	"Read": true, "Write": true,
	"Len": true, "Less": true, "Swap": true,
}

// Confidence weights. The signals are additive and capped at 1.0.
const (
	weightKeywordInName     = 0.3
	weightKeywordInDoc      = 0.4
	weightNoReferences      = 0.3
	weightOwnFileOnly       = 0.2
	weightUnexportedFewRefs = 0.2
)

// DefaultMinConfidence filters candidates when Options leaves it unset.
const DefaultMinConfidence = 0.5

// defaultParseConcurrency bounds how many package directories parse at once.
const defaultParseConcurrency = 8

// Options configure an analysis pass.
type Options struct {
	// MinConfidence drops candidates scoring below it. Zero means
	// DefaultMinConfidence; negative means keep everything.
	MinConfidence float64

	// Concurrency bounds parallel directory parsing. Zero means the default.
	Concurrency int

	// Logger for parse diagnostics. Nil means no logging.
	Logger *zap.Logger
}

// element is one collected declaration before scoring.
type element struct {
	candidate types.Candidate
	// refFiles maps files containing a reference to the element's name,
	// excluding the declaration itself.
	refFiles map[string]bool
}

// Analyze walks root for Go sources and returns dead-code candidates sorted
// by confidence descending, then name.
func Analyze(root string, opts Options) ([]types.Candidate, error) {
	minConfidence := opts.MinConfidence
	if minConfidence == 0 {
		minConfidence = DefaultMinConfidence
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultParseConcurrency
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	files, err := goFiles(root)
	if err != nil {
		return nil, err
	}

	parsed, err := parseAll(files, concurrency, logger)
	if err != nil {
		return nil, err
	}

	elements := collectElements(parsed, root)
	countReferences(parsed, root, elements)

	candidates := []types.Candidate{}
	for _, el := range elements {
		score(el)
		if minConfidence >= 0 && el.candidate.Confidence < minConfidence {
			continue
		}
		candidates = append(candidates, el.candidate)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].Name < candidates[j].Name
	})
	return candidates, nil
}

// goFiles lists non-test Go files under root, skipping vendor, testdata,
// hidden and underscore-prefixed directories.
func goFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path == root {
				return nil
			}
			if name == "vendor" || name == "testdata" ||
				strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return files, nil
}

// parsedFile pairs a path with its AST and file set.
type parsedFile struct {
	path string
	fset *token.FileSet
	file *ast.File
}

// parseAll parses files concurrently, one errgroup worker per file with a
// concurrency cap. Generated files are skipped.
func parseAll(files []string, concurrency int, logger *zap.Logger) ([]parsedFile, error) {
	var mu sync.Mutex
	parsed := make([]parsedFile, 0, len(files))

	g := new(errgroup.Group)
	g.SetLimit(concurrency)
	for _, path := range files {
		path := path
		g.Go(func() error {
			src, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			if isGenerated(src) {
				logger.Debug("skipping generated file", zap.String("path", path))
				return nil
			}
			fset := token.NewFileSet()
			file, err := parser.ParseFile(fset, path, src, parser.ParseComments)
			if err != nil {
				// A file that does not parse cannot hide live references
				// to code elsewhere worth keeping; warn and move on.
				logger.Warn("could not parse file", zap.String("path", path), zap.Error(err))
				return nil
			}
			mu.Lock()
			parsed = append(parsed, parsedFile{path: path, fset: fset, file: file})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(parsed, func(i, j int) bool { return parsed[i].path < parsed[j].path })
	return parsed, nil
}

// isGenerated reports whether the source carries the standard generated-code
// marker in its header.
func isGenerated(src []byte) bool {
	head := src
	if len(head) > 2048 {
		head = head[:2048]
	}
	for _, line := range strings.Split(string(head), "\n") {
		if strings.HasPrefix(line, "// Code generated ") && strings.HasSuffix(strings.TrimSpace(line), "DO NOT EDIT.") {
			return true
		}
	}
	return false
}

// collectElements gathers every function and method declaration.
func collectElements(parsed []parsedFile, root string) []*element {
	var elements []*element
	for _, pf := range parsed {
		rel := relPath(root, pf.path)
		for _, decl := range pf.file.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok {
				continue
			}
			name := fn.Name.Name
			kind := types.KindFunction
			if fn.Recv != nil {
				kind = types.KindMethod
				if recv := receiverName(fn); recv != "" {
					name = recv + "." + fn.Name.Name
				}
			}
			doc := ""
			if fn.Doc != nil {
				doc = strings.TrimSpace(fn.Doc.Text())
			}
			elements = append(elements, &element{
				candidate: types.Candidate{
					Name:     name,
					Kind:     kind,
					FilePath: rel,
					Line:     pf.fset.Position(fn.Pos()).Line,
					EndLine:  pf.fset.Position(fn.End()).Line,
					Doc:      doc,
					Exported: ast.IsExported(fn.Name.Name),
				},
				refFiles: map[string]bool{},
			})
		}
	}
	return elements
}

// receiverName extracts the receiver type name from a method declaration.
func receiverName(fn *ast.FuncDecl) string {
	if len(fn.Recv.List) == 0 {
		return ""
	}
	switch t := fn.Recv.List[0].Type.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		if ident, ok := t.X.(*ast.Ident); ok {
			return ident.Name
		}
	}
	return ""
}

// countReferences scans every file for identifier uses of each element's
// base name, excluding the element's own declaration.
func countReferences(parsed []parsedFile, root string, elements []*element) {
	// Index elements by base name; method elements answer to the bare
	// method name since call sites rarely qualify the receiver type.
	byName := map[string][]*element{}
	for _, el := range elements {
		base := baseName(el.candidate.Name)
		byName[base] = append(byName[base], el)
	}

	for _, pf := range parsed {
		rel := relPath(root, pf.path)
		ast.Inspect(pf.file, func(n ast.Node) bool {
			ident, ok := n.(*ast.Ident)
			if !ok {
				return true
			}
			targets, ok := byName[ident.Name]
			if !ok {
				return true
			}
			line := pf.fset.Position(ident.Pos()).Line
			for _, el := range targets {
				// The declaration's own identifier is not a reference.
				if rel == el.candidate.FilePath && line == el.candidate.Line {
					continue
				}
				el.refFiles[rel] = true
			}
			return true
		})
	}

	for _, el := range elements {
		el.candidate.References = len(el.refFiles)
	}
}

// score computes the confidence and reasons for one element.
func score(el *element) {
	c := &el.candidate
	base := baseName(c.Name)

	if wellKnownNames[base] || isTestEntry(base) {
		c.Confidence = 0.0
		c.Reasons = []string{"entry point or interface method, called implicitly"}
		return
	}

	total := 0.0
	var reasons []string

	nameLower := strings.ToLower(c.Name)
	for _, kw := range deadCodeKeywords {
		if strings.Contains(nameLower, kw) {
			total += weightKeywordInName
			reasons = append(reasons, fmt.Sprintf("name contains %q", kw))
			break
		}
	}

	if c.Doc != "" {
		docLower := strings.ToLower(c.Doc)
		for _, kw := range deadCodeKeywords {
			if strings.Contains(docLower, kw) {
				total += weightKeywordInDoc
				reasons = append(reasons, fmt.Sprintf("doc comment mentions %q", kw))
				break
			}
		}
	}

	switch {
	case c.References == 0:
		total += weightNoReferences
		reasons = append(reasons, "no references found")
	case c.References == 1 && el.refFiles[c.FilePath]:
		total += weightOwnFileOnly
		reasons = append(reasons, "only referenced in its own file")
	}

	if !c.Exported && c.References <= 1 {
		total += weightUnexportedFewRefs
		reasons = append(reasons, "unexported with at most one referencing file")
	}

	if total > 1.0 {
		total = 1.0
	}
	c.Confidence = total
	c.Reasons = reasons
}

// isTestEntry reports whether the name is a test framework entry point.
func isTestEntry(name string) bool {
	for _, prefix := range []string{"Test", "Benchmark", "Fuzz", "Example"} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// baseName strips a method's receiver qualifier.
func baseName(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

// relPath renders path relative to root for stable candidate output.
func relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
