// Package remover deletes confirmed-dead functions from Go source files.
//
// Removal is two-phase: Plan computes the exact line ranges to delete, Apply
// performs the deletions with atomic writes. Callers inspect the plan in
// dry-run mode before committing.
package remover

import (
	"bufio"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Target names a function to remove: the file it lives in and its name,
// with the receiver qualifier for methods ("Store.oldFlush").
type Target struct {
	FilePath string `json:"file_path"`
	Name     string `json:"name"`
}

// Deletion is one planned line-range removal.
type Deletion struct {
	FilePath  string `json:"file_path"`
	Name      string `json:"name"`
	StartLine int    `json:"start_line"` // first deleted line, doc comment included
	EndLine   int    `json:"end_line"`   // last deleted line, inclusive
}

// Plan maps files to their ordered deletions.
type Plan struct {
	Deletions []Deletion `json:"deletions"`
	// NotFound lists targets whose declaration could not be located.
	NotFound []Target `json:"not_found,omitempty"`
}

// Options configure a removal pass.
type Options struct {
	// MaxChanges caps how many functions get removed. Zero means no cap.
	MaxChanges int

	// Logger for progress diagnostics. Nil means no logging.
	Logger *zap.Logger
}

// Build locates each target's declaration under root and returns the
// deletion plan. Targets are grouped by file; ranges cover the declaration
// plus its doc comment.
func Build(root string, targets []Target, opts Options) (*Plan, error) {
	byFile := map[string][]string{}
	for _, tg := range targets {
		byFile[tg.FilePath] = append(byFile[tg.FilePath], tg.Name)
	}

	plan := &Plan{}
	files := make([]string, 0, len(byFile))
	for file := range byFile {
		files = append(files, file)
	}
	sort.Strings(files)

	changes := 0
	for _, file := range files {
		if opts.MaxChanges > 0 && changes >= opts.MaxChanges {
			break
		}
		names := byFile[file]
		deletions, notFound, err := planFile(root, file, names)
		if err != nil {
			return nil, err
		}
		for _, d := range deletions {
			if opts.MaxChanges > 0 && changes >= opts.MaxChanges {
				break
			}
			plan.Deletions = append(plan.Deletions, d)
			changes++
		}
		plan.NotFound = append(plan.NotFound, notFound...)
	}
	return plan, nil
}

// planFile parses one file and resolves the named functions to line ranges.
func planFile(root, relPath string, names []string) ([]Deletion, []Target, error) {
	full := filepath.Join(root, relPath)
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, full, nil, parser.ParseComments)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", relPath, err)
	}

	wanted := map[string]bool{}
	for _, name := range names {
		wanted[name] = true
	}

	var deletions []Deletion
	found := map[string]bool{}
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		name := declaredName(fn)
		if !wanted[name] {
			continue
		}
		found[name] = true
		start := fn.Pos()
		if fn.Doc != nil {
			start = fn.Doc.Pos()
		}
		deletions = append(deletions, Deletion{
			FilePath:  relPath,
			Name:      name,
			StartLine: fset.Position(start).Line,
			EndLine:   fset.Position(fn.End()).Line,
		})
	}

	var notFound []Target
	for _, name := range names {
		if !found[name] {
			notFound = append(notFound, Target{FilePath: relPath, Name: name})
		}
	}
	return deletions, notFound, nil
}

// declaredName renders a declaration's name, receiver-qualified for methods.
func declaredName(fn *ast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		return fn.Name.Name
	}
	switch t := fn.Recv.List[0].Type.(type) {
	case *ast.Ident:
		return t.Name + "." + fn.Name.Name
	case *ast.StarExpr:
		if ident, ok := t.X.(*ast.Ident); ok {
			return ident.Name + "." + fn.Name.Name
		}
	}
	return fn.Name.Name
}

// Apply performs the plan's deletions, writing each changed file atomically.
// Returns the number of functions removed per file.
func Apply(root string, plan *Plan, opts Options) (map[string]int, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	byFile := map[string][]Deletion{}
	for _, d := range plan.Deletions {
		byFile[d.FilePath] = append(byFile[d.FilePath], d)
	}

	removed := map[string]int{}
	for file, deletions := range byFile {
		full := filepath.Join(root, file)
		lines, err := readLines(full)
		if err != nil {
			return nil, err
		}

		// Delete bottom-up so earlier ranges keep their line numbers.
		sort.Slice(deletions, func(i, j int) bool {
			return deletions[i].StartLine > deletions[j].StartLine
		})
		for _, d := range deletions {
			lines = deleteRange(lines, d.StartLine, d.EndLine)
			logger.Info("removed function",
				zap.String("file", file),
				zap.String("name", d.Name),
				zap.Int("lines", d.EndLine-d.StartLine+1))
		}

		if err := writeFileAtomic(full, lines); err != nil {
			return nil, err
		}
		removed[file] = len(deletions)
	}
	return removed, nil
}

// readLines loads a file as a line slice, preserving content exactly.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return lines, nil
}

// deleteRange removes 1-based lines [start, end] plus one trailing blank
// line if the deletion leaves consecutive blanks behind.
func deleteRange(lines []string, start, end int) []string {
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return lines
	}
	out := append([]string{}, lines[:start-1]...)
	rest := lines[end:]
	// Collapse the blank line that separated the removed declaration from
	// its neighbor.
	if len(rest) > 0 && strings.TrimSpace(rest[0]) == "" {
		if start == 1 || (len(out) > 0 && strings.TrimSpace(out[len(out)-1]) == "") {
			rest = rest[1:]
		}
	}
	return append(out, rest...)
}

// writeFileAtomic writes lines with the temp-file, fsync, rename pattern.
func writeFileAtomic(path string, lines []string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".remove-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	w := bufio.NewWriter(tmp)
	for _, line := range lines {
		if _, err := w.WriteString(line + "\n"); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("writing line: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("flushing buffer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
