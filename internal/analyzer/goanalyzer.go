package analyzer

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"

	"sentryd/internal/errs"
	"sentryd/internal/model"
	"sentryd/internal/store"
)

// GoAnalyzer is the LanguageAnalyzer for Go source. Unlike the
// tree-sitter-backed analyzers for python/javascript/typescript, it parses
// with the standard library's own go/parser and go/ast — Go is the one
// language sentryd can analyze with its host toolchain's native grammar,
// so there's no reason to route it through a third-party parser.
type GoAnalyzer struct{}

// NewGoAnalyzer returns a ready-to-use Go analyzer.
func NewGoAnalyzer() *GoAnalyzer { return &GoAnalyzer{} }

func (a *GoAnalyzer) LanguageName() string       { return "go" }
func (a *GoAnalyzer) FileExtensions() []string   { return []string{".go"} }
func (a *GoAnalyzer) GetCrossLanguageCorrelations() []string {
	return []string{"python", "javascript", "typescript", "rust"}
}

// AnalyzeFile parses content and reports unused imports and unreachable
// code following a return/panic/os.Exit at the end of a block — the two
// dead-code shapes go/ast makes trivial to detect structurally, rather than
// by regex.
func (a *GoAnalyzer) AnalyzeFile(ctx context.Context, path string, content []byte, localStore *store.Handle, globalStore *store.CrossReferenceIndex) ([]model.Issue, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, content, parser.ParseComments)
	if err != nil {
		return nil, errs.Wrap(errs.KindParseFailed, err, "failed to parse %s", path)
	}

	var issues []model.Issue
	issues = append(issues, a.unusedImports(fset, file, path)...)
	issues = append(issues, a.unreachableCode(fset, file, path)...)
	return issues, nil
}

// unusedImports reports every imported package whose local name (or
// inferred package name, for unaliased imports) never appears as a
// selector elsewhere in the file.
func (a *GoAnalyzer) unusedImports(fset *token.FileSet, file *ast.File, path string) []model.Issue {
	used := make(map[string]bool)
	ast.Inspect(file, func(n ast.Node) bool {
		sel, ok := n.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		if ident, ok := sel.X.(*ast.Ident); ok {
			used[ident.Name] = true
		}
		return true
	})

	var issues []model.Issue
	for _, imp := range file.Imports {
		name := importLocalName(imp)
		if name == "_" || name == "." {
			continue
		}
		if used[name] {
			continue
		}
		pos := fset.Position(imp.Pos())
		issues = append(issues, model.Issue{
			Type:        "unused_import",
			FilePath:    path,
			Line:        pos.Line,
			Severity:    model.SeverityLow,
			Description: fmt.Sprintf("imported package %s is never referenced", imp.Path.Value),
			Suggestion:  fmt.Sprintf("remove the unused import %s", imp.Path.Value),
			ContextTags: []string{string(model.CategorySyntax)},
		})
	}
	return issues
}

func importLocalName(imp *ast.ImportSpec) string {
	if imp.Name != nil {
		return imp.Name.Name
	}
	// Unaliased import: the package's declared name is unknown without
	// loading it, so fall back to the last path element, which matches the
	// overwhelming majority of real packages.
	p := imp.Path.Value
	p = p[1 : len(p)-1] // strip quotes
	last := p
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			last = p[i+1:]
			break
		}
	}
	return last
}

// unreachableCode reports statements that follow an unconditional
// return/panic/continue/break/goto within the same block — code that can
// never execute.
func (a *GoAnalyzer) unreachableCode(fset *token.FileSet, file *ast.File, path string) []model.Issue {
	var issues []model.Issue
	ast.Inspect(file, func(n ast.Node) bool {
		block, ok := n.(*ast.BlockStmt)
		if !ok {
			return true
		}
		for i, stmt := range block.List {
			if !isTerminating(stmt) {
				continue
			}
			if i+1 < len(block.List) {
				pos := fset.Position(block.List[i+1].Pos())
				issues = append(issues, model.Issue{
					Type:        "unreachable_code",
					FilePath:    path,
					Line:        pos.Line,
					Severity:    model.SeverityMedium,
					Description: "statement is unreachable, the preceding statement always returns, panics, or transfers control",
					ContextTags: []string{string(model.CategorySyntax)},
				})
			}
		}
		return true
	})
	return issues
}

func isTerminating(stmt ast.Stmt) bool {
	switch s := stmt.(type) {
	case *ast.ReturnStmt:
		return true
	case *ast.BranchStmt:
		return s.Tok == token.BREAK || s.Tok == token.CONTINUE || s.Tok == token.GOTO || s.Tok == token.FALLTHROUGH
	case *ast.ExprStmt:
		if call, ok := s.X.(*ast.CallExpr); ok {
			if ident, ok := call.Fun.(*ast.Ident); ok && ident.Name == "panic" {
				return true
			}
			if sel, ok := call.Fun.(*ast.SelectorExpr); ok {
				if pkg, ok := sel.X.(*ast.Ident); ok && pkg.Name == "os" && sel.Sel.Name == "Exit" {
					return true
				}
			}
		}
	}
	return false
}

// LearnFromAnalysis stores one pattern record per distinct issue type, the
// same lightweight reinforcement the generic analyzer performs.
func (a *GoAnalyzer) LearnFromAnalysis(ctx context.Context, issues []model.Issue, localStore *store.Handle) error {
	seen := make(map[string]bool)
	for _, iss := range issues {
		if seen[iss.Type] {
			continue
		}
		seen[iss.Type] = true
		rec := model.PatternRecord{
			PatternID: fmt.Sprintf("go:%s", iss.Type),
			Language:  "go",
			Category:  model.CategorySyntax,
			Severity:  iss.Severity,
			Detection: iss.Type,
		}
		if _, err := localStore.Store(ctx, rec, iss.Description, map[string]interface{}{"issue_type": iss.Type}); err != nil {
			return err
		}
	}
	return nil
}

// GetSimilarPatterns searches localStore for prior patterns resembling
// issueType.
func (a *GoAnalyzer) GetSimilarPatterns(ctx context.Context, issueType string, localStore *store.Handle) ([]string, error) {
	outcome, err := localStore.Search(ctx, issueType, 5, store.Filter{}, store.DefaultSearchTimeout)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(outcome.Results))
	for _, r := range outcome.Results {
		ids = append(ids, r.PatternID)
	}
	return ids, nil
}
