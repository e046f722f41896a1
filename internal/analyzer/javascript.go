package analyzer

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"

	"sentryd/internal/errs"
	"sentryd/internal/model"
	"sentryd/internal/store"
)

// JavaScriptAnalyzer parses with tree-sitter's javascript grammar to find
// leftover debugger statements and unreachable code, and layers the
// generic analyzer's regex detections on top for secrets and debt markers.
type JavaScriptAnalyzer struct {
	generic *GenericAnalyzer
}

// NewJavaScriptAnalyzer returns a ready-to-use JavaScript analyzer.
func NewJavaScriptAnalyzer() *JavaScriptAnalyzer {
	return &JavaScriptAnalyzer{generic: NewGenericAnalyzer()}
}

func (a *JavaScriptAnalyzer) LanguageName() string     { return "javascript" }
func (a *JavaScriptAnalyzer) FileExtensions() []string { return []string{".js", ".jsx", ".mjs"} }
func (a *JavaScriptAnalyzer) GetCrossLanguageCorrelations() []string {
	return []string{"go", "python", "typescript"}
}

func (a *JavaScriptAnalyzer) AnalyzeFile(ctx context.Context, path string, content []byte, localStore *store.Handle, globalStore *store.CrossReferenceIndex) ([]model.Issue, error) {
	issues, err := a.generic.AnalyzeFile(ctx, path, content, localStore, globalStore)
	if err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(javascript.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, errs.Wrap(errs.KindParseFailed, err, "failed to parse %s", path)
	}
	defer tree.Close()

	issues = append(issues, debuggerStatements(tree.RootNode(), content, path)...)
	issues = append(issues, unreachableAfterReturn(tree.RootNode(), content, path)...)
	return issues, nil
}

// debuggerStatements flags every "debugger;" left in source — harmless in
// a dev build, a correctness and performance problem if it ships.
func debuggerStatements(root *sitter.Node, content []byte, path string) []model.Issue {
	var issues []model.Issue
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == "debugger_statement" {
			issues = append(issues, model.Issue{
				Type:        "debugger_statement",
				FilePath:    path,
				Line:        int(n.StartPoint().Row) + 1,
				Severity:    model.SeverityMedium,
				Description: "debugger statement left in source",
				Suggestion:  "remove the debugger statement before shipping",
				ContextTags: []string{string(model.CategoryGeneral)},
			})
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	return issues
}

// unreachableAfterReturn flags statements that follow a return_statement
// within the same statement_block.
func unreachableAfterReturn(root *sitter.Node, content []byte, path string) []model.Issue {
	var issues []model.Issue
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == "statement_block" {
			returned := false
			for i := 0; i < int(n.ChildCount()); i++ {
				c := n.Child(i)
				if returned && c.IsNamed() {
					issues = append(issues, model.Issue{
						Type:        "unreachable_code",
						FilePath:    path,
						Line:        int(c.StartPoint().Row) + 1,
						Severity:    model.SeverityMedium,
						Description: "statement is unreachable, it follows an unconditional return",
						ContextTags: []string{string(model.CategorySyntax)},
					})
				}
				if c.Type() == "return_statement" {
					returned = true
				}
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	return issues
}

func (a *JavaScriptAnalyzer) LearnFromAnalysis(ctx context.Context, issues []model.Issue, localStore *store.Handle) error {
	return a.generic.LearnFromAnalysis(ctx, issues, localStore)
}

func (a *JavaScriptAnalyzer) GetSimilarPatterns(ctx context.Context, issueType string, localStore *store.Handle) ([]string, error) {
	return a.generic.GetSimilarPatterns(ctx, issueType, localStore)
}
