package analyzer

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"sentryd/internal/errs"
	"sentryd/internal/model"
	"sentryd/internal/store"
)

// PythonAnalyzer parses with tree-sitter's python grammar to find unused
// imports (unreachable code is not detected for python), and layers the generic analyzer's
// line-oriented regex detections on top for secrets and debt markers —
// python has no host-toolchain parser the way Go does, so tree-sitter is
// the grammar of record here.
type PythonAnalyzer struct {
	generic *GenericAnalyzer
}

// NewPythonAnalyzer returns a ready-to-use Python analyzer.
func NewPythonAnalyzer() *PythonAnalyzer {
	return &PythonAnalyzer{generic: NewGenericAnalyzer()}
}

func (a *PythonAnalyzer) LanguageName() string     { return "python" }
func (a *PythonAnalyzer) FileExtensions() []string { return []string{".py"} }
func (a *PythonAnalyzer) GetCrossLanguageCorrelations() []string {
	return []string{"go", "javascript", "typescript"}
}

func (a *PythonAnalyzer) AnalyzeFile(ctx context.Context, path string, content []byte, localStore *store.Handle, globalStore *store.CrossReferenceIndex) ([]model.Issue, error) {
	issues, err := a.generic.AnalyzeFile(ctx, path, content, localStore, globalStore)
	if err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, errs.Wrap(errs.KindParseFailed, err, "failed to parse %s", path)
	}
	defer tree.Close()

	issues = append(issues, unusedPythonImports(tree.RootNode(), content, path)...)
	return issues, nil
}

// unusedPythonImports walks the tree for "import x" / "from x import y"
// statements, then checks whether the bound name is referenced anywhere
// else in the file's identifiers.
func unusedPythonImports(root *sitter.Node, content []byte, path string) []model.Issue {
	type binding struct {
		name string
		line int
		stmt string
	}
	var bindings []binding
	identCounts := make(map[string]int)

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "import_statement":
			for i := 0; i < int(n.ChildCount()); i++ {
				c := n.Child(i)
				if c.Type() == "dotted_name" || c.Type() == "aliased_import" {
					name := importBindingName(c, content)
					if name != "" {
						bindings = append(bindings, binding{name: name, line: int(n.StartPoint().Row) + 1, stmt: n.Content(content)})
					}
				}
			}
		case "import_from_statement":
			for i := 0; i < int(n.ChildCount()); i++ {
				c := n.Child(i)
				if c.Type() == "dotted_name" && i > 0 && n.Child(i-1).Type() == "import" {
					name := c.Content(content)
					bindings = append(bindings, binding{name: name, line: int(n.StartPoint().Row) + 1, stmt: n.Content(content)})
				}
				if c.Type() == "aliased_import" {
					name := importBindingName(c, content)
					if name != "" {
						bindings = append(bindings, binding{name: name, line: int(n.StartPoint().Row) + 1, stmt: n.Content(content)})
					}
				}
			}
		case "identifier":
			identCounts[n.Content(content)]++
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)

	var issues []model.Issue
	for _, b := range bindings {
		// Each import contributes one identifier occurrence of its own
		// name (the binding itself); a use elsewhere pushes the count above 1.
		if identCounts[b.name] > 1 {
			continue
		}
		issues = append(issues, model.Issue{
			Type:        "unused_import",
			FilePath:    path,
			Line:        b.line,
			Severity:    model.SeverityLow,
			Description: fmt.Sprintf("imported name %s is never referenced: %s", b.name, b.stmt),
			Suggestion:  fmt.Sprintf("remove the unused import of %s", b.name),
			ContextTags: []string{string(model.CategorySyntax)},
		})
	}
	return issues
}

func importBindingName(n *sitter.Node, content []byte) string {
	if n.Type() == "aliased_import" {
		alias := n.ChildByFieldName("alias")
		if alias != nil {
			return alias.Content(content)
		}
		name := n.ChildByFieldName("name")
		if name != nil {
			return name.Content(content)
		}
		return ""
	}
	// dotted_name "a.b.c" binds "a" in the local namespace.
	text := n.Content(content)
	for i, c := range text {
		if c == '.' {
			return text[:i]
		}
	}
	return text
}

func (a *PythonAnalyzer) LearnFromAnalysis(ctx context.Context, issues []model.Issue, localStore *store.Handle) error {
	return a.generic.LearnFromAnalysis(ctx, issues, localStore)
}

func (a *PythonAnalyzer) GetSimilarPatterns(ctx context.Context, issueType string, localStore *store.Handle) ([]string, error) {
	return a.generic.GetSimilarPatterns(ctx, issueType, localStore)
}
