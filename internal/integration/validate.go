package integration

import (
	"context"
	"go/parser"
	"go/token"
	"path/filepath"
	"strconv"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"

	"sentryd/internal/errs"
	"sentryd/internal/regression"
)

// ParseCheck reports whether content parses as valid source for the
// language implied by path's extension. Unrecognized extensions are
// considered parse-clean — the validation step only vetoes what it can
// actually check.
func ParseCheck(ctx context.Context, path string, content []byte) error {
	switch filepath.Ext(path) {
	case ".go":
		fset := token.NewFileSet()
		if _, err := parser.ParseFile(fset, path, content, parser.AllErrors); err != nil {
			return errs.Wrap(errs.KindParseFailed, err, "parse check failed for %s", path)
		}
	case ".py":
		return treeSitterParseCheck(ctx, path, content, python.GetLanguage())
	case ".js", ".jsx", ".mjs":
		return treeSitterParseCheck(ctx, path, content, javascript.GetLanguage())
	}
	return nil
}

func treeSitterParseCheck(ctx context.Context, path string, content []byte, lang *sitter.Language) error {
	p := sitter.NewParser()
	p.SetLanguage(lang)
	tree, err := p.ParseCtx(ctx, nil, content)
	if err != nil {
		return errs.Wrap(errs.KindParseFailed, err, "parse check failed for %s", path)
	}
	if tree.RootNode().HasError() {
		return errs.New(errs.KindParseFailed, "parse check found a syntax error in %s", path)
	}
	return nil
}

// RunValidationStep parse-checks every touched file via readFile, then runs
// any configured validation commands as a regression battery in workdir,
// stopping at the first command failure (the same fail-fast discipline the
// regression battery runner already applies).
func RunValidationStep(ctx context.Context, touched []string, readFile func(path string) ([]byte, error), commands []string, workdir string) ([]regression.Result, error) {
	for _, path := range touched {
		content, err := readFile(path)
		if err != nil {
			continue // file_copy targets that don't exist yet are not parse-checked
		}
		if err := ParseCheck(ctx, path, content); err != nil {
			return nil, err
		}
	}

	if len(commands) == 0 {
		return nil, nil
	}

	battery := &regression.Battery{Version: 1}
	for i, cmd := range commands {
		battery.Tasks = append(battery.Tasks, regression.Task{
			ID:      filepath.Base(workdir) + "-validation-" + strconv.Itoa(i),
			Type:    "shell",
			Command: cmd,
		})
	}

	results, err := regression.RunBattery(ctx, battery, workdir)
	if err != nil {
		return results, errs.Wrap(errs.KindValidationFailed, err, "validation battery failed")
	}
	for _, r := range results {
		if !r.Success {
			return results, errs.New(errs.KindValidationFailed, "validation command %q failed: %s", r.TaskID, r.Error)
		}
	}
	return results, nil
}
