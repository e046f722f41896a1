package pkganalyzer

import (
	"go/ast"
	"go/parser"
	"go/token"
	"regexp"
	"strings"

	"sentryd/internal/model"
)

// genericImportLine matches an import/require/from-import statement across
// the languages sentryd's analyzers cover, loosely enough to feed the
// connector's dependency scoring rather than a compiler.
var genericImportLine = regexp.MustCompile(`(?m)^\s*(?:import\s+["']([^"']+)["']|from\s+(\S+)\s+import|require\(["']([^"']+)["']\)|import\s+.*?from\s+["']([^"']+)["'])`)

var genericFuncLine = regexp.MustCompile(`(?m)^\s*(?:def\s+(\w+)\s*\(([^)]*)\)|function\s+(\w+)\s*\(([^)]*)\)|const\s+(\w+)\s*=\s*\(([^)]*)\)\s*=>)`)

// ExtractCapabilities inspects a single source file and reports the
// functions, imports, and entry-guard shape the Code Connector (C7) and
// Package Analyzer (C8) need, ahead of Analyze's role/dependency pass. Go
// source is parsed with go/ast, the same native-toolchain approach
// GoAnalyzer uses for its own analysis; every other language falls back to
// the regex vocabulary the generic analyzer already uses for cross-language
// coverage, since a full parser per language is out of scope here.
func ExtractCapabilities(path string, content []byte) model.Capabilities {
	if strings.HasSuffix(path, ".go") {
		if caps, ok := extractGoCapabilities(path, content); ok {
			return caps
		}
	}
	return extractGenericCapabilities(path, content)
}

func extractGoCapabilities(path string, content []byte) (model.Capabilities, bool) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, content, parser.ParseComments)
	if err != nil {
		return model.Capabilities{}, false
	}

	caps := model.Capabilities{FilePath: path}
	for _, imp := range file.Imports {
		caps.Imports = append(caps.Imports, strings.Trim(imp.Path.Value, `"`))
	}
	ast.Inspect(file, func(n ast.Node) bool {
		switch decl := n.(type) {
		case *ast.FuncDecl:
			doc := ""
			if decl.Doc != nil {
				doc = decl.Doc.Text()
			}
			caps.Functions = append(caps.Functions, model.FunctionSig{
				Name:  decl.Name.Name,
				Arity: decl.Type.Params.NumFields(),
				Doc:   strings.TrimSpace(doc),
			})
			if decl.Name.Name == "main" && decl.Recv == nil {
				caps.HasEntryGuard = true
			}
		case *ast.GenDecl:
			if decl.Tok == token.TYPE {
				for _, spec := range decl.Specs {
					if ts, ok := spec.(*ast.TypeSpec); ok {
						caps.Classes = append(caps.Classes, ts.Name.Name)
					}
				}
			}
			if decl.Tok == token.CONST {
				for _, spec := range decl.Specs {
					if vs, ok := spec.(*ast.ValueSpec); ok {
						for _, name := range vs.Names {
							caps.Constants = append(caps.Constants, name.Name)
						}
					}
				}
			}
		}
		return true
	})
	caps.Keywords = keywordsFromFunctions(caps.Functions)
	caps.ComplexityScore = complexityEstimate(len(caps.Functions), len(caps.Imports))
	return caps, true
}

func extractGenericCapabilities(path string, content []byte) model.Capabilities {
	text := string(content)
	caps := model.Capabilities{FilePath: path}

	for _, m := range genericImportLine.FindAllStringSubmatch(text, -1) {
		for _, group := range m[1:] {
			if group != "" {
				caps.Imports = append(caps.Imports, group)
				break
			}
		}
	}
	for _, m := range genericFuncLine.FindAllStringSubmatch(text, -1) {
		name, arity := "", 0
		for i := 1; i < len(m); i += 2 {
			if m[i] != "" {
				name = m[i]
				if i+1 < len(m) && strings.TrimSpace(m[i+1]) != "" {
					arity = len(strings.Split(m[i+1], ","))
				}
				break
			}
		}
		if name != "" {
			caps.Functions = append(caps.Functions, model.FunctionSig{Name: name, Arity: arity})
		}
	}
	caps.Keywords = keywordsFromFunctions(caps.Functions)
	caps.ComplexityScore = complexityEstimate(len(caps.Functions), len(caps.Imports))
	return caps
}

func keywordsFromFunctions(fns []model.FunctionSig) []string {
	seen := make(map[string]bool, len(fns))
	var keywords []string
	for _, fn := range fns {
		for _, tok := range splitIdentifierWords(fn.Name) {
			if !seen[tok] {
				seen[tok] = true
				keywords = append(keywords, tok)
			}
		}
	}
	return keywords
}

func splitIdentifierWords(name string) []string {
	var words []string
	var cur strings.Builder
	for _, r := range name {
		if r == '_' || r == '-' {
			if cur.Len() > 0 {
				words = append(words, strings.ToLower(cur.String()))
				cur.Reset()
			}
			continue
		}
		if cur.Len() > 0 && isUpperRune(r) && !isUpperRune(rune(cur.String()[cur.Len()-1])) {
			words = append(words, strings.ToLower(cur.String()))
			cur.Reset()
		}
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		words = append(words, strings.ToLower(cur.String()))
	}
	return words
}

func isUpperRune(r rune) bool { return r >= 'A' && r <= 'Z' }

// complexityEstimate is a coarse substitute for a real cyclomatic
// computation: more functions and imports per file trend toward higher
// structural complexity, which is all the connector's structural score
// needs to compare two files against each other.
func complexityEstimate(funcCount, importCount int) float64 {
	return float64(funcCount) + 0.5*float64(importCount)
}
