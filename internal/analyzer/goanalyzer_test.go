package analyzer

import (
	"context"
	"testing"
)

func TestGoAnalyzer_UnusedImport(t *testing.T) {
	src := `package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("hi")
}
`
	a := NewGoAnalyzer()
	issues, err := a.AnalyzeFile(context.Background(), "main.go", []byte(src), nil, nil)
	if err != nil {
		t.Fatalf("AnalyzeFile failed: %v", err)
	}
	found := false
	for _, iss := range issues {
		if iss.Type == "unused_import" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an unused_import issue for os, got %+v", issues)
	}
}

func TestGoAnalyzer_UnreachableCode(t *testing.T) {
	src := `package main

func f() int {
	return 1
	println("dead")
}
`
	a := NewGoAnalyzer()
	issues, err := a.AnalyzeFile(context.Background(), "f.go", []byte(src), nil, nil)
	if err != nil {
		t.Fatalf("AnalyzeFile failed: %v", err)
	}
	found := false
	for _, iss := range issues {
		if iss.Type == "unreachable_code" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an unreachable_code issue, got %+v", issues)
	}
}

func TestGoAnalyzer_NoFalsePositiveOnCleanFile(t *testing.T) {
	src := `package main

import "fmt"

func main() {
	fmt.Println("hi")
}
`
	a := NewGoAnalyzer()
	issues, err := a.AnalyzeFile(context.Background(), "clean.go", []byte(src), nil, nil)
	if err != nil {
		t.Fatalf("AnalyzeFile failed: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("expected no issues for a clean file, got %+v", issues)
	}
}

func TestGoAnalyzer_ParseFailureReturnsError(t *testing.T) {
	a := NewGoAnalyzer()
	_, err := a.AnalyzeFile(context.Background(), "broken.go", []byte("this is not valid go {{{"), nil, nil)
	if err == nil {
		t.Fatal("expected a parse error for invalid Go source")
	}
}
