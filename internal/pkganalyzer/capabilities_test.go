package pkganalyzer

import "testing"

func TestExtractCapabilities_GoFile(t *testing.T) {
	src := []byte(`package sample

import "fmt"

// Greet says hello.
func Greet(name string) string {
	return fmt.Sprintf("hello %s", name)
}

func main() {}
`)
	caps := ExtractCapabilities("sample.go", src)
	if len(caps.Imports) != 1 || caps.Imports[0] != "fmt" {
		t.Fatalf("expected a single fmt import, got %v", caps.Imports)
	}
	if !caps.HasEntryGuard {
		t.Fatal("expected func main() to set HasEntryGuard")
	}
	found := false
	for _, fn := range caps.Functions {
		if fn.Name == "Greet" && fn.Arity == 1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected Greet(name string) among functions, got %v", caps.Functions)
	}
}

func TestExtractCapabilities_UnparsableGoFallsBackToGeneric(t *testing.T) {
	src := []byte("def greet(name):\n    return name\n")
	caps := ExtractCapabilities("weird.go", src)
	if len(caps.Functions) != 1 || caps.Functions[0].Name != "greet" {
		t.Fatalf("expected generic fallback to find greet(), got %v", caps.Functions)
	}
}

func TestExtractCapabilities_PythonImportsAndFunctions(t *testing.T) {
	src := []byte(`import os
from collections import OrderedDict

def process(items):
    return items
`)
	caps := ExtractCapabilities("sample.py", src)
	if len(caps.Imports) == 0 {
		t.Fatal("expected at least one import to be detected")
	}
	found := false
	for _, fn := range caps.Functions {
		if fn.Name == "process" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected process() among functions, got %v", caps.Functions)
	}
}
