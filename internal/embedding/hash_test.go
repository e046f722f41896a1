package embedding

import (
	"context"
	"math"
	"testing"
)

func TestDeterministicHashEngine_Deterministic(t *testing.T) {
	e := NewDeterministicHashEngine(64)
	ctx := context.Background()

	v1, err := e.Embed(ctx, "func leakyHandle() { f, _ := os.Open(p) }")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	v2, err := e.Embed(ctx, "func leakyHandle() { f, _ := os.Open(p) }")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	if len(v1) != 64 {
		t.Fatalf("Dimensions()=%d, want 64", len(v1))
	}
	for i := range v1 {
		if v1[i] != v2[i] {
			t.Fatalf("same input produced different vectors at index %d: %v != %v", i, v1[i], v2[i])
		}
	}
}

func TestDeterministicHashEngine_DistinctInputs(t *testing.T) {
	e := NewDeterministicHashEngine(32)
	ctx := context.Background()

	v1, _ := e.Embed(ctx, "a")
	v2, _ := e.Embed(ctx, "b")

	sim, err := CosineSimilarity(v1, v2)
	if err != nil {
		t.Fatalf("CosineSimilarity: %v", err)
	}
	if sim > 0.9 {
		t.Fatalf("distinct inputs produced near-identical vectors: similarity=%v", sim)
	}
}

func TestDeterministicHashEngine_UnitLength(t *testing.T) {
	e := NewDeterministicHashEngine(0)
	v, err := e.Embed(context.Background(), "package main")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSquares)
	if math.Abs(norm-1.0) > 1e-3 {
		t.Fatalf("vector not unit length: norm=%v", norm)
	}
}

func TestDeterministicHashEngine_EmbedBatch(t *testing.T) {
	e := NewDeterministicHashEngine(16)
	texts := []string{"one", "two", "three"}
	vecs, err := e.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("EmbedBatch returned %d vectors, want %d", len(vecs), len(texts))
	}

	single, _ := e.Embed(context.Background(), "two")
	for i := range single {
		if single[i] != vecs[1][i] {
			t.Fatalf("EmbedBatch result diverges from Embed at index %d", i)
		}
	}
}

func TestDeterministicHashEngine_Name(t *testing.T) {
	e := NewDeterministicHashEngine(128)
	if got := e.Name(); got != "hash:128" {
		t.Fatalf("Name()=%q, want hash:128", got)
	}
	if e.Dimensions() != 128 {
		t.Fatalf("Dimensions()=%d, want 128", e.Dimensions())
	}
}

func TestDeterministicHashEngine_HealthCheck(t *testing.T) {
	e := NewDeterministicHashEngine(0)
	if err := e.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}
