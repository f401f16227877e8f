package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/kotae/internal/models"
)

func newTestRegistry(t *testing.T) *SQLiteRegistry {
	t.Helper()
	reg, err := NewSQLiteRegistry(filepath.Join(t.TempDir(), "nested", "documents.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = reg.Close() })
	return reg
}

func TestSQLiteRegistry_RecordAndList(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	first := &models.Document{
		Source: "a.txt", ContentHash: "sha256:aa", Kind: "text",
		SizeBytes: 12, Chunks: 2, FirstVectorID: 0,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := reg.Record(ctx, first); err != nil {
		t.Fatal(err)
	}
	if first.ID == "" {
		t.Error("ID should be assigned")
	}
	second := &models.Document{
		Source: "b.pdf", ContentHash: "sha256:bb", Kind: "pdf",
		SizeBytes: 300, Chunks: 5, FirstVectorID: 2,
		CreatedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	if err := reg.Record(ctx, second); err != nil {
		t.Fatal(err)
	}

	docs, err := reg.List(ctx, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
	if docs[0].Source != "b.pdf" || docs[1].Source != "a.txt" {
		t.Errorf("expected newest first, got %s, %s", docs[0].Source, docs[1].Source)
	}
	if docs[0].FirstVectorID != 2 || docs[0].Chunks != 5 || docs[0].Kind != "pdf" {
		t.Errorf("unexpected row: %+v", docs[0])
	}

	page, err := reg.List(ctx, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 || page[0].Source != "a.txt" {
		t.Errorf("offset 1: got %+v", page)
	}
}

func TestSQLiteRegistry_HasHash(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	ok, err := reg.HasHash(ctx, "sha256:aa")
	if err != nil || ok {
		t.Fatalf("empty registry: ok=%v err=%v", ok, err)
	}
	if err := reg.Record(ctx, &models.Document{Source: "a.txt", ContentHash: "sha256:aa", Kind: "text"}); err != nil {
		t.Fatal(err)
	}
	ok, err = reg.HasHash(ctx, "sha256:aa")
	if err != nil || !ok {
		t.Errorf("recorded hash: ok=%v err=%v", ok, err)
	}
}

func TestSQLiteRegistry_Counts(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	n, err := reg.CountDocuments(ctx)
	if err != nil || n != 0 {
		t.Errorf("CountDocuments: %v, %d", err, n)
	}
	c, err := reg.CountChunks(ctx)
	if err != nil || c != 0 {
		t.Errorf("CountChunks on empty registry: %v, %d", err, c)
	}

	_ = reg.Record(ctx, &models.Document{Source: "a", ContentHash: "h1", Kind: "text", Chunks: 3})
	_ = reg.Record(ctx, &models.Document{Source: "b", ContentHash: "h2", Kind: "text", Chunks: 4})
	n, _ = reg.CountDocuments(ctx)
	if n != 2 {
		t.Errorf("expected 2 documents, got %d", n)
	}
	c, _ = reg.CountChunks(ctx)
	if c != 7 {
		t.Errorf("expected 7 chunks, got %d", c)
	}
}

func TestSQLiteRegistry_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "documents.db")
	ctx := context.Background()
	reg, err := NewSQLiteRegistry(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := reg.Record(ctx, &models.Document{Source: "a", ContentHash: "h1", Kind: "text"}); err != nil {
		t.Fatal(err)
	}
	if err := reg.Close(); err != nil {
		t.Fatal(err)
	}

	reg, err = NewSQLiteRegistry(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reg.Close()
	n, err := reg.CountDocuments(ctx)
	if err != nil || n != 1 {
		t.Errorf("after reopen: %v, %d", err, n)
	}
}
