package indexer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/knowledge"
	"github.com/hyperjump/kotae/internal/storage"
)

func intPtr(n int) *int { return &n }

var smallChunks = config.ChunkingConfig{Size: 3, Overlap: intPtr(1)}

type recordingStore struct {
	mu      sync.Mutex
	sources []string
	chunks  [][]string
	next    uint64
	fail    map[string]error
}

func (r *recordingStore) Add(_ context.Context, source string, chunks []string) ([]uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail[source]; err != nil {
		return nil, err
	}
	r.sources = append(r.sources, source)
	r.chunks = append(r.chunks, chunks)
	ids := make([]uint64, len(chunks))
	for i := range ids {
		ids[i] = r.next
		r.next++
	}
	return ids, nil
}

func testIndexer(t *testing.T) (*Indexer, *knowledge.Store, *storage.SQLiteRegistry) {
	t.Helper()
	dir := t.TempDir()
	gw := embedding.NewGateway(embedding.NewMockEmbedder(4))
	store := knowledge.NewStore(filepath.Join(dir, "index"), gw)
	if err := store.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	reg, err := storage.NewSQLiteRegistry(filepath.Join(dir, "documents.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = reg.Close() })
	return NewIndexer(store, extract.NewExtractor(), smallChunks, WithRegistry(reg), WithWorkers(2)), store, reg
}

func TestExtensionAllowed(t *testing.T) {
	tests := []struct {
		ext     string
		allowed []string
		want    bool
	}{
		{".txt", []string{".txt", ".md"}, true},
		{".TXT", []string{".txt"}, true},
		{".md", []string{"txt", "md"}, true},
		{".go", []string{".txt"}, false},
		{"", []string{".txt"}, false},
	}
	for _, tt := range tests {
		if got := extensionAllowed(tt.ext, tt.allowed); got != tt.want {
			t.Errorf("extensionAllowed(%q, %v) = %v, want %v", tt.ext, tt.allowed, got, tt.want)
		}
	}
}

func TestIngest_cleansAndChunks(t *testing.T) {
	rec := &recordingStore{}
	idx := NewIndexer(rec, nil, smallChunks)

	n, err := idx.Ingest(context.Background(), "notes.txt", "  a b\n\nc\td e  ")
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("expected 3 chunks, got %d", n)
	}
	want := []string{"a b c", "c d e", "e"}
	for i, c := range rec.chunks[0] {
		if c != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, c, want[i])
		}
	}
}

func TestIngestFiles_partialFailure(t *testing.T) {
	idx, store, reg := testIndexer(t)
	ctx := context.Background()

	results := idx.IngestFiles(ctx, []File{
		{Name: "good.txt", Content: []byte("alpha beta gamma delta")},
		{Name: "bad.pdf", Content: []byte("definitely not a pdf")},
	})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	good := results["good.txt"]
	if !good.OK() || *good.ChunksAdded != 2 {
		t.Errorf("good.txt: %+v", good)
	}
	bad := results["bad.pdf"]
	if bad.OK() || bad.Error == "" {
		t.Errorf("bad.pdf should carry an error: %+v", bad)
	}
	if got := store.Size(); got != 2 {
		t.Errorf("store size = %d, want 2", got)
	}
	if n, _ := reg.CountDocuments(ctx); n != 1 {
		t.Errorf("registry should hold only the good file, got %d rows", n)
	}
}

func TestIngestFiles_storeErrorIsolated(t *testing.T) {
	rec := &recordingStore{fail: map[string]error{"b.txt": errors.New("persist failed")}}
	idx := NewIndexer(rec, nil, smallChunks)

	results := idx.IngestFiles(context.Background(), []File{
		{Name: "a.txt", Content: []byte("one two")},
		{Name: "b.txt", Content: []byte("three four")},
		{Name: "c.txt", Content: []byte("five six")},
	})
	if results["b.txt"].Error != "persist failed" {
		t.Errorf("b.txt: %+v", results["b.txt"])
	}
	if !results["a.txt"].OK() || !results["c.txt"].OK() {
		t.Errorf("siblings should succeed: %+v", results)
	}
}

func TestIngestFiles_addsInInputOrder(t *testing.T) {
	rec := &recordingStore{}
	idx := NewIndexer(rec, nil, smallChunks, WithWorkers(8))

	var files []File
	var names []string
	for i := 0; i < 20; i++ {
		name := string(rune('a'+i)) + ".txt"
		names = append(names, name)
		files = append(files, File{Name: name, Content: []byte(strings.Repeat("word ", i+1))})
	}
	idx.IngestFiles(context.Background(), files)

	if len(rec.sources) != len(names) {
		t.Fatalf("expected %d adds, got %d", len(names), len(rec.sources))
	}
	for i := range names {
		if rec.sources[i] != names[i] {
			t.Errorf("add %d was %s, want %s", i, rec.sources[i], names[i])
		}
	}
}

func TestIngestFiles_registryRow(t *testing.T) {
	idx, _, reg := testIndexer(t)
	ctx := context.Background()
	idx.IngestFiles(ctx, []File{{Name: "first.txt", Content: []byte("a b c d e")}})
	idx.IngestFiles(ctx, []File{{Name: "second.md", Content: []byte("f g")}})

	docs, err := reg.List(ctx, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(docs))
	}
	bySource := map[string]int{}
	for i, d := range docs {
		bySource[d.Source] = i
	}
	second := docs[bySource["second.md"]]
	if second.FirstVectorID != 3 || second.Chunks != 1 || second.Kind != "text" || second.SizeBytes != 3 {
		t.Errorf("unexpected row: %+v", second)
	}
}

func TestIngestFiles_excel(t *testing.T) {
	f := excelize.NewFile()
	_ = f.SetCellValue("Sheet1", "A1", "Quarterly revenue")
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	rec := &recordingStore{}
	idx := NewIndexer(rec, extract.NewExtractor(), smallChunks)
	results := idx.IngestFiles(context.Background(), []File{{Name: "report.xlsx", Content: buf.Bytes()}})
	if !results["report.xlsx"].OK() {
		t.Fatalf("report.xlsx: %+v", results["report.xlsx"])
	}
	if got := rec.chunks[0][0]; got != "Quarterly revenue" {
		t.Errorf("got %q", got)
	}
}

func TestIngestPath_directory(t *testing.T) {
	idx, store, _ := testIndexer(t)
	ctx := context.Background()
	dir := t.TempDir()
	for name, body := range map[string]string{
		"a.txt":          "one two three",
		"sub/b.md":       "four five",
		".hidden/c.txt":  "secret",
		"binary.bin":     "skip me",
		"sub/deep/d.rst": "six",
	} {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}

	results, err := idx.IngestPath(ctx, dir, true)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.txt", "sub/b.md", "sub/deep/d.rst"} {
		if !results[name].OK() {
			t.Errorf("%s not ingested: %+v", name, results[name])
		}
	}
	if len(results) != 3 {
		t.Errorf("expected 3 results, got %v", results)
	}
	size := store.Size()

	again, err := idx.IngestPath(ctx, dir, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(again) != 0 {
		t.Errorf("known files should be skipped, got %v", again)
	}
	if store.Size() != size {
		t.Errorf("store grew on re-ingest: %d -> %d", size, store.Size())
	}
}

func TestIngestPath_singleFileWithoutSkip(t *testing.T) {
	idx, store, _ := testIndexer(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "note.txt")
	if err := os.WriteFile(path, []byte("repeat me"), 0644); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		results, err := idx.IngestPath(ctx, path, false)
		if err != nil {
			t.Fatal(err)
		}
		if !results["note.txt"].OK() {
			t.Fatalf("note.txt: %+v", results)
		}
	}
	if store.Size() != 2 {
		t.Errorf("uploads are not deduplicated: size = %d, want 2", store.Size())
	}
}

func TestIngestPath_missing(t *testing.T) {
	idx, _, _ := testIndexer(t)
	if _, err := idx.IngestPath(context.Background(), filepath.Join(t.TempDir(), "nope"), false); err == nil {
		t.Error("expected error for missing path")
	}
}
