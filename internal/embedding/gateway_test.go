package embedding

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/hyperjump/kotae/internal/upstream"
)

// recordingEmbedder returns {3, 4} for every text and records batch sizes.
type recordingEmbedder struct {
	batches []int
	out     func(texts []string) [][]float32
	err     error
}

func (r *recordingEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	r.batches = append(r.batches, len(texts))
	if r.err != nil {
		return nil, r.err
	}
	if r.out != nil {
		return r.out(texts), nil
	}
	vecs := make([][]float32, len(texts))
	for i := range texts {
		vecs[i] = []float32{3, 4}
	}
	return vecs, nil
}

func (r *recordingEmbedder) Dimensions() int { return 2 }
func (r *recordingEmbedder) Close() error    { return nil }

func texts(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = string(rune('a'+i%26)) + string(rune('A'+i/26))
	}
	return out
}

func TestGateway_BatchesInOrder(t *testing.T) {
	rec := &recordingEmbedder{}
	g := NewGateway(rec, WithBatchSize(4))
	vecs, err := g.EmbedBatch(context.Background(), texts(10))
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 10 {
		t.Fatalf("got %d vectors", len(vecs))
	}
	want := []int{4, 4, 2}
	if len(rec.batches) != len(want) {
		t.Fatalf("batches = %v, want %v", rec.batches, want)
	}
	for i := range want {
		if rec.batches[i] != want[i] {
			t.Errorf("batches = %v, want %v", rec.batches, want)
		}
	}
}

func TestGateway_Normalizes(t *testing.T) {
	g := NewGateway(&recordingEmbedder{})
	v, err := g.Embed(context.Background(), "x")
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("normalized = %v, want [0.6 0.8]", v)
	}
}

func TestGateway_Cache(t *testing.T) {
	rec := &recordingEmbedder{}
	g := NewGateway(rec, WithCache(10))
	ctx := context.Background()
	if _, err := g.EmbedBatch(ctx, []string{"a", "b"}); err != nil {
		t.Fatal(err)
	}
	if _, err := g.EmbedBatch(ctx, []string{"b", "c", "a"}); err != nil {
		t.Fatal(err)
	}
	if len(rec.batches) != 2 || rec.batches[1] != 1 {
		t.Errorf("second call should only embed the miss: %v", rec.batches)
	}
	if _, err := g.EmbedBatch(ctx, []string{"a", "c"}); err != nil {
		t.Fatal(err)
	}
	if len(rec.batches) != 2 {
		t.Errorf("fully cached call reached the backend: %v", rec.batches)
	}
}

func TestGateway_Probe(t *testing.T) {
	dim, err := NewGateway(NewMockEmbedder(17)).Probe(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if dim != 17 {
		t.Errorf("Probe = %d, want 17", dim)
	}
}

func TestGateway_Errors(t *testing.T) {
	backendErr := &upstream.Error{Service: ServiceName, StatusCode: 500, Message: "down"}
	tests := []struct {
		name string
		rec  *recordingEmbedder
	}{
		{"backend failure", &recordingEmbedder{err: backendErr}},
		{"count mismatch", &recordingEmbedder{out: func([]string) [][]float32 { return [][]float32{{1}} }}},
		{"inconsistent lengths", &recordingEmbedder{out: func(ts []string) [][]float32 {
			out := make([][]float32, len(ts))
			for i := range ts {
				out[i] = make([]float32, i+1)
				out[i][0] = 1
			}
			return out
		}}},
		{"empty vectors", &recordingEmbedder{out: func(ts []string) [][]float32 { return make([][]float32, len(ts)) }}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGateway(tt.rec).EmbedBatch(context.Background(), []string{"a", "b", "c"})
			var uerr *upstream.Error
			if !errors.As(err, &uerr) {
				t.Fatalf("expected upstream.Error, got %v", err)
			}
		})
	}
}

func TestGateway_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := &recordingEmbedder{}
	if _, err := NewGateway(rec).EmbedBatch(ctx, []string{"a"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(rec.batches) != 0 {
		t.Error("backend called after cancellation")
	}
}

func TestGateway_EmptyInput(t *testing.T) {
	vecs, err := NewGateway(&recordingEmbedder{}).EmbedBatch(context.Background(), nil)
	if err != nil || len(vecs) != 0 {
		t.Errorf("empty input: %v, %v", vecs, err)
	}
}

func TestMockEmbedder_Deterministic(t *testing.T) {
	e := NewMockEmbedder(8)
	ctx := context.Background()
	a, _ := e.Embed(ctx, "same")
	b, _ := e.Embed(ctx, "same")
	c, _ := e.Embed(ctx, "other")
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("same text should embed identically")
		}
	}
	var norm, diff float64
	for i := range a {
		norm += float64(a[i]) * float64(a[i])
		diff += math.Abs(float64(a[i] - c[i]))
	}
	if math.Abs(norm-1) > 1e-5 {
		t.Errorf("norm = %v", norm)
	}
	if diff == 0 {
		t.Error("different texts should differ")
	}
	if NewMockEmbedder(0).Dimensions() != 384 {
		t.Error("default dimension should be 384")
	}
}
