package vector

import (
	"errors"
	"reflect"
	"sync"
	"testing"
)

func mustAdd(t *testing.T, idx *FlatIndex, batch [][]float32) []uint64 {
	t.Helper()
	ids, err := idx.Add(batch)
	if err != nil {
		t.Fatal(err)
	}
	return ids
}

func TestFlatIndex_AddAssignsContiguousIDs(t *testing.T) {
	idx, err := NewFlatIndex(2)
	if err != nil {
		t.Fatal(err)
	}
	if got := mustAdd(t, idx, [][]float32{{1, 0}, {0, 1}}); !reflect.DeepEqual(got, []uint64{0, 1}) {
		t.Errorf("first ids = %v", got)
	}
	if got := mustAdd(t, idx, [][]float32{{1, 0}, {0, 1}, {1, 0}}); !reflect.DeepEqual(got, []uint64{2, 3, 4}) {
		t.Errorf("second ids = %v", got)
	}
	if idx.Size() != 5 {
		t.Errorf("Size=%d, want 5", idx.Size())
	}
	if ids, err := idx.Add(nil); err != nil || ids != nil {
		t.Errorf("empty add = %v, %v", ids, err)
	}
}

func TestFlatIndex_AddIsAllOrNothing(t *testing.T) {
	idx, _ := NewFlatIndex(3)
	mustAdd(t, idx, [][]float32{{1, 0, 0}})
	_, err := idx.Add([][]float32{{0, 1, 0}, {0, 0, 1}, {1, 1}})
	var dimErr *DimensionMismatchError
	if !errors.As(err, &dimErr) {
		t.Fatalf("expected DimensionMismatchError, got %v", err)
	}
	if dimErr.Want != 3 || dimErr.Got != 2 || dimErr.Position != 2 {
		t.Errorf("unexpected error detail: %+v", dimErr)
	}
	if idx.Size() != 1 {
		t.Errorf("partial add: size=%d", idx.Size())
	}
	if got := mustAdd(t, idx, [][]float32{{0, 0, 1}}); got[0] != 1 {
		t.Errorf("next id after failed add = %d, want 1", got[0])
	}
}

func TestFlatIndex_AddFixesUnsetDimension(t *testing.T) {
	idx := New()
	if idx.Dimension() != 0 {
		t.Fatalf("new index dimension = %d", idx.Dimension())
	}
	mustAdd(t, idx, [][]float32{{1, 0, 0, 0}})
	if idx.Dimension() != 4 {
		t.Errorf("dimension = %d, want 4", idx.Dimension())
	}
	if _, err := idx.Add([][]float32{{1, 0}}); err == nil {
		t.Error("expected mismatch after dimension was fixed")
	}
}

func TestFlatIndex_Create(t *testing.T) {
	idx := New()
	if err := idx.Create(0); err == nil {
		t.Error("zero dimension should fail")
	}
	if err := idx.Create(8); err != nil {
		t.Fatal(err)
	}
	if err := idx.Create(8); err != nil {
		t.Errorf("same dimension again: %v", err)
	}
	var dimErr *DimensionMismatchError
	if err := idx.Create(16); !errors.As(err, &dimErr) {
		t.Errorf("changing dimension: %v", err)
	}
}

func TestFlatIndex_SearchEmpty(t *testing.T) {
	hits, err := New().Search([]float32{1, 0}, 5)
	if err != nil || len(hits) != 0 {
		t.Errorf("unset index: %v, %v", hits, err)
	}
	idx, _ := NewFlatIndex(2)
	hits, err = idx.Search([]float32{1, 0, 0}, 5)
	if err != nil || len(hits) != 0 {
		t.Errorf("empty index must not fail even on a bad query: %v, %v", hits, err)
	}
}

func TestFlatIndex_SearchOrdering(t *testing.T) {
	idx, _ := NewFlatIndex(3)
	mustAdd(t, idx, [][]float32{
		{0, 1, 0},
		{1, 0, 0},
		{0.6, 0.8, 0},
		{1, 0, 0},
		{0.8, 0.6, 0},
	})
	hits, err := idx.Search([]float32{1, 0, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	gotIDs := make([]uint64, len(hits))
	for i, h := range hits {
		gotIDs[i] = h.ID
	}
	if want := []uint64{1, 3, 4, 2, 0}; !reflect.DeepEqual(gotIDs, want) {
		t.Errorf("order = %v, want %v", gotIDs, want)
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Errorf("scores not descending at %d: %v", i, hits)
		}
	}
	if hits[0].Score != 1 {
		t.Errorf("top score = %v, want 1", hits[0].Score)
	}
}

func TestFlatIndex_SearchTopKBound(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	for i := 0; i < 20; i++ {
		mustAdd(t, idx, [][]float32{{1, 0}})
	}
	hits, _ := idx.Search([]float32{1, 0}, 3)
	if len(hits) != 3 {
		t.Fatalf("len=%d, want 3", len(hits))
	}
	// all tied: lowest ids win
	if hits[0].ID != 0 || hits[1].ID != 1 || hits[2].ID != 2 {
		t.Errorf("tie break = %v", hits)
	}
	hits, _ = idx.Search([]float32{1, 0}, 100)
	if len(hits) != 20 {
		t.Errorf("k > size: len=%d", len(hits))
	}
	if hits, _ := idx.Search([]float32{1, 0}, 0); len(hits) != 0 {
		t.Errorf("k=0: %v", hits)
	}
}

func TestFlatIndex_SearchQueryMismatch(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	mustAdd(t, idx, [][]float32{{1, 0}})
	var dimErr *DimensionMismatchError
	if _, err := idx.Search([]float32{1, 0, 0}, 1); !errors.As(err, &dimErr) {
		t.Errorf("expected DimensionMismatchError, got %v", err)
	}
}

func TestFlatIndex_Vector(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	mustAdd(t, idx, [][]float32{{0.6, 0.8}})
	v, ok := idx.Vector(0)
	if !ok || v[0] != 0.6 || v[1] != 0.8 {
		t.Errorf("Vector(0) = %v, %v", v, ok)
	}
	v[0] = 9
	if again, _ := idx.Vector(0); again[0] != 0.6 {
		t.Error("Vector must return a copy")
	}
	if _, ok := idx.Vector(1); ok {
		t.Error("Vector(1) should be absent")
	}
}

func TestFlatIndex_ConcurrentAddsNeverShareIDs(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	const writers, perWriter = 8, 50
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[uint64]bool)
	)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				ids, err := idx.Add([][]float32{{1, 0}, {0, 1}})
				if err != nil {
					t.Error(err)
					return
				}
				mu.Lock()
				for _, id := range ids {
					if seen[id] {
						t.Errorf("id %d assigned twice", id)
					}
					seen[id] = true
				}
				mu.Unlock()
				_, _ = idx.Search([]float32{1, 0}, 3)
			}
		}()
	}
	wg.Wait()
	if idx.Size() != writers*perWriter*2 {
		t.Errorf("size = %d", idx.Size())
	}
}

func BenchmarkFlatIndex_Search(b *testing.B) {
	idx, _ := NewFlatIndex(384)
	batch := make([][]float32, 1000)
	for i := range batch {
		batch[i] = make([]float32, 384)
		batch[i][i%384] = 1
	}
	_, _ = idx.Add(batch)
	query := make([]float32, 384)
	query[0] = 1
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(query, 10)
	}
}
