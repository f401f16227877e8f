// Package knowledge owns the vector index and its metadata as one durable
// unit: restore on start, write-through snapshots after every add.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/metadata"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/pkg/utils"
)

// Snapshot file names inside the store directory.
const (
	IndexFile    = "index.kvec"
	MetadataFile = "metadata.json"
)

// Embedder is the part of the embedding gateway the store needs.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Probe(ctx context.Context) (int, error)
}

// PersistenceError reports a snapshot that could not be written. The data it
// describes is still in memory.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Store is the process-wide index and metadata pair. Adds and their snapshot
// write are serialized; searches run concurrently with each other but never
// with an add.
type Store struct {
	dir      string
	embedder Embedder
	logger   *zap.Logger

	initMu      sync.Mutex
	initialized bool

	mu    sync.RWMutex
	index *vector.FlatIndex
	meta  *metadata.Store
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = utils.NopIfNil(logger)
	}
}

// NewStore creates a store that keeps its snapshots in dir. Call Init before use.
func NewStore(dir string, embedder Embedder, opts ...Option) *Store {
	s := &Store{
		dir:      dir,
		embedder: embedder,
		logger:   zap.NewNop(),
		index:    vector.New(),
		meta:     metadata.NewStore(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init restores the last snapshot pair, or starts empty when either file is
// missing or unreadable. Calling Init again is a no-op.
func (s *Store) Init(ctx context.Context) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()
	if s.initialized {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.restore() {
		if err := s.coldStart(ctx); err != nil {
			return err
		}
	}
	s.initialized = true
	return nil
}

// restore loads both snapshots into fresh instances. Callers hold s.mu.
func (s *Store) restore() bool {
	indexPath, metaPath := s.paths()
	if !exists(indexPath) || !exists(metaPath) {
		s.logger.Info("no snapshot found, starting empty", zap.String("dir", s.dir))
		return false
	}

	index := vector.New()
	if err := index.Load(indexPath); err != nil {
		s.logger.Warn("index snapshot unreadable, starting empty", zap.String("path", indexPath), zap.Error(err))
		return false
	}
	meta := metadata.NewStore()
	if err := meta.Load(metaPath); err != nil {
		s.logger.Warn("metadata snapshot unreadable, starting empty", zap.String("path", metaPath), zap.Error(err))
		return false
	}
	if uint64(meta.Len()) != index.Size() {
		s.logger.Warn("index and metadata sizes differ",
			zap.Uint64("vectors", index.Size()), zap.Int("entries", meta.Len()))
	}

	s.index, s.meta = index, meta
	s.logger.Info("restored snapshot",
		zap.Uint64("vectors", index.Size()), zap.Int("dimension", index.Dimension()))
	return true
}

// coldStart creates empty instances, probing the embedder for the dimension.
// Callers hold s.mu.
func (s *Store) coldStart(ctx context.Context) error {
	s.index, s.meta = vector.New(), metadata.NewStore()
	dim, err := s.embedder.Probe(ctx)
	if err != nil {
		s.logger.Warn("dimension probe failed, dimension will come from the first add", zap.Error(err))
	} else if err := s.index.Create(dim); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return s.persist()
}

// Add embeds chunks of source and appends them under fresh ids. The snapshot
// is rewritten before Add returns; if that fails the error is a
// *PersistenceError and the ids are still returned.
func (s *Store) Add(ctx context.Context, source string, chunks []string) ([]uint64, error) {
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, nil
	}
	vecs, err := s.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embed %s: %w", source, err)
	}
	if len(vecs) != len(chunks) {
		return nil, fmt.Errorf("embed %s: got %d vectors for %d chunks", source, len(vecs), len(chunks))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ids, err := s.index.Add(vecs)
	if err != nil {
		return nil, fmt.Errorf("add %s: %w", source, err)
	}
	entries := make([]models.Chunk, len(chunks))
	for i, text := range chunks {
		entries[i] = models.Chunk{Text: text, Source: source, Ordinal: uint32(i)}
	}
	if err := s.meta.Append(ids, entries); err != nil {
		return nil, fmt.Errorf("add %s: %w", source, err)
	}
	if err := s.persist(); err != nil {
		s.logger.Error("snapshot write failed after add", zap.String("source", source), zap.Error(err))
		return ids, err
	}
	s.logger.Debug("added chunks", zap.String("source", source), zap.Int("chunks", len(ids)), zap.Uint64("first_id", ids[0]))
	return ids, nil
}

// Search ranks stored vectors against query and attaches their metadata.
// Results whose metadata is missing carry nil Source and Text.
func (s *Store) Search(query []float32, k int) ([]models.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hits, err := s.index.Search(query, k)
	if err != nil {
		return nil, err
	}
	results := make([]models.SearchResult, len(hits))
	for i, h := range hits {
		r := models.SearchResult{ID: strconv.FormatUint(h.ID, 10), Score: h.Score}
		if e, ok := s.meta.Lookup(h.ID); ok {
			source, text := e.Source, e.Text
			r.Source, r.Text = &source, &text
		}
		results[i] = r
	}
	return results, nil
}

// Size returns the number of stored vectors.
func (s *Store) Size() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Size()
}

// Dimension returns the vector length, or 0 when not yet known.
func (s *Store) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Dimension()
}

// Dir returns the snapshot directory.
func (s *Store) Dir() string {
	return s.dir
}

// persist writes the index then the metadata. Callers hold s.mu.
func (s *Store) persist() error {
	indexPath, metaPath := s.paths()
	if err := s.index.Save(indexPath); err != nil {
		return &PersistenceError{Path: indexPath, Err: err}
	}
	if err := s.meta.Save(metaPath); err != nil {
		return &PersistenceError{Path: metaPath, Err: err}
	}
	return nil
}

func (s *Store) paths() (string, string) {
	return filepath.Join(s.dir, IndexFile), filepath.Join(s.dir, MetadataFile)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}
