package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/fileid"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/pkg/utils"
)

// DefaultWorkers bounds concurrent extraction when no worker count is configured.
const DefaultWorkers = 4

// Store is the write side of the knowledge store.
type Store interface {
	Add(ctx context.Context, source string, chunks []string) ([]uint64, error)
}

// File is one document handed to IngestFiles.
type File struct {
	Name    string
	Content []byte
}

// Indexer extracts, cleans and chunks documents and adds them to the store.
type Indexer struct {
	store     Store
	extractor *extract.Extractor
	chunker   *Chunker
	registry  storage.Registry
	workers   int
	logger    *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = utils.NopIfNil(l) }
}

// WithRegistry records every successful ingestion in r.
func WithRegistry(r storage.Registry) IndexerOption {
	return func(idx *Indexer) { idx.registry = r }
}

// WithWorkers bounds how many files are extracted at once.
func WithWorkers(n int) IndexerOption {
	return func(idx *Indexer) {
		if n > 0 {
			idx.workers = n
		}
	}
}

// NewIndexer creates an indexer. extractor may be nil, in which case every
// file is read as plain text.
func NewIndexer(store Store, extractor *extract.Extractor, chunking config.ChunkingConfig, opts ...IndexerOption) *Indexer {
	if extractor == nil {
		extractor = extract.NewExtractor()
	}
	size := chunking.Size
	if size <= 0 {
		size = config.DefaultChunkSize
	}
	idx := &Indexer{
		store:     store,
		extractor: extractor,
		chunker:   NewChunker(size, chunking.OverlapOrDefault()),
		workers:   DefaultWorkers,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Ingest cleans and chunks text and adds it under source. It returns the
// number of chunks added.
func (idx *Indexer) Ingest(ctx context.Context, source, text string) (int, error) {
	ids, err := idx.store.Add(ctx, source, idx.chunker.Split(Clean(text)))
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// IngestFiles extracts files concurrently, then adds them to the store in
// input order. Each file gets its own result; a failure never stops the
// others. Results are keyed by file name.
func (idx *Indexer) IngestFiles(ctx context.Context, files []File) map[string]models.UploadResult {
	texts := make([]string, len(files))
	errs := make([]error, len(files))

	var g errgroup.Group
	g.SetLimit(idx.workers)
	for i, f := range files {
		g.Go(func() error {
			texts[i], errs[i] = idx.extractor.ExtractBytes(ctx, f.Name, f.Content)
			return nil
		})
	}
	_ = g.Wait()

	results := make(map[string]models.UploadResult, len(files))
	for i, f := range files {
		if errs[i] != nil {
			idx.logger.Warn("extraction failed", zap.String("file", f.Name), zap.Error(errs[i]))
			results[f.Name] = models.Failed(errs[i])
			continue
		}
		n, err := idx.ingestDocument(ctx, f, texts[i])
		if err != nil {
			idx.logger.Warn("ingestion failed", zap.String("file", f.Name), zap.Error(err))
			results[f.Name] = models.Failed(err)
			continue
		}
		results[f.Name] = models.Added(uint32(n))
	}
	return results
}

func (idx *Indexer) ingestDocument(ctx context.Context, f File, text string) (int, error) {
	ids, err := idx.store.Add(ctx, f.Name, idx.chunker.Split(Clean(text)))
	if err != nil {
		return 0, err
	}
	idx.logger.Debug("file ingested", zap.String("file", f.Name), zap.Int("chunks", len(ids)))
	if idx.registry != nil && len(ids) > 0 {
		doc := &models.Document{
			Source:        f.Name,
			ContentHash:   fileid.ContentHash(f.Content),
			Kind:          extract.KindOf(f.Name, f.Content).String(),
			SizeBytes:     int64(len(f.Content)),
			Chunks:        len(ids),
			FirstVectorID: ids[0],
		}
		if err := idx.registry.Record(ctx, doc); err != nil {
			idx.logger.Warn("registry write failed", zap.String("file", f.Name), zap.Error(err))
		}
	}
	return len(ids), nil
}

// IngestPath ingests a single file or every supported file below a
// directory. Directory entries are named by their path relative to it. With
// skipKnown, files whose content is already in the registry are left out of
// the result.
func (idx *Indexer) IngestPath(ctx context.Context, path string, skipKnown bool) (map[string]models.UploadResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	var files []File
	if info.IsDir() {
		files, err = readDirectory(ctx, path)
		if err != nil {
			return nil, err
		}
	} else {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		files = []File{{Name: filepath.Base(path), Content: content}}
	}

	if skipKnown {
		files = idx.unknownFiles(ctx, files)
	}
	return idx.IngestFiles(ctx, files), nil
}

// Known reports whether content was already ingested.
func (idx *Indexer) Known(ctx context.Context, content []byte) bool {
	if idx.registry == nil {
		return false
	}
	ok, err := idx.registry.HasHash(ctx, fileid.ContentHash(content))
	if err != nil {
		idx.logger.Warn("registry lookup failed", zap.Error(err))
		return false
	}
	return ok
}

func (idx *Indexer) unknownFiles(ctx context.Context, files []File) []File {
	out := files[:0]
	for _, f := range files {
		if idx.Known(ctx, f.Content) {
			idx.logger.Debug("skipping known file", zap.String("file", f.Name))
			continue
		}
		out = append(out, f)
	}
	return out
}

func readDirectory(ctx context.Context, dir string) ([]File, error) {
	var files []File
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !extensionAllowed(filepath.Ext(path), extract.SupportedExtensions()) {
			return nil
		}
		// Follow symlinks but only to regular files.
		finfo, err := os.Stat(path)
		if err != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = filepath.Base(path)
		}
		files = append(files, File{Name: filepath.ToSlash(rel), Content: content})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	return files, nil
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	if extNorm == "" {
		return false
	}
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
