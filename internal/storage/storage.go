// Package storage persists the document registry and provides file helpers
// for the snapshot directory.
package storage

import (
	"context"

	"github.com/hyperjump/kotae/internal/models"
)

// Registry records every successful ingestion.
type Registry interface {
	Record(ctx context.Context, doc *models.Document) error
	List(ctx context.Context, offset, limit int) ([]*models.Document, error)
	HasHash(ctx context.Context, contentHash string) (bool, error)

	CountDocuments(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}
