// Package models defines the data structures shared by ingestion, retrieval and the HTTP surface.
package models

import "time"

// Chunk is a token window of a source document, ready for embedding.
// Ordinal is its 0-based position within the source at ingestion time.
type Chunk struct {
	Text    string `json:"text"`
	Source  string `json:"source"`
	Ordinal uint32 `json:"ordinal"`
}

// MetadataEntry is the provenance stored for each vector id.
type MetadataEntry struct {
	Source string `json:"source"`
	Text   string `json:"text"`
	Chunk  uint32 `json:"chunk"`
}

// Document is a registry row describing one successful ingestion.
type Document struct {
	ID            string    `json:"id" db:"id"`
	Source        string    `json:"source" db:"source"`
	ContentHash   string    `json:"content_hash" db:"content_hash"`
	Kind          string    `json:"kind" db:"kind"`
	SizeBytes     int64     `json:"size_bytes" db:"size_bytes"`
	Chunks        int       `json:"chunks" db:"chunks"`
	FirstVectorID uint64    `json:"first_vector_id" db:"first_vector_id"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
