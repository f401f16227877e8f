package models

// SearchResult is one retrieved context item. Source and Text are nil when
// the metadata for ID is missing.
type SearchResult struct {
	ID     string  `json:"id"`
	Score  float32 `json:"score"`
	Source *string `json:"source"`
	Text   *string `json:"text"`
}

// SourceOrEmpty returns the source, or "" when unknown.
func (r SearchResult) SourceOrEmpty() string {
	if r.Source == nil {
		return ""
	}
	return *r.Source
}

// TextOrEmpty returns the text, or "" when unknown.
func (r SearchResult) TextOrEmpty() string {
	if r.Text == nil {
		return ""
	}
	return *r.Text
}

// UploadResult is the per-file outcome of an ingestion batch: exactly one of
// ChunksAdded or Error is set.
type UploadResult struct {
	ChunksAdded *uint32 `json:"chunks_added,omitempty"`
	Error       string  `json:"error,omitempty"`
}

// Added returns a successful UploadResult.
func Added(n uint32) UploadResult {
	return UploadResult{ChunksAdded: &n}
}

// Failed returns an UploadResult carrying err's message.
func Failed(err error) UploadResult {
	return UploadResult{Error: err.Error()}
}

// OK reports whether the file was ingested.
func (u UploadResult) OK() bool {
	return u.ChunksAdded != nil
}

// InfoResponse is the body of GET /info.
type InfoResponse struct {
	Vectors uint64 `json:"vectors"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Vectors        uint64 `json:"vectors"`
	Dimension      int    `json:"dimension"`
	Documents      int    `json:"documents"`
	Chunks         int    `json:"chunks"`
	IndexDiskBytes int64  `json:"index_disk_bytes"`
	DBDiskBytes    int64  `json:"db_disk_bytes"`
}
