package config

// Defaults for the retrieval pipeline.
const (
	DefaultChunkSize      = 800
	DefaultChunkOverlap   = 200
	DefaultEmbeddingBatch = 64
	DefaultLLMTimeout     = 120
	DefaultLLMMaxTokens   = 512
	DefaultServerTimeout  = 300
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.CORSOrigins == nil {
		cfg.Server.CORSOrigins = []string{"*"}
	}
	if cfg.Server.TimeoutSeconds == 0 {
		// Queries wait on the LLM; leave headroom over its own timeout.
		cfg.Server.TimeoutSeconds = DefaultServerTimeout
	}
	if cfg.Storage.IndexDir == "" {
		cfg.Storage.IndexDir = "~/.kotae/indexes"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "~/.kotae/documents.db"
	}
	if cfg.Embedding.Backend == "" {
		cfg.Embedding.Backend = EmbeddingONNX
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "all-MiniLM-L6-v2"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "~/.kotae/models/" + cfg.Embedding.Model + ".onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = DefaultEmbeddingBatch
	}
	if cfg.Embedding.TimeoutSeconds == 0 {
		cfg.Embedding.TimeoutSeconds = 60
	}
	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = DefaultChunkSize
	}
	if cfg.Chunking.Overlap == nil {
		o := DefaultChunkOverlap
		cfg.Chunking.Overlap = &o
	}
	if cfg.Indexing.Workers == 0 {
		cfg.Indexing.Workers = 4
	}
	if cfg.LLM.Kind == "" {
		cfg.LLM.Kind = LLMCustom
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = DefaultLLMMaxTokens
	}
	if cfg.LLM.TimeoutSeconds == 0 {
		cfg.LLM.TimeoutSeconds = DefaultLLMTimeout
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{
			".txt", ".md", ".rst", ".csv", ".pdf", ".docx", ".xlsx", ".pptx",
			".odt", ".rtf", ".odp", ".ods", ".db", ".sqlite",
		}
	}
	if cfg.Watch.DebounceMS == 0 {
		cfg.Watch.DebounceMS = 500
	}
}
