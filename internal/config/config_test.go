package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func env(vars map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
llm:
  kind: ollama
storage:
  index_dir: "./indexes"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	want := filepath.Join(filepath.Dir(path), "indexes")
	if cfg.Storage.IndexDir != want {
		t.Errorf("index_dir = %s, want %s", cfg.Storage.IndexDir, want)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_missingFileUsesDefaults(t *testing.T) {
	t.Setenv("RAG_LLM_KIND", "ollama")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Chunking.Size != DefaultChunkSize {
		t.Errorf("chunk size = %d, want %d", cfg.Chunking.Size, DefaultChunkSize)
	}
	if !filepath.IsAbs(cfg.Storage.IndexDir) {
		t.Errorf("index dir should be absolute, got %s", cfg.Storage.IndexDir)
	}
}

func TestLoad_expandsEnvInFile(t *testing.T) {
	t.Setenv("KOTAE_TEST_LLM_URL", "http://llm.internal/generate")
	path := writeConfig(t, `
llm:
  kind: custom
  url: ${KOTAE_TEST_LLM_URL}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.URL != "http://llm.internal/generate" {
		t.Errorf("llm url = %q", cfg.LLM.URL)
	}
}

func TestLoad_invalidKindIsConfigError(t *testing.T) {
	path := writeConfig(t, "llm:\n  kind: gpt\n")
	_, err := Load(path)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if cfgErr.Field != "llm.kind" {
		t.Errorf("field = %s", cfgErr.Field)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Chunking.Size != 800 || cfg.Chunking.OverlapOrDefault() != 200 {
		t.Errorf("chunking defaults: size=%d overlap=%d", cfg.Chunking.Size, cfg.Chunking.OverlapOrDefault())
	}
	if cfg.Embedding.BatchSize != 64 {
		t.Errorf("embedding batch: got %d", cfg.Embedding.BatchSize)
	}
	if cfg.LLM.Kind != LLMCustom || cfg.LLM.TimeoutSeconds != 120 || cfg.LLM.MaxTokens != 512 {
		t.Errorf("llm defaults: %+v", cfg.LLM)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "*" {
		t.Errorf("cors origins: got %v", cfg.Server.CORSOrigins)
	}
	if cfg.Embedding.Model != "all-MiniLM-L6-v2" {
		t.Errorf("embedding model: got %s", cfg.Embedding.Model)
	}
	if cfg.Embedding.Backend != EmbeddingONNX {
		t.Errorf("embedding backend: got %s", cfg.Embedding.Backend)
	}
	if cfg.Embedding.ModelPath != "~/.kotae/models/all-MiniLM-L6-v2.onnx" {
		t.Errorf("embedding model path: got %s", cfg.Embedding.ModelPath)
	}
}

func TestApplyDefaults_modelPathFollowsModel(t *testing.T) {
	cfg := &Config{Embedding: EmbeddingConfig{Model: "bge-small-en"}}
	ApplyDefaults(cfg)
	if cfg.Embedding.ModelPath != "~/.kotae/models/bge-small-en.onnx" {
		t.Errorf("embedding model path: got %s", cfg.Embedding.ModelPath)
	}
}

func TestApplyDefaults_keepsExplicitZeroOverlap(t *testing.T) {
	zero := 0
	cfg := &Config{Chunking: ChunkingConfig{Overlap: &zero}}
	ApplyDefaults(cfg)
	if got := cfg.Chunking.OverlapOrDefault(); got != 0 {
		t.Errorf("overlap = %d, want 0", got)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := &Config{}
	err := ApplyEnv(cfg, env(map[string]string{
		"CHUNK_SIZE":      "100",
		"CHUNK_OVERLAP":   "0",
		"EMBEDDING_BATCH": "16",
		"INDEX_DIR":       "/var/lib/kotae",
		"RAG_LLM_KIND":    "hf",
		"RAG_LLM_URL":     "https://hf.example/models/x",
		"RAG_LLM_API_KEY": "secret",
		"LLM_TIMEOUT":     "30",
		"CORS_ORIGINS":    "https://a.example, https://b.example",
	}))
	if err != nil {
		t.Fatal(err)
	}
	ApplyDefaults(cfg)
	if cfg.Chunking.Size != 100 || cfg.Chunking.OverlapOrDefault() != 0 {
		t.Errorf("chunking: %d/%d", cfg.Chunking.Size, cfg.Chunking.OverlapOrDefault())
	}
	if cfg.Embedding.BatchSize != 16 {
		t.Errorf("batch: %d", cfg.Embedding.BatchSize)
	}
	if cfg.Storage.IndexDir != "/var/lib/kotae" {
		t.Errorf("index dir: %s", cfg.Storage.IndexDir)
	}
	if cfg.LLM.Kind != "hf" || cfg.LLM.URL == "" || cfg.LLM.APIKey != "secret" || cfg.LLM.TimeoutSeconds != 30 {
		t.Errorf("llm: %+v", cfg.LLM)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example" {
		t.Errorf("cors: %v", cfg.Server.CORSOrigins)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestApplyEnv_badNumber(t *testing.T) {
	err := ApplyEnv(&Config{}, env(map[string]string{"CHUNK_SIZE": "large"}))
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "CHUNK_SIZE" {
		t.Fatalf("expected ConfigError for CHUNK_SIZE, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	overlap := func(n int) *int { return &n }
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"ollama needs no url", func(c *Config) { c.LLM.Kind = LLMOllama }, ""},
		{"custom without url", func(c *Config) { c.LLM.Kind = LLMCustom }, "llm.url"},
		{"hf without url", func(c *Config) { c.LLM.Kind = LLMHF; c.LLM.URL = " " }, "llm.url"},
		{"unknown kind", func(c *Config) { c.LLM.Kind = "bard" }, "llm.kind"},
		{"unknown embedding backend", func(c *Config) { c.LLM.Kind = LLMOllama; c.Embedding.Backend = "word2vec" }, "embedding.backend"},
		{"overlap equals size", func(c *Config) {
			c.LLM.Kind = LLMOllama
			c.Chunking.Size = 10
			c.Chunking.Overlap = overlap(10)
		}, "chunking.overlap"},
		{"overlap larger than size", func(c *Config) {
			c.LLM.Kind = LLMOllama
			c.Chunking.Size = 10
			c.Chunking.Overlap = overlap(50)
		}, "chunking.overlap"},
		{"negative overlap", func(c *Config) {
			c.LLM.Kind = LLMOllama
			c.Chunking.Overlap = overlap(-1)
		}, "chunking.overlap"},
		{"negative batch", func(c *Config) { c.LLM.Kind = LLMOllama; c.Embedding.BatchSize = -4 }, "embedding.batch_size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			ApplyDefaults(cfg)
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("field = %s, want %s", cfgErr.Field, tt.wantField)
			}
		})
	}
}
