package config

import (
	"strconv"
	"strings"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides cfg with the environment variables the server documents.
// Numeric variables that do not parse are reported as ConfigError.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return &ConfigError{Field: key, Reason: "not an integer: " + v}
		}
		*dst = n
		return nil
	}

	str("EMBEDDING_MODEL", &cfg.Embedding.Model)
	str("EMBEDDING_BACKEND", &cfg.Embedding.Backend)
	str("EMBEDDING_URL", &cfg.Embedding.BaseURL)
	str("EMBEDDING_API_KEY", &cfg.Embedding.APIKey)
	str("INDEX_DIR", &cfg.Storage.IndexDir)
	str("DATABASE_PATH", &cfg.Storage.DatabasePath)
	str("RAG_LLM_KIND", &cfg.LLM.Kind)
	str("RAG_LLM_URL", &cfg.LLM.URL)
	str("RAG_LLM_API_KEY", &cfg.LLM.APIKey)
	str("RAG_LLM_MODEL", &cfg.LLM.Model)

	if err := num("EMBEDDING_BATCH", &cfg.Embedding.BatchSize); err != nil {
		return err
	}
	if err := num("CHUNK_SIZE", &cfg.Chunking.Size); err != nil {
		return err
	}
	if v, ok := lookup("CHUNK_OVERLAP"); ok && strings.TrimSpace(v) != "" {
		var o int
		if err := num("CHUNK_OVERLAP", &o); err != nil {
			return err
		}
		cfg.Chunking.Overlap = &o
	}
	if err := num("LLM_TIMEOUT", &cfg.LLM.TimeoutSeconds); err != nil {
		return err
	}

	if v, ok := lookup("CORS_ORIGINS"); ok && v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.CORSOrigins = origins
	}
	return nil
}
