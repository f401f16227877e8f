// Package main is the kotae CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/knowledge"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/search"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/watcher"
	"github.com/hyperjump/kotae/pkg/utils"
)

var version = "dev"

// loadConfig loads config from path. When path is the default, config.yaml in
// the current directory wins if it exists, so running from a project
// directory picks up the project's config. Returns the path actually used.
func loadConfig(path string) (*config.Config, string, error) {
	if path == config.DefaultPath() {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// A missing .env is fine; the environment and config file still apply.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "query":
		runQuery()
	case "info":
		runInfo()
	case "documents":
		runDocuments()
	case "version", "--version", "-v":
		fmt.Printf("kotae version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup parses the common flags, loads config and builds a logger.
func setup(fs *flag.FlagSet, args []string) (*config.Config, *zap.Logger, string) {
	configPath := fs.String("config", config.DefaultPath(), "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(args)

	cfg, resolved, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *debug {
		cfg.Debug = true
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, logger, resolved
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	cfg, logger, resolved := setup(fs, os.Args[2:])
	defer func() { _ = logger.Sync() }()
	logger.Info("config loaded", zap.String("config_path", resolved), zap.Bool("debug", cfg.Debug))

	components, err := initializeComponents(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	var inbox *watcher.Watcher
	if len(cfg.Watch.Directories) > 0 {
		inbox = newInbox(watchCtx, cfg, components.Indexer, logger)
		if err := inbox.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		logger.Info("watching inbox", zap.Strings("directories", inbox.Directories()))
	}

	srv := server.NewServer(
		components.Engine,
		components.Indexer,
		components.Store,
		components.Registry,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	if inbox != nil {
		inbox.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// newInbox returns a watcher that ingests new files under the configured
// directories, skipping content that is already indexed.
func newInbox(ctx context.Context, cfg *config.Config, idx *indexer.Indexer, logger *zap.Logger) *watcher.Watcher {
	return watcher.NewWatcher(
		cfg.Watch.Directories,
		cfg.Watch.Extensions,
		func(path string) {
			results, err := idx.IngestPath(ctx, path, true)
			if err != nil {
				logger.Warn("inbox ingest failed", zap.String("path", path), zap.Error(err))
				return
			}
			for name, r := range results {
				if r.OK() {
					logger.Info("inbox file ingested", zap.String("source", name), zap.Uint32("chunks", *r.ChunksAdded))
				} else {
					logger.Warn("inbox file rejected", zap.String("source", name), zap.String("error", r.Error))
				}
			}
		},
		watcher.WithLogger(logger),
		watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMS)*time.Millisecond),
	)
}

func runIngest() {
	os.Exit(ingestCommand(os.Args[2:]))
}

// ingestCommand runs the ingest subcommand and returns the process exit code.
func ingestCommand(args []string) int {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	outputFormat := fs.String("output", "text", "output format: text or json")
	skipKnown := fs.Bool("skip-known", false, "skip files whose content is already indexed")
	cfg, logger, _ := setup(fs, args)
	defer func() { _ = logger.Sync() }()

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: kotae ingest [flags] <path>...")
		return 1
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	results, err := ingestPaths(ctx, components.Indexer, fs.Args(), *skipKnown)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := cli.WriteUploadResults(os.Stdout, results, format); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return ingestExitCode(results)
}

// ingestExitCode is 2 when any file failed and 0 otherwise.
func ingestExitCode(results map[string]models.UploadResult) int {
	for _, r := range results {
		if !r.OK() {
			return 2
		}
	}
	return 0
}

// ingestPaths ingests every path and merges the per-file results. When more
// than one path is given, result names are prefixed with the path they came
// from so that equal relative names stay distinct.
func ingestPaths(ctx context.Context, idx *indexer.Indexer, paths []string, skipKnown bool) (map[string]models.UploadResult, error) {
	merged := make(map[string]models.UploadResult)
	for _, p := range paths {
		results, err := idx.IngestPath(ctx, p, skipKnown)
		if err != nil {
			return nil, err
		}
		for name, r := range results {
			key := name
			if len(paths) > 1 {
				key = joinResultName(p, name)
			}
			merged[key] = r
		}
	}
	return merged, nil
}

func joinResultName(root, name string) string {
	if filepath.Base(root) == name {
		return filepath.ToSlash(root)
	}
	return filepath.ToSlash(filepath.Join(root, name))
}

// buildQuestion joins positional args so that quoting the question is optional.
func buildQuestion(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// reorderArgs moves flags that follow the question to the front, because the
// flag package stops at the first positional argument.
func reorderArgs(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runQuery() {
	os.Exit(queryCommand(os.Args[2:]))
}

func queryCommand(args []string) int {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	topK := fs.Int("k", models.DefaultTopK, "number of context chunks")
	outputFormat := fs.String("output", "text", "output format: text or json")
	serverURL := fs.String("server", "", "ask a running server instead of the local index")
	cfg, logger, _ := setup(fs, reorderArgs(args))
	defer func() { _ = logger.Sync() }()

	question := buildQuestion(fs.Args())
	if question == "" {
		fmt.Fprintln(os.Stderr, "Usage: kotae query [flags] <question>")
		return 1
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx := context.Background()
	req := models.QueryRequest{Question: question, TopK: *topK}
	var resp models.QueryResponse
	if *serverURL != "" {
		timeout := time.Duration(cfg.Server.TimeoutSeconds) * time.Second
		resp, err = cli.NewClient(*serverURL, timeout).Query(ctx, req)
	} else {
		resp, err = answerLocally(ctx, cfg, logger, req)
	}
	if errors.Is(err, cli.ErrIndexEmpty) {
		fmt.Fprintln(os.Stderr, "Index is empty. Ingest documents first.")
		return 1
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
		return 1
	}
	if err := cli.WriteAnswer(os.Stdout, resp, format); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func answerLocally(ctx context.Context, cfg *config.Config, logger *zap.Logger, req models.QueryRequest) (models.QueryResponse, error) {
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return models.QueryResponse{}, err
	}
	defer components.Close()

	resp, ok, err := components.Engine.Answer(ctx, req)
	if err != nil {
		return models.QueryResponse{}, err
	}
	if !ok {
		return models.QueryResponse{}, cli.ErrIndexEmpty
	}
	return resp, nil
}

func runInfo() {
	os.Exit(infoCommand(os.Args[2:]))
}

func infoCommand(args []string) int {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	outputFormat := fs.String("output", "text", "output format: text or json")
	cfg, logger, _ := setup(fs, args)
	defer func() { _ = logger.Sync() }()

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	status, err := collectStatus(ctx, cfg, components)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if format == cli.OutputJSON {
		_ = cli.WriteStatus(os.Stdout, status, format)
		return 0
	}
	fmt.Printf("Index directory:  %s\n", cfg.Storage.IndexDir)
	fmt.Printf("Database:         %s\n", cfg.Storage.DatabasePath)
	_ = cli.WriteStatus(os.Stdout, status, format)
	return 0
}

func collectStatus(ctx context.Context, cfg *config.Config, c *Components) (models.StatusResponse, error) {
	status := models.StatusResponse{
		Vectors:   c.Store.Size(),
		Dimension: c.Store.Dimension(),
	}
	docs, err := c.Registry.CountDocuments(ctx)
	if err != nil {
		return status, err
	}
	chunks, err := c.Registry.CountChunks(ctx)
	if err != nil {
		return status, err
	}
	status.Documents = int(docs)
	status.Chunks = int(chunks)
	if n, err := storage.DiskUsageBytes(cfg.Storage.IndexDir); err == nil {
		status.IndexDiskBytes = n
	}
	if n, err := storage.DiskUsageBytes(storage.DatabaseFiles(cfg.Storage.DatabasePath)...); err == nil {
		status.DBDiskBytes = n
	}
	return status, nil
}

func runDocuments() {
	os.Exit(documentsCommand(os.Args[2:]))
}

func documentsCommand(args []string) int {
	fs := flag.NewFlagSet("documents", flag.ExitOnError)
	limit := fs.Int("limit", 50, "number of documents")
	offset := fs.Int("offset", 0, "number of documents to skip")
	outputFormat := fs.String("output", "text", "output format: text or json")
	cfg, logger, _ := setup(fs, args)
	defer func() { _ = logger.Sync() }()

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	registry, err := storage.NewSQLiteRegistry(cfg.Storage.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open registry: %v\n", err)
		return 1
	}
	defer registry.Close()

	docs, err := registry.List(context.Background(), *offset, *limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	_ = cli.WriteDocuments(os.Stdout, docs, format)
	return 0
}

// Components holds everything a command needs to ingest and answer.
type Components struct {
	Embedder *embedding.Gateway
	Store    *knowledge.Store
	Registry *storage.SQLiteRegistry
	Engine   *search.Engine
	Indexer  *indexer.Indexer
}

// Close releases the registry and the embedding backend.
func (c *Components) Close() {
	if c.Registry != nil {
		_ = c.Registry.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	embedder, err := embedding.New(cfg.Embedding, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	c := &Components{Embedder: embedder}

	c.Store = knowledge.NewStore(cfg.Storage.IndexDir, embedder, knowledge.WithLogger(logger))
	if err := c.Store.Init(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize knowledge store: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DatabasePath), 0o755); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	c.Registry, err = storage.NewSQLiteRegistry(cfg.Storage.DatabasePath)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize registry: %w", err)
	}

	client, err := llm.New(cfg.LLM, llm.WithLogger(logger))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize llm client: %w", err)
	}

	c.Engine = search.NewEngine(c.Store, embedder, client, search.WithLogger(logger))
	c.Indexer = indexer.NewIndexer(c.Store, extract.NewExtractor(), cfg.Chunking,
		indexer.WithLogger(logger),
		indexer.WithRegistry(c.Registry),
		indexer.WithWorkers(cfg.Indexing.Workers),
	)
	logger.Info("components initialized",
		zap.String("embedding_backend", cfg.Embedding.Backend),
		zap.String("llm_kind", cfg.LLM.Kind),
		zap.Uint64("vectors", c.Store.Size()),
		zap.Int("dimension", c.Store.Dimension()))
	return c, nil
}

func supportedExtensions() string {
	exts := extract.SupportedExtensions()
	sort.Strings(exts)
	return strings.Join(exts, " ")
}

func printUsage() {
	fmt.Printf(`kotae - answer questions from your own documents

Usage:
  kotae server [flags]               Start the HTTP server (and the inbox watcher when configured)
  kotae ingest [flags] <path>...     Ingest files or directories
  kotae query [flags] <question>     Answer a question
  kotae info [flags]                 Show index and registry statistics
  kotae documents [flags]            List ingested documents
  kotae version                      Show version
  kotae help                         Show this help

Common Flags:
  --config string    Config file path (default: ~/.kotae/config.yaml, or ./config.yaml when present)
  --debug            Enable debug logging

Ingest Flags:
  --skip-known       Skip files whose content is already indexed
  --output string    Output format: text or json (default: text)

Query Flags:
  --k int            Number of context chunks (default: %d)
  --server string    Ask a running server, e.g. http://localhost:8000
  --output string    Output format: text or json (default: text)

Documents Flags:
  --limit int        Number of documents (default: 50)
  --offset int       Number of documents to skip

Supported file types:
  %s

Examples:
  kotae server
  kotae ingest ~/notes report.pdf
  kotae query "what did the report conclude?"
  kotae query -k 3 -output json who signed the contract
  kotae query -server http://localhost:8000 what is kotae
`, models.DefaultTopK, supportedExtensions())
}
