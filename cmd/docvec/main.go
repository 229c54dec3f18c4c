package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"docvec/internal/config"
	"docvec/internal/encoder"
	"docvec/internal/index"
	"docvec/internal/ingest"
	"docvec/internal/retriever"
	"docvec/internal/segmenter"
	"docvec/pkg/types"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: docvec <command> [arguments]

Commands:
  ingest <dir>          index every .txt document under dir
  search <query> [-k N] retrieve chunks matching query
  list                  list indexed documents
  get <id>              fetch one chunk by ID
  reindex               drop and recreate the index

Flags:
  --version             print version information
`)
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("docvec\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", index.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", index.DriverName)
		os.Exit(0)
	}
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	// Logs go to stderr; stdout carries JSON results only.
	log.SetOutput(os.Stderr)

	cfg, cfgPath, err := config.LoadDefault()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfgPath != "" {
		log.Printf("Using configuration from %s", cfgPath)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, os.Args[1], os.Args[2:]); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context, cfg *config.AppConfig, command string, args []string) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	model, err := encoder.NewHTTPModel(encoder.HTTPModelConfig{
		BaseURL:   cfg.Model.BaseURL,
		MaxLength: cfg.Model.MaxLength,
		Dimension: cfg.Model.Dimension,
		Timeout:   cfg.Model.Timeout(),
	})
	if err != nil {
		return fmt.Errorf("failed to create model client: %w", err)
	}
	enc := encoder.New(model)

	switch command {
	case "ingest":
		if len(args) < 1 {
			return fmt.Errorf("ingest requires a directory argument")
		}
		return runIngest(ctx, cfg, enc, store, args[0])
	case "search":
		return runSearch(ctx, cfg, enc, store, args)
	case "list":
		return runList(ctx, store)
	case "get":
		if len(args) < 1 {
			return fmt.Errorf("get requires a chunk ID argument")
		}
		return runGet(ctx, store, args[0])
	case "reindex":
		return runReindex(ctx, cfg, enc, store)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func openStore(ctx context.Context, cfg *config.AppConfig) (index.Store, error) {
	indexCfg := index.Config{Backend: cfg.Index.Backend}
	if cfg.Index.SQLite != nil {
		indexCfg.Path = cfg.Index.SQLite.Path
	}
	if cfg.Index.Qdrant != nil {
		indexCfg.URL = cfg.Index.Qdrant.URL
		indexCfg.Collection = cfg.Index.Qdrant.Collection
		indexCfg.APIKey = cfg.QdrantAPIKey()
		indexCfg.Timeout = cfg.Index.Qdrant.Timeout()
	}
	store, err := index.Open(ctx, indexCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open index store: %w", err)
	}
	return store, nil
}

func newPipeline(cfg *config.AppConfig, enc *encoder.Encoder, store index.Store) (*ingest.Pipeline, error) {
	seg, err := segmenter.New(segmenter.Config{
		WindowSize:          cfg.Segmenter.WindowSize,
		WindowOverlap:       cfg.Segmenter.WindowOverlap,
		WordsPerPage:        cfg.Segmenter.WordsPerPage,
		MinContentChars:     cfg.Segmenter.MinContentChars,
		ContextWindows:      cfg.Segmenter.ContextWindows,
		BoilerplatePatterns: cfg.Segmenter.BoilerplatePatterns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create segmenter: %w", err)
	}
	return ingest.New(seg, enc, store, cfg.Ingest.Workers), nil
}

func runIngest(ctx context.Context, cfg *config.AppConfig, enc *encoder.Encoder, store index.Store, dir string) error {
	pipeline, err := newPipeline(cfg, enc, store)
	if err != nil {
		return err
	}
	if err := pipeline.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("failed to ensure index: %w", err)
	}

	docs, err := loadDocuments(dir)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no .txt documents found under %s", dir)
	}
	log.Printf("Ingesting %d documents from %s", len(docs), dir)

	result, err := pipeline.IngestAll(ctx, docs)
	if err != nil {
		return err
	}
	for name, docErr := range result.Failed {
		log.Printf("Document %s failed: %v", name, docErr)
	}
	log.Printf("Indexed %d chunks from %d documents", result.Indexed, len(result.Processed))
	return printJSON(result)
}

func runSearch(ctx context.Context, cfg *config.AppConfig, enc *encoder.Encoder, store index.Store, args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	topK := fs.Int("k", cfg.Retrieval.TopK, "number of hits to return")

	// Allow "search <query> -k N" by splitting off flag-looking args.
	var queryParts, flagArgs []string
	for i, arg := range args {
		if strings.HasPrefix(arg, "-") {
			flagArgs = args[i:]
			break
		}
		queryParts = append(queryParts, arg)
	}
	if err := fs.Parse(flagArgs); err != nil {
		return err
	}
	query := strings.Join(queryParts, " ")
	if query == "" {
		return fmt.Errorf("search requires a query argument")
	}

	r := retriever.New(enc, store)
	results, err := r.Retrieve(ctx, query, *topK)
	if err != nil {
		return err
	}
	return printJSON(results)
}

func runList(ctx context.Context, store index.Store) error {
	stats, err := store.ListDocuments(ctx)
	if err != nil {
		return err
	}
	return printJSON(stats)
}

func runGet(ctx context.Context, store index.Store, id string) error {
	chunk, err := store.Get(ctx, id)
	if err != nil {
		return err
	}
	return printJSON(chunk)
}

func runReindex(ctx context.Context, cfg *config.AppConfig, enc *encoder.Encoder, store index.Store) error {
	pipeline, err := newPipeline(cfg, enc, store)
	if err != nil {
		return err
	}
	log.Printf("Dropping and recreating index (dimension %d)", cfg.Model.Dimension)
	return pipeline.Reindex(ctx, cfg.Model.Dimension)
}

// loadDocuments walks dir for .txt files, standing in for the text-extraction
// collaborator. Each file becomes one single-page document; the segmenter
// finds page breaks within the text.
func loadDocuments(dir string) ([]*types.Document, error) {
	var docs []*types.Document
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".txt") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		docs = append(docs, &types.Document{
			Name:  filepath.Base(path),
			Pages: []string{string(data)},
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	return docs, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
