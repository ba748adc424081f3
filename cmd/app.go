package cmd

import (
	"log/slog"
	"os"
	"time"

	"github.com/pders01/docchat/internal/config"
	"github.com/pders01/docchat/internal/index"
	"github.com/pders01/docchat/internal/manager"
	"github.com/pders01/docchat/internal/ollama"
	"github.com/pders01/docchat/internal/rag"
	"github.com/pders01/docchat/internal/snapshot"
	"github.com/pders01/docchat/internal/version"
	"github.com/spf13/viper"
)

// backend is the model server behind embeddings and generation
type backend struct {
	embedder   index.Embedder
	llm        rag.LLM
	embedModel string
}

// now names new snapshots. Tests replace it.
var now = time.Now

// openBackend connects to the configured model server. Tests replace it.
var openBackend = func(cfg config.Config) (backend, error) {
	client, err := newOllamaClient(cfg)
	if err != nil {
		return backend{}, err
	}
	return backend{embedder: client, llm: client, embedModel: client.EmbedModel()}, nil
}

func newOllamaClient(cfg config.Config) (*ollama.Client, error) {
	timeout, err := cfg.OllamaTimeout()
	if err != nil {
		return nil, err
	}
	return ollama.NewClient(cfg.Ollama.URL, cfg.Ollama.EmbedModel,
		ollama.WithChatModel(cfg.Ollama.ChatModel),
		ollama.WithTemperature(cfg.Ollama.Temperature),
		ollama.WithTimeout(timeout),
		ollama.WithBatchSize(cfg.Ollama.BatchSize),
		ollama.WithRateLimit(cfg.Ollama.EmbedRate),
	)
}

// loadConfig reads the settings and installs the configured logger
func loadConfig() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := config.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// openManager wires a manager over the configured data directory
func openManager() (*manager.Manager, config.Config, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, config.Config{}, err
	}

	be, err := openBackend(cfg)
	if err != nil {
		return nil, config.Config{}, err
	}

	m := manager.New(cfg.DataDir, version.Deps{
		Snapshots: snapshot.NewStore(snapshot.WithClock(now), snapshot.WithLogger(logger)),
		Builder: index.NewBuilder(
			index.WithSplitter(index.NewSplitter(cfg.Chunk.Size, cfg.Chunk.Overlap)),
			index.WithWorkers(cfg.Index.Workers),
			index.WithBuilderLogger(logger),
		),
		Index:      index.NewStore(be.embedder, index.WithEmbedModel(be.embedModel), index.WithStoreLogger(logger)),
		Retrieval:  cfg.RetrievalOptions(),
		LLM:        be.llm,
		Chain:      rag.NewChain(be.llm, logger),
		Summarizer: rag.NewSummarizer(be.llm),
		Logger:     logger,
	})
	return m, cfg, nil
}

// versionArg returns the version named in args at position i, or the
// configured default
func versionArg(args []string, i int, cfg config.Config) string {
	if len(args) > i && args[i] != "" {
		return args[i]
	}
	return cfg.DefaultVersion
}
