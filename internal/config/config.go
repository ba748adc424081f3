// Package config turns viper settings into the immutable Config value the
// rest of docchat is built from.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pders01/docchat/internal/index"
	"github.com/pders01/docchat/internal/ollama"
	"github.com/pders01/docchat/internal/rag"
)

// Config is every setting docchat reads
type Config struct {
	DataDir        string    `toml:"data_dir" yaml:"data_dir"`
	DefaultVersion string    `toml:"default_version" yaml:"default_version"`
	Ollama         Ollama    `toml:"ollama" yaml:"ollama"`
	Retrieval      Retrieval `toml:"retrieval" yaml:"retrieval"`
	Chunk          Chunk     `toml:"chunk" yaml:"chunk"`
	Index          Index     `toml:"index" yaml:"index"`
	Log            Log       `toml:"log" yaml:"log"`
}

// Ollama configures the model backend
type Ollama struct {
	URL         string  `toml:"url" yaml:"url"`
	EmbedModel  string  `toml:"embed_model" yaml:"embed_model"`
	ChatModel   string  `toml:"chat_model" yaml:"chat_model"`
	Temperature float64 `toml:"temperature" yaml:"temperature"`
	Timeout     string  `toml:"timeout" yaml:"timeout"`
	EmbedRate   float64 `toml:"embed_rate" yaml:"embed_rate"`
	BatchSize   int     `toml:"batch_size" yaml:"batch_size"`
}

// Retrieval configures how passages are picked for a question
type Retrieval struct {
	SearchType string  `toml:"search_type" yaml:"search_type"`
	K          int     `toml:"k" yaml:"k"`
	FetchK     int     `toml:"fetch_k" yaml:"fetch_k"`
	MMRLambda  float64 `toml:"mmr_lambda" yaml:"mmr_lambda"`
	Compress   bool    `toml:"compress" yaml:"compress"`
}

// Chunk configures the text splitter
type Chunk struct {
	Size    int `toml:"size" yaml:"size"`
	Overlap int `toml:"overlap" yaml:"overlap"`
}

// Index configures index builds
type Index struct {
	Workers int `toml:"workers" yaml:"workers"`
}

// Log configures the logger
type Log struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		DataDir:        defaultDataDir(),
		DefaultVersion: "1.0",
		Ollama: Ollama{
			URL:        ollama.DefaultURL,
			EmbedModel: ollama.DefaultEmbedModel,
			ChatModel:  ollama.DefaultChatModel,
			Timeout:    ollama.DefaultTimeout.String(),
			BatchSize:  ollama.DefaultBatchSize,
		},
		Retrieval: Retrieval{
			SearchType: rag.SearchMMR,
			K:          rag.DefaultK,
			FetchK:     rag.DefaultFetchK,
			MMRLambda:  rag.DefaultLambda,
		},
		Chunk: Chunk{
			Size:    index.DefaultChunkSize,
			Overlap: index.DefaultChunkOverlap,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "data"
	}
	return filepath.Join(home, ".local", "share", "docchat")
}

// SetDefaults registers the built-in settings with v
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("default_version", d.DefaultVersion)
	v.SetDefault("ollama.url", d.Ollama.URL)
	v.SetDefault("ollama.embed_model", d.Ollama.EmbedModel)
	v.SetDefault("ollama.chat_model", d.Ollama.ChatModel)
	v.SetDefault("ollama.temperature", d.Ollama.Temperature)
	v.SetDefault("ollama.timeout", d.Ollama.Timeout)
	v.SetDefault("ollama.embed_rate", d.Ollama.EmbedRate)
	v.SetDefault("ollama.batch_size", d.Ollama.BatchSize)
	v.SetDefault("retrieval.search_type", d.Retrieval.SearchType)
	v.SetDefault("retrieval.k", d.Retrieval.K)
	v.SetDefault("retrieval.fetch_k", d.Retrieval.FetchK)
	v.SetDefault("retrieval.mmr_lambda", d.Retrieval.MMRLambda)
	v.SetDefault("retrieval.compress", d.Retrieval.Compress)
	v.SetDefault("chunk.size", d.Chunk.Size)
	v.SetDefault("chunk.overlap", d.Chunk.Overlap)
	v.SetDefault("index.workers", d.Index.Workers)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Load reads the settings held by v and validates them
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		DataDir:        v.GetString("data_dir"),
		DefaultVersion: v.GetString("default_version"),
		Ollama: Ollama{
			URL:         v.GetString("ollama.url"),
			EmbedModel:  v.GetString("ollama.embed_model"),
			ChatModel:   v.GetString("ollama.chat_model"),
			Temperature: v.GetFloat64("ollama.temperature"),
			Timeout:     v.GetString("ollama.timeout"),
			EmbedRate:   v.GetFloat64("ollama.embed_rate"),
			BatchSize:   v.GetInt("ollama.batch_size"),
		},
		Retrieval: Retrieval{
			SearchType: strings.ToLower(v.GetString("retrieval.search_type")),
			K:          v.GetInt("retrieval.k"),
			FetchK:     v.GetInt("retrieval.fetch_k"),
			MMRLambda:  v.GetFloat64("retrieval.mmr_lambda"),
			Compress:   v.GetBool("retrieval.compress"),
		},
		Chunk: Chunk{
			Size:    v.GetInt("chunk.size"),
			Overlap: v.GetInt("chunk.overlap"),
		},
		Index: Index{
			Workers: v.GetInt("index.workers"),
		},
		Log: Log{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting
func (c Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must be set")
	}
	if _, err := c.OllamaTimeout(); err != nil {
		return err
	}
	switch c.Retrieval.SearchType {
	case rag.SearchSimilarity, rag.SearchMMR:
	default:
		return fmt.Errorf("retrieval.search_type must be %s or %s, got %q", rag.SearchSimilarity, rag.SearchMMR, c.Retrieval.SearchType)
	}
	if c.Retrieval.K <= 0 {
		return fmt.Errorf("retrieval.k must be positive, got %d", c.Retrieval.K)
	}
	if c.Retrieval.MMRLambda < 0 || c.Retrieval.MMRLambda > 1 {
		return fmt.Errorf("retrieval.mmr_lambda must be within [0, 1], got %v", c.Retrieval.MMRLambda)
	}
	if c.Chunk.Size <= 0 {
		return fmt.Errorf("chunk.size must be positive, got %d", c.Chunk.Size)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// OllamaTimeout parses ollama.timeout
func (c Config) OllamaTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Ollama.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid ollama.timeout: %w", err)
	}
	return d, nil
}

// RetrievalOptions returns the retriever settings
func (c Config) RetrievalOptions() rag.Options {
	return rag.Options{
		SearchType: c.Retrieval.SearchType,
		K:          c.Retrieval.K,
		FetchK:     c.Retrieval.FetchK,
		Lambda:     c.Retrieval.MMRLambda,
		Compress:   c.Retrieval.Compress,
	}
}

func parseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return 0, fmt.Errorf("invalid log.level %q", level)
	}
	return l, nil
}

// NewLogger builds the logger described by c writing to w
func NewLogger(c Log, w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
