package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"golang.org/x/time/rate"

	"github.com/pders01/docchat/internal/models"
)

const (
	// DefaultEmbedModel is the recommended embedding model
	DefaultEmbedModel = "nomic-embed-text"
	// DefaultChatModel answers questions and writes conversation descriptions
	DefaultChatModel = "llama3.2"
	// DefaultURL is the default Ollama API endpoint
	DefaultURL = "http://localhost:11434"
	// DefaultTimeout bounds a single HTTP round trip
	DefaultTimeout = 5 * time.Minute
	// DefaultBatchSize is how many texts go into one embed request
	DefaultBatchSize = 32
)

// Client wraps the Ollama API client
type Client struct {
	client      *api.Client
	url         string
	embedModel  string
	chatModel   string
	temperature float64
	timeout     time.Duration
	batchSize   int
	limiter     *rate.Limiter
}

// Option configures a Client
type Option func(*Client)

// WithChatModel sets the model used by Chat and Generate
func WithChatModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.chatModel = model
		}
	}
}

// WithTemperature sets the sampling temperature for Chat and Generate
func WithTemperature(t float64) Option {
	return func(c *Client) {
		c.temperature = t
	}
}

// WithTimeout sets the HTTP client timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithBatchSize sets how many texts are embedded per request
func WithBatchSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithRateLimit caps embed requests per second. Zero or less means unlimited.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		} else {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
		}
	}
}

// NewClient creates a new Ollama client
func NewClient(rawURL, embedModel string, opts ...Option) (*Client, error) {
	if rawURL == "" {
		rawURL = DefaultURL
	}
	if embedModel == "" {
		embedModel = DefaultEmbedModel
	}

	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ollama url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid ollama url: %s", rawURL)
	}

	c := &Client{
		url:        strings.TrimRight(rawURL, "/"),
		embedModel: embedModel,
		chatModel:  DefaultChatModel,
		timeout:    DefaultTimeout,
		batchSize:  DefaultBatchSize,
		limiter:    rate.NewLimiter(rate.Inf, 0),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.client = api.NewClient(base, &http.Client{Timeout: c.timeout})
	return c, nil
}

// IsAvailable checks if Ollama is running and accessible
func IsAvailable(url string) bool {
	if url == "" {
		url = DefaultURL
	}

	// Try to connect with a short timeout
	client := &http.Client{
		Timeout: 2 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// Embed generates one embedding per text, in input order
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for i, text := range texts {
		if text == "" {
			return nil, fmt.Errorf("text %d cannot be empty", i)
		}
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("embed rate limiter: %w", err)
		}

		resp, err := c.client.Embed(ctx, &api.EmbedRequest{
			Model: c.embedModel,
			Input: texts[start:end],
		})
		if err != nil {
			return nil, fmt.Errorf("failed to generate embeddings: %w", err)
		}
		if len(resp.Embeddings) != end-start {
			return nil, fmt.Errorf("expected %d embeddings, got %d", end-start, len(resp.Embeddings))
		}
		out = append(out, resp.Embeddings...)
	}

	return out, nil
}

// Chat sends the conversation to the chat model and returns the reply
func (c *Client) Chat(ctx context.Context, messages []models.Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("messages cannot be empty")
	}

	msgs := make([]api.Message, len(messages))
	for i, m := range messages {
		msgs[i] = api.Message{Role: string(m.Role), Content: m.Content}
	}

	stream := false
	var reply strings.Builder
	err := c.client.Chat(ctx, &api.ChatRequest{
		Model:    c.chatModel,
		Messages: msgs,
		Stream:   &stream,
		Options:  map[string]any{"temperature": c.temperature},
	}, func(resp api.ChatResponse) error {
		reply.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to chat: %w", err)
	}

	return strings.TrimSpace(reply.String()), nil
}

// Generate runs a single completion with an optional system prompt
func (c *Client) Generate(ctx context.Context, system, prompt string) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	stream := false
	var out strings.Builder
	err := c.client.Generate(ctx, &api.GenerateRequest{
		Model:   c.chatModel,
		System:  system,
		Prompt:  prompt,
		Stream:  &stream,
		Options: map[string]any{"temperature": c.temperature},
	}, func(resp api.GenerateResponse) error {
		out.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate: %w", err)
	}

	return strings.TrimSpace(out.String()), nil
}

// CheckModel checks if the specified model is available
func (c *Client) CheckModel(ctx context.Context, model string) error {
	// List available models
	listResp, err := c.client.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}

	// Ollama reports untagged pulls as "<name>:latest"
	for _, m := range listResp.Models {
		if m.Name == model || m.Name == model+":latest" {
			return nil
		}
	}

	return fmt.Errorf("model '%s' not found - run: ollama pull %s", model, model)
}

// EmbedModel returns the embedding model being used
func (c *Client) EmbedModel() string {
	return c.embedModel
}

// ChatModel returns the chat model being used
func (c *Client) ChatModel() string {
	return c.chatModel
}

// URL returns the API endpoint
func (c *Client) URL() string {
	return c.url
}
