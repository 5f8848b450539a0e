package modelclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// Config configures an OllamaClient.
type Config struct {
	BaseURL         string
	Model           string
	Timeout         time.Duration
	Temperature     float64
	MaxTokens       int
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// DefaultConfig returns settings for a local Ollama server.
func DefaultConfig() Config {
	return Config{
		BaseURL:         "http://localhost:11434",
		Model:           "llama3.1:8b",
		Timeout:         60 * time.Second,
		Temperature:     0.3,
		MaxTokens:       2000,
		BreakerFailures: 3,
		BreakerCooldown: 30 * time.Second,
	}
}

// OllamaClient calls the Ollama /api/generate endpoint. Each call is bounded
// by Config.Timeout and is never retried.
type OllamaClient struct {
	cfg     Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	log     zerolog.Logger
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Format  string          `json:"format,omitempty"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// NewOllama builds a client. Zero-valued fields take DefaultConfig values.
func NewOllama(cfg Config, log zerolog.Logger) *OllamaClient {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = def.BreakerFailures
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = def.BreakerCooldown
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	c := &OllamaClient{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log.With().Str("component", "modelclient").Str("model", cfg.Model).Logger(),
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ollama",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("model circuit breaker state change")
		},
	})
	return c
}

// StructuredCompletion sends prompt plus the schema instructions and parses
// the answer as a JSON object.
func (c *OllamaClient) StructuredCompletion(ctx context.Context, prompt string, schema Schema) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	full, err := withSchema(prompt, schema)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.generate(ctx, full)
	})
	if err != nil {
		return nil, fmt.Errorf("model completion: %w", err)
	}
	c.log.Debug().Dur("elapsed", time.Since(start)).Msg("model completion received")

	return ParseJSONObject(out.(string))
}

// Ping checks that the server answers its model listing endpoint.
func (c *OllamaClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("build ping request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ping model server: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}
	return nil
}

func (c *OllamaClient) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  c.cfg.Model,
		Prompt: prompt,
		Stream: false,
		Format: "json",
		Options: generateOptions{
			Temperature: c.cfg.Temperature,
			NumPredict:  c.cfg.MaxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %d %.200s", ErrStatus, resp.StatusCode, data)
	}

	var gr generateResponse
	if err := json.Unmarshal(data, &gr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return gr.Response, nil
}

func withSchema(prompt string, schema Schema) (string, error) {
	if len(schema) == 0 {
		return prompt, nil
	}
	s, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode schema: %w", err)
	}
	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\n\nAnswer with a single JSON object that follows this schema:\n")
	b.Write(s)
	b.WriteString("\n\nRules:\n")
	b.WriteString("- the answer is valid JSON and nothing else\n")
	b.WriteString("- keep the schema's structure and key names\n")
	b.WriteString("- use null for values the document does not state\n")
	b.WriteString("\nJSON:")
	return b.String(), nil
}
