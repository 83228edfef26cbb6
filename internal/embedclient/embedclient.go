// Package embedclient is a thin HTTP client against an Ollama-compatible
// embeddings endpoint (spec.md §4.11), adapted from the teacher's
// pkg/ollama.EmbedClient with the gRPC/mlpb wrapper stripped — this
// repository has no generated protobuf stubs for that service, so Embed
// talks to Ollama directly over net/http, same as pkg/ollama does
// underneath its wrapper. Calls are throttled with golang.org/x/time/rate
// (adapted from engine/scraper/youtube.go's YouTubeScraper.rateLimiter) and
// guarded by a resilience.Breaker so a wedged daemon degrades instead of
// hanging every caller.
package embedclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/AcidicSwords/AxiomicAgent/pkg/resilience"
	"golang.org/x/time/rate"
)

// Client embeds text and generates short commentary against a local Ollama
// daemon. A nil *Client makes every method a no-op error, so callers can
// wire an unconfigured Client unconditionally (spec.md §4.11 "optional").
type Client struct {
	baseURL string
	model   string
	http    *http.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
}

// Options configures a Client. Zero values fall back to spec.md §4.11
// defaults (5 req/s, burst 5).
type Options struct {
	BaseURL        string
	Model          string
	RequestsPerSec float64
	Burst          int
}

// New builds a Client. baseURL/model are required; rate limiting defaults
// to 5 req/s with burst 5 when RequestsPerSec is zero.
func New(opts Options) *Client {
	rps := opts.RequestsPerSec
	if rps <= 0 {
		rps = 5
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 5
	}
	return &Client{
		baseURL: opts.BaseURL,
		model:   opts.Model,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		breaker: resilience.NewBreaker(resilience.DefaultBreakerOpts),
	}
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed returns the embedding vector for text, waiting on the rate limiter
// and routing the HTTP call through the circuit breaker.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if c == nil {
		return nil, fmt.Errorf("embedclient: not configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embedclient: rate limiter: %w", err)
	}

	var out []float32
	err := c.breaker.Call(ctx, func(ctx context.Context) error {
		vals, err := c.embed(ctx, text)
		if err != nil {
			return err
		}
		out = vals
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: c.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("embedclient: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedclient: embed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedclient: embed: status %d", resp.StatusCode)
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("embedclient: decode response: %w", err)
	}

	out := make([]float32, len(result.Embedding))
	for i, v := range result.Embedding {
		out[i] = float32(v)
	}
	return out, nil
}

type commentaryRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type commentaryResponse struct {
	Response string `json:"response"`
}

// Commentary generates a short prose summary of a step via Ollama's
// /api/generate endpoint. No preprocessor calls it, and the
// AXIOM_LLM_COMMENTARY setting is not read anywhere: step commentary always
// comes from the templated builder, so the engine runs fully offline.
func (c *Client) Commentary(ctx context.Context, stepSummary string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("embedclient: not configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("embedclient: rate limiter: %w", err)
	}

	var out string
	err := c.breaker.Call(ctx, func(ctx context.Context) error {
		body, err := json.Marshal(commentaryRequest{Model: c.model, Prompt: stepSummary, Stream: false})
		if err != nil {
			return fmt.Errorf("embedclient: marshal request: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("embedclient: build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("embedclient: commentary: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("embedclient: commentary: status %d", resp.StatusCode)
		}

		var result commentaryResponse
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("embedclient: decode response: %w", err)
		}
		out = result.Response
		return nil
	})
	if err != nil {
		return "", err
	}
	return out, nil
}
