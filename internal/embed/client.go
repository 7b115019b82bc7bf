// Package embed scores description similarity for candidate duplicate
// pairs. The primary path is a hosted embedding endpoint; when no
// endpoint is configured the offline Dice coefficient stands in so the
// pipeline stays runnable.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"clrecon/internal/config"
)

// Provider turns a batch of texts into vectors, one per input, in input
// order.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *RateLimiter
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.EmbedTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.EmbedRateLimitRPS),
	}
}

func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if strings.TrimSpace(c.cfg.EmbedAPIToken) == "" {
		return nil, errors.New("missing EMBED_API_TOKEN")
	}

	out := make([][]float64, 0, len(texts))
	batch := c.cfg.EmbedBatchSize
	if batch <= 0 {
		batch = 64
	}
	for start := 0; start < len(texts); start += batch {
		end := start + batch
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	endpoint := strings.TrimRight(c.cfg.EmbedAPIBaseURL, "/") + "/embeddings"
	payload, err := json.Marshal(embedRequest{Model: c.cfg.EmbedModel, Input: texts})
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= 5; attempt++ {
		if err := c.limiter.WaitTurn(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.EmbedAPIToken)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < 5 {
				backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
				time.Sleep(backoff)
				lastErr = fmt.Errorf("embed status %d", resp.StatusCode)
				continue
			}
			return nil, fmt.Errorf("embed api error: status=%d body=%s", resp.StatusCode, string(body))
		}

		var apiResp embedResponse
		if err := json.Unmarshal(body, &apiResp); err != nil {
			return nil, err
		}
		if apiResp.Error != nil {
			return nil, fmt.Errorf("embed api unsuccessful: %s", apiResp.Error.Message)
		}
		if len(apiResp.Data) != len(texts) {
			return nil, fmt.Errorf("embed api returned %d vectors for %d inputs", len(apiResp.Data), len(texts))
		}

		vectors := make([][]float64, len(texts))
		for _, d := range apiResp.Data {
			if d.Index < 0 || d.Index >= len(vectors) {
				return nil, fmt.Errorf("embed api returned index %d out of range", d.Index)
			}
			vectors[d.Index] = d.Embedding
		}
		return vectors, nil
	}

	if lastErr == nil {
		lastErr = errors.New("embed request failed")
	}
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// Cosine is the similarity of two vectors; zero-magnitude vectors score 0.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

