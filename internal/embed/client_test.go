package embed

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"clrecon/internal/config"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestEmbedWithRetry(t *testing.T) {
	attempt := 0

	cfg, _ := config.Load()
	cfg.EmbedAPIToken = "test"
	cfg.EmbedAPIBaseURL = "https://example.test/v1"
	cfg.EmbedRateLimitRPS = 1000
	cfg.EmbedBatchSize = 64

	client := NewClient(cfg)
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.URL.Path != "/v1/embeddings" {
				t.Fatalf("unexpected path %s", r.URL.Path)
			}
			attempt++
			if attempt == 1 {
				return &http.Response{
					StatusCode: http.StatusServiceUnavailable,
					Body:       io.NopCloser(strings.NewReader(`{"error":{"message":"busy"}}`)),
					Header:     make(http.Header),
				}, nil
			}

			var req embedRequest
			blob, _ := io.ReadAll(r.Body)
			if err := json.Unmarshal(blob, &req); err != nil {
				t.Fatal(err)
			}
			payload := embedResponse{}
			for i := range req.Input {
				payload.Data = append(payload.Data, struct {
					Index     int       `json:"index"`
					Embedding []float64 `json:"embedding"`
				}{Index: i, Embedding: []float64{1, 0}})
			}
			out, _ := json.Marshal(payload)
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(string(out))),
				Header:     make(http.Header),
			}, nil
		}),
	}

	vectors, err := client.Embed(context.Background(), []string{"STERILE GLOVE", "GLOVE STERILE"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vectors) != 2 {
		t.Fatalf("vectors=%d", len(vectors))
	}
	if attempt != 2 {
		t.Fatalf("attempts=%d", attempt)
	}
}

func TestEmbeddingScorerSharesVectors(t *testing.T) {
	calls := 0
	provider := providerFunc(func(ctx context.Context, texts []string) ([][]float64, error) {
		calls++
		vectors := make([][]float64, len(texts))
		for i := range texts {
			vectors[i] = []float64{float64(len(texts[i])), 1}
		}
		return vectors, nil
	})

	scorer := &EmbeddingScorer{Provider: provider}
	pairs := []TextPair{
		{Left: "STERILE GLOVE", Right: "sterile glove"},
		{Left: "STERILE GLOVE", Right: "SUTURE KIT"},
	}
	scores, err := scorer.ScorePairs(context.Background(), pairs)
	if err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("calls=%d", calls)
	}
	// identical after normalization, scored without touching vectors
	if scores[0] != 1 {
		t.Fatalf("scores[0]=%v", scores[0])
	}
	if scores[1] < 0 || scores[1] > 1 {
		t.Fatalf("scores[1]=%v", scores[1])
	}
}

type providerFunc func(ctx context.Context, texts []string) ([][]float64, error)

func (f providerFunc) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	return f(ctx, texts)
}

func TestCosine(t *testing.T) {
	if got := Cosine([]float64{1, 0}, []float64{1, 0}); got != 1 {
		t.Fatalf("got %v", got)
	}
	if got := Cosine([]float64{1, 0}, []float64{0, 1}); got != 0 {
		t.Fatalf("got %v", got)
	}
	if got := Cosine([]float64{0, 0}, []float64{1, 1}); got != 0 {
		t.Fatalf("zero vector, got %v", got)
	}
}
