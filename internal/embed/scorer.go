package embed

import (
	"context"

	"clrecon/internal/util"
)

// TextPair is one (left, right) description pair to score.
type TextPair struct {
	Left  string
	Right string
}

// Scorer assigns a similarity in [0, 1] per pair, in input order.
type Scorer interface {
	ScorePairs(ctx context.Context, pairs []TextPair) ([]float64, error)
}

// EmbeddingScorer embeds each distinct text once and scores pairs by
// cosine similarity. Duplicate texts across pairs share one vector, so
// the API cost tracks distinct descriptions, not pair count.
type EmbeddingScorer struct {
	Provider Provider
}

func (s *EmbeddingScorer) ScorePairs(ctx context.Context, pairs []TextPair) ([]float64, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	index := map[string]int{}
	var texts []string
	intern := func(text string) int {
		norm := util.NormalizeDescription(text)
		if i, ok := index[norm]; ok {
			return i
		}
		index[norm] = len(texts)
		texts = append(texts, norm)
		return len(texts) - 1
	}

	type ref struct{ left, right int }
	refs := make([]ref, len(pairs))
	for i, p := range pairs {
		refs[i] = ref{intern(p.Left), intern(p.Right)}
	}

	vectors, err := s.Provider.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(pairs))
	for i, r := range refs {
		if r.left == r.right {
			scores[i] = 1
			continue
		}
		scores[i] = Cosine(vectors[r.left], vectors[r.right])
	}
	return scores, nil
}

// DiceScorer is the offline fallback when no embedding endpoint is
// configured.
type DiceScorer struct{}

func (DiceScorer) ScorePairs(ctx context.Context, pairs []TextPair) ([]float64, error) {
	scores := make([]float64, len(pairs))
	for i, p := range pairs {
		scores[i] = util.DiceCoefficient(
			util.NormalizeDescription(p.Left),
			util.NormalizeDescription(p.Right),
		)
	}
	return scores, nil
}
