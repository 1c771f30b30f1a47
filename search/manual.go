package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"inmobot/models"
)

// ManualTopK is how many manual chunks are handed to the answerer.
const ManualTopK = 3

// ManualChunks is the read side of the manual store.
type ManualChunks interface {
	Embedded(ctx context.Context) ([]models.ManualChunk, error)
}

// Manual finds the chunks of the internal manual closest to a question.
type Manual struct {
	chunks   ManualChunks
	ranker   Ranker
	minScore float64
}

func NewManual(chunks ManualChunks, ranker Ranker, minScore float64) *Manual {
	return &Manual{chunks: chunks, ranker: ranker, minScore: minScore}
}

// Lookup returns up to ManualTopK chunk texts scoring at least minScore, best
// first. No indexed manual is an empty result, not an error.
func (m *Manual) Lookup(ctx context.Context, question string) ([]string, error) {
	items, err := m.chunks.Embedded(ctx)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	vec, err := m.ranker.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: embed question: %v", models.ErrUpstreamUnavailable, err)
	}

	byRef := make(map[string]string, len(items))
	corpus := make([]Document, 0, len(items))
	for _, it := range items {
		v, err := ParseEmbedding(it.Embedding)
		if err != nil {
			continue
		}
		ref := strconv.FormatInt(it.ID, 10)
		byRef[ref] = it.Content
		corpus = append(corpus, Document{Ref: ref, Vector: v})
	}

	var out []string
	for _, s := range m.ranker.Similar(vec, corpus) {
		if len(out) >= ManualTopK {
			break
		}
		if s.Score < m.minScore {
			continue
		}
		if c := strings.TrimSpace(byRef[s.Ref]); c != "" {
			out = append(out, c)
		}
	}
	return out, nil
}
