// Package search turns structured filters or free text into at most ten available
// listings, optionally re-ranked by embedding similarity.
package search

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"inmobot/models"
	"inmobot/store"
)

// Listings is the read side of the listing store used by the engine.
type Listings interface {
	Search(ctx context.Context, f store.Filter) ([]models.Listing, error)
	Candidates(ctx context.Context, f store.Filter) ([]models.Listing, error)
	GetByReference(ctx context.Context, ref string) (*models.Listing, error)
	CountAvailable(ctx context.Context) (int, error)
}

// Ranker embeds text and orders a corpus by similarity. It may fail or time out;
// the engine then falls back to substring matching.
type Ranker interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Similar(query []float64, corpus []Document) []Scored
}

// Criteria is either a structured filter, free text, or both (text hints are merged
// into the filter).
type Criteria struct {
	Filter store.Filter
	Text   string
}

type Engine struct {
	listings Listings
	ranker   Ranker
	timeout  time.Duration
	minScore float64
}

type Option func(*Engine)

// WithRanker enables semantic ranking of free-text queries. Each ranker call is
// bounded by timeout; results scoring below minScore are dropped.
func WithRanker(r Ranker, timeout time.Duration, minScore float64) Option {
	return func(e *Engine) {
		e.ranker = r
		e.timeout = timeout
		e.minScore = minScore
	}
}

func NewEngine(listings Listings, opts ...Option) *Engine {
	e := &Engine{listings: listings, timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search returns up to store.MaxResults available listings. No match is an empty
// slice, not an error.
func (e *Engine) Search(ctx context.Context, c Criteria) ([]models.Listing, error) {
	f := c.Filter
	if c.Text != "" {
		f = merge(f, ParseQuery(c.Text))

		if e.ranker != nil {
			ranked, err := e.rank(ctx, c.Text, f)
			switch {
			case err != nil:
				log.Printf("search: ranker unavailable, using substring match: %v", err)
			case len(ranked) > 0:
				return ranked, nil
			}
		}
	}
	f.Limit = store.MaxResults
	return e.listings.Search(ctx, f)
}

// SearchText is Search for a raw user query.
func (e *Engine) SearchText(ctx context.Context, text string) ([]models.Listing, error) {
	return e.Search(ctx, Criteria{Text: text})
}

func (e *Engine) GetByReference(ctx context.Context, ref string) (*models.Listing, error) {
	return e.listings.GetByReference(ctx, ref)
}

func (e *Engine) CountAvailable(ctx context.Context) (int, error) {
	return e.listings.CountAvailable(ctx)
}

// RankerEnabled reports whether free text goes through the semantic path first.
func (e *Engine) RankerEnabled() bool {
	return e.ranker != nil
}

func (e *Engine) rank(ctx context.Context, text string, f store.Filter) ([]models.Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	vec, err := e.ranker.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", models.ErrUpstreamUnavailable, err)
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUpstreamUnavailable, ctx.Err())
	}

	// keywords são semânticos aqui; só as restrições estruturadas valem
	structured := f
	structured.Keywords = nil
	cands, err := e.listings.Candidates(ctx, structured)
	if err != nil {
		return nil, err
	}

	byRef := make(map[string]models.Listing, len(cands))
	corpus := make([]Document, 0, len(cands))
	for _, l := range cands {
		v, err := ParseEmbedding(l.Embedding)
		if err != nil {
			continue
		}
		byRef[l.Reference] = l
		corpus = append(corpus, Document{Ref: l.Reference, Vector: v})
	}

	scored := e.ranker.Similar(vec, corpus)
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Ref < scored[j].Ref
	})

	var out []models.Listing
	for _, s := range scored {
		if len(out) >= store.MaxResults {
			break
		}
		if s.Score < e.minScore {
			continue
		}
		if l, ok := byRef[s.Ref]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

// merge overlays the hints parsed from text on an explicit filter; explicit fields win.
func merge(explicit, parsed store.Filter) store.Filter {
	out := parsed
	if len(explicit.Kinds) > 0 {
		out.Kinds = explicit.Kinds
	}
	if explicit.Operation != "" {
		out.Operation = explicit.Operation
	}
	if explicit.PriceMin > 0 {
		out.PriceMin = explicit.PriceMin
	}
	if explicit.PriceMax > 0 {
		out.PriceMax = explicit.PriceMax
	}
	if explicit.MinBedrooms > 0 {
		out.MinBedrooms = explicit.MinBedrooms
	}
	if explicit.City != "" {
		out.City = explicit.City
	}
	out.Keywords = append(append([]string(nil), explicit.Keywords...), parsed.Keywords...)
	return out
}

// CosineRanker ranks with cosine similarity over vectors from an Embedder.
type CosineRanker struct {
	Embedder interface {
		Embed(ctx context.Context, text string) ([]float64, error)
	}
}

func (r CosineRanker) Embed(ctx context.Context, text string) ([]float64, error) {
	return r.Embedder.Embed(ctx, text)
}

func (r CosineRanker) Similar(query []float64, corpus []Document) []Scored {
	return CosineSimilarity(query, corpus)
}
