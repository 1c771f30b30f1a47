package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"inmobot/search"
	"inmobot/store"
	"inmobot/tools"

	"github.com/go-co-op/gocron"
)

// Embedder computes embeddings for many texts at once; tools.OpenAI implements it.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// Indexer fills in the missing embeddings of listings (similarity ranker) and
// manual chunks (answerer context).
type Indexer struct {
	listings  *store.Listings
	manual    *store.Manual
	embedder  Embedder
	every     time.Duration
	batch     int
	scheduler *gocron.Scheduler
}

// NewIndexer builds an indexer; manual may be nil.
func NewIndexer(listings *store.Listings, manual *store.Manual, embedder Embedder, every time.Duration) *Indexer {
	return &Indexer{listings: listings, manual: manual, embedder: embedder, every: every, batch: 32}
}

type pendingText struct {
	id   int64
	text string
}

// RunOnce embeds every available listing and manual chunk that has no embedding
// yet. Items whose vector cannot be stored are logged and left for the next run.
func (ix *Indexer) RunOnce(ctx context.Context) (int, error) {
	total, err := ix.fill(ctx, "listing",
		func(ctx context.Context, after int64) ([]pendingText, error) {
			ls, err := ix.listings.MissingEmbeddings(ctx, after, ix.batch)
			out := make([]pendingText, len(ls))
			for i, l := range ls {
				out[i] = pendingText{id: l.ID, text: tools.ListingDocument(l)}
			}
			return out, err
		},
		ix.listings.SetEmbedding)
	if err != nil || ix.manual == nil {
		return total, err
	}

	n, err := ix.fill(ctx, "manual chunk",
		func(ctx context.Context, after int64) ([]pendingText, error) {
			cs, err := ix.manual.MissingEmbeddings(ctx, after, ix.batch)
			out := make([]pendingText, len(cs))
			for i, c := range cs {
				out[i] = pendingText{id: c.ID, text: c.Content}
			}
			return out, err
		},
		ix.manual.SetEmbedding)
	return total + n, err
}

// fill walks the pending items in id order; the cursor moves past every batch,
// stored or not, so one bad vector can't stall the run.
func (ix *Indexer) fill(ctx context.Context, kind string,
	next func(ctx context.Context, after int64) ([]pendingText, error),
	set func(ctx context.Context, id int64, embedding string) error) (int, error) {

	var after int64
	total := 0
	for {
		pending, err := next(ctx, after)
		if err != nil {
			return total, err
		}
		if len(pending) == 0 {
			return total, nil
		}
		after = pending[len(pending)-1].id

		texts := make([]string, len(pending))
		for i, p := range pending {
			texts[i] = p.text
		}
		vecs, err := ix.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return total, err
		}
		if len(vecs) != len(pending) {
			return total, fmt.Errorf("indexer: %d vectors for %d texts", len(vecs), len(pending))
		}
		for i, p := range pending {
			enc, err := search.EncodeEmbedding(vecs[i])
			if err != nil {
				log.Printf("indexer: skipping %s %d: %v", kind, p.id, err)
				continue
			}
			if err := set(ctx, p.id, enc); err != nil {
				return total, err
			}
			total++
		}
	}
}

// Start runs RunOnce now and then every interval.
func (ix *Indexer) Start() error {
	ix.scheduler = gocron.NewScheduler(time.UTC)
	ix.scheduler.SingletonModeAll()
	_, err := ix.scheduler.Every(ix.every).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		n, err := ix.RunOnce(ctx)
		if err != nil {
			log.Printf("indexer: stopped after %d items: %v", n, err)
			return
		}
		if n > 0 {
			log.Printf("indexer: indexed %d items", n)
		}
	})
	if err != nil {
		return err
	}
	ix.scheduler.StartAsync()
	return nil
}

func (ix *Indexer) Stop() {
	if ix.scheduler != nil {
		ix.scheduler.Stop()
	}
}
