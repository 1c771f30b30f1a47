package workers

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"inmobot/db"
	"inmobot/models"
	"inmobot/search"
	"inmobot/store"
)

type countingEmbedder struct {
	calls int
	err   error
}

func (e *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = []float64{float64(len(t)), 1}
	}
	return out, nil
}

func TestIndexerRunOnce(t *testing.T) {
	gdb := db.OpenTest(t)
	for i, ref := range []string{"REF-1", "REF-2", "REF-3"} {
		l := models.Listing{Reference: ref, Kind: "piso", City: "Valencia", Status: models.LISTING_STATUS_AVAILABLE}
		if i == 2 {
			l.Status = models.LISTING_STATUS_UNAVAILABLE
		}
		if err := gdb.Create(&l).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	listings := store.NewListings(gdb)
	emb := &countingEmbedder{}
	ix := NewIndexer(listings, nil, emb, 0)
	ix.batch = 1

	n, err := ix.RunOnce(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("RunOnce = %d, %v; want 2, nil", n, err)
	}
	if emb.calls != 2 {
		t.Errorf("embed calls = %d; want 2", emb.calls)
	}

	got, err := listings.GetByReference(context.Background(), "REF-1")
	if err != nil {
		t.Fatalf("GetByReference: %v", err)
	}
	if v, err := search.ParseEmbedding(got.Embedding); err != nil || len(v) != 2 {
		t.Errorf("stored embedding %q: %v", got.Embedding, err)
	}

	if n, _ := ix.RunOnce(context.Background()); n != 0 {
		t.Errorf("second RunOnce indexed %d; want 0", n)
	}
}

func TestIndexerStopsOnEmbedError(t *testing.T) {
	gdb := db.OpenTest(t)
	l := models.Listing{Reference: "REF-1", Status: models.LISTING_STATUS_AVAILABLE}
	gdb.Create(&l)
	ix := NewIndexer(store.NewListings(gdb), nil, &countingEmbedder{err: errors.New("down")}, 0)
	if _, err := ix.RunOnce(context.Background()); err == nil {
		t.Error("RunOnce with failing embedder = nil error")
	}
}

// poisonEmbedder returns a NaN vector for any text containing poison.
type poisonEmbedder struct {
	poison string
	calls  int
}

func (e *poisonEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	e.calls++
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = []float64{1, 0}
		if strings.Contains(t, e.poison) {
			out[i] = []float64{math.NaN(), 0}
		}
	}
	return out, nil
}

func TestIndexerSkipsUnencodableVectors(t *testing.T) {
	gdb := db.OpenTest(t)
	for _, ref := range []string{"REF-1", "REF-2", "REF-3"} {
		l := models.Listing{Reference: ref, Kind: "piso", Status: models.LISTING_STATUS_AVAILABLE}
		if err := gdb.Create(&l).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	listings := store.NewListings(gdb)
	emb := &poisonEmbedder{poison: "REF-2"}
	ix := NewIndexer(listings, nil, emb, 0)
	ix.batch = 2

	n, err := ix.RunOnce(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("RunOnce = %d, %v; want 2, nil", n, err)
	}
	if emb.calls != 2 {
		t.Errorf("embed calls = %d; want 2 (one per batch)", emb.calls)
	}
	bad, err := listings.GetByReference(context.Background(), "REF-2")
	if err != nil {
		t.Fatal(err)
	}
	if bad.Embedding != "" {
		t.Errorf("REF-2 embedding = %q; want none", bad.Embedding)
	}

	// a próxima rodada tenta de novo só o que falhou
	emb.calls = 0
	if n, err := ix.RunOnce(context.Background()); err != nil || n != 0 || emb.calls != 1 {
		t.Errorf("second RunOnce = %d, %v with %d calls; want 0, nil, 1", n, err, emb.calls)
	}
}

type shortEmbedder struct{}

func (shortEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	return [][]float64{{1}}, nil
}

func TestIndexerRejectsShortBatch(t *testing.T) {
	gdb := db.OpenTest(t)
	for _, ref := range []string{"REF-1", "REF-2"} {
		gdb.Create(&models.Listing{Reference: ref, Status: models.LISTING_STATUS_AVAILABLE})
	}
	ix := NewIndexer(store.NewListings(gdb), nil, shortEmbedder{}, 0)
	if _, err := ix.RunOnce(context.Background()); err == nil {
		t.Error("RunOnce with fewer vectors than texts = nil error")
	}
}

func TestIndexerEmbedsManualChunks(t *testing.T) {
	gdb := db.OpenTest(t)
	manual := store.NewManual(gdb)
	if _, err := manual.Replace(context.Background(), "gestion.txt", "Las reservas requieren señal."); err != nil {
		t.Fatal(err)
	}
	ix := NewIndexer(store.NewListings(gdb), manual, &countingEmbedder{}, 0)

	n, err := ix.RunOnce(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("RunOnce = %d, %v; want 1, nil", n, err)
	}
	chunks, err := manual.Embedded(context.Background())
	if err != nil || len(chunks) != 1 {
		t.Fatalf("Embedded = %d, %v; want 1", len(chunks), err)
	}
	if _, err := search.ParseEmbedding(chunks[0].Embedding); err != nil {
		t.Errorf("stored chunk embedding %q: %v", chunks[0].Embedding, err)
	}
}
