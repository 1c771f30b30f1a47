package search

import (
	"context"
	"errors"
	"strings"
	"testing"

	"inmobot/models"
)

type fakeChunks struct {
	items []models.ManualChunk
	err   error
}

func (f fakeChunks) Embedded(ctx context.Context) ([]models.ManualChunk, error) {
	return f.items, f.err
}

func TestManualLookup(t *testing.T) {
	chunks := fakeChunks{items: []models.ManualChunk{
		{ID: 1, Content: "Las reservas requieren una señal del 10%.", Embedding: "[1,0]"},
		{ID: 2, Content: "Horario de oficina: 9 a 18.", Embedding: "[0,1]"},
		{ID: 3, Content: "Devolución de la señal en 48 horas.", Embedding: "[0.9,0.1]"},
		{ID: 4, Content: "Las llaves se entregan en notaría.", Embedding: "[0.8,0.2]"},
		{ID: 5, Content: "Política de mascotas.", Embedding: "[0.7,0.3]"},
		{ID: 6, Content: "roto", Embedding: "[NaN]"},
	}}
	m := NewManual(chunks, &fakeRanker{vec: []float64{1, 0}}, 0.5)

	got, err := m.Lookup(context.Background(), "¿cómo funciona la señal?")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(got) != ManualTopK {
		t.Fatalf("Lookup = %d chunks; want %d: %q", len(got), ManualTopK, got)
	}
	if !strings.Contains(got[0], "señal del 10%") || strings.Contains(strings.Join(got, "|"), "Horario") {
		t.Errorf("Lookup order = %q", got)
	}
}

func TestManualLookupEmptyAndErrors(t *testing.T) {
	ctx := context.Background()

	r := &fakeRanker{vec: []float64{1, 0}}
	got, err := NewManual(fakeChunks{}, r, 0.5).Lookup(ctx, "manual")
	if err != nil || len(got) != 0 {
		t.Errorf("empty manual = %q, %v", got, err)
	}
	if r.calls != 0 {
		t.Errorf("empty manual should not embed the question")
	}

	items := []models.ManualChunk{{ID: 1, Content: "x", Embedding: "[1,0]"}}
	_, err = NewManual(fakeChunks{items: items}, &fakeRanker{err: errors.New("down")}, 0.5).Lookup(ctx, "manual")
	if !errors.Is(err, models.ErrUpstreamUnavailable) {
		t.Errorf("ranker down err = %v; want ErrUpstreamUnavailable", err)
	}

	got, err = NewManual(fakeChunks{items: items}, &fakeRanker{vec: []float64{0, 1}}, 0.5).Lookup(ctx, "manual")
	if err != nil || len(got) != 0 {
		t.Errorf("below threshold = %q, %v; want none", got, err)
	}
}
