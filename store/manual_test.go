package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"inmobot/db"
	"inmobot/models"
)

func TestSplitWords(t *testing.T) {
	tests := []struct {
		text string
		size int
		want []string
	}{
		{"", 3, nil},
		{"  uno\n dos\ttres  ", 3, []string{"uno dos tres"}},
		{"a b c d e f g", 3, []string{"a b c", "d e f", "g"}},
	}
	for _, tt := range tests {
		got := SplitWords(tt.text, tt.size)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") {
			t.Errorf("SplitWords(%q, %d) = %q; want %q", tt.text, tt.size, got, tt.want)
		}
	}
	long := strings.Repeat("palabra ", ManualChunkWords+1)
	if n := len(SplitWords(long, ManualChunkWords)); n != 2 {
		t.Errorf("%d words -> %d chunks; want 2", ManualChunkWords+1, n)
	}
}

func TestManualReplace(t *testing.T) {
	m := NewManual(db.OpenTest(t))
	ctx := context.Background()

	text := strings.Repeat("reserva ", ManualChunkWords) + "señal del diez por ciento"
	n, err := m.Replace(ctx, "gestion.txt", text)
	if err != nil || n != 2 {
		t.Fatalf("Replace = %d, %v; want 2", n, err)
	}

	missing, err := m.MissingEmbeddings(ctx, 0, 10)
	if err != nil || len(missing) != 2 {
		t.Fatalf("MissingEmbeddings = %d, %v; want 2", len(missing), err)
	}
	if err := m.SetEmbedding(ctx, missing[1].ID, "[0,1]"); err != nil {
		t.Fatal(err)
	}
	emb, err := m.Embedded(ctx)
	if err != nil || len(emb) != 1 || emb[0].Content != "señal del diez por ciento" {
		t.Fatalf("Embedded = %+v, %v", emb, err)
	}

	docs, err := m.Documents(ctx)
	if err != nil || len(docs) != 1 || docs[0].Chunks != 2 || docs[0].Indexed != 1 {
		t.Fatalf("Documents = %+v, %v", docs, err)
	}

	// um novo upload substitui o documento inteiro
	if n, err := m.Replace(ctx, "gestion.txt", "solo una línea"); err != nil || n != 1 {
		t.Fatalf("second Replace = %d, %v", n, err)
	}
	if emb, _ := m.Embedded(ctx); len(emb) != 0 {
		t.Errorf("old embeddings survived: %+v", emb)
	}

	if _, err := m.Replace(ctx, "vacio.txt", " \n "); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("empty manual err = %v; want ErrInvalidInput", err)
	}
	if _, err := m.Replace(ctx, " ", "texto"); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("unnamed manual err = %v; want ErrInvalidInput", err)
	}

	if err := m.Delete(ctx, "gestion.txt"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := m.Delete(ctx, "gestion.txt"); err != models.ErrNotFound {
		t.Errorf("second Delete = %v; want ErrNotFound", err)
	}
}
