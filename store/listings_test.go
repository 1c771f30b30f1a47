package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"inmobot/db"
	"inmobot/models"

	"github.com/jinzhu/gorm"
)

func intPtr(n int) *int { return &n }

func seed(t *testing.T, gdb *gorm.DB, ls ...models.Listing) {
	t.Helper()
	for i := range ls {
		if ls[i].Status == "" {
			ls[i].Status = models.LISTING_STATUS_AVAILABLE
		}
		if err := gdb.Create(&ls[i]).Error; err != nil {
			t.Fatalf("seed %s: %v", ls[i].Reference, err)
		}
	}
}

func fixture(t *testing.T) (*Listings, *gorm.DB) {
	gdb := db.OpenTest(t)
	seed(t, gdb,
		models.Listing{Reference: "REF-1", Kind: "apartment", Operation: "sale", Price: 250000, Bedrooms: intPtr(2), City: "Montevideo", Zone: "Pocitos", Description: "Luminoso con vista al mar"},
		models.Listing{Reference: "REF-2", Kind: "house", Operation: "rent", Price: 1200, Bedrooms: intPtr(3), City: "Montevideo", Zone: "Carrasco", Description: "Casa con jardín y parrillero"},
		models.Listing{Reference: "REF-3", Kind: "house", Operation: "both", Price: 250000, Bedrooms: intPtr(4), City: "Punta del Este", Description: "Frente al mar"},
		models.Listing{Reference: "REF-4", Kind: "commercial", Operation: "rent", Price: 0, City: "Montevideo", Description: "Local sobre avenida"},
		models.Listing{Reference: "REF-5", Kind: "apartment", Operation: "sale", Price: 90000, City: "Salto", Status: models.LISTING_STATUS_UNAVAILABLE},
	)
	return NewListings(gdb), gdb
}

func refs(ls []models.Listing) string {
	out := make([]string, 0, len(ls))
	for _, l := range ls {
		out = append(out, l.Reference)
	}
	return strings.Join(out, ",")
}

func TestListingsSearchFilters(t *testing.T) {
	s, _ := fixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		f    Filter
		want string
	}{
		{"no filter orders by price desc then ref", Filter{}, "REF-1,REF-3,REF-2,REF-4"},
		{"kind", Filter{Kinds: []string{"House"}}, "REF-3,REF-2"},
		{"sale includes both", Filter{Operation: "sale"}, "REF-1,REF-3"},
		{"rent includes both", Filter{Operation: "rent"}, "REF-3,REF-2,REF-4"},
		{"price range", Filter{PriceMin: 1000, PriceMax: 200000}, "REF-2"},
		{"bedrooms skips unknown", Filter{MinBedrooms: 3}, "REF-3,REF-2"},
		{"city substring", Filter{City: "punta"}, "REF-3"},
		{"keywords all must match", Filter{Keywords: []string{"mar", "luminoso"}}, "REF-1"},
		{"keyword over zone", Filter{Keywords: []string{"carrasco"}}, "REF-2"},
		{"nothing matches", Filter{City: "Paysandu"}, ""},
	}

	for _, tt := range tests {
		got, err := s.Search(ctx, tt.f)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if refs(got) != tt.want {
			t.Errorf("%s: got %q; want %q", tt.name, refs(got), tt.want)
		}
		for _, l := range got {
			if !l.Available() {
				t.Errorf("%s: returned unavailable listing %s", tt.name, l.Reference)
			}
		}
	}
}

func TestListingsSearchWildcardsAreLiteral(t *testing.T) {
	gdb := db.OpenTest(t)
	seed(t, gdb,
		models.Listing{Reference: "REF-A", Kind: "apartment", Price: 3, Description: "Financiación al 50% disponible"},
		models.Listing{Reference: "REF-B", Kind: "apartment", Price: 2, Description: "Entrega 50 días", City: "Sant_Joan"},
		models.Listing{Reference: "REF-C", Kind: "house", Price: 1, Description: "¡Oferta! jardín", City: "Santajoana"},
	)
	l := NewListings(gdb)

	tests := []struct {
		name string
		f    Filter
		want string
	}{
		{"percent alone is not match-all", Filter{Keywords: []string{"%"}}, "REF-A"},
		{"percent is literal", Filter{Keywords: []string{"50%"}}, "REF-A"},
		{"underscore alone is not match-all", Filter{Keywords: []string{"_"}}, "REF-B"},
		{"underscore in city is literal", Filter{City: "sant_j"}, "REF-B"},
		{"escape char is literal", Filter{Keywords: []string{"oferta!"}}, "REF-C"},
	}
	for _, tt := range tests {
		got, err := l.Search(context.Background(), tt.f)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if refs(got) != tt.want {
			t.Errorf("%s: got %q; want %q", tt.name, refs(got), tt.want)
		}
	}
}

func TestListingsSearchCapsResults(t *testing.T) {
	gdb := db.OpenTest(t)
	for i := 0; i < 15; i++ {
		seed(t, gdb, models.Listing{Reference: fmt.Sprintf("REF-%02d", i), Kind: "apartment", Price: float64(i)})
	}
	got, err := NewListings(gdb).Search(context.Background(), Filter{Limit: 50})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != MaxResults {
		t.Errorf("len = %d; want %d", len(got), MaxResults)
	}
}

func TestListingsGetByReference(t *testing.T) {
	s, _ := fixture(t)
	ctx := context.Background()

	a, err := s.GetByReference(ctx, "ref-2")
	if err != nil {
		t.Fatalf("GetByReference: %v", err)
	}
	b, err := s.GetByReference(ctx, "REF-2")
	if err != nil {
		t.Fatalf("GetByReference: %v", err)
	}
	if a.ID != b.ID || a.Reference != "REF-2" {
		t.Errorf("lookups differ: %+v vs %+v", a, b)
	}

	if _, err := s.GetByReference(ctx, "REF-404"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("missing ref err = %v; want ErrNotFound", err)
	}
}

func TestListingsCountAndDeactivate(t *testing.T) {
	s, _ := fixture(t)
	ctx := context.Background()

	n, err := s.CountAvailable(ctx)
	if err != nil || n != 4 {
		t.Fatalf("CountAvailable = %d, %v; want 4", n, err)
	}

	l, err := s.Deactivate(ctx, "ref-1")
	if err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if l.Status != models.LISTING_STATUS_UNAVAILABLE {
		t.Errorf("status = %s; want unavailable", l.Status)
	}
	if n, _ := s.CountAvailable(ctx); n != 3 {
		t.Errorf("CountAvailable after deactivate = %d; want 3", n)
	}
	got, _ := s.Search(ctx, Filter{Keywords: []string{"luminoso"}})
	if len(got) != 0 {
		t.Errorf("deactivated listing still searchable: %s", refs(got))
	}
}

func TestListingsUpsertKeepsUnavailable(t *testing.T) {
	s, _ := fixture(t)
	ctx := context.Background()

	l := models.Listing{Reference: "REF-5", Kind: "apartment", Status: models.LISTING_STATUS_AVAILABLE, Price: 95000}
	if err := s.Upsert(ctx, &l); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, err := s.GetByReference(ctx, "REF-5")
	if err != nil {
		t.Fatal(err)
	}
	if got.Available() {
		t.Error("upsert re-activated an unavailable listing")
	}
	if got.Price != 95000 {
		t.Errorf("price = %v; want 95000", got.Price)
	}

	fresh := models.Listing{Reference: "REF-9", Kind: "land", Status: models.LISTING_STATUS_AVAILABLE}
	if err := s.Upsert(ctx, &fresh); err != nil {
		t.Fatalf("Upsert new: %v", err)
	}
	if fresh.ID == 0 {
		t.Error("new listing should get an id")
	}
}

func TestListingsEmbeddings(t *testing.T) {
	s, _ := fixture(t)
	ctx := context.Background()

	missing, err := s.MissingEmbeddings(ctx, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(missing) != 4 {
		t.Fatalf("missing = %d; want 4", len(missing))
	}
	if err := s.SetEmbedding(ctx, missing[0].ID, "[1,0]"); err != nil {
		t.Fatal(err)
	}
	rest, err := s.MissingEmbeddings(ctx, missing[1].ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 2 {
		t.Errorf("missing after %d = %d; want 2", missing[1].ID, len(rest))
	}
	cands, err := s.Candidates(ctx, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(cands) != 1 || cands[0].ID != missing[0].ID {
		t.Errorf("candidates = %s; want only %s", refs(cands), missing[0].Reference)
	}
}
