package importer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"inmobot/db"
	"inmobot/models"
	"inmobot/store"
)

const sample = "\ufeffid_propiedad;padron;id_propiedad_tipo;en_venta;en_alquiler;precio_venta;precio_aqluiler;dormitorios;banios;superficie;direccion;ciudad;zona;descripcion;web_descripcion;piscina;ascensor;garages;gastos_comunes;web_destacada;nombre_contacto;fecha_ingreso\n" +
	"10;PAD-77;Apartment;1;1;185000;900;2;1;75,5;Calle Mayor 1;Xàtiva;Centro;Piso luminoso;;0;1;1;45;1;Ana;2024-03-01\n" +
	"11;;House;0;1;;1200;3;2;;Av. Norte 9;Xàtiva;;;Casa con jardín;1;0;0;;0;;\n" +
	"12;;Land;0;0;;;;;;;Alzira;;;;;;;;;;\n" +
	";;Apartment;1;0;100000;;;;;;Madrid;;;;;;;;;;\n"

type failingStore struct{ calls int }

func (f *failingStore) Upsert(ctx context.Context, l *models.Listing) error {
	f.calls++
	if l.Reference == "REF-11" {
		return errors.New("boom")
	}
	return nil
}

func TestImportMapsRows(t *testing.T) {
	gdb := db.OpenTest(t)
	listings := store.NewListings(gdb)
	im := New(listings)
	im.now = func() time.Time { return time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC) }

	stats, err := im.Import(context.Background(), strings.NewReader(sample))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if stats.Rows != 4 || stats.Imported != 3 || stats.Skipped != 1 || stats.Failed != 0 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.ByCity["Xàtiva"] != 2 || stats.ByOperation[models.LISTING_OPERATION_UNSPECIFIED] != 1 {
		t.Fatalf("breakdown = %+v / %+v", stats.ByCity, stats.ByOperation)
	}

	ctx := context.Background()
	a, err := listings.GetByReference(ctx, "PAD-77")
	if err != nil {
		t.Fatalf("PAD-77: %v", err)
	}
	if a.Operation != models.LISTING_OPERATION_BOTH || a.Price != 185000 {
		t.Fatalf("sale price must win: %s %v", a.Operation, a.Price)
	}
	if a.Kind != "apartment" || a.Bedrooms == nil || *a.Bedrooms != 2 || a.Area == nil || *a.Area != 75.5 {
		t.Fatalf("fields = %+v", a)
	}
	if got := strings.Join(a.Tags(), ","); got != "Ascensor,1 Garage(s)" {
		t.Fatalf("tags = %q", got)
	}
	if !a.Featured || a.Agent != "Ana" || a.CommonExpenses != 45 || !a.Available() {
		t.Fatalf("extras = %+v", a)
	}
	if a.ListedAt == nil || a.ListedAt.Format("2006-01-02") != "2024-03-01" {
		t.Fatalf("listed_at = %v", a.ListedAt)
	}

	b, err := listings.GetByReference(ctx, "REF-11")
	if err != nil {
		t.Fatalf("REF-11: %v", err)
	}
	if b.Operation != models.LISTING_OPERATION_RENT || b.Price != 1200 || b.Description != "Casa con jardín" {
		t.Fatalf("rent row = %+v", b)
	}
	if b.Area != nil || b.Agent != "Sin asignar" || b.ListedAt == nil || b.ListedAt.Year() != 2025 {
		t.Fatalf("defaults = %+v", b)
	}
	if got := strings.Join(b.Tags(), ","); got != "Piscina" {
		t.Fatalf("tags = %q", got)
	}

	c, err := listings.GetByReference(ctx, "REF-12")
	if err != nil {
		t.Fatalf("REF-12: %v", err)
	}
	if c.Available() {
		t.Fatal("neither sale nor rent must be unavailable")
	}
}

func TestImportKeepsDeactivated(t *testing.T) {
	gdb := db.OpenTest(t)
	listings := store.NewListings(gdb)
	im := New(listings)
	ctx := context.Background()

	if _, err := im.Import(ctx, strings.NewReader(sample)); err != nil {
		t.Fatalf("import: %v", err)
	}
	if _, err := listings.Deactivate(ctx, "PAD-77"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := im.Import(ctx, strings.NewReader(sample)); err != nil {
		t.Fatalf("reimport: %v", err)
	}
	l, err := listings.GetByReference(ctx, "PAD-77")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if l.Available() {
		t.Fatal("reimport must not reactivate a listing")
	}
	n, err := listings.CountAvailable(ctx)
	if err != nil || n != 1 {
		t.Fatalf("available = %d, %v", n, err)
	}
}

func TestImportCountsFailures(t *testing.T) {
	fs := &failingStore{}
	stats, err := New(fs).Import(context.Background(), strings.NewReader(sample))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if fs.calls != 3 || stats.Failed != 1 || stats.Imported != 2 {
		t.Fatalf("calls=%d stats=%+v", fs.calls, stats)
	}
}

func TestImportRejectsEmptyInput(t *testing.T) {
	if _, err := New(&failingStore{}).Import(context.Background(), strings.NewReader("")); err == nil {
		t.Fatal("expected header error")
	}
}

func TestSortedKeys(t *testing.T) {
	got := sortedKeys(map[string]int{"b": 2, "a": 2, "c": 5, "d": 1}, 3)
	if strings.Join(got, ",") != "c,a,b" {
		t.Fatalf("got %v", got)
	}
}
