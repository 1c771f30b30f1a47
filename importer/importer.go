// Package importer loads the agency's catalogue export (semicolon separated CSV) into the
// listings table.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"inmobot/models"
)

// Store receives the mapped rows; store.Listings implements it.
type Store interface {
	Upsert(ctx context.Context, l *models.Listing) error
}

// Stats summarizes one import run.
type Stats struct {
	Rows        int
	Imported    int
	Skipped     int
	Failed      int
	ByOperation map[string]int
	ByCity      map[string]int
}

type Importer struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Importer {
	return &Importer{store: store, now: time.Now}
}

// ImportFile opens path and imports it, logging the summary.
func (im *Importer) ImportFile(ctx context.Context, path string) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("importer: open %q: %w", path, err)
	}
	defer f.Close()

	stats, err := im.Import(ctx, f)
	if err != nil {
		return stats, err
	}
	stats.log()
	return stats, nil
}

// Import reads the header row and upserts every data row by reference.
// Rows without a reference are skipped; a failed upsert is counted and the import goes on.
func (im *Importer) Import(ctx context.Context, r io.Reader) (Stats, error) {
	stats := Stats{ByOperation: map[string]int{}, ByCity: map[string]int{}}

	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return stats, fmt.Errorf("importer: read header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		columns[strings.ToLower(strings.TrimSpace(h))] = i
	}
	log.Printf("importer: %d columns detected", len(columns))

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				stats.Rows++
				stats.Failed++
				log.Printf("importer: skipping line %d: %v", perr.Line, err)
				continue
			}
			return stats, fmt.Errorf("importer: read: %w", err)
		}
		stats.Rows++

		l, ok := mapRow(row{columns: columns, values: record}, im.now())
		if !ok {
			stats.Skipped++
			continue
		}
		if err := im.store.Upsert(ctx, l); err != nil {
			stats.Failed++
			log.Printf("importer: %s: %v", l.Reference, err)
			continue
		}
		stats.Imported++
		stats.ByOperation[l.Operation]++
		if l.City != "" {
			stats.ByCity[l.City]++
		}
	}
	return stats, nil
}

func (s Stats) log() {
	log.Printf("importer: %d rows, %d imported, %d skipped, %d failed", s.Rows, s.Imported, s.Skipped, s.Failed)
	for _, op := range sortedKeys(s.ByOperation, 0) {
		log.Printf("importer:   operation %s: %d", op, s.ByOperation[op])
	}
	for _, city := range sortedKeys(s.ByCity, 10) {
		log.Printf("importer:   city %s: %d", city, s.ByCity[city])
	}
}

// sortedKeys orders by count desc then name; limit 0 means all.
func sortedKeys(m map[string]int, limit int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	return keys
}

type row struct {
	columns map[string]int
	values  []string
}

func (r row) get(name string) string {
	i, ok := r.columns[name]
	if !ok || i >= len(r.values) {
		return ""
	}
	return strings.TrimSpace(r.values[i])
}

func (r row) flag(name string) bool {
	v := strings.ToLower(r.get(name))
	return v == "1" || v == "true"
}

// mapRow converts one CSV row into a listing. ok is false when the row has no reference.
func mapRow(r row, now time.Time) (*models.Listing, bool) {
	ref := r.get("padron")
	if ref == "" {
		if id := r.get("id_propiedad"); id != "" {
			ref = "REF-" + id
		}
	}
	if ref == "" {
		return nil, false
	}

	sale, rent := r.flag("en_venta"), r.flag("en_alquiler")
	l := &models.Listing{
		Reference:      ref,
		Kind:           strings.ToLower(r.get("id_propiedad_tipo")),
		Operation:      operation(sale, rent),
		Bedrooms:       parseOptionalInt(r.get("dormitorios")),
		Bathrooms:      parseOptionalInt(r.get("banios")),
		Area:           parseOptionalFloat(r.get("superficie")),
		Address:        r.get("direccion"),
		City:           r.get("ciudad"),
		Department:     r.get("departamento"),
		Zone:           r.get("zona"),
		Description:    firstNonEmpty(r.get("descripcion"), r.get("web_descripcion")),
		Status:         models.LISTING_STATUS_UNAVAILABLE,
		Agent:          firstNonEmpty(r.get("nombre_contacto"), "Sin asignar"),
		Garages:        intOrZero(r.get("garages")),
		CommonExpenses: floatOrZero(r.get("gastos_comunes")),
		Featured:       r.flag("web_destacada"),
	}
	if sale || rent {
		l.Status = models.LISTING_STATUS_AVAILABLE
	}

	// venta tem prioridade sobre alquiler
	switch {
	case sale && r.get("precio_venta") != "":
		l.Price = floatOrZero(r.get("precio_venta"))
	case rent:
		// a exportação traz a coluna com o nome trocado
		l.Price = floatOrZero(firstNonEmpty(r.get("precio_aqluiler"), r.get("precio_alquiler")))
	}

	listed := parseDate(r.get("fecha_ingreso"))
	if listed == nil {
		listed = &now
	}
	l.ListedAt = listed

	l.SetTags(tags(r, l.Garages))
	return l, true
}

func operation(sale, rent bool) string {
	switch {
	case sale && rent:
		return models.LISTING_OPERATION_BOTH
	case sale:
		return models.LISTING_OPERATION_SALE
	case rent:
		return models.LISTING_OPERATION_RENT
	}
	return models.LISTING_OPERATION_UNSPECIFIED
}

var featureColumns = []struct{ column, tag string }{
	{"piscina", "Piscina"},
	{"parrillero", "Parrillero"},
	{"calefaccion", "Calefacción"},
	{"amueblado", "Amueblado"},
	{"ascensor", "Ascensor"},
	{"seguridad", "Seguridad"},
}

func tags(r row, garages int) []string {
	var out []string
	for _, f := range featureColumns {
		if r.get(f.column) == "1" {
			out = append(out, f.tag)
		}
	}
	if garages > 0 {
		out = append(out, fmt.Sprintf("%d Garage(s)", garages))
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// normalizeDecimal aceita "1234,5" além de "1234.5".
func normalizeDecimal(s string) string {
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		return strings.Replace(s, ",", ".", 1)
	}
	return s
}

func parseOptionalFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(normalizeDecimal(s), 64)
	if err != nil || f <= 0 {
		return nil
	}
	return &f
}

func parseOptionalInt(s string) *int {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

func floatOrZero(s string) float64 {
	if f := parseOptionalFloat(s); f != nil {
		return *f
	}
	return 0
}

func intOrZero(s string) int {
	if n := parseOptionalInt(s); n != nil {
		return *n
	}
	return 0
}

var dateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", "02/01/2006", time.RFC3339}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
