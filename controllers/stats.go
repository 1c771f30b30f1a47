package controllers

import (
	"net/http"
	"time"

	dbpkg "inmobot/db"
	"inmobot/models"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

type statusCountRow struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

type processedPerDayRow struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

const maxStatsDays = 31

// GET /api/stats (admin)
// Query params:
// - from=YYYY-MM-DD (optional, default: hoje-6)
// - to=YYYY-MM-DD   (optional, default: hoje, inclusivo)
// Retorna contagens por status de imóveis, visitas e eventos, e a série diária de eventos
// respondidos (inclui dias com 0). Os dias são do fuso configurado.
func GetStats(c *gin.Context) {
	app, ok := mustApp(c)
	if !ok {
		return
	}
	db, ok := dbpkg.MustDB(c)
	if !ok {
		return
	}

	loc := app.Config.Location()
	from, to, ok := parseDateRange(c, app.now().In(loc), loc)
	if !ok {
		return
	}

	listings, err := countByStatus(db, "listings")
	if err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	visits, err := countByStatus(db, "visits")
	if err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	events, err := countByStatus(db, "events")
	if err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}

	// O agrupamento por dia é feito aqui e não no SQL: cada dialeto trata
	// timezone de um jeito e o intervalo é limitado a maxStatsDays.
	var processed []models.Event
	if err := db.Select("id, processed_at").
		Where("status = ? AND processed_at IS NOT NULL AND processed_at >= ? AND processed_at < ?",
			models.EVENT_STATUS_DONE, from.UTC(), to.AddDate(0, 0, 1).UTC()).
		Find(&processed).Error; err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}

	RespondSuccess(c, gin.H{
		"from":            from.Format("2006-01-02"),
		"to":              to.Format("2006-01-02"),
		"listings":        listings,
		"visits":          visits,
		"events":          events,
		"processed_daily": fillDailySeries(from, to, bucketByDay(processed, loc)),
	})
}

func countByStatus(db *gorm.DB, table string) ([]statusCountRow, error) {
	var rows []statusCountRow
	err := db.Table(table).
		Select("status, count(*) as count").
		Group("status").
		Order("status asc").
		Scan(&rows).Error
	return rows, err
}

func bucketByDay(events []models.Event, loc *time.Location) map[string]int64 {
	m := map[string]int64{}
	for _, e := range events {
		if e.ProcessedAt == nil {
			continue
		}
		m[e.ProcessedAt.In(loc).Format("2006-01-02")]++
	}
	return m
}

// parseDateRange devolve from/to (inclusivo) no início do dia em loc.
func parseDateRange(c *gin.Context, today time.Time, loc *time.Location) (time.Time, time.Time, bool) {
	day := func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	}
	to := day(today)
	from := to.AddDate(0, 0, -6)

	f, ok := queryDate(c, "from", loc)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	t, ok := queryDate(c, "to", loc)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	if f != nil {
		from = day(*f)
	}
	if t != nil {
		to = day(*t)
	}
	if from.After(to) {
		RespondError(c, "from não pode ser maior que to", http.StatusBadRequest)
		return time.Time{}, time.Time{}, false
	}
	if to.Sub(from) > maxStatsDays*24*time.Hour {
		RespondError(c, "intervalo máximo de 31 dias", http.StatusBadRequest)
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func fillDailySeries(from, to time.Time, counts map[string]int64) []processedPerDayRow {
	var out []processedPerDayRow
	for cur := from; !cur.After(to); cur = cur.AddDate(0, 0, 1) {
		key := cur.Format("2006-01-02")
		out = append(out, processedPerDayRow{Day: key, Count: counts[key]})
	}
	return out
}
