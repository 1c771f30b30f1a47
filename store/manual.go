package store

import (
	"context"
	"fmt"
	"strings"

	"inmobot/models"

	"github.com/jinzhu/gorm"
)

// ManualChunkWords is the size, in words, of each stored manual chunk.
const ManualChunkWords = 500

// ManualDocument summarizes one uploaded manual.
type ManualDocument struct {
	Document string `json:"document"`
	Chunks   int    `json:"chunks"`
	Indexed  int    `json:"indexed"`
}

// Manual is the internal management manual, stored as embedded chunks.
type Manual struct {
	db *gorm.DB
}

func NewManual(db *gorm.DB) *Manual {
	return &Manual{db: db}
}

// SplitWords cuts text into chunks of at most size words. Whitespace is collapsed.
func SplitWords(text string, size int) []string {
	words := strings.Fields(text)
	if size <= 0 {
		size = ManualChunkWords
	}
	var out []string
	for i := 0; i < len(words); i += size {
		end := i + size
		if end > len(words) {
			end = len(words)
		}
		out = append(out, strings.Join(words[i:end], " "))
	}
	return out
}

// Replace swaps every chunk of document for the chunks of text in one
// transaction and returns how many were stored. New chunks have no embedding
// until the indexer runs.
func (s *Manual) Replace(ctx context.Context, document, text string) (int, error) {
	document = strings.TrimSpace(document)
	if document == "" {
		return 0, fmt.Errorf("%w: document name is required", models.ErrInvalidInput)
	}
	chunks := SplitWords(text, ManualChunkWords)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("%w: manual %s is empty", models.ErrInvalidInput, document)
	}

	tx := s.db.Begin()
	if tx.Error != nil {
		return 0, fmt.Errorf("%w: begin: %v", models.ErrPersistence, tx.Error)
	}
	if err := tx.Where("document = ?", document).Delete(&models.ManualChunk{}).Error; err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("%w: clear manual %s: %v", models.ErrPersistence, document, err)
	}
	for i, c := range chunks {
		chunk := models.ManualChunk{Document: document, Position: i, Content: c}
		if err := tx.Create(&chunk).Error; err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("%w: insert manual chunk %d: %v", models.ErrPersistence, i, err)
		}
	}
	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("%w: commit manual %s: %v", models.ErrPersistence, document, err)
	}
	return len(chunks), nil
}

// Documents lists the stored manuals with their chunk and indexed counts.
func (s *Manual) Documents(ctx context.Context) ([]ManualDocument, error) {
	var out []ManualDocument
	err := s.db.Model(&models.ManualChunk{}).
		Select("document, COUNT(*) AS chunks, " +
			"SUM(CASE WHEN embedding IS NOT NULL AND embedding <> '' THEN 1 ELSE 0 END) AS indexed").
		Group("document").
		Order("document asc").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("%w: manual documents: %v", models.ErrPersistence, err)
	}
	return out, nil
}

// Delete removes every chunk of document.
func (s *Manual) Delete(ctx context.Context, document string) error {
	res := s.db.Where("document = ?", strings.TrimSpace(document)).Delete(&models.ManualChunk{})
	if res.Error != nil {
		return fmt.Errorf("%w: delete manual %s: %v", models.ErrPersistence, document, res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

// MissingEmbeddings returns up to limit chunks without an embedding and with
// id > afterID, in id order.
func (s *Manual) MissingEmbeddings(ctx context.Context, afterID int64, limit int) ([]models.ManualChunk, error) {
	var out []models.ManualChunk
	err := s.db.
		Where("embedding IS NULL OR embedding = ''").
		Where("id > ?", afterID).
		Order("id asc").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("%w: manual missing embeddings: %v", models.ErrPersistence, err)
	}
	return out, nil
}

// SetEmbedding stores the JSON-encoded embedding of a chunk.
func (s *Manual) SetEmbedding(ctx context.Context, id int64, embedding string) error {
	err := s.db.Model(&models.ManualChunk{}).Where("id = ?", id).
		UpdateColumn("embedding", embedding).Error
	if err != nil {
		return fmt.Errorf("%w: set manual embedding %d: %v", models.ErrPersistence, id, err)
	}
	return nil
}

// Embedded returns every chunk that already has an embedding.
func (s *Manual) Embedded(ctx context.Context) ([]models.ManualChunk, error) {
	var out []models.ManualChunk
	err := s.db.
		Where("embedding IS NOT NULL AND embedding <> ''").
		Order("document asc, position asc").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("%w: manual chunks: %v", models.ErrPersistence, err)
	}
	return out, nil
}
