package controllers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// limite do upload de texto puro (o manual é .txt)
const maxManualBytes = 4 << 20

type ManualRequest struct {
	Document string `json:"document" form:"document"`
	Content  string `json:"content" form:"content"`
}

// GET /api/manual (admin)
func GetManual(c *gin.Context) {
	app, ok := mustManual(c)
	if !ok {
		return
	}
	docs, err := app.Manual.Documents(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"documents": docs})
}

// POST /api/manual (admin)
// Aceita JSON/form {document, content} ou text/plain com ?document=nome.txt.
// Substitui o documento inteiro; o indexer gera os embeddings depois.
func UploadManual(c *gin.Context) {
	app, ok := mustManual(c)
	if !ok {
		return
	}

	var req ManualRequest
	if strings.HasPrefix(c.ContentType(), "text/plain") {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxManualBytes+1))
		if err != nil {
			RespondError(c, err.Error(), http.StatusBadRequest)
			return
		}
		if len(body) > maxManualBytes {
			RespondError(c, "manual muito grande", http.StatusRequestEntityTooLarge)
			return
		}
		req.Document = c.Query("document")
		req.Content = string(body)
	} else if err := c.ShouldBind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}

	n, err := app.Manual.Replace(c.Request.Context(), req.Document, req.Content)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"document": strings.TrimSpace(req.Document), "chunks": n})
}

// DELETE /api/manual/:document (admin)
func DeleteManual(c *gin.Context) {
	app, ok := mustManual(c)
	if !ok {
		return
	}
	if err := app.Manual.Delete(c.Request.Context(), c.Param("document")); err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"deleted": c.Param("document")})
}

func mustManual(c *gin.Context) (*App, bool) {
	app, ok := mustApp(c)
	if !ok {
		return nil, false
	}
	if app.Manual == nil {
		RespondError(c, "manual não configurado", http.StatusInternalServerError)
		return nil, false
	}
	return app, true
}
