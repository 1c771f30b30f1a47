package db

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

const dbKey = "db"

// SetDBtoContext exposes the database to handlers through the gin context.
func SetDBtoContext(database *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(dbKey, database)
		c.Next()
	}
}

// DBInstance returns the request's database, or nil when the middleware is missing.
func DBInstance(c *gin.Context) *gorm.DB {
	v, ok := c.Get(dbKey)
	if !ok {
		return nil
	}
	db, _ := v.(*gorm.DB)
	return db
}

// MustDB is DBInstance for handlers that cannot work without a database: it answers
// 500 and aborts when there is none.
func MustDB(c *gin.Context) (*gorm.DB, bool) {
	db := DBInstance(c)
	if db == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "db não configurado no contexto"})
		return nil, false
	}
	return db, true
}
