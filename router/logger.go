package router

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger logs method, route, status, latency and client ip. The route template is
// logged instead of the raw path so references and tokens in the URL stay out of the log.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "(no route)"
		}
		log.Printf("%s %s -> %d (%s) ip=%s", c.Request.Method, route, c.Writer.Status(), time.Since(start), c.ClientIP())
		if len(c.Errors) > 0 {
			log.Printf("%s %s errors: %s", c.Request.Method, route, c.Errors.String())
		}
	}
}
