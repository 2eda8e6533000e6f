package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/raids-lab/folio/internal/resputil"
)

// BodyLimit caps the request body of write routes. Requests that declare a
// larger Content-Length are refused before any part is read; chunked bodies
// fail with *http.MaxBytesError once the limit is crossed.
func BodyLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > limit {
			resputil.HTTPError(c, http.StatusRequestEntityTooLarge, "request body too large", resputil.PayloadTooLarge)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
