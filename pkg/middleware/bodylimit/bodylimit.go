package bodylimit

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// New caps the readable request body at maxBytes. Reads past the cap fail and
// surface as a 413 from the JSON binder.
func New(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
