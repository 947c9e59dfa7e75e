package middleware

import (
	"net/http"

	"github.com/wb-go/wbf/ginext"
)

// corsHeaders opens the API to browser clients on any origin. Downloads
// expose the length and disposition headers to scripts.
var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":   "*",
	"Access-Control-Allow-Methods":  "GET, POST, OPTIONS",
	"Access-Control-Allow-Headers":  "Origin, Content-Type, Accept, " + RequestIDHeader,
	"Access-Control-Expose-Headers": "Content-Length, Content-Disposition, " + RequestIDHeader,
	"Access-Control-Max-Age":        "86400",
}

func CORS() ginext.HandlerFunc {
	return func(c *ginext.Context) {
		h := c.Writer.Header()
		for k, v := range corsHeaders {
			h.Set(k, v)
		}

		// preflight
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
