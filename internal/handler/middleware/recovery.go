package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/imageresizer/internal/dto"
)

// Recovery answers a panicking request with the generic 500 body. Headers
// already flushed by a streaming handler cannot be replaced.
func Recovery() ginext.HandlerFunc {
	return func(c *ginext.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			zlog.Logger.Error().
				Interface("panic", rec).
				Str("request_id", c.GetString(RequestIDKey)).
				Str("route", c.FullPath()).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{
				Error:   "server_error",
				Message: "Internal server error",
			})
		}()

		c.Next()
	}
}
