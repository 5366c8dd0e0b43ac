package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	logger "gitlab.com/maplesense1/esl.label_server/src/production/ESL.Logger"
)

// RequestLogger writes one access log entry per request
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	log = log.WithComponent("http")

	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		status := ctx.Writer.Status()
		event := log.Logger.Info()
		switch {
		case status >= 500:
			event = log.Logger.Error()
		case status >= 400:
			event = log.Logger.Warn()
		}

		event.
			Str("request_id", GetRequestID(ctx)).
			Str("method", ctx.Request.Method).
			Str("path", ctx.Request.URL.Path).
			Int("status", status).
			Int("bytes", ctx.Writer.Size()).
			Dur("duration", time.Since(start)).
			Str("ip", ctx.ClientIP()).
			Msg("request")
	}
}
