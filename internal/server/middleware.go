package server

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/r9s-ai/gptdesk/internal/auth"
	"github.com/r9s-ai/gptdesk/internal/logx"
	"github.com/r9s-ai/gptdesk/pkg/requestid"
)

const (
	ctxEndpoint = "gptdesk.endpoint"
	ctxModel    = "gptdesk.model"
	ctxErrType  = "gptdesk.error_type"
)

// requestIDMiddleware reuses the caller's X-Client-Request-Id or generates
// one. The id is put on the request context so the outbound API call and its
// dump file share it.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestid.HeaderKey))
		if id == "" {
			id = requestid.Gen()
		}
		c.Header(requestid.HeaderKey, id)
		c.Set(requestid.HeaderKey, id)
		c.Request = c.Request.WithContext(requestid.WithID(c.Request.Context(), id))
		c.Next()
	}
}

func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		inFlight.Inc()
		defer inFlight.Dec()
		c.Next()
		observeRequest(c.FullPath(), c.Writer.Status(), time.Since(start).Seconds())
	}
}

func requestLoggerWithColor(l *log.Logger, color bool) gin.HandlerFunc {
	if l == nil {
		l = log.New(os.Stdout, "", 0)
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]any{}
		if v := c.GetString(requestid.HeaderKey); v != "" {
			fields["request_id"] = v
		}
		for key, field := range map[string]string{
			ctxEndpoint:           "endpoint",
			ctxModel:              "model",
			ctxErrType:            "error_type",
			auth.CtxAccessKeyName: "key",
		} {
			if v := c.GetString(key); v != "" {
				fields[field] = v
			}
		}
		l.Println(logx.FormatRequestLineWithColor(time.Now(), c.Writer.Status(), time.Since(start), c.ClientIP(), c.Request.Method, c.Request.URL.Path, fields, color))
	}
}
