// Package server is the local HTTP surface of gptdesk. Each route maps one
// request onto one pkg/gpt call, with options in the request body layered
// over the configured defaults.
package server

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/r9s-ai/gptdesk/internal/auth"
	"github.com/r9s-ai/gptdesk/internal/version"
)

func NewRouter(st *state, accessLogger *log.Logger, accessColor bool) *gin.Engine {
	registerMetrics()

	r := gin.New()
	r.Use(requestIDMiddleware())
	r.Use(metricsMiddleware())
	if accessLogger != nil {
		r.Use(requestLoggerWithColor(accessLogger, accessColor))
	}
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ok":         true,
			"version":    version.Short(),
			"started_at": st.StartedAtUnix(),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	secured := r.Group("/")
	secured.Use(auth.Middleware(st.Keys))

	secured.POST("/admin/reload", func(c *gin.Context) {
		if err := st.reload(); err != nil {
			writeError(c, http.StatusInternalServerError, "server_error", "reload_failed", err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	v1 := secured.Group("/v1")
	v1.POST("/chat", handleChat(st))
	v1.POST("/completions", handleComplete(st))
	v1.POST("/embeddings", handleEmbed(st))
	v1.POST("/images", handleImage(st))
	v1.POST("/speech", handleSpeech(st))
	v1.POST("/transcriptions", handleTranscribe(st))
	v1.POST("/translations", handleTranslate(st))
	v1.POST("/assistants/:id/ask", handleAsk(st))
	v1.GET("/models", handleModels(st))
	return r
}
