// Package auth guards the local HTTP surface with bearer access keys.
package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/r9s-ai/gptdesk/internal/keystore"
)

//nolint:gosec // context key identifier, not credential material
const CtxAccessKeyName = "gptdesk.access_key_name"

// Middleware accepts `Authorization: Bearer <key>` or `x-api-key: <key>`.
// keys is resolved on every request so a reloaded store takes effect at once.
func Middleware(keys func() *keystore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		store := keys()
		if store.Len() == 0 {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{
					"message": "server misconfigured: no access keys",
					"type":    "server_error",
					"code":    "server_misconfigured",
				},
			})
			return
		}

		ak, ok := store.MatchAccessKey(tokenFrom(c))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"message": "unauthorized",
					"type":    "invalid_request_error",
					"code":    "invalid_api_key",
				},
			})
			return
		}
		c.Set(CtxAccessKeyName, ak.Name)
		c.Next()
	}
}

func tokenFrom(c *gin.Context) string {
	if v := strings.TrimSpace(c.GetHeader("Authorization")); len(v) > 7 && strings.EqualFold(v[:7], "Bearer ") {
		return strings.TrimSpace(v[7:])
	}
	return strings.TrimSpace(c.GetHeader("x-api-key"))
}
