//go:build gcloud

package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"google.golang.org/api/idtoken"
)

// RelayAuth validates the OIDC token Cloud Tasks attaches to the callback.
// With an empty audience every request is rejected.
func RelayAuth(audience string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if audience == "" {
			slog.ErrorContext(ctx, "relay callback audience not configured")
			respondError(c, http.StatusUnauthorized, "unauthorized")
			c.Abort()
			return
		}

		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || raw == "" {
			respondError(c, http.StatusUnauthorized, "missing bearer token")
			c.Abort()
			return
		}

		payload, err := idtoken.Validate(ctx, raw, audience)
		if err != nil {
			slog.WarnContext(ctx, "relay callback token rejected",
				slog.String("error", err.Error()),
			)
			respondError(c, http.StatusUnauthorized, "invalid token")
			c.Abort()
			return
		}

		if email, _ := payload.Claims["email"].(string); email != "" {
			c.Set("relay_caller", email)
		}
		c.Next()
	}
}
