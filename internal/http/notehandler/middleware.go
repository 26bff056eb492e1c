package notehandler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"notehubgo/internal/services/identity"
)

const ctxUserID = "userID"

// BearerAuth resolves "Authorization: Bearer <token>" to a user id and
// stashes it in the gin context. Tokens are looked up, never parsed: auth
// protocol design is out of scope here.
func BearerAuth(idSvc identity.IIdentityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		ident, err := idSvc.Resolve(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid token"})
			return
		}
		c.Set(ctxUserID, ident.UserID)
		c.Next()
	}
}

func userID(c *gin.Context) string { return c.GetString(ctxUserID) }
