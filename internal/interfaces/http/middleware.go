package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/expenseflow/expenseflow/internal/application/port"
)

const principalKey = "principal"

// authMiddleware verifies the bearer token and stores the resulting principal
// on the request context.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "missing bearer token",
			})
			return
		}

		principal, err := s.identity.VerifyToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "invalid token",
			})
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

func currentPrincipal(c *gin.Context) port.Principal {
	principal, _ := c.Get(principalKey)
	p, _ := principal.(port.Principal)
	return p
}
