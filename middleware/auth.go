package middleware

import (
	"net/http"
	"strings"

	"github.com/Madhav-Gupta-28/cleen-tokens-backend-go/utils"
	"github.com/labstack/echo/v4"
)

// OperatorAuth guards the operator console with a bearer token issued by
// the admin login handler.
func OperatorAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Missing authorization header"})
			}

			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid authorization header format"})
			}

			claims, err := utils.ValidateJWT(secret, tokenParts[1])
			if err != nil || claims.Role != utils.OperatorRole {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid or expired token"})
			}

			c.Set("operator", claims.Subject)
			return next(c)
		}
	}
}
