package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"cobranza-bot/internal/domain"
	"cobranza-bot/internal/service"
)

const authClaimsKey = "auth_claims"

// JWTAuthMiddleware valida JWT access tokens y guarda claims en el contexto.
func JWTAuthMiddleware(jwtSvc *service.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if jwtSvc == nil {
			detail(c, http.StatusInternalServerError, "jwt not configured")
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			c.Header("WWW-Authenticate", "Bearer")
			detail(c, http.StatusUnauthorized, "Not authenticated")
			return
		}

		token := strings.TrimSpace(header[len("Bearer "):])
		claims, err := jwtSvc.ParseAccessToken(token)
		if err != nil {
			c.Header("WWW-Authenticate", "Bearer")
			detail(c, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		c.Set(authClaimsKey, claims)
		c.Next()
	}
}

// RequireRole corta con 403 si el rol del token no coincide.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetAuthClaims(c)
		if !ok {
			detail(c, http.StatusUnauthorized, "Not authenticated")
			return
		}
		if claims.Role != role && claims.Role != domain.RoleAdmin {
			detail(c, http.StatusForbidden, "Permisos insuficientes")
			return
		}
		c.Next()
	}
}

// GetAuthClaims obtiene claims de JWT desde el contexto.
func GetAuthClaims(c *gin.Context) (service.Claims, bool) {
	val, ok := c.Get(authClaimsKey)
	if !ok {
		return service.Claims{}, false
	}
	claims, ok := val.(service.Claims)
	return claims, ok
}
