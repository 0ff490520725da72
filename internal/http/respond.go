package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cobranza-bot/internal/service"
)

// detail escribe el cuerpo de error que lee la consola.
func detail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": msg})
}

var notFoundErrors = []error{
	service.ErrUserNotFound,
	service.ErrDebtorNotFound,
	service.ErrDatasetNotFound,
	service.ErrCustomFieldNotFound,
	service.ErrStrategyNotFound,
	service.ErrBotNotFound,
	service.ErrCampaignNotFound,
}

var badRequestErrors = []error{
	service.ErrEmailTaken,
	service.ErrInvalidCredentials,
	service.ErrInvalidEmail,
	service.ErrWeakPassword,
}

// respondError traduce errores de servicio a status HTTP. Lo no reconocido
// se loguea y sale como 500 sin exponer el mensaje interno.
func respondError(c *gin.Context, logger *zap.Logger, op string, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		detail(c, http.StatusBadRequest, verr.Error())
		return
	}
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			detail(c, http.StatusNotFound, target.Error())
			return
		}
	}
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			detail(c, http.StatusBadRequest, target.Error())
			return
		}
	}
	switch {
	case errors.Is(err, service.ErrRateLimited):
		detail(c, http.StatusTooManyRequests, "Demasiados intentos, probá más tarde")
	case errors.Is(err, service.ErrLLMUnavailable):
		logger.Warn(op+" failed", zap.Error(err))
		detail(c, http.StatusBadGateway, service.ErrLLMUnavailable.Error())
	default:
		logger.Error(op+" failed", zap.Error(err))
		detail(c, http.StatusInternalServerError, "Error interno del servidor")
	}
}

// bindJSON decodifica el cuerpo y responde 400 si no es JSON válido.
func bindJSON(c *gin.Context, logger *zap.Logger, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		logger.Debug("invalid request body", zap.String("path", c.FullPath()), zap.Error(err))
		detail(c, http.StatusBadRequest, "invalid request")
		return false
	}
	return true
}

func parseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		detail(c, http.StatusUnprocessableEntity, "id inválido")
		return 0, false
	}
	return id, true
}

// queryInt lee un entero opcional de la query string.
func queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		detail(c, http.StatusUnprocessableEntity, name+" debe ser un entero")
		return 0, false
	}
	return n, true
}

func pageParams(c *gin.Context) (skip, limit int, ok bool) {
	if skip, ok = queryInt(c, "skip", 0); !ok {
		return 0, 0, false
	}
	if limit, ok = queryInt(c, "limit", 0); !ok {
		return 0, 0, false
	}
	return skip, limit, true
}

// currentUserID asume que JWTAuthMiddleware ya corrió en la ruta.
func currentUserID(c *gin.Context) int64 {
	claims, _ := GetAuthClaims(c)
	return claims.UserID
}
