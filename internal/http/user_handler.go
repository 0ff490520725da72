package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cobranza-bot/internal/domain"
	"cobranza-bot/internal/service"
)

const refreshCookieName = "refresh_token"

// UserHandler mantiene dependencias para endpoints de autenticación.
type UserHandler struct {
	logger       *zap.Logger
	userServ     *service.UserService
	jwtServ      *service.JWTService
	cookieSecure bool
}

// NewUserHandler crea una instancia de UserHandler con dependencias necesarias.
func NewUserHandler(logger *zap.Logger, userServ *service.UserService, jwtServ *service.JWTService, cookieSecure bool) *UserHandler {
	return &UserHandler{
		logger:       logger,
		userServ:     userServ,
		jwtServ:      jwtServ,
		cookieSecure: cookieSecure,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken  string      `json:"access_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int64       `json:"expires_in"`
	ExpiresAt    int64       `json:"expires_at"`
	RefreshToken string      `json:"refresh_token"`
	User         domain.User `json:"user"`
}

// Register maneja POST /auth/register. El rol siempre es operador.
func (h *UserHandler) Register(c *gin.Context) {
	var req credentialsRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	user, err := h.userServ.Register(c.Request.Context(), req.Email, req.Password, domain.RoleOperator)
	if err != nil {
		respondError(c, h.logger, "register", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Login maneja POST /auth/login.
func (h *UserHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	user, err := h.userServ.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, "login", err)
		return
	}

	tokens, err := h.issueTokens(user)
	if err != nil {
		respondError(c, h.logger, "issue tokens", err)
		return
	}
	h.setRefreshCookie(c, tokens.RefreshToken)
	c.JSON(http.StatusOK, loginResponse{
		AccessToken:  tokens.AccessToken,
		TokenType:    tokens.TokenType,
		ExpiresIn:    tokens.ExpiresIn,
		ExpiresAt:    tokens.ExpiresAt,
		RefreshToken: tokens.RefreshToken,
		User:         user,
	})
}

// RefreshToken maneja POST /auth/refresh. Acepta el token en el cuerpo o en la cookie.
func (h *UserHandler) RefreshToken(c *gin.Context) {
	if h.jwtServ == nil {
		detail(c, http.StatusInternalServerError, "jwt not configured")
		return
	}
	token := h.refreshFromRequest(c)
	if token == "" {
		detail(c, http.StatusUnauthorized, "Refresh token requerido")
		return
	}
	tokens, err := h.jwtServ.RefreshPair(token)
	if err != nil {
		h.logger.Warn("refresh_rejected", zap.Error(err))
		detail(c, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	h.setRefreshCookie(c, tokens.RefreshToken)
	c.JSON(http.StatusOK, tokens)
}

// Logout maneja POST /auth/logout.
func (h *UserHandler) Logout(c *gin.Context) {
	if h.jwtServ == nil {
		detail(c, http.StatusInternalServerError, "jwt not configured")
		return
	}
	if token := h.refreshFromRequest(c); token != "" {
		_ = h.jwtServ.RevokeRefresh(token)
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshCookieName, "", -1, "/", "", h.cookieSecure, true)
	c.Status(http.StatusNoContent)
}

// WhoAmI maneja GET /auth/whoami.
func (h *UserHandler) WhoAmI(c *gin.Context) {
	user, err := h.userServ.GetByID(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, h.logger, "whoami", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// AdminPing maneja GET /auth/admin/ping.
func (h *UserHandler) AdminPing(c *gin.Context) {
	claims, _ := GetAuthClaims(c)
	c.JSON(http.StatusOK, gin.H{"status": "ok", "user_id": claims.UserID, "role": claims.Role})
}

func (h *UserHandler) refreshFromRequest(c *gin.Context) string {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if c.Request.ContentLength > 0 {
		_ = c.ShouldBindJSON(&req)
	}
	if token := strings.TrimSpace(req.RefreshToken); token != "" {
		return token
	}
	cookie, err := c.Cookie(refreshCookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie)
}

func (h *UserHandler) setRefreshCookie(c *gin.Context, token string) {
	maxAge := int(h.jwtServ.RefreshTTL().Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshCookieName, token, maxAge, "/", "", h.cookieSecure, true)
}

func (h *UserHandler) issueTokens(user domain.User) (service.TokenPair, error) {
	if h.jwtServ == nil {
		return service.TokenPair{}, errors.New("jwt not configured")
	}
	return h.jwtServ.GeneratePair(user)
}
