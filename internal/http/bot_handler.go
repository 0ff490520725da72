package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cobranza-bot/internal/service"
)

type BotHandler struct {
	logger *zap.Logger
	bots   *service.BotService
}

func NewBotHandler(logger *zap.Logger, bots *service.BotService) *BotHandler {
	return &BotHandler{logger: logger, bots: bots}
}

func (h *BotHandler) List(c *gin.Context) {
	skip, limit, ok := pageParams(c)
	if !ok {
		return
	}
	list, err := h.bots.List(c.Request.Context(), currentUserID(c), skip, limit)
	if err != nil {
		respondError(c, h.logger, "list bots", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *BotHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	b, err := h.bots.Get(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		respondError(c, h.logger, "get bot", err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BotHandler) Create(c *gin.Context) {
	var in service.BotInput
	if !bindJSON(c, h.logger, &in) {
		return
	}
	b, err := h.bots.Create(c.Request.Context(), currentUserID(c), in)
	if err != nil {
		respondError(c, h.logger, "create bot", err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BotHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in service.BotInput
	if !bindJSON(c, h.logger, &in) {
		return
	}
	b, err := h.bots.Update(c.Request.Context(), currentUserID(c), id, in)
	if err != nil {
		respondError(c, h.logger, "update bot", err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BotHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	b, err := h.bots.Delete(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		respondError(c, h.logger, "delete bot", err)
		return
	}
	c.JSON(http.StatusOK, b)
}
