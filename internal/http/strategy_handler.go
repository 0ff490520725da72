package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cobranza-bot/internal/service"
)

type StrategyHandler struct {
	logger     *zap.Logger
	strategies *service.StrategyService
}

func NewStrategyHandler(logger *zap.Logger, strategies *service.StrategyService) *StrategyHandler {
	return &StrategyHandler{logger: logger, strategies: strategies}
}

func (h *StrategyHandler) List(c *gin.Context) {
	skip, limit, ok := pageParams(c)
	if !ok {
		return
	}
	list, err := h.strategies.List(c.Request.Context(), currentUserID(c), skip, limit)
	if err != nil {
		respondError(c, h.logger, "list strategies", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *StrategyHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	st, err := h.strategies.Get(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		respondError(c, h.logger, "get strategy", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *StrategyHandler) Create(c *gin.Context) {
	var in service.StrategyInput
	if !bindJSON(c, h.logger, &in) {
		return
	}
	st, err := h.strategies.Create(c.Request.Context(), currentUserID(c), in)
	if err != nil {
		respondError(c, h.logger, "create strategy", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// Update atiende tanto POST /strategy/{id} como PUT.
func (h *StrategyHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in service.StrategyInput
	if !bindJSON(c, h.logger, &in) {
		return
	}
	st, err := h.strategies.Update(c.Request.Context(), currentUserID(c), id, in)
	if err != nil {
		respondError(c, h.logger, "update strategy", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *StrategyHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	st, err := h.strategies.Delete(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		respondError(c, h.logger, "delete strategy", err)
		return
	}
	c.JSON(http.StatusOK, st)
}
