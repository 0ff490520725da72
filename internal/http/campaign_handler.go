package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cobranza-bot/internal/service"
)

type CampaignHandler struct {
	logger    *zap.Logger
	campaigns *service.CampaignService
}

func NewCampaignHandler(logger *zap.Logger, campaigns *service.CampaignService) *CampaignHandler {
	return &CampaignHandler{logger: logger, campaigns: campaigns}
}

func (h *CampaignHandler) List(c *gin.Context) {
	skip, limit, ok := pageParams(c)
	if !ok {
		return
	}
	list, err := h.campaigns.List(c.Request.Context(), currentUserID(c), skip, limit)
	if err != nil {
		respondError(c, h.logger, "list campaigns", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *CampaignHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	camp, err := h.campaigns.Get(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		respondError(c, h.logger, "get campaign", err)
		return
	}
	c.JSON(http.StatusOK, camp)
}

func (h *CampaignHandler) Create(c *gin.Context) {
	var in service.CampaignInput
	if !bindJSON(c, h.logger, &in) {
		return
	}
	camp, err := h.campaigns.Create(c.Request.Context(), currentUserID(c), in)
	if err != nil {
		respondError(c, h.logger, "create campaign", err)
		return
	}
	c.JSON(http.StatusOK, camp)
}

func (h *CampaignHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in service.CampaignInput
	if !bindJSON(c, h.logger, &in) {
		return
	}
	camp, err := h.campaigns.Update(c.Request.Context(), currentUserID(c), id, in)
	if err != nil {
		respondError(c, h.logger, "update campaign", err)
		return
	}
	c.JSON(http.StatusOK, camp)
}

func (h *CampaignHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	camp, err := h.campaigns.Delete(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		respondError(c, h.logger, "delete campaign", err)
		return
	}
	c.JSON(http.StatusOK, camp)
}

// Launch maneja GET /campaign/throw-campaign/{id}. Bloquea hasta terminar los envíos.
func (h *CampaignHandler) Launch(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	report, err := h.campaigns.Launch(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		respondError(c, h.logger, "launch campaign", err)
		return
	}
	c.JSON(http.StatusOK, report)
}
