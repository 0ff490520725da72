package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cobranza-bot/internal/domain"
	"cobranza-bot/internal/service"
)

type DebtorHandler struct {
	logger  *zap.Logger
	debtors *service.DebtorService
}

func NewDebtorHandler(logger *zap.Logger, debtors *service.DebtorService) *DebtorHandler {
	return &DebtorHandler{logger: logger, debtors: debtors}
}

// List maneja GET /debtor con filtros, búsqueda y orden por query string.
func (h *DebtorHandler) List(c *gin.Context) {
	skip, limit, ok := pageParams(c)
	if !ok {
		return
	}
	filter := domain.DebtorFilter{
		State:  domain.State(c.Query("state")),
		Search: c.Query("q"),
		SortBy: c.Query("sort"),
		Skip:   skip,
		Limit:  limit,
	}
	datasetID, ok := queryInt(c, "dataset_id", 0)
	if !ok {
		return
	}
	campaignID, ok := queryInt(c, "campaign_id", 0)
	if !ok {
		return
	}
	filter.DatasetID, filter.CampaignID = int64(datasetID), int64(campaignID)

	switch strings.ToLower(c.DefaultQuery("order", "asc")) {
	case "asc":
	case "desc":
		filter.SortDesc = true
	default:
		detail(c, http.StatusBadRequest, "order debe ser asc o desc")
		return
	}

	debtors, err := h.debtors.List(c.Request.Context(), currentUserID(c), filter)
	if err != nil {
		respondError(c, h.logger, "list debtors", err)
		return
	}
	c.JSON(http.StatusOK, debtors)
}

func (h *DebtorHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	d, err := h.debtors.Get(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		respondError(c, h.logger, "get debtor", err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *DebtorHandler) Create(c *gin.Context) {
	var in service.DebtorInput
	if !bindJSON(c, h.logger, &in) {
		return
	}
	d, err := h.debtors.Create(c.Request.Context(), currentUserID(c), in)
	if err != nil {
		respondError(c, h.logger, "create debtor", err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *DebtorHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in service.DebtorInput
	if !bindJSON(c, h.logger, &in) {
		return
	}
	d, err := h.debtors.Update(c.Request.Context(), currentUserID(c), id, in)
	if err != nil {
		respondError(c, h.logger, "update debtor", err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *DebtorHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	d, err := h.debtors.Delete(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		respondError(c, h.logger, "delete debtor", err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// Conversation maneja GET /debtor/{id}/conversation.
func (h *DebtorHandler) Conversation(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	history, err := h.debtors.Conversation(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		respondError(c, h.logger, "debtor conversation", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"debtor_id": id, "conversation_history": history})
}
