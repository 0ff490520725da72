package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cobranza-bot/internal/service"
)

type DatasetHandler struct {
	logger         *zap.Logger
	datasets       *service.DatasetService
	fields         *service.CustomFieldService
	uploadMaxBytes int64
}

func NewDatasetHandler(logger *zap.Logger, datasets *service.DatasetService, fields *service.CustomFieldService, uploadMaxBytes int64) *DatasetHandler {
	if uploadMaxBytes <= 0 {
		uploadMaxBytes = 10 << 20
	}
	return &DatasetHandler{logger: logger, datasets: datasets, fields: fields, uploadMaxBytes: uploadMaxBytes}
}

type datasetRequest struct {
	Name string `json:"name"`
}

func (h *DatasetHandler) Create(c *gin.Context) {
	var req datasetRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	ds, err := h.datasets.Create(c.Request.Context(), currentUserID(c), req.Name)
	if err != nil {
		respondError(c, h.logger, "create dataset", err)
		return
	}
	c.JSON(http.StatusOK, ds)
}

func (h *DatasetHandler) List(c *gin.Context) {
	skip, limit, ok := pageParams(c)
	if !ok {
		return
	}
	list, err := h.datasets.List(c.Request.Context(), currentUserID(c), skip, limit)
	if err != nil {
		respondError(c, h.logger, "list datasets", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *DatasetHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	ds, err := h.datasets.Get(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		respondError(c, h.logger, "get dataset", err)
		return
	}
	c.JSON(http.StatusOK, ds)
}

func (h *DatasetHandler) Rename(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req datasetRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	ds, err := h.datasets.Rename(c.Request.Context(), currentUserID(c), id, req.Name)
	if err != nil {
		respondError(c, h.logger, "rename dataset", err)
		return
	}
	c.JSON(http.StatusOK, ds)
}

func (h *DatasetHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	ds, err := h.datasets.Delete(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		respondError(c, h.logger, "delete dataset", err)
		return
	}
	c.JSON(http.StatusOK, ds)
}

// Upload maneja POST /debtor-datasets/upload-dataset/ (multipart: file, dataset_name).
func (h *DatasetHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.uploadMaxBytes)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			detail(c, http.StatusRequestEntityTooLarge, "Archivo demasiado grande")
			return
		}
		detail(c, http.StatusBadRequest, "Falta el archivo")
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, h.logger, "open upload", err)
		return
	}
	defer f.Close()

	result, err := h.datasets.Upload(c.Request.Context(), currentUserID(c), c.PostForm("dataset_name"), fh.Filename, f)
	if err != nil {
		respondError(c, h.logger, "upload dataset", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// --- campos personalizados ---

func (h *DatasetHandler) ListFields(c *gin.Context) {
	datasetID, ok := parseID(c, "id")
	if !ok {
		return
	}
	fields, err := h.fields.List(c.Request.Context(), currentUserID(c), datasetID)
	if err != nil {
		respondError(c, h.logger, "list custom fields", err)
		return
	}
	c.JSON(http.StatusOK, fields)
}

func (h *DatasetHandler) CreateField(c *gin.Context) {
	datasetID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in service.CustomFieldInput
	if !bindJSON(c, h.logger, &in) {
		return
	}
	f, err := h.fields.Create(c.Request.Context(), currentUserID(c), datasetID, in)
	if err != nil {
		respondError(c, h.logger, "create custom field", err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (h *DatasetHandler) GetField(c *gin.Context) {
	datasetID, ok := parseID(c, "id")
	if !ok {
		return
	}
	fieldID, ok := parseID(c, "field_id")
	if !ok {
		return
	}
	f, err := h.fields.Get(c.Request.Context(), currentUserID(c), datasetID, fieldID)
	if err != nil {
		respondError(c, h.logger, "get custom field", err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (h *DatasetHandler) UpdateField(c *gin.Context) {
	datasetID, ok := parseID(c, "id")
	if !ok {
		return
	}
	fieldID, ok := parseID(c, "field_id")
	if !ok {
		return
	}
	var in service.CustomFieldInput
	if !bindJSON(c, h.logger, &in) {
		return
	}
	f, err := h.fields.Update(c.Request.Context(), currentUserID(c), datasetID, fieldID, in)
	if err != nil {
		respondError(c, h.logger, "update custom field", err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (h *DatasetHandler) DeleteField(c *gin.Context) {
	datasetID, ok := parseID(c, "id")
	if !ok {
		return
	}
	fieldID, ok := parseID(c, "field_id")
	if !ok {
		return
	}
	f, err := h.fields.Delete(c.Request.Context(), currentUserID(c), datasetID, fieldID)
	if err != nil {
		respondError(c, h.logger, "delete custom field", err)
		return
	}
	c.JSON(http.StatusOK, f)
}
