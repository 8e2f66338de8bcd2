package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rubberworks/queuegate/internal/domain/models"
	"github.com/rubberworks/queuegate/internal/service/suppliers"
)

// SupplierHandler serves supplier master data.
type SupplierHandler struct {
	svc    suppliers.Directory
	logger *zap.Logger
}

// NewSupplierHandler constructs the supplier handler.
func NewSupplierHandler(svc suppliers.Directory, logger *zap.Logger) *SupplierHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SupplierHandler{svc: svc, logger: logger}
}

func (h *SupplierHandler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), upstreamToken(c), c.Request.URL.Query())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "total": len(list)})
}

func (h *SupplierHandler) Get(c *gin.Context) {
	supplier, err := h.svc.Get(c.Request.Context(), upstreamToken(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, supplier)
}

func (h *SupplierHandler) Create(c *gin.Context) {
	var supplier models.Supplier
	if err := c.ShouldBindJSON(&supplier); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	created, err := h.svc.Create(c.Request.Context(), upstreamToken(c), supplier)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *SupplierHandler) Update(c *gin.Context) {
	var supplier models.Supplier
	if err := c.ShouldBindJSON(&supplier); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	updated, err := h.svc.Update(c.Request.Context(), upstreamToken(c), c.Param("id"), supplier)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *SupplierHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), upstreamToken(c), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
