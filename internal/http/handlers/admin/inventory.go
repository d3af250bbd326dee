package admin

import (
	"github.com/rifa-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// SetStockRequest sets the absolute stock of one variant at one source.
type SetStockRequest struct {
	VariantID uint `json:"variant_id" binding:"required"`
	SourceID  uint `json:"source_id" binding:"required"`
	Stock     int  `json:"stock"`
}

// SetStock overwrites the stock level of a variant at a source. Stock
// cannot drop below the quantity already reserved there.
func (h *Handler) SetStock(c *gin.Context) {
	var req SetStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid stock payload", err)
		return
	}

	level, err := h.InventoryService.SetStock(req.VariantID, req.SourceID, req.Stock)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	requestLog(c).Infow("stock adjusted",
		"variant_id", req.VariantID, "source_id", req.SourceID, "stock", req.Stock)
	response.Success(c, level)
}

// GetAvailability returns the sellable quantity of a variant across
// all sources.
func (h *Handler) GetAvailability(c *gin.Context) {
	variantID, err := parseIDParam(c)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid variant id", err)
		return
	}

	available, err := h.InventoryService.Availability(variantID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{
		"variant_id": variantID,
		"available":  available,
	})
}
