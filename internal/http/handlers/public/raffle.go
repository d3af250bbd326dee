package public

import (
	"strconv"

	"github.com/rifa-next/internal/constants"
	handlershared "github.com/rifa-next/internal/http/handlers/shared"
	"github.com/rifa-next/internal/http/response"
	"github.com/rifa-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListRaffles lists raffles open for purchase.
func (h *Handler) ListRaffles(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	raffles, total, err := h.RaffleService.ListRaffles(repository.RaffleListFilter{
		Status:   constants.RaffleStatusActive,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, raffles, response.NewPagination(page, pageSize, total))
}

// GetRaffle returns one raffle with its pricing tiers.
func (h *Handler) GetRaffle(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid raffle id", err)
		return
	}
	raffle, err := h.RaffleService.GetRaffle(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, raffle)
}

// GetRaffleAvailability returns the remaining ticket counter.
func (h *Handler) GetRaffleAvailability(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid raffle id", err)
		return
	}
	availability, err := h.RaffleService.GetAvailability(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, availability)
}

// QuoteRaffle prices a prospective purchase.
func (h *Handler) QuoteRaffle(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid raffle id", err)
		return
	}
	quantity, err := strconv.Atoi(c.DefaultQuery("quantity", "1"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid quantity", err)
		return
	}
	quote, err := h.RaffleService.Quote(id, quantity)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, quote)
}

func parseIDParam(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
