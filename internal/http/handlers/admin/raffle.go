package admin

import (
	"time"

	handlershared "github.com/rifa-next/internal/http/handlers/shared"
	"github.com/rifa-next/internal/http/response"
	"github.com/rifa-next/internal/repository"
	"github.com/rifa-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateRaffleRequest is the admin raffle creation payload.
type CreateRaffleRequest struct {
	Title          string              `json:"title" binding:"required"`
	Description    string              `json:"description"`
	TicketPriceCLP int64               `json:"ticket_price_clp" binding:"required"`
	TotalTickets   int                 `json:"total_tickets" binding:"required"`
	Status         string              `json:"status"`
	StartsAt       *time.Time          `json:"starts_at"`
	EndsAt         *time.Time          `json:"ends_at"`
	Tiers          []QuantityTierInput `json:"tiers"`
}

// QuantityTierInput is one bulk pricing rule.
type QuantityTierInput struct {
	Quantity int   `json:"quantity" binding:"required"`
	PriceCLP int64 `json:"price_clp" binding:"required"`
}

// UpdateRaffleRequest carries partial raffle edits. Absent fields are
// left untouched.
type UpdateRaffleRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
}

// CreateRaffle creates a raffle with its ticket pool and pricing tiers.
func (h *Handler) CreateRaffle(c *gin.Context) {
	var req CreateRaffleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid raffle payload", err)
		return
	}

	tiers := make([]service.CreateTierInput, 0, len(req.Tiers))
	for _, t := range req.Tiers {
		tiers = append(tiers, service.CreateTierInput{Quantity: t.Quantity, PriceCLP: t.PriceCLP})
	}

	raffle, err := h.RaffleService.CreateRaffle(service.CreateRaffleInput{
		Title:          req.Title,
		Description:    req.Description,
		TicketPriceCLP: req.TicketPriceCLP,
		TotalTickets:   req.TotalTickets,
		Status:         req.Status,
		StartsAt:       req.StartsAt,
		EndsAt:         req.EndsAt,
		Tiers:          tiers,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	requestLog(c).Infow("raffle created", "raffle_id", raffle.ID, "total_tickets", raffle.TotalTickets)
	response.Success(c, raffle)
}

// UpdateRaffle applies a partial raffle edit.
func (h *Handler) UpdateRaffle(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid raffle id", err)
		return
	}
	var req UpdateRaffleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid raffle payload", err)
		return
	}

	raffle, err := h.RaffleService.UpdateRaffle(id, service.UpdateRaffleInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, raffle)
}

// DeleteRaffle removes a raffle. Raffles with paid tickets are kept.
func (h *Handler) DeleteRaffle(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid raffle id", err)
		return
	}
	if err := h.RaffleService.DeleteRaffle(id); err != nil {
		respondServiceError(c, err)
		return
	}
	requestLog(c).Infow("raffle deleted", "raffle_id", id)
	response.Success(c, nil)
}

// ListRaffles lists raffles for the back office, any status.
func (h *Handler) ListRaffles(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	raffles, total, err := h.RaffleService.ListRaffles(repository.RaffleListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   c.Query("status"),
		Search:   c.Query("search"),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, raffles, response.NewPagination(page, pageSize, total))
}

// GetRaffle returns one raffle with tiers, any status.
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

// AddTier adds a bulk pricing rule to an existing raffle.
func (h *Handler) AddTier(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid raffle id", err)
		return
	}
	var req QuantityTierInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid tier payload", err)
		return
	}
	tier, err := h.RaffleService.AddTier(id, service.CreateTierInput{Quantity: req.Quantity, PriceCLP: req.PriceCLP})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, tier)
}

// RemoveTier deletes a pricing tier.
func (h *Handler) RemoveTier(c *gin.Context) {
	tierID, err := handlershared.ParseUintParam(c, "tier_id")
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid tier id", err)
		return
	}
	if err := h.RaffleService.RemoveTier(tierID); err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, nil)
}

// GiveawayRequest grants free tickets to a registered user.
type GiveawayRequest struct {
	UserID   uint `json:"user_id" binding:"required"`
	Quantity int  `json:"quantity" binding:"required"`
}

// GrantGiveaway assigns tickets to a user at no charge, recorded as a
// zero-total paid order so allocation stays auditable.
func (h *Handler) GrantGiveaway(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid raffle id", err)
		return
	}
	var req GiveawayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid giveaway payload", err)
		return
	}

	order, tickets, err := h.RaffleService.GrantGiveaway(id, req.UserID, req.Quantity)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	requestLog(c).Infow("giveaway granted",
		"raffle_id", id, "user_id", req.UserID, "quantity", len(tickets), "order_no", order.OrderNo)
	response.Success(c, gin.H{
		"order":   order,
		"tickets": tickets,
	})
}
