package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rifa-next/internal/cache"
	"github.com/rifa-next/internal/constants"
	"github.com/rifa-next/internal/logger"
	"github.com/rifa-next/internal/models"
	"github.com/rifa-next/internal/repository"

	"gorm.io/gorm"
)

// availabilityCacheTTL bounds how stale the public availability counter
// may be. Checkout never reads the cache; it counts inside its own
// transaction.
const availabilityCacheTTL = 5 * time.Second

// RaffleService manages raffles, their pricing tiers and the numbered
// ticket pool, including the allocator that assigns tickets to paying
// orders.
type RaffleService struct {
	raffleRepo repository.RaffleRepository
	ticketRepo repository.RaffleTicketRepository
	entryRepo  repository.RaffleEntryRepository
	orderRepo  repository.OrderRepository
}

// NewRaffleService creates a raffle service.
func NewRaffleService(
	raffleRepo repository.RaffleRepository,
	ticketRepo repository.RaffleTicketRepository,
	entryRepo repository.RaffleEntryRepository,
	orderRepo repository.OrderRepository,
) *RaffleService {
	return &RaffleService{
		raffleRepo: raffleRepo,
		ticketRepo: ticketRepo,
		entryRepo:  entryRepo,
		orderRepo:  orderRepo,
	}
}

// CreateRaffleInput is the admin raffle creation request.
type CreateRaffleInput struct {
	Title          string
	Description    string
	TicketPriceCLP int64
	TotalTickets   int
	Status         string
	StartsAt       *time.Time
	EndsAt         *time.Time
	Tiers          []CreateTierInput
}

// CreateTierInput is one bulk pricing rule on a new raffle.
type CreateTierInput struct {
	Quantity int
	PriceCLP int64
}

// CreateRaffle creates a raffle and pre-materializes its full ticket
// pool, numbers 1 through TotalTickets. Raffle row, tiers and tickets
// commit together.
func (s *RaffleService) CreateRaffle(input CreateRaffleInput) (*models.Raffle, error) {
	if input.TotalTickets <= 0 || input.TicketPriceCLP <= 0 {
		return nil, ErrQuantityInvalid
	}
	status := input.Status
	if status == "" {
		status = constants.RaffleStatusDraft
	}

	raffle := &models.Raffle{
		Title:          input.Title,
		Description:    input.Description,
		Status:         status,
		TicketPriceCLP: models.NewMoney(input.TicketPriceCLP),
		TotalTickets:   input.TotalTickets,
		StartsAt:       input.StartsAt,
		EndsAt:         input.EndsAt,
	}
	for _, tier := range input.Tiers {
		if tier.Quantity <= 0 || tier.PriceCLP <= 0 {
			return nil, ErrQuantityInvalid
		}
		raffle.PricingTiers = append(raffle.PricingTiers, models.RafflePricingTier{
			Quantity: tier.Quantity,
			PriceCLP: models.NewMoney(tier.PriceCLP),
			IsActive: true,
		})
	}

	err := models.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.raffleRepo.WithTx(tx).Create(raffle); err != nil {
			return err
		}
		tickets := make([]models.RaffleTicket, 0, input.TotalTickets)
		for number := 1; number <= input.TotalTickets; number++ {
			tickets = append(tickets, models.RaffleTicket{
				RaffleID: raffle.ID,
				Number:   number,
				Status:   constants.TicketStatusAvailable,
			})
		}
		return s.ticketRepo.WithTx(tx).CreateBatch(tickets)
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("raffle_created",
		"raffle_id", raffle.ID,
		"total_tickets", raffle.TotalTickets,
		"tiers", len(raffle.PricingTiers),
	)
	return raffle, nil
}

// UpdateRaffleInput is the admin raffle update request. Nil fields are
// left untouched. The pool size is fixed at creation and cannot change.
type UpdateRaffleInput struct {
	Title       *string
	Description *string
	Status      *string
	StartsAt    *time.Time
	EndsAt      *time.Time
}

// UpdateRaffle applies an admin edit.
func (s *RaffleService) UpdateRaffle(id uint, input UpdateRaffleInput) (*models.Raffle, error) {
	raffle, err := s.raffleRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if raffle == nil {
		return nil, ErrRaffleNotFound
	}
	if input.Title != nil {
		raffle.Title = *input.Title
	}
	if input.Description != nil {
		raffle.Description = *input.Description
	}
	if input.Status != nil {
		raffle.Status = *input.Status
	}
	if input.StartsAt != nil {
		raffle.StartsAt = input.StartsAt
	}
	if input.EndsAt != nil {
		raffle.EndsAt = input.EndsAt
	}
	if err := s.raffleRepo.Update(raffle); err != nil {
		return nil, err
	}
	s.invalidateAvailability(id)
	return raffle, nil
}

// DeleteRaffle removes a raffle that has sold nothing. Once a single
// ticket is paid the raffle can only be finished, never deleted.
func (s *RaffleService) DeleteRaffle(id uint) error {
	raffle, err := s.raffleRepo.GetByID(id)
	if err != nil {
		return err
	}
	if raffle == nil {
		return ErrRaffleNotFound
	}
	if raffle.PaidTickets > 0 {
		return ErrRaffleHasSales
	}
	if err := s.raffleRepo.Delete(id); err != nil {
		return err
	}
	s.invalidateAvailability(id)
	return nil
}

// GetRaffle fetches one raffle with its pricing tiers.
func (s *RaffleService) GetRaffle(id uint) (*models.Raffle, error) {
	raffle, err := s.raffleRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if raffle == nil {
		return nil, ErrRaffleNotFound
	}
	return raffle, nil
}

// ListRaffles lists raffles.
func (s *RaffleService) ListRaffles(filter repository.RaffleListFilter) ([]models.Raffle, int64, error) {
	return s.raffleRepo.List(filter)
}

// AddTier attaches a bulk pricing rule to a raffle.
func (s *RaffleService) AddTier(raffleID uint, input CreateTierInput) (*models.RafflePricingTier, error) {
	if input.Quantity <= 0 || input.PriceCLP <= 0 {
		return nil, ErrQuantityInvalid
	}
	raffle, err := s.raffleRepo.GetByID(raffleID)
	if err != nil {
		return nil, err
	}
	if raffle == nil {
		return nil, ErrRaffleNotFound
	}
	tier := &models.RafflePricingTier{
		RaffleID: raffleID,
		Quantity: input.Quantity,
		PriceCLP: models.NewMoney(input.PriceCLP),
		IsActive: true,
	}
	if err := s.raffleRepo.CreateTier(tier); err != nil {
		return nil, err
	}
	return tier, nil
}

// RemoveTier deletes a pricing rule. Orders already priced with it keep
// their snapshotted totals.
func (s *RaffleService) RemoveTier(tierID uint) error {
	return s.raffleRepo.DeleteTier(tierID)
}

// Availability is the public counter snapshot for one raffle.
type Availability struct {
	RaffleID     uint  `json:"raffle_id"`
	TotalTickets int   `json:"total_tickets"`
	PaidTickets  int   `json:"paid_tickets"`
	Available    int64 `json:"available"`
}

// GetAvailability returns how many tickets remain, cached for a few
// seconds to keep raffle pages off the ticket table.
func (s *RaffleService) GetAvailability(ctx context.Context, raffleID uint) (*Availability, error) {
	key := availabilityCacheKey(raffleID)
	var cached Availability
	hit, err := cache.GetJSON(ctx, key, &cached)
	if err != nil {
		logger.Warnw("availability_cache_read_failed", "raffle_id", raffleID, "error", err)
	}
	if hit {
		return &cached, nil
	}

	raffle, err := s.raffleRepo.GetByID(raffleID)
	if err != nil {
		return nil, err
	}
	if raffle == nil {
		return nil, ErrRaffleNotFound
	}
	available, err := s.ticketRepo.CountAvailable(raffleID)
	if err != nil {
		return nil, err
	}

	availability := &Availability{
		RaffleID:     raffleID,
		TotalTickets: raffle.TotalTickets,
		PaidTickets:  raffle.PaidTickets,
		Available:    available,
	}
	if err := cache.SetJSON(ctx, key, availability, availabilityCacheTTL); err != nil {
		logger.Warnw("availability_cache_write_failed", "raffle_id", raffleID, "error", err)
	}
	return availability, nil
}

// Quote prices a prospective purchase without touching any state.
func (s *RaffleService) Quote(raffleID uint, quantity int) (*PricingResult, error) {
	raffle, err := s.raffleRepo.GetByID(raffleID)
	if err != nil {
		return nil, err
	}
	if raffle == nil {
		return nil, ErrRaffleNotFound
	}
	result, err := ComputeBestPricing(raffle.TicketPriceCLP.Int64(), quantity, tiersFromModels(raffle.PricingTiers))
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// AssignTickets claims quantity tickets for an order inside the given
// transaction. Tickets are taken lowest number first; sequential
// numbering is the product behavior, the draw itself supplies the
// randomness.
//
// The assignment is idempotent per order: when the order already owns
// tickets the existing set is returned untouched, so a replayed webhook
// cannot double-assign. When fewer tickets remain than requested
// nothing is claimed and ErrTicketsInsufficient is returned.
func (s *RaffleService) AssignTickets(tx *gorm.DB, raffleID, orderID, userID uint, quantity int) ([]models.RaffleTicket, error) {
	if quantity <= 0 {
		return nil, ErrQuantityInvalid
	}
	ticketRepo := s.ticketRepo.WithTx(tx)

	existing, err := ticketRepo.CountByOrder(orderID)
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		logger.Infow("ticket_assignment_skipped",
			"order_id", orderID,
			"existing_tickets", existing,
		)
		return ticketRepo.ListByOrder(orderID)
	}

	candidates, err := ticketRepo.SelectAvailableLocked(raffleID, quantity)
	if err != nil {
		return nil, err
	}
	if len(candidates) < quantity {
		return nil, ErrTicketsInsufficient
	}

	ids := make([]uint, 0, len(candidates))
	for _, ticket := range candidates {
		ids = append(ids, ticket.ID)
	}
	affected, err := ticketRepo.MarkPaid(ids, userID, orderID, time.Now())
	if err != nil {
		return nil, err
	}
	if affected != int64(len(ids)) {
		// A competing transaction claimed some of the selected rows.
		// Roll back and let the caller retry or fail the order.
		return nil, ErrTicketsInsufficient
	}

	if err := s.raffleRepo.WithTx(tx).IncrementPaidTickets(raffleID, quantity); err != nil {
		return nil, err
	}

	s.invalidateAvailability(raffleID)
	return ticketRepo.ListByOrder(orderID)
}

// GrantGiveaway assigns free tickets to a user outside of a purchase.
// A zero-total paid order anchors the assignment so the allocator's
// per-order idempotency still applies.
func (s *RaffleService) GrantGiveaway(raffleID, userID uint, quantity int) (*models.Order, []models.RaffleTicket, error) {
	if quantity <= 0 {
		return nil, nil, ErrQuantityInvalid
	}
	raffle, err := s.raffleRepo.GetByID(raffleID)
	if err != nil {
		return nil, nil, err
	}
	if raffle == nil {
		return nil, nil, ErrRaffleNotFound
	}

	now := time.Now()
	order := &models.Order{
		OrderNo:        generateOrderNo(),
		UserID:         userID,
		Status:         constants.OrderStatusPaid,
		Currency:       constants.CurrencyCLP,
		SubtotalAmount: models.NewMoney(0),
		DiscountAmount: models.NewMoney(0),
		TotalAmount:    models.NewMoney(0),
		PaidAt:         &now,
	}

	var tickets []models.RaffleTicket
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.WithTx(tx).Create(order); err != nil {
			return err
		}
		if err := s.entryRepo.WithTx(tx).Create(&models.RaffleEntry{
			RaffleID: raffleID,
			OrderID:  order.ID,
			UserID:   userID,
			Quantity: quantity,
			Source:   constants.EntrySourceGiveaway,
		}); err != nil {
			return err
		}
		assigned, err := s.AssignTickets(tx, raffleID, order.ID, userID, quantity)
		if err != nil {
			return err
		}
		tickets = assigned
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	logger.Infow("giveaway_granted",
		"raffle_id", raffleID,
		"user_id", userID,
		"order_id", order.ID,
		"quantity", quantity,
	)
	return order, tickets, nil
}

func (s *RaffleService) invalidateAvailability(raffleID uint) {
	if err := cache.Del(context.Background(), availabilityCacheKey(raffleID)); err != nil {
		logger.Warnw("availability_cache_del_failed", "raffle_id", raffleID, "error", err)
	}
}

func availabilityCacheKey(raffleID uint) string {
	return fmt.Sprintf("raffle:%d:availability", raffleID)
}
