package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rifa-next/internal/constants"
	"github.com/rifa-next/internal/models"
	"github.com/rifa-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupRaffleServiceTest(t *testing.T) (*RaffleService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:raffle_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Raffle{},
		&models.RafflePricingTier{},
		&models.RaffleTicket{},
		&models.RaffleEntry{},
		&models.Order{},
		&models.OrderDiscount{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	svc := NewRaffleService(
		repository.NewRaffleRepository(db),
		repository.NewRaffleTicketRepository(db),
		repository.NewRaffleEntryRepository(db),
		repository.NewOrderRepository(db),
	)
	return svc, db
}

func TestCreateRaffleMaterializesPool(t *testing.T) {
	svc, db := setupRaffleServiceTest(t)

	raffle, err := svc.CreateRaffle(CreateRaffleInput{
		Title:          "Moto Rifa",
		TicketPriceCLP: 1000,
		TotalTickets:   10,
		Status:         constants.RaffleStatusActive,
		Tiers:          []CreateTierInput{{Quantity: 5, PriceCLP: 4000}},
	})
	if err != nil {
		t.Fatalf("CreateRaffle error: %v", err)
	}

	var count int64
	if err := db.Model(&models.RaffleTicket{}).Where("raffle_id = ?", raffle.ID).Count(&count).Error; err != nil {
		t.Fatalf("count tickets failed: %v", err)
	}
	if count != 10 {
		t.Fatalf("expected 10 tickets, got %d", count)
	}

	var first, last models.RaffleTicket
	if err := db.Where("raffle_id = ?", raffle.ID).Order("number asc").First(&first).Error; err != nil {
		t.Fatalf("load first ticket failed: %v", err)
	}
	if err := db.Where("raffle_id = ?", raffle.ID).Order("number desc").First(&last).Error; err != nil {
		t.Fatalf("load last ticket failed: %v", err)
	}
	if first.Number != 1 || last.Number != 10 {
		t.Fatalf("expected numbers 1..10, got %d..%d", first.Number, last.Number)
	}
	if first.Status != constants.TicketStatusAvailable {
		t.Fatalf("tickets must start available, got %s", first.Status)
	}
}

func TestAssignTicketsLowestNumbersFirst(t *testing.T) {
	svc, db := setupRaffleServiceTest(t)
	raffle, err := svc.CreateRaffle(CreateRaffleInput{
		Title: "Rifa", TicketPriceCLP: 1000, TotalTickets: 10, Status: constants.RaffleStatusActive,
	})
	if err != nil {
		t.Fatalf("CreateRaffle error: %v", err)
	}

	var tickets []models.RaffleTicket
	err = db.Transaction(func(tx *gorm.DB) error {
		assigned, err := svc.AssignTickets(tx, raffle.ID, 77, 5, 3)
		tickets = assigned
		return err
	})
	if err != nil {
		t.Fatalf("AssignTickets error: %v", err)
	}
	if len(tickets) != 3 {
		t.Fatalf("expected 3 tickets, got %d", len(tickets))
	}
	for i, ticket := range tickets {
		if ticket.Number != i+1 {
			t.Fatalf("expected sequential numbers from 1, got %+v", tickets)
		}
		if ticket.Status != constants.TicketStatusPaid {
			t.Fatalf("assigned tickets must be paid, got %s", ticket.Status)
		}
	}

	var reloaded models.Raffle
	if err := db.First(&reloaded, raffle.ID).Error; err != nil {
		t.Fatalf("reload raffle failed: %v", err)
	}
	if reloaded.PaidTickets != 3 {
		t.Fatalf("expected paid counter 3, got %d", reloaded.PaidTickets)
	}
}

func TestAssignTicketsIdempotentPerOrder(t *testing.T) {
	svc, db := setupRaffleServiceTest(t)
	raffle, err := svc.CreateRaffle(CreateRaffleInput{
		Title: "Rifa", TicketPriceCLP: 1000, TotalTickets: 10, Status: constants.RaffleStatusActive,
	})
	if err != nil {
		t.Fatalf("CreateRaffle error: %v", err)
	}

	assign := func() ([]models.RaffleTicket, error) {
		var out []models.RaffleTicket
		err := db.Transaction(func(tx *gorm.DB) error {
			assigned, err := svc.AssignTickets(tx, raffle.ID, 42, 0, 4)
			out = assigned
			return err
		})
		return out, err
	}

	first, err := assign()
	if err != nil {
		t.Fatalf("first assignment error: %v", err)
	}
	second, err := assign()
	if err != nil {
		t.Fatalf("replayed assignment error: %v", err)
	}
	if len(first) != 4 || len(second) != 4 {
		t.Fatalf("expected 4 tickets both times, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("replay must return the same tickets")
		}
	}

	var reloaded models.Raffle
	if err := db.First(&reloaded, raffle.ID).Error; err != nil {
		t.Fatalf("reload raffle failed: %v", err)
	}
	if reloaded.PaidTickets != 4 {
		t.Fatalf("replay must not bump paid counter, got %d", reloaded.PaidTickets)
	}
}

func TestAssignTicketsExhaustionClaimsNothing(t *testing.T) {
	svc, db := setupRaffleServiceTest(t)
	raffle, err := svc.CreateRaffle(CreateRaffleInput{
		Title: "Rifa", TicketPriceCLP: 1000, TotalTickets: 3, Status: constants.RaffleStatusActive,
	})
	if err != nil {
		t.Fatalf("CreateRaffle error: %v", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.AssignTickets(tx, raffle.ID, 9, 0, 5)
		return err
	})
	if !errors.Is(err, ErrTicketsInsufficient) {
		t.Fatalf("expected ErrTicketsInsufficient, got %v", err)
	}

	var paid int64
	if err := db.Model(&models.RaffleTicket{}).
		Where("raffle_id = ? AND status = ?", raffle.ID, constants.TicketStatusPaid).
		Count(&paid).Error; err != nil {
		t.Fatalf("count paid failed: %v", err)
	}
	if paid != 0 {
		t.Fatalf("failed assignment must claim nothing, got %d paid", paid)
	}
}

func TestDeleteRaffleBlockedAfterSales(t *testing.T) {
	svc, db := setupRaffleServiceTest(t)
	raffle, err := svc.CreateRaffle(CreateRaffleInput{
		Title: "Rifa", TicketPriceCLP: 1000, TotalTickets: 5, Status: constants.RaffleStatusActive,
	})
	if err != nil {
		t.Fatalf("CreateRaffle error: %v", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.AssignTickets(tx, raffle.ID, 11, 0, 1)
		return err
	})
	if err != nil {
		t.Fatalf("AssignTickets error: %v", err)
	}

	if err := svc.DeleteRaffle(raffle.ID); !errors.Is(err, ErrRaffleHasSales) {
		t.Fatalf("expected ErrRaffleHasSales, got %v", err)
	}
}

func TestGetAvailability(t *testing.T) {
	svc, db := setupRaffleServiceTest(t)
	raffle, err := svc.CreateRaffle(CreateRaffleInput{
		Title: "Rifa", TicketPriceCLP: 1000, TotalTickets: 8, Status: constants.RaffleStatusActive,
	})
	if err != nil {
		t.Fatalf("CreateRaffle error: %v", err)
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.AssignTickets(tx, raffle.ID, 21, 0, 3)
		return err
	})
	if err != nil {
		t.Fatalf("AssignTickets error: %v", err)
	}

	availability, err := svc.GetAvailability(context.Background(), raffle.ID)
	if err != nil {
		t.Fatalf("GetAvailability error: %v", err)
	}
	if availability.Available != 5 || availability.PaidTickets != 3 || availability.TotalTickets != 8 {
		t.Fatalf("unexpected availability: %+v", availability)
	}
}

func TestGrantGiveaway(t *testing.T) {
	svc, db := setupRaffleServiceTest(t)
	raffle, err := svc.CreateRaffle(CreateRaffleInput{
		Title: "Rifa", TicketPriceCLP: 1000, TotalTickets: 5, Status: constants.RaffleStatusActive,
	})
	if err != nil {
		t.Fatalf("CreateRaffle error: %v", err)
	}

	order, tickets, err := svc.GrantGiveaway(raffle.ID, 9, 2)
	if err != nil {
		t.Fatalf("GrantGiveaway error: %v", err)
	}
	if order.Status != constants.OrderStatusPaid || order.TotalAmount.Int64() != 0 {
		t.Fatalf("giveaway order must be paid and free: %+v", order)
	}
	if len(tickets) != 2 {
		t.Fatalf("expected 2 tickets, got %d", len(tickets))
	}

	var entry models.RaffleEntry
	if err := db.Where("order_id = ?", order.ID).First(&entry).Error; err != nil {
		t.Fatalf("load entry failed: %v", err)
	}
	if entry.Source != constants.EntrySourceGiveaway {
		t.Fatalf("expected giveaway source, got %s", entry.Source)
	}
}

func TestAssignTicketsConcurrentOrdersStayDisjoint(t *testing.T) {
	svc, db := setupRaffleServiceTest(t)
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB failed: %v", err)
	}
	// sqlite serializes writers on the db lock; a single connection
	// keeps the racing transactions queued instead of erroring busy.
	sqlDB.SetMaxOpenConns(1)

	raffle, err := svc.CreateRaffle(CreateRaffleInput{
		Title: "Rifa", TicketPriceCLP: 1000, TotalTickets: 10, Status: constants.RaffleStatusActive,
	})
	if err != nil {
		t.Fatalf("CreateRaffle error: %v", err)
	}

	// Six orders of two tickets each against a pool of ten: exactly
	// five can win, one must come up short.
	const orders = 6
	const perOrder = 2
	errs := make([]error, orders)
	var wg sync.WaitGroup
	for i := 0; i < orders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			orderID := uint(100 + i)
			errs[i] = db.Transaction(func(tx *gorm.DB) error {
				_, err := svc.AssignTickets(tx, raffle.ID, orderID, uint(1+i), perOrder)
				return err
			})
		}(i)
	}
	wg.Wait()

	winners := 0
	for i, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, ErrTicketsInsufficient):
		default:
			t.Fatalf("order %d: unexpected error: %v", 100+i, err)
		}
	}
	if winners != 5 {
		t.Fatalf("expected exactly 5 winning orders, got %d", winners)
	}

	var paid []models.RaffleTicket
	if err := db.Where("raffle_id = ? AND status = ?", raffle.ID, constants.TicketStatusPaid).Find(&paid).Error; err != nil {
		t.Fatalf("load paid tickets failed: %v", err)
	}
	if len(paid) != 10 {
		t.Fatalf("expected all 10 tickets paid, got %d", len(paid))
	}
	seenNumbers := make(map[int]bool)
	perOrderCount := make(map[uint]int)
	for _, ticket := range paid {
		if seenNumbers[ticket.Number] {
			t.Fatalf("ticket number %d assigned twice", ticket.Number)
		}
		seenNumbers[ticket.Number] = true
		if ticket.OrderID == nil {
			t.Fatalf("paid ticket %d has no order", ticket.Number)
		}
		perOrderCount[*ticket.OrderID]++
	}
	for orderID, count := range perOrderCount {
		if count != perOrder {
			t.Fatalf("order %d: expected %d tickets, got %d", orderID, perOrder, count)
		}
	}

	var reloaded models.Raffle
	if err := db.First(&reloaded, raffle.ID).Error; err != nil {
		t.Fatalf("reload raffle failed: %v", err)
	}
	if reloaded.PaidTickets != 10 {
		t.Fatalf("expected paid counter 10, got %d", reloaded.PaidTickets)
	}
}
