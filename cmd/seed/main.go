package main

import (
	"time"

	"github.com/rifa-next/internal/config"
	"github.com/rifa-next/internal/constants"
	"github.com/rifa-next/internal/logger"
	"github.com/rifa-next/internal/models"
	"github.com/rifa-next/internal/repository"
	"github.com/rifa-next/internal/service"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	if err := models.InitDefaultAdmin("", ""); err != nil {
		stdLog.Printf("Failed to create default admin: %v", err)
	}

	seedRaffle(stdLog.Printf)
	seedCoupon(stdLog.Printf)

	stdLog.Printf("Seed finished")
}

func seedRaffle(printf func(format string, v ...interface{})) {
	var existing models.Raffle
	if err := models.DB.Where("title = ?", "Rifa de Lanzamiento").Limit(1).Find(&existing).Error; err == nil && existing.ID != 0 {
		printf("Demo raffle already exists: %d", existing.ID)
		return
	}

	raffleSvc := service.NewRaffleService(
		repository.NewRaffleRepository(models.DB),
		repository.NewRaffleTicketRepository(models.DB),
		repository.NewRaffleEntryRepository(models.DB),
		repository.NewOrderRepository(models.DB),
	)

	now := time.Now()
	endsAt := now.AddDate(0, 1, 0)
	raffle, err := raffleSvc.CreateRaffle(service.CreateRaffleInput{
		Title:          "Rifa de Lanzamiento",
		Description:    "Rifa demo con 500 numeros y descuentos por volumen.",
		TicketPriceCLP: 1000,
		TotalTickets:   500,
		Status:         constants.RaffleStatusActive,
		StartsAt:       &now,
		EndsAt:         &endsAt,
		Tiers: []service.CreateTierInput{
			{Quantity: 5, PriceCLP: 4500},
			{Quantity: 10, PriceCLP: 8000},
		},
	})
	if err != nil {
		printf("Failed to create demo raffle: %v", err)
		return
	}
	printf("Created demo raffle %d with %d tickets", raffle.ID, raffle.TotalTickets)
}

func seedCoupon(printf func(format string, v ...interface{})) {
	var existing models.Coupon
	if err := models.DB.Where("code = ?", "BIENVENIDA10").Limit(1).Find(&existing).Error; err == nil && existing.ID != 0 {
		printf("Demo coupon already exists: %s", existing.Code)
		return
	}

	coupon := models.Coupon{
		Code:        "BIENVENIDA10",
		Type:        constants.CouponTypePercent,
		Value:       models.NewMoney(10),
		MinSubtotal: models.NewMoney(3000),
		MaxUses:     100,
		IsActive:    true,
	}
	if err := models.DB.Create(&coupon).Error; err != nil {
		printf("Failed to create demo coupon: %v", err)
		return
	}
	printf("Created demo coupon: %s", coupon.Code)
}
