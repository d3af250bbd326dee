package provider

import (
	"github.com/rifa-next/internal/cache"
	"github.com/rifa-next/internal/config"
	"github.com/rifa-next/internal/logger"
	"github.com/rifa-next/internal/models"
	"github.com/rifa-next/internal/queue"
	"github.com/rifa-next/internal/repository"
	"github.com/rifa-next/internal/service"
)

// Container wires repositories and services once at startup.
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo     repository.AdminRepository
	UserRepo      repository.UserRepository
	RaffleRepo    repository.RaffleRepository
	TicketRepo    repository.RaffleTicketRepository
	EntryRepo     repository.RaffleEntryRepository
	OrderRepo     repository.OrderRepository
	PaymentRepo   repository.PaymentRepository
	CouponRepo    repository.CouponRepository
	InventoryRepo repository.InventoryRepository

	// Services
	AuthService      *service.AuthService
	RaffleService    *service.RaffleService
	CouponService    *service.CouponService
	InventoryService *service.InventoryService
	OrderService     *service.OrderService
	PaymentService   *service.PaymentService
	EmailService     *service.EmailService
}

// NewContainer initializes the container.
func NewContainer(cfg *config.Config) *Container {
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}
	if queueClient == nil {
		queueClient, _ = queue.NewClient(nil)
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}
	c.initRepositories()
	c.initServices()
	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.UserRepo = repository.NewUserRepository(db)
	c.RaffleRepo = repository.NewRaffleRepository(db)
	c.TicketRepo = repository.NewRaffleTicketRepository(db)
	c.EntryRepo = repository.NewRaffleEntryRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.PaymentRepo = repository.NewPaymentRepository(db)
	c.CouponRepo = repository.NewCouponRepository(db)
	c.InventoryRepo = repository.NewInventoryRepository(db)
}

func (c *Container) initServices() {
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.RaffleService = service.NewRaffleService(c.RaffleRepo, c.TicketRepo, c.EntryRepo, c.OrderRepo)
	c.CouponService = service.NewCouponService(c.CouponRepo)
	c.InventoryService = service.NewInventoryService(c.InventoryRepo)
	c.OrderService = service.NewOrderService(c.OrderRepo, c.PaymentRepo, c.TicketRepo)
	c.EmailService = service.NewEmailService(&c.Config.Email)
	c.PaymentService = service.NewPaymentService(
		c.OrderRepo,
		c.PaymentRepo,
		c.CouponRepo,
		c.RaffleRepo,
		c.TicketRepo,
		c.EntryRepo,
		c.UserRepo,
		c.RaffleService,
		c.CouponService,
		c.QueueClient,
		&c.Config.Payment,
		c.Config.Checkout.PaymentExpireMinutes,
	)
}
