package constants

// Order status values
const (
	OrderStatusDraft          = "draft"
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusPaid           = "paid"
	OrderStatusFailed         = "failed"
	OrderStatusCanceled       = "canceled"
)

// Payment status values
const (
	PaymentStatusInit     = "init"
	PaymentStatusApproved = "approved"
	PaymentStatusRejected = "rejected"
)

// Payment provider values
const (
	PaymentProviderMercadoPago = "mercadopago"
	PaymentProviderFlow        = "flow"
)

// Raffle ticket status values
const (
	TicketStatusAvailable = "available"
	TicketStatusReserved  = "reserved"
	TicketStatusPaid      = "paid"
)

// Raffle entry source values
const (
	EntrySourcePendingPurchase = "pending_purchase"
	EntrySourceGiveaway        = "giveaway"
)

// Raffle status values
const (
	RaffleStatusDraft    = "draft"
	RaffleStatusActive   = "active"
	RaffleStatusFinished = "finished"
)

// Coupon type values
const (
	CouponTypePercent = "percent"
	CouponTypeAmount  = "amount"
)

// Currency used across the platform. Single-currency system.
const CurrencyCLP = "CLP"

// Flow status codes as returned by the payment/getStatus endpoint.
const (
	FlowStatusPending  = 1
	FlowStatusPaid     = 2
	FlowStatusRejected = 3
	FlowStatusCanceled = 4
)

// Queue names
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// Async task type names
const (
	TaskTicketConfirmationEmail = "raffle:ticket_confirmation_email"
	TaskPaymentExceptionAlert   = "payment:exception_alert"
)

// Mercado Pago payment status strings.
const (
	MpStatusApproved  = "approved"
	MpStatusRejected  = "rejected"
	MpStatusCancelled = "cancelled"
	MpStatusPending   = "pending"
)
