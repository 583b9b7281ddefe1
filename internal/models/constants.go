package models

const (
	StatusOpen      = "open"
	StatusQuoted    = "quoted"
	StatusAssigned  = "assigned"
	StatusPickedUp  = "picked_up"
	StatusInTransit = "in_transit"
	StatusDelivered = "delivered"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

const (
	QuoteStatusPending   = "pending"
	QuoteStatusAccepted  = "accepted"
	QuoteStatusRejected  = "rejected"
	QuoteStatusWithdrawn = "withdrawn"
)

const (
	PhaseBooking = "booking"
	PhaseFinal   = "final"
)

const (
	RoleCustomer   = "customer"
	RoleDriver     = "driver"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

const (
	LoadTypeFull = "full"
	LoadTypePart = "part"
)

const (
	ParseModeMarkdown = "Markdown"
	ParseModeHTML     = "HTML"
)

const (
	// DefaultOrderTTL lifetime of an unconfirmed payment order in Redis
	DefaultOrderTTL = 30 * 60 // 30 minutes in seconds

	// WorkerQueueSize size of the in-memory sync worker queue
	WorkerQueueSize = 1000

	// DefaultCurrency payment gateway currency
	DefaultCurrency = "INR"

	// DefaultListLimit maximum page size for load listings
	DefaultListLimit = 100

	// RateLimitRequests requests allowed per client key per window
	RateLimitRequests = 20

	// RateLimitWindow rate limit window in seconds
	RateLimitWindow = 60
)
