package models

import "time"

// Payment is settlement evidence for one phase of a load. A phase is
// recorded at most once per load; the gateway order id is globally unique.
type Payment struct {
	ID               int64     `json:"id"`
	LoadID           int64     `json:"load_id"`
	Phase            string    `json:"phase"` // booking, final
	GatewayOrderID   string    `json:"gateway_order_id"`
	GatewayPaymentID string    `json:"gateway_payment_id"`
	GatewaySignature string    `json:"gateway_signature"`
	Amount           int64     `json:"amount"`
	CreatedAt        time.Time `json:"created_at"`
}

// PendingOrder is a gateway order awaiting confirmation. Booking orders
// carry the full load draft and fee breakdown; final orders reference an
// existing load. Stored in the order repository with a TTL.
type PendingOrder struct {
	OrderID    string     `json:"order_id"`
	Phase      string     `json:"phase"`
	Amount     int64      `json:"amount"`
	Currency   string     `json:"currency"`
	Receipt    string     `json:"receipt"`
	LoadID     int64      `json:"load_id,omitempty"` // final phase only
	Draft      *LoadDraft `json:"draft,omitempty"`   // booking phase only
	BookingFee int64      `json:"booking_fee,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
