package models

import "time"

// Quote is a driver's price bid on a load.
type Quote struct {
	ID            int64     `json:"id"`
	LoadID        int64     `json:"load_id"`
	TransporterID int64     `json:"transporter_id"`
	Amount        int64     `json:"amount"` // smallest currency unit
	Message       string    `json:"message,omitempty"`
	EstimatedDays int       `json:"estimated_days,omitempty"`
	Status        string    `json:"status"` // pending, accepted, rejected, withdrawn
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsPending reports whether the quote can still change state.
func (q *Quote) IsPending() bool {
	return q.Status == QuoteStatusPending
}

// IsValidQuoteStatus reports whether s is a known quote status.
func IsValidQuoteStatus(s string) bool {
	switch s {
	case QuoteStatusPending, QuoteStatusAccepted, QuoteStatusRejected, QuoteStatusWithdrawn:
		return true
	default:
		return false
	}
}
