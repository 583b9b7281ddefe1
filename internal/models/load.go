package models

import "time"

// Load is a shipment request posted by a customer. A row exists only after
// the booking fee has been paid; unpaid drafts live in the order repository.
type Load struct {
	ID                  int64      `json:"id"`
	SourceCity          string     `json:"source_city"`
	DestinationCity     string     `json:"destination_city"`
	Material            string     `json:"material"`
	WeightMT            float64    `json:"weight_mt"`
	TruckType           string     `json:"truck_type"`
	LoadType            string     `json:"load_type"` // full, part
	ScheduledDate       time.Time  `json:"scheduled_date"`
	TrucksRequired      int        `json:"trucks_required"`
	ContactName         string     `json:"contact_name"`
	ContactPhone        string     `json:"contact_phone"`
	Status              string     `json:"status"`
	PostedBy            int64      `json:"posted_by"`
	AssignedTo          *int64     `json:"assigned_to,omitempty"`
	BookingFee          int64      `json:"booking_fee"` // smallest currency unit
	PaymentID           *string    `json:"payment_id,omitempty"`
	AcceptedQuoteAmount int64      `json:"accepted_quote_amount"`
	FinalPaymentID      *string    `json:"final_payment_id,omitempty"`
	CancellationReason  string     `json:"cancellation_reason,omitempty"`
	CancelledAt         *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	Version             int64      `json:"version"`
}

// LoadDraft holds the attributes of a load before the booking fee is paid.
type LoadDraft struct {
	SourceCity      string    `json:"source_city"`
	DestinationCity string    `json:"destination_city"`
	Material        string    `json:"material"`
	WeightMT        float64   `json:"weight_mt"`
	TruckType       string    `json:"truck_type"`
	LoadType        string    `json:"load_type"`
	ScheduledDate   time.Time `json:"scheduled_date"`
	TrucksRequired  int       `json:"trucks_required"`
	ContactName     string    `json:"contact_name"`
	ContactPhone    string    `json:"contact_phone"`
	PostedBy        int64     `json:"posted_by"`
}

// StatusEvent is one entry of a load's append-only status history.
type StatusEvent struct {
	ID        int64     `json:"id"`
	LoadID    int64     `json:"load_id"`
	Status    string    `json:"status"`
	Note      string    `json:"note,omitempty"`
	ChangedBy int64     `json:"changed_by"`
	CreatedAt time.Time `json:"created_at"`
}

// transitions is the legal status graph. The assigned edge is reachable
// only through quote acceptance, never through a direct status update.
var transitions = map[string][]string{
	StatusOpen:      {StatusQuoted, StatusCancelled},
	StatusQuoted:    {StatusAssigned, StatusCancelled},
	StatusAssigned:  {StatusPickedUp, StatusCancelled},
	StatusPickedUp:  {StatusInTransit, StatusCancelled},
	StatusInTransit: {StatusDelivered, StatusCancelled},
	StatusDelivered: {StatusCompleted},
	StatusCompleted: {},
	StatusCancelled: {},
}

// IsValidStatus reports whether s is a known load status.
func IsValidStatus(s string) bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether the from→to edge exists in the status graph.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether a load in this status can never move again.
func IsTerminalStatus(s string) bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsCancellable reports whether the cancellation window is still open.
func IsCancellable(s string) bool {
	return CanTransition(s, StatusCancelled)
}

// AcceptsQuotes reports whether drivers may still bid on a load in this status.
func AcceptsQuotes(s string) bool {
	return s == StatusOpen || s == StatusQuoted
}

// IsAssignedStatus reports whether a load in this status must carry a driver.
func IsAssignedStatus(s string) bool {
	switch s {
	case StatusAssigned, StatusPickedUp, StatusInTransit, StatusDelivered, StatusCompleted:
		return true
	default:
		return false
	}
}

// FinalAmountDue returns the balance owed after delivery, floored at zero.
func (l *Load) FinalAmountDue() int64 {
	due := l.AcceptedQuoteAmount - l.BookingFee
	if due < 0 {
		return 0
	}
	return due
}

// IsBooked reports whether the booking fee has been settled.
func (l *Load) IsBooked() bool {
	return l.PaymentID != nil
}

// IsFinalSettled reports whether the final payment has been recorded.
func (l *Load) IsFinalSettled() bool {
	return l.FinalPaymentID != nil
}
