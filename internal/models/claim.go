package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type ClaimState string

const (
	ClaimStatePending   ClaimState = "pending"
	ClaimStateBooked    ClaimState = "booked"
	ClaimStateCancelled ClaimState = "cancelled"
)

// Active reports whether the claim still holds capacity and counts toward quota.
func (s ClaimState) Active() bool {
	return s == ClaimStateBooked || s == ClaimStatePending
}

type Claim struct {
	bun.BaseModel `bun:"table:claims"`

	ID        int64           `bun:"id,pk,autoincrement" json:"claim_id"`
	EventID   int64           `bun:"event_id,notnull" json:"event_id"`
	HolderID  int64           `bun:"holder_id,notnull" json:"holder_id"`
	Quantity  int             `bun:"quantity,notnull" json:"quantity"`
	Amount    decimal.Decimal `bun:"amount,type:numeric(12,2),notnull" json:"amount"`
	State     ClaimState      `bun:"state,notnull" json:"state"`
	CreatedAt time.Time       `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt time.Time       `bun:"updated_at,nullzero" json:"updated_at,omitempty"`
}

type ClaimRequest struct {
	EventID  int64 `json:"event_id" validate:"required,gt=0"`
	Quantity int   `json:"quantity" validate:"required,min=1"`
}

type ClaimCancelledResponse struct {
	ClaimID int64      `json:"claim_id"`
	State   ClaimState `json:"state"`
	EventID int64      `json:"event_id"`
}

// ClaimEvent is the payload streamed to Kafka on every lifecycle change.
type ClaimEvent struct {
	ClaimID    int64           `json:"claim_id"`
	EventID    int64           `json:"event_id"`
	HolderID   int64           `json:"holder_id"`
	Quantity   int             `json:"quantity"`
	Amount     decimal.Decimal `json:"amount"`
	State      ClaimState      `json:"state"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func NewClaimEvent(claim Claim, at time.Time) ClaimEvent {
	return ClaimEvent{
		ClaimID:    claim.ID,
		EventID:    claim.EventID,
		HolderID:   claim.HolderID,
		Quantity:   claim.Quantity,
		Amount:     claim.Amount,
		State:      claim.State,
		OccurredAt: at.UTC(),
	}
}
