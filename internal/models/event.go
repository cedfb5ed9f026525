package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID            int64           `bun:"id,pk,autoincrement" json:"event_id"`
	Name          string          `bun:"name,notnull" json:"name"`
	Address       string          `bun:"address,notnull" json:"address"`
	EventTime     time.Time       `bun:"event_time,notnull" json:"event_time"`
	TotalCapacity int             `bun:"total_capacity,notnull" json:"total_capacity"`
	UnitPrice     decimal.Decimal `bun:"unit_price,type:numeric(12,2),notnull" json:"unit_price"`
	OwnerID       int64           `bun:"owner_id,notnull" json:"owner_id"`
	CreatedAt     time.Time       `bun:"created_at,notnull" json:"created_at"`

	Pools []*Pool `bun:"rel:has-many,join:id=event_id" json:"pools,omitempty"`
}

// Pool is a shard of an event's capacity. Pools are fungible; the only
// reason there is more than one is to spread contention on the counter.
type Pool struct {
	bun.BaseModel `bun:"table:pools"`

	ID        int64 `bun:"id,pk,autoincrement" json:"pool_id"`
	EventID   int64 `bun:"event_id,notnull" json:"event_id"`
	Remaining int   `bun:"remaining,notnull" json:"remaining"`
}

type EventCreateRequest struct {
	Name      string          `json:"name" validate:"required,min=1,max=250"`
	Address   string          `json:"address" validate:"required,min=1,max=500"`
	EventTime time.Time       `json:"event_time" validate:"required"`
	PoolSize  int             `json:"pool_size" validate:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"ticket_price"`
}

type EventCreatedResponse struct {
	EventID   int64  `json:"event_id"`
	EventName string `json:"event_name"`
	Pools     int    `json:"pools"`
}
