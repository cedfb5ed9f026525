package models

import "github.com/shopspring/decimal"

// InventorySnapshot is a point-in-time view of an event's capacity. Taken
// outside a transaction it can be off by in-flight operations.
type InventorySnapshot struct {
	EventID           int64           `json:"event_id"`
	TotalCapacity     int             `json:"total_capacity"`
	Remaining         int             `json:"remaining"`
	BookedQuantity    int             `json:"booked_quantity"`
	PendingQuantity   int             `json:"pending_quantity"`
	CancelledQuantity int             `json:"cancelled_quantity"`
	BookedRevenue     decimal.Decimal `json:"booked_revenue"`
	Pools             []PoolSnapshot  `json:"pools"`
	Balanced          bool            `json:"balanced"`
}

type PoolSnapshot struct {
	PoolID    int64 `json:"pool_id"`
	Remaining int   `json:"remaining"`
}
