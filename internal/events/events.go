// Package events publishes ledger events to downstream consumers after the
// change has been committed.
package events

import (
	"context"
	"time"
)

const (
	EventStockIn        = "stock.in"
	EventStockOut       = "stock.out"
	EventBorrowCreated  = "borrow.created"
	EventBorrowReturned = "borrow.returned"
	EventStockAdjusted  = "stock.adjusted"
)

type Event struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	MaterialID  int64     `json:"material_id"`
	Quantity    int       `json:"quantity"`
	StockAfter  int       `json:"stock_after"`
	ReferenceID int64     `json:"reference_id"`
	Actor       string    `json:"actor"`
	Timestamp   time.Time `json:"timestamp"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

func (Nop) Close() error { return nil }
