package models

import (
	"time"

	"github.com/samber/lo"
)

// PaymentMethod represents how a sale was paid
type PaymentMethod string

const (
	PaymentCash    PaymentMethod = "cash"
	PaymentCard    PaymentMethod = "card"
	PaymentUnknown PaymentMethod = "unknown"
)

// Valid reports whether the method can be chosen at checkout
func (p PaymentMethod) Valid() bool {
	return p == PaymentCash || p == PaymentCard
}

// Label returns the printed name of the method
func (p PaymentMethod) Label() string {
	switch p {
	case PaymentCash:
		return "Efectivo"
	case PaymentCard:
		return "Tarjeta"
	default:
		return "Desconocido"
	}
}

// SplitMode represents how a bill was divided
type SplitMode string

const (
	SplitFull      SplitMode = "full"       // Whole table pays at once
	SplitPerPerson SplitMode = "per_person" // Total divided evenly
	SplitByItem    SplitMode = "by_item"    // Only the selected items are paid
)

// Valid reports whether the mode is known
func (m SplitMode) Valid() bool {
	return m == SplitFull || m == SplitPerPerson || m == SplitByItem
}

// Sale represents a completed, paid transaction. Sales are append-only.
type Sale struct {
	ID            string        `gorm:"primaryKey;size:64" json:"id"`
	Table         string        `gorm:"index;size:120" json:"table"`
	Items         []LineItem    `gorm:"serializer:json" json:"items"`
	Total         float64       `json:"total"`
	PaymentMethod PaymentMethod `gorm:"size:20" json:"payment_method"`
	SplitMode     SplitMode     `gorm:"size:20" json:"split_mode"`
	PartySize     int           `gorm:"default:1" json:"party_size"`
	ShiftClosed   bool          `gorm:"index;default:false" json:"shift_closed"`
	CreatedAt     time.Time     `gorm:"index" json:"created_at"`
}

// NewSale builds a sale whose total is derived from its items
func NewSale(id, table string, items []LineItem, method PaymentMethod, split SplitMode, partySize int, at time.Time) Sale {
	charged := make([]LineItem, len(items))
	copy(charged, items)
	return Sale{
		ID:            id,
		Table:         table,
		Items:         charged,
		Total:         ItemsTotal(charged),
		PaymentMethod: method,
		SplitMode:     split,
		PartySize:     partySize,
		CreatedAt:     at,
	}
}

// ItemCount returns the total quantity of units sold
func (s Sale) ItemCount() int {
	return lo.SumBy(s.Items, func(item LineItem) int {
		return item.Quantity
	})
}

// ShiftSummary holds the aggregate totals for the end-of-shift report
type ShiftSummary struct {
	TotalSales   float64   `json:"total_sales"`
	TotalCash    float64   `json:"total_cash"`
	TotalCard    float64   `json:"total_card"`
	Transactions int       `json:"transactions"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// SummarizeShift aggregates the given sales
func SummarizeShift(sales []Sale, at time.Time) ShiftSummary {
	summary := ShiftSummary{Transactions: len(sales), GeneratedAt: at}
	for _, sale := range sales {
		summary.TotalSales += sale.Total
		switch sale.PaymentMethod {
		case PaymentCash:
			summary.TotalCash += sale.Total
		case PaymentCard:
			summary.TotalCard += sale.Total
		}
	}
	return summary
}
