package models

import "github.com/samber/lo"

// DefaultTable is the catch-all table for rows that carry no table label
const DefaultTable = "Mesa General"

// LineItem represents one unpaid item on an open order
type LineItem struct {
	ID          int64   `json:"id"` // Row id in the remote store
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Table       string  `json:"table"`
}

// Subtotal returns price times quantity
func (i LineItem) Subtotal() float64 {
	return i.Price * float64(i.Quantity)
}

// TableOrder represents all unpaid items currently at one table
type TableOrder struct {
	Table string     `json:"table"`
	Items []LineItem `json:"items"`
}

// Total returns the sum of the table's item subtotals
func (t TableOrder) Total() float64 {
	return ItemsTotal(t.Items)
}

// Clone returns a deep copy of the order
func (t TableOrder) Clone() TableOrder {
	items := make([]LineItem, len(t.Items))
	copy(items, t.Items)
	return TableOrder{Table: t.Table, Items: items}
}

// ItemsTotal sums price*quantity over items
func ItemsTotal(items []LineItem) float64 {
	return lo.SumBy(items, func(item LineItem) float64 {
		return item.Subtotal()
	})
}

// ItemIDs returns the remote ids of items in order
func ItemIDs(items []LineItem) []int64 {
	return lo.Map(items, func(item LineItem, _ int) int64 {
		return item.ID
	})
}
