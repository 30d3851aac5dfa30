package models

import "time"

// PrinterKind selects how tickets are rendered
type PrinterKind string

const (
	PrinterThermal PrinterKind = "thermal"
	PrinterGeneric PrinterKind = "generic"
)

// PaperWidth is the paper roll class of a thermal printer
type PaperWidth string

const (
	Paper58mm PaperWidth = "58mm"
	Paper80mm PaperWidth = "80mm"
)

// Columns returns the character-column budget for the paper width
func (w PaperWidth) Columns() int {
	if w == Paper58mm {
		return 32
	}
	return 48
}

// Dots returns the printable raster width at 203 DPI
func (w PaperWidth) Dots() int {
	if w == Paper58mm {
		return 384
	}
	return 576
}

// PrinterTarget describes how tickets are rendered
type PrinterTarget struct {
	Kind  PrinterKind `json:"kind"`
	Paper PaperWidth  `json:"paper"`
}

// Business holds the ticket header information
type Business struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// Ticket is the descriptor for one printable receipt
type Ticket struct {
	Business      Business      `json:"business"`
	Table         string        `json:"table"`
	Items         []LineItem    `json:"items"`
	PaymentMethod PaymentMethod `json:"payment_method,omitempty"` // Empty for a pre-bill
	SplitMode     SplitMode     `json:"split_mode,omitempty"`
	PartySize     int           `json:"party_size"`
	IssuedAt      time.Time     `json:"issued_at"`
	FooterQR      string        `json:"footer_qr,omitempty"`
}

// Total returns the ticket total
func (t Ticket) Total() float64 {
	return ItemsTotal(t.Items)
}

// PerPerson returns the amount each diner pays when the bill is split evenly
func (t Ticket) PerPerson() (float64, bool) {
	if t.SplitMode != SplitPerPerson || t.PartySize <= 1 {
		return 0, false
	}
	return t.Total() / float64(t.PartySize), true
}
