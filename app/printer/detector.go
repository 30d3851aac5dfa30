package printer

import (
	"context"
	"fmt"
)

// Known thermal-printer USB vendors
var knownVendors = map[uint16]string{
	0x04b8: "Epson",
	0x0519: "Star Micronics",
	0x1fc9: "HPRT",
	0x154f: "Citizen",
	0x20d1: "Rongta",
	0x0fe6: "ICS Advent",
}

// Fallback labels when a device omits its descriptor strings
const (
	DefaultDeviceName   = "Impresora Térmica"
	DefaultDeviceVendor = "Desconocido"
)

// VendorName returns the vendor label of an allow-listed vendor id
func VendorName(vendorID uint16) (string, bool) {
	name, ok := knownVendors[vendorID]
	return name, ok
}

// Candidate is an attached device that matches the vendor allow-list
type Candidate struct {
	Bus       int    `json:"bus"`
	Address   int    `json:"address"`
	VendorID  uint16 `json:"vendor_id"`
	ProductID uint16 `json:"product_id"`
	Vendor    string `json:"vendor"`
}

func (c Candidate) String() string {
	return fmt.Sprintf("%s %04x:%04x (bus %d, address %d)", c.Vendor, c.VendorID, c.ProductID, c.Bus, c.Address)
}

// Detector enumerates and opens local printers
type Detector interface {
	List(ctx context.Context) ([]Candidate, error)
	Open(ctx context.Context, c Candidate) (Transport, DeviceInfo, error)
}

// DescribeDevice applies the fallback labels to missing descriptor strings
func DescribeDevice(product, manufacturer string) DeviceInfo {
	info := DeviceInfo{Name: product, Vendor: manufacturer, Connection: "usb"}
	if info.Name == "" {
		info.Name = DefaultDeviceName
	}
	if info.Vendor == "" {
		info.Vendor = DefaultDeviceVendor
	}
	return info
}
