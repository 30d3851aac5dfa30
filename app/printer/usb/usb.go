// Package usb acquires allow-listed thermal printers over libusb and streams
// command buffers to their bulk-out endpoint.
package usb

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"ComandaPOS/app/printer"

	"github.com/google/gousb"
)

// Detector implements printer.Detector on top of libusb
type Detector struct{}

// NewDetector creates a USB detector
func NewDetector() *Detector {
	return &Detector{}
}

// List returns attached devices whose vendor is on the allow-list. Devices
// are only inspected, never opened.
func (d *Detector) List(ctx context.Context) ([]printer.Candidate, error) {
	usbCtx := gousb.NewContext()
	defer usbCtx.Close()

	var found []printer.Candidate
	_, err := usbCtx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if vendor, ok := printer.VendorName(uint16(desc.Vendor)); ok {
			found = append(found, printer.Candidate{
				Bus:       desc.Bus,
				Address:   desc.Address,
				VendorID:  uint16(desc.Vendor),
				ProductID: uint16(desc.Product),
				Vendor:    vendor,
			})
		}
		return false
	})
	if err != nil {
		return nil, classify("enumerate devices", err)
	}
	return found, nil
}

// Open runs the handshake: open the device, select configuration 1, claim
// interface 0 and locate its bulk-out endpoint.
func (d *Detector) Open(ctx context.Context, c printer.Candidate) (printer.Transport, printer.DeviceInfo, error) {
	usbCtx := gousb.NewContext()

	devs, err := usbCtx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Bus == c.Bus && desc.Address == c.Address && uint16(desc.Vendor) == c.VendorID
	})
	if len(devs) == 0 {
		usbCtx.Close()
		if err != nil {
			return nil, printer.DeviceInfo{}, classify("open device", err)
		}
		return nil, printer.DeviceInfo{}, printer.ErrNoDeviceFound
	}
	dev := devs[0]
	for _, extra := range devs[1:] {
		extra.Close()
	}

	t := &Transport{ctx: usbCtx, dev: dev}

	// Let libusb detach the kernel printer driver when it holds the interface
	if err := dev.SetAutoDetach(true); err != nil {
		log.Printf("[WARNING] Could not enable kernel driver auto-detach | %v", err)
	}

	t.cfg, err = dev.Config(1)
	if err != nil {
		t.Close()
		return nil, printer.DeviceInfo{}, classify("select configuration", err)
	}

	t.intf, err = t.cfg.Interface(0, 0)
	if err != nil {
		t.Close()
		return nil, printer.DeviceInfo{}, classify("claim interface", err)
	}

	epNum, ok := outEndpoint(t.intf.Setting.Endpoints)
	if !ok {
		t.Close()
		return nil, printer.DeviceInfo{}, printer.ErrNoOutputEndpoint
	}
	t.out, err = t.intf.OutEndpoint(epNum)
	if err != nil {
		t.Close()
		return nil, printer.DeviceInfo{}, classify("open output endpoint", err)
	}

	product, _ := dev.Product()
	manufacturer, _ := dev.Manufacturer()
	info := printer.DescribeDevice(product, manufacturer)
	info.Address = c.String()

	return t, info, nil
}

// outEndpoint picks the lowest-numbered OUT endpoint
func outEndpoint(endpoints map[gousb.EndpointAddress]gousb.EndpointDesc) (int, bool) {
	var nums []int
	for _, ep := range endpoints {
		if ep.Direction == gousb.EndpointDirectionOut {
			nums = append(nums, ep.Number)
		}
	}
	if len(nums) == 0 {
		return 0, false
	}
	sort.Ints(nums)
	return nums[0], true
}

// Transport is an open, claimed USB printer
type Transport struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface
	out  *gousb.OutEndpoint
}

// Write performs a bulk-out transfer of data
func (t *Transport) Write(ctx context.Context, data []byte) error {
	if t.out == nil {
		return printer.ErrNotConnected
	}
	n, err := t.out.WriteContext(ctx, data)
	if err != nil {
		return classify("transfer", err)
	}
	if n != len(data) {
		return &printer.TransferError{Op: "transfer", Err: fmt.Errorf("short write: %d of %d bytes", n, len(data))}
	}
	return nil
}

// Close releases the interface, configuration, device and context
func (t *Transport) Close() error {
	if t.intf != nil {
		t.intf.Close()
	}
	var errs []error
	if t.cfg != nil {
		errs = append(errs, t.cfg.Close())
	}
	if t.dev != nil {
		errs = append(errs, t.dev.Close())
	}
	if t.ctx != nil {
		errs = append(errs, t.ctx.Close())
	}
	t.out, t.intf, t.cfg, t.dev, t.ctx = nil, nil, nil, nil, nil
	return errors.Join(errs...)
}

// classify maps libusb failures onto the printer error taxonomy. Access and
// busy errors mean another driver owns the device.
func classify(op string, err error) error {
	var usbErr gousb.Error
	if errors.As(err, &usbErr) && (usbErr == gousb.ErrorAccess || usbErr == gousb.ErrorBusy) {
		return fmt.Errorf("%w (%s: %v)", printer.ErrAccessDenied, op, err)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "access denied") || strings.Contains(msg, "unable to claim interface") {
		return fmt.Errorf("%w (%s: %v)", printer.ErrAccessDenied, op, err)
	}
	return &printer.TransferError{Op: op, Err: err}
}
