// Package printer owns the connection to a thermal printer and the surfaces
// used to print documents on generic printers.
package printer

import (
	"context"
	"log"
	"sync"
)

// Transport moves raw bytes to a printer
type Transport interface {
	Write(ctx context.Context, data []byte) error
	Close() error
}

// DeviceInfo describes the connected device
type DeviceInfo struct {
	Name       string `json:"name"`
	Vendor     string `json:"vendor"`
	Connection string `json:"connection"` // "usb" or "network"
	Address    string `json:"address,omitempty"`
}

type sendJob struct {
	ctx  context.Context
	data []byte
	done chan error
}

// DeviceHandle is an open connection to one thermal printer. All sends go
// through a single FIFO worker so that concurrent print jobs never
// interleave their bytes on the wire.
type DeviceHandle struct {
	mu        sync.Mutex
	transport Transport
	info      DeviceInfo
	jobs      chan sendJob
	quit      chan struct{}
	stopped   chan struct{}
}

// NewDeviceHandle creates a disconnected handle
func NewDeviceHandle() *DeviceHandle {
	return &DeviceHandle{}
}

// Connect attaches a transport, replacing any previous connection
func (h *DeviceHandle) Connect(t Transport, info DeviceInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.disconnectLocked()

	h.transport = t
	h.info = info
	h.jobs = make(chan sendJob)
	h.quit = make(chan struct{})
	h.stopped = make(chan struct{})

	go h.worker(t, h.jobs, h.quit, h.stopped)
	log.Printf("[INFO] Printer connected | %s (%s) via %s", info.Name, info.Vendor, info.Connection)
}

// Connected reports whether a transport is attached
func (h *DeviceHandle) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.transport != nil
}

// Info returns the connected device description
func (h *DeviceHandle) Info() (DeviceInfo, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.info, h.transport != nil
}

// Send queues data for the device and waits until it has been written.
// Cancelling ctx abandons the wait, not a transfer already in progress.
func (h *DeviceHandle) Send(ctx context.Context, data []byte) error {
	h.mu.Lock()
	jobs, quit := h.jobs, h.quit
	h.mu.Unlock()

	if jobs == nil {
		return ErrNotConnected
	}

	// Once the worker picks the job up it runs to completion
	job := sendJob{ctx: context.WithoutCancel(ctx), data: data, done: make(chan error, 1)}
	select {
	case jobs <- job:
	case <-quit:
		return ErrNotConnected
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-job.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close disconnects the device
func (h *DeviceHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.disconnectLocked()
}

func (h *DeviceHandle) disconnectLocked() error {
	if h.transport == nil {
		return nil
	}
	close(h.quit)
	<-h.stopped

	err := h.transport.Close()
	h.transport = nil
	h.info = DeviceInfo{}
	h.jobs, h.quit, h.stopped = nil, nil, nil
	return err
}

func (h *DeviceHandle) worker(t Transport, jobs <-chan sendJob, quit <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	for {
		select {
		case job := <-jobs:
			job.done <- t.Write(job.ctx, job.data)
		case <-quit:
			return
		}
	}
}
