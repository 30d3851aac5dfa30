package main

import (
	"context"
	"sync"

	"ComandaPOS/app/document"
	"ComandaPOS/app/models"
	"ComandaPOS/app/printer"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// Frontend event names
const (
	eventOrdersUpdated = "orders:updated"
	eventSyncError     = "sync:error"
	eventPrintDocument = "print:document"
)

// wailsBridge forwards backend events to the window once it exists
type wailsBridge struct {
	mu  sync.RWMutex
	ctx context.Context
}

func (b *wailsBridge) attach(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ctx = ctx
}

func (b *wailsBridge) context() (context.Context, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ctx, b.ctx != nil
}

func (b *wailsBridge) emit(name string, data ...interface{}) {
	if ctx, ok := b.context(); ok {
		runtime.EventsEmit(ctx, name, data...)
	}
}

// wailsNotifier pushes reconciler results to the orders screen
type wailsNotifier struct {
	bridge *wailsBridge
}

func (n wailsNotifier) OrdersUpdated(orders []models.TableOrder) {
	n.bridge.emit(eventOrdersUpdated, orders)
}

func (n wailsNotifier) SyncFailed(err error) {
	n.bridge.emit(eventSyncError, err.Error())
}

// wailsDocumentSink hands documents to the window, which prints them from a
// hidden frame. Before the window is up the system browser is used.
type wailsDocumentSink struct {
	bridge   *wailsBridge
	fallback printer.DocumentSink
}

func (s wailsDocumentSink) Show(ctx context.Context, doc document.Document) error {
	if _, ok := s.bridge.context(); !ok {
		return s.fallback.Show(ctx, doc)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.bridge.emit(eventPrintDocument, doc)
	return nil
}
