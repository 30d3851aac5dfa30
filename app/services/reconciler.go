package services

import (
	"context"
	"log"
	"slices"
	"sync"
	"time"

	"ComandaPOS/app/models"
)

// DefaultPollInterval is the cadence of open-order polls
const DefaultPollInterval = 5 * time.Second

// Notifier receives reconciliation results. It is called with the reconciler
// lock held and must not call back into the Reconciler.
type Notifier interface {
	OrdersUpdated(orders []models.TableOrder)
	SyncFailed(err error)
}

// Reconciler keeps a local snapshot of open orders in step with the remote
// store. Every poll takes a sequence number when it starts; a result is
// applied only if it is newer than the last applied poll and newer than the
// barrier raised by Stop and ApplyCheckout. Older results are discarded.
type Reconciler struct {
	source   OrderSource
	notifier Notifier
	interval time.Duration

	mu       sync.Mutex
	orders   []models.TableOrder
	seq      uint64 // last poll started
	applied  uint64 // last poll applied
	barrier  uint64 // polls at or below this are stale
	lastSync time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewReconciler creates a stopped reconciler
func NewReconciler(source OrderSource, notifier Notifier, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Reconciler{source: source, notifier: notifier, interval: interval}
}

// Start polls immediately and then on every interval until Stop is called or
// ctx is done. Starting a running reconciler is a no-op.
func (r *Reconciler) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.run(ctx, r.done)

	log.Printf("[INFO] Order polling started | interval: %v", r.interval)
}

// Stop ends polling and discards the result of any poll still in flight
func (r *Reconciler) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.barrier = r.seq
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	log.Printf("[INFO] Order polling stopped")
}

// Running reports whether the polling loop is active
func (r *Reconciler) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

func (r *Reconciler) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[PANIC] Order polling stopped by panic: %v", rec)
			// Mark the loop stopped so Start can launch a new one
			r.mu.Lock()
			if r.done == done {
				r.cancel()
				r.cancel, r.done = nil, nil
			}
			r.mu.Unlock()
		}
	}()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.poll(ctx)
	for {
		select {
		case <-ticker.C:
			r.poll(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Refresh runs one poll now. A failed poll leaves the snapshot untouched and
// returns the error.
func (r *Reconciler) Refresh(ctx context.Context) error {
	return r.poll(ctx)
}

func (r *Reconciler) poll(ctx context.Context) error {
	r.mu.Lock()
	r.seq++
	seq := r.seq
	r.mu.Unlock()

	items, err := r.source.FetchOpenItems(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	if seq <= r.applied || seq <= r.barrier {
		// Superseded by a newer poll, a checkout or Stop
		return nil
	}
	if err != nil {
		log.Printf("[WARNING] Order poll failed | Error: %v", err)
		if r.notifier != nil {
			r.notifier.SyncFailed(err)
		}
		return err
	}

	r.orders = GroupByTable(items)
	r.applied = seq
	r.lastSync = time.Now()
	if r.notifier != nil {
		r.notifier.OrdersUpdated(cloneOrders(r.orders))
	}
	return nil
}

// Snapshot returns a copy of the current open orders
func (r *Reconciler) Snapshot() []models.TableOrder {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneOrders(r.orders)
}

// LastSync returns the time of the last applied poll
func (r *Reconciler) LastSync() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastSync
}

// Table returns the open order of one table
func (r *Reconciler) Table(label string) (models.TableOrder, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, order := range r.orders {
		if order.Table == label {
			return order.Clone(), true
		}
	}
	return models.TableOrder{}, false
}

// ApplyCheckout removes paid items from a table locally, dropping the table
// when nothing is left. Polls started before the checkout are discarded; the
// next poll replaces the snapshot wholesale.
func (r *Reconciler) ApplyCheckout(table string, paidIDs []int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.barrier = r.seq

	orders := r.orders[:0:0]
	for _, order := range r.orders {
		if order.Table == table {
			order = order.Clone()
			order.Items = slices.DeleteFunc(order.Items, func(item models.LineItem) bool {
				return slices.Contains(paidIDs, item.ID)
			})
			if len(order.Items) == 0 {
				continue
			}
		}
		orders = append(orders, order)
	}
	r.orders = orders

	if r.notifier != nil {
		r.notifier.OrdersUpdated(cloneOrders(r.orders))
	}
}

func cloneOrders(orders []models.TableOrder) []models.TableOrder {
	out := make([]models.TableOrder, len(orders))
	for i, order := range orders {
		out[i] = order.Clone()
	}
	return out
}
