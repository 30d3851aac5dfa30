package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"ComandaPOS/app/config"
	"ComandaPOS/app/models"
	"ComandaPOS/app/rowstore"

	"golang.org/x/sync/errgroup"
)

// maxConcurrentPatches bounds the number of in-flight mark-paid requests
const maxConcurrentPatches = 8

// OrderSource provides the unpaid, unfinished items of every table
type OrderSource interface {
	FetchOpenItems(ctx context.Context) ([]models.LineItem, error)
}

// PaidMarker flags items as paid in the remote store
type PaidMarker interface {
	MarkPaid(ctx context.Context, ids []int64) []int64
}

// PaidItem is a paid line item with the raw entry date text of its row
type PaidItem struct {
	models.LineItem
	EntryDate string
}

// PaidSource provides every paid item, for statistics
type PaidSource interface {
	FetchPaidItems(ctx context.Context) ([]PaidItem, error)
}

// FieldMapping maps logical item fields to row store field ids
type FieldMapping struct {
	Name        string
	Description string
	Price       string
	Quantity    string
	Table       string
	Finished    string
	Paid        string
	EntryDate   string
}

// NewFieldMapping builds the mapping from the configured field ids
func NewFieldMapping(fields config.FieldConfig) FieldMapping {
	return FieldMapping{
		Name:        fields.Name,
		Description: fields.Description,
		Price:       fields.Price,
		Quantity:    fields.Quantity,
		Table:       fields.Table,
		Finished:    fields.Finished,
		Paid:        fields.Paid,
		EntryDate:   fields.EntryDate,
	}
}

// LineItem maps one row. Absent text fields are empty; price defaults to 0
// and quantity to 1.
func (m FieldMapping) LineItem(row rowstore.Row) models.LineItem {
	return models.LineItem{
		ID:          row.ID,
		Name:        row.Field(m.Name).String(),
		Description: row.Field(m.Description).String(),
		Price:       rowstore.Price(row.Field(m.Price)),
		Quantity:    rowstore.Quantity(row.Field(m.Quantity)),
		Table:       strings.TrimSpace(row.Field(m.Table).String()),
	}
}

// GroupByTable groups items by table label in first-seen order. Items without
// a label go to models.DefaultTable.
func GroupByTable(items []models.LineItem) []models.TableOrder {
	index := make(map[string]int)
	var orders []models.TableOrder
	for _, item := range items {
		table := item.Table
		if table == "" {
			table = models.DefaultTable
			item.Table = table
		}
		i, ok := index[table]
		if !ok {
			i = len(orders)
			index[table] = i
			orders = append(orders, models.TableOrder{Table: table})
		}
		orders[i].Items = append(orders[i].Items, item)
	}
	return orders
}

// BaserowOrders reads and updates order rows in a Baserow table
type BaserowOrders struct {
	mu    sync.RWMutex
	table baserowTable
}

type baserowTable struct {
	client   *rowstore.Client
	tableID  string
	fields   FieldMapping
	pageSize int
}

// NewBaserowOrders creates an order source over one table
func NewBaserowOrders(client *rowstore.Client, tableID string, fields FieldMapping, pageSize int) *BaserowOrders {
	return &BaserowOrders{table: baserowTable{client: client, tableID: tableID, fields: fields, pageSize: pageSize}}
}

// NewBaserowOrdersFromConfig wires the client and mapping from configuration
func NewBaserowOrdersFromConfig(cfg *config.AppConfig) *BaserowOrders {
	o := &BaserowOrders{}
	o.Configure(cfg)
	return o
}

// Configure replaces the connection and field mapping. Requests already in
// flight finish against the previous table.
func (o *BaserowOrders) Configure(cfg *config.AppConfig) {
	client := rowstore.NewClient(rowstore.Options{
		BaseURL:           cfg.RowStore.BaseURL,
		Token:             cfg.RowStore.APIToken,
		RequestsPerSecond: cfg.RowStore.RequestsPerSecond,
	})

	o.mu.Lock()
	defer o.mu.Unlock()
	o.table = baserowTable{
		client:   client,
		tableID:  cfg.RowStore.TableID,
		fields:   NewFieldMapping(cfg.RowStore.Fields),
		pageSize: cfg.RowStore.HistoryPageSize,
	}
}

func (o *BaserowOrders) current() baserowTable {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.table
}

// FetchOpenItems lists rows that are neither finished nor paid
func (o *BaserowOrders) FetchOpenItems(ctx context.Context) ([]models.LineItem, error) {
	t := o.current()
	rows, err := t.client.ListRows(ctx, t.tableID, rowstore.Query{Filters: []rowstore.BoolFilter{
		{Field: t.fields.Finished, Value: false},
		{Field: t.fields.Paid, Value: false},
	}})
	if err != nil {
		return nil, err
	}

	items := make([]models.LineItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, t.fields.LineItem(row))
	}
	return items, nil
}

// FetchPaidItems lists every paid row, page by page
func (o *BaserowOrders) FetchPaidItems(ctx context.Context) ([]PaidItem, error) {
	t := o.current()
	if t.fields.EntryDate == "" {
		return nil, fmt.Errorf("%w: missing entry date field", config.ErrNotConfigured)
	}

	rows, err := t.client.ListRows(ctx, t.tableID, rowstore.Query{
		Filters: []rowstore.BoolFilter{{Field: t.fields.Paid, Value: true}},
		Size:    t.pageSize,
	})
	if err != nil {
		return nil, err
	}

	items := make([]PaidItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, PaidItem{
			LineItem:  t.fields.LineItem(row),
			EntryDate: strings.TrimSpace(row.Field(t.fields.EntryDate).String()),
		})
	}
	return items, nil
}

// MarkPaid issues one patch per id. Individual rejections are logged and
// returned as failed ids; they never abort the other patches.
func (o *BaserowOrders) MarkPaid(ctx context.Context, ids []int64) []int64 {
	t := o.current()
	var (
		mu     sync.Mutex
		failed []int64
	)

	var g errgroup.Group
	g.SetLimit(maxConcurrentPatches)
	for _, id := range ids {
		g.Go(func() error {
			err := t.client.PatchRow(ctx, t.tableID, id, map[string]any{t.fields.Paid: true})
			if err != nil {
				var apiErr *rowstore.APIError
				if errors.As(err, &apiErr) {
					log.Printf("[ERROR] Failed to mark item %d as paid | status: %d", id, apiErr.Status)
				} else {
					log.Printf("[ERROR] Failed to mark item %d as paid | Error: %v", id, err)
				}
				mu.Lock()
				failed = append(failed, id)
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()
	return failed
}
