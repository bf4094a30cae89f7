package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/sheets"
)

// Snapshotter loads every stored expense.
type Snapshotter interface {
	ListAll(ctx context.Context) ([]core.Expense, error)
}

// SyncWorker mirrors the SQLite expense table into a sheet. Change events
// only trigger a reload; the exported table is always the full snapshot.
type SyncWorker struct {
	store    Snapshotter
	exporter sheets.ExpenseExporter
	logger   *applog.Logger

	// mu keeps exports from interleaving between the consumer and the ticker.
	mu sync.Mutex
}

func NewSyncWorker(store Snapshotter, exporter sheets.ExpenseExporter, logger *applog.Logger) *SyncWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &SyncWorker{
		store:    store,
		exporter: exporter,
		logger:   logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleEvent processes a single change event from AMQP. A returned error
// makes the consumer requeue the event.
func (w *SyncWorker) HandleEvent(ctx context.Context, event *amqp.ExpenseEvent) error {
	w.logger.InfoContext(ctx, "Processing change event",
		"event_id", event.EventID,
		applog.FieldEventType, string(event.Type),
		applog.FieldDate, event.Date,
		applog.FieldSubcategory, event.Subcategory,
		applog.FieldRowsAffected, event.RowsAffected)

	if err := w.Resync(ctx); err != nil {
		return fmt.Errorf("sync after %s: %w", event.Type, err)
	}
	return nil
}

// Resync exports the current snapshot. It also runs periodically as a
// backup in case events are lost.
func (w *SyncWorker) Resync(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	start := time.Now()
	expenses, err := w.store.ListAll(ctx)
	if err != nil {
		w.logger.LogOperation(ctx, applog.OpSync, applog.NewFields().WithDuration(start), err)
		return fmt.Errorf("load expenses: %w", err)
	}

	err = w.exporter.ReplaceAll(ctx, expenses)
	w.logger.LogOperation(ctx, applog.OpSync,
		applog.NewFields().With(applog.FieldCount, len(expenses)).WithDuration(start),
		err)
	if err != nil {
		return fmt.Errorf("export expenses: %w", err)
	}
	return nil
}

// RunPeriodic calls Resync every interval until ctx ends. Failures are
// logged and retried on the next tick.
func (w *SyncWorker) RunPeriodic(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.Resync(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic sync failed", "error", err)
			}
		}
	}
}
