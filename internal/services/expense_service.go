package services

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
)

const tracerName = "expensetracker/internal/services"

// Store is the persistence the service delegates to.
type Store interface {
	Insert(ctx context.Context, e core.NewExpense) (int64, error)
	ListRange(ctx context.Context, rng core.DateRange) ([]core.Expense, error)
	Edit(ctx context.Context, key core.LookupKey, patch core.ExpensePatch) (core.EditResult, error)
	Delete(ctx context.Context, key core.LookupKey) (int64, error)
	Summarize(ctx context.Context, rng core.DateRange, category string) ([]core.CategoryTotal, error)
	Close() error
}

// Publisher sends change events. It is optional.
type Publisher interface {
	Publish(ctx context.Context, event *amqp.ExpenseEvent) error
	Close() error
}

// ExpenseService is the operation boundary in front of the store: it traces
// and logs every call and announces committed writes.
type ExpenseService struct {
	storage   Store
	publisher Publisher
	logger    *applog.Logger
	tracer    trace.Tracer
}

func NewExpenseService(storage Store, publisher Publisher, logger *applog.Logger) *ExpenseService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &ExpenseService{
		storage:   storage,
		publisher: publisher,
		logger:    logger.WithComponent(applog.ComponentExpense),
		tracer:    otel.Tracer(tracerName),
	}
}

// AddExpense records a new expense and returns its id.
func (s *ExpenseService) AddExpense(ctx context.Context, e core.NewExpense) (id int64, err error) {
	ctx, span := s.start(ctx, "AddExpense",
		attribute.String("expense.date", e.Date),
		attribute.String("expense.category", e.Category))
	defer func() { s.finish(span, err) }()

	fields := applog.NewFields().WithExpense(e.Date, e.Amount, e.Category, e.Subcategory)
	defer func() { s.logger.LogOperation(ctx, applog.OpCreate, fields, err) }()

	if err := e.Validate(); err != nil {
		return 0, err
	}

	id, err = s.storage.Insert(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("save expense: %w", err)
	}
	fields.With(applog.FieldExpenseID, id)

	s.publish(ctx, amqp.NewCreatedEvent(id, e.Date, e.Subcategory))
	return id, nil
}

// ListExpenses returns the expenses dated within rng, in insertion order.
func (s *ExpenseService) ListExpenses(ctx context.Context, rng core.DateRange) (expenses []core.Expense, err error) {
	ctx, span := s.start(ctx, "ListExpenses",
		attribute.String("range.start", rng.Start),
		attribute.String("range.end", rng.End))
	defer func() { s.finish(span, err) }()

	expenses, err = s.storage.ListRange(ctx, rng)
	if err != nil {
		err = fmt.Errorf("list expenses: %w", err)
		s.logger.LogOperation(ctx, applog.OpList, applog.NewFields().WithRange(rng.Start, rng.End), err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("expense.count", len(expenses)))
	return expenses, nil
}

// EditExpense applies patch to every expense matching key.
func (s *ExpenseService) EditExpense(ctx context.Context, key core.LookupKey, patch core.ExpensePatch) (res core.EditResult, err error) {
	ctx, span := s.start(ctx, "EditExpense",
		attribute.String("expense.date", key.Date),
		attribute.String("expense.subcategory", key.Subcategory))
	defer func() { s.finish(span, err) }()

	fields := applog.NewFields().WithLookupKey(key.Date, key.Subcategory)
	defer func() { s.logger.LogOperation(ctx, applog.OpUpdate, fields, err) }()

	res, err = s.storage.Edit(ctx, key, patch)
	if err != nil {
		return core.EditResult{}, fmt.Errorf("edit expense: %w", err)
	}
	fields.With("no_changes", res.NoChanges).With(applog.FieldRowsAffected, res.RowsAffected)

	if res.RowsAffected > 0 {
		s.publish(ctx, amqp.NewUpdatedEvent(key.Date, key.Subcategory, res.RowsAffected))
	}
	return res, nil
}

// DeleteExpense removes every expense matching key.
func (s *ExpenseService) DeleteExpense(ctx context.Context, key core.LookupKey) (rows int64, err error) {
	ctx, span := s.start(ctx, "DeleteExpense",
		attribute.String("expense.date", key.Date),
		attribute.String("expense.subcategory", key.Subcategory))
	defer func() { s.finish(span, err) }()

	fields := applog.NewFields().WithLookupKey(key.Date, key.Subcategory)
	defer func() { s.logger.LogOperation(ctx, applog.OpDelete, fields, err) }()

	rows, err = s.storage.Delete(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("delete expense: %w", err)
	}
	fields.With(applog.FieldRowsAffected, rows)

	if rows > 0 {
		s.publish(ctx, amqp.NewDeletedEvent(key.Date, key.Subcategory, rows))
	}
	return rows, nil
}

// Summarize totals expenses per category within rng. An empty category
// means all categories.
func (s *ExpenseService) Summarize(ctx context.Context, rng core.DateRange, category string) (totals []core.CategoryTotal, err error) {
	ctx, span := s.start(ctx, "Summarize",
		attribute.String("range.start", rng.Start),
		attribute.String("range.end", rng.End),
		attribute.String("expense.category", category))
	defer func() { s.finish(span, err) }()

	totals, err = s.storage.Summarize(ctx, rng, category)
	if err != nil {
		err = fmt.Errorf("summarize expenses: %w", err)
		s.logger.LogOperation(ctx, applog.OpSummarize, applog.NewFields().WithRange(rng.Start, rng.End), err)
		return nil, err
	}
	return totals, nil
}

// publish never fails the caller: the write is already committed.
func (s *ExpenseService) publish(ctx context.Context, event *amqp.ExpenseEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish expense event",
			applog.FieldEventType, event.Type,
			applog.FieldError, err)
	}
}

func (s *ExpenseService) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "ExpenseService."+name, trace.WithAttributes(attrs...))
}

func (s *ExpenseService) finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Close closes both storage and AMQP connections
func (s *ExpenseService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close expense service: %w", errors.Join(errs...))
	}

	return nil
}
