package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"farmtrack/internal/amqp"
	"farmtrack/internal/core"
	"farmtrack/internal/store"

	"github.com/google/uuid"
)

// ExpenseService orchestrates expense writes across the local store and AMQP
type ExpenseService struct {
	store      store.Store
	amqpClient *amqp.Client
}

func NewExpenseService(st store.Store, amqpClient *amqp.Client) *ExpenseService {
	return &ExpenseService{
		store:      st,
		amqpClient: amqpClient,
	}
}

// CreateExpense validates and saves an expense locally, then publishes a sync
// message. The stored record carries the denormalized category name and the
// recomputed flat OtherCosts aggregate.
func (s *ExpenseService) CreateExpense(ctx context.Context, user string, e core.Expense) (core.Expense, error) {
	e = e.Normalize()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt == "" {
		e.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	prepared, err := s.prepare(ctx, user, e)
	if err != nil {
		return core.Expense{}, err
	}

	if err := s.store.PutExpense(ctx, user, prepared); err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.publish(ctx, user, store.CollectionExpenses, prepared.ID, amqp.OpPut)
	return prepared, nil
}

// UpdateExpense overwrites an existing expense. The id must already exist;
// updates never resurrect deleted records.
func (s *ExpenseService) UpdateExpense(ctx context.Context, user string, e core.Expense) (core.Expense, error) {
	existing, err := s.store.GetExpense(ctx, user, e.ID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("load expense %s: %w", e.ID, err)
	}

	e = e.Normalize()
	if e.CreatedAt == "" {
		e.CreatedAt = existing.CreatedAt
	}

	prepared, err := s.prepare(ctx, user, e)
	if err != nil {
		return core.Expense{}, err
	}

	if err := s.store.PutExpense(ctx, user, prepared); err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.publish(ctx, user, store.CollectionExpenses, prepared.ID, amqp.OpPut)
	return prepared, nil
}

// DeleteExpense removes an expense locally and publishes a delete message.
func (s *ExpenseService) DeleteExpense(ctx context.Context, user, id string) error {
	if err := s.store.DeleteExpense(ctx, user, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	s.publish(ctx, user, store.CollectionExpenses, id, amqp.OpDelete)
	return nil
}

func (s *ExpenseService) GetExpense(ctx context.Context, user, id string) (core.Expense, error) {
	e, err := s.store.GetExpense(ctx, user, id)
	if err != nil {
		return core.Expense{}, err
	}
	return e.Normalize(), nil
}

// SearchFilter narrows an expense listing. Zero values mean "no constraint".
type SearchFilter struct {
	// Query matches case-insensitively against item name, description, the
	// stored category name, cost line names and dynamic entry labels.
	Query      string
	CategoryID string
	// From and To bound the expense date, inclusive, as "2006-01-02".
	From string
	To   string
}

// ListExpenses returns the user's expenses, optionally filtered. An expense
// with an unparseable date is kept unless a date bound is set.
func (s *ExpenseService) ListExpenses(ctx context.Context, user string, filter SearchFilter) ([]core.Expense, error) {
	expenses, err := s.store.ListExpenses(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	query := strings.ToLower(strings.TrimSpace(filter.Query))
	from, hasFrom := core.ParseDate(filter.From)
	to, hasTo := core.ParseDate(filter.To)

	out := make([]core.Expense, 0, len(expenses))
	for _, e := range expenses {
		e = e.Normalize()
		if filter.CategoryID != "" && e.CategoryID != filter.CategoryID {
			continue
		}
		if query != "" && !matchesQuery(e, query) {
			continue
		}
		if hasFrom || hasTo {
			t, ok := core.ParseDate(e.Date)
			if !ok {
				continue
			}
			if hasFrom && t.Before(from) {
				continue
			}
			if hasTo && t.After(to) {
				continue
			}
		}
		out = append(out, e)
	}
	return out, nil
}

func matchesQuery(e core.Expense, query string) bool {
	fields := []string{e.ItemName, e.Description, e.CategoryName}
	for _, entry := range append(append([]core.CostLine{}, e.LabourEntries...), e.MaterialEntries...) {
		fields = append(fields, entry.Name)
	}
	for _, entries := range e.SubcategoryCosts {
		for _, entry := range entries {
			fields = append(fields, entry.Label)
		}
	}
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

// prepare applies the write-time rules: snapshot the category name, recompute
// the flat OtherCosts aggregate, then validate.
func (s *ExpenseService) prepare(ctx context.Context, user string, e core.Expense) (core.Expense, error) {
	cats, err := s.store.ListCategories(ctx, user)
	if err != nil {
		return core.Expense{}, fmt.Errorf("list categories: %w", err)
	}
	for _, c := range cats {
		if c.ID == e.CategoryID {
			e.CategoryName = c.Name
			break
		}
	}

	e.OtherCosts = e.EffectiveOtherCosts()

	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

func (s *ExpenseService) publish(ctx context.Context, user, collection, docID, op string) {
	publishSync(ctx, s.amqpClient, user, collection, docID, op)
}
