// Package store defines the ports the application uses to reach the per-user
// document collections: categories, subcategories, expenses, milestones and
// the singleton farm metadata document. Implementations live in
// store/memory (dev and tests) and storage (SQLite cache).
package store

import (
	"context"
	"errors"

	"farmtrack/internal/core"
)

// Collection names, shared by every implementation and the sync pipeline.
const (
	CollectionCategories    = "categories"
	CollectionSubcategories = "subcategories"
	CollectionExpenses      = "expenses"
	CollectionMilestones    = "milestones"
	CollectionFarmData      = "farmData"

	// FarmMetadataKey is the fixed id of the singleton farm document.
	FarmMetadataKey = "farmMetadata"
)

// ErrNotFound is returned when a document id is absent from its collection.
var ErrNotFound = errors.New("document not found")

type (
	ExpenseStore interface {
		ListExpenses(ctx context.Context, user string) ([]core.Expense, error)
		GetExpense(ctx context.Context, user, id string) (core.Expense, error)
		PutExpense(ctx context.Context, user string, e core.Expense) error
		DeleteExpense(ctx context.Context, user, id string) error
	}

	CategoryStore interface {
		ListCategories(ctx context.Context, user string) ([]core.Category, error)
		PutCategory(ctx context.Context, user string, c core.Category) error
		DeleteCategory(ctx context.Context, user, id string) error
	}

	SubcategoryStore interface {
		ListSubcategories(ctx context.Context, user string) ([]core.Subcategory, error)
		PutSubcategory(ctx context.Context, user string, sc core.Subcategory) error
		DeleteSubcategory(ctx context.Context, user, id string) error
	}

	MilestoneStore interface {
		ListMilestones(ctx context.Context, user string) ([]core.Milestone, error)
		PutMilestone(ctx context.Context, user string, m core.Milestone) error
		DeleteMilestone(ctx context.Context, user, id string) error
	}

	FarmInfoStore interface {
		GetFarmInfo(ctx context.Context, user string) (core.FarmInfo, error)
		PutFarmInfo(ctx context.Context, user string, info core.FarmInfo) error
	}
)

// Store is the full set of collections one backend provides.
type Store interface {
	ExpenseStore
	CategoryStore
	SubcategoryStore
	MilestoneStore
	FarmInfoStore
}

// Snapshot is one consistent fetch of everything the aggregation core needs.
// Subcategories have already been through core.EnsureOthers and expenses
// through core.Normalize.
type Snapshot struct {
	Expenses      []core.Expense
	Categories    []core.Category
	Subcategories []core.Subcategory
}

// LoadSnapshot fetches expenses, categories and subcategories in one pass and
// applies the load-time invariants. Callers recompute rollups from a fresh
// snapshot rather than patching an old one.
func LoadSnapshot(ctx context.Context, s Store, user string) (Snapshot, error) {
	expenses, err := s.ListExpenses(ctx, user)
	if err != nil {
		return Snapshot{}, err
	}
	cats, err := s.ListCategories(ctx, user)
	if err != nil {
		return Snapshot{}, err
	}
	subs, err := s.ListSubcategories(ctx, user)
	if err != nil {
		return Snapshot{}, err
	}

	for i := range expenses {
		expenses[i] = expenses[i].Normalize()
	}
	return Snapshot{
		Expenses:      expenses,
		Categories:    cats,
		Subcategories: core.EnsureOthers(subs),
	}, nil
}
