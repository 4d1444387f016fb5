package services

import (
	"context"
	"errors"
	"testing"

	"farmtrack/internal/core"
	"farmtrack/internal/store/memory"
)

func newTestServices(t *testing.T) (*ExpenseService, *RegistryService, *ReportService) {
	t.Helper()
	st := memory.NewFromFiles(t.TempDir())
	return NewExpenseService(st, nil), NewRegistryService(st, nil), NewReportService(st)
}

func TestCreateExpenseSnapshotsCategoryName(t *testing.T) {
	ctx := context.Background()
	expenses, registry, _ := newTestServices(t)

	cats, err := registry.ListCategories(ctx, "alice")
	if err != nil || len(cats) == 0 {
		t.Fatalf("seeded categories: %v (%d)", err, len(cats))
	}

	saved, err := expenses.CreateExpense(ctx, "alice", core.Expense{
		Date:       "2026-03-15",
		CategoryID: cats[0].ID,
		ItemName:   "maize seed",
		MaterialEntries: []core.CostLine{
			{Name: "seed bags", UnitPrice: 25, Quantity: 4},
		},
	})
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
	if saved.ID == "" {
		t.Error("expected a generated id")
	}
	if saved.CategoryName != cats[0].Name {
		t.Errorf("CategoryName = %q, want snapshot %q", saved.CategoryName, cats[0].Name)
	}
	if saved.CreatedAt == "" {
		t.Error("expected CreatedAt to be stamped")
	}
}

func TestCreateExpenseRecomputesOtherCosts(t *testing.T) {
	ctx := context.Background()
	expenses, registry, _ := newTestServices(t)

	cats, _ := registry.ListCategories(ctx, "alice")

	saved, err := expenses.CreateExpense(ctx, "alice", core.Expense{
		Date:       "2026-03-15",
		CategoryID: cats[0].ID,
		OtherCosts: "999", // stale flat value, must be replaced by the aggregate
		SubcategoryCosts: map[string][]core.SubcategoryCost{
			"seed-sub-3": {{Label: "hire", Amount: 40}, {Amount: 10}},
		},
	})
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
	if saved.OtherCosts != "50" {
		t.Errorf("OtherCosts = %q, want recomputed %q", saved.OtherCosts, "50")
	}
}

func TestCreateExpenseRejectsNoCostComponent(t *testing.T) {
	ctx := context.Background()
	expenses, registry, _ := newTestServices(t)
	cats, _ := registry.ListCategories(ctx, "alice")

	_, err := expenses.CreateExpense(ctx, "alice", core.Expense{
		Date:       "2026-03-15",
		CategoryID: cats[0].ID,
	})
	if !errors.Is(err, core.ErrNoCostComponent) {
		t.Errorf("err = %v, want ErrNoCostComponent", err)
	}
}

func TestUpdateExpenseRequiresExisting(t *testing.T) {
	ctx := context.Background()
	expenses, registry, _ := newTestServices(t)
	cats, _ := registry.ListCategories(ctx, "alice")

	_, err := expenses.UpdateExpense(ctx, "alice", core.Expense{
		ID:         "missing",
		Date:       "2026-03-15",
		CategoryID: cats[0].ID,
		OtherCosts: "10",
	})
	if err == nil {
		t.Fatal("expected error updating a missing expense")
	}
}

func TestListExpensesFilters(t *testing.T) {
	ctx := context.Background()
	expenses, registry, _ := newTestServices(t)
	cats, _ := registry.ListCategories(ctx, "alice")

	seed := []core.Expense{
		{Date: "2026-01-10", CategoryID: cats[0].ID, ItemName: "Diesel for tractor", OtherCosts: "30"},
		{Date: "2026-02-20", CategoryID: cats[1].ID, ItemName: "Fertilizer", OtherCosts: "80"},
		{Date: "2026-03-05", CategoryID: cats[0].ID, Description: "tractor service", OtherCosts: "120"},
	}
	for _, e := range seed {
		if _, err := expenses.CreateExpense(ctx, "alice", e); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	got, err := expenses.ListExpenses(ctx, "alice", SearchFilter{Query: "TRACTOR"})
	if err != nil {
		t.Fatalf("ListExpenses: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("query match count = %d, want 2", len(got))
	}

	got, _ = expenses.ListExpenses(ctx, "alice", SearchFilter{CategoryID: cats[1].ID})
	if len(got) != 1 {
		t.Errorf("category match count = %d, want 1", len(got))
	}

	got, _ = expenses.ListExpenses(ctx, "alice", SearchFilter{From: "2026-02-01", To: "2026-02-28"})
	if len(got) != 1 || got[0].ItemName != "Fertilizer" {
		t.Errorf("date range matched %d entries, want just the February one", len(got))
	}
}

func TestListExpensesIsolatedPerUser(t *testing.T) {
	ctx := context.Background()
	expenses, registry, _ := newTestServices(t)
	cats, _ := registry.ListCategories(ctx, "alice")

	if _, err := expenses.CreateExpense(ctx, "alice", core.Expense{
		Date: "2026-01-10", CategoryID: cats[0].ID, OtherCosts: "30",
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, err := expenses.ListExpenses(ctx, "bob", SearchFilter{})
	if err != nil {
		t.Fatalf("ListExpenses: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("bob sees %d of alice's expenses", len(got))
	}
}
