package services

import (
	"context"
	"math"
	"testing"

	"farmtrack/internal/core"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestDashboardSplit(t *testing.T) {
	ctx := context.Background()
	expenses, registry, reports := newTestServices(t)
	cats, _ := registry.ListCategories(ctx, "alice")

	if _, err := expenses.CreateExpense(ctx, "alice", core.Expense{
		Date:       "2026-03-15",
		CategoryID: cats[0].ID,
		LabourEntries: []core.CostLine{
			{Name: "ploughmen", UnitPrice: 20, Quantity: 5},
		},
		MaterialEntries: []core.CostLine{
			{Name: "diesel", UnitPrice: 10, Quantity: 5},
		},
		OtherCosts: "25",
	}); err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	summary, err := reports.Dashboard(ctx, "alice")
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if !almostEqual(summary.Labour, 100) || !almostEqual(summary.Materials, 50) {
		t.Errorf("split = labour %v materials %v, want 100/50", summary.Labour, summary.Materials)
	}
	if !almostEqual(summary.Total, 175) {
		t.Errorf("Total = %v, want 175", summary.Total)
	}
	if !almostEqual(summary.Other, 25) {
		t.Errorf("Other = %v, want 25", summary.Other)
	}
	if summary.ExpenseCount != 1 {
		t.Errorf("ExpenseCount = %d, want 1", summary.ExpenseCount)
	}
	if !almostEqual(summary.Monthly["2026-03"], 175) {
		t.Errorf("Monthly[2026-03] = %v, want 175", summary.Monthly["2026-03"])
	}
	if len(summary.RecentExpenses) != 1 {
		t.Errorf("RecentExpenses = %d entries, want 1", len(summary.RecentExpenses))
	}
	if summary.CategoryCount != 4 || summary.SubcategoryCount != 4 {
		t.Errorf("registry counts = %d/%d, want 4/4", summary.CategoryCount, summary.SubcategoryCount)
	}
}

func TestDashboardEmpty(t *testing.T) {
	ctx := context.Background()
	_, _, reports := newTestServices(t)

	summary, err := reports.Dashboard(ctx, "nobody")
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if summary.Total != 0 || summary.ExpenseCount != 0 || summary.AveragePerEntry != 0 {
		t.Errorf("empty dashboard = %+v, want zeros", summary)
	}
}

func TestAnalyticsMatchesOverallTotal(t *testing.T) {
	ctx := context.Background()
	expenses, registry, reports := newTestServices(t)
	cats, _ := registry.ListCategories(ctx, "alice")

	seed := []core.Expense{
		{Date: "2026-01-10", CategoryID: cats[0].ID, OtherCosts: "30"},
		{Date: "2026-02-20", CategoryID: cats[1].ID, LabourEntries: []core.CostLine{{UnitPrice: 15, Quantity: 4}}},
	}
	for _, e := range seed {
		if _, err := expenses.CreateExpense(ctx, "alice", e); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	report, err := reports.Analytics(ctx, "alice")
	if err != nil {
		t.Fatalf("Analytics: %v", err)
	}
	if !almostEqual(report.Total, 90) {
		t.Errorf("Total = %v, want 90", report.Total)
	}

	byCategory := 0.0
	for _, v := range report.ByCategory {
		byCategory += v
	}
	if !almostEqual(byCategory, report.Total) {
		t.Errorf("category totals sum to %v, want %v", byCategory, report.Total)
	}

	monthly := 0.0
	for _, v := range report.Monthly {
		monthly += v
	}
	if !almostEqual(monthly, report.Total) {
		t.Errorf("monthly totals sum to %v, want %v", monthly, report.Total)
	}
}

func TestExpenseBreakdownAttributesLabour(t *testing.T) {
	ctx := context.Background()
	expenses, registry, reports := newTestServices(t)
	cats, _ := registry.ListCategories(ctx, "alice")

	saved, err := expenses.CreateExpense(ctx, "alice", core.Expense{
		Date:       "2026-03-15",
		CategoryID: cats[0].ID,
		LabourEntries: []core.CostLine{
			{Name: "weeding crew", UnitPrice: 12, Quantity: 10},
		},
	})
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	breakdown, err := reports.ExpenseBreakdown(ctx, "alice", saved.ID)
	if err != nil {
		t.Fatalf("ExpenseBreakdown: %v", err)
	}
	if !almostEqual(breakdown.Total, 120) {
		t.Errorf("Total = %v, want 120", breakdown.Total)
	}

	subs, _ := registry.ListSubcategories(ctx, "alice")
	labour, ok := core.FindByName(subs, "labour")
	if !ok {
		t.Fatal("seeded registry has no labour subcategory")
	}
	if !almostEqual(breakdown.Distribution[labour.ID], 120) {
		t.Errorf("Distribution[labour] = %v, want 120", breakdown.Distribution[labour.ID])
	}
}
