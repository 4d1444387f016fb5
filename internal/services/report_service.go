package services

import (
	"context"
	"fmt"
	"sort"

	"farmtrack/internal/core"
	"farmtrack/internal/store"
)

// ReportService computes the dashboard and analytics views. Every call works
// from a fresh snapshot; nothing is patched incrementally.
type ReportService struct {
	store store.Store
}

func NewReportService(st store.Store) *ReportService {
	return &ReportService{store: st}
}

// DashboardSummary is the landing-page headline: the labour/materials/other
// split plus entry counts and the monthly series.
type DashboardSummary struct {
	Total            float64            `json:"total"`
	Labour           float64            `json:"labour"`
	Materials        float64            `json:"materials"`
	Other            float64            `json:"other"`
	ExpenseCount     int                `json:"expenseCount"`
	CategoryCount    int                `json:"categoryCount"`
	SubcategoryCount int                `json:"subcategoryCount"`
	AveragePerEntry  float64            `json:"averagePerEntry"`
	Monthly          map[string]float64 `json:"monthly"`
	RecentExpenses   []core.Expense     `json:"recentExpenses"`
}

// AnalyticsReport is the full breakdown view.
type AnalyticsReport struct {
	Total            float64                       `json:"total"`
	ByCategory       map[string]float64            `json:"byCategory"`
	BySubcategory    map[string]float64            `json:"bySubcategory"`
	ByCategoryAndSub map[string]map[string]float64 `json:"byCategoryAndSubcategory"`
	Monthly          map[string]float64            `json:"monthly"`
}

const recentExpenseLimit = 5

// Dashboard computes the summary for one user.
func (s *ReportService) Dashboard(ctx context.Context, user string) (DashboardSummary, error) {
	snap, err := store.LoadSnapshot(ctx, s.store, user)
	if err != nil {
		return DashboardSummary{}, fmt.Errorf("load snapshot: %w", err)
	}

	split := core.LabourMaterialsSplit(snap.Expenses, snap.Subcategories)

	recent := append([]core.Expense{}, snap.Expenses...)
	sort.SliceStable(recent, func(i, j int) bool {
		ti, oki := core.ParseDate(recent[i].Date)
		tj, okj := core.ParseDate(recent[j].Date)
		if oki != okj {
			return oki
		}
		return ti.After(tj)
	})
	if len(recent) > recentExpenseLimit {
		recent = recent[:recentExpenseLimit]
	}

	return DashboardSummary{
		Total:            split.Total,
		Labour:           split.Labour,
		Materials:        split.Materials,
		Other:            split.Other,
		ExpenseCount:     len(snap.Expenses),
		CategoryCount:    len(snap.Categories),
		SubcategoryCount: len(snap.Subcategories),
		AveragePerEntry:  core.AveragePerEntry(snap.Expenses, snap.Subcategories),
		Monthly:          core.MonthlyTotal(snap.Expenses, snap.Subcategories),
		RecentExpenses:   recent,
	}, nil
}

// Analytics computes the full breakdown for one user.
func (s *ReportService) Analytics(ctx context.Context, user string) (AnalyticsReport, error) {
	snap, err := store.LoadSnapshot(ctx, s.store, user)
	if err != nil {
		return AnalyticsReport{}, fmt.Errorf("load snapshot: %w", err)
	}

	return AnalyticsReport{
		Total:            core.OverallTotal(snap.Expenses, snap.Subcategories),
		ByCategory:       core.TotalByCategory(snap.Expenses, snap.Subcategories),
		BySubcategory:    core.TotalBySubcategory(snap.Expenses, snap.Subcategories),
		ByCategoryAndSub: core.CrossTab(snap.Expenses, snap.Categories, snap.Subcategories),
		Monthly:          core.MonthlyTotal(snap.Expenses, snap.Subcategories),
	}, nil
}

// ExpenseBreakdown aggregates a single expense against the current registry.
func (s *ReportService) ExpenseBreakdown(ctx context.Context, user, id string) (core.Breakdown, error) {
	e, err := s.store.GetExpense(ctx, user, id)
	if err != nil {
		return core.Breakdown{}, err
	}
	subs, err := s.store.ListSubcategories(ctx, user)
	if err != nil {
		return core.Breakdown{}, fmt.Errorf("list subcategories: %w", err)
	}
	return core.Aggregate(e.Normalize(), core.EnsureOthers(subs)), nil
}
