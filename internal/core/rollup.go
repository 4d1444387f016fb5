package core

import "fmt"

// UnknownCategory is the bucket for expenses whose category cannot be
// resolved by either the live registry or the stored name snapshot.
const UnknownCategory = "Unknown"

// TotalByCategory sums aggregated expense totals grouped by the denormalized
// category name snapshot. Renaming or deleting a category does not move
// historical money; that is deliberate.
func TotalByCategory(expenses []Expense, subs []Subcategory) map[string]float64 {
	totals := make(map[string]float64)
	for _, exp := range expenses {
		name := exp.CategoryName
		if name == "" {
			name = UnknownCategory
		}
		totals[name] += Aggregate(exp, subs).Total
	}
	return totals
}

// TotalBySubcategory folds every expense's distribution, resolving
// subcategory ids to their current names. Amounts attributed to ids no longer
// in the registry are dropped from this view; they still count in
// OverallTotal, so the grand total can exceed the sum of the named buckets.
func TotalBySubcategory(expenses []Expense, subs []Subcategory) map[string]float64 {
	byID := make(map[string]Subcategory, len(subs))
	for _, sc := range subs {
		byID[sc.ID] = sc
	}
	totals := make(map[string]float64)
	for _, exp := range expenses {
		for subcatID, amount := range Aggregate(exp, subs).Distribution {
			sc, ok := byID[subcatID]
			if !ok {
				continue
			}
			totals[sc.Name] += amount
		}
	}
	return totals
}

// CrossTab produces category × subcategory totals. The category is resolved
// live by id when possible, falling back to the stored name snapshot.
func CrossTab(expenses []Expense, cats []Category, subs []Subcategory) map[string]map[string]float64 {
	catByID := make(map[string]Category, len(cats))
	for _, c := range cats {
		catByID[c.ID] = c
	}
	subByID := make(map[string]Subcategory, len(subs))
	for _, sc := range subs {
		subByID[sc.ID] = sc
	}

	out := make(map[string]map[string]float64)
	for _, exp := range expenses {
		catName := exp.CategoryName
		if c, ok := catByID[exp.CategoryID]; ok {
			catName = c.Name
		}
		if catName == "" {
			catName = UnknownCategory
		}
		for subcatID, amount := range Aggregate(exp, subs).Distribution {
			sc, ok := subByID[subcatID]
			if !ok {
				continue
			}
			row := out[catName]
			if row == nil {
				row = make(map[string]float64)
				out[catName] = row
			}
			row[sc.Name] += amount
		}
	}
	return out
}

// MonthlyTotal buckets aggregated totals by calendar year-month. Keys are
// zero-padded "YYYY-MM" strings, so lexical order is chronological order.
// Expenses whose date cannot be parsed are left out of this view.
func MonthlyTotal(expenses []Expense, subs []Subcategory) map[string]float64 {
	totals := make(map[string]float64)
	for _, exp := range expenses {
		t, ok := ParseDate(exp.Date)
		if !ok {
			continue
		}
		key := fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
		totals[key] += Aggregate(exp, subs).Total
	}
	return totals
}

// OverallTotal sums the aggregated totals of all expenses.
func OverallTotal(expenses []Expense, subs []Subcategory) float64 {
	total := 0.0
	for _, exp := range expenses {
		total += Aggregate(exp, subs).Total
	}
	return total
}

// AveragePerEntry is the overall total divided by the number of expenses,
// defined as 0 for an empty collection.
func AveragePerEntry(expenses []Expense, subs []Subcategory) float64 {
	if len(expenses) == 0 {
		return 0
	}
	return OverallTotal(expenses, subs) / float64(len(expenses))
}

// Split is the dashboard headline breakdown: labour and materials from the
// structured lines, everything else as other.
type Split struct {
	Total     float64
	Labour    float64
	Materials float64
	Other     float64
}

// LabourMaterialsSplit computes the headline split across all expenses. The
// "other" share is whatever part of each expense's aggregated total the
// structured labour and material lines do not explain.
func LabourMaterialsSplit(expenses []Expense, subs []Subcategory) Split {
	var s Split
	for _, exp := range expenses {
		norm := exp.Normalize()
		for _, entry := range norm.LabourEntries {
			if v := entry.LineTotal(); v > 0 {
				s.Labour += v
			}
		}
		for _, entry := range norm.MaterialEntries {
			if v := entry.LineTotal(); v > 0 {
				s.Materials += v
			}
		}
		s.Total += Aggregate(norm, subs).Total
	}
	s.Other = s.Total - s.Labour - s.Materials
	return s
}
