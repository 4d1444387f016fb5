// Package core holds the expense domain model and the aggregation rules every
// reporting view is built on. All functions here are pure: no I/O, no
// mutation of inputs, no failure modes beyond returning zero contributions
// for malformed data.
package core

// Breakdown is the canonical (total, distribution) pair for one expense.
// Distribution maps subcategory ids to the share of the total attributed to
// them. The two can disagree: money whose subcategory is missing from the
// registry stays in Total but is absent from Distribution.
type Breakdown struct {
	Total        float64            `json:"total"`
	Distribution map[string]float64 `json:"distribution"`
}

// Aggregate computes the monetary total of one expense and its distribution
// across subcategories. This is the single source of truth for expense
// totals; reporting views must fold these results and never re-sum cost
// fields by another path.
//
// The rules, in order:
//
//  1. Labour lines sum to a labour total (non-positive and malformed lines
//     are skipped). A positive labour total is attributed to the subcategory
//     named "Labour" when the registry has one; it counts toward the total
//     either way.
//  2. Material lines work the same against "Materials"/"Material".
//  3. Each dynamic subcategory entry list sums per subcategory id; positive
//     subtotals go straight into the distribution and accumulate as the
//     dynamic other total.
//  4. The legacy flat OtherCosts field is reconciled against the dynamic
//     total: current-generation records store the dynamic aggregate in
//     OtherCosts, so when dynamic entries exist only the excess over their
//     sum is additional plain-other money. A positive remainder is
//     attributed to "Others".
func Aggregate(exp Expense, subs []Subcategory) Breakdown {
	exp = exp.Normalize()
	dist := make(map[string]float64)
	total := 0.0

	labourTotal := 0.0
	for _, entry := range exp.LabourEntries {
		if v := entry.LineTotal(); v > 0 {
			labourTotal += v
		}
	}
	if labourTotal > 0 {
		if labour, ok := FindByName(subs, "labour"); ok {
			dist[labour.ID] += labourTotal
		}
		total += labourTotal
	}

	materialTotal := 0.0
	for _, entry := range exp.MaterialEntries {
		if v := entry.LineTotal(); v > 0 {
			materialTotal += v
		}
	}
	if materialTotal > 0 {
		if materials, ok := FindByName(subs, "materials"); ok {
			dist[materials.ID] += materialTotal
		} else if materials, ok := FindByName(subs, "material"); ok {
			dist[materials.ID] += materialTotal
		}
		total += materialTotal
	}

	dynamicOtherTotal := 0.0
	for subcatID, entries := range exp.SubcategoryCosts {
		subtotal := 0.0
		for _, entry := range entries {
			if v := float64(entry.Amount); v > 0 {
				subtotal += v
			}
		}
		if subtotal > 0 {
			dist[subcatID] += subtotal
			dynamicOtherTotal += subtotal
		}
	}
	total += dynamicOtherTotal

	flatOther := ParseAmount(exp.OtherCosts)
	plainOther := flatOther
	if dynamicOtherTotal > 0 {
		plainOther = flatOther - dynamicOtherTotal
		if plainOther < 0 {
			plainOther = 0
		}
	}
	if plainOther > 0 {
		if others, ok := FindByName(subs, "others"); ok {
			dist[others.ID] += plainOther
		}
		total += plainOther
	}

	return Breakdown{Total: total, Distribution: dist}
}

// Total is a shorthand for callers that only need the headline amount.
func Total(exp Expense, subs []Subcategory) float64 {
	return Aggregate(exp, subs).Total
}
