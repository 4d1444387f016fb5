package core

import (
	"encoding/json"
	"math"
	"testing"
)

var testRegistry = []Subcategory{
	{ID: "labour-id", Name: "Labour"},
	{ID: "materials-id", Name: "Materials"},
	{ID: "transport-id", Name: "Transport"},
	{ID: "food-id", Name: "Food"},
	{ID: OthersSubcategoryID, Name: "Others"},
}

func TestAggregateReconciliation(t *testing.T) {
	// otherCosts already contains the dynamic sum, so only the excess is
	// additional plain-other money. Here there is no excess.
	exp := Expense{
		LabourEntries: []CostLine{{Name: "Ploughman", UnitPrice: 100, Quantity: 2}},
		SubcategoryCosts: map[string][]SubcategoryCost{
			"transport-id": {{Amount: 50}},
		},
		OtherCosts: "50",
	}

	got := Aggregate(exp, testRegistry)
	if got.Total != 250 {
		t.Fatalf("total = %v, want 250", got.Total)
	}
	if got.Distribution["labour-id"] != 200 {
		t.Fatalf("labour share = %v, want 200", got.Distribution["labour-id"])
	}
	if got.Distribution["transport-id"] != 50 {
		t.Fatalf("transport share = %v, want 50", got.Distribution["transport-id"])
	}
	if _, ok := got.Distribution[OthersSubcategoryID]; ok {
		t.Fatalf("unexpected others share: %v", got.Distribution[OthersSubcategoryID])
	}
}

func TestAggregateLegacyRecord(t *testing.T) {
	// Gen-1 record: no dynamic entries, flat otherCosts is the only "other".
	exp := Expense{
		MaterialEntries: []CostLine{{Name: "Seed", UnitPrice: 10, Quantity: 5}},
		OtherCosts:      "25",
	}

	got := Aggregate(exp, testRegistry)
	if got.Total != 75 {
		t.Fatalf("total = %v, want 75", got.Total)
	}
	if got.Distribution["materials-id"] != 50 {
		t.Fatalf("materials share = %v, want 50", got.Distribution["materials-id"])
	}
	if got.Distribution[OthersSubcategoryID] != 25 {
		t.Fatalf("others share = %v, want 25", got.Distribution[OthersSubcategoryID])
	}
}

func TestAggregateExcessOther(t *testing.T) {
	// otherCosts exceeds the dynamic sum: the excess is plain-other money.
	exp := Expense{
		SubcategoryCosts: map[string][]SubcategoryCost{
			"food-id": {{Amount: 30}},
		},
		OtherCosts: "100",
	}

	got := Aggregate(exp, testRegistry)
	if got.Total != 100 {
		t.Fatalf("total = %v, want 100", got.Total)
	}
	if got.Distribution["food-id"] != 30 {
		t.Fatalf("food share = %v, want 30", got.Distribution["food-id"])
	}
	if got.Distribution[OthersSubcategoryID] != 70 {
		t.Fatalf("others share = %v, want 70", got.Distribution[OthersSubcategoryID])
	}
}

func TestAggregateUnattributedMoney(t *testing.T) {
	// No Labour or Others subcategory in the registry: money stays in the
	// total but is absent from the distribution.
	registry := []Subcategory{{ID: "transport-id", Name: "Transport"}}
	exp := Expense{
		LabourEntries: []CostLine{{UnitPrice: 100, Quantity: 1}},
		OtherCosts:    "40",
	}

	got := Aggregate(exp, registry)
	if got.Total != 140 {
		t.Fatalf("total = %v, want 140", got.Total)
	}
	if len(got.Distribution) != 0 {
		t.Fatalf("distribution should be empty, got %v", got.Distribution)
	}
}

func TestAggregateMalformedInputs(t *testing.T) {
	// One bad record must never crash or blank out reporting: malformed
	// numerics contribute 0.
	var exp Expense
	raw := `{
		"labourEntries": [{"name": "x", "unitPrice": "abc", "quantity": "2"}],
		"otherCosts": "not-a-number"
	}`
	if err := json.Unmarshal([]byte(raw), &exp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	got := Aggregate(exp, testRegistry)
	if got.Total != 0 {
		t.Fatalf("total = %v, want 0", got.Total)
	}
	if len(got.Distribution) != 0 {
		t.Fatalf("distribution should be empty, got %v", got.Distribution)
	}
}

func TestAggregateSkipsNonFinite(t *testing.T) {
	exp := Expense{
		LabourEntries: []CostLine{
			{UnitPrice: Amount(math.Inf(1)), Quantity: 1},
			{UnitPrice: 10, Quantity: 3},
		},
	}
	got := Aggregate(exp, testRegistry)
	if got.Total != 30 {
		t.Fatalf("total = %v, want 30", got.Total)
	}
}

func TestAggregatePure(t *testing.T) {
	exp := Expense{
		LabourEntries: []CostLine{{UnitPrice: 5, Quantity: 4}},
		SubcategoryCosts: map[string][]SubcategoryCost{
			"transport-id": {{Amount: 10}},
		},
		OtherCosts: "10",
	}

	first := Aggregate(exp, testRegistry)
	second := Aggregate(exp, testRegistry)
	if first.Total != second.Total {
		t.Fatalf("totals differ: %v vs %v", first.Total, second.Total)
	}
	if len(first.Distribution) != len(second.Distribution) {
		t.Fatalf("distributions differ: %v vs %v", first.Distribution, second.Distribution)
	}
	for k, v := range first.Distribution {
		if second.Distribution[k] != v {
			t.Fatalf("distribution[%s] differs: %v vs %v", k, v, second.Distribution[k])
		}
	}
	// Aggregate must not have touched the input.
	if exp.SubcategoryCosts["transport-id"][0].Amount != 10 {
		t.Fatalf("input mutated: %+v", exp)
	}
	if exp.OtherCosts != "10" {
		t.Fatalf("input mutated: %+v", exp)
	}
}

func TestAggregateZeroEntrySkipped(t *testing.T) {
	exp := Expense{
		LabourEntries: []CostLine{{UnitPrice: 0, Quantity: 100}, {UnitPrice: 2, Quantity: 3}},
	}
	got := Aggregate(exp, testRegistry)
	if got.Total != 6 {
		t.Fatalf("total = %v, want 6", got.Total)
	}
	if got.Distribution["labour-id"] != 6 {
		t.Fatalf("labour share = %v, want 6", got.Distribution["labour-id"])
	}
}
