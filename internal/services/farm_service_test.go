package services

import (
	"context"
	"testing"

	"farmtrack/internal/core"
	"farmtrack/internal/store/memory"
)

func TestMilestonesSortedMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	farm := NewFarmService(memory.New(), nil)

	seed := []core.Milestone{
		{Title: "First planting", Date: "2026-02-01"},
		{Title: "Harvest start", Date: "2026-06-12"},
		{Title: "Land cleared", Date: "2026-01-05"},
		{Title: "Undated note", Date: "someday"},
	}
	for _, m := range seed {
		if _, err := farm.CreateMilestone(ctx, "alice", m); err != nil {
			t.Fatalf("CreateMilestone(%q): %v", m.Title, err)
		}
	}

	got, err := farm.ListMilestones(ctx, "alice")
	if err != nil {
		t.Fatalf("ListMilestones: %v", err)
	}
	wantOrder := []string{"Harvest start", "First planting", "Land cleared", "Undated note"}
	if len(got) != len(wantOrder) {
		t.Fatalf("got %d milestones, want %d", len(got), len(wantOrder))
	}
	for i, title := range wantOrder {
		if got[i].Title != title {
			t.Errorf("position %d = %q, want %q", i, got[i].Title, title)
		}
	}
}

func TestCreateMilestoneValidates(t *testing.T) {
	ctx := context.Background()
	farm := NewFarmService(memory.New(), nil)

	if _, err := farm.CreateMilestone(ctx, "alice", core.Milestone{Date: "2026-02-01"}); err == nil {
		t.Error("expected a title to be required")
	}
	if _, err := farm.CreateMilestone(ctx, "alice", core.Milestone{Title: "x"}); err == nil {
		t.Error("expected a date to be required")
	}
}

func TestFarmInfoRoundTrip(t *testing.T) {
	ctx := context.Background()
	farm := NewFarmService(memory.New(), nil)

	info, err := farm.GetFarmInfo(ctx, "alice")
	if err != nil {
		t.Fatalf("GetFarmInfo: %v", err)
	}
	if info != (core.FarmInfo{}) {
		t.Errorf("fresh farm info = %+v, want zero value", info)
	}

	saved, err := farm.PutFarmInfo(ctx, "alice", core.FarmInfo{
		Name: "Green Acres", Location: "Nakuru", SizeAcres: 12.5,
	})
	if err != nil {
		t.Fatalf("PutFarmInfo: %v", err)
	}
	if saved.UpdatedAt == "" {
		t.Error("expected UpdatedAt to be stamped")
	}

	got, err := farm.GetFarmInfo(ctx, "alice")
	if err != nil {
		t.Fatalf("GetFarmInfo: %v", err)
	}
	if got.Name != "Green Acres" || got.SizeAcres != 12.5 {
		t.Errorf("round trip = %+v", got)
	}
}
