package cache

import (
	"context"
	"testing"
	"time"
)

type planningRow struct {
	ID    string `json:"id"`
	Court int    `json:"court_number"`
}

func TestCache_L1OnlyJSON(t *testing.T) {
	c := NewMultiTierCache(10, nil, time.Minute)
	ctx := context.Background()
	key := PlanningKey("2025-06-03")

	var rows []planningRow
	found, err := c.GetJSON(ctx, key, &rows)
	if err != nil || found {
		t.Fatalf("expected miss, got %v %v", found, err)
	}

	if err := c.SetJSON(ctx, key, []planningRow{{ID: "r1", Court: 2}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	found, err = c.GetJSON(ctx, key, &rows)
	if err != nil || !found {
		t.Fatalf("expected hit, got %v %v", found, err)
	}
	if len(rows) != 1 || rows[0].ID != "r1" || rows[0].Court != 2 {
		t.Errorf("unexpected rows: %+v", rows)
	}

	if err := c.Delete(ctx, key); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, found := c.Get(ctx, key); found {
		t.Error("expected key to be invalidated")
	}
}

func TestCache_CorruptEntry(t *testing.T) {
	c := NewMultiTierCache(10, nil, time.Minute)
	ctx := context.Background()

	c.Set(ctx, "k", "{not json")

	var dest map[string]string
	if _, err := c.GetJSON(ctx, "k", &dest); err == nil {
		t.Fatal("expected decode error")
	}
	if _, found := c.Get(ctx, "k"); found {
		t.Error("expected corrupt entry to be dropped")
	}
}

func TestPlanningKey(t *testing.T) {
	if got := PlanningKey("2025-06-03"); got != "planning:2025-06-03" {
		t.Errorf("unexpected key %q", got)
	}
}

func TestCache_VersionBump(t *testing.T) {
	c := NewMultiTierCache(10, nil, time.Minute)
	ctx := context.Background()
	group := PlanningKey("2025-06-03")

	v0, err := c.Version(ctx, group)
	if err != nil || v0 != 0 {
		t.Fatalf("expected version 0, got %d %v", v0, err)
	}
	c.Set(ctx, VersionedKey(group, v0), "old")

	if err := c.Bump(ctx, group); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v1, _ := c.Version(ctx, group)
	if v1 != 1 {
		t.Fatalf("expected version 1, got %d", v1)
	}
	if _, found := c.Get(ctx, VersionedKey(group, v1)); found {
		t.Error("expected a miss on the new version")
	}

	other, _ := c.Version(ctx, PlanningKey("2025-06-04"))
	if other != 0 {
		t.Errorf("expected other groups untouched, got %d", other)
	}
	if got := VersionedKey(group, 7); got != "planning:2025-06-03:v7" {
		t.Errorf("unexpected versioned key %q", got)
	}
}
