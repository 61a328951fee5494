package model

import (
	"testing"
	"time"
)

func TestLeadStatusOpenSet(t *testing.T) {
	open := []LeadStatus{LeadStatusNew, LeadStatusContacted, LeadStatusQualified}
	for _, s := range open {
		if !s.Open() {
			t.Fatalf("expected %s to be open", s)
		}
	}
	terminal := []LeadStatus{LeadStatusLost, LeadStatusConverted}
	for _, s := range terminal {
		if s.Open() {
			t.Fatalf("expected %s to be terminal", s)
		}
	}
	if len(OpenStatuses()) != 3 {
		t.Fatalf("expected 3 open statuses, got %d", len(OpenStatuses()))
	}
}

func TestChecklistUnionNeverDropsItems(t *testing.T) {
	base := Checklist{"budget_confirmed", "visit_scheduled"}

	merged := base.Union([]string{"visit_scheduled", "docs_received", ""})

	for _, want := range []string{"budget_confirmed", "visit_scheduled", "docs_received"} {
		if !merged.Contains(want) {
			t.Fatalf("expected merged checklist to contain %q, got %v", want, merged)
		}
	}
	if len(merged) != 3 {
		t.Fatalf("expected 3 items, got %v", merged)
	}
	// original unchanged
	if len(base) != 2 {
		t.Fatalf("union mutated the receiver: %v", base)
	}
}

func TestChecklistScanRoundTrip(t *testing.T) {
	var c Checklist
	if err := c.Scan([]byte(`["a","b"]`)); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(c) != 2 || !c.Contains("a") || !c.Contains("b") {
		t.Fatalf("unexpected checklist after scan: %v", c)
	}

	v, err := Checklist(nil).Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if v != "[]" {
		t.Fatalf("empty checklist should serialize as [], got %v", v)
	}
}

func TestMonthKey(t *testing.T) {
	got := MonthKey(time.Date(2024, 5, 31, 23, 59, 0, 0, time.UTC))
	if got != "2024-05" {
		t.Fatalf("expected 2024-05, got %s", got)
	}

	// non-UTC input normalizes to UTC
	loc := time.FixedZone("UTC+3", 3*3600)
	got = MonthKey(time.Date(2024, 6, 1, 1, 0, 0, 0, loc))
	if got != "2024-05" {
		t.Fatalf("expected 2024-05 for 01 Jun 01:00 UTC+3, got %s", got)
	}
}
