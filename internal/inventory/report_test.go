package inventory

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pennyekart/pennyekart-backend/internal/demand"
	"github.com/pennyekart/pennyekart-backend/pkg/db/models"
	"github.com/pennyekart/pennyekart-backend/pkg/enums"
	"github.com/pennyekart/pennyekart-backend/pkg/types"
)

func strPtr(s string) *string { return &s }

func TestClassify(t *testing.T) {
	t.Parallel()
	cases := []struct {
		total, reorder int
		want           enums.StockStatus
	}{
		{0, 5, enums.StockStatusOutOfStock},
		{5, 5, enums.StockStatusLowStock},
		{6, 5, enums.StockStatusInStock},
	}
	for _, tc := range cases {
		if got := Classify(tc.total, tc.reorder); got != tc.want {
			t.Fatalf("Classify(%d, %d) = %s, want %s", tc.total, tc.reorder, got, tc.want)
		}
	}
}

type reportFixture struct {
	rice, oil, salt models.Product
	hub, backstock  models.Godown
	report          Report
}

func newReportFixture(t *testing.T) reportFixture {
	t.Helper()
	f := reportFixture{
		rice:      models.Product{ID: uuid.New(), Name: "Rice", Category: strPtr("grains"), IsActive: true, Price: decimal.NewFromInt(50)},
		oil:       models.Product{ID: uuid.New(), Name: "Oil", Category: strPtr("oils"), IsActive: true},
		salt:      models.Product{ID: uuid.New(), Name: "Salt", IsActive: false},
		hub:       models.Godown{ID: uuid.New(), Name: "Hub", GodownType: enums.GodownTypeMicro},
		backstock: models.Godown{ID: uuid.New(), Name: "Backstock", GodownType: enums.GodownTypeLocal},
	}
	march := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	april := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	ghost := uuid.New()

	batches := []models.StockBatch{
		{ID: uuid.New(), GodownID: f.hub.ID, ProductID: f.rice.ID, Quantity: 40, PurchasePrice: decimal.NewFromInt(30), CreatedAt: april},
		{ID: uuid.New(), GodownID: f.backstock.ID, ProductID: f.rice.ID, Quantity: 10, PurchasePrice: decimal.NewFromInt(30), CreatedAt: march},
		{ID: uuid.New(), GodownID: ghost, ProductID: f.salt.ID, Quantity: 3, PurchasePrice: decimal.NewFromInt(2), CreatedAt: march},
		{ID: uuid.New(), GodownID: f.hub.ID, ProductID: uuid.New(), Quantity: 99, CreatedAt: march},
	}
	totals := []ProductTotal{
		{ProductID: f.rice.ID, TotalQuantity: 50, TotalValue: decimal.NewFromInt(1500)},
		{ProductID: f.salt.ID, TotalQuantity: 3, TotalValue: decimal.NewFromInt(6)},
	}
	snapshot := demand.Snapshot{
		SampledOrders: 4,
		Stats: map[uuid.UUID]demand.Stat{
			f.rice.ID: {ProductID: f.rice.ID, OrderCount: 3, TotalQuantity: 90},
		},
	}
	f.report = BuildReport(
		[]models.Product{f.oil, f.rice, f.salt},
		totals,
		batches,
		[]models.Godown{f.hub, f.backstock},
		snapshot,
		april,
	)
	return f
}

func entryFor(t *testing.T, entries []StockEntry, id uuid.UUID) StockEntry {
	t.Helper()
	for _, e := range entries {
		if e.ProductID == id {
			return e
		}
	}
	t.Fatalf("entry %s not found", id)
	return StockEntry{}
}

func TestBuildReport(t *testing.T) {
	t.Parallel()
	f := newReportFixture(t)

	if len(f.report.Entries) != 3 {
		t.Fatalf("expected one entry per product, got %d", len(f.report.Entries))
	}

	rice := entryFor(t, f.report.Entries, f.rice.ID)
	if rice.TotalQuantity != 50 || !rice.TotalValue.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("unexpected rice totals %+v", rice)
	}
	if rice.ReorderLevel != 21 || rice.Status != enums.StockStatusInStock {
		t.Fatalf("unexpected rice reorder/status %d %s", rice.ReorderLevel, rice.Status)
	}
	if rice.DemandScore != 48 || rice.AvgDailyDemand != 3 {
		t.Fatalf("unexpected rice demand %+v", rice)
	}
	if len(rice.Breakdown) != 2 || rice.Breakdown[0].GodownName != "Backstock" || rice.Breakdown[1].Quantity != 40 {
		t.Fatalf("unexpected rice breakdown %+v", rice.Breakdown)
	}

	oil := entryFor(t, f.report.Entries, f.oil.ID)
	if oil.TotalQuantity != 0 || oil.Status != enums.StockStatusOutOfStock || len(oil.Breakdown) != 0 {
		t.Fatalf("expected empty oil entry, got %+v", oil)
	}
	if oil.ReorderLevel != demand.MinReorderLevel || oil.DemandScore != 0 {
		t.Fatalf("expected unordered oil to have floor reorder level, got %+v", oil)
	}

	salt := entryFor(t, f.report.Entries, f.salt.ID)
	if salt.Status != enums.StockStatusLowStock || salt.Breakdown[0].GodownName != "Unknown" {
		t.Fatalf("expected inactive salt with unknown godown, got %+v", salt)
	}

	stats := f.report.Stats
	if stats.InStock != 1 || stats.LowStock != 1 || stats.OutOfStock != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if !stats.TotalValue.Equal(decimal.NewFromInt(1506)) {
		t.Fatalf("unexpected total value %s", stats.TotalValue)
	}
	if len(f.report.Categories) != 2 || f.report.Categories[0] != "grains" {
		t.Fatalf("unexpected categories %v", f.report.Categories)
	}
}

func TestApplyFilters(t *testing.T) {
	t.Parallel()
	f := newReportFixture(t)

	view := f.report.Apply(Filter{Search: "RI"})
	if len(view.Entries) != 1 || view.Entries[0].ProductID != f.rice.ID {
		t.Fatalf("expected search to match rice, got %+v", view.Entries)
	}
	if view.Stats.OutOfStock != 1 {
		t.Fatal("stats must cover the unfiltered report")
	}

	if got := f.report.Apply(Filter{Category: "oils"}).Entries; len(got) != 1 || got[0].ProductID != f.oil.ID {
		t.Fatalf("unexpected category filter result %+v", got)
	}

	low := enums.StockStatusLowStock
	if got := f.report.Apply(Filter{Status: &low}).Entries; len(got) != 1 || got[0].ProductID != f.salt.ID {
		t.Fatalf("unexpected status filter result %+v", got)
	}

	local := enums.GodownTypeLocal
	if got := f.report.Apply(Filter{GodownType: &local}).Entries; len(got) != 1 || got[0].ProductID != f.rice.ID {
		t.Fatalf("unexpected godown type filter result %+v", got)
	}

	if got := f.report.Apply(Filter{GodownID: &f.hub.ID}).Entries; len(got) != 1 {
		t.Fatalf("unexpected godown filter result %+v", got)
	}

	dates, err := types.ParseDateRange("2026-04-01", "")
	if err != nil {
		t.Fatalf("parse dates: %v", err)
	}
	if got := f.report.Apply(Filter{Dates: dates}).Entries; len(got) != 1 || got[0].ProductID != f.rice.ID {
		t.Fatalf("unexpected from-date result %+v", got)
	}

	dates, err = types.ParseDateRange("", "2026-03-10")
	if err != nil {
		t.Fatalf("parse dates: %v", err)
	}
	if got := f.report.Apply(Filter{Dates: dates}).Entries; len(got) != 2 {
		t.Fatalf("expected inclusive end of day to keep march batches, got %+v", got)
	}
}

func TestApplyRanksDemand(t *testing.T) {
	t.Parallel()
	f := newReportFixture(t)

	view := f.report.Apply(Filter{})
	if view.MostDemanded[0].ProductID != f.rice.ID {
		t.Fatalf("expected rice to lead demand, got %+v", view.MostDemanded[0])
	}
	// oil and salt tie on zero and fall back to name order
	if view.SlowMovers[0].ProductID != f.oil.ID || view.SlowMovers[1].ProductID != f.salt.ID {
		t.Fatalf("unexpected slow movers %+v", view.SlowMovers)
	}
}
