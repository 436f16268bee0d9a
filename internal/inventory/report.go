package inventory

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pennyekart/pennyekart-backend/internal/demand"
	"github.com/pennyekart/pennyekart-backend/pkg/db/models"
	"github.com/pennyekart/pennyekart-backend/pkg/enums"
	"github.com/pennyekart/pennyekart-backend/pkg/types"
)

// RankingSize caps the most demanded and slow mover lists.
const RankingSize = 20

const unknownGodownName = "Unknown"

// BatchView is one purchase batch inside a godown breakdown.
type BatchView struct {
	ID             uuid.UUID       `json:"id"`
	Quantity       int             `json:"quantity"`
	PurchasePrice  decimal.Decimal `json:"purchase_price"`
	BatchNumber    *string         `json:"batch_number,omitempty"`
	PurchaseNumber *string         `json:"purchase_number,omitempty"`
	ExpiryDate     *time.Time      `json:"expiry_date,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// GodownBreakdown is a product's stock inside one godown.
type GodownBreakdown struct {
	GodownID   uuid.UUID        `json:"godown_id"`
	GodownName string           `json:"godown_name"`
	GodownType enums.GodownType `json:"godown_type,omitempty"`
	Quantity   int              `json:"quantity"`
	Batches    []BatchView      `json:"batches"`
}

// StockEntry is the aggregated stock and demand of one product.
type StockEntry struct {
	ProductID      uuid.UUID         `json:"product_id"`
	Name           string            `json:"name"`
	Category       *string           `json:"category,omitempty"`
	IsActive       bool              `json:"is_active"`
	Price          decimal.Decimal   `json:"price"`
	TotalQuantity  int               `json:"total_quantity"`
	TotalValue     decimal.Decimal   `json:"total_value"`
	Breakdown      []GodownBreakdown `json:"godown_breakdown"`
	OrderCount     int               `json:"order_count"`
	DemandQuantity int               `json:"demand_quantity"`
	AvgDailyDemand float64           `json:"avg_daily_demand"`
	ReorderLevel   int               `json:"reorder_level"`
	DemandScore    float64           `json:"demand_score"`
	Status         enums.StockStatus `json:"status"`
}

// Stats summarizes the whole catalog, before any filter is applied.
type Stats struct {
	OutOfStock int             `json:"out_of_stock"`
	LowStock   int             `json:"low_stock"`
	InStock    int             `json:"in_stock"`
	TotalValue decimal.Decimal `json:"total_value"`
}

// Report is the cached stock read model.
type Report struct {
	GeneratedAt   time.Time    `json:"generated_at"`
	SampledOrders int          `json:"sampled_orders"`
	Entries       []StockEntry `json:"entries"`
	Stats         Stats        `json:"stats"`
	Categories    []string     `json:"categories"`
}

// Filter narrows a report on read.
type Filter struct {
	Search     string
	Category   string
	Status     *enums.StockStatus
	GodownType *enums.GodownType
	GodownID   *uuid.UUID
	Dates      types.DateRange
}

// View is a filtered report.
type View struct {
	GeneratedAt  time.Time    `json:"generated_at"`
	Entries      []StockEntry `json:"entries"`
	Stats        Stats        `json:"stats"`
	Categories   []string     `json:"categories"`
	MostDemanded []StockEntry `json:"most_demanded"`
	SlowMovers   []StockEntry `json:"slow_movers"`
}

// ProductTotal is the GROUP BY result for one product.
type ProductTotal struct {
	ProductID     uuid.UUID       `gorm:"column:product_id"`
	TotalQuantity int             `gorm:"column:total_quantity"`
	TotalValue    decimal.Decimal `gorm:"column:total_value"`
}

// Classify maps a quantity against its reorder level.
func Classify(total, reorderLevel int) enums.StockStatus {
	switch {
	case total <= 0:
		return enums.StockStatusOutOfStock
	case total <= reorderLevel:
		return enums.StockStatusLowStock
	default:
		return enums.StockStatusInStock
	}
}

// BuildReport joins products, their batch totals and demand into one entry
// per product. Batches of unknown products are ignored; batches in unknown
// godowns are listed under "Unknown".
func BuildReport(
	products []models.Product,
	totals []ProductTotal,
	batches []models.StockBatch,
	godowns []models.Godown,
	snapshot demand.Snapshot,
	now time.Time,
) Report {
	totalsByProduct := make(map[uuid.UUID]ProductTotal, len(totals))
	for _, t := range totals {
		totalsByProduct[t.ProductID] = t
	}
	godownByID := make(map[uuid.UUID]models.Godown, len(godowns))
	for _, g := range godowns {
		godownByID[g.ID] = g
	}
	batchesByProduct := make(map[uuid.UUID][]models.StockBatch)
	for _, b := range batches {
		batchesByProduct[b.ProductID] = append(batchesByProduct[b.ProductID], b)
	}

	report := Report{
		GeneratedAt:   now.UTC(),
		SampledOrders: snapshot.SampledOrders,
		Entries:       make([]StockEntry, 0, len(products)),
		Stats:         Stats{TotalValue: decimal.Zero},
		Categories:    []string{},
	}
	categories := make(map[string]struct{})

	for _, p := range products {
		total := totalsByProduct[p.ID]
		stat := snapshot.For(p.ID)

		entry := StockEntry{
			ProductID:      p.ID,
			Name:           p.Name,
			Category:       p.Category,
			IsActive:       p.IsActive,
			Price:          p.Price,
			TotalQuantity:  total.TotalQuantity,
			TotalValue:     total.TotalValue.Round(2),
			Breakdown:      breakdown(batchesByProduct[p.ID], godownByID),
			OrderCount:     stat.OrderCount,
			DemandQuantity: stat.TotalQuantity,
			ReorderLevel:   stat.ReorderLevel(),
			DemandScore:    stat.Score(),
		}
		if snapshot.SampledOrders > 0 {
			entry.AvgDailyDemand = stat.AvgDailyDemand()
		}
		entry.Status = Classify(entry.TotalQuantity, entry.ReorderLevel)
		report.Entries = append(report.Entries, entry)

		switch entry.Status {
		case enums.StockStatusOutOfStock:
			report.Stats.OutOfStock++
		case enums.StockStatusLowStock:
			report.Stats.LowStock++
		default:
			report.Stats.InStock++
		}
		report.Stats.TotalValue = report.Stats.TotalValue.Add(entry.TotalValue)

		if p.Category != nil && *p.Category != "" {
			categories[*p.Category] = struct{}{}
		}
	}

	for c := range categories {
		report.Categories = append(report.Categories, c)
	}
	sort.Strings(report.Categories)
	return report
}

func breakdown(batches []models.StockBatch, godownByID map[uuid.UUID]models.Godown) []GodownBreakdown {
	byGodown := make(map[uuid.UUID]*GodownBreakdown)
	order := make([]uuid.UUID, 0)
	for _, b := range batches {
		gb, ok := byGodown[b.GodownID]
		if !ok {
			gb = &GodownBreakdown{GodownID: b.GodownID, GodownName: unknownGodownName, Batches: []BatchView{}}
			if g, found := godownByID[b.GodownID]; found {
				gb.GodownName = g.Name
				gb.GodownType = g.GodownType
			}
			byGodown[b.GodownID] = gb
			order = append(order, b.GodownID)
		}
		gb.Quantity += b.Quantity
		gb.Batches = append(gb.Batches, BatchView{
			ID:             b.ID,
			Quantity:       b.Quantity,
			PurchasePrice:  b.PurchasePrice,
			BatchNumber:    b.BatchNumber,
			PurchaseNumber: b.PurchaseNumber,
			ExpiryDate:     b.ExpiryDate,
			CreatedAt:      b.CreatedAt,
		})
	}

	out := make([]GodownBreakdown, 0, len(order))
	for _, id := range order {
		out = append(out, *byGodown[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].GodownName < out[j].GodownName
	})
	return out
}

// Apply filters the entries and ranks the survivors by demand. Stats always
// describe the unfiltered report.
func (r Report) Apply(f Filter) View {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	entries := make([]StockEntry, 0, len(r.Entries))
	for _, e := range r.Entries {
		if f.matches(e, search) {
			entries = append(entries, e)
		}
	}

	key := func(e StockEntry) demand.Ranked {
		return demand.Ranked{ID: e.ProductID, Name: e.Name, Score: e.DemandScore}
	}
	return View{
		GeneratedAt:  r.GeneratedAt,
		Entries:      entries,
		Stats:        r.Stats,
		Categories:   r.Categories,
		MostDemanded: demand.Top(entries, RankingSize, true, key),
		SlowMovers:   demand.Top(entries, RankingSize, false, key),
	}
}

func (f Filter) matches(e StockEntry, search string) bool {
	if search != "" && !strings.Contains(strings.ToLower(e.Name), search) {
		return false
	}
	if f.Category != "" && (e.Category == nil || *e.Category != f.Category) {
		return false
	}
	if f.Status != nil && e.Status != *f.Status {
		return false
	}
	if f.GodownType != nil && !anyGodown(e, func(g GodownBreakdown) bool { return g.GodownType == *f.GodownType }) {
		return false
	}
	if f.GodownID != nil && !anyGodown(e, func(g GodownBreakdown) bool { return g.GodownID == *f.GodownID }) {
		return false
	}
	if start := f.Dates.Start(); start != nil && !anyBatch(e, func(b BatchView) bool { return !b.CreatedAt.Before(*start) }) {
		return false
	}
	if end := f.Dates.End(); end != nil && !anyBatch(e, func(b BatchView) bool { return b.CreatedAt.Before(*end) }) {
		return false
	}
	return true
}

func anyGodown(e StockEntry, pred func(GodownBreakdown) bool) bool {
	for _, g := range e.Breakdown {
		if pred(g) {
			return true
		}
	}
	return false
}

func anyBatch(e StockEntry, pred func(BatchView) bool) bool {
	for _, g := range e.Breakdown {
		for _, b := range g.Batches {
			if pred(b) {
				return true
			}
		}
	}
	return false
}
