// Package demand derives per-product demand from recent order history.
package demand

import (
	"sort"

	"github.com/google/uuid"

	"github.com/pennyekart/pennyekart-backend/pkg/db/models"
)

const (
	// DefaultWindow is how many of the most recent orders are sampled.
	DefaultWindow = 1000
	// MinReorderLevel is the floor applied to every computed reorder level.
	MinReorderLevel = 5

	windowDays = 30
	coverDays  = 7
)

// Stat is the demand observed for one product.
type Stat struct {
	ProductID     uuid.UUID `json:"product_id"`
	OrderCount    int       `json:"order_count"`
	TotalQuantity int       `json:"total_quantity"`
}

// AvgDailyDemand spreads the sampled quantity over a thirty day window.
func (s Stat) AvgDailyDemand() float64 {
	return float64(s.TotalQuantity) / windowDays
}

// ReorderLevel is a week of average demand, never below MinReorderLevel.
func (s Stat) ReorderLevel() int {
	return ReorderLevel(s.TotalQuantity)
}

// Score weighs how often a product is ordered above how much.
func (s Stat) Score() float64 {
	return float64(s.OrderCount) + float64(s.TotalQuantity)*0.5
}

// ReorderLevel computes max(5, ceil(totalQuantity / 30 * 7)) without
// floating point drift.
func ReorderLevel(totalQuantity int) int {
	if totalQuantity <= 0 {
		return MinReorderLevel
	}
	level := (totalQuantity*coverDays + windowDays - 1) / windowDays
	if level < MinReorderLevel {
		return MinReorderLevel
	}
	return level
}

// Estimate tallies orders per product. A product counts once per order that
// contains it; a line with a missing or zero quantity counts as one unit.
func Estimate(orders []models.Order) map[uuid.UUID]Stat {
	stats := make(map[uuid.UUID]Stat)
	for _, order := range orders {
		seen := make(map[uuid.UUID]struct{}, len(order.Items))
		for _, item := range order.Items {
			if item.ID == uuid.Nil {
				continue
			}
			qty := item.Quantity
			if qty <= 0 {
				qty = 1
			}
			stat := stats[item.ID]
			stat.ProductID = item.ID
			stat.TotalQuantity += qty
			if _, ok := seen[item.ID]; !ok {
				seen[item.ID] = struct{}{}
				stat.OrderCount++
			}
			stats[item.ID] = stat
		}
	}
	return stats
}

// Ranked is the sort key of a demand ranking.
type Ranked struct {
	ID    uuid.UUID
	Name  string
	Score float64
}

// Top returns up to n items ordered by score, descending when most is true
// and ascending otherwise. Ties fall back to name then id.
func Top[T any](items []T, n int, most bool, key func(T) Ranked) []T {
	sorted := make([]T, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := key(sorted[i]), key(sorted[j])
		if a.Score != b.Score {
			if most {
				return a.Score > b.Score
			}
			return a.Score < b.Score
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID.String() < b.ID.String()
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
