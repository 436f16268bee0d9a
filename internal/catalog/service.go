package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pennyekart/pennyekart-backend/pkg/db/models"
	"github.com/pennyekart/pennyekart-backend/pkg/enums"
	pkgerrors "github.com/pennyekart/pennyekart-backend/pkg/errors"
)

// SellerSection tags seller listings in the area catalog.
const SellerSection = "seller"

var sectionLabels = map[string]string{
	"featured":     "Featured Products",
	"most_ordered": "Most Ordered Items",
	"new_arrivals": "New Arrivals",
	"low_budget":   "Low Budget Picks",
	"sponsors":     "Sponsors",
}

var sectionOrder = []string{"featured", "most_ordered", "new_arrivals", "low_budget", "sponsors"}

// SectionLabel returns the display name of a section key, or the key itself.
func SectionLabel(key string) string {
	if label, ok := sectionLabels[key]; ok {
		return label
	}
	return key
}

type godownResolver interface {
	ResolveForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// Item is a sellable listing regardless of who fulfills it.
type Item struct {
	ID           uuid.UUID        `json:"id"`
	Name         string           `json:"name"`
	Description  *string          `json:"description,omitempty"`
	Price        decimal.Decimal  `json:"price"`
	MRP          decimal.Decimal  `json:"mrp"`
	DiscountRate decimal.Decimal  `json:"discount_rate"`
	Category     *string          `json:"category,omitempty"`
	ImageURL     *string          `json:"image_url,omitempty"`
	Section      string           `json:"section,omitempty"`
	Source       enums.ItemSource `json:"source"`
	SellerID     *uuid.UUID       `json:"seller_id,omitempty"`
	Stock        int              `json:"stock"`
	ComingSoon   bool             `json:"coming_soon"`
}

// Section groups the products merchandised under one key.
type Section struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Products []Item `json:"products"`
}

// Service serves the customer catalog.
type Service interface {
	AreaProducts(ctx context.Context, userID uuid.UUID) ([]Item, error)
	Sections(ctx context.Context) ([]Section, error)
	Lookup(ctx context.Context, id uuid.UUID, source enums.ItemSource) (*Item, error)
}

type service struct {
	repo     Repository
	resolver godownResolver
}

// NewService builds the catalog service.
func NewService(repo Repository, resolver godownResolver) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("godown resolver required")
	}
	return &service{repo: repo, resolver: resolver}, nil
}

// AreaProducts lists what the user's ward can order: platform products stocked
// in a serving godown followed by seller listings parked there.
func (s *service) AreaProducts(ctx context.Context, userID uuid.UUID) ([]Item, error) {
	godownIDs, err := s.resolver.ResolveForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(godownIDs) == 0 {
		return []Item{}, nil
	}

	products, err := s.repo.ProductsStockedIn(ctx, godownIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list area products")
	}
	sellerProducts, err := s.repo.SellerProductsIn(ctx, godownIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list seller products")
	}

	items := make([]Item, 0, len(products)+len(sellerProducts))
	for _, p := range products {
		items = append(items, fromProduct(p))
	}
	for _, sp := range sellerProducts {
		items = append(items, fromSellerProduct(sp))
	}
	return items, nil
}

func (s *service) Sections(ctx context.Context) ([]Section, error) {
	products, err := s.repo.SectionedProducts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sectioned products")
	}

	grouped := make(map[string][]Item)
	for _, p := range products {
		item := fromProduct(p)
		grouped[item.Section] = append(grouped[item.Section], item)
	}

	keys := make([]string, 0, len(grouped))
	for key := range grouped {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, rj := sectionRank(keys[i]), sectionRank(keys[j])
		if ri != rj {
			return ri < rj
		}
		return keys[i] < keys[j]
	})

	sections := make([]Section, 0, len(keys))
	for _, key := range keys {
		sections = append(sections, Section{Key: key, Label: SectionLabel(key), Products: grouped[key]})
	}
	return sections, nil
}

// Lookup resolves a listing that is currently purchasable.
func (s *service) Lookup(ctx context.Context, id uuid.UUID, source enums.ItemSource) (*Item, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if source.IsSeller() {
		sp, err := s.repo.FindSellerProduct(ctx, id)
		if err != nil {
			return nil, lookupError(err)
		}
		if !sp.IsActive || !sp.IsApproved {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not available")
		}
		item := fromSellerProduct(*sp)
		return &item, nil
	}
	p, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	if !p.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not available")
	}
	item := fromProduct(*p)
	return &item, nil
}

func lookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
}

func sectionRank(key string) int {
	for i, known := range sectionOrder {
		if known == key {
			return i
		}
	}
	return len(sectionOrder)
}

func fromProduct(p models.Product) Item {
	item := Item{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Price:        p.Price,
		MRP:          p.MRP,
		DiscountRate: p.DiscountRate,
		Category:     p.Category,
		ImageURL:     p.ImageURL,
		Source:       enums.ItemSourceProduct,
		Stock:        p.Stock,
		ComingSoon:   p.ComingSoon,
	}
	if p.Section != nil {
		item.Section = *p.Section
	}
	return item
}

func fromSellerProduct(sp models.SellerProduct) Item {
	sellerID := sp.SellerID
	return Item{
		ID:           sp.ID,
		Name:         sp.Name,
		Description:  sp.Description,
		Price:        sp.Price,
		MRP:          sp.MRP,
		DiscountRate: sp.DiscountRate,
		Category:     sp.Category,
		ImageURL:     sp.ImageURL,
		Section:      SellerSection,
		Source:       enums.ItemSourceSellerProduct,
		SellerID:     &sellerID,
		Stock:        sp.Stock,
		ComingSoon:   sp.ComingSoon,
	}
}
