package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pennyekart/pennyekart-backend/internal/catalog"
	"github.com/pennyekart/pennyekart-backend/pkg/db/models"
	"github.com/pennyekart/pennyekart-backend/pkg/enums"
	pkgerrors "github.com/pennyekart/pennyekart-backend/pkg/errors"
	"github.com/pennyekart/pennyekart-backend/pkg/logger"
)

type productLookup interface {
	Lookup(ctx context.Context, id uuid.UUID, source enums.ItemSource) (*catalog.Item, error)
}

// AddInput describes one add-to-cart action. A zero quantity adds one unit.
type AddInput struct {
	ProductID uuid.UUID
	Source    enums.ItemSource
	Quantity  int
}

// Service owns the per-user cart.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*Cart, error)
	Add(ctx context.Context, userID uuid.UUID, input AddInput) (*Cart, error)
	Remove(ctx context.Context, userID, productID uuid.UUID) (*Cart, error)
	UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (*Cart, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	store    Store
	products productLookup
	logg     *logger.Logger
}

func NewService(store Store, products productLookup, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if products == nil {
		return nil, fmt.Errorf("product lookup required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{store: store, products: products, logg: logg}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	items, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return newCart(userID, items), nil
}

func (s *service) Add(ctx context.Context, userID uuid.UUID, input AddInput) (*Cart, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.Quantity == 0 {
		input.Quantity = 1
	}
	if input.Source == "" {
		input.Source = enums.ItemSourceProduct
	}
	if !input.Source.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid source %q", input.Source)
	}

	product, err := s.products.Lookup(ctx, input.ProductID, input.Source)
	if err != nil {
		return nil, err
	}

	items, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	items = merge(items, toCartItem(product, input.Quantity))
	return s.save(ctx, userID, items)
}

func (s *service) Remove(ctx context.Context, userID, productID uuid.UUID) (*Cart, error) {
	items, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, userID, remove(items, productID))
}

func (s *service) UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (*Cart, error) {
	items, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	updated, found := setQuantity(items, productID, quantity)
	if !found {
		if quantity <= 0 {
			return newCart(userID, items), nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
	}
	return s.save(ctx, userID, updated)
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.Clear(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func (s *service) load(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	items, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return items, nil
}

func (s *service) save(ctx context.Context, userID uuid.UUID, items []models.CartItem) (*Cart, error) {
	if err := s.store.Save(ctx, userID, items); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "user_id", userID.String()), "cart save failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return newCart(userID, items), nil
}

func toCartItem(product *catalog.Item, quantity int) models.CartItem {
	image := ""
	if product.ImageURL != nil {
		image = *product.ImageURL
	}
	return models.CartItem{
		ID:         product.ID,
		Name:       product.Name,
		Price:      product.Price,
		MRP:        product.MRP,
		Image:      image,
		Quantity:   quantity,
		Source:     product.Source,
		SellerID:   product.SellerID,
		ComingSoon: product.ComingSoon,
	}
}
