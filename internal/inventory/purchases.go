package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pennyekart/pennyekart-backend/pkg/db/models"
	"github.com/pennyekart/pennyekart-backend/pkg/enums"
	pkgerrors "github.com/pennyekart/pennyekart-backend/pkg/errors"
	"github.com/pennyekart/pennyekart-backend/pkg/logger"
	"github.com/pennyekart/pennyekart-backend/pkg/outbox"
	"github.com/pennyekart/pennyekart-backend/pkg/outbox/payloads"
	"github.com/pennyekart/pennyekart-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// reportInvalidator drops the cached stock report after batches change.
type reportInvalidator interface {
	Invalidate(ctx context.Context) error
}

// PurchaseLine is one product received in a purchase.
type PurchaseLine struct {
	ProductID     uuid.UUID
	Quantity      int
	PurchasePrice decimal.Decimal
	MRP           *decimal.Decimal
	BatchNumber   string
	ExpiryDate    *time.Time
}

// RecordPurchaseInput receives the same lines into every listed godown.
type RecordPurchaseInput struct {
	GodownIDs []uuid.UUID
	Lines     []PurchaseLine
	Actor     *outbox.ActorRef
}

// PurchaseResult reports what a purchase wrote.
type PurchaseResult struct {
	PurchaseNumber string              `json:"purchase_number"`
	Batches        []models.StockBatch `json:"batches"`
	MRPUpdated     int                 `json:"mrp_updated"`
}

// PurchaseRow is a batch in the purchase history with display names.
type PurchaseRow struct {
	ID             uuid.UUID       `json:"id"`
	GodownID       uuid.UUID       `json:"godown_id"`
	GodownName     string          `json:"godown_name"`
	ProductID      uuid.UUID       `json:"product_id"`
	ProductName    string          `json:"product_name"`
	Quantity       int             `json:"quantity"`
	PurchasePrice  decimal.Decimal `json:"purchase_price"`
	BatchNumber    *string         `json:"batch_number,omitempty"`
	PurchaseNumber *string         `json:"purchase_number,omitempty"`
	ExpiryDate     *time.Time      `json:"expiry_date,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// UpdateBatchInput replaces the editable fields of a batch.
type UpdateBatchInput struct {
	Quantity      int
	PurchasePrice decimal.Decimal
	BatchNumber   string
	ExpiryDate    *time.Time
}

// PurchaseService records stock arriving in godowns.
type PurchaseService interface {
	RecordPurchase(ctx context.Context, input RecordPurchaseInput) (*PurchaseResult, error)
	ListPurchases(ctx context.Context, filter PurchaseFilter) ([]PurchaseRow, error)
	UpdateBatch(ctx context.Context, id uuid.UUID, input UpdateBatchInput) (*models.StockBatch, error)
	DeleteBatch(ctx context.Context, id uuid.UUID) error
}

type purchaseService struct {
	tx      txRunner
	repo    Repository
	outbox  outbox.Emitter
	reports reportInvalidator
	logg    *logger.Logger
	now     func() time.Time
}

// NewPurchaseService builds the purchase service. reports may be nil when no
// stock report is cached.
func NewPurchaseService(tx txRunner, repo Repository, emitter outbox.Emitter, reports reportInvalidator, logg *logger.Logger) (PurchaseService, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &purchaseService{tx: tx, repo: repo, outbox: emitter, reports: reports, logg: logg, now: time.Now}, nil
}

// stockChanged runs after a committed batch write. The write stands even if
// the cache cannot be cleared; the report TTL bounds the staleness.
func (s *purchaseService) stockChanged(ctx context.Context) {
	if s.reports == nil {
		return
	}
	if err := s.reports.Invalidate(ctx); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "stock report invalidation failed")
	}
}

// RecordPurchase writes one batch per godown and line under a shared purchase
// number and moves product MRPs that changed, all in one transaction. Lines
// without a product or with a non-positive quantity are skipped.
func (s *purchaseService) RecordPurchase(ctx context.Context, input RecordPurchaseInput) (*PurchaseResult, error) {
	godownIDs := uniqueIDs(input.GodownIDs)
	if len(godownIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "select at least one godown")
	}
	lines := make([]PurchaseLine, 0, len(input.Lines))
	for _, line := range input.Lines {
		if line.ProductID == uuid.Nil || line.Quantity <= 0 {
			continue
		}
		if line.PurchasePrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase price must not be negative")
		}
		if line.MRP != nil && line.MRP.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "mrp must not be negative")
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "add at least one product with quantity")
	}

	purchaseID := uuid.New()
	now := s.now().UTC()
	purchaseNumber := PurchaseNumber(now, purchaseID)

	result := &PurchaseResult{PurchaseNumber: purchaseNumber}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		godowns, err := repo.GodownsByID(ctx, godownIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load godowns")
		}
		for _, id := range godownIDs {
			if _, ok := godowns[id]; !ok {
				return pkgerrors.Newf(pkgerrors.CodeValidation, "unknown godown %s", id)
			}
		}
		productIDs := make([]uuid.UUID, 0, len(lines))
		for _, line := range lines {
			productIDs = append(productIDs, line.ProductID)
		}
		products, err := repo.ProductsByID(ctx, productIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
		}
		for _, id := range productIDs {
			if _, ok := products[id]; !ok {
				return pkgerrors.Newf(pkgerrors.CodeValidation, "unknown product %s", id)
			}
		}

		updated := make(map[uuid.UUID]struct{})
		for _, line := range lines {
			if line.MRP == nil {
				continue
			}
			if _, done := updated[line.ProductID]; done {
				continue
			}
			if products[line.ProductID].MRP.Equal(*line.MRP) {
				continue
			}
			if err := repo.UpdateProductMRP(ctx, line.ProductID, line.MRP.Round(2)); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update mrp")
			}
			updated[line.ProductID] = struct{}{}
		}

		batches := make([]models.StockBatch, 0, len(godownIDs)*len(lines))
		for _, godownID := range godownIDs {
			for _, line := range lines {
				number := purchaseNumber
				batches = append(batches, models.StockBatch{
					ID:             uuid.New(),
					GodownID:       godownID,
					ProductID:      line.ProductID,
					Quantity:       line.Quantity,
					PurchasePrice:  line.PurchasePrice.Round(2),
					BatchNumber:    optionalString(line.BatchNumber),
					PurchaseNumber: &number,
					ExpiryDate:     line.ExpiryDate,
					CreatedAt:      now,
				})
			}
		}
		if err := repo.InsertBatches(ctx, batches); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert batches")
		}

		event := payloads.StockPurchasedEvent{
			PurchaseNumber: purchaseNumber,
			GodownIDs:      godownIDs,
			BatchIDs:       make([]uuid.UUID, 0, len(batches)),
			Lines:          make([]payloads.StockLine, 0, len(lines)),
		}
		for _, b := range batches {
			event.BatchIDs = append(event.BatchIDs, b.ID)
		}
		for _, line := range lines {
			event.Lines = append(event.Lines, payloads.StockLine{ProductID: line.ProductID, Quantity: line.Quantity})
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventStockPurchased,
			AggregateType: enums.AggregatePurchase,
			AggregateID:   purchaseID,
			Actor:         input.Actor,
			Data:          event,
			OccurredAt:    now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit stock purchased")
		}

		result.Batches = batches
		result.MRPUpdated = len(updated)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.stockChanged(ctx)

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"purchase_number": purchaseNumber,
		"godowns":         len(godownIDs),
		"lines":           len(lines),
		"mrp_updated":     result.MRPUpdated,
	}), "purchase recorded")
	return result, nil
}

// ListPurchases returns the newest batches first, at most pagination.MaxLimit.
func (s *purchaseService) ListPurchases(ctx context.Context, filter PurchaseFilter) ([]PurchaseRow, error) {
	if filter.Limit <= 0 {
		filter.Limit = pagination.MaxLimit
	}
	filter.Limit = pagination.NormalizeLimit(filter.Limit)
	batches, err := s.repo.ListBatches(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list purchases")
	}

	godownIDs := make([]uuid.UUID, 0, len(batches))
	productIDs := make([]uuid.UUID, 0, len(batches))
	for _, b := range batches {
		godownIDs = append(godownIDs, b.GodownID)
		productIDs = append(productIDs, b.ProductID)
	}
	godowns, err := s.repo.GodownsByID(ctx, uniqueIDs(godownIDs))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load godowns")
	}
	products, err := s.repo.ProductsByID(ctx, uniqueIDs(productIDs))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
	}

	rows := make([]PurchaseRow, 0, len(batches))
	for _, b := range batches {
		row := PurchaseRow{
			ID:             b.ID,
			GodownID:       b.GodownID,
			GodownName:     b.GodownID.String(),
			ProductID:      b.ProductID,
			ProductName:    b.ProductID.String(),
			Quantity:       b.Quantity,
			PurchasePrice:  b.PurchasePrice,
			BatchNumber:    b.BatchNumber,
			PurchaseNumber: b.PurchaseNumber,
			ExpiryDate:     b.ExpiryDate,
			CreatedAt:      b.CreatedAt,
		}
		if g, ok := godowns[b.GodownID]; ok {
			row.GodownName = g.Name
		}
		if p, ok := products[b.ProductID]; ok {
			row.ProductName = p.Name
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *purchaseService) UpdateBatch(ctx context.Context, id uuid.UUID, input UpdateBatchInput) (*models.StockBatch, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch id required")
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}
	if input.PurchasePrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase price must not be negative")
	}

	var batch *models.StockBatch
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindBatch(ctx, id); err != nil {
			return batchError(err)
		}
		updates := map[string]any{
			"quantity":       input.Quantity,
			"purchase_price": input.PurchasePrice.Round(2),
			"batch_number":   optionalString(input.BatchNumber),
			"expiry_date":    input.ExpiryDate,
		}
		if err := repo.UpdateBatch(ctx, id, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update batch")
		}
		updated, err := repo.FindBatch(ctx, id)
		if err != nil {
			return batchError(err)
		}
		batch = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.stockChanged(ctx)
	return batch, nil
}

func (s *purchaseService) DeleteBatch(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "batch id required")
	}
	removed, err := s.repo.DeleteBatch(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete batch")
	}
	if removed == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "batch not found")
	}
	s.stockChanged(ctx)
	return nil
}

// PurchaseNumber formats the shared reference of one purchase, for example
// PUR-20260301-1A2B3C.
func PurchaseNumber(at time.Time, purchaseID uuid.UUID) string {
	suffix := strings.ToUpper(strings.ReplaceAll(purchaseID.String(), "-", "")[:6])
	return fmt.Sprintf("PUR-%s-%s", at.UTC().Format("20060102"), suffix)
}

func batchError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "batch not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load batch")
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
