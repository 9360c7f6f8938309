package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avelazquez/zocalo-backend/pkg/db/models"
	"github.com/avelazquez/zocalo-backend/pkg/enums"
	apperrors "github.com/avelazquez/zocalo-backend/pkg/errors"
	"github.com/avelazquez/zocalo-backend/pkg/pagination"
)

// MovementRequest describes one stock mutation with its audit context.
type MovementRequest struct {
	ProductID   uuid.UUID
	Qty         int
	Reason      enums.StockMovementReason
	OrderID     *uuid.UUID
	ActorUserID *uuid.UUID
	Note        *string
}

// Service owns stock mutations. Every change lands in the movement audit log
// and re-derives the product status. Callers running inside a transaction
// bind the service first via WithTx so compensation happens on rollback.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Decrement(ctx context.Context, req MovementRequest) error
	Restore(ctx context.Context, req MovementRequest) error
	SetStock(ctx context.Context, req MovementRequest) error
	GetStock(ctx context.Context, productID uuid.UUID) (*models.StockLevel, error)
	ListMovements(ctx context.Context, productID uuid.UUID, params pagination.Params) ([]models.StockMovement, error)
}

type service struct {
	repo Repository
}

// NewService builds the inventory service.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

// DeriveStatus maps available stock to a product status. Discontinued is an
// explicit seller decision and is never overridden by stock changes.
func DeriveStatus(availableQty int, current enums.ProductStatus) enums.ProductStatus {
	if current == enums.ProductStatusDiscontinued {
		return current
	}
	if availableQty <= 0 {
		return enums.ProductStatusOutOfStock
	}
	return enums.ProductStatusActive
}

func (s *service) Decrement(ctx context.Context, req MovementRequest) error {
	if req.Qty <= 0 {
		return apperrors.New(apperrors.CodeValidation, "quantity must be positive")
	}

	ok, err := s.repo.DecrementStock(ctx, req.ProductID, req.Qty)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "decrementing stock")
	}
	if !ok {
		return apperrors.New(apperrors.CodeInsufficientStock, "insufficient stock").
			WithDetails(map[string]any{"product_id": req.ProductID, "requested_qty": req.Qty})
	}

	return s.finishMovement(ctx, req, -req.Qty)
}

func (s *service) Restore(ctx context.Context, req MovementRequest) error {
	if req.Qty <= 0 {
		return apperrors.New(apperrors.CodeValidation, "quantity must be positive")
	}

	if err := s.repo.IncrementStock(ctx, req.ProductID, req.Qty); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "restoring stock")
	}

	return s.finishMovement(ctx, req, req.Qty)
}

func (s *service) SetStock(ctx context.Context, req MovementRequest) error {
	if req.Qty < 0 {
		return apperrors.New(apperrors.CodeValidation, "quantity must not be negative")
	}

	current, err := s.repo.FindStock(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.New(apperrors.CodeNotFound, "stock record not found")
		}
		return apperrors.Wrap(apperrors.CodeInternal, err, "loading stock")
	}

	if err := s.repo.SetStock(ctx, req.ProductID, req.Qty); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "setting stock")
	}

	return s.finishMovement(ctx, req, req.Qty-current.AvailableQty)
}

// finishMovement records the audit row with the post-change quantity and
// re-derives the product status.
func (s *service) finishMovement(ctx context.Context, req MovementRequest, delta int) error {
	stock, err := s.repo.FindStock(ctx, req.ProductID)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "reading stock after movement")
	}

	movement := &models.StockMovement{
		ProductID:   req.ProductID,
		Delta:       delta,
		QtyAfter:    stock.AvailableQty,
		Reason:      req.Reason,
		OrderID:     req.OrderID,
		ActorUserID: req.ActorUserID,
		Note:        req.Note,
	}
	if err := s.repo.CreateMovement(ctx, movement); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "recording stock movement")
	}

	product, err := s.repo.FindProduct(ctx, req.ProductID)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "loading product for status")
	}
	next := DeriveStatus(stock.AvailableQty, product.Status)
	if next != product.Status {
		if err := s.repo.UpdateProductStatus(ctx, req.ProductID, next); err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "updating product status")
		}
	}
	return nil
}

func (s *service) GetStock(ctx context.Context, productID uuid.UUID) (*models.StockLevel, error) {
	stock, err := s.repo.FindStock(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "stock record not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading stock")
	}
	return stock, nil
}

func (s *service) ListMovements(ctx context.Context, productID uuid.UUID, params pagination.Params) ([]models.StockMovement, error) {
	movements, err := s.repo.ListMovements(ctx, productID, params)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "listing stock movements")
	}
	return movements, nil
}
