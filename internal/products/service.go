package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avelazquez/zocalo-backend/internal/inventory"
	"github.com/avelazquez/zocalo-backend/pkg/db/models"
	"github.com/avelazquez/zocalo-backend/pkg/enums"
	apperrors "github.com/avelazquez/zocalo-backend/pkg/errors"
	"github.com/avelazquez/zocalo-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreateProductRequest lists a new product under a seller.
type CreateProductRequest struct {
	SellerID           uuid.UUID
	SKU                string
	Name               string
	Description        *string
	Category           string
	PriceCents         int64
	OriginalPriceCents *int64
	InitialStock       int
	LowStockThreshold  int
}

// UpdateProductRequest carries the seller-editable fields. Nil means keep.
type UpdateProductRequest struct {
	Name        *string
	Description *string
	PriceCents  *int64
	Status      *enums.ProductStatus
}

// ProductList is one page of products with the cursor for the next page.
type ProductList struct {
	Products   []models.Product
	NextCursor string
}

// StockChangeRequest adjusts the stock of one product on behalf of a seller.
type StockChangeRequest struct {
	ProductID   uuid.UUID
	SellerID    uuid.UUID
	Qty         int
	ActorUserID uuid.UUID
	Note        *string
}

// Service owns the seller-facing product catalog. Stock mutations delegate to
// the inventory service so every change lands in the movement audit log.
type Service interface {
	Create(ctx context.Context, req CreateProductRequest) (*models.Product, error)
	Update(ctx context.Context, productID, sellerID uuid.UUID, req UpdateProductRequest) (*models.Product, error)
	Get(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*ProductList, error)
	Restock(ctx context.Context, req StockChangeRequest) (*models.Product, error)
	SetStock(ctx context.Context, req StockChangeRequest) (*models.Product, error)
}

type service struct {
	repo      Repository
	tx        txRunner
	inventory inventory.Service
}

// NewService builds a products service with the required dependencies.
func NewService(repo Repository, tx txRunner, inv inventory.Service) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if inv == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	return &service{repo: repo, tx: tx, inventory: inv}, nil
}

func (s *service) Create(ctx context.Context, req CreateProductRequest) (*models.Product, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	seller, err := s.repo.FindSeller(ctx, req.SellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "seller not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading seller")
	}
	if seller.ApprovalStatus != enums.SellerApprovalApproved {
		return nil, apperrors.New(apperrors.CodeForbidden, "seller is not approved to list products")
	}

	status := enums.ProductStatusActive
	if req.InitialStock == 0 {
		status = enums.ProductStatusOutOfStock
	}
	product := &models.Product{
		SellerID:           req.SellerID,
		SKU:                strings.TrimSpace(req.SKU),
		Name:               strings.TrimSpace(req.Name),
		Description:        req.Description,
		Category:           strings.TrimSpace(req.Category),
		PriceCents:         req.PriceCents,
		OriginalPriceCents: req.OriginalPriceCents,
		Status:             status,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, product); err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "creating product")
		}
		if err := repo.CreateStockLevel(ctx, &models.StockLevel{
			ProductID:         product.ID,
			AvailableQty:      0,
			LowStockThreshold: req.LowStockThreshold,
		}); err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "creating stock record")
		}
		if req.InitialStock > 0 {
			return s.inventory.WithTx(tx).Restore(ctx, inventory.MovementRequest{
				ProductID: product.ID,
				Qty:       req.InitialStock,
				Reason:    enums.StockReasonRestock,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, product.ID)
}

func (s *service) Update(ctx context.Context, productID, sellerID uuid.UUID, req UpdateProductRequest) (*models.Product, error) {
	product, err := s.ownedProduct(ctx, productID, sellerID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, apperrors.New(apperrors.CodeValidation, "name must not be empty")
		}
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updates["description"] = req.Description
	}
	if req.PriceCents != nil {
		if *req.PriceCents <= 0 {
			return nil, apperrors.New(apperrors.CodeValidation, "price must be positive")
		}
		updates["price_cents"] = *req.PriceCents
	}
	if req.Status != nil {
		// Sellers toggle between active and discontinued; out_of_stock is
		// derived from the stock level.
		switch *req.Status {
		case enums.ProductStatusDiscontinued:
			updates["status"] = enums.ProductStatusDiscontinued
		case enums.ProductStatusActive:
			next := enums.ProductStatusActive
			if product.Stock != nil {
				next = inventory.DeriveStatus(product.Stock.AvailableQty, enums.ProductStatusActive)
			}
			updates["status"] = next
		default:
			return nil, apperrors.New(apperrors.CodeValidation, "status must be active or discontinued")
		}
	}
	if len(updates) == 0 {
		return product, nil
	}

	if err := s.repo.Update(ctx, productID, updates); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "updating product")
	}
	return s.Get(ctx, productID)
}

func (s *service) Get(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.repo.Find(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "product not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading product")
	}
	return product, nil
}

func (s *service) ListBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*ProductList, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListBySeller(ctx, sellerID, params)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "listing products")
	}

	list := &ProductList{Products: rows}
	if len(rows) > limit {
		list.Products = rows[:limit]
		last := list.Products[limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return list, nil
}

func (s *service) Restock(ctx context.Context, req StockChangeRequest) (*models.Product, error) {
	if _, err := s.ownedProduct(ctx, req.ProductID, req.SellerID); err != nil {
		return nil, err
	}
	actorID := req.ActorUserID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.inventory.WithTx(tx).Restore(ctx, inventory.MovementRequest{
			ProductID:   req.ProductID,
			Qty:         req.Qty,
			Reason:      enums.StockReasonRestock,
			ActorUserID: &actorID,
			Note:        req.Note,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, req.ProductID)
}

func (s *service) SetStock(ctx context.Context, req StockChangeRequest) (*models.Product, error) {
	if _, err := s.ownedProduct(ctx, req.ProductID, req.SellerID); err != nil {
		return nil, err
	}
	actorID := req.ActorUserID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.inventory.WithTx(tx).SetStock(ctx, inventory.MovementRequest{
			ProductID:   req.ProductID,
			Qty:         req.Qty,
			Reason:      enums.StockReasonManualSet,
			ActorUserID: &actorID,
			Note:        req.Note,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, req.ProductID)
}

func (s *service) ownedProduct(ctx context.Context, productID, sellerID uuid.UUID) (*models.Product, error) {
	product, err := s.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.SellerID != sellerID {
		return nil, apperrors.New(apperrors.CodeForbidden, "product belongs to another seller")
	}
	return product, nil
}

func validateCreate(req CreateProductRequest) error {
	problems := map[string]string{}
	if req.SellerID == uuid.Nil {
		problems["seller_id"] = "is required"
	}
	if strings.TrimSpace(req.SKU) == "" {
		problems["sku"] = "is required"
	}
	if strings.TrimSpace(req.Name) == "" {
		problems["name"] = "is required"
	}
	if strings.TrimSpace(req.Category) == "" {
		problems["category"] = "is required"
	}
	if req.PriceCents <= 0 {
		problems["price_cents"] = "must be positive"
	}
	if req.OriginalPriceCents != nil && *req.OriginalPriceCents < req.PriceCents {
		problems["original_price_cents"] = "must not be below the selling price"
	}
	if req.InitialStock < 0 {
		problems["initial_stock"] = "must not be negative"
	}
	if req.LowStockThreshold < 0 {
		problems["low_stock_threshold"] = "must not be negative"
	}
	if len(problems) > 0 {
		return apperrors.New(apperrors.CodeValidation, "product definition invalid").WithDetails(problems)
	}
	return nil
}
