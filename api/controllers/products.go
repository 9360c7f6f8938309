package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/avelazquez/zocalo-backend/api/responses"
	"github.com/avelazquez/zocalo-backend/api/validators"
	"github.com/avelazquez/zocalo-backend/internal/inventory"
	internalproducts "github.com/avelazquez/zocalo-backend/internal/products"
	"github.com/avelazquez/zocalo-backend/pkg/db/models"
	"github.com/avelazquez/zocalo-backend/pkg/enums"
	pkgerrors "github.com/avelazquez/zocalo-backend/pkg/errors"
	"github.com/avelazquez/zocalo-backend/pkg/logger"
	"github.com/avelazquez/zocalo-backend/pkg/pagination"
)

// CreateProduct lists a new product for the authenticated seller.
func CreateProduct(svc internalproducts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products service unavailable"))
			return
		}

		sellerID, err := sellerIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Create(r.Context(), internalproducts.CreateProductRequest{
			SellerID:           sellerID,
			SKU:                payload.SKU,
			Name:               payload.Name,
			Description:        payload.Description,
			Category:           payload.Category,
			PriceCents:         payload.PriceCents,
			OriginalPriceCents: payload.OriginalPriceCents,
			InitialStock:       payload.InitialStock,
			LowStockThreshold:  payload.LowStockThreshold,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newProductResponse(product))
	}
}

// UpdateProduct edits the seller-owned fields of a product.
func UpdateProduct(svc internalproducts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products service unavailable"))
			return
		}

		sellerID, err := sellerIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := parseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var status *enums.ProductStatus
		if payload.Status != nil {
			parsed := enums.ProductStatus(*payload.Status)
			status = &parsed
		}

		product, err := svc.Update(r.Context(), productID, sellerID, internalproducts.UpdateProductRequest{
			Name:        payload.Name,
			Description: payload.Description,
			PriceCents:  payload.PriceCents,
			Status:      status,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newProductResponse(product))
	}
}

// ProductDetail returns one product with its stock level.
func ProductDetail(svc internalproducts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products service unavailable"))
			return
		}

		productID, err := parseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Get(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newProductResponse(product))
	}
}

// ListSellerProducts pages through the authenticated seller's catalog.
func ListSellerProducts(svc internalproducts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products service unavailable"))
			return
		}

		sellerID, err := sellerIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListBySeller(r.Context(), sellerID, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]productResponse, 0, len(list.Products))
		for i := range list.Products {
			items = append(items, newProductResponse(&list.Products[i]))
		}
		responses.WriteSuccess(w, map[string]any{
			"products":    items,
			"next_cursor": list.NextCursor,
		})
	}
}

// RestockProduct adds units to a product's stock.
func RestockProduct(svc internalproducts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handleStockChange(w, r, svc, logg, svc.Restock)
	}
}

// SetProductStock overwrites a product's stock level.
func SetProductStock(svc internalproducts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handleStockChange(w, r, svc, logg, svc.SetStock)
	}
}

// ListStockMovements returns the audit trail of one product's stock.
func ListStockMovements(productsSvc internalproducts.Service, inventorySvc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if productsSvc == nil || inventorySvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		sellerID, err := sellerIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := parseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := productsSvc.Get(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if product.SellerID != sellerID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "product belongs to another seller"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		movements, err := inventorySvc.ListMovements(r.Context(), productID, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]stockMovementResponse, 0, len(movements))
		for _, movement := range movements {
			items = append(items, newStockMovementResponse(movement))
		}
		responses.WriteSuccess(w, map[string]any{"movements": items})
	}
}

func handleStockChange(
	w http.ResponseWriter,
	r *http.Request,
	svc internalproducts.Service,
	logg *logger.Logger,
	apply func(ctx context.Context, req internalproducts.StockChangeRequest) (*models.Product, error),
) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products service unavailable"))
		return
	}

	actor, err := actorFromRequest(r)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	sellerID, err := sellerIDFromRequest(r)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	productID, err := parseUUIDParam(r, "productId")
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}

	var payload stockChangeRequest
	if err := validators.DecodeJSONBody(r, &payload); err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}

	product, err := apply(r.Context(), internalproducts.StockChangeRequest{
		ProductID:   productID,
		SellerID:    sellerID,
		Qty:         payload.Qty,
		ActorUserID: actor.UserID,
		Note:        payload.Note,
	})
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, newProductResponse(product))
}

type createProductRequest struct {
	SKU                string  `json:"sku" validate:"required,max=64"`
	Name               string  `json:"name" validate:"required,max=200"`
	Description        *string `json:"description,omitempty"`
	Category           string  `json:"category" validate:"required,max=64"`
	PriceCents         int64   `json:"price_cents" validate:"required,gt=0"`
	OriginalPriceCents *int64  `json:"original_price_cents,omitempty"`
	InitialStock       int     `json:"initial_stock" validate:"omitempty,gte=0"`
	LowStockThreshold  int     `json:"low_stock_threshold" validate:"omitempty,gte=0"`
}

type updateProductRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	PriceCents  *int64  `json:"price_cents,omitempty"`
	Status      *string `json:"status,omitempty"`
}

type stockChangeRequest struct {
	Qty  int     `json:"qty" validate:"gte=0"`
	Note *string `json:"note,omitempty" validate:"omitempty,max=500"`
}

type productResponse struct {
	ProductID          uuid.UUID `json:"product_id"`
	SellerID           uuid.UUID `json:"seller_id"`
	SKU                string    `json:"sku"`
	Name               string    `json:"name"`
	Description        *string   `json:"description,omitempty"`
	Category           string    `json:"category"`
	PriceCents         int64     `json:"price_cents"`
	OriginalPriceCents *int64    `json:"original_price_cents,omitempty"`
	Status             string    `json:"status"`
	AvailableQty       int       `json:"available_qty"`
	LowStockThreshold  int       `json:"low_stock_threshold"`
	LowStock           bool      `json:"low_stock"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func newProductResponse(product *models.Product) productResponse {
	if product == nil {
		return productResponse{}
	}
	resp := productResponse{
		ProductID:          product.ID,
		SellerID:           product.SellerID,
		SKU:                product.SKU,
		Name:               product.Name,
		Description:        product.Description,
		Category:           product.Category,
		PriceCents:         product.PriceCents,
		OriginalPriceCents: product.OriginalPriceCents,
		Status:             string(product.Status),
		CreatedAt:          product.CreatedAt,
		UpdatedAt:          product.UpdatedAt,
	}
	if product.Stock != nil {
		resp.AvailableQty = product.Stock.AvailableQty
		resp.LowStockThreshold = product.Stock.LowStockThreshold
		resp.LowStock = product.Stock.AvailableQty <= product.Stock.LowStockThreshold
	}
	return resp
}

type stockMovementResponse struct {
	MovementID  uuid.UUID  `json:"movement_id"`
	ProductID   uuid.UUID  `json:"product_id"`
	Delta       int        `json:"delta"`
	QtyAfter    int        `json:"qty_after"`
	Reason      string     `json:"reason"`
	OrderID     *uuid.UUID `json:"order_id,omitempty"`
	ActorUserID *uuid.UUID `json:"actor_user_id,omitempty"`
	Note        *string    `json:"note,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func newStockMovementResponse(movement models.StockMovement) stockMovementResponse {
	return stockMovementResponse{
		MovementID:  movement.ID,
		ProductID:   movement.ProductID,
		Delta:       movement.Delta,
		QtyAfter:    movement.QtyAfter,
		Reason:      movement.Reason.String(),
		OrderID:     movement.OrderID,
		ActorUserID: movement.ActorUserID,
		Note:        movement.Note,
		CreatedAt:   movement.CreatedAt,
	}
}
