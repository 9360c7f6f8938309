package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avelazquez/zocalo-backend/internal/inventory"
	"github.com/avelazquez/zocalo-backend/internal/orders"
	"github.com/avelazquez/zocalo-backend/internal/pricing"
	"github.com/avelazquez/zocalo-backend/internal/promotions"
	"github.com/avelazquez/zocalo-backend/pkg/db/models"
	"github.com/avelazquez/zocalo-backend/pkg/enums"
	apperrors "github.com/avelazquez/zocalo-backend/pkg/errors"
	"github.com/avelazquez/zocalo-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service turns a checkout request into a priced pending order. The whole
// placement runs in one transaction so a stock conflict on the last line
// rolls back every reservation made before it.
type Service interface {
	PlaceOrder(ctx context.Context, req Request) (*models.Order, error)
}

type service struct {
	repo       Repository
	orders     orders.Repository
	tx         txRunner
	inventory  inventory.Service
	promotions promotions.Service
	shipping   pricing.ShippingPolicy
	metrics    *metrics.OrderMetrics
}

// NewService builds a checkout service with the required dependencies.
func NewService(
	repo Repository,
	ordersRepo orders.Repository,
	tx txRunner,
	inv inventory.Service,
	promos promotions.Service,
	shipping pricing.ShippingPolicy,
	m *metrics.OrderMetrics,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("checkout repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if inv == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if promos == nil {
		return nil, fmt.Errorf("promotions service required")
	}
	return &service{
		repo:       repo,
		orders:     ordersRepo,
		tx:         tx,
		inventory:  inv,
		promotions: promos,
		shipping:   shipping,
		metrics:    m,
	}, nil
}

func (s *service) PlaceOrder(ctx context.Context, req Request) (*models.Order, error) {
	started := time.Now()

	if err := validateRequest(req); err != nil {
		s.metrics.ObserveCheckout("validation", time.Since(started))
		return nil, err
	}

	var placed *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.placeOrderTx(ctx, tx, req)
		if err != nil {
			return err
		}
		placed = order
		return nil
	})
	if err != nil {
		s.metrics.ObserveCheckout(checkoutOutcome(err), time.Since(started))
		if typed := apperrors.As(err); typed != nil && typed.Code() == apperrors.CodeInsufficientStock {
			s.metrics.IncStockConflict(enums.StockReasonOrderPlaced.String())
		}
		return nil, err
	}

	s.metrics.ObserveCheckout("success", time.Since(started))
	s.metrics.IncOrdersCreated(req.PaymentMethod.String())
	return placed, nil
}

func (s *service) placeOrderTx(ctx context.Context, tx *gorm.DB, req Request) (*models.Order, error) {
	repo := s.repo.WithTx(tx)
	ordersRepo := s.orders.WithTx(tx)
	promos := s.promotions.WithTx(tx)
	now := time.Now().UTC()

	products, sellersByID, err := s.loadCatalog(ctx, repo, req)
	if err != nil {
		return nil, err
	}

	// A coupon burns one usage up front; the rollback on any later failure
	// hands it back. Unknown or exhausted codes never block checkout, the
	// order is simply priced without them.
	var couponPromo *models.Promotion
	if req.CouponCode != "" {
		couponPromo, err = promos.ConsumeCoupon(ctx, req.CouponCode)
		if err != nil {
			typed := apperrors.As(err)
			if typed == nil || (typed.Code() != apperrors.CodeNotFound && typed.Code() != apperrors.CodeConflict) {
				return nil, err
			}
			couponPromo = nil
		}
	}
	active, err := promos.ActiveAt(ctx, now)
	if err != nil {
		return nil, err
	}
	candidates := promotionCandidates(active, couponPromo)

	cart := make(promotions.CartRef, 0, len(req.Lines))
	for _, line := range req.Lines {
		product := products[line.ProductID]
		cart = append(cart, promotions.LineRef{
			ProductID:      product.ID,
			Category:       product.Category,
			UnitPriceCents: product.PriceCents,
			Qty:            line.Qty,
		})
	}

	lineInputs := make([]pricing.LineInput, 0, len(req.Lines))
	applied := make([]*promotions.Applied, 0, len(req.Lines))
	couponUsed := false
	for i := range req.Lines {
		lineRef := cart[i]
		product := products[lineRef.ProductID]
		seller := sellersByID[product.SellerID]

		best := promotions.SelectBestDiscount(candidates, lineRef, cart, now)
		applied = append(applied, best)

		var discount int64
		if best != nil {
			discount = best.DiscountCents
			if couponPromo != nil && best.Promotion.ID == couponPromo.ID {
				couponUsed = true
			}
		}
		lineInputs = append(lineInputs, pricing.LineInput{
			UnitPriceCents: product.PriceCents,
			Qty:            lineRef.Qty,
			DiscountCents:  discount,
			Tier:           seller.CommissionTier,
		})
	}
	if couponPromo != nil && !couponUsed {
		// The coupon's promotion did not touch any line, either out of
		// scope or beaten by a better discount. Hand the usage back and
		// price the order without it.
		if err := promos.RestoreCoupon(ctx, req.CouponCode); err != nil {
			return nil, err
		}
		couponPromo = nil
	}

	totals, err := pricing.ComputeOrderTotals(lineInputs, s.shipping)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "pricing order")
	}

	order := &models.Order{
		BuyerUserID:        req.BuyerUserID,
		Status:             enums.OrderStatusPending,
		PaymentStatus:      enums.PaymentStatusUnpaid,
		PaymentMethod:      req.PaymentMethod,
		RefundStatus:       enums.RefundStatusNone,
		Customer:           req.Customer,
		SubtotalCents:      totals.SubtotalCents,
		DiscountCents:      totals.DiscountCents,
		ShippingFeeCents:   totals.ShippingFeeCents,
		TotalCents:         totals.TotalCents,
		CommissionCents:    totals.CommissionCents,
		SellerRevenueCents: totals.SellerRevenueCents,
	}
	if couponUsed {
		code := strings.ToUpper(strings.TrimSpace(req.CouponCode))
		order.CouponCode = &code
	}
	order.OrderNumber, err = s.nextOrderNumber(ctx, ordersRepo, now)
	if err != nil {
		return nil, err
	}
	if err := ordersRepo.CreateOrder(ctx, order); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "creating order")
	}

	inv := s.inventory.WithTx(tx)
	items := make([]models.OrderLineItem, 0, len(req.Lines))
	for i, line := range req.Lines {
		product := products[line.ProductID]
		result := totals.Lines[i]

		buyerID := req.BuyerUserID
		orderID := order.ID
		if err := inv.Decrement(ctx, inventory.MovementRequest{
			ProductID:   product.ID,
			Qty:         line.Qty,
			Reason:      enums.StockReasonOrderPlaced,
			OrderID:     &orderID,
			ActorUserID: &buyerID,
		}); err != nil {
			return nil, err
		}

		item := models.OrderLineItem{
			OrderID:            order.ID,
			ProductID:          product.ID,
			SellerID:           product.SellerID,
			Name:               product.Name,
			SKU:                product.SKU,
			UnitPriceCents:     product.PriceCents,
			Qty:                line.Qty,
			DiscountCents:      result.DiscountCents,
			SubtotalCents:      result.SubtotalCents,
			CommissionTier:     result.CommissionTier,
			CommissionRate:     result.CommissionRate,
			CommissionCents:    result.CommissionCents,
			SellerRevenueCents: result.SellerRevenueCents,
		}
		if best := applied[i]; best != nil {
			promoID := best.Promotion.ID
			item.AppliedPromotionID = &promoID
		}
		items = append(items, item)
	}
	if err := ordersRepo.CreateLineItems(ctx, items); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "creating line items")
	}

	buyerID := req.BuyerUserID
	note := "order placed"
	if err := ordersRepo.CreateStatusEvent(ctx, &models.OrderStatusEvent{
		OrderID:     order.ID,
		FromStatus:  enums.OrderStatusPending,
		ToStatus:    enums.OrderStatusPending,
		ActorUserID: &buyerID,
		ActorRole:   enums.ActorRoleBuyer,
		Note:        &note,
	}); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "recording placement event")
	}

	created, err := ordersRepo.FindOrder(ctx, order.ID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "reloading order")
	}
	return created, nil
}

// loadCatalog resolves the requested products and their sellers, rejecting
// anything that cannot be sold right now.
func (s *service) loadCatalog(ctx context.Context, repo Repository, req Request) (map[uuid.UUID]*models.Product, map[uuid.UUID]*models.Seller, error) {
	productIDs := make([]uuid.UUID, 0, len(req.Lines))
	for _, line := range req.Lines {
		productIDs = append(productIDs, line.ProductID)
	}

	rows, err := repo.FindProducts(ctx, productIDs)
	if err != nil {
		return nil, nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading products")
	}
	products := make(map[uuid.UUID]*models.Product, len(rows))
	sellerIDs := make([]uuid.UUID, 0, len(rows))
	for i := range rows {
		products[rows[i].ID] = &rows[i]
		sellerIDs = append(sellerIDs, rows[i].SellerID)
	}

	problems := map[string]string{}
	for _, line := range req.Lines {
		product, ok := products[line.ProductID]
		if !ok {
			problems[line.ProductID.String()] = "product not found"
			continue
		}
		if product.Status != enums.ProductStatusActive {
			problems[line.ProductID.String()] = "product is not available for sale"
		}
	}
	if len(problems) > 0 {
		return nil, nil, apperrors.New(apperrors.CodeValidation, "order contains unavailable products").
			WithDetails(problems)
	}

	sellerRows, err := repo.FindSellers(ctx, sellerIDs)
	if err != nil {
		return nil, nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading sellers")
	}
	sellersByID := make(map[uuid.UUID]*models.Seller, len(sellerRows))
	for i := range sellerRows {
		sellersByID[sellerRows[i].ID] = &sellerRows[i]
	}
	for _, product := range products {
		seller, ok := sellersByID[product.SellerID]
		if !ok || seller.ApprovalStatus != enums.SellerApprovalApproved {
			problems[product.ID.String()] = "seller is not approved to sell"
		}
	}
	if len(problems) > 0 {
		return nil, nil, apperrors.New(apperrors.CodeValidation, "order contains unavailable products").
			WithDetails(problems)
	}

	return products, sellersByID, nil
}

func (s *service) nextOrderNumber(ctx context.Context, repo orders.Repository, now time.Time) (string, error) {
	year := now.Year()
	seq, err := repo.NextOrderNumber(ctx, year)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeInternal, err, "allocating order number")
	}
	return fmt.Sprintf("ZO-%d%06d", year, seq), nil
}

func validateRequest(req Request) error {
	problems := map[string]string{}
	if req.BuyerUserID == uuid.Nil {
		problems["buyer_user_id"] = "is required"
	}
	if !req.PaymentMethod.IsValid() {
		problems["payment_method"] = "is not a known payment method"
	}
	if req.Customer.Name == "" {
		problems["customer.name"] = "is required"
	}
	if req.Customer.Address == "" {
		problems["customer.address"] = "is required"
	}
	if len(req.Lines) == 0 {
		problems["lines"] = "at least one line is required"
	}
	seen := make(map[uuid.UUID]bool, len(req.Lines))
	for i, line := range req.Lines {
		key := fmt.Sprintf("lines[%d]", i)
		if line.ProductID == uuid.Nil {
			problems[key+".product_id"] = "is required"
		}
		if line.Qty <= 0 {
			problems[key+".qty"] = "must be positive"
		}
		if seen[line.ProductID] {
			problems[key+".product_id"] = "is duplicated; merge quantities into one line"
		}
		seen[line.ProductID] = true
	}
	if len(problems) > 0 {
		return apperrors.New(apperrors.CodeValidation, "checkout request invalid").WithDetails(problems)
	}
	return nil
}

// promotionCandidates merges the automatic promotions with the coupon's one,
// deduplicated by ID.
func promotionCandidates(active []models.Promotion, coupon *models.Promotion) []models.Promotion {
	if coupon == nil {
		return active
	}
	for _, promo := range active {
		if promo.ID == coupon.ID {
			return active
		}
	}
	return append(append(make([]models.Promotion, 0, len(active)+1), active...), *coupon)
}

func checkoutOutcome(err error) string {
	typed := apperrors.As(err)
	if typed == nil {
		return "error"
	}
	switch typed.Code() {
	case apperrors.CodeInsufficientStock:
		return "insufficient_stock"
	case apperrors.CodeValidation, apperrors.CodeConflict:
		return "rejected"
	default:
		return "error"
	}
}
