package checkout

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/avelazquez/zocalo-backend/internal/inventory"
	"github.com/avelazquez/zocalo-backend/internal/orders"
	"github.com/avelazquez/zocalo-backend/internal/pricing"
	"github.com/avelazquez/zocalo-backend/internal/promotions"
	"github.com/avelazquez/zocalo-backend/pkg/db/models"
	"github.com/avelazquez/zocalo-backend/pkg/enums"
	pkgerrors "github.com/avelazquez/zocalo-backend/pkg/errors"
	"github.com/avelazquez/zocalo-backend/pkg/types"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(tx)
	})
}

type checkoutFixture struct {
	db       *gorm.DB
	svc      Service
	buyerID  uuid.UUID
	sellerID uuid.UUID
	productA uuid.UUID // 100.00, stock 10, category electronics
	productB uuid.UUID // 25.00, stock 2, category books
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()

	db := newTestDB(t)

	sellerID := uuid.New()
	if err := db.Create(&models.Seller{
		ID:             sellerID,
		UserID:         uuid.New(),
		DisplayName:    "checkout seller",
		Email:          "seller@example.com",
		ApprovalStatus: enums.SellerApprovalApproved,
		CommissionTier: enums.CommissionTierBronze,
	}).Error; err != nil {
		t.Fatalf("seed seller: %v", err)
	}

	productA := seedProduct(t, db, sellerID, "SKU-A", "electronics", 10_000, 10)
	productB := seedProduct(t, db, sellerID, "SKU-B", "books", 2_500, 2)

	svc, err := NewService(
		NewRepository(db),
		orders.NewRepository(db),
		testTxRunner{db: db},
		inventory.NewService(inventory.NewRepository(db)),
		promotions.NewService(promotions.NewRepository(db)),
		pricing.ShippingPolicy{FlatFeeCents: 500, FreeThresholdCents: 5_000_000},
		nil,
	)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	return &checkoutFixture{
		db:       db,
		svc:      svc,
		buyerID:  uuid.New(),
		sellerID: sellerID,
		productA: productA,
		productB: productB,
	}
}

func (f *checkoutFixture) request(lines ...LineRequest) Request {
	return Request{
		BuyerUserID:   f.buyerID,
		PaymentMethod: enums.PaymentMethodCard,
		Customer: types.CustomerInfo{
			Name:    "Ana Buyer",
			Address: "Calle Falsa 123",
		},
		Lines: lines,
	}
}

func TestPlaceOrder(t *testing.T) {
	t.Parallel()

	f := newCheckoutFixture(t)
	ctx := context.Background()

	order, err := f.svc.PlaceOrder(ctx, f.request(
		LineRequest{ProductID: f.productA, Qty: 2},
		LineRequest{ProductID: f.productB, Qty: 1},
	))
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	if order.Status != enums.OrderStatusPending || order.PaymentStatus != enums.PaymentStatusUnpaid {
		t.Fatalf("unexpected initial state: %+v", order)
	}
	if !strings.HasPrefix(order.OrderNumber, "ZO-") || len(order.OrderNumber) != 13 {
		t.Fatalf("unexpected order number %q", order.OrderNumber)
	}

	// 2x100.00 + 1x25.00 merchandise, plus flat shipping under the threshold.
	if order.SubtotalCents != 22_500 || order.ShippingFeeCents != 500 || order.TotalCents != 23_000 {
		t.Fatalf("unexpected totals: %+v", order)
	}
	if order.CommissionCents+order.SellerRevenueCents != order.SubtotalCents-order.DiscountCents {
		t.Fatalf("commission split does not balance: %+v", order)
	}
	if len(order.Items) != 2 {
		t.Fatalf("expected 2 line items, got %d", len(order.Items))
	}
	for _, item := range order.Items {
		if item.CommissionTier != enums.CommissionTierBronze {
			t.Fatalf("expected bronze tier snapshot, got %s", item.CommissionTier)
		}
		if item.Name == "" || item.SKU == "" {
			t.Fatalf("expected product snapshot on line: %+v", item)
		}
	}

	assertStock(t, f.db, f.productA, 8)
	assertStock(t, f.db, f.productB, 1)

	var movements []models.StockMovement
	if err := f.db.Where("order_id = ?", order.ID).Find(&movements).Error; err != nil {
		t.Fatalf("load movements: %v", err)
	}
	if len(movements) != 2 {
		t.Fatalf("expected 2 stock movements, got %d", len(movements))
	}
	for _, movement := range movements {
		if movement.Reason != enums.StockReasonOrderPlaced {
			t.Fatalf("unexpected movement reason %s", movement.Reason)
		}
	}

	var events []models.OrderStatusEvent
	if err := f.db.Where("order_id = ?", order.ID).Find(&events).Error; err != nil {
		t.Fatalf("load events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected placement event, got %d", len(events))
	}
}

func TestPlaceOrderSequencesOrderNumbers(t *testing.T) {
	t.Parallel()

	f := newCheckoutFixture(t)
	ctx := context.Background()

	first, err := f.svc.PlaceOrder(ctx, f.request(LineRequest{ProductID: f.productA, Qty: 1}))
	if err != nil {
		t.Fatalf("first order: %v", err)
	}
	second, err := f.svc.PlaceOrder(ctx, f.request(LineRequest{ProductID: f.productA, Qty: 1}))
	if err != nil {
		t.Fatalf("second order: %v", err)
	}
	if first.OrderNumber == second.OrderNumber {
		t.Fatalf("order numbers must be unique, both %q", first.OrderNumber)
	}
}

func TestPlaceOrderAppliesBestPromotion(t *testing.T) {
	t.Parallel()

	f := newCheckoutFixture(t)
	ctx := context.Background()

	// A weaker platform promo and a stronger category promo compete.
	seedPromotion(t, f.db, &models.Promotion{
		Name:     "platform 5",
		Kind:     enums.PromotionKindPercentage,
		Scope:    enums.PromotionScopePlatform,
		Percent:  percentPtr("5"),
		IsActive: true,
	})
	categoryPromo := seedPromotion(t, f.db, &models.Promotion{
		Name:       "electronics 10",
		Kind:       enums.PromotionKindPercentage,
		Scope:      enums.PromotionScopeCategory,
		Percent:    percentPtr("10"),
		Categories: []string{"electronics"},
		IsActive:   true,
	})

	order, err := f.svc.PlaceOrder(ctx, f.request(LineRequest{ProductID: f.productA, Qty: 2}))
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	// 10% off 200.00.
	if order.DiscountCents != 2_000 {
		t.Fatalf("expected discount 2000, got %d", order.DiscountCents)
	}
	if order.TotalCents != 18_500 {
		t.Fatalf("expected total 18500, got %d", order.TotalCents)
	}
	item := order.Items[0]
	if item.AppliedPromotionID == nil || *item.AppliedPromotionID != categoryPromo.ID {
		t.Fatalf("expected category promo on line, got %+v", item.AppliedPromotionID)
	}
}

func TestPlaceOrderWithCoupon(t *testing.T) {
	t.Parallel()

	f := newCheckoutFixture(t)
	ctx := context.Background()

	promo := seedPromotion(t, f.db, &models.Promotion{
		Name:        "coupon deal",
		Kind:        enums.PromotionKindFixed,
		Scope:       enums.PromotionScopeProduct,
		AmountCents: int64Ptr(1_500),
		ProductID:   &f.productA,
		IsActive:    true,
	})
	if err := f.db.Create(&models.Coupon{
		ID:          uuid.New(),
		Code:        "SAVE15",
		PromotionID: promo.ID,
		MaxUsage:    1,
	}).Error; err != nil {
		t.Fatalf("seed coupon: %v", err)
	}

	req := f.request(LineRequest{ProductID: f.productA, Qty: 1})
	req.CouponCode = "SAVE15"
	order, err := f.svc.PlaceOrder(ctx, req)
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if order.DiscountCents != 1_500 || order.TotalCents != 9_000 {
		t.Fatalf("unexpected coupon pricing: %+v", order)
	}
	// The consumed code sticks to the order so cancellation can re-credit.
	if order.CouponCode == nil || *order.CouponCode != "SAVE15" {
		t.Fatalf("expected coupon code on order, got %v", order.CouponCode)
	}

	var coupon models.Coupon
	if err := f.db.First(&coupon, "code = ?", "SAVE15").Error; err != nil {
		t.Fatalf("load coupon: %v", err)
	}
	if coupon.UsedCount != 1 {
		t.Fatalf("expected used_count 1, got %d", coupon.UsedCount)
	}

	// An exhausted code is ignored; the order goes through at full price.
	second, err := f.svc.PlaceOrder(ctx, req)
	if err != nil {
		t.Fatalf("place order with exhausted coupon: %v", err)
	}
	if second.DiscountCents != 0 || second.CouponCode != nil {
		t.Fatalf("expected full-price order, got %+v", second)
	}
}

func TestPlaceOrderIgnoresUnknownCoupon(t *testing.T) {
	t.Parallel()

	f := newCheckoutFixture(t)
	ctx := context.Background()

	req := f.request(LineRequest{ProductID: f.productA, Qty: 1})
	req.CouponCode = "GHOST"
	order, err := f.svc.PlaceOrder(ctx, req)
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if order.DiscountCents != 0 || order.TotalCents != 10_500 {
		t.Fatalf("expected full-price order, got %+v", order)
	}
	if order.CouponCode != nil {
		t.Fatalf("no coupon should be recorded, got %q", *order.CouponCode)
	}
}

func TestPlaceOrderRestoresCouponWhenNotApplicable(t *testing.T) {
	t.Parallel()

	f := newCheckoutFixture(t)
	ctx := context.Background()

	promo := seedPromotion(t, f.db, &models.Promotion{
		Name:        "books only",
		Kind:        enums.PromotionKindFixed,
		Scope:       enums.PromotionScopeProduct,
		AmountCents: int64Ptr(500),
		ProductID:   &f.productB,
		IsActive:    true,
	})
	if err := f.db.Create(&models.Coupon{
		ID:          uuid.New(),
		Code:        "BOOKS5",
		PromotionID: promo.ID,
		MaxUsage:    3,
	}).Error; err != nil {
		t.Fatalf("seed coupon: %v", err)
	}

	// The coupon targets product B but the cart only holds product A. The
	// order still goes through, at full price.
	req := f.request(LineRequest{ProductID: f.productA, Qty: 1})
	req.CouponCode = "BOOKS5"
	order, err := f.svc.PlaceOrder(ctx, req)
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if order.DiscountCents != 0 || order.CouponCode != nil {
		t.Fatalf("expected undiscounted order, got %+v", order)
	}

	// The burned usage went back.
	var coupon models.Coupon
	if err := f.db.First(&coupon, "code = ?", "BOOKS5").Error; err != nil {
		t.Fatalf("load coupon: %v", err)
	}
	if coupon.UsedCount != 0 {
		t.Fatalf("expected used_count 0 after restore, got %d", coupon.UsedCount)
	}
}

func TestPlaceOrderHonorsMinimumPurchase(t *testing.T) {
	t.Parallel()

	f := newCheckoutFixture(t)
	ctx := context.Background()

	seedPromotion(t, f.db, &models.Promotion{
		Name:             "spend to save",
		Kind:             enums.PromotionKindPercentage,
		Scope:            enums.PromotionScopePlatform,
		Percent:          percentPtr("10"),
		MinPurchaseCents: 5_000,
		IsActive:         true,
	})

	// 25.00 cart is below the 50.00 floor: no discount.
	small, err := f.svc.PlaceOrder(ctx, f.request(LineRequest{ProductID: f.productB, Qty: 1}))
	if err != nil {
		t.Fatalf("place small order: %v", err)
	}
	if small.DiscountCents != 0 {
		t.Fatalf("expected no discount below the minimum, got %d", small.DiscountCents)
	}

	// 100.00 cart clears it and gets the ten percent off.
	big, err := f.svc.PlaceOrder(ctx, f.request(LineRequest{ProductID: f.productA, Qty: 1}))
	if err != nil {
		t.Fatalf("place big order: %v", err)
	}
	if big.DiscountCents != 1_000 {
		t.Fatalf("expected discount 1000, got %d", big.DiscountCents)
	}
}

func TestPlaceOrderInsufficientStockRollsBack(t *testing.T) {
	t.Parallel()

	f := newCheckoutFixture(t)
	ctx := context.Background()

	// Product B has stock 2; asking for 3 fails after A was already taken.
	_, err := f.svc.PlaceOrder(ctx, f.request(
		LineRequest{ProductID: f.productA, Qty: 1},
		LineRequest{ProductID: f.productB, Qty: 3},
	))
	requireCode(t, err, pkgerrors.CodeInsufficientStock)

	assertStock(t, f.db, f.productA, 10)
	assertStock(t, f.db, f.productB, 2)

	var count int64
	if err := f.db.Model(&models.Order{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no orders after rollback, got %d", count)
	}
}

func TestPlaceOrderRejectsUnavailableProducts(t *testing.T) {
	t.Parallel()

	f := newCheckoutFixture(t)
	ctx := context.Background()

	if err := f.db.Model(&models.Product{}).
		Where("id = ?", f.productB).
		Update("status", enums.ProductStatusDiscontinued).Error; err != nil {
		t.Fatalf("discontinue product: %v", err)
	}

	_, err := f.svc.PlaceOrder(ctx, f.request(LineRequest{ProductID: f.productB, Qty: 1}))
	requireCode(t, err, pkgerrors.CodeValidation)

	// Unknown products fail the same way.
	_, err = f.svc.PlaceOrder(ctx, f.request(LineRequest{ProductID: uuid.New(), Qty: 1}))
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestPlaceOrderRejectsUnapprovedSeller(t *testing.T) {
	t.Parallel()

	f := newCheckoutFixture(t)
	ctx := context.Background()

	if err := f.db.Model(&models.Seller{}).
		Where("id = ?", f.sellerID).
		Update("approval_status", enums.SellerApprovalPending).Error; err != nil {
		t.Fatalf("unapprove seller: %v", err)
	}

	_, err := f.svc.PlaceOrder(ctx, f.request(LineRequest{ProductID: f.productA, Qty: 1}))
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestPlaceOrderValidation(t *testing.T) {
	t.Parallel()

	f := newCheckoutFixture(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(req *Request)
	}{
		{"missing buyer", func(req *Request) { req.BuyerUserID = uuid.Nil }},
		{"bad payment method", func(req *Request) { req.PaymentMethod = "barter" }},
		{"missing customer name", func(req *Request) { req.Customer.Name = "" }},
		{"no lines", func(req *Request) { req.Lines = nil }},
		{"zero qty", func(req *Request) { req.Lines[0].Qty = 0 }},
		{"duplicate product", func(req *Request) {
			req.Lines = append(req.Lines, LineRequest{ProductID: f.productA, Qty: 1})
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := f.request(LineRequest{ProductID: f.productA, Qty: 1})
			tc.mutate(&req)
			_, err := f.svc.PlaceOrder(ctx, req)
			requireCode(t, err, pkgerrors.CodeValidation)
		})
	}
}

func seedProduct(t *testing.T, db *gorm.DB, sellerID uuid.UUID, sku, category string, priceCents int64, stock int) uuid.UUID {
	t.Helper()
	id := uuid.New()
	if err := db.Create(&models.Product{
		ID:         id,
		SellerID:   sellerID,
		SKU:        sku,
		Name:       "product " + sku,
		Category:   category,
		PriceCents: priceCents,
		Status:     enums.ProductStatusActive,
	}).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	if err := db.Create(&models.StockLevel{ProductID: id, AvailableQty: stock}).Error; err != nil {
		t.Fatalf("seed stock: %v", err)
	}
	return id
}

func seedPromotion(t *testing.T, db *gorm.DB, promo *models.Promotion) *models.Promotion {
	t.Helper()
	if promo.ID == uuid.Nil {
		promo.ID = uuid.New()
	}
	now := time.Now().UTC()
	if promo.ValidFrom.IsZero() {
		promo.ValidFrom = now.Add(-time.Hour)
	}
	if promo.ValidUntil.IsZero() {
		promo.ValidUntil = now.Add(time.Hour)
	}
	if err := db.Create(promo).Error; err != nil {
		t.Fatalf("seed promotion: %v", err)
	}
	return promo
}

func assertStock(t *testing.T, db *gorm.DB, productID uuid.UUID, want int) {
	t.Helper()
	var stock models.StockLevel
	if err := db.First(&stock, "product_id = ?", productID).Error; err != nil {
		t.Fatalf("load stock: %v", err)
	}
	if stock.AvailableQty != want {
		t.Fatalf("expected stock %d for %s, got %d", want, productID, stock.AvailableQty)
	}
}

func percentPtr(value string) *decimal.Decimal {
	d := decimal.RequireFromString(value)
	return &d
}

func int64Ptr(value int64) *int64 {
	return &value
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != code {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:checkout_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Seller{},
		&models.Product{},
		&models.StockLevel{},
		&models.StockMovement{},
		&models.Promotion{},
		&models.Coupon{},
		&models.Order{},
		&models.OrderLineItem{},
		&models.OrderStatusEvent{},
		&models.OrderCounter{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
