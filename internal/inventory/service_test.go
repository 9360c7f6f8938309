package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/avelazquez/zocalo-backend/pkg/db/models"
	"github.com/avelazquez/zocalo-backend/pkg/enums"
	pkgerrors "github.com/avelazquez/zocalo-backend/pkg/errors"
	"github.com/avelazquez/zocalo-backend/pkg/pagination"
)

func TestDeriveStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		qty     int
		current enums.ProductStatus
		want    enums.ProductStatus
	}{
		{"stock available", 3, enums.ProductStatusActive, enums.ProductStatusActive},
		{"stock depleted", 0, enums.ProductStatusActive, enums.ProductStatusOutOfStock},
		{"restocked", 5, enums.ProductStatusOutOfStock, enums.ProductStatusActive},
		{"discontinued stays put", 10, enums.ProductStatusDiscontinued, enums.ProductStatusDiscontinued},
		{"discontinued at zero", 0, enums.ProductStatusDiscontinued, enums.ProductStatusDiscontinued},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveStatus(tc.qty, tc.current); got != tc.want {
				t.Fatalf("DeriveStatus(%d, %s) = %s, want %s", tc.qty, tc.current, got, tc.want)
			}
		})
	}
}

func TestDecrement(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	svc := NewService(NewRepository(db))

	productID := seedProduct(t, db, 5)
	orderID := uuid.New()

	if err := svc.Decrement(ctx, MovementRequest{
		ProductID: productID,
		Qty:       3,
		Reason:    enums.StockReasonOrderPlaced,
		OrderID:   &orderID,
	}); err != nil {
		t.Fatalf("decrement: %v", err)
	}

	stock, err := svc.GetStock(ctx, productID)
	if err != nil {
		t.Fatalf("get stock: %v", err)
	}
	if stock.AvailableQty != 2 {
		t.Fatalf("expected 2 remaining, got %d", stock.AvailableQty)
	}

	movements, err := svc.ListMovements(ctx, productID, pagination.Params{})
	if err != nil {
		t.Fatalf("list movements: %v", err)
	}
	if len(movements) != 1 {
		t.Fatalf("expected 1 movement, got %d", len(movements))
	}
	if movements[0].Delta != -3 || movements[0].QtyAfter != 2 {
		t.Fatalf("unexpected movement: %+v", movements[0])
	}
	if movements[0].OrderID == nil || *movements[0].OrderID != orderID {
		t.Fatalf("expected movement tied to order %s", orderID)
	}
}

func TestDecrementInsufficientStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	svc := NewService(NewRepository(db))

	productID := seedProduct(t, db, 2)

	err := svc.Decrement(ctx, MovementRequest{
		ProductID: productID,
		Qty:       3,
		Reason:    enums.StockReasonOrderPlaced,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock error, got %v", err)
	}

	// Stock must be untouched after the failed guard.
	stock, err := svc.GetStock(ctx, productID)
	if err != nil {
		t.Fatalf("get stock: %v", err)
	}
	if stock.AvailableQty != 2 {
		t.Fatalf("expected stock unchanged at 2, got %d", stock.AvailableQty)
	}

	movements, err := svc.ListMovements(ctx, productID, pagination.Params{})
	if err != nil {
		t.Fatalf("list movements: %v", err)
	}
	if len(movements) != 0 {
		t.Fatalf("expected no movements, got %d", len(movements))
	}
}

func TestDecrementToZeroFlipsProductStatus(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	svc := NewService(NewRepository(db))

	productID := seedProduct(t, db, 2)

	if err := svc.Decrement(ctx, MovementRequest{
		ProductID: productID,
		Qty:       2,
		Reason:    enums.StockReasonOrderPlaced,
	}); err != nil {
		t.Fatalf("decrement: %v", err)
	}

	var product models.Product
	if err := db.First(&product, "id = ?", productID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if product.Status != enums.ProductStatusOutOfStock {
		t.Fatalf("expected out_of_stock, got %s", product.Status)
	}

	if err := svc.Restore(ctx, MovementRequest{
		ProductID: productID,
		Qty:       1,
		Reason:    enums.StockReasonOrderCancelled,
	}); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if err := db.First(&product, "id = ?", productID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if product.Status != enums.ProductStatusActive {
		t.Fatalf("expected active after restore, got %s", product.Status)
	}
}

func TestSetStockRecordsDelta(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	svc := NewService(NewRepository(db))

	productID := seedProduct(t, db, 4)

	if err := svc.SetStock(ctx, MovementRequest{
		ProductID: productID,
		Qty:       10,
		Reason:    enums.StockReasonManualSet,
	}); err != nil {
		t.Fatalf("set stock: %v", err)
	}

	movements, err := svc.ListMovements(ctx, productID, pagination.Params{})
	if err != nil {
		t.Fatalf("list movements: %v", err)
	}
	if len(movements) != 1 {
		t.Fatalf("expected 1 movement, got %d", len(movements))
	}
	if movements[0].Delta != 6 || movements[0].QtyAfter != 10 {
		t.Fatalf("unexpected movement: %+v", movements[0])
	}
}

func TestDecrementRollsBackWithTransaction(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	svc := NewService(NewRepository(db))

	productID := seedProduct(t, db, 5)

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := svc.WithTx(tx).Decrement(ctx, MovementRequest{
			ProductID: productID,
			Qty:       5,
			Reason:    enums.StockReasonOrderPlaced,
		}); err != nil {
			return err
		}
		return gorm.ErrInvalidTransaction
	})
	if err == nil {
		t.Fatal("expected transaction to fail")
	}

	stock, err := svc.GetStock(ctx, productID)
	if err != nil {
		t.Fatalf("get stock: %v", err)
	}
	if stock.AvailableQty != 5 {
		t.Fatalf("expected rollback to 5, got %d", stock.AvailableQty)
	}
}

func seedProduct(t *testing.T, db *gorm.DB, qty int) uuid.UUID {
	t.Helper()
	productID := uuid.New()
	product := models.Product{
		ID:         productID,
		SellerID:   uuid.New(),
		SKU:        "SKU-" + productID.String()[:8],
		Name:       "test product",
		Category:   "general",
		PriceCents: 1_000,
		Status:     enums.ProductStatusActive,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	if err := db.Create(&models.StockLevel{ProductID: productID, AvailableQty: qty}).Error; err != nil {
		t.Fatalf("seed stock: %v", err)
	}
	return productID
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:inventory_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}, &models.StockLevel{}, &models.StockMovement{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
