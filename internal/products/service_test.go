package products

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/avelazquez/zocalo-backend/internal/inventory"
	"github.com/avelazquez/zocalo-backend/pkg/db/models"
	"github.com/avelazquez/zocalo-backend/pkg/enums"
	pkgerrors "github.com/avelazquez/zocalo-backend/pkg/errors"
	"github.com/avelazquez/zocalo-backend/pkg/pagination"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(tx)
	})
}

func newService(t *testing.T) (Service, *gorm.DB, uuid.UUID) {
	t.Helper()

	db := newTestDB(t)
	sellerID := uuid.New()
	if err := db.Create(&models.Seller{
		ID:             sellerID,
		UserID:         uuid.New(),
		DisplayName:    "catalog seller",
		Email:          "seller@example.com",
		ApprovalStatus: enums.SellerApprovalApproved,
		CommissionTier: enums.CommissionTierBronze,
	}).Error; err != nil {
		t.Fatalf("seed seller: %v", err)
	}

	svc, err := NewService(
		NewRepository(db),
		testTxRunner{db: db},
		inventory.NewService(inventory.NewRepository(db)),
	)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, db, sellerID
}

func TestCreateProduct(t *testing.T) {
	t.Parallel()

	svc, db, sellerID := newService(t)
	ctx := context.Background()

	product, err := svc.Create(ctx, CreateProductRequest{
		SellerID:          sellerID,
		SKU:               "MUG-01",
		Name:              "enamel mug",
		Category:          "kitchen",
		PriceCents:        1_500,
		InitialStock:      12,
		LowStockThreshold: 3,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if product.Status != enums.ProductStatusActive {
		t.Fatalf("expected active, got %s", product.Status)
	}
	if product.Stock == nil || product.Stock.AvailableQty != 12 {
		t.Fatalf("expected stock 12, got %+v", product.Stock)
	}

	// The initial stock leaves an audit trail.
	var movement models.StockMovement
	if err := db.First(&movement, "product_id = ?", product.ID).Error; err != nil {
		t.Fatalf("load movement: %v", err)
	}
	if movement.Reason != enums.StockReasonRestock || movement.QtyAfter != 12 {
		t.Fatalf("unexpected movement: %+v", movement)
	}
}

func TestCreateProductWithoutStockStartsOutOfStock(t *testing.T) {
	t.Parallel()

	svc, _, sellerID := newService(t)
	ctx := context.Background()

	product, err := svc.Create(ctx, CreateProductRequest{
		SellerID:   sellerID,
		SKU:        "PRE-01",
		Name:       "preorder item",
		Category:   "misc",
		PriceCents: 9_900,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if product.Status != enums.ProductStatusOutOfStock {
		t.Fatalf("expected out_of_stock, got %s", product.Status)
	}
}

func TestCreateProductRequiresApprovedSeller(t *testing.T) {
	t.Parallel()

	svc, db, sellerID := newService(t)
	ctx := context.Background()

	if err := db.Model(&models.Seller{}).
		Where("id = ?", sellerID).
		Update("approval_status", enums.SellerApprovalPending).Error; err != nil {
		t.Fatalf("unapprove seller: %v", err)
	}

	_, err := svc.Create(ctx, CreateProductRequest{
		SellerID:   sellerID,
		SKU:        "X-01",
		Name:       "thing",
		Category:   "misc",
		PriceCents: 100,
	})
	requireCode(t, err, pkgerrors.CodeForbidden)
}

func TestCreateProductValidation(t *testing.T) {
	t.Parallel()

	svc, _, sellerID := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateProductRequest{
		SellerID:     sellerID,
		SKU:          "",
		Name:         "",
		Category:     "misc",
		PriceCents:   0,
		InitialStock: -1,
	})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestUpdateProduct(t *testing.T) {
	t.Parallel()

	svc, _, sellerID := newService(t)
	ctx := context.Background()

	product := mustCreate(t, svc, sellerID, "UPD-01", 5)

	name := "renamed"
	price := int64(2_000)
	updated, err := svc.Update(ctx, product.ID, sellerID, UpdateProductRequest{
		Name:       &name,
		PriceCents: &price,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "renamed" || updated.PriceCents != 2_000 {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	// Another seller cannot touch it.
	_, err = svc.Update(ctx, product.ID, uuid.New(), UpdateProductRequest{Name: &name})
	requireCode(t, err, pkgerrors.CodeForbidden)

	bad := int64(-5)
	_, err = svc.Update(ctx, product.ID, sellerID, UpdateProductRequest{PriceCents: &bad})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestDiscontinueAndReactivate(t *testing.T) {
	t.Parallel()

	svc, _, sellerID := newService(t)
	ctx := context.Background()

	product := mustCreate(t, svc, sellerID, "DIS-01", 0)

	discontinued := enums.ProductStatusDiscontinued
	updated, err := svc.Update(ctx, product.ID, sellerID, UpdateProductRequest{Status: &discontinued})
	if err != nil {
		t.Fatalf("discontinue: %v", err)
	}
	if updated.Status != enums.ProductStatusDiscontinued {
		t.Fatalf("expected discontinued, got %s", updated.Status)
	}

	// Reactivating an empty product lands on out_of_stock, not active.
	active := enums.ProductStatusActive
	updated, err = svc.Update(ctx, product.ID, sellerID, UpdateProductRequest{Status: &active})
	if err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	if updated.Status != enums.ProductStatusOutOfStock {
		t.Fatalf("expected out_of_stock, got %s", updated.Status)
	}

	outOfStock := enums.ProductStatusOutOfStock
	_, err = svc.Update(ctx, product.ID, sellerID, UpdateProductRequest{Status: &outOfStock})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestRestockAndSetStock(t *testing.T) {
	t.Parallel()

	svc, _, sellerID := newService(t)
	ctx := context.Background()

	product := mustCreate(t, svc, sellerID, "STK-01", 0)
	actorID := uuid.New()

	restocked, err := svc.Restock(ctx, StockChangeRequest{
		ProductID:   product.ID,
		SellerID:    sellerID,
		Qty:         7,
		ActorUserID: actorID,
	})
	if err != nil {
		t.Fatalf("restock: %v", err)
	}
	if restocked.Stock.AvailableQty != 7 || restocked.Status != enums.ProductStatusActive {
		t.Fatalf("unexpected state after restock: %+v", restocked)
	}

	set, err := svc.SetStock(ctx, StockChangeRequest{
		ProductID:   product.ID,
		SellerID:    sellerID,
		Qty:         0,
		ActorUserID: actorID,
	})
	if err != nil {
		t.Fatalf("set stock: %v", err)
	}
	if set.Stock.AvailableQty != 0 || set.Status != enums.ProductStatusOutOfStock {
		t.Fatalf("unexpected state after set: %+v", set)
	}

	_, err = svc.Restock(ctx, StockChangeRequest{
		ProductID:   product.ID,
		SellerID:    uuid.New(),
		Qty:         1,
		ActorUserID: actorID,
	})
	requireCode(t, err, pkgerrors.CodeForbidden)
}

func TestListBySeller(t *testing.T) {
	t.Parallel()

	svc, _, sellerID := newService(t)
	ctx := context.Background()

	for _, sku := range []string{"L-01", "L-02", "L-03"} {
		mustCreate(t, svc, sellerID, sku, 1)
	}

	page, err := svc.ListBySeller(ctx, sellerID, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Products) != 2 || page.NextCursor == "" {
		t.Fatalf("expected first page of 2 with cursor, got %d", len(page.Products))
	}

	rest, err := svc.ListBySeller(ctx, sellerID, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	if err != nil {
		t.Fatalf("list rest: %v", err)
	}
	if len(rest.Products) != 1 || rest.NextCursor != "" {
		t.Fatalf("expected final page of 1, got %d", len(rest.Products))
	}
}

func mustCreate(t *testing.T, svc Service, sellerID uuid.UUID, sku string, stock int) *models.Product {
	t.Helper()
	product, err := svc.Create(context.Background(), CreateProductRequest{
		SellerID:     sellerID,
		SKU:          sku,
		Name:         "product " + sku,
		Category:     "misc",
		PriceCents:   1_000,
		InitialStock: stock,
	})
	if err != nil {
		t.Fatalf("create product %s: %v", sku, err)
	}
	return product
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
	dsn := "file:products_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Seller{},
		&models.Product{},
		&models.StockLevel{},
		&models.StockMovement{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
