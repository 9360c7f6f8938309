package sellers

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/avelazquez/zocalo-backend/pkg/db/models"
	"github.com/avelazquez/zocalo-backend/pkg/enums"
	pkgerrors "github.com/avelazquez/zocalo-backend/pkg/errors"
)

func TestApprovalLifecycle(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	svc := NewService(NewRepository(db))

	seller, err := svc.Register(ctx, RegisterRequest{
		UserID:      uuid.New(),
		DisplayName: "Casa Milpa",
		Email:       "hola@casamilpa.mx",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if seller.ApprovalStatus != enums.SellerApprovalPending {
		t.Fatalf("expected pending, got %s", seller.ApprovalStatus)
	}
	if seller.CommissionTier != enums.CommissionTierBronze {
		t.Fatalf("expected bronze tier, got %s", seller.CommissionTier)
	}

	approved, err := svc.SetApproval(ctx, seller.ID, enums.SellerApprovalApproved, false)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.ApprovalStatus != enums.SellerApprovalApproved || approved.ApprovedAt == nil {
		t.Fatalf("unexpected state after approval: %+v", approved)
	}

	// A decided approval does not flip on an ordinary request.
	_, err = svc.SetApproval(ctx, seller.ID, enums.SellerApprovalRejected, false)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}

	// An explicit re-review can still revoke an approved seller.
	rejected, err := svc.SetApproval(ctx, seller.ID, enums.SellerApprovalRejected, true)
	if err != nil {
		t.Fatalf("re-review reject: %v", err)
	}
	if rejected.ApprovalStatus != enums.SellerApprovalRejected || rejected.ApprovedAt != nil {
		t.Fatalf("unexpected state after re-review: %+v", rejected)
	}
}

func TestRegisterDuplicateUser(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	svc := NewService(NewRepository(db))

	userID := uuid.New()
	if _, err := svc.Register(ctx, RegisterRequest{
		UserID:      userID,
		DisplayName: "first",
		Email:       "first@example.com",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := svc.Register(ctx, RegisterRequest{
		UserID:      userID,
		DisplayName: "second",
		Email:       "second@example.com",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for duplicate user, got %v", err)
	}
}

func TestSetApprovalRejectsPendingTarget(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(NewRepository(db))

	seller, err := svc.Register(context.Background(), RegisterRequest{
		UserID:      uuid.New(),
		DisplayName: "pending target",
		Email:       "x@example.com",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err = svc.SetApproval(context.Background(), seller.ID, enums.SellerApprovalPending, false)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRecordSaleUpgradesTier(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	svc := NewService(NewRepository(db))

	seller, err := svc.Register(ctx, RegisterRequest{
		UserID:      uuid.New(),
		DisplayName: "volume seller",
		Email:       "v@example.com",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	// Just under the silver threshold: still bronze.
	if err := svc.RecordSale(ctx, seller.ID, 4_999_999); err != nil {
		t.Fatalf("record sale: %v", err)
	}
	got, err := svc.Get(ctx, seller.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CommissionTier != enums.CommissionTierBronze {
		t.Fatalf("expected bronze, got %s", got.CommissionTier)
	}

	// One more cent crosses into silver.
	if err := svc.RecordSale(ctx, seller.ID, 1); err != nil {
		t.Fatalf("record sale: %v", err)
	}
	got, err = svc.Get(ctx, seller.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CommissionTier != enums.CommissionTierSilver {
		t.Fatalf("expected silver, got %s", got.CommissionTier)
	}
	if got.SalesVolumeCents != 5_000_000 {
		t.Fatalf("expected volume 5000000, got %d", got.SalesVolumeCents)
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:sellers_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Seller{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
