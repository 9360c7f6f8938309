package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	checkoutsvc "github.com/avelazquez/zocalo-backend/internal/checkout"
	"github.com/avelazquez/zocalo-backend/internal/inventory"
	"github.com/avelazquez/zocalo-backend/internal/ledger"
	ordersvc "github.com/avelazquez/zocalo-backend/internal/orders"
	productsvc "github.com/avelazquez/zocalo-backend/internal/products"
	"github.com/avelazquez/zocalo-backend/internal/promotions"
	"github.com/avelazquez/zocalo-backend/internal/sellers"
	pkgauth "github.com/avelazquez/zocalo-backend/pkg/auth"
	"github.com/avelazquez/zocalo-backend/pkg/config"
	"github.com/avelazquez/zocalo-backend/pkg/db/models"
	"github.com/avelazquez/zocalo-backend/pkg/enums"
	"github.com/avelazquez/zocalo-backend/pkg/logger"
	"github.com/avelazquez/zocalo-backend/pkg/pagination"
	pkgredis "github.com/avelazquez/zocalo-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSellersService struct{}

func (s stubSellersService) WithTx(tx *gorm.DB) sellers.Service {
	return s
}

func (stubSellersService) Register(ctx context.Context, req sellers.RegisterRequest) (*models.Seller, error) {
	panic("unimplemented")
}

func (stubSellersService) Get(ctx context.Context, id uuid.UUID) (*models.Seller, error) {
	panic("unimplemented")
}

func (stubSellersService) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Seller, error) {
	return &models.Seller{
		ID:             uuid.New(),
		UserID:         userID,
		DisplayName:    "Test Seller",
		Email:          "seller@example.com",
		ApprovalStatus: enums.SellerApprovalApproved,
		CommissionTier: enums.CommissionTierBronze,
	}, nil
}

func (stubSellersService) SetApproval(ctx context.Context, id uuid.UUID, status enums.SellerApprovalStatus, reReview bool) (*models.Seller, error) {
	panic("unimplemented")
}

func (stubSellersService) RecordSale(ctx context.Context, id uuid.UUID, amountCents int64) error {
	panic("unimplemented")
}

type stubProductsService struct{}

func (stubProductsService) Create(ctx context.Context, req productsvc.CreateProductRequest) (*models.Product, error) {
	panic("unimplemented")
}

func (stubProductsService) Update(ctx context.Context, productID, sellerID uuid.UUID, req productsvc.UpdateProductRequest) (*models.Product, error) {
	panic("unimplemented")
}

func (stubProductsService) Get(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	panic("unimplemented")
}

func (stubProductsService) ListBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*productsvc.ProductList, error) {
	return &productsvc.ProductList{}, nil
}

func (stubProductsService) Restock(ctx context.Context, req productsvc.StockChangeRequest) (*models.Product, error) {
	panic("unimplemented")
}

func (stubProductsService) SetStock(ctx context.Context, req productsvc.StockChangeRequest) (*models.Product, error) {
	panic("unimplemented")
}

type stubInventoryService struct{}

func (s stubInventoryService) WithTx(tx *gorm.DB) inventory.Service {
	return s
}

func (stubInventoryService) Decrement(ctx context.Context, req inventory.MovementRequest) error {
	panic("unimplemented")
}

func (stubInventoryService) Restore(ctx context.Context, req inventory.MovementRequest) error {
	panic("unimplemented")
}

func (stubInventoryService) SetStock(ctx context.Context, req inventory.MovementRequest) error {
	panic("unimplemented")
}

func (stubInventoryService) GetStock(ctx context.Context, productID uuid.UUID) (*models.StockLevel, error) {
	panic("unimplemented")
}

func (stubInventoryService) ListMovements(ctx context.Context, productID uuid.UUID, params pagination.Params) ([]models.StockMovement, error) {
	return nil, nil
}

type stubPromotionsService struct{}

func (s stubPromotionsService) WithTx(tx *gorm.DB) promotions.Service {
	return s
}

func (stubPromotionsService) Create(ctx context.Context, req promotions.CreatePromotionRequest) (*models.Promotion, error) {
	panic("unimplemented")
}

func (stubPromotionsService) Update(ctx context.Context, id uuid.UUID, req promotions.UpdatePromotionRequest) (*models.Promotion, error) {
	panic("unimplemented")
}

func (stubPromotionsService) Get(ctx context.Context, id uuid.UUID) (*models.Promotion, error) {
	panic("unimplemented")
}

func (stubPromotionsService) ActiveAt(ctx context.Context, at time.Time) ([]models.Promotion, error) {
	return nil, nil
}

func (stubPromotionsService) CreateCoupon(ctx context.Context, req promotions.CreateCouponRequest) (*models.Coupon, error) {
	panic("unimplemented")
}

func (stubPromotionsService) ConsumeCoupon(ctx context.Context, code string) (*models.Promotion, error) {
	panic("unimplemented")
}

func (stubPromotionsService) RestoreCoupon(ctx context.Context, code string) error {
	panic("unimplemented")
}

type stubCheckoutService struct{}

func (stubCheckoutService) PlaceOrder(ctx context.Context, req checkoutsvc.Request) (*models.Order, error) {
	panic("unimplemented")
}

type stubOrdersService struct{}

func (stubOrdersService) Get(ctx context.Context, orderID uuid.UUID, actor ordersvc.Actor) (*models.Order, error) {
	panic("unimplemented")
}

func (stubOrdersService) GetByNumber(ctx context.Context, orderNumber string, actor ordersvc.Actor) (*models.Order, error) {
	panic("unimplemented")
}

func (stubOrdersService) List(ctx context.Context, buyerUserID uuid.UUID, params pagination.Params, filters ordersvc.OrderFilters) (*ordersvc.OrderList, error) {
	return &ordersvc.OrderList{}, nil
}

func (stubOrdersService) History(ctx context.Context, orderID uuid.UUID, actor ordersvc.Actor) ([]models.OrderStatusEvent, error) {
	panic("unimplemented")
}

func (stubOrdersService) Commission(ctx context.Context, orderID uuid.UUID, actor ordersvc.Actor) (*ordersvc.CommissionBreakdown, error) {
	panic("unimplemented")
}

func (stubOrdersService) Transition(ctx context.Context, input ordersvc.TransitionInput) (*models.Order, error) {
	panic("unimplemented")
}

func (stubOrdersService) MarkPaid(ctx context.Context, orderID uuid.UUID, actor ordersvc.Actor) (*models.Order, error) {
	panic("unimplemented")
}

func (stubOrdersService) Cancel(ctx context.Context, input ordersvc.CancelInput) (*models.Order, error) {
	panic("unimplemented")
}

func (stubOrdersService) Return(ctx context.Context, input ordersvc.ReturnInput) (*models.Order, error) {
	panic("unimplemented")
}

func (stubOrdersService) Delete(ctx context.Context, orderID uuid.UUID, actor ordersvc.Actor) error {
	panic("unimplemented")
}

type stubLedgerService struct{}

func (s stubLedgerService) WithTx(tx *gorm.DB) ledger.Service {
	return s
}

func (stubLedgerService) RecordEarning(ctx context.Context, req ledger.EntryRequest) error {
	panic("unimplemented")
}

func (stubLedgerService) RecordReversal(ctx context.Context, req ledger.EntryRequest) error {
	panic("unimplemented")
}

func (stubLedgerService) PendingPayout(ctx context.Context, sellerID uuid.UUID) (int64, error) {
	return 0, nil
}

func (stubLedgerService) ListEvents(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.PayoutEvent, error) {
	return nil, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		&pkgredis.Client{},
		nil,
		stubSellersService{},
		stubProductsService{},
		stubInventoryService{},
		stubPromotionsService{},
		stubCheckoutService{},
		stubOrdersService{},
		stubLedgerService{},
	)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.ActorRole, sellerID *uuid.UUID) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID:   uuid.New(),
		Role:     role,
		SellerID: sellerID,
		JTI:      uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLiveIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for liveness got %d", resp.Code)
	}
}

func TestProtectedRoutesRejectMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestListOrdersWithBuyerToken(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleBuyer, nil))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for buyer order list got %d", resp.Code)
	}
}

func TestSellerRoutesRequireSellerRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	buyer := httptest.NewRequest(http.MethodGet, "/api/v1/sellers/me", nil)
	buyer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleBuyer, nil))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, buyer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for buyer on seller route got %d", resp.Code)
	}

	sellerID := uuid.New()
	seller := httptest.NewRequest(http.MethodGet, "/api/v1/sellers/me", nil)
	seller.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleSeller, &sellerID))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, seller)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for seller profile got %d", resp.Code)
	}
}

func TestSellerPayoutWithSellerToken(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	sellerID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sellers/me/payout", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleSeller, &sellerID))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for seller payout got %d", resp.Code)
	}
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	sellerID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/orders/"+uuid.NewString()+"/transition", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleSeller, &sellerID))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin transition got %d", resp.Code)
	}
}

func TestIdempotentRouteRequiresKeyHeader(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleBuyer, nil))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without Idempotency-Key got %d", resp.Code)
	}
}
