package promotions

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/avelazquez/zocalo-backend/pkg/db/models"
	"github.com/avelazquez/zocalo-backend/pkg/enums"
	apperrors "github.com/avelazquez/zocalo-backend/pkg/errors"
)

// CreatePromotionRequest carries the definition of a new discount rule.
type CreatePromotionRequest struct {
	SellerID    *uuid.UUID
	Name        string
	Kind        enums.PromotionKind
	Scope       enums.PromotionScope
	Percent          *decimal.Decimal
	AmountCents      *int64
	MinPurchaseCents int64
	MaxDiscountCents *int64
	ProductID        *uuid.UUID
	Categories       []string
	ValidFrom        time.Time
	ValidUntil       time.Time
}

// UpdatePromotionRequest holds the mutable promotion fields.
type UpdatePromotionRequest struct {
	Name       *string
	IsActive   *bool
	ValidUntil *time.Time
}

// CreateCouponRequest binds a code to an existing promotion.
type CreateCouponRequest struct {
	Code        string
	PromotionID uuid.UUID
	MaxUsage    int
}

// Service owns the promotion catalog. Definitions are validated hard at
// creation; application-time checks are silent and live in the validator.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Create(ctx context.Context, req CreatePromotionRequest) (*models.Promotion, error)
	Update(ctx context.Context, id uuid.UUID, req UpdatePromotionRequest) (*models.Promotion, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Promotion, error)
	ActiveAt(ctx context.Context, at time.Time) ([]models.Promotion, error)
	CreateCoupon(ctx context.Context, req CreateCouponRequest) (*models.Coupon, error)
	// ConsumeCoupon atomically burns one usage and returns the backing
	// promotion. Exhausted or unknown codes return a conflict.
	ConsumeCoupon(ctx context.Context, code string) (*models.Promotion, error)
	RestoreCoupon(ctx context.Context, code string) error
}

type service struct {
	repo Repository
}

// NewService builds the promotions service.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

func (s *service) Create(ctx context.Context, req CreatePromotionRequest) (*models.Promotion, error) {
	problems := map[string]string{}

	if strings.TrimSpace(req.Name) == "" {
		problems["name"] = "name is required"
	}
	if !req.Kind.IsValid() {
		problems["kind"] = "kind must be percentage or fixed"
	}
	if !req.Scope.IsValid() {
		problems["scope"] = "scope must be product, category or platform"
	}
	if !req.ValidFrom.Before(req.ValidUntil) {
		problems["valid_until"] = "validity window must start before it ends"
	}

	if req.MinPurchaseCents < 0 {
		problems["min_purchase_cents"] = "min_purchase_cents must not be negative"
	}

	switch req.Kind {
	case enums.PromotionKindPercentage:
		if req.Percent == nil {
			problems["percent"] = "percent is required for percentage promotions"
		} else if !req.Percent.IsPositive() || req.Percent.GreaterThan(decimal.NewFromInt(100)) {
			problems["percent"] = "percent must be greater than 0 and at most 100"
		}
		if req.AmountCents != nil {
			problems["amount_cents"] = "amount_cents is not allowed for percentage promotions"
		}
		if req.MaxDiscountCents != nil && *req.MaxDiscountCents <= 0 {
			problems["max_discount_cents"] = "max_discount_cents must be positive"
		}
	case enums.PromotionKindFixed:
		if req.AmountCents == nil || *req.AmountCents <= 0 {
			problems["amount_cents"] = "amount_cents must be positive for fixed promotions"
		}
		if req.Percent != nil {
			problems["percent"] = "percent is not allowed for fixed promotions"
		}
		if req.MaxDiscountCents != nil {
			problems["max_discount_cents"] = "max_discount_cents only applies to percentage promotions"
		}
	}

	switch req.Scope {
	case enums.PromotionScopeProduct:
		if req.ProductID == nil {
			problems["product_id"] = "product_id is required for product scope"
		}
	case enums.PromotionScopeCategory:
		if len(req.Categories) == 0 {
			problems["categories"] = "at least one category is required for category scope"
		}
	}

	// A fixed discount larger than the product price would price the line
	// negative, so it is rejected up front rather than clamped later.
	if req.Kind == enums.PromotionKindFixed && req.Scope == enums.PromotionScopeProduct &&
		req.ProductID != nil && req.AmountCents != nil && *req.AmountCents > 0 {
		product, err := s.repo.FindProduct(ctx, *req.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				problems["product_id"] = "product not found"
			} else {
				return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading product for promotion")
			}
		} else if *req.AmountCents > product.PriceCents {
			problems["amount_cents"] = "fixed discount must not exceed the product price"
		}
	}

	if len(problems) > 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "invalid promotion definition").
			WithDetails(problems)
	}

	promo := &models.Promotion{
		SellerID:         req.SellerID,
		Name:             strings.TrimSpace(req.Name),
		Kind:             req.Kind,
		Scope:            req.Scope,
		Percent:          req.Percent,
		AmountCents:      req.AmountCents,
		MinPurchaseCents: req.MinPurchaseCents,
		MaxDiscountCents: req.MaxDiscountCents,
		ProductID:        req.ProductID,
		Categories:       pq.StringArray(req.Categories),
		ValidFrom:        req.ValidFrom,
		ValidUntil:       req.ValidUntil,
		IsActive:         true,
	}
	if err := s.repo.CreatePromotion(ctx, promo); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "creating promotion")
	}
	return promo, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req UpdatePromotionRequest) (*models.Promotion, error) {
	promo, err := s.repo.FindPromotion(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "promotion not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading promotion")
	}

	// Expired promotions are frozen, including deactivation.
	if !promo.ValidUntil.After(time.Now().UTC()) {
		return nil, apperrors.New(apperrors.CodeStateConflict, "promotion already expired")
	}

	updates := map[string]any{}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, apperrors.New(apperrors.CodeValidation, "name must not be empty")
		}
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.ValidUntil != nil {
		if !promo.ValidFrom.Before(*req.ValidUntil) {
			return nil, apperrors.New(apperrors.CodeValidation, "validity window must start before it ends")
		}
		updates["valid_until"] = *req.ValidUntil
	}
	if len(updates) == 0 {
		return promo, nil
	}

	if err := s.repo.UpdatePromotion(ctx, id, updates); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "updating promotion")
	}
	return s.Get(ctx, id)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Promotion, error) {
	promo, err := s.repo.FindPromotion(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "promotion not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading promotion")
	}
	return promo, nil
}

func (s *service) ActiveAt(ctx context.Context, at time.Time) ([]models.Promotion, error) {
	promos, err := s.repo.FindActiveAt(ctx, at)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "listing active promotions")
	}
	return promos, nil
}

func (s *service) CreateCoupon(ctx context.Context, req CreateCouponRequest) (*models.Coupon, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "code is required")
	}
	if req.MaxUsage <= 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "max_usage must be positive")
	}
	if _, err := s.repo.FindPromotion(ctx, req.PromotionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "promotion not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading promotion")
	}

	coupon := &models.Coupon{
		Code:        code,
		PromotionID: req.PromotionID,
		MaxUsage:    req.MaxUsage,
	}
	if err := s.repo.CreateCoupon(ctx, coupon); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "creating coupon")
	}
	return coupon, nil
}

func (s *service) ConsumeCoupon(ctx context.Context, code string) (*models.Promotion, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	coupon, err := s.repo.FindCouponByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "coupon not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading coupon")
	}

	ok, err := s.repo.ConsumeCoupon(ctx, code)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "consuming coupon")
	}
	if !ok {
		return nil, apperrors.New(apperrors.CodeConflict, "coupon usage exhausted").
			WithDetails(map[string]any{"code": code})
	}

	promo, err := s.repo.FindPromotion(ctx, coupon.PromotionID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading coupon promotion")
	}
	return promo, nil
}

func (s *service) RestoreCoupon(ctx context.Context, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if err := s.repo.RestoreCoupon(ctx, code); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "restoring coupon")
	}
	return nil
}
