package promotions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avelazquez/zocalo-backend/pkg/db/models"
)

// Repository defines persistence operations for promotions and coupons.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreatePromotion(ctx context.Context, promo *models.Promotion) error
	UpdatePromotion(ctx context.Context, id uuid.UUID, updates map[string]any) error
	FindPromotion(ctx context.Context, id uuid.UUID) (*models.Promotion, error)
	// FindActiveAt returns active promotions whose validity window contains at.
	// Coupon-backed promotions are excluded; they enter pricing only through
	// their code. Scope matching happens in Go so the query stays portable.
	FindActiveAt(ctx context.Context, at time.Time) ([]models.Promotion, error)
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	CreateCoupon(ctx context.Context, coupon *models.Coupon) error
	FindCouponByCode(ctx context.Context, code string) (*models.Coupon, error)
	// ConsumeCoupon increments used_count only while usage remains. It reports
	// whether a row was updated; zero rows means the coupon is exhausted.
	ConsumeCoupon(ctx context.Context, code string) (bool, error)
	// RestoreCoupon decrements used_count, guarded so it never goes negative.
	RestoreCoupon(ctx context.Context, code string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a promotions repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreatePromotion(ctx context.Context, promo *models.Promotion) error {
	return r.db.WithContext(ctx).Create(promo).Error
}

func (r *repository) UpdatePromotion(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Promotion{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) FindPromotion(ctx context.Context, id uuid.UUID) (*models.Promotion, error) {
	var promo models.Promotion
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&promo).Error
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

func (r *repository) FindActiveAt(ctx context.Context, at time.Time) ([]models.Promotion, error) {
	var promos []models.Promotion
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND valid_from <= ? AND valid_until > ?", true, at, at).
		Where("id NOT IN (?)", r.db.Model(&models.Coupon{}).Select("promotion_id")).
		Order("valid_from ASC, id ASC").
		Find(&promos).Error
	if err != nil {
		return nil, err
	}
	return promos, nil
}

func (r *repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) CreateCoupon(ctx context.Context, coupon *models.Coupon) error {
	return r.db.WithContext(ctx).Create(coupon).Error
}

func (r *repository) FindCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *repository) ConsumeCoupon(ctx context.Context, code string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("code = ? AND used_count < max_usage", code).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) RestoreCoupon(ctx context.Context, code string) error {
	return r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("code = ? AND used_count > 0", code).
		UpdateColumn("used_count", gorm.Expr("used_count - 1")).Error
}
