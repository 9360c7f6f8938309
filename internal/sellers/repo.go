package sellers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avelazquez/zocalo-backend/pkg/db/models"
)

// Repository defines persistence operations for seller accounts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, seller *models.Seller) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Seller, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Seller, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	// AddSalesVolume atomically accumulates lifetime sales volume.
	AddSalesVolume(ctx context.Context, id uuid.UUID, amountCents int64) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a sellers repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, seller *models.Seller) error {
	return r.db.WithContext(ctx).Create(seller).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Seller, error) {
	var seller models.Seller
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&seller).Error
	if err != nil {
		return nil, err
	}
	return &seller, nil
}

func (r *repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Seller, error) {
	var seller models.Seller
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&seller).Error
	if err != nil {
		return nil, err
	}
	return &seller, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Seller{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) AddSalesVolume(ctx context.Context, id uuid.UUID, amountCents int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Seller{}).
		Where("id = ?", id).
		UpdateColumn("sales_volume_cents", gorm.Expr("sales_volume_cents + ?", amountCents)).Error
}
