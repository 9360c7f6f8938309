package checkout

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avelazquez/zocalo-backend/pkg/db/models"
)

// Repository reads the catalog state checkout prices against.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	FindSellers(ctx context.Context, ids []uuid.UUID) ([]models.Seller, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a checkout repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) FindSellers(ctx context.Context, ids []uuid.UUID) ([]models.Seller, error) {
	var sellers []models.Seller
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&sellers).Error
	if err != nil {
		return nil, err
	}
	return sellers, nil
}
