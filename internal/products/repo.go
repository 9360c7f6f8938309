package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avelazquez/zocalo-backend/pkg/db/models"
	"github.com/avelazquez/zocalo-backend/pkg/pagination"
)

// Repository defines persistence operations for the product catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, product *models.Product) error
	CreateStockLevel(ctx context.Context, stock *models.StockLevel) error
	Find(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.Product, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	FindSeller(ctx context.Context, id uuid.UUID) (*models.Seller, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a products repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *repository) CreateStockLevel(ctx context.Context, stock *models.StockLevel) error {
	return r.db.WithContext(ctx).Create(stock).Error
}

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Stock").
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) ListBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.Product, error) {
	query := r.db.WithContext(ctx).
		Preload("Stock").
		Where("seller_id = ?", sellerID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) FindSeller(ctx context.Context, id uuid.UUID) (*models.Seller, error) {
	var seller models.Seller
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&seller).Error
	if err != nil {
		return nil, err
	}
	return &seller, nil
}
