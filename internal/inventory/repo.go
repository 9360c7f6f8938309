package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avelazquez/zocalo-backend/pkg/db/models"
	"github.com/avelazquez/zocalo-backend/pkg/enums"
	"github.com/avelazquez/zocalo-backend/pkg/pagination"
)

// Repository defines persistence operations for stock levels and movements.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindStock(ctx context.Context, productID uuid.UUID) (*models.StockLevel, error)
	CreateStock(ctx context.Context, stock *models.StockLevel) error
	// DecrementStock subtracts qty only when enough stock remains. It reports
	// whether a row was updated; zero rows means insufficient stock.
	DecrementStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error)
	IncrementStock(ctx context.Context, productID uuid.UUID, qty int) error
	SetStock(ctx context.Context, productID uuid.UUID, qty int) error
	CreateMovement(ctx context.Context, movement *models.StockMovement) error
	ListMovements(ctx context.Context, productID uuid.UUID, params pagination.Params) ([]models.StockMovement, error)
	UpdateProductStatus(ctx context.Context, productID uuid.UUID, status enums.ProductStatus) error
	FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindStock(ctx context.Context, productID uuid.UUID) (*models.StockLevel, error) {
	var stock models.StockLevel
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		First(&stock).Error
	if err != nil {
		return nil, err
	}
	return &stock, nil
}

func (r *repository) CreateStock(ctx context.Context, stock *models.StockLevel) error {
	return r.db.WithContext(ctx).Create(stock).Error
}

func (r *repository) DecrementStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.StockLevel{}).
		Where("product_id = ? AND available_qty >= ?", productID, qty).
		UpdateColumn("available_qty", gorm.Expr("available_qty - ?", qty))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) IncrementStock(ctx context.Context, productID uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.StockLevel{}).
		Where("product_id = ?", productID).
		UpdateColumn("available_qty", gorm.Expr("available_qty + ?", qty)).Error
}

func (r *repository) SetStock(ctx context.Context, productID uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.StockLevel{}).
		Where("product_id = ?", productID).
		UpdateColumn("available_qty", qty).Error
}

func (r *repository) CreateMovement(ctx context.Context, movement *models.StockMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

func (r *repository) ListMovements(ctx context.Context, productID uuid.UUID, params pagination.Params) ([]models.StockMovement, error) {
	query := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
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

	var movements []models.StockMovement
	if err := query.Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

func (r *repository) UpdateProductStatus(ctx context.Context, productID uuid.UUID, status enums.ProductStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("status", status).Error
}

func (r *repository) FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("id = ?", productID).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}
