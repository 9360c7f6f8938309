package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avelazquez/zocalo-backend/pkg/db/models"
	"github.com/avelazquez/zocalo-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their children.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateLineItems(ctx context.Context, items []models.OrderLineItem) error
	CreateStatusEvent(ctx context.Context, event *models.OrderStatusEvent) error
	CreateRefund(ctx context.Context, refund *models.Refund) error
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindOrderByNumber(ctx context.Context, number string) (*models.Order, error)
	ListByBuyer(ctx context.Context, buyerUserID uuid.UUID, params pagination.Params, filters OrderFilters) ([]models.Order, error)
	ListStatusEvents(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusEvent, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error
	UpdateLineItem(ctx context.Context, id uuid.UUID, updates map[string]any) error
	DeleteOrder(ctx context.Context, id uuid.UUID) error
	// NextOrderNumber increments and returns the per-year sequence backing
	// human-readable order numbers.
	NextOrderNumber(ctx context.Context, year int) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) CreateLineItems(ctx context.Context, items []models.OrderLineItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) CreateStatusEvent(ctx context.Context, event *models.OrderStatusEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) CreateRefund(ctx context.Context, refund *models.Refund) error {
	return r.db.WithContext(ctx).Create(refund).Error
}

func (r *repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrderByNumber(ctx context.Context, number string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("order_number = ?", number).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByBuyer(ctx context.Context, buyerUserID uuid.UUID, params pagination.Params, filters OrderFilters) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Where("buyer_user_id = ?", buyerUserID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filters.PaymentStatus)
	}

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

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) ListStatusEvents(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusEvent, error) {
	var events []models.OrderStatusEvent
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repository) UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) UpdateLineItem(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderLineItem{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	// Children carry ON DELETE CASCADE in the schema; sqlite in tests needs
	// the explicit deletes.
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", id).
		Delete(&models.OrderLineItem{}).Error; err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", id).
		Delete(&models.OrderStatusEvent{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Order{}).Error
}

func (r *repository) NextOrderNumber(ctx context.Context, year int) (int64, error) {
	var value int64
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO order_counters (year, value) VALUES (?, 1)
		ON CONFLICT (year) DO UPDATE SET value = order_counters.value + 1
		RETURNING value`, year).
		Scan(&value).Error
	if err != nil {
		return 0, err
	}
	return value, nil
}
