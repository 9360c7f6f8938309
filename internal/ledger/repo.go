package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avelazquez/zocalo-backend/pkg/db/models"
	"github.com/avelazquez/zocalo-backend/pkg/pagination"
)

// Repository defines persistence operations for the payout ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateEvent(ctx context.Context, event *models.PayoutEvent) error
	SumBySeller(ctx context.Context, sellerID uuid.UUID) (int64, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.PayoutEvent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a ledger repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateEvent(ctx context.Context, event *models.PayoutEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) SumBySeller(ctx context.Context, sellerID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.PayoutEvent{}).
		Where("seller_id = ?", sellerID).
		Select("COALESCE(SUM(amount_cents), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *repository) ListBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.PayoutEvent, error) {
	query := r.db.WithContext(ctx).
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

	var events []models.PayoutEvent
	if err := query.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
