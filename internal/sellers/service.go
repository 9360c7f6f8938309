package sellers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avelazquez/zocalo-backend/internal/pricing"
	"github.com/avelazquez/zocalo-backend/pkg/db"
	"github.com/avelazquez/zocalo-backend/pkg/db/models"
	"github.com/avelazquez/zocalo-backend/pkg/enums"
	apperrors "github.com/avelazquez/zocalo-backend/pkg/errors"
)

// RegisterRequest creates a seller account awaiting admin approval.
type RegisterRequest struct {
	UserID      uuid.UUID
	DisplayName string
	Email       string
}

// Service owns the seller lifecycle: registration, admin approval and the
// commission tier snapshot maintained from lifetime sales volume.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Register(ctx context.Context, req RegisterRequest) (*models.Seller, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Seller, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Seller, error)
	// SetApproval decides a pending seller. A decided seller can only be
	// moved again when the admin explicitly flags a re-review.
	SetApproval(ctx context.Context, id uuid.UUID, status enums.SellerApprovalStatus, reReview bool) (*models.Seller, error)
	// RecordSale accumulates sales volume and refreshes the tier snapshot.
	// Tier upgrades apply to future orders only.
	RecordSale(ctx context.Context, id uuid.UUID, amountCents int64) error
}

type service struct {
	repo Repository
}

// NewService builds the sellers service.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*models.Seller, error) {
	if strings.TrimSpace(req.DisplayName) == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "display_name is required")
	}
	if strings.TrimSpace(req.Email) == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "email is required")
	}

	seller := &models.Seller{
		UserID:         req.UserID,
		DisplayName:    strings.TrimSpace(req.DisplayName),
		Email:          strings.TrimSpace(req.Email),
		ApprovalStatus: enums.SellerApprovalPending,
		CommissionTier: enums.CommissionTierBronze,
	}
	if err := s.repo.Create(ctx, seller); err != nil {
		if db.IsUniqueViolation(err, "user_id") {
			return nil, apperrors.New(apperrors.CodeConflict, "seller account already exists")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "creating seller")
	}
	return seller, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Seller, error) {
	seller, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "seller not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading seller")
	}
	return seller, nil
}

func (s *service) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Seller, error) {
	seller, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "seller not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading seller")
	}
	return seller, nil
}

func (s *service) SetApproval(ctx context.Context, id uuid.UUID, status enums.SellerApprovalStatus, reReview bool) (*models.Seller, error) {
	if status != enums.SellerApprovalApproved && status != enums.SellerApprovalRejected {
		return nil, apperrors.New(apperrors.CodeValidation, "status must be approved or rejected")
	}

	seller, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if seller.ApprovalStatus != enums.SellerApprovalPending && !reReview {
		return nil, apperrors.New(apperrors.CodeStateConflict, "approval already decided; flag a re-review to change it").
			WithDetails(map[string]any{"current_status": seller.ApprovalStatus})
	}
	if seller.ApprovalStatus == status {
		return seller, nil
	}

	updates := map[string]any{"approval_status": status}
	switch status {
	case enums.SellerApprovalApproved:
		updates["approved_at"] = time.Now().UTC()
	case enums.SellerApprovalRejected:
		updates["approved_at"] = nil
	}
	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "updating seller approval")
	}
	return s.Get(ctx, id)
}

func (s *service) RecordSale(ctx context.Context, id uuid.UUID, amountCents int64) error {
	if amountCents <= 0 {
		return apperrors.New(apperrors.CodeValidation, "sale amount must be positive")
	}

	if err := s.repo.AddSalesVolume(ctx, id, amountCents); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "accumulating sales volume")
	}

	seller, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	tier := pricing.TierFor(seller.SalesVolumeCents)
	if tier != seller.CommissionTier {
		if err := s.repo.Update(ctx, id, map[string]any{"commission_tier": tier}); err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "updating commission tier")
		}
	}
	return nil
}
