package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avelazquez/zocalo-backend/pkg/db/models"
	apperrors "github.com/avelazquez/zocalo-backend/pkg/errors"
	"github.com/avelazquez/zocalo-backend/pkg/pagination"
)

// EntryRequest describes one payout ledger entry.
type EntryRequest struct {
	SellerID    uuid.UUID
	OrderID     uuid.UUID
	LineItemID  *uuid.UUID
	AmountCents int64
}

// Service owns the append-only seller payout ledger. Earnings post positive
// amounts, reversals negative ones; the pending payout is the running sum.
type Service interface {
	WithTx(tx *gorm.DB) Service
	RecordEarning(ctx context.Context, req EntryRequest) error
	RecordReversal(ctx context.Context, req EntryRequest) error
	PendingPayout(ctx context.Context, sellerID uuid.UUID) (int64, error)
	ListEvents(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.PayoutEvent, error)
}

type service struct {
	repo Repository
}

// NewService builds the ledger service.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

func (s *service) RecordEarning(ctx context.Context, req EntryRequest) error {
	if req.AmountCents <= 0 {
		return apperrors.New(apperrors.CodeValidation, "earning amount must be positive")
	}
	event := &models.PayoutEvent{
		SellerID:    req.SellerID,
		OrderID:     req.OrderID,
		LineItemID:  req.LineItemID,
		Type:        models.PayoutEventEarned,
		AmountCents: req.AmountCents,
	}
	if err := s.repo.CreateEvent(ctx, event); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "recording payout earning")
	}
	return nil
}

func (s *service) RecordReversal(ctx context.Context, req EntryRequest) error {
	if req.AmountCents <= 0 {
		return apperrors.New(apperrors.CodeValidation, "reversal amount must be positive")
	}
	event := &models.PayoutEvent{
		SellerID:    req.SellerID,
		OrderID:     req.OrderID,
		LineItemID:  req.LineItemID,
		Type:        models.PayoutEventReversed,
		AmountCents: -req.AmountCents,
	}
	if err := s.repo.CreateEvent(ctx, event); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "recording payout reversal")
	}
	return nil
}

func (s *service) PendingPayout(ctx context.Context, sellerID uuid.UUID) (int64, error) {
	total, err := s.repo.SumBySeller(ctx, sellerID)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeInternal, err, "summing payout ledger")
	}
	return total, nil
}

func (s *service) ListEvents(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.PayoutEvent, error) {
	events, err := s.repo.ListBySeller(ctx, sellerID, params)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "listing payout events")
	}
	return events, nil
}
