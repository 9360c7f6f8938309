package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avelazquez/zocalo-backend/internal/inventory"
	"github.com/avelazquez/zocalo-backend/internal/ledger"
	"github.com/avelazquez/zocalo-backend/internal/pricing"
	"github.com/avelazquez/zocalo-backend/internal/promotions"
	"github.com/avelazquez/zocalo-backend/internal/sellers"
	"github.com/avelazquez/zocalo-backend/pkg/db/models"
	"github.com/avelazquez/zocalo-backend/pkg/enums"
	apperrors "github.com/avelazquez/zocalo-backend/pkg/errors"
	"github.com/avelazquez/zocalo-backend/pkg/metrics"
	"github.com/avelazquez/zocalo-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns the order lifecycle after checkout: status transitions,
// payment, cancellation, returns with commission reversal, and deletion.
type Service interface {
	Get(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	GetByNumber(ctx context.Context, orderNumber string, actor Actor) (*models.Order, error)
	List(ctx context.Context, buyerUserID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error)
	History(ctx context.Context, orderID uuid.UUID, actor Actor) ([]models.OrderStatusEvent, error)
	Commission(ctx context.Context, orderID uuid.UUID, actor Actor) (*CommissionBreakdown, error)
	Transition(ctx context.Context, input TransitionInput) (*models.Order, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	Cancel(ctx context.Context, input CancelInput) (*models.Order, error)
	Return(ctx context.Context, input ReturnInput) (*models.Order, error)
	Delete(ctx context.Context, orderID uuid.UUID, actor Actor) error
}

type service struct {
	repo       Repository
	tx         txRunner
	inventory  inventory.Service
	ledger     ledger.Service
	sellers    sellers.Service
	promotions promotions.Service
	metrics    *metrics.OrderMetrics
}

// NewService builds an orders service with the required dependencies.
func NewService(
	repo Repository,
	tx txRunner,
	inv inventory.Service,
	led ledger.Service,
	sel sellers.Service,
	promos promotions.Service,
	m *metrics.OrderMetrics,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if inv == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if led == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if sel == nil {
		return nil, fmt.Errorf("sellers service required")
	}
	if promos == nil {
		return nil, fmt.Errorf("promotions service required")
	}
	return &service{
		repo:       repo,
		tx:         tx,
		inventory:  inv,
		ledger:     led,
		sellers:    sel,
		promotions: promos,
		metrics:    m,
	}, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	order, err := s.loadOrder(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorizeRead(order, actor); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) GetByNumber(ctx context.Context, orderNumber string, actor Actor) (*models.Order, error) {
	order, err := s.repo.FindOrderByNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "order not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading order")
	}
	if err := authorizeRead(order, actor); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) List(ctx context.Context, buyerUserID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListByBuyer(ctx, buyerUserID, params, filters)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "listing orders")
	}

	list := &OrderList{Orders: rows}
	if len(rows) > limit {
		list.Orders = rows[:limit]
		last := list.Orders[limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return list, nil
}

func (s *service) History(ctx context.Context, orderID uuid.UUID, actor Actor) ([]models.OrderStatusEvent, error) {
	if _, err := s.Get(ctx, orderID, actor); err != nil {
		return nil, err
	}
	events, err := s.repo.ListStatusEvents(ctx, orderID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "listing status events")
	}
	return events, nil
}

func (s *service) Commission(ctx context.Context, orderID uuid.UUID, actor Actor) (*CommissionBreakdown, error) {
	order, err := s.Get(ctx, orderID, actor)
	if err != nil {
		return nil, err
	}

	breakdown := &CommissionBreakdown{
		OrderID:            order.ID,
		SubtotalCents:      order.SubtotalCents,
		DiscountCents:      order.DiscountCents,
		CommissionCents:    order.CommissionCents,
		SellerRevenueCents: order.SellerRevenueCents,
	}
	for _, item := range order.Items {
		breakdown.Lines = append(breakdown.Lines, LineCommission{
			LineItemID:         item.ID,
			SellerID:           item.SellerID,
			CommissionTier:     item.CommissionTier,
			CommissionRate:     item.CommissionRate,
			NetCents:           item.SubtotalCents - item.DiscountCents,
			CommissionCents:    item.CommissionCents,
			SellerRevenueCents: item.SellerRevenueCents,
		})
	}
	return breakdown, nil
}

func (s *service) Transition(ctx context.Context, input TransitionInput) (*models.Order, error) {
	switch input.Target {
	case enums.OrderStatusConfirmed, enums.OrderStatusShipped, enums.OrderStatusDelivered:
	case enums.OrderStatusCancelled, enums.OrderStatusReturned:
		return nil, apperrors.New(apperrors.CodeValidation, "use the cancel or return operation for this status")
	default:
		return nil, apperrors.New(apperrors.CodeValidation, "unknown target status")
	}
	if input.Actor.Role == enums.ActorRoleBuyer {
		return nil, apperrors.New(apperrors.CodeForbidden, "buyers cannot drive fulfillment")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		// Sellers may only move orders that carry their own line items.
		if err := authorizeRead(order, input.Actor); err != nil {
			return err
		}
		if !CanTransition(order.Status, input.Target) {
			return transitionConflict(order.Status, input.Target)
		}

		updates := map[string]any{"status": input.Target}
		now := time.Now().UTC()
		switch input.Target {
		case enums.OrderStatusShipped:
			updates["shipped_at"] = now
		case enums.OrderStatusDelivered:
			updates["delivered_at"] = now
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "updating order status")
		}
		if err := s.recordEvent(ctx, repo, order, input.Target, input.Actor, input.Note); err != nil {
			return err
		}

		s.metrics.IncTransition(order.Status.String(), input.Target.String())
		updated, err = s.loadOrder(ctx, repo, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) MarkPaid(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.PaymentStatus != enums.PaymentStatusUnpaid {
			return apperrors.New(apperrors.CodeStateConflict, "order is not awaiting payment").
				WithDetails(map[string]any{"payment_status": order.PaymentStatus})
		}
		if order.Status.IsTerminal() {
			return apperrors.New(apperrors.CodeStateConflict, "order is closed")
		}

		updates := map[string]any{
			"payment_status": enums.PaymentStatusPaid,
			"paid_at":        time.Now().UTC(),
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "marking order paid")
		}

		// Payment makes seller earnings payable and counts toward the
		// lifetime sales volume that drives tiers.
		led := s.ledger.WithTx(tx)
		sel := s.sellers.WithTx(tx)
		for _, item := range order.Items {
			lineItemID := item.ID
			if item.SellerRevenueCents > 0 {
				if err := led.RecordEarning(ctx, ledger.EntryRequest{
					SellerID:    item.SellerID,
					OrderID:     order.ID,
					LineItemID:  &lineItemID,
					AmountCents: item.SellerRevenueCents,
				}); err != nil {
					return err
				}
			}
			net := item.SubtotalCents - item.DiscountCents
			if net > 0 {
				if err := sel.RecordSale(ctx, item.SellerID, net); err != nil {
					return err
				}
			}
		}

		updated, err = s.loadOrder(ctx, repo, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.Order, error) {
	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if err := authorizeMutation(order, input.Actor); err != nil {
			return err
		}
		if !CanTransition(order.Status, enums.OrderStatusCancelled) {
			return transitionConflict(order.Status, enums.OrderStatusCancelled)
		}

		inv := s.inventory.WithTx(tx)
		for _, item := range order.Items {
			orderID := order.ID
			actorID := input.Actor.UserID
			if err := inv.Restore(ctx, inventory.MovementRequest{
				ProductID:   item.ProductID,
				Qty:         item.Qty,
				Reason:      enums.StockReasonOrderCancelled,
				OrderID:     &orderID,
				ActorUserID: &actorID,
			}); err != nil {
				return err
			}
		}

		// A consumed coupon usage flows back with the stock.
		if order.CouponCode != nil {
			if err := s.promotions.WithTx(tx).RestoreCoupon(ctx, *order.CouponCode); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		updates := map[string]any{
			"status":       enums.OrderStatusCancelled,
			"cancelled_at": now,
		}

		// A paid order is refunded in full on cancellation, commission
		// included.
		if order.PaymentStatus == enums.PaymentStatusPaid {
			led := s.ledger.WithTx(tx)
			for _, item := range order.Items {
				lineItemID := item.ID
				if item.SellerRevenueCents > 0 {
					if err := led.RecordReversal(ctx, ledger.EntryRequest{
						SellerID:    item.SellerID,
						OrderID:     order.ID,
						LineItemID:  &lineItemID,
						AmountCents: item.SellerRevenueCents,
					}); err != nil {
						return err
					}
				}
			}
			actorID := input.Actor.UserID
			if err := repo.CreateRefund(ctx, &models.Refund{
				OrderID:                 order.ID,
				AmountCents:             order.TotalCents,
				CommissionReversedCents: order.CommissionCents,
				Reason:                  input.Reason,
				ActorUserID:             &actorID,
			}); err != nil {
				return apperrors.Wrap(apperrors.CodeInternal, err, "recording refund")
			}
			updates["payment_status"] = enums.PaymentStatusRefunded
			updates["refund_status"] = enums.RefundStatusFull
			updates["refunded_cents"] = order.TotalCents
		}

		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "cancelling order")
		}
		if err := s.recordEvent(ctx, repo, order, enums.OrderStatusCancelled, input.Actor, noteOrNil(input.Reason)); err != nil {
			return err
		}

		s.metrics.IncTransition(order.Status.String(), enums.OrderStatusCancelled.String())
		updated, err = s.loadOrder(ctx, repo, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Return(ctx context.Context, input ReturnInput) (*models.Order, error) {
	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if err := authorizeMutation(order, input.Actor); err != nil {
			return err
		}
		if order.Status != enums.OrderStatusDelivered {
			return transitionConflict(order.Status, enums.OrderStatusReturned)
		}
		if order.PaymentStatus != enums.PaymentStatusPaid {
			return apperrors.New(apperrors.CodeStateConflict, "only paid orders can be returned")
		}

		var refundedCents int64
		if input.LineItemID != nil {
			refundedCents, err = s.returnLine(ctx, tx, repo, order, input)
		} else {
			refundedCents, err = s.returnAll(ctx, tx, repo, order, input)
		}
		if err != nil {
			return err
		}

		// Reload items to inspect remaining quantities.
		order, err = s.loadOrder(ctx, repo, order.ID)
		if err != nil {
			return err
		}
		fullyReturned := true
		for _, item := range order.Items {
			if item.RefundedQty < item.Qty {
				fullyReturned = false
				break
			}
		}

		updates := map[string]any{
			"refunded_cents": order.RefundedCents + refundedCents,
		}
		if fullyReturned {
			now := time.Now().UTC()
			updates["status"] = enums.OrderStatusReturned
			updates["returned_at"] = now
			updates["payment_status"] = enums.PaymentStatusRefunded
			updates["refund_status"] = enums.RefundStatusFull
			// Shipping is only returned when the whole order comes back.
			updates["refunded_cents"] = order.RefundedCents + refundedCents + order.ShippingFeeCents
		} else {
			updates["refund_status"] = enums.RefundStatusPartial
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "updating returned order")
		}
		if fullyReturned {
			if err := s.recordEvent(ctx, repo, order, enums.OrderStatusReturned, input.Actor, noteOrNil(input.Reason)); err != nil {
				return err
			}
			s.metrics.IncTransition(order.Status.String(), enums.OrderStatusReturned.String())
			s.metrics.IncReturn()
		}

		updated, err = s.loadOrder(ctx, repo, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// returnLine refunds qty units of one line. Refund money and commission
// reversal use cumulative floored shares so repeated partial returns sum
// exactly to the line totals.
func (s *service) returnLine(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, input ReturnInput) (int64, error) {
	var target *models.OrderLineItem
	for i := range order.Items {
		if order.Items[i].ID == *input.LineItemID {
			target = &order.Items[i]
			break
		}
	}
	if target == nil {
		return 0, apperrors.New(apperrors.CodeNotFound, "line item not found")
	}
	if input.Qty <= 0 {
		return 0, apperrors.New(apperrors.CodeValidation, "return quantity must be positive")
	}
	remaining := target.Qty - target.RefundedQty
	if input.Qty > remaining {
		return 0, apperrors.New(apperrors.CodeValidation, "return quantity exceeds remaining units").
			WithDetails(map[string]any{"remaining_qty": remaining})
	}

	return s.applyLineReturn(ctx, tx, repo, order, target, input.Qty, input)
}

func (s *service) returnAll(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, input ReturnInput) (int64, error) {
	var total int64
	for i := range order.Items {
		item := &order.Items[i]
		remaining := item.Qty - item.RefundedQty
		if remaining == 0 {
			continue
		}
		refunded, err := s.applyLineReturn(ctx, tx, repo, order, item, remaining, input)
		if err != nil {
			return 0, err
		}
		total += refunded
	}
	return total, nil
}

func (s *service) applyLineReturn(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, item *models.OrderLineItem, qty int, input ReturnInput) (int64, error) {
	net := item.SubtotalCents - item.DiscountCents

	before := cumulativeShare(net, item.RefundedQty, item.Qty)
	after := cumulativeShare(net, item.RefundedQty+qty, item.Qty)
	refundNet := after - before

	commissionBefore := pricing.ReverseCommission(item.CommissionCents, net, before)
	commissionAfter := pricing.ReverseCommission(item.CommissionCents, net, after)
	commissionReversed := commissionAfter - commissionBefore
	revenueReversed := refundNet - commissionReversed

	orderID := order.ID
	actorID := input.Actor.UserID

	inv := s.inventory.WithTx(tx)
	if err := inv.Restore(ctx, inventory.MovementRequest{
		ProductID:   item.ProductID,
		Qty:         qty,
		Reason:      enums.StockReasonOrderReturned,
		OrderID:     &orderID,
		ActorUserID: &actorID,
	}); err != nil {
		return 0, err
	}

	if revenueReversed > 0 {
		lineItemID := item.ID
		if err := s.ledger.WithTx(tx).RecordReversal(ctx, ledger.EntryRequest{
			SellerID:    item.SellerID,
			OrderID:     order.ID,
			LineItemID:  &lineItemID,
			AmountCents: revenueReversed,
		}); err != nil {
			return 0, err
		}
	}

	lineItemID := item.ID
	if err := repo.CreateRefund(ctx, &models.Refund{
		OrderID:                 order.ID,
		LineItemID:              &lineItemID,
		Qty:                     qty,
		AmountCents:             refundNet,
		CommissionReversedCents: commissionReversed,
		Reason:                  input.Reason,
		ActorUserID:             &actorID,
	}); err != nil {
		return 0, apperrors.Wrap(apperrors.CodeInternal, err, "recording refund")
	}

	if err := repo.UpdateLineItem(ctx, item.ID, map[string]any{
		"refunded_qty": item.RefundedQty + qty,
	}); err != nil {
		return 0, apperrors.Wrap(apperrors.CodeInternal, err, "updating line refund state")
	}
	return refundNet, nil
}

// cumulativeShare is the floored money share for the first refunded of qty
// units, with the remainder absorbed by the final unit.
func cumulativeShare(totalCents int64, refunded, qty int) int64 {
	if qty <= 0 || refunded <= 0 {
		return 0
	}
	if refunded >= qty {
		return totalCents
	}
	return totalCents * int64(refunded) / int64(qty)
}

func (s *service) Delete(ctx context.Context, orderID uuid.UUID, actor Actor) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if err := authorizeMutation(order, actor); err != nil {
			return err
		}
		if order.Status != enums.OrderStatusPending || order.PaymentStatus != enums.PaymentStatusUnpaid {
			return apperrors.New(apperrors.CodeStateConflict, "only pending unpaid orders can be deleted").
				WithDetails(map[string]any{
					"status":         order.Status,
					"payment_status": order.PaymentStatus,
				})
		}

		inv := s.inventory.WithTx(tx)
		for _, item := range order.Items {
			oid := order.ID
			actorID := actor.UserID
			if err := inv.Restore(ctx, inventory.MovementRequest{
				ProductID:   item.ProductID,
				Qty:         item.Qty,
				Reason:      enums.StockReasonOrderCancelled,
				OrderID:     &oid,
				ActorUserID: &actorID,
			}); err != nil {
				return err
			}
		}
		if order.CouponCode != nil {
			if err := s.promotions.WithTx(tx).RestoreCoupon(ctx, *order.CouponCode); err != nil {
				return err
			}
		}
		if err := repo.DeleteOrder(ctx, order.ID); err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "deleting order")
		}
		return nil
	})
}

func (s *service) loadOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "order not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading order")
	}
	return order, nil
}

func (s *service) recordEvent(ctx context.Context, repo Repository, order *models.Order, to enums.OrderStatus, actor Actor, note *string) error {
	actorID := actor.UserID
	event := &models.OrderStatusEvent{
		OrderID:     order.ID,
		FromStatus:  order.Status,
		ToStatus:    to,
		ActorUserID: &actorID,
		ActorRole:   actor.Role,
		Note:        note,
	}
	if err := repo.CreateStatusEvent(ctx, event); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "recording status event")
	}
	return nil
}

func authorizeRead(order *models.Order, actor Actor) error {
	if actor.Role == enums.ActorRoleAdmin {
		return nil
	}
	if actor.Role == enums.ActorRoleBuyer && order.BuyerUserID == actor.UserID {
		return nil
	}
	if actor.Role == enums.ActorRoleSeller && actor.SellerID != nil {
		for _, item := range order.Items {
			if item.SellerID == *actor.SellerID {
				return nil
			}
		}
	}
	return apperrors.New(apperrors.CodeForbidden, "order does not belong to actor")
}

func authorizeMutation(order *models.Order, actor Actor) error {
	if actor.Role == enums.ActorRoleAdmin {
		return nil
	}
	if actor.Role == enums.ActorRoleBuyer && order.BuyerUserID == actor.UserID {
		return nil
	}
	return apperrors.New(apperrors.CodeForbidden, "order does not belong to actor")
}

func transitionConflict(from, to enums.OrderStatus) error {
	return apperrors.New(apperrors.CodeStateConflict, "transition not allowed").
		WithDetails(map[string]any{
			"current_status": from,
			"target_status":  to,
			"allowed":        AllowedTransitions(from),
		})
}

func noteOrNil(reason string) *string {
	if reason == "" {
		return nil
	}
	return &reason
}
