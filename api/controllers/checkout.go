package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/avelazquez/zocalo-backend/api/responses"
	"github.com/avelazquez/zocalo-backend/api/validators"
	checkoutsvc "github.com/avelazquez/zocalo-backend/internal/checkout"
	"github.com/avelazquez/zocalo-backend/pkg/db/models"
	"github.com/avelazquez/zocalo-backend/pkg/enums"
	pkgerrors "github.com/avelazquez/zocalo-backend/pkg/errors"
	"github.com/avelazquez/zocalo-backend/pkg/logger"
	"github.com/avelazquez/zocalo-backend/pkg/types"
)

// Checkout prices and places a new order for the authenticated buyer.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines := make([]checkoutsvc.LineRequest, 0, len(payload.Lines))
		for _, line := range payload.Lines {
			lines = append(lines, checkoutsvc.LineRequest{
				ProductID: line.ProductID,
				Qty:       line.Qty,
			})
		}

		order, err := svc.PlaceOrder(r.Context(), checkoutsvc.Request{
			BuyerUserID:   actor.UserID,
			PaymentMethod: enums.PaymentMethod(payload.PaymentMethod),
			Customer:      payload.Customer,
			CouponCode:    payload.CouponCode,
			Lines:         lines,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order))
	}
}

type checkoutRequest struct {
	PaymentMethod string              `json:"payment_method" validate:"required"`
	Customer      types.CustomerInfo  `json:"customer" validate:"required"`
	CouponCode    string              `json:"coupon_code,omitempty"`
	Lines         []checkoutLineInput `json:"lines" validate:"required,min=1,dive"`
}

type checkoutLineInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Qty       int       `json:"qty" validate:"required,gt=0"`
}

type orderResponse struct {
	OrderID            uuid.UUID          `json:"order_id"`
	OrderNumber        string             `json:"order_number"`
	Status             string             `json:"status"`
	PaymentStatus      string             `json:"payment_status"`
	PaymentMethod      string             `json:"payment_method"`
	RefundStatus       string             `json:"refund_status"`
	Customer           types.CustomerInfo `json:"customer"`
	SubtotalCents      int64              `json:"subtotal_cents"`
	DiscountCents      int64              `json:"discount_cents"`
	ShippingFeeCents   int64              `json:"shipping_fee_cents"`
	TotalCents         int64              `json:"total_cents"`
	CommissionCents    int64              `json:"commission_cents"`
	SellerRevenueCents int64              `json:"seller_revenue_cents"`
	RefundedCents      int64              `json:"refunded_cents"`
	Items              []lineItemResponse `json:"items"`
}

type lineItemResponse struct {
	LineItemID         uuid.UUID  `json:"line_item_id"`
	ProductID          uuid.UUID  `json:"product_id"`
	SellerID           uuid.UUID  `json:"seller_id"`
	Name               string     `json:"name"`
	SKU                string     `json:"sku"`
	UnitPriceCents     int64      `json:"unit_price_cents"`
	Qty                int        `json:"qty"`
	DiscountCents      int64      `json:"discount_cents"`
	SubtotalCents      int64      `json:"subtotal_cents"`
	AppliedPromotionID *uuid.UUID `json:"applied_promotion_id,omitempty"`
	CommissionTier     string     `json:"commission_tier"`
	CommissionCents    int64      `json:"commission_cents"`
	SellerRevenueCents int64      `json:"seller_revenue_cents"`
	RefundedQty        int        `json:"refunded_qty"`
}

func newOrderResponse(order *models.Order) orderResponse {
	if order == nil {
		return orderResponse{}
	}
	items := make([]lineItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, lineItemResponse{
			LineItemID:         item.ID,
			ProductID:          item.ProductID,
			SellerID:           item.SellerID,
			Name:               item.Name,
			SKU:                item.SKU,
			UnitPriceCents:     item.UnitPriceCents,
			Qty:                item.Qty,
			DiscountCents:      item.DiscountCents,
			SubtotalCents:      item.SubtotalCents,
			AppliedPromotionID: item.AppliedPromotionID,
			CommissionTier:     string(item.CommissionTier),
			CommissionCents:    item.CommissionCents,
			SellerRevenueCents: item.SellerRevenueCents,
			RefundedQty:        item.RefundedQty,
		})
	}
	return orderResponse{
		OrderID:            order.ID,
		OrderNumber:        order.OrderNumber,
		Status:             string(order.Status),
		PaymentStatus:      string(order.PaymentStatus),
		PaymentMethod:      string(order.PaymentMethod),
		RefundStatus:       string(order.RefundStatus),
		Customer:           order.Customer,
		SubtotalCents:      order.SubtotalCents,
		DiscountCents:      order.DiscountCents,
		ShippingFeeCents:   order.ShippingFeeCents,
		TotalCents:         order.TotalCents,
		CommissionCents:    order.CommissionCents,
		SellerRevenueCents: order.SellerRevenueCents,
		RefundedCents:      order.RefundedCents,
		Items:              items,
	}
}
