package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avelazquez/zocalo-backend/api/responses"
	"github.com/avelazquez/zocalo-backend/api/validators"
	"github.com/avelazquez/zocalo-backend/internal/promotions"
	"github.com/avelazquez/zocalo-backend/pkg/db/models"
	"github.com/avelazquez/zocalo-backend/pkg/enums"
	pkgerrors "github.com/avelazquez/zocalo-backend/pkg/errors"
	"github.com/avelazquez/zocalo-backend/pkg/logger"
)

// CreatePromotion defines a new discount rule owned by the seller.
func CreatePromotion(svc promotions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promotions service unavailable"))
			return
		}

		sellerID, err := sellerIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createPromotionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var percent *decimal.Decimal
		if payload.Percent != nil {
			parsed, err := decimal.NewFromString(*payload.Percent)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid percent"))
				return
			}
			percent = &parsed
		}

		var minPurchase int64
		if payload.MinPurchaseCents != nil {
			minPurchase = *payload.MinPurchaseCents
		}
		promo, err := svc.Create(r.Context(), promotions.CreatePromotionRequest{
			SellerID:         &sellerID,
			Name:             payload.Name,
			Kind:             enums.PromotionKind(payload.Kind),
			Scope:            enums.PromotionScope(payload.Scope),
			Percent:          percent,
			AmountCents:      payload.AmountCents,
			MinPurchaseCents: minPurchase,
			MaxDiscountCents: payload.MaxDiscountCents,
			ProductID:        payload.ProductID,
			Categories:       payload.Categories,
			ValidFrom:        payload.ValidFrom,
			ValidUntil:       payload.ValidUntil,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newPromotionResponse(promo))
	}
}

// UpdatePromotion edits a promotion the seller owns. Expired promotions are
// frozen.
func UpdatePromotion(svc promotions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promotions service unavailable"))
			return
		}

		sellerID, err := sellerIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		promotionID, err := parseUUIDParam(r, "promotionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updatePromotionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		promo, err := svc.Get(r.Context(), promotionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if promo.SellerID == nil || *promo.SellerID != sellerID {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeForbidden, "promotion belongs to another seller"))
			return
		}
		if promo.ValidUntil.Before(time.Now().UTC()) {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeStateConflict, "promotion already expired"))
			return
		}

		updated, err := svc.Update(r.Context(), promotionID, promotions.UpdatePromotionRequest{
			Name:       payload.Name,
			IsActive:   payload.IsActive,
			ValidUntil: payload.ValidUntil,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPromotionResponse(updated))
	}
}

// PromotionDetail returns one promotion the seller owns.
func PromotionDetail(svc promotions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promotions service unavailable"))
			return
		}

		sellerID, err := sellerIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		promotionID, err := parseUUIDParam(r, "promotionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		promo, err := svc.Get(r.Context(), promotionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if promo.SellerID == nil || *promo.SellerID != sellerID {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeForbidden, "promotion belongs to another seller"))
			return
		}
		responses.WriteSuccess(w, newPromotionResponse(promo))
	}
}

// CreateCoupon binds a redeemable code to a promotion the seller owns.
func CreateCoupon(svc promotions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promotions service unavailable"))
			return
		}

		sellerID, err := sellerIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		promo, err := svc.Get(r.Context(), payload.PromotionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if promo.SellerID == nil || *promo.SellerID != sellerID {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeForbidden, "promotion belongs to another seller"))
			return
		}

		coupon, err := svc.CreateCoupon(r.Context(), promotions.CreateCouponRequest{
			Code:        payload.Code,
			PromotionID: payload.PromotionID,
			MaxUsage:    payload.MaxUsage,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newCouponResponse(coupon))
	}
}

type createPromotionRequest struct {
	Name        string     `json:"name" validate:"required,max=200"`
	Kind        string     `json:"kind" validate:"required,oneof=percentage fixed"`
	Scope       string     `json:"scope" validate:"required,oneof=product category platform"`
	Percent          *string    `json:"percent,omitempty"`
	AmountCents      *int64     `json:"amount_cents,omitempty"`
	MinPurchaseCents *int64     `json:"min_purchase_cents,omitempty" validate:"omitempty,gte=0"`
	MaxDiscountCents *int64     `json:"max_discount_cents,omitempty" validate:"omitempty,gt=0"`
	ProductID        *uuid.UUID `json:"product_id,omitempty"`
	Categories       []string   `json:"categories,omitempty"`
	ValidFrom        time.Time  `json:"valid_from" validate:"required"`
	ValidUntil       time.Time  `json:"valid_until" validate:"required"`
}

type updatePromotionRequest struct {
	Name       *string    `json:"name,omitempty"`
	IsActive   *bool      `json:"is_active,omitempty"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
}

type createCouponRequest struct {
	Code        string    `json:"code" validate:"required,max=64"`
	PromotionID uuid.UUID `json:"promotion_id" validate:"required"`
	MaxUsage    int       `json:"max_usage" validate:"required,gt=0"`
}

type promotionResponse struct {
	PromotionID uuid.UUID  `json:"promotion_id"`
	SellerID    *uuid.UUID `json:"seller_id,omitempty"`
	Name        string     `json:"name"`
	Kind        string     `json:"kind"`
	Scope       string     `json:"scope"`
	Percent          *string    `json:"percent,omitempty"`
	AmountCents      *int64     `json:"amount_cents,omitempty"`
	MinPurchaseCents int64      `json:"min_purchase_cents"`
	MaxDiscountCents *int64     `json:"max_discount_cents,omitempty"`
	ProductID        *uuid.UUID `json:"product_id,omitempty"`
	Categories       []string   `json:"categories,omitempty"`
	ValidFrom        time.Time  `json:"valid_from"`
	ValidUntil       time.Time  `json:"valid_until"`
	IsActive         bool       `json:"is_active"`
	CreatedAt        time.Time  `json:"created_at"`
}

func newPromotionResponse(promo *models.Promotion) promotionResponse {
	if promo == nil {
		return promotionResponse{}
	}
	var percent *string
	if promo.Percent != nil {
		p := promo.Percent.String()
		percent = &p
	}
	return promotionResponse{
		PromotionID:      promo.ID,
		SellerID:         promo.SellerID,
		Name:             promo.Name,
		Kind:             string(promo.Kind),
		Scope:            string(promo.Scope),
		Percent:          percent,
		AmountCents:      promo.AmountCents,
		MinPurchaseCents: promo.MinPurchaseCents,
		MaxDiscountCents: promo.MaxDiscountCents,
		ProductID:        promo.ProductID,
		Categories:       promo.Categories,
		ValidFrom:        promo.ValidFrom,
		ValidUntil:       promo.ValidUntil,
		IsActive:         promo.IsActive,
		CreatedAt:        promo.CreatedAt,
	}
}

type couponResponse struct {
	CouponID    uuid.UUID `json:"coupon_id"`
	Code        string    `json:"code"`
	PromotionID uuid.UUID `json:"promotion_id"`
	MaxUsage    int       `json:"max_usage"`
	UsedCount   int       `json:"used_count"`
	CreatedAt   time.Time `json:"created_at"`
}

func newCouponResponse(coupon *models.Coupon) couponResponse {
	if coupon == nil {
		return couponResponse{}
	}
	return couponResponse{
		CouponID:    coupon.ID,
		Code:        coupon.Code,
		PromotionID: coupon.PromotionID,
		MaxUsage:    coupon.MaxUsage,
		UsedCount:   coupon.UsedCount,
		CreatedAt:   coupon.CreatedAt,
	}
}
