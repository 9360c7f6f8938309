package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/avelazquez/zocalo-backend/api/responses"
	"github.com/avelazquez/zocalo-backend/api/validators"
	"github.com/avelazquez/zocalo-backend/internal/ledger"
	"github.com/avelazquez/zocalo-backend/internal/sellers"
	"github.com/avelazquez/zocalo-backend/pkg/db/models"
	"github.com/avelazquez/zocalo-backend/pkg/enums"
	pkgerrors "github.com/avelazquez/zocalo-backend/pkg/errors"
	"github.com/avelazquez/zocalo-backend/pkg/logger"
	"github.com/avelazquez/zocalo-backend/pkg/pagination"
)

// RegisterSeller creates a pending seller account for the authenticated user.
func RegisterSeller(svc sellers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sellers service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload registerSellerRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		seller, err := svc.Register(r.Context(), sellers.RegisterRequest{
			UserID:      actor.UserID,
			DisplayName: payload.DisplayName,
			Email:       payload.Email,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newSellerResponse(seller))
	}
}

// SellerMe returns the seller profile behind the authenticated account.
func SellerMe(svc sellers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sellers service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		seller, err := svc.GetByUserID(r.Context(), actor.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSellerResponse(seller))
	}
}

// SellerPayout reports the seller's pending payout balance with its ledger
// trail.
func SellerPayout(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		sellerID, err := sellerIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pending, err := svc.PendingPayout(r.Context(), sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		events, err := svc.ListEvents(r.Context(), sellerID, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]payoutEventResponse, 0, len(events))
		for _, event := range events {
			items = append(items, newPayoutEventResponse(event))
		}
		responses.WriteSuccess(w, map[string]any{
			"pending_payout_cents": pending,
			"events":               items,
		})
	}
}

// SetSellerApproval lets an admin approve or reject a pending seller.
func SetSellerApproval(svc sellers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sellers service unavailable"))
			return
		}

		sellerID, err := parseUUIDParam(r, "sellerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload approvalRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		seller, err := svc.SetApproval(r.Context(), sellerID, enums.SellerApprovalStatus(payload.Status), payload.ReReview)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSellerResponse(seller))
	}
}

type registerSellerRequest struct {
	DisplayName string `json:"display_name" validate:"required,max=200"`
	Email       string `json:"email" validate:"required,email"`
}

type approvalRequest struct {
	Status string `json:"status" validate:"required,oneof=approved rejected"`
	// ReReview authorizes changing a decision that was already made.
	ReReview bool `json:"re_review,omitempty"`
}

type sellerResponse struct {
	SellerID         uuid.UUID  `json:"seller_id"`
	UserID           uuid.UUID  `json:"user_id"`
	DisplayName      string     `json:"display_name"`
	Email            string     `json:"email"`
	ApprovalStatus   string     `json:"approval_status"`
	CommissionTier   string     `json:"commission_tier"`
	SalesVolumeCents int64      `json:"sales_volume_cents"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func newSellerResponse(seller *models.Seller) sellerResponse {
	if seller == nil {
		return sellerResponse{}
	}
	return sellerResponse{
		SellerID:         seller.ID,
		UserID:           seller.UserID,
		DisplayName:      seller.DisplayName,
		Email:            seller.Email,
		ApprovalStatus:   string(seller.ApprovalStatus),
		CommissionTier:   string(seller.CommissionTier),
		SalesVolumeCents: seller.SalesVolumeCents,
		ApprovedAt:       seller.ApprovedAt,
		CreatedAt:        seller.CreatedAt,
	}
}

type payoutEventResponse struct {
	EventID     uuid.UUID  `json:"event_id"`
	OrderID     uuid.UUID  `json:"order_id"`
	LineItemID  *uuid.UUID `json:"line_item_id,omitempty"`
	Type        string     `json:"type"`
	AmountCents int64      `json:"amount_cents"`
	CreatedAt   time.Time  `json:"created_at"`
}

func newPayoutEventResponse(event models.PayoutEvent) payoutEventResponse {
	return payoutEventResponse{
		EventID:     event.ID,
		OrderID:     event.OrderID,
		LineItemID:  event.LineItemID,
		Type:        event.Type,
		AmountCents: event.AmountCents,
		CreatedAt:   event.CreatedAt,
	}
}
