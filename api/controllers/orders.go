package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/avelazquez/zocalo-backend/api/responses"
	"github.com/avelazquez/zocalo-backend/api/validators"
	internalorders "github.com/avelazquez/zocalo-backend/internal/orders"
	"github.com/avelazquez/zocalo-backend/pkg/db/models"
	"github.com/avelazquez/zocalo-backend/pkg/enums"
	pkgerrors "github.com/avelazquez/zocalo-backend/pkg/errors"
	"github.com/avelazquez/zocalo-backend/pkg/logger"
	"github.com/avelazquez/zocalo-backend/pkg/pagination"
)

// ListOrders pages through the authenticated buyer's orders.
func ListOrders(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		filters, err := buildOrderFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), actor.UserID, params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]orderResponse, 0, len(list.Orders))
		for i := range list.Orders {
			items = append(items, newOrderResponse(&list.Orders[i]))
		}
		responses.WriteSuccess(w, map[string]any{
			"orders":      items,
			"next_cursor": list.NextCursor,
		})
	}
}

// OrderDetail returns one order, authorization included.
func OrderDetail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := resolveOrder(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// OrderHistory returns the status transition audit trail of one order.
func OrderHistory(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		events, err := svc.History(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]statusEventResponse, 0, len(events))
		for _, event := range events {
			items = append(items, newStatusEventResponse(event))
		}
		responses.WriteSuccess(w, map[string]any{"events": items})
	}
}

// OrderCommission returns the per-line commission breakdown of one order.
func OrderCommission(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		breakdown, err := svc.Commission(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, breakdown)
	}
}

// CancelOrder cancels a pending or confirmed order.
func CancelOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cancelRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		order, err := svc.Cancel(r.Context(), internalorders.CancelInput{
			OrderID: orderID,
			Actor:   actor,
			Reason:  payload.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// ReturnOrder returns a delivered order, in full or one line at a time.
func ReturnOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload returnRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		order, err := svc.Return(r.Context(), internalorders.ReturnInput{
			OrderID:    orderID,
			Actor:      actor,
			Reason:     payload.Reason,
			LineItemID: payload.LineItemID,
			Qty:        payload.Qty,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// DeleteOrder removes a pending unpaid order entirely.
func DeleteOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), orderID, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// TransitionOrder moves an order through its fulfillment states.
func TransitionOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload transitionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Transition(r.Context(), internalorders.TransitionInput{
			OrderID: orderID,
			Target:  enums.OrderStatus(payload.Target),
			Actor:   actor,
			Note:    payload.Note,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// MarkOrderPaid settles payment on an order and posts seller earnings.
func MarkOrderPaid(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.MarkPaid(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

type cancelRequest struct {
	Reason string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type returnRequest struct {
	Reason     string     `json:"reason,omitempty" validate:"omitempty,max=500"`
	LineItemID *uuid.UUID `json:"line_item_id,omitempty"`
	Qty        int        `json:"qty,omitempty" validate:"omitempty,gt=0"`
}

type transitionRequest struct {
	Target string  `json:"target" validate:"required"`
	Note   *string `json:"note,omitempty"`
}

type statusEventResponse struct {
	EventID    uuid.UUID  `json:"event_id"`
	FromStatus string     `json:"from_status"`
	ToStatus   string     `json:"to_status"`
	ActorRole  string     `json:"actor_role"`
	Note       *string    `json:"note,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
	ActorID    *uuid.UUID `json:"actor_user_id,omitempty"`
}

func newStatusEventResponse(event models.OrderStatusEvent) statusEventResponse {
	return statusEventResponse{
		EventID:    event.ID,
		FromStatus: string(event.FromStatus),
		ToStatus:   string(event.ToStatus),
		ActorRole:  string(event.ActorRole),
		Note:       event.Note,
		OccurredAt: event.CreatedAt,
		ActorID:    event.ActorUserID,
	}
}

// resolveOrder accepts either the order UUID or the human-readable order
// number in the path.
func resolveOrder(r *http.Request, svc internalorders.Service) (*models.Order, error) {
	if svc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable")
	}
	actor, err := actorFromRequest(r)
	if err != nil {
		return nil, err
	}

	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orderId is required")
	}
	if orderID, parseErr := uuid.Parse(raw); parseErr == nil {
		return svc.Get(r.Context(), orderID, actor)
	}
	return svc.GetByNumber(r.Context(), raw, actor)
}

func buildOrderFilters(r *http.Request) (internalorders.OrderFilters, error) {
	filters := internalorders.OrderFilters{}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status := enums.OrderStatus(raw)
		if !status.IsValid() {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
				WithDetails(map[string]any{"status": raw})
		}
		filters.Status = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("payment_status")); raw != "" {
		status := enums.PaymentStatus(raw)
		if !status.IsValid() {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment status").
				WithDetails(map[string]any{"payment_status": raw})
		}
		filters.PaymentStatus = &status
	}
	return filters, nil
}
