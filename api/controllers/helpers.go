package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/avelazquez/zocalo-backend/api/middleware"
	"github.com/avelazquez/zocalo-backend/internal/orders"
	"github.com/avelazquez/zocalo-backend/pkg/enums"
	pkgerrors "github.com/avelazquez/zocalo-backend/pkg/errors"
)

// actorFromRequest rebuilds the acting identity from the authenticated
// context.
func actorFromRequest(r *http.Request) (orders.Actor, error) {
	rawUserID := middleware.UserIDFromContext(r.Context())
	if rawUserID == "" {
		return orders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	userID, err := uuid.Parse(rawUserID)
	if err != nil {
		return orders.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}

	role, err := enums.ParseActorRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return orders.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid actor role")
	}

	actor := orders.Actor{UserID: userID, Role: role}
	if raw := middleware.SellerIDFromContext(r.Context()); raw != "" {
		sellerID, err := uuid.Parse(raw)
		if err != nil {
			return orders.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid seller id")
		}
		actor.SellerID = &sellerID
	}
	return actor, nil
}

// sellerIDFromRequest resolves the seller behind a seller-scoped route.
func sellerIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := middleware.SellerIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "seller account required")
	}
	sellerID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "invalid seller id")
	}
	return sellerID, nil
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}
