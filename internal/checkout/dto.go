package checkout

import (
	"github.com/google/uuid"

	"github.com/avelazquez/zocalo-backend/pkg/enums"
	"github.com/avelazquez/zocalo-backend/pkg/types"
)

// LineRequest is one requested order line.
type LineRequest struct {
	ProductID uuid.UUID
	Qty       int
}

// Request is a checkout submission for one buyer.
type Request struct {
	BuyerUserID   uuid.UUID
	PaymentMethod enums.PaymentMethod
	Customer      types.CustomerInfo
	CouponCode    string
	Lines         []LineRequest
}
