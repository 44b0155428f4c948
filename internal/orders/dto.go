package orders

import (
	"time"

	"github.com/accordmusic/accord-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// Actor identifies the authenticated caller for authorization decisions.
type Actor struct {
	UserID int64
	Role   enums.Role
}

// ChangeStatusInput drives the generic status transition endpoint.
type ChangeStatusInput struct {
	OrderID int64
	Target  enums.OrderStatus
	Note    *string
	Actor   Actor
}

// ChangeStatusResult reports the statuses an order moved between.
type ChangeStatusResult struct {
	From enums.OrderStatus `json:"old_status"`
	To   enums.OrderStatus `json:"new_status"`
}

// ClaimInput drives take, mark-ready and finish operations.
type ClaimInput struct {
	OrderID int64
	Actor   Actor
}

// CancelInput drives the staff cancel operation. Reason is mandatory.
type CancelInput struct {
	OrderID int64
	Reason  string
	Actor   Actor
}

// AdminOrderFilters describe the inputs supported by the admin orders list.
type AdminOrderFilters struct {
	Status    *enums.OrderStatus
	ClientID  *int64
	ManagerID *int64
	CourierID *int64
	DateFrom  *time.Time
	DateTo    *time.Time
}

// OrderSummary exposes the aggregated fields returned in list endpoints.
type OrderSummary struct {
	OrderID         int64             `json:"order_id"`
	Status          enums.OrderStatus `json:"status"`
	ContactName     string            `json:"contact_name"`
	DeliveryAddress string            `json:"delivery_address"`
	TotalItems      int               `json:"total_items"`
	TotalItemsPrice decimal.Decimal   `json:"total_items_price"`
	TotalDiscount   decimal.Decimal   `json:"total_discount"`
	TotalFinal      decimal.Decimal   `json:"total_final"`
	CreatedAt       time.Time         `json:"created_at"`
}

// OrderList wraps the paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// AdminOrderSummary extends the summary with participant ids for back-office
// screens.
type AdminOrderSummary struct {
	OrderSummary
	ClientID  int64  `json:"client_id"`
	ManagerID *int64 `json:"manager_id,omitempty"`
	CourierID *int64 `json:"courier_id,omitempty"`
}

// AdminOrderList wraps the paginated admin orders plus the next cursor.
type AdminOrderList struct {
	Orders     []AdminOrderSummary `json:"orders"`
	NextCursor string              `json:"next_cursor,omitempty"`
}

// OrderItemDetail is one purchased line in the order detail view.
type OrderItemDetail struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	PriceEach decimal.Decimal `json:"price_each"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// TradeInDetail is one trade-in discount line in the order detail view.
// ImpliedQuantity is reconstructed from the stored amounts and is nil when
// the divisor is zero.
type TradeInDetail struct {
	ProductID       int64            `json:"product_id"`
	ConditionCode   string           `json:"condition_code"`
	BaseAmount      decimal.Decimal  `json:"base_amount"`
	Percent         decimal.Decimal  `json:"percent"`
	DiscountAmount  decimal.Decimal  `json:"discount_amount"`
	ImpliedQuantity *decimal.Decimal `json:"implied_quantity"`
}

// OrderDetail is the full order view returned to authorized readers.
type OrderDetail struct {
	OrderID         int64             `json:"order_id"`
	ClientID        int64             `json:"client_id"`
	Status          enums.OrderStatus `json:"status"`
	ContactName     string            `json:"contact_name"`
	DeliveryAddress string            `json:"delivery_address"`
	DeliveryPhone   string            `json:"delivery_phone"`
	CommentClient   *string           `json:"comment_client,omitempty"`
	CommentInternal *string           `json:"comment_internal,omitempty"`
	CanceledReason  *string           `json:"canceled_reason,omitempty"`
	CourierTakenAt  *time.Time        `json:"courier_taken_at,omitempty"`
	DeliveredAt     *time.Time        `json:"delivered_at,omitempty"`
	Items           []OrderItemDetail `json:"items"`
	TradeIns        []TradeInDetail   `json:"trade_ins"`
	TotalItemsPrice decimal.Decimal   `json:"total_items_price"`
	TotalDiscount   decimal.Decimal   `json:"total_discount"`
	TotalFinal      decimal.Decimal   `json:"total_final"`
	CreatedAt       time.Time         `json:"created_at"`
}

// HistoryEntry is one row of the order's transition log.
type HistoryEntry struct {
	OldStatus *enums.OrderStatus `json:"old_status,omitempty"`
	NewStatus enums.OrderStatus  `json:"new_status"`
	ChangedBy *int64             `json:"changed_by,omitempty"`
	Note      *string            `json:"note,omitempty"`
	ChangedAt time.Time          `json:"changed_at"`
}
