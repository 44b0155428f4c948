package orders

import (
	"context"
	"errors"
	"time"

	"github.com/accordmusic/accord-backend/pkg/db/models"
	"github.com/accordmusic/accord-backend/pkg/enums"
	"github.com/accordmusic/accord-backend/pkg/pagination"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindForUpdate(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) UpdateOrder(ctx context.Context, id int64, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) CreateStatusHistory(ctx context.Context, entry *models.OrderStatusHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListHistory(ctx context.Context, orderID int64) ([]models.OrderStatusHistory, error) {
	var rows []models.OrderStatusHistory
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("changed_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CreateAssignment(ctx context.Context, assignment *models.OrderAssignment) (*models.OrderAssignment, error) {
	if err := r.db.WithContext(ctx).Create(assignment).Error; err != nil {
		return nil, err
	}
	return assignment, nil
}

// FindActiveAssignment returns nil without error when no active claim exists
// for the slot.
func (r *repository) FindActiveAssignment(ctx context.Context, orderID int64, slot enums.AssignmentSlot) (*models.OrderAssignment, error) {
	var assignment models.OrderAssignment
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND user_role_id = ? AND active = ?", orderID, slot.Code(), true).
		First(&assignment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *repository) DeactivateAssignment(ctx context.Context, assignmentID int64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderAssignment{}).
		Where("id = ?", assignmentID).
		Updates(map[string]any{"active": false, "unassigned_at": at}).Error
}

func (r *repository) ListStatuses(ctx context.Context) ([]models.OrderStatusRow, error) {
	var rows []models.OrderStatusRow
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// summaryRow is the scan target shared by the list queries.
type summaryRow struct {
	ID              int64
	StatusName      string
	ContactName     string
	DeliveryAddress string
	TotalItems      int
	TotalItemsPrice decimal.Decimal
	TotalDiscount   decimal.Decimal
	TotalFinal      decimal.Decimal
	CreatedAt       time.Time
}

const summarySelect = `orders.id, order_statuses.name AS status_name, orders.contact_name,
	orders.delivery_address,
	(SELECT COALESCE(SUM(oi.quantity), 0) FROM order_items oi WHERE oi.order_id = orders.id) AS total_items,
	orders.total_items_price, orders.total_discount, orders.total_final, orders.created_at`

func (r *repository) summaryQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("orders").
		Select(summarySelect).
		Joins("JOIN order_statuses ON order_statuses.id = orders.status_id")
}

func applyCursor(q *gorm.DB, params pagination.Params) (*gorm.DB, int, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, 0, err
	}
	if cursor != nil {
		q = q.Where("(orders.created_at < ?) OR (orders.created_at = ? AND orders.id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	limit := pagination.LimitWithBuffer(params.Limit)
	q = q.Order("orders.created_at DESC, orders.id DESC").Limit(limit)
	return q, limit, nil
}

func buildSummaries(rows []summaryRow, limit int) ([]OrderSummary, string, error) {
	nextCursor := ""
	if len(rows) == limit {
		rows = rows[:limit-1]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	summaries := make([]OrderSummary, 0, len(rows))
	for _, row := range rows {
		status, err := enums.ParseOrderStatus(row.StatusName)
		if err != nil {
			return nil, "", err
		}
		summaries = append(summaries, OrderSummary{
			OrderID:         row.ID,
			Status:          status,
			ContactName:     row.ContactName,
			DeliveryAddress: row.DeliveryAddress,
			TotalItems:      row.TotalItems,
			TotalItemsPrice: row.TotalItemsPrice,
			TotalDiscount:   row.TotalDiscount,
			TotalFinal:      row.TotalFinal,
			CreatedAt:       row.CreatedAt,
		})
	}
	return summaries, nextCursor, nil
}

func (r *repository) listSummaries(q *gorm.DB, params pagination.Params) (*OrderList, error) {
	q, limit, err := applyCursor(q, params)
	if err != nil {
		return nil, err
	}
	var rows []summaryRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}
	summaries, nextCursor, err := buildSummaries(rows, limit)
	if err != nil {
		return nil, err
	}
	return &OrderList{Orders: summaries, NextCursor: nextCursor}, nil
}

func (r *repository) ListByUser(ctx context.Context, userID int64, params pagination.Params) (*OrderList, error) {
	q := r.summaryQuery(ctx).Where("orders.user_id = ?", userID)
	return r.listSummaries(q, params)
}

func (r *repository) ListQueue(ctx context.Context, slot enums.AssignmentSlot, statusID int64, params pagination.Params) (*OrderList, error) {
	q := r.summaryQuery(ctx).
		Where("orders.status_id = ?", statusID).
		Where(`NOT EXISTS (
			SELECT 1 FROM order_assignments a
			WHERE a.order_id = orders.id AND a.user_role_id = ? AND a.active = ?)`, slot.Code(), true)
	return r.listSummaries(q, params)
}

func (r *repository) ListAssigned(ctx context.Context, userID int64, slot enums.AssignmentSlot, params pagination.Params) (*OrderList, error) {
	q := r.summaryQuery(ctx).
		Where(`EXISTS (
			SELECT 1 FROM order_assignments a
			WHERE a.order_id = orders.id AND a.user_role_id = ? AND a.user_id = ? AND a.active = ?)`,
			slot.Code(), userID, true)
	return r.listSummaries(q, params)
}

func (r *repository) ListAssignedAny(ctx context.Context, slot enums.AssignmentSlot, params pagination.Params) (*OrderList, error) {
	q := r.summaryQuery(ctx).
		Where(`EXISTS (
			SELECT 1 FROM order_assignments a
			WHERE a.order_id = orders.id AND a.user_role_id = ? AND a.active = ?)`,
			slot.Code(), true)
	return r.listSummaries(q, params)
}

type adminSummaryRow struct {
	summaryRow
	ClientID  int64
	ManagerID *int64
	CourierID *int64
}

func (r *repository) ListAdmin(ctx context.Context, filters AdminOrderFilters, statusID *int64, params pagination.Params) (*AdminOrderList, error) {
	q := r.db.WithContext(ctx).
		Table("orders").
		Select(summarySelect+`,
			orders.user_id AS client_id,
			(SELECT a.user_id FROM order_assignments a
				WHERE a.order_id = orders.id AND a.user_role_id = ? AND a.active = ?) AS manager_id,
			(SELECT a.user_id FROM order_assignments a
				WHERE a.order_id = orders.id AND a.user_role_id = ? AND a.active = ?) AS courier_id`,
			enums.AssignmentSlotManager.Code(), true,
			enums.AssignmentSlotCourier.Code(), true).
		Joins("JOIN order_statuses ON order_statuses.id = orders.status_id")

	if statusID != nil {
		q = q.Where("orders.status_id = ?", *statusID)
	}
	if filters.ClientID != nil {
		q = q.Where("orders.user_id = ?", *filters.ClientID)
	}
	if filters.ManagerID != nil {
		q = q.Where(`EXISTS (
			SELECT 1 FROM order_assignments a
			WHERE a.order_id = orders.id AND a.user_role_id = ? AND a.user_id = ? AND a.active = ?)`,
			enums.AssignmentSlotManager.Code(), *filters.ManagerID, true)
	}
	if filters.CourierID != nil {
		q = q.Where(`EXISTS (
			SELECT 1 FROM order_assignments a
			WHERE a.order_id = orders.id AND a.user_role_id = ? AND a.user_id = ? AND a.active = ?)`,
			enums.AssignmentSlotCourier.Code(), *filters.CourierID, true)
	}
	if filters.DateFrom != nil {
		q = q.Where("orders.created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		q = q.Where("orders.created_at < ?", *filters.DateTo)
	}

	q, limit, err := applyCursor(q, params)
	if err != nil {
		return nil, err
	}
	var rows []adminSummaryRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(rows) == limit {
		rows = rows[:limit-1]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	summaries := make([]AdminOrderSummary, 0, len(rows))
	for _, row := range rows {
		status, err := enums.ParseOrderStatus(row.StatusName)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, AdminOrderSummary{
			OrderSummary: OrderSummary{
				OrderID:         row.ID,
				Status:          status,
				ContactName:     row.ContactName,
				DeliveryAddress: row.DeliveryAddress,
				TotalItems:      row.TotalItems,
				TotalItemsPrice: row.TotalItemsPrice,
				TotalDiscount:   row.TotalDiscount,
				TotalFinal:      row.TotalFinal,
				CreatedAt:       row.CreatedAt,
			},
			ClientID:  row.ClientID,
			ManagerID: row.ManagerID,
			CourierID: row.CourierID,
		})
	}
	return &AdminOrderList{Orders: summaries, NextCursor: nextCursor}, nil
}

func (r *repository) FindDetail(ctx context.Context, orderID int64) (*OrderDetail, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("TradeIns").
		First(&order, "id = ?", orderID).Error
	if err != nil {
		return nil, err
	}

	var statusRow models.OrderStatusRow
	if err := r.db.WithContext(ctx).First(&statusRow, "id = ?", order.StatusID).Error; err != nil {
		return nil, err
	}
	status, err := enums.ParseOrderStatus(statusRow.Name)
	if err != nil {
		return nil, err
	}

	items := make([]OrderItemDetail, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemDetail{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			PriceEach: item.PriceEach,
			Subtotal:  item.Subtotal,
		})
	}

	tradeIns := make([]TradeInDetail, 0, len(order.TradeIns))
	for _, tradeIn := range order.TradeIns {
		tradeIns = append(tradeIns, TradeInDetail{
			ProductID:       tradeIn.ProductID,
			ConditionCode:   tradeIn.ConditionCode,
			BaseAmount:      tradeIn.BaseAmount,
			Percent:         tradeIn.Percent,
			DiscountAmount:  tradeIn.DiscountAmount,
			ImpliedQuantity: impliedQuantity(tradeIn),
		})
	}

	return &OrderDetail{
		OrderID:         order.ID,
		ClientID:        order.UserID,
		Status:          status,
		ContactName:     order.ContactName,
		DeliveryAddress: order.DeliveryAddress,
		DeliveryPhone:   order.DeliveryPhone,
		CommentClient:   order.CommentClient,
		CommentInternal: order.CommentInternal,
		CanceledReason:  order.CanceledReason,
		CourierTakenAt:  order.CourierTakenAt,
		DeliveredAt:     order.DeliveredAt,
		Items:           items,
		TradeIns:        tradeIns,
		TotalItemsPrice: order.TotalItemsPrice,
		TotalDiscount:   order.TotalDiscount,
		TotalFinal:      order.TotalFinal,
		CreatedAt:       order.CreatedAt,
	}, nil
}

// impliedQuantity reconstructs the traded unit count from the stored amounts.
// The quantity itself is not persisted; the result is display-only and nil
// when the per-unit discount is zero.
func impliedQuantity(tradeIn models.OrderTradeIn) *decimal.Decimal {
	perUnit := tradeIn.BaseAmount.Mul(tradeIn.Percent).Div(decimal.NewFromInt(100))
	if perUnit.IsZero() {
		return nil
	}
	qty := tradeIn.DiscountAmount.Div(perUnit).Round(2)
	return &qty
}
