package orders

import (
	"context"
	"testing"
	"time"

	"github.com/accordmusic/accord-backend/pkg/db/models"
	"github.com/accordmusic/accord-backend/pkg/enums"
	"github.com/accordmusic/accord-backend/pkg/pagination"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	schemas := []string{`
CREATE TABLE IF NOT EXISTS order_statuses (
  id INTEGER PRIMARY KEY,
  name TEXT NOT NULL UNIQUE
);`, `
CREATE TABLE IF NOT EXISTS orders (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER NOT NULL,
  status_id INTEGER NOT NULL,
  contact_name TEXT NOT NULL,
  delivery_address TEXT NOT NULL,
  delivery_phone TEXT NOT NULL,
  comment_client TEXT,
  comment_internal TEXT,
  canceled_reason TEXT,
  courier_taken_at DATETIME,
  delivered_at DATETIME,
  total_items_price NUMERIC NOT NULL,
  total_discount NUMERIC NOT NULL,
  total_final NUMERIC NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS order_items (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  order_id INTEGER NOT NULL,
  product_id INTEGER NOT NULL,
  quantity INTEGER NOT NULL,
  price_each NUMERIC NOT NULL,
  subtotal NUMERIC NOT NULL,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS order_trade_ins (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  order_id INTEGER NOT NULL,
  product_id INTEGER NOT NULL,
  condition_code TEXT NOT NULL,
  base_amount NUMERIC NOT NULL,
  percent NUMERIC NOT NULL,
  discount_amount NUMERIC NOT NULL,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS order_assignments (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  order_id INTEGER NOT NULL,
  user_role_id INTEGER NOT NULL,
  user_id INTEGER NOT NULL,
  active INTEGER NOT NULL DEFAULT 1,
  assigned_at DATETIME,
  unassigned_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS order_status_history (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  order_id INTEGER NOT NULL,
  old_status_id INTEGER,
  new_status_id INTEGER NOT NULL,
  changed_by INTEGER,
  note TEXT,
  changed_at DATETIME
);`}

	for _, schema := range schemas {
		require.NoError(t, db.Exec(schema).Error)
	}

	for i, status := range enums.OrderStatuses() {
		require.NoError(t, db.Exec(
			"INSERT INTO order_statuses (id, name) VALUES (?, ?)", i+1, status.String()).Error)
	}
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, userID int64, status enums.OrderStatus, createdAt time.Time) *models.Order {
	t.Helper()
	var statusID int64
	require.NoError(t, db.Raw("SELECT id FROM order_statuses WHERE name = ?", status.String()).Scan(&statusID).Error)

	order := &models.Order{
		UserID:          userID,
		StatusID:        statusID,
		ContactName:     "Dana Reyes",
		DeliveryAddress: "12 Harbor Lane",
		DeliveryPhone:   "+15550102",
		TotalItemsPrice: decimal.RequireFromString("200.00"),
		TotalDiscount:   decimal.RequireFromString("20.00"),
		TotalFinal:      decimal.RequireFromString("180.00"),
		CreatedAt:       createdAt,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestListStatuses(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	rows, err := repo.ListStatuses(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, "new", rows[0].Name)
	assert.Equal(t, "canceled", rows[5].Name)
}

func TestFindDetailWithLines(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, 7, enums.OrderStatusNew, time.Now().UTC())
	require.NoError(t, db.Create(&models.OrderItem{
		OrderID:   order.ID,
		ProductID: 3,
		Quantity:  2,
		PriceEach: decimal.RequireFromString("100.00"),
		Subtotal:  decimal.RequireFromString("200.00"),
	}).Error)
	require.NoError(t, db.Create(&models.OrderTradeIn{
		OrderID:        order.ID,
		ProductID:      9,
		ConditionCode:  "good",
		BaseAmount:     decimal.RequireFromString("100.00"),
		Percent:        decimal.RequireFromString("70.00"),
		DiscountAmount: decimal.RequireFromString("140.00"),
	}).Error)

	detail, err := repo.FindDetail(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, detail.OrderID)
	assert.Equal(t, int64(7), detail.ClientID)
	assert.Equal(t, enums.OrderStatusNew, detail.Status)
	require.Len(t, detail.Items, 1)
	assert.Equal(t, 2, detail.Items[0].Quantity)
	require.Len(t, detail.TradeIns, 1)

	// 140 / (100 * 70%) = 2 traded units
	require.NotNil(t, detail.TradeIns[0].ImpliedQuantity)
	assert.True(t, detail.TradeIns[0].ImpliedQuantity.Equal(decimal.RequireFromString("2")),
		"implied quantity was %s", detail.TradeIns[0].ImpliedQuantity)
}

func TestFindDetailImpliedQuantityNilOnZeroDivisor(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order := seedOrder(t, db, 7, enums.OrderStatusNew, time.Now().UTC())
	require.NoError(t, db.Create(&models.OrderTradeIn{
		OrderID:        order.ID,
		ProductID:      9,
		ConditionCode:  "scrap",
		BaseAmount:     decimal.RequireFromString("100.00"),
		Percent:        decimal.Zero,
		DiscountAmount: decimal.Zero,
	}).Error)

	detail, err := repo.FindDetail(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, detail.TradeIns, 1)
	assert.Nil(t, detail.TradeIns[0].ImpliedQuantity)
}

func TestListByUserPagination(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Date(2025, 11, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		seedOrder(t, db, 7, enums.OrderStatusNew, base.Add(time.Duration(i)*time.Hour))
	}
	seedOrder(t, db, 8, enums.OrderStatusNew, base)

	page, err := repo.ListByUser(ctx, 7, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Orders, 2)
	require.NotEmpty(t, page.NextCursor)
	assert.True(t, page.Orders[0].CreatedAt.After(page.Orders[1].CreatedAt))

	rest, err := repo.ListByUser(ctx, 7, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Orders, 1)
	assert.Empty(t, rest.NextCursor)
	assert.NotEqual(t, page.Orders[0].OrderID, rest.Orders[0].OrderID)
	assert.NotEqual(t, page.Orders[1].OrderID, rest.Orders[0].OrderID)
}

func TestListQueueExcludesClaimedOrders(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	unclaimed := seedOrder(t, db, 7, enums.OrderStatusNew, now.Add(-time.Hour))
	claimed := seedOrder(t, db, 8, enums.OrderStatusNew, now)
	require.NoError(t, db.Create(&models.OrderAssignment{
		OrderID:    claimed.ID,
		UserRoleID: enums.AssignmentSlotManager.Code(),
		UserID:     31,
		Active:     true,
	}).Error)

	var statusID int64
	require.NoError(t, db.Raw("SELECT id FROM order_statuses WHERE name = 'new'").Scan(&statusID).Error)

	queue, err := repo.ListQueue(ctx, enums.AssignmentSlotManager, statusID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, queue.Orders, 1)
	assert.Equal(t, unclaimed.ID, queue.Orders[0].OrderID)

	// Releasing the claim puts the order back in the queue.
	require.NoError(t, db.Model(&models.OrderAssignment{}).
		Where("order_id = ?", claimed.ID).
		Updates(map[string]any{"active": false, "unassigned_at": now}).Error)

	queue, err = repo.ListQueue(ctx, enums.AssignmentSlotManager, statusID, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, queue.Orders, 2)
}

func TestListAssigned(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	mine := seedOrder(t, db, 7, enums.OrderStatusPreparing, now)
	other := seedOrder(t, db, 8, enums.OrderStatusPreparing, now)
	require.NoError(t, db.Create(&models.OrderAssignment{
		OrderID: mine.ID, UserRoleID: enums.AssignmentSlotManager.Code(), UserID: 31, Active: true,
	}).Error)
	require.NoError(t, db.Create(&models.OrderAssignment{
		OrderID: other.ID, UserRoleID: enums.AssignmentSlotManager.Code(), UserID: 99, Active: true,
	}).Error)

	list, err := repo.ListAssigned(ctx, 31, enums.AssignmentSlotManager, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, mine.ID, list.Orders[0].OrderID)

	// The unscoped listing covers both managers' claims.
	all, err := repo.ListAssignedAny(ctx, enums.AssignmentSlotManager, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, all.Orders, 2)

	none, err := repo.ListAssignedAny(ctx, enums.AssignmentSlotCourier, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, none.Orders)
}

func TestFindActiveAssignment(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, 7, enums.OrderStatusNew, time.Now().UTC())

	claim, err := repo.FindActiveAssignment(ctx, order.ID, enums.AssignmentSlotManager)
	require.NoError(t, err)
	assert.Nil(t, claim)

	created, err := repo.CreateAssignment(ctx, &models.OrderAssignment{
		OrderID: order.ID, UserRoleID: enums.AssignmentSlotManager.Code(), UserID: 31, Active: true,
	})
	require.NoError(t, err)

	claim, err = repo.FindActiveAssignment(ctx, order.ID, enums.AssignmentSlotManager)
	require.NoError(t, err)
	require.NotNil(t, claim)
	assert.Equal(t, int64(31), claim.UserID)

	require.NoError(t, repo.DeactivateAssignment(ctx, created.ID, time.Now().UTC()))
	claim, err = repo.FindActiveAssignment(ctx, order.ID, enums.AssignmentSlotManager)
	require.NoError(t, err)
	assert.Nil(t, claim)
}

func TestListAdminFilters(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	first := seedOrder(t, db, 7, enums.OrderStatusPreparing, now.Add(-time.Hour))
	second := seedOrder(t, db, 8, enums.OrderStatusNew, now)
	require.NoError(t, db.Create(&models.OrderAssignment{
		OrderID: first.ID, UserRoleID: enums.AssignmentSlotManager.Code(), UserID: 31, Active: true,
	}).Error)

	all, err := repo.ListAdmin(ctx, AdminOrderFilters{}, nil, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, all.Orders, 2)
	assert.Equal(t, second.ID, all.Orders[0].OrderID)

	managerID := int64(31)
	byManager, err := repo.ListAdmin(ctx, AdminOrderFilters{ManagerID: &managerID}, nil, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, byManager.Orders, 1)
	assert.Equal(t, first.ID, byManager.Orders[0].OrderID)
	require.NotNil(t, byManager.Orders[0].ManagerID)
	assert.Equal(t, int64(31), *byManager.Orders[0].ManagerID)
	assert.Nil(t, byManager.Orders[0].CourierID)

	clientID := int64(8)
	byClient, err := repo.ListAdmin(ctx, AdminOrderFilters{ClientID: &clientID}, nil, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, byClient.Orders, 1)
	assert.Equal(t, second.ID, byClient.Orders[0].OrderID)

	from := now.Add(-30 * time.Minute)
	recent, err := repo.ListAdmin(ctx, AdminOrderFilters{DateFrom: &from}, nil, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, recent.Orders, 1)
	assert.Equal(t, second.ID, recent.Orders[0].OrderID)
}

func TestStatusHistoryRoundTrip(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, 7, enums.OrderStatusPreparing, time.Now().UTC())
	oldID := int64(1)
	changedBy := int64(31)
	require.NoError(t, repo.CreateStatusHistory(ctx, &models.OrderStatusHistory{
		OrderID:     order.ID,
		NewStatusID: 1,
	}))
	require.NoError(t, repo.CreateStatusHistory(ctx, &models.OrderStatusHistory{
		OrderID:     order.ID,
		OldStatusID: &oldID,
		NewStatusID: 2,
		ChangedBy:   &changedBy,
	}))

	rows, err := repo.ListHistory(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Nil(t, rows[0].OldStatusID)
	require.NotNil(t, rows[1].OldStatusID)
	assert.Equal(t, int64(1), *rows[1].OldStatusID)
}
