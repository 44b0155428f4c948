package checkout

import (
	"context"
	"testing"

	"github.com/accordmusic/accord-backend/internal/orders"
	"github.com/accordmusic/accord-backend/pkg/db/models"
	"github.com/accordmusic/accord-backend/pkg/enums"
	pkgerrors "github.com/accordmusic/accord-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// stubOrderRepo embeds the interface so only the methods checkout touches
// need real implementations.
type stubOrderRepo struct {
	orders.Repository
	created *models.Order
	history []models.OrderStatusHistory
}

func (s *stubOrderRepo) WithTx(tx *gorm.DB) orders.Repository { return s }

func (s *stubOrderRepo) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	order.ID = 42
	s.created = order
	return order, nil
}

func (s *stubOrderRepo) CreateStatusHistory(ctx context.Context, entry *models.OrderStatusHistory) error {
	s.history = append(s.history, *entry)
	return nil
}

func (s *stubOrderRepo) ListStatuses(ctx context.Context) ([]models.OrderStatusRow, error) {
	rows := make([]models.OrderStatusRow, 0, 6)
	for i, status := range enums.OrderStatuses() {
		rows = append(rows, models.OrderStatusRow{ID: int64(i + 1), Name: status.String()})
	}
	return rows, nil
}

type stubProductCatalog struct {
	prices map[int64]string
}

func (s *stubProductCatalog) FindActiveByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	var rows []models.Product
	for _, id := range ids {
		if price, ok := s.prices[id]; ok {
			rows = append(rows, models.Product{ID: id, Price: decimal.RequireFromString(price), Active: true})
		}
	}
	return rows, nil
}

type stubTradeInCatalog struct {
	bases    map[int64]string
	percents map[string]string
}

func (s *stubTradeInCatalog) FindActiveProductsByIDs(ctx context.Context, ids []int64) ([]models.TradeInProduct, error) {
	var rows []models.TradeInProduct
	for _, id := range ids {
		if base, ok := s.bases[id]; ok {
			rows = append(rows, models.TradeInProduct{ID: id, BaseDiscountAmount: decimal.RequireFromString(base), Active: true})
		}
	}
	return rows, nil
}

func (s *stubTradeInCatalog) FindConditionsByCodes(ctx context.Context, codes []string) ([]models.TradeInCondition, error) {
	var rows []models.TradeInCondition
	for _, code := range codes {
		if percent, ok := s.percents[code]; ok {
			rows = append(rows, models.TradeInCondition{Code: code, Percent: decimal.RequireFromString(percent)})
		}
	}
	return rows, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func codeOf(err error) pkgerrors.Code {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Code()
	}
	return ""
}

func newTestService(t *testing.T, repo *stubOrderRepo, products *stubProductCatalog, tradeIns *stubTradeInCatalog) Service {
	t.Helper()
	cache := orders.NewStatusCache()
	if err := cache.Refresh(context.Background(), repo); err != nil {
		t.Fatalf("refresh status cache: %v", err)
	}
	svc, err := NewService(repo, products, tradeIns, stubTxRunner{}, cache)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc
}

func baseInput() CreateOrderInput {
	return CreateOrderInput{
		ContactName:     "Dana Reyes",
		DeliveryAddress: "12 Harbor Lane",
		DeliveryPhone:   "+15550102",
		Items:           []CreateOrderItem{{ProductID: 1, Quantity: 2}},
		Actor:           orders.Actor{UserID: 7, Role: enums.RoleClient},
	}
}

func TestCreateOrderWithoutTradeIns(t *testing.T) {
	repo := &stubOrderRepo{}
	svc := newTestService(t, repo,
		&stubProductCatalog{prices: map[int64]string{1: "10.00"}},
		&stubTradeInCatalog{})

	result, err := svc.CreateOrder(context.Background(), baseInput())
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if result.OrderID != 42 {
		t.Fatalf("unexpected order id %d", result.OrderID)
	}
	if result.Status != enums.OrderStatusNew {
		t.Fatalf("expected new status, got %s", result.Status)
	}
	if !result.TotalItemsPrice.Equal(decimal.RequireFromString("20.00")) {
		t.Fatalf("expected items total 20.00, got %s", result.TotalItemsPrice)
	}
	if !result.TotalDiscount.IsZero() {
		t.Fatalf("expected zero discount, got %s", result.TotalDiscount)
	}
	if !result.TotalFinal.Equal(decimal.RequireFromString("20.00")) {
		t.Fatalf("expected final 20.00, got %s", result.TotalFinal)
	}

	if repo.created == nil || len(repo.created.Items) != 1 {
		t.Fatal("expected persisted order with one item line")
	}
	if len(repo.history) != 1 {
		t.Fatalf("expected creation history entry, got %d", len(repo.history))
	}
	if repo.history[0].ChangedBy == nil || *repo.history[0].ChangedBy != 7 {
		t.Fatalf("expected history changed_by 7, got %+v", repo.history[0].ChangedBy)
	}
	if repo.history[0].OldStatusID != nil {
		t.Fatal("creation entry must have no old status")
	}
}

func TestCreateOrderCapsAggregateDiscount(t *testing.T) {
	repo := &stubOrderRepo{}
	svc := newTestService(t, repo,
		&stubProductCatalog{prices: map[int64]string{1: "50.00"}},
		&stubTradeInCatalog{
			bases:    map[int64]string{5: "100.00"},
			percents: map[string]string{"good": "80.00"},
		})

	input := baseInput()
	input.Items = []CreateOrderItem{{ProductID: 1, Quantity: 1}}
	input.TradeIns = []CreateOrderTradeIn{{TradeInProductID: 5, ConditionCode: "good", Quantity: 1}}

	result, err := svc.CreateOrder(context.Background(), input)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}

	// Raw discount is 80.00 but the aggregate is capped at half of 50.00.
	if !result.TotalDiscount.Equal(decimal.RequireFromString("25.00")) {
		t.Fatalf("expected capped discount 25.00, got %s", result.TotalDiscount)
	}
	if !result.TotalFinal.Equal(decimal.RequireFromString("25.00")) {
		t.Fatalf("expected final 25.00, got %s", result.TotalFinal)
	}

	// The stored line keeps its uncapped amount.
	if len(repo.created.TradeIns) != 1 {
		t.Fatal("expected one trade-in line")
	}
	if !repo.created.TradeIns[0].DiscountAmount.Equal(decimal.RequireFromString("80.00")) {
		t.Fatalf("expected uncapped line amount 80.00, got %s", repo.created.TradeIns[0].DiscountAmount)
	}
}

func TestCreateOrderFoldsQuantityIntoTradeInAmount(t *testing.T) {
	repo := &stubOrderRepo{}
	svc := newTestService(t, repo,
		&stubProductCatalog{prices: map[int64]string{1: "500.00"}},
		&stubTradeInCatalog{
			bases:    map[int64]string{5: "50.00"},
			percents: map[string]string{"fair": "50.00"},
		})

	input := baseInput()
	input.TradeIns = []CreateOrderTradeIn{{TradeInProductID: 5, ConditionCode: "fair", Quantity: 3}}

	result, err := svc.CreateOrder(context.Background(), input)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	// 50.00 * 50% * 3 = 75.00, under the 500.00 cap.
	if !result.TotalDiscount.Equal(decimal.RequireFromString("75.00")) {
		t.Fatalf("expected discount 75.00, got %s", result.TotalDiscount)
	}
	if !repo.created.TradeIns[0].DiscountAmount.Equal(decimal.RequireFromString("75.00")) {
		t.Fatalf("expected line amount 75.00, got %s", repo.created.TradeIns[0].DiscountAmount)
	}
}

func TestCreateOrderUnknownProduct(t *testing.T) {
	svc := newTestService(t, &stubOrderRepo{},
		&stubProductCatalog{prices: map[int64]string{}},
		&stubTradeInCatalog{})

	_, err := svc.CreateOrder(context.Background(), baseInput())
	if codeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateOrderUnknownCondition(t *testing.T) {
	svc := newTestService(t, &stubOrderRepo{},
		&stubProductCatalog{prices: map[int64]string{1: "10.00"}},
		&stubTradeInCatalog{bases: map[int64]string{5: "100.00"}, percents: map[string]string{}})

	input := baseInput()
	input.TradeIns = []CreateOrderTradeIn{{TradeInProductID: 5, ConditionCode: "mint", Quantity: 1}}

	_, err := svc.CreateOrder(context.Background(), input)
	if codeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	svc := newTestService(t, &stubOrderRepo{},
		&stubProductCatalog{prices: map[int64]string{1: "10.00"}},
		&stubTradeInCatalog{})

	input := baseInput()
	input.Items = nil
	if _, err := svc.CreateOrder(context.Background(), input); codeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for empty items, got %v", err)
	}

	input = baseInput()
	input.DeliveryPhone = ""
	if _, err := svc.CreateOrder(context.Background(), input); codeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for missing phone, got %v", err)
	}

	input = baseInput()
	input.Items = []CreateOrderItem{{ProductID: 1, Quantity: 0}}
	if _, err := svc.CreateOrder(context.Background(), input); codeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for zero quantity, got %v", err)
	}

	input = baseInput()
	input.Actor.UserID = 0
	if _, err := svc.CreateOrder(context.Background(), input); codeOf(err) != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

type trackingTxRunner struct {
	open bool
}

func (r *trackingTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	r.open = true
	defer func() { r.open = false }()
	return fn(nil)
}

type txAwareProductCatalog struct {
	stubProductCatalog
	tx         *trackingTxRunner
	readInOpen bool
}

func (c *txAwareProductCatalog) FindActiveByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	c.readInOpen = c.tx.open
	return c.stubProductCatalog.FindActiveByIDs(ctx, ids)
}

type txAwareTradeInCatalog struct {
	stubTradeInCatalog
	tx         *trackingTxRunner
	readInOpen bool
}

func (c *txAwareTradeInCatalog) FindActiveProductsByIDs(ctx context.Context, ids []int64) ([]models.TradeInProduct, error) {
	c.readInOpen = c.tx.open
	return c.stubTradeInCatalog.FindActiveProductsByIDs(ctx, ids)
}

func TestCreateOrderPricesInsideTransaction(t *testing.T) {
	repo := &stubOrderRepo{}
	cache := orders.NewStatusCache()
	if err := cache.Refresh(context.Background(), repo); err != nil {
		t.Fatalf("refresh status cache: %v", err)
	}

	tx := &trackingTxRunner{}
	products := &txAwareProductCatalog{
		stubProductCatalog: stubProductCatalog{prices: map[int64]string{1: "10.00"}},
		tx:                 tx,
	}
	tradeIns := &txAwareTradeInCatalog{
		stubTradeInCatalog: stubTradeInCatalog{
			bases:    map[int64]string{5: "4.00"},
			percents: map[string]string{"mint": "100"},
		},
		tx: tx,
	}
	svc, err := NewService(repo, products, tradeIns, tx, cache)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}

	input := baseInput()
	input.TradeIns = []CreateOrderTradeIn{{TradeInProductID: 5, ConditionCode: "mint", Quantity: 1}}
	if _, err := svc.CreateOrder(context.Background(), input); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if !products.readInOpen {
		t.Fatal("product pricing must run inside the order transaction")
	}
	if !tradeIns.readInOpen {
		t.Fatal("trade-in pricing must run inside the order transaction")
	}
}
