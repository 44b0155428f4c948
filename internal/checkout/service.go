// Package checkout prices and persists new orders. Catalog prices and
// trade-in amounts are snapshotted onto the order lines so later catalog
// edits never change a placed order.
package checkout

import (
	"context"
	"fmt"

	"github.com/accordmusic/accord-backend/internal/orders"
	"github.com/accordmusic/accord-backend/pkg/db/models"
	"github.com/accordmusic/accord-backend/pkg/enums"
	pkgerrors "github.com/accordmusic/accord-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	oneHundred = decimal.NewFromInt(100)
	halfFactor = decimal.RequireFromString("0.5")
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productCatalog interface {
	FindActiveByIDs(ctx context.Context, ids []int64) ([]models.Product, error)
}

type tradeInCatalog interface {
	FindActiveProductsByIDs(ctx context.Context, ids []int64) ([]models.TradeInProduct, error)
	FindConditionsByCodes(ctx context.Context, codes []string) ([]models.TradeInCondition, error)
}

// CreateOrderItem is one requested purchase line.
type CreateOrderItem struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

// CreateOrderTradeIn is one requested trade-in line.
type CreateOrderTradeIn struct {
	TradeInProductID int64  `json:"trade_in_product_id" validate:"required,gt=0"`
	ConditionCode    string `json:"condition_code" validate:"required"`
	Quantity         int    `json:"quantity" validate:"required,gt=0"`
}

// CreateOrderInput carries everything needed to place an order.
type CreateOrderInput struct {
	ContactName     string
	DeliveryAddress string
	DeliveryPhone   string
	CommentClient   *string
	Items           []CreateOrderItem
	TradeIns        []CreateOrderTradeIn
	Actor           orders.Actor
}

// CreateOrderResult returns the persisted totals to the caller.
type CreateOrderResult struct {
	OrderID         int64             `json:"order_id"`
	Status          enums.OrderStatus `json:"status"`
	TotalItemsPrice decimal.Decimal   `json:"total_items_price"`
	TotalDiscount   decimal.Decimal   `json:"total_discount"`
	TotalFinal      decimal.Decimal   `json:"total_final"`
}

// Service places new orders.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error)
}

type service struct {
	ordersRepo orders.Repository
	products   productCatalog
	tradeIns   tradeInCatalog
	tx         txRunner
	statuses   *orders.StatusCache
}

// NewService builds the checkout service with the required dependencies.
func NewService(ordersRepo orders.Repository, products productCatalog, tradeIns tradeInCatalog, tx txRunner, statuses *orders.StatusCache) (Service, error) {
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product catalog required")
	}
	if tradeIns == nil {
		return nil, fmt.Errorf("trade-in catalog required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if statuses == nil {
		return nil, fmt.Errorf("status cache required")
	}
	return &service{
		ordersRepo: ordersRepo,
		products:   products,
		tradeIns:   tradeIns,
		tx:         tx,
		statuses:   statuses,
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error) {
	if input.Actor.UserID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ContactName == "" || input.DeliveryAddress == "" || input.DeliveryPhone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contact name, address and phone are required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}
	for _, item := range input.Items {
		if item.ProductID <= 0 || item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item product id and quantity must be positive")
		}
	}
	for _, tradeIn := range input.TradeIns {
		if tradeIn.TradeInProductID <= 0 || tradeIn.Quantity <= 0 || tradeIn.ConditionCode == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "trade-in lines require product, condition and positive quantity")
		}
	}

	statusID, ok := s.statuses.IDFor(enums.OrderStatusNew)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "order status map not loaded")
	}

	// Pricing and persistence run inside one transaction.
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		items, itemsTotal, err := s.priceItems(ctx, input.Items)
		if err != nil {
			return err
		}
		tradeIns, rawDiscount, err := s.priceTradeIns(ctx, input.TradeIns)
		if err != nil {
			return err
		}

		// The aggregate discount never exceeds half of the items total. Lines
		// keep their uncapped amounts; only the order total is capped.
		maxDiscount := itemsTotal.Mul(halfFactor).Round(2)
		discount := rawDiscount
		if discount.GreaterThan(maxDiscount) {
			discount = maxDiscount
		}

		order = &models.Order{
			UserID:          input.Actor.UserID,
			StatusID:        statusID,
			ContactName:     input.ContactName,
			DeliveryAddress: input.DeliveryAddress,
			DeliveryPhone:   input.DeliveryPhone,
			CommentClient:   input.CommentClient,
			TotalItemsPrice: itemsTotal,
			TotalDiscount:   discount,
			TotalFinal:      itemsTotal.Sub(discount),
			Items:           items,
			TradeIns:        tradeIns,
		}

		repo := s.ordersRepo.WithTx(tx)
		if _, err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		entry := &models.OrderStatusHistory{
			OrderID:     order.ID,
			NewStatusID: statusID,
			ChangedBy:   &input.Actor.UserID,
		}
		if err := repo.CreateStatusHistory(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &CreateOrderResult{
		OrderID:         order.ID,
		Status:          enums.OrderStatusNew,
		TotalItemsPrice: order.TotalItemsPrice,
		TotalDiscount:   order.TotalDiscount,
		TotalFinal:      order.TotalFinal,
	}, nil
}

func (s *service) priceItems(ctx context.Context, lines []CreateOrderItem) ([]models.OrderItem, decimal.Decimal, error) {
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	rows, err := s.products.FindActiveByIDs(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	priceByID := make(map[int64]decimal.Decimal, len(rows))
	for _, row := range rows {
		priceByID[row.ID] = row.Price
	}

	items := make([]models.OrderItem, 0, len(lines))
	total := decimal.Zero
	for _, line := range lines {
		price, ok := priceByID[line.ProductID]
		if !ok {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("product %d is unknown or inactive", line.ProductID))
		}
		subtotal := price.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2)
		items = append(items, models.OrderItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			PriceEach: price,
			Subtotal:  subtotal,
		})
		total = total.Add(subtotal)
	}
	return items, total, nil
}

func (s *service) priceTradeIns(ctx context.Context, lines []CreateOrderTradeIn) ([]models.OrderTradeIn, decimal.Decimal, error) {
	if len(lines) == 0 {
		return nil, decimal.Zero, nil
	}

	ids := make([]int64, 0, len(lines))
	codes := make([]string, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.TradeInProductID)
		codes = append(codes, line.ConditionCode)
	}

	productRows, err := s.tradeIns.FindActiveProductsByIDs(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load trade-in products")
	}
	baseByID := make(map[int64]decimal.Decimal, len(productRows))
	for _, row := range productRows {
		baseByID[row.ID] = row.BaseDiscountAmount
	}

	conditionRows, err := s.tradeIns.FindConditionsByCodes(ctx, codes)
	if err != nil {
		return nil, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load trade-in conditions")
	}
	percentByCode := make(map[string]decimal.Decimal, len(conditionRows))
	for _, row := range conditionRows {
		percentByCode[row.Code] = row.Percent
	}

	tradeIns := make([]models.OrderTradeIn, 0, len(lines))
	total := decimal.Zero
	for _, line := range lines {
		base, ok := baseByID[line.TradeInProductID]
		if !ok {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("trade-in product %d is unknown or inactive", line.TradeInProductID))
		}
		percent, ok := percentByCode[line.ConditionCode]
		if !ok {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("trade-in condition %q is unknown", line.ConditionCode))
		}

		// Quantity is folded into the stored amount; the line does not keep
		// a quantity column.
		amount := base.Mul(percent).Div(oneHundred).
			Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2)
		tradeIns = append(tradeIns, models.OrderTradeIn{
			ProductID:      line.TradeInProductID,
			ConditionCode:  line.ConditionCode,
			BaseAmount:     base,
			Percent:        percent,
			DiscountAmount: amount,
		})
		total = total.Add(amount)
	}
	return tradeIns, total, nil
}
