package orders

import (
	"context"
	"time"

	"github.com/accordmusic/accord-backend/pkg/db/models"
	"github.com/accordmusic/accord-backend/pkg/enums"
	"github.com/accordmusic/accord-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Repository defines persistence operations for the order tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id int64) (*models.Order, error)
	// FindForUpdate loads the order row under a FOR UPDATE lock. Must be
	// called inside a transaction.
	FindForUpdate(ctx context.Context, id int64) (*models.Order, error)
	UpdateOrder(ctx context.Context, id int64, updates map[string]any) error

	CreateStatusHistory(ctx context.Context, entry *models.OrderStatusHistory) error
	ListHistory(ctx context.Context, orderID int64) ([]models.OrderStatusHistory, error)

	CreateAssignment(ctx context.Context, assignment *models.OrderAssignment) (*models.OrderAssignment, error)
	FindActiveAssignment(ctx context.Context, orderID int64, slot enums.AssignmentSlot) (*models.OrderAssignment, error)
	DeactivateAssignment(ctx context.Context, assignmentID int64, at time.Time) error

	ListStatuses(ctx context.Context) ([]models.OrderStatusRow, error)

	ListByUser(ctx context.Context, userID int64, params pagination.Params) (*OrderList, error)
	// ListQueue returns orders sitting in the given status with no active
	// assignment for the slot.
	ListQueue(ctx context.Context, slot enums.AssignmentSlot, statusID int64, params pagination.Params) (*OrderList, error)
	// ListAssigned returns orders the user holds an active claim on for the
	// slot.
	ListAssigned(ctx context.Context, userID int64, slot enums.AssignmentSlot, params pagination.Params) (*OrderList, error)
	// ListAssignedAny returns orders with an active claim on the slot
	// regardless of who holds it.
	ListAssignedAny(ctx context.Context, slot enums.AssignmentSlot, params pagination.Params) (*OrderList, error)
	ListAdmin(ctx context.Context, filters AdminOrderFilters, statusID *int64, params pagination.Params) (*AdminOrderList, error)
	FindDetail(ctx context.Context, orderID int64) (*OrderDetail, error)
}
