package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/accordmusic/accord-backend/pkg/db"
	"github.com/accordmusic/accord-backend/pkg/db/models"
	"github.com/accordmusic/accord-backend/pkg/enums"
	pkgerrors "github.com/accordmusic/accord-backend/pkg/errors"
	"github.com/accordmusic/accord-backend/pkg/pagination"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines the order lifecycle and read operations.
type Service interface {
	ChangeStatus(ctx context.Context, input ChangeStatusInput) (*ChangeStatusResult, error)
	ManagerTake(ctx context.Context, input ClaimInput) error
	MarkReady(ctx context.Context, input ClaimInput) error
	CancelByStaff(ctx context.Context, input CancelInput) error
	CourierTake(ctx context.Context, input ClaimInput) error
	CourierFinish(ctx context.Context, input ClaimInput) error

	ListMine(ctx context.Context, actor Actor, params pagination.Params) (*OrderList, error)
	ListManagerQueue(ctx context.Context, params pagination.Params) (*OrderList, error)
	ListManagerAssigned(ctx context.Context, actor Actor, params pagination.Params) (*OrderList, error)
	ListCourierQueue(ctx context.Context, params pagination.Params) (*OrderList, error)
	ListCourierAssigned(ctx context.Context, actor Actor, params pagination.Params) (*OrderList, error)
	ListAdmin(ctx context.Context, filters AdminOrderFilters, params pagination.Params) (*AdminOrderList, error)
	Detail(ctx context.Context, actor Actor, orderID int64) (*OrderDetail, error)
	History(ctx context.Context, actor Actor, orderID int64) ([]HistoryEntry, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	statuses *StatusCache
}

// NewService builds the order service with the required dependencies.
func NewService(repo Repository, tx txRunner, statuses *StatusCache) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if statuses == nil {
		return nil, fmt.Errorf("status cache required")
	}
	return &service{repo: repo, tx: tx, statuses: statuses}, nil
}

func (s *service) statusID(status enums.OrderStatus) (int64, error) {
	id, ok := s.statuses.IDFor(status)
	if !ok {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, "order status map not loaded")
	}
	return id, nil
}

func (s *service) statusFor(id int64) (enums.OrderStatus, error) {
	status, ok := s.statuses.StatusFor(id)
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "order references unknown status")
	}
	return status, nil
}

func validateActor(actor Actor) error {
	if actor.UserID <= 0 {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !actor.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user role missing")
	}
	return nil
}

// lockOrder loads the order row under FOR UPDATE and resolves its current
// status.
func (s *service) lockOrder(ctx context.Context, repo Repository, orderID int64) (*models.Order, enums.OrderStatus, error) {
	order, err := repo.FindForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	from, err := s.statusFor(order.StatusID)
	if err != nil {
		return nil, "", err
	}
	return order, from, nil
}

// transition updates the status column plus any extra fields and appends the
// history entry, all on the caller's transaction.
func (s *service) transition(ctx context.Context, repo Repository, order *models.Order, from, to enums.OrderStatus, changedBy *int64, note *string, extra map[string]any) error {
	toID, err := s.statusID(to)
	if err != nil {
		return err
	}

	updates := map[string]any{"status_id": toID}
	for column, value := range extra {
		updates[column] = value
	}
	if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}

	oldID := order.StatusID
	entry := &models.OrderStatusHistory{
		OrderID:     order.ID,
		OldStatusID: &oldID,
		NewStatusID: toID,
		ChangedBy:   changedBy,
		Note:        note,
	}
	if err := repo.CreateStatusHistory(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
	}
	return nil
}

// managerTakeLocked claims the manager slot and moves the order to preparing.
// Caller must hold the row lock.
func (s *service) managerTakeLocked(ctx context.Context, repo Repository, order *models.Order, from enums.OrderStatus, actor Actor, note *string) error {
	if from != enums.OrderStatusNew {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order can only be taken while new")
	}
	claim, err := repo.FindActiveAssignment(ctx, order.ID, enums.AssignmentSlotManager)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check manager claim")
	}
	if claim != nil {
		return pkgerrors.New(pkgerrors.CodeConflict, "order already taken by another manager")
	}
	if _, err := repo.CreateAssignment(ctx, &models.OrderAssignment{
		OrderID:    order.ID,
		UserRoleID: enums.AssignmentSlotManager.Code(),
		UserID:     actor.UserID,
		Active:     true,
	}); err != nil {
		// The partial unique index backstops the claim check above.
		if db.IsUniqueViolation(err, "idx_order_assignments_active_slot") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order already taken by another manager")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create manager claim")
	}
	return s.transition(ctx, repo, order, from, enums.OrderStatusPreparing, &actor.UserID, note, nil)
}

// markReadyLocked moves a preparing order to ready. Only the assigned manager
// may do so; admins bypass the holder check but an active claim must exist.
func (s *service) markReadyLocked(ctx context.Context, repo Repository, order *models.Order, from enums.OrderStatus, actor Actor, note *string) error {
	if from != enums.OrderStatusPreparing {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not being prepared")
	}
	claim, err := repo.FindActiveAssignment(ctx, order.ID, enums.AssignmentSlotManager)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check manager claim")
	}
	if claim == nil {
		return pkgerrors.New(pkgerrors.CodeConflict, "order has no assigned manager")
	}
	if actor.Role != enums.RoleAdmin && claim.UserID != actor.UserID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "order is assigned to another manager")
	}
	return s.transition(ctx, repo, order, from, enums.OrderStatusReady, &actor.UserID, note, nil)
}

// courierTakeLocked claims the courier slot and moves the order to delivering.
func (s *service) courierTakeLocked(ctx context.Context, repo Repository, order *models.Order, from enums.OrderStatus, actor Actor, note *string) error {
	if from != enums.OrderStatusReady {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not ready for delivery")
	}
	if order.DeliveryPhone == "" {
		return pkgerrors.New(pkgerrors.CodeConflict, "order has no delivery phone")
	}
	claim, err := repo.FindActiveAssignment(ctx, order.ID, enums.AssignmentSlotCourier)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check courier claim")
	}
	if claim != nil {
		return pkgerrors.New(pkgerrors.CodeConflict, "order already taken by another courier")
	}
	if _, err := repo.CreateAssignment(ctx, &models.OrderAssignment{
		OrderID:    order.ID,
		UserRoleID: enums.AssignmentSlotCourier.Code(),
		UserID:     actor.UserID,
		Active:     true,
	}); err != nil {
		if db.IsUniqueViolation(err, "idx_order_assignments_active_slot") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order already taken by another courier")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create courier claim")
	}
	now := time.Now().UTC()
	return s.transition(ctx, repo, order, from, enums.OrderStatusDelivering, &actor.UserID, note,
		map[string]any{"courier_taken_at": now})
}

// courierFinishLocked completes a delivery. Only the assigned courier may
// finish; there is no admin bypass because delivery confirmation belongs to
// whoever physically holds the order.
func (s *service) courierFinishLocked(ctx context.Context, repo Repository, order *models.Order, from enums.OrderStatus, actor Actor, note *string) error {
	if from != enums.OrderStatusDelivering {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not out for delivery")
	}
	claim, err := repo.FindActiveAssignment(ctx, order.ID, enums.AssignmentSlotCourier)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check courier claim")
	}
	if claim == nil {
		return pkgerrors.New(pkgerrors.CodeConflict, "order has no assigned courier")
	}
	if claim.UserID != actor.UserID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "order is assigned to another courier")
	}
	now := time.Now().UTC()
	if err := repo.DeactivateAssignment(ctx, claim.ID, now); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release courier claim")
	}
	return s.transition(ctx, repo, order, from, enums.OrderStatusFinished, &actor.UserID, note,
		map[string]any{"delivered_at": now})
}

// cancelLocked moves the order to canceled, records the reason and releases
// any active manager claim.
func (s *service) cancelLocked(ctx context.Context, repo Repository, order *models.Order, from enums.OrderStatus, actor Actor, reason *string) error {
	if !CanCancelFrom(from) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be canceled")
	}
	claim, err := repo.FindActiveAssignment(ctx, order.ID, enums.AssignmentSlotManager)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check manager claim")
	}
	if claim != nil {
		if err := repo.DeactivateAssignment(ctx, claim.ID, time.Now().UTC()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release manager claim")
		}
	}
	extra := map[string]any{"canceled_reason": reason}
	return s.transition(ctx, repo, order, from, enums.OrderStatusCanceled, &actor.UserID, reason, extra)
}

func (s *service) ChangeStatus(ctx context.Context, input ChangeStatusInput) (*ChangeStatusResult, error) {
	if input.OrderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unknown target status")
	}
	if err := validateActor(input.Actor); err != nil {
		return nil, err
	}

	var result ChangeStatusResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, from, err := s.lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		result = ChangeStatusResult{From: from, To: input.Target}

		// Clients only ever see their own orders; a foreign order id must
		// stay indistinguishable from a missing one.
		if input.Actor.Role == enums.RoleClient && order.UserID != input.Actor.UserID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}

		if from == input.Target {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order already in requested status")
		}

		if input.Target == enums.OrderStatusCanceled {
			// Only the owning client cancels through this endpoint; staff
			// cancels go through the dedicated operation so a reason is
			// always recorded.
			if input.Actor.Role != enums.RoleClient {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "staff cancel requires the manager cancel operation")
			}
			return s.cancelLocked(ctx, repo, order, from, input.Actor, input.Note)
		}

		if input.Actor.Role == enums.RoleClient {
			return pkgerrors.New(pkgerrors.CodeForbidden, "clients cannot advance orders")
		}

		slot, ok := SlotForTransition(from, input.Target)
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("transition %s to %s is not allowed", from, input.Target))
		}
		if !RoleOwnsTransition(input.Actor.Role, from, input.Target) {
			return pkgerrors.New(pkgerrors.CodeForbidden,
				fmt.Sprintf("role %s cannot perform this transition", input.Actor.Role))
		}

		switch {
		case slot == enums.AssignmentSlotManager && from == enums.OrderStatusNew:
			return s.managerTakeLocked(ctx, repo, order, from, input.Actor, input.Note)
		case slot == enums.AssignmentSlotManager:
			return s.markReadyLocked(ctx, repo, order, from, input.Actor, input.Note)
		case slot == enums.AssignmentSlotCourier && from == enums.OrderStatusReady:
			return s.courierTakeLocked(ctx, repo, order, from, input.Actor, input.Note)
		default:
			return s.courierFinishLocked(ctx, repo, order, from, input.Actor, input.Note)
		}
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *service) ManagerTake(ctx context.Context, input ClaimInput) error {
	if input.OrderID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if err := validateActor(input.Actor); err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, from, err := s.lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		return s.managerTakeLocked(ctx, repo, order, from, input.Actor, nil)
	})
}

func (s *service) MarkReady(ctx context.Context, input ClaimInput) error {
	if input.OrderID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if err := validateActor(input.Actor); err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, from, err := s.lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		return s.markReadyLocked(ctx, repo, order, from, input.Actor, nil)
	})
}

func (s *service) CancelByStaff(ctx context.Context, input CancelInput) error {
	if input.OrderID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Reason == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "cancel reason required")
	}
	if err := validateActor(input.Actor); err != nil {
		return err
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, from, err := s.lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if from == enums.OrderStatusCanceled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order already canceled")
		}

		if input.Actor.Role == enums.RoleManager {
			claim, err := repo.FindActiveAssignment(ctx, order.ID, enums.AssignmentSlotManager)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check manager claim")
			}
			// Managers may cancel fresh orders straight from the queue, but
			// once claimed only the holder may cancel.
			if claim != nil && claim.UserID != input.Actor.UserID {
				return pkgerrors.New(pkgerrors.CodeForbidden, "order is assigned to another manager")
			}
		}

		reason := input.Reason
		return s.cancelLocked(ctx, repo, order, from, input.Actor, &reason)
	})
}

func (s *service) CourierTake(ctx context.Context, input ClaimInput) error {
	if input.OrderID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if err := validateActor(input.Actor); err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, from, err := s.lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		return s.courierTakeLocked(ctx, repo, order, from, input.Actor, nil)
	})
}

func (s *service) CourierFinish(ctx context.Context, input ClaimInput) error {
	if input.OrderID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if err := validateActor(input.Actor); err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, from, err := s.lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		return s.courierFinishLocked(ctx, repo, order, from, input.Actor, nil)
	})
}

func (s *service) ListMine(ctx context.Context, actor Actor, params pagination.Params) (*OrderList, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	list, err := s.repo.ListByUser(ctx, actor.UserID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

func (s *service) ListManagerQueue(ctx context.Context, params pagination.Params) (*OrderList, error) {
	statusID, err := s.statusID(enums.OrderStatusNew)
	if err != nil {
		return nil, err
	}
	list, err := s.repo.ListQueue(ctx, enums.AssignmentSlotManager, statusID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list manager queue")
	}
	return list, nil
}

func (s *service) ListManagerAssigned(ctx context.Context, actor Actor, params pagination.Params) (*OrderList, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	// Admins see every actively managed order, managers only their own claims.
	var (
		list *OrderList
		err  error
	)
	if actor.Role == enums.RoleAdmin {
		list, err = s.repo.ListAssignedAny(ctx, enums.AssignmentSlotManager, params)
	} else {
		list, err = s.repo.ListAssigned(ctx, actor.UserID, enums.AssignmentSlotManager, params)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list manager orders")
	}
	return list, nil
}

func (s *service) ListCourierQueue(ctx context.Context, params pagination.Params) (*OrderList, error) {
	statusID, err := s.statusID(enums.OrderStatusReady)
	if err != nil {
		return nil, err
	}
	list, err := s.repo.ListQueue(ctx, enums.AssignmentSlotCourier, statusID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list courier queue")
	}
	return list, nil
}

func (s *service) ListCourierAssigned(ctx context.Context, actor Actor, params pagination.Params) (*OrderList, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	list, err := s.repo.ListAssigned(ctx, actor.UserID, enums.AssignmentSlotCourier, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list courier orders")
	}
	return list, nil
}

func (s *service) ListAdmin(ctx context.Context, filters AdminOrderFilters, params pagination.Params) (*AdminOrderList, error) {
	var statusID *int64
	if filters.Status != nil {
		id, err := s.statusID(*filters.Status)
		if err != nil {
			return nil, err
		}
		statusID = &id
	}
	list, err := s.repo.ListAdmin(ctx, filters, statusID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list admin orders")
	}
	return list, nil
}

// canView decides whether the actor may read the order detail and history.
// Clients see only their own orders (hidden as not-found otherwise). Staff
// see orders they hold a claim on, plus their unclaimed queue.
func (s *service) canView(ctx context.Context, actor Actor, detail *OrderDetail) error {
	switch actor.Role {
	case enums.RoleAdmin:
		return nil
	case enums.RoleClient:
		if detail.ClientID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil
	case enums.RoleManager:
		claim, err := s.repo.FindActiveAssignment(ctx, detail.OrderID, enums.AssignmentSlotManager)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check manager claim")
		}
		if claim != nil && claim.UserID == actor.UserID {
			return nil
		}
		if claim == nil && detail.Status == enums.OrderStatusNew {
			return nil
		}
		return pkgerrors.New(pkgerrors.CodeForbidden, "order is not assigned to you")
	case enums.RoleCourier:
		claim, err := s.repo.FindActiveAssignment(ctx, detail.OrderID, enums.AssignmentSlotCourier)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check courier claim")
		}
		if claim != nil && claim.UserID == actor.UserID {
			return nil
		}
		if claim == nil && detail.Status == enums.OrderStatusReady {
			return nil
		}
		return pkgerrors.New(pkgerrors.CodeForbidden, "order is not assigned to you")
	default:
		return pkgerrors.New(pkgerrors.CodeForbidden, "unknown role")
	}
}

func (s *service) Detail(ctx context.Context, actor Actor, orderID int64) (*OrderDetail, error) {
	if orderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if err := validateActor(actor); err != nil {
		return nil, err
	}

	detail, err := s.repo.FindDetail(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order detail")
	}
	if err := s.canView(ctx, actor, detail); err != nil {
		return nil, err
	}
	if actor.Role == enums.RoleClient {
		detail.CommentInternal = nil
	}
	return detail, nil
}

func (s *service) History(ctx context.Context, actor Actor, orderID int64) ([]HistoryEntry, error) {
	if orderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if err := validateActor(actor); err != nil {
		return nil, err
	}

	detail, err := s.repo.FindDetail(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order detail")
	}
	if err := s.canView(ctx, actor, detail); err != nil {
		return nil, err
	}

	rows, err := s.repo.ListHistory(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order history")
	}

	entries := make([]HistoryEntry, 0, len(rows))
	for _, row := range rows {
		newStatus, err := s.statusFor(row.NewStatusID)
		if err != nil {
			return nil, err
		}
		var oldStatus *enums.OrderStatus
		if row.OldStatusID != nil {
			status, err := s.statusFor(*row.OldStatusID)
			if err != nil {
				return nil, err
			}
			oldStatus = &status
		}
		entries = append(entries, HistoryEntry{
			OldStatus: oldStatus,
			NewStatus: newStatus,
			ChangedBy: row.ChangedBy,
			Note:      row.Note,
			ChangedAt: row.ChangedAt,
		})
	}
	return entries, nil
}
