package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/Caskiuz/nemy-marketplace/internal/entities"
	"github.com/Caskiuz/nemy-marketplace/internal/metrics"
	"github.com/Caskiuz/nemy-marketplace/internal/notifier"
	"github.com/Caskiuz/nemy-marketplace/internal/services/commission"
	"github.com/Caskiuz/nemy-marketplace/internal/services/transition"
	"github.com/Caskiuz/nemy-marketplace/internal/storage"
	"go.uber.org/zap"
)

// ErrConflictAlreadyAssigned is returned when a driver loses the claim
// race for a ready order.
var ErrConflictAlreadyAssigned = errors.New("order already claimed by another driver")

// ErrStateChanged is returned when the order moved concurrently and the
// requested transition no longer applies.
var ErrStateChanged = errors.New("order state changed, retry with current status")

// Storage is the slice of the storage layer the engine drives.
type Storage interface {
	GetOrderByNumber(context.Context, string) (entities.Order, error)
	GetBusiness(context.Context, string) (entities.Business, error)
	UpdateOrderStatus(context.Context, string, entities.OrderStatus, entities.OrderStatus) error
	ClaimOrder(context.Context, string, string) error
	SettleOrder(context.Context, string, func(entities.Order) commission.Settlement) (entities.Order, []entities.Transaction, error)
}

// Publisher receives status-change events after a transition commits.
type Publisher interface {
	Publish(notifier.Event)
}

// Summary reports the outcome of a transition. The money fields are
// populated only when the transition settled the order (or found it
// already settled).
type Summary struct {
	OrderID          string
	OrderNumber      string
	OldStatus        entities.OrderStatus
	NewStatus        entities.OrderStatus
	PlatformFee      int64
	BusinessEarnings int64
	DeliveryEarnings int64
	CashOwed         int64
	Settled          bool
	AlreadySettled   bool
	Entries          []entities.Transaction
}

// Engine is the single authoritative path for order status changes:
// every transition goes through the validator, claims go through the
// storage compare-and-swap, and entering delivered runs the one
// idempotent settlement. Nothing else in the system writes earnings
// or posts settlement ledger entries.
type Engine struct {
	storage Storage
	events  Publisher
	metrics *metrics.Metrics
}

func NewEngine(storage Storage, events Publisher, metrics *metrics.Metrics) *Engine {
	return &Engine{
		storage: storage,
		events:  events,
		metrics: metrics,
	}
}

// Transition validates and applies a status change requested by
// (actorID, actorRole) on the order identified by its public number.
func (e *Engine) Transition(ctx context.Context, actorID string, actorRole entities.Role, orderNumber string, target entities.OrderStatus) (Summary, error) {
	order, err := e.storage.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		return Summary{}, err
	}

	// A retried delivery request on an already-settled order is
	// informational: hand back the prior summary without re-posting
	// anything. Only the assigned driver or an admin gets it.
	if target == entities.OrderStatusDelivered && order.Status == entities.OrderStatusDelivered && order.Settled() {
		assigned := order.DeliveryPersonID.Valid && order.DeliveryPersonID.String == actorID
		if actorRole.IsAdmin() || (actorRole == entities.RoleDriver && assigned) {
			e.countSettlement(order.PaymentMethod, "duplicate")
			return summaryFromSettledOrder(order.Status, order, nil, true), nil
		}
	}

	request := transition.Request{
		Order:     order,
		Target:    target,
		ActorID:   actorID,
		ActorRole: actorRole,
	}

	if actorRole == entities.RoleBusinessOwner {
		business, err := e.storage.GetBusiness(ctx, order.BusinessID)
		if err != nil {
			return Summary{}, fmt.Errorf("resolve business owner: %w", err)
		}

		request.BusinessOwnerID = business.OwnerID
	}

	if err := transition.Validate(request); err != nil {
		e.count(order.Status, target, "rejected")
		return Summary{}, err
	}

	summary, err := e.apply(ctx, order, target, actorID, actorRole)
	if err != nil {
		e.count(order.Status, target, "failed")
		return Summary{}, err
	}

	e.count(order.Status, target, "ok")
	e.events.Publish(notifier.NewEvent(order.ID, order.Number, summary.OldStatus, summary.NewStatus))

	return summary, nil
}

func (e *Engine) apply(ctx context.Context, order entities.Order, target entities.OrderStatus, actorID string, actorRole entities.Role) (Summary, error) {
	switch {
	case target == entities.OrderStatusDelivered:
		return e.settle(ctx, order)
	case target == entities.OrderStatusPickedUp && actorRole == entities.RoleDriver:
		return e.claim(ctx, order, actorID)
	default:
		if err := e.storage.UpdateOrderStatus(ctx, order.ID, order.Status, target); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				return Summary{}, ErrStateChanged
			}

			return Summary{}, err
		}

		return Summary{
			OrderID:     order.ID,
			OrderNumber: order.Number,
			OldStatus:   order.Status,
			NewStatus:   target,
		}, nil
	}
}

// claim is the driver-accepts-order action: assignment and the move to
// picked_up happen in one compare-and-swap, so exactly one of two
// racing drivers wins and the loser gets a conflict.
func (e *Engine) claim(ctx context.Context, order entities.Order, driverID string) (Summary, error) {
	if err := e.storage.ClaimOrder(ctx, order.ID, driverID); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return Summary{}, ErrConflictAlreadyAssigned
		}

		return Summary{}, err
	}

	return Summary{
		OrderID:     order.ID,
		OrderNumber: order.Number,
		OldStatus:   order.Status,
		NewStatus:   entities.OrderStatusPickedUp,
	}, nil
}

// settle runs the atomic settlement. A re-triggered settlement returns
// the summary rebuilt from the order's persisted earnings fields rather
// than replaying the calculator, so past settlements stay stable even
// if the commission rules ever change.
func (e *Engine) settle(ctx context.Context, order entities.Order) (Summary, error) {
	settled, entries, err := e.storage.SettleOrder(ctx, order.ID, commission.Compute)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadySettled) {
			zap.L().Info("settlement already completed, returning prior summary",
				zap.String("order", order.Number),
			)
			e.countSettlement(order.PaymentMethod, "duplicate")

			return summaryFromSettledOrder(order.Status, settled, nil, true), nil
		}

		if errors.Is(err, storage.ErrConflict) {
			e.countSettlement(order.PaymentMethod, "conflict")
			return Summary{}, ErrStateChanged
		}

		e.countSettlement(order.PaymentMethod, "error")

		return Summary{}, err
	}

	e.countSettlement(order.PaymentMethod, "ok")

	return summaryFromSettledOrder(order.Status, settled, entries, false), nil
}

func summaryFromSettledOrder(oldStatus entities.OrderStatus, order entities.Order, entries []entities.Transaction, alreadySettled bool) Summary {
	summary := Summary{
		OrderID:          order.ID,
		OrderNumber:      order.Number,
		OldStatus:        oldStatus,
		NewStatus:        entities.OrderStatusDelivered,
		PlatformFee:      order.PlatformFee.Int64,
		BusinessEarnings: order.BusinessEarnings.Int64,
		DeliveryEarnings: order.DeliveryEarnings.Int64,
		Settled:          true,
		AlreadySettled:   alreadySettled,
		Entries:          entries,
	}

	if order.PaymentMethod == entities.PaymentMethodCash {
		summary.CashOwed = order.Total - order.DeliveryEarnings.Int64
	}

	return summary
}

func (e *Engine) count(from, to entities.OrderStatus, outcome string) {
	if e.metrics != nil {
		e.metrics.Transitions.WithLabelValues(string(from), string(to), outcome).Inc()
	}
}

func (e *Engine) countSettlement(method entities.PaymentMethod, outcome string) {
	if e.metrics != nil {
		e.metrics.Settlements.WithLabelValues(string(method), outcome).Inc()
	}
}
