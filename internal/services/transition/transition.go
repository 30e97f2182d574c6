package transition

import (
	"fmt"

	"github.com/Caskiuz/nemy-marketplace/internal/entities"
)

type FailureCode string

const (
	CodeInvalidTransition FailureCode = "invalid_transition"
	CodeForbidden         FailureCode = "forbidden"
	CodeNotOwner          FailureCode = "not_owner"
	CodeNotAssigned       FailureCode = "not_assigned"
)

// Error describes a rejected status change. It always carries the
// current and requested states so the caller can show them verbatim.
type Error struct {
	Code   FailureCode
	From   entities.OrderStatus
	To     entities.OrderStatus
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s -> %s: %s", e.Code, e.From, e.To, e.Reason)
}

// edges is the full forward transition graph. delivered and cancelled
// are terminal and have no outgoing edges. on_the_way and in_transit
// are alternate labels for the same en-route state and stay mutually
// reachable.
var edges = map[entities.OrderStatus][]entities.OrderStatus{
	entities.OrderStatusPending:   {entities.OrderStatusConfirmed, entities.OrderStatusCancelled},
	entities.OrderStatusConfirmed: {entities.OrderStatusPreparing, entities.OrderStatusCancelled},
	entities.OrderStatusPreparing: {entities.OrderStatusReady, entities.OrderStatusCancelled},
	entities.OrderStatusReady:     {entities.OrderStatusPickedUp, entities.OrderStatusCancelled},
	entities.OrderStatusPickedUp:  {entities.OrderStatusOnTheWay, entities.OrderStatusInTransit, entities.OrderStatusCancelled},
	entities.OrderStatusOnTheWay:  {entities.OrderStatusInTransit, entities.OrderStatusDelivered, entities.OrderStatusCancelled},
	entities.OrderStatusInTransit: {entities.OrderStatusOnTheWay, entities.OrderStatusDelivered, entities.OrderStatusCancelled},
}

// roleTargets lists the only states each non-admin role may request.
var roleTargets = map[entities.Role][]entities.OrderStatus{
	entities.RoleCustomer: {entities.OrderStatusCancelled},
	entities.RoleBusinessOwner: {
		entities.OrderStatusConfirmed,
		entities.OrderStatusPreparing,
		entities.OrderStatusReady,
		entities.OrderStatusCancelled,
	},
	entities.RoleDriver: {
		entities.OrderStatusPickedUp,
		entities.OrderStatusOnTheWay,
		entities.OrderStatusInTransit,
		entities.OrderStatusDelivered,
	},
}

// Request carries everything the validator needs to decide a status
// change. BusinessOwnerID is the owner of the business the order
// belongs to, resolved by the caller.
type Request struct {
	Order           entities.Order
	Target          entities.OrderStatus
	ActorID         string
	ActorRole       entities.Role
	BusinessOwnerID string
}

// Validate decides whether the requested status change is structurally
// valid and permitted for the acting role. Both checks must pass: the
// edge must exist in the transition graph, and the role must be allowed
// to request the target state. Ownership and assignment gates apply on
// top for business owners and drivers. Admin roles bypass everything
// but the structural edge check.
func Validate(req Request) error {
	current := req.Order.Status

	if !edgeExists(current, req.Target) {
		return &Error{
			Code:   CodeInvalidTransition,
			From:   current,
			To:     req.Target,
			Reason: fmt.Sprintf("order cannot move from %s to %s", current, req.Target),
		}
	}

	if req.ActorRole.IsAdmin() {
		return nil
	}

	if !targetAllowed(req.ActorRole, req.Target) {
		return &Error{
			Code:   CodeForbidden,
			From:   current,
			To:     req.Target,
			Reason: fmt.Sprintf("role %s may not set status %s", req.ActorRole, req.Target),
		}
	}

	switch req.ActorRole {
	case entities.RoleCustomer:
		return validateCustomer(req)
	case entities.RoleBusinessOwner:
		return validateBusinessOwner(req)
	case entities.RoleDriver:
		return validateDriver(req)
	}

	return &Error{
		Code:   CodeForbidden,
		From:   current,
		To:     req.Target,
		Reason: fmt.Sprintf("unknown role %s", req.ActorRole),
	}
}

// validateCustomer enforces the regret window: a customer may cancel
// their own order only while it is still pending, before any business
// action.
func validateCustomer(req Request) error {
	if req.Order.CustomerID != req.ActorID {
		return &Error{
			Code:   CodeForbidden,
			From:   req.Order.Status,
			To:     req.Target,
			Reason: "order belongs to another customer",
		}
	}

	if req.Order.Status != entities.OrderStatusPending {
		return &Error{
			Code:   CodeForbidden,
			From:   req.Order.Status,
			To:     req.Target,
			Reason: "orders can only be cancelled before the business confirms them",
		}
	}

	return nil
}

func validateBusinessOwner(req Request) error {
	if req.BusinessOwnerID != req.ActorID {
		return &Error{
			Code:   CodeNotOwner,
			From:   req.Order.Status,
			To:     req.Target,
			Reason: "order belongs to a business you do not own",
		}
	}

	return nil
}

// validateDriver checks assignment. The picked_up transition is the
// claim action: it is allowed with no driver assigned yet (assignment
// happens atomically in storage) or re-requested by the driver that
// already holds the claim. Every other driver transition requires the
// actor to be the assigned driver.
func validateDriver(req Request) error {
	assigned := req.Order.DeliveryPersonID.Valid && req.Order.DeliveryPersonID.String != ""

	if req.Target == entities.OrderStatusPickedUp {
		if assigned && req.Order.DeliveryPersonID.String != req.ActorID {
			return &Error{
				Code:   CodeNotAssigned,
				From:   req.Order.Status,
				To:     req.Target,
				Reason: "order is already claimed by another driver",
			}
		}

		return nil
	}

	if !assigned || req.Order.DeliveryPersonID.String != req.ActorID {
		return &Error{
			Code:   CodeNotAssigned,
			From:   req.Order.Status,
			To:     req.Target,
			Reason: "you are not the driver assigned to this order",
		}
	}

	return nil
}

func edgeExists(from, to entities.OrderStatus) bool {
	for _, target := range edges[from] {
		if target == to {
			return true
		}
	}

	return false
}

func targetAllowed(role entities.Role, target entities.OrderStatus) bool {
	for _, allowed := range roleTargets[role] {
		if allowed == target {
			return true
		}
	}

	return false
}
