package transition

import (
	"database/sql"
	"testing"

	"github.com/Caskiuz/nemy-marketplace/internal/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderWith(status entities.OrderStatus) entities.Order {
	return entities.Order{
		ID:         "order-1",
		Number:     "4532015112830366",
		CustomerID: "customer-1",
		BusinessID: "business-1",
		Status:     status,
	}
}

func assigned(order entities.Order, driverID string) entities.Order {
	order.DeliveryPersonID = sql.NullString{String: driverID, Valid: true}
	return order
}

func TestValidateGraph(t *testing.T) {
	allStatuses := []entities.OrderStatus{
		entities.OrderStatusPending,
		entities.OrderStatusConfirmed,
		entities.OrderStatusPreparing,
		entities.OrderStatusReady,
		entities.OrderStatusPickedUp,
		entities.OrderStatusOnTheWay,
		entities.OrderStatusInTransit,
		entities.OrderStatusDelivered,
		entities.OrderStatusCancelled,
	}

	validEdges := map[entities.OrderStatus][]entities.OrderStatus{
		entities.OrderStatusPending:   {entities.OrderStatusConfirmed, entities.OrderStatusCancelled},
		entities.OrderStatusConfirmed: {entities.OrderStatusPreparing, entities.OrderStatusCancelled},
		entities.OrderStatusPreparing: {entities.OrderStatusReady, entities.OrderStatusCancelled},
		entities.OrderStatusReady:     {entities.OrderStatusPickedUp, entities.OrderStatusCancelled},
		entities.OrderStatusPickedUp:  {entities.OrderStatusOnTheWay, entities.OrderStatusInTransit, entities.OrderStatusCancelled},
		entities.OrderStatusOnTheWay:  {entities.OrderStatusInTransit, entities.OrderStatusDelivered, entities.OrderStatusCancelled},
		entities.OrderStatusInTransit: {entities.OrderStatusOnTheWay, entities.OrderStatusDelivered, entities.OrderStatusCancelled},
	}

	isValidEdge := func(from, to entities.OrderStatus) bool {
		for _, target := range validEdges[from] {
			if target == to {
				return true
			}
		}
		return false
	}

	// Admin bypasses every role gate, so validation over all pairs must
	// agree exactly with the structural graph.
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			err := Validate(Request{
				Order:     orderWith(from),
				Target:    to,
				ActorID:   "admin-1",
				ActorRole: entities.RoleAdmin,
			})

			if isValidEdge(from, to) {
				assert.NoError(t, err, "%s -> %s should be a valid edge", from, to)
			} else {
				var transitionErr *Error
				require.ErrorAs(t, err, &transitionErr, "%s -> %s should be rejected", from, to)
				assert.Equal(t, CodeInvalidTransition, transitionErr.Code)
				assert.Equal(t, from, transitionErr.From)
				assert.Equal(t, to, transitionErr.To)
			}
		}
	}
}

func TestValidateTerminalStates(t *testing.T) {
	for _, terminal := range []entities.OrderStatus{entities.OrderStatusDelivered, entities.OrderStatusCancelled} {
		for _, to := range []entities.OrderStatus{entities.OrderStatusPending, entities.OrderStatusConfirmed, entities.OrderStatusDelivered, entities.OrderStatusCancelled} {
			err := Validate(Request{
				Order:     orderWith(terminal),
				Target:    to,
				ActorID:   "admin-1",
				ActorRole: entities.RoleSuperAdmin,
			})

			assert.Error(t, err, "terminal state %s must have no outgoing edge to %s", terminal, to)
		}
	}
}

func TestValidateRoles(t *testing.T) {
	tests := []struct {
		name     string
		request  Request
		wantCode FailureCode
	}{
		{
			name: "customer cancels own pending order",
			request: Request{
				Order:     orderWith(entities.OrderStatusPending),
				Target:    entities.OrderStatusCancelled,
				ActorID:   "customer-1",
				ActorRole: entities.RoleCustomer,
			},
		},
		{
			name: "customer cannot cancel after confirmation",
			request: Request{
				Order:     orderWith(entities.OrderStatusConfirmed),
				Target:    entities.OrderStatusCancelled,
				ActorID:   "customer-1",
				ActorRole: entities.RoleCustomer,
			},
			wantCode: CodeForbidden,
		},
		{
			name: "customer cannot cancel another customer's order",
			request: Request{
				Order:     orderWith(entities.OrderStatusPending),
				Target:    entities.OrderStatusCancelled,
				ActorID:   "customer-2",
				ActorRole: entities.RoleCustomer,
			},
			wantCode: CodeForbidden,
		},
		{
			name: "customer cannot confirm",
			request: Request{
				Order:     orderWith(entities.OrderStatusPending),
				Target:    entities.OrderStatusConfirmed,
				ActorID:   "customer-1",
				ActorRole: entities.RoleCustomer,
			},
			wantCode: CodeForbidden,
		},
		{
			name: "business owner confirms own order",
			request: Request{
				Order:           orderWith(entities.OrderStatusPending),
				Target:          entities.OrderStatusConfirmed,
				ActorID:         "owner-1",
				ActorRole:       entities.RoleBusinessOwner,
				BusinessOwnerID: "owner-1",
			},
		},
		{
			name: "business owner blocked on foreign business",
			request: Request{
				Order:           orderWith(entities.OrderStatusPending),
				Target:          entities.OrderStatusConfirmed,
				ActorID:         "owner-2",
				ActorRole:       entities.RoleBusinessOwner,
				BusinessOwnerID: "owner-1",
			},
			wantCode: CodeNotOwner,
		},
		{
			name: "business owner cannot mark delivered",
			request: Request{
				Order:           assigned(orderWith(entities.OrderStatusOnTheWay), "driver-1"),
				Target:          entities.OrderStatusDelivered,
				ActorID:         "owner-1",
				ActorRole:       entities.RoleBusinessOwner,
				BusinessOwnerID: "owner-1",
			},
			wantCode: CodeForbidden,
		},
		{
			name: "driver claims unassigned ready order",
			request: Request{
				Order:     orderWith(entities.OrderStatusReady),
				Target:    entities.OrderStatusPickedUp,
				ActorID:   "driver-1",
				ActorRole: entities.RoleDriver,
			},
		},
		{
			name: "driver cannot claim an order held by another driver",
			request: Request{
				Order:     assigned(orderWith(entities.OrderStatusReady), "driver-1"),
				Target:    entities.OrderStatusPickedUp,
				ActorID:   "driver-2",
				ActorRole: entities.RoleDriver,
			},
			wantCode: CodeNotAssigned,
		},
		{
			name: "assigned driver moves en route",
			request: Request{
				Order:     assigned(orderWith(entities.OrderStatusPickedUp), "driver-1"),
				Target:    entities.OrderStatusOnTheWay,
				ActorID:   "driver-1",
				ActorRole: entities.RoleDriver,
			},
		},
		{
			name: "unassigned driver cannot mark delivered",
			request: Request{
				Order:     assigned(orderWith(entities.OrderStatusOnTheWay), "driver-1"),
				Target:    entities.OrderStatusDelivered,
				ActorID:   "driver-2",
				ActorRole: entities.RoleDriver,
			},
			wantCode: CodeNotAssigned,
		},
		{
			name: "driver cannot cancel",
			request: Request{
				Order:     assigned(orderWith(entities.OrderStatusPickedUp), "driver-1"),
				Target:    entities.OrderStatusCancelled,
				ActorID:   "driver-1",
				ActorRole: entities.RoleDriver,
			},
			wantCode: CodeForbidden,
		},
		{
			name: "en route labels stay mutually reachable",
			request: Request{
				Order:     assigned(orderWith(entities.OrderStatusInTransit), "driver-1"),
				Target:    entities.OrderStatusOnTheWay,
				ActorID:   "driver-1",
				ActorRole: entities.RoleDriver,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.request)

			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}

			var transitionErr *Error
			require.ErrorAs(t, err, &transitionErr)
			assert.Equal(t, tt.wantCode, transitionErr.Code)
			assert.NotEmpty(t, transitionErr.Reason)
		})
	}
}
