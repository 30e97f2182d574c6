package settlement

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/Caskiuz/nemy-marketplace/internal/entities"
	"github.com/Caskiuz/nemy-marketplace/internal/metrics"
	"github.com/Caskiuz/nemy-marketplace/internal/notifier"
	"github.com/Caskiuz/nemy-marketplace/internal/services/commission"
	"github.com/Caskiuz/nemy-marketplace/internal/services/transition"
	"github.com/Caskiuz/nemy-marketplace/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type walletState struct {
	balance     int64
	cashOwed    int64
	totalEarned int64
}

// mockStorage mirrors the transactional behavior of PostgresStorage:
// the settle path is all-or-nothing, claims are compare-and-swap and a
// settled order answers ErrAlreadySettled with its current row.
type mockStorage struct {
	order    entities.Order
	business entities.Business

	staleClaim  bool
	settleCalls int
	entries     []entities.Transaction
	wallets     map[string]*walletState
}

func newMockStorage(order entities.Order) *mockStorage {
	return &mockStorage{
		order:    order,
		business: entities.Business{ID: order.BusinessID, OwnerID: "owner-1"},
		wallets:  map[string]*walletState{},
	}
}

func (m *mockStorage) GetOrderByNumber(_ context.Context, number string) (entities.Order, error) {
	if number != m.order.Number {
		return entities.Order{}, storage.ErrNoRows
	}

	return m.order, nil
}

func (m *mockStorage) GetBusiness(_ context.Context, id string) (entities.Business, error) {
	if id != m.business.ID {
		return entities.Business{}, storage.ErrNoRows
	}

	return m.business, nil
}

func (m *mockStorage) UpdateOrderStatus(_ context.Context, orderID string, from, to entities.OrderStatus) error {
	if m.order.ID != orderID || m.order.Status != from {
		return storage.ErrConflict
	}

	m.order.Status = to
	return nil
}

func (m *mockStorage) ClaimOrder(_ context.Context, orderID string, driverID string) error {
	if m.staleClaim || m.order.ID != orderID || m.order.Status != entities.OrderStatusReady || m.order.DeliveryPersonID.Valid {
		return storage.ErrConflict
	}

	m.order.DeliveryPersonID = sql.NullString{String: driverID, Valid: true}
	m.order.Status = entities.OrderStatusPickedUp
	return nil
}

func (m *mockStorage) SettleOrder(_ context.Context, orderID string, compute func(entities.Order) commission.Settlement) (entities.Order, []entities.Transaction, error) {
	if m.order.ID != orderID {
		return entities.Order{}, nil, storage.ErrNoRows
	}

	if m.order.Settled() {
		return m.order, nil, storage.ErrAlreadySettled
	}

	if !m.order.Status.EnRoute() {
		return entities.Order{}, nil, storage.ErrConflict
	}

	m.settleCalls++

	settlement := compute(m.order)

	m.order.Status = entities.OrderStatusDelivered
	m.order.PlatformFee = sql.NullInt64{Int64: settlement.PlatformFee, Valid: true}
	m.order.BusinessEarnings = sql.NullInt64{Int64: settlement.BusinessEarnings, Valid: true}
	m.order.DeliveryEarnings = sql.NullInt64{Int64: settlement.DeliveryEarnings, Valid: true}

	entries := []entities.Transaction{
		m.credit(m.order.BusinessID, settlement.BusinessEarnings, entities.TransactionTypeIncome),
	}

	if m.order.DeliveryPersonID.Valid {
		driverID := m.order.DeliveryPersonID.String

		if m.order.PaymentMethod == entities.PaymentMethodCash {
			entries = append(entries,
				m.credit(driverID, settlement.DeliveryEarnings, entities.TransactionTypeCashIncome),
				m.debt(driverID, settlement.CashOwed),
			)
		} else {
			entries = append(entries, m.credit(driverID, settlement.DeliveryEarnings, entities.TransactionTypeIncome))
		}
	}

	m.entries = append(m.entries, entries...)

	return m.order, entries, nil
}

func (m *mockStorage) credit(userID string, amount int64, txType entities.TransactionType) entities.Transaction {
	wallet := m.wallet(userID)
	wallet.balance += amount
	wallet.totalEarned += amount

	return entities.Transaction{
		ID:     fmt.Sprintf("tx-%d", len(m.entries)),
		UserID: userID,
		Type:   txType,
		Amount: amount,
		Status: entities.TransactionStatusCompleted,
	}
}

func (m *mockStorage) debt(userID string, amount int64) entities.Transaction {
	m.wallet(userID).cashOwed += amount

	return entities.Transaction{
		UserID: userID,
		Type:   entities.TransactionTypeCashDebt,
		Amount: amount,
		Status: entities.TransactionStatusCompleted,
	}
}

func (m *mockStorage) wallet(userID string) *walletState {
	if m.wallets[userID] == nil {
		m.wallets[userID] = &walletState{}
	}

	return m.wallets[userID]
}

type mockPublisher struct {
	events []notifier.Event
}

func (m *mockPublisher) Publish(event notifier.Event) {
	m.events = append(m.events, event)
}

func testOrder(status entities.OrderStatus, method entities.PaymentMethod) entities.Order {
	return entities.Order{
		ID:            "order-1",
		Number:        "4532015112830366",
		CustomerID:    "customer-1",
		BusinessID:    "business-1",
		Subtotal:      12000,
		DeliveryFee:   2500,
		Total:         14500,
		PaymentMethod: method,
		Status:        status,
	}
}

func newTestEngine(store *mockStorage) (*Engine, *mockPublisher) {
	events := &mockPublisher{}
	return NewEngine(store, events, metrics.New()), events
}

func TestTransitionSettlesCashOrder(t *testing.T) {
	order := testOrder(entities.OrderStatusOnTheWay, entities.PaymentMethodCash)
	order.DeliveryPersonID = sql.NullString{String: "driver-1", Valid: true}

	store := newMockStorage(order)
	engine, events := newTestEngine(store)

	summary, err := engine.Transition(context.Background(), "driver-1", entities.RoleDriver, order.Number, entities.OrderStatusDelivered)
	require.NoError(t, err)

	assert.True(t, summary.Settled)
	assert.False(t, summary.AlreadySettled)
	assert.Equal(t, int64(1565), summary.PlatformFee)
	assert.Equal(t, int64(10435), summary.BusinessEarnings)
	assert.Equal(t, int64(2175), summary.DeliveryEarnings)
	assert.Equal(t, int64(12325), summary.CashOwed)
	assert.Len(t, summary.Entries, 3)

	assert.Equal(t, int64(10435), store.wallet("business-1").balance)
	assert.Equal(t, int64(2175), store.wallet("driver-1").balance)
	assert.Equal(t, int64(12325), store.wallet("driver-1").cashOwed)

	require.Len(t, events.events, 1)
	assert.Equal(t, entities.OrderStatusOnTheWay, events.events[0].OldStatus)
	assert.Equal(t, entities.OrderStatusDelivered, events.events[0].NewStatus)
}

func TestTransitionSettlesCardOrderWithoutDebt(t *testing.T) {
	order := testOrder(entities.OrderStatusInTransit, entities.PaymentMethodCard)
	order.DeliveryPersonID = sql.NullString{String: "driver-1", Valid: true}

	store := newMockStorage(order)
	engine, _ := newTestEngine(store)

	summary, err := engine.Transition(context.Background(), "driver-1", entities.RoleDriver, order.Number, entities.OrderStatusDelivered)
	require.NoError(t, err)

	assert.Equal(t, int64(2175), summary.DeliveryEarnings)
	assert.Equal(t, int64(0), summary.CashOwed)
	assert.Len(t, summary.Entries, 2)

	assert.Equal(t, int64(2175), store.wallet("driver-1").balance)
	assert.Equal(t, int64(0), store.wallet("driver-1").cashOwed)
}

func TestTransitionSettlementIsIdempotent(t *testing.T) {
	order := testOrder(entities.OrderStatusOnTheWay, entities.PaymentMethodCash)
	order.DeliveryPersonID = sql.NullString{String: "driver-1", Valid: true}

	store := newMockStorage(order)
	engine, _ := newTestEngine(store)

	first, err := engine.Transition(context.Background(), "driver-1", entities.RoleDriver, order.Number, entities.OrderStatusDelivered)
	require.NoError(t, err)

	second, err := engine.Transition(context.Background(), "driver-1", entities.RoleDriver, order.Number, entities.OrderStatusDelivered)
	require.NoError(t, err)

	assert.True(t, second.AlreadySettled)
	assert.Equal(t, first.PlatformFee, second.PlatformFee)
	assert.Equal(t, first.BusinessEarnings, second.BusinessEarnings)
	assert.Equal(t, first.DeliveryEarnings, second.DeliveryEarnings)
	assert.Equal(t, first.CashOwed, second.CashOwed)

	assert.Equal(t, 1, store.settleCalls)
	assert.Len(t, store.entries, 3)
	assert.Equal(t, int64(10435), store.wallet("business-1").balance)
	assert.Equal(t, int64(2175), store.wallet("driver-1").balance)
	assert.Equal(t, int64(12325), store.wallet("driver-1").cashOwed)
}

func TestTransitionCancellationTouchesNoWallet(t *testing.T) {
	order := testOrder(entities.OrderStatusPreparing, entities.PaymentMethodCard)

	store := newMockStorage(order)
	engine, events := newTestEngine(store)

	summary, err := engine.Transition(context.Background(), "owner-1", entities.RoleBusinessOwner, order.Number, entities.OrderStatusCancelled)
	require.NoError(t, err)

	assert.Equal(t, entities.OrderStatusCancelled, summary.NewStatus)
	assert.False(t, summary.Settled)
	assert.Zero(t, store.settleCalls)
	assert.Empty(t, store.entries)
	assert.Empty(t, store.wallets)
	assert.Len(t, events.events, 1)
}

func TestTransitionClaimAssignsDriver(t *testing.T) {
	order := testOrder(entities.OrderStatusReady, entities.PaymentMethodCard)

	store := newMockStorage(order)
	engine, _ := newTestEngine(store)

	summary, err := engine.Transition(context.Background(), "driver-1", entities.RoleDriver, order.Number, entities.OrderStatusPickedUp)
	require.NoError(t, err)

	assert.Equal(t, entities.OrderStatusPickedUp, summary.NewStatus)
	require.True(t, store.order.DeliveryPersonID.Valid)
	assert.Equal(t, "driver-1", store.order.DeliveryPersonID.String)
}

func TestTransitionClaimLosesRace(t *testing.T) {
	// The loser read the order while it was still unassigned, but the
	// storage compare-and-swap already went to the other driver.
	order := testOrder(entities.OrderStatusReady, entities.PaymentMethodCard)

	store := newMockStorage(order)
	store.staleClaim = true
	engine, events := newTestEngine(store)

	_, err := engine.Transition(context.Background(), "driver-2", entities.RoleDriver, order.Number, entities.OrderStatusPickedUp)
	assert.ErrorIs(t, err, ErrConflictAlreadyAssigned)
	assert.Empty(t, events.events)
}

func TestTransitionRejectsForbiddenRole(t *testing.T) {
	order := testOrder(entities.OrderStatusPending, entities.PaymentMethodCard)

	store := newMockStorage(order)
	engine, events := newTestEngine(store)

	_, err := engine.Transition(context.Background(), "customer-1", entities.RoleCustomer, order.Number, entities.OrderStatusConfirmed)
	require.Error(t, err)

	assert.Equal(t, entities.OrderStatusPending, store.order.Status)
	assert.Empty(t, events.events)
}

func TestTransitionRepeatedMoveRejected(t *testing.T) {
	order := testOrder(entities.OrderStatusPending, entities.PaymentMethodCard)

	store := newMockStorage(order)
	engine, _ := newTestEngine(store)

	summary, err := engine.Transition(context.Background(), "owner-1", entities.RoleBusinessOwner, order.Number, entities.OrderStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, entities.OrderStatusConfirmed, summary.NewStatus)

	// A duplicate submission finds the order already confirmed and the
	// self-edge does not exist in the graph.
	_, err = engine.Transition(context.Background(), "owner-1", entities.RoleBusinessOwner, order.Number, entities.OrderStatusConfirmed)
	var transitionErr *transition.Error
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, transition.CodeInvalidTransition, transitionErr.Code)
}
