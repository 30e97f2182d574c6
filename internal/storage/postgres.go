package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Caskiuz/nemy-marketplace/internal/entities"
	"github.com/Caskiuz/nemy-marketplace/internal/ledger"
	"github.com/Caskiuz/nemy-marketplace/internal/services/commission"
	"github.com/jackc/pgerrcode"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrConflict         = errors.New("conflict")
	ErrNoRows           = errors.New("no rows")
	ErrAlreadySettled   = errors.New("order already settled")
	ErrNotEnoughBalance = errors.New("not enough withdrawable balance")
)

// DeliveredSums aggregates the money fields of delivered orders for the
// audit checker.
type DeliveredSums struct {
	Count            int64 `db:"count"`
	Subtotal         int64 `db:"subtotal"`
	DeliveryFee      int64 `db:"delivery_fee"`
	Total            int64 `db:"total"`
	PlatformFee      int64 `db:"platform_fee"`
	BusinessEarnings int64 `db:"business_earnings"`
	DeliveryEarnings int64 `db:"delivery_earnings"`
}

type Storage interface {
	CreateUser(context.Context, string, string, entities.Role) (string, error)
	GetUser(context.Context, string, string) (entities.User, error)

	CreateBusiness(context.Context, string, string) (string, error)
	GetBusiness(context.Context, string) (entities.Business, error)

	CreateOrder(context.Context, entities.Order) (entities.Order, error)
	GetOrderByNumber(context.Context, string) (entities.Order, error)
	ListOrders(context.Context, string, entities.Role) ([]entities.Order, error)
	UpdateOrderStatus(context.Context, string, entities.OrderStatus, entities.OrderStatus) error
	ClaimOrder(context.Context, string, string) error
	SettleOrder(context.Context, string, func(entities.Order) commission.Settlement) (entities.Order, []entities.Transaction, error)

	GetWallet(context.Context, string) (entities.Wallet, error)
	Withdraw(context.Context, string, int64, string) (entities.Transaction, error)
	ListTransactions(context.Context, string) ([]entities.Transaction, error)

	CountOrders(context.Context) (int64, error)
	CountPayments(context.Context) (int64, error)
	CountTransactions(context.Context) (int64, error)
	GetDeliveredSums(context.Context) (DeliveredSums, error)
}

type PostgresStorage struct {
	db *sqlx.DB
}

func NewPostgresStorage(db *sqlx.DB) (Storage, error) {
	storage := &PostgresStorage{db: db}

	err := storage.runMigrations(context.Background())
	if err != nil {
		return nil, err
	}

	return storage, nil
}

func (s *PostgresStorage) CreateUser(ctx context.Context, login string, passwordHash string, role entities.Role) (string, error) {
	var userID string

	row := s.db.QueryRowxContext(
		ctx,
		`INSERT INTO users (login, password, role)
		VALUES ($1, $2, $3) RETURNING id;`,
		login, passwordHash, role,
	)

	if err := row.Err(); err != nil {
		return "", mapConstraintError(err)
	}

	if err := row.Scan(&userID); err != nil {
		return "", mapConstraintError(err)
	}

	return userID, nil
}

func (s *PostgresStorage) GetUser(ctx context.Context, login string, passwordHash string) (entities.User, error) {
	var user entities.User

	err := s.db.GetContext(ctx, &user, `SELECT * FROM users WHERE login = $1 AND password = $2;`, login, passwordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entities.User{}, ErrNoRows
		}

		return entities.User{}, err
	}

	return user, nil
}

func (s *PostgresStorage) CreateBusiness(ctx context.Context, ownerID string, name string) (string, error) {
	var businessID string

	row := s.db.QueryRowxContext(
		ctx,
		`INSERT INTO businesses (owner_id, name)
		VALUES ($1, $2) RETURNING id;`,
		ownerID, name,
	)

	if err := row.Err(); err != nil {
		return "", mapConstraintError(err)
	}

	if err := row.Scan(&businessID); err != nil {
		return "", mapConstraintError(err)
	}

	return businessID, nil
}

func (s *PostgresStorage) GetBusiness(ctx context.Context, id string) (entities.Business, error) {
	var business entities.Business

	err := s.db.GetContext(ctx, &business, `SELECT * FROM businesses WHERE id = $1;`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entities.Business{}, ErrNoRows
		}

		return entities.Business{}, err
	}

	return business, nil
}

// CreateOrder inserts the order in pending status together with its
// payment record, one row each, in a single transaction.
func (s *PostgresStorage) CreateOrder(ctx context.Context, order entities.Order) (entities.Order, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return entities.Order{}, err
	}

	defer tx.Rollback()

	row := tx.QueryRowxContext(
		ctx,
		`INSERT INTO orders (number, customer_id, business_id, subtotal, delivery_fee, total, payment_method, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, created_at;`,
		order.Number, order.CustomerID, order.BusinessID,
		order.Subtotal, order.DeliveryFee, order.Total,
		order.PaymentMethod, entities.OrderStatusPending,
	)

	if err := row.Scan(&order.ID, &order.CreatedAt); err != nil {
		return entities.Order{}, mapConstraintError(err)
	}

	order.Status = entities.OrderStatusPending

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO payments (order_id, method, amount, status)
		VALUES ($1, $2, $3, $4);`,
		order.ID, order.PaymentMethod, order.Total, "recorded",
	); err != nil {
		return entities.Order{}, err
	}

	if err := tx.Commit(); err != nil {
		return entities.Order{}, err
	}

	return order, nil
}

func (s *PostgresStorage) GetOrderByNumber(ctx context.Context, number string) (entities.Order, error) {
	var order entities.Order

	err := s.db.GetContext(ctx, &order, `SELECT * FROM orders WHERE number = $1;`, number)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entities.Order{}, ErrNoRows
		}

		return entities.Order{}, err
	}

	return order, nil
}

func (s *PostgresStorage) ListOrders(ctx context.Context, actorID string, role entities.Role) ([]entities.Order, error) {
	var (
		orders []entities.Order
		err    error
	)

	switch {
	case role == entities.RoleCustomer:
		err = s.db.SelectContext(ctx, &orders, `SELECT * FROM orders WHERE customer_id = $1 ORDER BY created_at DESC;`, actorID)
	case role == entities.RoleBusinessOwner:
		err = s.db.SelectContext(ctx, &orders,
			`SELECT o.* FROM orders o JOIN businesses b ON b.id = o.business_id WHERE b.owner_id = $1 ORDER BY o.created_at DESC;`, actorID)
	case role == entities.RoleDriver:
		err = s.db.SelectContext(ctx, &orders,
			`SELECT * FROM orders WHERE delivery_person_id = $1 OR (status = $2 AND delivery_person_id IS NULL) ORDER BY created_at DESC;`,
			actorID, entities.OrderStatusReady)
	case role.IsAdmin():
		err = s.db.SelectContext(ctx, &orders, `SELECT * FROM orders ORDER BY created_at DESC;`)
	default:
		return nil, fmt.Errorf("unknown role %s", role)
	}

	if err != nil {
		return nil, err
	}

	return orders, nil
}

// UpdateOrderStatus moves an order between two non-settling states. The
// WHERE clause on the expected current status makes the update an
// optimistic check: a concurrent transition leaves zero rows affected
// and the caller gets ErrConflict instead of a silent double move.
func (s *PostgresStorage) UpdateOrderStatus(ctx context.Context, orderID string, from entities.OrderStatus, to entities.OrderStatus) error {
	result, err := s.db.ExecContext(
		ctx,
		`UPDATE orders SET status = $1 WHERE id = $2 AND status = $3;`,
		to, orderID, from,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return ErrConflict
	}

	return nil
}

// ClaimOrder is the driver-accepts-order compare-and-swap: it assigns
// the driver and moves the order to picked_up only if no driver holds
// the order yet. Losing the race returns ErrConflict.
func (s *PostgresStorage) ClaimOrder(ctx context.Context, orderID string, driverID string) error {
	result, err := s.db.ExecContext(
		ctx,
		`UPDATE orders SET delivery_person_id = $1, status = $2
		WHERE id = $3 AND status = $4 AND delivery_person_id IS NULL;`,
		driverID, entities.OrderStatusPickedUp, orderID, entities.OrderStatusReady,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return ErrConflict
	}

	return nil
}

// SettleOrder runs the whole settlement in one transaction: it re-reads
// the order under a row lock, computes the split with the supplied
// calculator, writes the earnings fields exactly once and posts every
// ledger entry. Any failure rolls the whole settlement back.
//
// An order that already carries earnings fields returns ErrAlreadySettled
// together with its current row so the caller can rebuild the summary
// without re-posting anything.
func (s *PostgresStorage) SettleOrder(ctx context.Context, orderID string, compute func(entities.Order) commission.Settlement) (entities.Order, []entities.Transaction, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return entities.Order{}, nil, err
	}

	defer tx.Rollback()

	var order entities.Order

	if err := tx.GetContext(ctx, &order, `SELECT * FROM orders WHERE id = $1 FOR UPDATE;`, orderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entities.Order{}, nil, ErrNoRows
		}

		return entities.Order{}, nil, err
	}

	if order.Settled() {
		return order, nil, ErrAlreadySettled
	}

	if !order.Status.EnRoute() {
		return entities.Order{}, nil, ErrConflict
	}

	settlement := compute(order)

	row := tx.QueryRowxContext(
		ctx,
		`UPDATE orders
		SET status = $1, platform_fee = $2, business_earnings = $3, delivery_earnings = $4, delivered_at = now()
		WHERE id = $5
		RETURNING delivered_at;`,
		entities.OrderStatusDelivered,
		settlement.PlatformFee, settlement.BusinessEarnings, settlement.DeliveryEarnings,
		order.ID,
	)

	if err := row.Scan(&order.DeliveredAt); err != nil {
		return entities.Order{}, nil, err
	}

	order.Status = entities.OrderStatusDelivered
	order.PlatformFee = sql.NullInt64{Int64: settlement.PlatformFee, Valid: true}
	order.BusinessEarnings = sql.NullInt64{Int64: settlement.BusinessEarnings, Valid: true}
	order.DeliveryEarnings = sql.NullInt64{Int64: settlement.DeliveryEarnings, Valid: true}

	entries := make([]entities.Transaction, 0, 3)

	businessEntry, err := ledger.Credit(
		ctx, tx,
		order.BusinessID, settlement.BusinessEarnings, order.ID,
		entities.TransactionTypeIncome,
		fmt.Sprintf("Earnings for order #%s", order.Number),
	)
	if err != nil {
		return entities.Order{}, nil, err
	}

	entries = append(entries, businessEntry)

	if order.DeliveryPersonID.Valid {
		driverID := order.DeliveryPersonID.String

		if order.PaymentMethod == entities.PaymentMethodCash {
			driverEntry, err := ledger.Credit(
				ctx, tx,
				driverID, settlement.DeliveryEarnings, order.ID,
				entities.TransactionTypeCashIncome,
				fmt.Sprintf("Commission for cash order #%s", order.Number),
			)
			if err != nil {
				return entities.Order{}, nil, err
			}

			debtEntry, err := ledger.RecordDebt(
				ctx, tx,
				driverID, settlement.CashOwed, order.ID,
				fmt.Sprintf("Cash collected for order #%s", order.Number),
			)
			if err != nil {
				return entities.Order{}, nil, err
			}

			entries = append(entries, driverEntry, debtEntry)
		} else {
			driverEntry, err := ledger.Credit(
				ctx, tx,
				driverID, settlement.DeliveryEarnings, order.ID,
				entities.TransactionTypeIncome,
				fmt.Sprintf("Commission for order #%s", order.Number),
			)
			if err != nil {
				return entities.Order{}, nil, err
			}

			entries = append(entries, driverEntry)
		}
	}

	if err := tx.Commit(); err != nil {
		return entities.Order{}, nil, err
	}

	return order, entries, nil
}

// GetWallet never creates a wallet: an owner that was never credited
// reads back a zero-valued wallet.
func (s *PostgresStorage) GetWallet(ctx context.Context, userID string) (entities.Wallet, error) {
	var wallet entities.Wallet

	err := s.db.GetContext(ctx, &wallet, `SELECT * FROM wallets WHERE user_id = $1;`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entities.Wallet{UserID: userID}, nil
		}

		return entities.Wallet{}, err
	}

	return wallet, nil
}

// Withdraw debits the wallet inside one transaction, holding the row
// lock across the withdrawable check so a concurrent withdrawal cannot
// push balance - cash_owed below zero.
func (s *PostgresStorage) Withdraw(ctx context.Context, userID string, amount int64, description string) (entities.Transaction, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return entities.Transaction{}, err
	}

	defer tx.Rollback()

	var wallet entities.Wallet

	if err := tx.GetContext(ctx, &wallet, `SELECT * FROM wallets WHERE user_id = $1 FOR UPDATE;`, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entities.Transaction{}, ErrNotEnoughBalance
		}

		return entities.Transaction{}, err
	}

	if wallet.Withdrawable() < amount {
		return entities.Transaction{}, ErrNotEnoughBalance
	}

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE wallets SET balance = balance - $1, total_withdrawn = total_withdrawn + $1 WHERE user_id = $2;`,
		amount, userID,
	); err != nil {
		return entities.Transaction{}, err
	}

	var entry entities.Transaction

	if err := tx.GetContext(
		ctx,
		&entry,
		`INSERT INTO transactions (id, user_id, type, amount, description, status)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5) RETURNING *;`,
		userID, entities.TransactionTypeWithdrawal, amount, description, entities.TransactionStatusCompleted,
	); err != nil {
		return entities.Transaction{}, err
	}

	if err := tx.Commit(); err != nil {
		return entities.Transaction{}, err
	}

	return entry, nil
}

func (s *PostgresStorage) ListTransactions(ctx context.Context, userID string) ([]entities.Transaction, error) {
	var entries []entities.Transaction

	err := s.db.SelectContext(ctx, &entries, `SELECT * FROM transactions WHERE user_id = $1 ORDER BY created_at DESC;`, userID)
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func (s *PostgresStorage) CountOrders(ctx context.Context) (int64, error) {
	return s.countRows(ctx, `SELECT COUNT(*) FROM orders;`)
}

func (s *PostgresStorage) CountPayments(ctx context.Context) (int64, error) {
	return s.countRows(ctx, `SELECT COUNT(*) FROM payments;`)
}

func (s *PostgresStorage) CountTransactions(ctx context.Context) (int64, error) {
	return s.countRows(ctx, `SELECT COUNT(*) FROM transactions;`)
}

func (s *PostgresStorage) countRows(ctx context.Context, query string) (int64, error) {
	var count int64

	if err := s.db.GetContext(ctx, &count, query); err != nil {
		return 0, err
	}

	return count, nil
}

func (s *PostgresStorage) GetDeliveredSums(ctx context.Context) (DeliveredSums, error) {
	var sums DeliveredSums

	err := s.db.GetContext(
		ctx,
		&sums,
		`SELECT
			COUNT(*) AS count,
			COALESCE(SUM(subtotal), 0) AS subtotal,
			COALESCE(SUM(delivery_fee), 0) AS delivery_fee,
			COALESCE(SUM(total), 0) AS total,
			COALESCE(SUM(platform_fee), 0) AS platform_fee,
			COALESCE(SUM(business_earnings), 0) AS business_earnings,
			COALESCE(SUM(delivery_earnings), 0) AS delivery_earnings
		FROM orders WHERE status = $1;`,
		entities.OrderStatusDelivered,
	)
	if err != nil {
		return DeliveredSums{}, err
	}

	return sums, nil
}

func mapConstraintError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pgerrcode.IsIntegrityConstraintViolation(string(pqErr.Code)) {
		return ErrConflict
	}

	return err
}

func (s *PostgresStorage) runMigrations(ctx context.Context) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}

	defer tx.Rollback()

	statements := []string{
		`
		CREATE TABLE IF NOT EXISTS users(
			id uuid DEFAULT gen_random_uuid() PRIMARY KEY,
			login TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			role VARCHAR NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		`,
		`
		CREATE TABLE IF NOT EXISTS businesses(
			id uuid DEFAULT gen_random_uuid() PRIMARY KEY,
			owner_id uuid NOT NULL,
			name TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT fk_owner FOREIGN KEY(owner_id) REFERENCES users(id) ON DELETE CASCADE
		);
		`,
		`
		CREATE TABLE IF NOT EXISTS orders(
			id uuid DEFAULT gen_random_uuid() PRIMARY KEY,
			number VARCHAR NOT NULL UNIQUE,
			customer_id uuid NOT NULL,
			business_id uuid NOT NULL,
			delivery_person_id uuid,
			subtotal BIGINT NOT NULL,
			delivery_fee BIGINT NOT NULL,
			total BIGINT NOT NULL,
			platform_fee BIGINT,
			business_earnings BIGINT,
			delivery_earnings BIGINT,
			payment_method VARCHAR NOT NULL,
			status VARCHAR NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			delivered_at TIMESTAMP,
			CONSTRAINT fk_customer FOREIGN KEY(customer_id) REFERENCES users(id) ON DELETE CASCADE,
			CONSTRAINT fk_business FOREIGN KEY(business_id) REFERENCES businesses(id) ON DELETE CASCADE,
			CONSTRAINT chk_total CHECK (total = subtotal + delivery_fee)
		);
		`,
		`
		CREATE TABLE IF NOT EXISTS payments(
			id uuid DEFAULT gen_random_uuid() PRIMARY KEY,
			order_id uuid NOT NULL UNIQUE,
			method VARCHAR NOT NULL,
			amount BIGINT NOT NULL,
			status VARCHAR NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT fk_order FOREIGN KEY(order_id) REFERENCES orders(id) ON DELETE CASCADE
		);
		`,
		`
		CREATE TABLE IF NOT EXISTS wallets(
			user_id uuid PRIMARY KEY,
			balance BIGINT NOT NULL DEFAULT 0,
			pending_balance BIGINT NOT NULL DEFAULT 0,
			cash_owed BIGINT NOT NULL DEFAULT 0,
			total_earned BIGINT NOT NULL DEFAULT 0,
			total_withdrawn BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT chk_balance CHECK (balance >= 0),
			CONSTRAINT chk_cash_owed CHECK (cash_owed >= 0)
		);
		`,
		`
		CREATE TABLE IF NOT EXISTS transactions(
			id uuid PRIMARY KEY,
			user_id uuid NOT NULL,
			order_id uuid,
			type VARCHAR NOT NULL,
			amount BIGINT NOT NULL,
			description TEXT NOT NULL,
			status VARCHAR NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		`,
		`
		CREATE UNIQUE INDEX IF NOT EXISTS uq_transactions_settlement
		ON transactions(order_id, user_id, type) WHERE order_id IS NOT NULL;
		`,
	}

	for _, statement := range statements {
		if _, err := tx.ExecContext(ctx, statement); err != nil {
			return err
		}
	}

	return tx.Commit()
}
