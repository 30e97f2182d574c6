package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Caskiuz/nemy-marketplace/internal/entities"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Ledger posts append-only wallet transactions. All functions run on
// the caller's sqlx transaction so a settlement's postings commit or
// roll back as one unit with the order update.
//
// Posting is idempotent per (order, user, type): a retried settlement
// finds the completed entry and returns it unchanged. A UNIQUE
// constraint on the triple backs the check at the storage layer: a
// racing duplicate fails there, the enclosing settlement rolls back
// and the retry takes the idempotent path instead.

// Credit adds amount to the owner's balance and lifetime earnings and
// appends an income-family transaction. The wallet row is created
// lazily on first credit.
func Credit(ctx context.Context, tx *sqlx.Tx, userID string, amount int64, orderID string, txType entities.TransactionType, description string) (entities.Transaction, error) {
	existing, found, err := findSettlementEntry(ctx, tx, orderID, userID, txType)
	if err != nil {
		return entities.Transaction{}, err
	}

	if found {
		return existing, nil
	}

	entry, err := insertEntry(ctx, tx, userID, amount, orderID, txType, description)
	if err != nil {
		if isUniqueViolation(err) {
			return entities.Transaction{}, fmt.Errorf("settlement entry for order %s already posted concurrently: %w", orderID, err)
		}

		return entities.Transaction{}, err
	}

	if err := ensureWallet(ctx, tx, userID); err != nil {
		return entities.Transaction{}, err
	}

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE wallets SET balance = balance + $1, total_earned = total_earned + $1 WHERE user_id = $2;`,
		amount, userID,
	); err != nil {
		return entities.Transaction{}, err
	}

	return entry, nil
}

// RecordDebt tracks cash a driver collected beyond their own
// commission. It raises cash_owed and never touches balance.
func RecordDebt(ctx context.Context, tx *sqlx.Tx, userID string, amount int64, orderID string, description string) (entities.Transaction, error) {
	existing, found, err := findSettlementEntry(ctx, tx, orderID, userID, entities.TransactionTypeCashDebt)
	if err != nil {
		return entities.Transaction{}, err
	}

	if found {
		return existing, nil
	}

	entry, err := insertEntry(ctx, tx, userID, amount, orderID, entities.TransactionTypeCashDebt, description)
	if err != nil {
		if isUniqueViolation(err) {
			return entities.Transaction{}, fmt.Errorf("cash debt for order %s already recorded concurrently: %w", orderID, err)
		}

		return entities.Transaction{}, err
	}

	if err := ensureWallet(ctx, tx, userID); err != nil {
		return entities.Transaction{}, err
	}

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE wallets SET cash_owed = cash_owed + $1 WHERE user_id = $2;`,
		amount, userID,
	); err != nil {
		return entities.Transaction{}, err
	}

	return entry, nil
}

func findSettlementEntry(ctx context.Context, tx *sqlx.Tx, orderID string, userID string, txType entities.TransactionType) (entities.Transaction, bool, error) {
	var entry entities.Transaction

	err := tx.GetContext(
		ctx,
		&entry,
		`SELECT * FROM transactions WHERE order_id = $1 AND user_id = $2 AND type = $3 AND status = $4;`,
		orderID, userID, txType, entities.TransactionStatusCompleted,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entities.Transaction{}, false, nil
		}

		return entities.Transaction{}, false, err
	}

	return entry, true, nil
}

func insertEntry(ctx context.Context, tx *sqlx.Tx, userID string, amount int64, orderID string, txType entities.TransactionType, description string) (entities.Transaction, error) {
	entry := entities.Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		OrderID:     sql.NullString{String: orderID, Valid: orderID != ""},
		Type:        txType,
		Amount:      amount,
		Description: description,
		Status:      entities.TransactionStatusCompleted,
	}

	row := tx.QueryRowxContext(
		ctx,
		`INSERT INTO transactions (id, user_id, order_id, type, amount, description, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at;`,
		entry.ID, entry.UserID, entry.OrderID, entry.Type, entry.Amount, entry.Description, entry.Status,
	)

	if err := row.Scan(&entry.CreatedAt); err != nil {
		return entities.Transaction{}, err
	}

	return entry, nil
}

func ensureWallet(ctx context.Context, tx *sqlx.Tx, userID string) error {
	_, err := tx.ExecContext(
		ctx,
		`INSERT INTO wallets (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING;`,
		userID,
	)

	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pgerrcode.UniqueViolation
}
