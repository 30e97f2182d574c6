package entities

import (
	"database/sql"
	"time"
)

type TransactionType string

const (
	TransactionTypeIncome     TransactionType = "income"
	TransactionTypeCashIncome TransactionType = "cash_income"
	TransactionTypeCashDebt   TransactionType = "cash_debt"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
)

// IncomeFamily reports whether the type credits a wallet balance.
func (t TransactionType) IncomeFamily() bool {
	return t == TransactionTypeIncome || t == TransactionTypeCashIncome
}

type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Wallet holds one owner's running balances in minor currency units.
// Owners are users for drivers and businesses for business earnings.
// CashOwed is debt a cash-collecting driver owes the platform; it is
// tracked apart from Balance and caps what may be withdrawn.
type Wallet struct {
	UserID         string    `db:"user_id"`
	Balance        int64     `db:"balance"`
	PendingBalance int64     `db:"pending_balance"`
	CashOwed       int64     `db:"cash_owed"`
	TotalEarned    int64     `db:"total_earned"`
	TotalWithdrawn int64     `db:"total_withdrawn"`
	CreatedAt      time.Time `db:"created_at"`
}

// Withdrawable is the amount the owner may actually take out.
func (w Wallet) Withdrawable() int64 {
	return w.Balance - w.CashOwed
}

// Transaction is an append-only ledger entry. Entries are created once
// and never mutated or deleted. For settlement entries at most one
// row may exist per (order, user, type) triple.
type Transaction struct {
	ID          string            `db:"id"`
	UserID      string            `db:"user_id"`
	OrderID     sql.NullString    `db:"order_id"`
	Type        TransactionType   `db:"type"`
	Amount      int64             `db:"amount"`
	Description string            `db:"description"`
	Status      TransactionStatus `db:"status"`
	CreatedAt   time.Time         `db:"created_at"`
}
