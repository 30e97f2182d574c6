package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/Caskiuz/nemy-marketplace/internal/storage"
)

const (
	StatusPassed = "PASSED"
	StatusFailed = "FAILED"
)

type Check struct {
	Rule    string `json:"rule"`
	Passed  bool   `json:"passed"`
	Details string `json:"details"`
}

type Report struct {
	OverallStatus string    `json:"overall_status"`
	Checks        []Check   `json:"checks"`
	Timestamp     time.Time `json:"timestamp"`
}

// Storage is the read-only slice of the storage layer the checker uses.
type Storage interface {
	CountOrders(context.Context) (int64, error)
	CountPayments(context.Context) (int64, error)
	CountTransactions(context.Context) (int64, error)
	GetDeliveredSums(context.Context) (storage.DeliveredSums, error)
}

// Checker verifies that orders, payments and the transaction ledger are
// mutually consistent. It only reads; it exists for integrity
// verification, never to repair data.
type Checker struct {
	storage Storage
}

func NewChecker(storage Storage) *Checker {
	return &Checker{storage: storage}
}

// RunQuickAudit runs the fixed battery. Checks never short-circuit:
// every rule reports individually and the overall status passes only
// when all of them do.
func (c *Checker) RunQuickAudit(ctx context.Context) (Report, error) {
	orders, err := c.storage.CountOrders(ctx)
	if err != nil {
		return Report{}, err
	}

	payments, err := c.storage.CountPayments(ctx)
	if err != nil {
		return Report{}, err
	}

	transactions, err := c.storage.CountTransactions(ctx)
	if err != nil {
		return Report{}, err
	}

	sums, err := c.storage.GetDeliveredSums(ctx)
	if err != nil {
		return Report{}, err
	}

	checks := []Check{
		{
			Rule:    "orders_exist",
			Passed:  orders > 0,
			Details: fmt.Sprintf("%d orders", orders),
		},
		{
			Rule:    "payments_match_orders",
			Passed:  payments == orders,
			Details: fmt.Sprintf("%d payments for %d orders", payments, orders),
		},
		{
			Rule:    "transactions_after_settlement",
			Passed:  sums.Count == 0 || transactions > 0,
			Details: fmt.Sprintf("%d transactions, %d delivered orders", transactions, sums.Count),
		},
		commissionAdditivity(sums),
		earningsReconcile(sums),
	}

	report := Report{
		OverallStatus: StatusPassed,
		Checks:        checks,
		Timestamp:     time.Now().UTC(),
	}

	for _, check := range checks {
		if !check.Passed {
			report.OverallStatus = StatusFailed
			break
		}
	}

	return report, nil
}

// commissionAdditivity: on delivered orders, platform fee plus business
// earnings must equal the subtotal to the cent. The calculator derives
// the fee by subtraction, so any drift here means earnings were written
// outside the settlement engine.
func commissionAdditivity(sums storage.DeliveredSums) Check {
	diff := sums.PlatformFee + sums.BusinessEarnings - sums.Subtotal

	return Check{
		Rule:    "commission_additivity",
		Passed:  diff == 0,
		Details: fmt.Sprintf("platform %d + business %d vs subtotal %d (diff %d)", sums.PlatformFee, sums.BusinessEarnings, sums.Subtotal, diff),
	}
}

// earningsReconcile compares the distributed money against the
// collected totals. Driver earnings are a commission on the total, not
// the delivery fee, so the expected gap between the two sides is
// exactly sum(deliveryEarnings) - sum(deliveryFee); a one-cent-per-order
// tolerance covers rounding.
func earningsReconcile(sums storage.DeliveredSums) Check {
	distributed := sums.PlatformFee + sums.BusinessEarnings + sums.DeliveryEarnings
	expectedGap := sums.DeliveryEarnings - sums.DeliveryFee
	drift := distributed - sums.Total - expectedGap

	if drift < 0 {
		drift = -drift
	}

	return Check{
		Rule:    "earnings_reconcile",
		Passed:  drift <= sums.Count,
		Details: fmt.Sprintf("distributed %d vs total %d, expected gap %d, drift %d over %d orders", distributed, sums.Total, expectedGap, drift, sums.Count),
	}
}
