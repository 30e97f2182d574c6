package commission

import (
	"math"

	"github.com/Caskiuz/nemy-marketplace/internal/entities"
)

// markupRate is the platform commission baked into the customer-facing
// subtotal at order-creation time.
const markupRate = 0.15

// Settlement is the money split of a delivered order, in minor units.
type Settlement struct {
	PlatformFee      int64
	BusinessEarnings int64
	DeliveryEarnings int64
	CashOwed         int64
}

// Compute partitions an order's money for settlement.
//
// The stored subtotal already includes the markup, so business earnings
// recover the pre-markup product price and the platform fee is the
// difference — subtracting rather than rounding both sides keeps
// platformFee + businessEarnings == subtotal exact.
//
// The driver commission is computed on the order total, not on the
// delivery fee. The delivery fee is money the driver handles, not money
// the driver unconditionally keeps; conflating the two was a recurring
// production bug this formula pins down.
//
// For cash orders the driver collects the full total and keeps only the
// commission; the remainder becomes tracked debt, never balance.
func Compute(order entities.Order) Settlement {
	businessEarnings := roundHalfUp(float64(order.Subtotal) / (1 + markupRate))
	deliveryEarnings := roundHalfUp(float64(order.Total) * markupRate)

	settlement := Settlement{
		PlatformFee:      order.Subtotal - businessEarnings,
		BusinessEarnings: businessEarnings,
		DeliveryEarnings: deliveryEarnings,
	}

	if order.PaymentMethod == entities.PaymentMethodCash {
		settlement.CashOwed = order.Total - deliveryEarnings
	}

	return settlement
}

func roundHalfUp(value float64) int64 {
	return int64(math.Floor(value + 0.5))
}
