package commission

import (
	"testing"

	"github.com/Caskiuz/nemy-marketplace/internal/entities"
	"github.com/stretchr/testify/assert"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name  string
		order entities.Order
		want  Settlement
	}{
		{
			name: "card order recovers pre-markup business earnings",
			order: entities.Order{
				Subtotal:      12000,
				DeliveryFee:   2500,
				Total:         14500,
				PaymentMethod: entities.PaymentMethodCard,
			},
			want: Settlement{
				BusinessEarnings: 10435,
				PlatformFee:      1565,
				DeliveryEarnings: 2175,
				CashOwed:         0,
			},
		},
		{
			name: "cash order tracks the collected remainder as debt",
			order: entities.Order{
				Subtotal:      12000,
				DeliveryFee:   2500,
				Total:         14500,
				PaymentMethod: entities.PaymentMethodCash,
			},
			want: Settlement{
				BusinessEarnings: 10435,
				PlatformFee:      1565,
				DeliveryEarnings: 2175,
				CashOwed:         12325,
			},
		},
		{
			name: "driver commission uses total, not delivery fee",
			order: entities.Order{
				Subtotal:      10000,
				DeliveryFee:   500,
				Total:         10500,
				PaymentMethod: entities.PaymentMethodCard,
			},
			want: Settlement{
				BusinessEarnings: 8696,
				PlatformFee:      1304,
				DeliveryEarnings: 1575,
				CashOwed:         0,
			},
		},
		{
			name: "tiny order still partitions the subtotal exactly",
			order: entities.Order{
				Subtotal:      1,
				DeliveryFee:   0,
				Total:         1,
				PaymentMethod: entities.PaymentMethodCash,
			},
			want: Settlement{
				BusinessEarnings: 1,
				PlatformFee:      0,
				DeliveryEarnings: 0,
				CashOwed:         1,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.order)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeAdditivity(t *testing.T) {
	subtotals := []int64{1, 99, 100, 115, 11499, 12000, 999999, 1000001}

	for _, subtotal := range subtotals {
		order := entities.Order{
			Subtotal:      subtotal,
			DeliveryFee:   2500,
			Total:         subtotal + 2500,
			PaymentMethod: entities.PaymentMethodCash,
		}

		settlement := Compute(order)

		assert.Equal(t, subtotal, settlement.PlatformFee+settlement.BusinessEarnings,
			"platform fee and business earnings must partition subtotal %d exactly", subtotal)
		assert.Equal(t, order.Total, settlement.CashOwed+settlement.DeliveryEarnings,
			"cash debt and commission must partition the collected total %d exactly", order.Total)
	}
}
