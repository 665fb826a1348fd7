package sales

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRenderReceipt(t *testing.T) {
	sale := Sale{
		BillNumber:    "INV-1700000000000000000",
		Subtotal:      8.60,
		Discount:      0.60,
		Total:         8.00,
		PaymentMethod: PaymentCash,
		CashReceived:  10.00,
		ChangeDue:     2.00,
		CustomerName:  "Walk-in",
		CreatedAt:     time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		Lines: []SaleLine{
			{ProductName: "Milk 1L", Quantity: 2, UnitPrice: 2.50, LineTotal: 5.00},
			{ProductName: "Bread", Quantity: 3, UnitPrice: 1.20, LineTotal: 3.60},
		},
	}

	text := RenderReceipt(sale, ReceiptOptions{
		StoreName: "Atlas Mart",
		Address:   "12 Harbour Rd",
		Footer:    "Thank you!",
	})

	require.Contains(t, text, "Atlas Mart")
	require.Contains(t, text, "Bill: INV-1700000000000000000")
	require.Contains(t, text, "Date: 2026-03-14 09:26:53")
	require.Contains(t, text, "Customer: Walk-in")
	require.Contains(t, text, "Milk 1L")
	require.Contains(t, text, "2 x 2.50")
	require.Contains(t, text, "Discount")
	require.Contains(t, text, "TOTAL")
	require.Contains(t, text, "Change")
	require.Contains(t, text, "Thank you!")

	for _, line := range strings.Split(text, "\n") {
		require.LessOrEqual(t, len([]rune(line)), 40, "line %q exceeds receipt width", line)
	}
}

func TestRenderReceiptCardOmitsChange(t *testing.T) {
	sale := Sale{
		BillNumber:    "INV-2",
		Total:         5.00,
		Subtotal:      5.00,
		PaymentMethod: PaymentCard,
		CreatedAt:     time.Now(),
		Lines:         []SaleLine{{ProductName: "Milk", Quantity: 2, UnitPrice: 2.50, LineTotal: 5.00}},
	}
	text := RenderReceipt(sale, ReceiptOptions{})
	require.NotContains(t, text, "Change")
	require.Contains(t, text, "Paid (card)")
}
