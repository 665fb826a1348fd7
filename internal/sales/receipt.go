package sales

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const receiptWidth = 40

// ReceiptOptions carries the store header printed on every receipt.
type ReceiptOptions struct {
	StoreName string
	Address   string
	Footer    string
}

// RenderReceipt formats a sale as a fixed-width plain-text receipt suitable
// for a 40-column thermal printer. Amounts use locale-aware grouping.
func RenderReceipt(sale Sale, opts ReceiptOptions) string {
	p := message.NewPrinter(language.English)
	var b strings.Builder

	line := strings.Repeat("-", receiptWidth)

	if opts.StoreName != "" {
		b.WriteString(center(opts.StoreName))
		b.WriteByte('\n')
	}
	if opts.Address != "" {
		b.WriteString(center(opts.Address))
		b.WriteByte('\n')
	}
	b.WriteString(line)
	b.WriteByte('\n')
	b.WriteString(fmt.Sprintf("Bill: %s\n", sale.BillNumber))
	b.WriteString(fmt.Sprintf("Date: %s\n", sale.CreatedAt.Format("2006-01-02 15:04:05")))
	if sale.CustomerName != "" {
		b.WriteString(fmt.Sprintf("Customer: %s\n", sale.CustomerName))
	}
	b.WriteString(line)
	b.WriteByte('\n')

	for _, item := range sale.Lines {
		b.WriteString(truncate(item.ProductName, receiptWidth))
		b.WriteByte('\n')
		qty := p.Sprintf("%d x %.2f", item.Quantity, item.UnitPrice)
		amount := p.Sprintf("%.2f", item.LineTotal)
		b.WriteString(padBetween(" "+qty, amount))
		b.WriteByte('\n')
	}

	b.WriteString(line)
	b.WriteByte('\n')
	b.WriteString(padBetween("Subtotal", p.Sprintf("%.2f", sale.Subtotal)))
	b.WriteByte('\n')
	if sale.Discount > 0 {
		b.WriteString(padBetween("Discount", p.Sprintf("-%.2f", sale.Discount)))
		b.WriteByte('\n')
	}
	if sale.Tax > 0 {
		b.WriteString(padBetween("Tax", p.Sprintf("%.2f", sale.Tax)))
		b.WriteByte('\n')
	}
	b.WriteString(padBetween("TOTAL", p.Sprintf("%.2f", sale.Total)))
	b.WriteByte('\n')
	b.WriteString(padBetween("Paid ("+string(sale.PaymentMethod)+")", paidAmount(p, sale)))
	b.WriteByte('\n')
	if sale.PaymentMethod == PaymentCash {
		b.WriteString(padBetween("Change", p.Sprintf("%.2f", sale.ChangeDue)))
		b.WriteByte('\n')
	}
	b.WriteString(line)
	b.WriteByte('\n')
	if opts.Footer != "" {
		b.WriteString(center(opts.Footer))
		b.WriteByte('\n')
	}
	return b.String()
}

func paidAmount(p *message.Printer, sale Sale) string {
	if sale.PaymentMethod == PaymentCash {
		return p.Sprintf("%.2f", sale.CashReceived)
	}
	return p.Sprintf("%.2f", sale.Total)
}

func center(s string) string {
	if len(s) >= receiptWidth {
		return s
	}
	pad := (receiptWidth - len(s)) / 2
	return strings.Repeat(" ", pad) + s
}

func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}
	return s[:width-1] + "…"
}

func padBetween(left, right string) string {
	gap := receiptWidth - len(left) - len(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}
