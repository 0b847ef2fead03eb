// Package finance posts issued invoices into the accounting ledger. Ledger
// writes are best-effort at issue time: a failed write lands in the
// reconciliation queue and is retried by a background worker, so issuing an
// invoice never blocks on accounting.
package finance

import (
	"time"

	"github.com/shopspring/decimal"

	"fieldbill/internal/core/id"
	"fieldbill/internal/core/types"
)

// InvoiceLine is the ledger's own view of an invoice line, deliberately
// decoupled from the invoice document model.
type InvoiceLine struct {
	Name      string          `db:"name" json:"name"`
	Kind      string          `db:"kind" json:"kind"` // base, shortfall, extra
	Quantity  decimal.Decimal `db:"quantity" json:"quantity"`
	Unit      string          `db:"unit" json:"unit"`
	UnitPrice types.Money     `db:"unit_price" json:"unitPrice"`
	VATRate   string          `db:"vat_rate" json:"vatRate"`
}

// Entry is one ledger posting for an issued invoice.
type Entry struct {
	ID        id.ID     `db:"id" json:"id"`
	InvoiceID id.ID     `db:"invoice_id" json:"invoiceId"`
	ProjectID id.ID     `db:"project_id" json:"projectId"`
	Number    string    `db:"number" json:"number"`
	IssuedAt  time.Time `db:"issued_at" json:"issuedAt"`

	Base  types.Money `db:"base" json:"base"`
	VAT   types.Money `db:"vat" json:"vat"`
	Total types.Money `db:"total" json:"total"`

	Lines []InvoiceLine `db:"-" json:"lines"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewEntry creates a ledger entry for an issued invoice.
func NewEntry(invoiceID, projectID id.ID, number string, issuedAt time.Time, base, vat, total types.Money, lines []InvoiceLine) Entry {
	return Entry{
		ID:        id.New(),
		InvoiceID: invoiceID,
		ProjectID: projectID,
		Number:    number,
		IssuedAt:  issuedAt,
		Base:      base,
		VAT:       vat,
		Total:     total,
		Lines:     append([]InvoiceLine(nil), lines...),
		CreatedAt: time.Now().UTC(),
	}
}

// QueuedEntry is a ledger entry waiting for reconciliation after a failed
// write, with retry bookkeeping.
type QueuedEntry struct {
	ID          id.ID      `db:"id"`
	Entry       Entry      `db:"-"`
	Cause       string     `db:"cause"`
	RetryCount  int        `db:"retry_count"`
	LastError   *string    `db:"last_error"`
	NextRetryAt *time.Time `db:"next_retry_at"`
	CreatedAt   time.Time  `db:"created_at"`
}
