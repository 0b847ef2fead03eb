// Package finance_repo provides PostgreSQL implementations of the accounting
// ledger and its reconciliation queue.
package finance_repo

import (
	"context"
	"fmt"

	"fieldbill/internal/domain/finance"
	"fieldbill/internal/infrastructure/storage/postgres"
)

// LedgerRepo is the PostgreSQL implementation of finance.Ledger.
type LedgerRepo struct {
	txManager *postgres.TxManager
}

// Ensure compile-time interface compliance.
var _ finance.Ledger = (*LedgerRepo)(nil)

// NewLedgerRepo creates the ledger repository.
func NewLedgerRepo(txManager *postgres.TxManager) *LedgerRepo {
	return &LedgerRepo{txManager: txManager}
}

// RecordInvoiceIssued posts a ledger entry. Idempotent by invoice: the entry
// head carries a unique constraint on invoice_id, so a second posting of the
// same invoice matches the conflict clause and reports created=false.
func (r *LedgerRepo) RecordInvoiceIssued(ctx context.Context, entry finance.Entry) (bool, error) {
	created := false

	err := r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		querier := r.txManager.GetQuerier(ctx)

		result, err := querier.Exec(ctx, `
			INSERT INTO finance_entries (id, invoice_id, project_id, number, issued_at, base, vat, total, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (invoice_id) DO NOTHING
		`, entry.ID, entry.InvoiceID, entry.ProjectID, entry.Number, entry.IssuedAt,
			entry.Base, entry.VAT, entry.Total, entry.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert finance entry: %w", err)
		}

		if result.RowsAffected() == 0 {
			return nil
		}
		created = true

		for i, line := range entry.Lines {
			_, err := querier.Exec(ctx, `
				INSERT INTO finance_entry_lines (entry_id, pos, name, kind, quantity, unit, unit_price, vat_rate)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`, entry.ID, i+1, line.Name, line.Kind, line.Quantity, line.Unit, line.UnitPrice, line.VATRate)
			if err != nil {
				return fmt.Errorf("insert finance entry line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	return created, nil
}
