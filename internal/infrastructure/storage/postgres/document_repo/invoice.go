package document_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"fieldbill/internal/core/id"
	"fieldbill/internal/domain"
	"fieldbill/internal/domain/documents/invoice"
	"fieldbill/internal/domain/pricing"
	"fieldbill/internal/infrastructure/storage/postgres"
)

// invoiceRow is the persisted shape of an invoice version: head fields plus
// the flattened discount configuration columns.
type invoiceRow struct {
	invoice.InvoiceVersion
	pricing.DiscountConfig
}

func toInvoiceRow(v *invoice.InvoiceVersion) *invoiceRow {
	return &invoiceRow{InvoiceVersion: *v, DiscountConfig: v.Discount}
}

func (r *invoiceRow) toModel() *invoice.InvoiceVersion {
	v := r.InvoiceVersion
	v.Discount = r.DiscountConfig
	return &v
}

// InvoiceRepo is the PostgreSQL implementation of invoice.Repository.
type InvoiceRepo struct {
	base  *BaseDocumentRepo[*invoiceRow]
	items *lineTable[invoice.Item]
}

// Ensure compile-time interface compliance.
var _ invoice.Repository = (*InvoiceRepo)(nil)

// NewInvoiceRepo creates the invoice version repository.
func NewInvoiceRepo(txManager *postgres.TxManager) *InvoiceRepo {
	return &InvoiceRepo{
		base: NewBaseDocumentRepo(
			txManager,
			"invoice_versions",
			postgres.ExtractDBColumns[invoiceRow](),
			func() *invoiceRow { return &invoiceRow{} },
		),
		items: newLineTable[invoice.Item](txManager, "invoice_items", "version_id"),
	}
}

func (r *InvoiceRepo) Create(ctx context.Context, v *invoice.InvoiceVersion) error {
	return r.base.Create(ctx, toInvoiceRow(v))
}

func (r *InvoiceRepo) GetByID(ctx context.Context, versionID id.ID) (*invoice.InvoiceVersion, error) {
	row, err := r.base.GetByID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func (r *InvoiceRepo) Update(ctx context.Context, v *invoice.InvoiceVersion) error {
	return r.base.Update(ctx, toInvoiceRow(v))
}

func (r *InvoiceRepo) GetItems(ctx context.Context, versionID id.ID) ([]invoice.Item, error) {
	return r.items.Get(ctx, versionID)
}

func (r *InvoiceRepo) SaveItems(ctx context.Context, versionID id.ID, items []invoice.Item) error {
	return r.items.Save(ctx, versionID, items)
}

func (r *InvoiceRepo) List(ctx context.Context, filter invoice.ListFilter) (domain.ListResult[*invoice.InvoiceVersion], error) {
	var conds []squirrel.Sqlizer
	if filter.ProjectID != nil {
		conds = append(conds, squirrel.Eq{"project_id": *filter.ProjectID})
	}
	if filter.Status != nil {
		conds = append(conds, squirrel.Eq{"status": string(*filter.Status)})
	}
	if filter.DateFrom != nil {
		conds = append(conds, squirrel.GtOrEq{"date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		conds = append(conds, squirrel.LtOrEq{"date": *filter.DateTo})
	}

	rows, err := r.base.List(ctx, filter.ListFilter, conds...)
	if err != nil {
		return domain.ListResult[*invoice.InvoiceVersion]{}, err
	}

	result := domain.ListResult[*invoice.InvoiceVersion]{
		TotalCount: rows.TotalCount,
		Limit:      rows.Limit,
		Offset:     rows.Offset,
		Items:      make([]*invoice.InvoiceVersion, len(rows.Items)),
	}
	for i, row := range rows.Items {
		result.Items[i] = row.toModel()
	}
	return result, nil
}

func (r *InvoiceRepo) MaxVersionNumber(ctx context.Context, projectID id.ID) (int, error) {
	var max int
	err := r.base.Querier(ctx).QueryRow(ctx, `
		SELECT COALESCE(MAX(version_number), 0)
		FROM invoice_versions
		WHERE project_id = $1
	`, projectID).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max version number: %w", err)
	}
	return max, nil
}

func (r *InvoiceRepo) GetDraft(ctx context.Context, projectID id.ID) (*invoice.InvoiceVersion, error) {
	row, err := r.base.GetOne(ctx,
		squirrel.Eq{"project_id": projectID},
		squirrel.Eq{"status": string(invoice.StatusDraft)},
	)
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func (r *InvoiceRepo) GetIssued(ctx context.Context, projectID id.ID) (*invoice.InvoiceVersion, error) {
	row, err := r.base.GetOne(ctx,
		squirrel.Eq{"project_id": projectID},
		squirrel.Eq{"status": string(invoice.StatusIssued)},
	)
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

// MarkIssued flips draft to issued in a single conditional statement: it
// succeeds only while the version is draft and no other version of the
// project is issued.
func (r *InvoiceRepo) MarkIssued(ctx context.Context, versionID id.ID, at time.Time) (bool, error) {
	result, err := r.base.Querier(ctx).Exec(ctx, `
		UPDATE invoice_versions AS v
		SET status = 'issued',
		    issued_at = $2,
		    updated_at = $2,
		    row_version = row_version + 1
		WHERE v.id = $1
		  AND v.status = 'draft'
		  AND NOT EXISTS (
		      SELECT 1 FROM invoice_versions i
		      WHERE i.project_id = v.project_id
		        AND i.status = 'issued'
		        AND i.id <> v.id
		  )
	`, versionID, at)
	if err != nil {
		return false, fmt.Errorf("mark issued: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

func (r *InvoiceRepo) RetireIssued(ctx context.Context, projectID, exceptID id.ID, at time.Time) (int64, error) {
	result, err := r.base.Querier(ctx).Exec(ctx, `
		UPDATE invoice_versions
		SET status = 'cancelled',
		    cancelled_at = $3,
		    updated_at = $3,
		    row_version = row_version + 1
		WHERE project_id = $1
		  AND status = 'issued'
		  AND id <> $2
	`, projectID, exceptID, at)
	if err != nil {
		return 0, fmt.Errorf("retire issued: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *InvoiceRepo) GetForUpdate(ctx context.Context, versionID id.ID) (*invoice.InvoiceVersion, error) {
	row, err := r.base.GetForUpdate(ctx, versionID)
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}
