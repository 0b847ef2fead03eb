package document_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"fieldbill/internal/core/id"
	"fieldbill/internal/domain"
	"fieldbill/internal/domain/documents/offer"
	"fieldbill/internal/domain/pricing"
	"fieldbill/internal/infrastructure/storage/postgres"
)

// offerRow is the persisted shape of an offer version: head fields plus the
// flattened discount configuration columns.
type offerRow struct {
	offer.OfferVersion
	pricing.DiscountConfig
}

func toOfferRow(v *offer.OfferVersion) *offerRow {
	return &offerRow{OfferVersion: *v, DiscountConfig: v.Discount}
}

func (r *offerRow) toModel() *offer.OfferVersion {
	v := r.OfferVersion
	v.Discount = r.DiscountConfig
	return &v
}

// OfferRepo is the PostgreSQL implementation of offer.Repository.
type OfferRepo struct {
	base  *BaseDocumentRepo[*offerRow]
	items *lineTable[pricing.LineItem]
}

// Ensure compile-time interface compliance.
var _ offer.Repository = (*OfferRepo)(nil)

// NewOfferRepo creates the offer version repository.
func NewOfferRepo(txManager *postgres.TxManager) *OfferRepo {
	return &OfferRepo{
		base: NewBaseDocumentRepo(
			txManager,
			"offer_versions",
			postgres.ExtractDBColumns[offerRow](),
			func() *offerRow { return &offerRow{} },
		),
		items: newLineTable[pricing.LineItem](txManager, "offer_items", "version_id"),
	}
}

func (r *OfferRepo) Create(ctx context.Context, v *offer.OfferVersion) error {
	return r.base.Create(ctx, toOfferRow(v))
}

func (r *OfferRepo) GetByID(ctx context.Context, versionID id.ID) (*offer.OfferVersion, error) {
	row, err := r.base.GetByID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func (r *OfferRepo) Update(ctx context.Context, v *offer.OfferVersion) error {
	return r.base.Update(ctx, toOfferRow(v))
}

func (r *OfferRepo) GetItems(ctx context.Context, versionID id.ID) ([]pricing.LineItem, error) {
	return r.items.Get(ctx, versionID)
}

func (r *OfferRepo) SaveItems(ctx context.Context, versionID id.ID, items []pricing.LineItem) error {
	return r.items.Save(ctx, versionID, items)
}

func (r *OfferRepo) List(ctx context.Context, filter offer.ListFilter) (domain.ListResult[*offer.OfferVersion], error) {
	var conds []squirrel.Sqlizer
	if filter.ProjectID != nil {
		conds = append(conds, squirrel.Eq{"project_id": *filter.ProjectID})
	}
	if filter.BaseTitle != nil {
		conds = append(conds, squirrel.Eq{"base_title": *filter.BaseTitle})
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
		return domain.ListResult[*offer.OfferVersion]{}, err
	}

	result := domain.ListResult[*offer.OfferVersion]{
		TotalCount: rows.TotalCount,
		Limit:      rows.Limit,
		Offset:     rows.Offset,
		Items:      make([]*offer.OfferVersion, len(rows.Items)),
	}
	for i, row := range rows.Items {
		result.Items[i] = row.toModel()
	}
	return result, nil
}

func (r *OfferRepo) MaxVersionNumber(ctx context.Context, projectID id.ID, baseTitle string) (int, error) {
	var max int
	err := r.base.Querier(ctx).QueryRow(ctx, `
		SELECT COALESCE(MAX(version_number), 0)
		FROM offer_versions
		WHERE project_id = $1 AND base_title = $2
	`, projectID, baseTitle).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max version number: %w", err)
	}
	return max, nil
}

func (r *OfferRepo) GetAccepted(ctx context.Context, projectID id.ID) (*offer.OfferVersion, error) {
	row, err := r.base.GetOne(ctx,
		squirrel.Eq{"project_id": projectID},
		squirrel.Eq{"status": string(offer.StatusAccepted)},
	)
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

// MarkAccepted flips draft to accepted in a single conditional statement: it
// succeeds only while the version is draft and no other version of the
// project is accepted. The loser of a concurrent acceptance race matches
// zero rows and gets false.
func (r *OfferRepo) MarkAccepted(ctx context.Context, versionID id.ID, at time.Time) (bool, error) {
	result, err := r.base.Querier(ctx).Exec(ctx, `
		UPDATE offer_versions AS v
		SET status = 'accepted',
		    accepted_at = $2,
		    updated_at = $2,
		    row_version = row_version + 1
		WHERE v.id = $1
		  AND v.status = 'draft'
		  AND NOT EXISTS (
		      SELECT 1 FROM offer_versions o
		      WHERE o.project_id = v.project_id
		        AND o.status = 'accepted'
		        AND o.id <> v.id
		  )
	`, versionID, at)
	if err != nil {
		return false, fmt.Errorf("mark accepted: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

func (r *OfferRepo) RetireAccepted(ctx context.Context, projectID, exceptID id.ID, at time.Time) (int64, error) {
	result, err := r.base.Querier(ctx).Exec(ctx, `
		UPDATE offer_versions
		SET status = 'cancelled',
		    cancelled_at = $3,
		    updated_at = $3,
		    row_version = row_version + 1
		WHERE project_id = $1
		  AND status = 'accepted'
		  AND id <> $2
	`, projectID, exceptID, at)
	if err != nil {
		return 0, fmt.Errorf("retire accepted: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *OfferRepo) GetForUpdate(ctx context.Context, versionID id.ID) (*offer.OfferVersion, error) {
	row, err := r.base.GetForUpdate(ctx, versionID)
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}
