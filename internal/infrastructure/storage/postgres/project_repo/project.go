// Package project_repo provides the PostgreSQL implementation of the project
// repository. Projects are not numbered documents, so the repo stands alone
// instead of building on the document base.
package project_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"fieldbill/internal/core/apperror"
	"fieldbill/internal/core/id"
	"fieldbill/internal/domain"
	"fieldbill/internal/domain/project"
	"fieldbill/internal/infrastructure/storage/postgres"
)

// projectRow is the persisted shape of a project: head fields plus the
// flattened customer snapshot columns.
type projectRow struct {
	project.Project
	project.Customer
}

func toRow(p *project.Project) *projectRow {
	return &projectRow{Project: *p, Customer: p.Customer}
}

func (r *projectRow) toModel() *project.Project {
	p := r.Project
	p.Customer = r.Customer
	return &p
}

// Repo is the PostgreSQL implementation of project.Repository.
type Repo struct {
	txManager *postgres.TxManager
	cols      []string
}

// Ensure compile-time interface compliance.
var _ project.Repository = (*Repo)(nil)

// New creates the project repository.
func New(txManager *postgres.TxManager) *Repo {
	return &Repo{
		txManager: txManager,
		cols:      postgres.ExtractDBColumns[projectRow](),
	}
}

func (r *Repo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *Repo) Create(ctx context.Context, p *project.Project) error {
	data := postgres.StructToMap(toRow(p))

	filtered := make(map[string]any, len(r.cols))
	for _, col := range r.cols {
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}

	sql, args, err := r.builder().
		Insert("projects").
		SetMap(filtered).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert projects: %w", err)
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, projectID id.ID) (*project.Project, error) {
	row := &projectRow{}
	sql, args, err := r.builder().
		Select(r.cols...).
		From("projects").
		Where(squirrel.Eq{"id": projectID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("project", projectID.String())
		}
		return nil, fmt.Errorf("get project: %w", err)
	}

	return row.toModel(), nil
}

// Update saves a project with optimistic locking. Services bump the entity
// version via Touch before saving.
func (r *Repo) Update(ctx context.Context, p *project.Project) error {
	data := postgres.StructToMap(toRow(p))

	filtered := make(map[string]any, len(r.cols))
	for _, col := range r.cols {
		if col == "id" || col == "created_at" || col == "created_by" {
			continue
		}
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}

	sql, args, err := r.builder().
		Update("projects").
		SetMap(filtered).
		Where(squirrel.Eq{"id": p.ID}).
		Where(squirrel.Eq{"row_version": p.Version - 1}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update projects: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("project", p.ID)
	}
	return nil
}

func (r *Repo) List(ctx context.Context, filter project.ListFilter) (domain.ListResult[*project.Project], error) {
	result := domain.ListResult[*project.Project]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.builder().
		Select(r.cols...).
		From("projects")

	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": string(*filter.Status)})
	}
	if filter.Search != "" {
		q = q.Where(squirrel.Or{
			squirrel.ILike{"name": "%" + filter.Search + "%"},
			squirrel.ILike{"customer_name": "%" + filter.Search + "%"},
		})
	}

	countSQL, countArgs, err := r.builder().Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	q = q.OrderBy("created_at DESC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	var rows []*projectRow
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return result, fmt.Errorf("list projects: %w", err)
	}

	result.Items = make([]*project.Project, len(rows))
	for i, row := range rows {
		result.Items[i] = row.toModel()
	}
	return result, nil
}
