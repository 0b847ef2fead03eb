package document_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"fieldbill/internal/core/id"
	"fieldbill/internal/domain"
	"fieldbill/internal/domain/workorder"
	"fieldbill/internal/infrastructure/storage/postgres"
)

// WorkOrderRepo is the PostgreSQL implementation of workorder.Repository.
type WorkOrderRepo struct {
	base  *BaseDocumentRepo[*workorder.WorkOrder]
	items *lineTable[workorder.Item]
}

// Ensure compile-time interface compliance.
var _ workorder.Repository = (*WorkOrderRepo)(nil)

// NewWorkOrderRepo creates the work order repository.
func NewWorkOrderRepo(txManager *postgres.TxManager) *WorkOrderRepo {
	return &WorkOrderRepo{
		base: NewBaseDocumentRepo(
			txManager,
			"work_orders",
			postgres.ExtractDBColumns[workorder.WorkOrder](),
			func() *workorder.WorkOrder { return &workorder.WorkOrder{} },
		),
		items: newLineTable[workorder.Item](txManager, "work_order_items", "order_id"),
	}
}

func (r *WorkOrderRepo) Create(ctx context.Context, wo *workorder.WorkOrder) error {
	return r.base.Create(ctx, wo)
}

func (r *WorkOrderRepo) GetByID(ctx context.Context, orderID id.ID) (*workorder.WorkOrder, error) {
	return r.base.GetByID(ctx, orderID)
}

func (r *WorkOrderRepo) Update(ctx context.Context, wo *workorder.WorkOrder) error {
	return r.base.Update(ctx, wo)
}

// GetActiveByProject returns the project's non-cancelled work order. At most
// one exists; re-acceptance refreshes it in place rather than creating more.
func (r *WorkOrderRepo) GetActiveByProject(ctx context.Context, projectID id.ID) (*workorder.WorkOrder, error) {
	return r.base.GetOne(ctx,
		squirrel.Eq{"project_id": projectID},
		squirrel.NotEq{"status": string(workorder.StatusCancelled)},
	)
}

func (r *WorkOrderRepo) ListByProject(ctx context.Context, projectID id.ID) ([]*workorder.WorkOrder, error) {
	return r.base.SelectWhere(ctx, "created_at",
		squirrel.Eq{"project_id": projectID},
	)
}

func (r *WorkOrderRepo) GetItems(ctx context.Context, orderID id.ID) ([]workorder.Item, error) {
	return r.items.Get(ctx, orderID)
}

func (r *WorkOrderRepo) SaveItems(ctx context.Context, orderID id.ID, items []workorder.Item) error {
	return r.items.Save(ctx, orderID, items)
}

func (r *WorkOrderRepo) List(ctx context.Context, filter workorder.ListFilter) (domain.ListResult[*workorder.WorkOrder], error) {
	var conds []squirrel.Sqlizer
	if filter.ProjectID != nil {
		conds = append(conds, squirrel.Eq{"project_id": *filter.ProjectID})
	}
	if filter.Status != nil {
		conds = append(conds, squirrel.Eq{"status": string(*filter.Status)})
	}
	return r.base.List(ctx, filter.ListFilter, conds...)
}

// MaterialOrderRepo is the PostgreSQL implementation of
// workorder.MaterialRepository.
type MaterialOrderRepo struct {
	base  *BaseDocumentRepo[*workorder.MaterialOrder]
	items *lineTable[workorder.Item]
}

// Ensure compile-time interface compliance.
var _ workorder.MaterialRepository = (*MaterialOrderRepo)(nil)

// NewMaterialOrderRepo creates the material order repository.
func NewMaterialOrderRepo(txManager *postgres.TxManager) *MaterialOrderRepo {
	return &MaterialOrderRepo{
		base: NewBaseDocumentRepo(
			txManager,
			"material_orders",
			postgres.ExtractDBColumns[workorder.MaterialOrder](),
			func() *workorder.MaterialOrder { return &workorder.MaterialOrder{} },
		),
		items: newLineTable[workorder.Item](txManager, "material_order_items", "order_id"),
	}
}

func (r *MaterialOrderRepo) Create(ctx context.Context, mo *workorder.MaterialOrder) error {
	return r.base.Create(ctx, mo)
}

func (r *MaterialOrderRepo) GetByID(ctx context.Context, orderID id.ID) (*workorder.MaterialOrder, error) {
	return r.base.GetByID(ctx, orderID)
}

func (r *MaterialOrderRepo) Update(ctx context.Context, mo *workorder.MaterialOrder) error {
	return r.base.Update(ctx, mo)
}

func (r *MaterialOrderRepo) GetActiveByProject(ctx context.Context, projectID id.ID) (*workorder.MaterialOrder, error) {
	return r.base.GetOne(ctx,
		squirrel.Eq{"project_id": projectID},
		squirrel.NotEq{"status": string(workorder.StatusCancelled)},
	)
}

func (r *MaterialOrderRepo) GetItems(ctx context.Context, orderID id.ID) ([]workorder.Item, error) {
	return r.items.Get(ctx, orderID)
}

func (r *MaterialOrderRepo) SaveItems(ctx context.Context, orderID id.ID, items []workorder.Item) error {
	return r.items.Save(ctx, orderID, items)
}
