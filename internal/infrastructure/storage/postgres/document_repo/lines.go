package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"fieldbill/internal/core/id"
	"fieldbill/internal/infrastructure/storage/postgres"
)

// lineTable persists a document's table part. Lines have no lifecycle of
// their own: saving replaces the owner's full line set in one statement pair,
// always inside the caller's transaction.
type lineTable[T any] struct {
	txManager *postgres.TxManager
	tableName string
	ownerCol  string
	cols      []string
}

func newLineTable[T any](txManager *postgres.TxManager, tableName, ownerCol string) *lineTable[T] {
	return &lineTable[T]{
		txManager: txManager,
		tableName: tableName,
		ownerCol:  ownerCol,
		cols:      postgres.ExtractDBColumns[T](),
	}
}

func (t *lineTable[T]) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Get loads the owner's lines in line order.
func (t *lineTable[T]) Get(ctx context.Context, ownerID id.ID) ([]T, error) {
	q := t.builder().
		Select(t.cols...).
		From(t.tableName).
		Where(squirrel.Eq{t.ownerCol: ownerID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []T
	if err := pgxscan.Select(ctx, t.txManager.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("select %s: %w", t.tableName, err)
	}

	return items, nil
}

// Save replaces the owner's full line set.
func (t *lineTable[T]) Save(ctx context.Context, ownerID id.ID, items []T) error {
	querier := t.txManager.GetQuerier(ctx)

	delSQL, delArgs, err := t.builder().
		Delete(t.tableName).
		Where(squirrel.Eq{t.ownerCol: ownerID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := querier.Exec(ctx, delSQL, delArgs...); err != nil {
		return fmt.Errorf("delete %s: %w", t.tableName, err)
	}

	if len(items) == 0 {
		return nil
	}

	ins := t.builder().
		Insert(t.tableName).
		Columns(append([]string{t.ownerCol}, t.cols...)...)

	for i := range items {
		data := postgres.StructToMap(items[i])
		row := make([]any, 0, len(t.cols)+1)
		row = append(row, ownerID)
		for _, col := range t.cols {
			row = append(row, data[col])
		}
		ins = ins.Values(row...)
	}

	sql, args, err := ins.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", t.tableName, err)
	}

	return nil
}
