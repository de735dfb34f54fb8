package postgres

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"freshledger/internal/core/apperror"
	"freshledger/internal/core/id"
)

// Builder returns a squirrel builder with PostgreSQL placeholders.
func Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Table provides the common statements for one table whose rows map onto T
// through "db" tags. Repositories embed or hold one Table per table.
type Table[T any] struct {
	txm    *TxManager
	name   string
	entity string
	cols   []string
}

// NewTable creates a table helper. entity names the row kind in NotFound errors.
func NewTable[T any](txm *TxManager, name, entity string) *Table[T] {
	return &Table[T]{txm: txm, name: name, entity: entity, cols: ExtractDBColumns[T]()}
}

// Name returns the table name.
func (t *Table[T]) Name() string { return t.name }

// Columns returns the mapped column names.
func (t *Table[T]) Columns() []string { return t.cols }

// Querier returns the transaction in ctx or the pool.
func (t *Table[T]) Querier(ctx context.Context) Querier {
	return t.txm.GetQuerier(ctx)
}

// SelectAll starts a SELECT of every mapped column.
func (t *Table[T]) SelectAll() squirrel.SelectBuilder {
	return Builder().Select(t.cols...).From(t.name)
}

// Insert writes rows in one statement, or with COPY for large batches
// inside a transaction.
func (t *Table[T]) Insert(ctx context.Context, rows ...*T) error {
	if len(rows) == 0 {
		return nil
	}
	if len(rows) >= copyThreshold && t.txm.GetTx(ctx) != nil {
		_, err := t.txm.CopyFrom(ctx, t.name, t.cols, rowValues(t.cols, rows))
		return err
	}
	sql, args, err := t.insertSQL(rows)
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := t.Querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", t.name, err)
	}
	return nil
}

func (t *Table[T]) insertSQL(rows []*T) (string, []any, error) {
	q := Builder().Insert(t.name).Columns(t.cols...)
	for _, values := range rowValues(t.cols, rows) {
		q = q.Values(values...)
	}
	return q.ToSql()
}

// Get returns the single row matched by q.
func (t *Table[T]) Get(ctx context.Context, q squirrel.SelectBuilder, key any) (*T, error) {
	sql, args, err := q.Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	row := new(T)
	if err := pgxscan.Get(ctx, t.Querier(ctx), row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(t.entity, key)
		}
		return nil, fmt.Errorf("get %s: %w", t.entity, err)
	}
	return row, nil
}

// GetByID returns the row with the given id.
func (t *Table[T]) GetByID(ctx context.Context, rowID id.ID) (*T, error) {
	return t.Get(ctx, t.SelectAll().Where(squirrel.Eq{"id": rowID}), rowID)
}

// Select returns every row matched by q.
func (t *Table[T]) Select(ctx context.Context, q squirrel.SelectBuilder) ([]T, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var rows []T
	if err := pgxscan.Select(ctx, t.Querier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select %s: %w", t.name, err)
	}
	return rows, nil
}

// Count returns the number of rows q would produce.
func (t *Table[T]) Count(ctx context.Context, q squirrel.SelectBuilder) (int64, error) {
	sql, args, err := Builder().Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}
	var n int64
	if err := t.Querier(ctx).QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", t.name, err)
	}
	return n, nil
}

// Exec runs a statement built with squirrel.
func (t *Table[T]) Exec(ctx context.Context, q squirrel.Sqlizer) (pgconn.CommandTag, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return pgconn.CommandTag{}, fmt.Errorf("build statement: %w", err)
	}
	tag, err := t.Querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return tag, fmt.Errorf("exec on %s: %w", t.name, err)
	}
	return tag, nil
}

// UpdateVersioned writes set on the row with rowID if its version still
// equals version, then bumps the version.
func (t *Table[T]) UpdateVersioned(ctx context.Context, rowID id.ID, version int, set map[string]any) error {
	q := Builder().Update(t.name).
		SetMap(set).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": rowID, "version": version})

	tag, err := t.Exec(ctx, q)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(t.entity, rowID)
	}
	return nil
}

// Update writes set on the row with rowID. Missing rows are NotFound.
func (t *Table[T]) Update(ctx context.Context, rowID id.ID, set map[string]any) error {
	tag, err := t.Exec(ctx, Builder().Update(t.name).SetMap(set).Where(squirrel.Eq{"id": rowID}))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound(t.entity, rowID)
	}
	return nil
}

// OrderBy turns "field" or "-field" into an ORDER BY clause. Only mapped
// columns are accepted; empty input yields fallback.
func (t *Table[T]) OrderBy(orderBy, fallback string) (string, error) {
	if orderBy == "" {
		return fallback, nil
	}

	direction := "ASC"
	field := orderBy
	if strings.HasPrefix(orderBy, "-") {
		direction = "DESC"
		field = strings.TrimPrefix(orderBy, "-")
	} else if strings.HasPrefix(orderBy, "+") {
		field = strings.TrimPrefix(orderBy, "+")
	}

	field = strings.TrimSpace(field)
	if field == "" || !slices.Contains(t.cols, field) {
		return "", apperror.NewValidation("invalid orderBy").WithDetail("orderBy", orderBy)
	}
	return field + " " + direction, nil
}
