package locks

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is the connection-pooled, transactional Store backing
// /locks. Every operation checks out one connection from the pool for
// the duration of its transaction (spec.md §5 "Shared state") — there
// is no in-process lock on the logical lock set; correctness comes
// entirely from Postgres transaction isolation. Grounded on
// postgres_locks_provider.rs and sql_query_builder.rs.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an already-connected pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Connect builds a pgxpool against host/dbname/username/password,
// mirroring PostgresLocksProvider::new's parameter shape.
func Connect(ctx context.Context, host, dbname, username, password string) (*Postgres, error) {
	dsn := fmt.Sprintf("host=%s dbname=%s user=%s password=%s", host, dbname, username, password)
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return NewPostgres(pool), nil
}

// Schema is the locks table's DDL, applied at bootstrap (out of scope
// per spec.md §1, included here for operators standing up a fresh
// database).
const Schema = `
CREATE TABLE IF NOT EXISTS locks (
	id SERIAL PRIMARY KEY,
	path TEXT NOT NULL,
	ref_name TEXT NOT NULL,
	repo TEXT NOT NULL,
	owner TEXT NOT NULL,
	locked_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (repo, path)
);
`

// rowToLock scans one locks row. The id column is a SERIAL integer;
// callers see it as an opaque string.
func rowToLock(row pgx.Row) (Lock, error) {
	var l Lock
	var id int64
	var owner string
	if err := row.Scan(&id, &l.Path, &l.RefName, &owner, &l.LockedAt); err != nil {
		return Lock{}, err
	}
	l.ID = strconv.FormatInt(id, 10)
	l.Owner = Owner{Name: owner}
	return l, nil
}

// CreateLock implements the select-existing-then-insert pattern inside
// one repeatable-read transaction: a naive check-then-insert
// would race under concurrency (spec.md §9).
func (p *Postgres) CreateLock(ctx context.Context, repo, user, path, ref string) (Lock, bool, error) {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return Lock{}, false, newError(ErrConnectionFailure, err)
	}
	defer tx.Rollback(ctx)

	existingRow := tx.QueryRow(ctx,
		`SELECT id, path, ref_name, owner, locked_at FROM locks WHERE repo = $1 AND path = $2`,
		repo, path)
	if existing, err := rowToLock(existingRow); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return Lock{}, false, newError(ErrRequestExecutionFailure, err)
	}

	insertedRow := tx.QueryRow(ctx,
		`INSERT INTO locks (path, ref_name, repo, owner) VALUES ($1, $2, $3, $4)
		 RETURNING id, path, ref_name, owner, locked_at`,
		path, ref, repo, user)
	created, err := rowToLock(insertedRow)
	if err != nil {
		return Lock{}, false, newError(ErrRequestExecutionFailure, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Lock{}, false, newError(ErrConnectionFailure, err)
	}
	return created, true, nil
}

// ListLocks fetches fetchSize(effectiveLimit) rows (the overflow probe)
// and, when more than effectiveLimit rows came back, returns the last
// fetched row's id as next_cursor and only the first effectiveLimit rows
// as the page, per spec.md §9. Ref is accepted but never applied as a filter
// (spec.md §9 "Open question — ref scoping").
func (p *Postgres) ListLocks(ctx context.Context, repo string, opts ListOptions) (string, []Lock, error) {
	effective := effectiveLimit(opts.Limit, opts.LimitSupplied)
	fetch := fetchSize(effective)

	sql := `SELECT id, path, ref_name, owner, locked_at FROM locks WHERE repo = $1`
	args := []any{repo}

	if opts.Path != "" {
		args = append(args, opts.Path)
		sql += fmt.Sprintf(" AND path = $%d", len(args))
	}
	if opts.ID != "" {
		id, err := strconv.ParseInt(opts.ID, 10, 64)
		if err != nil {
			return "", nil, newError(ErrInvalidID, err)
		}
		args = append(args, id)
		sql += fmt.Sprintf(" AND id = $%d", len(args))
	}
	if opts.Cursor != "" {
		cursor, err := strconv.ParseInt(opts.Cursor, 10, 64)
		if err != nil {
			return "", nil, newError(ErrInvalidCursor, err)
		}
		args = append(args, cursor)
		sql += fmt.Sprintf(" AND id >= $%d", len(args))
	}
	sql += " ORDER BY id ASC"
	args = append(args, fetch)
	sql += fmt.Sprintf(" LIMIT $%d", len(args))

	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return "", nil, newError(ErrRequestExecutionFailure, err)
	}
	defer rows.Close()

	var fetched []Lock
	for rows.Next() {
		l, err := rowToLock(rows)
		if err != nil {
			return "", nil, newError(ErrParsingResponseDataFailure, err)
		}
		fetched = append(fetched, l)
	}
	if err := rows.Err(); err != nil {
		return "", nil, newError(ErrRequestExecutionFailure, err)
	}

	var nextCursor string
	page := fetched
	if len(fetched) > effective {
		nextCursor = fetched[len(fetched)-1].ID
		page = fetched[:effective]
	}
	return nextCursor, page, nil
}

// DeleteLock re-selects the row inside the same transaction before
// deleting it, so LockNotFound and ForceDeleteRequired can be told
// apart from a single zero-row DELETE (spec.md's supplemented
// description of the original's ambiguity resolution).
func (p *Postgres) DeleteLock(ctx context.Context, repo, user, id, ref string, force bool) (Lock, error) {
	rowID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return Lock{}, newError(ErrInvalidID, err)
	}

	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return Lock{}, newError(ErrConnectionFailure, err)
	}
	defer tx.Rollback(ctx)

	sql := `SELECT id, path, ref_name, owner, locked_at FROM locks WHERE repo = $1 AND id = $2`
	args := []any{repo, rowID}
	if ref != "" {
		args = append(args, ref)
		sql += fmt.Sprintf(" AND ref_name = $%d", len(args))
	}

	row := tx.QueryRow(ctx, sql, args...)
	existing, err := rowToLock(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lock{}, newError(ErrLockNotFound, nil)
	} else if err != nil {
		return Lock{}, newError(ErrRequestExecutionFailure, err)
	}

	if existing.Owner.Name != user && !force {
		return Lock{}, newError(ErrForceDeleteRequired, nil)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM locks WHERE repo = $1 AND id = $2`, repo, rowID); err != nil {
		return Lock{}, newError(ErrRequestExecutionFailure, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Lock{}, newError(ErrConnectionFailure, err)
	}
	return existing, nil
}
