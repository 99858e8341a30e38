package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"nework/pkg/model"
)

// OpenSQLite creates the tables if needed. The caller owns db.
func OpenSQLite(ctx context.Context, db *sql.DB, opts Options) (*Store, error) {
	for _, name := range []string{POSTS, EVENTS, JOBS, USERS} {
		if err := createTable(ctx, db, name); err != nil {
			return nil, err
		}
	}
	return &Store{
		Posts:  newTable[model.Post](POSTS, &sqliteBackend[model.Post]{db: db, table: POSTS}, opts),
		Events: newTable[model.Event](EVENTS, &sqliteBackend[model.Event]{db: db, table: EVENTS}, opts),
		Jobs:   newTable[model.Job](JOBS, &sqliteBackend[model.Job]{db: db, table: JOBS}, opts),
		Users:  newTable[model.User](USERS, &sqliteBackend[model.User]{db: db, table: USERS}, opts),
	}, nil
}

func createTable(ctx context.Context, db *sql.DB, name string) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY,
			owner_id INTEGER NOT NULL,
			body TEXT NOT NULL
		)`, name),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_owner ON %s (owner_id)", name, name),
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("error creating table %s: %w", name, err)
		}
	}
	return nil
}

// sqliteBackend keeps each row as a json body next to its id and owner
type sqliteBackend[T Row] struct {
	db    *sql.DB
	table string
}

func (b *sqliteBackend[T]) upsert(ctx context.Context, rows []T) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := b.put(ctx, tx, rows); err != nil {
		return err
	}
	return tx.Commit()
}

func (b *sqliteBackend[T]) sync(ctx context.Context, scope Scope, rows []T) ([]int64, error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	keep := make(map[int64]bool, len(rows))
	for _, r := range rows {
		keep[r.Key()] = true
	}
	query := fmt.Sprintf("SELECT id FROM %s WHERE (? = 0 OR owner_id = ?)", b.table)
	res, err := tx.QueryContext(ctx, query, scope.Owner, scope.Owner)
	if err != nil {
		return nil, err
	}
	var evicted []int64
	for res.Next() {
		var id int64
		if err := res.Scan(&id); err != nil {
			res.Close()
			return nil, err
		}
		if !keep[id] {
			evicted = append(evicted, id)
		}
	}
	res.Close()
	if err := res.Err(); err != nil {
		return nil, err
	}

	del := fmt.Sprintf("DELETE FROM %s WHERE id = ?", b.table)
	for _, id := range evicted {
		if _, err := tx.ExecContext(ctx, del, id); err != nil {
			return nil, err
		}
	}
	if err := b.put(ctx, tx, rows); err != nil {
		return nil, err
	}
	return evicted, tx.Commit()
}

func (b *sqliteBackend[T]) put(ctx context.Context, tx *sql.Tx, rows []T) error {
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT OR REPLACE INTO %s (id, owner_id, body) VALUES (?, ?, ?)", b.table))
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		body, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("error converting row %d to json: %w", r.Key(), err)
		}
		if _, err := stmt.ExecContext(ctx, r.Key(), r.Owner(), string(body)); err != nil {
			return err
		}
	}
	return nil
}

func (b *sqliteBackend[T]) remove(ctx context.Context, id int64) error {
	_, err := b.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", b.table), id)
	return err
}

func (b *sqliteBackend[T]) get(ctx context.Context, id int64) (T, error) {
	var row T
	var body string
	err := b.db.QueryRowContext(ctx, fmt.Sprintf("SELECT body FROM %s WHERE id = ?", b.table), id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return row, fmt.Errorf("%s %d: %w", b.table, id, ErrNotFound)
	}
	if err != nil {
		return row, err
	}
	if err := json.Unmarshal([]byte(body), &row); err != nil {
		return row, fmt.Errorf("error parsing row %d from sqlite: %w", id, err)
	}
	return row, nil
}

func (b *sqliteBackend[T]) list(ctx context.Context, scope Scope) ([]T, error) {
	query := fmt.Sprintf("SELECT body FROM %s WHERE (? = 0 OR owner_id = ?) ORDER BY id DESC", b.table)
	res, err := b.db.QueryContext(ctx, query, scope.Owner, scope.Owner)
	if err != nil {
		return nil, err
	}
	defer res.Close()
	rows := []T{}
	for res.Next() {
		var body string
		if err := res.Scan(&body); err != nil {
			return nil, err
		}
		var row T
		if err := json.Unmarshal([]byte(body), &row); err != nil {
			return nil, fmt.Errorf("error parsing row from sqlite: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, res.Err()
}
