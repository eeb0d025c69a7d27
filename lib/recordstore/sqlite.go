package recordstore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

// SqliteStore implements Store on a single `records` table with the
// field set serialized as json. Vendor catalogs are tens of rows, so
// equality filtering happens in Go after a type-scoped select.
type SqliteStore struct {
	db *sql.DB
}

func NewSqliteStore(db *sql.DB) SqliteStore {
	return SqliteStore{db: db}
}

func (s SqliteStore) List(ctx context.Context, entityType string, opts ListOptions) ([]Record, error) {
	rows, err := s.db.QueryContext(
		ctx,
		// created_at has second granularity, rowid breaks ties in
		// insertion order
		"SELECT id, type, fields FROM records WHERE type = ? ORDER BY created_at ASC, rowid ASC",
		entityType,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matched []Record
	for rows.Next() {
		var rec Record
		var fields string
		err := rows.Scan(&rec.ID, &rec.Type, &fields)
		if err != nil {
			return nil, err
		}
		err = json.Unmarshal([]byte(fields), &rec.Fields)
		if err != nil {
			return nil, fmt.Errorf("record %s has malformed fields: %w", rec.ID, err)
		}

		if !matchesFilter(rec.Fields, opts.Filter) {
			continue
		}
		matched = append(matched, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return paginate(matched, opts.Limit, opts.Page), nil
}

func matchesFilter(fields, filter map[string]string) bool {
	for k, want := range filter {
		if fields[k] != want {
			return false
		}
	}
	return true
}

func paginate(records []Record, limit, page int) []Record {
	if limit <= 0 {
		return records
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(records) {
		return nil
	}
	end := start + limit
	if end > len(records) {
		end = len(records)
	}
	return records[start:end]
}

func (s SqliteStore) Create(ctx context.Context, entityType string, fields map[string]string) (Record, error) {
	serialized, err := json.Marshal(fields)
	if err != nil {
		return Record{}, err
	}

	id := ulid.Make().String()
	now := time.Now().Unix()

	_, err = s.db.ExecContext(
		ctx,
		"INSERT INTO records (id, type, fields, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		id, entityType, string(serialized), now, now,
	)
	if err != nil {
		return Record{}, err
	}

	return Record{ID: id, Type: entityType, Fields: fields}, nil
}

func (s SqliteStore) Update(ctx context.Context, entityType, id string, fields map[string]string) (Record, error) {
	serialized, err := json.Marshal(fields)
	if err != nil {
		return Record{}, err
	}

	res, err := s.db.ExecContext(
		ctx,
		"UPDATE records SET fields = ?, updated_at = ? WHERE id = ? AND type = ?",
		string(serialized), time.Now().Unix(), id, entityType,
	)
	if err != nil {
		return Record{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Record{}, err
	}
	if affected == 0 {
		return Record{}, fmt.Errorf("no %s record with id %s", entityType, id)
	}

	return Record{ID: id, Type: entityType, Fields: fields}, nil
}
