package index

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/doclib/internal/apperr"
)

// DocumentRow represents a row in the documents table.
type DocumentRow struct {
	ID          int64
	Path        string
	Title       string
	Description string
	Checksum    string
	Size        int64
	UpdatedAt   time.Time
}

const selectColumns = `SELECT id, path, title, description, checksum, size, updated_at FROM documents`

// UpsertDocument inserts or updates the row for d.Path and returns its id.
// An existing row keeps its id.
func (db *DB) UpsertDocument(d DocumentRow) (int64, error) {
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = time.Now()
	}
	var id int64
	err := db.conn.QueryRow(`
		INSERT INTO documents (path, title, description, checksum, size, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title       = excluded.title,
			description = excluded.description,
			checksum    = excluded.checksum,
			size        = excluded.size,
			updated_at  = excluded.updated_at
		RETURNING id
	`, d.Path, d.Title, d.Description, d.Checksum, d.Size, d.UpdatedAt.UTC()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("index: upsert document: %w", err)
	}
	return id, nil
}

// DeleteDocument removes the row for path. Missing rows are not an error.
func (db *DB) DeleteDocument(path string) error {
	if _, err := db.conn.Exec(`DELETE FROM documents WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete document: %w", err)
	}
	return nil
}

// GetChecksum returns the stored checksum for path, or "" if not indexed.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// GetDocument returns the row for path.
func (db *DB) GetDocument(path string) (*DocumentRow, error) {
	return db.getOne(selectColumns+` WHERE path = ?`, path)
}

// GetDocumentByID returns the row with id.
func (db *DB) GetDocumentByID(id int64) (*DocumentRow, error) {
	return db.getOne(selectColumns+` WHERE id = ?`, id)
}

func (db *DB) getOne(q string, arg any) (*DocumentRow, error) {
	var r DocumentRow
	err := db.conn.QueryRow(q, arg).Scan(&r.ID, &r.Path, &r.Title, &r.Description, &r.Checksum, &r.Size, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get document: %w", err)
	}
	return &r, nil
}

// ListDocuments returns every row in id order. A non-empty query keeps rows
// whose title or description contains it, case-insensitively.
func (db *DB) ListDocuments(query string) ([]DocumentRow, error) {
	q := selectColumns
	var args []any
	if query = strings.TrimSpace(query); query != "" {
		like := "%" + escapeLike(strings.ToLower(query)) + "%"
		q += ` WHERE lower(title) LIKE ? ESCAPE '\' OR lower(description) LIKE ? ESCAPE '\'`
		args = append(args, like, like)
	}
	q += ` ORDER BY id`

	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("index: list documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentRow
	for rows.Next() {
		var r DocumentRow
		if err := rows.Scan(&r.ID, &r.Path, &r.Title, &r.Description, &r.Checksum, &r.Size, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// AllChecksums returns path → checksum for every row.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// Count returns the number of indexed documents.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return n, nil
}
