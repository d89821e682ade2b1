// Package sqlite provides the on-disk triple index used by the overlay
// driver: a SQLite database built once from a volume's Turtle metadata and
// queried read-only afterwards.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"

	"github.com/knakk/rdf"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/aff4meta/pkg/rdfvalue"
	"github.com/papercomputeco/aff4meta/pkg/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS triples (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	subject    TEXT NOT NULL,
	predicate  TEXT NOT NULL,
	object_key TEXT NOT NULL,
	object     BLOB NOT NULL,
	UNIQUE (subject, predicate, object_key)
);
CREATE INDEX IF NOT EXISTS triples_predicate ON triples (predicate, object_key);
`

// Index is a read-mostly triple table.
type Index struct {
	db     *sql.DB
	path   string
	values *rdfvalue.Registry
}

// Open opens or creates the index database at path. The path can be a file
// path or ":memory:". A nil registry uses rdfvalue.DefaultRegistry.
func Open(path string, values *rdfvalue.Registry) (*Index, error) {
	// Open the database using the github.com/mattn/go-sqlite3 driver (registered as "sqlite3")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if values == nil {
		values = rdfvalue.DefaultRegistry()
	}
	return &Index{db: db, path: path, values: values}, nil
}

// Path is the database location.
func (ix *Index) Path() string {
	return ix.path
}

// Close closes the database.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// Load inserts triples in one transaction and returns the number of new rows.
func (ix *Index) Load(ctx context.Context, triples iter.Seq2[rdf.Triple, error]) (int, error) {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning load: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO triples (subject, predicate, object_key, object) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for t, err := range triples {
		if err != nil {
			return 0, err
		}
		object, err := ix.values.FromTerm(t.Obj)
		if err != nil {
			return 0, fmt.Errorf("converting object of %s: %w", t.Subj, err)
		}
		blob, err := encodeValue(object)
		if err != nil {
			return 0, fmt.Errorf("encoding object of %s: %w", t.Subj, err)
		}

		res, err := stmt.ExecContext(ctx, t.Subj.String(), t.Pred.String(), object.Key(), blob)
		if err != nil {
			return 0, fmt.Errorf("inserting triple for %s: %w", t.Subj, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing load: %w", err)
	}
	return inserted, nil
}

// Count returns the number of stored triples.
func (ix *Index) Count(ctx context.Context) (int, error) {
	var n int
	if err := ix.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM triples`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting triples: %w", err)
	}
	return n, nil
}

// Values returns the objects of one (subject, predicate) slot in load order.
func (ix *Index) Values(ctx context.Context, subject, predicate rdfvalue.URN) ([]rdfvalue.Value, error) {
	rows, err := ix.db.QueryContext(ctx,
		`SELECT object FROM triples WHERE subject = ? AND predicate = ? ORDER BY seq`,
		subject.String(), predicate.String())
	if err != nil {
		return nil, fmt.Errorf("querying values: %w", err)
	}
	defer rows.Close()

	var out []rdfvalue.Value
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("scanning value: %w", err)
		}
		v, err := decodeValue(ix.values, blob)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Subjects returns the distinct subjects in first-seen order.
func (ix *Index) Subjects(ctx context.Context) ([]rdfvalue.URN, error) {
	return ix.subjects(ctx, `SELECT subject FROM triples GROUP BY subject ORDER BY MIN(seq)`)
}

// SubjectsWithPrefix returns the distinct subjects starting with prefix.
func (ix *Index) SubjectsWithPrefix(ctx context.Context, prefix string) ([]rdfvalue.URN, error) {
	return ix.subjects(ctx,
		`SELECT subject FROM triples WHERE substr(subject, 1, length(?1)) = ?1 GROUP BY subject ORDER BY MIN(seq)`,
		prefix)
}

// SubjectsWithObject returns the subjects holding value under predicate.
func (ix *Index) SubjectsWithObject(ctx context.Context, predicate rdfvalue.URN, value rdfvalue.Value) ([]rdfvalue.URN, error) {
	return ix.subjects(ctx,
		`SELECT subject FROM triples WHERE predicate = ? AND object_key = ? GROUP BY subject ORDER BY MIN(seq)`,
		predicate.String(), value.Key())
}

func (ix *Index) subjects(ctx context.Context, query string, args ...any) ([]rdfvalue.URN, error) {
	rows, err := ix.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying subjects: %w", err)
	}
	defer rows.Close()

	var out []rdfvalue.URN
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scanning subject: %w", err)
		}
		out = append(out, rdfvalue.NewURN(s))
	}
	return out, rows.Err()
}

// WithPredicate returns every triple using predicate.
func (ix *Index) WithPredicate(ctx context.Context, predicate rdfvalue.URN) ([]storage.Triple, error) {
	rows, err := ix.db.QueryContext(ctx,
		`SELECT subject, object FROM triples WHERE predicate = ? ORDER BY seq`, predicate.String())
	if err != nil {
		return nil, fmt.Errorf("querying predicate: %w", err)
	}
	defer rows.Close()

	var out []storage.Triple
	for rows.Next() {
		var (
			s    string
			blob []byte
		)
		if err := rows.Scan(&s, &blob); err != nil {
			return nil, fmt.Errorf("scanning triple: %w", err)
		}
		v, err := decodeValue(ix.values, blob)
		if err != nil {
			return nil, err
		}
		out = append(out, storage.Triple{Subject: rdfvalue.NewURN(s), Predicate: predicate, Object: v})
	}
	return out, rows.Err()
}

// Attributes returns the attributes of subject, each predicate placed where
// it was first seen.
func (ix *Index) Attributes(ctx context.Context, subject rdfvalue.URN) ([]storage.Attribute, error) {
	rows, err := ix.db.QueryContext(ctx,
		`SELECT predicate, object FROM triples WHERE subject = ? ORDER BY seq`, subject.String())
	if err != nil {
		return nil, fmt.Errorf("querying attributes: %w", err)
	}
	defer rows.Close()

	var out []storage.Attribute
	position := make(map[string]int)
	for rows.Next() {
		var (
			p    string
			blob []byte
		)
		if err := rows.Scan(&p, &blob); err != nil {
			return nil, fmt.Errorf("scanning attribute: %w", err)
		}
		v, err := decodeValue(ix.values, blob)
		if err != nil {
			return nil, err
		}

		i, ok := position[p]
		if !ok {
			i = len(out)
			position[p] = i
			out = append(out, storage.Attribute{Predicate: rdfvalue.NewURN(p)})
		}
		out[i].Values = append(out[i].Values, v)
	}
	return out, rows.Err()
}

// Remove deletes the database at path together with its journal files.
// Missing files are not an error.
func Remove(path string) error {
	var errs []error
	for _, p := range []string{path, path + "-journal", path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
