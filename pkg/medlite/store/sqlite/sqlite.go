package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync/atomic"

	_ "modernc.org/sqlite"

	"github.com/cognicore/medlite/pkg/medlite/store"
)

// schemaVersion is stored in PRAGMA user_version.
const schemaVersion = 1

// Store is a persistent concept index backed by SQLite.
type Store struct {
	db     *sql.DB
	maxLen atomic.Int64
}

var (
	_ store.ConceptIndex = (*Store)(nil)
	_ store.Writer       = (*Store)(nil)
)

// OpenSQLite opens (creating if needed) a concept index database with WAL
// mode enabled.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.loadMaxLen(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return err
	}
	if version > schemaVersion {
		return fmt.Errorf("concept index schema version %d is newer than supported %d", version, schemaVersion)
	}

	schema := `
CREATE TABLE IF NOT EXISTS concepts (
	cui TEXT PRIMARY KEY,
	preferred_name TEXT NOT NULL DEFAULT '',
	semtypes TEXT NOT NULL DEFAULT '[]',
	sources TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS terms (
	term_key TEXT NOT NULL,
	cui TEXT NOT NULL,
	term TEXT NOT NULL,
	words INTEGER NOT NULL,
	preferred INTEGER NOT NULL DEFAULT 0,
	seq INTEGER NOT NULL,
	PRIMARY KEY(term_key, cui),
	FOREIGN KEY(cui) REFERENCES concepts(cui) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS terms_by_cui ON terms(cui);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version=%d", schemaVersion))
	return err
}

func (s *Store) loadMaxLen(ctx context.Context) error {
	var n sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(words) FROM terms`).Scan(&n); err != nil {
		return err
	}
	s.maxLen.Store(n.Int64)
	return nil
}

// UpsertConcept inserts or replaces a concept and all of its terms.
func (s *Store) UpsertConcept(ctx context.Context, c store.Concept) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := upsertConcept(ctx, tx, c); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	return s.loadMaxLen(ctx)
}

// Import writes every concept in a single transaction.
func (s *Store) Import(ctx context.Context, concepts []store.Concept) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, c := range concepts {
		if err := upsertConcept(ctx, tx, c); err != nil {
			return fmt.Errorf("import %s: %w", c.CUI, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	return s.loadMaxLen(ctx)
}

func upsertConcept(ctx context.Context, tx *sql.Tx, c store.Concept) error {
	if c.CUI == "" {
		return fmt.Errorf("concept without cui")
	}
	semtypes, err := json.Marshal(nonNil(c.SemanticTypes))
	if err != nil {
		return err
	}
	sources, err := json.Marshal(nonNil(c.Sources))
	if err != nil {
		return err
	}

	const stmt = `
INSERT INTO concepts (cui, preferred_name, semtypes, sources)
VALUES (?, ?, ?, ?)
ON CONFLICT(cui) DO UPDATE SET
	preferred_name=excluded.preferred_name,
	semtypes=excluded.semtypes,
	sources=excluded.sources;
`
	if _, err := tx.ExecContext(ctx, stmt, c.CUI, c.PreferredName, string(semtypes), string(sources)); err != nil {
		return err
	}
	return replaceTerms(ctx, tx, c)
}

func replaceTerms(ctx context.Context, tx *sql.Tx, c store.Concept) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM terms WHERE cui=?`, c.CUI); err != nil {
		return err
	}
	if len(c.Terms) == 0 {
		return nil
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM terms`).Scan(&seq); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO terms (term_key, cui, term, words, preferred, seq)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(term_key, cui) DO NOTHING`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	preferredKey := store.TermKey(c.PreferredName)
	for _, term := range c.Terms {
		key := store.TermKey(term)
		if key == "" {
			continue
		}
		seq++
		preferred := 0
		if key == preferredKey {
			preferred = 1
		}
		if _, err := stmt.ExecContext(ctx, key, c.CUI, term, store.TermLength(term), preferred, seq); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the concepts for a term key, preferred-name matches first,
// then insertion order.
func (s *Store) Lookup(ctx context.Context, key string) ([]store.Concept, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT c.cui, c.preferred_name, c.semtypes, c.sources
FROM terms t
JOIN concepts c ON c.cui = t.cui
WHERE t.term_key = ?
ORDER BY t.preferred DESC, t.seq ASC`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Concept
	for rows.Next() {
		var c store.Concept
		var semtypes, sources string
		if err := rows.Scan(&c.CUI, &c.PreferredName, &semtypes, &sources); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(semtypes), &c.SemanticTypes); err != nil {
			return nil, fmt.Errorf("decode semtypes for %s: %w", c.CUI, err)
		}
		if err := json.Unmarshal([]byte(sources), &c.Sources); err != nil {
			return nil, fmt.Errorf("decode sources for %s: %w", c.CUI, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		terms, err := s.loadTerms(ctx, out[i].CUI)
		if err != nil {
			return nil, err
		}
		out[i].Terms = terms
	}
	return out, nil
}

func (s *Store) loadTerms(ctx context.Context, cui string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT term FROM terms WHERE cui = ? ORDER BY seq`, cui)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var terms []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	return terms, rows.Err()
}

// MaxTermLength implements store.ConceptIndex.
func (s *Store) MaxTermLength() int {
	return int(s.maxLen.Load())
}

// Len implements store.ConceptIndex.
func (s *Store) Len() int {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM concepts`).Scan(&n); err != nil {
		return 0
	}
	return n
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
