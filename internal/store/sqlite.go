package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"skkime/internal/jisyo"
)

// Store represents the SQLite user dictionary.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ jisyo.Persister = (*Store)(nil)

// Open opens or creates the SQLite database at the given path and runs migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := MigrateDB(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveEntry replaces all candidates stored for key.
func (s *Store) SaveEntry(key string, cands []jisyo.Candidate) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM entries WHERE midashigo = ?`, key); err != nil {
		return fmt.Errorf("clear entry: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO entries (midashigo, position, word, annotation)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, c := range cands {
		if _, err := stmt.Exec(key, i, c.Word, c.Annotation); err != nil {
			return fmt.Errorf("insert candidate %d: %w", i, err)
		}
	}

	if len(cands) > 0 {
		if err := s.record(tx, key, cands[0].Word, ActionSave); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// DeleteEntry removes key and all of its candidates.
func (s *Store) DeleteEntry(key string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM entries WHERE midashigo = ?`, key); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if err := s.record(tx, key, "", ActionDelete); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) record(tx *sql.Tx, key, word string, action Action) error {
	_, err := tx.Exec(`
		INSERT INTO registrations (midashigo, word, action, created_ns)
		VALUES (?, ?, ?, ?)`,
		key, word, string(action), s.now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record %s: %w", action, err)
	}
	return nil
}

// Lookup returns the stored candidates for key in order, or nil.
func (s *Store) Lookup(key string) ([]jisyo.Candidate, error) {
	rows, err := s.db.Query(`
		SELECT word, annotation FROM entries
		WHERE midashigo = ? ORDER BY position`, key)
	if err != nil {
		return nil, fmt.Errorf("query entry: %w", err)
	}
	defer rows.Close()

	var cands []jisyo.Candidate
	for rows.Next() {
		var c jisyo.Candidate
		if err := rows.Scan(&c.Word, &c.Annotation); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		cands = append(cands, c)
	}
	return cands, rows.Err()
}

// LoadAll returns every stored entry.
func (s *Store) LoadAll() (map[string][]jisyo.Candidate, error) {
	rows, err := s.db.Query(`
		SELECT midashigo, word, annotation FROM entries
		ORDER BY midashigo, position`)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	all := make(map[string][]jisyo.Candidate)
	for rows.Next() {
		var key string
		var c jisyo.Candidate
		if err := rows.Scan(&key, &c.Word, &c.Annotation); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		all[key] = append(all[key], c)
	}
	return all, rows.Err()
}

// ImportLayer saves every entry of l. Existing keys are replaced.
func (s *Store) ImportLayer(l jisyo.Layer) (int, error) {
	n := 0
	for _, key := range l.Keys() {
		cands, ok := l.Get(key)
		if !ok {
			continue
		}
		if err := s.SaveEntry(key, cands); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Stats returns entry and candidate counts.
func (s *Store) Stats() (*Stats, error) {
	var st Stats
	err := s.db.QueryRow(`
		SELECT COUNT(DISTINCT midashigo), COUNT(*) FROM entries`).Scan(&st.Entries, &st.Candidates)
	if err != nil {
		return nil, fmt.Errorf("count entries: %w", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM registrations`).Scan(&st.Registrations); err != nil {
		return nil, fmt.Errorf("count registrations: %w", err)
	}
	if st.SchemaVersion, err = SchemaVersion(s.db); err != nil {
		return nil, err
	}
	return &st, nil
}

// RecentRegistrations returns the newest history rows first.
func (s *Store) RecentRegistrations(limit int) ([]Registration, error) {
	if limit <= 0 {
		return nil, errors.New("store: limit must be positive")
	}
	rows, err := s.db.Query(`
		SELECT id, midashigo, word, action, created_ns FROM registrations
		ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query registrations: %w", err)
	}
	defer rows.Close()

	var out []Registration
	for rows.Next() {
		var r Registration
		var action string
		var ns int64
		if err := rows.Scan(&r.ID, &r.Midashigo, &r.Word, &action, &ns); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		r.Action = Action(action)
		r.CreatedAt = time.Unix(0, ns)
		out = append(out, r)
	}
	return out, rows.Err()
}

// LoadUserLayer builds the mutable dictionary layer from s.
func LoadUserLayer(s *Store) (*jisyo.MapLayer, error) {
	all, err := s.LoadAll()
	if err != nil {
		return nil, err
	}
	return jisyo.NewMapLayerFrom(all), nil
}
