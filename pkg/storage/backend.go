package storage

import (
	"database/sql"
	"log"
	"reactorcore/pkg/core/memory"
	"reactorcore/pkg/geom"
	"reactorcore/pkg/instr"
	"sync"

	_ "modernc.org/sqlite"
)

// Backend keeps the durable copies of the reactor: the raw step list and
// snapshots of the disjoint partition.
type Backend interface {
	AppendSteps(steps []instr.Step) error
	LoadSteps() ([]instr.Step, error)
	SaveSnapshot(entries []memory.Entry) error
	LoadSnapshot() ([]memory.Entry, error)
	Truncate() error
	Close()
}

type SQLiteBackend struct {
	db *sql.DB
	mu sync.Mutex
}

const schema = `
CREATE TABLE IF NOT EXISTS steps (
	seq   INTEGER PRIMARY KEY AUTOINCREMENT,
	state INTEGER NOT NULL,
	min_x INTEGER NOT NULL, max_x INTEGER NOT NULL,
	min_y INTEGER NOT NULL, max_y INTEGER NOT NULL,
	min_z INTEGER NOT NULL, max_z INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS snapshot (
	id    INTEGER PRIMARY KEY,
	state INTEGER NOT NULL,
	min_x INTEGER NOT NULL, max_x INTEGER NOT NULL,
	min_y INTEGER NOT NULL, max_y INTEGER NOT NULL,
	min_z INTEGER NOT NULL, max_z INTEGER NOT NULL
);`

func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	_, err = db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;
	`)
	if err != nil {
		log.Printf("[Storage] Warning: Failed to set PRAGMA: %v", err)
	}

	return &SQLiteBackend{db: db}, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *SQLiteBackend) AppendSteps(steps []instr.Step) error {
	if len(steps) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO steps (state, min_x, max_x, min_y, max_y, min_z, max_z)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, st := range steps {
		b := st.Box
		if _, err := stmt.Exec(boolInt(st.On), b.Min.X, b.Max.X, b.Min.Y, b.Max.Y, b.Min.Z, b.Max.Z); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBox(r rowScanner) (bool, geom.Box, error) {
	var state int
	var v [6]int64
	if err := r.Scan(&state, &v[0], &v[1], &v[2], &v[3], &v[4], &v[5]); err != nil {
		return false, geom.Box{}, err
	}
	box, err := geom.NewBox(
		geom.Point{X: v[0], Y: v[2], Z: v[4]},
		geom.Point{X: v[1], Y: v[3], Z: v[5]},
	)
	return state == 1, box, err
}

func (s *SQLiteBackend) LoadSteps() ([]instr.Step, error) {
	rows, err := s.db.Query(`SELECT state, min_x, max_x, min_y, max_y, min_z, max_z
		FROM steps ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []instr.Step
	for rows.Next() {
		on, box, err := scanBox(rows)
		if err != nil {
			return nil, err
		}
		steps = append(steps, instr.Step{On: on, Box: box})
	}
	return steps, rows.Err()
}

// SaveSnapshot replaces the stored snapshot with entries.
func (s *SQLiteBackend) SaveSnapshot(entries []memory.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM snapshot"); err != nil {
		tx.Rollback()
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO snapshot (id, state, min_x, max_x, min_y, max_y, min_z, max_z)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i, e := range entries {
		b := e.Box
		if _, err := stmt.Exec(i, boolInt(e.On), b.Min.X, b.Max.X, b.Min.Y, b.Max.Y, b.Min.Z, b.Max.Z); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteBackend) LoadSnapshot() ([]memory.Entry, error) {
	rows, err := s.db.Query(`SELECT state, min_x, max_x, min_y, max_y, min_z, max_z
		FROM snapshot ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []memory.Entry
	for rows.Next() {
		on, box, err := scanBox(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, memory.Entry{On: on, Box: box})
	}
	return entries, rows.Err()
}

func (s *SQLiteBackend) Truncate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec("DELETE FROM steps"); err != nil {
		return err
	}
	_, err := s.db.Exec("DELETE FROM snapshot")
	return err
}

func (s *SQLiteBackend) Close() {
	s.db.Close()
}
