package trace

import (
	"bytes"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	_ "modernc.org/sqlite"
)

// SQLiteSink persists fit iterations to an SQLite database file. The
// residual phase images are stored as little-endian float64 blobs next
// to the scalar parameters, so a recorded fit can be replayed without
// rerunning the models.
type SQLiteSink struct {
	db   *sql.DB
	stmt *sql.Stmt
}

// NewSQLiteSink opens (or creates) the database at path and prepares
// the iteration table.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace database: %v", err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS iterations (
		iteration INTEGER NOT NULL,
		radius REAL NOT NULL,
		sphere_index REAL NOT NULL,
		pha_offset REAL NOT NULL,
		center_x REAL NOT NULL,
		center_y REAL NOT NULL,
		nx INTEGER NOT NULL,
		ny INTEGER NOT NULL,
		phase BLOB
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create trace table: %v", err)
	}
	stmt, err := db.Prepare(`INSERT INTO iterations
		(iteration, radius, sphere_index, pha_offset, center_x, center_y, nx, ny, phase)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare trace insert: %v", err)
	}
	return &SQLiteSink{db: db, stmt: stmt}, nil
}

// Append writes one iteration record.
func (s *SQLiteSink) Append(e Entry) error {
	var blob []byte
	if e.Phase != nil {
		buf := new(bytes.Buffer)
		buf.Grow(8 * len(e.Phase))
		if err := binary.Write(buf, binary.LittleEndian, e.Phase); err != nil {
			return fmt.Errorf("failed to encode phase image: %v", err)
		}
		blob = buf.Bytes()
	}
	_, err := s.stmt.Exec(e.Iteration, e.Radius, e.SphereIndex, e.PhaOffset,
		e.CenterX, e.CenterY, e.Nx, e.Ny, blob)
	if err != nil {
		return fmt.Errorf("failed to insert trace entry: %v", err)
	}
	return nil
}

// Close flushes and closes the database.
func (s *SQLiteSink) Close() error {
	s.stmt.Close()
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close trace database: %v", err)
	}
	return nil
}

// Entries reads back all recorded iterations in insertion order.
func (s *SQLiteSink) Entries() ([]Entry, error) {
	rows, err := s.db.Query(`SELECT iteration, radius, sphere_index, pha_offset,
		center_x, center_y, nx, ny, phase FROM iterations ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query trace entries: %v", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var blob []byte
		err = rows.Scan(&e.Iteration, &e.Radius, &e.SphereIndex, &e.PhaOffset,
			&e.CenterX, &e.CenterY, &e.Nx, &e.Ny, &blob)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trace entry: %v", err)
		}
		if len(blob) > 0 {
			e.Phase = make([]float64, len(blob)/8)
			for i := range e.Phase {
				e.Phase[i] = math.Float64frombits(
					binary.LittleEndian.Uint64(blob[8*i:]))
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trace entries: %v", err)
	}
	return out, nil
}
