// Package runlog persists one row per tool invocation — tool name,
// arguments, start/end time, exit status, output path — in a SQLite
// ledger next to the user's data. The same facts land in a derived
// raster's metadata lines; the ledger makes them queryable across
// runs.
package runlog

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/haldane-gis/geocore/internal/timeutil"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps the ledger connection.
type DB struct {
	*sql.DB
	path  string
	clock timeutil.Clock
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("applying %q: %w", p, err)
		}
	}
	return nil
}

// Open opens (creating if absent) the ledger at path and migrates it to
// the latest schema. clock is injectable for tests; nil means the real
// clock.
func Open(path string, clock timeutil.Clock) (*DB, error) {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("runlog: open %s: %w", path, err)
	}
	if err := applyPragmas(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("runlog: %w", err)
	}
	db := &DB{DB: conn, path: path, clock: clock}
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("runlog: embedded migrations: %w", err)
	}
	if err := db.MigrateUp(sub); err != nil {
		conn.Close()
		return nil, fmt.Errorf("runlog: %w", err)
	}
	return db, nil
}

// Invocation is one ledger row.
type Invocation struct {
	ID         string
	ToolName   string
	Args       []string
	WorkingDir string
	StartedAt  time.Time
	FinishedAt time.Time // zero while still running
	Status     string    // "running", "ok", or "error"
	ErrorMsg   string
	OutputPath string
}

// Begin records the start of a tool run and returns the row, whose ID
// the caller threads through to Finish.
func (db *DB) Begin(toolName string, args []string, workingDir string) (*Invocation, error) {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("runlog: marshal args: %w", err)
	}
	inv := &Invocation{
		ID:         uuid.New().String(),
		ToolName:   toolName,
		Args:       args,
		WorkingDir: workingDir,
		StartedAt:  db.clock.Now(),
		Status:     "running",
	}
	_, err = db.Exec(
		`INSERT INTO tool_invocation (invocation_id, tool_name, args_json, working_dir, started_unix_nanos, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.ToolName, string(argsJSON), inv.WorkingDir, inv.StartedAt.UnixNano(), inv.Status)
	if err != nil {
		return nil, fmt.Errorf("runlog: insert invocation: %w", err)
	}
	return inv, nil
}

// Finish closes out a row opened with Begin. runErr nil means success;
// otherwise the row records the error text alongside status "error".
func (db *DB) Finish(inv *Invocation, outputPath string, runErr error) error {
	inv.FinishedAt = db.clock.Now()
	inv.OutputPath = outputPath
	if runErr != nil {
		inv.Status = "error"
		inv.ErrorMsg = runErr.Error()
	} else {
		inv.Status = "ok"
	}
	_, err := db.Exec(
		`UPDATE tool_invocation
		 SET finished_unix_nanos = ?, status = ?, error_message = ?, output_path = ?
		 WHERE invocation_id = ?`,
		inv.FinishedAt.UnixNano(), inv.Status, inv.ErrorMsg, inv.OutputPath, inv.ID)
	if err != nil {
		return fmt.Errorf("runlog: finish invocation %s: %w", inv.ID, err)
	}
	return nil
}

// Recent returns the most recent invocations, newest first.
func (db *DB) Recent(limit int) ([]*Invocation, error) {
	rows, err := db.Query(
		`SELECT invocation_id, tool_name, args_json, working_dir, started_unix_nanos,
		        finished_unix_nanos, status, error_message, output_path
		 FROM tool_invocation ORDER BY started_unix_nanos DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("runlog: query recent: %w", err)
	}
	defer rows.Close()
	var out []*Invocation
	for rows.Next() {
		var inv Invocation
		var argsJSON string
		var started int64
		var finished sql.NullInt64
		if err := rows.Scan(&inv.ID, &inv.ToolName, &argsJSON, &inv.WorkingDir,
			&started, &finished, &inv.Status, &inv.ErrorMsg, &inv.OutputPath); err != nil {
			return nil, fmt.Errorf("runlog: scan invocation: %w", err)
		}
		if err := json.Unmarshal([]byte(argsJSON), &inv.Args); err != nil {
			return nil, fmt.Errorf("runlog: unmarshal args for %s: %w", inv.ID, err)
		}
		inv.StartedAt = time.Unix(0, started)
		if finished.Valid {
			inv.FinishedAt = time.Unix(0, finished.Int64)
		}
		out = append(out, &inv)
	}
	return out, rows.Err()
}

// Elapsed returns how long a finished invocation took.
func (inv *Invocation) Elapsed() time.Duration {
	if inv.FinishedAt.IsZero() {
		return 0
	}
	return inv.FinishedAt.Sub(inv.StartedAt)
}
