package history

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const runColumns = `id, guid, win_id, label, command, args, work_dir, detached, pid, state,
	exit_code, exit_status, error_code, started_at, finished_at, updated_at`

// Repository stores runs.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

func newRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

func scanRun(scanner interface{ Scan(...any) error }) (*runModel, error) {
	var m runModel
	err := scanner.Scan(
		&m.ID, &m.GUID, &m.WinID, &m.Label, &m.Command, &m.Args, &m.WorkDir,
		&m.Detached, &m.PID, &m.State,
		&m.ExitCode, &m.ExitStatus, &m.ErrorCode,
		&m.StartedAt, &m.FinishedAt, &m.UpdatedAt,
	)
	return &m, err
}

// Save inserts run, or updates the row with the same ID.
func (r *Repository) Save(run *Run) error {
	if run.ID == "" {
		return fmt.Errorf("failed to save run: empty id")
	}
	m := toRunModel(run, r.now())
	_, err := r.db.Exec(
		`INSERT INTO runs (
			guid, win_id, label, command, args, work_dir, detached, pid, state,
			exit_code, exit_status, error_code, started_at, finished_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guid) DO UPDATE SET
			pid = excluded.pid,
			state = excluded.state,
			exit_code = excluded.exit_code,
			exit_status = excluded.exit_status,
			error_code = excluded.error_code,
			finished_at = excluded.finished_at,
			updated_at = excluded.updated_at`,
		m.GUID, m.WinID, m.Label, m.Command, m.Args, m.WorkDir, m.Detached, m.PID, m.State,
		m.ExitCode, m.ExitStatus, m.ErrorCode, m.StartedAt, m.FinishedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// FindByID returns the run with the given ID, or a *NotFoundError.
func (r *Repository) FindByID(id string) (*Run, error) {
	row := r.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE guid = ?`, id)
	m, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find run: %w", err)
	}
	return m.toRun(), nil
}

// ListFilter narrows List results. Zero values match everything.
type ListFilter struct {
	Label string
	WinID string
	Limit int
}

// List returns matching runs, newest first.
func (r *Repository) List(filter ListFilter) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1 = 1`
	var args []any

	if filter.Label != "" {
		query += ` AND label = ?`
		args = append(args, filter.Label)
	}
	if filter.WinID != "" {
		query += ` AND win_id = ?`
		args = append(args, filter.WinID)
	}

	query += ` ORDER BY started_at DESC, id DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		m, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, m.toRun())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run rows: %w", err)
	}
	return runs, nil
}

// Prune deletes runs started before cutoff and returns how many were removed.
func (r *Repository) Prune(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM runs WHERE started_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// Trim keeps only the newest keep runs and returns how many were removed.
func (r *Repository) Trim(keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	result, err := r.db.Exec(
		`DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY started_at DESC, id DESC LIMIT ?
		)`,
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to trim runs: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// Count returns the number of stored runs.
func (r *Repository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return n, nil
}
