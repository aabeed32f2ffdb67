package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

var ErrNotFound = errors.New("job not found")

// timeLayout has fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type Job struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	URL        string     `json:"url,omitempty"`
	Status     Status     `json:"status"`
	ExitCode   int        `json:"exit_code"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

const (
	insertJobSQL = `INSERT INTO jobs (id, kind, url, status, created_at) VALUES (?, ?, ?, ?, ?)`
	finishJobSQL = `UPDATE jobs SET status = ?, exit_code = ?, error = ?, finished_at = ? WHERE id = ?`
	selectJobSQL = `SELECT id, kind, url, status, exit_code, error, created_at, finished_at FROM jobs`
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) clock() time.Time {
	if s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}

// Start records a running job and returns it.
func (s *Store) Start(ctx context.Context, kind, url string) (Job, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Job{}, fmt.Errorf("job id: %w", err)
	}
	j := Job{ID: id.String(), Kind: kind, URL: url, Status: StatusRunning, CreatedAt: s.clock()}
	if _, err := s.db.ExecContext(ctx, insertJobSQL, j.ID, j.Kind, j.URL, string(j.Status), formatTime(j.CreatedAt)); err != nil {
		return Job{}, fmt.Errorf("insert job: %w", err)
	}
	return j, nil
}

// Finish marks the job succeeded when runErr is nil, failed otherwise.
func (s *Store) Finish(ctx context.Context, id string, runErr error, exitCode int) error {
	status, msg := StatusSucceeded, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}
	res, err := s.db.ExecContext(ctx, finishJobSQL, string(status), exitCode, msg, formatTime(s.clock()), id)
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (Job, error) {
	row := s.db.QueryRowContext(ctx, selectJobSQL+` WHERE id = ?`, id)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, ErrNotFound
	}
	return j, err
}

// List returns the most recent jobs first.
func (s *Store) List(ctx context.Context, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, selectJobSQL+` ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(sc scanner) (Job, error) {
	var (
		j        Job
		status   string
		created  string
		finished sql.NullString
	)
	if err := sc.Scan(&j.ID, &j.Kind, &j.URL, &status, &j.ExitCode, &j.Error, &created, &finished); err != nil {
		return Job{}, err
	}
	j.Status = Status(status)

	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return Job{}, fmt.Errorf("parse created_at: %w", err)
	}
	j.CreatedAt = t
	if finished.Valid {
		ft, err := time.Parse(timeLayout, finished.String)
		if err != nil {
			return Job{}, fmt.Errorf("parse finished_at: %w", err)
		}
		j.FinishedAt = &ft
	}
	return j, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
