package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"elt-orchestration-service/internal/core/domain"
	ports "elt-orchestration-service/internal/core/ports/output"
)

type jobRepo struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new JobRepository.
func NewJobRepository(pool *pgxpool.Pool) ports.JobRepository {
	return &jobRepo{pool: pool}
}

func (r *jobRepo) Create(ctx context.Context, job *domain.Job) error {
	query := `
		INSERT INTO job
			(id, name, state, payload, started_at, ended_at, last_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		job.ID, job.Name, job.State, job.Payload,
		job.StartedAt, job.EndedAt, job.LastError,
	)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (r *jobRepo) Update(ctx context.Context, job *domain.Job) error {
	query := `
		UPDATE job
		SET state = $1, ended_at = $2, last_error = $3
		WHERE id = $4
	`

	result, err := r.pool.Exec(ctx, query, job.State, job.EndedAt, job.LastError, job.ID)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func (r *jobRepo) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	query := `
		SELECT id, name, state, payload, started_at, ended_at, last_error
		FROM job
		WHERE id = $1
	`

	job, err := r.scanJob(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("get job by id: %w", err)
	}
	return job, nil
}

func (r *jobRepo) LatestByName(ctx context.Context, name string) (*domain.Job, error) {
	query := `
		SELECT id, name, state, payload, started_at, ended_at, last_error
		FROM job
		WHERE name = $1
		ORDER BY started_at DESC
		LIMIT 1
	`

	job, err := r.scanJob(r.pool.QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("get latest job by name: %w", err)
	}
	return job, nil
}

func (r *jobRepo) List(ctx context.Context, filter ports.JobListFilter) ([]*domain.Job, int, error) {
	conditions := []string{"TRUE"}
	args := []interface{}{}
	argPos := 1

	if filter.State != "" {
		conditions = append(conditions, fmt.Sprintf("state = $%d", argPos))
		args = append(args, filter.State)
		argPos++
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", argPos))
		args = append(args, "%"+filter.Search+"%")
		argPos++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM job WHERE %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, name, state, payload, started_at, ended_at, last_error
		FROM job
		WHERE %s
		ORDER BY started_at DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argPos, argPos+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := r.scanJobFromRows(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan job row: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate job rows: %w", err)
	}

	return jobs, total, nil
}

func (r *jobRepo) MarkStaleRunning(ctx context.Context, cutoffHours int) (int, error) {
	query := `
		UPDATE job
		SET state = $1, ended_at = NOW()
		WHERE state = $2 AND started_at < NOW() - make_interval(hours => $3)
	`

	result, err := r.pool.Exec(ctx, query, domain.JobStateDead, domain.JobStateRunning, cutoffHours)
	if err != nil {
		return 0, fmt.Errorf("mark stale jobs: %w", err)
	}
	return int(result.RowsAffected()), nil
}

func (r *jobRepo) scanJob(row pgx.Row) (*domain.Job, error) {
	job := &domain.Job{}
	err := row.Scan(
		&job.ID, &job.Name, &job.State, &job.Payload,
		&job.StartedAt, &job.EndedAt, &job.LastError,
	)
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (r *jobRepo) scanJobFromRows(rows pgx.Rows) (*domain.Job, error) {
	job := &domain.Job{}
	err := rows.Scan(
		&job.ID, &job.Name, &job.State, &job.Payload,
		&job.StartedAt, &job.EndedAt, &job.LastError,
	)
	if err != nil {
		return nil, err
	}
	return job, nil
}
