package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/octobees/exhibitor-leads/internal/entity"
)

// ErrRunNotFound is returned when no run matches the identifier.
var ErrRunNotFound = errors.New("run not found")

type pgxPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

var _ pgxPool = (*pgxpool.Pool)(nil)

// RunsRepository persists batch runs and the tables they produce.
type RunsRepository interface {
	Create(ctx context.Context, sources json.RawMessage, requestedBy *string) (*entity.Run, error)
	MarkRunning(ctx context.Context, id uuid.UUID) error
	Complete(ctx context.Context, id uuid.UUID, status string, report json.RawMessage, runErr *string) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Run, error)
	SaveResults(ctx context.Context, id uuid.UUID, exhibitors []entity.Exhibitor, contacts []entity.Contact) error
	ListExhibitors(ctx context.Context, id uuid.UUID) ([]entity.Exhibitor, error)
	ListContacts(ctx context.Context, id uuid.UUID) ([]entity.Contact, error)
}

// PGXRunsRepository implements RunsRepository using pgx.
type PGXRunsRepository struct {
	pool pgxPool
}

// NewPGXRunsRepository wires a pgx backed repository.
func NewPGXRunsRepository(pool *pgxpool.Pool) *PGXRunsRepository {
	return &PGXRunsRepository{pool: pool}
}

const runColumns = `id, status, sources, report, error, requested_by, created_at, updated_at, completed_at`

// Create inserts a queued run.
func (r *PGXRunsRepository) Create(ctx context.Context, sources json.RawMessage, requestedBy *string) (*entity.Run, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("run sources are empty")
	}
	row := r.pool.QueryRow(ctx, `
        INSERT INTO runs (status, sources, requested_by)
        VALUES ($1, $2, $3)
        RETURNING `+runColumns, entity.RunStatusQueued, []byte(sources), requestedBy)

	run, err := scanRun(row)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// MarkRunning moves a queued run to running.
func (r *PGXRunsRepository) MarkRunning(ctx context.Context, id uuid.UUID) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE runs SET status = $1, updated_at = NOW() WHERE id = $2`, entity.RunStatusRunning, id)
	if err != nil {
		return fmt.Errorf("mark run running: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrRunNotFound
	}
	return nil
}

// Complete records the terminal status and report of a run.
func (r *PGXRunsRepository) Complete(ctx context.Context, id uuid.UUID, status string, report json.RawMessage, runErr *string) error {
	var raw any
	if len(report) > 0 {
		raw = []byte(report)
	}
	cmd, err := r.pool.Exec(ctx, `
        UPDATE runs
        SET status = $1, report = $2, error = $3, completed_at = NOW(), updated_at = NOW()
        WHERE id = $4
    `, status, raw, runErr, id)
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrRunNotFound
	}
	return nil
}

// Get fetches a run by id.
func (r *PGXRunsRepository) Get(ctx context.Context, id uuid.UUID) (*entity.Run, error) {
	run, err := scanRun(r.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM runs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("query run: %w", err)
	}
	return run, nil
}

// SaveResults replaces the stored tables of a run in one transaction. Row
// order is kept in the seq column.
func (r *PGXRunsRepository) SaveResults(ctx context.Context, id uuid.UUID, exhibitors []entity.Exhibitor, contacts []entity.Contact) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("start save results tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM exhibitors WHERE run_id = $1`, id); err != nil {
		return fmt.Errorf("clear exhibitors: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM contacts WHERE run_id = $1`, id); err != nil {
		return fmt.Errorf("clear contacts: %w", err)
	}

	if len(exhibitors) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"exhibitors"},
			[]string{"run_id", "seq", "name", "city", "country", "website", "email"},
			pgx.CopyFromSlice(len(exhibitors), func(i int) ([]any, error) {
				e := exhibitors[i]
				return []any{id, i, e.Name, e.City, e.Country, e.Website, e.Email}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copy exhibitors: %w", err)
		}
	}
	if len(contacts) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"contacts"},
			[]string{"run_id", "seq", "company_name", "full_name", "position", "email", "source"},
			pgx.CopyFromSlice(len(contacts), func(i int) ([]any, error) {
				c := contacts[i]
				return []any{id, i, c.CompanyName, c.FullName, c.Position, c.Email, c.Source}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copy contacts: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit save results tx: %w", err)
	}
	return nil
}

// ListExhibitors returns the exhibitor table of a run in extraction order.
func (r *PGXRunsRepository) ListExhibitors(ctx context.Context, id uuid.UUID) ([]entity.Exhibitor, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT name, city, country, website, email
        FROM exhibitors WHERE run_id = $1 ORDER BY seq
    `, id)
	if err != nil {
		return nil, fmt.Errorf("list exhibitors: %w", err)
	}
	defer rows.Close()

	exhibitors := make([]entity.Exhibitor, 0)
	for rows.Next() {
		var e entity.Exhibitor
		if err := rows.Scan(&e.Name, &e.City, &e.Country, &e.Website, &e.Email); err != nil {
			return nil, fmt.Errorf("scan exhibitor row: %w", err)
		}
		exhibitors = append(exhibitors, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exhibitors: %w", err)
	}
	return exhibitors, nil
}

// ListContacts returns the contact table of a run in aggregation order.
func (r *PGXRunsRepository) ListContacts(ctx context.Context, id uuid.UUID) ([]entity.Contact, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT company_name, full_name, position, email, source
        FROM contacts WHERE run_id = $1 ORDER BY seq
    `, id)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	contacts := make([]entity.Contact, 0)
	for rows.Next() {
		var c entity.Contact
		if err := rows.Scan(&c.CompanyName, &c.FullName, &c.Position, &c.Email, &c.Source); err != nil {
			return nil, fmt.Errorf("scan contact row: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contacts: %w", err)
	}
	return contacts, nil
}

func scanRun(row pgx.Row) (*entity.Run, error) {
	var (
		run     entity.Run
		sources []byte
		report  []byte
	)
	if err := row.Scan(
		&run.ID,
		&run.Status,
		&sources,
		&report,
		&run.Error,
		&run.RequestedBy,
		&run.CreatedAt,
		&run.UpdatedAt,
		&run.CompletedAt,
	); err != nil {
		return nil, err
	}
	run.Sources = json.RawMessage(sources)
	if len(report) > 0 {
		run.Report = json.RawMessage(report)
	}
	return &run, nil
}

var _ RunsRepository = (*PGXRunsRepository)(nil)
