package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldserve/backend/internal/models"
)

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// LoadWorkRecords returns every quote and lead as one WorkRecord collection.
// Quotes map to kind "job", leads to kind "visit".
func (s *Store) LoadWorkRecords(ctx context.Context) ([]models.WorkRecord, error) {
	var out []models.WorkRecord

	rows, err := s.Pool.Query(ctx, `
		SELECT q.id, q.customer_id, q.job_name, q.status, q.scheduled_at, q.assigned_to, q.total, q.archived, q.created_at,
			c.name, c.phone, c.address
		FROM quotes q
		LEFT JOIN customers c ON c.id = q.customer_id
		ORDER BY q.created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			r       models.WorkRecord
			jobName *string
			name    *string
			phone   *string
			address *string
		)
		if err := rows.Scan(&r.ID, &r.CustomerID, &jobName, &r.Status, &r.ScheduledAt, &r.AssigneeID, &r.Total, &r.Archived, &r.CreatedAt, &name, &phone, &address); err != nil {
			return nil, err
		}
		r.Kind = models.KindJob
		r.JobName = derefString(jobName)
		r.Customer = models.CustomerSnapshot{Name: derefString(name), Phone: derefString(phone), Address: derefString(address)}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	rows, err = s.Pool.Query(ctx, `
		SELECT l.id, l.customer_id, l.job_type, l.status, l.scheduled_visit_at, l.assigned_to, l.created_at,
			c.name, c.phone, c.address
		FROM leads l
		LEFT JOIN customers c ON c.id = l.customer_id
		ORDER BY l.created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			r       models.WorkRecord
			jobType *string
			name    *string
			phone   *string
			address *string
		)
		if err := rows.Scan(&r.ID, &r.CustomerID, &jobType, &r.Status, &r.ScheduledAt, &r.AssigneeID, &r.CreatedAt, &name, &phone, &address); err != nil {
			return nil, err
		}
		r.Kind = models.KindVisit
		r.JobName = derefString(jobType)
		r.Customer = models.CustomerSnapshot{Name: derefString(name), Phone: derefString(phone), Address: derefString(address)}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) LoadTeamMembers(ctx context.Context) ([]models.TeamMember, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, name, role FROM team_members ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TeamMember
	for rows.Next() {
		var m models.TeamMember
		if err := rows.Scan(&m.ID, &m.Name, &m.Role); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) GetWorkRecord(ctx context.Context, id string) (models.WorkRecord, error) {
	var (
		r       models.WorkRecord
		jobName *string
		name    *string
		phone   *string
		address *string
	)
	row := s.Pool.QueryRow(ctx, `
		SELECT q.id, 'job', q.customer_id, q.job_name, q.status, q.scheduled_at, q.assigned_to, q.total, q.archived, q.created_at,
			c.name, c.phone, c.address
		FROM quotes q
		LEFT JOIN customers c ON c.id = q.customer_id
		WHERE q.id = $1
		UNION ALL
		SELECT l.id, 'visit', l.customer_id, l.job_type, l.status, l.scheduled_visit_at, l.assigned_to, NULL, FALSE, l.created_at,
			c.name, c.phone, c.address
		FROM leads l
		LEFT JOIN customers c ON c.id = l.customer_id
		WHERE l.id = $1
	`, id)
	if err := row.Scan(&r.ID, &r.Kind, &r.CustomerID, &jobName, &r.Status, &r.ScheduledAt, &r.AssigneeID, &r.Total, &r.Archived, &r.CreatedAt, &name, &phone, &address); err != nil {
		return models.WorkRecord{}, err
	}
	r.JobName = derefString(jobName)
	r.Customer = models.CustomerSnapshot{Name: derefString(name), Phone: derefString(phone), Address: derefString(address)}
	return r, nil
}

func (s *Store) ListWorkRecords(ctx context.Context, kind, status, assignee, q string, limit, offset int) ([]models.WorkRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT w.id, w.kind, w.customer_id, w.job_name, w.status, w.scheduled_at, w.assigned_to, w.total, w.archived, w.created_at,
		c.name, c.phone, c.address
		FROM (
			SELECT id, 'job' AS kind, customer_id, job_name, status, scheduled_at, assigned_to, total, archived, created_at FROM quotes
			UNION ALL
			SELECT id, 'visit', customer_id, job_type, status, scheduled_visit_at, assigned_to, NULL, FALSE, created_at FROM leads
		) w
		LEFT JOIN customers c ON c.id = w.customer_id`
	var args []any
	var wheres []string
	if kind != "" {
		args = append(args, kind)
		wheres = append(wheres, fmt.Sprintf("w.kind = $%d", len(args)))
	}
	if status != "" {
		args = append(args, status)
		wheres = append(wheres, fmt.Sprintf("w.status = $%d", len(args)))
	}
	if assignee != "" {
		args = append(args, assignee)
		wheres = append(wheres, fmt.Sprintf("w.assigned_to = $%d", len(args)))
	}
	if q != "" {
		args = append(args, "%"+q+"%")
		wheres = append(wheres, fmt.Sprintf("(w.job_name ILIKE $%d OR c.name ILIKE $%d)", len(args), len(args)))
	}
	if len(wheres) > 0 {
		query += " WHERE " + strings.Join(wheres, " AND ")
	}
	query += " ORDER BY w.created_at DESC LIMIT $" + fmt.Sprint(len(args)+1) + " OFFSET $" + fmt.Sprint(len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.WorkRecord
	for rows.Next() {
		var (
			r       models.WorkRecord
			jobName *string
			name    *string
			phone   *string
			address *string
		)
		if err := rows.Scan(&r.ID, &r.Kind, &r.CustomerID, &jobName, &r.Status, &r.ScheduledAt, &r.AssigneeID, &r.Total, &r.Archived, &r.CreatedAt, &name, &phone, &address); err != nil {
			return nil, err
		}
		r.JobName = derefString(jobName)
		r.Customer = models.CustomerSnapshot{Name: derefString(name), Phone: derefString(phone), Address: derefString(address)}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ApplySchedule commits a scheduling write. The timestamp and the coupled
// status change land in one transaction so there is no partial-success state.
// newStatus == "" leaves the status untouched (reschedule).
func (s *Store) ApplySchedule(ctx context.Context, id, kind string, at time.Time, newStatus string) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		var (
			tag pgconn.CommandTag
			err error
		)
		switch kind {
		case models.KindJob:
			if newStatus != "" {
				tag, err = tx.Exec(ctx, `UPDATE quotes SET scheduled_at = $1, status = $2, updated_at = NOW() WHERE id = $3`, at, newStatus, id)
			} else {
				tag, err = tx.Exec(ctx, `UPDATE quotes SET scheduled_at = $1, updated_at = NOW() WHERE id = $2`, at, id)
			}
		case models.KindVisit:
			if newStatus != "" {
				tag, err = tx.Exec(ctx, `UPDATE leads SET scheduled_visit_at = $1, status = $2, updated_at = NOW() WHERE id = $3`, at, newStatus, id)
			} else {
				tag, err = tx.Exec(ctx, `UPDATE leads SET scheduled_visit_at = $1, updated_at = NOW() WHERE id = $2`, at, id)
			}
		default:
			return fmt.Errorf("unknown work record kind %q", kind)
		}
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return nil
	})
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
