package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

const pgUniqueViolation = "23505"

type appointmentRepoPG struct{ pool *pgxpool.Pool }

// NewAppointmentRepoPG returns an AppointmentRepository backed by the
// appointment table. Creates for the same doctor and date are serialized with
// a transaction-scoped advisory lock.
func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

const apptCols = `id, patient_name, appt_date, start_minute, duration, doctor_name, status, mode`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a            Appointment
		start        int
		status, mode string
	)
	if err := row.Scan(&a.ID, &a.PatientName, &a.Date, &start, &a.Duration, &a.DoctorName, &status, &mode); err != nil {
		return nil, err
	}
	a.Time = FormatClock(start)
	a.Status = Status(status)
	a.Mode = Mode(mode)
	return &a, nil
}

// dayLockKey identifies the advisory lock guarding one doctor's day.
func dayLockKey(s Slot) string {
	return s.DoctorName + "|" + s.Date
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	slot, err := a.Slot()
	if err != nil {
		return err
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, dayLockKey(slot)); err != nil {
		return fmt.Errorf("lock doctor day: %w", err)
	}

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM appointment WHERE id = $1)`, a.ID).Scan(&exists); err != nil {
		return fmt.Errorf("check appointment id: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, a.ID)
	}

	occupants, err := loadOccupants(ctx, tx, slot)
	if err != nil {
		return err
	}
	if HasConflict(occupants, slot.Range, "") {
		return fmt.Errorf("%w: %s already has an appointment at this time", ErrConflict, a.DoctorName)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO appointment (id, patient_name, appt_date, start_minute, duration, doctor_name, status, mode)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		a.ID, a.PatientName, a.Date, slot.Range.Start, a.Duration, a.DoctorName, string(a.Status), string(a.Mode))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: %s", ErrDuplicateID, a.ID)
		}
		return fmt.Errorf("insert appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepoPG) UpdateStatus(ctx context.Context, id string, status Status) (*Appointment, error) {
	a, err := scanAppointment(r.pool.QueryRow(ctx, `
		UPDATE appointment SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+apptCols, id, string(status)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update appointment status: %w", err)
	}
	return a, nil
}

func (r *appointmentRepoPG) Delete(ctx context.Context, id string) (*Appointment, error) {
	a, err := scanAppointment(r.pool.QueryRow(ctx,
		`DELETE FROM appointment WHERE id = $1 RETURNING `+apptCols, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("delete appointment: %w", err)
	}
	return a, nil
}

func (r *appointmentRepoPG) List(ctx context.Context, f ListFilter) ([]*Appointment, error) {
	query := `SELECT ` + apptCols + ` FROM appointment WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.Date != "" {
		query += fmt.Sprintf(` AND appt_date = $%d`, idx)
		args = append(args, f.Date)
		idx++
	}
	if f.Status != "" {
		query += fmt.Sprintf(` AND lower(status) = lower($%d)`, idx)
		args = append(args, f.Status)
		idx++
	}
	if f.DoctorName != "" {
		query += fmt.Sprintf(` AND lower(doctor_name) = lower($%d)`, idx)
		args = append(args, f.DoctorName)
	}
	query += ` ORDER BY appt_date, start_minute, seq`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	items := []*Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appointments: %w", err)
	}
	return items, nil
}

func (r *appointmentRepoPG) HasConflict(ctx context.Context, s Slot, excludeID string) (bool, error) {
	occupants, err := loadOccupants(ctx, r.pool, s)
	if err != nil {
		return false, err
	}
	return HasConflict(occupants, s.Range, excludeID), nil
}

func (r *appointmentRepoPG) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM appointment`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count appointments: %w", err)
	}
	return n, nil
}

// loadOccupants reads one doctor's day. Cancelled rows are filtered by
// HasConflict, not here, so the same rule applies to both stores.
func loadOccupants(ctx context.Context, q queryable, s Slot) ([]Occupant, error) {
	rows, err := q.Query(ctx, `
		SELECT id, status, start_minute, duration FROM appointment
		WHERE doctor_name = $1 AND appt_date = $2`, s.DoctorName, s.Date)
	if err != nil {
		return nil, fmt.Errorf("load occupants: %w", err)
	}
	defer rows.Close()

	var out []Occupant
	for rows.Next() {
		var (
			o               Occupant
			status          string
			start, duration int
		)
		if err := rows.Scan(&o.ID, &status, &start, &duration); err != nil {
			return nil, fmt.Errorf("scan occupant: %w", err)
		}
		o.Status = Status(status)
		o.Range = NewTimeRange(start, duration)
		out = append(out, o)
	}
	return out, rows.Err()
}
