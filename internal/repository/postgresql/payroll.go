package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type payrollRepository struct {
	db *database.DB
}

func NewPayrollRepository(db *database.DB) payroll.PayrollRepository {
	return &payrollRepository{db: db}
}

const batchColumns = `
	id, cutoff_year, cutoff_month, cutoff_start_day, cutoff_end_day, cutoff_label,
	payroll_type, requested_by, upload_id, created_at, released, release_dispatched_at`

const payslipColumns = `
	id, batch_id, employee_code, days_present, regular_hours, holiday_hours, overtime_hours, tardiness_minutes,
	basic_pay, overtime_pay, holiday_pay, night_differential, allowance,
	tax, sss, philhealth, pagibig, loan, other_deductions,
	contributions, gross_pay, net_pay, status, created_at, updated_at`

// ========== BATCHES ==========

func (r *payrollRepository) CreateBatch(ctx context.Context, batch payroll.Batch) error {
	return WithTransaction(ctx, r.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, r.db)

		var year, month, start, end *int
		if c := batch.Cutoff; c != nil {
			m := int(c.Month)
			year, month, start, end = &c.Year, &m, &c.StartDay, &c.EndDay
		}

		_, err := q.Exec(ctx, `
			INSERT INTO payroll_batches (
				id, cutoff_year, cutoff_month, cutoff_start_day, cutoff_end_day, cutoff_label,
				payroll_type, requested_by, upload_id, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, batch.ID, year, month, start, end, batch.CutoffLabel,
			batch.PayrollType, batch.RequestedBy, batch.UploadID, batch.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert payroll batch: %w", err)
		}

		for _, p := range batch.Payslips {
			contributions, err := json.Marshal(p.Contributions)
			if err != nil {
				return fmt.Errorf("failed to encode contributions: %w", err)
			}
			_, err = q.Exec(ctx, `
				INSERT INTO payslips (`+payslipColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
						$14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
			`,
				p.ID, batch.ID, p.EmployeeCode, p.DaysPresent, p.RegularHours, p.HolidayHours, p.OvertimeHours, p.TardinessMinutes,
				p.Earnings.Basic, p.Earnings.Overtime, p.Earnings.Holiday, p.Earnings.NightDifferential, p.Earnings.Allowance,
				p.Deductions.Tax, p.Deductions.SSS, p.Deductions.PhilHealth, p.Deductions.PagIBIG, p.Deductions.Loan, p.Deductions.Other,
				contributions, p.GrossPay, p.NetPay, p.Status, p.CreatedAt, p.UpdatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to insert payslip for %s: %w", p.EmployeeCode, err)
			}
		}
		return nil
	})
}

func (r *payrollRepository) GetBatch(ctx context.Context, id string) (payroll.Batch, error) {
	q := GetQuerier(ctx, r.db)

	batch, err := scanBatch(q.QueryRow(ctx, `SELECT `+batchColumns+` FROM payroll_batches WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.Batch{}, payroll.ErrBatchNotFound
		}
		return payroll.Batch{}, fmt.Errorf("failed to get payroll batch: %w", err)
	}

	batches := []payroll.Batch{batch}
	if err := r.attachPayslips(ctx, batches); err != nil {
		return payroll.Batch{}, err
	}
	return batches[0], nil
}

func (r *payrollRepository) ListBatches(ctx context.Context, filter payroll.BatchFilter) ([]payroll.Batch, error) {
	q := GetQuerier(ctx, r.db)

	var conditions []string
	var args []interface{}
	if filter.PayrollType != nil {
		args = append(args, *filter.PayrollType)
		conditions = append(conditions, fmt.Sprintf("payroll_type = $%d", len(args)))
	}
	if filter.Released != nil {
		args = append(args, *filter.Released)
		conditions = append(conditions, fmt.Sprintf("released = $%d", len(args)))
	}

	query := `SELECT ` + batchColumns + ` FROM payroll_batches`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	batches, err := r.queryBatches(ctx, q, query, args...)
	if err != nil {
		return nil, err
	}
	if err := r.attachPayslips(ctx, batches); err != nil {
		return nil, err
	}
	return batches, nil
}

func (r *payrollRepository) ListReleaseCandidates(ctx context.Context) ([]payroll.Batch, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + batchColumns + `
		FROM payroll_batches b
		WHERE b.released = FALSE
		  AND EXISTS (SELECT 1 FROM payslips p WHERE p.batch_id = b.id)
		  AND NOT EXISTS (SELECT 1 FROM payslips p WHERE p.batch_id = b.id AND p.status <> 'approved')
		ORDER BY b.created_at
	`
	batches, err := r.queryBatches(ctx, q, query)
	if err != nil {
		return nil, err
	}
	if err := r.attachPayslips(ctx, batches); err != nil {
		return nil, err
	}
	return batches, nil
}

func (r *payrollRepository) UpdatePayslipStatus(ctx context.Context, batchID string, from, to payroll.PayslipStatus) (int64, error) {
	var affected int64
	err := WithTransaction(ctx, r.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, r.db)

		// Share-lock the batch so a concurrent reject cannot delete it mid-update
		var id string
		err := q.QueryRow(ctx, `SELECT id FROM payroll_batches WHERE id = $1 FOR SHARE`, batchID).Scan(&id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return fmt.Errorf("failed to lock payroll batch: %w", err)
		}

		tag, err := q.Exec(ctx, `
			UPDATE payslips SET status = $3, updated_at = NOW()
			WHERE batch_id = $1 AND status = $2
		`, batchID, from, to)
		if err != nil {
			return fmt.Errorf("failed to update payslip status: %w", err)
		}
		affected = tag.RowsAffected()
		return nil
	})
	return affected, err
}

func (r *payrollRepository) UpdateCutoff(ctx context.Context, batchID string, cutoff payroll.CutoffPeriod) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		UPDATE payroll_batches
		SET cutoff_year = $2, cutoff_month = $3, cutoff_start_day = $4, cutoff_end_day = $5, cutoff_label = $6
		WHERE id = $1 AND released = FALSE
	`, batchID, cutoff.Year, int(cutoff.Month), cutoff.StartDay, cutoff.EndDay, cutoff.String())
	if err != nil {
		return fmt.Errorf("failed to update cutoff: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrBatchNotFound
	}
	return nil
}

func (r *payrollRepository) DeleteBatch(ctx context.Context, batchID string) (bool, error) {
	deleted := false
	err := WithTransaction(ctx, r.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, r.db)

		// Lock the batch row so approval and release cannot interleave with the delete
		var released bool
		err := q.QueryRow(ctx, `SELECT released FROM payroll_batches WHERE id = $1 FOR UPDATE`, batchID).Scan(&released)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return fmt.Errorf("failed to lock payroll batch: %w", err)
		}
		if released {
			return nil
		}

		var approved bool
		err = q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM payslips WHERE batch_id = $1 AND status = 'approved')`, batchID).Scan(&approved)
		if err != nil {
			return fmt.Errorf("failed to check payslip status: %w", err)
		}
		if approved {
			return nil
		}

		if _, err := q.Exec(ctx, `DELETE FROM payroll_change_requests WHERE payroll_batch_id = $1`, batchID); err != nil {
			return fmt.Errorf("failed to delete change requests: %w", err)
		}
		if _, err := q.Exec(ctx, `DELETE FROM payslips WHERE batch_id = $1`, batchID); err != nil {
			return fmt.Errorf("failed to delete payslips: %w", err)
		}
		if _, err := q.Exec(ctx, `DELETE FROM payroll_batches WHERE id = $1`, batchID); err != nil {
			return fmt.Errorf("failed to delete payroll batch: %w", err)
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

func (r *payrollRepository) MarkReleased(ctx context.Context, batchID string, at time.Time) (bool, error) {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		UPDATE payroll_batches SET released = TRUE, release_dispatched_at = $2
		WHERE id = $1 AND released = FALSE
	`, batchID, at)
	if err != nil {
		return false, fmt.Errorf("failed to mark batch released: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ========== HELPERS ==========

func scanBatch(row pgx.Row) (payroll.Batch, error) {
	var b payroll.Batch
	var year, month, start, end *int
	err := row.Scan(
		&b.ID, &year, &month, &start, &end, &b.CutoffLabel,
		&b.PayrollType, &b.RequestedBy, &b.UploadID, &b.CreatedAt, &b.Released, &b.ReleaseDispatchedAt,
	)
	if err != nil {
		return payroll.Batch{}, err
	}
	if year != nil && month != nil && start != nil && end != nil {
		b.Cutoff = &payroll.CutoffPeriod{Year: *year, Month: time.Month(*month), StartDay: *start, EndDay: *end}
	}
	return b, nil
}

func (r *payrollRepository) queryBatches(ctx context.Context, q database.Querier, query string, args ...interface{}) ([]payroll.Batch, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll batches: %w", err)
	}
	defer rows.Close()

	var batches []payroll.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payroll batch: %w", err)
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payroll batches: %w", err)
	}
	return batches, nil
}

// attachPayslips loads the payslips of all batches in one query
func (r *payrollRepository) attachPayslips(ctx context.Context, batches []payroll.Batch) error {
	if len(batches) == 0 {
		return nil
	}
	q := GetQuerier(ctx, r.db)

	ids := make([]string, len(batches))
	index := make(map[string]int, len(batches))
	for i, b := range batches {
		ids[i] = b.ID
		index[b.ID] = i
	}

	rows, err := q.Query(ctx, `
		SELECT `+payslipColumns+`
		FROM payslips
		WHERE batch_id = ANY($1::uuid[])
		ORDER BY employee_code
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to list payslips: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p payroll.Payslip
		var contributions []byte
		err := rows.Scan(
			&p.ID, &p.BatchID, &p.EmployeeCode, &p.DaysPresent, &p.RegularHours, &p.HolidayHours, &p.OvertimeHours, &p.TardinessMinutes,
			&p.Earnings.Basic, &p.Earnings.Overtime, &p.Earnings.Holiday, &p.Earnings.NightDifferential, &p.Earnings.Allowance,
			&p.Deductions.Tax, &p.Deductions.SSS, &p.Deductions.PhilHealth, &p.Deductions.PagIBIG, &p.Deductions.Loan, &p.Deductions.Other,
			&contributions, &p.GrossPay, &p.NetPay, &p.Status, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to scan payslip: %w", err)
		}
		if err := json.Unmarshal(contributions, &p.Contributions); err != nil {
			return fmt.Errorf("failed to decode contributions of payslip %s: %w", p.ID, err)
		}
		i := index[p.BatchID]
		batches[i].Payslips = append(batches[i].Payslips, p)
	}
	return rows.Err()
}

// ========== RATES ==========

type rateRepository struct {
	db *database.DB
}

func NewRateRepository(db *database.DB) payroll.RateRepository {
	return &rateRepository{db: db}
}

const rateColumns = `
	employee_code, daily_rate, hours_per_day, overtime_multiplier, holiday_multiplier,
	night_differential, allowance, tax, sss_contribution, philhealth_contribution, pagibig_contribution,
	loan, other_deduction, late_deduction_per_minute, updated_at`

func scanRate(row pgx.Row) (payroll.RateConfig, error) {
	var rc payroll.RateConfig
	err := row.Scan(
		&rc.EmployeeCode, &rc.DailyRate, &rc.HoursPerDay, &rc.OvertimeMultiplier, &rc.HolidayMultiplier,
		&rc.NightDifferential, &rc.Allowance, &rc.Tax, &rc.SSSContribution, &rc.PhilHealthContribution, &rc.PagIBIGContribution,
		&rc.Loan, &rc.OtherDeduction, &rc.LateDeductionPerMinute, &rc.UpdatedAt,
	)
	return rc, err
}

func (r *rateRepository) GetByEmployee(ctx context.Context, employeeCode string) (payroll.RateConfig, error) {
	q := GetQuerier(ctx, r.db)

	rc, err := scanRate(q.QueryRow(ctx, `SELECT `+rateColumns+` FROM payroll_rates WHERE employee_code = $1`, employeeCode))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.RateConfig{}, payroll.ErrRateConfigNotFound
		}
		return payroll.RateConfig{}, fmt.Errorf("failed to get rate: %w", err)
	}
	return rc, nil
}

func (r *rateRepository) Upsert(ctx context.Context, rate payroll.RateConfig) (payroll.RateConfig, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO payroll_rates (` + rateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (employee_code) DO UPDATE SET
			daily_rate = EXCLUDED.daily_rate,
			hours_per_day = EXCLUDED.hours_per_day,
			overtime_multiplier = EXCLUDED.overtime_multiplier,
			holiday_multiplier = EXCLUDED.holiday_multiplier,
			night_differential = EXCLUDED.night_differential,
			allowance = EXCLUDED.allowance,
			tax = EXCLUDED.tax,
			sss_contribution = EXCLUDED.sss_contribution,
			philhealth_contribution = EXCLUDED.philhealth_contribution,
			pagibig_contribution = EXCLUDED.pagibig_contribution,
			loan = EXCLUDED.loan,
			other_deduction = EXCLUDED.other_deduction,
			late_deduction_per_minute = EXCLUDED.late_deduction_per_minute,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + rateColumns

	rc, err := scanRate(q.QueryRow(ctx, query,
		rate.EmployeeCode, rate.DailyRate, rate.HoursPerDay, rate.OvertimeMultiplier, rate.HolidayMultiplier,
		rate.NightDifferential, rate.Allowance, rate.Tax, rate.SSSContribution, rate.PhilHealthContribution, rate.PagIBIGContribution,
		rate.Loan, rate.OtherDeduction, rate.LateDeductionPerMinute, rate.UpdatedAt,
	))
	if err != nil {
		return payroll.RateConfig{}, fmt.Errorf("failed to upsert rate: %w", err)
	}
	return rc, nil
}

func (r *rateRepository) List(ctx context.Context) ([]payroll.RateConfig, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT `+rateColumns+` FROM payroll_rates ORDER BY employee_code`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rates: %w", err)
	}
	defer rows.Close()

	var rates []payroll.RateConfig
	for rows.Next() {
		rc, err := scanRate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rate: %w", err)
		}
		rates = append(rates, rc)
	}
	return rates, rows.Err()
}

// ========== CHANGE REQUESTS ==========

type changeRequestRepository struct {
	db *database.DB
}

func NewChangeRequestRepository(db *database.DB) payroll.ChangeRequestRepository {
	return &changeRequestRepository{db: db}
}

const changeRequestColumns = `
	id, payroll_batch_id, group_id, employee_code, changes, reasons, status,
	requested_by, decided_by, decided_at, created_at`

func scanChangeRequest(row pgx.Row) (payroll.ChangeRequest, error) {
	var c payroll.ChangeRequest
	var changes []byte
	err := row.Scan(
		&c.ID, &c.PayrollBatchID, &c.GroupID, &c.EmployeeCode, &changes, &c.Reasons, &c.Status,
		&c.RequestedBy, &c.DecidedBy, &c.DecidedAt, &c.CreatedAt,
	)
	if err != nil {
		return payroll.ChangeRequest{}, err
	}
	if err := json.Unmarshal(changes, &c.Changes); err != nil {
		return payroll.ChangeRequest{}, fmt.Errorf("failed to decode changes: %w", err)
	}
	return c, nil
}

func (r *changeRequestRepository) Create(ctx context.Context, requests []payroll.ChangeRequest) error {
	return WithTransaction(ctx, r.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, r.db)
		for _, c := range requests {
			changes, err := json.Marshal(c.Changes)
			if err != nil {
				return fmt.Errorf("failed to encode changes: %w", err)
			}
			_, err = q.Exec(ctx, `
				INSERT INTO payroll_change_requests (`+changeRequestColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			`, c.ID, c.PayrollBatchID, c.GroupID, c.EmployeeCode, changes, c.Reasons, c.Status,
				c.RequestedBy, c.DecidedBy, c.DecidedAt, c.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to insert change request: %w", err)
			}
		}
		return nil
	})
}

func (r *changeRequestRepository) GetByID(ctx context.Context, id string) (payroll.ChangeRequest, error) {
	q := GetQuerier(ctx, r.db)

	c, err := scanChangeRequest(q.QueryRow(ctx, `SELECT `+changeRequestColumns+` FROM payroll_change_requests WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.ChangeRequest{}, payroll.ErrChangeRequestNotFound
		}
		return payroll.ChangeRequest{}, fmt.Errorf("failed to get change request: %w", err)
	}
	return c, nil
}

func (r *changeRequestRepository) ListByGroup(ctx context.Context, groupID string) ([]payroll.ChangeRequest, error) {
	return r.query(ctx, `
		SELECT `+changeRequestColumns+`
		FROM payroll_change_requests
		WHERE group_id = $1
		ORDER BY created_at, id
	`, groupID)
}

func (r *changeRequestRepository) List(ctx context.Context, filter payroll.ChangeRequestFilter) ([]payroll.ChangeRequest, error) {
	var conditions []string
	var args []interface{}
	if filter.PayrollBatchID != nil {
		args = append(args, *filter.PayrollBatchID)
		conditions = append(conditions, fmt.Sprintf("payroll_batch_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + changeRequestColumns + ` FROM payroll_change_requests`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at, id"
	return r.query(ctx, query, args...)
}

func (r *changeRequestRepository) UpdateStatus(ctx context.Context, ids []string, from, to payroll.ChangeRequestStatus, decidedBy string, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		UPDATE payroll_change_requests
		SET status = $3, decided_by = $4, decided_at = $5
		WHERE id = ANY($1::uuid[]) AND status = $2
	`, ids, from, to, decidedBy, at)
	if err != nil {
		return 0, fmt.Errorf("failed to update change requests: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *changeRequestRepository) query(ctx context.Context, query string, args ...interface{}) ([]payroll.ChangeRequest, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list change requests: %w", err)
	}
	defer rows.Close()

	var requests []payroll.ChangeRequest
	for rows.Next() {
		c, err := scanChangeRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan change request: %w", err)
		}
		requests = append(requests, c)
	}
	return requests, rows.Err()
}
