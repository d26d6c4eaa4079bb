package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pkonline/internal/entities"
	apperrors "pkonline/pkg/errors"
)

type WorkTimeRepositoryInterface interface {
	FindByDate(ctx context.Context, employeeID int64, date time.Time) (*entities.WorkDay, error)
	FindByDateForUpdateInTx(ctx context.Context, tx pgx.Tx, employeeID int64, date time.Time) (*entities.WorkDay, error)
	Create(ctx context.Context, day *entities.WorkDay) (int64, error)
	UpdateStatusInTx(ctx context.Context, tx pgx.Tx, dayID int64, status entities.WorkDayStatus, totalWork, totalBreak int64) error
	FinishInTx(ctx context.Context, tx pgx.Tx, dayID int64, endTime time.Time, totalWork, totalBreak int64) error
	OpenBreak(ctx context.Context, tx pgx.Tx, dayID int64, startTime time.Time) (int64, error)
	CloseBreakInTx(ctx context.Context, tx pgx.Tx, breakID int64, endTime time.Time, duration int64) error
	ActiveBreakInTx(ctx context.Context, tx pgx.Tx, dayID int64) (*entities.WorkBreak, error)
	BreaksForDay(ctx context.Context, dayID int64) ([]entities.WorkBreak, error)
	IncrementProcessedInTx(ctx context.Context, tx pgx.Tx, employeeID int64, date time.Time, startTime time.Time) error
	FleetReport(ctx context.Context, date time.Time) ([]FleetReportRow, error)
	History(ctx context.Context, employeeID int64, from, to time.Time) ([]entities.WorkDay, error)
}

// FleetReportRow — строка сводного отчёта по всем сотрудникам за день.
// Сотрудники без открытого дня тоже попадают в отчёт (поля дня нулевые).
// Для незавершённого дня итоги считаются не по записанным значениям, а по
// агрегатам перерывов: ClosedBreakSec и OpenBreakStart.
type FleetReportRow struct {
	EmployeeID            int64
	EmployeeFio           string
	Status                *string
	StartTime             *time.Time
	EndTime               *time.Time
	TotalWorkTime         int64
	TotalBreakTime        int64
	ApplicationsProcessed int64
	ClosedBreakSec        int64
	OpenBreakStart        *time.Time
}

type WorkTimeRepository struct {
	storage querier
}

func NewWorkTimeRepository(storage *pgxpool.Pool) WorkTimeRepositoryInterface {
	return &WorkTimeRepository{storage: storage}
}

const workDayColumns = `
	id, employee_id, work_date, start_time, end_time,
	total_work_time, total_break_time, status, applications_processed`

func scanWorkDay(row pgx.Row) (*entities.WorkDay, error) {
	var d entities.WorkDay
	err := row.Scan(
		&d.ID, &d.EmployeeID, &d.Date, &d.StartTime, &d.EndTime,
		&d.TotalWorkTime, &d.TotalBreakTime, &d.Status, &d.ApplicationsProcessed,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *WorkTimeRepository) FindByDate(ctx context.Context, employeeID int64, date time.Time) (*entities.WorkDay, error) {
	query := `SELECT` + workDayColumns + ` FROM work_days WHERE employee_id = $1 AND work_date = $2`
	day, err := scanWorkDay(r.storage.QueryRow(ctx, query, employeeID, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка поиска рабочего дня: %w", err)
	}
	return day, nil
}

func (r *WorkTimeRepository) FindByDateForUpdateInTx(ctx context.Context, tx pgx.Tx, employeeID int64, date time.Time) (*entities.WorkDay, error) {
	query := `SELECT` + workDayColumns + ` FROM work_days WHERE employee_id = $1 AND work_date = $2 FOR UPDATE`
	day, err := scanWorkDay(tx.QueryRow(ctx, query, employeeID, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка поиска рабочего дня для обновления: %w", err)
	}
	return day, nil
}

func (r *WorkTimeRepository) Create(ctx context.Context, day *entities.WorkDay) (int64, error) {
	var id int64
	err := r.storage.QueryRow(ctx, `
		INSERT INTO work_days (employee_id, work_date, start_time, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		day.EmployeeID, day.Date, day.StartTime, day.Status,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ошибка создания рабочего дня: %w", err)
	}
	return id, nil
}

func (r *WorkTimeRepository) UpdateStatusInTx(ctx context.Context, tx pgx.Tx, dayID int64, status entities.WorkDayStatus, totalWork, totalBreak int64) error {
	tag, err := tx.Exec(ctx, `
		UPDATE work_days SET
			status = $2,
			total_work_time = $3,
			total_break_time = $4
		WHERE id = $1`,
		dayID, status, totalWork, totalBreak)
	if err != nil {
		return fmt.Errorf("ошибка обновления статуса рабочего дня: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *WorkTimeRepository) FinishInTx(ctx context.Context, tx pgx.Tx, dayID int64, endTime time.Time, totalWork, totalBreak int64) error {
	tag, err := tx.Exec(ctx, `
		UPDATE work_days SET
			status = 'finished',
			end_time = $2,
			total_work_time = $3,
			total_break_time = $4
		WHERE id = $1`,
		dayID, endTime, totalWork, totalBreak)
	if err != nil {
		return fmt.Errorf("ошибка завершения рабочего дня: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *WorkTimeRepository) OpenBreak(ctx context.Context, tx pgx.Tx, dayID int64, startTime time.Time) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `
		INSERT INTO work_breaks (work_day_id, start_time)
		VALUES ($1, $2)
		RETURNING id`,
		dayID, startTime,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ошибка открытия перерыва: %w", err)
	}
	return id, nil
}

func (r *WorkTimeRepository) CloseBreakInTx(ctx context.Context, tx pgx.Tx, breakID int64, endTime time.Time, duration int64) error {
	tag, err := tx.Exec(ctx, `
		UPDATE work_breaks SET end_time = $2, duration = $3 WHERE id = $1`,
		breakID, endTime, duration)
	if err != nil {
		return fmt.Errorf("ошибка закрытия перерыва: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *WorkTimeRepository) ActiveBreakInTx(ctx context.Context, tx pgx.Tx, dayID int64) (*entities.WorkBreak, error) {
	var b entities.WorkBreak
	err := tx.QueryRow(ctx, `
		SELECT id, work_day_id, start_time, end_time, duration
		FROM work_breaks
		WHERE work_day_id = $1 AND end_time IS NULL`,
		dayID,
	).Scan(&b.ID, &b.WorkDayID, &b.StartTime, &b.EndTime, &b.Duration)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNoOpenBreak
		}
		return nil, fmt.Errorf("ошибка поиска открытого перерыва: %w", err)
	}
	return &b, nil
}

func (r *WorkTimeRepository) BreaksForDay(ctx context.Context, dayID int64) ([]entities.WorkBreak, error) {
	rows, err := r.storage.Query(ctx, `
		SELECT id, work_day_id, start_time, end_time, duration
		FROM work_breaks
		WHERE work_day_id = $1
		ORDER BY start_time ASC`,
		dayID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения перерывов: %w", err)
	}
	defer rows.Close()

	breaks := make([]entities.WorkBreak, 0)
	for rows.Next() {
		var b entities.WorkBreak
		if err := rows.Scan(&b.ID, &b.WorkDayID, &b.StartTime, &b.EndTime, &b.Duration); err != nil {
			return nil, fmt.Errorf("ошибка сканирования перерыва: %w", err)
		}
		breaks = append(breaks, b)
	}
	return breaks, rows.Err()
}

// IncrementProcessedInTx атомарно увеличивает счётчик обработанных
// заявлений: если рабочий день ещё не открыт, строка создаётся неявно
// со счётчиком 1.
func (r *WorkTimeRepository) IncrementProcessedInTx(ctx context.Context, tx pgx.Tx, employeeID int64, date time.Time, startTime time.Time) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO work_days (employee_id, work_date, start_time, status, applications_processed)
		VALUES ($1, $2, $3, 'active', 1)
		ON CONFLICT (employee_id, work_date)
		DO UPDATE SET applications_processed = work_days.applications_processed + 1`,
		employeeID, date, startTime)
	if err != nil {
		return fmt.Errorf("ошибка инкремента счётчика обработанных заявлений: %w", err)
	}
	return nil
}

func (r *WorkTimeRepository) FleetReport(ctx context.Context, date time.Time) ([]FleetReportRow, error) {
	rows, err := r.storage.Query(ctx, `
		SELECT e.id, e.fio, d.status, d.start_time, d.end_time,
		       COALESCE(d.total_work_time, 0), COALESCE(d.total_break_time, 0),
		       COALESCE(d.applications_processed, 0),
		       COALESCE(b.closed_break, 0), b.open_break_start
		FROM employees e
		LEFT JOIN work_days d ON d.employee_id = e.id AND d.work_date = $1
		LEFT JOIN LATERAL (
			SELECT COALESCE(SUM(duration) FILTER (WHERE end_time IS NOT NULL), 0) AS closed_break,
			       MIN(start_time) FILTER (WHERE end_time IS NULL) AS open_break_start
			FROM work_breaks
			WHERE work_day_id = d.id
		) b ON TRUE
		ORDER BY e.fio, e.id`,
		date)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения сводного отчёта: %w", err)
	}
	defer rows.Close()

	report := make([]FleetReportRow, 0)
	for rows.Next() {
		var row FleetReportRow
		err := rows.Scan(&row.EmployeeID, &row.EmployeeFio, &row.Status, &row.StartTime, &row.EndTime,
			&row.TotalWorkTime, &row.TotalBreakTime, &row.ApplicationsProcessed,
			&row.ClosedBreakSec, &row.OpenBreakStart)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки отчёта: %w", err)
		}
		report = append(report, row)
	}
	return report, rows.Err()
}

func (r *WorkTimeRepository) History(ctx context.Context, employeeID int64, from, to time.Time) ([]entities.WorkDay, error) {
	query := `SELECT` + workDayColumns + `
		FROM work_days
		WHERE employee_id = $1 AND work_date BETWEEN $2 AND $3
		ORDER BY work_date ASC`

	rows, err := r.storage.Query(ctx, query, employeeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения истории рабочих дней: %w", err)
	}
	defer rows.Close()

	days := make([]entities.WorkDay, 0)
	for rows.Next() {
		day, err := scanWorkDay(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования рабочего дня: %w", err)
		}
		days = append(days, *day)
	}
	return days, rows.Err()
}
