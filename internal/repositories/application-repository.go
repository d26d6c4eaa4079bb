package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pkonline/internal/dto"
	"pkonline/internal/entities"
	apperrors "pkonline/pkg/errors"
)

type ApplicationRepositoryInterface interface {
	ClaimNext(ctx context.Context, queueType string, employeeID int64, now time.Time, excludePostponed bool) (*entities.Application, error)
	FindByID(ctx context.Context, id int64) (*entities.Application, error)
	FindForUpdateInTx(ctx context.Context, tx pgx.Tx, id int64) (*entities.Application, error)
	Create(ctx context.Context, app *entities.Application) (int64, error)
	UpdateDecisionInTx(ctx context.Context, tx pgx.Tx, id int64, status entities.ApplicationStatus, reason *string, employeeID int64, queueType string, processedAt time.Time) error
	MoveToProblemInTx(ctx context.Context, tx pgx.Tx, id int64, queueType string, reason *string, employeeID int64, processedAt time.Time) error
	ReturnToQueue(ctx context.Context, id int64) error
	UpdateQueueType(ctx context.Context, id int64, newQueueType string, employeeID int64, reason *string) error
	Postpone(ctx context.Context, id int64, until time.Time, employeeID *int64) error
	SetPriority(ctx context.Context, id int64) error
	ResolveProblemInTx(ctx context.Context, tx pgx.Tx, id int64, queueType string, status entities.ApplicationStatus, problemStatus entities.ProblemStatus, comment, responsible *string, processedAt *time.Time) error
	CleanupExpired(ctx context.Context, threshold time.Time) ([]ReclaimedRow, error)
	SearchByFio(ctx context.Context, fio string, queueType string) ([]entities.Application, error)
	ProblemApplications(ctx context.Context, queueType string) ([]entities.Application, error)
	Statistics(ctx context.Context) ([]dto.QueueStatisticsDTO, error)
	OverdueMail(ctx context.Context, cutoff time.Time) ([]entities.Application, error)
	ExistsByFioAndDate(ctx context.Context, fio string, submittedAt time.Time, queueType string) (bool, error)
	FindByFioExact(ctx context.Context, fio string, queueType string) (*entities.Application, error)
	UpdateSubmittedAt(ctx context.Context, id int64, submittedAt time.Time) error
}

type ApplicationRepository struct {
	storage querier
}

func NewApplicationRepository(storage *pgxpool.Pool) ApplicationRepositoryInterface {
	return &ApplicationRepository{storage: storage}
}

const applicationColumns = `
	id, fio, submitted_at, is_priority, status, status_reason, queue_type,
	processed_by_id, taken_at, postponed_until, processed_at,
	problem_status, problem_comment, problem_responsible,
	epgu_action, epgu_processor_id,
	needs_scans, needs_signature, scans_confirmed, signature_confirmed`

func scanApplication(row pgx.Row) (*entities.Application, error) {
	var app entities.Application
	err := row.Scan(
		&app.ID, &app.Fio, &app.SubmittedAt, &app.IsPriority, &app.Status,
		&app.StatusReason, &app.QueueType,
		&app.ProcessedByID, &app.TakenAt, &app.PostponedUntil, &app.ProcessedAt,
		&app.ProblemStatus, &app.ProblemComment, &app.ProblemResponsible,
		&app.EPGUAction, &app.EPGUProcessorID,
		&app.NeedsScans, &app.NeedsSignature, &app.ScansConfirmed, &app.SignatureConfirmed,
	)
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func collectApplications(rows pgx.Rows) ([]entities.Application, error) {
	defer rows.Close()
	apps := make([]entities.Application, 0)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования заявления: %w", err)
		}
		apps = append(apps, *app)
	}
	return apps, rows.Err()
}

// ClaimNext атомарно выдаёт самое старое подходящее заявление: подзапрос с
// FOR UPDATE SKIP LOCKED гарантирует, что два параллельных запроса не получат
// одну и ту же строку — проигравший пропустит заблокированную и возьмёт
// следующую (или не возьмёт ничего).
func (r *ApplicationRepository) ClaimNext(ctx context.Context, queueType string, employeeID int64, now time.Time, excludePostponed bool) (*entities.Application, error) {
	query := `
		UPDATE applications SET
			status = 'in_progress',
			taken_at = $3,
			processed_by_id = $2
		WHERE id = (
			SELECT id FROM applications
			WHERE queue_type = $1
			  AND status = 'queued'
			  AND ($4::boolean IS FALSE OR postponed_until IS NULL OR postponed_until <= $3)
			ORDER BY is_priority DESC, submitted_at ASC, id ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING` + applicationColumns

	app, err := scanApplication(r.storage.QueryRow(ctx, query, queueType, employeeID, now, excludePostponed))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка выдачи заявления из очереди %q: %w", queueType, err)
	}
	return app, nil
}

func (r *ApplicationRepository) FindByID(ctx context.Context, id int64) (*entities.Application, error) {
	query := `SELECT` + applicationColumns + ` FROM applications WHERE id = $1`
	app, err := scanApplication(r.storage.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка поиска заявления: %w", err)
	}
	return app, nil
}

func (r *ApplicationRepository) FindForUpdateInTx(ctx context.Context, tx pgx.Tx, id int64) (*entities.Application, error) {
	query := `SELECT` + applicationColumns + ` FROM applications WHERE id = $1 FOR UPDATE`
	app, err := scanApplication(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка поиска заявления для обновления: %w", err)
	}
	return app, nil
}

func (r *ApplicationRepository) Create(ctx context.Context, app *entities.Application) (int64, error) {
	query := `
		INSERT INTO applications (fio, submitted_at, is_priority, status, queue_type, postponed_until)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	var id int64
	err := r.storage.QueryRow(ctx, query,
		app.Fio, app.SubmittedAt, app.IsPriority, entities.StatusQueued, app.QueueType, app.PostponedUntil,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ошибка добавления заявления: %w", err)
	}
	return id, nil
}

func (r *ApplicationRepository) UpdateDecisionInTx(ctx context.Context, tx pgx.Tx, id int64, status entities.ApplicationStatus, reason *string, employeeID int64, queueType string, processedAt time.Time) error {
	query := `
		UPDATE applications SET
			status = $2,
			status_reason = $3,
			processed_by_id = $4,
			queue_type = $5,
			processed_at = $6,
			taken_at = NULL
		WHERE id = $1`

	tag, err := tx.Exec(ctx, query, id, status, reason, employeeID, queueType, processedAt)
	if err != nil {
		return fmt.Errorf("ошибка обновления статуса заявления: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// MoveToProblemInTx переводит заявление в проблемную очередь: причина
// решения пишется в status_reason, дело открывается со статусом "новое".
func (r *ApplicationRepository) MoveToProblemInTx(ctx context.Context, tx pgx.Tx, id int64, queueType string, reason *string, employeeID int64, processedAt time.Time) error {
	query := `
		UPDATE applications SET
			status = 'problem',
			status_reason = $3,
			queue_type = $2,
			problem_status = 'new',
			processed_by_id = $4,
			processed_at = $5,
			taken_at = NULL
		WHERE id = $1`

	tag, err := tx.Exec(ctx, query, id, queueType, reason, employeeID, processedAt)
	if err != nil {
		return fmt.Errorf("ошибка перевода заявления в проблемную очередь: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *ApplicationRepository) ReturnToQueue(ctx context.Context, id int64) error {
	query := `
		UPDATE applications SET
			status = 'queued',
			processed_by_id = NULL,
			taken_at = NULL
		WHERE id = $1`

	tag, err := r.storage.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("ошибка возврата заявления в очередь: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *ApplicationRepository) UpdateQueueType(ctx context.Context, id int64, newQueueType string, employeeID int64, reason *string) error {
	query := `
		UPDATE applications SET
			queue_type = $2,
			status = 'queued',
			status_reason = COALESCE($4, status_reason),
			processed_by_id = $3,
			taken_at = NULL
		WHERE id = $1`

	tag, err := r.storage.Exec(ctx, query, id, newQueueType, employeeID, reason)
	if err != nil {
		return fmt.Errorf("ошибка смены очереди заявления: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *ApplicationRepository) Postpone(ctx context.Context, id int64, until time.Time, employeeID *int64) error {
	query := `
		UPDATE applications SET
			status = 'queued',
			postponed_until = $2,
			processed_by_id = COALESCE($3, processed_by_id),
			taken_at = NULL
		WHERE id = $1`

	tag, err := r.storage.Exec(ctx, query, id, until, employeeID)
	if err != nil {
		return fmt.Errorf("ошибка откладывания заявления: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *ApplicationRepository) SetPriority(ctx context.Context, id int64) error {
	tag, err := r.storage.Exec(ctx, `UPDATE applications SET is_priority = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка эскалации заявления: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *ApplicationRepository) ResolveProblemInTx(ctx context.Context, tx pgx.Tx, id int64, queueType string, status entities.ApplicationStatus, problemStatus entities.ProblemStatus, comment, responsible *string, processedAt *time.Time) error {
	query := `
		UPDATE applications SET
			queue_type = $2,
			status = $3,
			problem_status = $4,
			problem_comment = COALESCE($5, problem_comment),
			problem_responsible = COALESCE($6, problem_responsible),
			processed_at = COALESCE($7, processed_at),
			taken_at = NULL
		WHERE id = $1`

	tag, err := tx.Exec(ctx, query, id, queueType, status, problemStatus, comment, responsible, processedAt)
	if err != nil {
		return fmt.Errorf("ошибка обновления проблемного дела: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ReclaimedRow — зависшее заявление, возвращённое в очередь, вместе с
// сотрудником, который его держал до очистки.
type ReclaimedRow struct {
	ID             int64
	Fio            string
	QueueType      string
	FormerHolderID *int64
}

// CleanupExpired возвращает в очередь все зависшие заявления разом.
// CTE фиксирует прежнего держателя до обнуления processed_by_id;
// повторный запуск — no-op.
func (r *ApplicationRepository) CleanupExpired(ctx context.Context, threshold time.Time) ([]ReclaimedRow, error) {
	query := `
		WITH expired AS (
			SELECT id, processed_by_id
			FROM applications
			WHERE status = 'in_progress' AND taken_at < $1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE applications a SET
			status = 'queued',
			processed_by_id = NULL,
			taken_at = NULL
		FROM expired e
		WHERE a.id = e.id
		RETURNING a.id, a.fio, a.queue_type, e.processed_by_id`

	rows, err := r.storage.Query(ctx, query, threshold)
	if err != nil {
		return nil, fmt.Errorf("ошибка очистки зависших заявлений: %w", err)
	}
	defer rows.Close()

	reclaimed := make([]ReclaimedRow, 0)
	for rows.Next() {
		var row ReclaimedRow
		if err := rows.Scan(&row.ID, &row.Fio, &row.QueueType, &row.FormerHolderID); err != nil {
			return nil, fmt.Errorf("ошибка сканирования возвращённого заявления: %w", err)
		}
		reclaimed = append(reclaimed, row)
	}
	return reclaimed, rows.Err()
}

func (r *ApplicationRepository) SearchByFio(ctx context.Context, fio string, queueType string) ([]entities.Application, error) {
	builder := sq.Select().
		Column(sq.Expr("id, fio, submitted_at, is_priority, status, status_reason, queue_type, processed_by_id, taken_at, postponed_until, processed_at, problem_status, problem_comment, problem_responsible, epgu_action, epgu_processor_id, needs_scans, needs_signature, scans_confirmed, signature_confirmed")).
		From("applications").
		Where(sq.Eq{"fio": fio}).
		OrderBy("submitted_at ASC", "id ASC").
		PlaceholderFormat(sq.Dollar)

	if queueType != "" {
		builder = builder.Where(sq.Eq{"queue_type": queueType})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса поиска: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска заявлений по ФИО: %w", err)
	}
	return collectApplications(rows)
}

func (r *ApplicationRepository) ProblemApplications(ctx context.Context, queueType string) ([]entities.Application, error) {
	query := `SELECT` + applicationColumns + `
		FROM applications
		WHERE queue_type = $1
		ORDER BY submitted_at ASC, id ASC`

	rows, err := r.storage.Query(ctx, query, queueType)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения проблемных дел: %w", err)
	}
	return collectApplications(rows)
}

func (r *ApplicationRepository) Statistics(ctx context.Context) ([]dto.QueueStatisticsDTO, error) {
	builder := sq.Select(
		"queue_type",
		"COUNT(*) AS total",
		"COUNT(*) FILTER (WHERE status = 'queued') AS queued",
		"COUNT(*) FILTER (WHERE status = 'in_progress') AS in_progress",
		"COUNT(*) FILTER (WHERE status = 'accepted') AS accepted",
		"COUNT(*) FILTER (WHERE status = 'rejected') AS rejected",
		"COUNT(*) FILTER (WHERE status = 'problem') AS problem",
	).
		From("applications").
		GroupBy("queue_type").
		OrderBy("queue_type").
		PlaceholderFormat(sq.Dollar)

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса статистики: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения статистики очередей: %w", err)
	}
	defer rows.Close()

	stats := make([]dto.QueueStatisticsDTO, 0)
	for rows.Next() {
		var s dto.QueueStatisticsDTO
		if err := rows.Scan(&s.QueueType, &s.Total, &s.Queued, &s.InProgress, &s.Accepted, &s.Rejected, &s.Problem); err != nil {
			return nil, fmt.Errorf("ошибка сканирования статистики: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func (r *ApplicationRepository) OverdueMail(ctx context.Context, cutoff time.Time) ([]entities.Application, error) {
	query := `SELECT` + applicationColumns + `
		FROM applications
		WHERE queue_type = 'epgu_mail'
		  AND status = 'queued'
		  AND postponed_until IS NOT NULL
		  AND postponed_until < $1
		ORDER BY postponed_until ASC, id ASC`

	rows, err := r.storage.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения просроченной почты: %w", err)
	}
	return collectApplications(rows)
}

func (r *ApplicationRepository) ExistsByFioAndDate(ctx context.Context, fio string, submittedAt time.Time, queueType string) (bool, error) {
	var exists bool
	err := r.storage.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM applications WHERE fio = $1 AND submitted_at = $2 AND queue_type = $3)`,
		fio, submittedAt, queueType,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки дубликата заявления: %w", err)
	}
	return exists, nil
}

func (r *ApplicationRepository) FindByFioExact(ctx context.Context, fio string, queueType string) (*entities.Application, error) {
	query := `SELECT` + applicationColumns + `
		FROM applications
		WHERE fio = $1 AND queue_type = $2
		ORDER BY id ASC
		LIMIT 1`

	app, err := scanApplication(r.storage.QueryRow(ctx, query, fio, queueType))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка поиска заявления по ФИО: %w", err)
	}
	return app, nil
}

func (r *ApplicationRepository) UpdateSubmittedAt(ctx context.Context, id int64, submittedAt time.Time) error {
	_, err := r.storage.Exec(ctx, `UPDATE applications SET submitted_at = $2 WHERE id = $1`, id, submittedAt)
	if err != nil {
		return fmt.Errorf("ошибка обновления даты подачи: %w", err)
	}
	return nil
}
