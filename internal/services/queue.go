package services

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"pkonline/internal/dto"
	"pkonline/internal/entities"
	"pkonline/internal/repositories"
	"pkonline/pkg/clock"
	"pkonline/pkg/config"
	apperrors "pkonline/pkg/errors"
)

// Решения по проблемному делу.
const (
	ResolutionSolved       = "solved"
	ResolutionSolvedReturn = "solved_return"
	ResolutionInProgress   = "in_progress"
	ResolutionOther        = "other"
)

// queueGroups — какая группа-капабилити нужна для работы с очередью.
var queueGroups = map[string]string{
	entities.QueueLK:          entities.GroupLK,
	entities.QueueEPGU:        entities.GroupEPGU,
	entities.QueueEPGUMail:    entities.GroupMail,
	entities.QueueLKProblem:   entities.GroupProblem,
	entities.QueueEPGUProblem: entities.GroupProblem,
}

type QueueServiceInterface interface {
	Enqueue(ctx context.Context, payload dto.CreateApplicationDTO) (*dto.ApplicationDTO, error)
	ClaimNext(ctx context.Context, employeeID int64, queueType string) (*dto.ApplicationDTO, error)
	Decide(ctx context.Context, employeeID int64, applicationID int64, payload dto.DecisionDTO) (*dto.ApplicationDTO, error)
	ReturnToQueue(ctx context.Context, employeeID int64, applicationID int64) error
	Postpone(ctx context.Context, employeeID int64, applicationID int64) (*dto.ApplicationDTO, error)
	Escalate(ctx context.Context, employeeID int64, applicationID int64) error
	UpdateQueueType(ctx context.Context, employeeID int64, applicationID int64, payload dto.RetypeQueueDTO) error
	ResolveProblem(ctx context.Context, employeeID int64, applicationID int64, payload dto.ResolveProblemDTO) (*dto.ApplicationDTO, error)
	CleanupExpired(ctx context.Context) ([]dto.ReclaimedApplicationDTO, error)
	ApplicationByID(ctx context.Context, applicationID int64) (*dto.ApplicationDTO, error)
	Search(ctx context.Context, payload dto.SearchApplicationsDTO) ([]dto.ApplicationDTO, error)
	ProblemApplications(ctx context.Context, queueType string) ([]dto.ApplicationDTO, error)
	OverdueMail(ctx context.Context) ([]dto.ApplicationDTO, error)
}

type QueueService struct {
	appRepo      repositories.ApplicationRepositoryInterface
	workTimeRepo repositories.WorkTimeRepositoryInterface
	employeeRepo repositories.EmployeeRepositoryInterface
	storage      *pgxpool.Pool
	notifier     Notifier
	clock        clock.Clock
	cfg          *config.QueueConfig
	logger       *zap.Logger
}

func NewQueueService(
	appRepo repositories.ApplicationRepositoryInterface,
	workTimeRepo repositories.WorkTimeRepositoryInterface,
	employeeRepo repositories.EmployeeRepositoryInterface,
	storage *pgxpool.Pool,
	notifier Notifier,
	clk clock.Clock,
	cfg *config.QueueConfig,
	logger *zap.Logger,
) QueueServiceInterface {
	return &QueueService{
		appRepo:      appRepo,
		workTimeRepo: workTimeRepo,
		employeeRepo: employeeRepo,
		storage:      storage,
		notifier:     notifier,
		clock:        clk,
		cfg:          cfg,
		logger:       logger,
	}
}

// checkQueueAccess проверяет, что у сотрудника есть группа очереди.
func (s *QueueService) checkQueueAccess(ctx context.Context, employeeID int64, queueType string) (*entities.Employee, error) {
	group, ok := queueGroups[queueType]
	if !ok {
		return nil, apperrors.ErrUnknownQueueType
	}

	employee, err := s.employeeRepo.FindByID(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if !employee.HasGroup(group) {
		return nil, apperrors.ErrForbidden
	}
	return employee, nil
}

func (s *QueueService) Enqueue(ctx context.Context, payload dto.CreateApplicationDTO) (*dto.ApplicationDTO, error) {
	if !entities.IsKnownQueueType(payload.QueueType) {
		return nil, apperrors.ErrUnknownQueueType
	}

	submittedAt, err := time.ParseInLocation("02.01.2006 15:04:05", payload.SubmittedAt, s.clock.Location())
	if err != nil {
		submittedAt, err = time.Parse(time.RFC3339, payload.SubmittedAt)
		if err != nil {
			return nil, apperrors.ErrBadRequest
		}
	}

	app := &entities.Application{
		Fio:         payload.Fio,
		SubmittedAt: submittedAt,
		IsPriority:  payload.IsPriority,
		QueueType:   payload.QueueType,
		Status:      entities.StatusQueued,
	}

	id, err := s.appRepo.Create(ctx, app)
	if err != nil {
		s.logger.Error("ошибка при добавлении заявления", zap.Error(err))
		return nil, err
	}

	created, err := s.appRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	result := toApplicationDTO(created)
	return &result, nil
}

// ClaimNext выдаёт сотруднику следующее заявление очереди. В очередях
// ЕПГУ отложенные заявления не выдаются, пока не пройдёт срок отсрочки;
// очередь личного кабинета отсрочку не фильтрует.
func (s *QueueService) ClaimNext(ctx context.Context, employeeID int64, queueType string) (*dto.ApplicationDTO, error) {
	if _, err := s.checkQueueAccess(ctx, employeeID, queueType); err != nil {
		return nil, err
	}

	excludePostponed := queueType == entities.QueueEPGU || queueType == entities.QueueEPGUMail
	app, err := s.appRepo.ClaimNext(ctx, queueType, employeeID, s.clock.Now(), excludePostponed)
	if err != nil {
		s.logger.Error("ошибка выдачи заявления", zap.String("queue_type", queueType), zap.Error(err))
		return nil, err
	}
	if app == nil {
		return nil, apperrors.ErrQueueEmpty
	}

	result := toApplicationDTO(app)
	return &result, nil
}

// Decide фиксирует решение по заявлению. Принято и отклонено — финальные
// статусы; "проблема" переводит заявление в параллельную проблемную
// очередь. Предварительное взятие в работу не обязательно: почтовые дела
// подтверждают прямо из результатов поиска, решивший сотрудник становится
// держателем. Счётчик обработанных заявлений увеличивается в той же
// транзакции.
func (s *QueueService) Decide(ctx context.Context, employeeID int64, applicationID int64, payload dto.DecisionDTO) (*dto.ApplicationDTO, error) {
	now := s.clock.Now()

	err := repositories.WithTx(ctx, s.storage, func(tx pgx.Tx) error {
		app, err := s.appRepo.FindForUpdateInTx(ctx, tx, applicationID)
		if err != nil {
			return err
		}
		if app.Status == entities.StatusInProgress && app.ProcessedByID != nil && *app.ProcessedByID != employeeID {
			return apperrors.ErrForbidden
		}

		status := entities.ApplicationStatus(payload.Status)
		queueType := app.QueueType

		if status == entities.StatusProblem {
			queueType = entities.ProblemQueueFor(app.QueueType)
			if err := s.appRepo.MoveToProblemInTx(ctx, tx, applicationID, queueType, payload.Reason.Ptr(), employeeID, now); err != nil {
				return err
			}
		} else {
			if err := s.appRepo.UpdateDecisionInTx(ctx, tx, applicationID, status, payload.Reason.Ptr(), employeeID, queueType, now); err != nil {
				return err
			}
		}

		workDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return s.workTimeRepo.IncrementProcessedInTx(ctx, tx, employeeID, workDate, now)
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.appRepo.FindByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if updated.Status == entities.StatusProblem {
		s.notifier.ProblemRegistered(ctx, updated)
	}

	result := toApplicationDTO(updated)
	return &result, nil
}

func (s *QueueService) ReturnToQueue(ctx context.Context, employeeID int64, applicationID int64) error {
	app, err := s.appRepo.FindByID(ctx, applicationID)
	if err != nil {
		return err
	}
	if app.Status != entities.StatusInProgress {
		return apperrors.ErrNotQueued
	}
	if app.ProcessedByID == nil || *app.ProcessedByID != employeeID {
		return apperrors.ErrForbidden
	}
	return s.appRepo.ReturnToQueue(ctx, applicationID)
}

// Postpone откладывает заявление ("не дозвонились"): оно возвращается в
// очередь и не выдаётся до истечения отсрочки.
func (s *QueueService) Postpone(ctx context.Context, employeeID int64, applicationID int64) (*dto.ApplicationDTO, error) {
	app, err := s.appRepo.FindByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status != entities.StatusInProgress {
		return nil, apperrors.ErrNotQueued
	}
	if app.ProcessedByID == nil || *app.ProcessedByID != employeeID {
		return nil, apperrors.ErrForbidden
	}

	until := s.clock.Now().Add(s.cfg.PostponeDelay)
	if err := s.appRepo.Postpone(ctx, applicationID, until, &employeeID); err != nil {
		return nil, err
	}

	updated, err := s.appRepo.FindByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	result := toApplicationDTO(updated)
	return &result, nil
}

// Escalate поднимает заявление в начало очереди. Требует группу
// эскалации; повторная эскалация — отказ по предусловию.
func (s *QueueService) Escalate(ctx context.Context, employeeID int64, applicationID int64) error {
	employee, err := s.employeeRepo.FindByID(ctx, employeeID)
	if err != nil {
		return err
	}
	if !employee.HasGroup(entities.GroupEscalation) {
		return apperrors.ErrForbidden
	}

	app, err := s.appRepo.FindByID(ctx, applicationID)
	if err != nil {
		return err
	}
	if app.IsPriority {
		return apperrors.ErrAlreadyPriority
	}
	if app.Status != entities.StatusQueued {
		return apperrors.ErrNotQueued
	}

	if err := s.appRepo.SetPriority(ctx, applicationID); err != nil {
		return err
	}
	s.notifier.ApplicationEscalated(ctx, app, employeeID)
	return nil
}

// UpdateQueueType переводит заявление в другую очередь и возвращает его
// в состояние "в очереди".
func (s *QueueService) UpdateQueueType(ctx context.Context, employeeID int64, applicationID int64, payload dto.RetypeQueueDTO) error {
	if !entities.IsKnownQueueType(payload.QueueType) {
		return apperrors.ErrUnknownQueueType
	}

	app, err := s.appRepo.FindByID(ctx, applicationID)
	if err != nil {
		return err
	}
	if app.Status != entities.StatusInProgress {
		return apperrors.ErrNotQueued
	}
	if app.ProcessedByID == nil || *app.ProcessedByID != employeeID {
		return apperrors.ErrForbidden
	}

	return s.appRepo.UpdateQueueType(ctx, applicationID, payload.QueueType, employeeID, payload.Reason.Ptr())
}

// ResolveProblem закрывает или продвигает проблемное дело:
//   - solved         — решено: заявление возвращается в базовую очередь со статусом "принято";
//   - solved_return  — решено: заявление возвращается в базовую очередь на повторную обработку;
//   - in_progress    — дело взято в работу ответственным, очередь и статус не меняются;
//   - other          — комментарий и ответственный фиксируются, статус дела сбрасывается в "новое".
func (s *QueueService) ResolveProblem(ctx context.Context, employeeID int64, applicationID int64, payload dto.ResolveProblemDTO) (*dto.ApplicationDTO, error) {
	now := s.clock.Now()

	err := repositories.WithTx(ctx, s.storage, func(tx pgx.Tx) error {
		app, err := s.appRepo.FindForUpdateInTx(ctx, tx, applicationID)
		if err != nil {
			return err
		}
		if !entities.IsProblemQueue(app.QueueType) {
			return apperrors.ErrNotProblemQueue
		}

		employee, err := s.employeeRepo.FindByID(ctx, employeeID)
		if err != nil {
			return err
		}
		if !employee.HasGroup(entities.GroupProblem) {
			return apperrors.ErrForbidden
		}

		comment := payload.Comment.Ptr()
		responsible := payload.Responsible.Ptr()

		switch payload.Resolution {
		case ResolutionSolved:
			return s.appRepo.ResolveProblemInTx(ctx, tx, applicationID, entities.BaseQueueFor(app.QueueType),
				entities.StatusAccepted, entities.ProblemStatusSolved, comment, responsible, &now)
		case ResolutionSolvedReturn:
			return s.appRepo.ResolveProblemInTx(ctx, tx, applicationID, entities.BaseQueueFor(app.QueueType),
				entities.StatusQueued, entities.ProblemStatusSolved, comment, responsible, nil)
		case ResolutionInProgress:
			return s.appRepo.ResolveProblemInTx(ctx, tx, applicationID, app.QueueType,
				app.Status, entities.ProblemStatusInProgress, comment, responsible, nil)
		case ResolutionOther:
			return s.appRepo.ResolveProblemInTx(ctx, tx, applicationID, app.QueueType,
				app.Status, entities.ProblemStatusNew, comment, responsible, nil)
		default:
			return apperrors.ErrUnknownResolution
		}
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.appRepo.FindByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	result := toApplicationDTO(updated)
	return &result, nil
}

// CleanupExpired возвращает в очередь заявления, висящие в работе дольше
// таймаута. Вызывается периодически фоновой задачей.
func (s *QueueService) CleanupExpired(ctx context.Context) ([]dto.ReclaimedApplicationDTO, error) {
	threshold := s.clock.Now().Add(-s.cfg.ClaimTimeout)
	rows, err := s.appRepo.CleanupExpired(ctx, threshold)
	if err != nil {
		s.logger.Error("ошибка очистки зависших заявлений", zap.Error(err))
		return nil, err
	}

	reclaimed := toReclaimedDTOs(rows)
	if len(reclaimed) > 0 {
		s.notifier.ApplicationsReclaimed(ctx, reclaimed)
	}
	return reclaimed, nil
}

func (s *QueueService) ApplicationByID(ctx context.Context, applicationID int64) (*dto.ApplicationDTO, error) {
	app, err := s.appRepo.FindByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	result := toApplicationDTO(app)
	return &result, nil
}

func (s *QueueService) Search(ctx context.Context, payload dto.SearchApplicationsDTO) ([]dto.ApplicationDTO, error) {
	if payload.QueueType != "" && !entities.IsKnownQueueType(payload.QueueType) {
		return nil, apperrors.ErrUnknownQueueType
	}
	apps, err := s.appRepo.SearchByFio(ctx, payload.Fio, payload.QueueType)
	if err != nil {
		return nil, err
	}
	return toApplicationDTOs(apps), nil
}

func (s *QueueService) ProblemApplications(ctx context.Context, queueType string) ([]dto.ApplicationDTO, error) {
	if !entities.IsProblemQueue(queueType) || !entities.IsKnownQueueType(queueType) {
		return nil, apperrors.ErrNotProblemQueue
	}
	apps, err := s.appRepo.ProblemApplications(ctx, queueType)
	if err != nil {
		return nil, err
	}
	return toApplicationDTOs(apps), nil
}

// OverdueMail — письма ЕПГУ, отправленные давнее порога и так и не
// закрытые: кандидаты на повторный контакт.
func (s *QueueService) OverdueMail(ctx context.Context) ([]dto.ApplicationDTO, error) {
	cutoff := s.clock.Now().AddDate(0, 0, -s.cfg.OverdueThresholdDays)
	apps, err := s.appRepo.OverdueMail(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	return toApplicationDTOs(apps), nil
}
