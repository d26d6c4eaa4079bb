package services

import (
	"context"
	"testing"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkonline/internal/dto"
	"pkonline/internal/entities"
	"pkonline/internal/repositories"
	"pkonline/pkg/clock"
	apperrors "pkonline/pkg/errors"
)

func newQueueServiceWith(t *testing.T, clk *clock.Fixed) QueueServiceInterface {
	t.Helper()
	appRepo := repositories.NewApplicationRepository(testPool)
	workTimeRepo := repositories.NewWorkTimeRepository(testPool)
	employeeRepo := repositories.NewEmployeeRepository(testPool)
	return NewQueueService(appRepo, workTimeRepo, employeeRepo, testPool,
		NewLogNotifier(testLogger()), clk, testQueueConfig(), testLogger())
}

func TestQueueService_Integration_ClaimRequiresGroup(t *testing.T) {
	require.NotNil(t, testPool)
	cleanupTables(t, testPool)

	clk := fixedClock()
	svc := newQueueServiceWith(t, clk)

	withGroup := seedEmployeeWithGroups(t, testPool, "op1", false, entities.GroupLK)
	withoutGroup := seedEmployeeWithGroups(t, testPool, "op2", false)
	admin := seedEmployeeWithGroups(t, testPool, "admin", true)

	seedQueuedApplication(t, testPool, "Иванов Иван", entities.QueueLK, clk.Current.Add(-time.Hour))
	seedQueuedApplication(t, testPool, "Петров Пётр", entities.QueueLK, clk.Current.Add(-time.Hour))

	_, err := svc.ClaimNext(context.Background(), withoutGroup, entities.QueueLK)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	app, err := svc.ClaimNext(context.Background(), withGroup, entities.QueueLK)
	require.NoError(t, err)
	assert.Equal(t, "in_progress", app.Status)

	// Администратор проходит любую проверку групп.
	_, err = svc.ClaimNext(context.Background(), admin, entities.QueueLK)
	require.NoError(t, err)

	_, err = svc.ClaimNext(context.Background(), withGroup, "нет_такой")
	assert.ErrorIs(t, err, apperrors.ErrUnknownQueueType)

	_, err = svc.ClaimNext(context.Background(), withGroup, entities.QueueLK)
	assert.ErrorIs(t, err, apperrors.ErrQueueEmpty)
}

func TestQueueService_Integration_DecideIncrementsCounter(t *testing.T) {
	cleanupTables(t, testPool)

	clk := fixedClock()
	svc := newQueueServiceWith(t, clk)
	employeeID := seedEmployeeWithGroups(t, testPool, "op1", false, entities.GroupLK)
	seedQueuedApplication(t, testPool, "Иванов Иван", entities.QueueLK, clk.Current.Add(-time.Hour))

	app, err := svc.ClaimNext(context.Background(), employeeID, entities.QueueLK)
	require.NoError(t, err)

	decided, err := svc.Decide(context.Background(), employeeID, app.ID, dto.DecisionDTO{Status: "accepted"})
	require.NoError(t, err)
	assert.Equal(t, "accepted", decided.Status)
	assert.True(t, decided.ProcessedAt.Valid)

	// Счётчик обработанных заявлений за сегодня увеличился, день создан неявно.
	var processed int64
	err = testPool.QueryRow(context.Background(),
		`SELECT applications_processed FROM work_days WHERE employee_id = $1`, employeeID).Scan(&processed)
	require.NoError(t, err)
	assert.Equal(t, int64(1), processed)

	// Повторное решение по уже решённому заявлению допускается: статус
	// перезаписывается, счётчик растёт.
	decided, err = svc.Decide(context.Background(), employeeID, app.ID, dto.DecisionDTO{
		Status: "rejected",
		Reason: null.StringFrom("дубликат заявления"),
	})
	require.NoError(t, err)
	assert.Equal(t, "rejected", decided.Status)

	err = testPool.QueryRow(context.Background(),
		`SELECT applications_processed FROM work_days WHERE employee_id = $1`, employeeID).Scan(&processed)
	require.NoError(t, err)
	assert.Equal(t, int64(2), processed)
}

func TestQueueService_Integration_DecideWithoutClaim(t *testing.T) {
	cleanupTables(t, testPool)

	clk := fixedClock()
	svc := newQueueServiceWith(t, clk)
	operator := seedEmployeeWithGroups(t, testPool, "mail1", false, entities.GroupMail)
	other := seedEmployeeWithGroups(t, testPool, "mail2", false, entities.GroupMail)
	appID := seedQueuedApplication(t, testPool, "Иванов Иван", entities.QueueEPGUMail, clk.Current.Add(-time.Hour))

	// Почтовое дело подтверждают по результату поиска, без взятия в
	// работу: решивший сотрудник становится держателем.
	found, err := svc.Search(context.Background(), dto.SearchApplicationsDTO{
		Fio:       "Иванов Иван",
		QueueType: entities.QueueEPGUMail,
	})
	require.NoError(t, err)
	require.Len(t, found, 1)

	decided, err := svc.Decide(context.Background(), operator, appID, dto.DecisionDTO{Status: "accepted"})
	require.NoError(t, err)
	assert.Equal(t, "accepted", decided.Status)
	assert.Equal(t, operator, decided.ProcessedBy.Int64)
	assert.True(t, decided.ProcessedAt.Valid)

	// Взятое другим сотрудником заявление решать нельзя.
	heldID := seedQueuedApplication(t, testPool, "Петров Пётр", entities.QueueEPGUMail, clk.Current.Add(-time.Hour))
	_, err = svc.ClaimNext(context.Background(), operator, entities.QueueEPGUMail)
	require.NoError(t, err)
	_, err = svc.Decide(context.Background(), other, heldID, dto.DecisionDTO{Status: "accepted"})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestQueueService_Integration_DecideProblemMovesQueue(t *testing.T) {
	cleanupTables(t, testPool)

	clk := fixedClock()
	svc := newQueueServiceWith(t, clk)
	employeeID := seedEmployeeWithGroups(t, testPool, "op1", false, entities.GroupEPGU, entities.GroupProblem)
	seedQueuedApplication(t, testPool, "Иванов Иван", entities.QueueEPGU, clk.Current.Add(-time.Hour))

	app, err := svc.ClaimNext(context.Background(), employeeID, entities.QueueEPGU)
	require.NoError(t, err)

	reason := null.StringFrom("нет сканов документов")
	decided, err := svc.Decide(context.Background(), employeeID, app.ID, dto.DecisionDTO{Status: "problem", Reason: reason})
	require.NoError(t, err)
	assert.Equal(t, "problem", decided.Status)
	assert.Equal(t, entities.QueueEPGUProblem, decided.QueueType)
	assert.Equal(t, "new", decided.ProblemStatus.String)
	assert.Equal(t, "нет сканов документов", decided.StatusReason.String)
	assert.True(t, decided.ProcessedAt.Valid)

	// Повторное решение "проблема" не наращивает суффикс очереди.
	decided, err = svc.Decide(context.Background(), employeeID, app.ID, dto.DecisionDTO{Status: "problem", Reason: reason})
	require.NoError(t, err)
	assert.Equal(t, entities.QueueEPGUProblem, decided.QueueType)

	problems, err := svc.ProblemApplications(context.Background(), entities.QueueEPGUProblem)
	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.Equal(t, app.ID, problems[0].ID)
}

func TestQueueService_Integration_ResolveProblem(t *testing.T) {
	cleanupTables(t, testPool)

	clk := fixedClock()
	svc := newQueueServiceWith(t, clk)
	employeeID := seedEmployeeWithGroups(t, testPool, "op1", false, entities.GroupEPGU, entities.GroupProblem)
	seedQueuedApplication(t, testPool, "Иванов Иван", entities.QueueEPGU, clk.Current.Add(-time.Hour))

	app, err := svc.ClaimNext(context.Background(), employeeID, entities.QueueEPGU)
	require.NoError(t, err)
	_, err = svc.Decide(context.Background(), employeeID, app.ID, dto.DecisionDTO{Status: "problem"})
	require.NoError(t, err)

	// Дело берут в работу: очередь и статус заявления не меняются.
	resolved, err := svc.ResolveProblem(context.Background(), employeeID, app.ID, dto.ResolveProblemDTO{
		Resolution:  ResolutionInProgress,
		Responsible: null.StringFrom("Смирнова А.А."),
	})
	require.NoError(t, err)
	assert.Equal(t, "in_progress", resolved.ProblemStatus.String)
	assert.Equal(t, "Смирнова А.А.", resolved.ProblemResponsible.String)
	assert.Equal(t, entities.QueueEPGUProblem, resolved.QueueType)

	// Любое другое решение сбрасывает статус дела в "новое".
	resolved, err = svc.ResolveProblem(context.Background(), employeeID, app.ID, dto.ResolveProblemDTO{
		Resolution: ResolutionOther,
		Comment:    null.StringFrom("ожидаем ответ абитуриента"),
	})
	require.NoError(t, err)
	assert.Equal(t, "new", resolved.ProblemStatus.String)
	assert.Equal(t, entities.QueueEPGUProblem, resolved.QueueType)

	// Решено с возвратом: заявление снова в базовой очереди.
	resolved, err = svc.ResolveProblem(context.Background(), employeeID, app.ID, dto.ResolveProblemDTO{
		Resolution: ResolutionSolvedReturn,
		Comment:    null.StringFrom("сканы получены"),
	})
	require.NoError(t, err)
	assert.Equal(t, entities.QueueEPGU, resolved.QueueType)
	assert.Equal(t, "queued", resolved.Status)
	assert.Equal(t, "solved", resolved.ProblemStatus.String)

	// Заявление вне проблемной очереди решать нельзя.
	_, err = svc.ResolveProblem(context.Background(), employeeID, app.ID, dto.ResolveProblemDTO{Resolution: ResolutionSolved})
	assert.ErrorIs(t, err, apperrors.ErrNotProblemQueue)

	// "Решено" без возврата: суффикс снимается, статус финальный.
	_, err = svc.Decide(context.Background(), employeeID, app.ID, dto.DecisionDTO{Status: "problem"})
	require.NoError(t, err)
	resolved, err = svc.ResolveProblem(context.Background(), employeeID, app.ID, dto.ResolveProblemDTO{Resolution: ResolutionSolved})
	require.NoError(t, err)
	assert.Equal(t, entities.QueueEPGU, resolved.QueueType)
	assert.Equal(t, "accepted", resolved.Status)
	assert.True(t, resolved.ProcessedAt.Valid)
}

func TestQueueService_Integration_Escalate(t *testing.T) {
	cleanupTables(t, testPool)

	clk := fixedClock()
	svc := newQueueServiceWith(t, clk)
	escalator := seedEmployeeWithGroups(t, testPool, "esc", false, entities.GroupEscalation)
	regular := seedEmployeeWithGroups(t, testPool, "op1", false, entities.GroupLK)
	appID := seedQueuedApplication(t, testPool, "Иванов Иван", entities.QueueLK, clk.Current.Add(-time.Hour))

	err := svc.Escalate(context.Background(), regular, appID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	require.NoError(t, svc.Escalate(context.Background(), escalator, appID))

	// Повторная эскалация — отказ по предусловию.
	err = svc.Escalate(context.Background(), escalator, appID)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyPriority)
}

func TestQueueService_Integration_CleanupExpired(t *testing.T) {
	cleanupTables(t, testPool)

	clk := fixedClock()
	svc := newQueueServiceWith(t, clk)
	employeeID := seedEmployeeWithGroups(t, testPool, "op1", false, entities.GroupLK)
	seedQueuedApplication(t, testPool, "Иванов Иван", entities.QueueLK, clk.Current.Add(-time.Hour))

	app, err := svc.ClaimNext(context.Background(), employeeID, entities.QueueLK)
	require.NoError(t, err)

	// Таймаут ещё не вышел.
	reclaimed, err := svc.CleanupExpired(context.Background())
	require.NoError(t, err)
	assert.Len(t, reclaimed, 0)

	clk.Advance(2 * time.Hour)

	reclaimed, err = svc.CleanupExpired(context.Background())
	require.NoError(t, err)
	require.Len(t, reclaimed, 1)
	assert.Equal(t, app.ID, reclaimed[0].ApplicationID)
	assert.Equal(t, employeeID, reclaimed[0].FormerHolder.Int64)

	// Заявление снова доступно для выдачи.
	again, err := svc.ClaimNext(context.Background(), employeeID, entities.QueueLK)
	require.NoError(t, err)
	assert.Equal(t, app.ID, again.ID)
}

func TestQueueService_Integration_PostponeDelaysClaim(t *testing.T) {
	cleanupTables(t, testPool)

	clk := fixedClock()
	svc := newQueueServiceWith(t, clk)
	employeeID := seedEmployeeWithGroups(t, testPool, "op1", false, entities.GroupLK, entities.GroupEPGU)
	appID := seedQueuedApplication(t, testPool, "Иванов Иван", entities.QueueEPGU, clk.Current.Add(-time.Hour))

	_, err := svc.ClaimNext(context.Background(), employeeID, entities.QueueEPGU)
	require.NoError(t, err)

	postponed, err := svc.Postpone(context.Background(), employeeID, appID)
	require.NoError(t, err)
	assert.Equal(t, "queued", postponed.Status)
	assert.True(t, postponed.PostponedUntil.Valid)

	// В очередях ЕПГУ отложенное заявление не выдаётся до истечения
	// суточной отсрочки.
	_, err = svc.ClaimNext(context.Background(), employeeID, entities.QueueEPGU)
	assert.ErrorIs(t, err, apperrors.ErrQueueEmpty)

	clk.Advance(25 * time.Hour)
	again, err := svc.ClaimNext(context.Background(), employeeID, entities.QueueEPGU)
	require.NoError(t, err)
	assert.Equal(t, appID, again.ID)

	// Очередь личного кабинета отсрочку не фильтрует: отложенное
	// заявление выдаётся сразу.
	lkID := seedQueuedApplication(t, testPool, "Петров Пётр", entities.QueueLK, clk.Current.Add(-time.Hour))
	_, err = svc.ClaimNext(context.Background(), employeeID, entities.QueueLK)
	require.NoError(t, err)
	_, err = svc.Postpone(context.Background(), employeeID, lkID)
	require.NoError(t, err)

	lkAgain, err := svc.ClaimNext(context.Background(), employeeID, entities.QueueLK)
	require.NoError(t, err)
	assert.Equal(t, lkID, lkAgain.ID)
}

func TestQueueService_Integration_CleanupBoundary(t *testing.T) {
	cleanupTables(t, testPool)

	clk := fixedClock()
	svc := newQueueServiceWith(t, clk)
	employeeID := seedEmployeeWithGroups(t, testPool, "op1", false, entities.GroupLK)
	seedQueuedApplication(t, testPool, "Иванов Иван", entities.QueueLK, clk.Current.Add(-time.Hour))

	_, err := svc.ClaimNext(context.Background(), employeeID, entities.QueueLK)
	require.NoError(t, err)

	// Ровно на границе таймаута заявление ещё не считается зависшим:
	// предикат строгий (taken_at < now - таймаут).
	clk.Advance(testQueueConfig().ClaimTimeout)
	reclaimed, err := svc.CleanupExpired(context.Background())
	require.NoError(t, err)
	assert.Len(t, reclaimed, 0)

	clk.Advance(time.Second)
	reclaimed, err = svc.CleanupExpired(context.Background())
	require.NoError(t, err)
	assert.Len(t, reclaimed, 1)
}

func TestQueueService_Integration_UpdateQueueType(t *testing.T) {
	cleanupTables(t, testPool)

	clk := fixedClock()
	svc := newQueueServiceWith(t, clk)
	employeeID := seedEmployeeWithGroups(t, testPool, "op1", false, entities.GroupLK, entities.GroupEPGU)
	appID := seedQueuedApplication(t, testPool, "Иванов Иван", entities.QueueLK, clk.Current.Add(-time.Hour))

	_, err := svc.ClaimNext(context.Background(), employeeID, entities.QueueLK)
	require.NoError(t, err)

	err = svc.UpdateQueueType(context.Background(), employeeID, appID, dto.RetypeQueueDTO{QueueType: "нет_такой"})
	assert.ErrorIs(t, err, apperrors.ErrUnknownQueueType)

	err = svc.UpdateQueueType(context.Background(), employeeID, appID, dto.RetypeQueueDTO{
		QueueType: entities.QueueEPGU,
		Reason:    null.StringFrom("подано через госуслуги"),
	})
	require.NoError(t, err)

	moved, err := svc.ClaimNext(context.Background(), employeeID, entities.QueueEPGU)
	require.NoError(t, err)
	assert.Equal(t, appID, moved.ID)
}
