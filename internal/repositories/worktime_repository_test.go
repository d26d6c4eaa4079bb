package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkonline/internal/entities"
	apperrors "pkonline/pkg/errors"
)

func TestWorkTimeRepository_Integration_DayLifecycle(t *testing.T) {
	require.NotNil(t, testPool, "testPool не инициализирован")
	cleanupTables(t, testPool)
	employeeID := seedEmployee(t, testPool, "op1")
	repo := NewWorkTimeRepository(testPool)

	loc := time.UTC
	start := time.Date(2026, 7, 1, 9, 0, 0, 0, loc)
	workDate := time.Date(2026, 7, 1, 0, 0, 0, 0, loc)

	dayID, err := repo.Create(context.Background(), &entities.WorkDay{
		EmployeeID: employeeID,
		Date:       workDate,
		StartTime:  start,
		Status:     entities.WorkDayActive,
	})
	require.NoError(t, err)
	require.True(t, dayID > 0)

	// Второй день той же датой запрещён на уровне БД.
	_, err = repo.Create(context.Background(), &entities.WorkDay{
		EmployeeID: employeeID,
		Date:       workDate,
		StartTime:  start,
		Status:     entities.WorkDayActive,
	})
	require.Error(t, err)

	day, err := repo.FindByDate(context.Background(), employeeID, workDate)
	require.NoError(t, err)
	assert.Equal(t, dayID, day.ID)
	assert.Equal(t, entities.WorkDayActive, day.Status)

	_, err = repo.FindByDate(context.Background(), employeeID, workDate.AddDate(0, 0, 1))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	// Перерыв: открыть, найти, закрыть.
	err = WithTx(context.Background(), testPool, func(tx pgx.Tx) error {
		breakStart := start.Add(2 * time.Hour)
		breakID, err := repo.OpenBreak(context.Background(), tx, dayID, breakStart)
		require.NoError(t, err)

		open, err := repo.ActiveBreakInTx(context.Background(), tx, dayID)
		require.NoError(t, err)
		assert.Equal(t, breakID, open.ID)

		require.NoError(t, repo.CloseBreakInTx(context.Background(), tx, breakID, breakStart.Add(30*time.Minute), 1800))
		return repo.UpdateStatusInTx(context.Background(), tx, dayID, entities.WorkDayActive, 0, 1800)
	})
	require.NoError(t, err)

	breaks, err := repo.BreaksForDay(context.Background(), dayID)
	require.NoError(t, err)
	require.Len(t, breaks, 1)
	assert.Equal(t, int64(1800), breaks[0].Duration)
	require.NotNil(t, breaks[0].EndTime)

	// Завершение дня.
	end := start.Add(8 * time.Hour)
	err = WithTx(context.Background(), testPool, func(tx pgx.Tx) error {
		return repo.FinishInTx(context.Background(), tx, dayID, end, 27000, 1800)
	})
	require.NoError(t, err)

	day, err = repo.FindByDate(context.Background(), employeeID, workDate)
	require.NoError(t, err)
	assert.Equal(t, entities.WorkDayFinished, day.Status)
	assert.Equal(t, int64(27000), day.TotalWorkTime)
	assert.Equal(t, int64(1800), day.TotalBreakTime)
	require.NotNil(t, day.EndTime)
}

func TestWorkTimeRepository_Integration_OnlyOneOpenBreak(t *testing.T) {
	cleanupTables(t, testPool)
	employeeID := seedEmployee(t, testPool, "op1")
	repo := NewWorkTimeRepository(testPool)

	start := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	dayID, err := repo.Create(context.Background(), &entities.WorkDay{
		EmployeeID: employeeID,
		Date:       time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		StartTime:  start,
		Status:     entities.WorkDayActive,
	})
	require.NoError(t, err)

	err = WithTx(context.Background(), testPool, func(tx pgx.Tx) error {
		_, err := repo.OpenBreak(context.Background(), tx, dayID, start.Add(time.Hour))
		return err
	})
	require.NoError(t, err)

	// Второй открытый перерыв отбивает частичный уникальный индекс.
	err = WithTx(context.Background(), testPool, func(tx pgx.Tx) error {
		_, err := repo.OpenBreak(context.Background(), tx, dayID, start.Add(2*time.Hour))
		return err
	})
	require.Error(t, err)
}

func TestWorkTimeRepository_Integration_IncrementProcessed(t *testing.T) {
	cleanupTables(t, testPool)
	employeeID := seedEmployee(t, testPool, "op1")
	repo := NewWorkTimeRepository(testPool)

	now := time.Date(2026, 7, 1, 11, 0, 0, 0, time.UTC)
	workDate := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	// День ещё не открыт: инкремент создаёт его неявно со счётчиком 1.
	err := WithTx(context.Background(), testPool, func(tx pgx.Tx) error {
		return repo.IncrementProcessedInTx(context.Background(), tx, employeeID, workDate, now)
	})
	require.NoError(t, err)

	day, err := repo.FindByDate(context.Background(), employeeID, workDate)
	require.NoError(t, err)
	assert.Equal(t, int64(1), day.ApplicationsProcessed)

	err = WithTx(context.Background(), testPool, func(tx pgx.Tx) error {
		return repo.IncrementProcessedInTx(context.Background(), tx, employeeID, workDate, now)
	})
	require.NoError(t, err)

	day, err = repo.FindByDate(context.Background(), employeeID, workDate)
	require.NoError(t, err)
	assert.Equal(t, int64(2), day.ApplicationsProcessed)
}

func TestWorkTimeRepository_Integration_FleetReport(t *testing.T) {
	cleanupTables(t, testPool)
	withDayID := seedEmployee(t, testPool, "op1")
	withoutDayID := seedEmployee(t, testPool, "op2")
	repo := NewWorkTimeRepository(testPool)

	workDate := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	dayID, err := repo.Create(context.Background(), &entities.WorkDay{
		EmployeeID: withDayID,
		Date:       workDate,
		StartTime:  workDate.Add(9 * time.Hour),
		Status:     entities.WorkDayActive,
	})
	require.NoError(t, err)

	// Закрытый и открытый перерывы попадают в отчёт агрегатами.
	_, err = testPool.Exec(context.Background(),
		`INSERT INTO work_breaks (work_day_id, start_time, end_time, duration) VALUES ($1, $2, $3, 600)`,
		dayID, workDate.Add(10*time.Hour), workDate.Add(10*time.Hour+10*time.Minute))
	require.NoError(t, err)
	openStart := workDate.Add(12 * time.Hour)
	_, err = testPool.Exec(context.Background(),
		`INSERT INTO work_breaks (work_day_id, start_time) VALUES ($1, $2)`, dayID, openStart)
	require.NoError(t, err)

	report, err := repo.FleetReport(context.Background(), workDate)
	require.NoError(t, err)
	require.Len(t, report, 2, "В отчёт попадают и сотрудники без открытого дня")

	byID := map[int64]FleetReportRow{}
	for _, row := range report {
		byID[row.EmployeeID] = row
	}
	require.NotNil(t, byID[withDayID].Status)
	assert.Equal(t, "active", *byID[withDayID].Status)
	assert.Equal(t, int64(600), byID[withDayID].ClosedBreakSec)
	require.NotNil(t, byID[withDayID].OpenBreakStart)
	assert.True(t, byID[withDayID].OpenBreakStart.Equal(openStart))
	assert.Nil(t, byID[withoutDayID].Status)
	assert.Equal(t, int64(0), byID[withoutDayID].ClosedBreakSec)
}
