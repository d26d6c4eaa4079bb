package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkonline/internal/entities"
	"pkonline/internal/repositories"
	"pkonline/pkg/clock"
	apperrors "pkonline/pkg/errors"
)

func newWorkTimeServiceWith(t *testing.T, clk *clock.Fixed) WorkTimeServiceInterface {
	t.Helper()
	workTimeRepo := repositories.NewWorkTimeRepository(testPool)
	return NewWorkTimeService(workTimeRepo, testPool, clk, testLogger())
}

func TestProjectTotals(t *testing.T) {
	start := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		day      entities.WorkDay
		breaks   []entities.WorkBreak
		now      time.Time
		wantWork int64
		wantRest int64
	}{
		{
			name:     "активный день без перерывов",
			day:      entities.WorkDay{StartTime: start, Status: entities.WorkDayActive},
			now:      start.Add(2 * time.Hour),
			wantWork: 7200,
			wantRest: 0,
		},
		{
			name: "закрытый перерыв вычитается",
			day:  entities.WorkDay{StartTime: start, Status: entities.WorkDayActive},
			breaks: []entities.WorkBreak{
				{StartTime: start.Add(time.Hour), Duration: 1800, EndTime: ptrTime(start.Add(90 * time.Minute))},
			},
			now:      start.Add(3 * time.Hour),
			wantWork: 9000,
			wantRest: 1800,
		},
		{
			name: "открытый перерыв растёт вместе со временем",
			day:  entities.WorkDay{StartTime: start, Status: entities.WorkDayPaused},
			breaks: []entities.WorkBreak{
				{StartTime: start.Add(time.Hour)},
			},
			now:      start.Add(2 * time.Hour),
			wantWork: 3600,
			wantRest: 3600,
		},
		{
			name:     "завершённый день отдаёт записанные итоги",
			day:      entities.WorkDay{StartTime: start, Status: entities.WorkDayFinished, TotalWorkTime: 100, TotalBreakTime: 50},
			now:      start.Add(10 * time.Hour),
			wantWork: 100,
			wantRest: 50,
		},
		{
			name: "рабочее время не уходит в минус",
			day:  entities.WorkDay{StartTime: start, Status: entities.WorkDayPaused},
			breaks: []entities.WorkBreak{
				{StartTime: start},
			},
			now:      start.Add(time.Hour),
			wantWork: 0,
			wantRest: 3600,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			work, rest := projectTotals(&tt.day, tt.breaks, tt.now)
			assert.Equal(t, tt.wantWork, work)
			assert.Equal(t, tt.wantRest, rest)
		})
	}
}

func ptrTime(t time.Time) *time.Time { return &t }

func TestWorkTimeService_Integration_DayLifecycle(t *testing.T) {
	require.NotNil(t, testPool)
	cleanupTables(t, testPool)

	clk := fixedClock()
	svc := newWorkTimeServiceWith(t, clk)
	employeeID := seedEmployeeWithGroups(t, testPool, "op1", false)

	// До начала дня текущего дня нет.
	_, err := svc.CurrentDay(context.Background(), employeeID)
	assert.ErrorIs(t, err, apperrors.ErrNoActiveDay)

	day, err := svc.StartDay(context.Background(), employeeID)
	require.NoError(t, err)
	assert.Equal(t, "active", day.Status)
	assert.Equal(t, int64(0), day.TotalWorkTime)

	// Повторный старт того же дня идемпотентен.
	again, err := svc.StartDay(context.Background(), employeeID)
	require.NoError(t, err)
	assert.Equal(t, day.StartTime, again.StartTime)

	// Два часа работы, затем перерыв на полчаса.
	clk.Advance(2 * time.Hour)
	day, err = svc.PauseDay(context.Background(), employeeID)
	require.NoError(t, err)
	assert.Equal(t, "paused", day.Status)
	assert.Equal(t, int64(7200), day.TotalWorkTime)

	// Пауза фиксирует накопленное рабочее время в записи дня.
	var storedWork int64
	err = testPool.QueryRow(context.Background(),
		`SELECT total_work_time FROM work_days WHERE employee_id = $1`, employeeID).Scan(&storedWork)
	require.NoError(t, err)
	assert.Equal(t, int64(7200), storedWork)

	// Повторная пауза — отказ.
	_, err = svc.PauseDay(context.Background(), employeeID)
	assert.ErrorIs(t, err, apperrors.ErrBreakAlreadyOpen)

	clk.Advance(30 * time.Minute)
	day, err = svc.ResumeDay(context.Background(), employeeID)
	require.NoError(t, err)
	assert.Equal(t, "active", day.Status)
	assert.Equal(t, int64(1800), day.TotalBreakTime)
	assert.Equal(t, int64(7200), day.TotalWorkTime)

	_, err = svc.ResumeDay(context.Background(), employeeID)
	assert.ErrorIs(t, err, apperrors.ErrNoOpenBreak)

	// Ещё полтора часа работы и конец дня.
	clk.Advance(90 * time.Minute)
	day, err = svc.FinishDay(context.Background(), employeeID)
	require.NoError(t, err)
	assert.Equal(t, "finished", day.Status)
	assert.Equal(t, int64(1800), day.TotalBreakTime)
	assert.Equal(t, int64(3*3600+1800), day.TotalWorkTime)
	assert.True(t, day.EndTime.Valid)
	assert.Equal(t, "03:30", day.TotalWorkTimeHHMM)
	assert.Equal(t, "00:30", day.TotalBreakTimeHHMM)

	// После завершения день нельзя ни продолжить, ни перезапустить.
	_, err = svc.FinishDay(context.Background(), employeeID)
	assert.ErrorIs(t, err, apperrors.ErrDayAlreadyFinished)
	_, err = svc.StartDay(context.Background(), employeeID)
	assert.ErrorIs(t, err, apperrors.ErrDayAlreadyFinished)
	_, err = svc.PauseDay(context.Background(), employeeID)
	assert.ErrorIs(t, err, apperrors.ErrDayAlreadyFinished)
}

func TestWorkTimeService_Integration_FinishClosesOpenBreak(t *testing.T) {
	cleanupTables(t, testPool)

	clk := fixedClock()
	svc := newWorkTimeServiceWith(t, clk)
	employeeID := seedEmployeeWithGroups(t, testPool, "op1", false)

	_, err := svc.StartDay(context.Background(), employeeID)
	require.NoError(t, err)

	clk.Advance(time.Hour)
	_, err = svc.PauseDay(context.Background(), employeeID)
	require.NoError(t, err)

	// День завершается прямо из паузы: перерыв закрывается автоматически.
	clk.Advance(20 * time.Minute)
	day, err := svc.FinishDay(context.Background(), employeeID)
	require.NoError(t, err)
	assert.Equal(t, "finished", day.Status)
	assert.Equal(t, int64(1200), day.TotalBreakTime)
	assert.Equal(t, int64(3600), day.TotalWorkTime)
	require.Len(t, day.Breaks, 1)
	assert.True(t, day.Breaks[0].EndTime.Valid)
}

func TestWorkTimeService_Integration_FleetReport(t *testing.T) {
	cleanupTables(t, testPool)

	clk := fixedClock()
	svc := newWorkTimeServiceWith(t, clk)
	workingID := seedEmployeeWithGroups(t, testPool, "op1", false)
	idleID := seedEmployeeWithGroups(t, testPool, "op2", false)

	_, err := svc.StartDay(context.Background(), workingID)
	require.NoError(t, err)

	// Два часа работы и полчаса открытого перерыва: отчёт по открытому
	// дню показывает живые итоги, а не записанные нули.
	clk.Advance(2 * time.Hour)
	_, err = svc.PauseDay(context.Background(), workingID)
	require.NoError(t, err)
	clk.Advance(30 * time.Minute)

	date := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	report, err := svc.FleetReport(context.Background(), date)
	require.NoError(t, err)
	require.Len(t, report, 2)

	for _, row := range report {
		switch row.EmployeeID {
		case workingID:
			assert.Equal(t, "paused", row.Status.String)
			assert.True(t, row.StartTime.Valid)
			assert.Equal(t, int64(7200), row.TotalWorkTime)
			assert.Equal(t, int64(1800), row.TotalBreakTime)
		case idleID:
			assert.False(t, row.Status.Valid)
			assert.Equal(t, int64(0), row.TotalWorkTime)
		}
	}
}
