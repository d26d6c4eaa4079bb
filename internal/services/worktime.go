package services

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"pkonline/internal/dto"
	"pkonline/internal/entities"
	"pkonline/internal/repositories"
	"pkonline/pkg/clock"
	apperrors "pkonline/pkg/errors"
	"pkonline/pkg/utils"
)

type WorkTimeServiceInterface interface {
	StartDay(ctx context.Context, employeeID int64) (*dto.WorkDayReportDTO, error)
	PauseDay(ctx context.Context, employeeID int64) (*dto.WorkDayReportDTO, error)
	ResumeDay(ctx context.Context, employeeID int64) (*dto.WorkDayReportDTO, error)
	FinishDay(ctx context.Context, employeeID int64) (*dto.WorkDayReportDTO, error)
	CurrentDay(ctx context.Context, employeeID int64) (*dto.WorkDayReportDTO, error)
	FleetReport(ctx context.Context, date time.Time) ([]dto.FleetReportItemDTO, error)
	History(ctx context.Context, employeeID int64, from, to time.Time) ([]dto.WorkDayReportDTO, error)
}

type WorkTimeService struct {
	workTimeRepo repositories.WorkTimeRepositoryInterface
	storage      *pgxpool.Pool
	clock        clock.Clock
	logger       *zap.Logger
}

func NewWorkTimeService(
	workTimeRepo repositories.WorkTimeRepositoryInterface,
	storage *pgxpool.Pool,
	clk clock.Clock,
	logger *zap.Logger,
) WorkTimeServiceInterface {
	return &WorkTimeService{
		workTimeRepo: workTimeRepo,
		storage:      storage,
		clock:        clk,
		logger:       logger,
	}
}

func (s *WorkTimeService) workDate(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// projectTotals считает живую картину дня: для завершённого дня — то,
// что записано, для открытого — от начала дня до "сейчас" за вычетом
// перерывов. Отрицательные значения обрезаются до нуля.
func projectTotals(day *entities.WorkDay, breaks []entities.WorkBreak, now time.Time) (workSec, breakSec int64) {
	if day.Status == entities.WorkDayFinished {
		return day.TotalWorkTime, day.TotalBreakTime
	}

	for _, b := range breaks {
		if b.EndTime != nil {
			breakSec += b.Duration
		} else {
			open := int64(now.Sub(b.StartTime).Seconds())
			if open > 0 {
				breakSec += open
			}
		}
	}

	workSec = int64(now.Sub(day.StartTime).Seconds()) - breakSec
	if workSec < 0 {
		workSec = 0
	}
	return workSec, breakSec
}

func (s *WorkTimeService) report(ctx context.Context, day *entities.WorkDay) (*dto.WorkDayReportDTO, error) {
	breaks, err := s.workTimeRepo.BreaksForDay(ctx, day.ID)
	if err != nil {
		return nil, err
	}

	workSec, breakSec := projectTotals(day, breaks, s.clock.Now())

	breakDTOs := make([]dto.WorkBreakDTO, 0, len(breaks))
	for _, b := range breaks {
		breakDTOs = append(breakDTOs, dto.WorkBreakDTO{
			StartTime: b.StartTime.Format(time.RFC3339),
			EndTime:   nullTimeString(b.EndTime),
			Duration:  b.Duration,
		})
	}

	return &dto.WorkDayReportDTO{
		Date:                  day.Date.Format("2006-01-02"),
		StartTime:             day.StartTime.Format(time.RFC3339),
		EndTime:               nullTimeString(day.EndTime),
		Status:                string(day.Status),
		TotalWorkTime:         workSec,
		TotalBreakTime:        breakSec,
		TotalWorkTimeHHMM:     utils.FormatSeconds(workSec),
		TotalBreakTimeHHMM:    utils.FormatSeconds(breakSec),
		ApplicationsProcessed: day.ApplicationsProcessed,
		Breaks:                breakDTOs,
	}, nil
}

// StartDay открывает рабочий день. Повторный запуск в тот же день
// возвращает уже открытый день; перезапуск завершённого дня запрещён.
func (s *WorkTimeService) StartDay(ctx context.Context, employeeID int64) (*dto.WorkDayReportDTO, error) {
	now := s.clock.Now()

	existing, err := s.workTimeRepo.FindByDate(ctx, employeeID, s.workDate(now))
	if err == nil {
		if existing.Status == entities.WorkDayFinished {
			return nil, apperrors.ErrDayAlreadyFinished
		}
		return s.report(ctx, existing)
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	day := &entities.WorkDay{
		EmployeeID: employeeID,
		Date:       s.workDate(now),
		StartTime:  now,
		Status:     entities.WorkDayActive,
	}
	id, err := s.workTimeRepo.Create(ctx, day)
	if err != nil {
		s.logger.Error("ошибка открытия рабочего дня", zap.Int64("employee_id", employeeID), zap.Error(err))
		return nil, err
	}
	day.ID = id

	return s.report(ctx, day)
}

// PauseDay открывает перерыв и переводит день в "на паузе".
func (s *WorkTimeService) PauseDay(ctx context.Context, employeeID int64) (*dto.WorkDayReportDTO, error) {
	now := s.clock.Now()

	err := repositories.WithTx(ctx, s.storage, func(tx pgx.Tx) error {
		day, err := s.workTimeRepo.FindByDateForUpdateInTx(ctx, tx, employeeID, s.workDate(now))
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.ErrNoActiveDay
			}
			return err
		}
		switch day.Status {
		case entities.WorkDayFinished:
			return apperrors.ErrDayAlreadyFinished
		case entities.WorkDayPaused:
			return apperrors.ErrBreakAlreadyOpen
		}

		if _, err := s.workTimeRepo.OpenBreak(ctx, tx, day.ID, now); err != nil {
			return err
		}

		// На паузе фиксируем накопленное рабочее время: от начала дня
		// за вычетом уже закрытых перерывов.
		worked := int64(now.Sub(day.StartTime).Seconds()) - day.TotalBreakTime
		if worked < 0 {
			worked = 0
		}
		return s.workTimeRepo.UpdateStatusInTx(ctx, tx, day.ID, entities.WorkDayPaused, worked, day.TotalBreakTime)
	})
	if err != nil {
		return nil, err
	}

	return s.CurrentDay(ctx, employeeID)
}

// ResumeDay закрывает открытый перерыв и возвращает день в работу.
func (s *WorkTimeService) ResumeDay(ctx context.Context, employeeID int64) (*dto.WorkDayReportDTO, error) {
	now := s.clock.Now()

	err := repositories.WithTx(ctx, s.storage, func(tx pgx.Tx) error {
		day, err := s.workTimeRepo.FindByDateForUpdateInTx(ctx, tx, employeeID, s.workDate(now))
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.ErrNoActiveDay
			}
			return err
		}
		if day.Status == entities.WorkDayFinished {
			return apperrors.ErrDayAlreadyFinished
		}
		if day.Status != entities.WorkDayPaused {
			return apperrors.ErrNoOpenBreak
		}

		open, err := s.workTimeRepo.ActiveBreakInTx(ctx, tx, day.ID)
		if err != nil {
			return err
		}

		duration := int64(now.Sub(open.StartTime).Seconds())
		if duration < 0 {
			duration = 0
		}
		if err := s.workTimeRepo.CloseBreakInTx(ctx, tx, open.ID, now, duration); err != nil {
			return err
		}
		return s.workTimeRepo.UpdateStatusInTx(ctx, tx, day.ID, entities.WorkDayActive, day.TotalWorkTime, day.TotalBreakTime+duration)
	})
	if err != nil {
		return nil, err
	}

	return s.CurrentDay(ctx, employeeID)
}

// FinishDay фиксирует итоги: открытый перерыв закрывается, рабочее время
// считается как время от начала дня за вычетом перерывов.
func (s *WorkTimeService) FinishDay(ctx context.Context, employeeID int64) (*dto.WorkDayReportDTO, error) {
	now := s.clock.Now()

	err := repositories.WithTx(ctx, s.storage, func(tx pgx.Tx) error {
		day, err := s.workTimeRepo.FindByDateForUpdateInTx(ctx, tx, employeeID, s.workDate(now))
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.ErrNoActiveDay
			}
			return err
		}
		if day.Status == entities.WorkDayFinished {
			return apperrors.ErrDayAlreadyFinished
		}

		totalBreak := day.TotalBreakTime
		if day.Status == entities.WorkDayPaused {
			open, err := s.workTimeRepo.ActiveBreakInTx(ctx, tx, day.ID)
			if err != nil {
				return err
			}
			duration := int64(now.Sub(open.StartTime).Seconds())
			if duration < 0 {
				duration = 0
			}
			if err := s.workTimeRepo.CloseBreakInTx(ctx, tx, open.ID, now, duration); err != nil {
				return err
			}
			totalBreak += duration
		}

		totalWork := int64(now.Sub(day.StartTime).Seconds()) - totalBreak
		if totalWork < 0 {
			totalWork = 0
		}
		return s.workTimeRepo.FinishInTx(ctx, tx, day.ID, now, totalWork, totalBreak)
	})
	if err != nil {
		return nil, err
	}

	return s.CurrentDay(ctx, employeeID)
}

func (s *WorkTimeService) CurrentDay(ctx context.Context, employeeID int64) (*dto.WorkDayReportDTO, error) {
	day, err := s.workTimeRepo.FindByDate(ctx, employeeID, s.workDate(s.clock.Now()))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNoActiveDay
		}
		return nil, err
	}
	return s.report(ctx, day)
}

// FleetReport — сводка по всем сотрудникам за день. Для незавершённых
// дней итоги проецируются на "сейчас", как в личном отчёте.
func (s *WorkTimeService) FleetReport(ctx context.Context, date time.Time) ([]dto.FleetReportItemDTO, error) {
	rows, err := s.workTimeRepo.FleetReport(ctx, date)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	report := make([]dto.FleetReportItemDTO, 0, len(rows))
	for _, row := range rows {
		workSec, breakSec := row.TotalWorkTime, row.TotalBreakTime
		if row.Status != nil && *row.Status != string(entities.WorkDayFinished) && row.StartTime != nil {
			breakSec = row.ClosedBreakSec
			if row.OpenBreakStart != nil {
				if open := int64(now.Sub(*row.OpenBreakStart).Seconds()); open > 0 {
					breakSec += open
				}
			}
			workSec = int64(now.Sub(*row.StartTime).Seconds()) - breakSec
			if workSec < 0 {
				workSec = 0
			}
		}

		report = append(report, dto.FleetReportItemDTO{
			EmployeeID:            row.EmployeeID,
			EmployeeFio:           row.EmployeeFio,
			Status:                nullString(row.Status),
			StartTime:             nullTimeString(row.StartTime),
			EndTime:               nullTimeString(row.EndTime),
			TotalWorkTime:         workSec,
			TotalBreakTime:        breakSec,
			ApplicationsProcessed: row.ApplicationsProcessed,
		})
	}
	return report, nil
}

func (s *WorkTimeService) History(ctx context.Context, employeeID int64, from, to time.Time) ([]dto.WorkDayReportDTO, error) {
	days, err := s.workTimeRepo.History(ctx, employeeID, from, to)
	if err != nil {
		return nil, err
	}

	reports := make([]dto.WorkDayReportDTO, 0, len(days))
	for i := range days {
		r, err := s.report(ctx, &days[i])
		if err != nil {
			return nil, err
		}
		reports = append(reports, *r)
	}
	return reports, nil
}
