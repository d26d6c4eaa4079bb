package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"pkonline/internal/dto"
	"pkonline/internal/entities"
	"pkonline/internal/repositories"
	"pkonline/pkg/clock"
	apperrors "pkonline/pkg/errors"
)

// Формат дат в выгрузках приёмной кампании.
const importTimeLayout = "02.01.2006 15:04:05"

type ImportServiceInterface interface {
	ImportApplications(ctx context.Context, filePath string, queueType string) (*dto.ImportResultDTO, error)
}

type ImportService struct {
	appRepo repositories.ApplicationRepositoryInterface
	clock   clock.Clock
	logger  *zap.Logger
}

func NewImportService(appRepo repositories.ApplicationRepositoryInterface, clk clock.Clock, logger *zap.Logger) ImportServiceInterface {
	return &ImportService{appRepo: appRepo, clock: clk, logger: logger}
}

func safeGet(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// findHeader ищет строку шапки: колонки "Физическое лицо" и "Дата первой
// подачи" могут стоять не на первой строке и не в фиксированных позициях.
func findHeader(rows [][]string) (headerRow, fioIdx, dateIdx int) {
	fioIdx, dateIdx = -1, -1
	for rIdx, row := range rows {
		for cIdx, colName := range row {
			c := strings.ToLower(strings.TrimSpace(colName))
			if strings.Contains(c, "физическое лицо") {
				fioIdx = cIdx
			}
			if strings.Contains(c, "дата первой подачи") {
				dateIdx = cIdx
			}
		}
		if fioIdx != -1 && dateIdx != -1 {
			return rIdx, fioIdx, dateIdx
		}
		fioIdx, dateIdx = -1, -1
	}
	return -1, -1, -1
}

// ImportApplications загружает выгрузку заявлений в очередь. Дубликаты не
// плодятся: для ЕПГУ совпадение по ФИО и дате подачи пропускается, для
// личного кабинета совпадение по ФИО обновляет дату подачи.
func (s *ImportService) ImportApplications(ctx context.Context, filePath string, queueType string) (*dto.ImportResultDTO, error) {
	if !entities.IsKnownQueueType(queueType) {
		return nil, apperrors.ErrUnknownQueueType
	}

	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия файла: %w", err)
	}
	defer f.Close()

	var rows [][]string
	headerRow, fioIdx, dateIdx := -1, -1, -1
	for _, sheet := range f.GetSheetList() {
		sheetRows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		if h, fi, di := findHeader(sheetRows); h != -1 {
			rows, headerRow, fioIdx, dateIdx = sheetRows, h, fi, di
			break
		}
	}
	if headerRow == -1 {
		return nil, fmt.Errorf("не найдена шапка таблицы: нужны колонки 'Физическое лицо' и 'Дата первой подачи'")
	}

	result := &dto.ImportResultDTO{}
	for i := headerRow + 1; i < len(rows); i++ {
		fio := safeGet(rows[i], fioIdx)
		dateStr := safeGet(rows[i], dateIdx)
		if fio == "" {
			continue
		}

		submittedAt, err := time.ParseInLocation(importTimeLayout, dateStr, s.clock.Location())
		if err != nil {
			s.logger.Warn("строка пропущена: нераспознанная дата подачи",
				zap.Int("row", i+1), zap.String("fio", fio), zap.String("date", dateStr))
			result.Skipped++
			continue
		}

		switch queueType {
		case entities.QueueEPGU, entities.QueueEPGUMail:
			exists, err := s.appRepo.ExistsByFioAndDate(ctx, fio, submittedAt, queueType)
			if err != nil {
				return nil, err
			}
			if exists {
				result.Skipped++
				continue
			}
		default:
			existing, err := s.appRepo.FindByFioExact(ctx, fio, queueType)
			if err == nil {
				if !existing.SubmittedAt.Equal(submittedAt) {
					if err := s.appRepo.UpdateSubmittedAt(ctx, existing.ID, submittedAt); err != nil {
						return nil, err
					}
					result.Updated++
				} else {
					result.Skipped++
				}
				continue
			}
			if !errors.Is(err, apperrors.ErrNotFound) {
				return nil, err
			}
		}

		app := &entities.Application{
			Fio:         fio,
			SubmittedAt: submittedAt,
			QueueType:   queueType,
			Status:      entities.StatusQueued,
		}
		if _, err := s.appRepo.Create(ctx, app); err != nil {
			return nil, err
		}
		result.Added++
	}
	result.Total = result.Added + result.Updated + result.Skipped

	s.logger.Info("импорт заявлений завершён",
		zap.String("queue_type", queueType),
		zap.Int("added", result.Added),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}
