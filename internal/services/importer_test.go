package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"pkonline/internal/entities"
	"pkonline/internal/repositories"
)

func TestFindHeader(t *testing.T) {
	t.Run("шапка не на первой строке", func(t *testing.T) {
		rows := [][]string{
			{"Отчёт приёмной кампании"},
			{},
			{"№", "Физическое лицо", "Дата первой подачи"},
			{"1", "Иванов Иван", "01.07.2026 10:30:00"},
		}
		headerRow, fioIdx, dateIdx := findHeader(rows)
		assert.Equal(t, 2, headerRow)
		assert.Equal(t, 1, fioIdx)
		assert.Equal(t, 2, dateIdx)
	})

	t.Run("колонки в произвольном порядке", func(t *testing.T) {
		rows := [][]string{
			{"Дата первой подачи", "Статус", "Физическое лицо"},
		}
		headerRow, fioIdx, dateIdx := findHeader(rows)
		assert.Equal(t, 0, headerRow)
		assert.Equal(t, 2, fioIdx)
		assert.Equal(t, 0, dateIdx)
	})

	t.Run("обе колонки должны быть в одной строке", func(t *testing.T) {
		rows := [][]string{
			{"Физическое лицо"},
			{"Дата первой подачи"},
		}
		headerRow, _, _ := findHeader(rows)
		assert.Equal(t, -1, headerRow)
	})

	t.Run("шапки нет", func(t *testing.T) {
		rows := [][]string{
			{"просто", "данные"},
		}
		headerRow, _, _ := findHeader(rows)
		assert.Equal(t, -1, headerRow)
	})
}

func TestSafeGet(t *testing.T) {
	row := []string{" Иванов Иван ", "01.07.2026 10:30:00"}
	assert.Equal(t, "Иванов Иван", safeGet(row, 0))
	assert.Equal(t, "", safeGet(row, 5))
	assert.Equal(t, "", safeGet(row, -1))
}

func TestImportService_Integration_RoundTrip(t *testing.T) {
	require.NotNil(t, testPool)
	cleanupTables(t, testPool)

	f := excelize.NewFile()
	sheet := "Заявления"
	f.SetSheetName("Sheet1", sheet)
	header := []interface{}{"№", "Физическое лицо", "Дата первой подачи"}
	first := []interface{}{1, "Иванов Иван", "01.07.2026 10:30:00"}
	second := []interface{}{2, "Петров Пётр", "01.07.2026 11:00:00"}
	f.SetSheetRow(sheet, "A1", &header)
	f.SetSheetRow(sheet, "A2", &first)
	f.SetSheetRow(sheet, "A3", &second)
	path := filepath.Join(t.TempDir(), "import.xlsx")
	require.NoError(t, f.SaveAs(path))

	svc := NewImportService(repositories.NewApplicationRepository(testPool), fixedClock(), testLogger())

	res, err := svc.ImportApplications(context.Background(), path, entities.QueueEPGU)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Added)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, 2, res.Total)

	// Повторный импорт той же выгрузки дубликатов не плодит.
	res, err = svc.ImportApplications(context.Background(), path, entities.QueueEPGU)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Added)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 2, res.Total)
}
