package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"pkonline/internal/dto"
	"pkonline/internal/services"
	"pkonline/pkg/clock"
	apperrors "pkonline/pkg/errors"
	"pkonline/pkg/utils"
)

type WorkTimeController struct {
	workTimeService services.WorkTimeServiceInterface
	clock           clock.Clock
	logger          *zap.Logger
}

func NewWorkTimeController(workTimeService services.WorkTimeServiceInterface, clk clock.Clock, logger *zap.Logger) *WorkTimeController {
	return &WorkTimeController{workTimeService: workTimeService, clock: clk, logger: logger}
}

func (c *WorkTimeController) StartDay(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	employeeID, err := utils.GetEmployeeIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	day, err := c.workTimeService.StartDay(reqCtx, employeeID)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, day, "Рабочий день начат", http.StatusOK)
}

func (c *WorkTimeController) PauseDay(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	employeeID, err := utils.GetEmployeeIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	day, err := c.workTimeService.PauseDay(reqCtx, employeeID)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, day, "Перерыв начат", http.StatusOK)
}

func (c *WorkTimeController) ResumeDay(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	employeeID, err := utils.GetEmployeeIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	day, err := c.workTimeService.ResumeDay(reqCtx, employeeID)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, day, "Перерыв завершён", http.StatusOK)
}

func (c *WorkTimeController) FinishDay(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	employeeID, err := utils.GetEmployeeIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	day, err := c.workTimeService.FinishDay(reqCtx, employeeID)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, day, "Рабочий день завершён", http.StatusOK)
}

func (c *WorkTimeController) CurrentDay(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	employeeID, err := utils.GetEmployeeIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	day, err := c.workTimeService.CurrentDay(reqCtx, employeeID)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, day, "Текущий рабочий день получен", http.StatusOK)
}

func (c *WorkTimeController) History(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	employeeID, err := utils.GetEmployeeIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	now := c.clock.Now()
	from := now.AddDate(0, 0, -30)
	to := now
	if v := ctx.QueryParam("from"); v != "" {
		if t, err := time.ParseInLocation("2006-01-02", v, c.clock.Location()); err == nil {
			from = t
		}
	}
	if v := ctx.QueryParam("to"); v != "" {
		if t, err := time.ParseInLocation("2006-01-02", v, c.clock.Location()); err == nil {
			to = t
		}
	}

	days, err := c.workTimeService.History(reqCtx, employeeID, from, to)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, days, "История рабочих дней получена", http.StatusOK)
}

// FleetReport — сводка по всем сотрудникам за день. Админский отчёт;
// format=xlsx выгружает его файлом.
func (c *WorkTimeController) FleetReport(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	date := c.clock.Now()
	if v := ctx.QueryParam("date"); v != "" {
		parsed, err := time.ParseInLocation("2006-01-02", v, c.clock.Location())
		if err != nil {
			return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат даты, ожидается ГГГГ-ММ-ДД", err))
		}
		date = parsed
	}
	date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, c.clock.Location())

	report, err := c.workTimeService.FleetReport(reqCtx, date)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	if strings.ToLower(ctx.QueryParam("format")) == "xlsx" {
		return c.respondWithXLSX(ctx, date, report)
	}
	return utils.SuccessResponse(ctx, report, "Сводный отчёт сформирован", http.StatusOK)
}

var fleetReportHeaders = []string{
	"Сотрудник", "Статус дня", "Начало", "Конец",
	"Рабочее время", "Перерывы", "Обработано заявлений",
}

func fleetRowToSlice(item dto.FleetReportItemDTO) []interface{} {
	formatTime := func(v string) string {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t.Format("15:04")
		}
		return v
	}

	start, end := "", ""
	if item.StartTime.Valid {
		start = formatTime(item.StartTime.String)
	}
	if item.EndTime.Valid {
		end = formatTime(item.EndTime.String)
	}

	return []interface{}{
		item.EmployeeFio, item.Status.String, start, end,
		utils.FormatSeconds(item.TotalWorkTime), utils.FormatSeconds(item.TotalBreakTime),
		item.ApplicationsProcessed,
	}
}

func (c *WorkTimeController) respondWithXLSX(ctx echo.Context, date time.Time, report []dto.FleetReportItemDTO) error {
	f := excelize.NewFile()
	sheet := "Рабочее время"
	f.SetSheetName("Sheet1", sheet)
	f.SetSheetRow(sheet, "A1", &fleetReportHeaders)
	style, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	f.SetCellStyle(sheet, "A1", "G1", style)

	for i, item := range report {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := fleetRowToSlice(item)
		f.SetSheetRow(sheet, cell, &row)
	}
	f.SetColWidth(sheet, "A", "A", 35)
	f.SetColWidth(sheet, "B", "G", 18)

	fileName := fmt.Sprintf("worktime_%s.xlsx", date.Format("2006-01-02"))
	ctx.Response().Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Response().Header().Set("Content-Disposition", "attachment; filename="+fileName)
	ctx.Response().WriteHeader(http.StatusOK)
	return f.Write(ctx.Response().Writer)
}
