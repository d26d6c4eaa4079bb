package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"pkonline/internal/dto"
	"pkonline/internal/services"
	apperrors "pkonline/pkg/errors"
	"pkonline/pkg/utils"
)

type QueueController struct {
	queueService     services.QueueServiceInterface
	dashboardService services.DashboardServiceInterface
	logger           *zap.Logger
}

func NewQueueController(
	queueService services.QueueServiceInterface,
	dashboardService services.DashboardServiceInterface,
	logger *zap.Logger,
) *QueueController {
	return &QueueController{
		queueService:     queueService,
		dashboardService: dashboardService,
		logger:           logger,
	}
}

func (c *QueueController) applicationID(ctx echo.Context) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return 0, apperrors.NewHttpError(http.StatusBadRequest, "Неверный ID заявления", err)
	}
	return id, nil
}

func (c *QueueController) Create(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	var payload dto.CreateApplicationDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверное тело запроса", err))
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	created, err := c.queueService.Enqueue(reqCtx, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	c.dashboardService.InvalidateStatistics(reqCtx)
	return utils.SuccessResponse(ctx, created, "Заявление добавлено в очередь", http.StatusCreated)
}

func (c *QueueController) ClaimNext(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	employeeID, err := utils.GetEmployeeIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	app, err := c.queueService.ClaimNext(reqCtx, employeeID, ctx.Param("queue_type"))
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	return utils.SuccessResponse(ctx, app, "Заявление выдано в работу", http.StatusOK)
}

func (c *QueueController) Decide(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	employeeID, err := utils.GetEmployeeIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	id, err := c.applicationID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	var payload dto.DecisionDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверное тело запроса", err))
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	app, err := c.queueService.Decide(reqCtx, employeeID, id, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	c.dashboardService.InvalidateStatistics(reqCtx)
	return utils.SuccessResponse(ctx, app, "Решение по заявлению зафиксировано", http.StatusOK)
}

func (c *QueueController) ReturnToQueue(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	employeeID, err := utils.GetEmployeeIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	id, err := c.applicationID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	if err := c.queueService.ReturnToQueue(reqCtx, employeeID, id); err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, struct{}{}, "Заявление возвращено в очередь", http.StatusOK)
}

func (c *QueueController) Postpone(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	employeeID, err := utils.GetEmployeeIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	id, err := c.applicationID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	app, err := c.queueService.Postpone(reqCtx, employeeID, id)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, app, "Заявление отложено", http.StatusOK)
}

func (c *QueueController) Escalate(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	employeeID, err := utils.GetEmployeeIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	id, err := c.applicationID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	if err := c.queueService.Escalate(reqCtx, employeeID, id); err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, struct{}{}, "Заявление эскалировано", http.StatusOK)
}

func (c *QueueController) UpdateQueueType(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	employeeID, err := utils.GetEmployeeIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	id, err := c.applicationID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	var payload dto.RetypeQueueDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверное тело запроса", err))
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	if err := c.queueService.UpdateQueueType(reqCtx, employeeID, id, payload); err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	c.dashboardService.InvalidateStatistics(reqCtx)
	return utils.SuccessResponse(ctx, struct{}{}, "Очередь заявления изменена", http.StatusOK)
}

func (c *QueueController) ResolveProblem(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	employeeID, err := utils.GetEmployeeIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	id, err := c.applicationID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	var payload dto.ResolveProblemDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверное тело запроса", err))
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	app, err := c.queueService.ResolveProblem(reqCtx, employeeID, id, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	c.dashboardService.InvalidateStatistics(reqCtx)
	return utils.SuccessResponse(ctx, app, "Решение по проблемному делу зафиксировано", http.StatusOK)
}

func (c *QueueController) Search(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	var payload dto.SearchApplicationsDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверные параметры поиска", err))
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	apps, err := c.queueService.Search(reqCtx, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, apps, "Поиск выполнен", http.StatusOK)
}

func (c *QueueController) ProblemApplications(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	apps, err := c.queueService.ProblemApplications(reqCtx, ctx.Param("queue_type"))
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, apps, "Список проблемных дел получен", http.StatusOK)
}

func (c *QueueController) Find(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	id, err := c.applicationID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	app, err := c.queueService.ApplicationByID(reqCtx, id)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, app, "Заявление получено", http.StatusOK)
}

// OverdueMail — просроченные почтовые дела ЕПГУ; format=xlsx выгружает
// список файлом для обзвона.
func (c *QueueController) OverdueMail(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	apps, err := c.queueService.OverdueMail(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	if strings.ToLower(ctx.QueryParam("format")) == "xlsx" {
		return c.respondWithXLSX(ctx, apps)
	}
	return utils.SuccessResponse(ctx, apps, "Список просроченной почты получен", http.StatusOK)
}

var overdueMailHeaders = []string{"№", "Физическое лицо", "Дата первой подачи", "Отложено до", "Статус"}

func (c *QueueController) respondWithXLSX(ctx echo.Context, apps []dto.ApplicationDTO) error {
	formatTime := func(v string) string {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t.Format("02.01.2006 15:04")
		}
		return v
	}

	f := excelize.NewFile()
	sheet := "Просроченная почта"
	f.SetSheetName("Sheet1", sheet)
	f.SetSheetRow(sheet, "A1", &overdueMailHeaders)
	style, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	f.SetCellStyle(sheet, "A1", "E1", style)

	for i, app := range apps {
		postponed := ""
		if app.PostponedUntil.Valid {
			postponed = formatTime(app.PostponedUntil.String)
		}
		row := []interface{}{i + 1, app.Fio, formatTime(app.SubmittedAt), postponed, app.Status}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		f.SetSheetRow(sheet, cell, &row)
	}
	f.SetColWidth(sheet, "B", "B", 35)
	f.SetColWidth(sheet, "C", "E", 20)

	fileName := fmt.Sprintf("overdue_mail_%s.xlsx", time.Now().Format("2006-01-02"))
	ctx.Response().Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Response().Header().Set("Content-Disposition", "attachment; filename="+fileName)
	ctx.Response().WriteHeader(http.StatusOK)
	return f.Write(ctx.Response().Writer)
}

func (c *QueueController) CleanupExpired(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	reclaimed, err := c.queueService.CleanupExpired(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, reclaimed, "Зависшие заявления возвращены в очередь", http.StatusOK)
}
