package controllers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"pkonline/internal/dto"
	"pkonline/internal/services"
	apperrors "pkonline/pkg/errors"
	"pkonline/pkg/utils"
)

type EmployeeController struct {
	employeeService services.EmployeeServiceInterface
	logger          *zap.Logger
}

func NewEmployeeController(employeeService services.EmployeeServiceInterface, logger *zap.Logger) *EmployeeController {
	return &EmployeeController{employeeService: employeeService, logger: logger}
}

func (c *EmployeeController) employeeID(ctx echo.Context) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return 0, apperrors.NewHttpError(http.StatusBadRequest, "Неверный ID сотрудника", err)
	}
	return id, nil
}

func (c *EmployeeController) Create(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	var payload dto.CreateEmployeeDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверное тело запроса", err))
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	created, err := c.employeeService.Create(reqCtx, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, created, "Сотрудник создан", http.StatusCreated)
}

func (c *EmployeeController) Delete(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	id, err := c.employeeID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	if err := c.employeeService.Delete(reqCtx, id); err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, struct{}{}, "Сотрудник удалён", http.StatusOK)
}

func (c *EmployeeController) Find(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	id, err := c.employeeID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	employee, err := c.employeeService.Find(reqCtx, id)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, employee, "Сотрудник найден", http.StatusOK)
}

func (c *EmployeeController) List(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	employees, err := c.employeeService.List(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, employees, "Список сотрудников получен", http.StatusOK)
}

func (c *EmployeeController) AddGroup(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	id, err := c.employeeID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	var payload dto.EmployeeGroupDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверное тело запроса", err))
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	if err := c.employeeService.AddGroup(reqCtx, id, payload); err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, struct{}{}, "Группа добавлена сотруднику", http.StatusOK)
}

func (c *EmployeeController) RemoveGroup(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	id, err := c.employeeID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	var payload dto.EmployeeGroupDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверное тело запроса", err))
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	if err := c.employeeService.RemoveGroup(reqCtx, id, payload); err != nil {
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, struct{}{}, "Группа снята с сотрудника", http.StatusOK)
}
