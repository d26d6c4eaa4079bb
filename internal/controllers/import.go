package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"pkonline/internal/services"
	apperrors "pkonline/pkg/errors"
	"pkonline/pkg/filestorage"
	"pkonline/pkg/utils"
)

type ImportController struct {
	importService    services.ImportServiceInterface
	dashboardService services.DashboardServiceInterface
	storage          filestorage.FileStorage
	logger           *zap.Logger
}

func NewImportController(
	importService services.ImportServiceInterface,
	dashboardService services.DashboardServiceInterface,
	storage filestorage.FileStorage,
	logger *zap.Logger,
) *ImportController {
	return &ImportController{
		importService:    importService,
		dashboardService: dashboardService,
		storage:          storage,
		logger:           logger,
	}
}

// ImportApplications принимает xlsx-выгрузку и загружает заявления в
// очередь из path-параметра.
func (c *ImportController) ImportApplications(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	queueType := ctx.Param("queue_type")

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Файл 'file' обязателен", err))
	}

	src, err := fileHeader.Open()
	if err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusInternalServerError, "Не удалось открыть загруженный файл", err))
	}
	defer src.Close()

	savedPath, err := c.storage.Save(src, fileHeader.Filename)
	if err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusInternalServerError, "Не удалось сохранить файл", err))
	}
	defer func() {
		if err := c.storage.Remove(savedPath); err != nil {
			c.logger.Warn("не удалось удалить временный файл импорта", zap.String("path", savedPath), zap.Error(err))
		}
	}()

	result, err := c.importService.ImportApplications(reqCtx, savedPath, queueType)
	if err != nil {
		return utils.ErrorResponse(ctx, err)
	}

	c.dashboardService.InvalidateStatistics(reqCtx)
	return utils.SuccessResponse(ctx, result, "Импорт заявлений выполнен", http.StatusOK)
}
