package utils

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "pkonline/pkg/errors"
)

type HttpResponse struct {
	Status  bool        `json:"status"`
	Body    interface{} `json:"body,omitempty"`
	Message string      `json:"message"`
}

func SuccessResponse(ctx echo.Context, body interface{}, message string, code int) error {
	return ctx.JSON(code, &HttpResponse{
		Status:  true,
		Body:    body,
		Message: message,
	})
}

// ErrorList сопоставляет доменные ошибки HTTP-кодам. Отказы по предусловиям —
// это 409, а не 500: вызывающая сторона штатно ветвится по ним.
var ErrorList = map[error]int{
	apperrors.ErrNotFound:            http.StatusNotFound,
	apperrors.ErrBadRequest:          http.StatusBadRequest,
	apperrors.ErrForbidden:           http.StatusForbidden,
	apperrors.ErrInvalidCredentials:  http.StatusUnauthorized,
	apperrors.ErrEmptyAuthHeader:     http.StatusUnauthorized,
	apperrors.ErrInvalidAuthHeader:   http.StatusUnauthorized,
	apperrors.ErrInvalidToken:        http.StatusUnauthorized,
	apperrors.ErrTokenExpired:        http.StatusUnauthorized,
	apperrors.ErrQueueEmpty:          http.StatusConflict,
	apperrors.ErrAlreadyPriority:     http.StatusConflict,
	apperrors.ErrNotQueued:           http.StatusConflict,
	apperrors.ErrNotProblemQueue:     http.StatusConflict,
	apperrors.ErrUnknownQueueType:    http.StatusBadRequest,
	apperrors.ErrUnknownResolution:   http.StatusBadRequest,
	apperrors.ErrDayAlreadyFinished:  http.StatusConflict,
	apperrors.ErrNoActiveDay:         http.StatusConflict,
	apperrors.ErrBreakAlreadyOpen:    http.StatusConflict,
	apperrors.ErrNoOpenBreak:         http.StatusConflict,
}

func ErrorResponse(ctx echo.Context, err error) error {
	message := err.Error()
	code := http.StatusInternalServerError

	var httpErr *apperrors.HttpError
	if errors.As(err, &httpErr) {
		code = httpErr.Code
		message = httpErr.Message
	} else {
		for known, statusCode := range ErrorList {
			if errors.Is(err, known) {
				message = known.Error()
				code = statusCode
				break
			}
		}
	}

	return ctx.JSON(code, &HttpResponse{
		Status:  false,
		Body:    struct{}{},
		Message: message,
	})
}
