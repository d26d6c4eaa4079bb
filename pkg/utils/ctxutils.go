package utils

import (
	"context"

	apperrors "pkonline/pkg/errors"
)

type contextKey string

const (
	EmployeeIDKey contextKey = "employeeID"
	IsAdminKey    contextKey = "isAdmin"
)

func GetEmployeeIDFromCtx(ctx context.Context) (int64, error) {
	id, ok := ctx.Value(EmployeeIDKey).(int64)
	if !ok || id == 0 {
		return 0, apperrors.ErrEmployeeIDNotFoundInContext
	}
	return id, nil
}

func IsAdminFromCtx(ctx context.Context) bool {
	isAdmin, ok := ctx.Value(IsAdminKey).(bool)
	return ok && isAdmin
}
