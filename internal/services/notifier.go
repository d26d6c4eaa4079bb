package services

import (
	"context"

	"go.uber.org/zap"

	"pkonline/internal/dto"
	"pkonline/internal/entities"
)

// Notifier — порт уведомлений. Движок очередей сообщает о событиях,
// не зная, кто и как их доставляет.
type Notifier interface {
	ApplicationsReclaimed(ctx context.Context, reclaimed []dto.ReclaimedApplicationDTO)
	ApplicationEscalated(ctx context.Context, app *entities.Application, employeeID int64)
	ProblemRegistered(ctx context.Context, app *entities.Application)
}

// LogNotifier пишет события в журнал. Используется, пока не подключён
// внешний канал доставки.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) Notifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) ApplicationsReclaimed(ctx context.Context, reclaimed []dto.ReclaimedApplicationDTO) {
	for _, r := range reclaimed {
		n.logger.Warn("заявление возвращено в очередь по таймауту",
			zap.Int64("application_id", r.ApplicationID),
			zap.String("queue_type", r.QueueType),
			zap.Int64("former_holder_id", r.FormerHolder.Int64),
		)
	}
}

func (n *LogNotifier) ApplicationEscalated(ctx context.Context, app *entities.Application, employeeID int64) {
	n.logger.Info("заявление эскалировано",
		zap.Int64("application_id", app.ID),
		zap.String("queue_type", app.QueueType),
		zap.Int64("employee_id", employeeID),
	)
}

func (n *LogNotifier) ProblemRegistered(ctx context.Context, app *entities.Application) {
	n.logger.Info("заявление переведено в проблемную очередь",
		zap.Int64("application_id", app.ID),
		zap.String("queue_type", app.QueueType),
	)
}
