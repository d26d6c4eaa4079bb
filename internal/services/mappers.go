package services

import (
	"time"

	"github.com/aarondl/null/v8"

	"pkonline/internal/dto"
	"pkonline/internal/entities"
	"pkonline/internal/repositories"
)

func nullTimeString(t *time.Time) null.String {
	if t == nil {
		return null.String{}
	}
	return null.StringFrom(t.Format(time.RFC3339))
}

func nullString(s *string) null.String {
	if s == nil {
		return null.String{}
	}
	return null.StringFrom(*s)
}

func nullInt64(v *int64) null.Int64 {
	if v == nil {
		return null.Int64{}
	}
	return null.Int64From(*v)
}

func toApplicationDTO(app *entities.Application) dto.ApplicationDTO {
	var problemStatus null.String
	if app.ProblemStatus != nil {
		problemStatus = null.StringFrom(string(*app.ProblemStatus))
	}

	return dto.ApplicationDTO{
		ID:             app.ID,
		Fio:            app.Fio,
		SubmittedAt:    app.SubmittedAt.Format(time.RFC3339),
		IsPriority:     app.IsPriority,
		Status:         string(app.Status),
		StatusReason:   nullString(app.StatusReason),
		QueueType:      app.QueueType,
		ProcessedBy:    nullInt64(app.ProcessedByID),
		TakenAt:        nullTimeString(app.TakenAt),
		PostponedUntil: nullTimeString(app.PostponedUntil),
		ProcessedAt:    nullTimeString(app.ProcessedAt),

		ProblemStatus:      problemStatus,
		ProblemComment:     nullString(app.ProblemComment),
		ProblemResponsible: nullString(app.ProblemResponsible),
	}
}

func toApplicationDTOs(apps []entities.Application) []dto.ApplicationDTO {
	out := make([]dto.ApplicationDTO, 0, len(apps))
	for i := range apps {
		out = append(out, toApplicationDTO(&apps[i]))
	}
	return out
}

func toReclaimedDTOs(rows []repositories.ReclaimedRow) []dto.ReclaimedApplicationDTO {
	out := make([]dto.ReclaimedApplicationDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, dto.ReclaimedApplicationDTO{
			ApplicationID: row.ID,
			Fio:           row.Fio,
			QueueType:     row.QueueType,
			FormerHolder:  nullInt64(row.FormerHolderID),
		})
	}
	return out
}
