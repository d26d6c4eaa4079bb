package dto

import (
	"github.com/aarondl/null/v8"
)

type CreateApplicationDTO struct {
	Fio         string `json:"fio" validate:"required"`
	SubmittedAt string `json:"submitted_at" validate:"required"`
	QueueType   string `json:"queue_type" validate:"required"`
	IsPriority  bool   `json:"is_priority"`
}

type DecisionDTO struct {
	Status string      `json:"status" validate:"required,oneof=accepted rejected problem"`
	Reason null.String `json:"reason"`
}

type RetypeQueueDTO struct {
	QueueType string      `json:"queue_type" validate:"required"`
	Reason    null.String `json:"reason"`
}

type ResolveProblemDTO struct {
	Resolution  string      `json:"resolution" validate:"required"`
	Comment     null.String `json:"comment"`
	Responsible null.String `json:"responsible"`
}

type SearchApplicationsDTO struct {
	Fio       string `json:"fio" query:"fio" validate:"required"`
	QueueType string `json:"queue_type" query:"queue_type"`
}

type ApplicationDTO struct {
	ID             int64       `json:"id"`
	Fio            string      `json:"fio"`
	SubmittedAt    string      `json:"submitted_at"`
	IsPriority     bool        `json:"is_priority"`
	Status         string      `json:"status"`
	StatusReason   null.String `json:"status_reason"`
	QueueType      string      `json:"queue_type"`
	ProcessedBy    null.Int64  `json:"processed_by_id"`
	TakenAt        null.String `json:"taken_at"`
	PostponedUntil null.String `json:"postponed_until"`
	ProcessedAt    null.String `json:"processed_at"`

	ProblemStatus      null.String `json:"problem_status"`
	ProblemComment     null.String `json:"problem_comment"`
	ProblemResponsible null.String `json:"problem_responsible"`
}

type QueueStatisticsDTO struct {
	QueueType  string `json:"queue_type"`
	Total      int64  `json:"total"`
	Queued     int64  `json:"queued"`
	InProgress int64  `json:"in_progress"`
	Accepted   int64  `json:"accepted"`
	Rejected   int64  `json:"rejected"`
	Problem    int64  `json:"problem"`
}

type ImportResultDTO struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Total   int `json:"total"`
}

type ReclaimedApplicationDTO struct {
	ApplicationID int64      `json:"application_id"`
	Fio           string     `json:"fio"`
	QueueType     string     `json:"queue_type"`
	FormerHolder  null.Int64 `json:"former_holder_id"`
}
