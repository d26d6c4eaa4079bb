package entities

import (
	"strings"
	"time"
)

type ApplicationStatus string

const (
	StatusQueued     ApplicationStatus = "queued"
	StatusInProgress ApplicationStatus = "in_progress"
	StatusAccepted   ApplicationStatus = "accepted"
	StatusRejected   ApplicationStatus = "rejected"
	StatusProblem    ApplicationStatus = "problem"
)

type EPGUAction string

const (
	EPGUActionAccepted  EPGUAction = "accepted"
	EPGUActionHasScans  EPGUAction = "has_scans"
	EPGUActionNoScans   EPGUAction = "no_scans"
	EPGUActionOnlyScans EPGUAction = "only_scans"
	EPGUActionError     EPGUAction = "error"
)

type ProblemStatus string

const (
	ProblemStatusNew        ProblemStatus = "new"
	ProblemStatusInProgress ProblemStatus = "in_progress"
	ProblemStatusSolved     ProblemStatus = "solved"
)

// Типы очередей. Для каждой базовой очереди есть параллельная
// проблемная: "<база>_problem".
const (
	QueueLK          = "lk"
	QueueEPGU        = "epgu"
	QueueEPGUMail    = "epgu_mail"
	QueueLKProblem   = "lk_problem"
	QueueEPGUProblem = "epgu_problem"

	ProblemSuffix = "_problem"
)

var knownQueueTypes = map[string]bool{
	QueueLK:          true,
	QueueEPGU:        true,
	QueueEPGUMail:    true,
	QueueLKProblem:   true,
	QueueEPGUProblem: true,
}

func IsKnownQueueType(queueType string) bool {
	return knownQueueTypes[queueType]
}

func IsProblemQueue(queueType string) bool {
	return strings.HasSuffix(queueType, ProblemSuffix)
}

// ProblemQueueFor добавляет проблемный суффикс. Повторное добавление — no-op.
func ProblemQueueFor(queueType string) string {
	if IsProblemQueue(queueType) {
		return queueType
	}
	return queueType + ProblemSuffix
}

// BaseQueueFor снимает проблемный суффикс, возвращая исходную очередь.
func BaseQueueFor(queueType string) string {
	return strings.TrimSuffix(queueType, ProblemSuffix)
}

type Application struct {
	ID             int64             `json:"id"`
	Fio            string            `json:"fio"`
	SubmittedAt    time.Time         `json:"submitted_at"`
	IsPriority     bool              `json:"is_priority"`
	Status         ApplicationStatus `json:"status"`
	StatusReason   *string           `json:"status_reason,omitempty"`
	QueueType      string            `json:"queue_type"`
	ProcessedByID  *int64            `json:"processed_by_id,omitempty"`
	TakenAt        *time.Time        `json:"taken_at,omitempty"`
	PostponedUntil *time.Time        `json:"postponed_until,omitempty"`
	ProcessedAt    *time.Time        `json:"processed_at,omitempty"`

	// Поля портала госуслуг
	ProblemStatus      *ProblemStatus `json:"problem_status,omitempty"`
	ProblemComment     *string        `json:"problem_comment,omitempty"`
	ProblemResponsible *string        `json:"problem_responsible,omitempty"`
	EPGUAction         *EPGUAction    `json:"epgu_action,omitempty"`
	EPGUProcessorID    *int64         `json:"epgu_processor_id,omitempty"`
	NeedsScans         bool           `json:"needs_scans"`
	NeedsSignature     bool           `json:"needs_signature"`
	ScansConfirmed     bool           `json:"scans_confirmed"`
	SignatureConfirmed bool           `json:"signature_confirmed"`
}
