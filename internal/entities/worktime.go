package entities

import "time"

type WorkDayStatus string

// Единственное каноническое множество статусов рабочего дня.
const (
	WorkDayActive   WorkDayStatus = "active"
	WorkDayPaused   WorkDayStatus = "paused"
	WorkDayFinished WorkDayStatus = "finished"
)

type WorkDay struct {
	ID                    int64         `json:"id"`
	EmployeeID            int64         `json:"employee_id"`
	Date                  time.Time     `json:"date"`
	StartTime             time.Time     `json:"start_time"`
	EndTime               *time.Time    `json:"end_time,omitempty"`
	TotalWorkTime         int64         `json:"total_work_time"`
	TotalBreakTime        int64         `json:"total_break_time"`
	Status                WorkDayStatus `json:"status"`
	ApplicationsProcessed int64         `json:"applications_processed"`
}

type WorkBreak struct {
	ID        int64      `json:"id"`
	WorkDayID int64      `json:"work_day_id"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Duration  int64      `json:"duration"`
}
