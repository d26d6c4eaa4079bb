package dto

import "github.com/aarondl/null/v8"

type WorkBreakDTO struct {
	StartTime string      `json:"start_time"`
	EndTime   null.String `json:"end_time"`
	Duration  int64       `json:"duration"`
}

type WorkDayReportDTO struct {
	Date                  string         `json:"date"`
	StartTime             string         `json:"start_time"`
	EndTime               null.String    `json:"end_time"`
	Status                string         `json:"status"`
	TotalWorkTime         int64          `json:"total_work_time"`
	TotalBreakTime        int64          `json:"total_break_time"`
	TotalWorkTimeHHMM     string         `json:"total_work_time_hhmm"`
	TotalBreakTimeHHMM    string         `json:"total_break_time_hhmm"`
	ApplicationsProcessed int64          `json:"applications_processed"`
	Breaks                []WorkBreakDTO `json:"breaks"`
}

type FleetReportItemDTO struct {
	EmployeeID            int64       `json:"employee_id"`
	EmployeeFio           string      `json:"employee_fio"`
	Status                null.String `json:"status"`
	StartTime             null.String `json:"start_time"`
	EndTime               null.String `json:"end_time"`
	TotalWorkTime         int64       `json:"total_work_time"`
	TotalBreakTime        int64       `json:"total_break_time"`
	ApplicationsProcessed int64       `json:"applications_processed"`
}
