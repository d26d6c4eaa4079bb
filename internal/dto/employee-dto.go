package dto

type CreateEmployeeDTO struct {
	TgID     string `json:"tg_id" validate:"required"`
	Fio      string `json:"fio" validate:"required"`
	IsAdmin  bool   `json:"is_admin"`
	Password string `json:"password"`
}

type EmployeeGroupDTO struct {
	Group string `json:"group" validate:"required,oneof=lk epgu mail problem escalation"`
}

type EmployeeDTO struct {
	ID      int64    `json:"id"`
	TgID    string   `json:"tg_id"`
	Fio     string   `json:"fio"`
	IsAdmin bool     `json:"is_admin"`
	Groups  []string `json:"groups"`
}
