package entities

// Группы-капабилити сотрудников.
const (
	GroupLK         = "lk"
	GroupEPGU       = "epgu"
	GroupMail       = "mail"
	GroupProblem    = "problem"
	GroupEscalation = "escalation"
)

type Employee struct {
	ID           int64    `json:"id"`
	TgID         string   `json:"tg_id"`
	Fio          string   `json:"fio"`
	IsAdmin      bool     `json:"is_admin"`
	PasswordHash *string  `json:"-"`
	Groups       []string `json:"groups"`
}

// HasGroup — проверка капабилити. Администраторы проходят любую проверку.
func (e *Employee) HasGroup(group string) bool {
	if e.IsAdmin {
		return true
	}
	for _, g := range e.Groups {
		if g == group {
			return true
		}
	}
	return false
}
