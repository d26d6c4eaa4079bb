package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pkonline/internal/entities"
	apperrors "pkonline/pkg/errors"
)

type EmployeeRepositoryInterface interface {
	FindByID(ctx context.Context, id int64) (*entities.Employee, error)
	FindByTgID(ctx context.Context, tgID string) (*entities.Employee, error)
	Create(ctx context.Context, employee *entities.Employee) (int64, error)
	Delete(ctx context.Context, id int64) error
	AddGroup(ctx context.Context, employeeID int64, group string) error
	RemoveGroup(ctx context.Context, employeeID int64, group string) error
	ListWithGroups(ctx context.Context) ([]entities.Employee, error)
}

type EmployeeRepository struct {
	storage *pgxpool.Pool
}

func NewEmployeeRepository(storage *pgxpool.Pool) EmployeeRepositoryInterface {
	return &EmployeeRepository{storage: storage}
}

func (r *EmployeeRepository) groups(ctx context.Context, employeeID int64) ([]string, error) {
	rows, err := r.storage.Query(ctx, `
		SELECT g.name
		FROM groups g
		JOIN employee_groups eg ON eg.group_id = g.id
		WHERE eg.employee_id = $1
		ORDER BY g.name`, employeeID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения групп сотрудника: %w", err)
	}
	defer rows.Close()

	groups := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("ошибка сканирования группы: %w", err)
		}
		groups = append(groups, name)
	}
	return groups, rows.Err()
}

func (r *EmployeeRepository) FindByID(ctx context.Context, id int64) (*entities.Employee, error) {
	var e entities.Employee
	err := r.storage.QueryRow(ctx,
		`SELECT id, tg_id, fio, is_admin, password_hash FROM employees WHERE id = $1`, id,
	).Scan(&e.ID, &e.TgID, &e.Fio, &e.IsAdmin, &e.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка поиска сотрудника: %w", err)
	}

	if e.Groups, err = r.groups(ctx, e.ID); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EmployeeRepository) FindByTgID(ctx context.Context, tgID string) (*entities.Employee, error) {
	var e entities.Employee
	err := r.storage.QueryRow(ctx,
		`SELECT id, tg_id, fio, is_admin, password_hash FROM employees WHERE tg_id = $1`, tgID,
	).Scan(&e.ID, &e.TgID, &e.Fio, &e.IsAdmin, &e.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка поиска сотрудника по tg_id: %w", err)
	}

	if e.Groups, err = r.groups(ctx, e.ID); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EmployeeRepository) Create(ctx context.Context, employee *entities.Employee) (int64, error) {
	var id int64
	err := r.storage.QueryRow(ctx, `
		INSERT INTO employees (tg_id, fio, is_admin, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		employee.TgID, employee.Fio, employee.IsAdmin, employee.PasswordHash,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ошибка создания сотрудника: %w", err)
	}
	return id, nil
}

func (r *EmployeeRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.storage.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления сотрудника: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// AddGroup создаёт группу при первом упоминании и привязывает её к
// сотруднику. Повторная привязка — no-op.
func (r *EmployeeRepository) AddGroup(ctx context.Context, employeeID int64, group string) error {
	return WithTx(ctx, r.storage, func(tx pgx.Tx) error {
		var groupID int64
		err := tx.QueryRow(ctx, `
			INSERT INTO groups (name) VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id`, group,
		).Scan(&groupID)
		if err != nil {
			return fmt.Errorf("ошибка создания группы: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO employee_groups (employee_id, group_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, employeeID, groupID)
		if err != nil {
			return fmt.Errorf("ошибка привязки группы к сотруднику: %w", err)
		}
		return nil
	})
}

func (r *EmployeeRepository) RemoveGroup(ctx context.Context, employeeID int64, group string) error {
	tag, err := r.storage.Exec(ctx, `
		DELETE FROM employee_groups
		WHERE employee_id = $1
		  AND group_id = (SELECT id FROM groups WHERE name = $2)`,
		employeeID, group)
	if err != nil {
		return fmt.Errorf("ошибка отвязки группы: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *EmployeeRepository) ListWithGroups(ctx context.Context) ([]entities.Employee, error) {
	rows, err := r.storage.Query(ctx, `
		SELECT e.id, e.tg_id, e.fio, e.is_admin, COALESCE(array_agg(g.name) FILTER (WHERE g.name IS NOT NULL), '{}')
		FROM employees e
		LEFT JOIN employee_groups eg ON eg.employee_id = e.id
		LEFT JOIN groups g ON g.id = eg.group_id
		GROUP BY e.id
		ORDER BY e.id`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка сотрудников: %w", err)
	}
	defer rows.Close()

	employees := make([]entities.Employee, 0)
	for rows.Next() {
		var e entities.Employee
		if err := rows.Scan(&e.ID, &e.TgID, &e.Fio, &e.IsAdmin, &e.Groups); err != nil {
			return nil, fmt.Errorf("ошибка сканирования сотрудника: %w", err)
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}
