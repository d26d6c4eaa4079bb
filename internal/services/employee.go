package services

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"pkonline/internal/dto"
	"pkonline/internal/entities"
	"pkonline/internal/repositories"
)

type EmployeeServiceInterface interface {
	Create(ctx context.Context, payload dto.CreateEmployeeDTO) (*dto.EmployeeDTO, error)
	Delete(ctx context.Context, id int64) error
	Find(ctx context.Context, id int64) (*dto.EmployeeDTO, error)
	List(ctx context.Context) ([]dto.EmployeeDTO, error)
	AddGroup(ctx context.Context, id int64, payload dto.EmployeeGroupDTO) error
	RemoveGroup(ctx context.Context, id int64, payload dto.EmployeeGroupDTO) error
}

type EmployeeService struct {
	employeeRepo repositories.EmployeeRepositoryInterface
	logger       *zap.Logger
}

func NewEmployeeService(employeeRepo repositories.EmployeeRepositoryInterface, logger *zap.Logger) EmployeeServiceInterface {
	return &EmployeeService{employeeRepo: employeeRepo, logger: logger}
}

func toEmployeeDTO(e *entities.Employee) dto.EmployeeDTO {
	groups := e.Groups
	if groups == nil {
		groups = []string{}
	}
	return dto.EmployeeDTO{
		ID:      e.ID,
		TgID:    e.TgID,
		Fio:     e.Fio,
		IsAdmin: e.IsAdmin,
		Groups:  groups,
	}
}

func (s *EmployeeService) Create(ctx context.Context, payload dto.CreateEmployeeDTO) (*dto.EmployeeDTO, error) {
	employee := &entities.Employee{
		TgID:    payload.TgID,
		Fio:     payload.Fio,
		IsAdmin: payload.IsAdmin,
	}

	if payload.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		hashStr := string(hash)
		employee.PasswordHash = &hashStr
	}

	id, err := s.employeeRepo.Create(ctx, employee)
	if err != nil {
		s.logger.Error("ошибка создания сотрудника", zap.String("tg_id", payload.TgID), zap.Error(err))
		return nil, err
	}

	created, err := s.employeeRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	result := toEmployeeDTO(created)
	return &result, nil
}

func (s *EmployeeService) Delete(ctx context.Context, id int64) error {
	return s.employeeRepo.Delete(ctx, id)
}

func (s *EmployeeService) Find(ctx context.Context, id int64) (*dto.EmployeeDTO, error) {
	employee, err := s.employeeRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	result := toEmployeeDTO(employee)
	return &result, nil
}

func (s *EmployeeService) List(ctx context.Context) ([]dto.EmployeeDTO, error) {
	employees, err := s.employeeRepo.ListWithGroups(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]dto.EmployeeDTO, 0, len(employees))
	for i := range employees {
		out = append(out, toEmployeeDTO(&employees[i]))
	}
	return out, nil
}

func (s *EmployeeService) AddGroup(ctx context.Context, id int64, payload dto.EmployeeGroupDTO) error {
	if _, err := s.employeeRepo.FindByID(ctx, id); err != nil {
		return err
	}
	return s.employeeRepo.AddGroup(ctx, id, payload.Group)
}

func (s *EmployeeService) RemoveGroup(ctx context.Context, id int64, payload dto.EmployeeGroupDTO) error {
	return s.employeeRepo.RemoveGroup(ctx, id, payload.Group)
}
