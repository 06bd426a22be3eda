package application

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UseCase инкапсулирует работу с откликами.
type UseCase interface {
	Create(ctx context.Context, a Application) (Application, error)
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (Application, error)
	List(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]Application, error)
	Update(ctx context.Context, a Application) (Application, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	LatestVersion(ctx context.Context, ownerID, id uuid.UUID) (CvVersion, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) UseCase { return &service{repo: repo} }

func (s *service) Create(ctx context.Context, a Application) (Application, error) {
	a.Company = strings.TrimSpace(a.Company)
	a.RoleTitle = strings.TrimSpace(a.RoleTitle)
	if a.Company == "" {
		return Application{}, ErrValidation("company is required")
	}
	if a.RoleTitle == "" {
		return Application{}, ErrValidation("roleTitle is required")
	}
	a.ID = uuid.New()
	a.Status = StatusDraft
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	if err := s.repo.Create(ctx, a); err != nil {
		return Application{}, err
	}
	return a, nil
}

func (s *service) GetByID(ctx context.Context, ownerID, id uuid.UUID) (Application, error) {
	return s.repo.GetByIDForOwner(ctx, ownerID, id)
}

func (s *service) List(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]Application, error) {
	return s.repo.ListByOwner(ctx, ownerID, limit, offset)
}

func (s *service) Update(ctx context.Context, a Application) (Application, error) {
	current, err := s.repo.GetByIDForOwner(ctx, a.OwnerID, a.ID)
	if err != nil {
		return Application{}, err
	}
	if v := strings.TrimSpace(a.Company); v != "" {
		current.Company = v
	}
	if v := strings.TrimSpace(a.RoleTitle); v != "" {
		current.RoleTitle = v
	}
	if a.JobDescription != "" {
		current.JobDescription = a.JobDescription
	}
	if a.JobURL != "" {
		current.JobURL = a.JobURL
	}
	if a.Notes != "" {
		current.Notes = a.Notes
	}
	// tailoring выставляется только процессом подбора, руками нельзя
	if a.Status != "" && a.Status != StatusTailoring {
		switch a.Status {
		case StatusDraft, StatusReview, StatusComplete:
			current.Status = a.Status
		default:
			return Application{}, ErrValidation("unknown status: " + a.Status)
		}
	}
	current.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateForOwner(ctx, current); err != nil {
		return Application{}, err
	}
	return current, nil
}

func (s *service) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	return s.repo.DeleteForOwner(ctx, ownerID, id)
}

func (s *service) LatestVersion(ctx context.Context, ownerID, id uuid.UUID) (CvVersion, error) {
	return s.repo.LatestCvVersion(ctx, ownerID, id)
}

// ErrValidation — простая ошибка валидации.
type ErrValidation string

func (e ErrValidation) Error() string { return string(e) }
