package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Статусы отклика. Переходы свободные, кроме tailoring — его выставляет
// только запуск подбора.
const (
	StatusDraft     = "draft"
	StatusTailoring = "tailoring"
	StatusReview    = "review"
	StatusComplete  = "complete"
)

var (
	ErrNotFound  = errors.New("application not found")
	ErrNoVersion = errors.New("application has no cv version")
)

// Application — отклик на вакансию: описание позиции плюс статус работы
// над подогнанным CV.
type Application struct {
	ID             uuid.UUID `json:"id"`
	OwnerID        uuid.UUID `json:"ownerId"`
	Company        string    `json:"company"`
	RoleTitle      string    `json:"roleTitle"`
	JobDescription string    `json:"jobDescription,omitempty"`
	JobURL         string    `json:"jobUrl,omitempty"`
	Status         string    `json:"status"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// CvVersion — результат подбора: какие записи пула выбраны в CV для
// конкретного отклика. Списки хранят id primary-вариантов.
type CvVersion struct {
	ID                    uuid.UUID   `json:"id"`
	ApplicationID         uuid.UUID   `json:"applicationId"`
	OwnerID               uuid.UUID   `json:"ownerId"`
	Domain                string      `json:"domain"`
	JDSummary             string      `json:"jdSummary,omitempty"`
	RequiredSkills        []string    `json:"requiredSkills,omitempty"`
	SelectedExperienceIDs []uuid.UUID `json:"selectedExperienceIds"`
	SelectedProjectIDs    []uuid.UUID `json:"selectedProjectIds"`
	SelectedActivityIDs   []uuid.UUID `json:"selectedActivityIds"`
	SelectedEducationIDs  []uuid.UUID `json:"selectedEducationIds"`
	SelectedSkillIDs      []uuid.UUID `json:"selectedSkillIds"`
	JDEmbedding           []float32   `json:"-"`
	CreatedAt             time.Time   `json:"createdAt"`
}

// Repository — порт хранилища откликов и CV-версий.
type Repository interface {
	Create(ctx context.Context, a Application) error
	GetByIDForOwner(ctx context.Context, ownerID, id uuid.UUID) (Application, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]Application, error)
	UpdateForOwner(ctx context.Context, a Application) error
	SetStatusForOwner(ctx context.Context, ownerID, id uuid.UUID, status string) error
	// Удаляет отклик вместе с его CV-версиями.
	DeleteForOwner(ctx context.Context, ownerID, id uuid.UUID) error

	CreateCvVersion(ctx context.Context, v CvVersion) error
	LatestCvVersion(ctx context.Context, ownerID, applicationID uuid.UUID) (CvVersion, error)
	UpdateCvVersionSelections(ctx context.Context, v CvVersion) error

	// RelinkExperienceToActivity переносит oldID из списков опыта работы в
	// списки активностей во всех CV-версиях владельца. Идемпотентна.
	RelinkExperienceToActivity(ctx context.Context, ownerID, oldID, newID uuid.UUID) error
}
