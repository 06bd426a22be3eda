package pool

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Category — одна из пяти категорий пула опыта. Категория фиксируется при
// создании записи и определяет таблицу хранения.
type Category string

const (
	CategoryExperience Category = "work_experience"
	CategoryEducation  Category = "education"
	CategoryProject    Category = "project"
	CategoryActivity   Category = "activity"
	CategorySkill      Category = "skill"
)

// Common errors used by pool repositories and use cases
var (
	ErrNotFound         = errors.New("record not found")
	ErrMissingEmbedding = errors.New("record has no embedding")
	ErrNotCV            = errors.New("uploaded file does not look like a CV")
)

// Bullet — нормализованная форма пункта (bullet) записи. Исходные данные
// приходят либо строкой, либо объектом с тегами; на границе хранилища обе
// формы приводятся к этой. DomainTags == nil означает обычный текстовый пункт.
type Bullet struct {
	Text       string   `json:"text"`
	DomainTags []string `json:"domainTags,omitempty"`
}

// Experience — запись об опыте работы (один вариант в группе вариантов).
type Experience struct {
	ID                uuid.UUID  `json:"id"`
	OwnerID           uuid.UUID  `json:"ownerId"`
	UploadID          uuid.UUID  `json:"uploadId,omitempty"`
	Company           string     `json:"company"`
	RoleTitle         string     `json:"roleTitle"`
	Location          string     `json:"location,omitempty"`
	DateStart         *time.Time `json:"dateStart,omitempty"`
	DateEnd           *time.Time `json:"dateEnd,omitempty"`
	IsCurrent         bool       `json:"isCurrent"`
	CompanyConfidence float32    `json:"companyConfidence,omitempty"`
	DatesConfidence   float32    `json:"datesConfidence,omitempty"`
	Bullets           []Bullet   `json:"bullets"`
	DomainTags        []string   `json:"domainTags,omitempty"`
	SkillTags         []string   `json:"skillTags,omitempty"`
	Embedding         []float32  `json:"-"`
	VariantGroupID    uuid.UUID  `json:"variantGroupId"`
	IsPrimaryVariant  bool       `json:"isPrimaryVariant"`
	NeedsReview       bool       `json:"needsReview"`
	ReviewReason      string     `json:"reviewReason,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

// Activity — внеучебная/общественная активность. Структурно повторяет
// Experience, но организация вместо компании.
type Activity struct {
	ID                     uuid.UUID  `json:"id"`
	OwnerID                uuid.UUID  `json:"ownerId"`
	UploadID               uuid.UUID  `json:"uploadId,omitempty"`
	Organization           string     `json:"organization"`
	RoleTitle              string     `json:"roleTitle"`
	Location               string     `json:"location,omitempty"`
	DateStart              *time.Time `json:"dateStart,omitempty"`
	DateEnd                *time.Time `json:"dateEnd,omitempty"`
	IsCurrent              bool       `json:"isCurrent"`
	OrganizationConfidence float32    `json:"organizationConfidence,omitempty"`
	DatesConfidence        float32    `json:"datesConfidence,omitempty"`
	Bullets                []Bullet   `json:"bullets"`
	DomainTags             []string   `json:"domainTags,omitempty"`
	SkillTags              []string   `json:"skillTags,omitempty"`
	Embedding              []float32  `json:"-"`
	VariantGroupID         uuid.UUID  `json:"variantGroupId"`
	IsPrimaryVariant       bool       `json:"isPrimaryVariant"`
	NeedsReview            bool       `json:"needsReview"`
	ReviewReason           string     `json:"reviewReason,omitempty"`
	CreatedAt              time.Time  `json:"createdAt"`
}

// Project — пет-проект или рабочий проект.
type Project struct {
	ID               uuid.UUID  `json:"id"`
	OwnerID          uuid.UUID  `json:"ownerId"`
	UploadID         uuid.UUID  `json:"uploadId,omitempty"`
	Name             string     `json:"name"`
	Description      string     `json:"description,omitempty"`
	URL              string     `json:"url,omitempty"`
	DateStart        *time.Time `json:"dateStart,omitempty"`
	DateEnd          *time.Time `json:"dateEnd,omitempty"`
	Bullets          []Bullet   `json:"bullets"`
	DomainTags       []string   `json:"domainTags,omitempty"`
	SkillTags        []string   `json:"skillTags,omitempty"`
	Embedding        []float32  `json:"-"`
	VariantGroupID   uuid.UUID  `json:"variantGroupId"`
	IsPrimaryVariant bool       `json:"isPrimaryVariant"`
	NeedsReview      bool       `json:"needsReview"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// Education — запись об образовании. Не участвует в дедупликации вариантов
// и похожестном ранжировании.
type Education struct {
	ID                    uuid.UUID  `json:"id"`
	OwnerID               uuid.UUID  `json:"ownerId"`
	UploadID              uuid.UUID  `json:"uploadId,omitempty"`
	Institution           string     `json:"institution"`
	Degree                string     `json:"degree,omitempty"`
	Grade                 string     `json:"grade,omitempty"`
	Location              string     `json:"location,omitempty"`
	DateStart             *time.Time `json:"dateStart,omitempty"`
	DateEnd               *time.Time `json:"dateEnd,omitempty"`
	Achievements          []string   `json:"achievements,omitempty"`
	Modules               []string   `json:"modules,omitempty"`
	InstitutionConfidence float32    `json:"institutionConfidence,omitempty"`
	NeedsReview           bool       `json:"needsReview"`
	CreatedAt             time.Time  `json:"createdAt"`
}

// Skill — навык; дубликаты схлопываются по нормализованному имени.
type Skill struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"ownerId"`
	Name        string    `json:"name"`
	Category    string    `json:"category,omitempty"`
	Proficiency string    `json:"proficiency,omitempty"`
	DomainTags  []string  `json:"domainTags,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Variant — категорийно-нейтральная проекция записи, с которой работает
// дедупликатор: только то, что нужно для группировки и выбора primary.
type Variant struct {
	ID         uuid.UUID
	GroupID    uuid.UUID // uuid.Nil = своя группа из одной записи
	IsPrimary  bool
	Confidence float32
	DateStart  *time.Time
	CreatedAt  time.Time
	Embedding  []float32
}

// VariantUpdate — изменение флагов группировки одной записи.
type VariantUpdate struct {
	ID        uuid.UUID
	GroupID   uuid.UUID
	IsPrimary bool
}

// Upload хранит метаданные загруженного CV и статус парсинга.
type Upload struct {
	ID            uuid.UUID `json:"id"`
	OwnerID       uuid.UUID `json:"ownerId"`
	Filename      string    `json:"filename"`
	FileType      string    `json:"fileType"`
	RawText       string    `json:"-"`
	ParsingStatus string    `json:"parsingStatus"`
	ParsingNotes  string    `json:"parsingNotes,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Статусы парсинга загрузки.
const (
	ParsingPending  = "pending"
	ParsingComplete = "complete"
	ParsingFailed   = "failed"
)

// Repository — порт хранилища пула опыта. Все операции ограничены владельцем.
type Repository interface {
	// uploads
	CreateUpload(ctx context.Context, u Upload) error
	SetUploadStatus(ctx context.Context, id uuid.UUID, status, notes string) error

	// experiences
	CreateExperience(ctx context.Context, e Experience) error
	GetExperienceForOwner(ctx context.Context, ownerID, id uuid.UUID) (Experience, error)
	ListExperiencesByOwner(ctx context.Context, ownerID uuid.UUID) ([]Experience, error)
	UpdateExperienceForOwner(ctx context.Context, e Experience) error
	DeleteExperienceForOwner(ctx context.Context, ownerID, id uuid.UUID) error

	// activities
	CreateActivity(ctx context.Context, a Activity) error
	GetActivityForOwner(ctx context.Context, ownerID, id uuid.UUID) (Activity, error)
	ListActivitiesByOwner(ctx context.Context, ownerID uuid.UUID) ([]Activity, error)
	UpdateActivityForOwner(ctx context.Context, a Activity) error
	DeleteActivityForOwner(ctx context.Context, ownerID, id uuid.UUID) error

	// projects
	CreateProject(ctx context.Context, p Project) error
	GetProjectForOwner(ctx context.Context, ownerID, id uuid.UUID) (Project, error)
	ListProjectsByOwner(ctx context.Context, ownerID uuid.UUID) ([]Project, error)
	DeleteProjectForOwner(ctx context.Context, ownerID, id uuid.UUID) error

	// education
	CreateEducation(ctx context.Context, e Education) error
	ListEducationByOwner(ctx context.Context, ownerID uuid.UUID) ([]Education, error)
	DeleteEducationForOwner(ctx context.Context, ownerID, id uuid.UUID) error

	// skills
	CreateSkill(ctx context.Context, s Skill) error
	ListSkillsByOwner(ctx context.Context, ownerID uuid.UUID) ([]Skill, error)
	DeleteSkillForOwner(ctx context.Context, ownerID, id uuid.UUID) error

	// variant grouping (dedup)
	ListVariants(ctx context.Context, ownerID uuid.UUID, cat Category) ([]Variant, error)
	ApplyVariantUpdates(ctx context.Context, cat Category, updates []VariantUpdate) error
	// WithCategoryLock serializes dedup/reclassify for one (owner, category) pair.
	WithCategoryLock(ctx context.Context, ownerID uuid.UUID, cat Category, fn func(ctx context.Context) error) error

	// reclassification: insert target + delete source in one transaction
	MoveExperienceToActivity(ctx context.Context, ownerID, id uuid.UUID) (Activity, error)

	// re-embed support
	SetEmbedding(ctx context.Context, cat Category, id uuid.UUID, embedding []float32) error
}
