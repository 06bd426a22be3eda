package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/artem13815/cv-tailor/pkg/pool"
)

// PoolRepository хранит пул опыта: пять таблиц категорий плюс загрузки CV.
// Эмбеддинги лежат в vector-колонках (pgvector), пункты — в JSONB.
type PoolRepository struct {
	pool *pgxpool.Pool
}

func NewPoolRepository(pg *pgxpool.Pool) (*PoolRepository, error) {
	r := &PoolRepository{pool: pg}
	if err := r.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *PoolRepository) ensureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS cv_uploads (
	id UUID PRIMARY KEY,
	owner_id UUID NOT NULL,
	filename TEXT NOT NULL,
	file_type TEXT NOT NULL,
	raw_text TEXT NOT NULL DEFAULT '',
	parsing_status TEXT NOT NULL,
	parsing_notes TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS work_experiences (
	id UUID PRIMARY KEY,
	owner_id UUID NOT NULL,
	upload_id UUID,
	company TEXT NOT NULL,
	role_title TEXT NOT NULL,
	location TEXT NOT NULL DEFAULT '',
	date_start DATE,
	date_end DATE,
	is_current BOOLEAN NOT NULL DEFAULT FALSE,
	company_confidence REAL NOT NULL DEFAULT 0,
	dates_confidence REAL NOT NULL DEFAULT 0,
	bullets JSONB NOT NULL DEFAULT '[]',
	domain_tags TEXT[] NOT NULL DEFAULT '{}',
	skill_tags TEXT[] NOT NULL DEFAULT '{}',
	embedding vector(1536),
	variant_group_id UUID,
	is_primary_variant BOOLEAN NOT NULL DEFAULT FALSE,
	needs_review BOOLEAN NOT NULL DEFAULT FALSE,
	review_reason TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS activities (
	id UUID PRIMARY KEY,
	owner_id UUID NOT NULL,
	upload_id UUID,
	organization TEXT NOT NULL,
	role_title TEXT NOT NULL,
	location TEXT NOT NULL DEFAULT '',
	date_start DATE,
	date_end DATE,
	is_current BOOLEAN NOT NULL DEFAULT FALSE,
	organization_confidence REAL NOT NULL DEFAULT 0,
	dates_confidence REAL NOT NULL DEFAULT 0,
	bullets JSONB NOT NULL DEFAULT '[]',
	domain_tags TEXT[] NOT NULL DEFAULT '{}',
	skill_tags TEXT[] NOT NULL DEFAULT '{}',
	embedding vector(1536),
	variant_group_id UUID,
	is_primary_variant BOOLEAN NOT NULL DEFAULT FALSE,
	needs_review BOOLEAN NOT NULL DEFAULT FALSE,
	review_reason TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS projects (
	id UUID PRIMARY KEY,
	owner_id UUID NOT NULL,
	upload_id UUID,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL DEFAULT '',
	date_start DATE,
	date_end DATE,
	bullets JSONB NOT NULL DEFAULT '[]',
	domain_tags TEXT[] NOT NULL DEFAULT '{}',
	skill_tags TEXT[] NOT NULL DEFAULT '{}',
	embedding vector(1536),
	variant_group_id UUID,
	is_primary_variant BOOLEAN NOT NULL DEFAULT FALSE,
	needs_review BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS education (
	id UUID PRIMARY KEY,
	owner_id UUID NOT NULL,
	upload_id UUID,
	institution TEXT NOT NULL,
	degree TEXT NOT NULL DEFAULT '',
	grade TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL DEFAULT '',
	date_start DATE,
	date_end DATE,
	achievements TEXT[] NOT NULL DEFAULT '{}',
	modules TEXT[] NOT NULL DEFAULT '{}',
	institution_confidence REAL NOT NULL DEFAULT 0,
	needs_review BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS skills (
	id UUID PRIMARY KEY,
	owner_id UUID NOT NULL,
	name TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	proficiency TEXT NOT NULL DEFAULT '',
	domain_tags TEXT[] NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_work_experiences_owner ON work_experiences(owner_id);
CREATE INDEX IF NOT EXISTS idx_activities_owner ON activities(owner_id);
CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects(owner_id);
CREATE INDEX IF NOT EXISTS idx_education_owner ON education(owner_id);
CREATE INDEX IF NOT EXISTS idx_skills_owner ON skills(owner_id);
`)
	return err
}

// variantTable возвращает таблицу и колонку уверенности категории,
// участвующей в группировке вариантов.
func variantTable(cat pool.Category) (table, confidenceCol string, err error) {
	switch cat {
	case pool.CategoryExperience:
		return "work_experiences", "company_confidence", nil
	case pool.CategoryActivity:
		return "activities", "organization_confidence", nil
	case pool.CategoryProject:
		return "projects", "0::real", nil
	default:
		return "", "", fmt.Errorf("category %q has no variant grouping", cat)
	}
}

// --- uploads ---

func (r *PoolRepository) CreateUpload(ctx context.Context, u pool.Upload) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `
INSERT INTO cv_uploads (id, owner_id, filename, file_type, raw_text, parsing_status, parsing_notes, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`, u.ID, u.OwnerID, u.Filename, u.FileType, u.RawText, u.ParsingStatus, u.ParsingNotes, u.CreatedAt)
	return err
}

func (r *PoolRepository) SetUploadStatus(ctx context.Context, id uuid.UUID, status, notes string) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE cv_uploads SET parsing_status = $2, parsing_notes = $3 WHERE id = $1
`, id, status, notes)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pool.ErrNotFound
	}
	return nil
}

// --- experiences ---

const experienceCols = `id, owner_id, upload_id, company, role_title, location, date_start, date_end, is_current,
company_confidence, dates_confidence, bullets, domain_tags, skill_tags, embedding,
variant_group_id, is_primary_variant, needs_review, review_reason, created_at`

func (r *PoolRepository) CreateExperience(ctx context.Context, e pool.Experience) error {
	bullets, err := json.Marshal(e.Bullets)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
INSERT INTO work_experiences (`+experienceCols+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
`, e.ID, e.OwnerID, nullUUID(e.UploadID), e.Company, e.RoleTitle, e.Location, e.DateStart, e.DateEnd, e.IsCurrent,
		e.CompanyConfidence, e.DatesConfidence, bullets, tags(e.DomainTags), tags(e.SkillTags), embeddingParam(e.Embedding),
		nullUUID(e.VariantGroupID), e.IsPrimaryVariant, e.NeedsReview, e.ReviewReason, e.CreatedAt)
	return err
}

func (r *PoolRepository) GetExperienceForOwner(ctx context.Context, ownerID, id uuid.UUID) (pool.Experience, error) {
	row := r.pool.QueryRow(ctx, `
SELECT `+experienceCols+` FROM work_experiences WHERE id = $1 AND owner_id = $2
`, id, ownerID)
	e, err := scanExperience(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return pool.Experience{}, pool.ErrNotFound
	}
	return e, err
}

func (r *PoolRepository) ListExperiencesByOwner(ctx context.Context, ownerID uuid.UUID) ([]pool.Experience, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+experienceCols+` FROM work_experiences WHERE owner_id = $1 ORDER BY created_at, id
`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []pool.Experience
	for rows.Next() {
		e, err := scanExperience(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PoolRepository) UpdateExperienceForOwner(ctx context.Context, e pool.Experience) error {
	bullets, err := json.Marshal(e.Bullets)
	if err != nil {
		return err
	}
	cmd, err := r.pool.Exec(ctx, `
UPDATE work_experiences SET
	company = $3, role_title = $4, location = $5, date_start = $6, date_end = $7, is_current = $8,
	bullets = $9, domain_tags = $10, skill_tags = $11, needs_review = $12, review_reason = $13
WHERE id = $1 AND owner_id = $2
`, e.ID, e.OwnerID, e.Company, e.RoleTitle, e.Location, e.DateStart, e.DateEnd, e.IsCurrent,
		bullets, tags(e.DomainTags), tags(e.SkillTags), e.NeedsReview, e.ReviewReason)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pool.ErrNotFound
	}
	return nil
}

func (r *PoolRepository) DeleteExperienceForOwner(ctx context.Context, ownerID, id uuid.UUID) error {
	return r.deleteForOwner(ctx, "work_experiences", ownerID, id)
}

func scanExperience(row pgx.Row) (pool.Experience, error) {
	var e pool.Experience
	var uploadID, groupID *uuid.UUID
	var bullets []byte
	var embedding *pgvector.Vector
	err := row.Scan(&e.ID, &e.OwnerID, &uploadID, &e.Company, &e.RoleTitle, &e.Location, &e.DateStart, &e.DateEnd, &e.IsCurrent,
		&e.CompanyConfidence, &e.DatesConfidence, &bullets, &e.DomainTags, &e.SkillTags, &embedding,
		&groupID, &e.IsPrimaryVariant, &e.NeedsReview, &e.ReviewReason, &e.CreatedAt)
	if err != nil {
		return pool.Experience{}, err
	}
	if uploadID != nil {
		e.UploadID = *uploadID
	}
	if groupID != nil {
		e.VariantGroupID = *groupID
	}
	if embedding != nil {
		e.Embedding = embedding.Slice()
	}
	if err := json.Unmarshal(bullets, &e.Bullets); err != nil {
		return pool.Experience{}, fmt.Errorf("decode bullets of %s: %w", e.ID, err)
	}
	return e, nil
}

// --- activities ---

const activityCols = `id, owner_id, upload_id, organization, role_title, location, date_start, date_end, is_current,
organization_confidence, dates_confidence, bullets, domain_tags, skill_tags, embedding,
variant_group_id, is_primary_variant, needs_review, review_reason, created_at`

func (r *PoolRepository) CreateActivity(ctx context.Context, a pool.Activity) error {
	return r.insertActivity(ctx, r.pool, a)
}

func (r *PoolRepository) insertActivity(ctx context.Context, q querier, a pool.Activity) error {
	bullets, err := json.Marshal(a.Bullets)
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx, `
INSERT INTO activities (`+activityCols+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
`, a.ID, a.OwnerID, nullUUID(a.UploadID), a.Organization, a.RoleTitle, a.Location, a.DateStart, a.DateEnd, a.IsCurrent,
		a.OrganizationConfidence, a.DatesConfidence, bullets, tags(a.DomainTags), tags(a.SkillTags), embeddingParam(a.Embedding),
		nullUUID(a.VariantGroupID), a.IsPrimaryVariant, a.NeedsReview, a.ReviewReason, a.CreatedAt)
	return err
}

func (r *PoolRepository) GetActivityForOwner(ctx context.Context, ownerID, id uuid.UUID) (pool.Activity, error) {
	row := r.pool.QueryRow(ctx, `
SELECT `+activityCols+` FROM activities WHERE id = $1 AND owner_id = $2
`, id, ownerID)
	a, err := scanActivity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return pool.Activity{}, pool.ErrNotFound
	}
	return a, err
}

func (r *PoolRepository) ListActivitiesByOwner(ctx context.Context, ownerID uuid.UUID) ([]pool.Activity, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+activityCols+` FROM activities WHERE owner_id = $1 ORDER BY created_at, id
`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []pool.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PoolRepository) UpdateActivityForOwner(ctx context.Context, a pool.Activity) error {
	bullets, err := json.Marshal(a.Bullets)
	if err != nil {
		return err
	}
	cmd, err := r.pool.Exec(ctx, `
UPDATE activities SET
	organization = $3, role_title = $4, location = $5, date_start = $6, date_end = $7, is_current = $8,
	bullets = $9, domain_tags = $10, skill_tags = $11, needs_review = $12, review_reason = $13
WHERE id = $1 AND owner_id = $2
`, a.ID, a.OwnerID, a.Organization, a.RoleTitle, a.Location, a.DateStart, a.DateEnd, a.IsCurrent,
		bullets, tags(a.DomainTags), tags(a.SkillTags), a.NeedsReview, a.ReviewReason)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pool.ErrNotFound
	}
	return nil
}

func (r *PoolRepository) DeleteActivityForOwner(ctx context.Context, ownerID, id uuid.UUID) error {
	return r.deleteForOwner(ctx, "activities", ownerID, id)
}

func scanActivity(row pgx.Row) (pool.Activity, error) {
	var a pool.Activity
	var uploadID, groupID *uuid.UUID
	var bullets []byte
	var embedding *pgvector.Vector
	err := row.Scan(&a.ID, &a.OwnerID, &uploadID, &a.Organization, &a.RoleTitle, &a.Location, &a.DateStart, &a.DateEnd, &a.IsCurrent,
		&a.OrganizationConfidence, &a.DatesConfidence, &bullets, &a.DomainTags, &a.SkillTags, &embedding,
		&groupID, &a.IsPrimaryVariant, &a.NeedsReview, &a.ReviewReason, &a.CreatedAt)
	if err != nil {
		return pool.Activity{}, err
	}
	if uploadID != nil {
		a.UploadID = *uploadID
	}
	if groupID != nil {
		a.VariantGroupID = *groupID
	}
	if embedding != nil {
		a.Embedding = embedding.Slice()
	}
	if err := json.Unmarshal(bullets, &a.Bullets); err != nil {
		return pool.Activity{}, fmt.Errorf("decode bullets of %s: %w", a.ID, err)
	}
	return a, nil
}

// --- projects ---

const projectCols = `id, owner_id, upload_id, name, description, url, date_start, date_end,
bullets, domain_tags, skill_tags, embedding, variant_group_id, is_primary_variant, needs_review, created_at`

func (r *PoolRepository) CreateProject(ctx context.Context, p pool.Project) error {
	bullets, err := json.Marshal(p.Bullets)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
INSERT INTO projects (`+projectCols+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
`, p.ID, p.OwnerID, nullUUID(p.UploadID), p.Name, p.Description, p.URL, p.DateStart, p.DateEnd,
		bullets, tags(p.DomainTags), tags(p.SkillTags), embeddingParam(p.Embedding),
		nullUUID(p.VariantGroupID), p.IsPrimaryVariant, p.NeedsReview, p.CreatedAt)
	return err
}

func (r *PoolRepository) GetProjectForOwner(ctx context.Context, ownerID, id uuid.UUID) (pool.Project, error) {
	row := r.pool.QueryRow(ctx, `
SELECT `+projectCols+` FROM projects WHERE id = $1 AND owner_id = $2
`, id, ownerID)
	var p pool.Project
	var uploadID, groupID *uuid.UUID
	var bullets []byte
	var embedding *pgvector.Vector
	err := row.Scan(&p.ID, &p.OwnerID, &uploadID, &p.Name, &p.Description, &p.URL, &p.DateStart, &p.DateEnd,
		&bullets, &p.DomainTags, &p.SkillTags, &embedding, &groupID, &p.IsPrimaryVariant, &p.NeedsReview, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return pool.Project{}, pool.ErrNotFound
	}
	if err != nil {
		return pool.Project{}, err
	}
	if uploadID != nil {
		p.UploadID = *uploadID
	}
	if groupID != nil {
		p.VariantGroupID = *groupID
	}
	if embedding != nil {
		p.Embedding = embedding.Slice()
	}
	if err := json.Unmarshal(bullets, &p.Bullets); err != nil {
		return pool.Project{}, fmt.Errorf("decode bullets of %s: %w", p.ID, err)
	}
	return p, nil
}

func (r *PoolRepository) ListProjectsByOwner(ctx context.Context, ownerID uuid.UUID) ([]pool.Project, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+projectCols+` FROM projects WHERE owner_id = $1 ORDER BY created_at, id
`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []pool.Project
	for rows.Next() {
		var p pool.Project
		var uploadID, groupID *uuid.UUID
		var bullets []byte
		var embedding *pgvector.Vector
		err := rows.Scan(&p.ID, &p.OwnerID, &uploadID, &p.Name, &p.Description, &p.URL, &p.DateStart, &p.DateEnd,
			&bullets, &p.DomainTags, &p.SkillTags, &embedding, &groupID, &p.IsPrimaryVariant, &p.NeedsReview, &p.CreatedAt)
		if err != nil {
			return nil, err
		}
		if uploadID != nil {
			p.UploadID = *uploadID
		}
		if groupID != nil {
			p.VariantGroupID = *groupID
		}
		if embedding != nil {
			p.Embedding = embedding.Slice()
		}
		if err := json.Unmarshal(bullets, &p.Bullets); err != nil {
			return nil, fmt.Errorf("decode bullets of %s: %w", p.ID, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PoolRepository) DeleteProjectForOwner(ctx context.Context, ownerID, id uuid.UUID) error {
	return r.deleteForOwner(ctx, "projects", ownerID, id)
}

// --- education ---

func (r *PoolRepository) CreateEducation(ctx context.Context, e pool.Education) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO education (id, owner_id, upload_id, institution, degree, grade, location, date_start, date_end,
	achievements, modules, institution_confidence, needs_review, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
`, e.ID, e.OwnerID, nullUUID(e.UploadID), e.Institution, e.Degree, e.Grade, e.Location, e.DateStart, e.DateEnd,
		tags(e.Achievements), tags(e.Modules), e.InstitutionConfidence, e.NeedsReview, e.CreatedAt)
	return err
}

func (r *PoolRepository) ListEducationByOwner(ctx context.Context, ownerID uuid.UUID) ([]pool.Education, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, owner_id, upload_id, institution, degree, grade, location, date_start, date_end,
	achievements, modules, institution_confidence, needs_review, created_at
FROM education WHERE owner_id = $1 ORDER BY date_start DESC NULLS LAST, id
`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []pool.Education
	for rows.Next() {
		var e pool.Education
		var uploadID *uuid.UUID
		err := rows.Scan(&e.ID, &e.OwnerID, &uploadID, &e.Institution, &e.Degree, &e.Grade, &e.Location, &e.DateStart, &e.DateEnd,
			&e.Achievements, &e.Modules, &e.InstitutionConfidence, &e.NeedsReview, &e.CreatedAt)
		if err != nil {
			return nil, err
		}
		if uploadID != nil {
			e.UploadID = *uploadID
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PoolRepository) DeleteEducationForOwner(ctx context.Context, ownerID, id uuid.UUID) error {
	return r.deleteForOwner(ctx, "education", ownerID, id)
}

// --- skills ---

func (r *PoolRepository) CreateSkill(ctx context.Context, s pool.Skill) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO skills (id, owner_id, name, category, proficiency, domain_tags, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`, s.ID, s.OwnerID, s.Name, s.Category, s.Proficiency, tags(s.DomainTags), s.CreatedAt)
	return err
}

func (r *PoolRepository) ListSkillsByOwner(ctx context.Context, ownerID uuid.UUID) ([]pool.Skill, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, owner_id, name, category, proficiency, domain_tags, created_at
FROM skills WHERE owner_id = $1 ORDER BY created_at, id
`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []pool.Skill
	for rows.Next() {
		var s pool.Skill
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.Name, &s.Category, &s.Proficiency, &s.DomainTags, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PoolRepository) DeleteSkillForOwner(ctx context.Context, ownerID, id uuid.UUID) error {
	return r.deleteForOwner(ctx, "skills", ownerID, id)
}

// --- variant grouping ---

func (r *PoolRepository) ListVariants(ctx context.Context, ownerID uuid.UUID, cat pool.Category) ([]pool.Variant, error) {
	table, confidenceCol, err := variantTable(cat)
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, `
SELECT id, variant_group_id, is_primary_variant, `+confidenceCol+`, date_start, created_at, embedding
FROM `+table+` WHERE owner_id = $1 ORDER BY created_at, id
`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []pool.Variant
	for rows.Next() {
		var v pool.Variant
		var groupID *uuid.UUID
		var embedding *pgvector.Vector
		if err := rows.Scan(&v.ID, &groupID, &v.IsPrimary, &v.Confidence, &v.DateStart, &v.CreatedAt, &embedding); err != nil {
			return nil, err
		}
		if groupID != nil {
			v.GroupID = *groupID
		}
		if embedding != nil {
			v.Embedding = embedding.Slice()
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *PoolRepository) ApplyVariantUpdates(ctx context.Context, cat pool.Category, updates []pool.VariantUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	table, _, err := variantTable(cat)
	if err != nil {
		return err
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	for _, u := range updates {
		_, err := tx.Exec(ctx, `
UPDATE `+table+` SET variant_group_id = $2, is_primary_variant = $3 WHERE id = $1
`, u.ID, nullUUID(u.GroupID), u.IsPrimary)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// WithCategoryLock держит advisory-блокировку (owner, category) на время fn.
// Блокировка транзакционная: освобождается на коммите пустой транзакции,
// сами запросы fn идут через пул как обычно.
func (r *PoolRepository) WithCategoryLock(ctx context.Context, ownerID uuid.UUID, cat pool.Category, fn func(ctx context.Context) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1), hashtext($2))`, ownerID.String(), string(cat)); err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// MoveExperienceToActivity атомарно переносит запись: вставка активности и
// удаление опыта в одной транзакции.
func (r *PoolRepository) MoveExperienceToActivity(ctx context.Context, ownerID, id uuid.UUID) (pool.Activity, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return pool.Activity{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
SELECT `+experienceCols+` FROM work_experiences WHERE id = $1 AND owner_id = $2 FOR UPDATE
`, id, ownerID)
	exp, err := scanExperience(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pool.Activity{}, pool.ErrNotFound
		}
		return pool.Activity{}, err
	}

	act := pool.ExperienceToActivity(exp)
	act.CreatedAt = time.Now().UTC()
	if err := r.insertActivity(ctx, tx, act); err != nil {
		return pool.Activity{}, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM work_experiences WHERE id = $1`, id); err != nil {
		return pool.Activity{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return pool.Activity{}, err
	}
	return act, nil
}

func (r *PoolRepository) SetEmbedding(ctx context.Context, cat pool.Category, id uuid.UUID, embedding []float32) error {
	var table string
	switch cat {
	case pool.CategoryExperience:
		table = "work_experiences"
	case pool.CategoryActivity:
		table = "activities"
	case pool.CategoryProject:
		table = "projects"
	default:
		return fmt.Errorf("category %q has no embedding column", cat)
	}
	cmd, err := r.pool.Exec(ctx, `UPDATE `+table+` SET embedding = $2 WHERE id = $1`, id, embeddingParam(embedding))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pool.ErrNotFound
	}
	return nil
}

// --- helpers ---

// querier позволяет одному insert работать и через пул, и внутри транзакции.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (r *PoolRepository) deleteForOwner(ctx context.Context, table string, ownerID, id uuid.UUID) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pool.ErrNotFound
	}
	return nil
}

func nullUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}

// tags приводит nil к пустому срезу: text[] колонки NOT NULL.
func tags(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func embeddingParam(embedding []float32) any {
	if len(embedding) == 0 {
		return nil
	}
	return pgvector.NewVector(embedding)
}
