package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/artem13815/cv-tailor/pkg/application"
)

// ApplicationRepository хранит отклики и их CV-версии. Списки выбранных
// записей лежат в uuid[] — версия ссылается на записи пула по id.
type ApplicationRepository struct {
	pool *pgxpool.Pool
}

func NewApplicationRepository(pg *pgxpool.Pool) (*ApplicationRepository, error) {
	r := &ApplicationRepository{pool: pg}
	if err := r.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *ApplicationRepository) ensureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS applications (
	id UUID PRIMARY KEY,
	owner_id UUID NOT NULL,
	company TEXT NOT NULL,
	role_title TEXT NOT NULL,
	job_description TEXT NOT NULL DEFAULT '',
	job_url TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	notes TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS cv_versions (
	id UUID PRIMARY KEY,
	application_id UUID NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
	owner_id UUID NOT NULL,
	domain TEXT NOT NULL,
	jd_summary TEXT NOT NULL DEFAULT '',
	required_skills TEXT[] NOT NULL DEFAULT '{}',
	selected_experience_ids UUID[] NOT NULL DEFAULT '{}',
	selected_project_ids UUID[] NOT NULL DEFAULT '{}',
	selected_activity_ids UUID[] NOT NULL DEFAULT '{}',
	selected_education_ids UUID[] NOT NULL DEFAULT '{}',
	selected_skill_ids UUID[] NOT NULL DEFAULT '{}',
	jd_embedding vector(1536),
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_applications_owner ON applications(owner_id);
CREATE INDEX IF NOT EXISTS idx_cv_versions_app ON cv_versions(application_id);
`)
	return err
}

func (r *ApplicationRepository) Create(ctx context.Context, a application.Application) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO applications (id, owner_id, company, role_title, job_description, job_url, status, notes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`, a.ID, a.OwnerID, a.Company, a.RoleTitle, a.JobDescription, a.JobURL, a.Status, a.Notes, a.CreatedAt, a.UpdatedAt)
	return err
}

func (r *ApplicationRepository) GetByIDForOwner(ctx context.Context, ownerID, id uuid.UUID) (application.Application, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, owner_id, company, role_title, job_description, job_url, status, notes, created_at, updated_at
FROM applications WHERE id = $1 AND owner_id = $2
`, id, ownerID)
	return scanApplication(row)
}

func (r *ApplicationRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]application.Application, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
SELECT id, owner_id, company, role_title, job_description, job_url, status, notes, created_at, updated_at
FROM applications WHERE owner_id = $3
ORDER BY updated_at DESC
LIMIT $1 OFFSET $2
`, limit, offset, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []application.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *ApplicationRepository) UpdateForOwner(ctx context.Context, a application.Application) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE applications SET company = $3, role_title = $4, job_description = $5, job_url = $6, status = $7, notes = $8, updated_at = $9
WHERE id = $1 AND owner_id = $2
`, a.ID, a.OwnerID, a.Company, a.RoleTitle, a.JobDescription, a.JobURL, a.Status, a.Notes, a.UpdatedAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return application.ErrNotFound
	}
	return nil
}

func (r *ApplicationRepository) SetStatusForOwner(ctx context.Context, ownerID, id uuid.UUID, status string) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE applications SET status = $3, updated_at = $4 WHERE id = $1 AND owner_id = $2
`, id, ownerID, status, time.Now().UTC())
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return application.ErrNotFound
	}
	return nil
}

func (r *ApplicationRepository) DeleteForOwner(ctx context.Context, ownerID, id uuid.UUID) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM applications WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return application.ErrNotFound
	}
	return nil
}

func (r *ApplicationRepository) CreateCvVersion(ctx context.Context, v application.CvVersion) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO cv_versions (id, application_id, owner_id, domain, jd_summary, required_skills,
	selected_experience_ids, selected_project_ids, selected_activity_ids, selected_education_ids, selected_skill_ids,
	jd_embedding, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
`, v.ID, v.ApplicationID, v.OwnerID, v.Domain, v.JDSummary, tags(v.RequiredSkills),
		idList(v.SelectedExperienceIDs), idList(v.SelectedProjectIDs), idList(v.SelectedActivityIDs),
		idList(v.SelectedEducationIDs), idList(v.SelectedSkillIDs),
		embeddingParam(v.JDEmbedding), v.CreatedAt)
	return err
}

func (r *ApplicationRepository) LatestCvVersion(ctx context.Context, ownerID, applicationID uuid.UUID) (application.CvVersion, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, application_id, owner_id, domain, jd_summary, required_skills,
	selected_experience_ids, selected_project_ids, selected_activity_ids, selected_education_ids, selected_skill_ids,
	jd_embedding, created_at
FROM cv_versions WHERE application_id = $1 AND owner_id = $2
ORDER BY created_at DESC
LIMIT 1
`, applicationID, ownerID)
	var v application.CvVersion
	var embedding *pgvector.Vector
	err := row.Scan(&v.ID, &v.ApplicationID, &v.OwnerID, &v.Domain, &v.JDSummary, &v.RequiredSkills,
		&v.SelectedExperienceIDs, &v.SelectedProjectIDs, &v.SelectedActivityIDs, &v.SelectedEducationIDs, &v.SelectedSkillIDs,
		&embedding, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return application.CvVersion{}, application.ErrNoVersion
		}
		return application.CvVersion{}, err
	}
	if embedding != nil {
		v.JDEmbedding = embedding.Slice()
	}
	return v, nil
}

func (r *ApplicationRepository) UpdateCvVersionSelections(ctx context.Context, v application.CvVersion) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE cv_versions SET
	selected_experience_ids = $3, selected_project_ids = $4, selected_activity_ids = $5,
	selected_education_ids = $6, selected_skill_ids = $7
WHERE id = $1 AND owner_id = $2
`, v.ID, v.OwnerID, idList(v.SelectedExperienceIDs), idList(v.SelectedProjectIDs), idList(v.SelectedActivityIDs),
		idList(v.SelectedEducationIDs), idList(v.SelectedSkillIDs))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return application.ErrNoVersion
	}
	return nil
}

// RelinkExperienceToActivity убирает oldID из списков опыта и добавляет newID
// в списки активностей во всех версиях владельца. array_remove + условный
// array_append делают операцию идемпотентной.
func (r *ApplicationRepository) RelinkExperienceToActivity(ctx context.Context, ownerID, oldID, newID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
UPDATE cv_versions SET
	selected_experience_ids = array_remove(selected_experience_ids, $2),
	selected_activity_ids = CASE
		WHEN $3 = ANY(selected_activity_ids) THEN selected_activity_ids
		ELSE array_append(selected_activity_ids, $3)
	END
WHERE owner_id = $1 AND $2 = ANY(selected_experience_ids)
`, ownerID, oldID, newID)
	return err
}

func scanApplication(row pgx.Row) (application.Application, error) {
	var a application.Application
	var created, updated time.Time
	err := row.Scan(&a.ID, &a.OwnerID, &a.Company, &a.RoleTitle, &a.JobDescription, &a.JobURL, &a.Status, &a.Notes, &created, &updated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return application.Application{}, application.ErrNotFound
		}
		return application.Application{}, err
	}
	a.CreatedAt = created.UTC()
	a.UpdatedAt = updated.UTC()
	return a, nil
}

// idList приводит nil к пустому срезу: uuid[] колонки NOT NULL.
func idList(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}
