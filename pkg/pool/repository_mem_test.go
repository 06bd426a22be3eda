package pool

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// memRepo — потокобезопасная in-memory реализация Repository для тестов.
type memRepo struct {
	mu          sync.Mutex
	lockMu      sync.Mutex
	uploads     map[uuid.UUID]Upload
	experiences map[uuid.UUID]Experience
	activities  map[uuid.UUID]Activity
	projects    map[uuid.UUID]Project
	education   map[uuid.UUID]Education
	skills      map[uuid.UUID]Skill
}

func newMemRepo() *memRepo {
	return &memRepo{
		uploads:     map[uuid.UUID]Upload{},
		experiences: map[uuid.UUID]Experience{},
		activities:  map[uuid.UUID]Activity{},
		projects:    map[uuid.UUID]Project{},
		education:   map[uuid.UUID]Education{},
		skills:      map[uuid.UUID]Skill{},
	}
}

func (r *memRepo) CreateUpload(ctx context.Context, u Upload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uploads[u.ID] = u
	return nil
}

func (r *memRepo) SetUploadStatus(ctx context.Context, id uuid.UUID, status, notes string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.uploads[id]
	if !ok {
		return ErrNotFound
	}
	u.ParsingStatus = status
	u.ParsingNotes = notes
	r.uploads[id] = u
	return nil
}

func (r *memRepo) CreateExperience(ctx context.Context, e Experience) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.experiences[e.ID] = e
	return nil
}

func (r *memRepo) GetExperienceForOwner(ctx context.Context, ownerID, id uuid.UUID) (Experience, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.experiences[id]
	if !ok || e.OwnerID != ownerID {
		return Experience{}, ErrNotFound
	}
	return e, nil
}

func (r *memRepo) ListExperiencesByOwner(ctx context.Context, ownerID uuid.UUID) ([]Experience, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Experience
	for _, e := range r.experiences {
		if e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *memRepo) UpdateExperienceForOwner(ctx context.Context, e Experience) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.experiences[e.ID]
	if !ok || cur.OwnerID != e.OwnerID {
		return ErrNotFound
	}
	r.experiences[e.ID] = e
	return nil
}

func (r *memRepo) DeleteExperienceForOwner(ctx context.Context, ownerID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.experiences[id]
	if !ok || e.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(r.experiences, id)
	return nil
}

func (r *memRepo) CreateActivity(ctx context.Context, a Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activities[a.ID] = a
	return nil
}

func (r *memRepo) GetActivityForOwner(ctx context.Context, ownerID, id uuid.UUID) (Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.activities[id]
	if !ok || a.OwnerID != ownerID {
		return Activity{}, ErrNotFound
	}
	return a, nil
}

func (r *memRepo) ListActivitiesByOwner(ctx context.Context, ownerID uuid.UUID) ([]Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Activity
	for _, a := range r.activities {
		if a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *memRepo) UpdateActivityForOwner(ctx context.Context, a Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.activities[a.ID]
	if !ok || cur.OwnerID != a.OwnerID {
		return ErrNotFound
	}
	r.activities[a.ID] = a
	return nil
}

func (r *memRepo) DeleteActivityForOwner(ctx context.Context, ownerID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.activities[id]
	if !ok || a.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(r.activities, id)
	return nil
}

func (r *memRepo) CreateProject(ctx context.Context, p Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects[p.ID] = p
	return nil
}

func (r *memRepo) GetProjectForOwner(ctx context.Context, ownerID, id uuid.UUID) (Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok || p.OwnerID != ownerID {
		return Project{}, ErrNotFound
	}
	return p, nil
}

func (r *memRepo) ListProjectsByOwner(ctx context.Context, ownerID uuid.UUID) ([]Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Project
	for _, p := range r.projects {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (r *memRepo) DeleteProjectForOwner(ctx context.Context, ownerID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok || p.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(r.projects, id)
	return nil
}

func (r *memRepo) CreateEducation(ctx context.Context, e Education) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.education[e.ID] = e
	return nil
}

func (r *memRepo) ListEducationByOwner(ctx context.Context, ownerID uuid.UUID) ([]Education, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Education
	for _, e := range r.education {
		if e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (r *memRepo) DeleteEducationForOwner(ctx context.Context, ownerID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.education[id]
	if !ok || e.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(r.education, id)
	return nil
}

func (r *memRepo) CreateSkill(ctx context.Context, s Skill) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skills[s.ID] = s
	return nil
}

func (r *memRepo) ListSkillsByOwner(ctx context.Context, ownerID uuid.UUID) ([]Skill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Skill
	for _, s := range r.skills {
		if s.OwnerID == ownerID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *memRepo) DeleteSkillForOwner(ctx context.Context, ownerID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.skills[id]
	if !ok || s.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(r.skills, id)
	return nil
}

func (r *memRepo) ListVariants(ctx context.Context, ownerID uuid.UUID, cat Category) ([]Variant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Variant
	switch cat {
	case CategoryExperience:
		for _, e := range r.experiences {
			if e.OwnerID == ownerID {
				out = append(out, Variant{ID: e.ID, GroupID: e.VariantGroupID, IsPrimary: e.IsPrimaryVariant,
					Confidence: e.CompanyConfidence, DateStart: e.DateStart, CreatedAt: e.CreatedAt, Embedding: e.Embedding})
			}
		}
	case CategoryActivity:
		for _, a := range r.activities {
			if a.OwnerID == ownerID {
				out = append(out, Variant{ID: a.ID, GroupID: a.VariantGroupID, IsPrimary: a.IsPrimaryVariant,
					Confidence: a.OrganizationConfidence, DateStart: a.DateStart, CreatedAt: a.CreatedAt, Embedding: a.Embedding})
			}
		}
	case CategoryProject:
		for _, p := range r.projects {
			if p.OwnerID == ownerID {
				out = append(out, Variant{ID: p.ID, GroupID: p.VariantGroupID, IsPrimary: p.IsPrimaryVariant,
					DateStart: p.DateStart, CreatedAt: p.CreatedAt, Embedding: p.Embedding})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (r *memRepo) ApplyVariantUpdates(ctx context.Context, cat Category, updates []VariantUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range updates {
		switch cat {
		case CategoryExperience:
			e, ok := r.experiences[u.ID]
			if !ok {
				return ErrNotFound
			}
			e.VariantGroupID = u.GroupID
			e.IsPrimaryVariant = u.IsPrimary
			r.experiences[u.ID] = e
		case CategoryActivity:
			a, ok := r.activities[u.ID]
			if !ok {
				return ErrNotFound
			}
			a.VariantGroupID = u.GroupID
			a.IsPrimaryVariant = u.IsPrimary
			r.activities[u.ID] = a
		case CategoryProject:
			p, ok := r.projects[u.ID]
			if !ok {
				return ErrNotFound
			}
			p.VariantGroupID = u.GroupID
			p.IsPrimaryVariant = u.IsPrimary
			r.projects[u.ID] = p
		}
	}
	return nil
}

func (r *memRepo) WithCategoryLock(ctx context.Context, ownerID uuid.UUID, cat Category, fn func(ctx context.Context) error) error {
	r.lockMu.Lock()
	defer r.lockMu.Unlock()
	return fn(ctx)
}

func (r *memRepo) MoveExperienceToActivity(ctx context.Context, ownerID, id uuid.UUID) (Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.experiences[id]
	if !ok || e.OwnerID != ownerID {
		return Activity{}, ErrNotFound
	}
	act := ExperienceToActivity(e)
	r.activities[act.ID] = act
	delete(r.experiences, id)
	return act, nil
}

func (r *memRepo) SetEmbedding(ctx context.Context, cat Category, id uuid.UUID, embedding []float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch cat {
	case CategoryExperience:
		e, ok := r.experiences[id]
		if !ok {
			return ErrNotFound
		}
		e.Embedding = embedding
		r.experiences[id] = e
	case CategoryActivity:
		a, ok := r.activities[id]
		if !ok {
			return ErrNotFound
		}
		a.Embedding = embedding
		r.activities[id] = a
	case CategoryProject:
		p, ok := r.projects[id]
		if !ok {
			return ErrNotFound
		}
		p.Embedding = embedding
		r.projects[id] = p
	default:
		return ErrNotFound
	}
	return nil
}
