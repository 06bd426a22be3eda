package pool

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRelinker struct {
	calls [][2]uuid.UUID // old, new
	err   error
}

func (r *memRelinker) RelinkExperienceToActivity(ctx context.Context, ownerID, oldID, newID uuid.UUID) error {
	if r.err != nil {
		return r.err
	}
	r.calls = append(r.calls, [2]uuid.UUID{oldID, newID})
	return nil
}

func TestReclassify_MovesRecordAndPreservesContent(t *testing.T) {
	repo := newMemRepo()
	d := NewDeduper(repo, 0.75, 0.92)
	relinker := &memRelinker{}
	r := NewReclassifier(repo, d, relinker)
	ownerID := uuid.New()

	exp := Experience{
		ID:                uuid.New(),
		OwnerID:           ownerID,
		Company:           "Robotics Society",
		RoleTitle:         "President",
		DateStart:         date(2022, 9, 1),
		CompanyConfidence: 0.85,
		Bullets:           []Bullet{{Text: "Organised weekly workshops"}},
		SkillTags:         []string{"leadership"},
		Embedding:         []float32{1, 0, 0},
		CreatedAt:         time.Now().UTC(),
	}
	require.NoError(t, repo.CreateExperience(context.Background(), exp))

	results := r.ReclassifyExperiences(context.Background(), ownerID, []uuid.UUID{exp.ID})
	require.Len(t, results, 1)
	res := results[0]
	assert.Empty(t, res.Error)
	assert.Equal(t, exp.ID, res.SourceID)
	require.NotEqual(t, uuid.Nil, res.NewID)

	// исходная запись удалена
	_, err := repo.GetExperienceForOwner(context.Background(), ownerID, exp.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// контент перенесён с переименованием полей
	act, err := repo.GetActivityForOwner(context.Background(), ownerID, res.NewID)
	require.NoError(t, err)
	assert.Equal(t, "Robotics Society", act.Organization)
	assert.Equal(t, "President", act.RoleTitle)
	assert.Equal(t, exp.CompanyConfidence, act.OrganizationConfidence)
	assert.Equal(t, exp.Bullets, act.Bullets)
	assert.Equal(t, exp.Embedding, act.Embedding, "эмбеддинг копируется как есть")

	// ссылки в CV-версиях перешиты
	require.Len(t, relinker.calls, 1)
	assert.Equal(t, exp.ID, relinker.calls[0][0])
	assert.Equal(t, res.NewID, relinker.calls[0][1])

	// запись дедуплицирована среди активностей
	assert.True(t, act.IsPrimaryVariant)
	assert.NotEqual(t, uuid.Nil, act.VariantGroupID)
}

func TestReclassify_DedupesAgainstActivities(t *testing.T) {
	repo := newMemRepo()
	d := NewDeduper(repo, 0.75, 0.92)
	r := NewReclassifier(repo, d, &memRelinker{})
	ownerID := uuid.New()

	existing := Activity{
		ID:           uuid.New(),
		OwnerID:      ownerID,
		Organization: "Chess Club",
		RoleTitle:    "Captain",
		Embedding:    []float32{1, 0, 0},
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, repo.CreateActivity(context.Background(), existing))
	_, err := d.Deduplicate(context.Background(), ownerID, CategoryActivity, existing.ID)
	require.NoError(t, err)

	exp := Experience{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Company:   "Chess Club",
		RoleTitle: "Captain",
		Embedding: []float32{1, 0.01, 0},
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.CreateExperience(context.Background(), exp))

	results := r.ReclassifyExperiences(context.Background(), ownerID, []uuid.UUID{exp.ID})
	require.Len(t, results, 1)
	require.Empty(t, results[0].Error)

	act, err := repo.GetActivityForOwner(context.Background(), ownerID, results[0].NewID)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, act.VariantGroupID, "новая активность вошла в существующую группу")
}

func TestReclassify_PrimaryMoveRepairsSourceGroup(t *testing.T) {
	repo := newMemRepo()
	d := NewDeduper(repo, 0.75, 0.92)
	r := NewReclassifier(repo, d, &memRelinker{})
	ownerID := uuid.New()

	old := addExperience(t, repo, ownerID, "Acme", date(2020, time.January, 1), 0.9, []float32{1, 0, 0})
	_, err := d.Deduplicate(context.Background(), ownerID, CategoryExperience, old.ID)
	require.NoError(t, err)
	newer := addExperience(t, repo, ownerID, "Acme Corp", date(2023, time.June, 1), 0.9, []float32{0.8, 0.6, 0})
	res, err := d.Deduplicate(context.Background(), ownerID, CategoryExperience, newer.ID)
	require.NoError(t, err)

	// уезжает primary группы
	results := r.ReclassifyExperiences(context.Background(), ownerID, []uuid.UUID{newer.ID})
	require.Len(t, results, 1)
	require.Empty(t, results[0].Error)

	survivor, err := repo.GetExperienceForOwner(context.Background(), ownerID, old.ID)
	require.NoError(t, err)
	assert.True(t, survivor.IsPrimaryVariant, "оставшийся вариант переизбирается в primary")
	require.Len(t, primaries(t, repo, ownerID, res.VariantGroupID), 1)
}

func TestReclassify_MissingRecordDoesNotAbortBatch(t *testing.T) {
	repo := newMemRepo()
	d := NewDeduper(repo, 0.75, 0.92)
	r := NewReclassifier(repo, d, &memRelinker{})
	ownerID := uuid.New()

	good := addExperience(t, repo, ownerID, "Acme", nil, 0.9, []float32{1, 0, 0})
	missing := uuid.New()

	results := r.ReclassifyExperiences(context.Background(), ownerID, []uuid.UUID{missing, good.ID})
	require.Len(t, results, 2)
	assert.Equal(t, missing, results[0].SourceID)
	assert.Equal(t, "experience not found", results[0].Error)
	assert.Empty(t, results[1].Error)
	assert.NotEqual(t, uuid.Nil, results[1].NewID)
}

func TestReclassify_RelinkFailureReportedButMoveKept(t *testing.T) {
	repo := newMemRepo()
	d := NewDeduper(repo, 0.75, 0.92)
	relinker := &memRelinker{err: fmt.Errorf("cv_versions unavailable")}
	r := NewReclassifier(repo, d, relinker)
	ownerID := uuid.New()

	exp := addExperience(t, repo, ownerID, "Acme", nil, 0.9, []float32{1, 0, 0})
	results := r.ReclassifyExperiences(context.Background(), ownerID, []uuid.UUID{exp.ID})
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Error, "relink failed")
	assert.NotEqual(t, uuid.Nil, results[0].NewID, "перенос уже случился и должен быть виден")

	_, err := repo.GetActivityForOwner(context.Background(), ownerID, results[0].NewID)
	assert.NoError(t, err)
}

func TestReclassify_OwnersIsolated(t *testing.T) {
	repo := newMemRepo()
	d := NewDeduper(repo, 0.75, 0.92)
	r := NewReclassifier(repo, d, &memRelinker{})

	owner := uuid.New()
	other := uuid.New()
	exp := addExperience(t, repo, other, "Acme", nil, 0.9, []float32{1, 0, 0})

	results := r.ReclassifyExperiences(context.Background(), owner, []uuid.UUID{exp.ID})
	require.Len(t, results, 1)
	assert.Equal(t, "experience not found", results[0].Error)
}
