package pool

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func addExperience(t *testing.T, repo *memRepo, ownerID uuid.UUID, company string, start *time.Time, confidence float32, embedding []float32) Experience {
	t.Helper()
	e := Experience{
		ID:                uuid.New(),
		OwnerID:           ownerID,
		Company:           company,
		RoleTitle:         "Engineer",
		DateStart:         start,
		CompanyConfidence: confidence,
		Embedding:         embedding,
		CreatedAt:         time.Now().UTC(),
	}
	require.NoError(t, repo.CreateExperience(context.Background(), e))
	return e
}

// primaries возвращает primary-записи группы.
func primaries(t *testing.T, repo *memRepo, ownerID, groupID uuid.UUID) []Variant {
	t.Helper()
	variants, err := repo.ListVariants(context.Background(), ownerID, CategoryExperience)
	require.NoError(t, err)
	var out []Variant
	for _, v := range variants {
		if v.GroupID == groupID && v.IsPrimary {
			out = append(out, v)
		}
	}
	return out
}

func TestDeduplicate_NoMatchesKeepsSingleton(t *testing.T) {
	repo := newMemRepo()
	d := NewDeduper(repo, 0.75, 0.92)
	ownerID := uuid.New()

	a := addExperience(t, repo, ownerID, "Acme", date(2022, 1, 1), 0.9, []float32{1, 0, 0})
	b := addExperience(t, repo, ownerID, "Globex", date(2023, 1, 1), 0.9, []float32{0, 1, 0})

	res, err := d.Deduplicate(context.Background(), ownerID, CategoryExperience, b.ID)
	require.NoError(t, err)
	assert.Equal(t, ActionNew, res.Action)
	assert.Equal(t, b.ID, res.VariantGroupID)

	got, err := repo.GetExperienceForOwner(context.Background(), ownerID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, got.VariantGroupID, "чужая запись не должна меняться")
}

func TestDeduplicate_SimilarRecordsFormGroup(t *testing.T) {
	repo := newMemRepo()
	d := NewDeduper(repo, 0.75, 0.92)
	ownerID := uuid.New()

	old := addExperience(t, repo, ownerID, "Acme Corp", date(2021, 6, 1), 0.8, []float32{1, 0, 0})
	_, err := d.Deduplicate(context.Background(), ownerID, CategoryExperience, old.ID)
	require.NoError(t, err)

	// близкий, но не почти идентичный вектор
	nu := addExperience(t, repo, ownerID, "Acme", date(2023, 2, 1), 0.8, []float32{0.8, 0.6, 0})
	res, err := d.Deduplicate(context.Background(), ownerID, CategoryExperience, nu.ID)
	require.NoError(t, err)
	assert.Equal(t, ActionVariant, res.Action)
	assert.Equal(t, old.ID, res.BestMatchID)
	assert.Equal(t, old.ID, res.VariantGroupID, "группа наследует id существующей группы")

	// primary ровно один; при равной уверенности побеждает более поздний старт
	p := primaries(t, repo, ownerID, res.VariantGroupID)
	require.Len(t, p, 1)
	assert.Equal(t, nu.ID, p[0].ID)
}

func TestDeduplicate_NearDuplicate(t *testing.T) {
	repo := newMemRepo()
	d := NewDeduper(repo, 0.75, 0.92)
	ownerID := uuid.New()

	old := addExperience(t, repo, ownerID, "Initech", date(2022, 3, 1), 0.9, []float32{1, 0, 0})
	_, err := d.Deduplicate(context.Background(), ownerID, CategoryExperience, old.ID)
	require.NoError(t, err)

	dup := addExperience(t, repo, ownerID, "Initech", date(2022, 3, 1), 0.9, []float32{1, 0.01, 0})
	res, err := d.Deduplicate(context.Background(), ownerID, CategoryExperience, dup.ID)
	require.NoError(t, err)
	assert.Equal(t, ActionNearDuplicate, res.Action)
	assert.Greater(t, res.Similarity, float32(0.92))
	assert.Len(t, primaries(t, repo, ownerID, res.VariantGroupID), 1)
}

func TestDeduplicate_HigherConfidenceWinsPrimary(t *testing.T) {
	repo := newMemRepo()
	d := NewDeduper(repo, 0.75, 0.92)
	ownerID := uuid.New()

	low := addExperience(t, repo, ownerID, "Acme", date(2023, 5, 1), 0.4, []float32{1, 0, 0})
	_, err := d.Deduplicate(context.Background(), ownerID, CategoryExperience, low.ID)
	require.NoError(t, err)

	high := addExperience(t, repo, ownerID, "Acme Corporation", date(2020, 1, 1), 0.95, []float32{1, 0.05, 0})
	res, err := d.Deduplicate(context.Background(), ownerID, CategoryExperience, high.ID)
	require.NoError(t, err)

	p := primaries(t, repo, ownerID, res.VariantGroupID)
	require.Len(t, p, 1)
	assert.Equal(t, high.ID, p[0].ID, "уверенность важнее даты")
}

func TestDeduplicate_MergeKeepsAllMembers(t *testing.T) {
	repo := newMemRepo()
	d := NewDeduper(repo, 0.75, 0.92)
	ownerID := uuid.New()

	// две независимые группы
	a := addExperience(t, repo, ownerID, "Acme", date(2020, 1, 1), 0.9, []float32{1, 0, 0})
	_, err := d.Deduplicate(context.Background(), ownerID, CategoryExperience, a.ID)
	require.NoError(t, err)
	b := addExperience(t, repo, ownerID, "Acme Ltd", date(2021, 1, 1), 0.9, []float32{0.6, 0.8, 0})
	_, err = d.Deduplicate(context.Background(), ownerID, CategoryExperience, b.ID)
	require.NoError(t, err)

	// мост, похожий на обе
	bridge := addExperience(t, repo, ownerID, "Acme Limited", date(2022, 1, 1), 0.9, []float32{0.9, 0.45, 0})
	res, err := d.Deduplicate(context.Background(), ownerID, CategoryExperience, bridge.ID)
	require.NoError(t, err)
	assert.Equal(t, ActionVariant, res.Action)

	variants, err := repo.ListVariants(context.Background(), ownerID, CategoryExperience)
	require.NoError(t, err)
	members := 0
	for _, v := range variants {
		if v.GroupID == res.VariantGroupID {
			members++
		}
	}
	assert.Equal(t, 3, members, "слияние не должно терять участников")
	assert.Len(t, primaries(t, repo, ownerID, res.VariantGroupID), 1)
}

func TestDeduplicate_MissingEmbeddingFailsOpen(t *testing.T) {
	repo := newMemRepo()
	d := NewDeduper(repo, 0.75, 0.92)
	ownerID := uuid.New()

	e := addExperience(t, repo, ownerID, "NoVector Inc", nil, 0.9, nil)
	res, err := d.Deduplicate(context.Background(), ownerID, CategoryExperience, e.ID)
	require.NoError(t, err)
	assert.Equal(t, ActionNew, res.Action)
	assert.Equal(t, e.ID, res.VariantGroupID)

	got, err := repo.GetExperienceForOwner(context.Background(), ownerID, e.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPrimaryVariant)
}

func TestDeduplicate_Idempotent(t *testing.T) {
	repo := newMemRepo()
	d := NewDeduper(repo, 0.75, 0.92)
	ownerID := uuid.New()

	a := addExperience(t, repo, ownerID, "Acme", date(2021, 1, 1), 0.9, []float32{1, 0, 0})
	b := addExperience(t, repo, ownerID, "Acme Corp", date(2022, 1, 1), 0.9, []float32{0.95, 0.2, 0})
	_, err := d.Deduplicate(context.Background(), ownerID, CategoryExperience, a.ID)
	require.NoError(t, err)
	first, err := d.Deduplicate(context.Background(), ownerID, CategoryExperience, b.ID)
	require.NoError(t, err)

	second, err := d.Deduplicate(context.Background(), ownerID, CategoryExperience, b.ID)
	require.NoError(t, err)
	assert.Equal(t, first.VariantGroupID, second.VariantGroupID)
	assert.Len(t, primaries(t, repo, ownerID, second.VariantGroupID), 1)
}

func TestDeduplicate_RaisedThresholdKeepsSinglePrimary(t *testing.T) {
	repo := newMemRepo()
	loose := NewDeduper(repo, 0.75, 0.92)
	ownerID := uuid.New()

	a := addExperience(t, repo, ownerID, "Acme", date(2021, 1, 1), 0.9, []float32{1, 0, 0})
	_, err := loose.Deduplicate(context.Background(), ownerID, CategoryExperience, a.ID)
	require.NoError(t, err)
	b := addExperience(t, repo, ownerID, "Acme Corp", date(2023, 1, 1), 0.9, []float32{0.8, 0.6, 0})
	res, err := loose.Deduplicate(context.Background(), ownerID, CategoryExperience, b.ID)
	require.NoError(t, err)

	// порог подняли выше сходства группы: повторный прогон участника не
	// должен оставить группу с двумя primary
	strict := NewDeduper(repo, 0.85, 0.95)
	again, err := strict.Deduplicate(context.Background(), ownerID, CategoryExperience, a.ID)
	require.NoError(t, err)
	assert.Equal(t, ActionNew, again.Action)

	p := primaries(t, repo, ownerID, res.VariantGroupID)
	require.Len(t, p, 1)
	assert.Equal(t, b.ID, p[0].ID)
}

func TestDeduplicate_UnknownRecord(t *testing.T) {
	repo := newMemRepo()
	d := NewDeduper(repo, 0.75, 0.92)

	_, err := d.Deduplicate(context.Background(), uuid.New(), CategoryExperience, uuid.New())
	require.Error(t, err)
}

func TestRepairGroup_RestoresSinglePrimary(t *testing.T) {
	repo := newMemRepo()
	d := NewDeduper(repo, 0.75, 0.92)
	ownerID := uuid.New()
	group := uuid.New()

	a := addExperience(t, repo, ownerID, "Acme", date(2020, 1, 1), 0.5, []float32{1, 0, 0})
	b := addExperience(t, repo, ownerID, "Acme", date(2022, 1, 1), 0.9, []float32{1, 0, 0})
	// оба primary — повреждённое состояние
	require.NoError(t, repo.ApplyVariantUpdates(context.Background(), CategoryExperience, []VariantUpdate{
		{ID: a.ID, GroupID: group, IsPrimary: true},
		{ID: b.ID, GroupID: group, IsPrimary: true},
	}))

	require.NoError(t, d.RepairGroup(context.Background(), ownerID, CategoryExperience, group))
	p := primaries(t, repo, ownerID, group)
	require.Len(t, p, 1)
	assert.Equal(t, b.ID, p[0].ID)
}
