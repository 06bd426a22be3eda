package pool

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
)

// SelectionRelinker переписывает списки выбранных записей в CV-версиях,
// когда запись переезжает из одной категории в другую. Операция обязана
// быть идемпотентной: повторный вызов с теми же id ничего не ломает.
type SelectionRelinker interface {
	RelinkExperienceToActivity(ctx context.Context, ownerID, oldID, newID uuid.UUID) error
}

// ReclassifyResult — итог миграции одной записи. Error пустой при успехе.
type ReclassifyResult struct {
	SourceID uuid.UUID `json:"sourceId"`
	NewID    uuid.UUID `json:"newId,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Reclassifier переносит записи об опыте работы в активности: создаёт новую
// запись в целевой категории, удаляет исходную, чинит ссылки в CV-версиях
// и дедуплицирует запись уже среди активностей.
type Reclassifier struct {
	repo     Repository
	deduper  *Deduper
	relinker SelectionRelinker
}

func NewReclassifier(repo Repository, deduper *Deduper, relinker SelectionRelinker) *Reclassifier {
	return &Reclassifier{repo: repo, deduper: deduper, relinker: relinker}
}

// ReclassifyExperiences мигрирует каждую запись независимо: ошибка одной не
// прерывает остальные. Результаты идут в порядке входных id.
func (r *Reclassifier) ReclassifyExperiences(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) []ReclassifyResult {
	results := make([]ReclassifyResult, 0, len(ids))
	for _, id := range ids {
		results = append(results, r.reclassifyOne(ctx, ownerID, id))
	}
	return results
}

func (r *Reclassifier) reclassifyOne(ctx context.Context, ownerID, id uuid.UUID) ReclassifyResult {
	res := ReclassifyResult{SourceID: id}

	exp, err := r.repo.GetExperienceForOwner(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			res.Error = "experience not found"
		} else {
			res.Error = fmt.Sprintf("move failed: %v", err)
		}
		return res
	}

	// Insert target + delete source atomically: the record is either fully
	// moved or untouched.
	act, err := r.repo.MoveExperienceToActivity(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			res.Error = "experience not found"
		} else {
			res.Error = fmt.Sprintf("move failed: %v", err)
		}
		return res
	}
	res.NewID = act.ID

	// The source group lost a member, possibly its primary; re-elect.
	if exp.VariantGroupID != uuid.Nil {
		if err := r.deduper.RepairGroup(ctx, ownerID, CategoryExperience, exp.VariantGroupID); err != nil {
			log.Printf("reclassify: repair of group %s failed: %v", exp.VariantGroupID, err)
		}
	}

	// Selection lists reference the old id until relinked. The relink is
	// idempotent, so a failure here is recoverable by re-running it.
	if err := r.relinker.RelinkExperienceToActivity(ctx, ownerID, id, act.ID); err != nil {
		log.Printf("reclassify: relink %s -> %s failed: %v", id, act.ID, err)
		res.Error = fmt.Sprintf("moved, but selection relink failed: %v", err)
	}

	// Dedup against the activities namespace. Fail open: the move already
	// happened, a dedup failure just leaves a singleton group.
	if _, err := r.deduper.Deduplicate(ctx, ownerID, CategoryActivity, act.ID); err != nil {
		log.Printf("reclassify: dedup of activity %s failed: %v", act.ID, err)
	}
	return res
}

// ExperienceToActivity строит активность из записи об опыте работы:
// company → organization, company_confidence → organization_confidence,
// эмбеддинг копируется как есть (текст записи не менялся).
func ExperienceToActivity(exp Experience) Activity {
	return Activity{
		ID:                     uuid.New(),
		OwnerID:                exp.OwnerID,
		UploadID:               exp.UploadID,
		Organization:           exp.Company,
		RoleTitle:              exp.RoleTitle,
		Location:               exp.Location,
		DateStart:              exp.DateStart,
		DateEnd:                exp.DateEnd,
		IsCurrent:              exp.IsCurrent,
		OrganizationConfidence: exp.CompanyConfidence,
		DatesConfidence:        exp.DatesConfidence,
		Bullets:                exp.Bullets,
		DomainTags:             exp.DomainTags,
		SkillTags:              exp.SkillTags,
		Embedding:              exp.Embedding,
		NeedsReview:            exp.NeedsReview,
		ReviewReason:           exp.ReviewReason,
	}
}
