package pool

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/artem13815/cv-tailor/pkg/vec"
)

// Действия, которыми дедупликатор классифицирует новую запись.
const (
	ActionNew           = "new"            // совпадений нет, своя группа
	ActionVariant       = "variant"        // похожая запись, вошла в группу
	ActionNearDuplicate = "near_duplicate" // практически идентичная запись
)

// Result — итог дедупликации одной записи.
type Result struct {
	Action         string    `json:"action"`
	VariantGroupID uuid.UUID `json:"variantGroupId"`
	BestMatchID    uuid.UUID `json:"bestMatchId,omitempty"`
	Similarity     float32   `json:"similarity,omitempty"`
}

// Deduper группирует почти одинаковые записи одной категории в группы
// вариантов и выбирает primary-представителя группы.
type Deduper struct {
	repo      Repository
	threshold float32 // минимальная косинусная близость для "той же сущности"
	nearDup   float32 // порог, выше которого запись считается почти дубликатом
}

func NewDeduper(repo Repository, variantThreshold, nearDuplicateThreshold float32) *Deduper {
	return &Deduper{repo: repo, threshold: variantThreshold, nearDup: nearDuplicateThreshold}
}

// Deduplicate ищет среди записей (owner, category) почти дубликаты записи
// recordID, связывает их в группу вариантов и переназначает primary.
// Запись уже должна быть сохранена. Отсутствующий эмбеддинг не считается
// ошибкой: запись остаётся группой из одной себя (fail open — дедупликация
// никогда не блокирует загрузку).
func (d *Deduper) Deduplicate(ctx context.Context, ownerID uuid.UUID, cat Category, recordID uuid.UUID) (Result, error) {
	var res Result
	err := d.repo.WithCategoryLock(ctx, ownerID, cat, func(ctx context.Context) error {
		variants, err := d.repo.ListVariants(ctx, ownerID, cat)
		if err != nil {
			return err
		}
		rec, others, ok := splitVariants(variants, recordID)
		if !ok {
			return fmt.Errorf("deduplicate %s %s: %w", cat, recordID, ErrNotFound)
		}

		if len(rec.Embedding) == 0 {
			log.Printf("dedup: %s %s has no embedding, keeping singleton group", cat, recordID)
			res = Result{Action: ActionNew, VariantGroupID: singletonGroup(rec)}
			if err := d.repo.ApplyVariantUpdates(ctx, cat, []VariantUpdate{
				{ID: rec.ID, GroupID: res.VariantGroupID, IsPrimary: true},
			}); err != nil {
				return err
			}
			return d.revalidateGroup(ctx, ownerID, cat, res.VariantGroupID)
		}

		var matches []Variant
		var bestMatch Variant
		var bestScore float32
		for _, o := range others {
			score := vec.Cosine(rec.Embedding, o.Embedding)
			if score < d.threshold {
				continue
			}
			matches = append(matches, o)
			if score > bestScore {
				bestScore = score
				bestMatch = o
			}
		}

		if len(matches) == 0 {
			res = Result{Action: ActionNew, VariantGroupID: singletonGroup(rec)}
			if err := d.repo.ApplyVariantUpdates(ctx, cat, []VariantUpdate{
				{ID: rec.ID, GroupID: res.VariantGroupID, IsPrimary: true},
			}); err != nil {
				return err
			}
			return d.revalidateGroup(ctx, ownerID, cat, res.VariantGroupID)
		}

		target := d.targetGroup(rec, matches, variants)
		members := groupMembers(rec, matches, variants)
		primary := mostSenior(members)

		updates := make([]VariantUpdate, 0, len(members))
		for _, m := range members {
			updates = append(updates, VariantUpdate{ID: m.ID, GroupID: target, IsPrimary: m.ID == primary.ID})
		}
		if err := d.repo.ApplyVariantUpdates(ctx, cat, updates); err != nil {
			return err
		}

		action := ActionVariant
		if bestScore >= d.nearDup {
			action = ActionNearDuplicate
		}
		res = Result{Action: action, VariantGroupID: target, BestMatchID: bestMatch.ID, Similarity: bestScore}
		return d.revalidateGroup(ctx, ownerID, cat, target)
	})
	return res, err
}

// targetGroup выбирает id группы для (rec + matches). Если совпавшие записи
// состоят в нескольких разных группах, все они сливаются в группу самого
// "старшего" из существующих primary; без существующих групп берётся id
// самой записи.
func (d *Deduper) targetGroup(rec Variant, matches, all []Variant) uuid.UUID {
	groups := map[uuid.UUID]struct{}{}
	for _, m := range matches {
		if m.GroupID != uuid.Nil {
			groups[m.GroupID] = struct{}{}
		}
	}
	switch len(groups) {
	case 0:
		return singletonGroup(rec)
	case 1:
		for g := range groups {
			return g
		}
	}
	// merge of 2+ pre-existing groups
	var winner Variant
	found := false
	for _, v := range all {
		if _, ok := groups[v.GroupID]; !ok || !v.IsPrimary {
			continue
		}
		if !found || moreSenior(v, winner) {
			winner = v
			found = true
		}
	}
	if found {
		return winner.GroupID
	}
	// degenerate: merged groups without a primary; deterministic fallback
	var min uuid.UUID
	for g := range groups {
		if min == uuid.Nil || g.String() < min.String() {
			min = g
		}
	}
	return min
}

// RepairGroup пересчитывает primary группы: вызывается, когда обнаружена
// группа с нулём или несколькими primary (InvalidState), и после слияний.
func (d *Deduper) RepairGroup(ctx context.Context, ownerID uuid.UUID, cat Category, groupID uuid.UUID) error {
	variants, err := d.repo.ListVariants(ctx, ownerID, cat)
	if err != nil {
		return err
	}
	var members []Variant
	for _, v := range variants {
		if v.GroupID == groupID {
			members = append(members, v)
		}
	}
	if len(members) == 0 {
		return nil
	}
	primary := mostSenior(members)
	updates := make([]VariantUpdate, 0, len(members))
	for _, m := range members {
		updates = append(updates, VariantUpdate{ID: m.ID, GroupID: groupID, IsPrimary: m.ID == primary.ID})
	}
	return d.repo.ApplyVariantUpdates(ctx, cat, updates)
}

// revalidateGroup проверяет инвариант "ровно один primary на группу" после
// записи и чинит группу при нарушении (например, после конкурентного слияния).
func (d *Deduper) revalidateGroup(ctx context.Context, ownerID uuid.UUID, cat Category, groupID uuid.UUID) error {
	variants, err := d.repo.ListVariants(ctx, ownerID, cat)
	if err != nil {
		return err
	}
	primaries := 0
	total := 0
	for _, v := range variants {
		if v.GroupID != groupID {
			continue
		}
		total++
		if v.IsPrimary {
			primaries++
		}
	}
	if total == 0 || primaries == 1 {
		return nil
	}
	log.Printf("dedup: group %s (%s) has %d primaries, repairing", groupID, cat, primaries)
	return d.RepairGroup(ctx, ownerID, cat, groupID)
}

// singletonGroup возвращает id группы для записи без совпадений: уже
// назначенная группа сохраняется (идемпотентность), иначе — собственный id.
func singletonGroup(rec Variant) uuid.UUID {
	if rec.GroupID != uuid.Nil {
		return rec.GroupID
	}
	return rec.ID
}

func splitVariants(variants []Variant, recordID uuid.UUID) (rec Variant, others []Variant, ok bool) {
	others = make([]Variant, 0, len(variants))
	for _, v := range variants {
		if v.ID == recordID {
			rec = v
			ok = true
			continue
		}
		others = append(others, v)
	}
	return rec, others, ok
}

// groupMembers собирает полный состав будущей группы: сама запись, все
// совпавшие записи и все участники их существующих групп (чтобы слияние
// никого молча не потеряло).
func groupMembers(rec Variant, matches, all []Variant) []Variant {
	groups := map[uuid.UUID]struct{}{}
	byID := map[uuid.UUID]Variant{rec.ID: rec}
	for _, m := range matches {
		byID[m.ID] = m
		if m.GroupID != uuid.Nil {
			groups[m.GroupID] = struct{}{}
		}
	}
	for _, v := range all {
		if _, ok := groups[v.GroupID]; ok {
			byID[v.ID] = v
		}
	}
	members := make([]Variant, 0, len(byID))
	for _, v := range byID {
		members = append(members, v)
	}
	return members
}

// mostSenior выбирает primary детерминированно: выше уверенность извлечения,
// затем более поздний date_start, затем более ранний created_at.
func mostSenior(members []Variant) Variant {
	best := members[0]
	for _, m := range members[1:] {
		if moreSenior(m, best) {
			best = m
		}
	}
	return best
}

func moreSenior(a, b Variant) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	switch {
	case a.DateStart != nil && b.DateStart != nil && !a.DateStart.Equal(*b.DateStart):
		return a.DateStart.After(*b.DateStart)
	case a.DateStart != nil && b.DateStart == nil:
		return true
	case a.DateStart == nil && b.DateStart != nil:
		return false
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}
