package pool

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/artem13815/cv-tailor/pkg/llm"
)

// ExperienceGroup — primary-вариант плюс его история (остальные варианты
// группы). Списки и отбор работают только с primary; варианты нужны UI
// для разворачивания группы.
type ExperienceGroup struct {
	Experience
	Variants []Experience `json:"variants,omitempty"`
}

type ProjectGroup struct {
	Project
	Variants []Project `json:"variants,omitempty"`
}

type ActivityGroup struct {
	Activity
	Variants []Activity `json:"variants,omitempty"`
}

// View — весь пул владельца в сгруппированном виде.
type View struct {
	Experiences []ExperienceGroup `json:"workExperiences"`
	Projects    []ProjectGroup    `json:"projects"`
	Activities  []ActivityGroup   `json:"activities"`
	Education   []Education       `json:"education"`
	Skills      []Skill           `json:"skills"`
}

// Service — чтение и сопровождение пула: сгруппированная выдача, правки
// пользователя, удаления, пересчёт отсутствующих эмбеддингов.
type Service struct {
	repo     Repository
	embedder llm.Embedder
	deduper  *Deduper
}

func NewService(repo Repository, embedder llm.Embedder, deduper *Deduper) *Service {
	return &Service{repo: repo, embedder: embedder, deduper: deduper}
}

// ViewForOwner возвращает пул с primary-вариантами и подсписками вариантов.
// Группа с нарушенным инвариантом (ноль или несколько primary) чинится
// на месте и логируется, а не роняет запрос.
func (s *Service) ViewForOwner(ctx context.Context, ownerID uuid.UUID) (View, error) {
	view := View{
		Experiences: []ExperienceGroup{},
		Projects:    []ProjectGroup{},
		Activities:  []ActivityGroup{},
		Education:   []Education{},
		Skills:      []Skill{},
	}

	exps, err := s.repo.ListExperiencesByOwner(ctx, ownerID)
	if err != nil {
		return View{}, err
	}
	for _, members := range groupBy(exps, func(e Experience) (uuid.UUID, uuid.UUID, bool) {
		return e.ID, e.VariantGroupID, e.IsPrimaryVariant
	}) {
		primary, rest := s.splitPrimary(ctx, ownerID, CategoryExperience, exps[members[0]].VariantGroupID, members, func(i int) Variant {
			e := exps[i]
			return Variant{ID: e.ID, GroupID: e.VariantGroupID, IsPrimary: e.IsPrimaryVariant, Confidence: e.CompanyConfidence, DateStart: e.DateStart, CreatedAt: e.CreatedAt}
		})
		g := ExperienceGroup{Experience: exps[primary]}
		for _, i := range rest {
			g.Variants = append(g.Variants, exps[i])
		}
		view.Experiences = append(view.Experiences, g)
	}
	sortGroups(view.Experiences, func(g ExperienceGroup) (*int64, string) { return startUnix(g.DateStart), g.ID.String() })

	projs, err := s.repo.ListProjectsByOwner(ctx, ownerID)
	if err != nil {
		return View{}, err
	}
	for _, members := range groupBy(projs, func(p Project) (uuid.UUID, uuid.UUID, bool) {
		return p.ID, p.VariantGroupID, p.IsPrimaryVariant
	}) {
		primary, rest := s.splitPrimary(ctx, ownerID, CategoryProject, projs[members[0]].VariantGroupID, members, func(i int) Variant {
			p := projs[i]
			return Variant{ID: p.ID, GroupID: p.VariantGroupID, IsPrimary: p.IsPrimaryVariant, DateStart: p.DateStart, CreatedAt: p.CreatedAt}
		})
		g := ProjectGroup{Project: projs[primary]}
		for _, i := range rest {
			g.Variants = append(g.Variants, projs[i])
		}
		view.Projects = append(view.Projects, g)
	}
	sortGroups(view.Projects, func(g ProjectGroup) (*int64, string) { return startUnix(g.DateStart), g.ID.String() })

	acts, err := s.repo.ListActivitiesByOwner(ctx, ownerID)
	if err != nil {
		return View{}, err
	}
	for _, members := range groupBy(acts, func(a Activity) (uuid.UUID, uuid.UUID, bool) {
		return a.ID, a.VariantGroupID, a.IsPrimaryVariant
	}) {
		primary, rest := s.splitPrimary(ctx, ownerID, CategoryActivity, acts[members[0]].VariantGroupID, members, func(i int) Variant {
			a := acts[i]
			return Variant{ID: a.ID, GroupID: a.VariantGroupID, IsPrimary: a.IsPrimaryVariant, Confidence: a.OrganizationConfidence, DateStart: a.DateStart, CreatedAt: a.CreatedAt}
		})
		g := ActivityGroup{Activity: acts[primary]}
		for _, i := range rest {
			g.Variants = append(g.Variants, acts[i])
		}
		view.Activities = append(view.Activities, g)
	}
	sortGroups(view.Activities, func(g ActivityGroup) (*int64, string) { return startUnix(g.DateStart), g.ID.String() })

	edu, err := s.repo.ListEducationByOwner(ctx, ownerID)
	if err != nil {
		return View{}, err
	}
	view.Education = append(view.Education, edu...)
	skills, err := s.repo.ListSkillsByOwner(ctx, ownerID)
	if err != nil {
		return View{}, err
	}
	view.Skills = append(view.Skills, skills...)
	return view, nil
}

// UpdateExperience применяет правку пользователя и снимает флаг ревью.
func (s *Service) UpdateExperience(ctx context.Context, e Experience) (Experience, error) {
	current, err := s.repo.GetExperienceForOwner(ctx, e.OwnerID, e.ID)
	if err != nil {
		return Experience{}, err
	}
	current.Company = e.Company
	current.RoleTitle = e.RoleTitle
	current.Location = e.Location
	current.DateStart = e.DateStart
	current.DateEnd = e.DateEnd
	current.IsCurrent = e.IsCurrent
	current.Bullets = e.Bullets
	current.DomainTags = e.DomainTags
	current.SkillTags = e.SkillTags
	current.NeedsReview = false
	current.ReviewReason = ""
	if err := s.repo.UpdateExperienceForOwner(ctx, current); err != nil {
		return Experience{}, err
	}
	return current, nil
}

// UpdateActivity — то же для активности.
func (s *Service) UpdateActivity(ctx context.Context, a Activity) (Activity, error) {
	current, err := s.repo.GetActivityForOwner(ctx, a.OwnerID, a.ID)
	if err != nil {
		return Activity{}, err
	}
	current.Organization = a.Organization
	current.RoleTitle = a.RoleTitle
	current.Location = a.Location
	current.DateStart = a.DateStart
	current.DateEnd = a.DateEnd
	current.IsCurrent = a.IsCurrent
	current.Bullets = a.Bullets
	current.DomainTags = a.DomainTags
	current.SkillTags = a.SkillTags
	current.NeedsReview = false
	current.ReviewReason = ""
	if err := s.repo.UpdateActivityForOwner(ctx, current); err != nil {
		return Activity{}, err
	}
	return current, nil
}

// DeleteExperience удаляет запись и переизбирает primary её группы.
func (s *Service) DeleteExperience(ctx context.Context, ownerID, id uuid.UUID) error {
	current, err := s.repo.GetExperienceForOwner(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteExperienceForOwner(ctx, ownerID, id); err != nil {
		return err
	}
	s.repairAfterRemoval(ctx, ownerID, CategoryExperience, current.VariantGroupID)
	return nil
}

// DeleteActivity — то же для активности.
func (s *Service) DeleteActivity(ctx context.Context, ownerID, id uuid.UUID) error {
	current, err := s.repo.GetActivityForOwner(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteActivityForOwner(ctx, ownerID, id); err != nil {
		return err
	}
	s.repairAfterRemoval(ctx, ownerID, CategoryActivity, current.VariantGroupID)
	return nil
}

// DeleteProject — то же для проекта.
func (s *Service) DeleteProject(ctx context.Context, ownerID, id uuid.UUID) error {
	current, err := s.repo.GetProjectForOwner(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteProjectForOwner(ctx, ownerID, id); err != nil {
		return err
	}
	s.repairAfterRemoval(ctx, ownerID, CategoryProject, current.VariantGroupID)
	return nil
}

// repairAfterRemoval переизбирает primary группы, потерявшей участника.
// Удаление уже состоялось, поэтому ошибка починки только логируется.
func (s *Service) repairAfterRemoval(ctx context.Context, ownerID uuid.UUID, cat Category, groupID uuid.UUID) {
	if groupID == uuid.Nil || s.deduper == nil {
		return
	}
	if err := s.deduper.RepairGroup(ctx, ownerID, cat, groupID); err != nil {
		log.Printf("pool: repair of group %s (%s) after removal failed: %v", groupID, cat, err)
	}
}

// ReEmbed пересчитывает эмбеддинги записей, у которых их нет (после сбоев
// эмбеддера при загрузке). Возвращает число обновлённых записей.
func (s *Service) ReEmbed(ctx context.Context, ownerID uuid.UUID) (int, error) {
	updated := 0

	exps, err := s.repo.ListExperiencesByOwner(ctx, ownerID)
	if err != nil {
		return updated, err
	}
	for _, e := range exps {
		if len(e.Embedding) > 0 {
			continue
		}
		emb, err := s.embedder.Embed(ctx, embeddingInput(e.Company, e.RoleTitle, e.Bullets))
		if err != nil {
			return updated, err
		}
		if err := s.repo.SetEmbedding(ctx, CategoryExperience, e.ID, emb); err != nil {
			return updated, err
		}
		updated++
	}

	projs, err := s.repo.ListProjectsByOwner(ctx, ownerID)
	if err != nil {
		return updated, err
	}
	for _, p := range projs {
		if len(p.Embedding) > 0 {
			continue
		}
		emb, err := s.embedder.Embed(ctx, embeddingInput(p.Name, p.Description, p.Bullets))
		if err != nil {
			return updated, err
		}
		if err := s.repo.SetEmbedding(ctx, CategoryProject, p.ID, emb); err != nil {
			return updated, err
		}
		updated++
	}

	acts, err := s.repo.ListActivitiesByOwner(ctx, ownerID)
	if err != nil {
		return updated, err
	}
	for _, a := range acts {
		if len(a.Embedding) > 0 {
			continue
		}
		emb, err := s.embedder.Embed(ctx, embeddingInput(a.Organization, a.RoleTitle, a.Bullets))
		if err != nil {
			return updated, err
		}
		if err := s.repo.SetEmbedding(ctx, CategoryActivity, a.ID, emb); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

// groupBy раскладывает индексы записей по группам вариантов; запись без
// группы (uuid.Nil) образует группу из одной себя.
func groupBy[T any](items []T, key func(T) (id, group uuid.UUID, primary bool)) [][]int {
	byGroup := map[uuid.UUID][]int{}
	var order []uuid.UUID
	for i, item := range items {
		id, group, _ := key(item)
		if group == uuid.Nil {
			group = id
		}
		if _, ok := byGroup[group]; !ok {
			order = append(order, group)
		}
		byGroup[group] = append(byGroup[group], i)
	}
	out := make([][]int, 0, len(order))
	for _, g := range order {
		out = append(out, byGroup[g])
	}
	return out
}

// splitPrimary находит primary группы; при нарушении инварианта выбирает
// детерминированно и запускает починку группы.
func (s *Service) splitPrimary(ctx context.Context, ownerID uuid.UUID, cat Category, groupID uuid.UUID, members []int, variant func(int) Variant) (primary int, rest []int) {
	primaries := 0
	primary = members[0]
	for _, i := range members {
		if variant(i).IsPrimary {
			if primaries == 0 {
				primary = i
			}
			primaries++
		}
	}
	if len(members) > 1 && primaries != 1 {
		log.Printf("pool: group %s (%s) has %d primaries, repairing", groupID, cat, primaries)
		best := variant(members[0])
		primary = members[0]
		for _, i := range members[1:] {
			if v := variant(i); moreSenior(v, best) {
				best = v
				primary = i
			}
		}
		if s.deduper != nil {
			if err := s.deduper.RepairGroup(ctx, ownerID, cat, best.GroupID); err != nil {
				log.Printf("pool: repair of group %s failed: %v", groupID, err)
			}
		}
	}
	for _, i := range members {
		if i != primary {
			rest = append(rest, i)
		}
	}
	return primary, rest
}

func startUnix(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	u := t.Unix()
	return &u
}

// sortGroups упорядочивает группы: более поздний старт выше, без даты — в
// конец, ничьи решает id.
func sortGroups[T any](groups []T, key func(T) (*int64, string)) {
	sort.SliceStable(groups, func(i, j int) bool {
		si, idi := key(groups[i])
		sj, idj := key(groups[j])
		switch {
		case si == nil && sj == nil:
			return idi < idj
		case si == nil:
			return false
		case sj == nil:
			return true
		case *si != *sj:
			return *si > *sj
		default:
			return idi < idj
		}
	})
}
