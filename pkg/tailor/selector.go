package tailor

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/artem13815/cv-tailor/pkg/nlp"
	"github.com/artem13815/cv-tailor/pkg/vec"
)

// Candidate — primary-вариант записи пула с тем, что нужно для ранжирования.
type Candidate struct {
	ID        uuid.UUID
	DateStart *time.Time
	Embedding []float32
}

// SkillCandidate — навык для сквозного пропуска; имя нужно, чтобы поставить
// релевантные JD навыки в начало списка.
type SkillCandidate struct {
	ID   uuid.UUID
	Name string
}

// Pool — дедуплицированный пул владельца (только primary-варианты).
type Pool struct {
	Experiences []Candidate
	Projects    []Candidate
	Activities  []Candidate
	Education   []uuid.UUID
	Skills      []SkillCandidate
}

// Pinned — явный выбор пользователя из интерактивного пикера. Не-nil срез
// отключает автоматическое ранжирование категории (лимит всё равно действует).
type Pinned struct {
	Experiences []uuid.UUID
	Projects    []uuid.UUID
	Activities  []uuid.UUID
	Education   []uuid.UUID
	Skills      []uuid.UUID
}

// SelectionResult — упорядоченные списки id, готовые для шага переписывания.
type SelectionResult struct {
	ExperienceIDs []uuid.UUID `json:"experienceIds"`
	ProjectIDs    []uuid.UUID `json:"projectIds"`
	ActivityIDs   []uuid.UUID `json:"activityIds"`
	EducationIDs  []uuid.UUID `json:"educationIds"`
	SkillIDs      []uuid.UUID `json:"skillIds"`
}

// sectionCaps — лимиты на категорию. Таблица — данные, а не ветвления:
// политика подбора настраиваемая, не бизнес-правило.
type sectionCaps struct {
	Experiences int
	Projects    int
	Activities  int
}

// Лимит опыта работы одинаков для всех доменов: трудовая история — всегда
// главный сигнал. Tech-роли получают больше проектов, consulting/finance —
// больше лидерских активностей.
var capsByDomain = map[Domain]sectionCaps{
	DomainTech:              {Experiences: 6, Projects: 4, Activities: 2},
	DomainConsultingFinance: {Experiences: 6, Projects: 2, Activities: 4},
	DomainOther:             {Experiences: 6, Projects: 3, Activities: 3},
}

// Select отбирает ограниченное ранжированное подмножество пула под эмбеддинг
// описания вакансии. Детерминирован: одинаковый вход — одинаковые списки.
// Пустые категории дают пустые списки, это валидный результат.
func Select(jdEmbedding []float32, domain Domain, pool Pool, pinned Pinned, jdTerms []string) SelectionResult {
	caps, ok := capsByDomain[domain]
	if !ok {
		caps = capsByDomain[DomainOther]
	}
	return SelectionResult{
		ExperienceIDs: pickRanked(jdEmbedding, pool.Experiences, pinned.Experiences, caps.Experiences),
		ProjectIDs:    pickRanked(jdEmbedding, pool.Projects, pinned.Projects, caps.Projects),
		ActivityIDs:   pickRanked(jdEmbedding, pool.Activities, pinned.Activities, caps.Activities),
		EducationIDs:  passThrough(pool.Education, pinned.Education),
		SkillIDs:      orderSkills(pool.Skills, pinned.Skills, jdTerms),
	}
}

func pickRanked(jdEmbedding []float32, candidates []Candidate, pinned []uuid.UUID, cap int) []uuid.UUID {
	if pinned != nil {
		out := append([]uuid.UUID{}, pinned...)
		if len(out) > cap {
			out = out[:cap]
		}
		return out
	}
	type scored struct {
		c            Candidate
		score        float32
		hasEmbedding bool
	}
	ranked := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		s := scored{c: c, hasEmbedding: len(c.Embedding) > 0}
		if s.hasEmbedding {
			s.score = vec.Cosine(jdEmbedding, c.Embedding)
		}
		ranked = append(ranked, s)
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		// records without embedding rank last
		if a.hasEmbedding != b.hasEmbedding {
			return a.hasEmbedding
		}
		if a.score != b.score {
			return a.score > b.score
		}
		return laterStart(a.c, b.c)
	})
	n := len(ranked)
	if n > cap {
		n = cap
	}
	out := make([]uuid.UUID, 0, n)
	for _, s := range ranked[:n] {
		out = append(out, s.c.ID)
	}
	return out
}

// laterStart — стабильный тай-брейк: более поздний date_start, затем id.
func laterStart(a, b Candidate) bool {
	switch {
	case a.DateStart != nil && b.DateStart != nil && !a.DateStart.Equal(*b.DateStart):
		return a.DateStart.After(*b.DateStart)
	case a.DateStart != nil && b.DateStart == nil:
		return true
	case a.DateStart == nil && b.DateStart != nil:
		return false
	}
	return a.ID.String() < b.ID.String()
}

// Образование и навыки не ранжируются по близости: это контекст личности и
// квалификации, он нужен при любом домене роли.
func passThrough(all, pinned []uuid.UUID) []uuid.UUID {
	if pinned != nil {
		return append([]uuid.UUID{}, pinned...)
	}
	if all == nil {
		return []uuid.UUID{}
	}
	return append([]uuid.UUID{}, all...)
}

// orderSkills пропускает все навыки, но ставит совпавшие с терминами JD
// в начало; внутри частей сохраняется исходный порядок.
func orderSkills(skills []SkillCandidate, pinned []uuid.UUID, jdTerms []string) []uuid.UUID {
	if pinned != nil {
		return append([]uuid.UUID{}, pinned...)
	}
	normalized := make([]string, 0, len(jdTerms))
	for _, t := range jdTerms {
		if n := nlp.Normalize(t); n != "" {
			normalized = append(normalized, n)
		}
	}
	matched := make([]uuid.UUID, 0, len(skills))
	rest := make([]uuid.UUID, 0, len(skills))
	for _, s := range skills {
		if skillMatchesJD(s.Name, normalized) {
			matched = append(matched, s.ID)
		} else {
			rest = append(rest, s.ID)
		}
	}
	return append(matched, rest...)
}

func skillMatchesJD(name string, normalizedTerms []string) bool {
	for _, variant := range nlp.SkillVariants(name) {
		for _, term := range normalizedTerms {
			if variant == term || nlp.ContainsPhrase(term, variant) || nlp.ContainsPhrase(variant, term) {
				return true
			}
		}
	}
	return false
}
