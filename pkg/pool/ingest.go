package pool

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/artem13815/cv-tailor/pkg/llm"
	"github.com/artem13815/cv-tailor/pkg/nlp"
)

// ParseSummary — итог загрузки одного CV.
type ParseSummary struct {
	UploadID    uuid.UUID `json:"uploadId"`
	Experiences int       `json:"experiences"`
	Education   int       `json:"education"`
	Projects    int       `json:"projects"`
	Activities  int       `json:"activities"`
	Skills      int       `json:"skills"`
	NeedsReview int       `json:"needsReview"`
	Duplicates  []Result  `json:"duplicates,omitempty"`
}

// IngestService — конвейер загрузки CV: извлечение текста, структурирование
// через LLM, сохранение записей с эмбеддингами и дедупликация каждой вставки.
type IngestService struct {
	repo            Repository
	structurer      *Structurer
	embedder        llm.Embedder
	deduper         *Deduper
	reviewThreshold float32
}

func NewIngestService(repo Repository, structurer *Structurer, embedder llm.Embedder, deduper *Deduper, reviewThreshold float32) *IngestService {
	return &IngestService{
		repo:            repo,
		structurer:      structurer,
		embedder:        embedder,
		deduper:         deduper,
		reviewThreshold: reviewThreshold,
	}
}

// Upload прогоняет файл через весь конвейер. Ошибка эмбеддинга или
// дедупликации отдельной записи не роняет загрузку: запись остаётся без
// эмбеддинга / группой из одной себя.
func (s *IngestService) Upload(ctx context.Context, ownerID uuid.UUID, filename string, data []byte) (ParseSummary, error) {
	text, err := ExtractText(filename, data)
	if err != nil {
		return ParseSummary{}, err
	}
	if strings.TrimSpace(text) == "" {
		return ParseSummary{}, fmt.Errorf("could not extract text from %q", filename)
	}

	upload := Upload{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		Filename:      filename,
		FileType:      strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), "."),
		RawText:       text,
		ParsingStatus: ParsingPending,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.repo.CreateUpload(ctx, upload); err != nil {
		return ParseSummary{}, err
	}

	parsed, err := s.structurer.Structure(ctx, text)
	if err != nil {
		_ = s.repo.SetUploadStatus(ctx, upload.ID, ParsingFailed, err.Error())
		return ParseSummary{}, fmt.Errorf("cv parsing failed: %w", err)
	}
	if !parsed.IsCV {
		reason := parsed.RejectionReason
		if reason == "" {
			reason = "not a CV"
		}
		_ = s.repo.SetUploadStatus(ctx, upload.ID, ParsingFailed, reason)
		return ParseSummary{}, fmt.Errorf("%w: %s", ErrNotCV, reason)
	}

	summary := ParseSummary{UploadID: upload.ID}
	now := time.Now().UTC()

	for _, pe := range parsed.Experiences {
		bullets := NormalizeBullets(pe.Bullets)
		exp := Experience{
			ID:                uuid.New(),
			OwnerID:           ownerID,
			UploadID:          upload.ID,
			Company:           pe.Company,
			RoleTitle:         pe.RoleTitle,
			Location:          pe.Location,
			DateStart:         ParseDate(pe.DateStart),
			DateEnd:           ParseDate(pe.DateEnd),
			IsCurrent:         pe.IsCurrent,
			CompanyConfidence: pe.CompanyConfidence,
			DatesConfidence:   pe.DatesConfidence,
			Bullets:           bullets,
			DomainTags:        pe.DomainTags,
			SkillTags:         pe.SkillTags,
			CreatedAt:         now,
		}
		exp.Embedding = s.embed(ctx, embeddingInput(pe.Company, pe.RoleTitle, bullets))
		if s.flagForReview(pe.CompanyConfidence, pe.DatesConfidence) {
			exp.NeedsReview = true
			exp.ReviewReason = "low extraction confidence"
			summary.NeedsReview++
		}
		if err := s.repo.CreateExperience(ctx, exp); err != nil {
			return summary, err
		}
		summary.Experiences++
		s.dedup(ctx, ownerID, CategoryExperience, exp.ID, &summary)
	}

	for _, pp := range parsed.Projects {
		bullets := NormalizeBullets(pp.Bullets)
		proj := Project{
			ID:          uuid.New(),
			OwnerID:     ownerID,
			UploadID:    upload.ID,
			Name:        pp.Name,
			Description: pp.Description,
			URL:         pp.URL,
			DateStart:   ParseDate(pp.DateStart),
			DateEnd:     ParseDate(pp.DateEnd),
			Bullets:     bullets,
			DomainTags:  pp.DomainTags,
			SkillTags:   pp.SkillTags,
			CreatedAt:   now,
		}
		proj.Embedding = s.embed(ctx, embeddingInput(pp.Name, pp.Description, bullets))
		if err := s.repo.CreateProject(ctx, proj); err != nil {
			return summary, err
		}
		summary.Projects++
		s.dedup(ctx, ownerID, CategoryProject, proj.ID, &summary)
	}

	for _, pa := range parsed.Activities {
		bullets := NormalizeBullets(pa.Bullets)
		act := Activity{
			ID:                     uuid.New(),
			OwnerID:                ownerID,
			UploadID:               upload.ID,
			Organization:           pa.Organization,
			RoleTitle:              pa.RoleTitle,
			Location:               pa.Location,
			DateStart:              ParseDate(pa.DateStart),
			DateEnd:                ParseDate(pa.DateEnd),
			IsCurrent:              pa.IsCurrent,
			OrganizationConfidence: pa.OrganizationConfidence,
			DatesConfidence:        pa.DatesConfidence,
			Bullets:                bullets,
			DomainTags:             pa.DomainTags,
			SkillTags:              pa.SkillTags,
			CreatedAt:              now,
		}
		act.Embedding = s.embed(ctx, embeddingInput(pa.Organization, pa.RoleTitle, bullets))
		if s.flagForReview(pa.OrganizationConfidence, pa.DatesConfidence) {
			act.NeedsReview = true
			act.ReviewReason = "low extraction confidence"
			summary.NeedsReview++
		}
		if err := s.repo.CreateActivity(ctx, act); err != nil {
			return summary, err
		}
		summary.Activities++
		s.dedup(ctx, ownerID, CategoryActivity, act.ID, &summary)
	}

	for _, ped := range parsed.Education {
		edu := Education{
			ID:                    uuid.New(),
			OwnerID:               ownerID,
			UploadID:              upload.ID,
			Institution:           ped.Institution,
			Degree:                ped.Degree,
			Grade:                 ped.Grade,
			Location:              ped.Location,
			DateStart:             ParseDate(ped.DateStart),
			DateEnd:               ParseDate(ped.DateEnd),
			Achievements:          ped.Achievements,
			Modules:               ped.Modules,
			InstitutionConfidence: ped.InstitutionConfidence,
			NeedsReview:           ped.InstitutionConfidence > 0 && ped.InstitutionConfidence < s.reviewThreshold,
			CreatedAt:             now,
		}
		if err := s.repo.CreateEducation(ctx, edu); err != nil {
			return summary, err
		}
		summary.Education++
	}

	if err := s.storeSkills(ctx, ownerID, parsed.Skills, now, &summary); err != nil {
		return summary, err
	}

	if err := s.repo.SetUploadStatus(ctx, upload.ID, ParsingComplete, ""); err != nil {
		return summary, err
	}
	return summary, nil
}

// storeSkills схлопывает дубликаты навыков по нормализованному имени —
// и внутри загрузки, и против уже существующих навыков владельца.
func (s *IngestService) storeSkills(ctx context.Context, ownerID uuid.UUID, skills []ParsedSkill, now time.Time, summary *ParseSummary) error {
	existing, err := s.repo.ListSkillsByOwner(ctx, ownerID)
	if err != nil {
		return err
	}
	seen := map[string]struct{}{}
	for _, sk := range existing {
		seen[nlp.Normalize(sk.Name)] = struct{}{}
	}
	for _, ps := range skills {
		key := nlp.Normalize(ps.Name)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		sk := Skill{
			ID:          uuid.New(),
			OwnerID:     ownerID,
			Name:        ps.Name,
			Category:    ps.Category,
			Proficiency: ps.Proficiency,
			CreatedAt:   now,
		}
		if err := s.repo.CreateSkill(ctx, sk); err != nil {
			return err
		}
		summary.Skills++
	}
	return nil
}

func (s *IngestService) embed(ctx context.Context, input string) []float32 {
	if s.embedder == nil || strings.TrimSpace(input) == "" {
		return nil
	}
	emb, err := s.embedder.Embed(ctx, input)
	if err != nil {
		log.Printf("ingest: embedding failed: %v", err)
		return nil
	}
	return emb
}

func (s *IngestService) flagForReview(confidences ...float32) bool {
	for _, c := range confidences {
		if c > 0 && c < s.reviewThreshold {
			return true
		}
	}
	return false
}

// dedup прогоняет свежесозданную запись через дедупликатор. Ошибка дедупа не
// роняет загрузку: запись остаётся одиночной группой.
func (s *IngestService) dedup(ctx context.Context, ownerID uuid.UUID, cat Category, id uuid.UUID, summary *ParseSummary) {
	res, err := s.deduper.Deduplicate(ctx, ownerID, cat, id)
	if err != nil {
		log.Printf("ingest: dedup of %s %s failed: %v", cat, id, err)
		return
	}
	if res.Action != ActionNew {
		summary.Duplicates = append(summary.Duplicates, res)
	}
}

func embeddingInput(org, title string, bullets []Bullet) string {
	parts := []string{org, title}
	parts = append(parts, BulletTexts(bullets)...)
	return strings.TrimSpace(strings.Join(parts, " "))
}
