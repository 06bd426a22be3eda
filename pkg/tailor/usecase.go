package tailor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/artem13815/cv-tailor/pkg/application"
	"github.com/artem13815/cv-tailor/pkg/llm"
	"github.com/artem13815/cv-tailor/pkg/pool"
)

// ErrRunInProgress — у пользователя уже крутится подбор; клиент должен
// дождаться завершения, а не ставить второй в очередь.
var ErrRunInProgress = errors.New("tailoring run already in progress")

// UseCase — запуск подбора CV под отклик и применение ручного выбора.
type UseCase interface {
	Run(ctx context.Context, ownerID, applicationID uuid.UUID) (application.CvVersion, error)
	ApplyPinned(ctx context.Context, ownerID, applicationID uuid.UUID, pinned Pinned) (application.CvVersion, error)
}

type service struct {
	pool     pool.Repository
	apps     application.Repository
	jd       *JDParser
	embedder llm.Embedder

	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{} // keyed by owner
}

func NewService(poolRepo pool.Repository, apps application.Repository, jd *JDParser, embedder llm.Embedder) UseCase {
	return &service{
		pool:     poolRepo,
		apps:     apps,
		jd:       jd,
		embedder: embedder,
		inFlight: make(map[uuid.UUID]struct{}),
	}
}

// Run разбирает описание вакансии, классифицирует домен, ранжирует пул и
// сохраняет новую CV-версию. На время работы отклик в статусе tailoring;
// второй одновременный запуск того же пользователя получает ErrRunInProgress.
func (s *service) Run(ctx context.Context, ownerID, applicationID uuid.UUID) (application.CvVersion, error) {
	if !s.acquire(ownerID) {
		return application.CvVersion{}, ErrRunInProgress
	}
	defer s.release(ownerID)

	app, err := s.apps.GetByIDForOwner(ctx, ownerID, applicationID)
	if err != nil {
		return application.CvVersion{}, err
	}
	if app.JobDescription == "" {
		return application.CvVersion{}, application.ErrValidation("application has no job description")
	}

	prevStatus := app.Status
	if err := s.apps.SetStatusForOwner(ctx, ownerID, applicationID, application.StatusTailoring); err != nil {
		return application.CvVersion{}, err
	}
	restore := func() {
		if err := s.apps.SetStatusForOwner(ctx, ownerID, applicationID, prevStatus); err != nil {
			log.Printf("tailor: restore status of %s failed: %v", applicationID, err)
		}
	}

	parsed, err := s.jd.Parse(ctx, app.JobDescription)
	if err != nil {
		restore()
		return application.CvVersion{}, fmt.Errorf("parse job description: %w", err)
	}

	jdEmbedding, err := s.embedder.Embed(ctx, embeddingText(app, parsed))
	if err != nil {
		restore()
		return application.CvVersion{}, fmt.Errorf("embed job description: %w", err)
	}

	candidates, err := s.loadPool(ctx, ownerID)
	if err != nil {
		restore()
		return application.CvVersion{}, err
	}

	domain := ClassifyDomain(app.RoleTitle + " " + parsed.RoleSummary)
	selection := Select(jdEmbedding, domain, candidates, Pinned{}, parsed.Terms())

	version := application.CvVersion{
		ID:                    uuid.New(),
		ApplicationID:         applicationID,
		OwnerID:               ownerID,
		Domain:                string(domain),
		JDSummary:             parsed.RoleSummary,
		RequiredSkills:        parsed.RequiredSkills,
		SelectedExperienceIDs: selection.ExperienceIDs,
		SelectedProjectIDs:    selection.ProjectIDs,
		SelectedActivityIDs:   selection.ActivityIDs,
		SelectedEducationIDs:  selection.EducationIDs,
		SelectedSkillIDs:      selection.SkillIDs,
		JDEmbedding:           jdEmbedding,
		CreatedAt:             time.Now().UTC(),
	}
	if err := s.apps.CreateCvVersion(ctx, version); err != nil {
		restore()
		return application.CvVersion{}, err
	}
	if err := s.apps.SetStatusForOwner(ctx, ownerID, applicationID, application.StatusReview); err != nil {
		log.Printf("tailor: set review status of %s failed: %v", applicationID, err)
	}
	return version, nil
}

// ApplyPinned пересчитывает списки последней CV-версии с учётом явного
// выбора пользователя. LLM не трогаем: эмбеддинг вакансии и домен уже
// сохранены в версии.
func (s *service) ApplyPinned(ctx context.Context, ownerID, applicationID uuid.UUID, pinned Pinned) (application.CvVersion, error) {
	version, err := s.apps.LatestCvVersion(ctx, ownerID, applicationID)
	if err != nil {
		return application.CvVersion{}, err
	}
	candidates, err := s.loadPool(ctx, ownerID)
	if err != nil {
		return application.CvVersion{}, err
	}
	selection := Select(version.JDEmbedding, Domain(version.Domain), candidates, pinned, version.RequiredSkills)
	version.SelectedExperienceIDs = selection.ExperienceIDs
	version.SelectedProjectIDs = selection.ProjectIDs
	version.SelectedActivityIDs = selection.ActivityIDs
	version.SelectedEducationIDs = selection.EducationIDs
	version.SelectedSkillIDs = selection.SkillIDs
	if err := s.apps.UpdateCvVersionSelections(ctx, version); err != nil {
		return application.CvVersion{}, err
	}
	return version, nil
}

// loadPool собирает primary-варианты пула владельца. Запись без группы —
// сама себе primary.
func (s *service) loadPool(ctx context.Context, ownerID uuid.UUID) (Pool, error) {
	var p Pool

	exps, err := s.pool.ListExperiencesByOwner(ctx, ownerID)
	if err != nil {
		return Pool{}, err
	}
	for _, e := range exps {
		if e.IsPrimaryVariant || e.VariantGroupID == uuid.Nil {
			p.Experiences = append(p.Experiences, Candidate{ID: e.ID, DateStart: e.DateStart, Embedding: e.Embedding})
		}
	}

	projs, err := s.pool.ListProjectsByOwner(ctx, ownerID)
	if err != nil {
		return Pool{}, err
	}
	for _, pr := range projs {
		if pr.IsPrimaryVariant || pr.VariantGroupID == uuid.Nil {
			p.Projects = append(p.Projects, Candidate{ID: pr.ID, DateStart: pr.DateStart, Embedding: pr.Embedding})
		}
	}

	acts, err := s.pool.ListActivitiesByOwner(ctx, ownerID)
	if err != nil {
		return Pool{}, err
	}
	for _, a := range acts {
		if a.IsPrimaryVariant || a.VariantGroupID == uuid.Nil {
			p.Activities = append(p.Activities, Candidate{ID: a.ID, DateStart: a.DateStart, Embedding: a.Embedding})
		}
	}

	edu, err := s.pool.ListEducationByOwner(ctx, ownerID)
	if err != nil {
		return Pool{}, err
	}
	for _, e := range edu {
		p.Education = append(p.Education, e.ID)
	}

	skills, err := s.pool.ListSkillsByOwner(ctx, ownerID)
	if err != nil {
		return Pool{}, err
	}
	for _, sk := range skills {
		p.Skills = append(p.Skills, SkillCandidate{ID: sk.ID, Name: sk.Name})
	}
	return p, nil
}

func (s *service) acquire(ownerID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[ownerID]; busy {
		return false
	}
	s.inFlight[ownerID] = struct{}{}
	return true
}

func (s *service) release(ownerID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, ownerID)
}

func embeddingText(app application.Application, parsed ParsedJD) string {
	text := app.RoleTitle + " at " + app.Company + ". " + parsed.RoleSummary
	for _, sk := range parsed.RequiredSkills {
		text += " " + sk
	}
	return text
}
