package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/artem13815/cv-tailor/api/http/presenter"
	"github.com/artem13815/cv-tailor/pkg/pool"
)

// PoolHandler обслуживает пул опыта: чтение, правки, удаления,
// переклассификацию и пересчёт эмбеддингов.
type PoolHandler struct {
	svc          *pool.Service
	repo         pool.Repository
	reclassifier *pool.Reclassifier
}

func NewPoolHandler(svc *pool.Service, repo pool.Repository, reclassifier *pool.Reclassifier) *PoolHandler {
	return &PoolHandler{svc: svc, repo: repo, reclassifier: reclassifier}
}

// Get возвращает весь пул владельца, сгруппированный по вариантам.
// @Summary Пул опыта
// @Tags    Пул опыта
// @Produce json
// @Security BearerAuth
// @Success 200 {object} pool.View
// @Failure 401 {object} presenter.ErrorResponse
// @Router  /pool [get]
func (h *PoolHandler) Get(c *fiber.Ctx) error {
	ownerID, ok := currentUserID(c)
	if !ok {
		return presenter.Error(c, http.StatusUnauthorized, "не удалось определить пользователя")
	}
	view, err := h.svc.ViewForOwner(c.Context(), ownerID)
	if err != nil {
		return presenter.Error(c, http.StatusInternalServerError, "failed to load pool")
	}
	return presenter.JSON(c, http.StatusOK, view)
}

// UpdateExperience применяет правку записи об опыте и снимает флаг ревью.
// @Summary Обновить запись об опыте
// @Tags    Пул опыта
// @Accept  json
// @Produce json
// @Param   id path string true "id записи"
// @Param   input body pool.Experience true "обновлённые поля"
// @Security BearerAuth
// @Success 200 {object} pool.Experience
// @Failure 400 {object} presenter.ErrorResponse
// @Failure 404 {object} presenter.ErrorResponse
// @Router  /pool/experiences/{id} [put]
func (h *PoolHandler) UpdateExperience(c *fiber.Ctx) error {
	ownerID, ok := currentUserID(c)
	if !ok {
		return presenter.Error(c, http.StatusUnauthorized, "не удалось определить пользователя")
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return presenter.Error(c, http.StatusBadRequest, "invalid id")
	}
	var req pool.Experience
	if err := c.BodyParser(&req); err != nil {
		return presenter.Error(c, http.StatusBadRequest, "invalid JSON payload")
	}
	req.ID = id
	req.OwnerID = ownerID
	updated, err := h.svc.UpdateExperience(c.Context(), req)
	if err != nil {
		if errors.Is(err, pool.ErrNotFound) {
			return presenter.Error(c, http.StatusNotFound, "record not found")
		}
		return presenter.Error(c, http.StatusInternalServerError, "failed to update record")
	}
	return presenter.JSON(c, http.StatusOK, updated)
}

// UpdateActivity применяет правку активности.
// @Summary Обновить активность
// @Tags    Пул опыта
// @Accept  json
// @Produce json
// @Param   id path string true "id записи"
// @Param   input body pool.Activity true "обновлённые поля"
// @Security BearerAuth
// @Success 200 {object} pool.Activity
// @Failure 400 {object} presenter.ErrorResponse
// @Failure 404 {object} presenter.ErrorResponse
// @Router  /pool/activities/{id} [put]
func (h *PoolHandler) UpdateActivity(c *fiber.Ctx) error {
	ownerID, ok := currentUserID(c)
	if !ok {
		return presenter.Error(c, http.StatusUnauthorized, "не удалось определить пользователя")
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return presenter.Error(c, http.StatusBadRequest, "invalid id")
	}
	var req pool.Activity
	if err := c.BodyParser(&req); err != nil {
		return presenter.Error(c, http.StatusBadRequest, "invalid JSON payload")
	}
	req.ID = id
	req.OwnerID = ownerID
	updated, err := h.svc.UpdateActivity(c.Context(), req)
	if err != nil {
		if errors.Is(err, pool.ErrNotFound) {
			return presenter.Error(c, http.StatusNotFound, "record not found")
		}
		return presenter.Error(c, http.StatusInternalServerError, "failed to update record")
	}
	return presenter.JSON(c, http.StatusOK, updated)
}

// Delete удаляет запись пула указанной категории.
// @Summary Удалить запись пула
// @Tags    Пул опыта
// @Produce json
// @Param   category path string true "категория" Enums(experiences, activities, projects, education, skills)
// @Param   id path string true "id записи"
// @Security BearerAuth
// @Success 204 {string} string ""
// @Failure 400 {object} presenter.ErrorResponse
// @Failure 404 {object} presenter.ErrorResponse
// @Router  /pool/{category}/{id} [delete]
func (h *PoolHandler) Delete(c *fiber.Ctx) error {
	ownerID, ok := currentUserID(c)
	if !ok {
		return presenter.Error(c, http.StatusUnauthorized, "не удалось определить пользователя")
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return presenter.Error(c, http.StatusBadRequest, "invalid id")
	}
	switch c.Params("category") {
	case "experiences":
		err = h.svc.DeleteExperience(c.Context(), ownerID, id)
	case "activities":
		err = h.svc.DeleteActivity(c.Context(), ownerID, id)
	case "projects":
		err = h.svc.DeleteProject(c.Context(), ownerID, id)
	case "education":
		err = h.repo.DeleteEducationForOwner(c.Context(), ownerID, id)
	case "skills":
		err = h.repo.DeleteSkillForOwner(c.Context(), ownerID, id)
	default:
		return presenter.Error(c, http.StatusBadRequest, "unknown category")
	}
	if err != nil {
		if errors.Is(err, pool.ErrNotFound) {
			return presenter.Error(c, http.StatusNotFound, "record not found")
		}
		return presenter.Error(c, http.StatusInternalServerError, "failed to delete record")
	}
	return c.SendStatus(http.StatusNoContent)
}

type reclassifyRequest struct {
	ExperienceIDs []uuid.UUID `json:"experienceIds"`
}

// Reclassify переносит записи об опыте работы в активности.
// @Summary Переклассифицировать опыт в активности
// @Description Каждая запись мигрирует независимо; ошибки отдельных записей не прерывают остальные.
// @Tags    Пул опыта
// @Accept  json
// @Produce json
// @Param   input body reclassifyRequest true "id записей об опыте"
// @Security BearerAuth
// @Success 200 {array} pool.ReclassifyResult
// @Failure 400 {object} presenter.ErrorResponse
// @Router  /pool/reclassify [post]
func (h *PoolHandler) Reclassify(c *fiber.Ctx) error {
	ownerID, ok := currentUserID(c)
	if !ok {
		return presenter.Error(c, http.StatusUnauthorized, "не удалось определить пользователя")
	}
	var req reclassifyRequest
	if err := c.BodyParser(&req); err != nil {
		return presenter.Error(c, http.StatusBadRequest, "invalid JSON payload")
	}
	if len(req.ExperienceIDs) == 0 {
		return presenter.Error(c, http.StatusBadRequest, "experienceIds is required")
	}
	results := h.reclassifier.ReclassifyExperiences(c.Context(), ownerID, req.ExperienceIDs)
	return presenter.JSON(c, http.StatusOK, results)
}

// ReEmbed пересчитывает отсутствующие эмбеддинги записей пула.
// @Summary Пересчитать эмбеддинги
// @Tags    Пул опыта
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]int
// @Failure 401 {object} presenter.ErrorResponse
// @Router  /pool/re-embed [post]
func (h *PoolHandler) ReEmbed(c *fiber.Ctx) error {
	ownerID, ok := currentUserID(c)
	if !ok {
		return presenter.Error(c, http.StatusUnauthorized, "не удалось определить пользователя")
	}
	updated, err := h.svc.ReEmbed(c.Context(), ownerID)
	if err != nil {
		return presenter.Error(c, http.StatusInternalServerError, "failed to re-embed records")
	}
	return presenter.JSON(c, http.StatusOK, fiber.Map{"updated": updated})
}
