package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/artem13815/cv-tailor/api/http/presenter"
	"github.com/artem13815/cv-tailor/pkg/application"
	"github.com/artem13815/cv-tailor/pkg/tailor"
)

// TailorHandler запускает подбор CV под отклик.
type TailorHandler struct {
	useCase tailor.UseCase
}

func NewTailorHandler(useCase tailor.UseCase) *TailorHandler {
	return &TailorHandler{useCase: useCase}
}

// Run разбирает вакансию и собирает новую CV-версию.
// @Summary Запустить подбор CV
// @Description Разбирает описание вакансии, определяет домен роли и отбирает записи пула. Один запуск на пользователя за раз.
// @Tags    Подбор
// @Produce json
// @Param   id path string true "id отклика"
// @Security BearerAuth
// @Success 201 {object} application.CvVersion
// @Failure 400 {object} presenter.ErrorResponse
// @Failure 404 {object} presenter.ErrorResponse
// @Failure 409 {object} presenter.ErrorResponse
// @Router  /applications/{id}/tailor [post]
func (h *TailorHandler) Run(c *fiber.Ctx) error {
	ownerID, ok := currentUserID(c)
	if !ok {
		return presenter.Error(c, http.StatusUnauthorized, "не удалось определить пользователя")
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return presenter.Error(c, http.StatusBadRequest, "invalid id")
	}
	version, err := h.useCase.Run(c.Context(), ownerID, id)
	if err != nil {
		var verr application.ErrValidation
		switch {
		case errors.Is(err, tailor.ErrRunInProgress):
			return presenter.Error(c, http.StatusConflict, "подбор уже выполняется, дождитесь завершения")
		case errors.Is(err, application.ErrNotFound):
			return presenter.Error(c, http.StatusNotFound, "application not found")
		case errors.As(err, &verr):
			return presenter.Error(c, http.StatusBadRequest, verr.Error())
		default:
			return presenter.Error(c, http.StatusInternalServerError, fmt.Sprintf("tailoring failed: %v", err))
		}
	}
	return presenter.JSON(c, http.StatusCreated, version)
}

type selectionRequest struct {
	ExperienceIDs []uuid.UUID `json:"experienceIds"`
	ProjectIDs    []uuid.UUID `json:"projectIds"`
	ActivityIDs   []uuid.UUID `json:"activityIds"`
	EducationIDs  []uuid.UUID `json:"educationIds"`
	SkillIDs      []uuid.UUID `json:"skillIds"`
}

// ApplySelection пересчитывает последнюю CV-версию с ручным выбором.
// Отсутствующее поле (null) оставляет категорию на автоматическом отборе,
// пустой список выключает категорию.
// @Summary Применить ручной выбор
// @Tags    Подбор
// @Accept  json
// @Produce json
// @Param   id path string true "id отклика"
// @Param   input body selectionRequest true "закреплённые записи по категориям"
// @Security BearerAuth
// @Success 200 {object} application.CvVersion
// @Failure 400 {object} presenter.ErrorResponse
// @Failure 404 {object} presenter.ErrorResponse
// @Router  /applications/{id}/selection [post]
func (h *TailorHandler) ApplySelection(c *fiber.Ctx) error {
	ownerID, ok := currentUserID(c)
	if !ok {
		return presenter.Error(c, http.StatusUnauthorized, "не удалось определить пользователя")
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return presenter.Error(c, http.StatusBadRequest, "invalid id")
	}
	var req selectionRequest
	if err := c.BodyParser(&req); err != nil {
		return presenter.Error(c, http.StatusBadRequest, "invalid JSON payload")
	}
	version, err := h.useCase.ApplyPinned(c.Context(), ownerID, id, tailor.Pinned{
		Experiences: req.ExperienceIDs,
		Projects:    req.ProjectIDs,
		Activities:  req.ActivityIDs,
		Education:   req.EducationIDs,
		Skills:      req.SkillIDs,
	})
	if err != nil {
		if errors.Is(err, application.ErrNoVersion) {
			return presenter.Error(c, http.StatusNotFound, "no cv version yet, run tailoring first")
		}
		return presenter.Error(c, http.StatusInternalServerError, "failed to apply selection")
	}
	return presenter.JSON(c, http.StatusOK, version)
}
