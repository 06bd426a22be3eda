package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/artem13815/cv-tailor/api/http/presenter"
	"github.com/artem13815/cv-tailor/pkg/application"
)

// ApplicationHandler обслуживает отклики на вакансии.
type ApplicationHandler struct {
	useCase application.UseCase
}

func NewApplicationHandler(useCase application.UseCase) *ApplicationHandler {
	return &ApplicationHandler{useCase: useCase}
}

type applicationRequest struct {
	Company        string `json:"company"`
	RoleTitle      string `json:"roleTitle"`
	JobDescription string `json:"jobDescription"`
	JobURL         string `json:"jobUrl"`
	Status         string `json:"status"`
	Notes          string `json:"notes"`
}

// Create создаёт отклик в статусе draft.
// @Summary Создать отклик
// @Tags    Отклики
// @Accept  json
// @Produce json
// @Param   input body applicationRequest true "отклик"
// @Security BearerAuth
// @Success 201 {object} application.Application
// @Failure 400 {object} presenter.ErrorResponse
// @Router  /applications [post]
func (h *ApplicationHandler) Create(c *fiber.Ctx) error {
	ownerID, ok := currentUserID(c)
	if !ok {
		return presenter.Error(c, http.StatusUnauthorized, "не удалось определить пользователя")
	}
	var req applicationRequest
	if err := c.BodyParser(&req); err != nil {
		return presenter.Error(c, http.StatusBadRequest, "invalid JSON payload")
	}
	created, err := h.useCase.Create(c.Context(), application.Application{
		OwnerID:        ownerID,
		Company:        req.Company,
		RoleTitle:      req.RoleTitle,
		JobDescription: req.JobDescription,
		JobURL:         req.JobURL,
		Notes:          req.Notes,
	})
	if err != nil {
		var verr application.ErrValidation
		if errors.As(err, &verr) {
			return presenter.Error(c, http.StatusBadRequest, verr.Error())
		}
		return presenter.Error(c, http.StatusInternalServerError, "failed to create application")
	}
	return presenter.JSON(c, http.StatusCreated, created)
}

// List возвращает отклики владельца.
// @Summary Список откликов
// @Tags    Отклики
// @Produce json
// @Param   limit query int false "лимит (по умолчанию 50)"
// @Param   offset query int false "смещение"
// @Security BearerAuth
// @Success 200 {array} application.Application
// @Router  /applications [get]
func (h *ApplicationHandler) List(c *fiber.Ctx) error {
	ownerID, ok := currentUserID(c)
	if !ok {
		return presenter.Error(c, http.StatusUnauthorized, "не удалось определить пользователя")
	}
	limit, offset := parseLimitOffset(c, 50)
	items, err := h.useCase.List(c.Context(), ownerID, limit, offset)
	if err != nil {
		return presenter.Error(c, http.StatusInternalServerError, "failed to list applications")
	}
	if items == nil {
		items = []application.Application{}
	}
	return presenter.JSON(c, http.StatusOK, items)
}

// Get возвращает отклик по id.
// @Summary Отклик
// @Tags    Отклики
// @Produce json
// @Param   id path string true "id отклика"
// @Security BearerAuth
// @Success 200 {object} application.Application
// @Failure 404 {object} presenter.ErrorResponse
// @Router  /applications/{id} [get]
func (h *ApplicationHandler) Get(c *fiber.Ctx) error {
	ownerID, ok := currentUserID(c)
	if !ok {
		return presenter.Error(c, http.StatusUnauthorized, "не удалось определить пользователя")
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return presenter.Error(c, http.StatusBadRequest, "invalid id")
	}
	app, err := h.useCase.GetByID(c.Context(), ownerID, id)
	if err != nil {
		if errors.Is(err, application.ErrNotFound) {
			return presenter.Error(c, http.StatusNotFound, "application not found")
		}
		return presenter.Error(c, http.StatusInternalServerError, "failed to load application")
	}
	return presenter.JSON(c, http.StatusOK, app)
}

// Update правит поля отклика; статус tailoring руками не выставить.
// @Summary Обновить отклик
// @Tags    Отклики
// @Accept  json
// @Produce json
// @Param   id path string true "id отклика"
// @Param   input body applicationRequest true "изменяемые поля"
// @Security BearerAuth
// @Success 200 {object} application.Application
// @Failure 400 {object} presenter.ErrorResponse
// @Failure 404 {object} presenter.ErrorResponse
// @Router  /applications/{id} [put]
func (h *ApplicationHandler) Update(c *fiber.Ctx) error {
	ownerID, ok := currentUserID(c)
	if !ok {
		return presenter.Error(c, http.StatusUnauthorized, "не удалось определить пользователя")
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return presenter.Error(c, http.StatusBadRequest, "invalid id")
	}
	var req applicationRequest
	if err := c.BodyParser(&req); err != nil {
		return presenter.Error(c, http.StatusBadRequest, "invalid JSON payload")
	}
	updated, err := h.useCase.Update(c.Context(), application.Application{
		ID:             id,
		OwnerID:        ownerID,
		Company:        req.Company,
		RoleTitle:      req.RoleTitle,
		JobDescription: req.JobDescription,
		JobURL:         req.JobURL,
		Status:         req.Status,
		Notes:          req.Notes,
	})
	if err != nil {
		var verr application.ErrValidation
		switch {
		case errors.Is(err, application.ErrNotFound):
			return presenter.Error(c, http.StatusNotFound, "application not found")
		case errors.As(err, &verr):
			return presenter.Error(c, http.StatusBadRequest, verr.Error())
		default:
			return presenter.Error(c, http.StatusInternalServerError, "failed to update application")
		}
	}
	return presenter.JSON(c, http.StatusOK, updated)
}

// Delete удаляет отклик и его CV-версии.
// @Summary Удалить отклик
// @Tags    Отклики
// @Produce json
// @Param   id path string true "id отклика"
// @Security BearerAuth
// @Success 204 {string} string ""
// @Failure 404 {object} presenter.ErrorResponse
// @Router  /applications/{id} [delete]
func (h *ApplicationHandler) Delete(c *fiber.Ctx) error {
	ownerID, ok := currentUserID(c)
	if !ok {
		return presenter.Error(c, http.StatusUnauthorized, "не удалось определить пользователя")
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return presenter.Error(c, http.StatusBadRequest, "invalid id")
	}
	if err := h.useCase.Delete(c.Context(), ownerID, id); err != nil {
		if errors.Is(err, application.ErrNotFound) {
			return presenter.Error(c, http.StatusNotFound, "application not found")
		}
		return presenter.Error(c, http.StatusInternalServerError, "failed to delete application")
	}
	return c.SendStatus(http.StatusNoContent)
}

// LatestVersion возвращает последнюю CV-версию отклика.
// @Summary Последняя CV-версия
// @Tags    Отклики
// @Produce json
// @Param   id path string true "id отклика"
// @Security BearerAuth
// @Success 200 {object} application.CvVersion
// @Failure 404 {object} presenter.ErrorResponse
// @Router  /applications/{id}/version [get]
func (h *ApplicationHandler) LatestVersion(c *fiber.Ctx) error {
	ownerID, ok := currentUserID(c)
	if !ok {
		return presenter.Error(c, http.StatusUnauthorized, "не удалось определить пользователя")
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return presenter.Error(c, http.StatusBadRequest, "invalid id")
	}
	version, err := h.useCase.LatestVersion(c.Context(), ownerID, id)
	if err != nil {
		if errors.Is(err, application.ErrNoVersion) {
			return presenter.Error(c, http.StatusNotFound, "no cv version yet")
		}
		return presenter.Error(c, http.StatusInternalServerError, "failed to load cv version")
	}
	return presenter.JSON(c, http.StatusOK, version)
}
