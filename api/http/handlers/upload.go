package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/artem13815/cv-tailor/api/http/presenter"
	"github.com/artem13815/cv-tailor/pkg/pool"
)

// UploadHandler принимает CV и прогоняет его через пайплайн разбора.
type UploadHandler struct {
	ingest   *pool.IngestService
	maxBytes int64
}

func NewUploadHandler(ingest *pool.IngestService) *UploadHandler {
	return &UploadHandler{
		ingest:   ingest,
		maxBytes: 15 << 20, // 15MB
	}
}

// Upload загружает CV, разбирает его и пополняет пул опыта.
// @Summary Загрузить CV
// @Description Принимает PDF/DOCX, извлекает записи и дедуплицирует их против пула.
// @Tags        Пул опыта
// @Accept      multipart/form-data
// @Produce     json
// @Param       file formData file true "Файл CV (PDF/DOCX)"
// @Security    BearerAuth
// @Success     201 {object} pool.ParseSummary
// @Failure     400 {object} presenter.ErrorResponse
// @Failure     401 {object} presenter.ErrorResponse
// @Failure     422 {object} presenter.ErrorResponse
// @Failure     500 {object} presenter.ErrorResponse
// @Router      /pool/upload [post]
func (h *UploadHandler) Upload(c *fiber.Ctx) error {
	ownerID, ok := currentUserID(c)
	if !ok {
		return presenter.Error(c, http.StatusUnauthorized, "не удалось определить пользователя")
	}
	fh, err := c.FormFile("file")
	if err != nil || fh == nil {
		return presenter.Error(c, http.StatusBadRequest, "file is required (pdf or docx)")
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if ext != ".pdf" && ext != ".docx" {
		return presenter.Error(c, http.StatusBadRequest, "unsupported file format: only pdf and docx are allowed")
	}
	file, err := fh.Open()
	if err != nil {
		return presenter.Error(c, http.StatusBadRequest, "failed to open uploaded file")
	}
	defer file.Close()
	data, err := readAtMost(file, h.maxBytes)
	if err != nil {
		return presenter.Error(c, http.StatusBadRequest, err.Error())
	}

	summary, err := h.ingest.Upload(c.Context(), ownerID, fh.Filename, data)
	if err != nil {
		if errors.Is(err, pool.ErrNotCV) {
			return presenter.Error(c, http.StatusUnprocessableEntity, "загруженный файл не похож на CV")
		}
		return presenter.Error(c, http.StatusInternalServerError, fmt.Sprintf("failed to process CV: %v", err))
	}
	return presenter.JSON(c, http.StatusCreated, summary)
}
