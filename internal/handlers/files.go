package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/atelierhq/atelier/internal/models"
	"github.com/atelierhq/atelier/internal/services"
	"github.com/atelierhq/atelier/internal/storage"
)

// maxUploadSize limits a single file upload to 50 MiB.
const maxUploadSize = 50 << 20

// FileHandler handles project file endpoints
type FileHandler struct {
	projectService *services.ProjectService
	storage        *storage.Client
	logger         *zap.Logger
}

// NewFileHandler creates a new FileHandler
func NewFileHandler(projectService *services.ProjectService, st *storage.Client, logger *zap.Logger) *FileHandler {
	return &FileHandler{projectService: projectService, storage: st, logger: logger}
}

// Upload stores a multipart file in the project bucket and records a file
// reference on the project document.
func (h *FileHandler) Upload(c *gin.Context) {
	sc, user, ok := currentScope(c)
	if !ok {
		return
	}
	projectID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	// Visibility check first so out-of-scope projects read as not found.
	if _, err := h.projectService.Get(c.Request.Context(), sc, projectID); err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondValidation(c, map[string]string{"file": "a file field is required"})
		return
	}
	if fileHeader.Size > maxUploadSize {
		respondValidation(c, map[string]string{"file": "file exceeds the 50 MiB limit"})
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "unable to read uploaded file")
		return
	}
	defer src.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	name := filepath.Base(fileHeader.Filename)
	key := storage.NewObjectKey(name)

	err = h.storage.PutObject(c.Request.Context(), projectID.Hex(), key, src, fileHeader.Size, contentType)
	if err != nil {
		if errors.Is(err, storage.ErrDisabled) {
			respondError(c, http.StatusServiceUnavailable, "file storage is not configured")
			return
		}
		h.logger.Error("upload object", zap.String("projectId", projectID.Hex()), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "upload failed")
		return
	}

	ref := models.FileRef{
		Key:         key,
		Name:        name,
		Size:        fileHeader.Size,
		ContentType: contentType,
		UploadedBy:  user.ID,
		UploadedAt:  time.Now(),
	}
	if err := h.projectService.AddFileRef(c.Request.Context(), sc, projectID, ref); err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusCreated, ref)
}

// Download streams a stored file to the caller.
func (h *FileHandler) Download(c *gin.Context) {
	sc, _, ok := currentScope(c)
	if !ok {
		return
	}
	projectID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	project, err := h.projectService.Get(c.Request.Context(), sc, projectID)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	key := c.Param("key")
	if len(key) > 0 && key[0] == '/' {
		key = key[1:]
	}
	var ref *models.FileRef
	for i := range project.Files {
		if project.Files[i].Key == key {
			ref = &project.Files[i]
			break
		}
	}
	if ref == nil {
		respondError(c, http.StatusNotFound, "file not found")
		return
	}

	obj, err := h.storage.GetObject(c.Request.Context(), projectID.Hex(), key)
	if err != nil {
		if errors.Is(err, storage.ErrDisabled) {
			respondError(c, http.StatusServiceUnavailable, "file storage is not configured")
			return
		}
		h.logger.Error("get object", zap.String("key", key), zap.Error(err))
		respondError(c, http.StatusNotFound, "file not found")
		return
	}
	defer obj.Reader.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ref.Name))
	c.DataFromReader(http.StatusOK, obj.Size, obj.ContentType, obj.Reader, nil)
}

// Delete removes a stored file and its reference on the project.
func (h *FileHandler) Delete(c *gin.Context) {
	sc, _, ok := currentScope(c)
	if !ok {
		return
	}
	projectID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	key := c.Param("key")
	if len(key) > 0 && key[0] == '/' {
		key = key[1:]
	}

	if err := h.projectService.RemoveFileRef(c.Request.Context(), sc, projectID, key); err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	err := h.storage.DeleteObject(c.Request.Context(), projectID.Hex(), key)
	if err != nil && !errors.Is(err, storage.ErrDisabled) {
		// The reference is gone; log the orphaned object and report success.
		h.logger.Warn("delete object", zap.String("key", key), zap.Error(err))
	}
	respondMessage(c, "file deleted")
}
