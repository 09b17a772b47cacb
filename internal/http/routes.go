package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"whisperasr/internal/app"
	"whisperasr/internal/pipeline"
	"whisperasr/internal/storage"
	"whisperasr/internal/tasks"
)

type API struct {
	app *app.App
	log zerolog.Logger
}

func NewAPI(a *app.App) *API {
	return &API{app: a, log: a.Logger.With().Str("component", "api").Logger()}
}

func registerRoutes(r *gin.Engine, api *API) {
	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/health", api.handleHealth)

		apiGroup.POST("/upload", api.handleUpload)
		apiGroup.POST("/download-url", api.handleDownloadURL)
		apiGroup.GET("/status/:task_id", api.handleStatus)
		apiGroup.DELETE("/tasks/:task_id", api.handleDeleteTask)

		apiGroup.GET("/result/:result_id", api.handleGetResult)
		apiGroup.GET("/audio/:result_id", api.handleAudio)
		apiGroup.GET("/download/:result_id", api.handleDownload)
		apiGroup.POST("/update/:result_id", api.handleUpdate)
		apiGroup.POST("/import", api.handleImport)

		apiGroup.GET("/history/list", api.handleHistoryList)
		apiGroup.GET("/history/load/:result_id", api.handleGetResult)

		apiGroup.GET("/export/pdf/:result_id", api.handleExportPDF)
		apiGroup.POST("/share/:result_id", api.handleShare)
		apiGroup.GET("/shared/:result_id", api.handleShared)
	}
}

func (a *API) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (a *API) handleUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		if isBodyTooLarge(err) {
			respondMessage(c, http.StatusBadRequest, storage.ErrTooLarge.Error())
			return
		}
		respondMessage(c, http.StatusBadRequest, "missing audio file")
		return
	}

	if err := a.app.Files.CheckExtension(fileHeader.Filename); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	if fileHeader.Size > a.app.Files.MaxUploadBytes() {
		respondError(c, http.StatusBadRequest, storage.ErrTooLarge)
		return
	}

	upload, err := fileHeader.Open()
	if err != nil {
		a.log.Error().Err(err).Msg("open uploaded file")
		respondMessage(c, http.StatusInternalServerError, "unable to read uploaded file")
		return
	}
	defer upload.Close()

	path, err := a.app.Files.SaveUpload(upload, fileHeader.Filename)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedFormat) || errors.Is(err, storage.ErrTooLarge) {
			respondError(c, http.StatusBadRequest, err)
			return
		}
		a.log.Error().Err(err).Msg("save uploaded file")
		respondMessage(c, http.StatusInternalServerError, "unable to save uploaded file")
		return
	}

	a.startTask(c, fileHeader.Filename, path)
}

func (a *API) handleDownloadURL(c *gin.Context) {
	var payload struct {
		URL string `json:"url"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil || payload.URL == "" {
		respondMessage(c, http.StatusBadRequest, "url is required")
		return
	}

	path, filename, err := a.app.Fetcher.Fetch(c.Request.Context(), payload.URL)
	if err != nil {
		a.log.Warn().Err(err).Msg("remote fetch rejected")
		respondError(c, http.StatusBadRequest, err)
		return
	}

	a.startTask(c, filename, path)
}

// startTask registers a pending task for an accepted file and hands it to
// the work queue.
func (a *API) startTask(c *gin.Context, filename, path string) {
	taskID := uuid.NewString()
	task, err := a.app.Registry.Create(c.Request.Context(), taskID)
	if err != nil {
		_ = a.app.Files.Remove(path)
		a.log.Error().Err(err).Msg("create task")
		respondMessage(c, http.StatusInternalServerError, "unable to create task")
		return
	}

	job := pipeline.Job{TaskID: taskID, Filename: filename, SourcePath: path}
	a.app.Queue.Submit(taskID, func(ctx context.Context) {
		_ = a.app.Orchestrator.Run(ctx, job)
	})

	a.log.Info().Str("task_id", taskID).Str("filename", filename).Msg("task accepted")
	task.Message = "file accepted, processing started"
	c.JSON(http.StatusOK, task)
}

func (a *API) handleStatus(c *gin.Context) {
	task, found, err := a.app.Registry.Get(c.Request.Context(), c.Param("task_id"))
	if err != nil {
		a.log.Error().Err(err).Msg("get task")
		respondMessage(c, http.StatusInternalServerError, "unable to read task")
		return
	}
	if !found {
		respondMessage(c, http.StatusNotFound, "task not found")
		return
	}
	c.JSON(http.StatusOK, task)
}

func (a *API) handleDeleteTask(c *gin.Context) {
	err := a.app.Registry.Cleanup(c.Request.Context(), c.Param("task_id"))
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, tasks.ErrTaskNotFound):
		respondMessage(c, http.StatusNotFound, "task not found")
	case errors.Is(err, tasks.ErrTaskActive):
		respondError(c, http.StatusConflict, err)
	default:
		a.log.Error().Err(err).Msg("cleanup task")
		respondMessage(c, http.StatusInternalServerError, "unable to remove task")
	}
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// respondStoreError maps result store errors to a response.
func (a *API) respondStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		respondMessage(c, http.StatusNotFound, "result not found")
	case errors.Is(err, storage.ErrInvalidResult):
		respondError(c, http.StatusBadRequest, err)
	default:
		a.log.Error().Err(err).Msg("result store")
		respondMessage(c, http.StatusInternalServerError, "internal server error")
	}
}

func respondError(c *gin.Context, status int, err error) {
	respondMessage(c, status, err.Error())
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
