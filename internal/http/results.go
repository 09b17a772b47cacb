package http

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"whisperasr/internal/domain"
	"whisperasr/internal/services"
	"whisperasr/internal/storage"
	"whisperasr/internal/tasks"
)

func (a *API) handleGetResult(c *gin.Context) {
	result, err := a.app.Results.Load(c.Param("result_id"))
	if err != nil {
		a.respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (a *API) handleDownload(c *gin.Context) {
	a.writeArchive(c, c.Param("result_id"))
}

// writeArchive streams <id>.json and <id>_audio.wav as a ZIP attachment.
func (a *API) writeArchive(c *gin.Context, id string) {
	if !a.app.Results.Exists(id) {
		respondMessage(c, http.StatusNotFound, "result not found")
		return
	}

	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.zip"`, id))
	c.Status(http.StatusOK)

	zw := zip.NewWriter(c.Writer)
	entries := []struct{ name, path string }{
		{id + ".json", a.app.Results.JSONPath(id)},
		{storage.AudioFileName(id), a.app.Results.AudioPath(id)},
	}
	for _, entry := range entries {
		if err := addZipEntry(zw, entry.name, entry.path); err != nil {
			a.log.Error().Err(err).Str("result_id", id).Msg("write archive")
			return
		}
	}
	if err := zw.Close(); err != nil {
		a.log.Error().Err(err).Str("result_id", id).Msg("finish archive")
	}
}

func addZipEntry(zw *zip.Writer, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}

func (a *API) handleUpdate(c *gin.Context) {
	id := c.Param("result_id")

	var payload struct {
		Sentences *[]domain.Segment `json:"sentences"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid payload")
		return
	}
	if payload.Sentences == nil {
		respondMessage(c, http.StatusBadRequest, "sentences is required")
		return
	}

	current, err := a.app.Results.Load(id)
	if err != nil {
		a.respondStoreError(c, err)
		return
	}

	// Translation may call out to a provider, so it runs before taking the
	// store lock. Concurrent edits of one result are last-write-wins.
	merged := mergeSentences(c.Request.Context(), a.app.Translation, current.Sentences, *payload.Sentences)

	_, err = a.app.Results.Modify(id, func(r *domain.Result) error {
		r.Sentences = merged
		r.UpdatedTimestamp = domain.Timestamp(time.Now())
		return nil
	})
	if err != nil {
		a.respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "result updated"})
}

// mergeSentences keeps the stored translation of every incoming sentence
// whose text equals a not-yet-matched original, scanning originals in order.
// Everything else is translated again. Identical texts match positionally,
// so duplicated sentences can swap translations.
func mergeSentences(ctx context.Context, translation *services.TranslationService, original, incoming []domain.Segment) []domain.Segment {
	used := make([]bool, len(original))
	out := make([]domain.Segment, len(incoming))

	for i, seg := range incoming {
		out[i] = seg
		matched := false
		for j, orig := range original {
			if used[j] || orig.Text != seg.Text {
				continue
			}
			used[j] = true
			out[i].Translation = orig.Translation
			matched = true
			break
		}
		if !matched {
			out[i].Translation = translation.TranslateSegment(ctx, seg.Text, "")
		}
	}
	return out
}

func (a *API) handleImport(c *gin.Context) {
	jsonHeader, err := c.FormFile("json_file")
	if err != nil {
		respondMessage(c, http.StatusBadRequest, "missing json_file")
		return
	}
	audioHeader, err := c.FormFile("audio_file")
	if err != nil {
		respondMessage(c, http.StatusBadRequest, "missing audio_file")
		return
	}

	jsonFile, err := jsonHeader.Open()
	if err != nil {
		respondMessage(c, http.StatusInternalServerError, "unable to read json_file")
		return
	}
	defer jsonFile.Close()
	document, err := io.ReadAll(jsonFile)
	if err != nil {
		respondMessage(c, http.StatusInternalServerError, "unable to read json_file")
		return
	}

	audioFile, err := audioHeader.Open()
	if err != nil {
		respondMessage(c, http.StatusInternalServerError, "unable to read audio_file")
		return
	}
	defer audioFile.Close()

	result, err := a.app.Results.Import(document, audioFile, time.Now())
	if err != nil {
		a.respondStoreError(c, err)
		return
	}

	ctx := c.Request.Context()
	taskID := uuid.NewString()
	if _, err := a.app.Registry.Create(ctx, taskID); err == nil {
		_, err = a.app.Registry.Update(ctx, taskID, tasks.Update{
			Status:   tasks.Status(domain.TaskStatusCompleted),
			Progress: tasks.Progress(100),
			Message:  tasks.Text("import completed"),
			ResultID: tasks.Text(result.ResultID),
		})
		if err != nil {
			a.log.Warn().Err(err).Str("task_id", taskID).Msg("record import task")
		}
	} else {
		a.log.Warn().Err(err).Str("task_id", taskID).Msg("record import task")
	}

	a.log.Info().Str("result_id", result.ResultID).Msg("result imported")
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"result_id": result.ResultID,
		"task_id":   taskID,
		"message":   "import completed",
	})
}

func (a *API) handleHistoryList(c *gin.Context) {
	items, err := a.app.Results.History()
	if err != nil {
		a.respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (a *API) handleExportPDF(c *gin.Context) {
	id := c.Param("result_id")
	result, err := a.app.Results.Load(id)
	if err != nil {
		a.respondStoreError(c, err)
		return
	}

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.pdf"`, id))
	if err := a.app.PDF.Render(result, c.Writer); err != nil {
		a.log.Error().Err(err).Str("result_id", id).Msg("render pdf")
		if !c.Writer.Written() {
			c.Header("Content-Disposition", "")
			respondMessage(c, http.StatusInternalServerError, "unable to render pdf")
		}
	}
}

func (a *API) handleShare(c *gin.Context) {
	id := c.Param("result_id")
	if !a.app.Results.Exists(id) {
		respondMessage(c, http.StatusNotFound, "result not found")
		return
	}

	url, expiresAt := a.app.Share.Generate(id)
	c.JSON(http.StatusOK, gin.H{"url": url, "expires_at": expiresAt.UTC()})
}

func (a *API) handleShared(c *gin.Context) {
	id := c.Param("result_id")
	expiresParam := c.Query("exp")
	signature := c.Query("sig")

	if expiresParam == "" || signature == "" {
		respondMessage(c, http.StatusBadRequest, "missing signature")
		return
	}

	expires, err := strconv.ParseInt(expiresParam, 10, 64)
	if err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid expiration")
		return
	}

	if err := a.app.Share.Validate(id, expires, signature); err != nil {
		switch {
		case errors.Is(err, services.ErrShareExpired):
			respondMessage(c, http.StatusGone, "link expired")
		default:
			respondMessage(c, http.StatusForbidden, "invalid signature")
		}
		return
	}

	a.writeArchive(c, id)
}
