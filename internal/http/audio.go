package http

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const audioContentType = "audio/wav"

// handleAudio serves the stored waveform. A single "bytes=start-end" range is
// honoured with a 206; anything unparsable falls back to the full file.
func (a *API) handleAudio(c *gin.Context) {
	id := c.Param("result_id")
	if !a.app.Results.Exists(id) {
		respondMessage(c, http.StatusNotFound, "audio not found")
		return
	}

	f, err := os.Open(a.app.Results.AudioPath(id))
	if err != nil {
		respondMessage(c, http.StatusNotFound, "audio not found")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		a.log.Error().Err(err).Str("result_id", id).Msg("stat audio")
		respondMessage(c, http.StatusInternalServerError, "internal server error")
		return
	}
	size := info.Size()

	start, end, ok := parseRange(c.GetHeader("Range"), size)
	if !ok {
		c.DataFromReader(http.StatusOK, size, audioContentType, f, map[string]string{
			"Accept-Ranges": "bytes",
		})
		return
	}

	length := end - start + 1
	c.DataFromReader(http.StatusPartialContent, length, audioContentType, io.NewSectionReader(f, start, length), map[string]string{
		"Content-Range": fmt.Sprintf("bytes %d-%d/%d", start, end, size),
		"Accept-Ranges": "bytes",
	})
}

// parseRange reads a single "bytes=start-end" header. An empty start means 0
// and an empty end means the last byte; both are clamped into the file. It
// returns ok=false when there is no usable range.
func parseRange(header string, size int64) (int64, int64, bool) {
	if header == "" || size <= 0 || !strings.HasPrefix(header, "bytes=") {
		return 0, 0, false
	}

	parts := strings.Split(strings.TrimPrefix(header, "bytes="), "-")
	if len(parts) != 2 {
		return 0, 0, false
	}

	start := int64(0)
	end := size - 1
	if s := strings.TrimSpace(parts[0]); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, 0, false
		}
		start = v
	}
	if s := strings.TrimSpace(parts[1]); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, 0, false
		}
		end = v
	}

	start = max(0, min(start, size-1))
	end = max(start, min(end, size-1))
	return start, end, true
}
