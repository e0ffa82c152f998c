package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/mikequentel/sheetposter/internal/usecase"
)

func NewHandler(publisher PublishRunner, ingester IngestRunner, version string) *Handler {
	return &Handler{publisher: publisher, ingester: ingester, version: version}
}

// Tweet runs one publish attempt.
func (h *Handler) Tweet(c *gin.Context) {
	res, err := h.publisher.Publish(c.Request.Context())
	if err != nil {
		h.fail(c, "publish", err)
		return
	}

	msg := fmt.Sprintf("Post %s published with %d image(s) and caption %q", res.PostID, len(res.Uploaded), res.Caption)
	if n := len(res.Skipped); n > 0 {
		msg += fmt.Sprintf(", %d skipped", n)
	}
	c.JSON(http.StatusOK, messageResponse{Message: msg})
}

// AddToSheet ingests the post named by ?url= with an optional ?caption=.
func (h *Handler) AddToSheet(c *gin.Context) {
	res, err := h.ingester.Ingest(c.Request.Context(), usecase.IngestInput{
		SourceURL: c.Query("url"),
		Caption:   c.Query("caption"),
	})
	if err != nil {
		h.fail(c, "ingest", err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{
		Message: fmt.Sprintf("Added post %s to the sheet with caption %q", res.ID, res.Caption),
	})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": h.version,
	})
}

// fail maps a workflow error to its status code. Only the error's message
// is written to the response.
func (h *Handler) fail(c *gin.Context, op string, err error) {
	status := statusFor(err)
	msg := "internal error"
	var ucErr *usecase.Error
	if errors.As(err, &ucErr) {
		msg = ucErr.Message()
	}

	ev := log.Error()
	if status < http.StatusInternalServerError {
		ev = log.Warn()
	}
	ev.Err(err).
		Str("correlationId", c.GetString(correlationHeader)).
		Str("op", op).
		Str("code", string(usecase.CodeOf(err))).
		Msg("Request failed")

	c.JSON(status, errorResponse{Error: msg})
}

func statusFor(err error) int {
	if usecase.CodeOf(err) == usecase.ErrorValidation {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
