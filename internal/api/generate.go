package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	apperrors "orpheus_go_backend/internal/errors"
	"orpheus_go_backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// generateHandler accepts a multipart form with the paper as "pdf" and starts
// a background generation job.
func generateHandler(jobService *services.JobService, maxUploadBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireCurrentUser(c)
		if !ok {
			return
		}
		if maxUploadBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
		}

		fileHeader, err := c.FormFile("pdf")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				apperrors.HandleError(c, apperrors.Validationf("PDF exceeds the %d MB upload limit", maxUploadBytes>>20))
				return
			}
			apperrors.HandleError(c, apperrors.New400Error("PDF file is required"))
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			apperrors.HandleError(c, apperrors.New500Error(err))
			return
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			apperrors.HandleError(c, apperrors.New500Error(err))
			return
		}

		req := services.GenerationRequest{
			UserID:        user.ID,
			PDF:           data,
			Title:         strings.TrimSpace(c.PostForm("title")),
			Abstract:      strings.TrimSpace(c.PostForm("abstract")),
			Authors:       strings.TrimSpace(c.PostForm("authors")),
			ResearchGroup: strings.TrimSpace(c.PostForm("research_group")),
			DOI:           strings.TrimSpace(c.PostForm("doi")),
			Keywords:      strings.TrimSpace(c.PostForm("keywords")),
		}
		if raw := strings.TrimSpace(c.PostForm("publishing_year")); raw != "" {
			year, err := strconv.Atoi(raw)
			if err != nil {
				apperrors.HandleError(c, apperrors.New400Error("publishing_year must be a number"))
				return
			}
			req.PublishingYear = year
		}

		job, err := jobService.Submit(c.Request.Context(), req)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{
			"job_id": job.ID,
			"job":    job,
		})
	}
}

func getJobHandler(jobService *services.JobService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireCurrentUser(c)
		if !ok {
			return
		}
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			apperrors.HandleError(c, apperrors.New400Error("Invalid job ID"))
			return
		}
		job, err := jobService.Get(id, user.ID)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, job)
	}
}
