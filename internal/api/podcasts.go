package api

import (
	"fmt"
	"net/http"
	"strconv"

	"orpheus_go_backend/internal/auth"
	apperrors "orpheus_go_backend/internal/errors"
	"orpheus_go_backend/internal/models"
	"orpheus_go_backend/internal/services"
	"orpheus_go_backend/internal/utils/filename"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func listPodcastsHandler(podcastService *services.PodcastService) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := models.PodcastFilter{
			Search: c.Query("q"),
			Group:  c.Query("group"),
		}
		if raw := c.Query("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil || limit < 1 {
				apperrors.HandleError(c, apperrors.New400Error("limit must be a positive integer"))
				return
			}
			filter.Limit = limit
		}

		podcasts, err := podcastService.List(c.Request.Context(), filter)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, podcasts)
	}
}

func getPodcastHandler(podcastService *services.PodcastService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := podcastID(c)
		if !ok {
			return
		}
		podcast, err := podcastService.Get(c.Request.Context(), id)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, podcast)
	}
}

func updatePodcastHandler(podcastService *services.PodcastService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireCurrentUser(c)
		if !ok {
			return
		}
		id, ok := podcastID(c)
		if !ok {
			return
		}

		var update models.PodcastUpdate
		if err := c.ShouldBindJSON(&update); err != nil {
			apperrors.HandleError(c, apperrors.New400Error("Invalid request body"))
			return
		}

		podcast, err := podcastService.Update(c.Request.Context(), id, user.ID, update)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, podcast)
	}
}

func deletePodcastHandler(podcastService *services.PodcastService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireCurrentUser(c)
		if !ok {
			return
		}
		id, ok := podcastID(c)
		if !ok {
			return
		}
		if err := podcastService.Delete(c.Request.Context(), id, user.ID); err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func signedURLHandler(podcastService *services.PodcastService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := podcastID(c)
		if !ok {
			return
		}
		url, _, err := podcastService.SignedAudioURL(c.Request.Context(), id)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"signedUrl": url,
			"expiresIn": int(podcastService.SignedURLExpiry().Seconds()),
		})
	}
}

// audioRedirectHandler sends players and feed readers to a fresh signed URL.
// ?at=<percent> starts playback part way through using a media fragment.
func audioRedirectHandler(podcastService *services.PodcastService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := podcastID(c)
		if !ok {
			return
		}
		url, podcast, err := podcastService.SignedAudioURL(c.Request.Context(), id)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		if raw := c.Query("at"); raw != "" {
			percent, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				apperrors.HandleError(c, apperrors.New400Error("at must be a number between 0 and 100"))
				return
			}
			offset := services.SeekPosition(percent, services.EstimatedDuration(podcast.Script))
			url = fmt.Sprintf("%s#t=%d", url, int(offset.Seconds()))
		}
		c.Header("Cache-Control", "no-store")
		c.Redirect(http.StatusFound, url)
	}
}

func downloadHandler(podcastService *services.PodcastService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := podcastID(c)
		if !ok {
			return
		}
		data, podcast, err := podcastService.DownloadAudio(c.Request.Context(), id)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.mp3"`, filename.ASCII(podcast.Title)))
		c.Data(http.StatusOK, "audio/mpeg", data)
	}
}

func citationHandler(podcastService *services.PodcastService, citations *services.CitationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := podcastID(c)
		if !ok {
			return
		}
		podcast, err := podcastService.Get(c.Request.Context(), id)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.Data(http.StatusOK, "application/x-bibtex; charset=utf-8", []byte(citations.BibTeX(podcast)))
	}
}

func podcastID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apperrors.HandleError(c, apperrors.New400Error("Invalid podcast ID"))
		return uuid.Nil, false
	}
	return id, true
}

func requireCurrentUser(c *gin.Context) (*models.User, bool) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		apperrors.HandleError(c, apperrors.New401Error())
		return nil, false
	}
	return user, true
}
