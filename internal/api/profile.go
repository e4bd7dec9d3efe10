package api

import (
	"net/http"

	apperrors "orpheus_go_backend/internal/errors"
	"orpheus_go_backend/internal/models"
	"orpheus_go_backend/internal/services"

	"github.com/gin-gonic/gin"
)

func getProfileHandler(profileService *services.ProfileService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireCurrentUser(c)
		if !ok {
			return
		}
		profile, err := profileService.Get(c.Request.Context(), user.ID)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, profile)
	}
}

func updateProfileHandler(profileService *services.ProfileService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireCurrentUser(c)
		if !ok {
			return
		}
		var update models.ProfileUpdate
		if err := c.ShouldBindJSON(&update); err != nil {
			apperrors.HandleError(c, apperrors.New400Error("Invalid request body"))
			return
		}
		profile, err := profileService.Update(c.Request.Context(), user.ID, update)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, profile)
	}
}

func profilePodcastsHandler(profileService *services.ProfileService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireCurrentUser(c)
		if !ok {
			return
		}
		podcasts, err := profileService.Podcasts(c.Request.Context(), user.ID)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, podcasts)
	}
}
