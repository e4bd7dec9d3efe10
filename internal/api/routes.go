package api

import (
	"net/http"
	"strings"
	"time"

	"orpheus_go_backend/internal/auth"
	"orpheus_go_backend/internal/services"
	"orpheus_go_backend/internal/wsocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Deps is everything the HTTP surface needs. Services that are not configured
// are still present and answer with 503.
type Deps struct {
	Podcasts  *services.PodcastService
	Profiles  *services.ProfileService
	Jobs      *services.JobService
	Relay     services.ImageFetcher
	Citations *services.CitationService
	Feed      *services.FeedService
	Verifier  auth.TokenVerifier
	Progress  *wsocket.Handler

	AllowedOrigins []string
	// PublicBaseURL is where the web app lives; embed cards link there.
	PublicBaseURL string
	// APIBaseURL overrides the origin used in feed enclosures.
	APIBaseURL string
	// TrustedProxies lists the peers whose X-Forwarded-* headers are honoured
	// when APIBaseURL is empty.
	TrustedProxies []string
	MaxUploadBytes int64
	// Backends is reported by /health, e.g. {"database": "postgres"}.
	Backends map[string]string
}

// Routes under these prefixes are embedded in or fetched from third-party
// pages and accept any origin.
var publicPrefixes = []string{"/functions/", "/embed", "/feed.xml", "/health"}

func SetupRoutes(r *gin.Engine, deps Deps) {
	r.Use(corsMiddleware(deps.AllowedOrigins))
	r.SetHTMLTemplate(embedTemplate)

	requireUser := auth.AuthMiddleware(deps.Verifier)

	r.GET("/health", healthHandler(deps.Backends))
	auth.SetupRoutes(r, deps.Verifier)

	api := r.Group("/api")
	{
		api.GET("/podcasts", listPodcastsHandler(deps.Podcasts))
		api.GET("/podcasts/:id", getPodcastHandler(deps.Podcasts))
		api.PUT("/podcasts/:id", requireUser, updatePodcastHandler(deps.Podcasts))
		api.DELETE("/podcasts/:id", requireUser, deletePodcastHandler(deps.Podcasts))
		api.GET("/podcasts/:id/signed-url", signedURLHandler(deps.Podcasts))
		api.GET("/podcasts/:id/audio", audioRedirectHandler(deps.Podcasts))
		api.GET("/podcasts/:id/download", downloadHandler(deps.Podcasts))
		api.GET("/podcasts/:id/citation", citationHandler(deps.Podcasts, deps.Citations))

		api.POST("/generate", requireUser, generateHandler(deps.Jobs, deps.MaxUploadBytes))
		api.GET("/jobs/:id", requireUser, getJobHandler(deps.Jobs))

		api.GET("/profile", requireUser, getProfileHandler(deps.Profiles))
		api.PUT("/profile", requireUser, updateProfileHandler(deps.Profiles))
		api.GET("/profile/podcasts", requireUser, profilePodcastsHandler(deps.Profiles))
	}

	r.GET("/ws/jobs/:id", requireUser, deps.Progress.HandleJobProgress)

	functions := r.Group("/functions")
	{
		functions.POST("/fetch-image", fetchImageHandler(deps.Relay))
		functions.OPTIONS("/fetch-image", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	}

	r.GET("/embed", embedHandler(deps.Podcasts, deps.PublicBaseURL))
	r.GET("/feed.xml", feedHandler(deps.Podcasts, deps.Feed, deps.APIBaseURL, parseProxies(deps.TrustedProxies)))
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	restrictedCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) == 0 || containsWildcard(allowedOrigins) {
		restrictedCfg.AllowAllOrigins = true
		restrictedCfg.AllowCredentials = false
	} else {
		restrictedCfg.AllowOrigins = allowedOrigins
	}
	restricted := cors.New(restrictedCfg)

	open := cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization", "apikey", "x-client-info"},
		MaxAge:          12 * time.Hour,
	})

	return func(c *gin.Context) {
		for _, prefix := range publicPrefixes {
			if strings.HasPrefix(c.Request.URL.Path, prefix) {
				open(c)
				return
			}
		}
		restricted(c)
	}
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

func healthHandler(backends map[string]string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"backends": backends,
		})
	}
}
