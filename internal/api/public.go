package api

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/netip"
	"strconv"
	"strings"

	apperrors "orpheus_go_backend/internal/errors"
	"orpheus_go_backend/internal/models"
	"orpheus_go_backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	embedLimit = 24
	feedLimit  = 50
)

//go:embed templates/*.html
var templatesFS embed.FS

var embedTemplate = template.Must(template.New("").ParseFS(templatesFS, "templates/*.html"))

type fetchImageRequest struct {
	ImageURL string `json:"imageUrl"`
}

// fetchImageHandler relays an image through this server. Errors use the flat
// {"error": "..."} shape browser callers expect.
func fetchImageHandler(relay services.ImageFetcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req fetchImageRequest
		// A missing or malformed body is reported as a missing URL.
		_ = c.ShouldBindJSON(&req)

		image, err := relay.FetchImage(c.Request.Context(), req.ImageURL)
		if err != nil {
			var customErr *apperrors.CustomError
			if errors.As(err, &customErr) {
				c.JSON(customErr.StatusCode, gin.H{"error": customErr.Message})
				return
			}
			internal := apperrors.LogAndReturn500(err)
			c.JSON(internal.StatusCode, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, image.ContentType, image.Data)
	}
}

type embedCard struct {
	Title    string
	Authors  string
	Year     int
	Group    string
	CoverURL string
	Link     string
	// Length is the estimated listening time, empty without a script.
	Length string
}

// embedHandler renders a self-contained grid meant for an iframe on another
// site. A failing listing renders an empty grid rather than an error page.
func embedHandler(podcastService *services.PodcastService, publicBaseURL string) gin.HandlerFunc {
	base := strings.TrimRight(publicBaseURL, "/")
	return func(c *gin.Context) {
		filter := models.PodcastFilter{
			Search: c.Query("q"),
			Group:  c.Query("group"),
			Limit:  embedLimit,
		}
		podcasts, err := podcastService.List(c.Request.Context(), filter)
		if err != nil {
			zerolog.Ctx(c.Request.Context()).Warn().Err(err).Msg("Embed listing failed")
			podcasts = nil
		}

		cards := make([]embedCard, 0, len(podcasts))
		for _, p := range podcasts {
			card := embedCard{
				Title:    p.Title,
				Authors:  p.Authors,
				Year:     p.PublishingYear,
				Group:    p.ResearchGroup,
				CoverURL: p.CoverImageURL,
				Link:     base + "/podcast/" + p.ID.String(),
			}
			if d := services.EstimatedDuration(p.Script); d > 0 {
				card.Length = services.FormatTime(d)
			}
			cards = append(cards, card)
		}

		c.Header("Content-Security-Policy", "frame-ancestors *")
		c.HTML(http.StatusOK, "embed.html", gin.H{
			"Cards": cards,
			"Group": filter.Normalize().Group,
		})
	}
}

func feedHandler(podcastService *services.PodcastService, feed *services.FeedService, apiBaseURL string, proxies []netip.Prefix) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := models.PodcastFilter{Group: c.Query("group"), Limit: feedLimit}
		podcasts, err := podcastService.List(c.Request.Context(), filter)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}

		base := apiBaseURL
		if base == "" {
			base = requestOrigin(c, proxies)
		}
		out := feed.Generate(podcasts, filter.Normalize().Group, base)
		c.Header("Cache-Control", "public, max-age="+strconv.Itoa(300))
		c.Data(http.StatusOK, "application/rss+xml; charset=utf-8", []byte(out))
	}
}

// requestOrigin reconstructs scheme://host as the client saw it. Forwarded
// headers count only when the peer is one of the trusted proxies.
func requestOrigin(c *gin.Context, proxies []netip.Prefix) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	host := c.Request.Host
	if !fromTrustedProxy(c.RemoteIP(), proxies) {
		return scheme + "://" + host
	}
	if proto := strings.ToLower(c.GetHeader("X-Forwarded-Proto")); proto == "http" || proto == "https" {
		scheme = proto
	}
	if fwd := c.GetHeader("X-Forwarded-Host"); fwd != "" {
		host = fwd
	}
	return scheme + "://" + host
}

func fromTrustedProxy(remote string, proxies []netip.Prefix) bool {
	addr, err := netip.ParseAddr(remote)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range proxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// parseProxies accepts addresses and CIDR ranges. Entries that parse as
// neither are skipped; the engine's SetTrustedProxies rejects them at start.
func parseProxies(entries []string) []netip.Prefix {
	var out []netip.Prefix
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if p, err := netip.ParsePrefix(e); err == nil {
			out = append(out, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(e); err == nil {
			a = a.Unmap()
			out = append(out, netip.PrefixFrom(a, a.BitLen()))
		}
	}
	return out
}
