package services

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
	"time"

	"orpheus_go_backend/internal/models"
)

const feedGenerator = "Orpheus/1.0"

// FeedService renders podcast listings as RSS 2.0.
type FeedService struct {
	publicBaseURL string
	now           func() time.Time
}

func NewFeedService(publicBaseURL string) *FeedService {
	return &FeedService{
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		now:           time.Now,
	}
}

// Generate writes one item per podcast. apiBase is the externally visible
// origin of this server; enclosures point at its audio redirect.
func (s *FeedService) Generate(podcasts []models.Podcast, group, apiBase string) string {
	apiBase = strings.TrimRight(apiBase, "/")
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	title := "Orpheus research podcasts"
	selfLink := apiBase + "/feed.xml"
	if group != "" {
		title += " (" + group + ")"
		selfLink += "?group=" + url.QueryEscape(group)
	}
	s.writeElement(&buf, "title", title, 4)
	s.writeElement(&buf, "link", s.link(""), 4)
	s.writeElement(&buf, "description", "AI-narrated summaries of research papers", 4)
	buf.WriteString(`    <atom:link href="`)
	xml.EscapeText(&buf, []byte(selfLink))
	buf.WriteString("\" rel=\"self\" type=\"application/rss+xml\" />\n")
	s.writeElement(&buf, "lastBuildDate", s.now().UTC().Format(time.RFC1123Z), 4)
	s.writeElement(&buf, "generator", feedGenerator, 4)

	for _, p := range podcasts {
		s.writeItem(&buf, p, apiBase)
	}

	buf.WriteString("  </channel>\n</rss>\n")
	return buf.String()
}

func (s *FeedService) writeItem(buf *bytes.Buffer, p models.Podcast, apiBase string) {
	buf.WriteString("    <item>\n")
	buf.WriteString(`      <guid isPermaLink="false">`)
	xml.EscapeText(buf, []byte(p.ID.String()))
	buf.WriteString("</guid>\n")

	s.writeElement(buf, "title", p.Title, 6)
	s.writeElement(buf, "link", s.link(p.ID.String()), 6)

	description := p.Abstract
	if description == "" {
		description = "No abstract available"
	}
	s.writeElement(buf, "description", description, 6)
	if !p.CreatedAt.IsZero() {
		s.writeElement(buf, "pubDate", p.CreatedAt.UTC().Format(time.RFC1123Z), 6)
	}
	s.writeElement(buf, "category", p.ResearchGroup, 6)

	if p.AudioURL != "" {
		enclosure := fmt.Sprintf("%s/api/podcasts/%s/audio", apiBase, p.ID)
		buf.WriteString(`      <enclosure url="`)
		xml.EscapeText(buf, []byte(enclosure))
		buf.WriteString("\" length=\"0\" type=\"audio/mpeg\" />\n")
	}
	buf.WriteString("    </item>\n")
}

func (s *FeedService) link(id string) string {
	if id == "" {
		return s.publicBaseURL + "/"
	}
	return s.publicBaseURL + "/podcast/" + id
}

func (s *FeedService) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}
	buf.WriteString(strings.Repeat(" ", indent))
	buf.WriteString("<" + tag + ">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</" + tag + ">\n")
}
