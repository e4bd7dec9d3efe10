package services

import (
	"strconv"
	"strings"
	"unicode"

	"orpheus_go_backend/internal/models"
	"orpheus_go_backend/internal/utils/filename"

	"github.com/nickng/bibtex"
)

// CitationService renders podcast metadata as BibTeX.
type CitationService struct {
	publicBaseURL string
}

func NewCitationService(publicBaseURL string) *CitationService {
	return &CitationService{publicBaseURL: strings.TrimRight(publicBaseURL, "/")}
}

// BibTeX returns a single @article entry for the paper behind p.
func (s *CitationService) BibTeX(p *models.Podcast) string {
	entry := bibtex.NewBibEntry("article", citeKey(p))
	addField := func(name, value string) {
		if value = strings.TrimSpace(value); value != "" {
			entry.AddField(name, bibtex.NewBibConst(value))
		}
	}

	addField("title", p.Title)
	addField("author", strings.Join(splitAuthors(p.Authors), " and "))
	if p.PublishingYear > 0 {
		addField("year", strconv.Itoa(p.PublishingYear))
	}
	if p.DOI != nil {
		addField("doi", *p.DOI)
	}
	addField("keywords", p.Keywords)
	addField("abstract", p.Abstract)
	if s.publicBaseURL != "" {
		addField("url", s.publicBaseURL+"/podcast/"+p.ID.String())
	}

	bib := bibtex.NewBibTex()
	bib.AddEntry(entry)
	return bib.PrettyString()
}

// splitAuthors accepts "A; B" or "A, B" author lists.
func splitAuthors(authors string) []string {
	sep := ","
	if strings.Contains(authors, ";") {
		sep = ";"
	}
	var out []string
	for _, a := range strings.Split(authors, sep) {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// citeKey builds <surname><year><firstword>, e.g. vaswani2017attention.
func citeKey(p *models.Podcast) string {
	var surname string
	if authors := splitAuthors(p.Authors); len(authors) > 0 {
		parts := strings.Fields(authors[0])
		surname = parts[len(parts)-1]
	}
	var word string
	for _, w := range strings.Fields(p.Title) {
		if len([]rune(w)) > 3 {
			word = w
			break
		}
	}
	name, first := keyPart(surname), keyPart(word)
	if name == "" && first == "" {
		return "podcast" + strings.ReplaceAll(p.ID.String(), "-", "")[:8]
	}
	if p.PublishingYear == 0 {
		return name + first
	}
	return name + strconv.Itoa(p.PublishingYear) + first
}

func keyPart(s string) string {
	if s == "" {
		return ""
	}
	folded := filename.Fold(s)
	var b strings.Builder
	for _, r := range folded {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
