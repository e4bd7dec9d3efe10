package services

import (
	"strings"

	"orpheus_go_backend/internal/models"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE metacharacters so a search term matches literally.
func EscapeLike(term string) string {
	return likeEscaper.Replace(term)
}

var postgrestQuoter = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// postgrestPattern builds the double-quoted substring pattern for an ilike
// filter inside or=(). Quoting keeps commas and parentheses literal. PostgREST
// always reads * as a wildcard, so a term containing * matches a superset and
// the caller filters the rows again with containsTerm.
func postgrestPattern(term string) string {
	return `"` + postgrestQuoter.Replace("*"+EscapeLike(term)+"*") + `"`
}

// containsTerm reports whether the podcast's title, abstract or authors
// contain term, ignoring case.
func containsTerm(p models.Podcast, term string) bool {
	term = strings.ToLower(term)
	for _, field := range []string{p.Title, p.Abstract, p.Authors} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}
