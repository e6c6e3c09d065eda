package classifier

import (
	"strings"

	"tasktracker/internal/models"
)

// LemmaSet splits a normalized token string into a membership set.
func LemmaSet(normalized string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, lemma := range strings.Fields(normalized) {
		set[lemma] = struct{}{}
	}
	return set
}

// MatchKeywords finds the category whose processed keywords best match a
// lemma set. A keyword group (one comma-separated phrase) matches when
// every one of its lemmas is present; the category with the most
// matching groups wins, ties going to the earlier category in iteration
// order. Returns false when no group of any category matches.
func MatchKeywords(lemmas map[string]struct{}, categories []models.Category) (models.Category, bool) {
	var best models.Category
	maxMatches := 0

	for _, category := range categories {
		matches := 0
		for _, group := range strings.Split(category.ProcessedKeywords, ",") {
			if group == "" {
				continue
			}
			required := strings.Fields(group)
			if len(required) == 0 {
				continue
			}
			all := true
			for _, lemma := range required {
				if _, ok := lemmas[lemma]; !ok {
					all = false
					break
				}
			}
			if all {
				matches++
			}
		}
		if matches > maxMatches {
			maxMatches = matches
			best = category
		}
	}

	if maxMatches == 0 {
		return models.Category{}, false
	}
	return best, true
}
