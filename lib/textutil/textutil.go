package textutil

import (
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

// Closest returns the candidate most similar to name by Jaro-Winkler distance over normalized names,
// ok is false when no candidate reaches threshold.
func Closest(name string, candidates []string, threshold float64) (match string, similarity float64, ok bool) {
	normalized := NormalizeName(name)
	for _, c := range candidates {
		sim := matchr.JaroWinkler(normalized, NormalizeName(c), false)
		if sim > similarity {
			match = c
			similarity = sim
		}
	}
	if similarity < threshold {
		return "", similarity, false
	}
	return match, similarity, true
}
