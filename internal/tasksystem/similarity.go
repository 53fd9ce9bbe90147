package tasksystem

import (
	"sort"
	"strings"

	"github.com/nullstream/taskrt/internal/ports"
)

// Match pairs a candidate atomic template with its similarity score against
// a query text ("find_matching_tasks").
type Match struct {
	Template *ports.AtomicTemplate
	Score float64
}

const similarityThreshold = 0.1

// findMatchingTasks ranks templates by a lowercase, punctuation-stripped
// word-set Jaccard similarity against text (Open Questions: "implementers
// may use a simple lowercase-word-set Jaccard and document it" — this is
// that documentation). Only scores strictly greater than 0.1 are returned,
// sorted descending; ties keep registration order since sort.SliceStable
// preserves the input order (registry.all returns insertion order).
func findMatchingTasks(text string, templates []*ports.AtomicTemplate) []Match {
	queryWords := wordSet(text)
	matches := make([]Match, 0, len(templates))
	for _, t := range templates {
		score := jaccard(queryWords, wordSet(t.Description))
		if score > similarityThreshold {
			matches = append(matches, Match{Template: t, Score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

func wordSet(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f != "" {
			set[f] = struct{}{}
		}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
