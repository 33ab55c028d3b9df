package domain

import (
	"sort"
	"strings"
)

const (
	// SkipPenalty is added for every field character skipped while
	// walking a term as a subsequence.
	SkipPenalty = 0.1

	// MatchThreshold discards (term, field) matches scoring above it.
	MatchThreshold = 0.3

	// TieWindow groups ranked records whose scores are this close;
	// a group is ordered by recency instead of score.
	TieWindow = 0.1

	// scoreEpsilon absorbs float drift from summing penalties.
	scoreEpsilon = 1e-9
)

// ScoredRecord is a search hit. Lower scores are better, 0 is exact.
type ScoredRecord struct {
	Record *StoredRecord `json:"record"`
	Score  float64       `json:"score"`
}

// QueryTerms splits a free-text query into lowercase terms.
func QueryTerms(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// SearchableFields returns the record fields free-text search looks at.
func SearchableFields(r *StoredRecord) []string {
	fields := []string{r.Text, r.Author.Handle, r.Author.DisplayName}
	if r.QuotedPost != nil {
		fields = append(fields, r.QuotedPost.Text, r.QuotedPost.Author.Handle)
	}
	return fields
}

// ScoreField matches a single lowercase term against a field.
// An exact substring scores 0; otherwise the term must appear as a
// subsequence and every skipped field character costs SkipPenalty.
func ScoreField(term, field string) (float64, bool) {
	if term == "" || field == "" {
		return 0, false
	}
	field = strings.ToLower(field)
	if strings.Contains(field, term) {
		return 0, true
	}

	want := []rune(term)
	j, skipped := 0, 0
	for _, r := range field {
		if j == len(want) {
			break
		}
		if r == want[j] {
			j++
			continue
		}
		skipped++
	}
	if j < len(want) {
		return 0, false
	}

	score := float64(skipped) * SkipPenalty
	if score > MatchThreshold+scoreEpsilon {
		return 0, false
	}
	return score, true
}

// ScoreRecord scores a record against the query terms. The score is the
// mean of every matching (term, field) pair; ok is false when nothing
// matched.
func ScoreRecord(r *StoredRecord, terms []string) (score float64, ok bool) {
	if r == nil || len(terms) == 0 {
		return 0, false
	}

	fields := SearchableFields(r)
	var sum float64
	var n int
	for _, term := range terms {
		for _, f := range fields {
			if s, hit := ScoreField(term, f); hit {
				sum += s
				n++
			}
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// Rank scores records against query and orders them best first.
// An empty query skips scoring and orders purely by recency.
func Rank(records []*StoredRecord, query string) []ScoredRecord {
	terms := QueryTerms(query)
	out := make([]ScoredRecord, 0, len(records))

	if len(terms) == 0 {
		for _, r := range records {
			out = append(out, ScoredRecord{Record: r})
		}
		sortByRecency(out)
		return out
	}

	for _, r := range records {
		if s, ok := ScoreRecord(r, terms); ok {
			out = append(out, ScoredRecord{Record: r, Score: s})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score < out[j].Score
	})

	// Near-equal scores are ties: each run anchored on its first
	// element is reordered newest first.
	for start := 0; start < len(out); {
		end := start + 1
		for end < len(out) && out[end].Score-out[start].Score <= TieWindow+scoreEpsilon {
			end++
		}
		sortByRecency(out[start:end])
		start = end
	}

	return out
}

func sortByRecency(s []ScoredRecord) {
	sort.SliceStable(s, func(i, j int) bool {
		return s[i].Record.CapturedAt.After(s[j].Record.CapturedAt)
	})
}
