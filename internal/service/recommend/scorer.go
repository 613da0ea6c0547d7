// Package recommend ranks catalog services against a visitor query and
// profile. Scoring is deterministic and performs no I/O.
package recommend

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/zhouzirui/consult/backend/internal/model/catalog"
	"github.com/zhouzirui/consult/backend/internal/model/chat"
)

const (
	keywordWeight     = 20
	industryBonus     = 15
	sizeBonus         = 10
	challengeBonus    = 20
	slugPhraseBonus   = 30
	maxScore          = 100
	minScoreExclusive = 30
	maxResults        = 3
)

// Priority ranks a recommendation for display.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Recommendation is a scored catalog service.
type Recommendation struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	RelevanceScore int      `json:"relevanceScore"`
	Reasoning      string   `json:"reasoning"`
	EstimatedCost  string   `json:"estimatedCost"`
	Timeline       string   `json:"timeline"`
	Tags           []string `json:"tags"`
	Priority       Priority `json:"priority"`
}

// Scorer scores the services of a catalog.
type Scorer struct {
	catalog catalog.Store
}

// NewScorer creates a scorer over store.
func NewScorer(store catalog.Store) *Scorer {
	return &Scorer{catalog: store}
}

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// Recommend returns at most three services scoring above the threshold,
// sorted by descending score with catalog order breaking ties.
func (s *Scorer) Recommend(query string, visitor chat.Profile) []Recommendation {
	normalized := strings.ToLower(strings.TrimSpace(query))
	queryTerms := tokenize(normalized)

	results := make([]Recommendation, 0, maxResults)
	for _, svc := range s.catalog.List() {
		score, matched := scoreService(svc, normalized, queryTerms, visitor)
		if score <= minScoreExclusive {
			continue
		}
		results = append(results, enrich(svc, score, matched, visitor))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results
}

func scoreService(svc catalog.Service, query string, queryTerms map[string]struct{}, visitor chat.Profile) (int, []string) {
	sp := serviceProfiles[svc.ID]

	keywords := tokenize(strings.ToLower(svc.Title + " " + strings.Join(svc.Features, " ")))
	for _, k := range sp.keywords {
		keywords[k] = struct{}{}
	}

	var matched []string
	for term := range queryTerms {
		if _, ok := keywords[term]; ok {
			matched = append(matched, term)
		}
	}
	sort.Strings(matched)
	score := keywordWeight * len(matched)

	if visitor.Industry != "" && slices.Contains(sp.industries, visitor.Industry) {
		score += industryBonus
	}
	if visitor.CompanySize != "" && slices.Contains(sp.sizes, visitor.CompanySize) {
		score += sizeBonus
	}
	if matchesChallenge(sp.challenges, query, visitor.Challenges) {
		score += challengeBonus
	}
	if query != "" && (strings.Contains(query, svc.Slug) ||
		strings.Contains(query, strings.ReplaceAll(svc.Slug, "-", " ")) ||
		strings.Contains(query, strings.ToLower(svc.Title))) {
		score += slugPhraseBonus
	}

	return min(score, maxScore), matched
}

func matchesChallenge(serviceChallenges []string, query string, visitorChallenges []string) bool {
	for _, c := range serviceChallenges {
		if slices.Contains(visitorChallenges, c) {
			return true
		}
		if query != "" && containsWord(query, c) {
			return true
		}
	}
	return false
}

func containsWord(text, phrase string) bool {
	idx := strings.Index(text, phrase)
	for idx >= 0 {
		end := idx + len(phrase)
		if (idx == 0 || !isWordByte(text[idx-1])) && (end == len(text) || !isWordByte(text[end])) {
			return true
		}
		next := strings.Index(text[idx+1:], phrase)
		if next < 0 {
			break
		}
		idx += next + 1
	}
	return false
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}

func tokenize(text string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, tok := range tokenPattern.FindAllString(text, -1) {
		if _, stop := stopwords[tok]; stop {
			continue
		}
		terms[tok] = struct{}{}
	}
	return terms
}

func enrich(svc catalog.Service, score int, matched []string, visitor chat.Profile) Recommendation {
	est := lookupEstimate(svc.ID, visitor.CompanySize)
	priority := priorityFor(score)

	tags := matched
	if len(tags) == 0 {
		tags = svc.Features[:min(3, len(svc.Features))]
	}

	return Recommendation{
		ID:             svc.ID,
		Title:          svc.Title,
		Description:    svc.Description,
		RelevanceScore: score,
		Reasoning:      reasoning(svc, priority, matched, visitor),
		EstimatedCost:  est.cost,
		Timeline:       est.timeline,
		Tags:           slices.Clone(tags),
		Priority:       priority,
	}
}

func priorityFor(score int) Priority {
	switch {
	case score > 70:
		return PriorityHigh
	case score > 50:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

func reasoning(svc catalog.Service, priority Priority, matched []string, visitor chat.Profile) string {
	focus := "your goals"
	if len(matched) > 0 {
		focus = strings.Join(matched, ", ")
	}
	who := "your team"
	if visitor.CompanySize != "" {
		who = fmt.Sprintf("a %s company", visitor.CompanySize)
	}

	switch priority {
	case PriorityHigh:
		return fmt.Sprintf("%s is a strong match: it directly addresses %s and is well suited to %s.", svc.Title, focus, who)
	case PriorityMedium:
		return fmt.Sprintf("%s is a good fit for %s and covers %s.", svc.Title, who, focus)
	default:
		return fmt.Sprintf("%s may be worth exploring as it relates to %s.", svc.Title, focus)
	}
}
