package vector

import (
	"strings"

	"github.com/zhouzirui/consult/backend/internal/model/content"
)

// Fixed similarity values used when ranking the fallback corpus.
const (
	titleMatchSimilarity   = 0.9
	contentMatchSimilarity = 0.75
	tagMatchSimilarity     = 0.6
	browseSimilarity       = 0.3
)

type corpusDoc struct {
	ID       string
	Type     string
	Category string
	Title    string
	Content  string
	Tags     []string
}

// fallbackCorpus answers searches when no live backend can.
var fallbackCorpus = []corpusDoc{
	{
		ID: "fallback-cloud-migration", Type: "case-study", Category: "cloud",
		Title:   "Retail platform cloud migration",
		Content: "Migrated a regional retailer's on-premise e-commerce stack to AWS in ten weeks with zero downtime during cutover.",
		Tags:    []string{"aws", "migration", "retail"},
	},
	{
		ID: "fallback-cloud-costs", Type: "case-study", Category: "cloud",
		Title:   "Cutting cloud spend by 38%",
		Content: "A FinOps review and rightsizing program reduced a SaaS company's monthly cloud bill by 38% without performance loss.",
		Tags:    []string{"cost", "finops", "saas"},
	},
	{
		ID: "fallback-devops", Type: "service", Category: "devops",
		Title:   "CI/CD and infrastructure as code",
		Content: "We design deployment pipelines with Terraform and Kubernetes so teams can release to the cloud several times a day.",
		Tags:    []string{"kubernetes", "terraform", "automation"},
	},
	{
		ID: "fallback-ai-support", Type: "case-study", Category: "ai",
		Title:   "AI assistant for customer support",
		Content: "An LLM-powered assistant resolved 45% of support tickets automatically for a fintech startup.",
		Tags:    []string{"llm", "chatbot", "fintech"},
	},
	{
		ID: "fallback-data", Type: "service", Category: "data",
		Title:   "Modern data platform",
		Content: "Data pipelines, a cloud data warehouse and dashboards that give leadership a single source of truth.",
		Tags:    []string{"analytics", "warehouse", "dashboards"},
	},
	{
		ID: "fallback-security", Type: "service", Category: "security",
		Title:   "SOC 2 readiness",
		Content: "Gap assessment, policy templates and technical controls to pass a SOC 2 Type II audit in one quarter.",
		Tags:    []string{"compliance", "soc2", "audit"},
	},
	{
		ID: "fallback-web", Type: "blog", Category: "web",
		Title:   "Choosing a stack for your MVP",
		Content: "How startups can pick a web stack that ships fast today and scales tomorrow, from React front ends to serverless APIs.",
		Tags:    []string{"startup", "react", "mvp"},
	},
	{
		ID: "fallback-healthcare", Type: "case-study", Category: "ai",
		Title:   "Predictive scheduling for clinics",
		Content: "A machine learning model forecast appointment no-shows and cut idle clinician time by 20% for a healthcare network.",
		Tags:    []string{"healthcare", "machine learning"},
	},
}

func (d corpusDoc) result(similarity float64) content.SearchResult {
	return content.SearchResult{
		ID:         d.ID,
		Content:    d.Content,
		Similarity: similarity,
		Metadata: map[string]any{
			"title":    d.Title,
			"type":     d.Type,
			"category": d.Category,
			"tags":     append([]string(nil), d.Tags...),
			"fallback": true,
		},
	}
}

// searchFallback ranks the corpus by substring heuristics. When nothing
// matches, the filtered corpus is returned in browse order so callers always
// get something to show.
func searchFallback(query string, opts content.SearchOptions) []content.SearchResult {
	q := strings.ToLower(strings.TrimSpace(query))

	var matched, browse []content.SearchResult
	for _, doc := range fallbackCorpus {
		if !opts.Matches(doc.Category, doc.Type) {
			continue
		}
		browse = append(browse, doc.result(browseSimilarity))
		if q == "" {
			continue
		}
		if sim, ok := heuristicSimilarity(doc, q); ok {
			matched = append(matched, doc.result(sim))
		}
	}

	results := matched
	if len(results) == 0 {
		results = browse
	}
	sortResults(results)
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results
}

func heuristicSimilarity(doc corpusDoc, q string) (float64, bool) {
	switch {
	case strings.Contains(strings.ToLower(doc.Title), q):
		return titleMatchSimilarity, true
	case strings.Contains(strings.ToLower(doc.Content), q):
		return contentMatchSimilarity, true
	}
	for _, tag := range doc.Tags {
		if strings.Contains(q, tag) || strings.Contains(tag, q) {
			return tagMatchSimilarity, true
		}
	}
	if strings.Contains(q, doc.Category) {
		return tagMatchSimilarity, true
	}
	return 0, false
}
