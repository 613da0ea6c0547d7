package recommend

import "github.com/zhouzirui/consult/backend/internal/model/chat"

// profile describes how a catalog service is matched against visitors.
type profile struct {
	keywords   []string
	industries []string
	sizes      []chat.CompanySize
	challenges []string
}

var serviceProfiles = map[string]profile{
	"cloud-cost-optimization": {
		keywords:   []string{"aws", "azure", "gcp", "bill", "bills", "cost", "costs", "spend", "spending", "reduce", "reducing", "savings", "finops", "budget", "expensive", "optimize", "optimization"},
		industries: []string{"saas", "ecommerce", "finance", "media"},
		sizes:      []chat.CompanySize{chat.SizeMedium, chat.SizeEnterprise},
		challenges: []string{"cost reduction", "bill", "cost", "costs", "expensive", "spend"},
	},
	"cloud-migration": {
		keywords:   []string{"cloud", "migrate", "migration", "aws", "azure", "gcp", "on-premise", "premise", "datacenter", "hosting", "servers", "lift"},
		industries: []string{"finance", "healthcare", "manufacturing", "retail", "logistics"},
		sizes:      []chat.CompanySize{chat.SizeMedium, chat.SizeEnterprise},
		challenges: []string{"legacy modernization", "legacy", "outdated", "scalability", "datacenter"},
	},
	"devops-automation": {
		keywords:   []string{"devops", "ci", "cd", "pipeline", "pipelines", "deploy", "deployment", "deployments", "kubernetes", "docker", "terraform", "automation", "release", "releases", "infrastructure"},
		industries: []string{"saas", "finance", "ecommerce"},
		sizes:      []chat.CompanySize{chat.SizeStartup, chat.SizeSmall, chat.SizeMedium},
		challenges: []string{"delivery speed", "reliability", "automation", "slow", "downtime"},
	},
	"ai-integration": {
		keywords:   []string{"ai", "ml", "machine", "learning", "llm", "chatbot", "chatbots", "gpt", "predictive", "recommendation", "recommendations", "model", "models", "intelligence"},
		industries: []string{"healthcare", "finance", "ecommerce", "retail", "saas", "education"},
		sizes:      []chat.CompanySize{chat.SizeStartup, chat.SizeMedium, chat.SizeEnterprise},
		challenges: []string{"automation", "manual processes", "customer support", "personalization"},
	},
	"web-development": {
		keywords:   []string{"web", "website", "app", "application", "applications", "portal", "frontend", "backend", "api", "react", "mvp", "build", "platform"},
		industries: []string{"ecommerce", "education", "real-estate", "nonprofit", "media"},
		sizes:      []chat.CompanySize{chat.SizeStartup, chat.SizeSmall},
		challenges: []string{"performance", "mvp", "time to market", "user experience"},
	},
	"data-analytics": {
		keywords:   []string{"data", "analytics", "dashboard", "dashboards", "warehouse", "etl", "pipeline", "reporting", "bi", "insights", "metrics", "sql"},
		industries: []string{"retail", "logistics", "finance", "healthcare", "manufacturing"},
		sizes:      []chat.CompanySize{chat.SizeMedium, chat.SizeEnterprise},
		challenges: []string{"data integration", "data silos", "reporting", "visibility"},
	},
	"security-compliance": {
		keywords:   []string{"security", "secure", "compliance", "soc", "hipaa", "gdpr", "audit", "penetration", "pentest", "vulnerability", "breach", "iam"},
		industries: []string{"healthcare", "finance", "education"},
		sizes:      []chat.CompanySize{chat.SizeSmall, chat.SizeMedium, chat.SizeEnterprise},
		challenges: []string{"security", "compliance", "breach", "audit"},
	},
}

type estimate struct {
	cost     string
	timeline string
}

const (
	defaultCost     = "custom pricing"
	defaultTimeline = "typical 4–8 week timeline"
)

// estimates is keyed by service id, then company size.
var estimates = map[string]map[chat.CompanySize]estimate{
	"cloud-cost-optimization": {
		chat.SizeStartup:    {"$3k–$8k", "2–3 weeks"},
		chat.SizeSmall:      {"$5k–$15k", "3–4 weeks"},
		chat.SizeMedium:     {"$15k–$40k", "4–6 weeks"},
		chat.SizeEnterprise: {"$40k–$120k", "6–10 weeks"},
	},
	"cloud-migration": {
		chat.SizeSmall:      {"$15k–$40k", "4–8 weeks"},
		chat.SizeMedium:     {"$40k–$150k", "2–4 months"},
		chat.SizeEnterprise: {"$150k+", "4–9 months"},
	},
	"devops-automation": {
		chat.SizeStartup:    {"$5k–$15k", "2–4 weeks"},
		chat.SizeSmall:      {"$10k–$30k", "3–6 weeks"},
		chat.SizeMedium:     {"$30k–$80k", "6–10 weeks"},
		chat.SizeEnterprise: {"$80k–$200k", "3–6 months"},
	},
	"ai-integration": {
		chat.SizeStartup:    {"$10k–$30k", "4–8 weeks"},
		chat.SizeSmall:      {"$20k–$50k", "6–10 weeks"},
		chat.SizeMedium:     {"$50k–$150k", "2–4 months"},
		chat.SizeEnterprise: {"$150k+", "3–6 months"},
	},
	"web-development": {
		chat.SizeStartup: {"$5k–$25k", "4–8 weeks"},
		chat.SizeSmall:   {"$15k–$50k", "6–12 weeks"},
		chat.SizeMedium:  {"$50k–$150k", "3–5 months"},
	},
	"data-analytics": {
		chat.SizeSmall:      {"$10k–$30k", "4–6 weeks"},
		chat.SizeMedium:     {"$30k–$100k", "2–3 months"},
		chat.SizeEnterprise: {"$100k+", "3–6 months"},
	},
	"security-compliance": {
		chat.SizeStartup:    {"$5k–$12k", "2–4 weeks"},
		chat.SizeSmall:      {"$10k–$25k", "3–6 weeks"},
		chat.SizeMedium:     {"$25k–$60k", "6–8 weeks"},
		chat.SizeEnterprise: {"$60k–$180k", "2–4 months"},
	},
}

func lookupEstimate(serviceID string, size chat.CompanySize) estimate {
	if bySize, ok := estimates[serviceID]; ok {
		if e, ok := bySize[size]; ok {
			return e
		}
	}
	return estimate{cost: defaultCost, timeline: defaultTimeline}
}

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "but": {}, "by": {}, "can": {},
	"do": {}, "does": {}, "for": {}, "from": {}, "have": {}, "help": {}, "how": {}, "i": {}, "in": {}, "is": {},
	"it": {}, "me": {}, "my": {}, "need": {}, "of": {}, "on": {}, "or": {}, "our": {}, "so": {}, "that": {},
	"the": {}, "this": {}, "to": {}, "want": {}, "we": {}, "what": {}, "with": {}, "you": {}, "your": {},
}
