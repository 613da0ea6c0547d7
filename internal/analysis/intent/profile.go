package intent

import (
	"regexp"
	"sort"
	"strings"

	"github.com/zhouzirui/consult/backend/internal/model/chat"
)

type term struct {
	keyword string
	value   string
	re      *regexp.Regexp
}

// dictionary 按关键词长度降序排列，保证长词优先命中。
type dictionary []term

func newDictionary(entries map[string]string) dictionary {
	d := make(dictionary, 0, len(entries))
	for keyword, value := range entries {
		d = append(d, term{
			keyword: keyword,
			value:   value,
			re:      regexp.MustCompile(`(?i)(^|[^a-z0-9])` + regexp.QuoteMeta(keyword) + `($|[^a-z0-9])`),
		})
	}
	sort.Slice(d, func(i, j int) bool {
		if len(d[i].keyword) != len(d[j].keyword) {
			return len(d[i].keyword) > len(d[j].keyword)
		}
		return d[i].keyword < d[j].keyword
	})
	return d
}

func (d dictionary) first(text string) (string, bool) {
	for _, t := range d {
		if t.re.MatchString(text) {
			return t.value, true
		}
	}
	return "", false
}

var (
	industries = newDictionary(map[string]string{
		"healthcare":    "healthcare",
		"health care":   "healthcare",
		"hospital":      "healthcare",
		"clinic":        "healthcare",
		"medical":       "healthcare",
		"fintech":       "finance",
		"finance":       "finance",
		"financial":     "finance",
		"bank":          "finance",
		"banking":       "finance",
		"insurance":     "finance",
		"e-commerce":    "ecommerce",
		"ecommerce":     "ecommerce",
		"online store":  "ecommerce",
		"retail":        "retail",
		"manufacturing": "manufacturing",
		"factory":       "manufacturing",
		"education":     "education",
		"edtech":        "education",
		"university":    "education",
		"logistics":     "logistics",
		"supply chain":  "logistics",
		"real estate":   "real-estate",
		"saas":          "saas",
		"software":      "saas",
		"media":         "media",
		"nonprofit":     "nonprofit",
		"non-profit":    "nonprofit",
	})

	companySizes = newDictionary(map[string]string{
		"startup":          string(chat.SizeStartup),
		"start-up":         string(chat.SizeStartup),
		"founder":          string(chat.SizeStartup),
		"seed stage":       string(chat.SizeStartup),
		"small business":   string(chat.SizeSmall),
		"small team":       string(chat.SizeSmall),
		"small company":    string(chat.SizeSmall),
		"smb":              string(chat.SizeSmall),
		"mid-size":         string(chat.SizeMedium),
		"mid-sized":        string(chat.SizeMedium),
		"midsize":          string(chat.SizeMedium),
		"medium-sized":     string(chat.SizeMedium),
		"growing company":  string(chat.SizeMedium),
		"enterprise":       string(chat.SizeEnterprise),
		"large company":    string(chat.SizeEnterprise),
		"corporation":      string(chat.SizeEnterprise),
		"fortune 500":      string(chat.SizeEnterprise),
		"multinational":    string(chat.SizeEnterprise),
		"large enterprise": string(chat.SizeEnterprise),
	})

	challenges = newDictionary(map[string]string{
		"reduce costs":       "cost reduction",
		"reducing costs":     "cost reduction",
		"cloud bill":         "cost reduction",
		"aws bill":           "cost reduction",
		"bill":               "cost reduction",
		"too expensive":      "cost reduction",
		"scalability":        "scalability",
		"scale":              "scalability",
		"scaling":            "scalability",
		"legacy":             "legacy modernization",
		"outdated":           "legacy modernization",
		"security":           "security",
		"breach":             "security",
		"compliance":         "compliance",
		"slow deployments":   "delivery speed",
		"slow releases":      "delivery speed",
		"downtime":           "reliability",
		"outages":            "reliability",
		"data silos":         "data integration",
		"manual processes":   "automation",
		"hiring":             "talent shortage",
		"performance issues": "performance",
		"slow":               "performance",
	})

	interests = newDictionary(map[string]string{
		"artificial intelligence": "ai",
		"machine learning":        "ai",
		"ai":                      "ai",
		"chatbot":                 "ai",
		"llm":                     "ai",
		"cloud":                   "cloud",
		"migration":               "cloud",
		"automation":              "automation",
		"ci/cd":                   "automation",
		"devops":                  "automation",
		"analytics":               "analytics",
		"dashboards":              "analytics",
		"data warehouse":          "analytics",
		"mobile app":              "mobile",
		"web app":                 "web",
		"website":                 "web",
		"cost optimization":       "cost optimization",
		"finops":                  "cost optimization",
	})

	techStack = newDictionary(map[string]string{
		"aws":          "aws",
		"amazon web":   "aws",
		"azure":        "azure",
		"gcp":          "gcp",
		"google cloud": "gcp",
		"kubernetes":   "kubernetes",
		"k8s":          "kubernetes",
		"docker":       "docker",
		"react":        "react",
		"node.js":      "nodejs",
		"nodejs":       "nodejs",
		"python":       "python",
		"golang":       "go",
		"java":         "java",
		"postgres":     "postgresql",
		"postgresql":   "postgresql",
		"mysql":        "mysql",
		"terraform":    "terraform",
	})
)

// InferProfile 从累计的用户发言中推断画像字段，每个类别只取第一个命中项。
func InferProfile(utterances []string) chat.Profile {
	text := strings.ToLower(strings.Join(utterances, "\n"))
	var p chat.Profile
	if text == "" {
		return p
	}

	if v, ok := industries.first(text); ok {
		p.Industry = v
	}
	if v, ok := companySizes.first(text); ok {
		p.CompanySize = chat.CompanySize(v)
	}
	if v, ok := challenges.first(text); ok {
		p.Challenges = []string{v}
	}
	if v, ok := interests.first(text); ok {
		p.Interests = []string{v}
	}
	if v, ok := techStack.first(text); ok {
		p.TechStack = []string{v}
	}
	return p
}
