package response

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/consult/backend/internal/analysis/intent"
	"github.com/zhouzirui/consult/backend/internal/model/chat"
)

// FallbackGreeting is used when the welcome template itself cannot be built.
const FallbackGreeting = "Hi! I'm the virtual assistant. How can we help your business today?"

var industryLabels = map[string]string{
	"healthcare":    "healthcare organizations",
	"finance":       "financial services companies",
	"ecommerce":     "e-commerce brands",
	"retail":        "retailers",
	"manufacturing": "manufacturers",
	"education":     "education providers",
	"logistics":     "logistics companies",
	"real-estate":   "real estate firms",
	"saas":          "SaaS companies",
	"media":         "media companies",
	"nonprofit":     "nonprofits",
}

var sizeLabels = map[chat.CompanySize]string{
	chat.SizeStartup:    "startups",
	chat.SizeSmall:      "small businesses",
	chat.SizeMedium:     "mid-sized companies",
	chat.SizeEnterprise: "enterprises",
}

// pricingBuckets holds the canned pricing paragraph per company size.
var pricingBuckets = map[chat.CompanySize]string{
	chat.SizeStartup: "For startups, our packages start at $5,000–$15,000 for a focused MVP or cloud foundation, " +
		"and we offer phased payment plans so you only pay for the milestone you are on.",
	chat.SizeSmall: "For small businesses, typical engagements range from $15,000 to $40,000 depending on scope, " +
		"with fixed-price options for well-defined projects.",
	chat.SizeMedium: "For mid-sized companies, projects usually fall between $40,000 and $120,000, " +
		"often delivered in phases with a dedicated project lead.",
	chat.SizeEnterprise: "Enterprise programs are scoped individually and usually start around $120,000, " +
		"with dedicated teams, SLAs and flexible retainer models.",
}

const defaultPricing = "Our engagements range from $5,000 for focused startup projects to six-figure enterprise programs, " +
	"depending on scope and team size."

var timelineBuckets = map[chat.CompanySize]string{
	chat.SizeStartup:    "A startup MVP typically ships in 6–10 weeks, with a working prototype after the first two-week sprint.",
	chat.SizeSmall:      "Most small-business projects take 4–8 weeks from kickoff to launch.",
	chat.SizeMedium:     "Mid-sized projects usually run 2–4 months, delivered in phased releases.",
	chat.SizeEnterprise: "Enterprise programs are planned in quarters, with the first production release typically within 3 months.",
}

func audience(p chat.Profile) string {
	if label, ok := industryLabels[p.Industry]; ok {
		return label
	}
	if label, ok := sizeLabels[p.CompanySize]; ok {
		return label
	}
	return "businesses like yours"
}

// composers maps every intent to its canned reply.
var composers = map[intent.Intent]func(chat.Profile) string{
	intent.Greeting: func(p chat.Profile) string {
		if p.Industry != "" {
			return fmt.Sprintf("Hello! Great to meet someone from %s. What challenge are you looking to solve?", audience(p))
		}
		return "Hello! I can tell you about our services, pricing, timelines or past work. What are you working on?"
	},
	intent.ServiceInquiry: func(p chat.Profile) string {
		var b strings.Builder
		fmt.Fprintf(&b, "We help %s with cloud migration and cost optimization, DevOps automation, AI integration, custom web applications, data analytics and security.", audience(p))
		if len(p.Challenges) > 0 {
			fmt.Fprintf(&b, " Since you mentioned %s, I've highlighted the services that fit best.", strings.Join(p.Challenges, " and "))
		} else {
			b.WriteString(" Here are the services that look most relevant.")
		}
		return b.String()
	},
	intent.Pricing: func(p chat.Profile) string {
		text, ok := pricingBuckets[p.CompanySize]
		if !ok {
			text = defaultPricing
		}
		return text + " Would you like a free scoping call to get a precise estimate?"
	},
	intent.Technical: func(p chat.Profile) string {
		if len(p.TechStack) > 0 {
			return fmt.Sprintf("We work extensively with %s, alongside Kubernetes, Terraform and the major clouds. "+
				"Tell me a bit about your architecture and I can suggest an approach.", strings.Join(p.TechStack, ", "))
		}
		return "Our engineers work across AWS, Azure and GCP, Kubernetes, Terraform, React, Node.js, Python and Go. " +
			"What does your current stack look like?"
	},
	intent.Timeline: func(p chat.Profile) string {
		text, ok := timelineBuckets[p.CompanySize]
		if !ok {
			text = "Most projects run 4–8 weeks, while larger programs are delivered in phases over several months."
		}
		return text + " The exact schedule depends on scope and integrations."
	},
	intent.Portfolio: func(p chat.Profile) string {
		return fmt.Sprintf("We've delivered projects for %s ranging from cloud migrations to AI-powered products. "+
			"Here are a few case studies you might find relevant.", audience(p))
	},
	intent.General: func(p chat.Profile) string {
		return "Thanks for reaching out! I can help with questions about our services, pricing, technical approach, " +
			"timelines or past projects. What would you like to know?"
	},
}

func welcomeText(p chat.Profile) string {
	if p.Industry != "" || p.CompanySize.Valid() {
		return fmt.Sprintf("Welcome! We help %s build and scale with cloud, AI and modern software. "+
			"Ask me about services, pricing or timelines.", audience(p))
	}
	return "Welcome! I'm here to help you explore our consulting services. " +
		"Ask me about services, pricing, timelines or our past work."
}
