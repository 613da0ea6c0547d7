package catalog

// Service is one consulting offering exposed to the recommender and the
// chat widget.
type Service struct {
	ID          string   `json:"id"`
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
}

// Seed provides the default service catalog.
func Seed() []Service {
	return []Service{
		{
			ID:          "cloud-cost-optimization",
			Slug:        "cloud-cost-optimization",
			Title:       "Cloud Cost Optimization",
			Description: "Audit and reduce AWS, Azure and GCP spend through rightsizing, reserved capacity planning and FinOps practices.",
			Features:    []string{"Cost audit", "Rightsizing", "Reserved instance planning", "FinOps dashboards", "Budget alerts"},
		},
		{
			ID:          "cloud-migration",
			Slug:        "cloud-migration",
			Title:       "Cloud Migration",
			Description: "Move on-premise workloads to the cloud with minimal downtime using proven lift-and-shift and re-platforming playbooks.",
			Features:    []string{"Migration assessment", "Landing zone setup", "Data migration", "Cutover planning", "Hybrid connectivity"},
		},
		{
			ID:          "devops-automation",
			Slug:        "devops-automation",
			Title:       "DevOps & CI/CD Automation",
			Description: "Ship faster with automated pipelines, infrastructure as code and container orchestration.",
			Features:    []string{"CI/CD pipelines", "Infrastructure as code", "Kubernetes", "Monitoring", "Release automation"},
		},
		{
			ID:          "ai-integration",
			Slug:        "ai-integration",
			Title:       "AI & Machine Learning Integration",
			Description: "Add chatbots, recommendation engines and predictive analytics to existing products.",
			Features:    []string{"LLM integration", "Chatbots", "Predictive models", "Recommendation engines", "MLOps"},
		},
		{
			ID:          "web-development",
			Slug:        "web-development",
			Title:       "Custom Web Application Development",
			Description: "Design and build scalable web applications, customer portals and APIs.",
			Features:    []string{"Web applications", "API development", "Customer portals", "Performance tuning", "Accessibility"},
		},
		{
			ID:          "data-analytics",
			Slug:        "data-analytics",
			Title:       "Data Engineering & Analytics",
			Description: "Build data pipelines, warehouses and dashboards that turn raw data into decisions.",
			Features:    []string{"Data pipelines", "Data warehouse", "Business intelligence", "Dashboards", "Real-time analytics"},
		},
		{
			ID:          "security-compliance",
			Slug:        "security-compliance",
			Title:       "Security & Compliance",
			Description: "Harden infrastructure and prepare for SOC 2, HIPAA and GDPR audits.",
			Features:    []string{"Security audit", "Penetration testing", "Compliance readiness", "Identity management", "Incident response"},
		},
	}
}
