package tailor

import "strings"

// roleKeywords maps a role template name to the vocabulary that signals it.
// Detection is a plain substring count over title plus description; the role
// with the most hits wins and ties keep "general".
var roleKeywords = map[string][]string{
	"devops": {
		"devops", "sre", "platform", "site reliability", "infra", "observability",
		"aws", "gcp", "azure", "kubernetes", "k8s", "helm", "terraform", "pulumi",
		"ansible", "packer", "docker", "container", "eks", "ec2", "vpc",
		"ci", "cd", "github actions", "gitlab ci", "jenkins", "argo", "flux",
		"prometheus", "grafana", "loki", "otel", "datadog", "elk", "splunk",
		"linux", "bash", "python", "go", "network", "security", "iam", "vault",
	},
	"sales": {
		"sales", "account executive", "quota", "pipeline", "crm", "salesforce",
		"prospecting", "enterprise", "mid-market", "smb", "renewals", "expansion",
		"payments", "fintech", "saas", "demo", "discovery", "closing", "forecast",
	},
	"data": {
		"data", "ml", "machine learning", "ai", "nlp", "llm", "analytics",
		"python", "pandas", "spark", "sql", "dbt", "warehouse", "snowflake",
		"bigquery", "airflow", "orchestration", "model", "training", "inference",
	},
	"backend": {
		"backend", "server", "api", "microservices", "grpc", "rest", "python",
		"go", "java", "kafka", "redis", "postgres", "mysql", "nosql",
		"kubernetes", "docker", "ci", "cd", "aws",
	},
}

// DetectRole picks the template role for a job. An explicit role from the
// applicant profile always wins.
func DetectRole(title, description, explicit string) string {
	if explicit = strings.ToLower(strings.TrimSpace(explicit)); explicit != "" {
		return explicit
	}
	text := strings.ToLower(title + " " + description)

	bestRole := "general"
	bestHits := 0
	// Fixed evaluation order keeps detection deterministic across runs.
	for _, role := range []string{"backend", "data", "devops", "sales"} {
		hits := 0
		for _, kw := range roleKeywords[role] {
			if strings.Contains(text, kw) {
				hits++
			}
		}
		if hits > bestHits {
			bestHits = hits
			bestRole = role
		}
	}
	return bestRole
}
