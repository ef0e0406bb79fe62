package tailor

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Bullet is one experience highlight plus the tags it can be matched on.
type Bullet struct {
	Text string   `json:"text"`
	Tags []string `json:"tags"`
}

// Template describes the role-specific resume content. Templates live as
// JSON files named <role>.json under the templates directory.
type Template struct {
	Summary    string   `json:"summary"`
	CoreSkills []string `json:"core_skills"`
	Bullets    []Bullet `json:"bullets"`
}

// builtinTemplate keeps tailoring functional with no templates directory at
// all, so a fresh install can produce materials immediately.
var builtinTemplate = Template{
	Summary:    "Results-driven engineer with experience aligned to the role.",
	CoreSkills: []string{"AWS", "Kubernetes", "Terraform", "CI/CD", "Linux"},
	Bullets: []Bullet{
		{Text: "Implemented CI/CD pipelines improving deployment frequency by {X}%.", Tags: []string{"ci", "cd"}},
		{Text: "Managed Kubernetes clusters and IaC with Terraform across {N} environments.", Tags: []string{"kubernetes", "terraform"}},
		{Text: "Built monitoring with Prometheus/Grafana reducing MTTR by {X}%.", Tags: []string{"prometheus", "grafana"}},
	},
}

// LoadTemplate resolves the template for a role: <role>.json first, then the
// devops.json fallback, then the built-in minimal template. A present but
// unreadable template file is an error rather than a silent fallback.
func LoadTemplate(templatesDir, role string) (Template, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		role = "devops"
	}
	if templatesDir != "" {
		for _, name := range []string{role + ".json", "devops.json"} {
			tpl, err := readTemplateFile(filepath.Join(templatesDir, name))
			if err == nil {
				return tpl, nil
			}
			if !errors.Is(err, fs.ErrNotExist) {
				return Template{}, err
			}
		}
	}
	return builtinTemplate, nil
}

func readTemplateFile(path string) (Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Template{}, err
	}
	var tpl Template
	if err := json.Unmarshal(data, &tpl); err != nil {
		return Template{}, fmt.Errorf("parse template %s: %w", path, err)
	}
	return tpl, nil
}
