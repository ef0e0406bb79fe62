package tailor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"applyd/internal/config"
	"applyd/internal/logging"
)

// Job is the input to tailoring: the boundary fields of an application plus
// the stripped job description text.
type Job struct {
	URL         string
	Company     string
	Title       string
	Portal      string
	Description string
}

// Tailor produces submission materials for a job. Output is a pure function
// of the job, the applicant profile, and the role templates: the same inputs
// always yield byte-identical files at the same paths.
type Tailor struct {
	dataDir      string
	templatesDir string
	profile      config.Profile
	logger       *slog.Logger
}

const (
	maxKeywords   = 200
	bulletLimit   = 6
	extraSkillCap = 8
)

var tokenPattern = regexp.MustCompile(`[a-zA-Z0-9+#.]+`)

// New builds a tailor rooted at the configured data and templates
// directories.
func New(cfg *config.Config, logger *slog.Logger) *Tailor {
	return &Tailor{
		dataDir:      cfg.Paths.DataDir,
		templatesDir: cfg.Paths.TemplatesDir,
		profile:      cfg.Profile,
		logger:       logging.WithComponent(logger, "tailor"),
	}
}

// Tailor generates a text resume and cover letter for the job and returns
// artifact paths keyed resume_path and cover_letter_path, alongside the
// detected role and a keyword-coverage score.
func (t *Tailor) Tailor(ctx context.Context, job Job) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(job.Title) == "" && strings.TrimSpace(job.Company) == "" {
		return nil, fmt.Errorf("job has neither title nor company")
	}

	role := DetectRole(job.Title, job.Description, t.profile.Role)
	tpl, err := LoadTemplate(t.templatesDir, role)
	if err != nil {
		return nil, err
	}

	keywords := ExtractKeywords(job.Description)
	bullets := chooseBullets(tpl, keywords, bulletLimit)

	base := slug(job.Company) + "-" + slug(job.Title)
	resumePath := filepath.Join(t.dataDir, "resumes", base+".txt")
	coverPath := filepath.Join(t.dataDir, "cover_letters", base+".txt")

	if err := writeArtifact(resumePath, t.renderResume(job, tpl, bullets, keywords)); err != nil {
		return nil, err
	}
	if err := writeArtifact(coverPath, t.renderCoverLetter(job, bullets)); err != nil {
		return nil, err
	}

	score := coverageScore(tpl.CoreSkills, bullets, keywords)
	t.logger.Info("materials generated",
		logging.String("company", job.Company),
		logging.String("title", job.Title),
		logging.String("role", role),
		logging.Int("match_score", score),
	)

	return map[string]any{
		"role_detected":     role,
		"resume_path":       resumePath,
		"cover_letter_path": coverPath,
		"match_score":       score,
	}, nil
}

// ExtractKeywords tokenizes a job description and returns the distinct terms
// longer than two characters ordered by frequency, first appearance breaking
// ties, capped at maxKeywords.
func ExtractKeywords(description string) []string {
	tokens := tokenPattern.FindAllString(strings.ToLower(description), -1)

	counts := make(map[string]int, len(tokens))
	order := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if len(tok) <= 2 {
			continue
		}
		if counts[tok] == 0 {
			order = append(order, tok)
		}
		counts[tok]++
	}

	firstSeen := make(map[string]int, len(order))
	for i, tok := range order {
		firstSeen[tok] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if counts[a] != counts[b] {
			return counts[a] > counts[b]
		}
		return firstSeen[a] < firstSeen[b]
	})

	if len(order) > maxKeywords {
		order = order[:maxKeywords]
	}
	return order
}

var placeholderFills = strings.NewReplacer(
	"{X}", "30",
	"{N}", "5",
	"{M}", "60",
	"{period}", "last year",
)

// chooseBullets ranks template bullets by tag overlap with the description
// keywords, keeps the top limit, and fills the numeric placeholders.
func chooseBullets(tpl Template, keywords []string, limit int) []string {
	keywordSet := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		keywordSet[kw] = struct{}{}
	}

	type scored struct {
		overlap int
		text    string
	}
	ranked := make([]scored, 0, len(tpl.Bullets))
	for _, b := range tpl.Bullets {
		overlap := 0
		for _, tag := range b.Tags {
			if _, ok := keywordSet[strings.ToLower(tag)]; ok {
				overlap++
			}
		}
		ranked = append(ranked, scored{overlap: overlap, text: b.Text})
	}
	// Stable sort: template order breaks overlap ties.
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].overlap > ranked[j].overlap })

	out := make([]string, 0, limit)
	for i, b := range ranked {
		if i >= limit {
			break
		}
		out = append(out, placeholderFills.Replace(b.text))
	}
	return out
}

func (t *Tailor) fullName() string {
	name := strings.TrimSpace(t.profile.FirstName + " " + t.profile.LastName)
	if name == "" {
		return "Your Name"
	}
	return name
}

func (t *Tailor) renderResume(job Job, tpl Template, bullets, keywords []string) string {
	var b strings.Builder
	fmt.Fprintln(&b, t.fullName())
	fmt.Fprintf(&b, "%s | %s | %s\n", t.profile.Email, t.profile.Phone, t.profile.LinkedIn)
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "Summary")
	fmt.Fprintln(&b, tpl.Summary)
	fmt.Fprintln(&b)

	// Core skills plus description keywords not already covered, so the
	// rendered resume reflects the posting's own vocabulary.
	seen := make(map[string]struct{}, len(tpl.CoreSkills))
	for _, s := range tpl.CoreSkills {
		seen[strings.ToUpper(s)] = struct{}{}
	}
	skills := append([]string(nil), tpl.CoreSkills...)
	extra := 0
	for _, kw := range keywords {
		if extra >= extraSkillCap {
			break
		}
		if _, ok := seen[strings.ToUpper(kw)]; ok {
			continue
		}
		seen[strings.ToUpper(kw)] = struct{}{}
		skills = append(skills, kw)
		extra++
	}
	fmt.Fprintln(&b, "Core Skills")
	fmt.Fprintln(&b, strings.Join(skills, ", "))
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "Experience Highlights")
	for _, bullet := range bullets {
		fmt.Fprintf(&b, "- %s\n", bullet)
	}
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "Prepared for: %s, %s (%s)\n", job.Title, job.Company, job.URL)
	return b.String()
}

func (t *Tailor) renderCoverLetter(job Job, bullets []string) string {
	company := job.Company
	if company == "" {
		company = "the company"
	}
	title := job.Title
	if title == "" {
		title = "role"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Dear Hiring Team at %s,\n\n", company)
	fmt.Fprintf(&b, "I am excited to apply for the %s position. My background aligns closely with your needs, particularly around the areas highlighted in the job description.\n\n", title)
	fmt.Fprintln(&b, "A few relevant highlights:")
	for i, bullet := range bullets {
		if i >= 3 {
			break
		}
		fmt.Fprintf(&b, "- %s\n", bullet)
	}
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "I value pragmatic automation, clear SLOs, and collaborative delivery with security as a first principle. I would welcome the chance to talk through how I can help your team achieve its goals.")
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "Best regards,\n%s\n%s | %s\n", t.fullName(), t.profile.Email, t.profile.Phone)
	return b.String()
}

// coverageScore estimates how well the materials cover the description
// vocabulary: skill matches weigh double bullet matches, normalized against
// the description size and clamped to 0-100.
func coverageScore(coreSkills, bullets, keywords []string) int {
	keywordSet := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		keywordSet[strings.ToLower(kw)] = struct{}{}
	}

	skillCov := 0
	for _, s := range coreSkills {
		if _, ok := keywordSet[strings.ToLower(s)]; ok {
			skillCov++
		}
	}

	bulletTerms := make(map[string]struct{})
	for _, b := range bullets {
		for _, tok := range tokenPattern.FindAllString(strings.ToLower(b), -1) {
			if len(tok) > 2 {
				bulletTerms[tok] = struct{}{}
			}
		}
	}
	bulletCov := 0
	for term := range bulletTerms {
		if _, ok := keywordSet[term]; ok {
			bulletCov++
		}
	}

	raw := 2*skillCov + bulletCov
	denom := len(keywords) / 4
	if denom < 8 {
		denom = 8
	}
	score := raw * 100 / denom
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		s = "doc"
	}
	return strings.Trim(slugPattern.ReplaceAllString(s, "-"), "-")
}

func writeArtifact(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write artifact %s: %w", path, err)
	}
	return nil
}
