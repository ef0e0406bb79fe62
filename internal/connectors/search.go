package connectors

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"applyd/internal/config"
	"applyd/internal/logging"
)

// Request filters and weights a search across the configured boards.
type Request struct {
	Roles     []string `json:"roles"`
	Keywords  []string `json:"keywords"`
	Locations []string `json:"locations"`
	MinScore  int      `json:"min_score"`
}

// ScoredJob is a posting with its relevance score attached.
type ScoredJob struct {
	Job
	Score int `json:"score"`
}

// Searcher fans a search out to every configured greenhouse board and lever
// company, scores the merged results, and dedupes them. A failing board is a
// warning, not a search failure.
type Searcher struct {
	greenhouse *Greenhouse
	lever      *Lever
	boards     []string
	companies  []string
	logger     *slog.Logger
}

// NewSearcher builds a searcher over the configured boards.
func NewSearcher(cfg *config.Config, logger *slog.Logger) *Searcher {
	timeout := time.Duration(cfg.Connectors.RequestTimeout) * time.Second
	return &Searcher{
		greenhouse: NewGreenhouse(timeout, logger),
		lever:      NewLever(timeout, logger),
		boards:     cfg.Connectors.GreenhouseBoards,
		companies:  cfg.Connectors.LeverCompanies,
		logger:     logging.WithComponent(logger, "connectors"),
	}
}

// Search queries all boards sequentially and returns scored, deduped
// postings ordered best-first.
func (s *Searcher) Search(ctx context.Context, req Request) ([]ScoredJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var jobs []Job
	for _, board := range s.boards {
		fetched, err := s.greenhouse.Fetch(ctx, board, req.Roles, req.Locations)
		if err != nil {
			s.logger.Warn("greenhouse board failed",
				logging.String("board", board), logging.Error(err))
			continue
		}
		jobs = append(jobs, fetched...)
	}
	for _, company := range s.companies {
		fetched, err := s.lever.Fetch(ctx, company, req.Roles, req.Locations)
		if err != nil {
			s.logger.Warn("lever company failed",
				logging.String("company", company), logging.Error(err))
			continue
		}
		jobs = append(jobs, fetched...)
	}

	scored := make([]ScoredJob, 0, len(jobs))
	for _, j := range jobs {
		score := ScoreJob(j, req)
		if score < req.MinScore {
			continue
		}
		scored = append(scored, ScoredJob{Job: j, Score: score})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	return dedupe(scored), nil
}

// ScoreJob rates a posting against the request vocabulary: each token found
// in the title scores 25, otherwise 10 if found in the description; a
// location match adds 10 once. A posting with no hits at all floors at 50,
// and the total clamps to 0-100.
func ScoreJob(j Job, req Request) int {
	title := strings.ToLower(j.Title)
	description := strings.ToLower(j.Description)
	location := strings.ToLower(j.Location)

	score := 0
	for _, tok := range searchTokens(append(append([]string{}, req.Roles...), req.Keywords...)) {
		if strings.Contains(title, tok) {
			score += 25
		} else if strings.Contains(description, tok) {
			score += 10
		}
	}
	for _, loc := range req.Locations {
		if loc != "" && strings.Contains(location, strings.ToLower(loc)) {
			score += 10
			break
		}
	}

	if score == 0 {
		score = 50
	}
	if score > 100 {
		score = 100
	}
	return score
}

// searchTokens expands each term into the full phrase plus its individual
// words, so "site reliability" matches both the phrase and either word. A
// single-word term yields the same token twice, weighting exact role names
// above incidental word hits.
func searchTokens(terms []string) []string {
	var tokens []string
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		tokens = append(tokens, term)
		cleaned := strings.NewReplacer("/", " ", "-", " ").Replace(term)
		tokens = append(tokens, strings.Fields(cleaned)...)
	}
	return tokens
}

// dedupe keeps the first posting per (company, title, url) key. Input order
// is best-first, so the survivor is the highest scored duplicate.
func dedupe(jobs []ScoredJob) []ScoredJob {
	seen := make(map[string]struct{}, len(jobs))
	out := make([]ScoredJob, 0, len(jobs))
	for _, j := range jobs {
		key := strings.ToLower(j.Company) + "\x00" + strings.ToLower(j.Title) + "\x00" + j.URL
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, j)
	}
	return out
}
