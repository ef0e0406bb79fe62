package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"applyd/internal/logging"
)

const greenhouseBaseURL = "https://boards-api.greenhouse.io/v1/boards"

// Greenhouse fetches postings from the public greenhouse board API.
type Greenhouse struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewGreenhouse builds a greenhouse connector with the given request timeout.
func NewGreenhouse(timeout time.Duration, logger *slog.Logger) *Greenhouse {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Greenhouse{
		baseURL: greenhouseBaseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logging.WithComponent(logger, "connectors.greenhouse"),
	}
}

type greenhouseJob struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	AbsoluteURL string `json:"absolute_url"`
	URL         string `json:"url"`
	Content     string `json:"content"`
	UpdatedAt   string `json:"updated_at"`
	CreatedAt   string `json:"created_at"`
	Offices     []struct {
		Name string `json:"name"`
	} `json:"offices"`
	Location struct {
		Name string `json:"name"`
	} `json:"location"`
}

type greenhouseResponse struct {
	Jobs []greenhouseJob `json:"jobs"`
}

// Fetch lists a board's postings filtered by role and location substrings.
// The board token doubles as the company identifier.
func (g *Greenhouse) Fetch(ctx context.Context, board string, roles, locations []string) ([]Job, error) {
	url := fmt.Sprintf("%s/%s/jobs", g.baseURL, board)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build greenhouse request: %w", err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch greenhouse board %s: %w", board, err)
	}
	data, err := decodeBody(resp, 8<<20)
	if err != nil {
		return nil, fmt.Errorf("greenhouse board %s: %w", board, err)
	}

	var decoded greenhouseResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("decode greenhouse board %s: %w", board, err)
	}

	out := make([]Job, 0, len(decoded.Jobs))
	for _, j := range decoded.Jobs {
		if !matchesAny(j.Title, roles) {
			continue
		}
		offices := make([]string, 0, len(j.Offices))
		for _, o := range j.Offices {
			offices = append(offices, o.Name)
		}
		if !matchesAny(strings.Join(offices, " | "), locations) {
			continue
		}

		jobURL := j.AbsoluteURL
		if jobURL == "" {
			jobURL = j.URL
		}
		created := j.UpdatedAt
		if created == "" {
			created = j.CreatedAt
		}
		location := j.Location.Name
		if len(offices) > 0 {
			location = offices[0]
		}

		out = append(out, Job{
			ID:          fmt.Sprintf("gh-%s-%d", board, j.ID),
			Title:       j.Title,
			Company:     board,
			Location:    location,
			Source:      "greenhouse",
			URL:         jobURL,
			Description: stripHTML(j.Content),
			CreatedAt:   created,
		})
	}
	g.logger.Debug("board fetched",
		logging.String("board", board),
		logging.Int("matched", len(out)),
		logging.Int("total", len(decoded.Jobs)),
	)
	return out, nil
}
