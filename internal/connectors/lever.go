package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"applyd/internal/logging"
)

const leverBaseURL = "https://api.lever.co/v0/postings"

// Lever fetches postings from the public lever postings API.
type Lever struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewLever builds a lever connector with the given request timeout.
func NewLever(timeout time.Duration, logger *slog.Logger) *Lever {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Lever{
		baseURL: leverBaseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logging.WithComponent(logger, "connectors.lever"),
	}
}

type leverJob struct {
	ID               string `json:"id"`
	Text             string `json:"text"`
	HostedURL        string `json:"hostedUrl"`
	ApplyURL         string `json:"applyUrl"`
	Description      string `json:"description"`
	DescriptionPlain string `json:"descriptionPlain"`
	CreatedAt        int64  `json:"createdAt"`
	Categories       struct {
		Location string `json:"location"`
	} `json:"categories"`
}

// Fetch lists a company's postings filtered by role and location substrings.
func (l *Lever) Fetch(ctx context.Context, company string, roles, locations []string) ([]Job, error) {
	url := fmt.Sprintf("%s/%s?mode=json", l.baseURL, company)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build lever request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch lever company %s: %w", company, err)
	}
	data, err := decodeBody(resp, 8<<20)
	if err != nil {
		return nil, fmt.Errorf("lever company %s: %w", company, err)
	}

	var decoded []leverJob
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("decode lever company %s: %w", company, err)
	}

	out := make([]Job, 0, len(decoded))
	for _, j := range decoded {
		if !matchesAny(j.Text, roles) || !matchesAny(j.Categories.Location, locations) {
			continue
		}

		description := capDescription(j.DescriptionPlain)
		if description == "" {
			description = stripHTML(j.Description)
		}
		jobURL := j.HostedURL
		if jobURL == "" {
			jobURL = j.ApplyURL
		}
		created := ""
		if j.CreatedAt > 0 {
			created = time.UnixMilli(j.CreatedAt).UTC().Format(time.RFC3339)
		}

		out = append(out, Job{
			ID:          fmt.Sprintf("lever-%s-%s", company, j.ID),
			Title:       j.Text,
			Company:     company,
			Location:    j.Categories.Location,
			Source:      "lever",
			URL:         jobURL,
			Description: description,
			CreatedAt:   created,
		})
	}
	l.logger.Debug("board fetched",
		logging.String("company", company),
		logging.Int("matched", len(out)),
		logging.Int("total", len(decoded)),
	)
	return out, nil
}
