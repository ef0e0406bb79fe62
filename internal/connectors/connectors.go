package connectors

import (
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Job is a normalized posting from any board. Description carries the
// stripped job description text workers later tailor against; it is stored
// on the payload under jd_text.
type Job struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Source      string `json:"source"`
	URL         string `json:"url"`
	Description string `json:"jd_text"`
	CreatedAt   string `json:"created_at"`
}

const descriptionLimit = 800

var (
	tagPattern        = regexp.MustCompile(`<[^>]+>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// stripHTML flattens markup to plain text and caps the length; board
// descriptions routinely run to tens of kilobytes of markup.
func stripHTML(html string) string {
	text := tagPattern.ReplaceAllString(html, " ")
	text = strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
	return capDescription(text)
}

// capDescription truncates to descriptionLimit bytes without splitting a
// multi-byte rune at the cut.
func capDescription(text string) string {
	if len(text) <= descriptionLimit {
		return text
	}
	cut := descriptionLimit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

// matchesAny reports whether any needle appears in the haystack,
// case-insensitive. An empty needle list matches everything.
func matchesAny(haystack string, needles []string) bool {
	if len(needles) == 0 {
		return true
	}
	haystack = strings.ToLower(haystack)
	for _, n := range needles {
		if n == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

func decodeBody(resp *http.Response, limit int64) ([]byte, error) {
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("board returned %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("read board response: %w", err)
	}
	return data, nil
}
