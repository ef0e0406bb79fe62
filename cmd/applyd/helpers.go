package main

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"applyd/internal/queue"
)

var statusTitle = cases.Title(language.Und)

// humanizeStatus renders a status constant for table output, e.g.
// IN_PROGRESS becomes "In Progress".
func humanizeStatus(status queue.Status) string {
	label := strings.ReplaceAll(strings.ToLower(string(status)), "_", " ")
	return statusTitle.String(label)
}
