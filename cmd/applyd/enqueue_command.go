package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"applyd/internal/config"
	"applyd/internal/engine"
	"applyd/internal/queue"
)

func newEnqueueCommand(ctx *commandContext) *cobra.Command {
	var (
		urlFlag     string
		companyFlag string
		titleFlag   string
		portalFlag  string
		fileFlag    string
	)

	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Enqueue job applications",
		Long: "Enqueues applications either from flags (one job) or from a JSON " +
			"file containing a job object or an array of job objects. Use '-' to " +
			"read the JSON from stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(cfg *config.Config, store *queue.Store, eng *engine.Engine) error {
				payloads, err := collectPayloads(cmd.InOrStdin(), fileFlag, urlFlag, companyFlag, titleFlag, portalFlag)
				if err != nil {
					return err
				}
				if len(payloads) == 0 {
					return fmt.Errorf("nothing to enqueue; pass --company/--title or --file")
				}
				for _, payload := range payloads {
					taskID, err := eng.Enqueue(cmd.Context(), payload)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "queued task %d\n", taskID)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&urlFlag, "url", "", "Job posting URL")
	cmd.Flags().StringVar(&companyFlag, "company", "", "Company name")
	cmd.Flags().StringVar(&titleFlag, "title", "", "Job title")
	cmd.Flags().StringVar(&portalFlag, "portal", "", "Portal identifier (greenhouse, lever, ...)")
	cmd.Flags().StringVarP(&fileFlag, "file", "f", "", "JSON file with a job object or array ('-' for stdin)")
	return cmd
}

func collectPayloads(stdin io.Reader, file, url, company, title, portal string) ([]json.RawMessage, error) {
	if file != "" {
		var data []byte
		var err error
		if file == "-" {
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(file)
		}
		if err != nil {
			return nil, fmt.Errorf("read jobs file: %w", err)
		}
		return splitJobsJSON(data)
	}

	if company == "" && title == "" {
		return nil, nil
	}
	payload, err := json.Marshal(map[string]string{
		"url":     url,
		"company": company,
		"title":   title,
		"portal":  portal,
	})
	if err != nil {
		return nil, err
	}
	return []json.RawMessage{payload}, nil
}

// splitJobsJSON accepts either a single job object or an array of them.
func splitJobsJSON(data []byte) ([]json.RawMessage, error) {
	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var single map[string]any
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("jobs file is neither a JSON object nor an array: %w", err)
	}
	return []json.RawMessage{json.RawMessage(data)}, nil
}
