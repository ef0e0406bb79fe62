package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"applyd/internal/connectors"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var (
		roles     []string
		keywords  []string
		locations []string
		minScore  int
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search configured job boards",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if len(cfg.Connectors.GreenhouseBoards) == 0 && len(cfg.Connectors.LeverCompanies) == 0 {
				return fmt.Errorf("no boards configured; set [connectors] greenhouse_boards or lever_companies")
			}

			searcher := connectors.NewSearcher(cfg, ctx.cliLogger())
			results, err := searcher.Search(cmd.Context(), connectors.Request{
				Roles:     roles,
				Keywords:  keywords,
				Locations: locations,
				MinScore:  minScore,
			})
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No matching postings")
				return nil
			}

			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{
					strconv.Itoa(r.Score),
					r.Title,
					r.Company,
					r.Location,
					r.Source,
					r.URL,
				})
			}
			writeRows(cmd.OutOrStdout(),
				[]string{"Score", "Title", "Company", "Location", "Source", "URL"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&roles, "role", nil, "Role filter (substring, repeatable)")
	cmd.Flags().StringSliceVar(&keywords, "keyword", nil, "Scoring keyword (repeatable)")
	cmd.Flags().StringSliceVar(&locations, "location", nil, "Location filter (substring, repeatable)")
	cmd.Flags().IntVar(&minScore, "min-score", 0, "Drop postings scoring below this")
	return cmd
}
