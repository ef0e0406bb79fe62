package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"applyd/internal/config"
	"applyd/internal/engine"
	"applyd/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the application queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueCancelCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List applications with their latest task state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				items, err := store.ListApplications(cmd.Context())
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						strconv.FormatInt(item.TaskID, 10),
						humanizeStatus(item.Status),
						strconv.Itoa(item.Attempts),
						item.Application.Company,
						item.Application.Title,
						item.Application.Portal,
						item.Error,
					})
				}
				writeRows(cmd.OutOrStdout(),
					[]string{"Task", "Status", "Attempts", "Company", "Title", "Portal", "Error"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				return nil
			})
		},
	}
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue status summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if len(stats) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				statuses := make([]queue.Status, 0, len(stats))
				for status := range stats {
					statuses = append(statuses, status)
				}
				sort.Slice(statuses, func(i, j int) bool { return statuses[i] < statuses[j] })
				rows := make([][]string, 0, len(statuses))
				for _, status := range statuses {
					rows = append(rows, []string{humanizeStatus(status), strconv.Itoa(stats[status])})
				}
				writeRows(cmd.OutOrStdout(),
					[]string{"Status", "Count"}, rows,
					[]columnAlignment{alignLeft, alignRight},
				)
				return nil
			})
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [task-id...]",
		Short: "Re-queue failed tasks (all of them without arguments)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return ctx.withEngine(func(cfg *config.Config, store *queue.Store, eng *engine.Engine) error {
				updated, err := eng.Retry(cmd.Context(), ids...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "re-queued %d task(s)\n", updated)
				return nil
			})
		},
	}
}

func newQueueCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <task-id>...",
		Short: "Cancel tasks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return ctx.withEngine(func(cfg *config.Config, store *queue.Store, eng *engine.Engine) error {
				for _, id := range ids {
					if err := eng.Cancel(cmd.Context(), id); err != nil {
						return fmt.Errorf("cancel task %d: %w", id, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "cancelled task %d\n", id)
				}
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove completed and cancelled entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				removed, err := store.ClearTerminal(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d task(s)\n", removed)
				return nil
			})
		},
	}
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check queue database health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				health, err := store.CheckHealth(cmd.Context())
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database: %s\n", health.DBPath)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Exists: %t\n", health.DatabaseExists)
				fmt.Fprintf(out, "Readable: %t\n", health.DatabaseReadable)
				fmt.Fprintf(out, "Tables: %v\n", health.TablesPresent)
				if len(health.MissingColumns) > 0 {
					fmt.Fprintf(out, "Missing columns: %v\n", health.MissingColumns)
				}
				fmt.Fprintf(out, "Integrity: %t\n", health.IntegrityCheck)
				fmt.Fprintf(out, "Tasks: %d\n", health.TotalTasks)
				if health.Error != "" {
					return fmt.Errorf("queue database unhealthy: %s", health.Error)
				}
				return nil
			})
		},
	}
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid task id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
