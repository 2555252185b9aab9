package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/five82/tasksync/internal/app"
	"github.com/five82/tasksync/internal/config"
	"github.com/five82/tasksync/internal/logtail"
	"github.com/five82/tasksync/internal/query"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "tasksync: %v\n", err)
		return 1
	}
	return 0
}

type globalFlags struct {
	configPath string
	poll       time.Duration
	ephemeral  bool
}

func (g *globalFlags) options() app.Options {
	return app.Options{ConfigPath: g.configPath, PollEvery: g.poll, Ephemeral: g.ephemeral}
}

func rootCmd() *cobra.Command {
	var g globalFlags
	root := &cobra.Command{
		Use:           "tasksync",
		Short:         "Filtered, sorted task list that stays consistent through flaky networks",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), g.options())
		},
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	root.PersistentFlags().DurationVar(&g.poll, "poll", 0, "connectivity probe interval (default from config)")
	root.PersistentFlags().BoolVar(&g.ephemeral, "ephemeral", false, "keep filter and theme preferences in memory only")

	root.AddCommand(listCmd(&g), resetCmd(&g), logsCmd(&g))
	return root
}

func listCmd(g *globalFlags) *cobra.Command {
	var (
		search, priority, category, tag string
		dueFrom, dueTo, sortField       string
		done, pending, asc, desc        bool
		timeout                         time.Duration
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the task list once",
		Long: `Print the task list for a selection and exit.

Without selection flags the persisted selection from the last session is used.
With any selection flag the given selection is used and not persisted.

Examples:
  tasksync list
  tasksync list --priority alta --pending --sort due --asc
  tasksync list --search invoice --tag work`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			explicit := false
			for _, name := range []string{"search", "priority", "category", "tag", "due-from", "due-to", "done", "pending", "sort", "asc", "desc"} {
				explicit = explicit || flags.Changed(name)
			}

			req := app.ListRequest{Order: query.DefaultOrder(), Explicit: explicit, Timeout: timeout}
			if explicit {
				crit, err := buildCriteria(search, priority, category, tag, dueFrom, dueTo, done, pending)
				if err != nil {
					return err
				}
				order, err := buildOrder(sortField, asc, desc)
				if err != nil {
					return err
				}
				req.Criteria, req.Order = crit, order
			}
			return app.List(cmd.Context(), g.options(), req, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&search, "search", "s", "", "title search text")
	f.StringVarP(&priority, "priority", "p", "", "priority (alta, media, baja)")
	f.StringVar(&category, "category", "", "category id")
	f.StringVarP(&tag, "tag", "t", "", "tag id")
	f.StringVar(&dueFrom, "due-from", "", "due on or after YYYY-MM-DD")
	f.StringVar(&dueTo, "due-to", "", "due on or before YYYY-MM-DD")
	f.BoolVar(&done, "done", false, "only completed tasks")
	f.BoolVar(&pending, "pending", false, "only pending tasks")
	f.StringVar(&sortField, "sort", "", "sort field (title, priority, due, created, updated)")
	f.BoolVar(&asc, "asc", false, "ascending order")
	f.BoolVar(&desc, "desc", false, "descending order")
	f.DurationVar(&timeout, "timeout", 15*time.Second, "how long to wait for the server")
	cmd.MarkFlagsMutuallyExclusive("done", "pending")
	cmd.MarkFlagsMutuallyExclusive("asc", "desc")
	return cmd
}

func buildCriteria(search, priority, category, tag, dueFrom, dueTo string, done, pending bool) (query.Criteria, error) {
	crit := query.Criteria{}.WithSearch(search).WithCategory(category).WithTag(tag)
	if priority != "" {
		p, err := query.ParsePriority(priority)
		if err != nil {
			return query.Criteria{}, err
		}
		crit = crit.WithPriority(p)
	}
	switch {
	case done:
		crit = crit.WithCompletion(query.CompletionDone)
	case pending:
		crit = crit.WithCompletion(query.CompletionPending)
	}
	if dueFrom != "" || dueTo != "" {
		from, err := query.ParseDate(dueFrom)
		if err != nil {
			return query.Criteria{}, fmt.Errorf("--due-from: %w", err)
		}
		to, err := query.ParseDate(dueTo)
		if err != nil {
			return query.Criteria{}, fmt.Errorf("--due-to: %w", err)
		}
		crit = crit.WithDueRange(from, to)
	}
	return crit, crit.Validate()
}

func buildOrder(field string, asc, desc bool) (query.SortOrder, error) {
	order := query.DefaultOrder()
	if field != "" {
		f, err := query.ParseSortField(field)
		if err != nil {
			return query.SortOrder{}, err
		}
		order.Field = f
	}
	switch {
	case asc:
		order.Direction = query.Ascending
	case desc:
		order.Direction = query.Descending
	}
	return order, nil
}

func resetCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget the persisted filters and sort order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.Reset(g.options()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "selection reset")
			return nil
		},
	}
}

func logsCmd(g *globalFlags) *cobra.Command {
	var (
		lines int
		match string
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the end of the tasksync log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(g.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out, err := logtail.Read(cfg.LogPath(), logtail.Options{Lines: lines, Match: match})
			if err != nil {
				return err
			}
			for _, line := range out {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "number of lines (0 for all)")
	cmd.Flags().StringVarP(&match, "grep", "g", "", "only lines containing this text")
	return cmd
}
