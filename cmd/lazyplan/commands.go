package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Joseda-hg/lazyplan/internal/model"
	"github.com/Joseda-hg/lazyplan/internal/query"
)

func viewCmd(flags *globalFlags) *cobra.Command {
	var completed, asJSON bool
	cmd := &cobra.Command{
		Use:   "view <today|week|upcoming|all>",
		Short: "Print a task view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := query.ParseView(args[0])
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), flags, 0)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.planner.View(cmd.Context(), name, query.Options{IncludeCompleted: completed})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			printView(cmd.OutOrStdout(), name.Title(), result)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&completed, "completed", "c", false, "include completed tasks")
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "output as JSON")
	return cmd
}

func searchCmd(flags *globalFlags) *cobra.Command {
	var (
		kind      string
		completed string
		limit     int
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search tasks, lists and labels",
		Long: `Search tasks, lists and labels by name. Exact name matches rank first,
then name substrings, then description substrings.

Examples:
  lazyplan search milk
  lazyplan search report --kind tasks --completed active
  lazyplan search home --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := query.SearchRequest{Query: strings.Join(args, " "), Limit: limit}
			var err error
			if req.Kind, err = query.ParseKind(kind); err != nil {
				return err
			}
			if req.Completed, err = query.ParseCompletion(completed); err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), flags, 0)
			if err != nil {
				return err
			}
			defer a.Close()

			results, err := a.planner.Search(cmd.Context(), req)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), results)
			}
			printSearch(cmd.OutOrStdout(), results)
			return nil
		},
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", string(query.KindAll), "what to search (all, tasks, lists, labels)")
	cmd.Flags().StringVar(&completed, "completed", string(query.CompletionAll), "task completion filter (all, active, completed)")
	cmd.Flags().IntVarP(&limit, "limit", "n", query.DefaultSearchLimit, "maximum results per kind")
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "output as JSON")
	return cmd
}

func listsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "lists",
		Short: "Print lists with their remaining task counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), flags, 0)
			if err != nil {
				return err
			}
			defer a.Close()

			sidebar, err := a.planner.Sidebar(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, entry := range sidebar.Lists {
				name := strings.TrimSpace(entry.List.Emoji + " " + entry.List.Name)
				if entry.List.IsDefault {
					name += " (default)"
				}
				fmt.Fprintf(out, "%-32s %s\n", name, entry.Remaining.Display)
			}
			return nil
		},
	}
}

func writeJSON(w io.Writer, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printView(w io.Writer, title string, result query.Result) {
	fmt.Fprintf(w, "%s (%s)", title, query.DisplayCount(result.Total()))
	if result.OverdueCount > 0 {
		fmt.Fprintf(w, " | %s overdue", query.DisplayCount(result.OverdueCount))
	}
	fmt.Fprintln(w)

	if len(result.Groups) == 0 {
		fmt.Fprintln(w, "No tasks")
		return
	}
	for _, group := range result.Groups {
		fmt.Fprintf(w, "\n%s (%s)\n", group.Title, query.DisplayCount(len(group.Tasks)))
		for _, task := range group.Tasks {
			fmt.Fprintf(w, "  %s\n", taskLine(task))
		}
	}
}

func printSearch(w io.Writer, results query.SearchResults) {
	if results.Empty() {
		fmt.Fprintf(w, "No matches for %q\n", results.Query)
		return
	}
	if len(results.Tasks) > 0 {
		fmt.Fprintf(w, "Tasks (%d)\n", len(results.Tasks))
		for _, scored := range results.Tasks {
			fmt.Fprintf(w, "  %s\n", taskLine(scored.Item))
		}
	}
	if len(results.Lists) > 0 {
		fmt.Fprintf(w, "Lists (%d)\n", len(results.Lists))
		for _, scored := range results.Lists {
			fmt.Fprintf(w, "  %s\n", strings.TrimSpace(scored.Item.Emoji+" "+scored.Item.Name))
		}
	}
	if len(results.Labels) > 0 {
		fmt.Fprintf(w, "Labels (%d)\n", len(results.Labels))
		for _, scored := range results.Labels {
			fmt.Fprintf(w, "  #%s\n", scored.Item.Name)
		}
	}
}

func taskLine(task model.Task) string {
	check := "[ ]"
	if task.IsCompleted {
		check = "[x]"
	}
	parts := []string{check + " " + task.Name}
	if task.HasDate() {
		parts = append(parts, task.Date.String())
	}
	if task.Priority != "" && task.Priority != model.PriorityNone {
		parts = append(parts, "!"+string(task.Priority))
	}
	for _, label := range task.Labels {
		parts = append(parts, "#"+label.Name)
	}
	return strings.Join(parts, "  ")
}
