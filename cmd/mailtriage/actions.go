package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/ajramos/mailtriage/internal/mail"
	"github.com/ajramos/mailtriage/internal/services"
	"github.com/spf13/cobra"
)

func newExtractCmd(app *App) *cobra.Command {
	var selectIDs, rejectIDs []string
	cmd := &cobra.Command{
		Use:   "extract <email-id>",
		Short: "Extract action items from an email and keep the selected ones",
		Long: "Candidates are referenced by id or by their 1-based position. " +
			"Without --select or --reject the candidates are printed and discarded.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Open(cmd); err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()
			items, err := app.workspace.ExtractActions(ctx, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if len(items) == 0 {
				return writeOut(cmd, app, []mail.ConfirmedActionItem{}, func(w io.Writer) {
					fmt.Fprintln(w, "No action items found.")
				})
			}

			triage := app.workspace.Triage()
			listed := triage.Candidates()
			for _, ref := range selectIDs {
				if err := triage.Select(candidateID(listed, ref)); err != nil {
					return writeErr(cmd, fmt.Errorf("select %s: %w", ref, err))
				}
			}
			for _, ref := range rejectIDs {
				if err := triage.Reject(candidateID(listed, ref)); err != nil {
					return writeErr(cmd, fmt.Errorf("reject %s: %w", ref, err))
				}
			}
			candidates := triage.Candidates()
			summary := triage.Summary()

			if len(selectIDs) == 0 && len(rejectIDs) == 0 {
				if err := app.workspace.CloseTriage(ctx); err != nil {
					return writeErr(cmd, err)
				}
				return writeOut(cmd, app, candidates, func(w io.Writer) {
					printCandidates(w, candidates)
				})
			}

			confirmed, err := app.workspace.ConfirmTriage(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, confirmed, func(w io.Writer) {
				printCandidates(w, candidates)
				fmt.Fprintf(w, "\nKept %d, rejected %d, ignored %d.\n", summary.Selected, summary.Rejected, summary.Neutral)
			})
		},
	}
	cmd.Flags().StringSliceVar(&selectIDs, "select", nil, "Candidates to keep")
	cmd.Flags().StringSliceVar(&rejectIDs, "reject", nil, "Candidates to reject")
	return cmd
}

// candidateID maps a 1-based position, as numbered by printCandidates, to
// the candidate id; anything else is taken as an id
func candidateID(candidates []services.TriageCandidate, ref string) string {
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(candidates) {
		return candidates[n-1].Item.ID
	}
	return ref
}

func printCandidates(w io.Writer, candidates []services.TriageCandidate) {
	for i, c := range candidates {
		mark := " "
		switch c.Decision {
		case services.DecisionSelected:
			mark = "+"
		case services.DecisionRejected:
			mark = "-"
		}
		fmt.Fprintf(w, "%s %d. [%s] %s", mark, i+1, c.Item.Priority, c.Item.Description)
		if c.Item.Deadline != "" {
			fmt.Fprintf(w, " (due %s)", c.Item.Deadline)
		}
		fmt.Fprintln(w)
	}
}

func newActionsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "actions",
		Short: "Manage confirmed action items",
	}
	cmd.AddCommand(newActionsListCmd(app))
	cmd.AddCommand(newActionsCompleteCmd(app))
	cmd.AddCommand(newActionsDeleteCmd(app))
	return cmd
}

func newActionsListCmd(app *App) *cobra.Command {
	var completed, pending bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List confirmed action items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Open(cmd); err != nil {
				return writeErr(cmd, err)
			}
			var filter *bool
			switch {
			case completed && pending:
				return writeErr(cmd, fmt.Errorf("--completed and --pending are mutually exclusive"))
			case completed:
				filter = &completed
			case pending:
				open := false
				filter = &open
			}
			items, err := app.actions.List(cmd.Context(), filter)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, items, func(w io.Writer) {
				if len(items) == 0 {
					fmt.Fprintln(w, "No action items.")
					return
				}
				for _, it := range items {
					box := "[ ]"
					if it.Completed {
						box = "[x]"
					}
					fmt.Fprintf(w, "%s %s  %-6s  %s", box, it.ID, it.Priority, it.Description)
					if it.Deadline != "" {
						fmt.Fprintf(w, " (due %s)", it.Deadline)
					}
					fmt.Fprintln(w)
				}
			})
		},
	}
	cmd.Flags().BoolVar(&completed, "completed", false, "Only completed items")
	cmd.Flags().BoolVar(&pending, "pending", false, "Only open items")
	return cmd
}

func newActionsCompleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <item-id>",
		Short: "Mark an action item done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Open(cmd); err != nil {
				return writeErr(cmd, err)
			}
			if err := app.actions.Complete(cmd.Context(), args[0]); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]string{"completed": args[0]}, func(w io.Writer) {
				fmt.Fprintf(w, "Completed %s.\n", args[0])
			})
		},
	}
}

func newActionsDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <item-id>",
		Short: "Remove an action item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Open(cmd); err != nil {
				return writeErr(cmd, err)
			}
			if err := app.actions.Delete(cmd.Context(), args[0]); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]string{"deleted": args[0]}, func(w io.Writer) {
				fmt.Fprintf(w, "Deleted %s.\n", args[0])
			})
		},
	}
}
