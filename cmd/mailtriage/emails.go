package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/ajramos/mailtriage/internal/mail"
	"github.com/ajramos/mailtriage/internal/render"
	"github.com/spf13/cobra"
)

func newEmailsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "emails",
		Short: "List, upload and categorize emails",
	}
	cmd.AddCommand(newEmailsListCmd(app))
	cmd.AddCommand(newEmailsShowCmd(app))
	cmd.AddCommand(newEmailsUploadCmd(app))
	cmd.AddCommand(newEmailsMarkCmd(app, "read", true))
	cmd.AddCommand(newEmailsMarkCmd(app, "unread", false))
	cmd.AddCommand(newEmailsCategorizeCmd(app))
	return cmd
}

func newEmailsListCmd(app *App) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List emails",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Open(cmd); err != nil {
				return writeErr(cmd, err)
			}
			emails, err := app.emails.List(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if category != "" {
				c, ok := mail.ParseCategory(category)
				if !ok {
					return writeErr(cmd, fmt.Errorf("unknown category %q", category))
				}
				emails = filterCategory(emails, c)
			}
			return writeOut(cmd, app, emails, func(w io.Writer) {
				if len(emails) == 0 {
					fmt.Fprintln(w, "No emails.")
					return
				}
				for _, e := range emails {
					printEmailRow(w, e)
				}
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Only show emails in this category")
	return cmd
}

func newEmailsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <email-id>",
		Short: "Print an email and mark it read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Open(cmd); err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()
			if err := app.emails.MarkRead(ctx, args[0]); err != nil {
				return writeErr(cmd, err)
			}
			email, err := app.emails.Get(ctx, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, email, func(w io.Writer) {
				fmt.Fprintf(w, "From:     %s <%s>\n", email.Sender, email.SenderEmail)
				fmt.Fprintf(w, "To:       %s\n", email.Recipient)
				fmt.Fprintf(w, "Date:     %s\n", email.Date)
				fmt.Fprintf(w, "Subject:  %s\n", email.Subject)
				if email.Category != "" {
					fmt.Fprintf(w, "Category: %s\n", email.Category)
				}
				fmt.Fprintf(w, "\n%s\n", render.PlainText(email.Body))
			})
		},
	}
}

func newEmailsUploadCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file.json|file.eml>",
		Short: "Replace the email list with the contents of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Open(cmd); err != nil {
				return writeErr(cmd, err)
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return writeErr(cmd, fmt.Errorf("failed to read upload: %w", err))
			}
			n, err := app.emails.Upload(cmd.Context(), filepath.Base(args[0]), data)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]int{"loaded": n}, func(w io.Writer) {
				fmt.Fprintf(w, "Loaded %d emails.\n", n)
			})
		},
	}
}

// The read flag lives in an in-memory overlay, so it only affects the
// output of this invocation
func newEmailsMarkCmd(app *App, use string, read bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <email-id>",
		Short: "Mark an email " + use,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Open(cmd); err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()
			mark := app.emails.MarkUnread
			if read {
				mark = app.emails.MarkRead
			}
			if err := mark(ctx, args[0]); err != nil {
				return writeErr(cmd, err)
			}
			email, err := app.emails.Get(ctx, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, email, func(w io.Writer) { printEmailRow(w, email) })
		},
	}
}

func newEmailsCategorizeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "categorize",
		Short: "Classify every email with the AI and store the categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Open(cmd); err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()
			n, err := app.emails.CategorizeAll(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			emails, err := app.emails.List(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			counts := map[mail.Category]int{}
			for _, e := range emails {
				counts[e.Category]++
			}
			return writeOut(cmd, app, map[string]any{"categorized": n, "counts": counts}, func(w io.Writer) {
				fmt.Fprintf(w, "Categorized %d emails.\n", n)
				keys := make([]string, 0, len(counts))
				for c := range counts {
					keys = append(keys, string(c))
				}
				sort.Strings(keys)
				for _, k := range keys {
					label := k
					if label == "" {
						label = "(none)"
					}
					fmt.Fprintf(w, "  %-14s %d\n", label, counts[mail.Category(k)])
				}
			})
		},
	}
}

func filterCategory(emails []mail.Email, c mail.Category) []mail.Email {
	out := make([]mail.Email, 0, len(emails))
	for _, e := range emails {
		if e.Category == c {
			out = append(out, e)
		}
	}
	return out
}

func printEmailRow(w io.Writer, e mail.Email) {
	flag := " "
	if !e.IsRead {
		flag = "*"
	}
	fmt.Fprintf(w, "%s %s  %s  %s  %s\n",
		flag,
		render.FitWidth(e.ID, 10),
		render.FitWidth(string(e.Category), 13),
		render.FitWidth(e.Sender, 20),
		render.FitWidth(e.Subject, 50),
	)
}
