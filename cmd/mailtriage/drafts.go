package main

import (
	"fmt"
	"io"

	"github.com/ajramos/mailtriage/internal/render"
	"github.com/ajramos/mailtriage/internal/services"
	"github.com/spf13/cobra"
)

func newReplyCmd(app *App) *cobra.Command {
	var tone string
	var send bool
	cmd := &cobra.Command{
		Use:   "reply <email-id>",
		Short: "Generate a reply to an email and save it as a draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Open(cmd); err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()
			sess, err := app.workspace.Reply(ctx, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if tone != "" && tone != sess.Tone {
				if _, err := app.drafts.Regenerate(ctx, tone); err != nil {
					return writeErr(cmd, err)
				}
			}
			app.drafts.Wait()
			sess, _ = app.drafts.Session()

			if send {
				if err := app.workspace.SendDraft(ctx); err != nil {
					return writeErr(cmd, err)
				}
				return writeOut(cmd, app, sess.Fields(), func(w io.Writer) {
					printSession(w, sess)
					fmt.Fprintln(w, "\nSent.")
				})
			}
			draft, err := app.workspace.CloseComposer(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, draft, func(w io.Writer) {
				printSession(w, sess)
				fmt.Fprintf(w, "\nSaved draft %s.\n", draft.ID)
			})
		},
	}
	cmd.Flags().StringVar(&tone, "tone", "", "Reply tone (default from config)")
	cmd.Flags().BoolVar(&send, "send", false, "Send the reply instead of saving it")
	return cmd
}

func newDraftsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drafts",
		Short: "Manage saved reply drafts",
	}
	cmd.AddCommand(newDraftsListCmd(app))
	cmd.AddCommand(newDraftsShowCmd(app))
	cmd.AddCommand(newDraftsEditCmd(app))
	cmd.AddCommand(newDraftsSendCmd(app))
	cmd.AddCommand(newDraftsDeleteCmd(app))
	return cmd
}

func newDraftsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved drafts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Open(cmd); err != nil {
				return writeErr(cmd, err)
			}
			drafts, err := app.drafts.List(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, drafts, func(w io.Writer) {
				if len(drafts) == 0 {
					fmt.Fprintln(w, "No drafts.")
					return
				}
				for _, d := range drafts {
					fmt.Fprintf(w, "%s  %s  %s  %s\n",
						render.FitWidth(d.ID, 12),
						d.CreatedAt.Local().Format("2006-01-02 15:04"),
						render.FitWidth(d.To, 24),
						render.FitWidth(d.Subject, 50),
					)
				}
			})
		},
	}
}

// show opens the draft to resolve its original email and cached fields,
// then closes it without saving
func newDraftsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <draft-id>",
		Short: "Print a draft with the email it replies to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Open(cmd); err != nil {
				return writeErr(cmd, err)
			}
			sess, err := app.workspace.OpenDraft(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			app.drafts.Close()
			app.workspace.Composer.Dismiss()
			return writeOut(cmd, app, sess, func(w io.Writer) { printSession(w, sess) })
		},
	}
}

func newDraftsEditCmd(app *App) *cobra.Command {
	var to, cc, bcc, subject, body, tone string
	cmd := &cobra.Command{
		Use:   "edit <draft-id>",
		Short: "Change draft fields or regenerate the body, then save",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Open(cmd); err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()
			if _, err := app.workspace.OpenDraft(ctx, args[0]); err != nil {
				return writeErr(cmd, err)
			}
			// the body can only be edited once generation has finished
			if cmd.Flags().Changed("tone") {
				if _, err := app.drafts.Regenerate(ctx, tone); err != nil {
					return writeErr(cmd, err)
				}
				app.drafts.Wait()
			}
			edits := []struct {
				flag  string
				field services.DraftField
				value string
			}{
				{"to", services.FieldTo, to},
				{"cc", services.FieldCC, cc},
				{"bcc", services.FieldBCC, bcc},
				{"subject", services.FieldSubject, subject},
				{"body", services.FieldBody, body},
			}
			for _, e := range edits {
				if !cmd.Flags().Changed(e.flag) {
					continue
				}
				if err := app.drafts.Mutate(ctx, e.field, e.value); err != nil {
					return writeErr(cmd, err)
				}
			}
			sess, _ := app.drafts.Session()
			draft, err := app.workspace.CloseComposer(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, draft, func(w io.Writer) {
				printSession(w, sess)
				fmt.Fprintf(w, "\nSaved draft %s.\n", draft.ID)
			})
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "Recipient")
	cmd.Flags().StringVar(&cc, "cc", "", "CC recipients")
	cmd.Flags().StringVar(&bcc, "bcc", "", "BCC recipients")
	cmd.Flags().StringVar(&subject, "subject", "", "Subject")
	cmd.Flags().StringVar(&body, "body", "", "Body text")
	cmd.Flags().StringVar(&tone, "tone", "", "Regenerate the body with this tone")
	return cmd
}

func newDraftsSendCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "send <draft-id>",
		Short: "Send a draft and remove it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Open(cmd); err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()
			sess, err := app.workspace.OpenDraft(ctx, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := app.workspace.SendDraft(ctx); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, sess.Fields(), func(w io.Writer) {
				fmt.Fprintf(w, "Sent %q to %s.\n", sess.Subject, sess.To)
			})
		},
	}
}

func newDraftsDeleteCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <draft-id>",
		Short: "Delete a saved draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Open(cmd); err != nil {
				return writeErr(cmd, err)
			}
			app.assumeYes = yes
			deleted, err := app.workspace.DeleteDraft(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]bool{"deleted": deleted}, func(w io.Writer) {
				if deleted {
					fmt.Fprintf(w, "Deleted draft %s.\n", args[0])
				} else {
					fmt.Fprintln(w, "Cancelled.")
				}
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func printSession(w io.Writer, s services.DraftSession) {
	fmt.Fprintf(w, "In reply to: %s <%s>, %q\n", s.Email.Sender, s.Email.SenderEmail, s.Email.Subject)
	fmt.Fprintf(w, "To:      %s\n", s.To)
	if s.CC != "" {
		fmt.Fprintf(w, "CC:      %s\n", s.CC)
	}
	if s.BCC != "" {
		fmt.Fprintf(w, "BCC:     %s\n", s.BCC)
	}
	fmt.Fprintf(w, "Subject: %s\n\n%s\n", s.Subject, s.Body)
}
