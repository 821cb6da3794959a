package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ajramos/mailtriage/internal/config"
	"github.com/ajramos/mailtriage/internal/credential"
	"github.com/ajramos/mailtriage/internal/db"
	"github.com/ajramos/mailtriage/internal/llm"
	"github.com/ajramos/mailtriage/internal/services"
	"github.com/ajramos/mailtriage/internal/version"
	"github.com/spf13/cobra"
)

func newChatCmd(app *App) *cobra.Command {
	var reset, history bool
	cmd := &cobra.Command{
		Use:   "chat [message...]",
		Short: "Ask the assistant about your inbox",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Open(cmd); err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()
			if reset {
				if err := app.chat.Reset(ctx); err != nil {
					return writeErr(cmd, err)
				}
				if len(args) == 0 {
					return writeOut(cmd, app, map[string]bool{"reset": true}, func(w io.Writer) {
						fmt.Fprintln(w, "Conversation cleared.")
					})
				}
			}
			if history {
				msgs, err := app.chat.History(ctx)
				if err != nil {
					return writeErr(cmd, err)
				}
				return writeOut(cmd, app, msgs, func(w io.Writer) {
					for _, m := range msgs {
						fmt.Fprintf(w, "%s %s: %s\n", m.Timestamp.Local().Format("15:04"), m.Role, m.Content)
					}
				})
			}
			if len(args) == 0 {
				return writeErr(cmd, fmt.Errorf("a message is required"))
			}
			resp, err := app.chat.Send(ctx, strings.Join(args, " "))
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, resp, func(w io.Writer) {
				fmt.Fprintln(w, resp.Message)
				if len(resp.ReferencedEmails) > 0 {
					fmt.Fprintf(w, "\nReferenced: %s\n", strings.Join(resp.ReferencedEmails, ", "))
				}
			})
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "Clear the conversation first")
	cmd.Flags().BoolVar(&history, "history", false, "Print the conversation so far")
	return cmd
}

func newSummarizeCmd(app *App) *cobra.Command {
	var focus string
	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Summarize the inbox",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Open(cmd); err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()
			emails, err := app.emails.List(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			summary, err := app.ai.Summarize(ctx, emails, focus)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]string{"summary": summary}, func(w io.Writer) {
				fmt.Fprintln(w, summary)
			})
		},
	}
	cmd.Flags().StringVar(&focus, "focus", "", "What the summary should concentrate on")
	return cmd
}

func newPromptsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "Show and customize the AI prompt templates",
	}
	cmd.AddCommand(&cobra.Command{
		Use:       "show [kind]",
		Short:     "Print one or all prompt templates",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: promptKindNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Open(cmd); err != nil {
				return writeErr(cmd, err)
			}
			entries := app.prompts.ListPrompts()
			if len(args) == 1 {
				kind, err := config.ParsePromptKind(args[0])
				if err != nil {
					return writeErr(cmd, err)
				}
				for _, e := range entries {
					if e.Kind == kind {
						entries = []services.PromptEntry{e}
						break
					}
				}
			}
			return writeOut(cmd, app, entries, func(w io.Writer) {
				for i, e := range entries {
					if i > 0 {
						fmt.Fprintln(w)
					}
					label := string(e.Kind)
					if e.Customized {
						label += " (customized)"
					}
					fmt.Fprintf(w, "== %s ==\n%s\n", label, strings.TrimSpace(e.Text))
				}
			})
		},
	})

	var file string
	set := &cobra.Command{
		Use:   "set <kind> [text]",
		Short: "Replace a prompt template",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Open(cmd); err != nil {
				return writeErr(cmd, err)
			}
			kind, err := config.ParsePromptKind(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			var text string
			switch {
			case file != "":
				data, err := os.ReadFile(file)
				if err != nil {
					return writeErr(cmd, fmt.Errorf("failed to read prompt file: %w", err))
				}
				text = string(data)
			case len(args) == 2:
				text = args[1]
			default:
				return writeErr(cmd, fmt.Errorf("prompt text or --file is required"))
			}
			if err := app.prompts.UpdatePrompt(cmd.Context(), kind, text); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]string{"updated": string(kind)}, func(w io.Writer) {
				fmt.Fprintf(w, "Updated %s prompt.\n", kind)
			})
		},
	}
	set.Flags().StringVar(&file, "file", "", "Read the template from a file")
	cmd.AddCommand(set)

	cmd.AddCommand(&cobra.Command{
		Use:   "reset [kind]",
		Short: "Restore one or all prompt templates to their defaults",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Open(cmd); err != nil {
				return writeErr(cmd, err)
			}
			var kind config.PromptKind
			if len(args) == 1 {
				k, err := config.ParsePromptKind(args[0])
				if err != nil {
					return writeErr(cmd, err)
				}
				kind = k
			}
			if err := app.prompts.ResetPrompts(cmd.Context(), kind); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]string{"reset": string(kind)}, func(w io.Writer) {
				if kind == "" {
					fmt.Fprintln(w, "All prompts reset to defaults.")
					return
				}
				fmt.Fprintf(w, "Reset %s prompt.\n", kind)
			})
		},
	})
	return cmd
}

func promptKindNames() []string {
	names := make([]string, 0, len(config.PromptKinds))
	for _, k := range config.PromptKinds {
		names = append(names, string(k))
	}
	return names
}

// key commands touch only the keyring, not the database
func newKeyCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Store the Anthropic API key in the system keyring",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set",
		Short: "Read the API key from stdin and store it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := credential.Open(config.DefaultConfigDir())
			if err != nil {
				return writeErr(cmd, err)
			}
			fmt.Fprint(cmd.ErrOrStderr(), "Anthropic API key: ")
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && err != io.EOF {
				return writeErr(cmd, err)
			}
			key := strings.TrimSpace(line)
			if key == "" {
				return writeErr(cmd, fmt.Errorf("empty API key"))
			}
			if err := creds.Set(credential.AnthropicAPIKey, key); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]bool{"stored": true}, func(w io.Writer) {
				fmt.Fprintln(w, "Stored.")
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Remove the stored API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := credential.Open(config.DefaultConfigDir())
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := creds.Delete(credential.AnthropicAPIKey); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]bool{"deleted": true}, func(w io.Writer) {
				fmt.Fprintln(w, "Deleted.")
			})
		},
	})
	return cmd
}

type statusReport struct {
	Version       string `json:"version"`
	ConfigPath    string `json:"config_path"`
	DatabasePath  string `json:"database_path"`
	SchemaVersion int    `json:"schema_version"`
	Emails        int    `json:"emails"`
	Drafts        int    `json:"drafts"`
	PendingEdits  int    `json:"pending_edits"`
	OpenActions   int    `json:"open_actions"`
	Provider      string `json:"provider"`
	Reachable     *bool  `json:"reachable,omitempty"`
}

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration, storage and LLM status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Open(cmd); err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()
			r := statusReport{
				Version:      version.Version,
				ConfigPath:   app.configPath,
				DatabasePath: app.cfg.Storage.DatabasePath,
				Provider:     "disabled",
			}
			var err error
			if r.SchemaVersion, err = app.store.Version(ctx); err != nil {
				return writeErr(cmd, err)
			}
			if emails, err := app.emails.List(ctx); err == nil {
				r.Emails = len(emails)
			} else {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
			}
			if drafts, err := app.drafts.List(ctx); err == nil {
				r.Drafts = len(drafts)
			}
			// field caches left by compose sessions that were never sent
			if keys, err := db.NewKVStore(app.store).Keys(ctx, services.DraftFieldsKey("")); err == nil {
				r.PendingEdits = len(keys)
			}
			open := false
			if items, err := app.actions.List(ctx, &open); err == nil {
				r.OpenActions = len(items)
			}
			if app.provider != nil {
				r.Provider = app.provider.Name()
				if client, ok := app.provider.(*llm.Client); ok {
					up := client.IsAvailable(ctx)
					r.Reachable = &up
				}
			}
			return writeOut(cmd, app, r, func(w io.Writer) {
				fmt.Fprintf(w, "Version:   %s\n", r.Version)
				fmt.Fprintf(w, "Config:    %s\n", r.ConfigPath)
				fmt.Fprintf(w, "Database:  %s (schema v%d)\n", r.DatabasePath, r.SchemaVersion)
				fmt.Fprintf(w, "Emails:    %d\n", r.Emails)
				fmt.Fprintf(w, "Drafts:    %d (%d with unsent edits)\n", r.Drafts, r.PendingEdits)
				fmt.Fprintf(w, "Open items: %d\n", r.OpenActions)
				provider := r.Provider
				if r.Reachable != nil && !*r.Reachable {
					provider += " (unreachable)"
				}
				fmt.Fprintf(w, "LLM:       %s\n", provider)
			})
		},
	}
}

func newVersionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.GetInfo()
			return writeOut(cmd, app, info, func(w io.Writer) {
				fmt.Fprintln(w, version.GetDetailedVersionString())
			})
		},
	}
}
