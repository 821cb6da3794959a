package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ajramos/mailtriage/internal/config"
	"github.com/ajramos/mailtriage/internal/credential"
	"github.com/ajramos/mailtriage/internal/db"
	"github.com/ajramos/mailtriage/internal/llm"
	"github.com/ajramos/mailtriage/internal/services"
	"github.com/ajramos/mailtriage/internal/version"
	"github.com/spf13/cobra"
)

func main() {
	app := &App{}
	cmd := NewRootCmd(app)
	err := cmd.Execute()
	app.Close()
	if err != nil {
		// usage and argument errors have not been printed yet
		var reported reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// App carries the flags shared by every command and the services opened
// for the current invocation
type App struct {
	ConfigPath string
	JSON       bool

	configPath string
	cfg        *config.Config
	logger     *log.Logger
	logFile    *os.File
	store      *db.Store
	provider   llm.Provider

	in        *bufio.Reader
	prompt    io.Writer
	assumeYes bool

	prompts   *services.PromptServiceImpl
	ai        *services.AIServiceImpl
	emails    *services.EmailServiceImpl
	drafts    *services.DraftServiceImpl
	triage    *services.TriageServiceImpl
	actions   *services.ActionItemServiceImpl
	chat      *services.ChatServiceImpl
	workspace *services.Workspace
}

// NewRootCmd builds the command tree
func NewRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "mailtriage",
		Short:         "AI-assisted email triage: reply drafts, action items, chat",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  mailtriage emails upload inbox.json
  mailtriage emails list
  mailtriage reply e1 --tone friendly
  mailtriage drafts edit draft-1 --subject "Re: Budget v2"
  mailtriage extract e2 --select 1 --reject 2
  mailtriage chat "what is due this week?"
`),
	}
	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", "", "Path to JSON configuration file (default: ~/.config/mailtriage/config.json)")
	cmd.PersistentFlags().BoolVar(&app.JSON, "json", false, "Print results as JSON")

	cmd.AddCommand(newEmailsCmd(app))
	cmd.AddCommand(newReplyCmd(app))
	cmd.AddCommand(newDraftsCmd(app))
	cmd.AddCommand(newExtractCmd(app))
	cmd.AddCommand(newActionsCmd(app))
	cmd.AddCommand(newChatCmd(app))
	cmd.AddCommand(newSummarizeCmd(app))
	cmd.AddCommand(newPromptsCmd(app))
	cmd.AddCommand(newKeyCmd(app))
	cmd.AddCommand(newStatusCmd(app))
	cmd.AddCommand(newVersionCmd(app))
	return cmd
}

// Open loads the configuration and wires the services. It is idempotent.
func (a *App) Open(cmd *cobra.Command) error {
	if a.workspace != nil {
		return nil
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a.in = bufio.NewReader(cmd.InOrStdin())
	a.prompt = cmd.ErrOrStderr()

	a.configPath = getConfigPath(a.ConfigPath)
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not load configuration: %v\n", err)
		cfg = config.DefaultConfig()
	}
	a.cfg = cfg
	a.logger, a.logFile = openLogger(cfg.LogFile)
	a.logger.Printf("mailtriage %s starting (config %s)", version.Version, a.configPath)

	store, err := db.Open(ctx, cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	a.store = store

	a.provider = a.openProvider(ctx)

	prompts, err := services.NewPromptService(cfg.ResolvePromptsPath(a.configPath))
	if err != nil {
		return err
	}
	prompts.SetLogger(a.logger)
	a.prompts = prompts

	cache := services.NewCacheService(db.NewCategoryStore(store))
	a.ai = services.NewAIService(a.provider, prompts, cache)
	a.ai.SetLogger(a.logger)

	a.emails = services.NewEmailService(services.NewFileEmailSource(cfg.Storage.EmailsPath), cache, a.ai)
	a.emails.SetLogger(a.logger)

	kv := db.NewKVStore(store)
	a.drafts = services.NewDraftService(kv, a.ai, nil)
	a.drafts.SetLogger(a.logger)
	a.drafts.SetDefaultTone(cfg.Composer.DefaultTone)

	a.triage = services.NewTriageService()
	a.triage.SetLogger(a.logger)
	a.actions = services.NewActionItemService(db.NewActionItemStore(store))
	a.actions.SetLogger(a.logger)
	a.chat = services.NewChatService(kv, a.ai, a.emails)
	a.chat.SetLogger(a.logger)

	a.workspace = services.NewWorkspace(a.emails, a.drafts, a.ai, a.triage, a.actions, services.ConfirmFunc(a.confirm))
	a.workspace.SetLogger(a.logger)
	return nil
}

// openProvider returns nil when the LLM is disabled or cannot be built;
// AI operations then fail with ErrAIServiceDown
func (a *App) openProvider(ctx context.Context) llm.Provider {
	if !a.cfg.LLM.Enabled {
		return nil
	}
	apiKey := ""
	if a.cfg.LLM.Provider == "anthropic" && a.cfg.LLM.APIKey == "" {
		if creds, err := credential.Open(config.DefaultConfigDir()); err == nil {
			if apiKey, err = creds.Get(credential.AnthropicAPIKey); err != nil {
				a.logger.Printf("Warning: no Anthropic API key in keyring: %v", err)
			}
		} else {
			a.logger.Printf("Warning: could not open keyring: %v", err)
		}
	}
	provider, err := llm.NewProviderFromConfig(ctx, a.cfg.LLM, a.cfg.GetLLMTimeout(), apiKey)
	if err != nil {
		a.logger.Printf("Warning: could not initialize LLM provider (%s): %v", a.cfg.LLM.Provider, err)
		return nil
	}
	return provider
}

// Close waits for in-flight generations and releases the database and log file
func (a *App) Close() {
	if a.drafts != nil {
		a.drafts.Wait()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil && a.logger != nil {
			a.logger.Printf("Warning: closing database: %v", err)
		}
		a.store = nil
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
		a.logFile = nil
	}
}

func (a *App) confirm(ctx context.Context, question string) (bool, error) {
	if a.assumeYes {
		return true, nil
	}
	fmt.Fprintf(a.prompt, "%s [y/N]: ", question)
	line, err := a.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// openLogger appends to the configured log file, or
// ~/.config/mailtriage/mailtriage.log. Logging is discarded if the file
// cannot be opened.
func openLogger(path string) (*log.Logger, *os.File) {
	if path == "" {
		if dir := config.DefaultLogDir(); dir != "" {
			path = filepath.Join(dir, "mailtriage.log")
		}
	}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err == nil {
			if f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600); err == nil {
				return log.New(f, "[mailtriage] ", log.LstdFlags|log.Lmicroseconds), f
			}
		}
	}
	return log.New(io.Discard, "[mailtriage] ", log.LstdFlags|log.Lmicroseconds), nil
}

// getConfigPath returns the configuration file path using the following priority:
// 1. CLI flag
// 2. Environment variable MAILTRIAGE_CONFIG
// 3. Default path ~/.config/mailtriage/config.json
func getConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envPath := os.Getenv("MAILTRIAGE_CONFIG"); envPath != "" {
		return config.ExpandPath(envPath)
	}
	return config.DefaultConfigPath()
}

// writeOut prints v as indented JSON when --json is set, otherwise calls text
func writeOut(cmd *cobra.Command, app *App, v any, text func(w io.Writer)) error {
	w := cmd.OutOrStdout()
	if app.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"data": v})
	}
	text(w)
	return nil
}

// reportedError marks an error writeErr already printed
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return reportedError{err}
}
