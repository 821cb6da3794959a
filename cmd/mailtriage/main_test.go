package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ajramos/mailtriage/internal/mail"
	"github.com/ajramos/mailtriage/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfigPath_Priority(t *testing.T) {
	// CLI flag takes precedence
	t.Setenv("MAILTRIAGE_CONFIG", "/env/config.json")
	assert.Equal(t, "/custom/config.json", getConfigPath("/custom/config.json"))

	// environment variable when no flag
	assert.Equal(t, "/env/config.json", getConfigPath(""))

	// default when neither flag nor env
	t.Setenv("MAILTRIAGE_CONFIG", "")
	assert.Contains(t, getConfigPath(""), "config.json")
}

func TestRootCmd_Commands(t *testing.T) {
	cmd := NewRootCmd(&App{})
	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"emails", "reply", "drafts", "extract", "actions", "chat", "summarize", "prompts", "key", "status", "version"} {
		assert.Contains(t, names, want)
	}
}

type cliEnv struct {
	t          *testing.T
	dir        string
	configPath string
}

// newCLIEnv writes a config with the LLM disabled and every path inside a
// temp dir
func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := map[string]any{
		"llm": map[string]any{"enabled": false},
		"storage": map[string]any{
			"database_path": filepath.Join(dir, "mailtriage.db"),
			"emails_path":   filepath.Join(dir, "emails.json"),
		},
		"log_file": filepath.Join(dir, "mailtriage.log"),
	}
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return &cliEnv{t: t, dir: dir, configPath: path}
}

func (e *cliEnv) run(stdin string, args ...string) (string, string, error) {
	e.t.Helper()
	app := &App{}
	cmd := NewRootCmd(app)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.Execute()
	app.Close()
	return out.String(), errOut.String(), err
}

func (e *cliEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, errOut, err := e.run("", args...)
	require.NoError(e.t, err, "mailtriage %v\nstderr: %s", args, errOut)
	return out
}

func (e *cliEnv) mustJSON(v any, args ...string) {
	e.t.Helper()
	out := e.mustRun(append([]string{"--json"}, args...)...)
	env := struct {
		Data json.RawMessage `json:"data"`
	}{}
	require.NoError(e.t, json.Unmarshal([]byte(out), &env), out)
	require.NoError(e.t, json.Unmarshal(env.Data, v), out)
}

func (e *cliEnv) upload() {
	e.t.Helper()
	emails := []mail.Email{
		{ID: "e1", Sender: "Alice", SenderEmail: "alice@example.com", Subject: "Budget", Body: "Please review the Q3 budget by Friday."},
		{ID: "e2", Sender: "Bob", SenderEmail: "bob@example.com", Subject: "Offsite", Body: "Book the venue."},
	}
	data, err := json.Marshal(emails)
	require.NoError(e.t, err)
	file := filepath.Join(e.dir, "inbox.json")
	require.NoError(e.t, os.WriteFile(file, data, 0o600))
	assert.Contains(e.t, e.mustRun("emails", "upload", file), "Loaded 2 emails.")
}

func TestCLI_UploadAndList(t *testing.T) {
	env := newCLIEnv(t)
	env.upload()

	var emails []mail.Email
	env.mustJSON(&emails, "emails", "list")
	require.Len(t, emails, 2)
	assert.Equal(t, "e1", emails[0].ID)

	out := env.mustRun("emails", "show", "e2")
	assert.Contains(t, out, "Subject:  Offsite")
	assert.Contains(t, out, "Book the venue.")

	_, _, err := env.run("", "emails", "show", "missing")
	assert.ErrorIs(t, err, services.ErrEmailNotFound)
}

func TestCLI_MalformedUploadKeepsList(t *testing.T) {
	env := newCLIEnv(t)
	env.upload()

	bad := filepath.Join(env.dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[{"subject":"no id"}]`), 0o600))
	_, _, err := env.run("", "emails", "upload", bad)
	assert.ErrorIs(t, err, mail.ErrMalformedUpload)

	var emails []mail.Email
	env.mustJSON(&emails, "emails", "list")
	assert.Len(t, emails, 2)
}

func TestCLI_DraftLifecycle(t *testing.T) {
	env := newCLIEnv(t)
	env.upload()

	// generation fails with the LLM disabled; the draft is still saved
	out := env.mustRun("reply", "e1")
	assert.Contains(t, out, services.ReplyFailedMessage)
	assert.Contains(t, out, "Saved draft")

	var drafts []mail.Draft
	env.mustJSON(&drafts, "drafts", "list")
	require.Len(t, drafts, 1)
	id := drafts[0].ID
	assert.Equal(t, "Re: Budget", drafts[0].Subject)
	assert.Equal(t, "alice@example.com", drafts[0].To)
	require.NotNil(t, drafts[0].OriginalEmailSnapshot)

	env.mustRun("drafts", "edit", id, "--subject", "Re: Budget v2", "--body", "Looks good.")
	env.mustJSON(&drafts, "drafts", "list")
	require.Len(t, drafts, 1)
	assert.Equal(t, id, drafts[0].ID)
	assert.Equal(t, "Re: Budget v2", drafts[0].Subject)
	assert.Equal(t, "Looks good.", drafts[0].Body)

	out = env.mustRun("drafts", "show", id)
	assert.Contains(t, out, "In reply to: Alice <alice@example.com>")

	out, _, err := env.run("n\n", "drafts", "delete", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled.")

	out, _, err = env.run("y\n", "drafts", "delete", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted draft")
	assert.Contains(t, env.mustRun("drafts", "list"), "No drafts.")

	_, _, err = env.run("", "drafts", "delete", id, "--yes")
	assert.ErrorIs(t, err, services.ErrDraftNotFound)
}

func TestCLI_SendRemovesDraft(t *testing.T) {
	env := newCLIEnv(t)
	env.upload()
	env.mustRun("reply", "e2")

	var drafts []mail.Draft
	env.mustJSON(&drafts, "drafts", "list")
	require.Len(t, drafts, 1)

	assert.Contains(t, env.mustRun("drafts", "send", drafts[0].ID), `Sent "Re: Offsite" to bob@example.com.`)
	env.mustJSON(&drafts, "drafts", "list")
	assert.Empty(t, drafts)
}

func TestCLI_ExtractWithoutLLM(t *testing.T) {
	env := newCLIEnv(t)
	env.upload()

	assert.Contains(t, env.mustRun("extract", "e1"), "No action items found.")
	assert.Contains(t, env.mustRun("actions", "list"), "No action items.")
}

func TestCLI_Prompts(t *testing.T) {
	env := newCLIEnv(t)

	env.mustRun("prompts", "set", "reply_generation", "Reply in one line.")
	out := env.mustRun("prompts", "show", "reply_generation")
	assert.Contains(t, out, "reply_generation (customized)")
	assert.Contains(t, out, "Reply in one line.")
	assert.FileExists(t, filepath.Join(env.dir, "prompts.yaml"))

	env.mustRun("prompts", "reset")
	assert.NotContains(t, env.mustRun("prompts", "show", "reply_generation"), "customized")

	_, _, err := env.run("", "prompts", "set", "signature", "x")
	assert.Error(t, err)
}

func TestCLI_Status(t *testing.T) {
	env := newCLIEnv(t)
	env.upload()

	var r statusReport
	env.mustJSON(&r, "status")
	assert.Equal(t, 2, r.Emails)
	assert.Equal(t, "disabled", r.Provider)
	assert.Positive(t, r.SchemaVersion)
	assert.Nil(t, r.Reachable)
	assert.Zero(t, r.PendingEdits)
}

func TestCLI_StatusCountsUnsentEdits(t *testing.T) {
	env := newCLIEnv(t)
	env.upload()
	env.mustRun("reply", "e1")

	var drafts []mail.Draft
	env.mustJSON(&drafts, "drafts", "list")
	require.Len(t, drafts, 1)
	env.mustRun("drafts", "edit", drafts[0].ID, "--body", "Will do.")

	var r statusReport
	env.mustJSON(&r, "status")
	assert.Equal(t, 1, r.Drafts)
	assert.Equal(t, 1, r.PendingEdits)

	env.mustRun("drafts", "send", drafts[0].ID)
	env.mustJSON(&r, "status")
	assert.Zero(t, r.Drafts)
	assert.Zero(t, r.PendingEdits)
}

func TestCLI_ChatWithoutLLM(t *testing.T) {
	env := newCLIEnv(t)

	assert.Contains(t, env.mustRun("chat", "anything", "urgent?"), services.ChatErrorMessage)
	var history []services.ChatMessage
	env.mustJSON(&history, "chat", "--history")
	assert.Len(t, history, 2)

	env.mustRun("chat", "--reset")
	env.mustJSON(&history, "chat", "--history")
	assert.Empty(t, history)
}

func TestCLI_Version(t *testing.T) {
	out, _, err := newCLIEnv(t).run("", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "mailtriage")
}

func TestCandidateID_UsesListedNumbering(t *testing.T) {
	// a duplicate extraction id is dropped from the triage set, shifting positions
	triage := services.NewTriageService()
	triage.Start("e1", []mail.ActionItem{
		{ID: "e1_action_0", Description: "first"},
		{ID: "e1_action_0", Description: "repeat"},
		{ID: "e1_action_2", Description: "third"},
	})
	listed := triage.Candidates()
	require.Len(t, listed, 2)

	assert.Equal(t, "e1_action_0", candidateID(listed, "1"))
	assert.Equal(t, "e1_action_2", candidateID(listed, "2"))
	assert.Equal(t, "3", candidateID(listed, "3"))
	assert.Equal(t, "e1_action_2", candidateID(listed, "e1_action_2"))
}
