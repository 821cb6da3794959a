package services

import (
	"context"
	"time"

	"github.com/ajramos/mailtriage/internal/config"
	"github.com/ajramos/mailtriage/internal/mail"
)

// PersistentStore is a string key/value store. Each call is atomic per key;
// there are no multi-key transactions.
type PersistentStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// AIService is the inference contract consumed by the core
type AIService interface {
	GenerateReply(ctx context.Context, req ReplyRequest) (*ReplyResult, error)
	ExtractActions(ctx context.Context, email mail.Email) ([]mail.ActionItem, error)
	Categorize(ctx context.Context, email mail.Email) (mail.Category, error)
	// CategorizeAll classifies every email and stores the result; callers
	// re-fetch the list afterwards instead of receiving per-item deltas
	CategorizeAll(ctx context.Context, emails []mail.Email) (int, error)
	Summarize(ctx context.Context, emails []mail.Email, focus string) (string, error)
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// DraftService owns the active compose session and the durable draft collection
type DraftService interface {
	OpenForReply(ctx context.Context, email mail.Email) (DraftSession, error)
	OpenForEdit(ctx context.Context, draft mail.Draft, emails []mail.Email) (DraftSession, error)
	Mutate(ctx context.Context, field DraftField, value string) error
	Regenerate(ctx context.Context, tone string) (uint64, error)
	Save(ctx context.Context) (*mail.Draft, error)
	Send(ctx context.Context) error
	Delete(ctx context.Context, draftID string) (closedActive bool, err error)
	Close()
	Session() (DraftSession, bool)
	List(ctx context.Context) ([]mail.Draft, error)
	Get(ctx context.Context, draftID string) (*mail.Draft, error)
	Wait()
}

// TriageService holds the accept/reject decisions for one extraction call
type TriageService interface {
	Start(emailID string, candidates []mail.ActionItem)
	Active() bool
	EmailID() string
	Select(id string) error
	Reject(id string) error
	ToggleSelect(id string) error
	ToggleReject(id string) error
	Decision(id string) (Decision, error)
	Candidates() []TriageCandidate
	Summary() TriageSummary
	Confirm(now time.Time) ([]mail.ConfirmedActionItem, error)
	Discard()
}

// EmailSource loads and replaces the externally owned email list
type EmailSource interface {
	Load(ctx context.Context) ([]mail.Email, error)
	Replace(ctx context.Context, emails []mail.Email) error
}

// EmailService serves the email list with a local, non-durable overlay
type EmailService interface {
	List(ctx context.Context) ([]mail.Email, error)
	Get(ctx context.Context, id string) (mail.Email, error)
	Refresh(ctx context.Context) ([]mail.Email, error)
	Upload(ctx context.Context, name string, data []byte) (int, error)
	MarkRead(ctx context.Context, id string) error
	MarkUnread(ctx context.Context, id string) error
	SetCategory(ctx context.Context, id string, category mail.Category) error
	CategorizeAll(ctx context.Context) (int, error)
}

// CacheService keeps categories assigned by bulk classification
type CacheService interface {
	LoadCategories(ctx context.Context) (map[string]mail.Category, error)
	SaveCategory(ctx context.Context, emailID string, category mail.Category) error
}

// ChatService keeps a conversation with the assistant
type ChatService interface {
	Send(ctx context.Context, message string) (*ChatResponse, error)
	History(ctx context.Context) ([]ChatMessage, error)
	Reset(ctx context.Context) error
}

// ActionItemService is the confirmed action-item collection
type ActionItemService interface {
	Add(ctx context.Context, items []mail.ConfirmedActionItem) error
	List(ctx context.Context, completed *bool) ([]mail.ConfirmedActionItem, error)
	Complete(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// PromptService handles prompt template operations
type PromptService interface {
	GetPrompt(kind config.PromptKind) string
	ListPrompts() []PromptEntry
	UpdatePrompt(ctx context.Context, kind config.PromptKind, text string) error
	ResetPrompts(ctx context.Context, kind config.PromptKind) error
}

// Confirmer asks the user to approve a destructive action
type Confirmer interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer
type ConfirmFunc func(ctx context.Context, question string) (bool, error)

// Confirm calls f
func (f ConfirmFunc) Confirm(ctx context.Context, question string) (bool, error) {
	return f(ctx, question)
}

// Data structures

// DraftField names an editable compose field
type DraftField string

const (
	FieldTo      DraftField = "to"
	FieldCC      DraftField = "cc"
	FieldBCC     DraftField = "bcc"
	FieldSubject DraftField = "subject"
	FieldBody    DraftField = "body"
	FieldTone    DraftField = "tone"
)

// DraftSession is a snapshot of the active compose session
type DraftSession struct {
	// OriginalEmailID keys the draft_<id> field cache
	OriginalEmailID string
	Email           mail.Email
	// DraftID is empty until the session is saved or when replying fresh
	DraftID string
	To      string
	CC      string
	BCC     string
	Subject string
	Body    string
	Tone    string
	Loading bool
	Token   uint64
}

// Fields returns the persisted field set of the session
func (s DraftSession) Fields() mail.DraftFields {
	return mail.DraftFields{To: s.To, CC: s.CC, BCC: s.BCC, Subject: s.Subject, Draft: s.Body}
}

// Decision is the triage state of one candidate
type Decision string

const (
	DecisionNeutral  Decision = "neutral"
	DecisionSelected Decision = "selected"
	DecisionRejected Decision = "rejected"
)

// TriageCandidate pairs a candidate with its current decision
type TriageCandidate struct {
	Item     mail.ActionItem
	Decision Decision
}

// TriageSummary counts candidates per decision
type TriageSummary struct {
	Neutral  int
	Selected int
	Rejected int
}

// ReplyRequest is the generate-reply input
type ReplyRequest struct {
	Email   mail.Email
	Tone    string
	Context string
}

// ReplyResult is the generate-reply output
type ReplyResult struct {
	ReplyText       string
	Tone            string
	ConfidenceScore float64
}

// ChatMessage is one turn of a conversation
type ChatMessage struct {
	Role      string    `json:"role"` // user, assistant
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatRequest is the chat input
type ChatRequest struct {
	Message             string
	ConversationHistory []ChatMessage
	EmailContext        []mail.Email
}

// ChatResponse is the chat output
type ChatResponse struct {
	Message          string
	ReferencedEmails []string
	SuggestedActions []string
}

// PromptEntry describes one prompt template
type PromptEntry struct {
	Kind       config.PromptKind
	Text       string
	Customized bool
}
