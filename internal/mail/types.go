package mail

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category is the triage bucket assigned to an email by the categorizer
type Category string

const (
	CategoryImportant     Category = "Important"
	CategoryTodo          Category = "To-Do"
	CategoryInformational Category = "Informational"
	CategoryNewsletter    Category = "Newsletter"
	CategorySpam          Category = "Spam"
	CategoryUnread        Category = "Unread"
)

// Categories lists the categories the classifier may assign, in match order
var Categories = []Category{
	CategoryImportant,
	CategoryTodo,
	CategoryInformational,
	CategoryNewsletter,
	CategorySpam,
}

// ParseCategory returns the category matching s case-insensitively
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range append(Categories, CategoryUnread) {
		if strings.EqualFold(s, string(c)) {
			return c, true
		}
	}
	return "", false
}

// Priority of an action item
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// ParsePriority maps free text to a Priority, defaulting to Medium
func ParsePriority(s string) Priority {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return PriorityHigh
	case "low":
		return PriorityLow
	default:
		return PriorityMedium
	}
}

// Email is a message from the externally owned list. Only Category and
// IsRead are ever patched locally.
type Email struct {
	ID             string   `json:"id"`
	Sender         string   `json:"sender"`
	SenderEmail    string   `json:"sender_email"`
	Recipient      string   `json:"recipient"`
	Subject        string   `json:"subject"`
	Body           string   `json:"body"`
	Date           string   `json:"date"`
	Preview        string   `json:"preview"`
	Category       Category `json:"category,omitempty"`
	IsRead         bool     `json:"is_read"`
	HasAttachments bool     `json:"has_attachments"`
}

// FindEmail returns the email with the given id
func FindEmail(emails []Email, id string) (Email, bool) {
	for _, e := range emails {
		if e.ID == id {
			return e, true
		}
	}
	return Email{}, false
}

// Draft is a locally composed, not yet sent reply. OriginalEmailSnapshot is
// captured on first save and never rewritten afterwards.
type Draft struct {
	ID                    string    `json:"id"`
	OriginalEmailID       string    `json:"originalEmailId"`
	OriginalEmailSnapshot *Email    `json:"originalEmailSnapshot,omitempty"`
	To                    string    `json:"to"`
	CC                    string    `json:"cc"`
	BCC                   string    `json:"bcc"`
	Subject               string    `json:"subject"`
	Body                  string    `json:"body"`
	CreatedAt             time.Time `json:"createdAt"`
}

// DraftFields is the in-progress field cache stored under draft_<emailId>
type DraftFields struct {
	To      string `json:"to"`
	CC      string `json:"cc"`
	BCC     string `json:"bcc"`
	Subject string `json:"subject"`
	Draft   string `json:"draft"`
}

// ActionItem is a candidate proposed by the extraction service
type ActionItem struct {
	ID                 string   `json:"id"`
	EmailID            string   `json:"email_id"`
	Description        string   `json:"description"`
	Deadline           string   `json:"deadline,omitempty"`
	Priority           Priority `json:"priority"`
	SourceEmailSubject string   `json:"source_email_subject,omitempty"`
}

// ConfirmedActionItem is a candidate the user accepted during triage
type ConfirmedActionItem struct {
	ID                 string    `json:"id" db:"id"`
	CandidateID        string    `json:"candidate_id,omitempty" db:"candidate_id"`
	EmailID            string    `json:"email_id" db:"email_id"`
	Description        string    `json:"description" db:"description"`
	Deadline           string    `json:"deadline,omitempty" db:"deadline"`
	Priority           Priority  `json:"priority" db:"priority"`
	Completed          bool      `json:"completed" db:"completed"`
	SourceEmailSubject string    `json:"source_email_subject,omitempty" db:"source_email_subject"`
	ConfirmedAt        time.Time `json:"confirmed_at" db:"confirmed_at"`
}

// Confirm promotes a candidate into a confirmed item. Candidate ids are
// positional and repeat across extractions, so the item gets its own id.
func Confirm(item ActionItem, now time.Time) ConfirmedActionItem {
	return ConfirmedActionItem{
		ID:                 "action-" + uuid.New().String(),
		CandidateID:        item.ID,
		EmailID:            item.EmailID,
		Description:        item.Description,
		Deadline:           item.Deadline,
		Priority:           item.Priority,
		SourceEmailSubject: item.SourceEmailSubject,
		ConfirmedAt:        now,
	}
}
