package services

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ajramos/mailtriage/internal/mail"
	"github.com/ajramos/mailtriage/internal/render"
)

const (
	unknownSenderName     = "Unknown Sender"
	noSubject             = "(No Subject)"
	contentUnavailableMsg = "[Original email content not available]"
)

// ReconciliationResolver recovers the email a draft replies to. Resolution
// never fails: live list first, then the saved snapshot, then a placeholder.
type ReconciliationResolver struct {
	now func() time.Time
	seq atomic.Uint64
}

// NewReconciliationResolver creates a resolver using the wall clock
func NewReconciliationResolver() *ReconciliationResolver {
	return &ReconciliationResolver{now: time.Now}
}

// Resolve returns the email draft replies to
func (r *ReconciliationResolver) Resolve(draft mail.Draft, emails []mail.Email) mail.Email {
	if draft.OriginalEmailID != "" {
		if e, ok := mail.FindEmail(emails, draft.OriginalEmailID); ok {
			return e
		}
	}
	if draft.OriginalEmailSnapshot != nil {
		return *draft.OriginalEmailSnapshot
	}
	return r.placeholder(draft)
}

func (r *ReconciliationResolver) placeholder(draft mail.Draft) mail.Email {
	subject := strings.TrimPrefix(draft.Subject, "Re: ")
	if strings.TrimSpace(subject) == "" {
		subject = noSubject
	}
	e := mail.Email{
		ID:          fmt.Sprintf("fallback-%d-%d", r.now().UnixNano(), r.seq.Add(1)),
		Sender:      unknownSenderName,
		SenderEmail: draft.To,
		Subject:     subject,
		Body:        contentUnavailableMsg,
		Preview:     render.Preview(contentUnavailableMsg, render.DefaultPreviewWidth),
		IsRead:      true,
	}
	if !draft.CreatedAt.IsZero() {
		e.Date = draft.CreatedAt.UTC().Format(time.RFC3339)
	}
	return e
}
