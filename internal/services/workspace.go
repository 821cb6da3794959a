package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ajramos/mailtriage/internal/mail"
)

// Workspace ties the draft and triage services to their overlay panels.
// Closing the composer saves the draft; closing the triage panel discards
// the candidates.
type Workspace struct {
	emails  EmailService
	drafts  DraftService
	ai      AIService
	triage  TriageService
	actions ActionItemService
	confirm Confirmer

	Composer    *PanelController
	TriagePanel *PanelController

	now    func() time.Time
	logger *log.Logger

	mu        sync.Mutex
	lastSaved *mail.Draft
}

// NewWorkspace wires the services and registers the panel close hooks
func NewWorkspace(emails EmailService, drafts DraftService, ai AIService, triage TriageService, actions ActionItemService, confirm Confirmer) *Workspace {
	w := &Workspace{
		emails:      emails,
		drafts:      drafts,
		ai:          ai,
		triage:      triage,
		actions:     actions,
		confirm:     confirm,
		Composer:    NewPanelController(PanelComposer),
		TriagePanel: NewPanelController(PanelTriage),
		now:         time.Now,
	}
	w.Composer.OnClose(w.saveAndCloseDraft)
	w.TriagePanel.OnClose(func(ctx context.Context) error {
		w.triage.Discard()
		return nil
	})
	return w
}

// SetLogger sets the logger for debug output
func (w *Workspace) SetLogger(logger *log.Logger) {
	w.logger = logger
	w.Composer.SetLogger(logger)
	w.TriagePanel.SetLogger(logger)
}

func (w *Workspace) saveAndCloseDraft(ctx context.Context) error {
	if _, ok := w.drafts.Session(); !ok {
		return nil
	}
	draft, err := w.drafts.Save(ctx)
	if err != nil {
		return err
	}
	w.drafts.Close()
	w.mu.Lock()
	w.lastSaved = draft
	w.mu.Unlock()
	return nil
}

// Reply opens the composer on a fresh reply to an email
func (w *Workspace) Reply(ctx context.Context, emailID string) (DraftSession, error) {
	email, err := w.emails.Get(ctx, emailID)
	if err != nil {
		return DraftSession{}, err
	}
	sess, err := w.drafts.OpenForReply(ctx, email)
	if err != nil {
		return DraftSession{}, fmt.Errorf("failed to open reply: %w", err)
	}
	w.Composer.Open()
	return sess, nil
}

// OpenDraft opens the composer on a saved draft
func (w *Workspace) OpenDraft(ctx context.Context, draftID string) (DraftSession, error) {
	draft, err := w.drafts.Get(ctx, draftID)
	if err != nil {
		return DraftSession{}, err
	}
	emails, err := w.emails.List(ctx)
	if err != nil {
		// the resolver still produces a placeholder
		if w.logger != nil {
			w.logger.Printf("Workspace: email list unavailable while opening draft %s: %v", draftID, err)
		}
		emails = nil
	}
	sess, err := w.drafts.OpenForEdit(ctx, *draft, emails)
	if err != nil {
		return DraftSession{}, fmt.Errorf("failed to open draft: %w", err)
	}
	w.Composer.Open()
	return sess, nil
}

// CloseComposer saves the active draft and closes the composer. It returns
// the saved draft, or nil if there was no session.
func (w *Workspace) CloseComposer(ctx context.Context) (*mail.Draft, error) {
	w.mu.Lock()
	w.lastSaved = nil
	w.mu.Unlock()

	if err := w.Composer.Close(ctx); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSaved, nil
}

// SendDraft sends the active session and dismisses the composer
func (w *Workspace) SendDraft(ctx context.Context) error {
	if err := w.drafts.Send(ctx); err != nil {
		return err
	}
	w.Composer.Dismiss()
	return nil
}

// DeleteDraft removes a saved draft after confirmation. A declined prompt
// returns false with no error.
func (w *Workspace) DeleteDraft(ctx context.Context, draftID string) (bool, error) {
	if w.confirm != nil {
		ok, err := w.confirm.Confirm(ctx, fmt.Sprintf("Delete draft %s?", draftID))
		if err != nil {
			return false, fmt.Errorf("failed to confirm delete: %w", err)
		}
		if !ok {
			return false, nil
		}
	}
	closedActive, err := w.drafts.Delete(ctx, draftID)
	if err != nil {
		return false, err
	}
	if closedActive {
		w.Composer.Dismiss()
	}
	return true, nil
}

// ExtractActions asks the AI for action items and starts a triage when
// any come back. AI failures yield an empty set.
func (w *Workspace) ExtractActions(ctx context.Context, emailID string) ([]mail.ActionItem, error) {
	email, err := w.emails.Get(ctx, emailID)
	if err != nil {
		return nil, err
	}
	items, err := w.ai.ExtractActions(ctx, email)
	if err != nil {
		if w.logger != nil {
			w.logger.Printf("Workspace: action extraction failed for %s: %v", emailID, err)
		}
		items = []mail.ActionItem{}
	}
	if len(items) == 0 {
		// an empty result still replaces the previous candidate set
		w.triage.Discard()
		w.TriagePanel.Dismiss()
		return items, nil
	}
	w.triage.Start(emailID, items)
	w.TriagePanel.Open()
	return items, nil
}

// ConfirmTriage stores the selected candidates and dismisses the triage panel
func (w *Workspace) ConfirmTriage(ctx context.Context) ([]mail.ConfirmedActionItem, error) {
	confirmed, err := w.triage.Confirm(w.now())
	if err != nil {
		return nil, err
	}
	if len(confirmed) > 0 {
		if err := w.actions.Add(ctx, confirmed); err != nil {
			return nil, fmt.Errorf("failed to store action items: %w", err)
		}
	}
	w.TriagePanel.Dismiss()
	return confirmed, nil
}

// CloseTriage closes the triage panel, discarding undecided candidates
func (w *Workspace) CloseTriage(ctx context.Context) error {
	return w.TriagePanel.Close(ctx)
}

// Drafts returns the draft service
func (w *Workspace) Drafts() DraftService {
	return w.drafts
}

// Triage returns the triage service
func (w *Workspace) Triage() TriageService {
	return w.triage
}
