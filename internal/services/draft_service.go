package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/ajramos/mailtriage/internal/mail"
	"github.com/google/uuid"
)

const (
	allDraftsKey        = "all_drafts"
	draftFieldKeyPrefix = "draft_"
	orphanEmailPrefix   = "fallback-"
	defaultTone         = "professional"

	// ReplyFailedMessage replaces the body when generation fails
	ReplyFailedMessage = "Failed to generate reply. Please try again."
)

// DraftFieldsKey returns the field cache key for an email
func DraftFieldsKey(emailID string) string {
	return draftFieldKeyPrefix + emailID
}

// DraftServiceImpl implements DraftService
type DraftServiceImpl struct {
	store       PersistentStore
	aiService   AIService
	resolver    *ReconciliationResolver
	defaultTone string
	now         func() time.Time
	newID       func() string
	logger      *log.Logger

	mu      sync.Mutex
	session *DraftSession
	// token is bumped by every generation and every session change; only a
	// generation whose token is still current may write the body
	token uint64
	wg    sync.WaitGroup
}

// NewDraftService creates a new draft service
func NewDraftService(store PersistentStore, aiService AIService, resolver *ReconciliationResolver) *DraftServiceImpl {
	if resolver == nil {
		resolver = NewReconciliationResolver()
	}
	return &DraftServiceImpl{
		store:       store,
		aiService:   aiService,
		resolver:    resolver,
		defaultTone: defaultTone,
		now:         time.Now,
		newID:       func() string { return "draft-" + uuid.New().String() },
	}
}

// SetLogger sets the logger for debug output
func (s *DraftServiceImpl) SetLogger(logger *log.Logger) {
	s.logger = logger
}

// SetDefaultTone sets the tone used when a reply is opened
func (s *DraftServiceImpl) SetDefaultTone(tone string) {
	if strings.TrimSpace(tone) != "" {
		s.defaultTone = tone
	}
}

// OpenForReply starts a fresh reply session and starts generating a body
func (s *DraftServiceImpl) OpenForReply(ctx context.Context, email mail.Email) (DraftSession, error) {
	if strings.TrimSpace(email.ID) == "" {
		return DraftSession{}, fmt.Errorf("email ID cannot be empty")
	}

	s.mu.Lock()
	s.token++
	s.session = &DraftSession{
		OriginalEmailID: email.ID,
		Email:           email,
		To:              email.SenderEmail,
		Subject:         "Re: " + email.Subject,
		Tone:            s.defaultTone,
		Token:           s.token,
	}
	// Overwrite whatever was cached for this email so a stale body never shows
	err := s.persistFieldsLocked(ctx)
	s.mu.Unlock()
	if err != nil {
		return DraftSession{}, err
	}

	if s.logger != nil {
		s.logger.Printf("DraftService: opened reply session for email %s", email.ID)
	}

	if s.aiService != nil {
		if _, err := s.Regenerate(ctx, s.defaultTone); err != nil {
			return DraftSession{}, err
		}
	}
	sess, _ := s.Session()
	return sess, nil
}

// OpenForEdit reopens a saved draft, recovering in-progress edits from the field cache
func (s *DraftServiceImpl) OpenForEdit(ctx context.Context, draft mail.Draft, emails []mail.Email) (DraftSession, error) {
	email := s.resolver.Resolve(draft, emails)
	emailID := draft.OriginalEmailID
	if emailID == "" {
		emailID = email.ID
		if draft.OriginalEmailSnapshot == nil && draft.ID != "" {
			// placeholder ids differ per resolution; key the field cache by draft
			emailID = orphanEmailPrefix + draft.ID
			email.ID = emailID
		}
	}

	sess := DraftSession{
		OriginalEmailID: emailID,
		Email:           email,
		DraftID:         draft.ID,
		To:              draft.To,
		CC:              draft.CC,
		BCC:             draft.BCC,
		Subject:         draft.Subject,
		Body:            draft.Body,
		Tone:            s.defaultTone,
	}

	cached, found, err := s.loadFields(ctx, emailID)
	if err != nil {
		return DraftSession{}, err
	}
	if found {
		overrideNonEmpty(&sess.To, cached.To)
		overrideNonEmpty(&sess.CC, cached.CC)
		overrideNonEmpty(&sess.BCC, cached.BCC)
		overrideNonEmpty(&sess.Subject, cached.Subject)
		overrideNonEmpty(&sess.Body, cached.Draft)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token++
	sess.Token = s.token
	s.session = &sess
	if err := s.persistFieldsLocked(ctx); err != nil {
		return DraftSession{}, err
	}

	if s.logger != nil {
		s.logger.Printf("DraftService: opened draft %s for email %s (cache=%t)", draft.ID, emailID, found)
	}
	return sess, nil
}

func overrideNonEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// ParseDraftField validates a field name
func ParseDraftField(s string) (DraftField, error) {
	f := DraftField(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FieldTo, FieldCC, FieldBCC, FieldSubject, FieldBody, FieldTone:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
}

// Mutate updates one field and persists the full field set
func (s *DraftServiceImpl) Mutate(ctx context.Context, field DraftField, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return ErrNoActiveSession
	}
	switch field {
	case FieldTo:
		s.session.To = value
	case FieldCC:
		s.session.CC = value
	case FieldBCC:
		s.session.BCC = value
	case FieldSubject:
		s.session.Subject = value
	case FieldBody:
		if s.session.Loading {
			return ErrFieldLoading
		}
		s.session.Body = value
	case FieldTone:
		s.session.Tone = value
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return s.persistFieldsLocked(ctx)
}

// Regenerate clears the body and asks the AI service for a new one. The
// returned token identifies this call; only the latest call may write.
func (s *DraftServiceImpl) Regenerate(ctx context.Context, tone string) (uint64, error) {
	if s.aiService == nil {
		return 0, fmt.Errorf("AI service not available: %w", ErrAIServiceDown)
	}
	if strings.TrimSpace(tone) == "" {
		tone = s.defaultTone
	}

	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return 0, ErrNoActiveSession
	}
	s.token++
	token := s.token
	s.session.Token = token
	s.session.Tone = tone
	s.session.Body = ""
	s.session.Loading = true
	req := ReplyRequest{Email: s.session.Email, Tone: tone}
	err := s.persistFieldsLocked(ctx)
	s.mu.Unlock()
	if err != nil {
		return 0, err
	}

	if s.logger != nil {
		s.logger.Printf("DraftService: generation %d started (tone=%s)", token, tone)
	}

	genCtx := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		res, err := s.aiService.GenerateReply(genCtx, req)
		s.applyGeneration(genCtx, token, res, err)
	}()
	return token, nil
}

func (s *DraftServiceImpl) applyGeneration(ctx context.Context, token uint64, res *ReplyResult, genErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil || s.session.Token != token {
		if s.logger != nil {
			s.logger.Printf("DraftService: discarding stale generation %d", token)
		}
		return
	}

	s.session.Loading = false
	if genErr != nil || res == nil {
		if s.logger != nil {
			s.logger.Printf("DraftService: generation %d failed: %v", token, genErr)
		}
		s.session.Body = ReplyFailedMessage
	} else {
		s.session.Body = res.ReplyText
	}
	if err := s.persistFieldsLocked(ctx); err != nil && s.logger != nil {
		s.logger.Printf("DraftService: failed to persist generated body: %v", err)
	}
}

// Wait blocks until every in-flight generation has returned
func (s *DraftServiceImpl) Wait() {
	s.wg.Wait()
}

// Save commits the session into the durable collection. Saving without a
// draft id replaces every draft for the same email.
func (s *DraftServiceImpl) Save(ctx context.Context) (*mail.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil, ErrNoActiveSession
	}
	drafts, err := s.loadDrafts(ctx)
	if err != nil {
		return nil, err
	}

	sess := s.session
	subject := sess.Subject
	if strings.TrimSpace(subject) == "" {
		subject = noSubject
	}
	draft := mail.Draft{
		OriginalEmailID: sess.OriginalEmailID,
		To:              sess.To,
		CC:              sess.CC,
		BCC:             sess.BCC,
		Subject:         subject,
		Body:            sess.Body,
	}

	kept := make([]mail.Draft, 0, len(drafts)+1)
	if sess.DraftID != "" {
		var existing *mail.Draft
		for i := range drafts {
			if drafts[i].ID == sess.DraftID {
				existing = &drafts[i]
				continue
			}
			kept = append(kept, drafts[i])
		}
		draft.ID = sess.DraftID
		if existing != nil {
			draft.OriginalEmailSnapshot = existing.OriginalEmailSnapshot
			draft.CreatedAt = existing.CreatedAt
			draft.OriginalEmailID = existing.OriginalEmailID
		}
	} else {
		for _, d := range drafts {
			if d.OriginalEmailID == sess.OriginalEmailID {
				continue
			}
			kept = append(kept, d)
		}
		draft.ID = s.newID()
	}
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = s.now()
		snapshot := sess.Email
		draft.OriginalEmailSnapshot = &snapshot
	}

	drafts = append([]mail.Draft{draft}, kept...)
	if err := s.writeDrafts(ctx, drafts); err != nil {
		return nil, err
	}
	sess.DraftID = draft.ID

	if s.logger != nil {
		s.logger.Printf("DraftService: saved draft %s for email %s (%d drafts)", draft.ID, draft.OriginalEmailID, len(drafts))
	}
	return &draft, nil
}

// Send ends the session as sent. Nothing is delivered over the network; the
// field cache and any saved draft it came from are purged.
func (s *DraftServiceImpl) Send(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return ErrNoActiveSession
	}
	sess := s.session
	if err := s.store.Remove(ctx, DraftFieldsKey(sess.OriginalEmailID)); err != nil {
		return fmt.Errorf("failed to remove draft fields: %w", err)
	}
	if sess.DraftID != "" {
		drafts, err := s.loadDrafts(ctx)
		if err != nil {
			return err
		}
		if kept, removed := removeDraft(drafts, sess.DraftID); removed {
			if err := s.writeDrafts(ctx, kept); err != nil {
				return err
			}
		}
	}
	s.endSessionLocked()

	if s.logger != nil {
		s.logger.Printf("DraftService: sent reply to %s for email %s", sess.To, sess.OriginalEmailID)
	}
	return nil
}

// Delete removes a durable draft, ending the session if it was editing it
func (s *DraftServiceImpl) Delete(ctx context.Context, draftID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	drafts, err := s.loadDrafts(ctx)
	if err != nil {
		return false, err
	}
	kept, removed := removeDraft(drafts, draftID)
	if !removed {
		return false, fmt.Errorf("%w: %s", ErrDraftNotFound, draftID)
	}
	if err := s.writeDrafts(ctx, kept); err != nil {
		return false, err
	}

	closedActive := s.session != nil && s.session.DraftID == draftID
	if closedActive {
		s.endSessionLocked()
	}
	if s.logger != nil {
		s.logger.Printf("DraftService: deleted draft %s (closed active session: %t)", draftID, closedActive)
	}
	return closedActive, nil
}

// Close ends the session without saving
func (s *DraftServiceImpl) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endSessionLocked()
}

// Session returns a copy of the active session
func (s *DraftServiceImpl) Session() (DraftSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return DraftSession{}, false
	}
	return *s.session, true
}

// List returns all drafts, newest first
func (s *DraftServiceImpl) List(ctx context.Context) ([]mail.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadDrafts(ctx)
}

// Get returns one draft by id
func (s *DraftServiceImpl) Get(ctx context.Context, draftID string) (*mail.Draft, error) {
	drafts, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range drafts {
		if drafts[i].ID == draftID {
			return &drafts[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrDraftNotFound, draftID)
}

func (s *DraftServiceImpl) endSessionLocked() {
	s.session = nil
	// invalidates any generation still in flight
	s.token++
}

func (s *DraftServiceImpl) persistFieldsLocked(ctx context.Context) error {
	data, err := json.Marshal(s.session.Fields())
	if err != nil {
		return fmt.Errorf("failed to encode draft fields: %w", err)
	}
	if err := s.store.Set(ctx, DraftFieldsKey(s.session.OriginalEmailID), string(data)); err != nil {
		return fmt.Errorf("failed to persist draft fields: %w", err)
	}
	return nil
}

func (s *DraftServiceImpl) loadFields(ctx context.Context, emailID string) (mail.DraftFields, bool, error) {
	raw, found, err := s.store.Get(ctx, DraftFieldsKey(emailID))
	if err != nil {
		return mail.DraftFields{}, false, fmt.Errorf("failed to load draft fields: %w", err)
	}
	if !found {
		return mail.DraftFields{}, false, nil
	}
	var f mail.DraftFields
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		// an unreadable cache only loses unsaved edits
		if s.logger != nil {
			s.logger.Printf("DraftService: ignoring corrupt field cache for %s: %v", emailID, err)
		}
		return mail.DraftFields{}, false, nil
	}
	return f, true, nil
}

func (s *DraftServiceImpl) loadDrafts(ctx context.Context) ([]mail.Draft, error) {
	raw, found, err := s.store.Get(ctx, allDraftsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load drafts: %w", err)
	}
	if !found || strings.TrimSpace(raw) == "" {
		return []mail.Draft{}, nil
	}
	var drafts []mail.Draft
	if err := json.Unmarshal([]byte(raw), &drafts); err != nil {
		return nil, fmt.Errorf("failed to decode drafts: %w: %v", ErrInvalidFormat, err)
	}
	return drafts, nil
}

func (s *DraftServiceImpl) writeDrafts(ctx context.Context, drafts []mail.Draft) error {
	data, err := json.Marshal(drafts)
	if err != nil {
		return fmt.Errorf("failed to encode drafts: %w", err)
	}
	if err := s.store.Set(ctx, allDraftsKey, string(data)); err != nil {
		return fmt.Errorf("failed to write drafts: %w", err)
	}
	return nil
}

func removeDraft(drafts []mail.Draft, id string) ([]mail.Draft, bool) {
	kept := make([]mail.Draft, 0, len(drafts))
	removed := false
	for _, d := range drafts {
		if d.ID == id {
			removed = true
			continue
		}
		kept = append(kept, d)
	}
	return kept, removed
}
