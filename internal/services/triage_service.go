package services

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ajramos/mailtriage/internal/mail"
)

// TriageServiceImpl implements TriageService. A candidate is never both
// selected and rejected; absence from both sets means neutral.
type TriageServiceImpl struct {
	mu         sync.Mutex
	active     bool
	emailID    string
	candidates []mail.ActionItem
	selected   map[string]struct{}
	rejected   map[string]struct{}
	logger     *log.Logger
}

// NewTriageService creates an idle triage service
func NewTriageService() *TriageServiceImpl {
	return &TriageServiceImpl{}
}

// SetLogger sets the logger for debug output
func (s *TriageServiceImpl) SetLogger(logger *log.Logger) {
	s.logger = logger
}

// Start replaces any previous triage with a new candidate set, all neutral.
// Duplicate ids keep the first occurrence.
func (s *TriageServiceImpl) Start(emailID string, candidates []mail.ActionItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(candidates))
	s.candidates = make([]mail.ActionItem, 0, len(candidates))
	for _, c := range candidates {
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		s.candidates = append(s.candidates, c)
	}
	s.active = true
	s.emailID = emailID
	s.selected = make(map[string]struct{})
	s.rejected = make(map[string]struct{})

	if s.logger != nil {
		s.logger.Printf("TriageService: started triage for email %s with %d candidates", emailID, len(s.candidates))
	}
}

// Active reports whether a candidate set is loaded
func (s *TriageServiceImpl) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// EmailID returns the email the current candidates came from
func (s *TriageServiceImpl) EmailID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emailID
}

// Select marks a candidate accepted, clearing any rejection
func (s *TriageServiceImpl) Select(id string) error {
	return s.update(id, func() {
		delete(s.rejected, id)
		s.selected[id] = struct{}{}
	})
}

// Reject marks a candidate rejected, clearing any selection
func (s *TriageServiceImpl) Reject(id string) error {
	return s.update(id, func() {
		delete(s.selected, id)
		s.rejected[id] = struct{}{}
	})
}

// ToggleSelect flips selection; a rejected candidate becomes selected
func (s *TriageServiceImpl) ToggleSelect(id string) error {
	return s.update(id, func() {
		if _, ok := s.selected[id]; ok {
			delete(s.selected, id)
			return
		}
		delete(s.rejected, id)
		s.selected[id] = struct{}{}
	})
}

// ToggleReject flips rejection; a selected candidate becomes rejected
func (s *TriageServiceImpl) ToggleReject(id string) error {
	return s.update(id, func() {
		if _, ok := s.rejected[id]; ok {
			delete(s.rejected, id)
			return
		}
		delete(s.selected, id)
		s.rejected[id] = struct{}{}
	})
}

func (s *TriageServiceImpl) update(id string, apply func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(id); err != nil {
		return err
	}
	apply()
	return nil
}

func (s *TriageServiceImpl) checkLocked(id string) error {
	if !s.active {
		return ErrNoActiveTriage
	}
	for _, c := range s.candidates {
		if c.ID == id {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownCandidate, id)
}

// Decision returns the current decision for a candidate
func (s *TriageServiceImpl) Decision(id string) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(id); err != nil {
		return "", err
	}
	return s.decisionLocked(id), nil
}

func (s *TriageServiceImpl) decisionLocked(id string) Decision {
	if _, ok := s.selected[id]; ok {
		return DecisionSelected
	}
	if _, ok := s.rejected[id]; ok {
		return DecisionRejected
	}
	return DecisionNeutral
}

// Candidates returns the candidates in extraction order with their decisions
func (s *TriageServiceImpl) Candidates() []TriageCandidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TriageCandidate, 0, len(s.candidates))
	for _, c := range s.candidates {
		out = append(out, TriageCandidate{Item: c, Decision: s.decisionLocked(c.ID)})
	}
	return out
}

// Summary counts the candidates per decision
func (s *TriageServiceImpl) Summary() TriageSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum TriageSummary
	for _, c := range s.candidates {
		switch s.decisionLocked(c.ID) {
		case DecisionSelected:
			sum.Selected++
		case DecisionRejected:
			sum.Rejected++
		default:
			sum.Neutral++
		}
	}
	return sum
}

// Confirm returns the selected candidates in their original order and ends
// the triage. Rejected and neutral candidates are dropped.
func (s *TriageServiceImpl) Confirm(now time.Time) ([]mail.ConfirmedActionItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return nil, ErrNoActiveTriage
	}
	confirmed := make([]mail.ConfirmedActionItem, 0, len(s.selected))
	for _, c := range s.candidates {
		if _, ok := s.selected[c.ID]; ok {
			confirmed = append(confirmed, mail.Confirm(c, now))
		}
	}
	if s.logger != nil {
		s.logger.Printf("TriageService: confirmed %d of %d candidates for email %s", len(confirmed), len(s.candidates), s.emailID)
	}
	s.resetLocked()
	return confirmed, nil
}

// Discard drops the candidate set without confirming anything
func (s *TriageServiceImpl) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active && s.logger != nil {
		s.logger.Printf("TriageService: discarded triage for email %s", s.emailID)
	}
	s.resetLocked()
}

func (s *TriageServiceImpl) resetLocked() {
	s.active = false
	s.emailID = ""
	s.candidates = nil
	s.selected = nil
	s.rejected = nil
}
