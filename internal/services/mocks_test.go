package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ajramos/mailtriage/internal/db"
	"github.com/ajramos/mailtriage/internal/llm"
	"github.com/ajramos/mailtriage/internal/mail"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockLLMProvider implements llm.Provider for testing
type MockLLMProvider struct {
	mock.Mock
}

func (m *MockLLMProvider) Name() string {
	return "mock"
}

func (m *MockLLMProvider) Generate(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
	args := m.Called(ctx, prompt, opts)
	return args.String(0), args.Error(1)
}

// MockAIService implements AIService for testing
type MockAIService struct {
	mock.Mock
}

func (m *MockAIService) GenerateReply(ctx context.Context, req ReplyRequest) (*ReplyResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ReplyResult), args.Error(1)
}

func (m *MockAIService) ExtractActions(ctx context.Context, email mail.Email) ([]mail.ActionItem, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]mail.ActionItem), args.Error(1)
}

func (m *MockAIService) Categorize(ctx context.Context, email mail.Email) (mail.Category, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(mail.Category), args.Error(1)
}

func (m *MockAIService) CategorizeAll(ctx context.Context, emails []mail.Email) (int, error) {
	args := m.Called(ctx, emails)
	return args.Int(0), args.Error(1)
}

func (m *MockAIService) Summarize(ctx context.Context, emails []mail.Email, focus string) (string, error) {
	args := m.Called(ctx, emails, focus)
	return args.String(0), args.Error(1)
}

func (m *MockAIService) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ChatResponse), args.Error(1)
}

// MockCacheService implements CacheService for testing
type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) LoadCategories(ctx context.Context) (map[string]mail.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]mail.Category), args.Error(1)
}

func (m *MockCacheService) SaveCategory(ctx context.Context, emailID string, category mail.Category) error {
	args := m.Called(ctx, emailID, category)
	return args.Error(0)
}

type replyOutcome struct {
	text string
	err  error
}

// gatedAI blocks each GenerateReply on the channel registered for its tone
type gatedAI struct {
	AIService
	gates map[string]chan replyOutcome
}

func newGatedAI(tones ...string) *gatedAI {
	g := &gatedAI{gates: make(map[string]chan replyOutcome)}
	for _, tone := range tones {
		g.gates[tone] = make(chan replyOutcome, 1)
	}
	return g
}

func (g *gatedAI) release(tone, text string) {
	g.gates[tone] <- replyOutcome{text: text}
}

func (g *gatedAI) fail(tone string, err error) {
	g.gates[tone] <- replyOutcome{err: err}
}

func (g *gatedAI) GenerateReply(ctx context.Context, req ReplyRequest) (*ReplyResult, error) {
	out := <-g.gates[req.Tone]
	if out.err != nil {
		return nil, out.err
	}
	return &ReplyResult{ReplyText: out.text, Tone: req.Tone}, nil
}

// flakyStore is a MemoryStore whose writes can be made to fail
type flakyStore struct {
	*MemoryStore
	mu      sync.Mutex
	failSet bool
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemoryStore: NewMemoryStore()}
}

func (f *flakyStore) setFailing(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failSet = v
}

func (f *flakyStore) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	failing := f.failSet
	f.mu.Unlock()
	if failing {
		return errors.New("disk full")
	}
	return f.MemoryStore.Set(ctx, key, value)
}

type staticSource struct {
	mu     sync.Mutex
	emails []mail.Email
	loads  int
}

func (s *staticSource) Load(ctx context.Context) ([]mail.Email, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	out := make([]mail.Email, len(s.emails))
	copy(out, s.emails)
	return out, nil
}

func (s *staticSource) Replace(ctx context.Context, emails []mail.Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emails = emails
	return nil
}

func openTestDB(t *testing.T) *db.Store {
	t.Helper()
	store, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "services.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleEmails() []mail.Email {
	return []mail.Email{
		{ID: "e1", Sender: "Alice", SenderEmail: "alice@example.com", Subject: "Budget", Body: "Please review the Q3 budget.", Preview: "Please review the Q3 budget."},
		{ID: "e2", Sender: "Bob", SenderEmail: "bob@example.com", Subject: "Offsite", Body: "Book the venue and send invites.", Preview: "Book the venue"},
		{ID: "e3", Sender: "News", SenderEmail: "news@example.com", Subject: "Weekly digest", Body: "<p>This week in tech</p>", Preview: "This week in tech"},
	}
}
