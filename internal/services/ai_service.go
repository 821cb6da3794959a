package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"regexp"
	"strings"

	"github.com/ajramos/mailtriage/internal/config"
	"github.com/ajramos/mailtriage/internal/llm"
	"github.com/ajramos/mailtriage/internal/mail"
	"github.com/ajramos/mailtriage/internal/render"
)

const (
	categorizeBodyLimit = 1000
	summarizeEmailLimit = 10
	chatHistoryLimit    = 5
	chatEmailLimit      = 15
	chatReferenceLimit  = 5

	defaultReplyContext = "No additional context"
	defaultSummaryFocus = "general overview"
)

// Sampling temperatures per task
const (
	categorizeTemperature = 0.3
	extractTemperature    = 0.4
	replyTemperature      = 0.7
	summarizeTemperature  = 0.5
	chatTemperature       = 0.7
)

var jsonArrayPattern = regexp.MustCompile(`(?s)\[.*\]`)

// AIServiceImpl implements AIService on top of an llm.Provider
type AIServiceImpl struct {
	provider      llm.Provider
	promptService PromptService
	cacheService  CacheService
	logger        *log.Logger
}

// NewAIService creates a new AI service
func NewAIService(provider llm.Provider, promptService PromptService, cacheService CacheService) *AIServiceImpl {
	return &AIServiceImpl{
		provider:      provider,
		promptService: promptService,
		cacheService:  cacheService,
	}
}

// SetLogger sets the logger for debug output
func (s *AIServiceImpl) SetLogger(logger *log.Logger) {
	s.logger = logger
}

func (s *AIServiceImpl) prompt(kind config.PromptKind) string {
	if s.promptService != nil {
		if p := s.promptService.GetPrompt(kind); strings.TrimSpace(p) != "" {
			return p
		}
	}
	return config.DefaultPrompts().Get(kind)
}

func (s *AIServiceImpl) generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	if s.provider == nil {
		return "", fmt.Errorf("AI provider not available: %w", ErrAIServiceDown)
	}
	out, err := s.provider.Generate(ctx, prompt, llm.GenerateOptions{Temperature: temperature})
	if err != nil {
		return "", fmt.Errorf("%s generation failed: %w", s.provider.Name(), err)
	}
	return strings.TrimSpace(out), nil
}

func emailBody(e mail.Email) string {
	if render.LooksLikeHTML(e.Body) {
		return render.PlainText(e.Body)
	}
	return e.Body
}

// GenerateReply drafts a reply to an email in the requested tone
func (s *AIServiceImpl) GenerateReply(ctx context.Context, req ReplyRequest) (*ReplyResult, error) {
	tone := req.Tone
	if strings.TrimSpace(tone) == "" {
		tone = defaultTone
	}
	extra := req.Context
	if strings.TrimSpace(extra) == "" {
		extra = defaultReplyContext
	}

	prompt := config.Render(s.prompt(config.PromptReplyGeneration), map[string]string{
		"subject": req.Email.Subject,
		"sender":  req.Email.Sender,
		"body":    emailBody(req.Email),
		"tone":    tone,
		"context": extra,
	})

	reply, err := s.generate(ctx, prompt, replyTemperature)
	if err != nil {
		return nil, fmt.Errorf("failed to generate reply: %w", err)
	}
	return &ReplyResult{
		ReplyText:       reply,
		Tone:            tone,
		ConfidenceScore: replyConfidence(reply),
	}, nil
}

// replyConfidence scores a reply by length, capped at 0.95
func replyConfidence(reply string) float64 {
	words := len(strings.Fields(reply))
	c := math.Min(0.95, 0.6+float64(words)/200)
	return math.Round(c*100) / 100
}

type extractedItem struct {
	Description string  `json:"description"`
	Deadline    *string `json:"deadline"`
	Priority    string  `json:"priority"`
}

// ExtractActions proposes action items found in an email
func (s *AIServiceImpl) ExtractActions(ctx context.Context, email mail.Email) ([]mail.ActionItem, error) {
	prompt := config.Render(s.prompt(config.PromptActionExtraction), map[string]string{
		"subject": email.Subject,
		"sender":  email.Sender,
		"body":    emailBody(email),
	})

	resp, err := s.generate(ctx, prompt, extractTemperature)
	if err != nil {
		return nil, fmt.Errorf("failed to extract action items: %w", err)
	}
	items, err := parseActionItems(email, resp)
	if err != nil {
		if s.logger != nil {
			s.logger.Printf("AIService: unparseable extraction response for %s: %v", email.ID, err)
		}
		return nil, err
	}
	if s.logger != nil {
		s.logger.Printf("AIService: extracted %d action items from %s", len(items), email.ID)
	}
	return items, nil
}

func parseActionItems(email mail.Email, resp string) ([]mail.ActionItem, error) {
	raw := resp
	if m := jsonArrayPattern.FindString(resp); m != "" {
		raw = m
	}
	var parsed []extractedItem
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	items := make([]mail.ActionItem, 0, len(parsed))
	for idx, p := range parsed {
		desc := strings.TrimSpace(p.Description)
		if desc == "" {
			continue
		}
		item := mail.ActionItem{
			ID:                 fmt.Sprintf("%s_action_%d", email.ID, idx),
			EmailID:            email.ID,
			Description:        desc,
			Priority:           mail.ParsePriority(p.Priority),
			SourceEmailSubject: email.Subject,
		}
		if p.Deadline != nil && !strings.EqualFold(strings.TrimSpace(*p.Deadline), "null") {
			item.Deadline = strings.TrimSpace(*p.Deadline)
		}
		items = append(items, item)
	}
	return items, nil
}

// Categorize assigns one of mail.Categories, falling back to Informational
// when the response names none of them
func (s *AIServiceImpl) Categorize(ctx context.Context, email mail.Email) (mail.Category, error) {
	body := emailBody(email)
	if r := []rune(body); len(r) > categorizeBodyLimit {
		body = string(r[:categorizeBodyLimit])
	}
	prompt := config.Render(s.prompt(config.PromptCategorization), map[string]string{
		"subject": email.Subject,
		"sender":  email.Sender,
		"body":    body,
	})

	resp, err := s.generate(ctx, prompt, categorizeTemperature)
	if err != nil {
		return "", fmt.Errorf("failed to categorize email: %w", err)
	}
	return matchCategory(resp), nil
}

func matchCategory(resp string) mail.Category {
	lower := strings.ToLower(resp)
	for _, c := range mail.Categories {
		if strings.Contains(lower, strings.ToLower(string(c))) {
			return c
		}
	}
	return mail.CategoryInformational
}

// CategorizeAll classifies every email and stores the results. A failure on
// one email records Informational for it and moves on.
func (s *AIServiceImpl) CategorizeAll(ctx context.Context, emails []mail.Email) (int, error) {
	if s.provider == nil {
		return 0, fmt.Errorf("AI provider not available: %w", ErrAIServiceDown)
	}
	count := 0
	for _, e := range emails {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		category, err := s.Categorize(ctx, e)
		if err != nil {
			if s.logger != nil {
				s.logger.Printf("AIService: categorize %s failed, using %s: %v", e.ID, mail.CategoryInformational, err)
			}
			category = mail.CategoryInformational
		}
		if s.cacheService != nil {
			if err := s.cacheService.SaveCategory(ctx, e.ID, category); err != nil {
				return count, fmt.Errorf("failed to store category for %s: %w", e.ID, err)
			}
		}
		count++
	}
	if s.logger != nil {
		s.logger.Printf("AIService: categorized %d emails", count)
	}
	return count, nil
}

// Summarize produces a digest of the first few emails
func (s *AIServiceImpl) Summarize(ctx context.Context, emails []mail.Email, focus string) (string, error) {
	if strings.TrimSpace(focus) == "" {
		focus = defaultSummaryFocus
	}
	if len(emails) > summarizeEmailLimit {
		emails = emails[:summarizeEmailLimit]
	}
	parts := make([]string, 0, len(emails))
	for _, e := range emails {
		parts = append(parts, fmt.Sprintf("From: %s\nSubject: %s\nDate: %s\nPreview: %s", e.Sender, e.Subject, e.Date, e.Preview))
	}
	prompt := config.Render(s.prompt(config.PromptSummarization), map[string]string{
		"emails": strings.Join(parts, "\n\n"),
		"focus":  focus,
	})

	summary, err := s.generate(ctx, prompt, summarizeTemperature)
	if err != nil {
		return "", fmt.Errorf("failed to summarize emails: %w", err)
	}
	return summary, nil
}

// Chat answers a question about the emails in context
func (s *AIServiceImpl) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	history := req.ConversationHistory
	if len(history) > chatHistoryLimit {
		history = history[len(history)-chatHistoryLimit:]
	}
	lines := make([]string, 0, len(history))
	for _, m := range history {
		lines = append(lines, fmt.Sprintf("%s: %s", capitalize(m.Role), m.Content))
	}
	historyText := strings.Join(lines, "\n")
	if historyText == "" {
		historyText = "No previous conversation"
	}

	emailText := "No emails in context"
	if len(req.EmailContext) > 0 {
		shown := req.EmailContext
		if len(shown) > chatEmailLimit {
			shown = shown[:chatEmailLimit]
		}
		parts := make([]string, 0, len(shown))
		for _, e := range shown {
			category := string(e.Category)
			if category == "" {
				category = "Uncategorized"
			}
			parts = append(parts, fmt.Sprintf("ID: %s\nFrom: %s\nSubject: %s\nCategory: %s\nPreview: %s", e.ID, e.Sender, e.Subject, category, e.Preview))
		}
		emailText = strings.Join(parts, "\n\n")
	}

	prompt := config.Render(s.prompt(config.PromptChatSystem), map[string]string{
		"conversation_history": historyText,
		"email_context":        emailText,
		"user_message":         req.Message,
	})

	answer, err := s.generate(ctx, prompt, chatTemperature)
	if err != nil {
		return nil, fmt.Errorf("failed to chat: %w", err)
	}
	return &ChatResponse{
		Message:          answer,
		ReferencedEmails: referencedEmails(answer, req.EmailContext),
		SuggestedActions: []string{},
	}, nil
}

func referencedEmails(answer string, emails []mail.Email) []string {
	lower := strings.ToLower(answer)
	refs := []string{}
	for _, e := range emails {
		if len(refs) == chatReferenceLimit {
			break
		}
		subject := strings.ToLower(strings.TrimSpace(e.Subject))
		if (e.ID != "" && strings.Contains(answer, e.ID)) || (subject != "" && strings.Contains(lower, subject)) {
			refs = append(refs, e.ID)
		}
	}
	return refs
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(strings.ToLower(s))
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
