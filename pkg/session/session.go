// Package session maintains ordered multi-turn conversation history and
// assembles bounded prompts for the dispatcher. The system message is held
// apart from the turn history and is always part of the assembled context.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/llamagate-ai/llamagate/pkg/models"
)

// Role identifies the author of a turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation. Sequence numbers are strictly
// increasing within a session and never reused, even after trimming.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Seq       int       `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
}

// State tracks the session lifecycle.
type State int

const (
	Created State = iota
	Active
	Closed
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Active:
		return "active"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrClosed is returned by mutating operations after Close. History reads
// remain available.
var ErrClosed = errors.New("session closed")

// Generator runs one generation call. Satisfied by *dispatch.Dispatcher.
type Generator interface {
	Generate(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error)
}

const defaultTitle = "New Conversation"

// Session is an ordered conversation bound to one model. Exchanges are
// serialized; a Session is safe for concurrent use but processes one
// exchange at a time.
type Session struct {
	mu sync.Mutex

	id      string
	title   string
	model   string
	system  string
	turns   []Turn
	nextSeq int
	state   State

	created time.Time
	updated time.Time

	gen       Generator
	options   map[string]any
	budget    int
	maxTurns  int
	autoTitle bool
}

// Option configures a Session at creation.
type Option func(*Session)

// WithSystemMessage sets the model instruction message. It is retained
// through trimming and always included in assembled context.
func WithSystemMessage(msg string) Option {
	return func(s *Session) { s.system = msg }
}

// WithContextBudget caps the approximate token count of the assembled
// context. The system message does not count against the budget.
func WithContextBudget(tokens int) Option {
	return func(s *Session) { s.budget = tokens }
}

// WithMaxTurns caps the retained history length. Oldest turns are dropped
// once the cap is exceeded.
func WithMaxTurns(n int) Option {
	return func(s *Session) { s.maxTurns = n }
}

// WithOptions sets generation options passed through on every exchange.
func WithOptions(opts map[string]any) Option {
	return func(s *Session) { s.options = opts }
}

// WithAutoTitle controls title generation from the first user message.
func WithAutoTitle(enabled bool) Option {
	return func(s *Session) { s.autoTitle = enabled }
}

// New starts a conversation session against the given model.
func New(gen Generator, model string, opts ...Option) *Session {
	now := time.Now().UTC()
	s := &Session{
		id:        uuid.NewString(),
		title:     defaultTitle,
		model:     model,
		state:     Created,
		created:   now,
		updated:   now,
		gen:       gen,
		budget:    2048,
		maxTurns:  20,
		autoTitle: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) ID() string    { return s.id }
func (s *Session) Model() string { return s.model }

func (s *Session) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// History returns a copy of the retained turns. Available in any state.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// SystemMessage returns the session's system message, if any.
func (s *Session) SystemMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.system
}

// Close ends the session. Further exchanges fail with ErrClosed; history
// stays readable. Closing twice is a no-op.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Closed
	s.updated = time.Now().UTC()
}

// Exchange appends a user turn, assembles the bounded context, runs one
// generation, and appends the assistant turn. Returns the assistant text.
func (s *Session) Exchange(ctx context.Context, userText string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Closed {
		return "", ErrClosed
	}

	s.append(RoleUser, userText)
	if s.autoTitle && s.title == defaultTitle {
		s.title = makeTitle(userText)
	}

	prompt := s.assembleContext() + "\n\nAssistant:"

	res, err := s.gen.Generate(ctx, &models.GenerationRequest{
		Model:   s.model,
		Prompt:  prompt,
		Options: s.options,
	})
	if err != nil {
		return "", err
	}

	s.state = Active
	s.append(RoleAssistant, res.Response)
	s.trim()
	return res.Response, nil
}

// append records a turn with the next sequence number. Caller holds the lock.
func (s *Session) append(role Role, content string) {
	s.turns = append(s.turns, Turn{
		Role:      role,
		Content:   content,
		Seq:       s.nextSeq,
		Timestamp: time.Now().UTC(),
	})
	s.nextSeq++
	s.updated = time.Now().UTC()
}

// trim drops oldest turns past the history cap. Sequence numbers of the
// survivors are untouched.
func (s *Session) trim() {
	if s.maxTurns <= 0 || len(s.turns) <= s.maxTurns {
		return
	}
	s.turns = append([]Turn(nil), s.turns[len(s.turns)-s.maxTurns:]...)
}

// assembleContext builds the "Role: content" prompt body: the system
// message first, then as many trailing turns as fit the token budget,
// oldest dropped first. Caller holds the lock.
func (s *Session) assembleContext() string {
	start := len(s.turns)
	used := 0
	for start > 0 {
		cost := EstimateTokens(s.turns[start-1].Content)
		if s.budget > 0 && used+cost > s.budget {
			break
		}
		used += cost
		start--
	}
	// the newest turn is always included, over budget or not
	if start == len(s.turns) && len(s.turns) > 0 {
		start = len(s.turns) - 1
	}

	var parts []string
	if s.system != "" {
		parts = append(parts, "System: "+s.system)
	}
	for _, t := range s.turns[start:] {
		parts = append(parts, roleLabel(t.Role)+": "+t.Content)
	}
	return strings.Join(parts, "\n\n")
}

// TokenEstimate approximates the token count of the full retained history,
// system message included.
func (s *Session) TokenEstimate() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := EstimateTokens(s.system)
	for _, t := range s.turns {
		total += EstimateTokens(t.Content)
	}
	return total
}

// EstimateTokens approximates tokens as words times 1.3. Rough by design
// of the heuristic; exact counts need the model's tokenizer.
func EstimateTokens(text string) int {
	return int(float64(len(strings.Fields(text))) * 1.3)
}

func roleLabel(r Role) string {
	switch r {
	case RoleSystem:
		return "System"
	case RoleUser:
		return "User"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// makeTitle derives a session title from the first user message.
func makeTitle(firstMessage string) string {
	const maxLen = 50
	title := strings.TrimSpace(firstMessage)
	if len(title) > maxLen {
		title = title[:maxLen-3] + "..."
	}
	if title == "" {
		return defaultTitle
	}
	return strings.ToUpper(title[:1]) + title[1:]
}
