// Package bot drives synthetic chat partners: one state machine per
// escalated session, with simulated typing and an idle follow-up loop.
package bot

import (
	"context"
	"math/rand"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/developer5167/chatspotWebservices/internal/app/reply"
	"github.com/developer5167/chatspotWebservices/internal/domain/profile"
	"github.com/developer5167/chatspotWebservices/internal/infra/clock"
	"github.com/developer5167/chatspotWebservices/internal/infra/ollama"
)

var (
	greetings  = []string{"hi", "hey", "hello", "yo"}
	idleNudges = []string{"u there?", "haha quiet", "still here?", "tell me more"}
	closings   = []string{"nice chatting", "see you", "bye"}
)

// Message is one outbound bot chat message.
type Message struct {
	ChatID   string
	SenderID string
	Name     string
	IsBot    bool
	Text     string
}

// Emitter delivers bot events to the human side of a chat.
type Emitter interface {
	TypingOn(chatID, senderID string)
	TypingOff(chatID, senderID string)
	Message(m Message)
}

// Replier produces one reply for a user utterance.
type Replier interface {
	Reply(ctx context.Context, req *reply.Request) (string, bool)
}

// Config represents bot engine configuration.
type Config struct {
	MessageBudget int
	HistoryTurns  int
	IdleMin       time.Duration
	IdleMax       time.Duration
	TypingMax     time.Duration
	GraceDelay    time.Duration
}

// Session is one bot conversation bound to a chat id.
type Session struct {
	ChatID  string
	UserID  string
	Profile *profile.Profile

	mu           sync.Mutex
	state        State
	messageCount int
	history      []ollama.Message
	outbox       []string
	sending      bool
	idleTimer    clock.Timer
	sendTimer    clock.Timer
}

// State returns the current conversation state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// MessageCount returns the number of messages the bot has emitted.
func (s *Session) MessageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messageCount
}

// Engine manages all live bot sessions.
type Engine struct {
	cfg     Config
	replier Replier
	emitter Emitter
	clk     clock.Clock

	rmu sync.Mutex
	rng *rand.Rand

	mu       sync.Mutex
	sessions map[string]*Session

	// Called after the grace delay once a session closed itself.
	onEnd func(chatID, userID string)
}

// NewEngine creates a bot engine. The random source is injected so tests
// can seed it; onEnd may be nil.
func NewEngine(cfg Config, replier Replier, emitter Emitter, clk clock.Clock, rng *rand.Rand, onEnd func(chatID, userID string)) *Engine {
	return &Engine{
		cfg:      cfg,
		replier:  replier,
		emitter:  emitter,
		clk:      clk,
		rng:      rng,
		sessions: make(map[string]*Session),
		onEnd:    onEnd,
	}
}

// StartSession creates a session for the chat, sends the greeting and
// enters the conversing state.
func (e *Engine) StartSession(chatID, userID string, prof *profile.Profile) *Session {
	s := &Session{
		ChatID:  chatID,
		UserID:  userID,
		Profile: prof,
		state:   StateGreeting,
	}

	e.mu.Lock()
	e.sessions[chatID] = s
	e.mu.Unlock()

	zlog.Info().Msgf("bot session started: chat=%s user=%s bot=%s persona=%s",
		chatID, userID, prof.ID, prof.Persona)

	s.mu.Lock()
	e.enqueueLocked(s, e.pickLine(greetings))
	s.state = StateConversing
	e.armIdleLocked(s)
	s.mu.Unlock()
	return s
}

// HandleUserMessage processes one inbound user message and emits exactly
// one reply. The reply chain call is the only blocking step; callers may
// run it off their event loop.
func (e *Engine) HandleUserMessage(ctx context.Context, chatID, text string) {
	e.mu.Lock()
	s := e.sessions[chatID]
	e.mu.Unlock()
	if s == nil {
		return
	}

	s.mu.Lock()
	if s.state != StateConversing {
		s.mu.Unlock()
		return
	}
	e.cancelIdleLocked(s)

	history := make([]ollama.Message, len(s.history))
	copy(history, s.history)
	s.history = appendTurn(s.history, ollama.Message{Role: "user", Content: text}, e.cfg.HistoryTurns)
	prof := s.Profile
	s.mu.Unlock()

	replyText, ok := e.replier.Reply(ctx, &reply.Request{
		Text:    text,
		Profile: prof,
		History: history,
	})
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConversing {
		return
	}
	e.enqueueLocked(s, replyText)
	e.armIdleLocked(s)
}

// EndSession terminates the session without further emissions. Used when
// the human leaves or disconnects. Idempotent.
func (e *Engine) EndSession(chatID string) {
	e.mu.Lock()
	s := e.sessions[chatID]
	delete(e.sessions, chatID)
	e.mu.Unlock()
	if s == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateEnded
	e.cancelIdleLocked(s)
	if s.sendTimer != nil {
		s.sendTimer.Stop()
		s.sendTimer = nil
	}
	zlog.Info().Msgf("bot session ended: chat=%s messages=%d", chatID, s.messageCount)
}

// IsBotChat reports whether the chat id belongs to a live bot session.
func (e *Engine) IsBotChat(chatID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.sessions[chatID]
	return ok
}

// Session returns the live session for the chat id.
func (e *Engine) Session(chatID string) (*Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[chatID]
	return s, ok
}

// Count returns the number of live sessions.
func (e *Engine) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

// enqueueLocked queues one outbound line. Sends are serialized per
// session so typing brackets never overlap.
func (e *Engine) enqueueLocked(s *Session, text string) {
	s.outbox = append(s.outbox, text)
	if !s.sending {
		e.dispatchLocked(s)
	}
}

// dispatchLocked opens the typing bracket for the next queued line.
func (e *Engine) dispatchLocked(s *Session) {
	if len(s.outbox) == 0 {
		s.sending = false
		return
	}
	text := s.outbox[0]
	s.outbox = s.outbox[1:]
	s.sending = true

	e.emitter.TypingOn(s.ChatID, s.Profile.ID)
	s.sendTimer = e.clk.AfterFunc(e.typingDelay(text), func() {
		e.deliver(s, text)
	})
}

// deliver closes the typing bracket and emits the message. Runs the
// budget check: reaching the limit sends the closing line exactly once.
func (e *Engine) deliver(s *Session, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateEnded {
		return
	}

	e.emitter.TypingOff(s.ChatID, s.Profile.ID)
	e.emitter.Message(Message{
		ChatID:   s.ChatID,
		SenderID: s.Profile.ID,
		Name:     s.Profile.DisplayName,
		IsBot:    true,
		Text:     text,
	})
	s.messageCount++
	s.history = appendTurn(s.history, ollama.Message{Role: "assistant", Content: text}, e.cfg.HistoryTurns)

	if s.state == StateConversing && s.messageCount >= e.cfg.MessageBudget {
		e.closeLocked(s)
		return
	}

	s.sending = false
	if len(s.outbox) > 0 {
		e.dispatchLocked(s)
	}
	e.armIdleLocked(s)
}

// closeLocked exhausts the session: closing line, terminal state, and a
// delayed release so the client can render the goodbye.
func (e *Engine) closeLocked(s *Session) {
	s.state = StateClosing
	e.cancelIdleLocked(s)
	s.outbox = nil

	e.emitter.Message(Message{
		ChatID:   s.ChatID,
		SenderID: s.Profile.ID,
		Name:     s.Profile.DisplayName,
		IsBot:    true,
		Text:     e.pickLine(closings),
	})
	s.state = StateEnded

	chatID, userID := s.ChatID, s.UserID
	e.clk.AfterFunc(e.cfg.GraceDelay, func() {
		e.mu.Lock()
		delete(e.sessions, chatID)
		e.mu.Unlock()
		if e.onEnd != nil {
			e.onEnd(chatID, userID)
		}
	})
	zlog.Info().Msgf("bot session closing: chat=%s messages=%d", s.ChatID, s.messageCount)
}

// armIdleLocked schedules the "are you there" nudge, replacing any
// pending one. At most one idle timer is live per session.
func (e *Engine) armIdleLocked(s *Session) {
	if s.state != StateConversing {
		return
	}
	e.cancelIdleLocked(s)

	d := e.cfg.IdleMin
	if span := e.cfg.IdleMax - e.cfg.IdleMin; span > 0 {
		d += time.Duration(e.intn(int(span)))
	}
	s.idleTimer = e.clk.AfterFunc(d, func() {
		e.idleFire(s)
	})
}

func (e *Engine) cancelIdleLocked(s *Session) {
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
}

// idleFire sends a nudge when the user has gone quiet. Counts toward the
// message budget like any other bot message.
func (e *Engine) idleFire(s *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConversing {
		return
	}
	e.enqueueLocked(s, e.pickLine(idleNudges))
}

// typingDelay scales with reply length so long messages "take longer to
// type", with a hard cap and an occasional extra pause.
func (e *Engine) typingDelay(text string) time.Duration {
	d := time.Duration(len(text))*60*time.Millisecond +
		300*time.Millisecond +
		time.Duration(e.intn(500))*time.Millisecond
	if e.cfg.TypingMax > 0 && d > e.cfg.TypingMax {
		d = e.cfg.TypingMax
	}
	if e.float64() < 0.2 {
		d += time.Second + time.Duration(e.intn(1000))*time.Millisecond
	}
	return d
}

func (e *Engine) pickLine(options []string) string {
	return options[e.intn(len(options))]
}

func (e *Engine) intn(n int) int {
	if n <= 0 {
		return 0
	}
	e.rmu.Lock()
	defer e.rmu.Unlock()
	return e.rng.Intn(n)
}

func (e *Engine) float64() float64 {
	e.rmu.Lock()
	defer e.rmu.Unlock()
	return e.rng.Float64()
}

// appendTurn appends a turn to the bounded history.
func appendTurn(history []ollama.Message, m ollama.Message, turns int) []ollama.Message {
	history = append(history, m)
	if limit := turns * 2; limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history
}
