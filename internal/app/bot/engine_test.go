package bot

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/developer5167/chatspotWebservices/internal/app/reply"
	"github.com/developer5167/chatspotWebservices/internal/domain/profile"
	"github.com/developer5167/chatspotWebservices/internal/infra/clock"
)

type emitted struct {
	kind string // "typing_on", "typing_off", "message"
	chat string
	text string
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []emitted
}

func (r *recordingEmitter) TypingOn(chatID, senderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, emitted{kind: "typing_on", chat: chatID})
}

func (r *recordingEmitter) TypingOff(chatID, senderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, emitted{kind: "typing_off", chat: chatID})
}

func (r *recordingEmitter) Message(m Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, emitted{kind: "message", chat: m.ChatID, text: m.Text})
}

func (r *recordingEmitter) all() []emitted {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]emitted, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recordingEmitter) messages() []string {
	var out []string
	for _, e := range r.all() {
		if e.kind == "message" {
			out = append(out, e.text)
		}
	}
	return out
}

type stubReplier struct {
	mu    sync.Mutex
	calls int
	text  string
}

func (s *stubReplier) Reply(ctx context.Context, req *reply.Request) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.text, true
}

func botProfile() *profile.Profile {
	return &profile.Profile{
		ID:          "virtual_riya",
		DisplayName: "Riya",
		Gender:      "female",
		Persona:     "friendly",
	}
}

func testEngine(t *testing.T, budget int, onEnd func(chatID, userID string)) (*Engine, *recordingEmitter, *stubReplier, *clock.Fake) {
	t.Helper()
	fc := clock.NewFake(time.Unix(1000, 0))
	em := &recordingEmitter{}
	rep := &stubReplier{text: "nice"}
	cfg := Config{
		MessageBudget: budget,
		HistoryTurns:  4,
		IdleMin:       time.Hour,
		IdleMax:       time.Hour,
		TypingMax:     time.Second,
		GraceDelay:    500 * time.Millisecond,
	}
	e := NewEngine(cfg, rep, em, fc, rand.New(rand.NewSource(1)), onEnd)
	return e, em, rep, fc
}

// settle fires any pending typing bracket (delay cap plus the occasional
// extra pause).
func settle(fc *clock.Fake) {
	fc.Advance(5 * time.Second)
}

func TestStartSessionGreets(t *testing.T) {
	e, em, _, fc := testEngine(t, 20, nil)
	s := e.StartSession("chat1", "user1", botProfile())

	assert.Equal(t, StateConversing, s.State())
	assert.True(t, e.IsBotChat("chat1"))

	settle(fc)

	events := em.all()
	require.Len(t, events, 3)
	assert.Equal(t, "typing_on", events[0].kind)
	assert.Equal(t, "typing_off", events[1].kind)
	assert.Equal(t, "message", events[2].kind)
	assert.Contains(t, greetings, events[2].text)
	assert.Equal(t, 1, s.MessageCount())
}

func TestHandleUserMessageEmitsOneReply(t *testing.T) {
	e, em, rep, fc := testEngine(t, 20, nil)
	e.StartSession("chat1", "user1", botProfile())
	settle(fc)

	e.HandleUserMessage(context.Background(), "chat1", "hello")
	settle(fc)

	msgs := em.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "nice", msgs[1])
	assert.Equal(t, 1, rep.calls)
}

func TestUnknownChatIgnored(t *testing.T) {
	e, em, rep, _ := testEngine(t, 20, nil)
	e.HandleUserMessage(context.Background(), "nope", "hello")
	assert.Empty(t, em.all())
	assert.Zero(t, rep.calls)
}

func TestIdleNudge(t *testing.T) {
	e, em, _, fc := testEngine(t, 20, nil)

	// Tight idle window so the nudge is reachable.
	e.cfg.IdleMin = 10 * time.Second
	e.cfg.IdleMax = 10 * time.Second

	s := e.StartSession("chat1", "user1", botProfile())
	settle(fc)
	require.Equal(t, 1, s.MessageCount())

	// User stays silent past the idle window; the nudge goes through the
	// usual typing bracket.
	fc.Advance(10 * time.Second)
	settle(fc)

	msgs := em.messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, idleNudges, msgs[1])
	assert.Equal(t, 2, s.MessageCount(), "nudges count toward the budget")
}

func TestInboundCancelsIdleTimer(t *testing.T) {
	e, em, _, fc := testEngine(t, 20, nil)
	e.cfg.IdleMin = 10 * time.Second
	e.cfg.IdleMax = 10 * time.Second

	e.StartSession("chat1", "user1", botProfile())
	settle(fc)

	// A message before the window elapses replaces the idle timer, so no
	// nudge fires.
	fc.Advance(4 * time.Second)
	e.HandleUserMessage(context.Background(), "chat1", "hello")
	settle(fc)

	msgs := em.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "nice", msgs[1])
}

func TestBudgetTriggersClosing(t *testing.T) {
	var endedChat, endedUser string
	e, em, _, fc := testEngine(t, 2, func(chatID, userID string) {
		endedChat, endedUser = chatID, userID
	})

	s := e.StartSession("chat1", "user1", botProfile())
	settle(fc) // greeting = message 1

	e.HandleUserMessage(context.Background(), "chat1", "hello")
	settle(fc) // reply = message 2, budget reached

	msgs := em.messages()
	require.Len(t, msgs, 3)
	assert.Contains(t, closings, msgs[2], "closing line follows the budget message")
	assert.Equal(t, StateEnded, s.State())

	// No typing bracket after the closing line.
	events := em.all()
	assert.Equal(t, "message", events[len(events)-1].kind)

	// Release happens after the grace delay.
	assert.True(t, e.IsBotChat("chat1"))
	fc.Advance(time.Second)
	assert.False(t, e.IsBotChat("chat1"))
	assert.Equal(t, "chat1", endedChat)
	assert.Equal(t, "user1", endedUser)

	// Nothing more is emitted for a finished session.
	e.HandleUserMessage(context.Background(), "chat1", "anyone?")
	settle(fc)
	assert.Len(t, em.messages(), 3)
}

func TestClosingSentExactlyOnce(t *testing.T) {
	e, em, _, fc := testEngine(t, 1, nil)

	e.StartSession("chat1", "user1", botProfile())
	settle(fc) // greeting hits the budget immediately

	msgs := em.messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, closings, msgs[1])

	fc.Advance(time.Minute)
	assert.Len(t, em.messages(), 2)
}

func TestEndSessionSuppressesPendingSend(t *testing.T) {
	e, em, _, fc := testEngine(t, 20, nil)
	e.StartSession("chat1", "user1", botProfile())

	// Greeting bracket is open but the message has not been delivered.
	e.EndSession("chat1")
	settle(fc)

	assert.Empty(t, em.messages())
	assert.False(t, e.IsBotChat("chat1"))

	// Idempotent.
	e.EndSession("chat1")
}

func TestRepliesAreSerialized(t *testing.T) {
	e, em, _, fc := testEngine(t, 20, nil)
	e.StartSession("chat1", "user1", botProfile())
	settle(fc)

	e.HandleUserMessage(context.Background(), "chat1", "one")
	e.HandleUserMessage(context.Background(), "chat1", "two")
	settle(fc)
	settle(fc)

	// Both replies arrive, each in its own typing bracket.
	msgs := em.messages()
	require.Len(t, msgs, 3)

	var brackets int
	for _, ev := range em.all() {
		if ev.kind == "typing_on" {
			brackets++
		}
	}
	assert.Equal(t, 3, brackets)
}
