// Package session provides the session manager orchestrating matchmaking,
// escalation, chat relay and the bot engine.
package session

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/cockroachdb/errors"

	"github.com/developer5167/chatspotWebservices/internal/app/alert"
	"github.com/developer5167/chatspotWebservices/internal/app/bot"
	"github.com/developer5167/chatspotWebservices/internal/app/chat"
	"github.com/developer5167/chatspotWebservices/internal/app/fleet"
	"github.com/developer5167/chatspotWebservices/internal/app/guard"
	"github.com/developer5167/chatspotWebservices/internal/app/matchmaking"
	"github.com/developer5167/chatspotWebservices/internal/app/presence"
	"github.com/developer5167/chatspotWebservices/internal/app/registry"
	"github.com/developer5167/chatspotWebservices/internal/app/reply"
	"github.com/developer5167/chatspotWebservices/internal/domain/profile"
	"github.com/developer5167/chatspotWebservices/internal/domain/user"
	"github.com/developer5167/chatspotWebservices/internal/infra/clock"
	"github.com/developer5167/chatspotWebservices/internal/infra/config"
)

// Outbound event names.
const (
	EventWaiting           = "waiting"
	EventPair              = "pair"
	EventTimeout           = "timeout"
	EventError             = "error"
	EventMessage           = "message"
	EventTyping            = "typingMessage"
	EventTypingOff         = "typingMessageOff"
	EventWelcome           = "welcomeNote"
	EventPeerLeft          = "leftChatRoomMessage"
	EventClosedApp         = "closedApp"
	EventPreferenceUpdated = "preferenceUpdated"
	EventBlocked           = "message_blocked"
	EventChatEnded         = "chatEnded"
)

// PairPayload is the outbound pair event payload. Bot pairs carry the
// chat id; human pairs establish it out of band when both sides join.
type PairPayload struct {
	ID     string `json:"id"`
	Gender string `json:"gender"`
	Name   string `json:"name,omitempty"`
	ChatID string `json:"chatId,omitempty"`
	IsBot  bool   `json:"isBot,omitempty"`
}

// ChatMessage is one relayed chat message.
type ChatMessage struct {
	ChatID   string `json:"chatId"`
	SenderID string `json:"senderId"`
	Name     string `json:"name,omitempty"`
	IsBot    bool   `json:"isBot,omitempty"`
	Message  string `json:"message"`
}

// TypingPayload is the typing indicator payload.
type TypingPayload struct {
	SenderID string `json:"senderId,omitempty"`
	Status   bool   `json:"status"`
}

// Manager owns the matchmaking critical section and wires the queue,
// scheduler, fleet, bot engine, rooms, presence and alerts together.
type Manager struct {
	config *config.Config
	clk    clock.Clock

	reg       *registry.Registry
	queue     *matchmaking.Queue
	scheduler *matchmaking.Scheduler
	fleet     *fleet.Simulator
	bots      *bot.Engine
	rooms     *chat.Rooms
	presence  *presence.Reporter
	alerts    *alert.Manager
	guards    *guard.Chain

	// mu guards matchmaking decisions: first-fit scans, removals and the
	// 1:1 timer invariant all happen under one critical section.
	mu      sync.Mutex
	lastBot map[string]string // user id -> last escalated profile id

	// botMu guards the bot chat index. Never held across engine calls.
	botMu     sync.Mutex
	botChats  map[string]string // chat id -> user id
	botByUser map[string]string // user id -> chat id
}

// NewManager creates the session manager and its collaborators. Each
// randomized component gets its own source seeded from rng: the fleet
// tick, bot replies and escalations run on different goroutines, and a
// Rand shared across their unrelated locks would race.
func NewManager(cfg *config.Config, pool *profile.Pool, backend reply.ChatBackend, notifier alert.Notifier, clk clock.Clock, rng *rand.Rand) (*Manager, error) {
	split := func() *rand.Rand { return rand.New(rand.NewSource(rng.Int63())) }

	chain, err := reply.NewChainFromConfig(cfg, backend, split())
	if err != nil {
		return nil, errors.Wrap(err, "failed to create reply chain")
	}

	reg := registry.New()
	queue := matchmaking.NewQueue()

	m := &Manager{
		config:    cfg,
		clk:       clk,
		reg:       reg,
		queue:     queue,
		scheduler: matchmaking.NewScheduler(clk),
		rooms:     chat.NewRooms(),
		guards:    guard.NewChain(guard.NewLinkGuard()),
		lastBot:   make(map[string]string),
		botChats:  make(map[string]string),
		botByUser: make(map[string]string),
	}

	m.presence = presence.NewReporter(reg, queue, clk, time.Duration(cfg.Presence.TickSec)*time.Second)
	m.alerts = alert.NewManager(notifier, clk, time.Duration(cfg.Alert.CooldownSec)*time.Second)

	m.fleet = fleet.New(fleet.Config{
		MinCount:     cfg.Fleet.MinCount,
		MaxCount:     cfg.Fleet.MaxCount,
		Tick:         time.Duration(cfg.Fleet.TickSec) * time.Second,
		PadCooldown:  time.Duration(cfg.Fleet.PadCooldownSec) * time.Second,
		PickCooldown: time.Duration(cfg.Fleet.PickCooldownSec) * time.Second,
	}, queue, pool, clk, split(), m.presence.Broadcast)

	for _, g := range m.guards.Guards() {
		zlog.Info().Msgf("registered message guard: name=%s codes=%s", g.Name(), strings.Join(g.ReturnCodes(), ","))
	}

	m.bots = bot.NewEngine(bot.Config{
		MessageBudget: cfg.Bot.MessageBudget,
		HistoryTurns:  cfg.Bot.HistoryTurns,
		IdleMin:       time.Duration(cfg.Bot.IdleMinSec) * time.Second,
		IdleMax:       time.Duration(cfg.Bot.IdleMaxSec) * time.Second,
		TypingMax:     time.Duration(cfg.Bot.TypingMaxMs) * time.Millisecond,
		GraceDelay:    time.Duration(cfg.Bot.GraceDelayMs) * time.Millisecond,
	}, chain, m, clk, split(), m.onBotEnd)

	return m, nil
}

// Registry returns the connection registry.
func (m *Manager) Registry() *registry.Registry {
	return m.reg
}

// Start begins the fleet and presence loops.
func (m *Manager) Start() {
	m.fleet.Start()
	m.presence.Start()
	zlog.Info().Msg("session manager started")
}

// Stop halts timers and loops. Connections are closed by the transport.
func (m *Manager) Stop() {
	m.fleet.Stop()
	m.presence.Stop()
	m.scheduler.CancelAll()
	zlog.Info().Msg("session manager stopped")
}

// EnqueueOrMatch handles a pairing request: match against the oldest
// compatible human, or queue with an eviction timer.
func (m *Manager) EnqueueOrMatch(connID, id, gender, interestedIn string) {
	conn, ok := m.reg.Get(connID)
	if !ok {
		return
	}
	if err := m.reg.Identify(connID, user.NewEntry(id, gender, interestedIn)); err != nil {
		zlog.Warn().Msgf("identify failed: conn=%s user=%s error=%v", connID, id, err)
		return
	}
	zlog.Info().Msgf("ready to pair: user=%s gender=%s interest=%s", id, gender, interestedIn)

	m.mu.Lock()
	if m.queue.Contains(id) {
		m.mu.Unlock()
		_ = conn.Sink.Send(EventWaiting, m.config.Messages.AlreadyQueued)
		return
	}

	if match, found := m.queue.FindMatch(gender, interestedIn, m.config.Matchmaking.MaxQueueScan); found {
		m.queue.Remove(match.ID)
		m.scheduler.Cancel(match.ID)
		m.mu.Unlock()

		conn.SetState(user.StatePaired)
		_ = conn.Sink.Send(EventPair, PairPayload{ID: match.ID, Gender: match.Gender})
		if peer, ok := m.reg.GetByUser(match.ID); ok {
			peer.SetState(user.StatePaired)
			_ = peer.Sink.Send(EventPair, PairPayload{ID: id, Gender: gender})
		}
		zlog.Info().Msgf("matched: user=%s peer=%s", id, match.ID)
		m.presence.Broadcast()
		return
	}

	wasEmpty := m.queue.HumanCount() == 0
	if err := m.queue.Add(&matchmaking.Entry{
		ID:           id,
		Gender:       gender,
		InterestedIn: interestedIn,
		Kind:         matchmaking.KindHuman,
		EnqueuedAt:   m.clk.Now(),
	}); err != nil {
		m.mu.Unlock()
		_ = conn.Sink.Send(EventWaiting, m.config.Messages.AlreadyQueued)
		return
	}
	conn.SetState(user.StateWaiting)
	m.scheduler.Arm(id, time.Duration(m.config.Matchmaking.WaitWindowSec)*time.Second, m.escalate)
	m.mu.Unlock()

	_ = conn.Sink.Send(EventWaiting, m.config.Messages.Waiting)
	zlog.Info().Msgf("queued: user=%s humans_waiting=%d", id, m.queue.HumanCount())

	if wasEmpty {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			m.alerts.UserWaiting(ctx)
		}()
	}
	m.presence.Broadcast()
}

// escalate runs when a waiting human's eviction timer fires: hand the
// entry to a bot, or evict with a timeout notice when the fleet is empty.
func (m *Manager) escalate(id string) {
	m.mu.Lock()
	if _, ok := m.queue.Get(id); !ok {
		// Already matched or removed; the completed removal wins.
		m.mu.Unlock()
		return
	}

	prof := m.fleet.PickForEscalation(m.lastBot[id])
	if prof == nil {
		m.queue.Remove(id)
		m.mu.Unlock()

		if conn, ok := m.reg.GetByUser(id); ok {
			conn.SetState(user.StateIdle)
			_ = conn.Sink.Send(EventTimeout, m.config.Messages.Timeout)
		}
		zlog.Info().Msgf("eviction timeout, no virtual available: user=%s", id)
		m.presence.Broadcast()
		return
	}

	m.queue.Remove(id)
	m.lastBot[id] = prof.ID
	m.mu.Unlock()

	chatID := uuid.New().String()
	m.botMu.Lock()
	m.botChats[chatID] = id
	m.botByUser[id] = chatID
	m.botMu.Unlock()

	if conn, ok := m.reg.GetByUser(id); ok {
		conn.SetState(user.StateInBotSession)
		_ = conn.Sink.Send(EventPair, PairPayload{
			ID:     prof.ID,
			Gender: prof.Gender,
			Name:   prof.DisplayName,
			ChatID: chatID,
			IsBot:  true,
		})
	}
	zlog.Info().Msgf("bot pair: user=%s bot=%s chat=%s", id, prof.ID, chatID)

	m.bots.StartSession(chatID, id, prof)
	m.presence.Broadcast()
}

// ChangePreference drops any waiting entry for the user; the client must
// re-enqueue with the new preference.
func (m *Manager) ChangePreference(connID, id, newInterestedIn string) {
	m.mu.Lock()
	removed := m.queue.Remove(id)
	m.scheduler.Cancel(id)
	m.mu.Unlock()

	if conn, ok := m.reg.Get(connID); ok {
		if e := conn.Entry(); e != nil {
			e.InterestedIn = newInterestedIn
		}
		conn.SetState(user.StateIdle)
		_ = conn.Sink.Send(EventPreferenceUpdated, m.config.Messages.Rejoin)
	}
	zlog.Info().Msgf("preference changed: user=%s interest=%s removed_from_queue=%v", id, newInterestedIn, removed)

	if removed {
		m.presence.Broadcast()
	}
}

// Join adds the connection to a chat room and greets the peer.
func (m *Manager) Join(connID, chatID string) {
	conn, ok := m.reg.Get(connID)
	if !ok {
		return
	}
	m.rooms.Join(chatID, connID, conn.Sink)
	m.rooms.Relay(chatID, connID, EventWelcome, m.config.Messages.Welcome)
}

// SendMessage relays a chat message to the room, or feeds the bot engine
// for bot chats. Blocked messages bounce back to the sender only.
func (m *Manager) SendMessage(connID string, msg ChatMessage) {
	if res := m.guards.Check(context.Background(), msg.SenderID, msg.Message); !res.Accepted {
		if conn, ok := m.reg.Get(connID); ok {
			_ = conn.Sink.Send(EventBlocked, m.config.Messages.Blocked)
		}
		zlog.Info().Msgf("message blocked: chat=%s sender=%s code=%s", msg.ChatID, msg.SenderID, res.Code)
		return
	}

	if m.bots.IsBotChat(msg.ChatID) {
		// Echo to the human side so both directions render from the
		// server, then let the bot reply off this goroutine.
		m.sendToBotPeer(msg.ChatID, EventMessage, msg)
		if !msg.IsBot {
			go m.bots.HandleUserMessage(context.Background(), msg.ChatID, msg.Message)
		}
		return
	}

	if !m.rooms.Contains(msg.ChatID, connID) {
		zlog.Debug().Msgf("dropping message from non-member: chat=%s conn=%s", msg.ChatID, connID)
		return
	}
	m.rooms.Relay(msg.ChatID, connID, EventMessage, msg)
}

// Typing relays a typing indicator to the room.
func (m *Manager) Typing(connID, chatID, senderID string, on bool) {
	event := EventTyping
	if !on {
		event = EventTypingOff
	}
	if m.bots.IsBotChat(chatID) {
		return
	}
	m.rooms.Relay(chatID, connID, event, TypingPayload{SenderID: senderID, Status: on})
}

// Signal relays an opaque call-signaling payload to the room peers.
func (m *Manager) Signal(connID, chatID, event string, payload any) {
	m.rooms.Relay(chatID, connID, event, payload)
}

// LeftChat handles a user leaving a chat room.
func (m *Manager) LeftChat(connID, chatID string) {
	if m.endBotChat(chatID) {
		return
	}
	m.rooms.Relay(chatID, connID, EventPeerLeft, m.config.Messages.PeerLeft)
	m.rooms.Leave(chatID, connID)
}

// ClosedApp handles a user closing the app mid-chat. The whole room is
// notified; the closer's own socket is already gone.
func (m *Manager) ClosedApp(connID, chatID string) {
	if m.endBotChat(chatID) {
		return
	}
	m.rooms.Send(chatID, EventClosedApp, m.config.Messages.PeerClosed)
	m.rooms.Leave(chatID, connID)
	m.presence.Broadcast()
}

// RemoveOnDisconnect cleans up everything owned by a dropped connection:
// waiting entry, eviction timer, bot session and room memberships.
// Idempotent.
func (m *Manager) RemoveOnDisconnect(connID string) {
	entry := m.reg.Unregister(connID)
	m.rooms.LeaveAll(connID)
	if entry == nil {
		return
	}

	m.mu.Lock()
	m.queue.Remove(entry.ID)
	m.scheduler.Cancel(entry.ID)
	m.mu.Unlock()

	m.botMu.Lock()
	chatID, ok := m.botByUser[entry.ID]
	if ok {
		delete(m.botByUser, entry.ID)
		delete(m.botChats, chatID)
	}
	m.botMu.Unlock()
	if ok {
		m.bots.EndSession(chatID)
	}

	zlog.Info().Msgf("disconnected: user=%s", entry.ID)
	m.presence.Broadcast()
}

// BroadcastCounts pushes a fresh presence snapshot to everyone.
func (m *Manager) BroadcastCounts() {
	m.presence.Broadcast()
}

// endBotChat tears down the bot session for the chat id, if one exists.
func (m *Manager) endBotChat(chatID string) bool {
	m.botMu.Lock()
	userID, ok := m.botChats[chatID]
	if ok {
		delete(m.botChats, chatID)
		delete(m.botByUser, userID)
	}
	m.botMu.Unlock()
	if !ok {
		return false
	}

	m.bots.EndSession(chatID)
	if conn, found := m.reg.GetByUser(userID); found {
		conn.SetState(user.StateIdle)
	}
	return true
}

// onBotEnd runs after the bot closed the session itself and the grace
// delay elapsed.
func (m *Manager) onBotEnd(chatID, userID string) {
	m.botMu.Lock()
	delete(m.botChats, chatID)
	delete(m.botByUser, userID)
	m.botMu.Unlock()

	m.rooms.Close(chatID)
	if conn, ok := m.reg.GetByUser(userID); ok {
		conn.SetState(user.StateIdle)
		_ = conn.Sink.Send(EventChatEnded, m.config.Messages.ChatEnded)
	}
}

// sendToBotPeer delivers an event to the human side of a bot chat.
func (m *Manager) sendToBotPeer(chatID, event string, payload any) {
	m.botMu.Lock()
	userID, ok := m.botChats[chatID]
	m.botMu.Unlock()
	if !ok {
		return
	}
	if conn, found := m.reg.GetByUser(userID); found {
		_ = conn.Sink.Send(event, payload)
	}
}

// TypingOn implements bot.Emitter.
func (m *Manager) TypingOn(chatID, senderID string) {
	m.sendToBotPeer(chatID, EventTyping, TypingPayload{SenderID: senderID, Status: true})
}

// TypingOff implements bot.Emitter.
func (m *Manager) TypingOff(chatID, senderID string) {
	m.sendToBotPeer(chatID, EventTypingOff, TypingPayload{SenderID: senderID, Status: false})
}

// Message implements bot.Emitter.
func (m *Manager) Message(bm bot.Message) {
	m.sendToBotPeer(bm.ChatID, EventMessage, ChatMessage{
		ChatID:   bm.ChatID,
		SenderID: bm.SenderID,
		Name:     bm.Name,
		IsBot:    true,
		Message:  bm.Text,
	})
}
