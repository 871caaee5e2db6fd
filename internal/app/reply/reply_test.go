package reply

import (
	"context"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/developer5167/chatspotWebservices/internal/domain/profile"
	"github.com/developer5167/chatspotWebservices/internal/infra/config"
	"github.com/developer5167/chatspotWebservices/internal/infra/ollama"
)

type fakeBackend struct {
	calls atomic.Int32
	reply string
	err   error
}

func (f *fakeBackend) Chat(ctx context.Context, messages []ollama.Message) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func testProfile() *profile.Profile {
	return &profile.Profile{
		ID:          "virtual_riya",
		DisplayName: "Riya",
		Gender:      "female",
		Persona:     "friendly",
		City:        "Bengaluru",
		Profession:  "designer",
		Hobby:       "sketching",
	}
}

func TestDetectIntent(t *testing.T) {
	tests := []struct {
		text string
		want Intent
	}{
		{"hi", IntentGreetingGeneral},
		{"hey there", IntentGreetingGeneral},
		{"good morning!", IntentGreetingTime},
		{"how are you doing", IntentHowAreYou},
		{"so bored today", IntentMoodBored},
		{"thanks a lot", IntentThanks},
		{"what's your name", IntentAskName},
		{"where are you from", IntentAskLocation},
		{"what do you do", IntentAskJob},
		{"any hobby?", IntentAskHobby},
		{"ok", IntentSmalltalkOK},
		{"quantum entanglement is wild", IntentUnknown},
		{"", IntentUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectIntent(tt.text))
		})
	}
}

func TestIsContactRequest(t *testing.T) {
	assert.True(t, IsContactRequest("what's your instagram?"))
	assert.True(t, IsContactRequest("give me your number"))
	assert.True(t, IsContactRequest("do you have whatsapp"))
	assert.False(t, IsContactRequest("how are you"))
	assert.False(t, IsContactRequest("nice weather"))
}

func TestPrivacyProvider(t *testing.T) {
	p, err := NewPrivacyProvider(map[string]any{"deflection": "that's private ya"})
	require.NoError(t, err)

	text, handled, err := p.Reply(context.Background(), &Request{Text: "send me your insta"})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, "that's private ya", text)

	_, handled, err = p.Reply(context.Background(), &Request{Text: "how are you"})
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestPatternProvider(t *testing.T) {
	rng := newLockedRand(rand.New(rand.NewSource(1)))
	p := NewPatternProvider(rng)

	t.Run("fills placeholders from the profile", func(t *testing.T) {
		text, handled, err := p.Reply(context.Background(), &Request{
			Text:    "what's your name?",
			Profile: testProfile(),
		})
		require.NoError(t, err)
		assert.True(t, handled)
		assert.Contains(t, text, "Riya")
	})

	t.Run("unknown intent falls through", func(t *testing.T) {
		_, handled, err := p.Reply(context.Background(), &Request{
			Text:    "quantum entanglement is wild",
			Profile: testProfile(),
		})
		require.NoError(t, err)
		assert.False(t, handled)
	})

	t.Run("unknown persona falls back to friendly", func(t *testing.T) {
		pr := testProfile()
		pr.Persona = "nonexistent"
		text, handled, err := p.Reply(context.Background(), &Request{Text: "hi", Profile: pr})
		require.NoError(t, err)
		assert.True(t, handled)
		assert.NotEmpty(t, text)
	})
}

func TestGenerativeProvider(t *testing.T) {
	backend := &fakeBackend{reply: "haha same here"}
	p, err := NewGenerativeProvider(backend, nil)
	require.NoError(t, err)

	text, handled, err := p.Reply(context.Background(), &Request{
		Text:    "tell me something",
		Profile: testProfile(),
		History: []ollama.Message{
			{Role: "user", Content: "a"},
			{Role: "assistant", Content: "b"},
			{Role: "user", Content: "c"},
			{Role: "assistant", Content: "d"},
		},
	})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, "haha same here", text)
	assert.Equal(t, int32(1), backend.calls.Load())

	t.Run("requires a backend", func(t *testing.T) {
		_, err := NewGenerativeProvider(nil, nil)
		assert.Error(t, err)
	})
}

func TestFallbackProviderAlwaysHandles(t *testing.T) {
	rng := newLockedRand(rand.New(rand.NewSource(1)))
	p := NewFallbackProvider(rng)

	for _, text := range []string{"", "anything", "what is your name", "where u", "love it"} {
		reply, handled, err := p.Reply(context.Background(), &Request{Text: text, Profile: testProfile()})
		require.NoError(t, err)
		assert.True(t, handled)
		assert.NotEmpty(t, reply)
	}
}

func TestChain(t *testing.T) {
	newChain := func(backend ChatBackend) *Chain {
		cfg := &config.Config{}
		cfg.Messages.Deflection = "not something I share here"
		c, err := NewChainFromConfig(cfg, backend, rand.New(rand.NewSource(1)))
		require.NoError(t, err)
		return c
	}

	t.Run("privacy wins without a generative call", func(t *testing.T) {
		backend := &fakeBackend{reply: "model reply"}
		c := newChain(backend)

		text, ok := c.Reply(context.Background(), &Request{
			Text:    "send me your whatsapp number",
			Profile: testProfile(),
		})
		require.True(t, ok)
		assert.Equal(t, "not something I share here", text)
		assert.Equal(t, int32(0), backend.calls.Load())
	})

	t.Run("pattern intent wins without a generative call", func(t *testing.T) {
		backend := &fakeBackend{reply: "model reply"}
		c := newChain(backend)

		text, ok := c.Reply(context.Background(), &Request{Text: "hi", Profile: testProfile()})
		require.True(t, ok)
		assert.NotEmpty(t, text)
		assert.Equal(t, int32(0), backend.calls.Load())
	})

	t.Run("free text goes to the backend", func(t *testing.T) {
		backend := &fakeBackend{reply: "model reply"}
		c := newChain(backend)

		text, ok := c.Reply(context.Background(), &Request{
			Text:    "quantum entanglement is wild",
			Profile: testProfile(),
		})
		require.True(t, ok)
		assert.Equal(t, "model reply", text)
		assert.Equal(t, int32(1), backend.calls.Load())
	})

	t.Run("backend failure degrades to fallback", func(t *testing.T) {
		backend := &fakeBackend{err: assert.AnError}
		c := newChain(backend)

		text, ok := c.Reply(context.Background(), &Request{
			Text:    "quantum entanglement is wild",
			Profile: testProfile(),
		})
		require.True(t, ok)
		assert.NotEmpty(t, text)
		assert.Equal(t, int32(1), backend.calls.Load())
	})
}

func TestNewChainFromConfigRejectsUnknownType(t *testing.T) {
	cfg := &config.Config{}
	cfg.Reply.Providers = []config.ProviderConfig{{Type: "bogus"}}
	_, err := NewChainFromConfig(cfg, &fakeBackend{}, rand.New(rand.NewSource(1)))
	assert.Error(t, err)
}
