package reply

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/developer5167/chatspotWebservices/internal/infra/ollama"
)

type GenerativeProviderConfig struct {
	// MaxHistory caps the recent turns forwarded to the model. Small on
	// purpose; the backend model is tuned for speed, not context.
	MaxHistory int `mapstructure:"max_history" default:"2" validate:"gte=0"`
}

// GenerativeProvider produces free-form replies through the chat backend.
// Backend errors are returned to the chain, which falls through to the
// fixed fallback provider.
type GenerativeProvider struct {
	backend ChatBackend
	config  *GenerativeProviderConfig
}

// NewGenerativeProvider creates a new GenerativeProvider.
func NewGenerativeProvider(backend ChatBackend, settings map[string]any) (*GenerativeProvider, error) {
	if backend == nil {
		return nil, errors.New("chat backend is required")
	}

	var config GenerativeProviderConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}
	return &GenerativeProvider{backend: backend, config: &config}, nil
}

// Reply asks the backend for a free-form reply in the profile's voice.
func (p *GenerativeProvider) Reply(ctx context.Context, req *Request) (string, bool, error) {
	messages := make([]ollama.Message, 0, p.config.MaxHistory+2)
	messages = append(messages, ollama.Message{
		Role:    "system",
		Content: p.systemPrompt(req),
	})

	history := req.History
	if len(history) > p.config.MaxHistory {
		history = history[len(history)-p.config.MaxHistory:]
	}
	messages = append(messages, history...)
	messages = append(messages, ollama.Message{Role: "user", Content: req.Text})

	text, err := p.backend.Chat(ctx, messages)
	if err != nil {
		return "", false, errors.Wrap(err, "chat backend failed")
	}
	return text, true, nil
}

// Name returns the provider name.
func (p *GenerativeProvider) Name() string {
	return "generative"
}

// systemPrompt builds the persona instructions for the model.
func (p *GenerativeProvider) systemPrompt(req *Request) string {
	name := "Riya"
	persona := "friendly"
	if req.Profile != nil {
		if req.Profile.DisplayName != "" {
			name = req.Profile.DisplayName
		}
		if req.Profile.Persona != "" {
			persona = req.Profile.Persona
		}
	}
	return fmt.Sprintf(`You are %s, an ordinary person chatting casually in a random chat app. Your style is %s.

RULES (follow strictly):
- Never say you are an AI, assistant, program, or virtual being.
- Never mention technology, data, training, or language models.
- Replies must be short (under 12 words) and sound human, not robotic.
- Use everyday texting style: "ya", "lol", "haha".
- Match the user's mood but stay brief.
- Never give or ask for phone numbers, addresses, social media, or personal details.
- If the user asks personal stuff, gently deflect, e.g. "haha not something I share here".
- Stay polite, light, and natural; talk like you would with a stranger online.
- Never lecture, never explain rules, never say you can't or aren't allowed.`, name, persona)
}
