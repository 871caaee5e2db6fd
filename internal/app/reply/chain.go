package reply

import (
	"context"

	zlog "github.com/rs/zerolog/log"
)

// Chain consults providers in order and returns the first reply. A
// provider error is logged and treated as unhandled, so a failing
// generative backend degrades to the fixed fallback instead of surfacing
// an error to the user.
type Chain struct {
	providers []Provider
}

// NewChain creates a new provider chain.
func NewChain(providers []Provider) *Chain {
	return &Chain{
		providers: providers,
	}
}

// Reply produces a reply for the request. The chain never fails as long
// as it ends with a provider that always handles; the boolean reports
// whether any provider produced a reply.
func (c *Chain) Reply(ctx context.Context, req *Request) (string, bool) {
	for i, p := range c.providers {
		text, handled, err := p.Reply(ctx, req)
		if err != nil {
			zlog.Warn().Msgf("reply provider failed, trying next: provider=%s error=%v", p.Name(), err)
			continue
		}
		if !handled {
			continue
		}
		zlog.Debug().Msgf("reply produced: provider=%s index=%d total=%d", p.Name(), i+1, len(c.providers))
		return text, true
	}
	return "", false
}

// Name returns the chain name.
func (c *Chain) Name() string {
	return "reply_chain"
}
