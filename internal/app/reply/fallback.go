package reply

import (
	"context"
	"strings"
)

var fallbackReplies = []string{"same here", "lol nice", "cool", "hmm ok"}

// FallbackProvider always handles. It closes every chain so a reply is
// produced even when the generative backend is down.
type FallbackProvider struct {
	rng *lockedRand
}

// NewFallbackProvider creates a new FallbackProvider.
func NewFallbackProvider(rng *lockedRand) *FallbackProvider {
	return &FallbackProvider{rng: rng}
}

// Reply returns a short canned line, keyed on a couple of common words
// so the fallback doesn't feel completely canned.
func (p *FallbackProvider) Reply(ctx context.Context, req *Request) (string, bool, error) {
	lower := strings.ToLower(req.Text)

	name := ""
	if req.Profile != nil {
		name = req.Profile.DisplayName
	}

	switch {
	case strings.Contains(lower, "name") && name != "":
		return "I'm " + name, true, nil
	case strings.Contains(lower, "where"):
		city := ""
		if req.Profile != nil {
			city = req.Profile.City
		}
		if city != "" {
			return "from " + city, true, nil
		}
	case strings.Contains(lower, "love"):
		return "aww sweet", true, nil
	}

	return p.rng.pick(fallbackReplies), true, nil
}

// Name returns the provider name.
func (p *FallbackProvider) Name() string {
	return "fallback"
}
