package guard

import (
	"context"
	"regexp"
)

// CodeLinkBlocked is returned when a message carries a link.
const CodeLinkBlocked = "link_blocked"

var linkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bhttps?://\S+`),
	regexp.MustCompile(`(?i)\bwww\.\S+`),
	regexp.MustCompile(`(?i)\b[a-z0-9][a-z0-9-]*\.(com|net|org|io|in|me|ly|app|xyz)(/\S*)?\b`),
}

// LinkGuard rejects messages containing URLs or bare domains.
type LinkGuard struct{}

// NewLinkGuard creates a new LinkGuard.
func NewLinkGuard() *LinkGuard {
	return &LinkGuard{}
}

// Name returns the guard name.
func (g *LinkGuard) Name() string {
	return "link"
}

// ReturnCodes returns the codes this guard can return.
func (g *LinkGuard) ReturnCodes() []string {
	return []string{CodeLinkBlocked}
}

// Check rejects the message when it contains a link.
func (g *LinkGuard) Check(ctx context.Context, senderID, text string) Result {
	for _, re := range linkPatterns {
		if re.MatchString(text) {
			return Reject(CodeLinkBlocked)
		}
	}
	return Accept()
}
