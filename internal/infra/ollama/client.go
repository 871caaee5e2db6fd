// Package ollama provides a client for an Ollama-compatible chat API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// Message is a single turn in a chat exchange.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Config represents Ollama client configuration.
type Config struct {
	Hosts   []string
	Model   string
	Timeout time.Duration
}

// Client is an Ollama chat API client. Requests rotate round-robin
// across the configured hosts.
type Client struct {
	hosts      []string
	model      string
	httpClient *http.Client

	next atomic.Uint64
}

// chatRequest represents the request body for /api/chat.
type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// chatResponse represents the response from /api/chat.
type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Error string `json:"error,omitempty"`
}

// New creates a new Ollama client.
func New(cfg Config) (*Client, error) {
	if len(cfg.Hosts) == 0 {
		return nil, errors.New("at least one ollama host is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("ollama model is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	hosts := make([]string, 0, len(cfg.Hosts))
	for _, h := range cfg.Hosts {
		hosts = append(hosts, strings.TrimRight(h, "/"))
	}

	return &Client{
		hosts:      hosts,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Chat sends the conversation to the next host in rotation and returns
// the cleaned assistant reply.
func (c *Client) Chat(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("at least one message is required")
	}

	host := c.hosts[c.next.Add(1)%uint64(len(c.hosts))]
	reqURL := host + "/api/chat"

	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to encode request")
	}

	req, err := http.NewRequestWithContext(ctx, "POST", reqURL, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode != http.StatusOK {
		return "", errors.Newf("ollama returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var response chatResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return "", errors.Wrap(err, "failed to parse response")
	}
	if response.Error != "" {
		return "", errors.Newf("ollama API error: %s", response.Error)
	}

	reply := CleanReply(response.Message.Content)
	if reply == "" {
		return "", errors.New("ollama returned an empty reply")
	}

	zlog.Debug().Msgf("ollama reply: host=%s model=%s len=%d", host, c.model, len(reply))
	return reply, nil
}

// maxReplyRunes caps generative replies so they read like chat messages.
const maxReplyRunes = 160

// CleanReply normalizes a raw model reply: strips surrounding quotes,
// collapses whitespace, keeps the first sentence when the reply runs
// long, and caps the length.
func CleanReply(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, `"'`)
	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxReplyRunes {
		// Prefer cutting at a sentence boundary.
		if i := firstSentenceEnd(runes); i > 0 {
			runes = runes[:i]
		} else {
			runes = runes[:maxReplyRunes]
		}
		s = strings.TrimSpace(string(runes))
	}
	return s
}

// firstSentenceEnd returns the index just past the first sentence
// terminator, or 0 when none is found within the length cap.
func firstSentenceEnd(runes []rune) int {
	limit := len(runes)
	if limit > maxReplyRunes {
		limit = maxReplyRunes
	}
	for i := 0; i < limit; i++ {
		switch runes[i] {
		case '.', '!', '?':
			return i + 1
		}
	}
	return 0
}
