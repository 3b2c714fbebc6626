// Package rest
package rest

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	jsoniter "github.com/json-iterator/go"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	sendPath          = "/api/mobile/messages/send"
	conversationsPath = "/api/mobile/messages/conversations/%d"
	historyPath       = "/api/mobile/messages/%d/%d"

	defaultRequestTimeout = 10 * time.Second
)

// TokenFunc returns the current bearer token, empty when absent.
type TokenFunc func() string

// NewClient creates a REST client for the message API rooted at base,
// e.g. "https://api.example.com".
func NewClient(base string, token TokenFunc) *Client {
	if token == nil {
		token = func() string { return "" }
	}
	c := &Client{
		base:    base,
		token:   token,
		http:    &fasthttp.Client{},
		timeout: defaultRequestTimeout,
	}
	c.log = log.WithFields(log.Fields{
		"Name": "MessageAPI",
		"Base": base,
	})
	return c
}

// Client talks to the message REST endpoints. It is safe for
// concurrent use.
type Client struct {
	base    string
	token   TokenFunc
	http    *fasthttp.Client
	timeout time.Duration
	log     *log.Entry
}

// SendMessage posts one chat message over the fallback channel.
func (c *Client) SendMessage(ctx context.Context, p ChatPayload) error {
	if p.Content == "" {
		return fmt.Errorf("send message: empty content")
	}
	// the backend rejects single-character payloads
	if utf8.RuneCountInString(p.Content) < 2 {
		p.Content += " "
	}

	body, err := json.Marshal(&p)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	if err := c.do(ctx, fasthttp.MethodPost, c.base+sendPath, body, nil); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// Conversations fetches the conversation list with last-message
// previews for the given user.
func (c *Client) Conversations(ctx context.Context, userID int) ([]Conversation, error) {
	var out []Conversation
	url := c.base + fmt.Sprintf(conversationsPath, userID)
	if err := c.do(ctx, fasthttp.MethodGet, url, nil, &out); err != nil {
		return nil, fmt.Errorf("load conversations: %w", err)
	}
	return out, nil
}

// Messages fetches the full history of one conversation plus the peer
// contact metadata.
func (c *Client) Messages(ctx context.Context, userID, contactID int) (*History, error) {
	var out History
	url := c.base + fmt.Sprintf(historyPath, userID, contactID)
	if err := c.do(ctx, fasthttp.MethodGet, url, nil, &out); err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, out interface{}) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")
	if t := c.token(); t != "" {
		req.Header.Set("Authorization", "Bearer "+t)
	}
	if body != nil {
		req.SetBody(body)
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if timeout <= 0 {
		return context.DeadlineExceeded
	}

	if err := c.http.DoTimeout(req, resp, timeout); err != nil {
		return err
	}
	if code := resp.StatusCode(); code < 200 || code >= 300 {
		return fmt.Errorf("%s %s: status %d", method, url, code)
	}
	if out != nil {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
