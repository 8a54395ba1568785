package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/raydesk/chatdesk/internal/convo"
	"github.com/raydesk/chatdesk/internal/signature"
)

// Event is the envelope delivered to the workflow engine for each normalized
// inbound message.
type Event struct {
	TraceID        string        `json:"trace_id"`
	ConversationID string        `json:"conversation_id"`
	Message        convo.Message `json:"message"`
	ReceivedAt     time.Time     `json:"received_at"`
}

// EngineClient posts events to the workflow engine, signing the body with the
// same HMAC scheme the inbound webhooks use.
type EngineClient struct {
	BaseURL string
	Secret  string
	Client  *http.Client
}

func NewEngineClient(baseURL, secret string, timeout time.Duration) *EngineClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &EngineClient{
		BaseURL: baseURL,
		Secret:  secret,
		Client:  &http.Client{Timeout: timeout},
	}
}

func (c *EngineClient) Post(ctx context.Context, ev Event) error {
	if c.Client == nil {
		return errors.New("engine: http client is nil")
	}

	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/events", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Secret != "" {
		req.Header.Set(signature.Header, signature.Sign(b, c.Secret))
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("engine: status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}
