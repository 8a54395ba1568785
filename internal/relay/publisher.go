// Package relay delivers normalized inbound events to the workflow engine.
// Delivery is best-effort and fully detached from the webhook request:
// failures are logged, never surfaced to the original caller.
package relay

import (
	"context"
	"log"
	"time"

	"github.com/raydesk/chatdesk/internal/config"
	"github.com/raydesk/chatdesk/internal/store/rabbitmq"
)

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// NewPublisher selects the relay transport once at startup: RabbitMQ when a
// broker is configured, a direct fire-and-forget HTTP POST when only the
// engine URL is set, and a logging no-op otherwise.
func NewPublisher(cfg config.Config) Publisher {
	if cfg.RabbitURL != "" {
		pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			log.Printf("relay: rabbit unavailable, falling back to direct delivery err=%v", err)
		} else {
			return &queuePublisher{pub: pub}
		}
	}
	if cfg.EngineURL != "" {
		return &httpPublisher{
			client: NewEngineClient(cfg.EngineURL, cfg.WebhookSecret, cfg.RelayTimeout),
		}
	}
	return &noopPublisher{}
}

// queuePublisher hands the event to the durable queue; cmd/worker performs
// the signed POST.
type queuePublisher struct {
	pub *rabbitmq.Publisher
}

func (p *queuePublisher) Publish(ctx context.Context, ev Event) error {
	return p.pub.Publish(ctx, ev)
}

func (p *queuePublisher) Close() error { return p.pub.Close() }

// httpPublisher posts directly from a detached goroutine. The webhook
// response never waits on it.
type httpPublisher struct {
	client *EngineClient
}

func (p *httpPublisher) Publish(ctx context.Context, ev Event) error {
	go func() {
		// detached from the request context on purpose: the ack must not
		// depend on engine latency
		cctx, cancel := context.WithTimeout(context.Background(), p.client.Client.Timeout+time.Second)
		defer cancel()
		if err := p.client.Post(cctx, ev); err != nil {
			log.Printf("relay: engine delivery failed trace=%s conversation=%s err=%v",
				ev.TraceID, ev.ConversationID, err)
		}
	}()
	return nil
}

func (p *httpPublisher) Close() error { return nil }

type noopPublisher struct{}

func (p *noopPublisher) Publish(ctx context.Context, ev Event) error {
	log.Printf("relay: no engine configured, skipped event conversation=%s", ev.ConversationID)
	return nil
}

func (p *noopPublisher) Close() error { return nil }
