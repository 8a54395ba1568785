package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/raydesk/chatdesk/internal/config"
	"github.com/raydesk/chatdesk/internal/relay"
)

// The relay worker drains the queued events and performs the signed POST to
// the workflow engine. Delivery stays best-effort: poison messages dead-letter
// after a nack, and the original webhook caller was acked long ago.

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

func main() {
	cfg := config.Load()

	if cfg.EngineURL == "" {
		log.Fatalf("ENGINE_URL is required for the relay worker")
	}
	client := relay.NewEngineClient(cfg.EngineURL, cfg.WebhookSecret, cfg.RelayTimeout)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("rabbit dial: %v", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("rabbit channel: %v", err)
	}
	defer ch.Close()

	// declarations must match the publisher's exactly
	dlqQ := cfg.RabbitQueue + ".dlq"
	if _, err := ch.QueueDeclare(dlqQ, true, false, false, false, nil); err != nil {
		log.Fatalf("dlq declare: %v", err)
	}
	_, err = ch.QueueDeclare(cfg.RabbitQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": dlqQ,
	})
	if err != nil {
		log.Fatalf("queue declare: %v", err)
	}

	concurrency := workerConcurrency()

	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("relay worker started queue=%s engine=%s concurrency=%d", cfg.RabbitQueue, cfg.EngineURL, concurrency)

	// worker pool
	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				var ev relay.Event
				if err := json.Unmarshal(d.Body, &ev); err != nil || ev.ConversationID == "" {
					log.Printf("worker=%d bad message: %v", workerID, err)
					_ = d.Nack(false, false)
					continue
				}

				start := time.Now()
				if err := client.Post(ctx, ev); err != nil {
					if ctx.Err() != nil {
						// shutdown, not a poison message: requeue for the
						// next worker instead of dead-lettering
						_ = d.Nack(false, true)
						continue
					}
					log.Printf("worker=%d delivery failed trace=%s conversation=%s cost=%s err=%v",
						workerID, ev.TraceID, ev.ConversationID, time.Since(start), err)
					_ = d.Nack(false, false)
					continue
				}

				if err := d.Ack(false); err != nil {
					log.Printf("worker=%d ack failed trace=%s err=%v", workerID, ev.TraceID, err)
				}
			}
		}(i)
	}

	// dispatcher
	for {
		select {
		case <-ctx.Done():
			log.Printf("relay worker shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				log.Printf("delivery channel closed")
				time.Sleep(1 * time.Second)
				continue
			}
			jobs <- d
		}
	}
}
