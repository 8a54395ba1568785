package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	ListenAddr string

	// storage
	DBDriver string // "mysql", "sqlite", or "" for volatile in-process store
	DBDSN    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// webhook authentication
	WebhookSecret   string
	StrictSignature bool

	// agent surface (optional, off unless secret is set)
	AgentJWTSecret string

	// workflow engine relay
	EngineURL    string
	RelayTimeout time.Duration

	// rabbitMQ (optional; queued relay when set)
	RabbitURL   string
	RabbitQueue string

	// diagnostics
	TraceCapacity int

	// realtime
	TypingTTL         time.Duration
	HeartbeatInterval time.Duration
}

func Load() Config {
	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	driver := os.Getenv("DB_DRIVER")
	dsn := os.Getenv("DB_DSN")
	if driver == "mysql" && dsn == "" {
		// local docker-compose default
		dsn = "app:apppass@tcp(127.0.0.1:3306)/chatdesk?charset=utf8mb4&parseTime=true&loc=Local"
	}
	if driver == "sqlite" && dsn == "" {
		dsn = "chatdesk.db"
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			redisDB = n
		}
	}

	traceCap := 200
	if v := os.Getenv("TRACE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			traceCap = n
		}
	}

	typingTTL := 5 * time.Second
	if v := os.Getenv("TYPING_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			typingTTL = time.Duration(n) * time.Second
		}
	}

	heartbeat := 15 * time.Second
	if v := os.Getenv("HEARTBEAT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			heartbeat = time.Duration(n) * time.Second
		}
	}

	relayTimeout := 5 * time.Second
	if v := os.Getenv("RELAY_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			relayTimeout = time.Duration(n) * time.Second
		}
	}

	rabbitQueue := os.Getenv("RABBIT_QUEUE")
	if rabbitQueue == "" {
		rabbitQueue = "relay_events"
	}

	return Config{
		ListenAddr: addr,

		DBDriver: driver,
		DBDSN:    dsn,

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		WebhookSecret:   os.Getenv("WEBHOOK_SECRET"),
		StrictSignature: os.Getenv("WEBHOOK_STRICT_SIGNATURE") == "true",

		AgentJWTSecret: os.Getenv("AGENT_JWT_SECRET"),

		EngineURL:    os.Getenv("ENGINE_URL"),
		RelayTimeout: relayTimeout,

		RabbitURL:   os.Getenv("RABBIT_URL"),
		RabbitQueue: rabbitQueue,

		TraceCapacity: traceCap,

		TypingTTL:         typingTTL,
		HeartbeatInterval: heartbeat,
	}
}
