package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raydesk/chatdesk/internal/config"
	"github.com/raydesk/chatdesk/internal/convo"
	"github.com/raydesk/chatdesk/internal/db"
	"github.com/raydesk/chatdesk/internal/fanout"
	"github.com/raydesk/chatdesk/internal/httpapi"
	"github.com/raydesk/chatdesk/internal/relay"
	"github.com/raydesk/chatdesk/internal/store/redisstore"
	"github.com/raydesk/chatdesk/internal/trace"
	"gorm.io/gorm"
)

func main() {
	cfg := config.Load()

	var gdb *gorm.DB
	if cfg.DBDriver != "" {
		var err error
		gdb, err = db.Connect(cfg.DBDriver, cfg.DBDSN)
		if err != nil {
			// degraded, not down: the volatile store takes over
			log.Printf("db connect failed, running volatile-only err=%v", err)
			gdb = nil
		}
	}

	var rds *redisstore.Store
	if cfg.RedisAddr != "" {
		rds = redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	}

	store := convo.NewStore(gdb, rds)
	ring := trace.NewRing(cfg.TraceCapacity)
	hub := fanout.NewHub(cfg.TypingTTL)
	defer hub.Close()

	pub := relay.NewPublisher(cfg)
	defer pub.Close()

	r := httpapi.NewRouter(cfg, store, hub, ring, pub, rds)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("server listening addr=%s strict_signature=%v", cfg.ListenAddr, cfg.StrictSignature)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
