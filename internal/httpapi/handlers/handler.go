package handlers

import (
	"github.com/raydesk/chatdesk/internal/config"
	"github.com/raydesk/chatdesk/internal/convo"
	"github.com/raydesk/chatdesk/internal/fanout"
	"github.com/raydesk/chatdesk/internal/relay"
	"github.com/raydesk/chatdesk/internal/store/redisstore"
	"github.com/raydesk/chatdesk/internal/trace"
)

type Handler struct {
	Cfg   config.Config
	Store convo.Store
	Hub   *fanout.Hub
	Ring  *trace.Ring
	Relay relay.Publisher
	Redis *redisstore.Store // optional, nil-safe
}

func NewHandler(cfg config.Config, store convo.Store, hub *fanout.Hub, ring *trace.Ring, pub relay.Publisher, rds *redisstore.Store) *Handler {
	return &Handler{
		Cfg:   cfg,
		Store: store,
		Hub:   hub,
		Ring:  ring,
		Relay: pub,
		Redis: rds,
	}
}
