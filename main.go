package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"AgoraNotify/global"
	"AgoraNotify/logger"
	"AgoraNotify/middleware/security"
	"AgoraNotify/service/events"
	"AgoraNotify/service/hub"
	redisstore "AgoraNotify/service/storage/redis"

	"github.com/gin-gonic/gin"
)

func main() {
	mode := flag.String("mode", "hub", "hub (server) or client (demo consumer)")
	user := flag.String("user", "", "user identity for client mode")
	flag.Parse()

	global.Load()
	global.ConfigIds()

	if *mode == "client" {
		runClient(*user)
		return
	}
	runHub()
}

func runHub() {
	ctx := context.Background()

	// store: in-memory unless Mongo is configured
	var store hub.Store = hub.NewMemStore()
	if global.Global.MongoURI != "" {
		ms, err := hub.NewMgoStore(ctx, hub.MgoConfig{
			URI:      global.Global.MongoURI,
			Database: global.Global.MongoDatabase,
		})
		if err != nil {
			logger.Errorf("[main] mongo init err=%v, falling back to memory store", err)
		} else {
			store = ms
			logger.Info("[main] using mongo store")
		}
	}

	// presence: only with redis configured
	var presence hub.Presence
	if global.Global.RedisAddr != "" {
		err := redisstore.Init(redisstore.Config{
			Addr:     global.Global.RedisAddr,
			Password: global.Global.RedisPassword,
			DB:       global.Global.RedisDB,
		})
		if err != nil {
			logger.Errorf("[main] redis init err=%v, presence disabled", err)
		} else {
			presence = redisstore.NewPresence(90 * time.Second)
			defer func() { _ = redisstore.Close() }()
			logger.Info("[main] presence tracking enabled")
		}
	}

	h := hub.New(store, presence)

	// event ingress: only with NATS configured
	var pub hub.Publisher
	if global.Global.NatsURL != "" {
		bus, err := events.Connect(events.Config{URL: global.Global.NatsURL})
		if err != nil {
			logger.Errorf("[main] nats init err=%v, event ingress disabled", err)
		} else {
			if err := bus.Subscribe(h); err != nil {
				logger.Errorf("[main] nats subscribe err=%v", err)
			} else {
				pub = bus
				logger.Info("[main] event ingress enabled")
			}
			defer bus.Close()
		}
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/ws", h.HandleWS)
	hub.NewHandlers(h, pub).Register(r)

	addr := fmt.Sprintf(":%d", global.Global.Port)
	logger.Infof("[main] listening on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Errorf("[main] http server err=%v", err)
		os.Exit(1)
	}
}

// runClient starts the notification core against a running hub and prints
// state as it evolves. Useful for eyeballing reconnect and toast behavior.
func runClient(user string) {
	if user == "" {
		user = "demo-user"
	}
	token, err := security.Sign(user, time.Hour)
	if err != nil {
		logger.Errorf("[client] sign token err=%v", err)
		os.Exit(1)
	}

	base := fmt.Sprintf("localhost:%d", global.Global.Port)
	c := notifyClient(base, token)

	ctx := context.Background()
	c.Start(ctx, user)
	defer c.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	tick := time.NewTicker(2 * time.Second)
	defer tick.Stop()
	for {
		select {
		case <-sig:
			logger.Info("[client] shutting down")
			return
		case <-tick.C:
			list, unread := c.Snapshot()
			logger.Infof("[client] connected=%v notifications=%d unread=%d toasts=%d",
				c.IsConnected(), len(list), unread, len(c.Toasts()))
		}
	}
}
