package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/bytetube/bytetube-chat/internal/broadcast"
	"github.com/bytetube/bytetube-chat/internal/config"
	"github.com/bytetube/bytetube-chat/internal/handlers"
	httpx "github.com/bytetube/bytetube-chat/internal/http"
	"github.com/bytetube/bytetube-chat/internal/repo"
	"github.com/bytetube/bytetube-chat/internal/service"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg := config.Load()
	instanceID := uuid.NewString()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := handlers.NewRoomHub()

	var (
		rooms repo.RoomRepo
		relay broadcast.Publisher = broadcast.NopPublisher{}
		rdb   *redis.Client
	)
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:         cfg.RedisAddr,
			PoolSize:     10,
			MinIdleConns: 5,
			MaxRetries:   3,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PoolTimeout:  4 * time.Second,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		log.Println("connected to redis")

		rooms = repo.NewRedisRoomRepo(rdb)
		rr := broadcast.NewRedisRelay(rdb, instanceID)
		relay = rr
		go rr.Run(ctx, hub)
	} else {
		log.Println("REDIS_ADDR not set, using in-memory room registry without relay")
		rooms = repo.NewMemoryRoomRepo()
	}

	svc := service.NewRoomService(rooms, service.NewRoomIDGenerator(), cfg.RoomTTL)
	router := httpx.NewRouter(
		handlers.NewRoomHandler(svc, hub, instanceID),
		handlers.NewChatHandler(svc, hub, relay, cfg.PingInterval()),
		cfg.AllowedOrigin,
	)

	srv := &http.Server{
		Addr:              cfg.APIAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("listening on %s (instance %s)", cfg.APIAddr, instanceID)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				log.Println("shutdown signal received, shutting down gracefully...")
				cancel()
				if err := srv.Shutdown(ctx); err != nil {
					return err
				}
				if rdb != nil {
					return rdb.Close()
				}
				return nil
			},
		},
	)

	exitCode := <-wait
	log.Printf("server stopped with code %d", exitCode)
	os.Exit(exitCode)
}
