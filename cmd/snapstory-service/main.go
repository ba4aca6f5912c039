package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/snapstory/snapstory-service/internal/cache"
	"github.com/snapstory/snapstory-service/internal/config"
	"github.com/snapstory/snapstory-service/internal/events"
	storyHandlers "github.com/snapstory/snapstory-service/internal/http/handlers/stories"
	userHandlers "github.com/snapstory/snapstory-service/internal/http/handlers/users"
	wsHandler "github.com/snapstory/snapstory-service/internal/http/handlers/websocket"
	"github.com/snapstory/snapstory-service/internal/http/middleware"
	"github.com/snapstory/snapstory-service/internal/services/audio"
	"github.com/snapstory/snapstory-service/internal/services/stories"
	"github.com/snapstory/snapstory-service/internal/storage/postgres"
	"github.com/snapstory/snapstory-service/internal/websocket"
)

func main() {
	// load config
	cfg := config.MustLoad()

	// database setup
	pg, err := postgres.NewPostgres(cfg)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	slog.Info("Connected to Postgres database")

	// audio blob store
	audioStore, err := audio.NewStore(cfg)
	if err != nil {
		log.Fatal("Failed to initialize audio store:", err)
	}
	slog.Info("Connected to MinIO audio store")

	// redis for caching and rate limiting
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	slog.Info("Connected to Redis")

	// real-time notification hub
	hub := websocket.NewHub()
	go hub.Run()

	// story service over cached storage
	cachedStorage := cache.NewService(pg, redisClient)
	storyService := stories.NewService(cachedStorage, audioStore, events.NewHubPublisher(hub), cfg.Audio.MaxUploadSize)

	// setup server
	router := http.NewServeMux()

	router.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	router.HandleFunc("POST /signup", userHandlers.SignUp(cachedStorage, cfg.JWTSecret))
	router.HandleFunc("POST /login", userHandlers.Login(cachedStorage, cfg.JWTSecret))
	router.HandleFunc("GET /ws", wsHandler.Handler(hub, cfg.JWTSecret))

	auth := middleware.AuthMiddleware(cfg.JWTSecret)
	limiter := middleware.NewRateLimiter(redisClient, cfg.RateLimit)

	router.Handle("GET /stories", auth(storyHandlers.List(storyService)))
	router.Handle("POST /stories", auth(limiter.Limit(middleware.ActionCreateStory, storyHandlers.Create(storyService))))
	router.Handle("GET /stories/{id}", auth(storyHandlers.Get(storyService)))
	router.Handle("PUT /stories/{id}", auth(storyHandlers.Update(storyService)))
	router.Handle("DELETE /stories/{id}", auth(storyHandlers.Delete(storyService)))
	router.Handle("PUT /stories/{id}/audio", auth(limiter.Limit(middleware.ActionUploadAudio, storyHandlers.UploadAudio(storyService, cfg.Audio.MaxUploadSize))))

	server := http.Server{
		Addr:    cfg.HTTPServer.Address,
		Handler: router,
	}

	log.Println("server started on", cfg.HTTPServer.Address)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %s", err)
		}
	}()

	<-done

	slog.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = server.Shutdown(ctx)
	if err != nil {
		slog.Error("failed to gracefully shutdown server", slog.String("error", err.Error()))
		return
	}

	slog.Info("Server stopped")
}
