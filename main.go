package main

import (
	"Arena/config"
	_ "Arena/config/swagger"
	"Arena/middleware"
	"Arena/routes"
	"Arena/services/redis"
	"Arena/services/scheduler"
	"Arena/services/socket_io"
	"Arena/services/socket_io/handlers"
	socketio_types "Arena/services/socket_io/types"
	"Arena/services/sync"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

// @title Arena API
// @version 1.0
// @description Gin-Gonic server for the Arena real-time duel game
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func main() {
	log.Println("Setting up server...")
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error reading configuration: %v", err)
	}

	if cfg.Prod {
		gin.SetMode(gin.ReleaseMode)
	}

	deps := routes.Dependencies{JWTSecret: []byte(cfg.JWTSecret)}
	var syncOpts []sync.Option

	if cfg.Postgres.Enabled() {
		gormDB, err := config.ConnectGORM(cfg.Postgres)
		if err != nil {
			log.Fatalf("Error connecting to PostgreSQL: %v", err)
		}
		log.Println("GORM Connected")

		// Only migrate in development or during deployment
		if cfg.Postgres.Migrate {
			log.Println("Migrating PostgreSQL database...")
			if err := config.MigrateDatabase(gormDB); err != nil {
				log.Printf("Warning: Database migration failed: %v", err)
			}
		}

		sqlDB, err := gormDB.DB()
		if err != nil {
			log.Fatalf("Error reading GORM PostgreSQL instance: %v", err)
		}
		defer sqlDB.Close()

		store := sync.NewGormStore(gormDB)
		syncOpts = append(syncOpts, sync.WithStore(store))
		deps.Store = store
	} else {
		log.Println("POSTGRES_HOST not set, finished games will not be stored")
	}

	redisClient, err := config.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Error connecting to Redis: %v", err)
	}
	if redisClient != nil {
		defer redis.CloseRedis(redisClient)
		syncOpts = append(syncOpts, sync.WithCache(redisClient))
		deps.Presence = redisClient
		deps.Cache = redisClient
	}

	nc, err := config.ConnectNATS(cfg.NATS)
	if err != nil {
		log.Fatalf("Error connecting to NATS: %v", err)
	}
	if nc != nil {
		defer nc.Drain()
		syncOpts = append(syncOpts, sync.WithPublisher(nc, cfg.NATS.Subject))
	}

	hubOpts := handlers.Options{
		SearchTimeout:     cfg.Game.SearchTimeout,
		InvitationTimeout: cfg.Game.InvitationTimeout,
		ReapDelay:         cfg.Game.SessionReapDelay,
		ForfeitTimeout:    cfg.Game.ForfeitTimeout,
		BrowseCount:       cfg.Game.BrowseCount,
	}
	if syncManager := sync.NewSyncManager(syncOpts...); syncManager.Enabled() {
		hubOpts.Sink = syncManager
	}
	if redisClient != nil {
		hubOpts.Presence = redisClient
	}

	sockets := socketio_types.NewSocketServer()
	hub := handlers.NewHub(sockets, hubOpts)
	deps.Lobby = hub
	deps.Games = hub

	jobs, err := scheduler.Start(cfg.Game.SweepInterval,
		scheduler.MaintenanceJobs(hub.Queue(), hub.Invitations(), hub.Games())...)
	if err != nil {
		log.Fatalf("Error starting scheduler: %v", err)
	}
	defer jobs.Shutdown()

	r := gin.Default()

	middleware.SetUpMiddleware(r, cfg.AllowedOrigins)

	sio := (*socket_io.MySocketServer)(sockets)
	sio.Start(r, cfg, hub)
	defer sio.Close()

	routes.SetupRoutes(r, deps)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT)
	defer stop()

	go func() {
		var err error
		if cfg.UseHTTPS {
			err = srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Error starting server: %v", err)
		}
	}()
	log.Printf("Server started on port %s", cfg.Port)

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down server: %v", err)
	}
}
