package cmd

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"kanban-api/api"
	"kanban-api/export"
	"kanban-api/realtime"
	"kanban-api/service"
	"kanban-api/storage"
)

const eventsChannel = "kanban:events"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  "Starts the kanban HTTP API with the realtime event stream",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil {
			log.Info(".env file not found, using environment variables")
		}
		if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
			log.SetLevel(log.DebugLevel)
		}

		dsn := os.Getenv("DATABASE_DSN")
		if dsn == "" {
			dsn = "kanban.db"
		}
		store, err := storage.New(dsn)
		if err != nil {
			log.Fatalf("storage: %v", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		hub := realtime.NewHub()

		// With Redis configured, events ride the pub/sub channel so every
		// instance fans out to its own SSE clients. Without it the hub is
		// process-local.
		var (
			st  service.Storage   = store
			bus service.Publisher = hub
		)
		if redisConn := os.Getenv("REDIS_CONNECTION_STRING"); redisConn != "" {
			redisOpts, err := redis.ParseURL(redisConn)
			if err != nil {
				redisOpts = &redis.Options{Addr: redisConn}
			}
			rc := redis.NewClient(redisOpts)
			defer rc.Close()

			cacheTTL := time.Minute
			if v := os.Getenv("CACHE_TTL"); v != "" {
				d, err := time.ParseDuration(v)
				if err != nil || d <= 0 {
					log.Fatalf("invalid CACHE_TTL: %v", err)
				}
				cacheTTL = d
			}
			st = storage.NewCache(store, rc, cacheTTL)

			relay := realtime.NewRelay(rc, eventsChannel, hub)
			go relay.Run(ctx)
			bus = relay
		}

		boards := service.NewBoards(st, bus)
		columns := service.NewColumns(st, bus)
		tasks := service.NewTasks(st, bus)

		webhookTimeout := 10 * time.Second
		if v := os.Getenv("EXPORT_WEBHOOK_TIMEOUT"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				log.Fatalf("invalid EXPORT_WEBHOOK_TIMEOUT: %v", err)
			}
			webhookTimeout = d
		}
		exports := export.NewService(st, bus, export.NewWebhookClient(webhookTimeout), export.Config{
			WebhookURL:   os.Getenv("EXPORT_WEBHOOK_URL"),
			WebhookToken: os.Getenv("EXPORT_WEBHOOK_TOKEN"),
			CallbackURL:  os.Getenv("EXPORT_CALLBACK_URL"),
			StatusToken:  os.Getenv("EXPORT_STATUS_TOKEN"),
		})

		e := echo.New()
		e.HideBanner = true
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: []string{"*"},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))

		logger := log.New()
		api.Register(e, api.Deps{
			Boards:  boards,
			Columns: columns,
			Tasks:   tasks,
			Exports: exports,
			Hub:     hub,
			Logger:  logger,
		})

		listenAddr := ":8080"
		if v := os.Getenv("LISTEN_ADDR"); v != "" {
			listenAddr = v
		}

		go func() {
			log.Infof("HTTP server listening on %s", listenAddr)
			if err := e.Start(listenAddr); err != nil {
				log.Infof("server stopped: %v", err)
			}
		}()

		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Warnf("shutdown: %v", err)
		}

		log.Info("HTTP server shut down gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
