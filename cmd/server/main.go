package main // Entry point package

import (
	"context"      // context carries the shutdown signal
	"database/sql" // sql handle closed on exit
	"errors"       // errors distinguishes a clean server stop
	"log"          // log reports fatal startup errors
	"net/http"     // http.ErrServerClosed and the AI client
	"os"           // os gives the log writer
	"os/signal"    // signal cancels the root context on SIGINT/SIGTERM
	"syscall"      // syscall.SIGTERM
	"time"         // time bounds shutdown

	"github.com/joho/godotenv"                      // .env loading for local runs
	"github.com/labstack/echo/v4"                   // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware" // request logging, recovery and body limits

	"github.com/andymattgee/swe-blog/internal/ai"
	"github.com/andymattgee/swe-blog/internal/config"
	"github.com/andymattgee/swe-blog/internal/database"
	"github.com/andymattgee/swe-blog/internal/handler"
	"github.com/andymattgee/swe-blog/internal/logging"
	"github.com/andymattgee/swe-blog/internal/middleware"
	"github.com/andymattgee/swe-blog/internal/queue"
	"github.com/andymattgee/swe-blog/internal/repository"
	"github.com/andymattgee/swe-blog/internal/repository/memstore"
	"github.com/andymattgee/swe-blog/internal/router"
	"github.com/andymattgee/swe-blog/internal/service"
	"github.com/andymattgee/swe-blog/internal/storage"
)

// stores groups the persistence backends chosen by STORAGE.
type stores struct {
	users   service.UserStore
	tokens  service.TokenStore
	entries service.EntryStore
	todos   service.TodoStore
	db      *sql.DB
}

func main() {
	_ = godotenv.Load() // a missing .env is fine, the environment wins
	cfg := config.Load()
	logger := logging.NewJSON(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	if st.db != nil {
		defer st.db.Close()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.BodyLimit("12M"))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			args := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				args = append(args, "err", v.Error)
			}
			logger.Info(c.Request().Context(), "request", args...)
			return nil
		},
	}))

	images, err := openImageStore(ctx, cfg, e)
	if err != nil {
		log.Fatalf("image store: %v", err)
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn(ctx, "redis unavailable, rate limiting and summary cache disabled")
	} else {
		defer rdb.Close()
	}

	san := service.NewSanitizer()
	tokens := service.NewTokenService(st.users, st.tokens, cfg.JWTSecret, cfg.TokenTTL())
	auth := service.NewAuthService(st.users, tokens, images, cfg.BcryptCost, cfg.MaxImageBytes, logger)
	entries := service.NewEntryService(st.entries, images, cfg.MaxImageBytes, san, logger)
	todos := service.NewTodoService(st.todos, san, cfg.Location())

	aiClient := ai.NewClient(ai.Config{
		BaseURL: cfg.AIBaseURL,
		APIKey:  cfg.AIAPIKey,
		Model:   cfg.AIModel,
		Timeout: cfg.AITimeout,
	}, &http.Client{})
	summarizer := ai.NewCachedSummarizer(aiClient, aiClient.Model(), rdb, config.LoadSummaryCacheConfig(), logger)

	if cfg.AIAPIKey == "" {
		logger.Warn(ctx, "AI_API_KEY not set, entry summaries disabled")
	} else if cfg.RabbitURL != "" {
		pub := queue.NewPublisher(cfg.RabbitURL, logger)
		defer pub.Close()
		entries.WithSummaries(pub, summarizer)
		consumer := &queue.Consumer{URL: cfg.RabbitURL, Handle: entries.ApplySummary, Log: logger}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error(ctx, "summary consumer stopped", "err", err)
			}
		}()
	} else {
		entries.WithSummaries(nil, summarizer)
	}

	guards := router.Guards{
		Auth:      middleware.Auth(tokens, logger),
		APILimit:  middleware.RateLimit(config.LoadRateLimitConfig("RATE_LIMIT", config.DefaultAPIRateLimit), rdb, logger),
		AuthLimit: middleware.RateLimit(config.LoadRateLimitConfig("AUTH_RATE_LIMIT", config.DefaultAuthRateLimit), rdb, logger),
	}
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(auth, cfg.MaxImageBytes, logger), guards)
	router.RegisterEntries(e, handler.NewEntryHandler(entries, cfg.MaxImageBytes, logger), guards)
	router.RegisterTodos(e, handler.NewTodoHandler(todos, logger), guards)
	router.RegisterAI(e, handler.NewAIHandler(summarizer, aiClient, san, logger), guards)

	addr := ":" + cfg.Port
	go func() {
		logger.Info(ctx, "listening", "addr", addr, "env", cfg.Env, "storage", cfg.Storage, "images", cfg.ImageStore)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "shutdown", "err", err)
	}
}

func openStores(ctx context.Context, cfg config.Config) (stores, error) {
	if cfg.Storage == config.StorageMemory {
		m := memstore.New()
		return stores{users: m.Users, tokens: m.Tokens, entries: m.Entries, todos: m.Todos}, nil
	}
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return stores{}, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return stores{}, err
	}
	return stores{
		users:   repository.NewUserRepo(db),
		tokens:  repository.NewTokenRepo(db),
		entries: repository.NewEntryRepo(db),
		todos:   repository.NewTodoRepo(db),
		db:      db,
	}, nil
}

func openImageStore(ctx context.Context, cfg config.Config, e *echo.Echo) (storage.Store, error) {
	if cfg.ImageStore == config.ImageStoreS3 {
		return storage.NewS3Store(ctx, storage.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.S3PublicURL,
		})
	}
	local, err := storage.NewLocalStore(cfg.UploadDir, "/uploads")
	if err != nil {
		return nil, err
	}
	router.RegisterUploads(e, cfg.UploadDir)
	return local, nil
}
