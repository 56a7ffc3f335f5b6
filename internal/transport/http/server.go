package http

import (
	"context"
	"errors"
	"fmt"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"talksphere/internal/cache"
	"talksphere/internal/config"
	"talksphere/internal/database"
	"talksphere/internal/handler"
	"talksphere/internal/model"
	"talksphere/internal/queue"
	"talksphere/internal/redis"
	"talksphere/internal/repository"
	"talksphere/internal/repository/memory"
	"talksphere/internal/service"
	"talksphere/internal/worker"
)

// Services is the wired service layer behind the HTTP surface.
type Services struct {
	Comments      *service.CommentService
	Posts         *service.PostService
	Users         *service.UserService
	Moderation    *service.ModerationService
	Announcements *service.AnnouncementService
	Notifications *service.NotificationService
	Reconcile     *service.ReconcileService
	Media         *service.MediaService // nil when uploads are not configured

	// Events consumes comment events, from the Redis stream or inline.
	Events *worker.Handler
}

// NewServices wires every service over one set of stores. A nil publisher
// makes comment events run inline on the request path instead of through
// Redis. media and pusher may be nil.
func NewServices(
	cfg *config.Config,
	repos repository.Set,
	publisher queue.Publisher,
	media *service.MediaService,
	pusher service.Pusher,
) *Services {
	authorCache := cache.NewAuthorCache(cfg.AuthorCacheSize, cfg.AuthorCacheTTL)
	authors := service.NewAuthorResolver(repos.Users, authorCache, cfg.DefaultAvatarURL)

	reconcile := service.NewReconcileService(repos.Posts)
	notifications := service.NewNotificationService(
		repos.Notifications, repos.DeviceTokens, repos.Comments, repos.Posts, authors, pusher,
	)
	events := worker.NewHandler(reconcile, notifications)
	if publisher == nil {
		publisher = worker.NewInlinePublisher(events)
	}

	comments := service.NewCommentService(repos.Comments, repos.Posts, repos.Users, authors, publisher)

	return &Services{
		Comments: comments,
		Posts:    service.NewPostService(repos.Posts, repos.Users),
		Users:    service.NewUserService(repos.Users, authors),
		Moderation: service.NewModerationService(
			repos.Reports, repos.Posts, repos.Comments, repos.Users, comments, publisher,
		),
		Announcements: service.NewAnnouncementService(repos.Announcements, authors),
		Notifications: notifications,
		Reconcile:     reconcile,
		Media:         media,
		Events:        events,
	}
}

// NewHandler builds the routed HTTP handler for the given services.
func NewHandler(cfg *config.Config, svc *Services) stdhttp.Handler {
	return NewRouter(RouterConfig{
		CommentHandler:      handler.NewCommentHandler(svc.Comments),
		PostHandler:         handler.NewPostHandler(svc.Posts),
		UserHandler:         handler.NewUserHandler(svc.Users),
		ModerationHandler:   handler.NewModerationHandler(svc.Moderation),
		AnnouncementHandler: handler.NewAnnouncementHandler(svc.Announcements),
		NotificationHandler: handler.NewNotificationHandler(svc.Notifications),
		MediaHandler:        handler.NewMediaHandler(svc.Media),
		AdminChecker:        svc.Users,
		JWTSecret:           cfg.JWTSecret,
		AllowedOrigins:      cfg.CORSAllowedOrigins,
	})
}

// NewPusher returns the push providers enabled in cfg, or nil when none is.
func NewPusher(ctx context.Context, cfg *config.Config) (service.Pusher, error) {
	var expo, fcm service.Pusher
	if cfg.ExpoPushEnabled {
		expo = service.NewExpoPushClient(cfg.ExpoPushURL)
	}
	if cfg.FCMEnabled() {
		client, err := service.NewFCMClient(ctx, cfg.FCMProjectID, cfg.FCMClientEmail, cfg.FCMPrivateKey)
		if err != nil {
			return nil, err
		}
		fcm = client
	}
	if expo == nil && fcm == nil {
		return nil, nil
	}
	return service.NewPushRouter(expo, fcm), nil
}

// OpenRepositories returns the stores selected by STORAGE_DRIVER. The
// returned close func is never nil.
func OpenRepositories(ctx context.Context, cfg *config.Config) (repository.Set, func(), error) {
	if cfg.StorageDriver == config.StorageMemory {
		log.Println("Using in-memory storage")
		return memory.NewSet(), func() {}, nil
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return repository.Set{}, nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return repository.Set{}, nil, err
	}
	return repository.NewPostgresSet(db), func() { db.Close() }, nil
}

func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Open storage
	repos, closeRepos, err := OpenRepositories(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer closeRepos()

	// 3. Connect to Redis (optional)
	var publisher queue.Publisher
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = redis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisClient.Close()
		publisher = queue.NewPublisher(redisClient.Client)
		log.Println("Connected to Redis, comment events enabled")
	} else {
		log.Println("REDIS_URL not set, comment events are handled inline")
	}

	// 4. Media storage (optional)
	media, err := service.NewMediaService(ctx, cfg)
	if errors.Is(err, model.ErrMediaDisabled) {
		log.Println("R2 settings incomplete, media uploads disabled")
		media = nil
	} else if err != nil {
		return fmt.Errorf("failed to init media storage: %w", err)
	}

	// 5. Push providers (optional)
	pusher, err := NewPusher(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to init push: %w", err)
	}
	if pusher == nil {
		log.Println("No push provider configured, notifications are inbox-only")
	}

	// 6. Services
	svc := NewServices(cfg, repos, publisher, media, pusher)
	if err := svc.Users.SeedAdmins(ctx, cfg.AdminUserIDs); err != nil {
		return err
	}

	// 7. Event workers
	if redisClient != nil {
		manager := worker.NewManager(
			queue.NewConsumer(redisClient.Client, queue.StreamComments, queue.ConsumerGroupComments),
			svc.Events,
			worker.ManagerConfig{WorkerCount: cfg.WorkerCount},
		)
		if err := manager.Start(ctx); err != nil {
			return fmt.Errorf("failed to start workers: %w", err)
		}
		defer manager.Stop()
	}

	// 8. Setup Server
	server := &stdhttp.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      NewHandler(cfg, svc),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, stdhttp.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
