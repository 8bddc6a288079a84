package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/torimichi/guide-match-system/config"
	"github.com/torimichi/guide-match-system/internal/adapter/http/server"
	repo "github.com/torimichi/guide-match-system/internal/adapter/postgres"
	rabbitadapter "github.com/torimichi/guide-match-system/internal/adapter/rabbit"
	"github.com/torimichi/guide-match-system/internal/domain/models"
	"github.com/torimichi/guide-match-system/internal/service/auth"
	"github.com/torimichi/guide-match-system/internal/service/chat"
	"github.com/torimichi/guide-match-system/internal/service/directory"
	"github.com/torimichi/guide-match-system/internal/service/matching"
	"github.com/torimichi/guide-match-system/internal/service/profile"
	"github.com/torimichi/guide-match-system/internal/service/review"
	"github.com/torimichi/guide-match-system/pkg/logger"
	wrap "github.com/torimichi/guide-match-system/pkg/logger/wrapper"
	postgresclient "github.com/torimichi/guide-match-system/pkg/postgres"
	rabbitclient "github.com/torimichi/guide-match-system/pkg/rabbit"
	"github.com/torimichi/guide-match-system/pkg/trm"
	ws "github.com/torimichi/guide-match-system/pkg/wsHub"
)

type App struct {
	postgresDB *postgresclient.PostgreDB
	rabbitMQ   *rabbitclient.RabbitMQ
	httpServer *server.API
	consumer   *rabbitadapter.Consumer
	hub        *ws.ConnectionHub

	cfg config.Config
	log logger.Logger
}

// eventSink routes broker deliveries to the in-memory read models.
type eventSink struct {
	directory *directory.Directory
	chat      *chat.ChatService
}

func (s *eventSink) ApplyProfileEvent(ctx context.Context, ev models.ProfileEvent) {
	s.directory.Apply(ctx, ev)
}

func (s *eventSink) ApplyMatchStatus(ctx context.Context, msg models.MatchStatusMessage) {
	s.chat.ApplyStatus(ctx, msg)
}

func (s *eventSink) ApplyChatMessage(ctx context.Context, msg models.ChatMessageBroadcast) {
	s.chat.ApplyRemote(ctx, msg)
}

func NewApplication(ctx context.Context, cfg config.Config, log logger.Logger) (*App, error) {
	postgresDB, err := postgresclient.New(ctx, cfg.Database)
	if err != nil {
		log.Error(ctx, "failed to setup database", err)
		return nil, err
	}

	rabbitMQ, err := rabbitclient.New(ctx, cfg.RabbitMQ.GetDSN(), log)
	if err != nil {
		log.Error(ctx, "failed to setup rabbitmq", err)
		postgresDB.Pool.Close()
		return nil, err
	}

	txManager := trm.New(postgresDB.Pool)

	// repositories
	userRepo := repo.NewUserRepo(postgresDB.Pool)
	refreshRepo := repo.NewRefreshTokenRepo(postgresDB.Pool)
	matchRepo := repo.NewMatchRepo(postgresDB.Pool)
	eventRepo := repo.NewMatchEventRepo(postgresDB.Pool)
	messageRepo := repo.NewMessageRepo(postgresDB.Pool)
	reviewRepo := repo.NewReviewRepo(postgresDB.Pool)

	producer := rabbitadapter.NewProducer(rabbitMQ)

	// services
	dir := directory.New(log)
	tokenSvc := auth.NewTokenService(cfg.Auth.JWTSecret, userRepo, refreshRepo, txManager, cfg.Auth.RefreshTokenTTL, cfg.Auth.AccessTokenTTL, log)
	authSvc := auth.NewAuthService(userRepo, tokenSvc, log)
	profileSvc := profile.NewProfileService(userRepo, producer, dir, log)
	matchSvc := matching.NewMatchService(matchRepo, eventRepo, dir, producer, log, txManager)
	chatSvc := chat.NewChatService(messageRepo, matchSvc, producer, log)
	reviewSvc := review.NewReviewService(reviewRepo, matchSvc, userRepo, log)

	if err := warmDirectory(ctx, dir, userRepo, log); err != nil {
		log.Warn(ctx, "directory warm-up failed, map starts empty", "err", err.Error())
	}

	sink := &eventSink{directory: dir, chat: chatSvc}
	consumer := rabbitadapter.NewConsumer(rabbitMQ, sink, cfg.Server.Replica, log)

	hub := ws.NewConnHub(log)

	httpServer, err := server.New(cfg, server.Services{
		Auth:      authSvc,
		Profile:   profileSvc,
		Directory: dir,
		Matching:  matchSvc,
		Chat:      chatSvc,
		Reviews:   reviewSvc,
		Ratings:   reviewSvc,
	}, hub, log)
	if err != nil {
		log.Error(ctx, "failed to setup http server", err)
		postgresDB.Pool.Close()
		return nil, err
	}

	return &App{
		postgresDB: postgresDB,
		rabbitMQ:   rabbitMQ,
		httpServer: httpServer,
		consumer:   consumer,
		hub:        hub,
		cfg:        cfg,
		log:        log,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	defer func() {
		a.close(ctx)
		a.log.Info(ctx, "application closed")
	}()

	errCh := make(chan error, 4)
	a.httpServer.Run(ctx, errCh)

	// Broker consumers keep the directory and conversations current across
	// replicas. Each reconnects on its own.
	go func() { errCh <- a.consumer.ConsumeProfileEvents(ctx) }()
	go func() { errCh <- a.consumer.ConsumeMatchStatus(ctx) }()
	go func() { errCh <- a.consumer.ConsumeChatMessages(ctx) }()

	// Waiting signal
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	a.log.Info(ctx, "service started")
	select {
	case errRun := <-errCh:
		return errRun
	case sig := <-shutdownCh:
		a.log.Info(ctx, "shutting down application", "signal", sig.String())
		return nil
	}
}

func (a *App) close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second*10)
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error(ctx, "failed to shutdown HTTP server", err)
	}

	a.hub.Close()

	if err := a.rabbitMQ.Close(ctx); err != nil {
		a.log.Warn(ctx, "failed to close rabbitmq connection", "err", err.Error())
	}

	a.postgresDB.Pool.Close()
}

// warmDirectory seeds the in-memory guide directory from the store so
// discovery works before the first profile event arrives.
func warmDirectory(ctx context.Context, dir *directory.Directory, users *repo.UserRepo, log logger.Logger) error {
	ctx = wrap.WithAction(ctx, "warm_directory")

	guides, err := users.ListGuides(ctx)
	if err != nil {
		return err
	}
	for i := range guides {
		dir.Apply(ctx, models.ProfileEventFromUser(&guides[i]))
	}
	log.Info(ctx, "directory warmed", "guides", len(guides))
	return nil
}
