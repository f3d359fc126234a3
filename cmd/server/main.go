package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	authmodule "github.com/uniserve/uniserve/modules/auth"
	"github.com/uniserve/uniserve/pkg/auth"
	"github.com/uniserve/uniserve/pkg/config"
	"github.com/uniserve/uniserve/pkg/email"
	"github.com/uniserve/uniserve/pkg/httpserver"
	"github.com/uniserve/uniserve/pkg/jwt"
	"github.com/uniserve/uniserve/pkg/keys"
	"github.com/uniserve/uniserve/pkg/logger"
	"github.com/uniserve/uniserve/pkg/pg"
	"github.com/uniserve/uniserve/pkg/redis"
	"github.com/uniserve/uniserve/pkg/session"
	"github.com/uniserve/uniserve/pkg/userstore"
	authsvc "github.com/uniserve/uniserve/svc/auth"
)

type appConfig struct {
	Env string `env:"APP_ENV" envDefault:"development"`

	// AllowedEmailDomains restricts federated onboarding to institutional
	// addresses. Empty means any domain is accepted.
	AllowedEmailDomains []string `env:"ALLOWED_EMAIL_DOMAINS" envSeparator:","`
	DevEmailDir         string   `env:"DEV_EMAIL_DIR" envDefault:"./tmp/emails"`

	Log    logger.Config
	HTTP   httpserver.Config
	PG     pg.Config
	Redis  redis.Config
	Email  email.Config
	Keys   keys.Config
	JWT    jwt.Config
	Google auth.GoogleConfig
}

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.NewFromConfig(cfg.Log, "uniserve")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	pool, err := pg.Connect(ctx, cfg.PG)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, cfg.PG, log); err != nil {
		return err
	}

	redisClient, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Warn("failed to close redis client", logger.Error(err))
		}
	}()

	var sender email.Sender
	if cfg.Env == "production" {
		sender, err = email.NewPostmarkClient(cfg.Email)
		if err != nil {
			return err
		}
	} else {
		sender = email.NewDevSender(cfg.DevEmailDir)
	}
	notifier := email.NewNotifier(sender, cfg.Email)

	keyProvider, err := keys.New(cfg.Keys)
	if err != nil {
		return err
	}
	tokens, err := jwt.New(keyProvider, cfg.JWT, jwt.WithLogger(log))
	if err != nil {
		return err
	}

	users := userstore.NewPostgresStore(pool)
	profiles := userstore.NewPostgresProfileStore(pool)
	states := userstore.NewRedisStateStore(redisClient)

	sessions := session.New(tokens, users, session.WithLogger(log))

	passwords := auth.NewPasswordService(users, profiles,
		auth.WithPasswordLogger(log),
	)
	recovery := auth.NewRecoveryService(users, tokens, notifier, sessions,
		auth.WithRecoveryLogger(log),
	)
	onboarder := auth.NewOnboarder(users, profiles, states,
		auth.WithOnboarderLogger(log),
		auth.WithAdapter(auth.NewGoogleAdapter(cfg.Google)),
		auth.WithDomainPolicy(auth.DomainAllowlist(cfg.AllowedEmailDomains)),
	)

	svc := authsvc.New(passwords, recovery, onboarder, sessions, tokens, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", httpserver.HealthCheckHandler(log, nil))
	r.Get("/readyz", httpserver.HealthCheckHandler(log, map[string]httpserver.Check{
		"postgres": pool.Ping,
		"redis": func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		},
	}))
	r.Mount("/auth", authmodule.Router(svc, log))

	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
	return srv.Run(ctx, r)
}
