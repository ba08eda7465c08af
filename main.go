package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"scholar/config"
	"scholar/database"
	"scholar/logger"
	"scholar/routers"
	"scholar/services"
	"scholar/utils"
)

func main() {
	cfg := config.LoadConfig()

	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := database.ConnectDb(cfg)
	if err != nil {
		log.Fatal("Database connection failed", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	identityKey, err := utils.LoadIdentityKey(ctx, cfg.IdentityPublicKey, cfg.IdentityPublicKeyURL)
	if err != nil {
		log.Fatal("Loading identity provider key failed", "error", err)
	}

	opts := services.Options{
		JWTKey:          cfg.JWTKey,
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
		SaltRound:       cfg.SaltRound,
		IdentityKey:     identityKey,
		UsernameMaxLen:  cfg.IdentityUsernameMaxLen,
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal("Redis connection failed", "addr", cfg.RedisAddr, "error", err)
		}
		opts.Locker = services.NewRedisLocker(rdb, cfg.ReconcileLockTTL)
		log.Info("Using redis reconcile lock", "addr", cfg.RedisAddr)
	}
	if mailer := utils.NewMailer(cfg.SendgridAPIKey, cfg.EmailSender, cfg.PublicBaseURL, log); mailer != nil {
		opts.Notifier = mailer
	}

	svc := services.New(db, opts, log)

	scheduler, err := utils.StartSchedulers(cfg.ReconcileSweepSchedule, svc.Reconciler, svc.Tokens, log)
	if err != nil {
		log.Fatal("Starting schedulers failed", "error", err)
	}
	defer scheduler.Stop()

	app := routers.NewApp(routers.Deps{Config: cfg, DB: db, Services: svc, Log: log})

	go func() {
		<-ctx.Done()
		log.Info("Shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("Shutdown failed", "error", err)
		}
	}()

	log.Info("Server is running", "port", cfg.Port, "env", cfg.AppEnv)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal("Server stopped", "error", err)
	}
}
