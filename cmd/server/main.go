package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"

	"github.com/example/zinco/internal/app"
	"github.com/example/zinco/internal/auth"
	"github.com/example/zinco/internal/clock"
	"github.com/example/zinco/internal/config"
	"github.com/example/zinco/internal/database"
	"github.com/example/zinco/internal/handlers"
	"github.com/example/zinco/internal/logger"
	"github.com/example/zinco/internal/routes"
	"github.com/example/zinco/internal/services"
	"github.com/example/zinco/internal/storage"
	"github.com/example/zinco/internal/store"
)

// sweepInterval is how often idle devices are evicted from the registry.
const sweepInterval = 5 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	if err := run(cfg, lg); err != nil {
		lg.Fatal("server stopped", "error", err)
	}
}

// run serves until SIGINT or SIGTERM. Deferred cleanup always runs
// before it returns, so callers may exit on its error.
func run(cfg *config.Config, lg *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.Database.URL, lg, cfg.Log.Level == "debug")
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	otp := services.NewOTPService(cfg.OTP, lg)
	telegram := services.NewTelegramService(cfg.Telegram.BotToken, cfg.Telegram.AdminChatID, lg)

	var avatars *services.AvatarStorage
	if cfg.Storage.Enabled {
		avatars, err = services.NewAvatarStorage(ctx, cfg.Storage)
		if err != nil {
			return fmt.Errorf("avatar storage init failed: %w", err)
		}
	}

	var sms handlers.SMSSender
	if cfg.Auth.SMSConfirmation {
		sms = otp
	}

	registry := app.NewRegistry(app.RegistryConfig{
		Open: func(id uuid.UUID) storage.Storage {
			return storage.NewGorm(db, id.String())
		},
		Gateway: otp,
		Codec:   store.CodecFor(cfg.Auth.PinHashing),
		Clock:   clock.Real(),
		Options: auth.Options{
			ResendCooldown: cfg.Auth.ResendCooldown,
			Tick:           cfg.Auth.Tick,
			MaxPinAttempts: cfg.Auth.MaxPinAttempts,
			LockoutDelay:   cfg.Auth.LockoutDelay,
			Lang:           cfg.OTP.Lang,
		},
		Logger: lg,
	})
	defer registry.Close()
	registry.StartSweeper(sweepInterval)

	server := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: handlers.ErrorHandler(lg),
		BodyLimit:    6 << 20,
	})

	server.Use(recover.New())
	server.Use(fiberlogger.New())

	waitBackground := routes.Register(server, routes.Deps{
		DB:       db,
		Config:   cfg,
		Registry: registry,
		Telegram: telegram,
		SMS:      sms,
		Avatars:  avatars,
		Logger:   lg,
	})
	defer waitBackground()

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		lg.Info("shutting down")
		if err := server.Shutdown(); err != nil {
			lg.Error("shutdown failed", "error", err)
		}
	}()

	lg.Info("starting server", "port", cfg.App.Port)
	if err := server.Listen(":" + cfg.App.Port); err != nil {
		return fmt.Errorf("fiber.Listen: %w", err)
	}
	<-shutdownDone
	return nil
}
