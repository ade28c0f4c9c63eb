package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskwell/internal/auth"
	"taskwell/internal/bot"
	"taskwell/internal/config"
	"taskwell/internal/httpapi"
	"taskwell/internal/repository"
	"taskwell/internal/service"
	"taskwell/internal/telemetry"
	"taskwell/internal/wellness"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	shutdownTracing, err := telemetry.Setup(ctx, "taskwell", cfg.OTelEndpoint)
	if err != nil {
		log.Printf("[warn] tracing disabled: %v", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Printf("[warn] flush traces: %v", err)
		}
	}()

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer sqlDB.Close()

	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		secret, err = auth.RandomSecret()
		if err != nil {
			log.Fatalf("jwt secret: %v", err)
		}
		log.Println("[warn] JWT_SECRET_KEY is not set; using a random secret, sessions will not survive a restart")
	}
	tokens, err := auth.NewTokenIssuer(secret, nil)
	if err != nil {
		log.Fatalf("tokens: %v", err)
	}
	if cfg.GoogleClientID == "" {
		log.Println("[warn] GOOGLE_CLIENT_ID is not set; Google sign-in will reject every token")
	}
	google, err := auth.NewGoogleVerifier(ctx, auth.GoogleVerifierConfig{
		ClientID: cfg.GoogleClientID,
		CertsURL: cfg.GoogleCertsURL,
		Timeout:  cfg.GoogleVerifyTimeout,
	})
	if err != nil {
		log.Fatalf("google verifier: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	authSvc := service.NewAuthService(userRepo, auth.NewBcryptHasher(), tokens, google)
	taskSvc := service.NewTaskService(taskRepo)
	recurrenceSvc := service.NewRecurrenceService(taskRepo)
	digestSvc := service.NewDigestService(taskRepo)

	scheduler := service.NewSchedulerService(cfg.Location())
	if _, err := scheduler.ScheduleDaily("rollover", cfg.RolloverTime, func(jobCtx context.Context) error {
		_, err := recurrenceSvc.Rollover(jobCtx, time.Now().In(cfg.Location()))
		return err
	}); err != nil {
		log.Fatalf("schedule rollover: %v", err)
	}

	if cfg.TelegramToken != "" {
		telegramBot, err := bot.New(cfg.TelegramToken, userRepo, digestSvc)
		if err != nil {
			log.Fatalf("bot: %v", err)
		}
		if _, err := scheduler.ScheduleDaily("digest", cfg.DigestTime, telegramBot.SendDailyReports); err != nil {
			log.Fatalf("schedule digest: %v", err)
		}
		go func() {
			if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("[error] bot stopped: %v", err)
			}
		}()
	}

	scheduler.Start()
	defer scheduler.Stop()

	router := httpapi.NewRouter(httpapi.Deps{
		Auth:           authSvc,
		Tasks:          taskSvc,
		Wellness:       wellness.New(wellness.Config{QuoteURL: cfg.WellnessQuoteURL, FactURL: cfg.WellnessFactURL, Timeout: cfg.WellnessTimeout}),
		Tokens:         tokens,
		CORSOrigins:    cfg.CORSOrigins,
		RequestTimeout: cfg.RequestTimeout,
		Ping:           sqlDB.PingContext,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[info] taskwell listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		log.Printf("[error] http server: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[warn] http shutdown: %v", err)
	}
	log.Println("Shutdown complete.")
}
