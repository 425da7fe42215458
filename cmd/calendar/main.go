package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/bellgado/calendar/internal/app"
	"github.com/bellgado/calendar/internal/config"
	"github.com/bellgado/calendar/internal/notify"
	"github.com/bellgado/calendar/internal/repository"
	"github.com/bellgado/calendar/internal/repository/base"
	"github.com/bellgado/calendar/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	logger.Info("Starting calendar service",
		zap.String("environment", cfg.Environment),
		zap.String("timezone", cfg.Timezone),
		zap.Bool("notifications_enabled", cfg.NotificationsEnabled),
	)

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Fatal("Invalid timezone", zap.String("timezone", cfg.Timezone), zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create connection pool", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	migrator, err := app.NewMigrator(pool, "migrations", logger)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	migrator.Close()

	// Репозитории и менеджер транзакций
	txManager := base.NewTxManager(pool)
	slotRepo := repository.NewSlotRepository(pool)
	eventRepo := repository.NewSlotEventRepository(pool)
	studentRepo := repository.NewStudentRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	waitlistRepo := repository.NewWaitlistRepository(pool)

	// Провайдеры доставки: noop всегда в конце цепочки, email при
	// наличии ключа
	providers := []notify.Provider{notify.NewNoOpProvider(logger)}
	if cfg.ResendAPIKey != "" {
		providers = append(providers, notify.NewResendEmailProvider(cfg.ResendAPIKey, cfg.ResendFrom, logger))
	}
	dispatcher := notify.NewDispatcher(providers, logger)

	// Сервисы
	eventService := service.NewSlotEventService(eventRepo, logger)
	studentService := service.NewStudentService(studentRepo, logger)
	notificationService := service.NewNotificationService(
		txManager,
		notificationRepo,
		studentRepo,
		dispatcher,
		service.NotificationSettings{
			Enabled:           cfg.NotificationsEnabled,
			ImmediateDispatch: cfg.ImmediateDispatch,
			MaxAttempts:       cfg.MaxAttempts,
			DefaultExpiry:     cfg.DefaultExpiry,
			DefaultPriority:   cfg.DefaultPriority,
		},
		logger,
	)
	waitlistService := service.NewWaitlistService(waitlistRepo, studentRepo, logger)
	slotService := service.NewSlotService(txManager, slotRepo, studentRepo, eventService, loc, logger)
	slotService.AddListener(service.NewSlotNotificationListener(notificationService, logger))
	slotService.SetWaitlist(waitlistService)

	if students, err := studentService.ListActive(ctx); err != nil {
		logger.Warn("Failed to load student registry", zap.Error(err))
	} else {
		logger.Info("Student registry loaded", zap.Int("active_students", len(students)))
	}

	// Фоновая обработка очереди уведомлений
	scheduler := app.NewScheduler(notificationService, cfg.PollInterval, cfg.BatchSize, logger)
	scheduler.Start(ctx)

	logger.Info("Calendar service started")

	// Ждём сигнал завершения
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	logger.Info("Shutting down", zap.String("signal", sig.String()))
	scheduler.Stop()
	cancel()
}
