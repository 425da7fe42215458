package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// NotificationProcessor интерфейс outbox-сервиса, который воркер гоняет
// по циклу опроса
type NotificationProcessor interface {
	MarkExpiredBatch(ctx context.Context) (int64, error)
	ProcessDueBatch(ctx context.Context, batchSize int) (int, error)
}

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	processor    NotificationProcessor
	pollInterval time.Duration
	batchSize    int
	logger       *zap.Logger
	stopChan     chan struct{}
}

// NewScheduler создаёт новый планировщик
func NewScheduler(processor NotificationProcessor, pollInterval time.Duration, batchSize int, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		processor:    processor,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		logger:       logger,
		stopChan:     make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler",
		zap.Duration("poll_interval", s.pollInterval),
		zap.Int("batch_size", s.batchSize),
	)

	// Запускаем цикл обработки outbox
	go s.runNotificationTask(ctx)
}

// Stop останавливает фоновые задачи
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	close(s.stopChan)
}

// runNotificationTask периодически прокачивает очередь уведомлений
func (s *Scheduler) runNotificationTask(ctx context.Context) {
	// Первый запуск сразу при старте
	s.ProcessOnce(ctx)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.ProcessOnce(ctx)
		case <-s.stopChan:
			s.logger.Info("Notification task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Notification task cancelled")
			return
		}
	}
}

// ProcessOnce выполняет один цикл: сначала просроченные, затем пачка
// готовых к отправке. Ошибки цикла логируются и не прерывают воркер.
func (s *Scheduler) ProcessOnce(ctx context.Context) {
	if _, err := s.processor.MarkExpiredBatch(ctx); err != nil {
		s.logger.Error("Failed to mark expired notifications", zap.Error(err))
	}

	sent, err := s.processor.ProcessDueBatch(ctx, s.batchSize)
	if err != nil {
		s.logger.Error("Failed to process due notifications", zap.Error(err))
		return
	}

	if sent > 0 {
		s.logger.Info("Notification cycle completed", zap.Int("sent", sent))
	}
}
