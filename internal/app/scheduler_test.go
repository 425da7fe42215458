package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type stubProcessor struct {
	mu sync.Mutex

	expiredCalls int
	processCalls int
	batchSizes   []int

	expiredErr error
	processErr error
	sent       int
}

func (p *stubProcessor) MarkExpiredBatch(context.Context) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expiredCalls++
	return 0, p.expiredErr
}

func (p *stubProcessor) ProcessDueBatch(_ context.Context, batchSize int) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processCalls++
	p.batchSizes = append(p.batchSizes, batchSize)
	return p.sent, p.processErr
}

func TestScheduler_ProcessOnce(t *testing.T) {
	processor := &stubProcessor{sent: 2}
	s := NewScheduler(processor, time.Minute, 10, zap.NewNop())

	s.ProcessOnce(context.Background())

	assert.Equal(t, 1, processor.expiredCalls)
	assert.Equal(t, 1, processor.processCalls)
	assert.Equal(t, []int{10}, processor.batchSizes)
}

func TestScheduler_ProcessOnceSurvivesErrors(t *testing.T) {
	processor := &stubProcessor{
		expiredErr: errors.New("db down"),
		processErr: errors.New("db down"),
	}
	s := NewScheduler(processor, time.Minute, 5, zap.NewNop())

	s.ProcessOnce(context.Background())

	// Ошибка на шаге просрочки не мешает шагу отправки
	assert.Equal(t, 1, processor.expiredCalls)
	assert.Equal(t, 1, processor.processCalls)
}

func TestScheduler_StartRunsImmediatelyAndStops(t *testing.T) {
	processor := &stubProcessor{}
	s := NewScheduler(processor, time.Hour, 10, zap.NewNop())

	s.Start(context.Background())

	assert.Eventually(t, func() bool {
		processor.mu.Lock()
		defer processor.mu.Unlock()
		return processor.processCalls == 1
	}, time.Second, 10*time.Millisecond, "first cycle runs without waiting for the ticker")

	s.Stop()
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	processor := &stubProcessor{}
	s := NewScheduler(processor, 10*time.Millisecond, 10, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	assert.Eventually(t, func() bool {
		processor.mu.Lock()
		defer processor.mu.Unlock()
		return processor.processCalls >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()

	processor.mu.Lock()
	calls := processor.processCalls
	processor.mu.Unlock()

	time.Sleep(50 * time.Millisecond)

	processor.mu.Lock()
	defer processor.mu.Unlock()
	assert.LessOrEqual(t, processor.processCalls, calls+1, "no new cycles after cancellation")
}
