package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shortlink/internal/domain"
)

func newTestProcessor(t *testing.T) (*Processor, *Engine, *domain.Link) {
	t.Helper()
	engine, storage, _ := newTestEngine(t, AggDomain)
	link := createTestLink(t, storage, "proclink")

	cfg := DefaultProcessorConfig()
	cfg.WorkerCount = 2
	cfg.RetryDelay = 10 * time.Millisecond
	cfg.ShutdownTimeout = 5 * time.Second
	return NewProcessor(engine, zap.NewNop(), cfg), engine, link
}

func TestProcessorLifecycle(t *testing.T) {
	p, _, _ := newTestProcessor(t)

	require.NoError(t, p.Start())
	assert.Error(t, p.Start(), "second start must fail")
	require.NoError(t, p.Stop())
	assert.Error(t, p.Stop(), "second stop must fail")
}

func TestProcessorSubmitBeforeStart(t *testing.T) {
	p, _, link := newTestProcessor(t)
	err := p.Submit(&ClickJob{LinkID: link.ID, Event: &domain.ClickEvent{}})
	assert.Error(t, err)
}

func TestProcessorRecordsSubmittedClicks(t *testing.T) {
	p, engine, link := newTestProcessor(t)
	require.NoError(t, p.Start())

	for i := 0; i < 5; i++ {
		require.NoError(t, p.Submit(&ClickJob{LinkID: link.ID, Event: &domain.ClickEvent{}}))
	}

	// Stop drains the queue before returning.
	require.NoError(t, p.Stop())

	stats, err := engine.LinkStats(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.TotalClicks)
}

func TestProcessorDropsClickForMissingLink(t *testing.T) {
	p, engine, link := newTestProcessor(t)
	require.NoError(t, p.Start())

	// Missing links are permanent failures, not retried; the good click
	// behind it must still land.
	require.NoError(t, p.Submit(&ClickJob{LinkID: 424242, Event: &domain.ClickEvent{}}))
	require.NoError(t, p.Submit(&ClickJob{LinkID: link.ID, Event: &domain.ClickEvent{}}))
	require.NoError(t, p.Stop())

	stats, err := engine.LinkStats(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalClicks)
}

// A Stop that gives up on a stuck worker must still leave the processor
// closed to new submissions; a later Submit gets an error, not a send on the
// closed queue.
func TestProcessorSubmitAfterTimedOutStop(t *testing.T) {
	engine, storage, db := newTestEngine(t, AggDomain)
	link := createTestLink(t, storage, "stuck")

	cfg := DefaultProcessorConfig()
	cfg.WorkerCount = 1
	cfg.RetryAttempts = 3
	cfg.RetryDelay = 2 * time.Second
	cfg.ShutdownTimeout = 10 * time.Millisecond
	p := NewProcessor(engine, zap.NewNop(), cfg)
	require.NoError(t, p.Start())

	// Make recording fail so the worker parks in its retry backoff,
	// outlasting the shutdown timeout.
	require.NoError(t, db.Migrator().DropTable(&domain.ClickEvent{}))
	require.NoError(t, p.Submit(&ClickJob{LinkID: link.ID, Event: &domain.ClickEvent{}}))

	assert.Error(t, p.Stop())
	assert.Error(t, p.Submit(&ClickJob{LinkID: link.ID, Event: &domain.ClickEvent{}}))
	assert.Error(t, p.Stop(), "stop after timed-out stop must not panic")
}

func TestProcessorQueueFull(t *testing.T) {
	engine, storage, _ := newTestEngine(t, AggDomain)
	link := createTestLink(t, storage, "full")

	cfg := DefaultProcessorConfig()
	cfg.WorkerCount = 0 // nothing consumes the queue
	cfg.BufferSize = 2
	p := NewProcessor(engine, zap.NewNop(), cfg)
	require.NoError(t, p.Start())

	require.NoError(t, p.Submit(&ClickJob{LinkID: link.ID, Event: &domain.ClickEvent{}}))
	require.NoError(t, p.Submit(&ClickJob{LinkID: link.ID, Event: &domain.ClickEvent{}}))
	err := p.Submit(&ClickJob{LinkID: link.ID, Event: &domain.ClickEvent{}})
	assert.Error(t, err, "a full queue drops the click instead of blocking the redirect")

	stats := p.QueueStats()
	assert.Equal(t, 2, stats["queue_length"])
	assert.Equal(t, 2, stats["queue_capacity"])
}
